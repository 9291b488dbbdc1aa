package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"meetbrew/internal/config"
	"meetbrew/internal/ics"
	appLog "meetbrew/internal/log"
	"meetbrew/internal/store"
	"meetbrew/internal/tz"
	"meetbrew/internal/web"
)

const version = "0.1.0"

type flagConfig struct {
	configPath string
	listen     string
	logLevel   string
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		if conf == nil {
			appLog.Error("failed to load config", err, "config_path", flags.configPath)
			os.Exit(1)
		}
		appLog.Warn("could not write default config, continuing with defaults", "config_path", flags.configPath, "err", err.Error())
	}

	// CLI flags override the file.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.logLevel != "" {
		conf.LogLevel = flags.logLevel
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	resolver := tz.Resolver{Default: conf.DefaultTimezone}
	appLog.Info("meetbrew starting",
		"version", version,
		"listen", conf.Listen,
		"default_timezone", conf.DefaultTimezone,
		"device_timezone", resolver.Device(),
		"purge", conf.PurgeCron,
		"retention_days", conf.RetentionDays,
	)

	// Imports take URLs from request bodies; internal addresses stay off
	// limits unless the operator opts in.
	var icsClient *http.Client
	if conf.AllowPrivateCalendarURLs {
		icsClient = &http.Client{Timeout: 15 * time.Second}
		appLog.Warn("calendar imports may reach private addresses")
	}

	st := store.New(store.Options{Reserved: conf.ReservedIDs, MaxDates: conf.MaxDates})
	srv := web.NewServer(web.Options{
		Config:   conf,
		Store:    st,
		Resolver: resolver,
		Fetcher:  ics.NewFetcher(conf.ICSCacheDir, icsClient),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	scheduler, err := startPurge(conf, st)
	if err != nil {
		appLog.Error("failed to schedule purge", err, "purge", conf.PurgeCron)
		os.Exit(1)
	}

	if err := serve(ctx, conf.Listen, srv.Handler()); err != nil {
		appLog.Error("http server failed", err, "listen", conf.Listen)
		<-scheduler.Stop().Done()
		os.Exit(1)
	}

	<-scheduler.Stop().Done()
	appLog.Info("meetbrew exiting")
}

// startPurge schedules removal of idle meetings.
func startPurge(conf *config.Config, st *store.Store) (*cron.Cron, error) {
	c := cron.New()
	retention := conf.Retention()
	_, err := c.AddFunc(conf.PurgeCron, func() {
		n := st.Purge(retention)
		stats := st.Stats()
		appLog.Info("purge completed", "removed", n, "meetings", stats.Meetings, "respondents", stats.Respondents)
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}

// serve runs the HTTP server until ctx is cancelled, then drains it.
func serve(ctx context.Context, addr string, h http.Handler) error {
	hs := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+addr)
		errCh <- hs.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./meetbrew.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.logLevel, "log-level", "", "debug, info, warn or error (overrides config if set)")

	flag.Parse()

	return cfg
}
