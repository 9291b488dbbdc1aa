package ics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"os"
	"path/filepath"
	"syscall"
	"time"

	appLog "meetbrew/internal/log"
)

// DefaultMaxBytes caps a fetched calendar body.
const DefaultMaxBytes = 4 << 20

var (
	ErrBadURL   = errors.New("ics: calendar url must be http or https")
	ErrTooLarge = errors.New("ics: calendar body too large")
	ErrUpstream = errors.New("ics: calendar fetch failed")
	ErrBlocked  = errors.New("ics: calendar address not allowed")
)

// Fetched is the outcome of one fetch.
type Fetched struct {
	URL       string
	Body      []byte
	FromCache bool
}

type cacheMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Fetcher downloads calendars with conditional requests. With a cache dir the
// last good body is kept on disk per URL and served on 304 or upstream errors.
type Fetcher struct {
	client   *http.Client
	cacheDir string
	maxBytes int64
}

// NewFetcher returns a Fetcher. An empty cacheDir disables the disk cache. A
// nil client means PublicClient.
func NewFetcher(cacheDir string, client *http.Client) *Fetcher {
	if client == nil {
		client = PublicClient(15 * time.Second)
	}
	return &Fetcher{client: client, cacheDir: cacheDir, maxBytes: DefaultMaxBytes}
}

// PublicClient only connects to public unicast addresses. The check runs on
// the resolved address of every dial including redirects. Proxies are off.
func PublicClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout: 10 * time.Second,
		Control: publicOnly,
	}
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.Proxy = nil
	tr.DialContext = dialer.DialContext
	return &http.Client{Timeout: timeout, Transport: tr}
}

func publicOnly(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBlocked, address)
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBlocked, address)
	}
	if !publicAddr(ip) {
		return fmt.Errorf("%w: %s", ErrBlocked, ip)
	}
	return nil
}

func publicAddr(ip netip.Addr) bool {
	ip = ip.Unmap()
	switch {
	case !ip.IsValid(),
		ip.IsUnspecified(),
		ip.IsLoopback(),
		ip.IsPrivate(),
		ip.IsLinkLocalUnicast(),
		ip.IsLinkLocalMulticast(),
		ip.IsInterfaceLocalMulticast(),
		ip.IsMulticast():
		return false
	}
	return !sharedAddressSpace.Contains(ip)
}

// sharedAddressSpace is carrier-grade NAT, which IsPrivate does not cover.
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

// Fetch downloads rawURL, falling back to the cached body when the server
// reports no change or fails.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Fetched, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Fetched{}, ErrBadURL
	}

	dir := f.cachePath(rawURL)
	var meta cacheMeta
	var cached []byte
	if dir != "" {
		meta, _ = loadMeta(dir)
		cached, _ = os.ReadFile(filepath.Join(dir, "body.ics"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Fetched{}, err
	}
	req.Header.Set("Accept", "text/calendar, */*;q=0.5")
	if len(cached) > 0 {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	appLog.Debug("ics fetch start", "url", redactURL(rawURL))
	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, ErrBlocked) {
			appLog.Warn("ics fetch blocked", "url", redactURL(rawURL))
			return Fetched{}, ErrBlocked
		}
		if len(cached) > 0 {
			appLog.Error("ics fetch failed, using cache", err, "url", redactURL(rawURL))
			return Fetched{URL: rawURL, Body: cached, FromCache: true}, nil
		}
		return Fetched{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
		if err != nil {
			return Fetched{}, fmt.Errorf("ics: read body: %w", err)
		}
		if int64(len(body)) > f.maxBytes {
			return Fetched{}, ErrTooLarge
		}
		if dir != "" {
			m := cacheMeta{
				URL:          rawURL,
				ETag:         resp.Header.Get("ETag"),
				LastModified: resp.Header.Get("Last-Modified"),
			}
			if err := saveCache(dir, m, body); err != nil {
				appLog.Error("ics cache save failed", err, "url", redactURL(rawURL))
			}
		}
		appLog.Info("ics fetched", "url", redactURL(rawURL), "bytes", len(body))
		return Fetched{URL: rawURL, Body: body}, nil

	case resp.StatusCode == http.StatusNotModified && len(cached) > 0:
		appLog.Debug("ics not modified", "url", redactURL(rawURL))
		return Fetched{URL: rawURL, Body: cached, FromCache: true}, nil

	default:
		if len(cached) > 0 {
			appLog.Warn("ics upstream error, using cache", "url", redactURL(rawURL), "status", resp.StatusCode)
			return Fetched{URL: rawURL, Body: cached, FromCache: true}, nil
		}
		return Fetched{}, fmt.Errorf("%w: unexpected status %s", ErrUpstream, resp.Status)
	}
}

func (f *Fetcher) cachePath(rawURL string) string {
	if f.cacheDir == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(rawURL))
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func loadMeta(dir string) (cacheMeta, error) {
	var m cacheMeta
	data, err := os.ReadFile(filepath.Join(dir, "meta.json"))
	if err != nil {
		return m, err
	}
	err = json.Unmarshal(data, &m)
	return m, err
}

func saveCache(dir string, m cacheMeta, body []byte) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	// Body goes first so meta never points at a missing body.
	if err := os.WriteFile(filepath.Join(dir, "body.ics"), body, 0o600); err != nil {
		return err
	}
	m.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "meta.json"), data, 0o600)
}

// redactURL keeps scheme and host only; calendar URLs often embed secrets.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "ics://...(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
