// Package timesource supplies the timestamps used for attendance records.
package timesource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"
)

const (
	// DefaultURL is the public world-time endpoint for UTC.
	DefaultURL     = "http://worldtimeapi.org/api/timezone/Etc/UTC"
	defaultTimeout = 3 * time.Second
)

// Source returns the current instant. Implementations never fail; a source
// that cannot reach its authority falls back to the local clock.
type Source interface {
	Now(ctx context.Context) time.Time
}

// Local reads the server clock.
type Local struct{}

// Now returns the server time in UTC.
func (Local) Now(context.Context) time.Time {
	return time.Now().UTC()
}

// Remote asks a world-time API for the current UTC time and falls back to
// the local clock on any failure. It does not retry.
type Remote struct {
	url      string
	client   *http.Client
	fallback Source
}

// NewRemote creates a remote source. Each fetch is bounded by timeout.
func NewRemote(url string, timeout time.Duration) *Remote {
	if url == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Remote{
		url:      url,
		client:   &http.Client{Timeout: timeout},
		fallback: Local{},
	}
}

// worldTimeResponse is the subset of the world-time API payload we use
type worldTimeResponse struct {
	UTCDatetime string `json:"utc_datetime"`
}

// Now returns the remote UTC time, or the local time if the fetch fails.
func (r *Remote) Now(ctx context.Context) time.Time {
	t, err := r.fetch(ctx)
	if err != nil {
		log.Printf("time source: %v, using server time", err)
		return r.fallback.Now(ctx)
	}
	return t
}

func (r *Remote) fetch(ctx context.Context) (time.Time, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return time.Time{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return time.Time{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read response: %w", err)
	}

	var wt worldTimeResponse
	if err := json.Unmarshal(body, &wt); err != nil {
		return time.Time{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if wt.UTCDatetime == "" {
		return time.Time{}, fmt.Errorf("response has no utc_datetime")
	}

	t, err := time.Parse(time.RFC3339Nano, wt.UTCDatetime)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid utc_datetime %q: %w", wt.UTCDatetime, err)
	}
	return t.UTC(), nil
}

// Fixed always returns the same instant unless advanced. Safe for concurrent use.
type Fixed struct {
	mu sync.Mutex
	t  time.Time
}

// NewFixed creates a source frozen at t.
func NewFixed(t time.Time) *Fixed {
	return &Fixed{t: t.UTC()}
}

// Now returns the frozen instant.
func (f *Fixed) Now(context.Context) time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

// Set moves the clock to t.
func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = t.UTC()
}

// Advance moves the clock forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

var (
	_ Source = Local{}
	_ Source = (*Remote)(nil)
	_ Source = (*Fixed)(nil)
)
