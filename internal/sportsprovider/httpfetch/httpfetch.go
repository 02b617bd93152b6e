// Package httpfetch is the shared transport the ESPN and TheSportsDB
// adapters build their *http.Client on: a rate-limited, opportunistically
// brotli-decoding GET helper, mirroring the "polite guest" posture
// internal/httpclient/hostsem.go's GlobalHostSem applies process-wide, but
// applied per-provider via golang.org/x/time/rate since these are outbound
// reads against a third-party API rather than a shared upstream the whole
// process hits.
package httpfetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/andybalholm/brotli"
	"golang.org/x/time/rate"

	"github.com/teamarr/teamarr/internal/httpclient"
	"github.com/teamarr/teamarr/internal/teamerr"
)

// Fetcher wraps an *http.Client with a per-provider rate.Limiter so ESPN's
// empirically-bursty public API and TheSportsDB's documented per-minute cap
// are both respected without a shared global semaphore.
type Fetcher struct {
	Client  *http.Client
	Limiter *rate.Limiter
}

// New builds a Fetcher allowing burst requests at up to ratePerSecond
// sustained, with a burst size equal to the rate (at least 1).
func New(ratePerSecond float64) *Fetcher {
	burst := int(ratePerSecond)
	if burst < 1 {
		burst = 1
	}
	return &Fetcher{
		Client:  httpclient.Default(),
		Limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}
}

// GetJSON performs a rate-limited GET, transparently decoding a brotli body
// when the provider returns Content-Encoding: br (some ESPN edge responses
// do, even without an explicit Accept-Encoding request), and decodes the
// JSON body into out.
func (f *Fetcher) GetJSON(ctx context.Context, url string, out any) error {
	if err := f.Limiter.Wait(ctx); err != nil {
		return teamerr.Network(err, "httpfetch: rate limiter wait for %s", url)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return teamerr.Network(err, "httpfetch: build request for %s", url)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := httpclient.DoWithRetry(ctx, f.Client, req, httpclient.ProviderRetryPolicy)
	if err != nil {
		return teamerr.Network(err, "httpfetch: request %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return teamerr.NotFound("httpfetch: %s returned 404", url)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return teamerr.UpstreamState(nil, "httpfetch: %s returned %d", url, resp.StatusCode)
	}

	body := io.Reader(resp.Body)
	if resp.Header.Get("Content-Encoding") == "br" {
		body = brotli.NewReader(resp.Body)
	}

	if err := decodeJSON(body, out); err != nil {
		return teamerr.Network(err, "httpfetch: decode %s", url)
	}
	return nil
}

func decodeJSON(r io.Reader, out any) error {
	if err := json.NewDecoder(r).Decode(out); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}
