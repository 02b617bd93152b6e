package httpclient

import (
	"log"
	"net/http"
	"time"

	"golang.org/x/net/http2"
)

// Default returns an HTTP client with timeouts so that a stalled Dispatcharr
// or sports-provider endpoint cannot hang a generation run forever.
// HTTP/2 is configured explicitly on the transport since both Dispatcharr
// and the sports providers are plain HTTPS hosts that benefit from stream
// multiplexing during the paginated-list and per-event-enrichment bursts.
func Default() *http.Client {
	transport := &http.Transport{
		ResponseHeaderTimeout: 15 * time.Second,
		ExpectContinueTimeout: 5 * time.Second,
		IdleConnTimeout:       30 * time.Second,
	}
	if err := http2.ConfigureTransport(transport); err != nil {
		log.Printf("httpclient: http2 not configured: %v", err)
	}
	return &http.Client{
		Timeout:   60 * time.Second,
		Transport: transport,
	}
}

// ForPolling returns a client tuned for the account-refresh polling loop:
// no overall timeout (the loop itself owns the deadline) but a
// ResponseHeaderTimeout so a single stuck poll can't stall the others.
func ForPolling() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			ResponseHeaderTimeout: 15 * time.Second,
			ExpectContinueTimeout: 5 * time.Second,
			IdleConnTimeout:       90 * time.Second,
		},
	}
}
