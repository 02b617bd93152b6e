package dispatcharr

import (
	"context"
	"net/http"
	"strconv"
	"time"
)

// EPGSource is a Dispatcharr EPG source (Teamarr registers itself as one so
// it can inject XMLTV data directly via set-epg).
type EPGSource struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Status      string    `json:"status"` // idle | fetching | parsing | error | success | disabled
	LastMessage string    `json:"last_message"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ListEPGSources lists every EPG source.
func (c *Client) ListEPGSources(ctx context.Context) ([]EPGSource, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/epg/sources/", nil)
	if err != nil {
		return nil, err
	}
	if !ok(resp) {
		return nil, classify(resp)
	}
	var sources []EPGSource
	if err := decode(resp, &sources); err != nil {
		return nil, err
	}
	return sources, nil
}

// GetEPGSource fetches one EPG source by ID.
func (c *Client) GetEPGSource(ctx context.Context, epgID int64) (*EPGSource, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/epg/sources/"+strconv.FormatInt(epgID, 10)+"/", nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, nil
	}
	if !ok(resp) {
		return nil, classify(resp)
	}
	var s EPGSource
	if err := decode(resp, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// TriggerEPGImport asks Dispatcharr to (re-)parse one EPG source's XMLTV
// file; the import runs asynchronously server-side (202 Accepted), so a nil
// return means the import was accepted, not that it has finished;
// GetEPGSource reports the source's current state. Mirrors
// EPGManager.refresh.
func (c *Client) TriggerEPGImport(ctx context.Context, epgID int64) error {
	resp, err := c.do(ctx, http.MethodPost, "/api/epg/import/", map[string]any{"id": epgID})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusAccepted {
		return nil
	}
	return classify(resp)
}
