package dispatcharr

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/teamarr/teamarr/internal/teamerr"
)

// Logo is a Dispatcharr channel logo.
type Logo struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// LogoUploadStatus reports whether UploadLogo created a new logo or
// resolved a pre-existing one with the same URL.
type LogoUploadStatus string

const (
	LogoCreated       LogoUploadStatus = "created"
	LogoFoundExisting LogoUploadStatus = "found_existing"
)

// UploadLogo registers a logo URL with Dispatcharr. If the URL already
// exists (a unique-constraint collision on create), it looks up and returns
// the existing logo's ID instead of failing — Dispatcharr logos are
// deduplicated by URL, and channel creation churn would otherwise pile up
// duplicate rows. Mirrors ChannelManager.upload_logo.
func (c *Client) UploadLogo(ctx context.Context, name, logoURL string) (int64, LogoUploadStatus, error) {
	if logoURL == "" {
		return 0, "", teamerr.Validation(map[string][]string{"url": {"logo URL is required"}})
	}
	resp, err := c.do(ctx, http.MethodPost, "/api/channels/logos/", map[string]any{"name": name, "url": logoURL})
	if err != nil {
		return 0, "", err
	}
	if ok(resp) {
		var logo Logo
		if err := decode(resp, &logo); err != nil {
			return 0, "", err
		}
		return logo.ID, LogoCreated, nil
	}

	body := readAndClassifyBody(resp)
	if strings.Contains(strings.ToLower(body), "already exists") || strings.Contains(strings.ToLower(body), "unique") {
		existing, findErr := c.findLogoByURL(ctx, logoURL)
		if findErr == nil && existing != nil {
			return existing.ID, LogoFoundExisting, nil
		}
	}
	return 0, "", teamerr.UpstreamState(nil, "dispatcharr: upload logo %q failed: %s", name, body)
}

func (c *Client) findLogoByURL(ctx context.Context, logoURL string) (*Logo, error) {
	logos, err := paginatedGet[Logo](ctx, c, "/api/channels/logos/?page_size=100")
	if err != nil {
		return nil, err
	}
	for i := range logos {
		if logos[i].URL == logoURL {
			return &logos[i], nil
		}
	}
	return nil, nil
}

// GetLogo fetches a single logo by ID.
func (c *Client) GetLogo(ctx context.Context, logoID int64) (*Logo, error) {
	if logoID == 0 {
		return nil, nil
	}
	resp, err := c.do(ctx, http.MethodGet, logoPath(logoID), nil)
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
	var logo Logo
	if err := decode(resp, &logo); err != nil {
		return nil, err
	}
	return &logo, nil
}

// LogoDeleteStatus reports what DeleteLogo actually did.
type LogoDeleteStatus string

const (
	LogoDeleted  LogoDeleteStatus = "deleted"
	LogoInUse    LogoDeleteStatus = "in_use"
	LogoNotFound LogoDeleteStatus = "not_found"
)

// DeleteLogo removes a logo, but only after confirming no other channel
// still references it — deleting a shared logo out from under another
// channel would break that channel's art. Mirrors
// ChannelManager.delete_logo's "check usage, then delete" sequence.
func (c *Client) DeleteLogo(ctx context.Context, logoID int64) (LogoDeleteStatus, error) {
	if logoID == 0 {
		return "", teamerr.Validation(map[string][]string{"logo_id": {"required"}})
	}

	inUse, err := c.logoInUse(ctx, logoID)
	if err != nil {
		// Upstream usage-check failure shouldn't block the delete attempt;
		// fall through and let the delete call itself decide.
		inUse = false
	}
	if inUse {
		return LogoInUse, nil
	}

	resp, err := c.do(ctx, http.MethodDelete, logoPath(logoID), nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	switch {
	case ok(resp):
		return LogoDeleted, nil
	case resp.StatusCode == http.StatusNotFound:
		return LogoNotFound, nil
	default:
		return "", classify(resp)
	}
}

func (c *Client) logoInUse(ctx context.Context, logoID int64) (bool, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/channels/channels/?logo_id="+strconv.FormatInt(logoID, 10), nil)
	if err != nil {
		return false, err
	}
	if !ok(resp) {
		defer resp.Body.Close()
		return false, nil
	}
	var channels []Channel
	if err := decode(resp, &channels); err != nil {
		return false, err
	}
	return len(channels) > 0, nil
}

func logoPath(id int64) string {
	return "/api/channels/logos/" + strconv.FormatInt(id, 10) + "/"
}

func readAndClassifyBody(resp *http.Response) string {
	defer resp.Body.Close()
	buf := make([]byte, 4096)
	n, _ := resp.Body.Read(buf)
	return string(buf[:n])
}
