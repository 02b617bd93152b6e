package dispatcharr

import (
	"context"
	"net/http"
	"strconv"
)

// Channel is Dispatcharr's channel resource, trimmed to the fields Teamarr
// reads or writes.
type Channel struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	ChannelNumber string `json:"channel_number"`
	TVGID         string `json:"tvg_id"`
	ChannelGroup  int64  `json:"channel_group_id"`
	LogoID        int64  `json:"logo_id"`
	UUID          string `json:"uuid"`
	Streams       []int64 `json:"streams"`
}

// CreateChannelRequest is the payload for Dispatcharr's channel-create
// endpoint. StreamIDs order determines the upstream's failover priority.
type CreateChannelRequest struct {
	Name            string
	ChannelNumber   int
	StreamIDs       []int64
	TVGID           string
	ChannelGroupID  int64
	LogoID          int64
	StreamProfileID int64
}

// GetChannels fetches every channel, following pagination. Mirrors
// ChannelManager.get_channels.
func (c *Client) GetChannels(ctx context.Context) ([]Channel, error) {
	return paginatedGet[Channel](ctx, c, "/api/channels/channels/?page_size=1000")
}

// GetChannel fetches a single channel by Dispatcharr ID.
func (c *Client) GetChannel(ctx context.Context, channelID int64) (*Channel, error) {
	resp, err := c.do(ctx, http.MethodGet, channelPath(channelID), nil)
	if err != nil {
		return nil, err
	}
	if !ok(resp) {
		return nil, classify(resp)
	}
	var ch Channel
	if err := decode(resp, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// CreateChannel creates a channel and attaches its streams in one call.
// Mirrors ChannelManager.create_channel's optional-field payload shape.
func (c *Client) CreateChannel(ctx context.Context, req CreateChannelRequest) (*Channel, error) {
	payload := map[string]any{
		"name":           req.Name,
		"channel_number": strconv.Itoa(req.ChannelNumber),
		"streams":        req.StreamIDs,
	}
	if req.TVGID != "" {
		payload["tvg_id"] = req.TVGID
	}
	if req.ChannelGroupID != 0 {
		payload["channel_group_id"] = req.ChannelGroupID
	}
	if req.LogoID != 0 {
		payload["logo_id"] = req.LogoID
	}
	if req.StreamProfileID != 0 {
		payload["stream_profile_id"] = req.StreamProfileID
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/channels/channels/", payload)
	if err != nil {
		return nil, err
	}
	if !ok(resp) {
		return nil, classify(resp)
	}
	var ch Channel
	if err := decode(resp, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// UpdateChannel partially updates a channel (name, channel_number, streams,
// tvg_id, ...). channel_number is coerced to a string, matching
// ChannelManager.update_channel's contract with Dispatcharr's API.
func (c *Client) UpdateChannel(ctx context.Context, channelID int64, fields map[string]any) (*Channel, error) {
	if n, present := fields["channel_number"]; present {
		if i, isInt := n.(int); isInt {
			fields["channel_number"] = strconv.Itoa(i)
		}
	}
	resp, err := c.do(ctx, http.MethodPatch, channelPath(channelID), fields)
	if err != nil {
		return nil, err
	}
	if !ok(resp) {
		return nil, classify(resp)
	}
	var ch Channel
	if err := decode(resp, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// AssignStreams replaces a channel's stream list wholesale.
func (c *Client) AssignStreams(ctx context.Context, channelID int64, streamIDs []int64) (*Channel, error) {
	return c.UpdateChannel(ctx, channelID, map[string]any{"streams": streamIDs})
}

// DeleteChannel removes a channel. A 404 is treated as success, since the
// channel is already gone either way (mirrors ChannelManager.delete_channel).
func (c *Client) DeleteChannel(ctx context.Context, channelID int64) error {
	resp, err := c.do(ctx, http.MethodDelete, channelPath(channelID), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if ok(resp) || resp.StatusCode == http.StatusNotFound {
		return nil
	}
	return classify(resp)
}

// SetChannelEPG links a channel directly to an EPG data source, bypassing
// tvg_id-based matching entirely (the same direct-injection path the
// channel lifecycle manager relies on for managed channels).
func (c *Client) SetChannelEPG(ctx context.Context, channelID, epgDataID int64) error {
	resp, err := c.do(ctx, http.MethodPost, channelPath(channelID)+"set-epg/", map[string]any{"epg_data_id": epgDataID})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if !ok(resp) {
		return classify(resp)
	}
	return nil
}

// EPGData is one entry in an EPG source's channel directory, keyed by tvg_id.
type EPGData struct {
	ID        int64  `json:"id"`
	TVGID     string `json:"tvg_id"`
	Name      string `json:"name"`
	IconURL   string `json:"icon_url"`
	EPGSource int64  `json:"epg_source"`
}

// ListEPGData fetches every EPGData entry, optionally filtered to one EPG
// source.
func (c *Client) ListEPGData(ctx context.Context, epgSourceID int64) ([]EPGData, error) {
	all, err := paginatedGet[EPGData](ctx, c, "/api/epg/epgdata/?page_size=500")
	if err != nil || epgSourceID == 0 {
		return all, err
	}
	filtered := all[:0]
	for _, e := range all {
		if e.EPGSource == epgSourceID {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

func channelPath(id int64) string {
	return "/api/channels/channels/" + strconv.FormatInt(id, 10) + "/"
}
