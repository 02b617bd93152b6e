package dispatcharr

import (
	"context"
	"net/http"
	"strconv"
)

// ChannelProfile groups channels together for organization/filtering on the
// Dispatcharr side (e.g. a "Sports" viewing profile).
type ChannelProfile struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// GetChannelProfiles lists every channel profile.
func (c *Client) GetChannelProfiles(ctx context.Context) ([]ChannelProfile, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/channels/profiles/", nil)
	if err != nil {
		return nil, err
	}
	if !ok(resp) {
		return nil, classify(resp)
	}
	var profiles []ChannelProfile
	if err := decode(resp, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

// GetChannelProfile fetches a single profile by ID.
func (c *Client) GetChannelProfile(ctx context.Context, profileID int64) (*ChannelProfile, error) {
	resp, err := c.do(ctx, http.MethodGet, profilePath(profileID), nil)
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
	var p ChannelProfile
	if err := decode(resp, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SetChannelEnabledInProfile enables or disables one channel within one
// profile, via the per-channel membership endpoint. Mirrors
// add_channel_to_profile/remove_channel_from_profile, which are the same
// PATCH with an inverted boolean.
func (c *Client) SetChannelEnabledInProfile(ctx context.Context, profileID, channelID int64, enabled bool) error {
	path := profilePath(profileID) + "channels/" + strconv.FormatInt(channelID, 10) + "/"
	resp, err := c.do(ctx, http.MethodPatch, path, map[string]any{"enabled": enabled})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if !ok(resp) {
		return classify(resp)
	}
	return nil
}

func profilePath(id int64) string {
	return "/api/channels/profiles/" + strconv.FormatInt(id, 10) + "/"
}
