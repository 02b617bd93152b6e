package dispatcharr

import (
	"context"
	"net/http"
	"strconv"
	"strings"
)

// ChannelGroup is a Dispatcharr channel group.
type ChannelGroup struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	M3UAccountCount int   `json:"m3u_account_count"`
	ChannelCount   int    `json:"channel_count"`
}

// GetChannelGroups lists all channel groups. excludeM3U drops groups
// originating from an M3U account rather than created directly, matching
// ChannelManager.get_channel_groups.
func (c *Client) GetChannelGroups(ctx context.Context, excludeM3U bool) ([]ChannelGroup, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/channels/groups/", nil)
	if err != nil {
		return nil, err
	}
	if !ok(resp) {
		return nil, classify(resp)
	}
	var groups []ChannelGroup
	if err := decode(resp, &groups); err != nil {
		return nil, err
	}
	if !excludeM3U {
		return groups, nil
	}
	filtered := groups[:0]
	for _, g := range groups {
		if g.M3UAccountCount == 0 {
			filtered = append(filtered, g)
		}
	}
	return filtered, nil
}

// CreateChannelGroup creates a new channel group.
func (c *Client) CreateChannelGroup(ctx context.Context, name string) (*ChannelGroup, error) {
	name = strings.TrimSpace(name)
	resp, err := c.do(ctx, http.MethodPost, "/api/channels/groups/", map[string]any{"name": name})
	if err != nil {
		return nil, err
	}
	if !ok(resp) {
		return nil, classify(resp)
	}
	var g ChannelGroup
	if err := decode(resp, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// GetChannelGroup fetches a single group by ID.
func (c *Client) GetChannelGroup(ctx context.Context, groupID int64) (*ChannelGroup, error) {
	resp, err := c.do(ctx, http.MethodGet, groupPath(groupID), nil)
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
	var g ChannelGroup
	if err := decode(resp, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// UpdateChannelGroup renames a group.
func (c *Client) UpdateChannelGroup(ctx context.Context, groupID int64, name string) (*ChannelGroup, error) {
	resp, err := c.do(ctx, http.MethodPatch, groupPath(groupID), map[string]any{"name": strings.TrimSpace(name)})
	if err != nil {
		return nil, err
	}
	if !ok(resp) {
		return nil, classify(resp)
	}
	var g ChannelGroup
	if err := decode(resp, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// DeleteChannelGroup deletes a group. Dispatcharr refuses to delete a group
// that still has channels or M3U associations; that case surfaces as a
// validation error rather than success.
func (c *Client) DeleteChannelGroup(ctx context.Context, groupID int64) error {
	resp, err := c.do(ctx, http.MethodDelete, groupPath(groupID), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if ok(resp) {
		return nil
	}
	return classify(resp)
}

func groupPath(id int64) string {
	return "/api/channels/groups/" + strconv.FormatInt(id, 10) + "/"
}
