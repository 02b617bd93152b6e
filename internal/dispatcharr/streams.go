package dispatcharr

import (
	"context"
	"net/url"
	"strconv"
)

// Stream is a raw M3U entry Dispatcharr has ingested from an account,
// before it is ever bound to a channel. Matching works against these, not
// against Channel, since a fresh sports stream has no channel yet.
type Stream struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	GroupID int64  `json:"channel_group_id"`
}

// ListStreamsByGroup fetches every stream Dispatcharr has ingested into
// channelGroupID, following pagination like GetChannels. Mirrors
// ChannelManager.get_streams filtered by group.
func (c *Client) ListStreamsByGroup(ctx context.Context, channelGroupID int64) ([]Stream, error) {
	path := "/api/channels/streams/?page_size=1000&channel_group_id=" + url.QueryEscape(strconv.FormatInt(channelGroupID, 10))
	return paginatedGet[Stream](ctx, c, path)
}
