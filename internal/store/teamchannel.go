package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/teamarr/teamarr/internal/epggen"
)

// TeamChannelRow is one configured team channel, joined with the template
// id that governs its title/description formats.
type TeamChannelRow struct {
	Config     epggen.TeamChannelConfig
	TemplateID int64
}

// ListTeamChannels returns every configured team channel.
func (s *Store) ListTeamChannels(ctx context.Context) ([]TeamChannelRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT team_id, league, channel_id, team_name, team_abbrev, logo_url, sport, template_id FROM team_channels`)
	if err != nil {
		return nil, fmt.Errorf("store: list team channels: %w", err)
	}
	defer rows.Close()

	var out []TeamChannelRow
	for rows.Next() {
		var r TeamChannelRow
		var abbrev, logo, sport sql.NullString
		var templateID sql.NullInt64
		if err := rows.Scan(&r.Config.TeamID, &r.Config.League, &r.Config.ChannelID, &r.Config.TeamName,
			&abbrev, &logo, &sport, &templateID); err != nil {
			return nil, fmt.Errorf("store: scan team channel: %w", err)
		}
		r.Config.TeamAbbrev = abbrev.String
		r.Config.LogoURL = logo.String
		r.Config.Sport = sport.String
		r.TemplateID = templateID.Int64
		out = append(out, r)
	}
	return out, rows.Err()
}
