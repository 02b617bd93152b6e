package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/teamarr/teamarr/internal/core"
)

// ListEventGroups returns every configured event group.
func (s *Store) ListEventGroups(ctx context.Context) ([]core.EventGroup, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, assigned_league, is_multi_sport, channel_group_id, channel_start,
			create_timing, delete_timing, event_template_id, exception_keywords, duplicate_event_handling
		 FROM event_groups`)
	if err != nil {
		return nil, fmt.Errorf("store: list event groups: %w", err)
	}
	defer rows.Close()

	var out []core.EventGroup
	for rows.Next() {
		var g core.EventGroup
		var league sql.NullString
		var templateID sql.NullInt64
		var keywords sql.NullString
		if err := rows.Scan(&g.ID, &g.Name, &league, &g.IsMultiSport, &g.ChannelGroupID, &g.ChannelStart,
			&g.CreateTiming, &g.DeleteTiming, &templateID, &keywords, &g.DuplicateEventHandling); err != nil {
			return nil, fmt.Errorf("store: scan event group: %w", err)
		}
		g.AssignedLeague = league.String
		g.EventTemplateID = templateID.Int64
		if keywords.String != "" {
			g.ExceptionKeywords = strings.Split(keywords.String, ",")
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// GetSettingsTimezone reads the configured IANA zone, falling back to the
// given default when the settings row hasn't been customized.
func (s *Store) GetSettingsTimezone(ctx context.Context, fallback string) (string, error) {
	row := s.db.QueryRowContext(ctx, `SELECT timezone FROM settings WHERE id = 1`)
	var tz string
	if err := row.Scan(&tz); err != nil {
		if err == sql.ErrNoRows {
			return fallback, nil
		}
		return "", fmt.Errorf("store: get settings timezone: %w", err)
	}
	if tz == "" {
		return fallback, nil
	}
	return tz, nil
}

// ApplyDispatcharrSettings persists operator-entered Dispatcharr credentials
// into the settings row (id=1 fallback), mirroring the original config's
// DB-backed override of environment defaults.
func (s *Store) ApplyDispatcharrSettings(ctx context.Context, url, user, pass string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE settings SET dispatcharr_url = ?, dispatcharr_user = ?, dispatcharr_pass = ? WHERE id = 1`,
		url, user, pass)
	if err != nil {
		return fmt.Errorf("store: apply dispatcharr settings: %w", err)
	}
	return nil
}
