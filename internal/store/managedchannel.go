package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/teamarr/teamarr/internal/core"
)

// InsertManagedChannel records a newly created Dispatcharr channel and
// returns its local id.
func (s *Store) InsertManagedChannel(ctx context.Context, c core.ManagedChannel) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO managed_channels
			(event_group_id, dispatcharr_channel_id, dispatcharr_uuid, dispatcharr_stream_id,
			 channel_number, channel_name, espn_event_id, event_date, scheduled_delete_at,
			 logo_id, sync_status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.EventGroupID, c.DispatcharrChannelID, nullStr(c.DispatcharrUUID), c.DispatcharrStreamID,
		c.ChannelNumber, c.ChannelName, c.ESPNEventID, formatTime(c.EventDate), formatTimePtr(c.ScheduledDeleteAt),
		c.LogoID, string(c.SyncStatus))
	if err != nil {
		return 0, fmt.Errorf("store: insert managed channel: %w", err)
	}
	return res.LastInsertId()
}

// NextChannelNumber returns the next per-group monotonic channel number,
// strictly greater than any number ever assigned (including to deleted
// channels) so numbers are never reused.
func (s *Store) NextChannelNumber(ctx context.Context, groupID int64, channelStart int) (int, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT MAX(channel_number) FROM managed_channels WHERE event_group_id = ?`, groupID)
	var max sql.NullInt64
	if err := row.Scan(&max); err != nil {
		return 0, fmt.Errorf("store: next channel number: %w", err)
	}
	if !max.Valid || int(max.Int64) < channelStart-1 {
		return channelStart, nil
	}
	return int(max.Int64) + 1, nil
}

// ListManagedChannelsByGroup returns all non-deleted managed channels for a group.
func (s *Store) ListManagedChannelsByGroup(ctx context.Context, groupID int64) ([]core.ManagedChannel, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, event_group_id, dispatcharr_channel_id, dispatcharr_uuid, dispatcharr_stream_id,
			channel_number, channel_name, espn_event_id, event_date, scheduled_delete_at,
			logo_id, sync_status, deleted_at
		 FROM managed_channels WHERE event_group_id = ? AND deleted_at IS NULL`, groupID)
	if err != nil {
		return nil, fmt.Errorf("store: list managed channels: %w", err)
	}
	defer rows.Close()
	return scanManagedChannels(rows)
}

// ListAllManagedChannels returns every non-deleted managed channel, used by
// reconciliation's orphan/duplicate/drift scans.
func (s *Store) ListAllManagedChannels(ctx context.Context) ([]core.ManagedChannel, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, event_group_id, dispatcharr_channel_id, dispatcharr_uuid, dispatcharr_stream_id,
			channel_number, channel_name, espn_event_id, event_date, scheduled_delete_at,
			logo_id, sync_status, deleted_at
		 FROM managed_channels WHERE deleted_at IS NULL`)
	if err != nil {
		return nil, fmt.Errorf("store: list all managed channels: %w", err)
	}
	defer rows.Close()
	return scanManagedChannels(rows)
}

// ListPendingDeletions returns managed channels whose scheduled_delete_at has passed asOf.
func (s *Store) ListPendingDeletions(ctx context.Context, asOf time.Time) ([]core.ManagedChannel, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, event_group_id, dispatcharr_channel_id, dispatcharr_uuid, dispatcharr_stream_id,
			channel_number, channel_name, espn_event_id, event_date, scheduled_delete_at,
			logo_id, sync_status, deleted_at
		 FROM managed_channels
		 WHERE deleted_at IS NULL AND scheduled_delete_at IS NOT NULL AND scheduled_delete_at <= ?`,
		formatTime(asOf))
	if err != nil {
		return nil, fmt.Errorf("store: list pending deletions: %w", err)
	}
	defer rows.Close()
	return scanManagedChannels(rows)
}

func scanManagedChannels(rows *sql.Rows) ([]core.ManagedChannel, error) {
	var out []core.ManagedChannel
	for rows.Next() {
		var c core.ManagedChannel
		var uuid, eventDate, scheduledDelete, deletedAt sql.NullString
		if err := rows.Scan(&c.ID, &c.EventGroupID, &c.DispatcharrChannelID, &uuid, &c.DispatcharrStreamID,
			&c.ChannelNumber, &c.ChannelName, &c.ESPNEventID, &eventDate, &scheduledDelete,
			&c.LogoID, &c.SyncStatus, &deletedAt); err != nil {
			return nil, fmt.Errorf("store: scan managed channel: %w", err)
		}
		c.DispatcharrUUID = uuid.String
		c.EventDate = parseTime(eventDate.String)
		c.ScheduledDeleteAt = parseTimePtr(scheduledDelete.String)
		c.DeletedAt = parseTimePtr(deletedAt.String)
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateScheduledDelete recomputes and applies a new scheduled_delete_at,
// used when group settings change or an event reschedules.
func (s *Store) UpdateScheduledDelete(ctx context.Context, channelID int64, at *time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE managed_channels SET scheduled_delete_at = ? WHERE id = ?`,
		formatTimePtr(at), channelID)
	if err != nil {
		return fmt.Errorf("store: update scheduled delete: %w", err)
	}
	return nil
}

// SetDispatcharrUUID backfills the immutable upstream identifier the first
// time reconciliation observes it for a row that predates UUID tracking.
func (s *Store) SetDispatcharrUUID(ctx context.Context, channelID int64, uuid string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE managed_channels SET dispatcharr_uuid = ? WHERE id = ?`, uuid, channelID)
	if err != nil {
		return fmt.Errorf("store: set dispatcharr uuid: %w", err)
	}
	return nil
}

// SetSyncStatus updates the reconciliation-observed sync state of a channel.
func (s *Store) SetSyncStatus(ctx context.Context, channelID int64, status core.SyncStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE managed_channels SET sync_status = ? WHERE id = ?`, string(status), channelID)
	if err != nil {
		return fmt.Errorf("store: set sync status: %w", err)
	}
	return nil
}

// MarkDeleted soft-deletes a managed channel row (scheduled sweep, 404 from
// Dispatcharr, or reconciliation's orphan_teamarr fix).
func (s *Store) MarkDeleted(ctx context.Context, channelID int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE managed_channels SET deleted_at = ? WHERE id = ?`, formatTime(at), channelID)
	if err != nil {
		return fmt.Errorf("store: mark deleted: %w", err)
	}
	return nil
}

// AppendHistory records an audit-trail event against a managed channel.
func (s *Store) AppendHistory(ctx context.Context, channelID int64, event, detail string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO managed_channel_history (managed_channel_id, event, detail, occurred_at) VALUES (?, ?, ?, ?)`,
		channelID, event, detail, formatTime(at))
	if err != nil {
		return fmt.Errorf("store: append history: %w", err)
	}
	return nil
}

// LogoIsReferenced reports whether any non-deleted channel still uses logoID,
// gating the lifecycle's logo cleanup-on-delete step.
func (s *Store) LogoIsReferenced(ctx context.Context, logoID int64) (bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM managed_channels WHERE logo_id = ? AND deleted_at IS NULL`, logoID)
	var n int
	if err := row.Scan(&n); err != nil {
		return false, fmt.Errorf("store: logo referenced check: %w", err)
	}
	return n > 0, nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseTimePtr(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return nil
	}
	return &t
}
