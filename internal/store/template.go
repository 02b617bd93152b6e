package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/teamarr/teamarr/internal/core"
)

// GetTemplate loads a template by id, unmarshaling its JSON definition.
// Templates are authored through an admin surface outside this package;
// Teamarr only ever reads them.
func (s *Store) GetTemplate(ctx context.Context, id int64) (core.Template, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, definition FROM templates WHERE id = ?`, id)
	var tmpl core.Template
	var definition string
	if err := row.Scan(&tmpl.ID, &definition); err != nil {
		if err == sql.ErrNoRows {
			return core.Template{}, fmt.Errorf("store: template %d not found", id)
		}
		return core.Template{}, fmt.Errorf("store: get template %d: %w", id, err)
	}
	if err := json.Unmarshal([]byte(definition), &tmpl); err != nil {
		return core.Template{}, fmt.Errorf("store: decode template %d: %w", id, err)
	}
	tmpl.ID = id
	return tmpl, nil
}
