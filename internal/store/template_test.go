package store

import (
	"context"
	"testing"
)

func TestGetTemplate_roundTripsDefinition(t *testing.T) {
	s := openTestStore(t)
	_, err := s.DB().ExecContext(context.Background(),
		`INSERT INTO templates (id, name, definition) VALUES (1, 'nfl-default', ?)`,
		`{"Title":"{{away}} @ {{home}}","PregameEnabled":true,"PregameMinutes":30}`)
	if err != nil {
		t.Fatalf("insert template: %v", err)
	}

	tmpl, err := s.GetTemplate(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetTemplate: %v", err)
	}
	if tmpl.Title != "{{away}} @ {{home}}" {
		t.Errorf("Title = %q", tmpl.Title)
	}
	if !tmpl.PregameEnabled || tmpl.PregameMinutes != 30 {
		t.Errorf("pregame fields not decoded: %+v", tmpl)
	}
	if tmpl.ID != 1 {
		t.Errorf("ID = %d, want 1", tmpl.ID)
	}
}

func TestGetTemplate_missingReturnsError(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.GetTemplate(context.Background(), 999); err == nil {
		t.Fatal("expected error for missing template")
	}
}
