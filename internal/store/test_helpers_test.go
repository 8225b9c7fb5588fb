package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/causeway/internal/ir"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestSession opens a writer for a new session.
func createTestSession(t *testing.T, s *Store, id string) *SessionWriter {
	t.Helper()
	w, err := s.Session(context.Background(), id, "label-"+id)
	if err != nil {
		t.Fatalf("Session() failed: %v", err)
	}
	return w
}

// createTestEntity creates an entity with minimal required fields.
func createTestEntity(id ir.ActivityID, name string) ir.Entity {
	return ir.Entity{
		ID:            id,
		Kind:          ir.KindActor,
		Name:          name,
		NameID:        3,
		CausalMessage: ir.MessageID(id * 10),
		Running:       true,
		Origin:        ir.Origin{URI: "main.som", FileID: 1, StartLine: 4, StartColumn: 2, CharLength: 8},
		X:             200,
		Y:             0,
	}
}
