package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/roach88/causeway/internal/ir"
)

// ErrSessionNotFound is returned by reads and Replay for an unknown session.
var ErrSessionNotFound = errors.New("session not found")

// SessionWriter appends one session's trace log. It implements
// engine.Recorder.
//
// Thread-safety: safe for concurrent use, although the engine records from
// a single goroutine.
type SessionWriter struct {
	store *Store
	id    string

	mu      sync.Mutex
	lastSeq int64
	nextOrd int64
}

// Session creates the session row if needed and returns a writer for it.
// Reopening an existing session resumes after its stored rows; LastSeq
// tells the engine where its clock has to continue.
func (s *Store) Session(ctx context.Context, id, label string) (*SessionWriter, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, label, format_version, decoder_version)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, label, ir.FormatVersion, ir.DecoderVersion)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	w := &SessionWriter{store: s, id: id}
	err = s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE((SELECT MAX(seq) FROM chunks WHERE session_id = ?), 0),
			COALESCE((SELECT MAX(ord) FROM strings WHERE session_id = ?), 0)
	`, id, id).Scan(&w.lastSeq, &w.nextOrd)
	if err != nil {
		return nil, fmt.Errorf("resume session: %w", err)
	}
	w.nextOrd++
	return w, nil
}

// ID returns the session id.
func (w *SessionWriter) ID() string {
	return w.id
}

// LastSeq returns the seq of the last recorded chunk.
func (w *SessionWriter) LastSeq() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSeq
}

// RecordStrings appends string registrations, stamped with the seq of the
// last chunk recorded before them.
func (w *SessionWriter) RecordStrings(ctx context.Context, ids []uint32, values []string) error {
	if len(ids) != len(values) {
		return fmt.Errorf("record strings: %d ids but %d values", len(ids), len(values))
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	tx, err := w.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record strings: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO strings (session_id, ord, after_seq, id, value)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("record strings: prepare: %w", err)
	}
	defer stmt.Close()

	ord := w.nextOrd
	for i, id := range ids {
		if _, err := stmt.ExecContext(ctx, w.id, ord, w.lastSeq, int64(id), values[i]); err != nil {
			return fmt.Errorf("record strings: %w", err)
		}
		ord++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record strings: commit: %w", err)
	}
	w.nextOrd = ord
	return nil
}

// RecordChunk appends a raw chunk with its decode outcome. A nil decodeErr
// stores a NULL error.
func (w *SessionWriter) RecordChunk(ctx context.Context, seq int64, chunk []byte, decodeErr error) error {
	var errText *string
	if decodeErr != nil {
		msg := decodeErr.Error()
		errText = &msg
	}
	if chunk == nil {
		chunk = []byte{}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	_, err := w.store.db.ExecContext(ctx, `
		INSERT INTO chunks (session_id, seq, data, error)
		VALUES (?, ?, ?, ?)
	`, w.id, seq, chunk, errText)
	if err != nil {
		return fmt.Errorf("record chunk %d: %w", seq, err)
	}
	if seq > w.lastSeq {
		w.lastSeq = seq
	}
	return nil
}

// RecordEntities appends the entities created by the chunk at seq.
// Uses ON CONFLICT DO NOTHING: a duplicate id keeps its first row.
func (w *SessionWriter) RecordEntities(ctx context.Context, seq int64, entities []ir.Entity) error {
	tx, err := w.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record entities: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entities
		(session_id, id, seq, kind, name, name_id, causal_msg, uri, file_id, start_line, start_col, char_len, x, y)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("record entities: prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range entities {
		_, err := stmt.ExecContext(ctx,
			w.id,
			int64(e.ID),
			seq,
			string(e.Kind),
			e.Name,
			e.NameID,
			int64(e.CausalMessage),
			e.Origin.URI,
			e.Origin.FileID,
			e.Origin.StartLine,
			e.Origin.StartColumn,
			e.Origin.CharLength,
			e.X,
			e.Y,
		)
		if err != nil {
			return fmt.Errorf("record entity %d: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record entities: commit: %w", err)
	}
	return nil
}
