package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/causeway/internal/ir"
	"github.com/roach88/causeway/internal/queryir"
	"github.com/roach88/causeway/internal/querysql"
)

// SessionInfo summarizes a stored session.
type SessionInfo struct {
	ID             string `json:"id"`
	Label          string `json:"label"`
	FormatVersion  string `json:"format_version"`
	DecoderVersion string `json:"decoder_version"`
	CreatedAt      string `json:"created_at"`
	Chunks         int    `json:"chunks"`
	FailedChunks   int    `json:"failed_chunks"`
	Entities       int    `json:"entities"`
	Strings        int    `json:"strings"`
	LastSeq        int64  `json:"last_seq"`
}

// StringEntry is one stored string registration.
type StringEntry struct {
	// AfterSeq is the seq of the last chunk recorded before the
	// registration (0 if it preceded every chunk).
	AfterSeq int64  `json:"after_seq"`
	ID       uint32 `json:"id"`
	Value    string `json:"value"`
}

// Chunk is one stored trace chunk.
type Chunk struct {
	Seq  int64  `json:"seq"`
	Data []byte `json:"data"`

	// Error is the decode failure message, empty if the chunk decoded.
	Error string `json:"error,omitempty"`
}

// StoredEntity is an entity with the seq of the chunk that created it.
type StoredEntity struct {
	Seq    int64     `json:"seq"`
	Entity ir.Entity `json:"entity"`
}

// ListSessions returns every session, oldest first.
// UUIDv7 ids sort by creation time, so id order is creation order.
//
// Returns an empty slice (not nil) if there are no sessions.
func (s *Store) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			s.id, s.label, s.format_version, s.decoder_version, s.created_at,
			(SELECT COUNT(*) FROM chunks c WHERE c.session_id = s.id),
			(SELECT COUNT(*) FROM chunks c WHERE c.session_id = s.id AND c.error IS NOT NULL),
			(SELECT COUNT(*) FROM entities e WHERE e.session_id = s.id),
			(SELECT COUNT(*) FROM strings t WHERE t.session_id = s.id),
			COALESCE((SELECT MAX(seq) FROM chunks c WHERE c.session_id = s.id), 0)
		FROM sessions s
		ORDER BY s.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []SessionInfo{}
	for rows.Next() {
		var info SessionInfo
		if err := rows.Scan(
			&info.ID, &info.Label, &info.FormatVersion, &info.DecoderVersion, &info.CreatedAt,
			&info.Chunks, &info.FailedChunks, &info.Entities, &info.Strings, &info.LastSeq,
		); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// GetSession returns one session. Returns ErrSessionNotFound if it does not
// exist.
func (s *Store) GetSession(ctx context.Context, id string) (SessionInfo, error) {
	sessions, err := s.ListSessions(ctx)
	if err != nil {
		return SessionInfo{}, err
	}
	for _, info := range sessions {
		if info.ID == id {
			return info, nil
		}
	}
	return SessionInfo{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
}

// ReadStrings returns the session's string registrations in arrival order.
func (s *Store) ReadStrings(ctx context.Context, sessionID string) ([]StringEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT after_seq, id, value
		FROM strings
		WHERE session_id = ?
		ORDER BY ord ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query strings: %w", err)
	}
	defer rows.Close()

	entries := []StringEntry{}
	for rows.Next() {
		var e StringEntry
		var id int64
		if err := rows.Scan(&e.AfterSeq, &id, &e.Value); err != nil {
			return nil, fmt.Errorf("scan string: %w", err)
		}
		e.ID = uint32(id)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate strings: %w", err)
	}
	return entries, nil
}

// ReadChunks returns the session's chunks ordered by seq.
func (s *Store) ReadChunks(ctx context.Context, sessionID string) ([]Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, data, error
		FROM chunks
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	chunks := []Chunk{}
	for rows.Next() {
		var c Chunk
		var errText sql.NullString
		if err := rows.Scan(&c.Seq, &c.Data, &errText); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		c.Error = errText.String
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return chunks, nil
}

// ReadEntities returns the session's entities ordered by seq, then id.
func (s *Store) ReadEntities(ctx context.Context, sessionID string) ([]StoredEntity, error) {
	return s.QueryEntities(ctx, queryir.Select{Session: sessionID})
}

// QueryEntities returns the stored entities matching q, ordered by seq then
// id. Invalid queries fail before touching the database.
func (s *Store) QueryEntities(ctx context.Context, q queryir.Query) ([]StoredEntity, error) {
	query, params, err := querysql.NewSQLCompiler().Compile(q)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query entities: %w", err)
	}
	defer rows.Close()

	entities := []StoredEntity{}
	for rows.Next() {
		se, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, se)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entities: %w", err)
	}
	return entities, nil
}

// ReadEntity returns one stored entity. ok is false if it does not exist.
func (s *Store) ReadEntity(ctx context.Context, sessionID string, id ir.ActivityID) (StoredEntity, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+querysql.EntityColumns+`
		FROM entities
		WHERE session_id = ? AND id = ?
	`, sessionID, int64(id))

	se, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return StoredEntity{}, false, nil
	}
	if err != nil {
		return StoredEntity{}, false, err
	}
	return se, true, nil
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEntity(sc scanner) (StoredEntity, error) {
	var (
		se     StoredEntity
		id     int64
		causal int64
		kind   string
	)
	e := &se.Entity
	err := sc.Scan(
		&se.Seq, &id, &kind, &e.Name, &e.NameID, &causal,
		&e.Origin.URI, &e.Origin.FileID, &e.Origin.StartLine, &e.Origin.StartColumn, &e.Origin.CharLength,
		&e.X, &e.Y,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return se, err
	}
	if err != nil {
		return se, fmt.Errorf("scan entity: %w", err)
	}
	e.ID = ir.ActivityID(uint64(id))
	e.CausalMessage = ir.MessageID(uint64(causal))
	e.Kind = ir.Kind(kind)
	e.Running = true
	return se, nil
}
