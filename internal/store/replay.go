package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/causeway/internal/engine"
	"github.com/roach88/causeway/internal/trace"
)

// Feeder is what Replay drives. *engine.Engine implements it.
type Feeder interface {
	AddStrings(ctx context.Context, ids []uint32, values []string) error
	Feed(ctx context.Context, chunk []byte) (engine.FeedResult, error)
}

// ReplayResult summarizes a replay.
type ReplayResult struct {
	SessionID string `json:"session_id"`
	Chunks    int    `json:"chunks"`
	Strings   int    `json:"strings"`
	Entities  int    `json:"entities"`

	// Failed counts chunks that failed to decode during replay.
	Failed int `json:"failed"`

	// Diverged lists the seqs whose replayed outcome differs from the
	// stored one. Decoding is deterministic, so a non-empty list means the
	// decoder changed since the session was recorded.
	Diverged []int64 `json:"diverged,omitempty"`
}

// Replay re-feeds a stored session into f: string registrations and chunks
// interleaved in their original arrival order. Chunks that failed when
// recorded are fed again and are expected to fail the same way.
//
// Only storage failures and errors other than decode failures abort the
// replay. Returns ErrSessionNotFound for an unknown session.
func (s *Store) Replay(ctx context.Context, sessionID string, f Feeder) (ReplayResult, error) {
	result := ReplayResult{SessionID: sessionID}

	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return result, fmt.Errorf("replay: %w", err)
	}

	strings, err := s.ReadStrings(ctx, sessionID)
	if err != nil {
		return result, fmt.Errorf("replay: %w", err)
	}
	chunks, err := s.ReadChunks(ctx, sessionID)
	if err != nil {
		return result, fmt.Errorf("replay: %w", err)
	}

	next := 0
	feedStrings := func(upTo int64) error {
		var ids []uint32
		var values []string
		for next < len(strings) && strings[next].AfterSeq < upTo {
			ids = append(ids, strings[next].ID)
			values = append(values, strings[next].Value)
			next++
		}
		if len(ids) == 0 {
			return nil
		}
		result.Strings += len(ids)
		return f.AddStrings(ctx, ids, values)
	}

	for _, c := range chunks {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := feedStrings(c.Seq); err != nil {
			return result, fmt.Errorf("replay strings before seq %d: %w", c.Seq, err)
		}

		res, feedErr := f.Feed(ctx, c.Data)
		result.Chunks++
		result.Entities += len(res.Entities)

		var replayed string
		if feedErr != nil {
			if !isDecodeError(feedErr) {
				return result, fmt.Errorf("replay seq %d: %w", c.Seq, feedErr)
			}
			result.Failed++
			replayed = unwrapDecodeError(feedErr)
		}
		if replayed != c.Error {
			result.Diverged = append(result.Diverged, c.Seq)
		}
	}

	if err := feedStrings(1<<62); err != nil {
		return result, fmt.Errorf("replay trailing strings: %w", err)
	}
	return result, nil
}

func isDecodeError(err error) bool {
	return trace.IsFormatError(err)
}

// unwrapDecodeError returns the message of the underlying *trace.FormatError,
// which is what the recorder stored.
func unwrapDecodeError(err error) string {
	var fe *trace.FormatError
	if errors.As(err, &fe) {
		return fe.Error()
	}
	return err.Error()
}
