package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/causeway/internal/engine"
	"github.com/roach88/causeway/internal/testutil"
	"github.com/roach88/causeway/internal/trace"
)

// recordSession drives a recording engine through a short session with a
// late string registration and a malformed chunk.
func recordSession(t *testing.T, s *Store) *engine.Engine {
	t.Helper()
	ctx := context.Background()
	w := createTestSession(t, s, "rec")
	e := engine.New(engine.WithSessionID("rec"), engine.WithRecorder(w))

	ids, values := testutil.Symbols()
	require.NoError(t, e.AddStrings(ctx, ids[:1], values[:1]))

	_, err := e.Feed(ctx, testutil.MainChunk())
	require.NoError(t, err)

	// Worker names arrive after the first worker was created.
	_, err = e.Feed(ctx, testutil.WorkersChunk(1))
	require.NoError(t, err)
	require.NoError(t, e.AddStrings(ctx, ids[1:], values[1:]))

	_, err = e.Feed(ctx, testutil.TruncatedChunk())
	require.True(t, trace.IsFormatError(err))

	_, err = e.Feed(ctx, testutil.PingChunk(50, 1, 100, 3))
	require.NoError(t, err)
	return e
}

func TestReplay_ReproducesGraph(t *testing.T) {
	s := createTestStore(t)
	original := recordSession(t, s)

	fresh := engine.New(engine.WithSessionID("replay"))
	res, err := s.Replay(context.Background(), "rec", fresh)
	require.NoError(t, err)

	assert.Equal(t, 4, res.Chunks)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 3, res.Strings)
	assert.Equal(t, 2, res.Entities)
	assert.Empty(t, res.Diverged)

	assert.Equal(t, original.History().Snapshot(), fresh.History().Snapshot())

	// The worker created before its name arrived keeps the placeholder.
	snap := fresh.History().Snapshot()
	worker, ok := snap.Node("a100")
	require.True(t, ok)
	assert.Equal(t, trace.Placeholder(uint32(testutil.SymWorker)), worker.Name)
}

func TestReplay_StoredEntitiesMatch(t *testing.T) {
	s := createTestStore(t)
	recordSession(t, s)

	stored, err := s.ReadEntities(context.Background(), "rec")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "Main", stored[0].Entity.Name)
	assert.Equal(t, int64(1), stored[0].Seq)
	assert.Equal(t, int64(2), stored[1].Seq)
}

func TestReplay_DetectsDivergence(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	w := createTestSession(t, s, "s1")

	require.NoError(t, w.RecordChunk(ctx, 1, testutil.MainChunk(), errors.New("stale failure")))

	res, err := s.Replay(ctx, "s1", engine.New())
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, res.Diverged)
}

func TestReplay_UnknownSession(t *testing.T) {
	s := createTestStore(t)

	_, err := s.Replay(context.Background(), "missing", engine.New())
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestReplay_ContextCancelled(t *testing.T) {
	s := createTestStore(t)
	recordSession(t, s)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Replay(ctx, "rec", engine.New())
	assert.ErrorIs(t, err, context.Canceled)
}
