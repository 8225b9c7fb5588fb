package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/causeway/internal/ir"
	"github.com/roach88/causeway/internal/queryir"
)

func TestListSessions_Empty(t *testing.T) {
	s := createTestStore(t)

	sessions, err := s.ListSessions(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, sessions)
	assert.Empty(t, sessions)
}

func TestListSessions_OrderedByID(t *testing.T) {
	s := createTestStore(t)
	for _, id := range []string{"0192-c", "0192-a", "0192-b"} {
		createTestSession(t, s, id)
	}

	sessions, err := s.ListSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 3)
	assert.Equal(t, "0192-a", sessions[0].ID)
	assert.Equal(t, "0192-b", sessions[1].ID)
	assert.Equal(t, "0192-c", sessions[2].ID)
}

func TestGetSession_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.GetSession(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestReadEntities_OrderedBySeqThenID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	w := createTestSession(t, s, "s1")

	require.NoError(t, w.RecordEntities(ctx, 2, []ir.Entity{createTestEntity(1, "A")}))
	require.NoError(t, w.RecordEntities(ctx, 1, []ir.Entity{createTestEntity(9, "B"), createTestEntity(3, "C")}))

	got, err := s.ReadEntities(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, ir.ActivityID(3), got[0].Entity.ID)
	assert.Equal(t, ir.ActivityID(9), got[1].Entity.ID)
	assert.Equal(t, ir.ActivityID(1), got[2].Entity.ID)
}

func TestReadEntity_Missing(t *testing.T) {
	s := createTestStore(t)
	createTestSession(t, s, "s1")

	_, ok, err := s.ReadEntity(context.Background(), "s1", 42)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReads_UnknownSessionAreEmpty(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	strs, err := s.ReadStrings(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, strs)

	chunks, err := s.ReadChunks(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestQueryEntities_Filters(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	w := createTestSession(t, s, "s1")

	task := createTestEntity(7, "Worker")
	task.Kind = ir.KindTask
	require.NoError(t, w.RecordEntities(ctx, 1, []ir.Entity{createTestEntity(1, "Main")}))
	require.NoError(t, w.RecordEntities(ctx, 2, []ir.Entity{createTestEntity(2, "Worker"), task}))
	require.NoError(t, w.RecordEntities(ctx, 3, []ir.Entity{createTestEntity(3, "Watcher")}))

	tests := []struct {
		name   string
		filter queryir.Predicate
		limit  int
		want   []ir.ActivityID
	}{
		{"all", nil, 0, []ir.ActivityID{1, 2, 7, 3}},
		{"kind", queryir.Equals{Field: queryir.FieldKind, Value: queryir.Text("Task")}, 0, []ir.ActivityID{7}},
		{"name", queryir.Equals{Field: queryir.FieldName, Value: queryir.Text("Worker")}, 0, []ir.ActivityID{2, 7}},
		{"prefix", queryir.Prefix{Field: queryir.FieldName, Value: "W"}, 0, []ir.ActivityID{2, 7, 3}},
		{"prefix is case-sensitive", queryir.Prefix{Field: queryir.FieldName, Value: "w"}, 0, nil},
		{"seq range", queryir.Between{Field: queryir.FieldSeq, Min: 2, Max: 3}, 0, []ir.ActivityID{2, 7, 3}},
		{"causal", queryir.Equals{Field: queryir.FieldCausal, Value: queryir.Int(70)}, 0, []ir.ActivityID{7}},
		{"combined", queryir.All(
			queryir.Equals{Field: queryir.FieldKind, Value: queryir.Text("Actor")},
			queryir.Prefix{Field: queryir.FieldName, Value: "W"},
		), 0, []ir.ActivityID{2, 3}},
		{"limit", nil, 2, []ir.ActivityID{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.QueryEntities(ctx, queryir.Select{Session: "s1", Filter: tt.filter, Limit: tt.limit})
			require.NoError(t, err)

			ids := make([]ir.ActivityID, 0, len(got))
			for _, se := range got {
				ids = append(ids, se.Entity.ID)
			}
			if tt.want == nil {
				assert.Empty(t, ids)
				return
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestQueryEntities_OtherSessionExcluded(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	a := createTestSession(t, s, "a")
	b := createTestSession(t, s, "b")
	require.NoError(t, a.RecordEntities(ctx, 1, []ir.Entity{createTestEntity(1, "Main")}))
	require.NoError(t, b.RecordEntities(ctx, 1, []ir.Entity{createTestEntity(2, "Main")}))

	got, err := s.QueryEntities(ctx, queryir.Select{
		Session: "b",
		Filter:  queryir.Equals{Field: queryir.FieldName, Value: queryir.Text("Main")},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ir.ActivityID(2), got[0].Entity.ID)
}

func TestQueryEntities_InvalidQuery(t *testing.T) {
	s := createTestStore(t)

	_, err := s.QueryEntities(context.Background(), queryir.Select{
		Session: "s1",
		Filter:  queryir.Equals{Field: queryir.FieldKind, Value: queryir.Text("Thread")},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid kind "Thread"`)
}
