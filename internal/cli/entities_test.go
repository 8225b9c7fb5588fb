package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/causeway/internal/ir"
	"github.com/roach88/causeway/internal/queryir"
)

func queryEntities(t *testing.T, args ...string) EntitiesResult {
	t.Helper()
	out, _, err := execute(t, append([]string{"entities", "--format", "json"}, args...)...)
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   EntitiesResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	return resp.Data
}

func entityIDs(res EntitiesResult) []ir.ActivityID {
	ids := make([]ir.ActivityID, 0, len(res.Entities))
	for _, se := range res.Entities {
		ids = append(ids, se.Entity.ID)
	}
	return ids
}

func TestEntities_Filters(t *testing.T) {
	db := filepath.Join(t.TempDir(), "causeway.db")
	recordSession(t, db, "s1")

	all := queryEntities(t, "--db", db, "--session", "s1")
	assert.Equal(t, "s1", all.Session)
	assert.Equal(t, 3, all.Total)
	assert.Equal(t, []ir.ActivityID{1, 100, 101}, entityIDs(all))

	workers := queryEntities(t, "--db", db, "--session", "s1", "--kind", "Actor", "--name-prefix", "Work")
	assert.Equal(t, []ir.ActivityID{100, 101}, entityIDs(workers))

	byCause := queryEntities(t, "--db", db, "--session", "s1", "--causal", "1001")
	assert.Equal(t, []ir.ActivityID{101}, entityIDs(byCause))

	limited := queryEntities(t, "--db", db, "--session", "s1", "--limit", "1")
	assert.Equal(t, []ir.ActivityID{1}, entityIDs(limited))

	none := queryEntities(t, "--db", db, "--session", "s1", "--name", "Nobody")
	assert.Zero(t, none.Total)
	assert.NotNil(t, none.Entities)
}

func TestEntities_Text(t *testing.T) {
	db := filepath.Join(t.TempDir(), "causeway.db")
	recordSession(t, db, "s1")

	out, _, err := execute(t, "entities", "--db", db, "--session", "s1", "--name", "Main")
	require.NoError(t, err)
	assert.Contains(t, out, "Entities (1)")
	assert.Contains(t, out, "Main#1")
	assert.Contains(t, out, "main.som:1")

	out, _, err = execute(t, "entities", "--db", db, "--session", "s1", "--name", "Nobody")
	require.NoError(t, err)
	assert.Contains(t, out, "No matching entities.")
}

func TestEntities_Errors(t *testing.T) {
	db := filepath.Join(t.TempDir(), "causeway.db")
	recordSession(t, db, "s1")

	tests := []struct {
		name string
		args []string
		msg  string
	}{
		{"no database", []string{"entities", "--session", "s1"}, "no database"},
		{"no session", []string{"entities", "--db", db}, "--session is required"},
		{"bad kind", []string{"entities", "--db", db, "--session", "s1", "--kind", "Thread"}, "invalid --kind"},
		{"unknown session", []string{"entities", "--db", db, "--session", "nope"}, "failed to load session"},
		{"empty range", []string{"entities", "--db", db, "--session", "s1", "--seq-from", "5", "--seq-to", "2"}, "empty range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestEntitiesOptions_Query(t *testing.T) {
	opts := &EntitiesOptions{Session: "s", Causal: -1}
	assert.Equal(t, queryir.Select{Session: "s"}, opts.entityQuery())

	opts = &EntitiesOptions{Session: "s", Causal: -1, SeqFrom: 3, Limit: 2}
	q := opts.entityQuery()
	assert.Equal(t, queryir.Between{Field: queryir.FieldSeq, Min: 3, Max: 1<<63 - 1}, q.Filter)
	assert.Equal(t, 2, q.Limit)

	opts = &EntitiesOptions{Session: "s", Kind: "Task", URIPrefix: "lib/", Causal: 0}
	assert.Equal(t, queryir.And{Predicates: []queryir.Predicate{
		queryir.Equals{Field: queryir.FieldKind, Value: queryir.Text("Task")},
		queryir.Prefix{Field: queryir.FieldURI, Value: "lib/"},
		queryir.Equals{Field: queryir.FieldCausal, Value: queryir.Int(0)},
	}}, opts.entityQuery().Filter)
}
