package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/causeway/internal/testutil"
)

func TestDecode_GoldenJSON(t *testing.T) {
	golden, err := filepath.Abs("testdata/golden")
	require.NoError(t, err)

	dir := t.TempDir()
	writeTrace(t, dir, "run", testutil.MainChunk())
	t.Chdir(dir)

	out, _, err := execute(t, "decode", "run.trace", "--session", "cli-golden", "--format", "json")
	require.NoError(t, err)

	g := goldie.New(t, goldie.WithFixtureDir(golden), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "decode_json", []byte(out))
}

func TestDecode_Text(t *testing.T) {
	dir := t.TempDir()
	path := writeTrace(t, dir, "run",
		testutil.MainChunk(),
		testutil.WorkersChunk(5),
		testutil.PingChunk(5000, 1, 102, 3),
	)

	out, _, err := execute(t, "decode", path, "--verbose")
	require.NoError(t, err)

	assert.Contains(t, out, "Decoded 1 chunk(s)")
	assert.Contains(t, out, "Nodes (2)")
	assert.Contains(t, out, "Main")
	assert.Contains(t, out, "Worker x5")
	assert.Contains(t, out, "a1 -> ag1  messages 3")
	assert.Contains(t, out, "a1 -> ag1  created 5")
	assert.Contains(t, out, "Chunks")
}

func TestDecode_Split(t *testing.T) {
	dir := t.TempDir()
	path := writeTrace(t, dir, "run", testutil.MainChunk(), testutil.WorkersChunk(2))

	out, _, err := execute(t, "decode", path, "--split", "2", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Data DecodeResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))

	// main+mailbox, two sends, two workers
	require.Len(t, resp.Data.Chunks, 3)
	assert.Equal(t, 3, resp.Data.Graph.Entities)
	assert.Equal(t, 0, resp.Data.Failed)
	assert.Equal(t, int64(3), resp.Data.Chunks[2].Seq)
}

func TestDecode_Malformed(t *testing.T) {
	dir := t.TempDir()
	path := writeTrace(t, dir, "bad", testutil.MainChunk(), testutil.TruncatedChunk())

	out, _, err := execute(t, "decode", path, "--split", "1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "1 of 2 chunk(s) failed to decode")
	assert.Contains(t, out, "chunk 2: TRUNCATED_RECORD")
	assert.Contains(t, out, "Nodes (1)")
}

func TestDecode_MalformedJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeTrace(t, dir, "bad", testutil.TruncatedChunk())

	out, _, err := execute(t, "decode", path, "--format", "json")
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, CodeDecode, resp.Error.Code)
}

func TestDecode_MissingFile(t *testing.T) {
	_, _, err := execute(t, "decode", filepath.Join(t.TempDir(), "none.trace"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestDecode_SessionAlreadyRecorded(t *testing.T) {
	dir := t.TempDir()
	path := writeTrace(t, dir, "run", testutil.MainChunk())
	db := filepath.Join(dir, "causeway.db")

	_, _, err := execute(t, "decode", path, "--db", db, "--session", "s1")
	require.NoError(t, err)

	_, _, err = execute(t, "decode", path, "--db", db, "--session", "s1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "already holds 1 chunks")
}
