package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/causeway/internal/engine"
	"github.com/roach88/causeway/internal/ir"
	"github.com/roach88/causeway/internal/source"
	"github.com/roach88/causeway/internal/testutil"
)

// syncBuffer is a bytes.Buffer safe for the engine loop to write while the
// test reads.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestFollowAndDecode(t *testing.T) {
	dir := t.TempDir()
	path := writeTrace(t, dir, "live", testutil.MainChunk())

	rec := &testutil.RecordingController{}
	e := engine.New(engine.WithController(rec), engine.WithSessionID("follow"))
	f := source.NewFollower(path, e, source.WithDebounce(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- followAndDecode(ctx, e, f) }()

	require.Eventually(t, func() bool {
		return len(rec.IDs()) == 1
	}, 5*time.Second, 10*time.Millisecond)

	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = file.Write(testutil.WorkersChunk(2))
	require.NoError(t, err)
	require.NoError(t, file.Close())

	require.Eventually(t, func() bool {
		return len(rec.IDs()) == 3
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, []ir.ActivityID{1, 100, 101}, rec.IDs())

	node, ok := e.History().Snapshot().Node("a1")
	require.True(t, ok)
	assert.Equal(t, "Main", node.Name)
}

func TestEntityPrinter(t *testing.T) {
	entities := []ir.Entity{{ID: 7, Kind: ir.KindActor, Name: "Main"}}

	var text syncBuffer
	entityPrinter(&text, "text").NewEntities(context.Background(), 3, entities)
	assert.Contains(t, text.String(), "seq 3: Actor Main#7")

	var js syncBuffer
	p := entityPrinter(&js, "json")
	p.NewEntities(context.Background(), 4, nil)
	p.NewEntities(context.Background(), 5, entities)
	assert.Equal(t, 1, bytes.Count([]byte(js.String()), []byte("\n")))
	assert.Contains(t, js.String(), `"seq":5`)
}

func TestFollow_MissingDirectory(t *testing.T) {
	_, _, err := execute(t, "follow", filepath.Join(t.TempDir(), "missing", "x.trace"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
