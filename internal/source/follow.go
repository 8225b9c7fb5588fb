package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/roach88/causeway/internal/trace"
)

// DefaultDebounce is how long the Follower waits for writes to settle.
const DefaultDebounce = 100 * time.Millisecond

// Consumer receives what a Follower reads. *engine.Engine implements it.
type Consumer interface {
	AddStrings(ctx context.Context, ids []uint32, values []string) error
	Enqueue(chunk []byte) bool
}

// Follower tails a trace file and its symbol side file.
//
// Each poll reads new symbol lines first, then the newly appended whole
// records of the trace. A record still being written stays pending until
// the rest of it arrives. A file that shrinks is treated as rewritten and
// read again from the start.
type Follower struct {
	tracePath string
	symPath   string
	consumer  Consumer
	debounce  time.Duration
	logger    *slog.Logger

	traceOff int64
	symOff   int64
	pending  []byte
}

// FollowerOption configures a Follower.
type FollowerOption func(*Follower)

// WithDebounce sets how long to wait after the last write before reading.
func WithDebounce(d time.Duration) FollowerOption {
	return func(f *Follower) {
		f.debounce = d
	}
}

// WithLogger sets the follower logger.
func WithLogger(l *slog.Logger) FollowerOption {
	return func(f *Follower) {
		f.logger = l
	}
}

// WithSymbolsPath overrides the symbol side file location.
func WithSymbolsPath(path string) FollowerOption {
	return func(f *Follower) {
		f.symPath = path
	}
}

// NewFollower creates a follower for tracePath.
func NewFollower(tracePath string, consumer Consumer, opts ...FollowerOption) *Follower {
	f := &Follower{
		tracePath: tracePath,
		symPath:   SymbolsPath(tracePath),
		consumer:  consumer,
		debounce:  DefaultDebounce,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Run reads what is already there, then follows appends until ctx is
// cancelled.
func (f *Follower) Run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()

	// Watch the directory; editors and runtimes often replace files.
	dirs := map[string]bool{filepath.Dir(f.tracePath): true, filepath.Dir(f.symPath): true}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("failed to watch directory: %w", err)
		}
	}
	watched := map[string]bool{filepath.Clean(f.tracePath): true, filepath.Clean(f.symPath): true}

	if err := f.Poll(ctx); err != nil {
		return err
	}

	timer := time.NewTimer(f.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !watched[filepath.Clean(event.Name)] {
				continue
			}
			timer.Reset(f.debounce)

		case <-timer.C:
			if err := f.Poll(ctx); err != nil {
				return err
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			f.logger.Warn("watch error", "path", f.tracePath, "error", err)
		}
	}
}

// Poll reads whatever was appended since the last poll. Run calls it; it is
// exported for callers that drive their own schedule.
func (f *Follower) Poll(ctx context.Context) error {
	if err := f.pollSymbols(ctx); err != nil {
		return err
	}
	return f.pollTrace()
}

func (f *Follower) pollSymbols(ctx context.Context) error {
	data, off, err := readFrom(f.symPath, f.symOff)
	if err != nil || data == nil {
		return err
	}
	if off < f.symOff {
		f.logger.Warn("symbol file shrank, rereading", "path", f.symPath)
	}

	// Only whole lines.
	end := bytes.LastIndexByte(data, '\n')
	if end < 0 {
		f.symOff = off
		return nil
	}
	ids, values, err := trace.ParseSymbols(bytes.NewReader(data[:end+1]))
	if err != nil {
		return err
	}
	f.symOff = off + int64(end+1)

	if len(ids) == 0 {
		return nil
	}
	f.logger.Debug("symbols read", "path", f.symPath, "count", len(ids))
	return f.consumer.AddStrings(ctx, ids, values)
}

func (f *Follower) pollTrace() error {
	data, off, err := readFrom(f.tracePath, f.traceOff)
	if err != nil || data == nil {
		return err
	}
	if off < f.traceOff {
		f.logger.Warn("trace file shrank, rereading", "path", f.tracePath)
		f.pending = nil
	}
	f.traceOff = off + int64(len(data))

	buf := append(f.pending, data...)
	n := completePrefix(buf)
	if n == 0 {
		f.pending = buf
		return nil
	}

	chunk := make([]byte, n)
	copy(chunk, buf[:n])
	f.pending = append([]byte(nil), buf[n:]...)

	f.logger.Debug("chunk read", "path", f.tracePath, "bytes", n, "pending", len(f.pending))
	if !f.consumer.Enqueue(chunk) {
		return fmt.Errorf("follow %s: consumer stopped", f.tracePath)
	}
	return nil
}

// readFrom returns the bytes of path after off, and the offset they start
// at. If the file is shorter than off it is read from the start. A missing
// file returns nil data.
func readFrom(path string, off int64) ([]byte, int64, error) {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, off, nil
	}
	if err != nil {
		return nil, off, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, off, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() < off {
		off = 0
	}
	if info.Size() == off {
		return nil, off, nil
	}

	if _, err := file.Seek(off, io.SeekStart); err != nil {
		return nil, off, fmt.Errorf("seek %s: %w", path, err)
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, off, fmt.Errorf("read %s: %w", path, err)
	}
	return data, off, nil
}
