package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/roach88/causeway/internal/graph"
	"github.com/roach88/causeway/internal/ir"
	"github.com/roach88/causeway/internal/trace"
)

// Controller receives the entities created by each successfully decoded
// chunk, for propagation to other subsystems.
type Controller interface {
	NewEntities(ctx context.Context, seq int64, entities []ir.Entity)
}

// ControllerFunc adapts a function to Controller.
type ControllerFunc func(ctx context.Context, seq int64, entities []ir.Entity)

// NewEntities calls f.
func (f ControllerFunc) NewEntities(ctx context.Context, seq int64, entities []ir.Entity) {
	f(ctx, seq, entities)
}

// Recorder persists what an engine ingests. store.SessionWriter implements it.
type Recorder interface {
	RecordStrings(ctx context.Context, ids []uint32, values []string) error
	RecordChunk(ctx context.Context, seq int64, chunk []byte, decodeErr error) error
	RecordEntities(ctx context.Context, seq int64, entities []ir.Entity) error
}

// FeedResult describes one ingested chunk.
type FeedResult struct {
	Seq      int64       `json:"seq"`
	Bytes    int         `json:"bytes"`
	Entities []ir.Entity `json:"entities"`
}

// Engine owns the decoder and graph of one trace stream.
//
// Thread-safety model:
//   - Feed: safe from any goroutine; calls are serialized, and seq follows
//     the order in which they acquire the engine
//   - Enqueue: safe from any goroutine; Run drains the queue
//   - Run: called from exactly one goroutine
//   - History queries and AddStrings: safe from any goroutine
type Engine struct {
	session     string
	strings     *trace.StringTable
	history     *graph.History
	decoder     *trace.Decoder
	clock       *Clock
	queue       *chunkQueue
	controllers []Controller
	recorder    Recorder
	logger      *slog.Logger

	threshold  int
	sessionGen SessionIDGenerator

	feedMu sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithController adds a controller notified after each decoded chunk.
func WithController(c Controller) Option {
	return func(e *Engine) {
		e.controllers = append(e.controllers, c)
	}
}

// WithRecorder persists strings, chunks and entities as they are ingested.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithLogger sets the engine logger. The decoder and registry log through
// it as well.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithGroupThreshold overrides graph.DefaultGroupThreshold.
func WithGroupThreshold(n int) Option {
	return func(e *Engine) {
		e.threshold = n
	}
}

// WithStrings shares an existing string table with the engine.
func WithStrings(st *trace.StringTable) Option {
	return func(e *Engine) {
		e.strings = st
	}
}

// WithSessionID fixes the session id instead of generating one.
func WithSessionID(id string) Option {
	return func(e *Engine) {
		e.session = id
	}
}

// WithSessionGenerator sets how the session id is generated.
func WithSessionGenerator(g SessionIDGenerator) Option {
	return func(e *Engine) {
		e.sessionGen = g
	}
}

// WithClock resumes seq numbering from an existing clock.
func WithClock(c *Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// New creates an Engine for one trace stream.
func New(opts ...Option) *Engine {
	e := &Engine{
		clock:      NewClock(),
		queue:      newChunkQueue(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		sessionGen: UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.session == "" {
		e.session = e.sessionGen.Generate()
	}
	if e.strings == nil {
		e.strings = trace.NewStringTable()
	}
	e.history = graph.NewHistory(
		graph.WithGroupThreshold(e.threshold),
		graph.WithLogger(e.logger),
	)
	e.decoder = trace.NewDecoder(e.history.Sink(), e.strings, trace.WithLogger(e.logger))
	return e
}

// Session returns the session id.
func (e *Engine) Session() string {
	return e.session
}

// History returns the graph fed by this engine.
func (e *Engine) History() *graph.History {
	return e.history
}

// Strings returns the string table consulted by the decoder.
func (e *Engine) Strings() *trace.StringTable {
	return e.strings
}

// Seq returns the seq of the last ingested chunk.
func (e *Engine) Seq() int64 {
	return e.clock.Current()
}

// Stats returns the decoder counters.
func (e *Engine) Stats() trace.Stats {
	var s trace.Stats
	_ = e.history.Update(func() error {
		s = e.decoder.Stats()
		return nil
	})
	return s
}

// AddStrings registers interned strings and records them.
func (e *Engine) AddStrings(ctx context.Context, ids []uint32, values []string) error {
	if err := e.strings.AddStrings(ids, values); err != nil {
		return err
	}
	if e.recorder != nil {
		if err := e.recorder.RecordStrings(ctx, ids, values); err != nil {
			return fmt.Errorf("record strings: %w", err)
		}
	}
	return nil
}

// Feed decodes one chunk synchronously.
//
// A decode failure is returned wrapped (test with trace.IsFormatError); the
// chunk is still recorded, together with any entities decoded before the
// failure, but controllers are not notified.
func (e *Engine) Feed(ctx context.Context, chunk []byte) (FeedResult, error) {
	e.feedMu.Lock()
	defer e.feedMu.Unlock()

	seq := e.clock.Next()

	var created []ir.Entity
	decodeErr := e.history.Update(func() error {
		var err error
		created, err = e.decoder.Decode(chunk)
		return err
	})
	result := FeedResult{Seq: seq, Bytes: len(chunk), Entities: created}

	if e.recorder != nil {
		if err := e.recorder.RecordChunk(ctx, seq, chunk, decodeErr); err != nil {
			return result, fmt.Errorf("record chunk %d: %w", seq, err)
		}
		if len(created) > 0 {
			if err := e.recorder.RecordEntities(ctx, seq, created); err != nil {
				return result, fmt.Errorf("record entities of chunk %d: %w", seq, err)
			}
		}
	}

	if decodeErr != nil {
		return result, fmt.Errorf("decode chunk %d: %w", seq, decodeErr)
	}

	e.logger.Debug("chunk decoded",
		"session", e.session,
		"seq", seq,
		"bytes", len(chunk),
		"entities", len(created),
	)
	for _, c := range e.controllers {
		c.NewEntities(ctx, seq, created)
	}
	return result, nil
}

// Enqueue submits a chunk for the Run loop. Returns false once the engine
// has stopped.
func (e *Engine) Enqueue(chunk []byte) bool {
	return e.queue.Enqueue(chunk)
}

// QueueLen returns the number of chunks waiting for Run.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

// Run drains the chunk queue until ctx is cancelled or Stop is called and
// the queue is empty.
//
// Decode failures are logged and the loop continues: a malformed chunk
// aborts only its own decode. Recorder failures stop the loop, since
// persisted state would otherwise diverge from the graph.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine starting", "session", e.session)

	for {
		chunk, ok := e.queue.TryDequeue()
		if ok {
			if res, err := e.Feed(ctx, chunk); err != nil {
				if !trace.IsFormatError(err) {
					e.logger.Error("engine stopping: ingest failed", "session", e.session, "error", err)
					return err
				}
				e.logger.Warn("chunk rejected",
					"session", e.session,
					"seq", res.Seq,
					"bytes", len(chunk),
					"error", err,
				)
			}
			continue
		}

		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping: context cancelled", "session", e.session)
			e.queue.Close()
			return ctx.Err()

		case <-e.queue.Wait():
			if e.queue.Len() == 0 && e.queueClosed() {
				e.logger.Info("engine stopping: queue closed", "session", e.session)
				return nil
			}
		}
	}
}

// Stop closes the queue. Run returns once the remaining chunks are decoded.
func (e *Engine) Stop() {
	e.queue.Close()
}

func (e *Engine) queueClosed() bool {
	e.queue.mu.Lock()
	defer e.queue.mu.Unlock()
	return e.queue.closed
}
