package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"

	"github.com/roach88/causeway/internal/engine"
	"github.com/roach88/causeway/internal/store"
	"github.com/roach88/causeway/internal/testutil"
	"github.com/roach88/causeway/internal/trace"
)

// Harness is the scenario execution engine.
// It runs scenarios with a fixed session id and a fresh store.
type Harness struct {
	store    *store.Store
	writer   *store.SessionWriter
	engine   *engine.Engine
	notified *testutil.RecordingController
	logger   *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
//  1. Create fresh in-memory database and a recording engine
//  2. Register the scenario strings
//  3. Feed each chunk, preceded by its own strings
//  4. Replay the recorded session and compare graphs
//  5. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger is Run with engine diagnostics sent to logger.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	session := testutil.NewFixedSessionGenerator(scenario.Session).Generate()
	writer, err := st.Session(ctx, session, scenario.Name)
	if err != nil {
		return nil, err
	}

	h := &Harness{
		store:    st,
		writer:   writer,
		notified: &testutil.RecordingController{},
		logger:   logger,
	}
	h.engine = engine.New(
		engine.WithSessionID(session),
		engine.WithGroupThreshold(scenario.GroupThreshold),
		engine.WithController(h.notified),
		engine.WithRecorder(writer),
		engine.WithLogger(logger),
	)

	result := NewResult()
	result.Session = session

	if err := h.addStrings(ctx, scenario.Strings); err != nil {
		return nil, fmt.Errorf("failed to register strings: %w", err)
	}
	for i, c := range scenario.Chunks {
		outcome, err := h.feed(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i+1, err)
		}
		result.Chunks = append(result.Chunks, outcome)
	}
	result.Graph = h.engine.History().Snapshot()

	if err := h.checkReplay(ctx, session, scenario.GroupThreshold, result); err != nil {
		return nil, err
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) addStrings(ctx context.Context, m map[uint32]string) error {
	if len(m) == 0 {
		return nil
	}
	ids, values := sortedStrings(m)
	return h.engine.AddStrings(ctx, ids, values)
}

func (h *Harness) feed(ctx context.Context, c ChunkSpec) (ChunkOutcome, error) {
	if err := h.addStrings(ctx, c.Strings); err != nil {
		return ChunkOutcome{}, err
	}
	chunk, err := EncodeChunk(c)
	if err != nil {
		return ChunkOutcome{}, err
	}

	before := len(h.notified.Calls())
	res, feedErr := h.engine.Feed(ctx, chunk)

	outcome := ChunkOutcome{
		Seq:      res.Seq,
		Bytes:    res.Bytes,
		Entities: make([]uint64, 0, len(res.Entities)),
		Notified: len(h.notified.Calls()) > before,
	}
	for _, e := range res.Entities {
		outcome.Entities = append(outcome.Entities, uint64(e.ID))
	}

	if feedErr != nil {
		var fe *trace.FormatError
		if !errors.As(feedErr, &fe) {
			return outcome, feedErr
		}
		outcome.Error = fe.Error()
		outcome.Code = string(fe.Code)
		h.logger.Debug("scenario chunk rejected", "seq", res.Seq, "error", fe)
	}
	return outcome, nil
}

// checkReplay rebuilds the graph from the store and records a failure if
// it differs from the live one.
func (h *Harness) checkReplay(ctx context.Context, session string, threshold int, result *Result) error {
	fresh := engine.New(engine.WithSessionID(session+"-replay"), engine.WithGroupThreshold(threshold))
	replay, err := h.store.Replay(ctx, session, fresh)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	if len(replay.Diverged) > 0 {
		result.AddError(fmt.Sprintf("replay diverged at seq %v", replay.Diverged))
	}
	if !reflect.DeepEqual(fresh.History().Snapshot(), result.Graph) {
		result.AddError("replayed graph differs from live graph")
	}
	return nil
}
