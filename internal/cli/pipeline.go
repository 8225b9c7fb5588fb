package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/causeway/internal/engine"
	"github.com/roach88/causeway/internal/source"
	"github.com/roach88/causeway/internal/store"
)

// sessionFlags are the persistence flags shared by decode, follow and serve.
type sessionFlags struct {
	Database string
	Session  string
	Label    string
}

func (f *sessionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Database, "db", "", "record the session in this SQLite database (default: store.path)")
	cmd.Flags().StringVar(&f.Session, "session", "", "session id (default: a new UUIDv7)")
	cmd.Flags().StringVar(&f.Label, "label", "", "session label stored with the session")
}

// pipeline is an engine plus the store it records into, if any.
type pipeline struct {
	engine *engine.Engine
	store  *store.Store
}

// newPipeline builds an engine configured from the root options. When a
// database is configured the session is recorded into it; a session id
// that already holds chunks is refused, since the engine cannot pick up
// its decoder state.
func newPipeline(ctx context.Context, root *RootOptions, f sessionFlags, opts ...engine.Option) (*pipeline, error) {
	cfg := root.config()

	id := f.Session
	if id == "" {
		id = engine.UUIDv7Generator{}.Generate()
	}
	opts = append(opts,
		engine.WithSessionID(id),
		engine.WithGroupThreshold(cfg.Graph.GroupThreshold),
		engine.WithLogger(root.logger()),
	)

	p := &pipeline{}
	if path := root.storePath(f.Database); path != "" {
		st, err := store.Open(path)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open database", err)
		}
		w, err := st.Session(ctx, id, f.Label)
		if err != nil {
			st.Close()
			return nil, WrapExitError(ExitCommandError, "failed to open session", err)
		}
		if n := w.LastSeq(); n > 0 {
			st.Close()
			return nil, NewExitError(ExitCommandError,
				fmt.Sprintf("session %s already holds %d chunks; use replay to inspect it", id, n))
		}
		p.store = st
		opts = append(opts, engine.WithRecorder(w))
	}

	p.engine = engine.New(opts...)
	return p, nil
}

// loadSymbols registers the strings of a symbol file and returns how many
// there were. A missing file registers nothing.
func (p *pipeline) loadSymbols(ctx context.Context, path string) (int, error) {
	ids, values, err := source.ReadSymbols(path)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := p.engine.AddStrings(ctx, ids, values); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// Close closes the store, if one is open.
func (p *pipeline) Close() error {
	if p.store == nil {
		return nil
	}
	return p.store.Close()
}
