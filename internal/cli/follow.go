package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/causeway/internal/engine"
	"github.com/roach88/causeway/internal/ir"
	"github.com/roach88/causeway/internal/source"
)

// FollowOptions holds flags for the follow command.
type FollowOptions struct {
	*RootOptions
	sessionFlags
	Symbols  string
	Debounce time.Duration
}

// NewFollowCommand creates the follow command.
func NewFollowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FollowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "follow <file.trace>",
		Short: "Tail a growing trace file",
		Long: `Follow a trace file while the runtime appends to it, printing every
entity as soon as its creation record arrives. Runs until interrupted.

With --format json each notification is printed as one JSON line.

Examples:
  causeway follow ./run.trace
  causeway follow ./run.trace --db ./causeway.db --debounce 250ms`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFollow(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Symbols, "symbols", "", "symbol file (default: <file>.sym)")
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", 0, "wait this long for writes to settle (default: follow.debounce)")
	opts.sessionFlags.register(cmd)

	return cmd
}

// followEvent is one JSON line of follow output.
type followEvent struct {
	Seq      int64       `json:"seq"`
	Entities []ir.Entity `json:"entities"`
}

func runFollow(opts *FollowOptions, path string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	logger := opts.logger()

	flags := opts.sessionFlags
	if flags.Label == "" {
		flags.Label = filepath.Base(path)
	}
	printer := entityPrinter(cmd.OutOrStdout(), opts.Format)
	p, err := newPipeline(ctx, opts.RootOptions, flags, engine.WithController(printer))
	if err != nil {
		return err
	}
	defer p.Close()

	debounce := opts.Debounce
	if debounce == 0 {
		debounce = opts.config().DebounceDuration()
	}
	followerOpts := []source.FollowerOption{
		source.WithDebounce(debounce),
		source.WithLogger(logger),
	}
	if opts.Symbols != "" {
		followerOpts = append(followerOpts, source.WithSymbolsPath(opts.Symbols))
	}
	follower := source.NewFollower(path, p.engine, followerOpts...)

	logger.Info("following trace", "path", path, "session", p.engine.Session())
	if err := followAndDecode(ctx, p.engine, follower); err != nil {
		return WrapExitError(ExitCommandError, "follow failed", err)
	}

	if opts.Format != "json" {
		stats := p.engine.Stats()
		fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render(fmt.Sprintf(
			"followed %d chunk(s), %d entities, %d failed", stats.Chunks, stats.Entities, stats.Failed)))
	}
	return nil
}

// followAndDecode runs the follower and the engine loop until ctx is
// cancelled or either fails. Cancellation is a clean stop.
func followAndDecode(ctx context.Context, e *engine.Engine, f *source.Follower) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return e.Run(gctx)
	})
	g.Go(func() error {
		defer e.Stop()
		return f.Run(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// entityPrinter prints new entities as they are decoded. The engine loop
// is its only caller.
func entityPrinter(w io.Writer, format string) engine.Controller {
	if format == "json" {
		enc := json.NewEncoder(w)
		return engine.ControllerFunc(func(_ context.Context, seq int64, entities []ir.Entity) {
			if len(entities) == 0 {
				return
			}
			_ = enc.Encode(followEvent{Seq: seq, Entities: entities})
		})
	}
	return engine.ControllerFunc(func(_ context.Context, seq int64, entities []ir.Entity) {
		for _, e := range entities {
			fmt.Fprintf(w, "%s seq %d: %s\n", okStyle.Render("+"), seq, e)
		}
	})
}
