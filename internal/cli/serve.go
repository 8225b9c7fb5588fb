package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/causeway/internal/engine"
	"github.com/roach88/causeway/internal/server"
	"github.com/roach88/causeway/internal/source"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	sessionFlags
	Trace   string
	Symbols string
	Addr    string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the graph over HTTP and WebSocket",
		Long: `Serve one decoding session over HTTP.

Chunks arrive either by POST /api/v1/chunks or, with --trace, by following a
trace file. New entities are pushed to WebSocket clients on /ws. The graph
can be read at any time from /api/v1/nodes, /api/v1/links and
/api/v1/snapshot.

Examples:
  causeway serve
  causeway serve --trace ./run.trace --addr 127.0.0.1:8080
  causeway serve --db ./causeway.db --label nightly`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Trace, "trace", "", "follow this trace file")
	cmd.Flags().StringVar(&opts.Symbols, "symbols", "", "symbol file (default: <trace>.sym)")
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default: server.addr)")
	opts.sessionFlags.register(cmd)

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	logger := opts.logger()
	cfg := opts.config()

	addr := opts.Addr
	if addr == "" {
		addr = cfg.Server.Addr
	}

	hub := server.NewHub(
		server.WithHubLogger(logger),
		server.WithCheckOrigin(server.OriginChecker(cfg.Server.AllowedOrigins)),
	)

	flags := opts.sessionFlags
	if flags.Label == "" && opts.Trace != "" {
		flags.Label = filepath.Base(opts.Trace)
	}
	p, err := newPipeline(ctx, opts.RootOptions, flags, engine.WithController(hub))
	if err != nil {
		return err
	}
	defer p.Close()

	srv := server.New(p.engine, hub, server.Config{
		Addr:           addr,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.engine.Run(gctx)
	})
	g.Go(func() error {
		return srv.ListenAndServe(gctx)
	})
	if opts.Trace != "" {
		followerOpts := []source.FollowerOption{
			source.WithDebounce(cfg.DebounceDuration()),
			source.WithLogger(logger),
		}
		if opts.Symbols != "" {
			followerOpts = append(followerOpts, source.WithSymbolsPath(opts.Symbols))
		}
		follower := source.NewFollower(opts.Trace, p.engine, followerOpts...)
		g.Go(func() error {
			return follower.Run(gctx)
		})
	}

	if opts.Format != "json" {
		fmt.Fprintf(cmd.OutOrStdout(), "Serving session %s on http://%s\n", p.engine.Session(), srv.Addr())
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitCommandError, "serve failed", err)
	}
	return nil
}
