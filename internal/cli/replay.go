package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"

	"github.com/spf13/cobra"

	"github.com/roach88/causeway/internal/engine"
	"github.com/roach88/causeway/internal/graph"
	"github.com/roach88/causeway/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Session  string // optional - specific session only
}

// ReplaySessionResult holds the replay result for a single session.
type ReplaySessionResult struct {
	Session       string          `json:"session"`
	Label         string          `json:"label"`
	Chunks        int             `json:"chunks"`
	Strings       int             `json:"strings"`
	Entities      int             `json:"entities"`
	Failed        int             `json:"failed"`
	Diverged      []int64         `json:"diverged,omitempty"`
	Deterministic bool            `json:"deterministic"`
	Graph         *graph.Snapshot `json:"graph,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Sessions         []ReplaySessionResult `json:"sessions"`
	TotalSessions    int                   `json:"total_sessions"`
	AllDeterministic bool                  `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Rebuild graphs from recorded sessions",
		Long: `Replay recorded sessions into fresh decoders and verify the outcome.

Every chunk is decoded again, twice. A session is deterministic when both
runs produce the same graph and every chunk succeeds or fails exactly as it
did when it was recorded.

Exit codes:
  0 - All sessions are deterministic
  1 - A session diverged from its recording
  2 - Command error (database not found, unknown session, etc.)

Examples:
  causeway replay --db ./causeway.db
  causeway replay --db ./causeway.db --session 0190b6a4-...
  causeway replay --db ./causeway.db --session 0190b6a4-... --verbose --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default: store.path)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "replay specific session only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()

	path := opts.storePath(opts.Database)
	if path == "" {
		return NewExitError(ExitCommandError, "no database: pass --db or set store.path")
	}
	st, err := store.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	var sessions []store.SessionInfo
	if opts.Session != "" {
		info, err := st.GetSession(ctx, opts.Session)
		if err != nil {
			if errors.Is(err, store.ErrSessionNotFound) {
				return NewExitError(ExitCommandError, fmt.Sprintf("session not found: %s", opts.Session))
			}
			return WrapExitError(ExitCommandError, "failed to read session", err)
		}
		sessions = []store.SessionInfo{info}
	} else {
		sessions, err = st.ListSessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
	}

	result := ReplayResult{
		Sessions:         make([]ReplaySessionResult, 0, len(sessions)),
		TotalSessions:    len(sessions),
		AllDeterministic: true,
	}
	threshold := opts.config().Graph.GroupThreshold

	for _, info := range sessions {
		sr, err := replayAndVerifySession(ctx, st, info, threshold, opts.logger())
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay session %s", info.ID), err)
		}
		if !opts.Verbose {
			sr.Graph = nil
		}
		result.Sessions = append(result.Sessions, sr)
		if !sr.Deterministic {
			result.AllDeterministic = false
		}
	}

	var failure *CLIError
	if !result.AllDeterministic {
		failure = &CLIError{Code: CodeDeterminism, Message: "determinism verification failed"}
	}

	if opts.Format == "json" {
		return respondJSON(cmd.OutOrStdout(), result, failure)
	}
	return outputReplayText(cmd.OutOrStdout(), result)
}

// replayAndVerifySession replays a session twice and compares the outcomes.
func replayAndVerifySession(ctx context.Context, st *store.Store, info store.SessionInfo, threshold int, logger *slog.Logger) (ReplaySessionResult, error) {
	replayOnce := func() (store.ReplayResult, graph.Snapshot, error) {
		e := engine.New(
			engine.WithSessionID(info.ID),
			engine.WithGroupThreshold(threshold),
			engine.WithLogger(logger),
		)
		res, err := st.Replay(ctx, info.ID, e)
		if err != nil {
			return res, graph.Snapshot{}, err
		}
		return res, e.History().Snapshot(), nil
	}

	first, g1, err := replayOnce()
	if err != nil {
		return ReplaySessionResult{}, fmt.Errorf("first replay failed: %w", err)
	}
	_, g2, err := replayOnce()
	if err != nil {
		return ReplaySessionResult{}, fmt.Errorf("second replay failed: %w", err)
	}

	return ReplaySessionResult{
		Session:       info.ID,
		Label:         info.Label,
		Chunks:        first.Chunks,
		Strings:       first.Strings,
		Entities:      first.Entities,
		Failed:        first.Failed,
		Diverged:      first.Diverged,
		Deterministic: len(first.Diverged) == 0 && reflect.DeepEqual(g1, g2),
		Graph:         &g1,
	}, nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(w io.Writer, result ReplayResult) error {
	if result.TotalSessions == 0 {
		fmt.Fprintln(w, "No sessions found in database.")
		return nil
	}

	fmt.Fprintln(w, headingStyle.Render(fmt.Sprintf("Replay Summary: %d session(s)", result.TotalSessions)))
	fmt.Fprintln(w)

	for _, s := range result.Sessions {
		fmt.Fprintf(w, "%s Session: %s %s\n", passMark(s.Deterministic), s.Session, mutedStyle.Render(s.Label))
		fmt.Fprintf(w, "  Chunks: %d (%d failed), strings: %d, entities: %d\n",
			s.Chunks, s.Failed, s.Strings, s.Entities)
		if len(s.Diverged) > 0 {
			fmt.Fprintf(w, "  Diverged at seq %v\n", s.Diverged)
		}
		if s.Graph != nil {
			writeGraphText(w, *s.Graph)
		}
		fmt.Fprintln(w)
	}

	if result.AllDeterministic {
		fmt.Fprintf(w, "%s All sessions replay deterministically\n", passMark(true))
		return nil
	}

	fmt.Fprintf(w, "%s Determinism verification failed\n", passMark(false))
	return NewExitError(ExitFailure, "determinism verification failed")
}
