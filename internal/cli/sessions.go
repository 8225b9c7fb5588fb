package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/causeway/internal/store"
)

// SessionsOptions holds flags for the sessions command.
type SessionsOptions struct {
	*RootOptions
	Database string
}

// NewSessionsCommand creates the sessions command.
func NewSessionsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SessionsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recorded sessions",
		Example: `  causeway sessions --db ./causeway.db
  causeway sessions --db ./causeway.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessions(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default: store.path)")
	return cmd
}

func runSessions(opts *SessionsOptions, cmd *cobra.Command) error {
	path := opts.storePath(opts.Database)
	if path == "" {
		return NewExitError(ExitCommandError, "no database: pass --db or set store.path")
	}
	st, err := store.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	sessions, err := st.ListSessions(cmd.Context())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list sessions", err)
	}
	if sessions == nil {
		sessions = []store.SessionInfo{}
	}

	w := cmd.OutOrStdout()
	if opts.Format == "json" {
		return respondJSON(w, sessions, nil)
	}

	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions found in database.")
		return nil
	}
	fmt.Fprintln(w, headingStyle.Render(fmt.Sprintf("Sessions (%d)", len(sessions))))
	for _, s := range sessions {
		fmt.Fprintf(w, "  %s  %-20s chunks %d (%d failed)  entities %d  strings %d\n",
			s.ID, s.Label, s.Chunks, s.FailedChunks, s.Entities, s.Strings)
	}
	return nil
}
