package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/causeway/internal/ir"
	"github.com/roach88/causeway/internal/queryir"
	"github.com/roach88/causeway/internal/store"
)

// EntitiesOptions holds flags for the entities command.
type EntitiesOptions struct {
	*RootOptions
	Database   string
	Session    string
	Kind       string
	Name       string
	NamePrefix string
	URIPrefix  string
	Causal     int64
	SeqFrom    int64
	SeqTo      int64
	Limit      int
}

// EntitiesResult is the JSON payload of the entities command.
type EntitiesResult struct {
	Session  string               `json:"session"`
	Entities []store.StoredEntity `json:"entities"`
	Total    int                  `json:"total"`
}

// NewEntitiesCommand creates the entities command.
func NewEntitiesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EntitiesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "entities",
		Short: "Query the entities recorded for a session",
		Long: `Query the entities recorded for a session.

Filters combine with AND. Results are ordered by the chunk that created
each entity, then by id.`,
		Example: `  causeway entities --db ./causeway.db --session 0192...
  causeway entities --db ./causeway.db --session 0192... --kind Actor --name-prefix Work
  causeway entities --db ./causeway.db --session 0192... --seq-from 2 --seq-to 5 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEntities(opts, cmd)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Database, "db", "", "path to SQLite database (default: store.path)")
	f.StringVar(&opts.Session, "session", "", "session id (required)")
	f.StringVar(&opts.Kind, "kind", "", "entity kind: Actor, Process or Task")
	f.StringVar(&opts.Name, "name", "", "exact entity name")
	f.StringVar(&opts.NamePrefix, "name-prefix", "", "entity name prefix (case-sensitive)")
	f.StringVar(&opts.URIPrefix, "uri-prefix", "", "origin source uri prefix")
	f.Int64Var(&opts.Causal, "causal", -1, "causal message id")
	f.Int64Var(&opts.SeqFrom, "seq-from", 0, "first chunk seq")
	f.Int64Var(&opts.SeqTo, "seq-to", 0, "last chunk seq (0 = no upper bound)")
	f.IntVar(&opts.Limit, "limit", 0, "maximum number of results (0 = all)")
	return cmd
}

// entityQuery turns the flags into a query.
func (o *EntitiesOptions) entityQuery() queryir.Select {
	var preds []queryir.Predicate
	if o.Kind != "" {
		preds = append(preds, queryir.Equals{Field: queryir.FieldKind, Value: queryir.Text(o.Kind)})
	}
	if o.Name != "" {
		preds = append(preds, queryir.Equals{Field: queryir.FieldName, Value: queryir.Text(o.Name)})
	}
	if o.NamePrefix != "" {
		preds = append(preds, queryir.Prefix{Field: queryir.FieldName, Value: o.NamePrefix})
	}
	if o.URIPrefix != "" {
		preds = append(preds, queryir.Prefix{Field: queryir.FieldURI, Value: o.URIPrefix})
	}
	if o.Causal >= 0 {
		preds = append(preds, queryir.Equals{Field: queryir.FieldCausal, Value: queryir.Int(o.Causal)})
	}
	if o.SeqFrom > 0 || o.SeqTo > 0 {
		hi := o.SeqTo
		if hi == 0 {
			hi = 1<<63 - 1
		}
		preds = append(preds, queryir.Between{Field: queryir.FieldSeq, Min: o.SeqFrom, Max: hi})
	}

	return queryir.Select{Session: o.Session, Filter: queryir.All(preds...), Limit: o.Limit}
}

func runEntities(opts *EntitiesOptions, cmd *cobra.Command) error {
	path := opts.storePath(opts.Database)
	if path == "" {
		return NewExitError(ExitCommandError, "no database: pass --db or set store.path")
	}
	if opts.Session == "" {
		return NewExitError(ExitCommandError, "--session is required")
	}
	if opts.Kind != "" && !ir.ValidKinds[ir.Kind(opts.Kind)] {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid --kind %q (must be Actor, Process or Task)", opts.Kind))
	}

	st, err := store.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if _, err := st.GetSession(ctx, opts.Session); err != nil {
		return WrapExitError(ExitCommandError, "failed to load session", err)
	}

	q := opts.entityQuery()
	opts.logger().Debug("querying entities", "session", q.Session, "limit", q.Limit)

	entities, err := st.QueryEntities(ctx, q)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to query entities", err)
	}

	w := cmd.OutOrStdout()
	if opts.Format == "json" {
		return respondJSON(w, EntitiesResult{Session: opts.Session, Entities: entities, Total: len(entities)}, nil)
	}

	if len(entities) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No matching entities."))
		return nil
	}
	fmt.Fprintln(w, headingStyle.Render(fmt.Sprintf("Entities (%d)", len(entities))))
	for _, se := range entities {
		e := se.Entity
		fmt.Fprintf(w, "  seq %-4d %-8s %-20s causal %-6d %s:%d\n",
			se.Seq, e.Kind, fmt.Sprintf("%s#%d", e.Name, e.ID), e.CausalMessage, e.Origin.URI, e.Origin.StartLine)
	}
	return nil
}
