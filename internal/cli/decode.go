package cli

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/causeway/internal/graph"
	"github.com/roach88/causeway/internal/source"
	"github.com/roach88/causeway/internal/trace"
)

// DecodeOptions holds flags for the decode command.
type DecodeOptions struct {
	*RootOptions
	sessionFlags
	Symbols string
	Split   int // records per chunk; 0 feeds the file as one chunk
}

// ChunkReport describes one decoded chunk.
type ChunkReport struct {
	Seq      int64  `json:"seq"`
	Bytes    int    `json:"bytes"`
	Entities int    `json:"entities"`
	Error    string `json:"error,omitempty"`
}

// DecodeResult holds the decode output.
type DecodeResult struct {
	Session string         `json:"session"`
	File    string         `json:"file"`
	Strings int            `json:"strings"`
	Chunks  []ChunkReport  `json:"chunks"`
	Failed  int            `json:"failed"`
	Graph   graph.Snapshot `json:"graph"`
	Stats   trace.Stats    `json:"stats"`
}

// NewDecodeCommand creates the decode command.
func NewDecodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DecodeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "decode <file.trace>",
		Short: "Decode a trace file and print its causality graph",
		Long: `Decode a recorded trace file and print the causality graph it describes.

Strings are read from the symbol file next to the trace (file.sym) unless
--symbols names another one. With --split the file is fed in chunks of that
many records, the way a runtime would deliver it.

Exit codes:
  0 - Every chunk decoded
  1 - One or more chunks were malformed
  2 - Command error (missing file, database error, etc.)

Examples:
  causeway decode ./run.trace
  causeway decode ./run.trace --split 64 --db ./causeway.db
  causeway decode ./run.trace --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Symbols, "symbols", "", "symbol file (default: <file>.sym)")
	cmd.Flags().IntVar(&opts.Split, "split", 0, "records per chunk (0 = whole file)")
	opts.sessionFlags.register(cmd)

	return cmd
}

func runDecode(opts *DecodeOptions, path string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	logger := opts.logger()

	data, err := source.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read trace", err)
	}

	flags := opts.sessionFlags
	if flags.Label == "" {
		flags.Label = filepath.Base(path)
	}
	p, err := newPipeline(ctx, opts.RootOptions, flags)
	if err != nil {
		return err
	}
	defer p.Close()

	symbols := opts.Symbols
	if symbols == "" {
		symbols = source.SymbolsPath(path)
	}
	nStrings, err := p.loadSymbols(ctx, symbols)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load symbols", err)
	}

	chunks, splitErr := source.SplitRecords(data, opts.Split)
	if splitErr != nil {
		logger.Debug("trace ends in a partial record", "path", path, "error", splitErr)
	}

	result := DecodeResult{
		Session: p.engine.Session(),
		File:    path,
		Strings: nStrings,
		Chunks:  make([]ChunkReport, 0, len(chunks)),
	}
	for _, chunk := range chunks {
		res, err := p.engine.Feed(ctx, chunk)
		report := ChunkReport{Seq: res.Seq, Bytes: res.Bytes, Entities: len(res.Entities)}
		if err != nil {
			var fe *trace.FormatError
			if !errors.As(err, &fe) {
				return WrapExitError(ExitCommandError, "failed to ingest chunk", err)
			}
			report.Error = fe.Error()
			result.Failed++
		}
		result.Chunks = append(result.Chunks, report)
	}
	result.Graph = p.engine.History().Snapshot()
	result.Stats = p.engine.Stats()

	var failure *CLIError
	if result.Failed > 0 {
		failure = &CLIError{
			Code:    CodeDecode,
			Message: fmt.Sprintf("%d of %d chunk(s) failed to decode", result.Failed, len(result.Chunks)),
		}
	}

	if opts.Format == "json" {
		return respondJSON(cmd.OutOrStdout(), result, failure)
	}

	writeDecodeText(cmd.OutOrStdout(), result, opts.Verbose)
	if failure != nil {
		return NewExitError(ExitFailure, failure.Message)
	}
	return nil
}

func writeDecodeText(w io.Writer, result DecodeResult, verbose bool) {
	fmt.Fprintf(w, "Session: %s\n", result.Session)
	fmt.Fprintf(w, "Decoded %d chunk(s), %d bytes, %d strings\n",
		len(result.Chunks), result.Stats.Bytes, result.Strings)
	fmt.Fprintln(w)

	writeGraphText(w, result.Graph)

	if verbose {
		fmt.Fprintln(w)
		fmt.Fprintln(w, headingStyle.Render("Chunks"))
		for _, c := range result.Chunks {
			fmt.Fprintf(w, "  seq %-4d %6d bytes  %d new\n", c.Seq, c.Bytes, c.Entities)
		}
	}

	for _, c := range result.Chunks {
		if c.Error != "" {
			fmt.Fprintf(w, "%s chunk %d: %s\n", passMark(false), c.Seq, c.Error)
		}
	}
}

// writeGraphText prints the nodes and links of a snapshot.
func writeGraphText(w io.Writer, g graph.Snapshot) {
	fmt.Fprintln(w, headingStyle.Render(fmt.Sprintf("Nodes (%d)", len(g.Nodes))))
	for _, n := range g.Nodes {
		size := ""
		if n.GroupSize > 1 {
			size = fmt.Sprintf(" x%d", n.GroupSize)
		}
		fmt.Fprintf(w, "  %-8s %-8s %s%s\n", n.DataID, n.Kind, n.Name, size)
	}

	fmt.Fprintln(w, headingStyle.Render(fmt.Sprintf("Links (%d)", len(g.Links))))
	for _, l := range g.Links {
		kind := "messages"
		if l.Creation {
			kind = "created"
		}
		fmt.Fprintf(w, "  %s -> %s  %s %d\n", l.Source, l.Target, kind, l.MessageCount)
	}
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("max message sends: %d, messages: %d",
		g.MaxMessageSends, g.Messages)))
}
