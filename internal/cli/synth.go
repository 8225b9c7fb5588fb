package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/causeway/internal/ir"
	"github.com/roach88/causeway/internal/trace"
)

// SynthOptions holds flags for the synth command.
type SynthOptions struct {
	*RootOptions
	Out     string
	Name    string
	Workers int
	Rounds  int
}

// SynthResult describes the files synth wrote.
type SynthResult struct {
	Trace   string `json:"trace"`
	Symbols string `json:"symbols"`
	Bytes   int    `json:"bytes"`
	Strings int    `json:"strings"`
}

// NewSynthCommand creates the synth command.
func NewSynthCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SynthOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Write a demo trace and symbol file",
		Long: `Write a synthetic trace of a small fan-out program: a Main actor spawns
workers and a Collector, hands each worker a job per round, and every worker
reports to the Collector.

Examples:
  causeway synth --out /tmp
  causeway synth --out /tmp --workers 8 --rounds 3 && causeway decode /tmp/demo.trace`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSynth(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Out, "out", "o", ".", "output directory")
	cmd.Flags().StringVar(&opts.Name, "name", "demo", "base name of the written files")
	cmd.Flags().IntVar(&opts.Workers, "workers", 5, "number of worker actors")
	cmd.Flags().IntVar(&opts.Rounds, "rounds", 2, "jobs handed to each worker")

	return cmd
}

func runSynth(opts *SynthOptions, cmd *cobra.Command) error {
	if opts.Workers < 1 || opts.Rounds < 1 {
		return NewExitError(ExitCommandError, "workers and rounds must be at least 1")
	}

	data, ids, values := synthTrace(opts.Workers, opts.Rounds)

	if err := os.MkdirAll(opts.Out, 0755); err != nil {
		return WrapExitError(ExitCommandError, "failed to create output directory", err)
	}
	result := SynthResult{
		Trace:   filepath.Join(opts.Out, opts.Name+".trace"),
		Symbols: filepath.Join(opts.Out, opts.Name+".sym"),
		Bytes:   len(data),
		Strings: len(ids),
	}
	if err := os.WriteFile(result.Trace, data, 0644); err != nil {
		return WrapExitError(ExitCommandError, "failed to write trace", err)
	}
	if err := os.WriteFile(result.Symbols, []byte(formatSymbols(ids, values)), 0644); err != nil {
		return WrapExitError(ExitCommandError, "failed to write symbols", err)
	}

	if opts.Format == "json" {
		return respondJSON(cmd.OutOrStdout(), result, nil)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes) and %s (%d strings)\n",
		result.Trace, result.Bytes, result.Symbols, result.Strings)
	return nil
}

// Symbol ids of the synthetic program.
const (
	symMain      = 1
	symWorker    = 2
	symCollector = 3
	symFile      = 4
)

// Actor ids of the synthetic program.
const (
	synthMain      ir.ActivityID = 1
	synthCollector ir.ActivityID = 2
	synthWorker0   ir.ActivityID = 100
)

// synthTrace builds the demo trace and its strings.
func synthTrace(workers, rounds int) ([]byte, []uint32, []string) {
	ids := []uint32{symMain, symWorker, symCollector, symFile}
	values := []string{"Main", "Worker", "Collector", "demo.som"}
	origin := func(line uint16) trace.OriginSpec {
		return trace.OriginSpec{FileID: symFile, StartLine: line, StartColumn: 3, CharLength: 12}
	}

	enc := trace.NewEncoder()
	enc.Actor(synthMain, 0, symMain, origin(1))

	// Main spawns everything from its first turn; each spawn is a send
	// whose id becomes the causal message of the new actor.
	const spawnBase ir.MessageID = 1000
	enc.Mailbox(spawnBase, synthMain)
	for i := 0; i <= workers; i++ {
		enc.Send(trace.Send{Sender: synthMain})
	}
	for i := 0; i < workers; i++ {
		enc.Actor(synthWorker0+ir.ActivityID(i), spawnBase+ir.MessageID(i), symWorker, origin(10))
	}
	enc.Actor(synthCollector, spawnBase+ir.MessageID(workers), symCollector, origin(20))
	enc.Lifecycle(trace.TagThread)

	msg := ir.MessageID(10000)
	for r := 0; r < rounds; r++ {
		for i := 0; i < workers; i++ {
			worker := synthWorker0 + ir.ActivityID(i)

			enc.Mailbox(msg, worker)
			enc.Send(trace.Send{Sender: synthMain, Params: []trace.Param{{Type: 2, Value: uint64(r)}}})
			msg++

			enc.Mailbox(msg, synthCollector)
			enc.Send(trace.Send{Sender: worker, Timestamps: true})
			msg++
		}
		enc.PromiseResolution(trace.Param{Type: 0, Value: 1})
	}

	enc.Mailbox(msg, synthMain)
	enc.Send(trace.Send{Sender: synthCollector})
	return enc.Bytes(), ids, values
}

// formatSymbols renders a symbol file.
func formatSymbols(ids []uint32, values []string) string {
	var b strings.Builder
	for i, id := range ids {
		fmt.Fprintf(&b, "%d:%s\n", id, values[i])
	}
	return b.String()
}
