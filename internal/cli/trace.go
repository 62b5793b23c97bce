package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/callq/internal/engine"
	"github.com/roach88/callq/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Request  string // optional - show one call's events
}

// TraceResult is the JSON payload for one call.
type TraceResult struct {
	Request string         `json:"request"`
	Events  []engine.Event `json:"events"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Read back journaled calls",
		Long: `Read the call journal written by run --db or call --db.

Without --request, lists every call with its outcome. With --request,
prints that call's events in order.

Examples:
  callq trace --db ./callq.db
  callq trace --db ./callq.db --request req-2
  callq trace --db ./callq.db --request req-2 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Request, "request", "", "request id to trace")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.Request == "" {
		return listCalls(ctx, opts, st, cmd)
	}

	events, err := st.ReadEvents(ctx, opts.Request)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}
	if len(events) == 0 {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("no events for request %s", opts.Request), nil)
		return NewExitError(ExitFailure, fmt.Sprintf("no events for request %s", opts.Request))
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), CLIResponse{
			Status: "ok",
			Data:   TraceResult{Request: opts.Request, Events: events},
		})
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "SEQ\tEVENT\tCOMMAND\tDETAIL\n")
	for _, e := range events {
		command := ""
		if e.Command != "" {
			command = fmt.Sprintf("%s#%d", e.Command, e.Sequence)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", e.Seq, e.Kind, command, e.Detail)
	}
	return w.Flush()
}

func listCalls(ctx context.Context, opts *TraceOptions, st *store.Store, cmd *cobra.Command) error {
	calls, err := st.ReadCalls(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read calls", err)
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: calls})
	}
	if len(calls) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No calls journaled.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "REQUEST\tFUNCTION\tEVENTS\tOUTCOME\n")
	for _, c := range calls {
		outcome := c.Outcome
		if outcome == "" {
			outcome = "open"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", c.ID, c.Function, c.Events, outcome)
	}
	return w.Flush()
}
