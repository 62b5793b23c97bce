package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/callq/internal/harness"
	"github.com/roach88/callq/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
}

// RunResult is the JSON payload of the run command.
type RunResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Trace  []string `json:"trace"`
	Alerts []string `json:"alerts,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Play one scenario and print its trace",
		Long: `Play a scenario against the engine with a scripted transport and
print every engine event. With --db the events are also journaled to a
SQLite file that the trace command can read back.

Example:
  callq run ./scenarios/confirm.yaml
  callq run ./scenarios/confirm.yaml --db ./callq.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "journal events to this SQLite database")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	runOpts := []harness.RunOption{
		harness.WithLogger(newLogger(opts.RootOptions, cmd.ErrOrStderr())),
	}
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()
		st.SetLogger(newLogger(opts.RootOptions, cmd.ErrOrStderr()))
		runOpts = append(runOpts, harness.WithObserver(st))
	}

	result, err := harness.Run(scenario, runOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "scenario could not be played", err)
	}

	out := RunResult{
		Name:   scenario.Name,
		Pass:   result.Pass,
		Trace:  result.Lines(),
		Alerts: result.Alerts,
		Errors: result.Errors,
	}

	if opts.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: out}
		if !out.Pass {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeTestFailed, Message: "scenario failed"}
		}
		if err := writeJSON(cmd.OutOrStdout(), resp); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		for _, e := range result.Trace {
			fmt.Fprintf(w, "%4d  %s\n", e.Seq, e.Line())
		}
		for _, a := range result.Alerts {
			fmt.Fprintf(w, "alert: %s\n", a)
		}
		if out.Pass {
			fmt.Fprintf(w, "✓ %s\n", scenario.Name)
		} else {
			fmt.Fprintf(w, "✗ %s\n", scenario.Name)
			for _, e := range result.Errors {
				fmt.Fprintf(w, "  %s\n", e)
			}
		}
	}

	if !out.Pass {
		return NewExitError(ExitFailure, "scenario failed")
	}
	return nil
}
