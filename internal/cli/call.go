package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/callq/internal/callback"
	"github.com/roach88/callq/internal/commands"
	"github.com/roach88/callq/internal/config"
	"github.com/roach88/callq/internal/engine"
	"github.com/roach88/callq/internal/store"
	"github.com/roach88/callq/internal/transport"
)

// CallOptions holds flags for the call command.
type CallOptions struct {
	*RootOptions
	Config   string
	Dotenv   string
	URI      string
	Method   string
	Class    string
	Params   []string
	Sync     bool
	Database string
	Timeout  time.Duration
}

// CallResult is the JSON payload of the call command.
type CallResult struct {
	Request  string   `json:"request"`
	Function string   `json:"function"`
	Status   int      `json:"status,omitempty"`
	Commands []string `json:"commands"`
	Error    string   `json:"error,omitempty"`
}

// NewCallCommand creates the call command.
func NewCallCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CallOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "call <function>",
		Short: "Call a server function over HTTP and run its reply",
		Long: `Issue one call to a page server, run the command list it replies
with, and print every dispatched command. Node and dialog commands have no
page to act on here, so they are dispatched without effect; confirms are
accepted.

Params are parsed as JSON when they parse, and passed as strings otherwise.

Examples:
  callq call hello --uri http://localhost:8080/ajax
  callq call add --class Cart --param 3 --param '"blue"' --uri http://localhost:8080/ajax --sync
  callq call hello --config callq.yaml --db ./callq.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "config file")
	cmd.Flags().StringVar(&opts.Dotenv, "env", ".env", "dotenv file to load before reading the environment")
	cmd.Flags().StringVar(&opts.URI, "uri", "", "server endpoint (overrides config)")
	cmd.Flags().StringVar(&opts.Method, "method", "", "GET or POST (overrides config)")
	cmd.Flags().StringVar(&opts.Class, "class", "", "call <function> as a method of this class")
	cmd.Flags().StringArrayVar(&opts.Params, "param", nil, "call parameter (repeatable)")
	cmd.Flags().BoolVar(&opts.Sync, "sync", false, "issue a synchronous call")
	cmd.Flags().StringVar(&opts.Database, "db", "", "journal events to this SQLite database")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "give up after this long")

	return cmd
}

func runCall(opts *CallOptions, name string, cmd *cobra.Command) error {
	cfg, err := config.Load(config.Options{Path: opts.Config, DotenvPath: opts.Dotenv})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.URI != "" {
		cfg.URI = opts.URI
	}
	if opts.Method != "" {
		cfg.Method = opts.Method
	}
	if opts.Sync {
		cfg.Mode = config.ModeSynchronous
	}
	if err := config.Validate(cfg); err != nil {
		return WrapExitError(ExitCommandError, "invalid call options", err)
	}
	if cfg.URI == "" {
		return NewExitError(ExitCommandError, "no URI: pass --uri or set uri in the config")
	}

	fn := engine.Function{Name: name, Params: parseParams(opts.Params)}
	if opts.Class != "" {
		fn = engine.Function{Class: opts.Class, Method: name, Params: fn.Params}
	}

	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	loop := engine.NewLoop()
	result := CallResult{Function: fn.String(), Commands: []string{}}

	engineOpts := []engine.Option{
		engine.WithConfig(cfg),
		engine.WithLoop(loop),
		engine.WithLogger(logger),
		engine.WithObserver(engine.ObserverFunc(func(e engine.Event) {
			if e.Kind == engine.EventDispatched && e.Command != engine.CompleteCommand {
				result.Commands = append(result.Commands, fmt.Sprintf("%s#%d", e.Command, e.Sequence))
				if opts.Format != "json" {
					fmt.Fprintf(cmd.OutOrStdout(), "%s#%d\n", e.Command, e.Sequence)
				}
			}
		})),
	}
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()
		st.SetLogger(logger)

		// Continue the journal's numbering.
		last, err := st.LastSeq(context.Background())
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read database", err)
		}
		engineOpts = append(engineOpts,
			engine.WithJournal(st),
			engine.WithSequencer(engine.NewSequencer(last)),
		)
	}

	tr := transport.New(loop, transport.WithTimeout(opts.Timeout), transport.WithLogger(logger))
	eng := engine.New(tr, engineOpts...)
	commands.Register(eng, commands.Env{Logger: logger})

	ctx, cancel := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, opts.Timeout)
	defer cancelTimeout()

	var req *engine.Request
	loop.Submit(func() {
		hooks := eng.NewHooks()
		hooks.On(callback.Complete, func(r *engine.Request) {
			if r.Response != nil {
				result.Status = r.Response.Status
			}
			loop.Stop()
		})
		req, _ = eng.IssueCall(fn, engine.CallOptions{Hooks: hooks})
		result.Request = req.ID
	})

	if err := loop.Run(ctx); err != nil {
		// Run only returns early on cancellation: abort the call on the
		// loop, then let the loop drain.
		loop.Submit(func() {
			if req != nil {
				eng.Abort(req)
			}
		})
		loop.Stop()
		_ = loop.Run(context.Background())
		return WrapExitError(ExitFailure, "call interrupted", err)
	}

	if req != nil && req.Err != nil {
		result.Error = req.Err.Error()
	}
	return outputCall(opts, result, cmd)
}

func outputCall(opts *CallOptions, result CallResult, cmd *cobra.Command) error {
	if opts.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result}
		if result.Error != "" {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeCallFailed, Message: result.Error}
		}
		if err := writeJSON(cmd.OutOrStdout(), resp); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		if result.Error != "" {
			fmt.Fprintf(w, "✗ %s (%s): %s\n", result.Function, result.Request, result.Error)
		} else {
			fmt.Fprintf(w, "✓ %s (%s): %d command(s)\n", result.Function, result.Request, len(result.Commands))
		}
	}
	if result.Error != "" {
		return NewExitError(ExitFailure, "call failed")
	}
	return nil
}

// parseParams decodes each param as JSON, falling back to the raw string.
func parseParams(raw []string) []any {
	params := make([]any, 0, len(raw))
	for _, p := range raw {
		dec := json.NewDecoder(bytes.NewReader([]byte(p)))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil || dec.More() {
			params = append(params, p)
			continue
		}
		params = append(params, v)
	}
	return params
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
