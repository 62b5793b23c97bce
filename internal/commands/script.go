package commands

import (
	"fmt"

	"github.com/roach88/callq/internal/engine"
)

// poll re-offers cmd and schedules the next attempt. Returns false once
// cmd's budget is exhausted.
func poll(cmd *engine.Command, attempts int) (bool, error) {
	if !engine.Retry(cmd, attempts) {
		return false, nil
	}
	if err := cmd.Queue.PushFront(cmd); err != nil {
		return false, err
	}
	cmd.Queue.SetWakeup(PollInterval)
	return true, nil
}

// sleep holds the queue for duration tenths of a second. The first attempt
// consumes one unit of the retry budget, so the budget is duration+1.
func sleep(Env) engine.Handler {
	return func(_ map[string]any, cmd *engine.Command) error {
		_, err := poll(cmd, cmd.IntArg("duration", 0)+1)
		return err
	}
}

// waitFor polls a condition every PollInterval, at most tries times.
func waitFor(env Env) engine.Handler {
	return func(_ map[string]any, cmd *engine.Command) error {
		if env.Script == nil {
			return nil
		}
		cond := cmd.Arg("condition")
		ok, err := env.Script.Eval(cond)
		if err != nil {
			return fmt.Errorf("evaluate %q: %w", cond, err)
		}
		if ok {
			cmd.ResetRetries()
			return nil
		}
		waiting, err := poll(cmd, cmd.IntArg("tries", 0))
		if err != nil {
			return err
		}
		if !waiting {
			env.logger().Warn("condition not met, giving up",
				"condition", cond,
				"seq", cmd.Sequence,
			)
		}
		return nil
	}
}

func debug(env Env) engine.Handler {
	return func(_ map[string]any, cmd *engine.Command) error {
		env.logger().Debug("debug command", "message", cmd.Arg("message"), "seq", cmd.Sequence)
		return nil
	}
}

// cssWait polls until the pending stylesheets have loaded.
func cssWait(env Env) engine.Handler {
	return func(_ map[string]any, cmd *engine.Command) error {
		if env.Styles == nil || env.Styles.Loaded() {
			return nil
		}
		waiting, err := poll(cmd, cmd.IntArg("tries", 0))
		if err != nil {
			return err
		}
		if !waiting {
			env.logger().Warn("stylesheets not loaded, giving up", "seq", cmd.Sequence)
		}
		return nil
	}
}
