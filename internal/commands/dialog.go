package commands

import (
	"github.com/roach88/callq/internal/engine"
)

// confirm pauses the queue and asks the user. Yes resumes right after the
// confirm command; no skips the next count commands first.
func confirm(env Env) engine.Handler {
	return func(args map[string]any, cmd *engine.Command) error {
		count := cmd.IntArg("count", 0)
		title, phrase := question(args)
		if env.Dialogs == nil {
			return nil
		}

		q := cmd.Queue
		q.Pause()
		resume := func(skip int) {
			if err := q.Resume(skip); err != nil {
				env.logger().Error("queue failed after confirmation",
					"command", cmd.Name,
					"seq", cmd.Sequence,
					"error", err,
				)
			}
		}
		env.Dialogs.Confirm(phrase, title,
			func() { resume(0) },
			func() { resume(count) },
		)
		return nil
	}
}

func question(args map[string]any) (title, phrase string) {
	q, ok := args["question"].(map[string]any)
	if !ok {
		return "", ""
	}
	title, _ = q["title"].(string)
	phrase, _ = q["phrase"].(string)
	return title, phrase
}

func alert(env Env) engine.Handler {
	return func(_ map[string]any, cmd *engine.Command) error {
		if env.Dialogs == nil {
			env.logger().Info("alert", "title", cmd.Arg("title"), "message", cmd.Arg("message"))
			return nil
		}
		env.Dialogs.Alert(cmd.Arg("title"), cmd.Arg("message"))
		return nil
	}
}
