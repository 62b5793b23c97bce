package commands

import (
	"github.com/roach88/callq/internal/engine"
)

type mutation func(doc Document, target engine.Node, cmd *engine.Command) error

// nodeHandler applies m to the command's target. An unresolved target was
// already logged by the engine; the command is then a no-op.
func nodeHandler(env Env, m mutation) engine.Handler {
	return func(_ map[string]any, cmd *engine.Command) error {
		if env.Document == nil || cmd.Target == nil {
			return nil
		}
		return m(env.Document, cmd.Target, cmd)
	}
}

func assign(env Env) engine.Handler {
	return nodeHandler(env, func(doc Document, target engine.Node, cmd *engine.Command) error {
		return doc.Assign(target, cmd.Arg("attr"), cmd.Args["value"])
	})
}

func appendTo(env Env) engine.Handler {
	return nodeHandler(env, func(doc Document, target engine.Node, cmd *engine.Command) error {
		return doc.Append(target, cmd.Arg("attr"), cmd.Args["value"])
	})
}

func prepend(env Env) engine.Handler {
	return nodeHandler(env, func(doc Document, target engine.Node, cmd *engine.Command) error {
		return doc.Prepend(target, cmd.Arg("attr"), cmd.Args["value"])
	})
}

func replace(env Env) engine.Handler {
	return nodeHandler(env, func(doc Document, target engine.Node, cmd *engine.Command) error {
		return doc.Replace(target, cmd.Arg("attr"), cmd.Arg("search"), cmd.Args["value"])
	})
}
