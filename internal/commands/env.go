package commands

import (
	"log/slog"
	"time"

	"github.com/roach88/callq/internal/engine"
)

// PollInterval is the delay between two attempts of a polling command.
const PollInterval = 100 * time.Millisecond

// Dialogs renders user dialogs. onYes and onNo run on the engine loop,
// exactly one of them, at most once.
type Dialogs interface {
	Confirm(question, title string, onYes, onNo func())
	Alert(title, message string)
}

// Script evaluates a condition expression. It is an explicit capability:
// replies never cause code to be generated or loaded.
type Script interface {
	Eval(expr string) (bool, error)
}

// Styles reports whether pending stylesheets have loaded.
type Styles interface {
	Loaded() bool
}

// Document applies node mutations. target was resolved by the engine.
type Document interface {
	Assign(target engine.Node, attr string, value any) error
	Append(target engine.Node, attr string, value any) error
	Prepend(target engine.Node, attr string, value any) error
	Replace(target engine.Node, attr, search string, value any) error
}

// Env is what the built-in handlers may touch. Nil capabilities disable
// the commands that need them: a missing Dialogs confirms everything, a
// missing Script or Styles reports the condition as met.
type Env struct {
	Dialogs  Dialogs
	Script   Script
	Styles   Styles
	Document Document
	Logger   *slog.Logger
}

func (e Env) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}
