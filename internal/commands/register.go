package commands

import "github.com/roach88/callq/internal/engine"

// Names of the built-in commands.
const (
	DialogConfirm = "dialog.confirm"
	DialogAlert   = "dialog.alert"
	ScriptSleep   = "script.sleep"
	ScriptWaitFor = "script.wait.for"
	ScriptDebug   = "script.debug"
	CSSWait       = "css.wait"
	NodeAssign    = "node.assign"
	NodeAppend    = "node.append"
	NodePrepend   = "node.prepend"
	NodeReplace   = "node.replace"
)

// Registrar is the part of the engine that installs handlers.
type Registrar interface {
	RegisterCommand(name string, handler engine.Handler, description string)
}

// Register installs every built-in handler.
func Register(reg Registrar, env Env) {
	reg.RegisterCommand(DialogConfirm, confirm(env), "ask before running the next commands")
	reg.RegisterCommand(DialogAlert, alert(env), "show a message")
	reg.RegisterCommand(ScriptSleep, sleep(env), "pause the queue")
	reg.RegisterCommand(ScriptWaitFor, waitFor(env), "wait for a condition")
	reg.RegisterCommand(ScriptDebug, debug(env), "log a message")
	reg.RegisterCommand(CSSWait, cssWait(env), "wait for stylesheets to load")
	reg.RegisterCommand(NodeAssign, assign(env), "assign a node attribute")
	reg.RegisterCommand(NodeAppend, appendTo(env), "append to a node attribute")
	reg.RegisterCommand(NodePrepend, prepend(env), "prepend to a node attribute")
	reg.RegisterCommand(NodeReplace, replace(env), "replace text in a node attribute")
}
