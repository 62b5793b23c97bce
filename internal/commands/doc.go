// Package commands provides the built-in command handlers.
//
// Handlers reach the outside world only through the capabilities in Env:
// dialogs, script evaluation, stylesheet state and the document. Handlers
// that wait for something (a user answer, a timed sleep, a condition) pause
// their queue and resume it from a dialog callback or a wakeup timer.
package commands
