// Package ir defines the decoded form of a server reply: an optional debug
// message plus an ordered list of command entries.
//
// The engine never interprets command arguments; it only reads the entry's
// name and component reference. Everything else is passed to the registered
// handler untouched.
//
// Canonical JSON (MarshalCanonical) is used wherever callq needs a
// byte-stable rendering of reply data: golden traces and journal rows.
package ir
