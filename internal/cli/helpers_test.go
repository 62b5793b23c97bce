package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const passingScenario = `
name: greet
description: one call, one command
dom:
  out: { innerHTML: "" }
steps:
  - issue: { function: greet }
  - reply:
      request: req-1
      commands:
        - { name: node.assign, args: { id: out, attr: innerHTML, value: hi } }
expect_trace:
  - issued req-1
  - submitted req-1
  - received req-1
  - dispatched req-1 node.assign#0
  - completed req-1
  - dispatched req-1 response.complete#1
`

const failingScenario = `
name: wrong
description: expects a reply that never comes
steps:
  - issue: { function: f }
assertions:
  - type: trace_contains
    line: received req-1
`
