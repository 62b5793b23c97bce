package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/callq/internal/store"
)

func TestRun_TestdataScenarios(t *testing.T) {
	paths, err := Discover("testdata")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		scenario, err := LoadScenario(path)
		require.NoError(t, err, path)

		t.Run(scenario.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_TraceMismatchFails(t *testing.T) {
	scenario := &Scenario{
		Name:        "mismatch",
		Description: "expected trace is wrong",
		Steps:       []Step{{Issue: &IssueStep{Function: "f"}}},
		ExpectTrace: []string{"issued req-1", "received req-1"},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `line 2 "received req-1"`)
	assert.Contains(t, result.Errors[0], `line 2 "submitted req-1"`)
}

func TestRun_ShorterTraceFails(t *testing.T) {
	scenario := &Scenario{
		Name:        "short",
		Description: "expected trace stops early",
		Steps:       []Step{{Issue: &IssueStep{Function: "f"}}},
		ExpectTrace: []string{"issued req-1"},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
}

func TestRun_ReplyToUnsentRequest(t *testing.T) {
	scenario := &Scenario{
		Name:        "unsent",
		Description: "reply before send",
		Steps: []Step{
			{Issue: &IssueStep{Function: "hold", Mode: "synchronous"}},
			{Issue: &IssueStep{Function: "waiting"}},
			{Reply: &ReplyStep{Request: "req-2"}},
		},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 2")
	assert.Contains(t, err.Error(), "req-2 is not in flight")
}

func TestRun_ReplyToAbortedRequest(t *testing.T) {
	scenario := &Scenario{
		Name:        "aborted",
		Description: "reply after abort",
		Steps: []Step{
			{Issue: &IssueStep{Function: "f"}},
			{Abort: "req-1"},
			{Reply: &ReplyStep{Request: "req-1"}},
		},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "req-1 was aborted")
}

func TestRun_AnswerWithoutDialog(t *testing.T) {
	scenario := &Scenario{
		Name:        "no_dialog",
		Description: "answer with nothing open",
		Steps:       []Step{{Answer: "yes"}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no confirm dialog is open")
}

func TestRun_AbortUnknownRequest(t *testing.T) {
	scenario := &Scenario{
		Name:        "abort_unknown",
		Description: "abort a request never issued",
		Steps:       []Step{{Abort: "req-9"}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown request req-9")
}

func TestRun_ConfirmAccepted(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: confirm_accept
description: accepting a confirm runs the guarded command
dom:
  out: { innerHTML: old }
steps:
  - issue: { function: save }
  - reply:
      request: req-1
      commands:
        - { name: dialog.confirm, args: { count: 1 } }
        - { name: node.assign, args: { id: out, attr: innerHTML, value: new } }
  - answer: "yes"
assertions:
  - type: dom
    node: out
    attr: innerHTML
    value: new
  - type: trace_count
    line: skipped req-1 node.assign#1
    count: 0
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_ComponentTargetAndReprocess(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: component_target
description: a component reference wins over the id
dom:
  row-3: { innerHTML: "" }
  fallback: { innerHTML: "" }
components:
  list/3: row-3
steps:
  - issue: { function: render }
  - reply:
      request: req-1
      commands:
        - name: node.assign
          component: { name: list, item: 3 }
          args: { id: fallback, attr: innerHTML, value: row }
        - { name: node.replace, args: { id: fallback, attr: innerHTML, search: x, value: y } }
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.Equal(t, "row", result.DOM["row-3"]["innerHTML"])
	assert.Equal(t, "", result.DOM["fallback"]["innerHTML"])
	assert.Contains(t, result.Lines(), "dispatched req-1 node.replace#1")
}

func TestRun_NodeErrorHaltsQueue(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: node_error
description: a failing mutation halts the queue and completes the call
dom:
  out: { innerHTML: "" }
steps:
  - issue: { function: f }
  - reply:
      request: req-1
      commands:
        - { name: node.replace, args: { id: out, attr: innerHTML, search: "", value: y } }
        - { name: node.assign, args: { id: out, attr: innerHTML, value: never } }
expect_trace:
  - issued req-1
  - submitted req-1
  - received req-1
  - halted req-1 node.replace#0
  - completed req-1
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "", result.DOM["out"]["innerHTML"])
}

func TestRun_StylesheetWait(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: css_wait
description: css.wait polls until stylesheets load
styles_pending: 2
steps:
  - issue: { function: f }
  - reply:
      request: req-1
      commands:
        - { name: css.wait, args: { tries: 10 } }
  - advance: 1s
assertions:
  - type: trace_count
    line: dispatched req-1 css.wait#0
    count: 3
  - type: trace_count
    line: completed req-1
    count: 1
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_ConfigOverrides(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: tiny_queue
description: a reply longer than the command queue is rejected
config:
  command_queue_size: 2
steps:
  - issue: { function: f }
  - reply:
      request: req-1
      commands:
        - { name: script.debug }
        - { name: script.debug }
expect_trace:
  - issued req-1
  - submitted req-1
  - received req-1
  - completed req-1
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_InvalidConfig(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: bad_config
description: config validation applies to scenarios
config:
  mode: eager
steps:
  - issue: { function: f }
`))
	require.NoError(t, err)

	_, err = Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenario config")
}

func TestRun_Journal(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer st.Close()

	scenario, err := LoadScenario(filepath.Join("testdata", "sync_ordering.yaml"))
	require.NoError(t, err)

	result, err := Run(scenario, WithObserver(st))
	require.NoError(t, err)

	events, err := st.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, events, len(result.Trace))
	for i, e := range events {
		assert.Equal(t, result.Trace[i].Seq, e.Seq)
		assert.Equal(t, result.Trace[i].Line(), traceEvent(e).Line())
	}

	calls, err := st.ReadCalls(context.Background())
	require.NoError(t, err)
	require.Len(t, calls, 3)
	assert.Equal(t, "exclusive", calls[1].Function)
	assert.Equal(t, "completed", calls[1].Outcome)
}
