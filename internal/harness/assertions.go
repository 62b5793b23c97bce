package harness

import (
	"fmt"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It carries the full trace to help debug the failure.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, line := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, line)
		}
	}
	return buf.String()
}

// EvaluateAssertions runs every assertion and returns failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	lines := result.Lines()
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(lines, a)
		case AssertTraceOrder:
			err = assertTraceOrder(lines, a)
		case AssertTraceCount:
			err = assertTraceCount(lines, a)
		case AssertDOM:
			err = assertDOM(result.DOM, a)
		case AssertAlert:
			err = assertAlert(result.Alerts, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d (%s): %v", i, a.Type, err))
		}
	}
	return errs
}

// assertTraceEquals compares the whole trace line by line.
func assertTraceEquals(trace, expected []string) error {
	n := len(trace)
	if len(expected) > n {
		n = len(expected)
	}
	for i := 0; i < n; i++ {
		var got, want string
		if i < len(trace) {
			got = trace[i]
		}
		if i < len(expected) {
			want = expected[i]
		}
		if got != want {
			return &AssertionError{
				Type:     "expect_trace",
				Expected: fmt.Sprintf("line %d %q", i+1, want),
				Actual:   fmt.Sprintf("line %d %q", i+1, got),
				Trace:    trace,
			}
		}
	}
	return nil
}

func assertTraceContains(trace []string, a Assertion) error {
	for _, line := range trace {
		if line == a.Line {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: a.Line,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that lines appear in order. Lines need not be
// adjacent; each is matched after the previous match.
func assertTraceOrder(trace []string, a Assertion) error {
	pos := 0
	for _, want := range a.Lines {
		found := false
		for pos < len(trace) {
			pos++
			if trace[pos-1] == want {
				found = true
				break
			}
		}
		if !found {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("lines in order: %v", a.Lines),
				Actual:   fmt.Sprintf("%q missing or out of order", want),
				Trace:    trace,
			}
		}
	}
	return nil
}

func assertTraceCount(trace []string, a Assertion) error {
	count := 0
	for _, line := range trace {
		if line == a.Line {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %q", a.Count, a.Line),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

func assertDOM(dom map[string]map[string]string, a Assertion) error {
	attrs, ok := dom[a.Node]
	if !ok {
		return &AssertionError{
			Type:     AssertDOM,
			Expected: fmt.Sprintf("node %s", a.Node),
			Actual:   "node not found",
		}
	}
	if got := attrs[a.Attr]; got != a.Value {
		return &AssertionError{
			Type:     AssertDOM,
			Expected: fmt.Sprintf("%s.%s = %q", a.Node, a.Attr, a.Value),
			Actual:   fmt.Sprintf("%q", got),
		}
	}
	return nil
}

func assertAlert(alerts []string, a Assertion) error {
	for _, msg := range alerts {
		if msg == a.Message {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertAlert,
		Expected: a.Message,
		Actual:   fmt.Sprintf("alerts shown: %v", alerts),
	}
}
