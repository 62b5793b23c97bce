package harness

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario is a scripted run of the engine.
type Scenario struct {
	// Name uniquely identifies this scenario; it also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config is decoded over the engine defaults.
	Config yaml.Node `yaml:"config,omitempty"`

	// DOM seeds the memory document: node id to attribute values.
	DOM map[string]map[string]string `yaml:"dom,omitempty"`

	// Components maps "name/item" to the id of the node it renders.
	Components map[string]string `yaml:"components,omitempty"`

	// Conditions scripts script.wait.for: each Eval of an expression takes
	// the next answer, and the last one repeats.
	Conditions map[string][]bool `yaml:"conditions,omitempty"`

	// StylesPending is how many css.wait checks report "not loaded" before
	// the stylesheets count as loaded.
	StylesPending int `yaml:"styles_pending,omitempty"`

	Steps []Step `yaml:"steps"`

	// ExpectTrace, when set, must equal the full trace line by line.
	ExpectTrace []string `yaml:"expect_trace,omitempty"`

	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one scripted action. Exactly one field is set.
type Step struct {
	Issue   *IssueStep `yaml:"issue,omitempty"`
	Reply   *ReplyStep `yaml:"reply,omitempty"`
	Fail    *FailStep  `yaml:"fail,omitempty"`
	Advance string     `yaml:"advance,omitempty"`
	Answer  string     `yaml:"answer,omitempty"`
	Abort   string     `yaml:"abort,omitempty"`
}

// IssueStep issues a call.
type IssueStep struct {
	Function string `yaml:"function,omitempty"`
	Class    string `yaml:"class,omitempty"`
	Method   string `yaml:"method,omitempty"`
	Params   []any  `yaml:"params,omitempty"`

	// Mode overrides the configured mode.
	Mode string `yaml:"mode,omitempty"`

	// Retry overrides the configured network retry count.
	Retry *int `yaml:"retry,omitempty"`
}

// ReplyStep delivers a reply to a sent request. Body wins over Commands.
type ReplyStep struct {
	Request  string `yaml:"request"`
	Status   int    `yaml:"status,omitempty"`
	Location string `yaml:"location,omitempty"`
	Body     string `yaml:"body,omitempty"`
	Commands []any  `yaml:"commands,omitempty"`
	Debug    string `yaml:"debug,omitempty"`
}

// FailStep reports a network failure for a sent request.
type FailStep struct {
	Request string `yaml:"request"`
	Error   string `yaml:"error,omitempty"`
}

// Assertion validates the trace or the final page state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Line is the trace line for trace_contains and trace_count.
	Line string `yaml:"line,omitempty"`

	// Lines is the expected order for trace_order.
	Lines []string `yaml:"lines,omitempty"`

	Count int `yaml:"count,omitempty"`

	// Node, Attr and Value are used by dom.
	Node  string `yaml:"node,omitempty"`
	Attr  string `yaml:"attr,omitempty"`
	Value string `yaml:"value,omitempty"`

	// Message is used by alert.
	Message string `yaml:"message,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertDOM           = "dom"
	AssertAlert         = "alert"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if s.StylesPending < 0 {
		return fmt.Errorf("styles_pending must be non-negative")
	}

	for i, step := range s.Steps {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(step Step) error {
	set := 0
	if step.Issue != nil {
		set++
		if step.Issue.Function == "" && (step.Issue.Class == "" || step.Issue.Method == "") {
			return fmt.Errorf("issue: function or class and method are required")
		}
		switch step.Issue.Mode {
		case "", "synchronous", "asynchronous":
		default:
			return fmt.Errorf("issue: unknown mode %q", step.Issue.Mode)
		}
	}
	if step.Reply != nil {
		set++
		if step.Reply.Request == "" {
			return fmt.Errorf("reply: request is required")
		}
	}
	if step.Fail != nil {
		set++
		if step.Fail.Request == "" {
			return fmt.Errorf("fail: request is required")
		}
	}
	if step.Advance != "" {
		set++
		if _, err := time.ParseDuration(step.Advance); err != nil {
			return fmt.Errorf("advance: %w", err)
		}
	}
	if step.Answer != "" {
		set++
		switch strings.ToLower(step.Answer) {
		case "yes", "no":
		default:
			return fmt.Errorf("answer: must be yes or no, got %q", step.Answer)
		}
	}
	if step.Abort != "" {
		set++
	}

	if set != 1 {
		return fmt.Errorf("exactly one action is required, got %d", set)
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Line == "" {
			return fmt.Errorf("assertions[%d]: line is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Lines) == 0 {
			return fmt.Errorf("assertions[%d]: lines list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Line == "" {
			return fmt.Errorf("assertions[%d]: line is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertDOM:
		if a.Node == "" || a.Attr == "" {
			return fmt.Errorf("assertions[%d]: node and attr are required for dom", index)
		}
	case AssertAlert:
		if a.Message == "" {
			return fmt.Errorf("assertions[%d]: message is required for alert", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
