package config

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

// schemaSource constrains a Config after encoding. Durations encode as
// integer nanoseconds.
const schemaSource = `
#Config: {
	command_queue_size: int & >=1
	request_queue_size: int & >=1
	response_delay:     int & >=0
	expiration:         int & >=0
	retry:              int & >=0
	method:             "GET" | "POST"
	mode:               "asynchronous" | "synchronous"
	uri:                string
	content_type:       string
	headers?:           null | {[string]: string}
}
`

// ValidationError reports every schema violation found in a Config.
type ValidationError struct {
	Details string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return "invalid config: " + e.Details
}

// Validate checks cfg against the CUE schema.
func Validate(cfg Config) error {
	ctx := cuecontext.New()

	schemaFile := ctx.CompileString(schemaSource, cue.Filename("config.cue"))
	if err := schemaFile.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	schema := schemaFile.LookupPath(cue.ParsePath("#Config"))

	value := ctx.Encode(cfg)
	if err := value.Err(); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	unified := schema.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return &ValidationError{Details: strings.TrimSpace(cueerrors.Details(err, nil))}
	}
	return nil
}
