// Package section generates one section of a product: a single
// schema-constrained LLM call for one driver.
//
// Generate never returns a Go error. The result is an Outcome that holds
// either a Section or a *GenerationError naming the driver, so callers
// branch on the value instead of recovering from failures.
package section

import (
	"errors"
	"fmt"

	"github.com/jackzampolin/folio/internal/metrics"
	"github.com/jackzampolin/folio/internal/prompts"
)

// Element is one generated item: field key -> string value. Table fields
// hold a compact JSON array of row objects.
type Element map[string]string

// Section is the generation-time output for one driver.
type Section struct {
	SectionName        string              `json:"sectionName"`
	SectionDescription string              `json:"sectionDescription"`
	Elements           []Element           `json:"elements"`
	ResolvedFields     []prompts.FieldSpec `json:"resolvedFields,omitempty"`
}

// Empty reports whether the driver produced nothing.
func (s *Section) Empty() bool {
	return s == nil || len(s.Elements) == 0
}

// Placeholder is the empty section that stands in for a failed driver.
func Placeholder(d prompts.Driver) Section {
	return Section{
		SectionName:        d.Name,
		SectionDescription: d.Description,
		Elements:           []Element{},
	}
}

// ErrorKind classifies a generation failure.
type ErrorKind string

const (
	KindTransport ErrorKind = "transport" // request never produced a response
	KindTimeout   ErrorKind = "timeout"
	KindProvider  ErrorKind = "provider" // provider answered with an error
	KindParse     ErrorKind = "parse"    // response was not JSON
	KindSchema    ErrorKind = "schema"   // JSON did not match the schema
	KindPrompt    ErrorKind = "prompt"   // prompt could not be assembled
)

// GenerationError is a failed unit. It carries the driver name.
type GenerationError struct {
	Driver string
	Kind   ErrorKind
	Err    error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate %q: %s: %v", e.Driver, e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// AsGenerationError extracts a *GenerationError from err.
func AsGenerationError(err error) (*GenerationError, bool) {
	var gerr *GenerationError
	ok := errors.As(err, &gerr)
	return gerr, ok
}

// Unit is one generation request: a driver, its assembled prompt, and the
// fields its schema is derived from.
type Unit struct {
	Driver  prompts.Driver
	Prompt  string
	Fields  []prompts.FieldSpec
	BatchID string
	Kind    string // output type, used as the debug prompt key suffix
}

// Outcome is the result of one unit. Exactly one of Section and Err is set.
// Usage is whatever the provider reported, even when the output was rejected.
type Outcome struct {
	Driver  string
	Section *Section
	Usage   metrics.Usage
	Model   string
	Err     *GenerationError
}

// OK reports whether the unit produced a valid section.
func (o Outcome) OK() bool {
	return o.Err == nil && o.Section != nil
}
