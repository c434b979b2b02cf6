// Package prompts assembles the natural-language instructions sent to the LLM
// for one generation unit.
//
// A prompt is built from four inputs:
//   - free-form context key/value pairs supplied by the user
//   - one Driver, the analytical dimension the unit covers
//   - optional InstructionDirectives that replace the built-in template
//   - optional FieldSpec overrides when drivers carry their own output fields
//
// Assembly is pure: identical inputs always produce byte-identical prompts.
package prompts

// FieldType is the closed set of element field shapes.
type FieldType string

const (
	// FieldText is a plain string value. It is the default when Type is empty.
	FieldText FieldType = "text"
	// FieldTable is a list of rows, each row a map of column -> string.
	FieldTable FieldType = "table"
)

// FieldSpec describes one output field an element must contain.
type FieldSpec struct {
	Key     string    `json:"key"`
	Label   string    `json:"label"`
	Type    FieldType `json:"type,omitempty"`
	Columns []string  `json:"columns,omitempty"`
	Primary bool      `json:"primary,omitempty"`
}

// Kind returns the effective field type.
func (f FieldSpec) Kind() FieldType {
	if f.Type == "" {
		return FieldText
	}
	return f.Type
}

// Driver is one independently generated dimension (perspective, phase, category).
type Driver struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Fields      []FieldSpec `json:"fields,omitempty"`
}

// InstructionDirective is one canned rule injected into the prompt in order.
type InstructionDirective struct {
	Label   string `json:"label"`
	Content string `json:"content"`
}

// Request holds everything needed to assemble the prompt for one driver.
type Request struct {
	Context        map[string]string
	Driver         Driver
	SectionLabel   string
	Directives     []InstructionDirective
	FieldOverrides []FieldSpec
}

// PrimaryField returns the field used as the display title, falling back
// to the first field when none is marked primary.
func PrimaryField(fields []FieldSpec) (FieldSpec, bool) {
	for _, f := range fields {
		if f.Primary {
			return f, true
		}
	}
	if len(fields) > 0 {
		return fields[0], true
	}
	return FieldSpec{}, false
}
