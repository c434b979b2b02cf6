package prompts

import (
	"fmt"
	"strings"
)

// ValidationError reports every problem found in a request's drivers,
// fields or directives. Endpoints map it to 400.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid request: " + e.Problems[0]
	}
	return fmt.Sprintf("invalid request: %d problems: %s", len(e.Problems), strings.Join(e.Problems, "; "))
}

func (e *ValidationError) add(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

func (e *ValidationError) orNil() error {
	if e == nil || len(e.Problems) == 0 {
		return nil
	}
	return e
}

// ValidateDrivers checks that every driver has a name, that names are unique
// within the batch, and that any per-driver fields are well formed.
func ValidateDrivers(drivers []Driver) error {
	verr := &ValidationError{}
	if len(drivers) == 0 {
		verr.add("at least one section driver is required")
		return verr
	}
	seen := make(map[string]int, len(drivers))
	for i, d := range drivers {
		name := CollapseWhitespace(d.Name)
		if name == "" {
			verr.add("sectionDrivers[%d]: name is required", i)
			continue
		}
		if prev, ok := seen[name]; ok {
			verr.add("sectionDrivers[%d]: duplicate name %q (also at %d)", i, name, prev)
		} else {
			seen[name] = i
		}
		if len(d.Fields) > 0 {
			if err := ValidateFields(d.Fields); err != nil {
				for _, p := range err.(*ValidationError).Problems {
					verr.add("sectionDrivers[%d].fields: %s", i, p)
				}
			}
		}
	}
	return verr.orNil()
}

// ValidateFields checks a field list: keys present and unique, known types,
// table fields with columns, at most one primary field.
func ValidateFields(fields []FieldSpec) error {
	verr := &ValidationError{}
	seen := make(map[string]bool, len(fields))
	primaries := 0
	for i, f := range fields {
		key := strings.TrimSpace(f.Key)
		if key == "" {
			verr.add("field[%d]: key is required", i)
		} else if seen[key] {
			verr.add("field[%d]: duplicate key %q", i, key)
		} else {
			seen[key] = true
		}
		switch f.Kind() {
		case FieldText:
			if len(f.Columns) > 0 {
				verr.add("field[%d]: columns are only valid on table fields", i)
			}
		case FieldTable:
			if len(f.Columns) == 0 {
				verr.add("field[%d]: table field %q needs at least one column", i, key)
			}
			for j, c := range f.Columns {
				if strings.TrimSpace(c) == "" {
					verr.add("field[%d]: column %d is empty", i, j)
				}
			}
		default:
			verr.add("field[%d]: unknown type %q", i, f.Type)
		}
		if f.Primary {
			primaries++
		}
	}
	if primaries > 1 {
		verr.add("at most one field may be primary, got %d", primaries)
	}
	return verr.orNil()
}

// ValidateDirectives requires a label and content on every directive.
func ValidateDirectives(directives []InstructionDirective) error {
	verr := &ValidationError{}
	for i, d := range directives {
		if strings.TrimSpace(d.Label) == "" {
			verr.add("instructionDirectives[%d]: label is required", i)
		}
		if strings.TrimSpace(d.Content) == "" {
			verr.add("instructionDirectives[%d]: content is required", i)
		}
	}
	return verr.orNil()
}
