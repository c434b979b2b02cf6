package prompts

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateDrivers(t *testing.T) {
	tests := []struct {
		name    string
		drivers []Driver
		wantErr string
	}{
		{name: "valid", drivers: []Driver{{Name: "A"}, {Name: "B"}}},
		{name: "empty list", drivers: nil, wantErr: "at least one section driver"},
		{name: "blank name", drivers: []Driver{{Name: " "}}, wantErr: "name is required"},
		{name: "duplicate after collapse", drivers: []Driver{{Name: "Risk  Ops"}, {Name: "Risk Ops"}}, wantErr: "duplicate name"},
		{
			name:    "bad per-driver fields",
			drivers: []Driver{{Name: "A", Fields: []FieldSpec{{Key: "x", Type: FieldTable}}}},
			wantErr: "sectionDrivers[0].fields",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDrivers(tt.drivers)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("ValidateDrivers() error = %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("ValidateDrivers() error = %v, want *ValidationError", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateFields(t *testing.T) {
	tests := []struct {
		name    string
		fields  []FieldSpec
		wantErr string
	}{
		{name: "valid", fields: []FieldSpec{{Key: "q", Primary: true}, {Key: "t", Type: FieldTable, Columns: []string{"a"}}}},
		{name: "missing key", fields: []FieldSpec{{Label: "Q"}}, wantErr: "key is required"},
		{name: "duplicate key", fields: []FieldSpec{{Key: "q"}, {Key: "q"}}, wantErr: "duplicate key"},
		{name: "unknown type", fields: []FieldSpec{{Key: "q", Type: "image"}}, wantErr: "unknown type"},
		{name: "table without columns", fields: []FieldSpec{{Key: "t", Type: FieldTable}}, wantErr: "needs at least one column"},
		{name: "columns on text", fields: []FieldSpec{{Key: "q", Columns: []string{"a"}}}, wantErr: "only valid on table"},
		{name: "two primaries", fields: []FieldSpec{{Key: "a", Primary: true}, {Key: "b", Primary: true}}, wantErr: "at most one field"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFields(tt.fields)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("ValidateFields() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ValidateFields() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateDirectives(t *testing.T) {
	if err := ValidateDirectives(nil); err != nil {
		t.Errorf("nil directives should be valid, got %v", err)
	}
	err := ValidateDirectives([]InstructionDirective{{Label: "Role"}, {Content: "x"}})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if len(verr.Problems) != 2 {
		t.Errorf("got %d problems, want 2: %v", len(verr.Problems), verr.Problems)
	}
}

func TestPrimaryField(t *testing.T) {
	f, ok := PrimaryField([]FieldSpec{{Key: "a"}, {Key: "b", Primary: true}})
	if !ok || f.Key != "b" {
		t.Errorf("PrimaryField() = %v, %v; want b", f, ok)
	}
	f, ok = PrimaryField([]FieldSpec{{Key: "a"}})
	if !ok || f.Key != "a" {
		t.Errorf("PrimaryField() fallback = %v, %v; want a", f, ok)
	}
	if _, ok := PrimaryField(nil); ok {
		t.Error("PrimaryField(nil) should report false")
	}
}
