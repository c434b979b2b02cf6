package providers

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseStructuredJSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "plain", in: `{"a":1}`, want: `{"a":1}`},
		{name: "code fence", in: "```json\n{\"a\": 1}\n```", want: `{"a":1}`},
		{name: "surrounding text", in: "Here you go: {\"a\":1} hope that helps", want: `{"a":1}`},
		{name: "array", in: "[1, 2]", want: `[1,2]`},
		{name: "garbage", in: "no json here", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStructuredJSON(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %s", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseStructuredJSON() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}

	if _, err := ParseStructuredJSON("   "); !errors.Is(err, ErrEmptyStructuredOutput) {
		t.Errorf("empty input error = %v, want ErrEmptyStructuredOutput", err)
	}
}

func TestCompileAndValidate(t *testing.T) {
	wrapped := json.RawMessage(`{
		"name": "out",
		"strict": true,
		"schema": {
			"type": "object",
			"properties": {"q": {"type": "string"}},
			"required": ["q"],
			"additionalProperties": false
		}
	}`)
	schema, err := CompileSchema(wrapped)
	if err != nil {
		t.Fatalf("CompileSchema() error = %v", err)
	}
	if err := ValidateStructuredJSON(schema, json.RawMessage(`{"q":"why?"}`)); err != nil {
		t.Errorf("valid document rejected: %v", err)
	}
	if err := ValidateStructuredJSON(schema, json.RawMessage(`{"q":1}`)); err == nil {
		t.Error("wrong type accepted")
	}
	if err := ValidateStructuredJSON(schema, json.RawMessage(`{"q":"x","extra":"y"}`)); err == nil {
		t.Error("additional property accepted")
	}

	if name := schemaName(wrapped); name != "out" {
		t.Errorf("schemaName() = %q", name)
	}
	if name := schemaName(json.RawMessage(`{"type":"object"}`)); name != "output" {
		t.Errorf("schemaName() default = %q", name)
	}
}
