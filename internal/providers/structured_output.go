package providers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrEmptyStructuredOutput is returned when the model answered with nothing.
var ErrEmptyStructuredOutput = errors.New("empty structured output")

// adaptedResponseFormat returns the provider-side response format for a model.
// OpenRouter may route anthropic/* models to backends that reject
// json_schema, so those get no response_format and a schema instruction in
// the prompt instead; the caller still validates locally.
func adaptedResponseFormat(model string, rf *ResponseFormat) (*openRouterResponseFormat, bool) {
	if rf == nil {
		return nil, false
	}
	if isAnthropicModel(model) {
		return nil, true
	}
	return &openRouterResponseFormat{Type: rf.Type, JSONSchema: rf.JSONSchema}, false
}

func isAnthropicModel(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "anthropic/")
}

// schemaInstruction is appended as a system message when the provider cannot
// enforce the schema itself.
func schemaInstruction(schemaRaw json.RawMessage) string {
	core, err := extractValidationSchema(schemaRaw)
	if err != nil {
		core = schemaRaw
	}
	return "Return ONLY valid JSON (no markdown, no commentary) that strictly conforms to this schema:\n" + string(core)
}

// ParseStructuredJSON parses JSON from model output, with lightweight recovery
// for markdown code fences and surrounding text.
func ParseStructuredJSON(content string) (json.RawMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyStructuredOutput
	}

	candidates := []string{content}
	if stripped := stripCodeFences(content); stripped != "" && stripped != content {
		candidates = append(candidates, stripped)
	}
	if extracted := extractJSONCandidate(content); extracted != "" && extracted != content {
		candidates = append(candidates, extracted)
	}

	for _, candidate := range candidates {
		var parsed any
		if err := json.Unmarshal([]byte(candidate), &parsed); err == nil {
			normalized, mErr := json.Marshal(parsed)
			if mErr != nil {
				return nil, fmt.Errorf("failed to normalize structured output: %w", mErr)
			}
			return normalized, nil
		}
	}
	return nil, fmt.Errorf("failed to parse structured JSON")
}

func stripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return ""
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return ""
	}
	lines = lines[1:]
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func extractJSONCandidate(content string) string {
	trimmed := strings.TrimSpace(content)
	objectStart := strings.Index(trimmed, "{")
	arrayStart := strings.Index(trimmed, "[")

	start, closeChar := -1, ""
	switch {
	case objectStart >= 0 && (arrayStart < 0 || objectStart < arrayStart):
		start, closeChar = objectStart, "}"
	case arrayStart >= 0:
		start, closeChar = arrayStart, "]"
	default:
		return ""
	}

	end := strings.LastIndex(trimmed, closeChar)
	if end < start {
		return ""
	}
	return strings.TrimSpace(trimmed[start : end+1])
}

// CompileSchema compiles a schema document. OpenAI-style wrappers
// ({"name","strict","schema"}) are unwrapped first.
func CompileSchema(schemaRaw json.RawMessage) (*jsonschema.Schema, error) {
	core, err := extractValidationSchema(schemaRaw)
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(core)); err != nil {
		return nil, fmt.Errorf("failed to load structured schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile structured schema: %w", err)
	}
	return schema, nil
}

// ValidateStructuredJSON validates parsed JSON against a compiled schema.
func ValidateStructuredJSON(schema *jsonschema.Schema, parsed json.RawMessage) error {
	var doc any
	if err := json.Unmarshal(parsed, &doc); err != nil {
		return fmt.Errorf("failed to decode structured JSON for validation: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("structured output does not match schema: %w", err)
	}
	return nil
}

func extractValidationSchema(schemaRaw json.RawMessage) (json.RawMessage, error) {
	var root any
	if err := json.Unmarshal(schemaRaw, &root); err != nil {
		return nil, fmt.Errorf("invalid structured schema JSON: %w", err)
	}

	if rootMap, ok := root.(map[string]any); ok {
		// {"name","strict","schema":{...}}
		if inner, ok := rootMap["schema"]; ok {
			return json.Marshal(inner)
		}
		// {"type":"json_schema","json_schema":{"schema":...}}
		if innerMap, ok := rootMap["json_schema"].(map[string]any); ok {
			if innerSchema, ok := innerMap["schema"]; ok {
				return json.Marshal(innerSchema)
			}
		}
	}
	return schemaRaw, nil
}

// schemaName reads the wrapper name, defaulting to "output".
func schemaName(schemaRaw json.RawMessage) string {
	var wrapper struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(schemaRaw, &wrapper); err == nil && wrapper.Name != "" {
		return wrapper.Name
	}
	return "output"
}
