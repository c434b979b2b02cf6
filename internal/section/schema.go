package section

import (
	"encoding/json"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/jackzampolin/folio/internal/prompts"
	"github.com/jackzampolin/folio/internal/providers"
)

// SchemaName is the wrapper name sent with section requests.
const SchemaName = "section_output"

// BuildSchema derives the section output schema from a field list. Every
// field is a required string property of each element; table fields are
// arrays of row objects with one required string property per column.
// The result uses the {name, strict, schema} wrapper.
func BuildSchema(fields []prompts.FieldSpec) json.RawMessage {
	return wrap(SchemaName, map[string]any{
		"type": "object",
		"properties": map[string]any{
			"sectionName":        map[string]any{"type": "string"},
			"sectionDescription": map[string]any{"type": "string"},
			"elements": map[string]any{
				"type":  "array",
				"items": ElementSchema(fields),
			},
		},
		"required":             []string{"sectionName", "sectionDescription", "elements"},
		"additionalProperties": false,
	})
}

// ElementSchema is the object schema for one element.
func ElementSchema(fields []prompts.FieldSpec) map[string]any {
	props := make(map[string]any, len(fields))
	required := make([]string, 0, len(fields))
	for _, f := range fields {
		required = append(required, f.Key)
		if f.Kind() == prompts.FieldTable {
			props[f.Key] = map[string]any{
				"type":        "array",
				"description": f.Label,
				"items":       stringObject(f.Columns),
			}
			continue
		}
		props[f.Key] = map[string]any{"type": "string", "description": f.Label}
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

func stringObject(keys []string) map[string]any {
	props := make(map[string]any, len(keys))
	for _, k := range keys {
		props[k] = map[string]any{"type": "string"}
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             keys,
		"additionalProperties": false,
	}
}

// wrap marshals a schema into the OpenAI-style wrapper. Map keys marshal
// sorted, so equal field lists give byte-identical schemas.
func wrap(name string, schema map[string]any) json.RawMessage {
	b, err := json.Marshal(map[string]any{
		"name":   name,
		"strict": true,
		"schema": schema,
	})
	if err != nil {
		// Only maps, slices and strings go in; Marshal cannot fail.
		panic(fmt.Sprintf("marshal schema: %v", err))
	}
	return b
}

// WrapSchema is wrap for callers outside the package with fixed schemas.
func WrapSchema(name string, schema map[string]any) json.RawMessage {
	return wrap(name, schema)
}

// SchemaCache keeps compiled schemas keyed by the hash of their source.
// Batches reuse one field list across every driver, so each schema is
// compiled once.
type SchemaCache struct {
	cache *lru.Cache[string, *jsonschema.Schema]
}

// NewSchemaCache creates a cache holding up to size compiled schemas.
func NewSchemaCache(size int) *SchemaCache {
	if size <= 0 {
		size = 256
	}
	c, err := lru.New[string, *jsonschema.Schema](size)
	if err != nil {
		panic(fmt.Sprintf("schema cache: %v", err))
	}
	return &SchemaCache{cache: c}
}

// Get returns the compiled schema for raw, compiling it on first use.
func (c *SchemaCache) Get(raw json.RawMessage) (*jsonschema.Schema, error) {
	key := prompts.HashText(string(raw))
	if s, ok := c.cache.Get(key); ok {
		return s, nil
	}
	s, err := providers.CompileSchema(raw)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, s)
	return s, nil
}

// Len reports how many schemas are cached.
func (c *SchemaCache) Len() int {
	return c.cache.Len()
}
