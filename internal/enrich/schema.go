package enrich

import (
	"sort"

	"github.com/jackzampolin/folio/internal/section"
)

func object(props map[string]any) map[string]any {
	required := make([]string, 0, len(props))
	for k := range props {
		required = append(required, k)
	}
	sort.Strings(required)
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

func arrayOf(item map[string]any) map[string]any {
	return map[string]any{"type": "array", "items": item}
}

var (
	str     = map[string]any{"type": "string"}
	integer = map[string]any{"type": "integer"}
	boolean = map[string]any{"type": "boolean"}
)

// DissectionSchema constrains dissection output to content.DissectionData.
var DissectionSchema = section.WrapSchema("dissection_output", object(map[string]any{
	"thinkingFramework": arrayOf(object(map[string]any{
		"step":        integer,
		"title":       str,
		"description": str,
	})),
	"checklist": arrayOf(object(map[string]any{
		"item":        str,
		"description": str,
		"isRequired":  boolean,
	})),
	"resources": arrayOf(object(map[string]any{
		"title":       str,
		"type":        str,
		"url":         str,
		"description": str,
	})),
	"keyInsight": str,
}))

var followUp = object(map[string]any{
	"question":  str,
	"reasoning": str,
})

// DeeperSchema constrains follow-up output to content.DeeperData.
var DeeperSchema = section.WrapSchema("deeper_output", object(map[string]any{
	"secondOrder": arrayOf(followUp),
	"thirdOrder":  arrayOf(followUp),
}))
