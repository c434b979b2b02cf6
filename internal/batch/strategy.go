package batch

import "github.com/jackzampolin/folio/internal/prompts"

// FieldStrategy resolves the output fields for one driver.
type FieldStrategy func(d prompts.Driver, defaults []prompts.FieldSpec) []prompts.FieldSpec

// UniformFields gives every driver the batch defaults.
func UniformFields(_ prompts.Driver, defaults []prompts.FieldSpec) []prompts.FieldSpec {
	return defaults
}

// PerDriverFields uses a driver's own fields when it defines any.
func PerDriverFields(d prompts.Driver, defaults []prompts.FieldSpec) []prompts.FieldSpec {
	if len(d.Fields) > 0 {
		return d.Fields
	}
	return defaults
}

// StrategyFor picks PerDriverFields when any driver carries its own fields,
// UniformFields otherwise. The second result reports per-driver mode.
func StrategyFor(drivers []prompts.Driver) (FieldStrategy, bool) {
	for _, d := range drivers {
		if len(d.Fields) > 0 {
			return PerDriverFields, true
		}
	}
	return UniformFields, false
}
