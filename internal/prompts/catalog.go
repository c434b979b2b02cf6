package prompts

import (
	"errors"
	"sort"
	"strings"
)

// ErrUnknownKind is returned when an output type is not in the catalog.
var ErrUnknownKind = errors.New("unknown output type")

// Kind is one output type: its default drivers, default fields and the
// wording of its default template.
type Kind struct {
	Name           string      `json:"name"`
	Title          string      `json:"title"`
	SectionLabel   string      `json:"sectionLabel"`
	Role           string      `json:"role"`
	Task           string      `json:"task"` // may reference {driver} and {label}
	Guidelines     []string    `json:"guidelines"`
	DefaultFields  []FieldSpec `json:"defaultFields"`
	DefaultDrivers []Driver    `json:"defaultDrivers"`
}

var catalog = map[string]*Kind{
	"questions": {
		Name:         "questions",
		Title:        "Question Book",
		SectionLabel: "perspective",
		Role:         "You are a senior advisor preparing a discovery conversation with a client stakeholder.",
		Task:         "Write the questions a seasoned advisor would ask from the {driver} {label}, tailored to the context below.",
		Guidelines: []string{
			"Only include questions that are genuinely relevant to this context; return an empty elements list if the {label} does not apply.",
			"Each question must be open-ended and answerable by the stakeholder described.",
			"Explain why each question matters and what a strong answer sounds like.",
			"Avoid generic questions that would fit any organisation.",
			"Return between 3 and 7 questions.",
		},
		DefaultFields: []FieldSpec{
			{Key: "question", Label: "Question", Primary: true},
			{Key: "rationale", Label: "Why it matters"},
			{Key: "listenFor", Label: "What to listen for"},
		},
		DefaultDrivers: []Driver{
			{Name: "Strategic", Description: "Direction, priorities and how the stakeholder's goals tie to the business."},
			{Name: "Operational", Description: "Day-to-day processes, tooling, bottlenecks and ownership."},
			{Name: "Financial", Description: "Budgets, cost drivers, investment cases and measurable returns."},
			{Name: "Risk & Compliance", Description: "Threats, regulatory obligations, audit exposure and risk appetite."},
			{Name: "People & Culture", Description: "Team capability, change readiness, incentives and politics."},
		},
	},
	"checklist": {
		Name:         "checklist",
		Title:        "Checklist",
		SectionLabel: "phase",
		Role:         "You are a delivery lead writing a practical checklist for a team about to do this work.",
		Task:         "List the checklist items for the {driver} {label}, tailored to the context below.",
		Guidelines: []string{
			"Only include items that apply to this context; return an empty elements list if the {label} does not apply.",
			"Each item must be a concrete, verifiable action.",
			"Mark the priority as high, medium or low.",
			"Keep descriptions to one or two sentences.",
		},
		DefaultFields: []FieldSpec{
			{Key: "item", Label: "Item", Primary: true},
			{Key: "description", Label: "Description"},
			{Key: "priority", Label: "Priority"},
		},
		DefaultDrivers: []Driver{
			{Name: "Preparation", Description: "Everything that must be true before work starts."},
			{Name: "Execution", Description: "Steps and controls while the work is underway."},
			{Name: "Verification", Description: "How the outcome is tested and signed off."},
			{Name: "Handover", Description: "Documentation, training and ongoing ownership."},
		},
	},
	"playbook": {
		Name:         "playbook",
		Title:        "Playbook",
		SectionLabel: "play category",
		Role:         "You are a practitioner codifying repeatable plays for a team facing this situation.",
		Task:         "Describe the plays in the {driver} {label} that fit the context below.",
		Guidelines: []string{
			"Only include plays that fit this context; return an empty elements list if the {label} does not apply.",
			"Each play needs a clear trigger, objective and owner.",
			"Steps should be short and ordered.",
			"Prefer plays that can be run within a week.",
		},
		DefaultFields: []FieldSpec{
			{Key: "play", Label: "Play", Primary: true},
			{Key: "trigger", Label: "When to run it"},
			{Key: "objective", Label: "Objective"},
			{Key: "steps", Label: "Steps"},
			{Key: "owner", Label: "Owner"},
		},
		DefaultDrivers: []Driver{
			{Name: "Quick Wins", Description: "Low-effort plays that show value fast."},
			{Name: "Risk Reduction", Description: "Plays that close exposure or prevent incidents."},
			{Name: "Stakeholder Alignment", Description: "Plays that build support and shared understanding."},
			{Name: "Scale & Sustain", Description: "Plays that make improvements stick."},
		},
	},
	"dossier": {
		Name:         "dossier",
		Title:        "Dossier",
		SectionLabel: "category",
		Role:         "You are an analyst preparing a briefing dossier ahead of an important meeting.",
		Task:         "Summarise what matters in the {driver} {label} for the context below.",
		Guidelines: []string{
			"Only include findings relevant to this context; return an empty elements list if the {label} does not apply.",
			"Each finding must be specific and state its implication.",
			"Flag uncertainty explicitly rather than guessing.",
		},
		DefaultFields: []FieldSpec{
			{Key: "topic", Label: "Topic", Primary: true},
			{Key: "summary", Label: "Summary"},
			{Key: "implication", Label: "Implication"},
		},
		DefaultDrivers: []Driver{
			{Name: "Market", Description: "Competitive landscape, trends and customer pressure."},
			{Name: "Organisation", Description: "Structure, leadership, recent changes and priorities."},
			{Name: "Technology", Description: "Platforms, architecture, vendors and technical debt."},
			{Name: "Regulation", Description: "Rules, standards and enforcement relevant to the sector."},
		},
	},
}

// LookupKind returns the catalog entry for an output type.
func LookupKind(name string) (*Kind, error) {
	k, ok := catalog[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, ErrUnknownKind
	}
	return k, nil
}

// Kinds returns all catalog entries sorted by name.
func Kinds() []*Kind {
	out := make([]*Kind, 0, len(catalog))
	for _, k := range catalog {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Label returns the section label to use, preferring an explicit one.
func (k *Kind) Label(explicit string) string {
	if l := CollapseWhitespace(explicit); l != "" {
		return l
	}
	return k.SectionLabel
}
