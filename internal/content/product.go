// Package content is the persisted shape of a generated product and the
// curation operations applied to it after generation.
package content

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackzampolin/folio/internal/prompts"
	"github.com/jackzampolin/folio/internal/section"
)

var (
	ErrNoSections            = errors.New("product has no sections")
	ErrIndexOutOfRange       = errors.New("index out of range")
	ErrAnnotationNotFound    = errors.New("annotation not found")
	ErrInvalidAnnotationType = errors.New("invalid annotation type")
	ErrInvalidKey            = errors.New("invalid key")
	ErrInvalidQuestionOrder  = errors.New("question order must be 2 or 3")
)

// ProductElement is one generated item plus its curation state.
type ProductElement struct {
	Fields map[string]string `json:"fields"`
	Hidden bool              `json:"hidden,omitempty"`
}

// ProductSection is one driver's persisted output.
type ProductSection struct {
	Name           string              `json:"name"`
	Description    string              `json:"description"`
	Elements       []ProductElement    `json:"elements"`
	Hidden         bool                `json:"hidden,omitempty"`
	ResolvedFields []prompts.FieldSpec `json:"resolvedFields,omitempty"`
}

// FromSection converts generator output into its persisted form. Every
// element starts visible.
func FromSection(s section.Section) ProductSection {
	ps := ProductSection{
		Name:           s.SectionName,
		Description:    s.SectionDescription,
		Elements:       make([]ProductElement, len(s.Elements)),
		ResolvedFields: s.ResolvedFields,
	}
	for i, el := range s.Elements {
		fields := make(map[string]string, len(el))
		for k, v := range el {
			fields[k] = v
		}
		ps.Elements[i] = ProductElement{Fields: fields}
	}
	return ps
}

// FrameworkStep is one step of a dissection's thinking framework.
type FrameworkStep struct {
	Step        int    `json:"step"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ChecklistItem is one dissection checklist entry.
type ChecklistItem struct {
	Item        string `json:"item"`
	Description string `json:"description"`
	IsRequired  bool   `json:"isRequired"`
}

// Resource is a reference suggested by a dissection.
type Resource struct {
	Title       string `json:"title"`
	Type        string `json:"type"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// DissectionData is a deep dive on one element. At most one per key.
type DissectionData struct {
	ThinkingFramework []FrameworkStep `json:"thinkingFramework"`
	Checklist         []ChecklistItem `json:"checklist"`
	Resources         []Resource      `json:"resources"`
	KeyInsight        string          `json:"keyInsight"`
}

// FollowUp is a derived question and the reasoning behind it.
type FollowUp struct {
	Question  string `json:"question"`
	Reasoning string `json:"reasoning"`
}

// DeeperData holds second- and third-order follow-ups for one question.
type DeeperData struct {
	SecondOrder []FollowUp `json:"secondOrder"`
	ThirdOrder  []FollowUp `json:"thirdOrder"`
}

// Branding is presentation metadata. It has no effect on generation.
type Branding struct {
	CompanyName  string `json:"companyName,omitempty"`
	LogoURL      string `json:"logoUrl,omitempty"`
	PrimaryColor string `json:"primaryColor,omitempty"`
	AccentColor  string `json:"accentColor,omitempty"`
	Footer       string `json:"footer,omitempty"`
}

// Product is the top-level aggregate.
type Product struct {
	ID         string            `json:"id"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
	Title      string            `json:"title"`
	OutputType string            `json:"outputType"`
	Context    map[string]string `json:"context"`

	// Denormalized from Context for listing.
	Role      string `json:"role,omitempty"`
	Industry  string `json:"industry,omitempty"`
	Service   string `json:"service,omitempty"`
	Situation string `json:"situation,omitempty"`

	SectionLabel string                         `json:"sectionLabel,omitempty"`
	Drivers      []prompts.Driver               `json:"drivers,omitempty"`
	Directives   []prompts.InstructionDirective `json:"directives,omitempty"`

	Sections        []ProductSection          `json:"sections"`
	Dissections     map[string]DissectionData `json:"dissections"`
	DeeperQuestions map[string]DeeperData     `json:"deeperQuestions"`
	Annotations     map[string][]Annotation   `json:"annotations"`
	Branding        Branding                  `json:"branding"`
}

// Params is everything NewProduct needs besides identity and time.
type Params struct {
	Title        string
	OutputType   string
	Context      map[string]string
	SectionLabel string
	Drivers      []prompts.Driver
	Directives   []prompts.InstructionDirective
	Sections     []section.Section
}

// NewProduct builds a product from a finished batch. A batch with no
// sections never becomes a product.
func NewProduct(id string, now time.Time, p Params) (*Product, error) {
	if len(p.Sections) == 0 {
		return nil, ErrNoSections
	}
	ctx := make(map[string]string, len(p.Context))
	for k, v := range p.Context {
		ctx[k] = v
	}
	prod := &Product{
		ID:              id,
		CreatedAt:       now,
		UpdatedAt:       now,
		Title:           p.Title,
		OutputType:      p.OutputType,
		Context:         ctx,
		Role:            ctx["role"],
		Industry:        ctx["industry"],
		Service:         ctx["service"],
		Situation:       ctx["situation"],
		SectionLabel:    p.SectionLabel,
		Drivers:         p.Drivers,
		Directives:      p.Directives,
		Sections:        make([]ProductSection, len(p.Sections)),
		Dissections:     map[string]DissectionData{},
		DeeperQuestions: map[string]DeeperData{},
		Annotations:     map[string][]Annotation{},
	}
	for i, s := range p.Sections {
		prod.Sections[i] = FromSection(s)
	}
	if prod.Title == "" {
		prod.Title = defaultTitle(p.OutputType, ctx)
	}
	return prod, nil
}

func defaultTitle(outputType string, ctx map[string]string) string {
	var parts []string
	for _, k := range []string{"role", "industry"} {
		if v := strings.TrimSpace(ctx[k]); v != "" {
			parts = append(parts, v)
		}
	}
	name := prompts.HumanizeKey(outputType)
	if len(parts) == 0 {
		return name
	}
	return fmt.Sprintf("%s: %s", name, strings.Join(parts, ", "))
}

// Stats counts sections and elements, including hidden ones.
type Stats struct {
	Sections       int `json:"sections"`
	HiddenSections int `json:"hiddenSections"`
	Elements       int `json:"elements"`
	HiddenElements int `json:"hiddenElements"`
	Annotations    int `json:"annotations"`
	Dissections    int `json:"dissections"`
}

// Stats reports counts for listing and status output.
func (p *Product) Stats() Stats {
	st := Stats{Sections: len(p.Sections), Dissections: len(p.Dissections)}
	for _, s := range p.Sections {
		if s.Hidden {
			st.HiddenSections++
		}
		for _, el := range s.Elements {
			st.Elements++
			if el.Hidden {
				st.HiddenElements++
			}
		}
	}
	for _, list := range p.Annotations {
		st.Annotations += len(list)
	}
	return st
}

// VisibleSections returns copies of the non-hidden sections with hidden
// elements removed. Sections left with no visible elements are dropped.
func (p *Product) VisibleSections() []ProductSection {
	out := make([]ProductSection, 0, len(p.Sections))
	for _, s := range p.Sections {
		if s.Hidden {
			continue
		}
		vis := s
		vis.Elements = make([]ProductElement, 0, len(s.Elements))
		for _, el := range s.Elements {
			if !el.Hidden {
				vis.Elements = append(vis.Elements, el)
			}
		}
		if len(vis.Elements) > 0 {
			out = append(out, vis)
		}
	}
	return out
}

func (p *Product) section(s int) (*ProductSection, error) {
	if s < 0 || s >= len(p.Sections) {
		return nil, fmt.Errorf("section %d of %d: %w", s, len(p.Sections), ErrIndexOutOfRange)
	}
	return &p.Sections[s], nil
}

func (p *Product) element(s, e int) (*ProductElement, error) {
	sec, err := p.section(s)
	if err != nil {
		return nil, err
	}
	if e < 0 || e >= len(sec.Elements) {
		return nil, fmt.Errorf("element %d of section %d: %w", e, s, ErrIndexOutOfRange)
	}
	return &sec.Elements[e], nil
}
