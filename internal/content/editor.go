package content

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Editor applies curation operations to products. Every successful
// operation stamps Product.UpdatedAt with the editor's clock; a failed one
// leaves the product untouched.
type Editor struct {
	now   func() time.Time
	newID func() string
}

// EditorOption configures an Editor.
type EditorOption func(*Editor)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) EditorOption {
	return func(e *Editor) { e.now = now }
}

// WithIDGenerator replaces the uuid generator used for annotation ids.
func WithIDGenerator(gen func() string) EditorOption {
	return func(e *Editor) { e.newID = gen }
}

// NewEditor creates an Editor.
func NewEditor(opts ...EditorOption) *Editor {
	e := &Editor{
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Now returns the editor's current time.
func (ed *Editor) Now() time.Time {
	return ed.now()
}

// NewID returns a fresh id.
func (ed *Editor) NewID() string {
	return ed.newID()
}

func (ed *Editor) touch(p *Product) {
	p.UpdatedAt = ed.now()
}

// ToggleElementVisibility flips one element between visible and hidden and
// returns the new hidden state.
func (ed *Editor) ToggleElementVisibility(p *Product, s, e int) (bool, error) {
	el, err := p.element(s, e)
	if err != nil {
		return false, err
	}
	el.Hidden = !el.Hidden
	ed.touch(p)
	return el.Hidden, nil
}

// ToggleSectionVisibility flips a whole section.
func (ed *Editor) ToggleSectionVisibility(p *Product, s int) (bool, error) {
	sec, err := p.section(s)
	if err != nil {
		return false, err
	}
	sec.Hidden = !sec.Hidden
	ed.touch(p)
	return sec.Hidden, nil
}

// UpdateElementField sets one field of an element. The value is stored as
// given, and keys outside the section's fields are allowed.
func (ed *Editor) UpdateElementField(p *Product, s, e int, key, value string) error {
	if key == "" {
		return fmt.Errorf("empty field key: %w", ErrInvalidKey)
	}
	el, err := p.element(s, e)
	if err != nil {
		return err
	}
	if el.Fields == nil {
		el.Fields = map[string]string{}
	}
	el.Fields[key] = value
	ed.touch(p)
	return nil
}

// ReplaceSection swaps in a regenerated section. Element-level
// annotations, dissections and follow-ups of section s are dropped, since
// their positional keys would now address different elements. Entries
// under SectionKey(s) are kept.
func (ed *Editor) ReplaceSection(p *Product, s int, sec ProductSection) error {
	if _, err := p.section(s); err != nil {
		return err
	}
	p.Sections[s] = sec
	dropElementKeys(p.Annotations, s)
	dropElementKeys(p.Dissections, s)
	dropElementKeys(p.DeeperQuestions, s)
	ed.touch(p)
	return nil
}

// dropElementKeys deletes every key of m addressing an element of section s.
func dropElementKeys[V any](m map[string]V, s int) {
	for key := range m {
		k, err := ParseKey(key)
		if err == nil && k.Section == s && k.Element >= 0 {
			delete(m, key)
		}
	}
}

// SetBranding replaces the product's branding.
func (ed *Editor) SetBranding(p *Product, b Branding) {
	p.Branding = b
	ed.touch(p)
}

// AddAnnotation appends a new annotation under key with a fresh id.
func (ed *Editor) AddAnnotation(p *Product, key string, in AnnotationInput) (Annotation, error) {
	if err := p.CheckKey(key); err != nil {
		return Annotation{}, err
	}
	typ, err := ParseAnnotationType(in.Type)
	if err != nil {
		return Annotation{}, err
	}
	now := ed.now()
	a := Annotation{
		ID:        ed.newID(),
		Type:      typ,
		Title:     in.Title,
		Content:   in.Content,
		Author:    in.Author,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if p.Annotations == nil {
		p.Annotations = map[string][]Annotation{}
	}
	p.Annotations[key] = append(p.Annotations[key], a)
	p.UpdatedAt = now
	return a, nil
}

// UpdateAnnotation rewrites the editable fields of an annotation, keeping
// its id and creation time. An empty type keeps the current one.
func (ed *Editor) UpdateAnnotation(p *Product, key, id string, in AnnotationInput) (Annotation, error) {
	var typ AnnotationType
	if in.Type != "" {
		t, err := ParseAnnotationType(in.Type)
		if err != nil {
			return Annotation{}, err
		}
		typ = t
	}
	list := p.Annotations[key]
	for i := range list {
		if list[i].ID != id {
			continue
		}
		now := ed.now()
		if typ != "" {
			list[i].Type = typ
		}
		list[i].Title = in.Title
		list[i].Content = in.Content
		list[i].Author = in.Author
		list[i].UpdatedAt = now
		p.UpdatedAt = now
		return list[i], nil
	}
	return Annotation{}, fmt.Errorf("annotation %s under %s: %w", id, key, ErrAnnotationNotFound)
}

// DeleteAnnotation removes an annotation by id. A missing id is a no-op and
// reports false.
func (ed *Editor) DeleteAnnotation(p *Product, key, id string) bool {
	list := p.Annotations[key]
	for i := range list {
		if list[i].ID != id {
			continue
		}
		list = append(list[:i:i], list[i+1:]...)
		if len(list) == 0 {
			delete(p.Annotations, key)
		} else {
			p.Annotations[key] = list
		}
		ed.touch(p)
		return true
	}
	return false
}

// AttachDissection stores data under key, replacing any previous dissection.
func (ed *Editor) AttachDissection(p *Product, key string, data DissectionData) error {
	if err := p.CheckKey(key); err != nil {
		return err
	}
	if p.Dissections == nil {
		p.Dissections = map[string]DissectionData{}
	}
	p.Dissections[key] = data
	ed.touch(p)
	return nil
}

// AttachDeeper stores follow-up questions for element (pIndex, qIndex),
// replacing any previous set.
func (ed *Editor) AttachDeeper(p *Product, pIndex, qIndex int, data DeeperData) error {
	if _, err := p.element(pIndex, qIndex); err != nil {
		return err
	}
	if p.DeeperQuestions == nil {
		p.DeeperQuestions = map[string]DeeperData{}
	}
	p.DeeperQuestions[DeeperKey(pIndex, qIndex)] = data
	ed.touch(p)
	return nil
}
