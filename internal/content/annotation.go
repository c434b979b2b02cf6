package content

import (
	"fmt"
	"strings"
	"time"
)

// AnnotationType is the closed set of annotation kinds.
type AnnotationType string

const (
	AnnotationExpertNote AnnotationType = "expert-note"
	AnnotationOpinion    AnnotationType = "opinion"
	AnnotationGuidance   AnnotationType = "guidance"
	AnnotationTip        AnnotationType = "tip"
	AnnotationWarning    AnnotationType = "warning"
	AnnotationExample    AnnotationType = "example"
)

// AnnotationTypes lists every valid type in display order.
var AnnotationTypes = []AnnotationType{
	AnnotationExpertNote,
	AnnotationOpinion,
	AnnotationGuidance,
	AnnotationTip,
	AnnotationWarning,
	AnnotationExample,
}

// ParseAnnotationType validates s.
func ParseAnnotationType(s string) (AnnotationType, error) {
	t := AnnotationType(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range AnnotationTypes {
		if t == v {
			return t, nil
		}
	}
	return "", fmt.Errorf("%q: %w", s, ErrInvalidAnnotationType)
}

// Annotation is a user note attached to a section or element key.
type Annotation struct {
	ID        string         `json:"id"`
	Type      AnnotationType `json:"type"`
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	Author    string         `json:"author"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// AnnotationInput is the user-editable part of an annotation.
type AnnotationInput struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Author  string `json:"author"`
}
