package detect

import (
	"fmt"
	"strings"

	"github.com/platinummonkey/formpilot/internal/ocr"
)

// FieldType is the semantic type inferred for a form field
type FieldType string

const (
	TypeText     FieldType = "TEXT"
	TypeCheckbox FieldType = "CHECKBOX"
	TypeDate     FieldType = "DATE"
	TypeEmail    FieldType = "EMAIL"
	TypePhone    FieldType = "PHONE"
	TypeSelect   FieldType = "SELECT"
)

// ParseFieldType accepts the lowercase spelling used in rule files
func ParseFieldType(s string) (FieldType, error) {
	switch t := FieldType(strings.ToUpper(strings.TrimSpace(s))); t {
	case TypeText, TypeCheckbox, TypeDate, TypeEmail, TypePhone, TypeSelect:
		return t, nil
	default:
		return "", fmt.Errorf("unknown field type %q", s)
	}
}

// Position is where the input area of a field is expected, in page pixels
type Position struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// CandidateField is a probable form field recognized from a text label
type CandidateField struct {
	Name         string        `json:"name"`
	RawLabel     string        `json:"raw_label"`
	Type         FieldType     `json:"type"`
	Position     Position      `json:"position"`
	Confidence   float64       `json:"confidence"`
	Source       ocr.TextBlock `json:"source"`
	ContextHints []string      `json:"context_hints"`
	Translation  string        `json:"translation"`
	ProfilePath  string        `json:"profile_path,omitempty"`
	IsRequired   bool          `json:"is_required"`
}

// HasHint reports whether the candidate carries the given context hint
func (c CandidateField) HasHint(hint string) bool {
	for _, h := range c.ContextHints {
		if h == hint {
			return true
		}
	}
	return false
}
