// Package pdfform reads AcroForm fields out of a PDF and writes mapped values
// back into them using pdfcpu's JSON form export and fill.
package pdfform

import (
	"errors"
	"strings"
)

// ErrNoFormFields is returned when a PDF carries no fillable AcroForm
var ErrNoFormFields = errors.New("pdf has no form fields")

// NativeType is the AcroForm widget type of a field
type NativeType string

// Native field types
const (
	NativeText     NativeType = "TEXT"
	NativeCheckbox NativeType = "CHECKBOX"
	NativeDropdown NativeType = "DROPDOWN"
	NativeRadio    NativeType = "RADIO"
	NativeListbox  NativeType = "LISTBOX"
)

// StructuralField is a form field as declared in the PDF
type StructuralField struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	Type    NativeType `json:"type"`
	Options []string   `json:"options,omitempty"`
	Pages   []int      `json:"pages,omitempty"`
	Value   string     `json:"value,omitempty"`
	Locked  bool       `json:"locked,omitempty"`

	// Format is set for date fields, e.g. "dd.mm.yyyy"
	Format string `json:"format,omitempty"`
}

// Key is the lowercased field name used for matching
func (f StructuralField) Key() string {
	return strings.ToLower(f.Name)
}

// Page returns the first page the field appears on, or 0
func (f StructuralField) Page() int {
	if len(f.Pages) == 0 {
		return 0
	}
	return f.Pages[0]
}

// SkipReason explains why a mapped value was not written
type SkipReason string

// Skip reasons recorded in a CommitReport
const (
	SkipEmpty       SkipReason = "empty value"
	SkipNoOption    SkipReason = "no matching option"
	SkipUnsupported SkipReason = "unsupported field type"
	SkipLocked      SkipReason = "field is locked"
	SkipUnchecked   SkipReason = "checkbox value is not affirmative"
	SkipUnknown     SkipReason = "field not found in document"
)

// Skipped is a field left untouched by Commit
type Skipped struct {
	Name   string     `json:"name"`
	Reason SkipReason `json:"reason"`
}

// CommitReport records what Commit wrote and skipped
type CommitReport struct {
	Written []string  `json:"written"`
	Skipped []Skipped `json:"skipped"`
}

// WrittenCount returns the number of fields written
func (r CommitReport) WrittenCount() int {
	return len(r.Written)
}

func (r *CommitReport) skip(name string, reason SkipReason) {
	r.Skipped = append(r.Skipped, Skipped{Name: name, Reason: reason})
}
