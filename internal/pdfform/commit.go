package pdfform

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/platinummonkey/formpilot/internal/logger"
)

// Assignment is a value to write into the named field
type Assignment struct {
	Name  string
	Value string
}

// Committer writes values into AcroForm fields
type Committer struct {
	logger *logger.Logger
}

// NewCommitter creates a new Committer
func NewCommitter(cfg *Config) *Committer {
	return &Committer{logger: loggerFrom(cfg)}
}

type fillDoc struct {
	Forms []fillForm `json:"forms"`
}

type fillForm struct {
	TextFields []fillField `json:"textfield,omitempty"`
	DateFields []fillField `json:"datefield,omitempty"`
	CheckBoxes []fillField `json:"checkbox,omitempty"`
	ComboBoxes []fillField `json:"combobox,omitempty"`
}

type fillField struct {
	Pages []int  `json:"pages,omitempty"`
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// Commit writes each non-empty assignment according to the field's native
// type and returns the filled document. Assignments that cannot be written
// are recorded in the report and never fail the commit.
func (c *Committer) Commit(pdf []byte, fields []StructuralField, assignments []Assignment) ([]byte, CommitReport, error) {
	var report CommitReport

	byName := make(map[string]StructuralField, len(fields))
	for _, f := range fields {
		byName[f.Key()] = f
	}

	var form fillForm
	for _, a := range assignments {
		field, ok := byName[strings.ToLower(a.Name)]
		if !ok {
			report.skip(a.Name, SkipUnknown)
			continue
		}
		entry, reason := fillEntry(field, a.Value)
		if reason != "" {
			report.skip(field.Name, reason)
			continue
		}

		switch {
		case field.Type == NativeCheckbox:
			form.CheckBoxes = append(form.CheckBoxes, entry)
		case field.Type == NativeDropdown:
			form.ComboBoxes = append(form.ComboBoxes, entry)
		case field.Format != "":
			form.DateFields = append(form.DateFields, entry)
		default:
			form.TextFields = append(form.TextFields, entry)
		}
		report.Written = append(report.Written, field.Name)
	}

	if len(report.Written) == 0 {
		c.logger.WithFields("skipped", len(report.Skipped)).Debug("No fields to commit")
		return pdf, report, nil
	}

	payload, err := json.Marshal(fillDoc{Forms: []fillForm{form}})
	if err != nil {
		return nil, report, fmt.Errorf("failed to encode form values: %w", err)
	}

	var out bytes.Buffer
	if err := api.FillForm(bytes.NewReader(pdf), bytes.NewReader(payload), &out, relaxedConfig()); err != nil {
		return nil, report, fmt.Errorf("failed to fill form: %w", err)
	}

	c.logger.WithFields("written", len(report.Written), "skipped", len(report.Skipped)).Info("Committed form values")
	return out.Bytes(), report, nil
}

// fillEntry builds the pdfcpu fill value for a field, or the reason it is
// skipped.
func fillEntry(field StructuralField, value string) (fillField, SkipReason) {
	entry := fillField{ID: field.ID, Name: field.Name, Pages: field.Pages}

	if value == "" {
		return entry, SkipEmpty
	}
	if field.Locked {
		return entry, SkipLocked
	}

	switch field.Type {
	case NativeText:
		entry.Value = value
	case NativeCheckbox:
		if !IsAffirmative(value) {
			return entry, SkipUnchecked
		}
		entry.Value = true
	case NativeDropdown:
		option, ok := MatchOption(field.Options, value)
		if !ok {
			return entry, SkipNoOption
		}
		entry.Value = option
	default:
		return entry, SkipUnsupported
	}
	return entry, ""
}

// IsAffirmative reports whether a value checks a checkbox
func IsAffirmative(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "yes", "ja", "true":
		return true
	}
	return false
}

// MatchOption returns the first option that contains, or is contained by,
// the value (case-insensitive)
func MatchOption(options []string, value string) (string, bool) {
	for _, opt := range options {
		if opt != "" && strings.EqualFold(opt, value) {
			return opt, true
		}
	}

	v := strings.ToLower(value)
	for _, opt := range options {
		o := strings.ToLower(opt)
		if o == "" {
			continue
		}
		if strings.Contains(o, v) || strings.Contains(v, o) {
			return opt, true
		}
	}
	return "", false
}
