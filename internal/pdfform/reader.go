package pdfform

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/platinummonkey/formpilot/internal/logger"
)

// exportDoc mirrors pdfcpu's form JSON export
type exportDoc struct {
	Forms []exportForm `json:"forms"`
}

type exportForm struct {
	TextFields        []exportField `json:"textfield,omitempty"`
	DateFields        []exportField `json:"datefield,omitempty"`
	CheckBoxes        []exportField `json:"checkbox,omitempty"`
	RadioButtonGroups []exportField `json:"radiobuttongroup,omitempty"`
	ComboBoxes        []exportField `json:"combobox,omitempty"`
	ListBoxes         []exportField `json:"listbox,omitempty"`
}

type exportField struct {
	Pages   []int           `json:"pages,omitempty"`
	ID      string          `json:"id,omitempty"`
	Name    string          `json:"name,omitempty"`
	Value   json.RawMessage `json:"value,omitempty"`
	Options []string        `json:"options,omitempty"`
	Format  string          `json:"format,omitempty"`
	Locked  bool            `json:"locked,omitempty"`
}

// Reader inspects PDF documents
type Reader struct {
	logger *logger.Logger
}

// Config holds configuration for Reader and Committer
type Config struct {
	Logger *logger.Logger
}

// NewReader creates a new Reader
func NewReader(cfg *Config) *Reader {
	return &Reader{logger: loggerFrom(cfg)}
}

func loggerFrom(cfg *Config) *logger.Logger {
	if cfg == nil || cfg.Logger == nil {
		return logger.Get()
	}
	return cfg.Logger
}

func relaxedConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Fields returns the AcroForm fields declared in the PDF, in export order.
// Returns ErrNoFormFields when the document has none.
func (r *Reader) Fields(pdf []byte) ([]StructuralField, error) {
	r.logger.WithFields("size", len(pdf)).Debug("Exporting form fields")

	var buf bytes.Buffer
	if err := api.ExportFormJSON(bytes.NewReader(pdf), &buf, "formpilot", relaxedConfig()); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "no form") {
			return nil, ErrNoFormFields
		}
		return nil, fmt.Errorf("failed to export form fields: %w", err)
	}

	fields, err := parseExport(buf.Bytes())
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, ErrNoFormFields
	}

	r.logger.WithFields("field_count", len(fields)).Debug("Exported form fields")
	return fields, nil
}

// PageCount returns the number of pages in the PDF
func (r *Reader) PageCount(pdf []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(pdf), relaxedConfig())
	if err != nil {
		return 0, fmt.Errorf("failed to read PDF: %w", err)
	}
	return n, nil
}

// Validate checks that the data is a readable PDF
func (r *Reader) Validate(pdf []byte) error {
	if len(pdf) == 0 {
		return fmt.Errorf("invalid PDF file: empty input")
	}
	if err := api.Validate(bytes.NewReader(pdf), relaxedConfig()); err != nil {
		return fmt.Errorf("invalid PDF file: %w", err)
	}
	return nil
}

func parseExport(data []byte) ([]StructuralField, error) {
	var doc exportDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse form export: %w", err)
	}

	var fields []StructuralField
	for _, form := range doc.Forms {
		fields = appendFields(fields, form.TextFields, NativeText)
		fields = appendFields(fields, form.DateFields, NativeText)
		fields = appendFields(fields, form.CheckBoxes, NativeCheckbox)
		fields = appendFields(fields, form.RadioButtonGroups, NativeRadio)
		fields = appendFields(fields, form.ComboBoxes, NativeDropdown)
		fields = appendFields(fields, form.ListBoxes, NativeListbox)
	}
	return fields, nil
}

func appendFields(dst []StructuralField, src []exportField, typ NativeType) []StructuralField {
	for _, f := range src {
		dst = append(dst, StructuralField{
			ID:      f.ID,
			Name:    f.Name,
			Type:    typ,
			Options: f.Options,
			Pages:   f.Pages,
			Value:   rawString(f.Value),
			Locked:  f.Locked,
			Format:  f.Format,
		})
	}
	return dst
}

// rawString renders a JSON scalar as text. Checkbox values export as booleans.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		if b {
			return "true"
		}
		return ""
	}
	return strings.Trim(string(raw), `"`)
}
