// Package fieldmap fuzzily matches structural form fields to values drawn
// from a user profile.
package fieldmap

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/platinummonkey/formpilot/internal/detect"
	"github.com/platinummonkey/formpilot/internal/logger"
	"github.com/platinummonkey/formpilot/internal/pdfform"
	"github.com/platinummonkey/formpilot/internal/profile"
)

// Hint ties a recognized field name to a profile path
type Hint struct {
	FieldName   string `json:"field_name"`
	ProfilePath string `json:"profile_path"`
}

// HintsFromCandidates collects the profile paths recognized labels point at.
// The first candidate for a name wins.
func HintsFromCandidates(candidates []detect.CandidateField) []Hint {
	seen := make(map[string]bool)
	var hints []Hint
	for _, c := range candidates {
		if c.ProfilePath == "" || c.Name == "" || seen[c.Name] {
			continue
		}
		seen[c.Name] = true
		hints = append(hints, Hint{FieldName: c.Name, ProfilePath: c.ProfilePath})
	}
	return hints
}

// FieldMapping is the mapping decided for one structural field
type FieldMapping struct {
	FieldName     string             `json:"field_name"`
	Value         string             `json:"value"`
	MatchScore    float64            `json:"match_score"`
	SourcePattern string             `json:"source_pattern,omitempty"`
	IsAutoFilled  bool               `json:"is_auto_filled"`
	Translation   string             `json:"translation,omitempty"`
	FieldType     detect.FieldType   `json:"field_type"`
	NativeType    pdfform.NativeType `json:"native_type"`
	ContextHints  []string           `json:"context_hints,omitempty"`
	IsRequired    bool               `json:"is_required"`
}

// Confidence is the rounded score for auto-filled mappings, otherwise 0
func (m FieldMapping) Confidence() int {
	if !m.IsAutoFilled {
		return 0
	}
	return int(math.Round(m.MatchScore))
}

// Mapper assigns profile values to form fields
type Mapper struct {
	weights Weights
	now     func() time.Time
	logger  *logger.Logger
}

// Option configures a Mapper
type Option func(*Mapper)

// WithClock sets the time source used for date fields
func WithClock(now func() time.Time) Option {
	return func(m *Mapper) {
		m.now = now
	}
}

// WithLogger sets the logger
func WithLogger(log *logger.Logger) Option {
	return func(m *Mapper) {
		m.logger = log
	}
}

// NewMapper creates a Mapper with the given weights
func NewMapper(w Weights, opts ...Option) *Mapper {
	m := &Mapper{
		weights: w,
		now:     time.Now,
		logger:  logger.Get(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Weights returns the scoring weights in use
func (m *Mapper) Weights() Weights {
	return m.weights
}

type match struct {
	value  string
	score  float64
	source string
}

// Map returns one mapping per field, in input order
func (m *Mapper) Map(fields []pdfform.StructuralField, p *profile.Profile, hints []Hint) []FieldMapping {
	now := m.now()
	table := BuildTable(p, now)

	mappings := make([]FieldMapping, 0, len(fields))
	for _, f := range fields {
		mappings = append(mappings, m.mapField(f, table, p, hints, now))
	}

	auto := 0
	for _, mp := range mappings {
		if mp.IsAutoFilled {
			auto++
		}
	}
	m.logger.WithFields("fields", len(fields), "auto_filled", auto, "hints", len(hints)).Debug("Mapped form fields")
	return mappings
}

func (m *Mapper) mapField(f pdfform.StructuralField, table Table, p *profile.Profile, hints []Hint, now time.Time) FieldMapping {
	name := strings.ToLower(f.Name)
	best := m.hintMatch(name, p, hints, now)

	if best.score < m.weights.HintBypass {
		for _, e := range table {
			score := m.weights.Score(name, e)
			if score > best.score && e.Value != "" {
				best = match{value: e.Value, score: score, source: e.Pattern}
			}
		}
	}

	mapping := FieldMapping{
		FieldName:     f.Name,
		MatchScore:    best.score,
		SourcePattern: best.source,
		FieldType:     TypeOf(f),
		NativeType:    f.Type,
	}
	if best.score > m.weights.AcceptThreshold {
		mapping.Value = best.value
		mapping.IsAutoFilled = true
	}

	m.logger.WithField(f.Name).WithFields("score", best.score, "source", best.source).Debug("Mapped field")
	return mapping
}

func (m *Mapper) hintMatch(name string, p *profile.Profile, hints []Hint, now time.Time) match {
	for _, h := range hints {
		hint := strings.ToLower(h.FieldName)
		if hint == "" || (!strings.Contains(name, hint) && !strings.Contains(hint, name)) {
			continue
		}
		if value := p.Resolve(h.ProfilePath, now); value != "" {
			return match{value: value, score: m.weights.HintScore, source: "ocr:" + h.ProfilePath}
		}
	}
	return match{}
}

// TypeOf is the semantic type of a structural field. Name-based detection
// only specializes text fields.
func TypeOf(f pdfform.StructuralField) detect.FieldType {
	native := detect.TypeText
	switch {
	case f.Type == pdfform.NativeCheckbox:
		native = detect.TypeCheckbox
	case f.Type == pdfform.NativeDropdown, f.Type == pdfform.NativeListbox, f.Type == pdfform.NativeRadio:
		native = detect.TypeSelect
	case f.Format != "":
		native = detect.TypeDate
	}

	if native != detect.TypeText {
		return native
	}
	if detected, confidence := DetectFieldType(f.Name, ""); confidence > 80 {
		return detected
	}
	return native
}

var (
	dateName     = regexp.MustCompile(`datum|date|birth|geb`)
	emailName    = regexp.MustCompile(`e-?mail|e_mail|mail`)
	phoneName    = regexp.MustCompile(`telefon|phone|mobile|handy|tel`)
	choiceName   = regexp.MustCompile(`männlich|weiblich|male|female|(^|[^a-zäöüß])(ja|nein|yes|no)([^a-zäöüß]|$)`)
	genderName   = regexp.MustCompile(`geschlecht|gender`)
	questionName = regexp.MustCompile(`\?|tagesschule|alleinerziehend|beide_eltern`)
	questionText = regexp.MustCompile(`\?|ja/nein|yes/no`)
	selectName   = regexp.MustCompile(`klasse|grade|stufe|nationalität|nationality`)
)

// DetectFieldType infers a semantic type from a field name and optional
// surrounding text, with a confidence from 0 to 100.
func DetectFieldType(name, context string) (detect.FieldType, int) {
	name = strings.ToLower(name)
	context = strings.ToLower(context)

	switch {
	case dateName.MatchString(name):
		return detect.TypeDate, 95
	case emailName.MatchString(name):
		return detect.TypeEmail, 95
	case phoneName.MatchString(name):
		return detect.TypePhone, 95
	case choiceName.MatchString(name):
		return detect.TypeCheckbox, 85
	case genderName.MatchString(name), genderName.MatchString(context):
		return detect.TypeCheckbox, 80
	case questionName.MatchString(name), questionText.MatchString(context):
		return detect.TypeCheckbox, 75
	case selectName.MatchString(name):
		return detect.TypeSelect, 70
	default:
		return detect.TypeText, 60
	}
}
