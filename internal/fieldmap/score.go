package fieldmap

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/platinummonkey/formpilot/internal/config"
)

// Weights are the scores assigned by each matching rule
type Weights struct {
	Exact             float64
	FieldContains     float64
	PatternContains   float64
	NormalizedExact   float64
	NormalizedField   float64
	NormalizedPattern float64
	Abbreviation      float64

	// SpecificityBonus scales the length ratio added to the contains scores
	SpecificityBonus float64

	// PenaltyFactor multiplies a contains score that looks wrong for the field
	PenaltyFactor float64

	// AcceptThreshold is the score a mapping must exceed to be auto-filled
	AcceptThreshold float64

	// HintScore is assigned to values resolved from recognized-label hints
	HintScore float64

	// HintBypass is the score at or above which the static table is skipped
	HintBypass float64
}

// DefaultWeights returns the stock scoring weights
func DefaultWeights() Weights {
	return Weights{
		Exact:             100,
		FieldContains:     80,
		PatternContains:   60,
		NormalizedExact:   90,
		NormalizedField:   70,
		NormalizedPattern: 50,
		Abbreviation:      30,
		SpecificityBonus:  20,
		PenaltyFactor:     0.5,
		AcceptThreshold:   40,
		HintScore:         95,
		HintBypass:        90,
	}
}

// WeightsFromConfig converts the mapping section of the configuration
func WeightsFromConfig(c config.MappingConfig) Weights {
	return Weights{
		Exact:             c.ExactScore,
		FieldContains:     c.FieldContainsBase,
		PatternContains:   c.PatternContains,
		NormalizedExact:   c.NormalizedExact,
		NormalizedField:   c.NormalizedField,
		NormalizedPattern: c.NormalizedPattern,
		Abbreviation:      c.AbbreviationScore,
		SpecificityBonus:  c.SpecificityBonus,
		PenaltyFactor:     c.PenaltyFactor,
		AcceptThreshold:   c.AcceptThreshold,
		HintScore:         c.HintScore,
		HintBypass:        c.HintBypass,
	}
}

var separators = regexp.MustCompile(`[_\-.]`)

// abbreviations maps a canonical label to its common short forms. The slice
// keeps lookup order stable.
var abbreviations = []struct {
	key    string
	abbrev []string
}{
	{"name", []string{"nm", "nome", "namen"}},
	{"vorname", []string{"vn", "fn", "firstname", "fname"}},
	{"nachname", []string{"nn", "ln", "lastname", "lname", "surname"}},
	{"geburtsdatum", []string{"geb", "bd", "birthdate", "dob"}},
	{"telefon", []string{"tel", "phone", "fon"}},
	{"mobile", []string{"mob", "handy", "cell"}},
	{"email", []string{"mail", "em", "e_mail", "e-mail"}},
	{"adresse", []string{"addr", "address", "anschrift"}},
	{"plz", []string{"zip", "postal", "postcode"}},
	{"geschlecht", []string{"sex", "gender"}},
	{"nationalität", []string{"nat", "nationality", "nation"}},
	{"allergien", []string{"allergy", "allergies"}},
	{"bemerkungen", []string{"notes", "comments", "remarks"}},
	{"datum", []string{"date", "dt"}},
	{"unterschrift", []string{"signature", "sign"}},
}

// Score rates how well a lowercase field name matches an entry. The first
// applicable rule decides.
func (w Weights) Score(field string, e Entry) float64 {
	pattern := strings.ToLower(e.Pattern)
	if field == "" || pattern == "" {
		return 0
	}

	switch {
	case field == pattern:
		return w.Exact

	case strings.Contains(field, pattern):
		score := w.FieldContains + ratio(pattern, field)*w.SpecificityBonus
		if looksMismatched(field, pattern, e.Source, e.Value) {
			score *= w.PenaltyFactor
		}
		return score

	case strings.Contains(pattern, field):
		return w.PatternContains + ratio(field, pattern)*w.SpecificityBonus
	}

	cleanField := separators.ReplaceAllString(field, "")
	cleanPattern := separators.ReplaceAllString(pattern, "")
	switch {
	case cleanField == cleanPattern:
		return w.NormalizedExact
	case strings.Contains(cleanField, cleanPattern):
		return w.NormalizedField
	case strings.Contains(cleanPattern, cleanField):
		return w.NormalizedPattern
	}

	if isAbbreviation(field, pattern) {
		return w.Abbreviation
	}
	return 0
}

func ratio(short, long string) float64 {
	return float64(utf8.RuneCountInString(short)) / float64(utf8.RuneCountInString(long))
}

// looksMismatched catches a first-name field receiving a last name and a
// last-name field receiving an initial.
func looksMismatched(field, pattern, source, value string) bool {
	if value == "" {
		return false
	}
	origin := pattern + " " + source

	if strings.Contains(field, "vorname") && !strings.Contains(value, " ") {
		likelyLastName := utf8.RuneCountInString(value) > 2 && value != strings.ToLower(value)
		fromLastName := strings.Contains(origin, "last_name") || strings.Contains(origin, "nachname")
		if likelyLastName && fromLastName {
			return true
		}
	}

	if strings.Contains(field, "name") && !strings.Contains(field, "vorname") {
		fromFirstName := strings.Contains(origin, "first_name") || strings.Contains(origin, "vorname")
		if fromFirstName && utf8.RuneCountInString(value) <= 2 {
			return true
		}
	}

	return false
}

func isAbbreviation(field, pattern string) bool {
	for _, a := range abbreviations {
		if !strings.Contains(pattern, a.key) {
			continue
		}
		for _, ab := range a.abbrev {
			if strings.Contains(field, ab) || strings.Contains(ab, field) {
				return true
			}
		}
	}
	for _, a := range abbreviations {
		if !strings.Contains(field, a.key) {
			continue
		}
		for _, ab := range a.abbrev {
			if strings.Contains(pattern, ab) || strings.Contains(ab, pattern) {
				return true
			}
		}
	}
	return false
}
