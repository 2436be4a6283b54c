package detect

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/platinummonkey/formpilot/internal/ocr"
)

const (
	duplicateDX     = 50.0
	duplicateDY     = 20.0
	contextRadius   = 100.0
	readingBandDY   = 20.0
	demographicHint = "demographic"
)

var (
	checkboxGlyphs  = regexp.MustCompile(`□|☐|\[\s*\]|\(\s*\)|○|◯`)
	checkboxChoices = regexp.MustCompile(`ja\s*/\s*nein|yes\s*/\s*no|männlich\s*/\s*weiblich`)
	datePlaceholder = regexp.MustCompile(`\d{1,2}[./]\d{1,2}[./]\d{2,4}|__\.__\.____|dd\.mm\.yyyy`)
	selectMarkers   = regexp.MustCompile(`dropdown|auswahl|wählen|select|option`)
	selectLabels    = regexp.MustCompile(`nationalität|sprache|klasse|nationality|language|grade`)
)

// Refine drops positional duplicates, specializes field types from nearby
// text and returns the survivors in reading order. The input is not modified.
func Refine(candidates []CandidateField, blocks []ocr.TextBlock) []CandidateField {
	kept := make([]CandidateField, 0, len(candidates))

	for _, c := range candidates {
		if isDuplicate(c, kept) {
			continue
		}

		refined := c
		refined.ContextHints = append([]string(nil), c.ContextHints...)
		if refined.Type == TypeText {
			refined.Type = Classify(c, blocks)
		}
		kept = append(kept, refined)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		a, b := kept[i].Position, kept[j].Position
		if math.Abs(a.Y-b.Y) < readingBandDY {
			return a.X < b.X
		}
		return a.Y < b.Y
	})

	return kept
}

func isDuplicate(c CandidateField, kept []CandidateField) bool {
	for _, k := range kept {
		if math.Abs(k.Position.X-c.Position.X) < duplicateDX &&
			math.Abs(k.Position.Y-c.Position.Y) < duplicateDY {
			return true
		}
	}
	return false
}

// Classify infers a field type from the text surrounding the candidate's
// input position. It returns the candidate's own type when nothing applies.
func Classify(c CandidateField, blocks []ocr.TextBlock) FieldType {
	nearby := contextText(c, blocks)

	if checkboxGlyphs.MatchString(nearby) || checkboxChoices.MatchString(nearby) {
		return TypeCheckbox
	}

	if datePlaceholder.MatchString(nearby) {
		return TypeDate
	}

	if selectMarkers.MatchString(nearby) ||
		(c.HasHint(demographicHint) && selectLabels.MatchString(strings.ToLower(c.RawLabel))) {
		return TypeSelect
	}

	return c.Type
}

// contextText joins the lowercase text of same-page blocks whose top-left
// corner lies within contextRadius of the position
func contextText(c CandidateField, blocks []ocr.TextBlock) string {
	var parts []string
	for _, b := range blocks {
		if c.Source.Page != 0 && b.Page != c.Source.Page {
			continue
		}
		if math.Hypot(b.BBox.X0-c.Position.X, b.BBox.Y0-c.Position.Y) < contextRadius {
			parts = append(parts, strings.ToLower(b.Text))
		}
	}
	return strings.Join(parts, " ")
}
