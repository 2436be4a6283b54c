package translate

import (
	"regexp"
	"strings"
)

// Context hint tags
const (
	HintParent         = "parent-context"
	HintChild          = "child-context"
	HintAddress        = "address-context"
	HintSchool         = "school-context"
	HintMedical        = "medical-context"
	HintDemographic    = "demographic-context"
	HintAdministrative = "administrative-context"
)

var hintRules = []struct {
	tag     string
	pattern *regexp.Regexp
}{
	{HintParent, regexp.MustCompile(`_1|_2|_3|mutter|vater|eltern|parent`)},
	{HintChild, regexp.MustCompile(`kind|child`)},
	{HintAddress, regexp.MustCompile(`adresse|strasse|plz|ort|address|street|postal|city`)},
	{HintSchool, regexp.MustCompile(`schule|klasse|grade|school|education`)},
	{HintMedical, regexp.MustCompile(`allergi|medical|gesundheit|health`)},
	{HintDemographic, regexp.MustCompile(`geschlecht|nationalität|geburt|gender|nationality|birth`)},
	{HintAdministrative, regexp.MustCompile(`datum|unterschrift|signature|date`)},
}

// ContextHints tags a field name with the contexts it belongs to, in a fixed
// order. Only the name is inspected.
func ContextHints(name string) []string {
	lower := strings.ToLower(name)
	hints := []string{}
	for _, r := range hintRules {
		if r.pattern.MatchString(lower) {
			hints = append(hints, r.tag)
		}
	}
	return hints
}
