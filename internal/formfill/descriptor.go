package formfill

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/platinummonkey/formpilot/internal/detect"
	"github.com/platinummonkey/formpilot/internal/pdfform"
)

// Descriptor groups
const (
	GroupChild          = "Child Information"
	GroupParent         = "Parent Information"
	GroupPreviousSchool = "Previous School"
	GroupSupport        = "Educational Support"
	GroupBehavior       = "Behavior Assessment"
	GroupAdditional     = "Additional Information"
	GroupRatings        = "Assessment Ratings"
	GroupAdmin          = "Administrative"
	GroupSelection      = "Selection Options"
	GroupOther          = "Other Fields"
)

// FieldDescriptor is one editable field as presented for review. The fill
// annotations are zero in analysis mode.
type FieldDescriptor struct {
	Name        string   `json:"name"`
	Label       string   `json:"label"`
	Key         string   `json:"key"`
	Value       any      `json:"value"`
	Type        string   `json:"type"`
	IsPrefilled bool     `json:"isPrefilled"`
	Group       string   `json:"group"`
	Options     []string `json:"options,omitempty"`

	Confidence   int      `json:"confidence"`
	MatchScore   float64  `json:"matchScore"`
	IsAutoFilled bool     `json:"isAutoFilled"`
	Source       string   `json:"source,omitempty"`
	Context      string   `json:"context,omitempty"`
	ContextHints []string `json:"contextHints,omitempty"`
	IsRequired   bool     `json:"isRequired"`
}

var (
	parentNumber = regexp.MustCompile(`_([2-6])\b`)
	ratingName   = regexp.MustCompile(`^[0-9]+(_[0-9]+)?$`)
	supportWord  = regexp.MustCompile(`\b(daz|if|isr|ssa|pmt)\b|deutsch|logopädie|nachteil|lernziel|begabten|therapien`)
	keyInvalid   = regexp.MustCompile(`[^a-z0-9\s]`)
	unnamedField = regexp.MustCompile(`^(undefined|checkbox_field_\d+)$`)
)

// groupField places a field in a review group. The description is empty when
// the group has no fixed wording for the field, in which case the translated
// label is used.
func groupField(name string, native pdfform.NativeType) (group, description string) {
	lower := strings.ToLower(name)
	words := strings.ReplaceAll(lower, "_", " ")

	switch lower {
	case "name":
		return GroupChild, "Child Last Name"
	case "vorname":
		return GroupChild, "Child First Name"
	case "geburtsdatum":
		return GroupChild, "Child Date of Birth"
	}
	if strings.Contains(lower, "kind") || strings.Contains(lower, "child") {
		return GroupChild, ""
	}

	if m := parentNumber.FindStringSubmatch(lower); m != nil {
		base := strings.TrimSpace(parentNumber.ReplaceAllString(name, ""))
		return fmt.Sprintf("Parent %s Information", m[1]), fmt.Sprintf("%s (Parent %s)", base, m[1])
	}
	if strings.Contains(lower, "name") || strings.Contains(lower, "_1") {
		switch {
		case strings.Contains(lower, "adresse"):
			return GroupParent, "Address"
		case strings.Contains(lower, "mobile"):
			return GroupParent, "Mobile Phone"
		case strings.Contains(lower, "mail"):
			return GroupParent, "Email Address"
		case strings.Contains(lower, "telefon"):
			return GroupParent, "Phone Number"
		case strings.Contains(lower, "funktion"):
			return GroupParent, "Function/Role"
		}
		return GroupParent, ""
	}

	if strings.Contains(lower, "bisher") || strings.Contains(lower, "schule") || strings.Contains(lower, "klasse") {
		switch {
		case strings.Contains(lower, "strasse"):
			return GroupPreviousSchool, "Previous Street"
		case strings.Contains(lower, "ort") && strings.Contains(lower, "land"):
			return GroupPreviousSchool, "Previous City/Country"
		case strings.Contains(lower, "klasse"):
			return GroupPreviousSchool, "Previous Class"
		case strings.Contains(lower, "lehrperson"):
			return GroupPreviousSchool, "Previous Teacher Name"
		case strings.Contains(lower, "schule"):
			return GroupPreviousSchool, "School Name and Location"
		}
		return GroupPreviousSchool, ""
	}

	if supportWord.MatchString(words) {
		return GroupSupport, supportDescription(words)
	}

	if strings.Contains(lower, "verhalten") || strings.Contains(lower, "sonstiges") {
		switch {
		case strings.Contains(lower, "arbeits") || strings.Contains(lower, "lern"):
			return GroupBehavior, "Work and Learning Behavior"
		case strings.Contains(lower, "sozial"):
			return GroupBehavior, "Social Behavior"
		}
		return GroupAdditional, "Other Notes"
	}

	if ratingName.MatchString(lower) {
		return GroupRatings, "Rating " + name
	}

	switch {
	case strings.Contains(lower, "zuzug"):
		return GroupAdmin, "Moving-In Date"
	case strings.Contains(lower, "gültig"):
		return GroupAdmin, "Address Valid Until"
	case strings.Contains(lower, "unterschrift") || strings.Contains(lower, "datum"):
		return GroupAdmin, ""
	}

	if native == pdfform.NativeCheckbox && (lower == "" || unnamedField.MatchString(lower)) {
		return GroupSelection, "Checkbox Option"
	}

	return GroupOther, ""
}

func supportDescription(words string) string {
	switch {
	case strings.Contains(words, "daz"):
		return "German as Second Language Since"
	case strings.Contains(words, "deutsch"):
		return "German Language Skills"
	case strings.Contains(words, "nachteil"):
		return "Disadvantage Compensation"
	case strings.Contains(words, "lernziel"):
		return "Learning Goal Exemption"
	case strings.Contains(words, "isr"):
		return "Special Education Area"
	case strings.Contains(words, "begabten"):
		return "Gifted Education"
	case strings.Contains(words, "ssa"):
		return "School Social Work"
	case strings.Contains(words, "logopädie"):
		return "Speech Therapy Since"
	case strings.Contains(words, "pmt"):
		return "Psychomotor Therapy Since"
	case strings.Contains(words, "therapien"):
		return "Other Therapies"
	default:
		return "Integrative Support Areas"
	}
}

// fieldKey derives a camelCase key from a field name
func fieldKey(name string, index int) string {
	if strings.TrimSpace(name) == "" || name == "undefined" {
		return fmt.Sprintf("checkbox_%d", index)
	}

	cleaned := strings.ToLower(name)
	cleaned = strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(cleaned)
	cleaned = keyInvalid.ReplaceAllString(cleaned, "")

	var sb strings.Builder
	for i, word := range strings.Fields(cleaned) {
		if i > 0 {
			word = strings.ToUpper(word[:1]) + word[1:]
		}
		sb.WriteString(word)
	}
	if sb.Len() == 0 {
		return fmt.Sprintf("field_%d", index)
	}
	return sb.String()
}

// uniqueKeys suffixes repeated keys with _N and their labels with (N)
func uniqueKeys(descriptors []FieldDescriptor) {
	counts := make(map[string]int)
	for i := range descriptors {
		base := descriptors[i].Key
		counts[base]++
		if n := counts[base]; n > 1 {
			descriptors[i].Key = fmt.Sprintf("%s_%d", base, n)
			descriptors[i].Label = fmt.Sprintf("%s (%d)", descriptors[i].Label, n)
		}
	}
}

// descriptorType is the review type: native choice widgets keep their kind,
// text fields take the semantic type
func descriptorType(native pdfform.NativeType, semantic detect.FieldType) string {
	switch native {
	case pdfform.NativeCheckbox:
		return "checkbox"
	case pdfform.NativeRadio:
		return "radio"
	case pdfform.NativeDropdown, pdfform.NativeListbox:
		return "select"
	}
	if semantic == "" {
		return "text"
	}
	return strings.ToLower(string(semantic))
}

// descriptorValue is a bool for checkboxes and the string value otherwise
func descriptorValue(native pdfform.NativeType, value string) any {
	if native == pdfform.NativeCheckbox {
		return pdfform.IsAffirmative(value)
	}
	return value
}
