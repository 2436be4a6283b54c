package fieldmap

import (
	"math"
	"testing"

	"github.com/platinummonkey/formpilot/internal/config"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestScore(t *testing.T) {
	w := DefaultWeights()

	tests := []struct {
		name  string
		field string
		entry Entry
		want  float64
	}{
		{"exact", "email", Entry{Pattern: "email", Value: "x"}, 100},
		{"field contains pattern", "email_adresse", Entry{Pattern: "email", Value: "x"}, 80 + 5.0/13.0*20},
		{"pattern contains field", "geb", Entry{Pattern: "geb_datum", Value: "x"}, 60 + 3.0/9.0*20},
		{"separator-stripped equality", "e-mail", Entry{Pattern: "e_mail", Value: "x"}, 90},
		{"separator-stripped field contains", "e_mail_adresse", Entry{Pattern: "email", Value: "x"}, 70},
		{"separator-stripped pattern contains", "tele.fon", Entry{Pattern: "tele_fon_nummer", Value: "x"}, 50},
		{"abbreviation", "tel_nr", Entry{Pattern: "telefon", Value: "x"}, 30},
		{"reverse abbreviation", "geburtsdatum_x", Entry{Pattern: "dob", Value: "x"}, 30},
		{"no match", "xyz", Entry{Pattern: "email", Value: "x"}, 0},
		{"multibyte ratio", "nationalität_kind", Entry{Pattern: "nationalität", Value: "x"}, 80 + 12.0/17.0*20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.Score(tt.field, tt.entry); !approx(got, tt.want) {
				t.Errorf("Score(%q, %q) = %.4f, want %.4f", tt.field, tt.entry.Pattern, got, tt.want)
			}
		})
	}
}

func TestScore_ContextPenalty(t *testing.T) {
	w := DefaultWeights()

	tests := []struct {
		name      string
		field     string
		penalized Entry
		clean     Entry
	}{
		{
			name:      "first-name field given a last name",
			field:     "vorname_des_vaters",
			penalized: Entry{Pattern: "name", Value: "Muster", Source: "child.last_name"},
			clean:     Entry{Pattern: "name", Value: "muster", Source: "child.last_name"},
		},
		{
			name:      "last-name field given an initial",
			field:     "name_des_kindes",
			penalized: Entry{Pattern: "name", Value: "Li", Source: "child.first_name"},
			clean:     Entry{Pattern: "name", Value: "Lena", Source: "child.first_name"},
		},
		{
			name:      "pattern names the last name",
			field:     "vorname_nachname",
			penalized: Entry{Pattern: "nachname", Value: "Muster", Source: "user.last_name"},
			clean:     Entry{Pattern: "nachname", Value: "Anna Muster", Source: "user.last_name"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			penalized := w.Score(tt.field, tt.penalized)
			clean := w.Score(tt.field, tt.clean)
			if !approx(penalized, clean*w.PenaltyFactor) {
				t.Errorf("penalized score = %.4f, want %.4f", penalized, clean*w.PenaltyFactor)
			}
		})
	}

	exact := w.Score("vorname", Entry{Pattern: "vorname", Value: "Muster", Source: "child.last_name"})
	if exact != w.Exact {
		t.Errorf("exact matches are never penalized, got %.1f", exact)
	}
}

func TestScore_LastNameSourceScoresBelowFirstName(t *testing.T) {
	w := DefaultWeights()

	fromLast := w.Score("vorname_1", Entry{Pattern: "vorname", Value: "Muster", Source: "user.last_name"})
	fromFirst := w.Score("vorname_1", Entry{Pattern: "vorname", Value: "Anna", Source: "user.first_name"})
	if fromLast >= fromFirst {
		t.Errorf("last-name sourced score %.2f should be below first-name sourced score %.2f", fromLast, fromFirst)
	}
}

func TestWeightsFromConfig(t *testing.T) {
	cfg := config.MappingConfig{
		ExactScore:        100,
		FieldContainsBase: 80,
		PatternContains:   60,
		NormalizedExact:   90,
		NormalizedField:   70,
		NormalizedPattern: 50,
		AbbreviationScore: 30,
		SpecificityBonus:  20,
		PenaltyFactor:     0.5,
		AcceptThreshold:   40,
		HintScore:         95,
		HintBypass:        90,
	}
	if got := WeightsFromConfig(cfg); got != DefaultWeights() {
		t.Errorf("WeightsFromConfig() = %+v, want defaults", got)
	}
}

func TestBuildTable_Order(t *testing.T) {
	table := BuildTable(testProfile(), fixedNow)

	index := make(map[string]int)
	for i, e := range table {
		if _, ok := index[e.Pattern]; !ok {
			index[e.Pattern] = i
		}
	}

	order := []string{
		"vorname_1", "familienname_6", "kind_name", "vorname_kind", "name", "geburtsdatum",
		"umgangssprache", "adresse_1", "email_2", "mutter_vorname", "vater_vorname",
		"guardian_lastname", "adresse", "telefon", "allergien", "klasse", "datum", "männlich", "german_none",
	}
	for i := 1; i < len(order); i++ {
		prev, ok1 := index[order[i-1]]
		cur, ok2 := index[order[i]]
		if !ok1 || !ok2 {
			t.Fatalf("missing pattern %q or %q", order[i-1], order[i])
		}
		if prev >= cur {
			t.Errorf("%q (%d) should come before %q (%d)", order[i-1], prev, order[i], cur)
		}
	}

	if last := table[len(table)-1]; last.Pattern != "german_none" || last.Value != "false" {
		t.Errorf("last entry = %+v", last)
	}
}

func TestBuildTable_PartnerFallback(t *testing.T) {
	p := testProfile()
	p.PartnerFirstName = ""
	p.PartnerLastName = ""

	values := make(map[string]string)
	for _, e := range BuildTable(p, fixedNow) {
		if _, ok := values[e.Pattern]; !ok {
			values[e.Pattern] = e.Value
		}
	}

	if values["vorname_2"] != "" {
		t.Errorf("vorname_2 = %q, want empty for a female user without partner", values["vorname_2"])
	}
	if values["name_2"] != "Muster" {
		t.Errorf("name_2 = %q, want the user's last name", values["name_2"])
	}

	p.Gender = "male"
	p.FirstName = "Peter"
	for _, e := range BuildTable(p, fixedNow) {
		if e.Pattern == "vater_vorname" && e.Value != "Peter" {
			t.Errorf("vater_vorname = %q, want the user's first name", e.Value)
		}
	}
}
