package detect

import (
	"strings"
	"testing"

	"github.com/platinummonkey/formpilot/internal/logger"
	"github.com/platinummonkey/formpilot/internal/ocr"
)

func block(text string, x0, y0, x1, y1, conf float64) ocr.TextBlock {
	return ocr.TextBlock{Text: text, BBox: ocr.Rect{X0: x0, Y0: y0, X1: x1, Y1: y1}, Confidence: conf, Page: 1}
}

func newTestDetector(t *testing.T) *Detector {
	t.Helper()
	rules, err := DefaultRules()
	if err != nil {
		t.Fatalf("DefaultRules() error = %v", err)
	}
	return NewDetector(rules, logger.NewNop())
}

func formBlocks() []ocr.TextBlock {
	return []ocr.TextBlock{
		block("Vorname:*", 100, 100, 180, 120, 90),
		block("Nachname:", 100, 200, 190, 220, 88),
		block("Müller", 200, 200, 260, 220, 75),
	}
}

func TestDetect_EveryMatchingRuleEmits(t *testing.T) {
	d := newTestDetector(t)
	candidates := d.Detect(formBlocks())

	if len(candidates) != 4 {
		for _, c := range candidates {
			t.Logf("candidate %s (%s)", c.Name, c.Translation)
		}
		t.Fatalf("expected 4 candidates, got %d", len(candidates))
	}

	want := []string{"First Name", "Name", "Last Name", "Name"}
	for i, w := range want {
		if candidates[i].Translation != w {
			t.Errorf("candidate %d translation = %q, want %q", i, candidates[i].Translation, w)
		}
	}
}

func TestDetect_CandidateAttributes(t *testing.T) {
	d := newTestDetector(t)
	candidates := d.Detect(formBlocks())

	first := candidates[0]
	if first.Name != "vorname" {
		t.Errorf("expected name 'vorname', got %q", first.Name)
	}
	if first.RawLabel != "Vorname:*" {
		t.Errorf("expected raw label preserved, got %q", first.RawLabel)
	}
	if first.Position != (Position{X: 190, Y: 100, Width: 200, Height: 20}) {
		t.Errorf("expected input area right of label, got %+v", first.Position)
	}
	if first.Confidence != 95 {
		t.Errorf("expected confidence capped at 95, got %.1f", first.Confidence)
	}
	if !first.IsRequired {
		t.Error("label with '*' should be required")
	}
	if first.ProfilePath != "child.first_name" {
		t.Errorf("unexpected profile path %q", first.ProfilePath)
	}

	last := candidates[2]
	if last.Position != (Position{X: 100, Y: 200, Width: 90, Height: 20}) {
		t.Errorf("occupied right side should fall back to the label box, got %+v", last.Position)
	}
	if last.IsRequired {
		t.Error("'Nachname:' has no required marker nearby")
	}
}

func TestDetect_RequiredFromNearbyBlock(t *testing.T) {
	d := newTestDetector(t)
	candidates := d.Detect([]ocr.TextBlock{
		block("PLZ", 100, 100, 130, 115, 50),
		block("(Pflichtfeld)", 250, 105, 330, 118, 60),
	})

	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	if !candidates[0].IsRequired {
		t.Error("nearby 'Pflichtfeld' should mark the field required")
	}
	if candidates[0].Confidence != 60 {
		t.Errorf("expected confidence 60, got %.1f", candidates[0].Confidence)
	}
}

func TestDetect_OtherPagesIgnored(t *testing.T) {
	d := newTestDetector(t)
	other := block("Pflicht", 150, 100, 200, 115, 50)
	other.Page = 2

	candidates := d.Detect([]ocr.TextBlock{block("PLZ", 100, 100, 130, 115, 50), other})
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	if candidates[0].IsRequired {
		t.Error("blocks on another page must not mark the field required")
	}
	if candidates[0].Position.X != 140 {
		t.Errorf("blocks on another page must not displace the input area, got %+v", candidates[0].Position)
	}
}

func TestDetect_NoMatches(t *testing.T) {
	d := newTestDetector(t)
	if got := d.Detect([]ocr.TextBlock{block("Seite 1 von 2", 0, 0, 50, 10, 90)}); len(got) != 0 {
		t.Errorf("expected no candidates, got %d", len(got))
	}
	if got := d.Detect(nil); len(got) != 0 {
		t.Errorf("expected no candidates for no blocks, got %d", len(got))
	}
}

func TestFieldName(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"Vorname des Kindes:*", "vorname_des_kindes"},
		{"Straße / Nr.", "straße_nr"},
		{"  PLZ  ", "plz"},
		{"E-Mail", "e_mail"},
		{"Größe", "größe"},
		{strings.Repeat("a", 60), strings.Repeat("a", 50)},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			if got := FieldName(tt.label); got != tt.want {
				t.Errorf("FieldName(%q) = %q, want %q", tt.label, got, tt.want)
			}
		})
	}
}
