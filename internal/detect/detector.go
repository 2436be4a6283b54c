// Package detect finds probable form fields in recognized page text and
// refines their types from surrounding context.
package detect

import (
	"math"
	"regexp"
	"strings"

	"github.com/platinummonkey/formpilot/internal/logger"
	"github.com/platinummonkey/formpilot/internal/ocr"
)

const (
	nearbyHorizontal = 150.0
	nearbyVertical   = 30.0
	inputGap         = 10.0
	inputWidth       = 200.0
	confidenceBoost  = 10.0
	maxConfidence    = 95.0
	maxNameLength    = 50
)

var (
	requiredPattern = regexp.MustCompile(`(?i)\*|required|pflicht|obligator`)
	nameInvalid     = regexp.MustCompile(`[^a-z0-9äöüß]`)
	nameRepeats     = regexp.MustCompile(`_+`)
)

// Detector matches text blocks against an ordered rule table
type Detector struct {
	rules  []Rule
	logger *logger.Logger
}

// NewDetector creates a detector over compiled rules
func NewDetector(rules []Rule, log *logger.Logger) *Detector {
	if log == nil {
		log = logger.Get()
	}
	return &Detector{rules: rules, logger: log}
}

// Detect emits one candidate per (block, matching rule) pair, in block order
// then rule order. Several rules may fire on the same block.
func (d *Detector) Detect(blocks []ocr.TextBlock) []CandidateField {
	var candidates []CandidateField

	for i, block := range blocks {
		for r := range d.rules {
			rule := &d.rules[r]
			if !rule.Match(block.Text) {
				continue
			}

			nearby := nearbyBlocks(block, blocks)
			candidates = append(candidates, CandidateField{
				Name:         FieldName(block.Text),
				RawLabel:     block.Text,
				Type:         rule.Type,
				Position:     inputPosition(i, blocks),
				Confidence:   math.Min(maxConfidence, block.Confidence+confidenceBoost),
				Source:       block,
				ContextHints: append([]string(nil), rule.Hints...),
				Translation:  rule.Translation,
				ProfilePath:  rule.ProfilePath,
				IsRequired:   isRequired(block, nearby),
			})
		}
	}

	d.logger.WithFields("blocks", len(blocks), "candidates", len(candidates)).Debug("Field detection completed")
	return candidates
}

// nearbyBlocks returns blocks on the same page that start close to the
// right edge of the label. The label itself qualifies when it is short.
func nearbyBlocks(block ocr.TextBlock, all []ocr.TextBlock) []ocr.TextBlock {
	var out []ocr.TextBlock
	for _, other := range all {
		if other.Page != block.Page {
			continue
		}
		if math.Abs(other.BBox.X0-block.BBox.X1) < nearbyHorizontal &&
			math.Abs(other.BBox.Y0-block.BBox.Y0) < nearbyVertical {
			out = append(out, other)
		}
	}
	return out
}

func isRequired(block ocr.TextBlock, nearby []ocr.TextBlock) bool {
	if requiredPattern.MatchString(block.Text) {
		return true
	}
	for _, b := range nearby {
		if requiredPattern.MatchString(b.Text) {
			return true
		}
	}
	return false
}

// inputPosition assumes the input area sits right of the label unless
// other text occupies that region, in which case the label box is used
func inputPosition(idx int, blocks []ocr.TextBlock) Position {
	label := blocks[idx]
	right := ocr.NewRect(label.BBox.X1+inputGap, label.BBox.Y0, inputWidth, label.BBox.Height())

	for j, other := range blocks {
		if j == idx || other.Page != label.Page {
			continue
		}
		if other.BBox.Intersects(right) {
			return Position{
				X:      label.BBox.X0,
				Y:      label.BBox.Y0,
				Width:  label.BBox.Width(),
				Height: label.BBox.Height(),
			}
		}
	}

	return Position{X: right.X0, Y: right.Y0, Width: inputWidth, Height: right.Height()}
}

// FieldName derives a stable identifier from a label
func FieldName(label string) string {
	name := strings.ToLower(label)
	name = nameInvalid.ReplaceAllString(name, "_")
	name = nameRepeats.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")

	if r := []rune(name); len(r) > maxNameLength {
		name = string(r[:maxNameLength])
	}
	return name
}
