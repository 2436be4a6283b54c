package translate

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

//go:embed dictionary.yaml
var defaultDictionary []byte

// MinDictionaryScore is the score a dictionary match must exceed
const MinDictionaryScore = 50

// Term is one dictionary entry
type Term struct {
	Term  string `yaml:"term"`
	Label string `yaml:"label"`
}

// Dictionary is an ordered list of German form terms with English labels
type Dictionary struct {
	terms []Term
}

// ParseDictionary decodes a YAML term list
func ParseDictionary(data []byte) (*Dictionary, error) {
	var terms []Term
	if err := yaml.Unmarshal(data, &terms); err != nil {
		return nil, fmt.Errorf("failed to parse dictionary: %w", err)
	}
	for i, t := range terms {
		if t.Term == "" || t.Label == "" {
			return nil, fmt.Errorf("dictionary entry %d is incomplete", i+1)
		}
		terms[i].Term = norm.NFC.String(strings.ToLower(t.Term))
	}
	return &Dictionary{terms: terms}, nil
}

// LoadDictionary reads a term list from a file. An empty path returns the
// built-in dictionary.
func LoadDictionary(path string) (*Dictionary, error) {
	if path == "" {
		return DefaultDictionary(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dictionary: %w", err)
	}
	return ParseDictionary(data)
}

// DefaultDictionary returns the built-in dictionary
func DefaultDictionary() *Dictionary {
	d, err := ParseDictionary(defaultDictionary)
	if err != nil {
		panic(err)
	}
	return d
}

// Len returns the number of terms
func (d *Dictionary) Len() int {
	return len(d.terms)
}

// Lookup returns the best label for a field name and its score. Exact
// matches score 100, terms contained in the name 80 plus a length bonus, and
// names of three or more characters contained in a term 60.
func (d *Dictionary) Lookup(name string) (string, float64) {
	field := norm.NFC.String(strings.ToLower(strings.TrimSpace(name)))
	if d == nil || field == "" {
		return "", 0
	}
	fieldLen := float64(utf8.RuneCountInString(field))

	best, bestScore := "", 0.0
	for _, t := range d.terms {
		var score float64
		switch {
		case field == t.Term:
			score = 100
		case strings.Contains(field, t.Term):
			score = 80 + float64(utf8.RuneCountInString(t.Term))/fieldLen*20
		case strings.Contains(t.Term, field) && fieldLen > 2:
			score = 60
		}
		if score > bestScore {
			best, bestScore = t.Label, score
		}
	}
	return best, bestScore
}

// Translate returns the label when the best match scores above
// MinDictionaryScore
func (d *Dictionary) Translate(name string) (string, bool) {
	label, score := d.Lookup(name)
	if score > MinDictionaryScore {
		return label, true
	}
	return "", false
}
