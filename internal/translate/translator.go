// Package translate turns German form field names into English labels using
// a label cache, a local dictionary and an optional generative backend.
package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/platinummonkey/formpilot/internal/detect"
	"github.com/platinummonkey/formpilot/internal/logger"
)

// Backend completes a prompt. llm.Client satisfies it.
type Backend interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

const singlePrompt = `Translate this Swiss German form field name into an English form label.
Reply with the label only.

Rules:
- Keep it literal and short, like "First Name" or "Date of Birth"
- Leave English names unchanged
- Split German compounds into their parts
- "_1" and "_2" usually mean parent 1 and parent 2
- "Name" is the last name, "Vorname" the first name, "PLZ" the postal code
- "Bürgerort" is the place of origin

Field name: %q`

const batchPrompt = `Translate these Swiss German form field names into English form labels.
Reply with one label per line, numbered in the same order, and nothing else.

Rules:
- Keep each label literal and short, like "First Name" or "Date of Birth"
- Leave English names unchanged
- Split German compounds into their parts
- "Name" is the last name, "Vorname" the first name

Field names:
%s`

const analyzePrompt = `Analyze this Swiss German form field and reply with JSON only:
{"translation": "English form label", "confidence": 0-100, "recommendedType": "text|checkbox|date|email|phone|select"}

Field name: %q
Field type: %s
Context hints: %s

Rules:
- "Vorname" is "First Name", "Name" and "Nachname" are "Last Name"
- "Vorname_1" is "Parent 1 First Name"
- Gender options and yes/no questions are checkboxes
- "Geburtsdatum", "Datum" and "Eintrittsdatum" are dates`

// Translator produces English labels for field names
type Translator struct {
	cache      *Cache
	backend    Backend
	dictionary *Dictionary
	logger     *logger.Logger
}

// Option configures a Translator
type Option func(*Translator)

// WithDictionary replaces the built-in dictionary. nil disables dictionary
// lookups.
func WithDictionary(d *Dictionary) Option {
	return func(t *Translator) {
		t.dictionary = d
	}
}

// WithLogger sets the logger
func WithLogger(log *logger.Logger) Option {
	return func(t *Translator) {
		t.logger = log
	}
}

// NewTranslator creates a Translator. backend may be nil, in which case only
// local formatting and the dictionary are used. A nil cache gets a private
// one.
func NewTranslator(cache *Cache, backend Backend, opts ...Option) *Translator {
	if cache == nil {
		cache = NewCache()
	}
	t := &Translator{
		cache:      cache,
		backend:    backend,
		dictionary: DefaultDictionary(),
		logger:     logger.Get(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Cache returns the label cache
func (t *Translator) Cache() *Cache {
	return t.cache
}

// localOnly reports whether a name is formatted without any lookup
func localOnly(name string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(name)) < 2 || looksEnglish(name)
}

// Translate returns the English label for a field name. Backend failures
// fall back to local formatting and are never returned.
func (t *Translator) Translate(ctx context.Context, name string) string {
	if label, ok := t.cache.Get(name); ok {
		return label
	}

	var label string
	switch {
	case localOnly(name):
		label = FormatLabel(name)
	default:
		if dict, ok := t.dictionary.Translate(name); ok {
			label = dict
		} else {
			label = t.complete(ctx, name).OrElse(FormatLabel(name))
		}
	}

	t.cache.Put(name, label)
	return label
}

func (t *Translator) complete(ctx context.Context, name string) Result[string] {
	if t.backend == nil {
		return Fail[string](fmt.Errorf("no translation backend configured"))
	}

	reply, err := t.backend.Complete(ctx, fmt.Sprintf(singlePrompt, name))
	if err != nil {
		t.logger.WithError(err).WithField(name).Warn("Translation failed, using local formatting")
		return Fail[string](err)
	}

	label := normalizeReply(reply)
	if label == "" {
		return Fail[string](fmt.Errorf("empty translation for %q", name))
	}
	return Ok(label)
}

// TranslateBatch translates several names with at most one backend call.
// Names resolved from the cache, local formatting or the dictionary are not
// sent. Results are in input order.
func (t *Translator) TranslateBatch(ctx context.Context, names []string) []string {
	results := make([]string, len(names))

	type pending struct {
		index int
		name  string
	}
	var todo []pending

	for i, name := range names {
		if label, ok := t.cache.Get(name); ok {
			results[i] = label
			continue
		}
		if localOnly(name) {
			results[i] = FormatLabel(name)
			t.cache.Put(name, results[i])
			continue
		}
		if dict, ok := t.dictionary.Translate(name); ok {
			results[i] = dict
			t.cache.Put(name, dict)
			continue
		}
		todo = append(todo, pending{index: i, name: name})
	}

	if len(todo) == 0 {
		return results
	}

	list := make([]string, len(todo))
	for i, p := range todo {
		list[i] = fmt.Sprintf("%d. %s", i+1, p.name)
	}
	lines := t.completeBatch(ctx, strings.Join(list, "\n")).OrElse(nil)

	for i, p := range todo {
		label := ""
		if i < len(lines) {
			label = normalizeReply(lines[i])
		}
		if label == "" {
			label = FormatLabel(p.name)
		}
		results[p.index] = label
		t.cache.Put(p.name, label)
	}
	return results
}

func (t *Translator) completeBatch(ctx context.Context, list string) Result[[]string] {
	if t.backend == nil {
		return Fail[[]string](fmt.Errorf("no translation backend configured"))
	}

	reply, err := t.backend.Complete(ctx, fmt.Sprintf(batchPrompt, list))
	if err != nil {
		t.logger.WithError(err).Warn("Batch translation failed, using local formatting")
		return Fail[[]string](err)
	}

	var lines []string
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(numberedLine.ReplaceAllString(strings.TrimSpace(line), ""))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return Ok(lines)
}

// Analysis is a context-aware reading of a field
type Analysis struct {
	Label      string           `json:"label"`
	Confidence int              `json:"confidence"`
	TypeHint   detect.FieldType `json:"type_hint"`
}

// Analyze asks the backend for a label and a recommended type given the
// field's current type and context hints. Without a usable reply it returns
// Translate's label with confidence 50 and the current type.
func (t *Translator) Analyze(ctx context.Context, name string, current detect.FieldType, hints []string) Analysis {
	fallback := func() Analysis {
		return Analysis{Label: t.Translate(ctx, name), Confidence: 50, TypeHint: current}
	}
	if t.backend == nil {
		return fallback()
	}

	prompt := fmt.Sprintf(analyzePrompt, name, strings.ToLower(string(current)), strings.Join(hints, ", "))
	reply, err := t.backend.Complete(ctx, prompt)
	if err != nil {
		t.logger.WithError(err).WithField(name).Warn("Field analysis failed, using plain translation")
		return fallback()
	}

	var parsed struct {
		Translation     string  `json:"translation"`
		Confidence      float64 `json:"confidence"`
		RecommendedType string  `json:"recommendedType"`
	}
	if err := json.Unmarshal([]byte(stripFence(reply)), &parsed); err != nil || parsed.Translation == "" {
		t.logger.WithField(name).Debug("Unparseable field analysis, using plain translation")
		return fallback()
	}

	typ, err := detect.ParseFieldType(parsed.RecommendedType)
	if err != nil {
		typ = current
	}
	return Analysis{
		Label:      normalizeReply(parsed.Translation),
		Confidence: int(parsed.Confidence),
		TypeHint:   typ,
	}
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
