package translate

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var (
	camelBoundary = regexp.MustCompile(`(\p{Ll})(\p{Lu})`)
	replyPrefix   = regexp.MustCompile(`(?i)^(translation|english|result):\s*`)
	replyQuotes   = strings.NewReplacer(`"`, "", "“", "", "”", "", "„", "")
	numberedLine  = regexp.MustCompile(`^\d+\.\s*`)
)

// FormatLabel turns a raw field name into a readable label: underscores
// become spaces, camelCase is split, and each word is title-cased.
func FormatLabel(name string) string {
	s := norm.NFC.String(name)
	s = strings.ReplaceAll(s, "_", " ")
	s = camelBoundary.ReplaceAllString(s, "$1 $2")

	caser := cases.Title(language.Und)
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = caser.String(w)
	}
	return strings.Join(words, " ")
}

// Bilingual renders "English (Original)" when the two differ
func Bilingual(original, english string) string {
	if english == "" || strings.EqualFold(strings.TrimSpace(original), strings.TrimSpace(english)) {
		return original
	}
	return english + " (" + original + ")"
}

// normalizeReply cleans a backend reply into a label
func normalizeReply(reply string) string {
	s := strings.TrimSpace(reply)
	s = replyQuotes.Replace(s)
	s = replyPrefix.ReplaceAllString(s, "")
	return FormatLabel(strings.TrimSpace(s))
}

var englishWords = map[string]bool{
	"first": true, "last": true, "name": true, "email": true, "phone": true,
	"address": true, "date": true, "birth": true, "gender": true,
	"nationality": true, "country": true, "city": true, "street": true,
	"postal": true, "code": true, "signature": true, "comments": true,
	"other": true, "yes": true, "no": true, "male": true, "female": true,
}

// looksEnglish reports whether any word of the name is a common English
// form term
func looksEnglish(name string) bool {
	for _, w := range strings.Fields(strings.ToLower(FormatLabel(name))) {
		if englishWords[w] {
			return true
		}
	}
	return false
}
