package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// pagePrompt is sent by the cloud providers with each page image
const pagePrompt = `Extract every printed or handwritten word from this scanned form page.
Return ONLY valid JSON with no markdown formatting, no code blocks, no explanation.

Format:
{
  "words": [
    {"text": "Vorname:", "bbox": [x, y, width, height], "confidence": 0.95}
  ]
}

Rules:
- Keep punctuation such as ":" and "*" attached to the word
- Report checkbox glyphs such as "☐" or "[ ]" as separate words
- bbox coordinates are pixels from top-left (0,0)
- confidence is 0.0-1.0, use 0.8 if uncertain
- Return {"words": []} if no text found`

// parseWords decodes a model reply into words. Models sometimes wrap JSON in
// a markdown fence or return a bare array, both are accepted.
func parseWords(content string) ([]Word, error) {
	content = stripCodeFence(content)

	var wrapped struct {
		Words []Word `json:"words"`
	}
	if err := json.Unmarshal([]byte(content), &wrapped); err == nil {
		return wrapped.Words, nil
	}

	var words []Word
	if err := json.Unmarshal([]byte(content), &words); err != nil {
		return nil, fmt.Errorf("failed to parse OCR response: %w", err)
	}
	return words, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
