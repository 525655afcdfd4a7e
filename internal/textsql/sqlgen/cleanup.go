package sqlgen

import (
	"regexp"
	"strings"
	"unicode"
)

const refusalExcerptLimit = 200

var (
	sqlLabel       = regexp.MustCompile(`(?i)^\s*(sql|query)\s*:\s*`)
	startsSelect   = regexp.MustCompile(`(?i)^\s*SELECT\b`)
	sentenceEnding = regexp.MustCompile(`[.!?](\s|$)`)
)

// CleanOutput strips the wrapping models put around SQL: markdown fences,
// a "SQL:" label and trailing semicolons.
func CleanOutput(raw string) string {
	text := strings.TrimSpace(raw)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```sql")
		text = strings.TrimPrefix(text, "```SQL")
		text = strings.TrimPrefix(text, "```postgresql")
		text = strings.TrimPrefix(text, "```")
		if i := strings.Index(text, "```"); i >= 0 {
			text = text[:i]
		}
		text = strings.TrimSpace(text)
	}

	text = sqlLabel.ReplaceAllString(text, "")
	return stripTrailingSemicolons(text)
}

func stripTrailingSemicolons(s string) string {
	return strings.TrimRightFunc(s, func(r rune) bool {
		return r == ';' || unicode.IsSpace(r)
	})
}

// DetectRefusal reports whether cleaned output is prose rather than SQL
// and, if so, returns a short message taken from it.
func DetectRefusal(cleaned string) (string, bool) {
	if startsSelect.MatchString(cleaned) {
		return "", false
	}
	text := strings.TrimSpace(cleaned)
	if len(text) >= len(MissingPrefix) && strings.EqualFold(text[:len(MissingPrefix)], MissingPrefix) {
		text = text[len(MissingPrefix):]
	}
	return refusalMessage(text), true
}

func refusalMessage(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return "I couldn't turn that question into a query."
	}
	if loc := sentenceEnding.FindStringIndex(text); loc != nil && loc[0]+1 <= refusalExcerptLimit {
		return text[:loc[0]+1]
	}
	if len(text) <= refusalExcerptLimit {
		return text
	}
	cut := text[:refusalExcerptLimit]
	if i := strings.LastIndexByte(cut, ' '); i > refusalExcerptLimit/2 {
		cut = cut[:i]
	}
	return cut + "..."
}
