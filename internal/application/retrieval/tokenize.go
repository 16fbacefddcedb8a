package retrieval

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const minTokenRunes = 3

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "without": {}, "that": {},
	"this": {}, "from": {}, "into": {}, "want": {}, "would": {}, "like": {},
	"some": {}, "more": {}, "less": {}, "not": {}, "but": {}, "are": {},
	"can": {}, "have": {}, "has": {}, "need": {}, "please": {}, "prefer": {},
	"plan": {}, "diet": {}, "exercise": {}, "food": {}, "foods": {}, "meal": {},
	"meals": {}, "day": {}, "week": {}, "very": {}, "much": {}, "any": {},
	"all": {}, "you": {}, "your": {}, "our": {}, "its": {}, "also": {},
	"about": {}, "should": {}, "could": {}, "will": {}, "i'd": {}, "i'm": {},
}

// Tokenize lower-cases text, splits on anything that is not a letter or
// digit and drops stop words and short tokens. Order of first occurrence
// is kept and duplicates are removed.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]struct{}, len(fields))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if utf8.RuneCountInString(f) < minTokenRunes {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		tokens = append(tokens, f)
	}
	return tokens
}

// normalizeQuery collapses whitespace and case so equivalent queries share a cache key
func normalizeQuery(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
