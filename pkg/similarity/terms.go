package similarity

import (
	"strings"
	"unicode"
)

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "been": true, "being": true,
	"have": true, "has": true, "had": true, "do": true, "does": true,
	"did": true, "will": true, "would": true, "could": true, "should": true,
	"this": true, "that": true, "these": true, "those": true,
	"and": true, "or": true, "but": true, "if": true, "then": true,
	"for": true, "from": true, "with": true, "about": true, "into": true,
	"to": true, "of": true, "in": true, "on": true, "at": true, "by": true,
	"it": true, "its": true, "which": true, "who": true, "what": true,
	"when": true, "where": true, "how": true, "why": true,
	// Korean particles and fillers that survive whitespace tokenisation
	"그리고": true, "그러나": true, "하지만": true, "또는": true, "및": true,
	"등": true, "이": true, "그": true, "저": true, "것": true, "수": true,
	"있다": true, "없다": true, "한다": true, "합니다": true, "있습니다": true,
}

// IsStopWord reports whether word (lower-cased) carries no topical meaning.
func IsStopWord(word string) bool {
	return stopWords[strings.ToLower(word)]
}

// Tokenize splits text on anything that is not a letter, digit or underscore.
// Hangul syllables count as letters. Case is preserved.
func Tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})
}

// Terms extracts the set of meaningful lower-cased terms from text.
// Terms shorter than two runes and stop words are dropped.
func Terms(text string) map[string]bool {
	terms := make(map[string]bool)
	for _, word := range Tokenize(strings.ToLower(text)) {
		if len([]rune(word)) >= 2 && !stopWords[word] {
			terms[word] = true
		}
	}
	return terms
}

// JaccardSimilarity calculates the Jaccard similarity between two term sets.
// Returns a value between 0 (no overlap) and 1 (identical).
func JaccardSimilarity(set1, set2 map[string]bool) float64 {
	if len(set1) == 0 && len(set2) == 0 {
		return 1.0
	}
	if len(set1) == 0 || len(set2) == 0 {
		return 0.0
	}

	intersection := 0
	for term := range set1 {
		if set2[term] {
			intersection++
		}
	}

	union := len(set1) + len(set2) - intersection
	if union == 0 {
		return 0.0
	}

	return float64(intersection) / float64(union)
}
