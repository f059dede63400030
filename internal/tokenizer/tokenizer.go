// Package tokenizer provides the single, shared text normalizer used for
// both indexing and querying. It lower-cases input, splits on word
// boundaries, strips non-word characters from each token, and drops short
// tokens and stop-words. Any change here must be applied to both the
// indexing and query paths simultaneously — there is exactly one tokenizer
// in this codebase, imported everywhere tokens are needed.
package tokenizer

import (
	"strings"
	"unicode"
)

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {},
	"have": {}, "has": {}, "had": {}, "do": {}, "does": {}, "did": {},
	"will": {}, "would": {}, "could": {}, "should": {}, "may": {}, "might": {},
	"can": {}, "this": {}, "that": {}, "these": {}, "those": {}, "i": {},
	"you": {}, "he": {}, "she": {}, "it": {}, "we": {}, "they": {}, "me": {},
	"him": {}, "her": {}, "us": {}, "them": {},
}

// Tokenize breaks text into an ordered slice of accepted, lower-cased
// terms. It is deterministic and holds no state.
func Tokenize(text string) []string {
	lower := strings.ToLower(text)
	words := strings.FieldsFunc(lower, isWordBoundary)

	tokens := make([]string, 0, len(words))
	for _, w := range words {
		term := stripNonWord(w)
		if len(term) <= 2 {
			continue
		}
		if _, stop := stopWords[term]; stop {
			continue
		}
		tokens = append(tokens, term)
	}
	return tokens
}

// isWordBoundary reports whether r should split two tokens apart even
// though it is not whitespace (punctuation, symbols).
func isWordBoundary(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// stripNonWord removes any remaining non-word runes from inside a token
// (step 3 of the normalization procedure), collapsing e.g. "don't" style
// residue left over from word splitting.
func stripNonWord(word string) string {
	var b strings.Builder
	b.Grow(len(word))
	for _, r := range word {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
