// Package words implements the word-level audio pipeline: tokenization,
// classification, the durable per-word audio cache, and the orchestrator
// that turns a block of text into an ordered sequence of per-word clips.
package words

import (
	"strings"
	"unicode"
)

// TokenClass distinguishes pronounceable words from decorative symbols.
type TokenClass int

const (
	// ClassWord is a pronounceable token that goes through synthesis.
	ClassWord TokenClass = iota
	// ClassDecoration is a token made entirely of pictographic symbols.
	// Decorations are displayed but never synthesized or cached.
	ClassDecoration
)

func (c TokenClass) String() string {
	if c == ClassDecoration {
		return "decoration"
	}
	return "word"
}

// Token is one whitespace-delimited unit of input text. Position is the
// zero-based split index and is the stable ordering key for results.
type Token struct {
	Text     string
	Position int
	Class    TokenClass
}

// WordResult is the per-token pipeline output. Audio is nil for
// decorations; a word whose generation failed produces no WordResult at
// all, so consumers must use Position rather than slice index to
// reconstruct layout.
type WordResult struct {
	Token     Token
	Audio     []byte
	FromCache bool
}

// Tokenize splits text on whitespace into classified tokens, preserving
// surface forms and original order.
func Tokenize(text string) []Token {
	fields := strings.Fields(text)
	tokens := make([]Token, len(fields))
	for i, f := range fields {
		tokens[i] = Token{
			Text:     f,
			Position: i,
			Class:    Classify(f),
		}
	}
	return tokens
}

// NormalizeKey reduces a word to its cache identity: lower-cased with all
// non-alphanumeric runes removed. "Cat!", "cat" and "CAT," share one key.
func NormalizeKey(word string) string {
	var b strings.Builder
	b.Grow(len(word))
	for _, r := range word {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
