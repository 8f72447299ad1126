package words

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		token string
		want  TokenClass
	}{
		{"plain word", "cat", ClassWord},
		{"word with punctuation", "cat!", ClassWord},
		{"capitalized word", "Hello,", ClassWord},
		{"number", "42", ClassWord},
		{"empty string", "", ClassWord},
		{"whitespace only", "   ", ClassWord},
		{"single emoticon", "😀", ClassDecoration},
		{"pictograph", "🌟", ClassDecoration},
		{"transport symbol", "🚗", ClassDecoration},
		{"flag pair", "🇺🇸", ClassDecoration},
		{"dingbat", "✨", ClassDecoration},
		{"misc symbol", "☀", ClassDecoration},
		{"supplemental symbol", "🤸", ClassDecoration},
		{"extended-A symbol", "🪀", ClassDecoration},
		{"multiple emojis", "🐱😺", ClassDecoration},
		{"emoji mixed with letters", "cat🐱", ClassWord},
		{"emoji with punctuation", "🐱!", ClassWord},
		{"bare period", ".", ClassWord},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, Classify(tc.token))
		})
	}
}
