package words

import "strings"

// pictographicRanges are the code-point blocks treated as decorative:
// emoticons, symbols & pictographs, transport & map symbols, regional
// indicators (flags), miscellaneous symbols, dingbats, supplemental
// symbols, and symbols extended-A.
var pictographicRanges = [][2]rune{
	{0x1F600, 0x1F64F},
	{0x1F300, 0x1F5FF},
	{0x1F680, 0x1F6FF},
	{0x1F1E0, 0x1F1FF},
	{0x2600, 0x26FF},
	{0x2700, 0x27BF},
	{0x1F900, 0x1F9FF},
	{0x1FA70, 0x1FAFF},
}

// Classify decides whether a token is a pronounceable word or a decorative
// symbol. A token is ClassDecoration only when every rune falls inside the
// pictographic ranges; anything mixed ("cat!") is a word. Empty input
// classifies as a word so a stray empty token never reaches the decoration
// short-circuit.
func Classify(token string) TokenClass {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return ClassWord
	}
	for _, r := range trimmed {
		if !isPictographic(r) {
			return ClassWord
		}
	}
	return ClassDecoration
}

func isPictographic(r rune) bool {
	for _, rng := range pictographicRanges {
		if r >= rng[0] && r <= rng[1] {
			return true
		}
	}
	return false
}
