package words

import "strings"

// WordTiming is an estimated on-screen highlight window for one word of a
// full-paragraph narration, in milliseconds from the start of the audio.
type WordTiming struct {
	Word      string  `json:"word"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Index     int     `json:"index"`
}

// commonWords are spoken slower in the child-friendly voice profile and get
// extra time in the estimate.
var commonWords = map[string]bool{
	"the": true, "and": true, "but": true, "or": true, "so": true,
	"then": true, "when": true, "where": true, "why": true, "how": true,
}

// EstimateTimings derives per-word timing from text analysis and the audio
// size. The audio is never decoded; the total duration is approximated from
// the MP3 byte count at ~16kbps, stretched 50% for the slow enunciated
// profile, and per-word durations are scaled from length, syllable count
// and punctuation pauses.
func EstimateTimings(tokens []string, audioSizeBytes int) []WordTiming {
	totalMs := float64(audioSizeBytes*8) / 16000 * 1000 * 1.5

	timings := make([]WordTiming, 0, len(tokens))
	current := 0.0
	for i, word := range tokens {
		duration := 700.0                          // base per word
		duration += float64(len(word)) * 100       // per character
		duration += float64(syllables(word)) * 200 // per syllable

		switch {
		case strings.HasSuffix(word, "."), strings.HasSuffix(word, "!"), strings.HasSuffix(word, "?"):
			duration += 400
		case strings.HasSuffix(word, ","), strings.HasSuffix(word, ";"), strings.HasSuffix(word, ":"):
			duration += 200
		}

		if commonWords[strings.ToLower(word)] {
			duration += 200
		}

		// Never run past the estimated total.
		if current+duration > totalMs {
			duration = totalMs - current
			if duration < 150 {
				duration = 150
			}
		}

		timings = append(timings, WordTiming{
			Word:      word,
			StartTime: current,
			EndTime:   current + duration,
			Index:     i,
		})
		current += duration
	}
	return timings
}

// syllables estimates a word's syllable count by counting vowel groups,
// discounting a trailing silent 'e'.
func syllables(word string) int {
	word = strings.ToLower(strings.Trim(word, ".,!?;:"))
	if word == "" {
		return 1
	}

	const vowels = "aeiouy"
	count := 0
	prevVowel := false
	for _, r := range word {
		isVowel := strings.ContainsRune(vowels, r)
		if isVowel && !prevVowel {
			count++
		}
		prevVowel = isVowel
	}

	if strings.HasSuffix(word, "e") && count > 1 {
		count--
	}
	if count < 1 {
		count = 1
	}
	return count
}
