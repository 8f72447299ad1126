// Package emoji picks illustrative emojis for story text. It is cosmetic
// and best-effort: nothing in the audio pipeline depends on it.
package emoji

import "strings"

// DefaultEmojis is returned when nothing in the text matches the table.
const DefaultEmojis = "📖🌟✨"

const maxEmojis = 5

type entry struct {
	keywords []string
	emojis   []string
}

// table maps story keywords to emojis. Matching is plain substring search
// against the lower-cased text, so "cats" matches the "cat" entry.
var table = []entry{
	// Animals
	{[]string{"cat", "kitten", "kitty", "meow", "feline"}, []string{"🐱", "😺"}},
	{[]string{"dog", "puppy", "pup", "woof", "bark"}, []string{"🐶", "🐕"}},
	{[]string{"bird", "fly", "wing", "tweet"}, []string{"🐦", "🕊️"}},
	{[]string{"fish", "swim", "ocean", "sea"}, []string{"🐠", "🐟"}},
	{[]string{"bunny", "rabbit", "hop"}, []string{"🐰", "🐇"}},
	{[]string{"bear", "teddy"}, []string{"🐻", "🧸"}},
	{[]string{"elephant"}, []string{"🐘"}},
	{[]string{"lion", "roar"}, []string{"🦁"}},
	{[]string{"tiger"}, []string{"🐯"}},
	{[]string{"monkey", "ape"}, []string{"🐵", "🐒"}},
	{[]string{"mouse", "mice", "rat"}, []string{"🐭", "🐁"}},

	// Nature & weather
	{[]string{"sun", "sunny", "bright", "shine", "shone", "shining"}, []string{"☀️", "🌞"}},
	{[]string{"moon", "night", "dark"}, []string{"🌙", "🌛"}},
	{[]string{"star", "twinkle"}, []string{"⭐", "✨"}},
	{[]string{"tree", "forest", "wood"}, []string{"🌳", "🌲"}},
	{[]string{"flower", "garden", "bloom"}, []string{"🌸", "🌺"}},
	{[]string{"rain", "wet"}, []string{"🌧️", "☔"}},
	{[]string{"cloud"}, []string{"☁️", "⛅"}},
	{[]string{"rainbow"}, []string{"🌈"}},

	// Emotions & actions
	{[]string{"happy", "joy", "smile", "glad", "excited"}, []string{"😊", "😄"}},
	{[]string{"sad", "cry", "tear"}, []string{"😢", "😭"}},
	{[]string{"love", "heart", "liked", "loved"}, []string{"❤️", "💖"}},
	{[]string{"play", "fun"}, []string{"🎮", "🎨"}},
	{[]string{"sleep", "tired", "nap"}, []string{"😴", "💤"}},
	{[]string{"eat", "food", "hungry"}, []string{"🍽️", "🍴"}},
	{[]string{"look", "see", "saw", "watch"}, []string{"👀", "👁️"}},
	{[]string{"run", "ran", "race", "fast"}, []string{"🏃", "💨"}},
	{[]string{"jump", "leap"}, []string{"🤸", "⬆️"}},
	{[]string{"walk", "stroll"}, []string{"🚶", "🐾"}},
	{[]string{"dance", "danced"}, []string{"💃", "🕺"}},
	{[]string{"sing", "sang", "song"}, []string{"🎤", "🎵"}},

	// Objects
	{[]string{"ball"}, []string{"⚽", "🏀"}},
	{[]string{"book", "read", "story"}, []string{"📖", "📚"}},
	{[]string{"house", "home"}, []string{"🏠", "🏡"}},
	{[]string{"car", "drive"}, []string{"🚗", "🚙"}},
	{[]string{"toy"}, []string{"🧸", "🎲"}},

	// Descriptive
	{[]string{"big", "large", "giant", "huge"}, []string{"📏"}},
	{[]string{"small", "tiny", "little", "mini"}, []string{"🐾"}},
	{[]string{"pretty", "beautiful", "cute", "adorable"}, []string{"✨"}},
	{[]string{"brave", "strong", "hero"}, []string{"💪"}},
	{[]string{"magic", "spell"}, []string{"✨"}},
	{[]string{"friend", "buddy", "pal"}, []string{"👫"}},
}

// ForWords returns up to 5 emojis matched from the keyword table, in table
// order with duplicates removed. No match yields DefaultEmojis.
func ForWords(text string) string {
	lower := strings.ToLower(text)

	seen := make(map[string]bool)
	var picked []string
	for _, e := range table {
		if !anySubstring(lower, e.keywords) {
			continue
		}
		for _, em := range e.emojis {
			if !seen[em] {
				seen[em] = true
				picked = append(picked, em)
			}
		}
	}

	if len(picked) == 0 {
		return DefaultEmojis
	}
	if len(picked) > maxEmojis {
		picked = picked[:maxEmojis]
	}
	return strings.Join(picked, "")
}

func anySubstring(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// Extract keeps only emoji runes from a model response, dropping any
// explanatory text around them.
func Extract(s string) string {
	var b strings.Builder
	for _, r := range s {
		if isEmojiRune(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isEmojiRune(r rune) bool {
	switch {
	case r >= 0x1F300 && r <= 0x1F9FF:
		return true
	case r >= 0x2600 && r <= 0x27BF:
		return true
	case r >= 0x1F1E6 && r <= 0x1F1FF:
		return true
	case r == 0xFE0F: // variation selector, keeps presentation sequences intact
		return true
	default:
		return false
	}
}
