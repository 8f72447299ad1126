package words

import (
	"context"
	"strings"

	"storybuddy/core"
)

// Synthesizer is the external per-word speech capability. Implementations
// must use a voice profile tuned for single-word clarity, not the
// paragraph profile.
type Synthesizer interface {
	SynthesizeWord(ctx context.Context, text string) ([]byte, error)
}

// surroundingPunct is stripped from a word before shaping its spoken form.
const surroundingPunct = `.,!?;:"()[]{}`

// Generator turns one word into audio bytes, shaping the text first so the
// provider enunciates slowly and clearly. Naive single-word synthesis at
// paragraph settings comes out clipped; the trailing ellipsis plus an
// explicit pause cue for punctuation is the workaround.
type Generator struct {
	synth Synthesizer
	log   *core.Logger
}

// NewGenerator creates a Generator backed by the given synthesizer.
func NewGenerator(synth Synthesizer, log *core.Logger) *Generator {
	if log == nil {
		log = core.GetLogger()
	}
	return &Generator{
		synth: synth,
		log:   log.With(map[string]interface{}{"component": "wordgen"}),
	}
}

// SpokenForm returns the shaped text actually sent to the provider for a
// surface word: punctuation stripped, elongated with "...", and followed by
// a pause cue when the word ends a sentence or clause.
func SpokenForm(word string) string {
	clean := strings.Trim(word, surroundingPunct)
	switch {
	case strings.HasSuffix(word, "."), strings.HasSuffix(word, "!"), strings.HasSuffix(word, "?"):
		return clean + "... ."
	case strings.HasSuffix(word, ","), strings.HasSuffix(word, ";"), strings.HasSuffix(word, ":"):
		return clean + "... ,"
	default:
		return clean + "..."
	}
}

// Generate synthesizes one word. Failures come back as ProviderError; the
// caller decides whether to omit the word or emit an error event.
func (g *Generator) Generate(ctx context.Context, word string) ([]byte, error) {
	spoken := SpokenForm(word)
	g.log.With(map[string]interface{}{"word": word, "spoken": spoken}).Debug("generating word audio")

	audio, err := g.synth.SynthesizeWord(ctx, spoken)
	if err != nil {
		return nil, err
	}
	return audio, nil
}
