package words

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storybuddy/core"
)

type recordingSynth struct {
	requests []string
	audio    []byte
	err      error
}

func (r *recordingSynth) SynthesizeWord(_ context.Context, text string) ([]byte, error) {
	r.requests = append(r.requests, text)
	if r.err != nil {
		return nil, r.err
	}
	return r.audio, nil
}

func TestSpokenForm(t *testing.T) {
	t.Parallel()

	tests := []struct {
		word string
		want string
	}{
		{"cat", "cat..."},
		{"world!", "world... ."},
		{"end.", "end... ."},
		{"really?", "really... ."},
		{"Hello,", "Hello... ,"},
		{"then;", "then... ,"},
		{"so:", "so... ,"},
		{"\"quoted\"", "quoted..."},
		{"(aside)", "aside..."},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.word, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, SpokenForm(tc.word))
		})
	}
}

func TestGeneratorSendsShapedText(t *testing.T) {
	t.Parallel()

	synth := &recordingSynth{audio: []byte("mp3")}
	gen := NewGenerator(synth, nil)

	audio, err := gen.Generate(context.Background(), "Hello,")
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3"), audio)
	require.Len(t, synth.requests, 1)
	assert.Equal(t, "Hello... ,", synth.requests[0])
}

func TestGeneratorPropagatesProviderError(t *testing.T) {
	t.Parallel()

	provErr := &core.ProviderError{Provider: "elevenlabs", Status: 500, Err: errors.New("boom")}
	gen := NewGenerator(&recordingSynth{err: provErr}, nil)

	_, err := gen.Generate(context.Background(), "cat")
	require.Error(t, err)

	var pe *core.ProviderError
	assert.ErrorAs(t, err, &pe)
}
