package words

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingSynth returns deterministic audio per word and can be told to
// fail for specific surface words.
type countingSynth struct {
	mu      sync.Mutex
	calls   int
	perWord map[string]int // shaped text -> call count
	failFor map[string]bool
}

func newCountingSynth() *countingSynth {
	return &countingSynth{
		perWord: make(map[string]int),
		failFor: make(map[string]bool),
	}
}

func (c *countingSynth) SynthesizeWord(_ context.Context, text string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.perWord[text]++
	for word := range c.failFor {
		if strings.HasPrefix(text, word) {
			return nil, errors.New("synthesis failed")
		}
	}
	return []byte("audio:" + text), nil
}

func (c *countingSynth) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func newTestPipeline(t *testing.T, synth Synthesizer) *Pipeline {
	t.Helper()
	cache, err := NewCache(t.TempDir(), nil)
	require.NoError(t, err)
	return NewPipeline(cache, NewGenerator(synth, nil), nil)
}

func TestPipelineIdempotentCaching(t *testing.T) {
	t.Parallel()

	synth := newCountingSynth()
	p := newTestPipeline(t, synth)
	ctx := context.Background()

	first := p.ProcessText(ctx, "cat")
	require.Len(t, first, 1)
	assert.False(t, first[0].FromCache)

	second := p.ProcessText(ctx, "cat")
	require.Len(t, second, 1)
	assert.True(t, second[0].FromCache)
	assert.Equal(t, first[0].Audio, second[0].Audio)

	// Exactly one provider call across both runs.
	assert.Equal(t, 1, synth.callCount())
}

func TestPipelineKeyNormalizationSharesOneBlob(t *testing.T) {
	t.Parallel()

	synth := newCountingSynth()
	p := newTestPipeline(t, synth)
	ctx := context.Background()

	p.ProcessText(ctx, "Cat!")
	results := p.ProcessText(ctx, "cat CAT,")

	require.Len(t, results, 2)
	assert.True(t, results[0].FromCache)
	assert.True(t, results[1].FromCache)
	assert.Equal(t, 1, synth.callCount())
}

func TestPipelineDecorationShortCircuit(t *testing.T) {
	t.Parallel()

	synth := newCountingSynth()
	p := newTestPipeline(t, synth)

	results := p.ProcessText(context.Background(), "🌟 ✨")
	require.Len(t, results, 2)
	for _, res := range results {
		assert.Equal(t, ClassDecoration, res.Token.Class)
		assert.Nil(t, res.Audio)
		assert.False(t, res.FromCache)
	}
	assert.Equal(t, 0, synth.callCount())
}

func TestPipelineOrderPreservationUnderFailure(t *testing.T) {
	t.Parallel()

	synth := newCountingSynth()
	synth.failFor["sat"] = true
	p := newTestPipeline(t, synth)

	results := p.ProcessText(context.Background(), "The cat sat .")
	require.Len(t, results, 3)

	positions := make([]int, len(results))
	texts := make([]string, len(results))
	for i, res := range results {
		positions[i] = res.Token.Position
		texts[i] = res.Token.Text
	}
	assert.Equal(t, []int{0, 1, 3}, positions)
	assert.Equal(t, []string{"The", "cat", "."}, texts)
}

func TestPipelineScenarioHelloWorld(t *testing.T) {
	t.Parallel()

	synth := newCountingSynth()
	p := newTestPipeline(t, synth)

	results := p.ProcessText(context.Background(), "Hello, world!")
	require.Len(t, results, 2)

	synth.mu.Lock()
	defer synth.mu.Unlock()
	assert.Equal(t, 1, synth.perWord["Hello... ,"])
	assert.Equal(t, 1, synth.perWord["world... ."])
}
