package words

import (
	"context"
	"time"

	"storybuddy/core"
)

const (
	// pacingDelay is slept after each provider call so batch generation
	// doesn't burst the synthesis API. Cache hits pay nothing.
	pacingDelay = 100 * time.Millisecond
	// generateTimeout bounds one provider call.
	generateTimeout = 30 * time.Second
)

// Pipeline resolves tokens into per-word audio: decorations short-circuit,
// cached words load from the store, misses go through the generator and are
// written back best-effort. The cache is the sole source of truth for
// "already synthesized"; the pipeline itself holds no durable state.
type Pipeline struct {
	cache *Cache
	gen   *Generator
	log   *core.Logger
}

// NewPipeline wires the cache and generator together.
func NewPipeline(cache *Cache, gen *Generator, log *core.Logger) *Pipeline {
	if log == nil {
		log = core.GetLogger()
	}
	return &Pipeline{
		cache: cache,
		gen:   gen,
		log:   log.With(map[string]interface{}{"component": "wordpipeline"}),
	}
}

// ProcessText tokenizes text and resolves every token in order. Words whose
// generation fails are omitted entirely; consumers reconstruct layout from
// Token.Position, never from slice length.
func (p *Pipeline) ProcessText(ctx context.Context, text string) []WordResult {
	return p.ProcessTokens(ctx, Tokenize(text))
}

// ProcessTokens resolves an already-tokenized sequence in order.
func (p *Pipeline) ProcessTokens(ctx context.Context, tokens []Token) []WordResult {
	results := make([]WordResult, 0, len(tokens))
	for _, tok := range tokens {
		res, err := p.ResolveToken(ctx, tok)
		if err != nil {
			p.log.With(map[string]interface{}{"word": tok.Text, "index": tok.Position, "error": err}).Warn("word generation failed, omitting")
			continue
		}
		results = append(results, res)
	}
	return results
}

// ResolveToken resolves a single token: decoration -> no audio, cache hit
// -> cached bytes, miss -> generate and write through. Only a generation
// failure returns an error; a cache-write failure is logged and the freshly
// generated audio still returned.
func (p *Pipeline) ResolveToken(ctx context.Context, tok Token) (WordResult, error) {
	if tok.Class == ClassDecoration {
		p.log.With(map[string]interface{}{"index": tok.Position, "token": tok.Text}).Debug("skipping decoration")
		return WordResult{Token: tok}, nil
	}

	key := NormalizeKey(tok.Text)
	if audio, ok := p.cache.Get(key); ok {
		return WordResult{Token: tok, Audio: audio, FromCache: true}, nil
	}

	genCtx, cancel := context.WithTimeout(ctx, generateTimeout)
	audio, err := p.gen.Generate(genCtx, tok.Text)
	cancel()
	if err != nil {
		return WordResult{}, err
	}

	if err := p.cache.Put(key, audio); err != nil {
		// Best-effort write-through: the word was generated, so it is
		// still returned; it will regenerate next time.
		p.log.With(map[string]interface{}{"key": key, "error": err}).Warn("cache write failed")
	}

	p.pace(ctx)
	return WordResult{Token: tok, Audio: audio, FromCache: false}, nil
}

// pace sleeps the fixed inter-generation delay, abandoning early if the
// caller's context ends.
func (p *Pipeline) pace(ctx context.Context) {
	select {
	case <-time.After(pacingDelay):
	case <-ctx.Done():
	}
}
