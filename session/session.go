// Package session implements the per-connection incremental delivery state
// machine: a story is set once, then per-word audio is generated and
// streamed batch by batch on client demand.
package session

import (
	"context"
	"encoding/base64"
	"sync"

	"github.com/google/uuid"

	"storybuddy/core"
	"storybuddy/protocol"
	"storybuddy/words"
)

// State is the session lifecycle position.
type State int

const (
	// StateIdle is the state before any story has been set.
	StateIdle State = iota
	// StateStorySet means tokens are loaded and batches may be requested.
	StateStorySet
	// StateDelivering means one generate_set is in flight.
	StateDelivering
)

// Emitter delivers one protocol message to the connected client. The
// session emits word_ready/word_error events one at a time as words
// resolve, so the client observes partial progress.
type Emitter interface {
	Emit(msgType protocol.MessageType, payload interface{}) error
}

// Session is a single client's delivery state. It is owned by one
// connection and holds no durable state: closing the connection discards
// it, and a reconnecting client resends set_story (previously generated
// words then resolve instantly from the shared cache).
type Session struct {
	ID        string
	pipeline  *words.Pipeline
	batchSize int
	log       *core.Logger

	mu     sync.Mutex
	state  State
	tokens []words.Token
}

// New creates an idle session bound to the shared pipeline.
func New(pipeline *words.Pipeline, batchSize int, log *core.Logger) *Session {
	if log == nil {
		log = core.GetLogger()
	}
	id := uuid.NewString()
	return &Session{
		ID:        id,
		pipeline:  pipeline,
		batchSize: batchSize,
		log:       log.With(map[string]interface{}{"session": id}),
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetStory tokenizes text and makes it the session's story, discarding any
// previous story and partial-batch bookkeeping. Returns the total token
// count. Allowed in any state; re-entering while delivering is rejected by
// the in-flight guard in GenerateSet, not here, because set_story is
// processed on the same single-threaded message loop.
func (s *Session) SetStory(text string) int {
	tokens := words.Tokenize(text)

	s.mu.Lock()
	s.tokens = tokens
	s.state = StateStorySet
	s.mu.Unlock()

	s.log.With(map[string]interface{}{"tokens": len(tokens)}).Info("story set")
	return len(tokens)
}

// GenerateSet resolves the batch's tokens in position order, emitting one
// word_ready (or word_error) per token as it resolves, then a single
// batch_complete. A per-word generation failure never aborts the rest of
// the batch. Protocol violations return a ProtocolError without emitting
// anything or changing state.
func (s *Session) GenerateSet(ctx context.Context, batchIndex int, em Emitter) error {
	s.mu.Lock()
	switch s.state {
	case StateIdle:
		s.mu.Unlock()
		return core.NewProtocolError("no story set")
	case StateDelivering:
		s.mu.Unlock()
		return core.NewProtocolError("a batch is already in flight")
	}
	// Range-check the index before multiplying: a huge value from the wire
	// must come back as out-of-bounds, not overflow into a negative offset.
	lastBatch := (len(s.tokens) - 1) / s.batchSize
	if batchIndex < 0 || len(s.tokens) == 0 || batchIndex > lastBatch {
		s.mu.Unlock()
		return core.NewProtocolError("batch index %d out of bounds for %d tokens", batchIndex, len(s.tokens))
	}

	start := batchIndex * s.batchSize
	end := start + s.batchSize
	if end > len(s.tokens) {
		end = len(s.tokens)
	}
	batch := s.tokens[start:end]
	s.state = StateDelivering
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.state == StateDelivering {
			s.state = StateStorySet
		}
		s.mu.Unlock()
	}()

	s.log.With(map[string]interface{}{"batch": batchIndex, "start": start, "end": end}).Info("delivering batch")

	for _, tok := range batch {
		if err := ctx.Err(); err != nil {
			return err
		}

		res, err := s.pipeline.ResolveToken(ctx, tok)
		if err != nil {
			s.log.With(map[string]interface{}{"word": tok.Text, "index": tok.Position, "error": err}).Warn("word generation failed")
			if emitErr := em.Emit(protocol.MsgWordError, protocol.WordErrorPayload{
				Word:  tok.Text,
				Index: tok.Position,
				Error: err.Error(),
			}); emitErr != nil {
				return emitErr
			}
			continue
		}

		if err := em.Emit(protocol.MsgWordReady, wordReadyPayload(res)); err != nil {
			return err
		}
	}

	return em.Emit(protocol.MsgBatchComplete, protocol.BatchCompletePayload{
		BatchIndex: batchIndex,
		StartIndex: start,
		EndIndex:   end,
	})
}

// wordReadyPayload converts a pipeline result to its wire form. Audio is
// base64-encoded here, at the transport edge; the core works on raw bytes.
func wordReadyPayload(res words.WordResult) protocol.WordReadyPayload {
	p := protocol.WordReadyPayload{
		Word:         res.Token.Text,
		Index:        res.Token.Position,
		IsDecoration: res.Token.Class == words.ClassDecoration,
		FromCache:    res.FromCache,
	}
	if len(res.Audio) > 0 {
		p.Audio = base64.StdEncoding.EncodeToString(res.Audio)
	}
	return p
}
