package protocol

import "encoding/json"

// MessageType enumerates all reading-session message types.
type MessageType string

const (
	// Client -> server
	MsgSetStory    MessageType = "set_story"
	MsgGenerateSet MessageType = "generate_set"
	MsgPing        MessageType = "ping"

	// Server -> client
	MsgStorySet      MessageType = "story_set"
	MsgWordReady     MessageType = "word_ready"
	MsgWordError     MessageType = "word_error"
	MsgBatchComplete MessageType = "batch_complete"
	MsgPong          MessageType = "pong"
	MsgError         MessageType = "error"
)

// Envelope is the outer JSON wrapper for all WebSocket messages.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// --- Client -> server payloads ---

// SetStoryPayload assigns the story text for this session, replacing any
// previous story and discarding delivered-batch state.
type SetStoryPayload struct {
	Text string `json:"text"`
}

// GenerateSetPayload requests one batch of per-word audio by batch index.
type GenerateSetPayload struct {
	BatchIndex int `json:"batch_index"`
}

// --- Server -> client payloads ---

// StorySetPayload acknowledges set_story with the total token count.
type StorySetPayload struct {
	TotalWords int `json:"total_words"`
}

// WordReadyPayload carries one resolved word. Audio is base64-encoded MP3
// and is empty for decorations.
type WordReadyPayload struct {
	Word         string `json:"word"`
	Index        int    `json:"index"`
	Audio        string `json:"audio,omitempty"`
	IsDecoration bool   `json:"is_decoration"`
	FromCache    bool   `json:"from_cache"`
}

// WordErrorPayload reports a single word whose generation failed. The rest
// of the batch continues.
type WordErrorPayload struct {
	Word  string `json:"word"`
	Index int    `json:"index"`
	Error string `json:"error"`
}

// BatchCompletePayload terminates a batch's event stream. EndIndex is
// exclusive.
type BatchCompletePayload struct {
	BatchIndex int `json:"batch_index"`
	StartIndex int `json:"start_index"`
	EndIndex   int `json:"end_index"`
}

// ErrorPayload reports a protocol violation (missing story, out-of-bounds
// batch, malformed message).
type ErrorPayload struct {
	Message string `json:"message"`
}
