package core

import "fmt"

// ProviderError indicates a failed call to an external provider (speech
// synthesis or language model): a non-2xx response, a transport failure, or
// a timeout.
type ProviderError struct {
	Provider string // "elevenlabs", "gemini"
	Status   int    // HTTP status when the call got a response, 0 otherwise
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// CacheIOError indicates a blob or index read/write failure in the word
// audio cache. Reads degrade to cache misses; writes are logged and
// swallowed by callers.
type CacheIOError struct {
	Op   string // "read blob", "write blob", "persist index", ...
	Path string
	Err  error
}

func (e *CacheIOError) Error() string {
	return fmt.Sprintf("cache: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *CacheIOError) Unwrap() error {
	return e.Err
}

// ProtocolError indicates a malformed or out-of-sequence session message.
// It is surfaced to the client as an error event without mutating session
// state.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "protocol: " + e.Reason
}

// NewProtocolError builds a ProtocolError with a formatted reason.
func NewProtocolError(format string, args ...interface{}) *ProtocolError {
	return &ProtocolError{Reason: fmt.Sprintf(format, args...)}
}
