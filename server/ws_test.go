package server

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storybuddy/config"
	"storybuddy/protocol"
	elevenlabs "storybuddy/services/elevenlabs/tts"
	gemini "storybuddy/services/gemini/llm"
	"storybuddy/words"
)

func dialTestServer(t *testing.T) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(newTestServer(t).Handler())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msgType protocol.MessageType, payload interface{}) {
	t.Helper()
	data, err := protocol.Marshal(msgType, payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func receive(t *testing.T, conn *websocket.Conn) (protocol.MessageType, []byte) {
	t.Helper()
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	msgType, raw, err := protocol.Unmarshal(data)
	require.NoError(t, err)
	return msgType, raw
}

func TestWebSocketPingPong(t *testing.T) {
	t.Parallel()

	conn := dialTestServer(t)
	send(t, conn, protocol.MsgPing, nil)

	msgType, _ := receive(t, conn)
	assert.Equal(t, protocol.MsgPong, msgType)
}

func TestWebSocketStoryDelivery(t *testing.T) {
	t.Parallel()

	conn := dialTestServer(t)

	send(t, conn, protocol.MsgSetStory, protocol.SetStoryPayload{Text: "The cat sat"})
	msgType, raw := receive(t, conn)
	require.Equal(t, protocol.MsgStorySet, msgType)
	ack, err := protocol.UnmarshalPayload[protocol.StorySetPayload](raw)
	require.NoError(t, err)
	assert.Equal(t, 3, ack.TotalWords)

	send(t, conn, protocol.MsgGenerateSet, protocol.GenerateSetPayload{BatchIndex: 0})

	wantWords := []string{"The", "cat", "sat"}
	for i, want := range wantWords {
		msgType, raw := receive(t, conn)
		require.Equal(t, protocol.MsgWordReady, msgType, "event %d", i)
		word, err := protocol.UnmarshalPayload[protocol.WordReadyPayload](raw)
		require.NoError(t, err)
		assert.Equal(t, want, word.Word)
		assert.Equal(t, i, word.Index)

		audio, err := base64.StdEncoding.DecodeString(word.Audio)
		require.NoError(t, err)
		assert.NotEmpty(t, audio)
	}

	msgType, raw = receive(t, conn)
	require.Equal(t, protocol.MsgBatchComplete, msgType)
	complete, err := protocol.UnmarshalPayload[protocol.BatchCompletePayload](raw)
	require.NoError(t, err)
	assert.Equal(t, 0, complete.BatchIndex)
	assert.Equal(t, 0, complete.StartIndex)
	assert.Equal(t, 3, complete.EndIndex)
}

func TestWebSocketGenerateSetWithoutStory(t *testing.T) {
	t.Parallel()

	conn := dialTestServer(t)
	send(t, conn, protocol.MsgGenerateSet, protocol.GenerateSetPayload{BatchIndex: 0})

	msgType, raw := receive(t, conn)
	require.Equal(t, protocol.MsgError, msgType)
	perr, err := protocol.UnmarshalPayload[protocol.ErrorPayload](raw)
	require.NoError(t, err)
	assert.Contains(t, perr.Message, "no story set")
}

func TestWebSocketOutOfBoundsBatch(t *testing.T) {
	t.Parallel()

	conn := dialTestServer(t)

	send(t, conn, protocol.MsgSetStory, protocol.SetStoryPayload{Text: "one two"})
	msgType, _ := receive(t, conn)
	require.Equal(t, protocol.MsgStorySet, msgType)

	send(t, conn, protocol.MsgGenerateSet, protocol.GenerateSetPayload{BatchIndex: 7})
	msgType, raw := receive(t, conn)
	require.Equal(t, protocol.MsgError, msgType)
	perr, err := protocol.UnmarshalPayload[protocol.ErrorPayload](raw)
	require.NoError(t, err)
	assert.Contains(t, perr.Message, "out of bounds")
}

func TestWebSocketMalformedMessage(t *testing.T) {
	t.Parallel()

	conn := dialTestServer(t)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	msgType, _ := receive(t, conn)
	assert.Equal(t, protocol.MsgError, msgType)
}

func TestWebSocketCloseAbortsInFlightBatch(t *testing.T) {
	t.Parallel()

	// A synthesis upstream that parks until its request is abandoned, then
	// reports the abort. Generation timeout alone would take 30s to fire,
	// so an abort within a few seconds proves the disconnect cancelled it.
	started := make(chan struct{}, 4)
	aborted := make(chan struct{}, 4)
	ttsUpstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		<-r.Context().Done()
		aborted <- struct{}{}
	}))
	t.Cleanup(ttsUpstream.Close)

	settings := config.DefaultSettings()
	settings.Cache.Dir = t.TempDir()
	settings.StaticDir = t.TempDir()

	tts := elevenlabs.NewClient(elevenlabs.Config{APIKey: "k", BaseURL: ttsUpstream.URL}, nil)
	llm := gemini.NewClient(gemini.Config{APIKey: "k"}, nil)
	cache, err := words.NewCache(settings.Cache.Dir, nil)
	require.NoError(t, err)
	pipeline := words.NewPipeline(cache, words.NewGenerator(tts, nil), nil)

	srv := httptest.NewServer(New(settings, tts, llm, pipeline, nil).Handler())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	send(t, conn, protocol.MsgSetStory, protocol.SetStoryPayload{Text: "one two"})
	msgType, _ := receive(t, conn)
	require.Equal(t, protocol.MsgStorySet, msgType)

	send(t, conn, protocol.MsgGenerateSet, protocol.GenerateSetPayload{BatchIndex: 0})
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("synthesis request never reached the provider")
	}

	require.NoError(t, conn.Close())
	select {
	case <-aborted:
	case <-time.After(5 * time.Second):
		t.Fatal("in-flight synthesis not cancelled after disconnect")
	}
}

func TestWebSocketUnknownMessageType(t *testing.T) {
	t.Parallel()

	conn := dialTestServer(t)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"bogus"}`)))

	msgType, raw := receive(t, conn)
	require.Equal(t, protocol.MsgError, msgType)
	perr, err := protocol.UnmarshalPayload[protocol.ErrorPayload](raw)
	require.NoError(t, err)
	assert.Contains(t, perr.Message, "unknown message type")
}
