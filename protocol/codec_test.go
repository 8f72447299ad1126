package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	t.Parallel()

	data, err := Marshal(MsgWordReady, WordReadyPayload{
		Word:      "cat",
		Index:     3,
		Audio:     "YXVkaW8=",
		FromCache: true,
	})
	require.NoError(t, err)

	msgType, raw, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, MsgWordReady, msgType)

	payload, err := UnmarshalPayload[WordReadyPayload](raw)
	require.NoError(t, err)
	assert.Equal(t, "cat", payload.Word)
	assert.Equal(t, 3, payload.Index)
	assert.Equal(t, "YXVkaW8=", payload.Audio)
	assert.True(t, payload.FromCache)
	assert.False(t, payload.IsDecoration)
}

func TestMarshalNilPayload(t *testing.T) {
	t.Parallel()

	data, err := Marshal(MsgPong, nil)
	require.NoError(t, err)

	msgType, raw, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, MsgPong, msgType)
	assert.Empty(t, raw)
}

func TestUnmarshalRejectsMissingType(t *testing.T) {
	t.Parallel()

	_, _, err := Unmarshal([]byte(`{"payload":{"text":"hi"}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing type")
}

func TestUnmarshalRejectsMalformedJSON(t *testing.T) {
	t.Parallel()

	_, _, err := Unmarshal([]byte(`{"type":`))
	require.Error(t, err)
}

func TestUnmarshalClientMessage(t *testing.T) {
	t.Parallel()

	msgType, raw, err := Unmarshal([]byte(`{"type":"generate_set","payload":{"batch_index":2}}`))
	require.NoError(t, err)
	assert.Equal(t, MsgGenerateSet, msgType)

	payload, err := UnmarshalPayload[GenerateSetPayload](raw)
	require.NoError(t, err)
	assert.Equal(t, 2, payload.BatchIndex)
}

func TestWordReadyOmitsEmptyAudio(t *testing.T) {
	t.Parallel()

	data, err := Marshal(MsgWordReady, WordReadyPayload{Word: "🌟", IsDecoration: true})
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"audio"`)
}
