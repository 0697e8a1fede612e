package elevenlabs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAudioEventDirectChunk(t *testing.T) {
	event := ParseEvent([]byte(`{"type":"audio","audio":{"chunk":"QQ=="}}`))
	assert.Equal(t, EventAudio, event.Type)
	assert.Equal(t, "QQ==", event.AudioChunk)
}

func TestParseAudioEventNestedChunk(t *testing.T) {
	event := ParseEvent([]byte(`{"type":"audio","audio_event":{"audio_base_64":"Ug=="}}`))
	assert.Equal(t, EventAudio, event.Type)
	assert.Equal(t, "Ug==", event.AudioChunk)
}

func TestParseAudioEventPrefersDirectChunk(t *testing.T) {
	event := ParseEvent([]byte(
		`{"type":"audio","audio":{"chunk":"QQ=="},"audio_event":{"audio_base_64":"Ug=="}}`))
	assert.Equal(t, "QQ==", event.AudioChunk)
}

func TestParseInterruptionEvent(t *testing.T) {
	event := ParseEvent([]byte(`{"type":"interruption","interruption_event":{"event_id":3}}`))
	assert.Equal(t, EventInterruption, event.Type)
}

func TestParsePingEvent(t *testing.T) {
	event := ParseEvent([]byte(`{"type":"ping","ping_event":{"event_id":42}}`))
	assert.Equal(t, EventPing, event.Type)
	assert.Equal(t, float64(42), event.EventID)
}

func TestParseUnknownEvent(t *testing.T) {
	raw := []byte(`{"type":"agent_response","agent_response_event":{"agent_response":"hello"}}`)
	event := ParseEvent(raw)
	assert.Equal(t, EventUnrecognized, event.Type)
	assert.Equal(t, "agent_response", event.RawType)
	assert.Equal(t, raw, event.Raw)
}

func TestParseMalformedMessage(t *testing.T) {
	raw := []byte(`not json at all`)
	event := ParseEvent(raw)
	assert.Equal(t, EventUnrecognized, event.Type)
	assert.Equal(t, raw, event.Raw)
}

type staticConfig struct {
	prompt       string
	firstMessage string
	sampleRate   int
}

func (c staticConfig) Prompt() string       { return c.prompt }
func (c staticConfig) FirstMessage() string { return c.firstMessage }
func (c staticConfig) SampleRate() int      { return c.sampleRate }

func TestInitiationPayloadShape(t *testing.T) {
	payload := NewInitiationPayload(staticConfig{
		prompt:       "Be brief.",
		firstMessage: "Hi there.",
		sampleRate:   16000,
	})

	data, err := json.Marshal(payload)
	require.NoError(t, err)

	var decoded struct {
		Type             string                 `json:"type"`
		DynamicVariables map[string]interface{} `json:"dynamic_variables"`
		Override         struct {
			Agent struct {
				Prompt struct {
					Prompt string `json:"prompt"`
				} `json:"prompt"`
				FirstMessage string `json:"first_message"`
			} `json:"agent"`
		} `json:"conversation_config_override"`
		Audio struct {
			Encoding   string `json:"encoding"`
			SampleRate int    `json:"sample_rate"`
		} `json:"audio"`
		InterruptionConfig struct {
			Enabled bool `json:"enabled"`
		} `json:"interruption_config"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "conversation_initiation_client_data", decoded.Type)
	assert.NotNil(t, decoded.DynamicVariables)
	assert.Equal(t, "Be brief.", decoded.Override.Agent.Prompt.Prompt)
	assert.Equal(t, "Hi there.", decoded.Override.Agent.FirstMessage)
	assert.Equal(t, "pcm", decoded.Audio.Encoding)
	assert.Equal(t, 16000, decoded.Audio.SampleRate)
	assert.True(t, decoded.InterruptionConfig.Enabled)
}

func TestOutboundPayloadShapes(t *testing.T) {
	chunk, err := json.Marshal(NewAudioChunkPayload("QUJD"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"user_audio_chunk":"QUJD"}`, string(chunk))

	pong, err := json.Marshal(NewPongPayload(float64(9)))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"pong","event_id":9}`, string(pong))

	activity, err := json.Marshal(NewUserActivityPayload())
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"user_activity"}`, string(activity))
}
