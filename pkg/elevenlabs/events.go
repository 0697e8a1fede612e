package elevenlabs

import "encoding/json"

// ============================================
// AGENT EVENT SCHEMA
// Tagged variants for the Conversational AI WebSocket protocol
// ============================================

// EventType identifies an inbound event from the agent connection.
type EventType string

const (
	EventAudio        EventType = "audio"
	EventInterruption EventType = "interruption"
	EventPing         EventType = "ping"
	EventUnrecognized EventType = "unrecognized"
)

// Event is one parsed message from the agent WebSocket. Exactly the fields
// matching Type are populated.
type Event struct {
	Type EventType

	// AudioChunk is the base64 audio payload of an EventAudio.
	AudioChunk string

	// EventID is the identifier carried by an EventPing; it must be echoed
	// back in the pong reply.
	EventID interface{}

	// RawType and Raw preserve the original message for EventUnrecognized.
	RawType string
	Raw     []byte
}

// ParseEvent classifies a raw agent message. Malformed or unknown messages
// come back as EventUnrecognized; they are never an error.
func ParseEvent(data []byte) Event {
	var envelope struct {
		Type  string `json:"type"`
		Audio struct {
			Chunk string `json:"chunk"`
		} `json:"audio"`
		AudioEvent struct {
			AudioBase64 string `json:"audio_base_64"`
		} `json:"audio_event"`
		PingEvent struct {
			EventID interface{} `json:"event_id"`
		} `json:"ping_event"`
	}

	if err := json.Unmarshal(data, &envelope); err != nil {
		return Event{Type: EventUnrecognized, Raw: data}
	}

	switch envelope.Type {
	case "audio":
		// The chunk appears in one of two places depending on the agent
		// platform version.
		chunk := envelope.Audio.Chunk
		if chunk == "" {
			chunk = envelope.AudioEvent.AudioBase64
		}
		return Event{Type: EventAudio, AudioChunk: chunk}

	case "interruption":
		return Event{Type: EventInterruption}

	case "ping":
		return Event{Type: EventPing, EventID: envelope.PingEvent.EventID}

	default:
		return Event{Type: EventUnrecognized, RawType: envelope.Type, Raw: data}
	}
}

// ============================================
// OUTBOUND PAYLOADS
// ============================================

// Default conversation overrides used when the caller metadata carries none.
const (
	DefaultPrompt = "You are a helpful voice assistant speaking with a caller " +
		"on the phone. Keep your answers short and conversational."
	DefaultFirstMessage = "Hello! How can I help you today?"
)

// ConversationConfig supplies the per-call overrides read when the agent
// connection opens. Implemented by the bridge call session.
type ConversationConfig interface {
	Prompt() string
	FirstMessage() string
	SampleRate() int
}

// NewInitiationPayload builds the conversation_initiation_client_data frame
// sent once immediately after the agent connection opens.
func NewInitiationPayload(cfg ConversationConfig) map[string]interface{} {
	return map[string]interface{}{
		"type":              "conversation_initiation_client_data",
		"dynamic_variables": map[string]interface{}{},
		"conversation_config_override": map[string]interface{}{
			"agent": map[string]interface{}{
				"prompt": map[string]interface{}{
					"prompt": cfg.Prompt(),
				},
				"first_message": cfg.FirstMessage(),
			},
		},
		"audio": map[string]interface{}{
			"encoding":    "pcm",
			"sample_rate": cfg.SampleRate(),
			"channels":    1,
		},
		"interruption_config": map[string]interface{}{
			"enabled": true,
		},
	}
}

// NewAudioChunkPayload wraps base64 caller audio for the agent.
func NewAudioChunkPayload(base64Audio string) map[string]interface{} {
	return map[string]interface{}{
		"user_audio_chunk": base64Audio,
	}
}

// NewPongPayload builds the keepalive reply echoing a ping's event ID.
func NewPongPayload(eventID interface{}) map[string]interface{} {
	return map[string]interface{}{
		"type":     "pong",
		"event_id": eventID,
	}
}

// NewUserActivityPayload builds the turn-termination signal sent after an
// interruption to end the agent's current response.
func NewUserActivityPayload() map[string]interface{} {
	return map[string]interface{}{
		"type": "user_activity",
	}
}
