package bridge

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/birddigital/knowlarity-ai-bridge/pkg/elevenlabs"
)

// ============================================
// CALL SESSION
// Shared per-call state read and updated by both link handlers
// ============================================

// CallSession holds the mutable state of one active call. The telephony
// link handler writes the metadata fields, the agent event handler writes
// the interruption flag; both run in their own goroutine, so access goes
// through the mutex.
type CallSession struct {
	ID          string
	ConnectedAt time.Time

	mu               sync.RWMutex
	metadata         map[string]interface{}
	metadataReceived bool
	interrupted      bool

	telephony *TelephonyLink
	agent     *elevenlabs.AgentLink
}

// NewCallSession creates the state for one call.
func NewCallSession() *CallSession {
	return &CallSession{
		ID:          uuid.New().String(),
		ConnectedAt: time.Now(),
	}
}

// setLinks attaches both connection handles. Called once by the bridge
// before either read loop starts.
func (s *CallSession) setLinks(telephony *TelephonyLink, agent *elevenlabs.AgentLink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.telephony = telephony
	s.agent = agent
}

// Telephony returns the inbound link handle.
func (s *CallSession) Telephony() *TelephonyLink {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.telephony
}

// Agent returns the outbound link handle.
func (s *CallSession) Agent() *elevenlabs.AgentLink {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.agent
}

// SetMetadata stores the caller-supplied metadata. Only the first call
// takes effect; the session's metadata is immutable once set.
func (s *CallSession) SetMetadata(metadata map[string]interface{}) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.metadataReceived {
		return false
	}
	s.metadata = metadata
	s.metadataReceived = true
	return true
}

// MetadataReceived reports whether the metadata frame has been parsed.
func (s *CallSession) MetadataReceived() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metadataReceived
}

// metadataString reads a string-valued metadata field.
func (s *CallSession) metadataString(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.metadata[key].(string)
	return value, ok && value != ""
}

// SetInterrupted flips the interruption flag.
func (s *CallSession) SetInterrupted(interrupted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interrupted = interrupted
}

// Interrupted reports whether the caller has interrupted the agent and the
// agent's next turn has not started yet.
func (s *CallSession) Interrupted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.interrupted
}

// ============================================
// CONVERSATION CONFIG
// Satisfies elevenlabs.ConversationConfig for the initiation payload
// ============================================

// Prompt returns the caller-supplied prompt override, or the default.
func (s *CallSession) Prompt() string {
	if prompt, ok := s.metadataString("prompt"); ok {
		return prompt
	}
	return elevenlabs.DefaultPrompt
}

// FirstMessage returns the caller-supplied first-message override, or the
// default.
func (s *CallSession) FirstMessage() string {
	if first, ok := s.metadataString("first_message"); ok {
		return first
	}
	return elevenlabs.DefaultFirstMessage
}

// SampleRate maps the caller's sampling_rate tag to Hz.
func (s *CallSession) SampleRate() int {
	tag, _ := s.metadataString("sampling_rate")
	return SampleRateFromTag(tag)
}

// ============================================
// SESSION SUMMARY
// ============================================

// SessionSummary is a point-in-time view of an active call, served by the
// session listing endpoint. Held in memory only.
type SessionSummary struct {
	ID               string    `json:"id"`
	ConnectedAt      time.Time `json:"connected_at"`
	MetadataReceived bool      `json:"metadata_received"`
	Interrupted      bool      `json:"interrupted"`
	AgentConnected   bool      `json:"agent_connected"`
	SampleRate       int       `json:"sample_rate"`
}

// Summary snapshots the session state.
func (s *CallSession) Summary() SessionSummary {
	agent := s.Agent()
	return SessionSummary{
		ID:               s.ID,
		ConnectedAt:      s.ConnectedAt,
		MetadataReceived: s.MetadataReceived(),
		Interrupted:      s.Interrupted(),
		AgentConnected:   agent != nil && agent.IsOpen(),
		SampleRate:       s.SampleRate(),
	}
}
