package bridge

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// ============================================
// TELEPHONY LINK
// Inbound WebSocket connection from the Knowlarity media gateway
// ============================================

// linkState tracks the telephony frame state machine.
type linkState int

const (
	// awaitingMetadata: the next text frame is the call metadata.
	awaitingMetadata linkState = iota
	// streaming: binary frames are caller audio, text frames are control.
	streaming
)

// TelephonyLink owns the inbound connection for one call. It classifies
// frames (metadata, audio, control) and forwards caller audio to the
// agent link.
type TelephonyLink struct {
	session *CallSession

	mu     sync.RWMutex
	conn   *websocket.Conn
	closed bool

	// writeMu serializes command writes, which originate both in the agent
	// event handler and in the teardown path.
	writeMu sync.Mutex

	// state is touched only by the read goroutine.
	state linkState

	onClose func()
}

// NewTelephonyLink wraps an upgraded gateway connection. onClose fires
// exactly once when the link ends.
func NewTelephonyLink(session *CallSession, conn *websocket.Conn, onClose func()) *TelephonyLink {
	return &TelephonyLink{
		session: session,
		conn:    conn,
		state:   awaitingMetadata,
		onClose: onClose,
	}
}

// Run reads gateway frames until the connection ends. One frame is handled
// to completion before the next read, so audio forwards towards the agent
// keep arrival order and the in-flight send is the only suspension point.
func (t *TelephonyLink) Run() {
	defer t.Close()

	for {
		messageType, message, err := t.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[TelephonyLink] Read error: %v", err)
			}
			return
		}

		switch messageType {
		case websocket.TextMessage:
			t.handleTextFrame(message)
		case websocket.BinaryMessage:
			t.handleAudioFrame(message)
		}
	}
}

// handleTextFrame parses the first text frame as call metadata and any
// later one as a control message.
func (t *TelephonyLink) handleTextFrame(data []byte) {
	if t.state == awaitingMetadata {
		var metadata map[string]interface{}
		if err := json.Unmarshal(data, &metadata); err != nil {
			// A malformed first frame does not end the call; the link
			// simply keeps waiting for a parsable metadata frame.
			log.Printf("[TelephonyLink] Failed to parse metadata frame: %v", err)
			return
		}

		t.session.SetMetadata(metadata)
		t.state = streaming

		log.Printf("[TelephonyLink] Metadata received: session=%s sample_rate=%d",
			t.session.ID, t.session.SampleRate())
		return
	}

	// Control messages (transfer, hangup, ...) are observed but not acted
	// on yet.
	var control struct {
		Type string                 `json:"type"`
		Data map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(data, &control); err != nil {
		log.Printf("[TelephonyLink] Failed to parse control frame: %v", err)
		return
	}

	log.Printf("[TelephonyLink] Control message: type=%s session=%s", control.Type, t.session.ID)
}

// handleAudioFrame forwards one binary caller audio frame to the agent.
// Frames are dropped while metadata is pending, while the caller has the
// agent interrupted, and while the agent link is not open.
func (t *TelephonyLink) handleAudioFrame(frame []byte) {
	if t.state != streaming {
		return
	}
	if t.session.Interrupted() {
		return
	}

	agent := t.session.Agent()
	if agent == nil || !agent.IsOpen() {
		return
	}

	encoded := base64.StdEncoding.EncodeToString(frame)
	if err := agent.SendAudioChunk(encoded); err != nil {
		log.Printf("[TelephonyLink] Failed to forward audio chunk: %v", err)
	}
}

// SendCommand writes one JSON command frame to the gateway.
func (t *TelephonyLink) SendCommand(command interface{}) error {
	t.mu.RLock()
	closed := t.closed
	t.mu.RUnlock()
	if closed {
		return fmt.Errorf("telephony connection closed")
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.conn.WriteJSON(command)
}

// Close shuts the gateway connection down. Idempotent; the close callback
// fires only once.
func (t *TelephonyLink) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	t.writeMu.Lock()
	t.conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)
	t.writeMu.Unlock()
	t.conn.Close()

	log.Printf("[TelephonyLink] Closed: session=%s", t.session.ID)

	if t.onClose != nil {
		t.onClose()
	}
	return nil
}
