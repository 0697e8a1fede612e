package elevenlabs

import (
	"fmt"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// ============================================
// AGENT LINK
// Outbound WebSocket connection to the Conversational AI service,
// scoped to exactly one call
// ============================================

// AgentLink owns the WebSocket connection to the agent for a single call.
// Connect runs the signed-URL exchange and the dial; inbound events are
// delivered to the OnEvent callback from a dedicated read goroutine.
type AgentLink struct {
	client *Client

	mu     sync.RWMutex
	conn   *websocket.Conn
	closed bool

	// writeMu serializes writes: caller audio arrives from the telephony
	// read goroutine while pong replies originate in the agent read goroutine.
	writeMu sync.Mutex

	onEvent func(Event)
	onClose func()
}

// NewAgentLink creates an unconnected agent link.
func NewAgentLink(client *Client) *AgentLink {
	return &AgentLink{client: client}
}

// OnEvent registers the handler for audio, interruption and unrecognized
// events. Ping keepalives are answered inside the link and not delivered.
// Must be set before Connect.
func (l *AgentLink) OnEvent(fn func(Event)) {
	l.onEvent = fn
}

// OnClose registers a callback invoked exactly once when the connection
// ends, whether by remote close, read error or an explicit Close.
func (l *AgentLink) OnClose(fn func()) {
	l.onClose = fn
}

// Connect fetches a signed conversation URL, dials it, sends the initiation
// frame and starts the read loop. On any failure the link stays absent and
// no retry is attempted; the call simply proceeds without agent audio.
func (l *AgentLink) Connect(cfg ConversationConfig) error {
	signedURL, err := l.client.GetSignedURL()
	if err != nil {
		return fmt.Errorf("failed to fetch signed URL: %w", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(signedURL, nil)
	if err != nil {
		return fmt.Errorf("failed to dial agent: %w", err)
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		conn.Close()
		return fmt.Errorf("agent link already closed")
	}
	l.conn = conn
	l.mu.Unlock()

	// Conversation overrides are read at open time; metadata that has not
	// arrived yet falls back to the defaults.
	if err := l.writeJSON(NewInitiationPayload(cfg)); err != nil {
		l.Close()
		return fmt.Errorf("failed to send initiation payload: %w", err)
	}

	log.Printf("[AgentLink] Connected to agent %s", l.client.AgentID())

	go l.readPump()
	return nil
}

// IsOpen reports whether the link has a live connection.
func (l *AgentLink) IsOpen() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.conn != nil && !l.closed
}

// SendAudioChunk forwards one base64 caller audio chunk. The call blocks
// until the transport accepts the write, which is what suspends the
// telephony read loop between frames.
func (l *AgentLink) SendAudioChunk(base64Audio string) error {
	if !l.IsOpen() {
		return fmt.Errorf("agent connection not open")
	}
	return l.writeJSON(NewAudioChunkPayload(base64Audio))
}

// EndTurn asks the agent to terminate its current response. Sent after an
// interruption so the agent stops synthesizing the interrupted turn.
func (l *AgentLink) EndTurn() error {
	if !l.IsOpen() {
		return fmt.Errorf("agent connection not open")
	}
	return l.writeJSON(NewUserActivityPayload())
}

// Close shuts the connection down. Safe to call from any goroutine and more
// than once; the close callback fires only for the first call.
func (l *AgentLink) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	conn := l.conn
	l.mu.Unlock()

	if conn != nil {
		l.writeMu.Lock()
		conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		l.writeMu.Unlock()
		conn.Close()
	}

	if l.onClose != nil {
		l.onClose()
	}
	return nil
}

// readPump reads agent messages until the connection ends. Pings are
// answered here, before any later event can produce an outbound message.
func (l *AgentLink) readPump() {
	defer l.Close()

	for {
		_, message, err := l.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[AgentLink] Read error: %v", err)
			}
			return
		}

		event := ParseEvent(message)

		if event.Type == EventPing {
			if err := l.writeJSON(NewPongPayload(event.EventID)); err != nil {
				log.Printf("[AgentLink] Failed to send pong: %v", err)
			}
			continue
		}

		if l.onEvent != nil {
			l.onEvent(event)
		}
	}
}

func (l *AgentLink) writeJSON(payload interface{}) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	l.mu.RLock()
	conn := l.conn
	closed := l.closed
	l.mu.RUnlock()

	if conn == nil || closed {
		return fmt.Errorf("agent connection not open")
	}
	return conn.WriteJSON(payload)
}
