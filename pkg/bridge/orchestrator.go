package bridge

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/birddigital/knowlarity-ai-bridge/pkg/elevenlabs"
)

// ============================================
// BRIDGE ORCHESTRATOR
// Wires each incoming media-stream connection to a fresh call session and
// agent link, and tears both down together
// ============================================

var mediaStreamUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Allow the telephony gateway
		return true
	},
}

// Bridge holds the active call sessions and the shared agent API client.
// Sessions never share connections or state with each other.
type Bridge struct {
	agentClient *elevenlabs.Client

	mu       sync.RWMutex
	sessions map[string]*CallSession
}

// NewBridge creates a bridge using the given agent API client.
func NewBridge(agentClient *elevenlabs.Client) *Bridge {
	return &Bridge{
		agentClient: agentClient,
		sessions:    make(map[string]*CallSession),
	}
}

// HandleMediaStream upgrades an incoming gateway connection and runs the
// call until either side disconnects.
func (b *Bridge) HandleMediaStream(w http.ResponseWriter, r *http.Request) {
	conn, err := mediaStreamUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Bridge] WebSocket upgrade failed: %v", err)
		return
	}

	session := NewCallSession()
	agent := elevenlabs.NewAgentLink(b.agentClient)
	telephony := NewTelephonyLink(session, conn, func() {
		b.teardownFromTelephony(session)
	})
	session.setLinks(telephony, agent)

	agent.OnEvent(func(event elevenlabs.Event) {
		b.handleAgentEvent(session, event)
	})
	agent.OnClose(func() {
		b.teardownFromAgent(session)
	})

	b.register(session)
	log.Printf("[Bridge] Call session established: %s", session.ID)

	// The agent connect runs asynchronously; the gateway can start sending
	// the metadata frame immediately. Caller audio arriving before the
	// agent link is open is dropped.
	go func() {
		if err := agent.Connect(session); err != nil {
			log.Printf("[Bridge] Agent connect failed: session=%s: %v", session.ID, err)
		}
	}()

	telephony.Run()
}

// handleAgentEvent translates one agent event into telephony commands.
// Runs on the agent link's read goroutine, so events of one session are
// handled strictly in arrival order.
func (b *Bridge) handleAgentEvent(session *CallSession, event elevenlabs.Event) {
	switch event.Type {
	case elevenlabs.EventAudio:
		if event.AudioChunk == "" {
			return
		}
		// The agent stream is ordered, so audio arriving after the
		// interruption event belongs to the agent's next turn: playback
		// resumes here.
		if session.Interrupted() {
			session.SetInterrupted(false)
		}
		command := NewPlayAudio(event.AudioChunk, session.SampleRate())
		if err := session.Telephony().SendCommand(command); err != nil {
			log.Printf("[Bridge] Failed to send playAudio: session=%s: %v", session.ID, err)
		}

	case elevenlabs.EventInterruption:
		session.SetInterrupted(true)
		if err := session.Telephony().SendCommand(NewStopAudio()); err != nil {
			log.Printf("[Bridge] Failed to send stopAudio: session=%s: %v", session.ID, err)
		}
		if err := session.Agent().EndTurn(); err != nil {
			log.Printf("[Bridge] Failed to end agent turn: session=%s: %v", session.ID, err)
		}

	case elevenlabs.EventUnrecognized:
		log.Printf("[Bridge] Ignoring agent event: type=%q session=%s", event.RawType, session.ID)
	}
}

// teardownFromTelephony runs when the gateway side ends: close the agent
// link and drop the session.
func (b *Bridge) teardownFromTelephony(session *CallSession) {
	if agent := session.Agent(); agent != nil {
		agent.Close()
	}
	b.deregister(session)
}

// teardownFromAgent runs when the agent side ends: ask the gateway to hang
// up and close the inbound connection too.
func (b *Bridge) teardownFromAgent(session *CallSession) {
	telephony := session.Telephony()
	if telephony == nil {
		return
	}
	if err := telephony.SendCommand(NewDisconnect()); err == nil {
		log.Printf("[Bridge] Agent link ended, disconnecting caller: session=%s", session.ID)
	}
	telephony.Close()
}

// ============================================
// SESSION REGISTRY
// ============================================

func (b *Bridge) register(session *CallSession) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions[session.ID] = session
}

func (b *Bridge) deregister(session *CallSession) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sessions, session.ID)
}

// ActiveSessions returns summaries of all calls currently bridged.
func (b *Bridge) ActiveSessions() []SessionSummary {
	b.mu.RLock()
	defer b.mu.RUnlock()

	summaries := make([]SessionSummary, 0, len(b.sessions))
	for _, session := range b.sessions {
		summaries = append(summaries, session.Summary())
	}
	return summaries
}

// Close tears down every active session. Used at process shutdown.
func (b *Bridge) Close() {
	b.mu.RLock()
	sessions := make([]*CallSession, 0, len(b.sessions))
	for _, session := range b.sessions {
		sessions = append(sessions, session)
	}
	b.mu.RUnlock()

	for _, session := range sessions {
		if telephony := session.Telephony(); telephony != nil {
			telephony.Close()
		}
	}

	log.Printf("[Bridge] Closed %d session(s)", len(sessions))
}
