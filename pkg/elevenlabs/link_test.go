package elevenlabs

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConversationServer serves the signed-URL endpoint and one
// conversation socket, recording every JSON message from the link.
type fakeConversationServer struct {
	srv *httptest.Server

	mu   sync.Mutex
	conn *websocket.Conn

	messages chan map[string]interface{}
}

func newFakeConversationServer() *fakeConversationServer {
	f := &fakeConversationServer{
		messages: make(chan map[string]interface{}, 16),
	}

	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/convai/conversation/get_signed_url", func(w http.ResponseWriter, r *http.Request) {
		wsURL := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/conversation"
		fmt.Fprintf(w, `{"signed_url":%q}`, wsURL)
	})
	mux.HandleFunc("/conversation", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		f.mu.Lock()
		f.conn = conn
		f.mu.Unlock()
		for {
			var msg map[string]interface{}
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			f.messages <- msg
		}
	})

	f.srv = httptest.NewServer(mux)
	return f
}

func (f *fakeConversationServer) send(t *testing.T, event string) {
	t.Helper()
	f.mu.Lock()
	conn := f.conn
	f.mu.Unlock()
	require.NotNil(t, conn)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(event)))
}

func (f *fakeConversationServer) recv(t *testing.T) map[string]interface{} {
	t.Helper()
	select {
	case msg := <-f.messages:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message from link")
		return nil
	}
}

func newTestLink(t *testing.T, f *fakeConversationServer) *AgentLink {
	t.Helper()
	return NewAgentLink(NewClient("key", "agent", f.srv.URL))
}

func TestConnectSendsInitiationPayload(t *testing.T) {
	fake := newFakeConversationServer()
	defer fake.srv.Close()

	link := newTestLink(t, fake)
	defer link.Close()

	require.NoError(t, link.Connect(staticConfig{
		prompt:       "Short answers.",
		firstMessage: "Hey.",
		sampleRate:   8000,
	}))
	assert.True(t, link.IsOpen())

	init := fake.recv(t)
	assert.Equal(t, "conversation_initiation_client_data", init["type"])
}

func TestSendAudioChunkRequiresOpenConnection(t *testing.T) {
	link := NewAgentLink(NewClient("key", "agent", ""))
	assert.False(t, link.IsOpen())
	assert.Error(t, link.SendAudioChunk("QQ=="))
	assert.Error(t, link.EndTurn())
}

func TestPingAnsweredBeforeLaterEvents(t *testing.T) {
	fake := newFakeConversationServer()
	defer fake.srv.Close()

	events := make(chan Event, 16)
	link := newTestLink(t, fake)
	link.OnEvent(func(event Event) { events <- event })
	defer link.Close()

	require.NoError(t, link.Connect(staticConfig{sampleRate: 8000}))
	fake.recv(t) // initiation

	fake.send(t, `{"type":"ping","ping_event":{"event_id":7}}`)
	fake.send(t, `{"type":"audio","audio":{"chunk":"QQ=="}}`)

	// The pong goes out before the audio event is even dispatched.
	pong := fake.recv(t)
	assert.Equal(t, "pong", pong["type"])
	assert.Equal(t, float64(7), pong["event_id"])

	select {
	case event := <-events:
		assert.Equal(t, EventAudio, event.Type)
		assert.Equal(t, "QQ==", event.AudioChunk)
	case <-time.After(2 * time.Second):
		t.Fatal("audio event not dispatched")
	}
}

func TestPingIsNotDeliveredAsEvent(t *testing.T) {
	fake := newFakeConversationServer()
	defer fake.srv.Close()

	events := make(chan Event, 16)
	link := newTestLink(t, fake)
	link.OnEvent(func(event Event) { events <- event })
	defer link.Close()

	require.NoError(t, link.Connect(staticConfig{sampleRate: 8000}))
	fake.recv(t)

	fake.send(t, `{"type":"ping","ping_event":{"event_id":1}}`)
	fake.recv(t) // pong

	select {
	case event := <-events:
		t.Fatalf("ping should be handled internally, got event %v", event.Type)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestOnCloseFiresOnceOnRemoteClose(t *testing.T) {
	fake := newFakeConversationServer()
	defer fake.srv.Close()

	closed := make(chan struct{}, 2)
	link := newTestLink(t, fake)
	link.OnClose(func() { closed <- struct{}{} })

	require.NoError(t, link.Connect(staticConfig{sampleRate: 8000}))
	fake.recv(t)

	fake.mu.Lock()
	fake.conn.Close()
	fake.mu.Unlock()

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("close callback did not fire")
	}

	// A later explicit Close must not fire the callback again.
	link.Close()
	select {
	case <-closed:
		t.Fatal("close callback fired twice")
	case <-time.After(100 * time.Millisecond):
	}

	assert.False(t, link.IsOpen())
}

func TestConnectFailsWhenSignedURLUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	link := NewAgentLink(NewClient("key", "agent", srv.URL))
	err := link.Connect(staticConfig{sampleRate: 8000})
	require.Error(t, err)
	assert.False(t, link.IsOpen())
}
