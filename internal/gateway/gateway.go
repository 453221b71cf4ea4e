// Package gateway exposes the assistant over a WebSocket connection and
// streams pipeline events back to the client as JSON frames.
package gateway

import (
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/deskpilot-dev/deskpilot/internal/assistant"
	"github.com/deskpilot-dev/deskpilot/internal/session"
	"github.com/deskpilot-dev/deskpilot/internal/vision"
	pkgobs "github.com/deskpilot-dev/deskpilot/pkg/observability"
)

// Frame is the wire format in both directions. Type selects which of the
// optional fields are meaningful.
//
// Client to server: "start", "audio", "image", "text", "manual_mode",
// "trigger", "stop", "reset", "close".
// Server to client: "token", "partial", "final", "status", "turn_saved",
// "error".
type Frame struct {
	Type string `json:"type"`

	// start
	Profile      string `json:"profile,omitempty"`
	CustomPrompt string `json:"customPrompt,omitempty"`
	Resume       string `json:"resume,omitempty"`
	Language     string `json:"language,omitempty"`

	// audio and image payloads, base64
	Data string `json:"data,omitempty"`

	// image
	Style   string `json:"style,omitempty"`
	Quality string `json:"quality,omitempty"`

	// text, token, partial, final, status, error
	Text string `json:"text,omitempty"`

	// manual_mode
	On bool `json:"on,omitempty"`

	// turn_saved
	ConversationID string         `json:"conversationId,omitempty"`
	Turn           *session.Turn  `json:"turn,omitempty"`
	History        []session.Turn `json:"history,omitempty"`
}

// outboundBuffer bounds the per-connection send queue. A client that
// cannot keep up loses frames rather than stalling the pipeline.
const outboundBuffer = 256

var upgrader = websocket.Upgrader{
	ReadBufferSize:  65536,
	WriteBufferSize: 65536,
	CheckOrigin: func(r *http.Request) bool {
		// The desktop client connects from a local origin.
		return true
	},
}

// Server accepts WebSocket connections, one session per connection, and
// implements the event sink the pipeline writes to.
type Server struct {
	svc *assistant.Service

	mu    sync.RWMutex
	conns map[string]*clientConn
}

type clientConn struct {
	sessionKey string
	ws         *websocket.Conn
	out        chan Frame
	done       chan struct{}
	closeOnce  sync.Once
}

// NewServer builds a server with no assistant bound yet. Bind must be
// called before ServeHTTP; the split breaks the construction cycle
// between the server (the sink) and the assistant (its consumer).
func NewServer() *Server {
	return &Server{conns: make(map[string]*clientConn)}
}

// Bind attaches the assistant service.
func (s *Server) Bind(svc *assistant.Service) { s.svc = svc }

// ServeHTTP upgrades the request and runs the connection until the
// client disconnects. The session key comes from the "session" query
// parameter, or is generated.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Gateway] upgrade failed: %v", err)
		return
	}

	sessionKey := r.URL.Query().Get("session")
	if sessionKey == "" {
		sessionKey = uuid.NewString()
	}

	c := &clientConn{
		sessionKey: sessionKey,
		ws:         ws,
		out:        make(chan Frame, outboundBuffer),
		done:       make(chan struct{}),
	}
	s.register(c)
	defer s.unregister(c)

	go c.writeLoop()
	log.Printf("[Gateway] %s connected", sessionKey)
	s.readLoop(c)
	log.Printf("[Gateway] %s disconnected", sessionKey)
}

func (s *Server) register(c *clientConn) {
	s.mu.Lock()
	if prev, ok := s.conns[c.sessionKey]; ok {
		prev.close()
	}
	s.conns[c.sessionKey] = c
	count := len(s.conns)
	s.mu.Unlock()
	pkgobs.SetActiveConnections(count)
}

func (s *Server) unregister(c *clientConn) {
	s.mu.Lock()
	if s.conns[c.sessionKey] == c {
		delete(s.conns, c.sessionKey)
	}
	count := len(s.conns)
	s.mu.Unlock()
	pkgobs.SetActiveConnections(count)

	c.close()
	if err := s.svc.CloseSession(c.sessionKey); err != nil && err != assistant.ErrSessionNotFound {
		log.Printf("[Gateway] %s: close session: %v", c.sessionKey, err)
	}
}

// readLoop dispatches inbound frames until the connection drops or the
// client sends "close".
func (s *Server) readLoop(c *clientConn) {
	for {
		var f Frame
		if err := c.ws.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[Gateway] %s: read: %v", c.sessionKey, err)
			}
			return
		}

		var err error
		switch f.Type {
		case "start":
			err = s.svc.StartListening(c.sessionKey, session.Params{
				Profile:       f.Profile,
				CustomPrompt:  f.CustomPrompt,
				ResumeSnippet: f.Resume,
				ScreenStyle:   f.Style,
				Language:      f.Language,
			})
		case "audio":
			err = s.svc.IngestAudio(c.sessionKey, f.Data)
		case "image":
			err = s.svc.IngestImage(c.sessionKey, f.Data, vision.Style(f.Style), f.Quality)
		case "text":
			err = s.svc.SendTextMessage(c.sessionKey, f.Text)
		case "manual_mode":
			err = s.svc.SetManualMode(c.sessionKey, f.On)
		case "trigger":
			err = s.svc.TriggerManualAnswer(c.sessionKey)
		case "stop":
			err = s.svc.StopProcessing(c.sessionKey)
		case "reset":
			err = s.svc.ResetConversation(c.sessionKey)
		case "close":
			return
		default:
			c.send(Frame{Type: "error", Text: "unknown frame type: " + f.Type})
			continue
		}
		if err != nil {
			c.send(Frame{Type: "error", Text: err.Error()})
		}
	}
}

// send enqueues a frame, dropping it when the client is backed up or gone.
func (c *clientConn) send(f Frame) {
	select {
	case <-c.done:
	case c.out <- f:
	default:
		log.Printf("[Gateway] %s: outbound queue full, dropping %s frame", c.sessionKey, f.Type)
	}
}

func (c *clientConn) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case f := <-c.out:
			if err := c.ws.WriteJSON(f); err != nil {
				return
			}
		}
	}
}

func (c *clientConn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

// lookup returns the live connection for a session, if any.
func (s *Server) lookup(sessionKey string) *clientConn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conns[sessionKey]
}

// OnToken implements the pipeline sink.
func (s *Server) OnToken(sessionKey, token string) {
	if c := s.lookup(sessionKey); c != nil {
		c.send(Frame{Type: "token", Text: token})
	}
}

func (s *Server) OnFinal(sessionKey, text string) {
	if c := s.lookup(sessionKey); c != nil {
		c.send(Frame{Type: "final", Text: text})
	}
}

func (s *Server) OnStatus(sessionKey, status string) {
	if c := s.lookup(sessionKey); c != nil {
		c.send(Frame{Type: "status", Text: status})
	}
}

func (s *Server) OnPartial(sessionKey, text string) {
	if c := s.lookup(sessionKey); c != nil {
		c.send(Frame{Type: "partial", Text: text})
	}
}

func (s *Server) OnTurnSaved(sessionKey, conversationID string, turn session.Turn, history []session.Turn) {
	if c := s.lookup(sessionKey); c != nil {
		c.send(Frame{Type: "turn_saved", ConversationID: conversationID, Turn: &turn, History: history})
	}
}
