// Package session holds per-session conversation state: history, pipeline
// guards, manual-answer buffering, and the registry that owns sessions.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// maxHistoryTurns caps stored history per session, oldest turns first out.
const maxHistoryTurns = 50

// Turn is one exchange: what the user said and what the assistant answered.
type Turn struct {
	Transcription string    `json:"transcription"`
	Response      string    `json:"response"`
	Timestamp     time.Time `json:"timestamp"`
}

// Params customizes how a session's answers are generated.
type Params struct {
	Profile       string `json:"profile"`
	CustomPrompt  string `json:"custom_prompt"`
	ResumeSnippet string `json:"resume_snippet"`
	ScreenStyle   string `json:"screen_style"`
	// Language is the expected spoken language. Informational; transcription
	// acceptance never depends on it.
	Language string `json:"language,omitempty"`
}

// Session is one client's conversation. All methods are safe for
// concurrent use.
type Session struct {
	ID string

	mu             sync.Mutex
	conversationID string
	history        []Turn
	params         Params

	listening    bool
	transcribing bool
	generating   bool
	cancelAsked  bool

	manualMode bool
	manualBuf  []string

	lastActive time.Time
	now        func() time.Time
}

func newSession(id string, params Params) *Session {
	s := &Session{
		ID:             id,
		conversationID: uuid.NewString(),
		params:         params,
		now:            time.Now,
	}
	s.lastActive = s.now()
	return s
}

// ConversationID identifies the current conversation. It changes when the
// history is reset.
func (s *Session) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationID
}

// Params returns the session's generation parameters.
func (s *Session) Params() Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

// SetParams replaces the generation parameters.
func (s *Session) SetParams(p Params) {
	s.mu.Lock()
	s.params = p
	s.mu.Unlock()
}

// Touch marks the session active now.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActive = s.now()
	s.mu.Unlock()
}

// IdleFor reports how long since the session was last touched.
func (s *Session) IdleFor() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now().Sub(s.lastActive)
}

// SetListening flips audio intake on or off.
func (s *Session) SetListening(on bool) {
	s.mu.Lock()
	s.listening = on
	s.mu.Unlock()
}

// Listening reports whether audio intake is on.
func (s *Session) Listening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listening
}

// BeginTranscribe claims the transcription slot. It returns false when a
// transcription is already running, which tells the caller to keep
// buffering instead of stacking requests.
func (s *Session) BeginTranscribe() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.transcribing {
		return false
	}
	s.transcribing = true
	return true
}

// EndTranscribe releases the transcription slot.
func (s *Session) EndTranscribe() {
	s.mu.Lock()
	s.transcribing = false
	s.mu.Unlock()
}

// BeginGenerate claims the generation slot. It returns false when a
// generation is already in flight. A pending cancel mark is left alone;
// only ClearCancel drops it.
func (s *Session) BeginGenerate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generating {
		return false
	}
	s.generating = true
	return true
}

// EndGenerate releases the generation slot.
func (s *Session) EndGenerate() {
	s.mu.Lock()
	s.generating = false
	s.mu.Unlock()
}

// Generating reports whether an answer is being produced right now.
func (s *Session) Generating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generating
}

// Busy reports whether either pipeline stage holds its slot.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcribing || s.generating
}

// RequestCancel marks the session cancelled. The mark persists across
// pipeline stages, suppressing flushes, generations, and turn saves,
// until ClearCancel drops it when listening restarts.
func (s *Session) RequestCancel() {
	s.mu.Lock()
	s.cancelAsked = true
	s.mu.Unlock()
}

// ClearCancel drops a pending cancel, typically when listening restarts.
func (s *Session) ClearCancel() {
	s.mu.Lock()
	s.cancelAsked = false
	s.mu.Unlock()
}

// CancelRequested reports whether a cancel is pending.
func (s *Session) CancelRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelAsked
}

// SetManualMode switches between automatic answering and push-to-answer.
// Leaving manual mode discards anything buffered.
func (s *Session) SetManualMode(on bool) {
	s.mu.Lock()
	s.manualMode = on
	if !on {
		s.manualBuf = nil
	}
	s.mu.Unlock()
}

// ManualMode reports whether the session is in push-to-answer mode.
func (s *Session) ManualMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manualMode
}

// BufferManual stores a transcription for a later manual trigger.
func (s *Session) BufferManual(text string) {
	s.mu.Lock()
	s.manualBuf = append(s.manualBuf, text)
	s.mu.Unlock()
}

// DrainManual returns everything buffered since the last trigger, joined
// in arrival order, and empties the buffer.
func (s *Session) DrainManual() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.manualBuf) == 0 {
		return ""
	}
	out := s.manualBuf[0]
	for _, t := range s.manualBuf[1:] {
		out += " " + t
	}
	s.manualBuf = nil
	return out
}

// AppendTurn records an exchange, dropping the oldest turn past the cap.
func (s *Session) AppendTurn(t Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, t)
	if len(s.history) > maxHistoryTurns {
		s.history = append(s.history[:0], s.history[len(s.history)-maxHistoryTurns:]...)
	}
	s.lastActive = s.now()
}

// History returns a copy of all stored turns, oldest first.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.history))
	copy(out, s.history)
	return out
}

// RecentTurns returns up to n of the newest turns, oldest first.
func (s *Session) RecentTurns(n int) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > len(s.history) {
		n = len(s.history)
	}
	out := make([]Turn, n)
	copy(out, s.history[len(s.history)-n:])
	return out
}

// ResetHistory clears the conversation and starts a new conversation ID.
func (s *Session) ResetHistory() {
	s.mu.Lock()
	s.history = nil
	s.conversationID = uuid.NewString()
	s.mu.Unlock()
}
