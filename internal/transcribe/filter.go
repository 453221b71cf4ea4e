package transcribe

import (
	"regexp"
	"strings"
	"sync"
	"time"
)

// hallucinations matches phrases whisper models emit on silence or noise.
var hallucinations = regexp.MustCompile(`^(you|thanks?|thank you|bye|goodbye|you\.|thanks\.|subs? by|subtitle|thank you for watching|please subscribe|unintelligible|\[music\]|\[audio\]|\[silence\]|silence|amara\.org|subtitles by|copyright|all rights reserved)$`)

// genericFollowups matches throwaway utterances that usually refer to a
// screenshot the assistant just analyzed.
var genericFollowups = regexp.MustCompile(`^(solve (this|it)|what is (this|it)|what's (this|it)|can you solve|help me|tell me)$`)

// Filter decides whether a transcription is worth answering. One filter
// serves one session; it remembers what was recently sent and when the
// last screenshot analysis happened.
type Filter struct {
	dupWindow time.Duration
	cooldown  time.Duration

	mu          sync.Mutex
	lastText    string
	lastSentAt  time.Time
	lastImageAt time.Time
	now         func() time.Time
}

// NewFilter creates a filter. dupWindow suppresses repeats of the previous
// utterance; cooldown suppresses short generic follow-ups right after an
// image analysis.
func NewFilter(dupWindow, cooldown time.Duration) *Filter {
	return &Filter{dupWindow: dupWindow, cooldown: cooldown, now: time.Now}
}

// NoteImageAnalysis starts the screenshot cooldown window.
func (f *Filter) NoteImageAnalysis() {
	f.mu.Lock()
	f.lastImageAt = f.now()
	f.mu.Unlock()
}

// Accept reports whether text should flow downstream. Accepted text is
// recorded for duplicate detection. The reason explains rejections.
func (f *Filter) Accept(text string) (ok bool, reason string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return false, "empty"
	}

	lower := strings.ToLower(text)
	lower = strings.TrimRight(lower, ".,!?;")
	words := len(strings.Fields(text))

	if words == 1 && len(lower) < 3 {
		return false, "single-word noise"
	}
	if len(lower) < 15 && hallucinations.MatchString(lower) {
		return false, "hallucination artifact"
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.now()

	if text == f.lastText && now.Sub(f.lastSentAt) < f.dupWindow {
		return false, "duplicate"
	}

	if now.Sub(f.lastImageAt) < f.cooldown && len(text) < 30 {
		if genericFollowups.MatchString(lower) || words <= 3 {
			return false, "generic follow-up during screenshot cooldown"
		}
	}

	f.lastText = text
	f.lastSentAt = now
	return true, ""
}
