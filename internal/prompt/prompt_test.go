package prompt

import (
	"fmt"
	"strings"
	"testing"

	"github.com/deskpilot-dev/deskpilot/internal/session"
)

func TestSystemPromptSections(t *testing.T) {
	got := SystemPrompt("interview", "always answer in French", "Senior Go developer, 8 years")

	if !strings.Contains(got, "interview assistant") {
		t.Error("missing profile intro")
	}
	if !strings.Contains(got, "RESUME/USER CONTEXT") || !strings.Contains(got, "Senior Go developer") {
		t.Error("missing resume context section")
	}
	if !strings.Contains(got, "always answer in French") {
		t.Error("missing custom prompt")
	}
	// Custom instructions must come after the defaults they override.
	if strings.Index(got, "always answer in French") < strings.Index(got, "OUTPUT INSTRUCTIONS") &&
		strings.Contains(got, "OUTPUT INSTRUCTIONS") {
		t.Error("custom prompt not placed last")
	}
}

func TestSystemPromptUnknownProfile(t *testing.T) {
	got := SystemPrompt("astronaut", "", "")
	if !strings.Contains(got, "interview assistant") {
		t.Error("unknown profile did not fall back to interview")
	}
}

func TestSystemPromptOmitsEmptySections(t *testing.T) {
	got := SystemPrompt("sales", "", "")
	if strings.Contains(got, "RESUME/USER CONTEXT") {
		t.Error("resume section present without resume context")
	}
	if strings.Contains(got, "Override Instructions") {
		t.Error("custom section present without a custom prompt")
	}
}

func TestSystemPromptResumeTruncated(t *testing.T) {
	got := SystemPrompt("interview", "", strings.Repeat("x", 5000))
	if !strings.Contains(got, "... [truncated]") {
		t.Error("oversized resume context not truncated")
	}
}

func TestMessagesWindow(t *testing.T) {
	var history []session.Turn
	for i := 0; i < 10; i++ {
		history = append(history, session.Turn{
			Transcription: fmt.Sprintf("q%d", i),
			Response:      fmt.Sprintf("a%d", i),
		})
	}

	msgs := Messages(session.Params{Profile: "interview"}, history, "new question")

	// system + 6 turns * 2 + user message
	if len(msgs) != 14 {
		t.Fatalf("message count = %d, want 14", len(msgs))
	}
	if msgs[0].Role != "system" {
		t.Error("first message is not the system prompt")
	}
	if msgs[1].Content != "q4" {
		t.Errorf("oldest windowed turn = %q, want q4", msgs[1].Content)
	}
	last := msgs[len(msgs)-1]
	if last.Role != "user" || last.Content != "new question" {
		t.Errorf("last message = %+v", last)
	}
}

func TestMessagesTruncatesLongResponses(t *testing.T) {
	history := []session.Turn{{
		Transcription: "show me the code",
		Response:      strings.Repeat("x", 3000),
	}}

	msgs := Messages(session.Params{}, history, "next")
	assistant := msgs[2]
	if assistant.Role != "assistant" {
		t.Fatalf("message order wrong: %+v", assistant)
	}
	if len(assistant.Content) != 1200+len("... [truncated]") {
		t.Errorf("truncated length = %d", len(assistant.Content))
	}
	if !strings.HasSuffix(assistant.Content, "... [truncated]") {
		t.Error("missing truncation marker")
	}
}
