// Package prompt assembles the system prompt and the windowed message
// list sent to the completion providers.
package prompt

import (
	"strings"

	"github.com/deskpilot-dev/deskpilot/internal/llm/provider"
	"github.com/deskpilot-dev/deskpilot/internal/session"
)

const (
	// historyWindow is how many prior turns ride along with a new message.
	historyWindow = 6

	// maxPriorResponse truncates long prior answers, typically screenshot
	// code dumps, to keep the context light.
	maxPriorResponse = 1200

	truncationMarker = "... [truncated]"

	maxResumeContext = 2000
)

// SystemPrompt builds the system message for a profile. An unknown
// profile falls back to the interview template. The custom prompt goes
// last so it can override the defaults.
func SystemPrompt(profile, customPrompt, resumeContext string) string {
	parts, ok := profiles[profile]
	if !ok {
		parts = profiles["interview"]
	}

	var b strings.Builder
	b.WriteString(parts.intro)
	b.WriteString("\n\n")
	b.WriteString(parts.formatRequirements)

	if resume := strings.TrimSpace(resumeContext); resume != "" {
		if len(resume) > maxResumeContext {
			resume = resume[:maxResumeContext] + truncationMarker
		}
		b.WriteString("\n\nRESUME/USER CONTEXT\n-----\n")
		b.WriteString(resume)
		b.WriteString("\n-----\n")
	}

	if parts.content != "" {
		b.WriteString("\n\n")
		b.WriteString(parts.content)
	}

	b.WriteString("\n\n")
	b.WriteString(parts.outputInstructions)

	if custom := strings.TrimSpace(customPrompt); custom != "" {
		b.WriteString("\n\nUser-provided context description & Override Instructions\n-----\n")
		b.WriteString(custom)
		b.WriteString("\n-----\n")
	}

	return b.String()
}

// Profiles lists the known profile names.
func Profiles() []string {
	out := make([]string, 0, len(profiles))
	for name := range profiles {
		out = append(out, name)
	}
	return out
}

// Messages builds the full message list: system prompt, the most recent
// history turns with long responses truncated, then the new user message.
func Messages(params session.Params, history []session.Turn, userMessage string) []provider.Message {
	msgs := make([]provider.Message, 0, 2+2*historyWindow)
	msgs = append(msgs, provider.Message{
		Role:    "system",
		Content: SystemPrompt(params.Profile, params.CustomPrompt, params.ResumeSnippet),
	})

	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	for _, turn := range history {
		response := turn.Response
		if len(response) > maxPriorResponse {
			response = response[:maxPriorResponse] + truncationMarker
		}
		msgs = append(msgs, provider.Message{Role: "user", Content: turn.Transcription})
		msgs = append(msgs, provider.Message{Role: "assistant", Content: response})
	}

	msgs = append(msgs, provider.Message{Role: "user", Content: userMessage})
	return msgs
}
