package provider

import (
	"context"
	"net/http"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// GroqProvider implements Provider for the Groq API (OpenAI-compatible).
// Instances are cheap; the orchestrator constructs one per attempt with the
// credential selected by the key pool.
type GroqProvider struct {
	chat *chatClient
}

// NewGroqProvider creates a Groq provider bound to one API key. A nil
// httpClient selects a shared default with a 120s transport timeout.
func NewGroqProvider(apiKey string, httpClient *http.Client) *GroqProvider {
	return &GroqProvider{chat: newChatClient("groq", apiKey, groqBaseURL, httpClient)}
}

// Name returns the provider name.
func (p *GroqProvider) Name() string { return "groq" }

// CreateCompletion creates a completion.
func (p *GroqProvider) CreateCompletion(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	return p.chat.complete(ctx, buildChatRequest(req, false))
}

// CreateStreaming creates a streaming response.
func (p *GroqProvider) CreateStreaming(ctx context.Context, req CompletionRequest) (Stream, error) {
	return p.chat.stream(ctx, buildChatRequest(req, true))
}
