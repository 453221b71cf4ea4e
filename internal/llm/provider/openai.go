package provider

import (
	"context"
	"net/http"
)

const openaiBaseURL = "https://api.openai.com/v1"

// OpenAIProvider implements Provider and VisionProvider for the OpenAI API.
type OpenAIProvider struct {
	chat *chatClient
}

// NewOpenAIProvider creates an OpenAI provider bound to one API key.
func NewOpenAIProvider(apiKey string, httpClient *http.Client) *OpenAIProvider {
	return &OpenAIProvider{chat: newChatClient("openai", apiKey, openaiBaseURL, httpClient)}
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string { return "openai" }

// CreateCompletion creates a completion.
func (p *OpenAIProvider) CreateCompletion(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	return p.chat.complete(ctx, buildChatRequest(req, false))
}

// CreateStreaming creates a streaming response.
func (p *OpenAIProvider) CreateStreaming(ctx context.Context, req CompletionRequest) (Stream, error) {
	return p.chat.stream(ctx, buildChatRequest(req, true))
}

// CreateVision answers a prompt about a JPEG image using a vision-capable
// model. The image is inlined as a data URI; Detail selects the provider-side
// resolution ("low" keeps token cost down for coarse screenshots).
func (p *OpenAIProvider) CreateVision(ctx context.Context, req VisionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = "gpt-4o"
	}

	imageURL := map[string]any{
		"url": "data:image/jpeg;base64," + req.ImageBase64,
	}
	if req.Detail != "" {
		imageURL["detail"] = req.Detail
	}

	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{
		Role: "user",
		Content: []map[string]any{
			{"type": "text", "text": req.Prompt},
			{"type": "image_url", "image_url": imageURL},
		},
	})

	body := chatRequest{
		Model:     model,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
	}
	return p.chat.complete(ctx, body)
}
