// Package provider implements chat-completion providers behind a uniform
// interface so the orchestrator can rotate credentials and fall back across
// providers without knowing wire formats.
package provider

import "context"

// Provider defines the interface for generation providers.
type Provider interface {
	// CreateCompletion creates a non-streaming completion.
	CreateCompletion(ctx context.Context, request CompletionRequest) (*CompletionResponse, error)

	// CreateStreaming creates a streaming response.
	CreateStreaming(ctx context.Context, request CompletionRequest) (Stream, error)

	// Name returns the provider name (e.g., "groq", "openai").
	Name() string
}

// VisionProvider is implemented by providers that can answer about an image.
type VisionProvider interface {
	Provider

	// CreateVision creates a completion over an image plus a text prompt.
	CreateVision(ctx context.Context, request VisionRequest) (*CompletionResponse, error)
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`    // "system", "user", "assistant"
	Content string `json:"content"` // The message content
}

// CompletionRequest represents a completion request.
type CompletionRequest struct {
	// Messages is the conversation history.
	Messages []Message `json:"messages"`

	// Model is the model to use (e.g., "llama-3.3-70b-versatile").
	Model string `json:"model,omitempty"`

	// Temperature controls randomness (0.0-2.0).
	Temperature float64 `json:"temperature,omitempty"`

	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int `json:"max_tokens,omitempty"`
}

// VisionRequest represents an image analysis request.
type VisionRequest struct {
	// Prompt is the instruction accompanying the image.
	Prompt string

	// System is an optional system instruction.
	System string

	// ImageBase64 is the JPEG image, base64-encoded without a data URI prefix.
	ImageBase64 string

	// Detail selects provider-side image resolution ("low", "high", "auto").
	Detail string

	// Model and MaxTokens as in CompletionRequest.
	Model     string
	MaxTokens int
}

// CompletionResponse represents a completion response.
type CompletionResponse struct {
	// Content is the generated text.
	Content string `json:"content"`

	// FinishReason explains why generation stopped.
	FinishReason string `json:"finish_reason"`

	// Usage contains token usage information.
	Usage Usage `json:"usage"`
}

// Usage represents token usage information.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Stream represents a streaming response.
type Stream interface {
	// Recv receives the next chunk. It returns io.EOF when the stream ends.
	Recv() (*StreamChunk, error)

	// Close closes the stream.
	Close() error
}

// StreamChunk represents a chunk in a streaming response.
type StreamChunk struct {
	// Delta is the incremental content.
	Delta string `json:"delta"`

	// FinishReason if this is the last chunk.
	FinishReason string `json:"finish_reason,omitempty"`
}

// ProviderError represents a provider-specific error.
type ProviderError struct {
	Provider      string `json:"provider"`
	Code          string `json:"code"`
	Message       string `json:"message"`
	StatusCode    int    `json:"status_code,omitempty"`
	IsRetryable   bool   `json:"is_retryable"`
	OriginalError error  `json:"-"`
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return e.Provider + " error: " + e.Message
}

// Unwrap returns the original error.
func (e *ProviderError) Unwrap() error {
	return e.OriginalError
}

// Common error codes.
const (
	ErrorCodeInvalidRequest = "invalid_request"
	ErrorCodeAuthentication = "authentication_error"
	ErrorCodeRateLimit      = "rate_limit_exceeded"
	ErrorCodeServerError    = "server_error"
	ErrorCodeTimeout        = "timeout"
	ErrorCodeModelNotFound  = "model_not_found"
	ErrorCodeUnknown        = "unknown_error"
)

// NewProviderError creates a new provider error.
func NewProviderError(provider, code, message string, original error) *ProviderError {
	return &ProviderError{
		Provider:      provider,
		Code:          code,
		Message:       message,
		OriginalError: original,
		IsRetryable:   isRetryableError(code),
	}
}

// isRetryableError determines if an error code is retryable.
func isRetryableError(code string) bool {
	switch code {
	case ErrorCodeRateLimit, ErrorCodeServerError, ErrorCodeTimeout:
		return true
	default:
		return false
	}
}
