package provider

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"math"

	"google.golang.org/genai"
)

// GeminiProvider implements Provider and VisionProvider using the Google
// Gen AI SDK with an API key (Gemini API backend, not Vertex).
type GeminiProvider struct {
	client *genai.Client
}

// NewGeminiProvider creates a Gemini provider bound to one API key.
func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiProvider{client: client}, nil
}

// Name returns the provider name.
func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) buildContents(messages []Message) ([]*genai.Content, *genai.Content) {
	var system *genai.Content
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			system = &genai.Content{Parts: []*genai.Part{{Text: m.Content}}}
		case "assistant":
			contents = append(contents, &genai.Content{
				Role:  "model",
				Parts: []*genai.Part{{Text: m.Content}},
			})
		default:
			contents = append(contents, &genai.Content{
				Role:  "user",
				Parts: []*genai.Part{{Text: m.Content}},
			})
		}
	}
	return contents, system
}

func (p *GeminiProvider) buildConfig(req CompletionRequest, system *genai.Content) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}
	config.Temperature = genai.Ptr(float32(req.Temperature))
	if req.MaxTokens > 0 && req.MaxTokens <= math.MaxInt32 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if system != nil {
		config.SystemInstruction = system
	}
	return config
}

// CreateCompletion creates a completion.
func (p *GeminiProvider) CreateCompletion(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}

	contents, system := p.buildContents(req.Messages)
	resp, err := p.client.Models.GenerateContent(ctx, model, contents, p.buildConfig(req, system))
	if err != nil {
		return nil, NewProviderError("gemini", ErrorCodeServerError, err.Error(), err)
	}
	return p.parseResponse(resp)
}

// CreateStreaming creates a streaming response.
func (p *GeminiProvider) CreateStreaming(ctx context.Context, req CompletionRequest) (Stream, error) {
	model := req.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}

	contents, system := p.buildContents(req.Messages)
	config := p.buildConfig(req, system)

	respChan := make(chan *genai.GenerateContentResponse, 10)
	errChan := make(chan error, 1)
	streamCtx, cancel := context.WithCancel(ctx)

	go func() {
		defer close(respChan)
		defer close(errChan)
		for resp, err := range p.client.Models.GenerateContentStream(streamCtx, model, contents, config) {
			if err != nil {
				select {
				case errChan <- err:
				case <-streamCtx.Done():
				}
				return
			}
			select {
			case respChan <- resp:
			case <-streamCtx.Done():
				return
			}
		}
	}()

	return &geminiStream{respChan: respChan, errChan: errChan, cancel: cancel}, nil
}

// CreateVision answers a prompt about a JPEG image.
func (p *GeminiProvider) CreateVision(ctx context.Context, req VisionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}

	image, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil {
		return nil, NewProviderError("gemini", ErrorCodeInvalidRequest, "invalid image encoding", err)
	}

	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{Text: req.Prompt},
			{InlineData: &genai.Blob{MIMEType: "image/jpeg", Data: image}},
		},
	}}

	config := &genai.GenerateContentConfig{}
	if req.MaxTokens > 0 && req.MaxTokens <= math.MaxInt32 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.System != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}

	resp, err := p.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, NewProviderError("gemini", ErrorCodeServerError, err.Error(), err)
	}
	return p.parseResponse(resp)
}

func (p *GeminiProvider) parseResponse(resp *genai.GenerateContentResponse) (*CompletionResponse, error) {
	if len(resp.Candidates) == 0 {
		return nil, NewProviderError("gemini", ErrorCodeUnknown, "no candidates in response", nil)
	}

	candidate := resp.Candidates[0]
	var content string
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			content += part.Text
		}
	}

	result := &CompletionResponse{
		Content:      content,
		FinishReason: string(candidate.FinishReason),
	}
	if resp.UsageMetadata != nil {
		result.Usage = Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return result, nil
}

// geminiStream adapts the SDK's iterator to the Stream interface.
type geminiStream struct {
	respChan chan *genai.GenerateContentResponse
	errChan  chan error
	cancel   context.CancelFunc
}

func (s *geminiStream) Recv() (*StreamChunk, error) {
	resp, ok := <-s.respChan
	if !ok {
		if err, hasErr := <-s.errChan; hasErr && err != nil {
			return nil, err
		}
		return &StreamChunk{FinishReason: "stop"}, io.EOF
	}

	var delta string
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			delta += part.Text
		}
	}
	return &StreamChunk{Delta: delta}, nil
}

func (s *geminiStream) Close() error {
	s.cancel()
	return nil
}
