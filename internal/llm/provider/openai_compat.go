package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"
)

// chatClient talks to an OpenAI-compatible chat completions endpoint.
// Both the Groq and OpenAI providers are thin wrappers around it.
type chatClient struct {
	name    string
	apiKey  string
	baseURL string
	client  *http.Client
}

func newChatClient(name, apiKey, baseURL string, httpClient *http.Client) *chatClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	return &chatClient{name: name, apiKey: apiKey, baseURL: baseURL, client: httpClient}
}

// chatRequest is the OpenAI-compatible wire format. Content is `any` so the
// vision path can send multi-part content blocks.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

func buildChatRequest(req CompletionRequest, stream bool) chatRequest {
	messages := make([]chatMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = chatMessage{Role: m.Role, Content: m.Content}
	}
	return chatRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      stream,
	}
}

func (c *chatClient) complete(ctx context.Context, body chatRequest) (*CompletionResponse, error) {
	var resp chatResponse
	if err := c.doJSON(ctx, "/chat/completions", body, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, NewProviderError(c.name, ErrorCodeUnknown, resp.Error.Message, nil)
	}
	if len(resp.Choices) == 0 {
		return nil, NewProviderError(c.name, ErrorCodeUnknown, "no choices in response", nil)
	}
	choice := resp.Choices[0]
	return &CompletionResponse{
		Content:      choice.Message.Content,
		FinishReason: choice.FinishReason,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

func (c *chatClient) stream(ctx context.Context, body chatRequest) (Stream, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, NewProviderError(c.name, ErrorCodeTimeout, err.Error(), err)
	}
	if resp.StatusCode != http.StatusOK {
		defer func() {
			_ = resp.Body.Close()
		}()
		return nil, c.handleErrorResponse(resp)
	}

	return &sseStream{name: c.name, reader: bufio.NewReader(resp.Body), closer: resp.Body}, nil
}

func (c *chatClient) doJSON(ctx context.Context, endpoint string, reqBody any, result any) error {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return NewProviderError(c.name, ErrorCodeTimeout, err.Error(), err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return c.handleErrorResponse(resp)
	}
	return json.NewDecoder(resp.Body).Decode(result)
}

func (c *chatClient) handleErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	code := ErrorCodeUnknown
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		code = ErrorCodeAuthentication
	case http.StatusTooManyRequests:
		code = ErrorCodeRateLimit
	case http.StatusBadRequest:
		code = ErrorCodeInvalidRequest
	case http.StatusNotFound:
		code = ErrorCodeModelNotFound
	default:
		if resp.StatusCode >= 500 {
			code = ErrorCodeServerError
		}
	}

	message := string(body)
	var errResp chatResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != nil {
		message = errResp.Error.Message
	}

	return &ProviderError{
		Provider:    c.name,
		Code:        code,
		Message:     message,
		StatusCode:  resp.StatusCode,
		IsRetryable: isRetryableError(code),
	}
}

// sseStream parses the text/event-stream body of an OpenAI-compatible
// streaming completion.
type sseStream struct {
	name   string
	reader *bufio.Reader
	closer io.Closer
}

func (s *sseStream) Recv() (*StreamChunk, error) {
	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				return &StreamChunk{FinishReason: "stop"}, io.EOF
			}
			return nil, err
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 || !bytes.HasPrefix(line, []byte("data: ")) {
			continue
		}

		data := bytes.TrimPrefix(line, []byte("data: "))
		if string(data) == "[DONE]" {
			return &StreamChunk{FinishReason: "stop"}, io.EOF
		}

		var event struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
				FinishReason string `json:"finish_reason"`
			} `json:"choices"`
		}
		if err := json.Unmarshal(data, &event); err != nil {
			continue
		}
		if len(event.Choices) == 0 {
			continue
		}

		choice := event.Choices[0]
		return &StreamChunk{
			Delta:        choice.Delta.Content,
			FinishReason: choice.FinishReason,
		}, nil
	}
}

func (s *sseStream) Close() error {
	return s.closer.Close()
}
