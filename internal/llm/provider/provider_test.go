package provider

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestChatClientCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q, want bearer test-key", got)
		}
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices": [{"message": {"content": "hello there"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 5, "completion_tokens": 3, "total_tokens": 8}
		}`))
	}))
	defer server.Close()

	c := newChatClient("groq", "test-key", server.URL, nil)
	resp, err := c.complete(context.Background(), buildChatRequest(CompletionRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
		Model:    "llama-3.1-8b-instant",
	}, false))
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if resp.Content != "hello there" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 8 {
		t.Errorf("total tokens = %d, want 8", resp.Usage.TotalTokens)
	}
}

func TestChatClientStreaming(t *testing.T) {
	body := strings.Join([]string{
		`data: {"choices":[{"delta":{"content":"Hel"}}]}`,
		``,
		`data: {"choices":[{"delta":{"content":"lo"}}]}`,
		``,
		`data: {"choices":[{"delta":{},"finish_reason":"stop"}]}`,
		``,
		`data: [DONE]`,
		``,
	}, "\n")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	c := newChatClient("groq", "k", server.URL, nil)
	stream, err := c.stream(context.Background(), buildChatRequest(CompletionRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
		Model:    "llama-3.1-8b-instant",
	}, true))
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	defer func() {
		_ = stream.Close()
	}()

	var got strings.Builder
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("recv: %v", err)
		}
		got.WriteString(chunk.Delta)
	}
	if got.String() != "Hello" {
		t.Errorf("streamed content = %q, want Hello", got.String())
	}
}

func TestChatClientErrorMapping(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		wantCode      string
		wantRetryable bool
	}{
		{"unauthorized", http.StatusUnauthorized, ErrorCodeAuthentication, false},
		{"rate limited", http.StatusTooManyRequests, ErrorCodeRateLimit, true},
		{"bad request", http.StatusBadRequest, ErrorCodeInvalidRequest, false},
		{"not found", http.StatusNotFound, ErrorCodeModelNotFound, false},
		{"server error", http.StatusInternalServerError, ErrorCodeServerError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error": {"message": "nope"}}`))
			}))
			defer server.Close()

			c := newChatClient("groq", "k", server.URL, nil)
			_, err := c.complete(context.Background(), chatRequest{Model: "m"})
			if err == nil {
				t.Fatal("expected error")
			}

			var pe *ProviderError
			if !errors.As(err, &pe) {
				t.Fatalf("error type %T, want *ProviderError", err)
			}
			if pe.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", pe.Code, tt.wantCode)
			}
			if pe.IsRetryable != tt.wantRetryable {
				t.Errorf("retryable = %v, want %v", pe.IsRetryable, tt.wantRetryable)
			}
			if pe.Message != "nope" {
				t.Errorf("message = %q", pe.Message)
			}
		})
	}
}

func TestMockProviderStreaming(t *testing.T) {
	mock := NewMockProvider("four tokens in here")
	stream, err := mock.CreateStreaming(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "q"}},
	})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}

	var got strings.Builder
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("recv: %v", err)
		}
		got.WriteString(chunk.Delta)
	}
	if got.String() != "four tokens in here" {
		t.Errorf("content = %q", got.String())
	}
	if mock.LastRequest() == nil {
		t.Error("request not recorded")
	}
}

func TestMockProviderCancel(t *testing.T) {
	mock := NewMockProvider("never delivered")
	ctx, cancel := context.WithCancel(context.Background())
	stream, err := mock.CreateStreaming(ctx, CompletionRequest{})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	cancel()
	if _, err := stream.Recv(); !errors.Is(err, context.Canceled) {
		t.Errorf("recv after cancel = %v, want context.Canceled", err)
	}
}
