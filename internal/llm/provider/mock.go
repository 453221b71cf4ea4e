package provider

import (
	"context"
	"io"
	"strings"
	"sync"
)

// MockProvider is an in-memory provider for tests. It records requests and
// streams a canned response token by token.
type MockProvider struct {
	mu sync.Mutex

	ProviderName string
	Response     string
	Err          error
	ChunkSize    int

	Requests       []CompletionRequest
	VisionRequests []VisionRequest
}

// NewMockProvider creates a mock that replies with response.
func NewMockProvider(response string) *MockProvider {
	return &MockProvider{ProviderName: "mock", Response: response, ChunkSize: 4}
}

func (m *MockProvider) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

func (m *MockProvider) record(req CompletionRequest) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()
}

// LastRequest returns the most recent completion request, or nil.
func (m *MockProvider) LastRequest() *CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return nil
	}
	req := m.Requests[len(m.Requests)-1]
	return &req
}

func (m *MockProvider) CreateCompletion(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	m.record(req)
	if m.Err != nil {
		return nil, m.Err
	}
	return &CompletionResponse{Content: m.Response, FinishReason: "stop"}, nil
}

func (m *MockProvider) CreateStreaming(ctx context.Context, req CompletionRequest) (Stream, error) {
	m.record(req)
	if m.Err != nil {
		return nil, m.Err
	}
	size := m.ChunkSize
	if size <= 0 {
		size = 4
	}
	var chunks []string
	for rest := m.Response; rest != ""; {
		n := size
		if n > len(rest) {
			n = len(rest)
		}
		chunks = append(chunks, rest[:n])
		rest = rest[n:]
	}
	return &mockStream{chunks: chunks, ctx: ctx}, nil
}

func (m *MockProvider) CreateVision(ctx context.Context, req VisionRequest) (*CompletionResponse, error) {
	m.mu.Lock()
	m.VisionRequests = append(m.VisionRequests, req)
	m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return &CompletionResponse{Content: m.Response, FinishReason: "stop"}, nil
}

type mockStream struct {
	chunks []string
	pos    int
	ctx    context.Context
}

func (s *mockStream) Recv() (*StreamChunk, error) {
	if err := s.ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.chunks) {
		return &StreamChunk{FinishReason: "stop"}, io.EOF
	}
	chunk := s.chunks[s.pos]
	s.pos++
	return &StreamChunk{Delta: chunk}, nil
}

func (s *mockStream) Close() error { return nil }

// Transcript joins all recorded request contents, useful for assertions.
func (m *MockProvider) Transcript() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sb strings.Builder
	for _, req := range m.Requests {
		for _, msg := range req.Messages {
			sb.WriteString(msg.Role)
			sb.WriteString(": ")
			sb.WriteString(msg.Content)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
