package orchestrator

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskpilot-dev/deskpilot/internal/llm/keypool"
	"github.com/deskpilot-dev/deskpilot/internal/llm/provider"
	"github.com/deskpilot-dev/deskpilot/internal/router"
	"github.com/deskpilot-dev/deskpilot/internal/session"
	"github.com/deskpilot-dev/deskpilot/internal/store"
)

type testSink struct {
	mu         sync.Mutex
	tokens     []string
	finals     []string
	statuses   []string
	partials   []string
	savedTurns []session.Turn

	onToken func()
}

func (s *testSink) OnToken(sessionKey, token string) {
	s.mu.Lock()
	s.tokens = append(s.tokens, token)
	hook := s.onToken
	s.mu.Unlock()
	if hook != nil {
		hook()
	}
}

func (s *testSink) OnFinal(sessionKey, text string) {
	s.mu.Lock()
	s.finals = append(s.finals, text)
	s.mu.Unlock()
}

func (s *testSink) OnStatus(sessionKey, status string) {
	s.mu.Lock()
	s.statuses = append(s.statuses, status)
	s.mu.Unlock()
}

func (s *testSink) OnPartial(sessionKey, text string) {
	s.mu.Lock()
	s.partials = append(s.partials, text)
	s.mu.Unlock()
}

func (s *testSink) OnTurnSaved(sessionKey, conversationID string, turn session.Turn, history []session.Turn) {
	s.mu.Lock()
	s.savedTurns = append(s.savedTurns, turn)
	s.mu.Unlock()
}

func (s *testSink) joinedTokens() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Join(s.tokens, "")
}

func testRouter() *router.Router {
	return router.New(15, "small-model", "big-model")
}

func testSession(t *testing.T) *session.Session {
	t.Helper()
	reg := session.NewRegistry()
	sess, _ := reg.GetOrCreate("sess-1", session.Params{Profile: "interview"})
	return sess
}

func TestGenerateSuccess(t *testing.T) {
	sink := &testSink{}
	mock := provider.NewMockProvider("The answer is 42.")
	mem := store.NewMemoryStore()

	o := New(
		keypool.New([]string{"k1"}, []string{"k1"}, nil),
		testRouter(), mem, sink,
		func(key string) provider.Provider { return mock },
		5*time.Second,
	)

	sess := testSession(t)
	err := o.Generate(context.Background(), sess, "what is the meaning of life", Options{})
	require.NoError(t, err)

	assert.Equal(t, "The answer is 42.", sink.joinedTokens())
	require.Len(t, sink.finals, 1)
	assert.Contains(t, sink.finals[0], "The answer is 42.")
	assert.Contains(t, sink.finals[0], "*[Response Time:")

	history := sess.History()
	require.Len(t, history, 1)
	assert.Equal(t, "what is the meaning of life", history[0].Transcription)

	stored, err := mem.History(context.Background(), sess.ConversationID())
	require.NoError(t, err)
	assert.Len(t, stored, 1)

	require.Len(t, sink.savedTurns, 1)
	assert.False(t, sess.Generating(), "guard not released")
}

func TestGenerateBusyRejected(t *testing.T) {
	sink := &testSink{}
	o := New(
		keypool.New([]string{"k1"}, nil, nil),
		testRouter(), store.NewMemoryStore(), sink,
		func(key string) provider.Provider { return provider.NewMockProvider("x") },
		time.Second,
	)

	sess := testSession(t)
	require.True(t, sess.BeginGenerate())
	defer sess.EndGenerate()

	err := o.Generate(context.Background(), sess, "hello", Options{})
	assert.ErrorIs(t, err, ErrBusy)
	assert.Empty(t, sink.tokens)
}

func TestGenerateCancelMidStream(t *testing.T) {
	sink := &testSink{}
	sess := testSession(t)
	sink.onToken = func() { sess.RequestCancel() }

	mock := provider.NewMockProvider("a long answer that streams over several chunks")
	o := New(
		keypool.New([]string{"k1"}, nil, nil),
		testRouter(), store.NewMemoryStore(), sink,
		func(key string) provider.Provider { return mock },
		time.Second,
	)

	err := o.Generate(context.Background(), sess, "hello", Options{})
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Empty(t, sink.finals, "final emitted despite cancel")
	assert.Empty(t, sess.History(), "turn persisted despite cancel")
	assert.False(t, sess.Generating())
}

// eofCancelStream delivers its chunks, then requests a cancel at the same
// moment the stream ends. That lands after the in-stream checkpoints but
// before the final emit.
type eofCancelStream struct {
	sess   *session.Session
	chunks []string
	i      int
}

func (s *eofCancelStream) Recv() (*provider.StreamChunk, error) {
	if s.i >= len(s.chunks) {
		s.sess.RequestCancel()
		return nil, io.EOF
	}
	chunk := s.chunks[s.i]
	s.i++
	return &provider.StreamChunk{Delta: chunk}, nil
}

func (s *eofCancelStream) Close() error { return nil }

type fixedStreamProvider struct {
	stream provider.Stream
}

func (p *fixedStreamProvider) Name() string { return "fixed-stream" }

func (p *fixedStreamProvider) CreateCompletion(ctx context.Context, req provider.CompletionRequest) (*provider.CompletionResponse, error) {
	return &provider.CompletionResponse{Content: "unused"}, nil
}

func (p *fixedStreamProvider) CreateStreaming(ctx context.Context, req provider.CompletionRequest) (provider.Stream, error) {
	return p.stream, nil
}

func TestGenerateCancelAtStreamEnd(t *testing.T) {
	sink := &testSink{}
	sess := testSession(t)
	stream := &eofCancelStream{sess: sess, chunks: []string{"hello"}}

	o := New(
		keypool.New([]string{"k1"}, nil, nil),
		testRouter(), store.NewMemoryStore(), sink,
		func(key string) provider.Provider { return &fixedStreamProvider{stream: stream} },
		time.Second,
	)

	err := o.Generate(context.Background(), sess, "hi", Options{})
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Empty(t, sink.finals, "final emitted despite cancel")
	assert.Empty(t, sink.savedTurns, "turn announced despite cancel")
	assert.Empty(t, sess.History(), "turn persisted despite cancel")
}

func TestGenerateRotatesKeysOnFailure(t *testing.T) {
	sink := &testSink{}
	var used []string
	var mu sync.Mutex

	factory := func(key string) provider.Provider {
		mu.Lock()
		used = append(used, key)
		mu.Unlock()
		if key == "bad" {
			bad := provider.NewMockProvider("")
			bad.Err = &provider.ProviderError{Provider: "mock", Code: provider.ErrorCodeRateLimit, IsRetryable: true}
			return bad
		}
		return provider.NewMockProvider("recovered")
	}

	o := New(
		keypool.New([]string{"bad", "good"}, nil, nil),
		testRouter(), store.NewMemoryStore(), sink, factory, time.Second,
	)

	sess := testSession(t)
	err := o.Generate(context.Background(), sess, "hi there", Options{})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"bad", "good"}, used)
	assert.Equal(t, "recovered", sink.joinedTokens())
}

func TestGenerateAllKeysExhausted(t *testing.T) {
	sink := &testSink{}
	bad := provider.NewMockProvider("")
	bad.Err = errors.New("boom")

	o := New(
		keypool.New([]string{"k1", "k2"}, nil, nil),
		testRouter(), store.NewMemoryStore(), sink,
		func(key string) provider.Provider { return bad },
		time.Second,
	)

	sess := testSession(t)
	err := o.Generate(context.Background(), sess, "hi", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exhausted")
	assert.Empty(t, sess.History())
}

func TestGenerateNoKeys(t *testing.T) {
	sink := &testSink{}
	o := New(
		keypool.New(nil, nil, nil),
		testRouter(), store.NewMemoryStore(), sink,
		func(key string) provider.Provider { return provider.NewMockProvider("x") },
		time.Second,
	)

	err := o.Generate(context.Background(), testSession(t), "hi", Options{})
	assert.ErrorIs(t, err, keypool.ErrNoKeys)
}

func TestGenerateTurnLabel(t *testing.T) {
	sink := &testSink{}
	o := New(
		keypool.New([]string{"k1"}, []string{"k1"}, nil),
		testRouter(), store.NewMemoryStore(), sink,
		func(key string) provider.Provider { return provider.NewMockProvider("analyzed") },
		time.Second,
	)

	sess := testSession(t)
	err := o.Generate(context.Background(), sess, "extracted screen text", Options{
		TurnLabel:    "(Screenshot Analyzed)",
		ForceComplex: true,
	})
	require.NoError(t, err)

	history := sess.History()
	require.Len(t, history, 1)
	assert.Equal(t, "(Screenshot Analyzed)", history[0].Transcription)
}

func TestProbe(t *testing.T) {
	mock := provider.NewMockProvider("pong")
	o := New(
		keypool.New([]string{"k1"}, nil, nil),
		testRouter(), store.NewMemoryStore(), &testSink{},
		func(key string) provider.Provider { return mock },
		5*time.Second,
	)

	require.NoError(t, o.Probe(context.Background()))
	req := mock.LastRequest()
	require.NotNil(t, req)
	assert.Equal(t, "small-model", req.Model)
	assert.Equal(t, 1, req.MaxTokens)
}

func TestProbeNoKeys(t *testing.T) {
	o := New(
		keypool.New(nil, nil, nil),
		testRouter(), store.NewMemoryStore(), &testSink{},
		func(key string) provider.Provider { return provider.NewMockProvider("x") },
		5*time.Second,
	)
	assert.ErrorIs(t, o.Probe(context.Background()), keypool.ErrNoKeys)
}

func TestProbeProviderError(t *testing.T) {
	mock := &provider.MockProvider{ProviderName: "mock", Err: errors.New("401 unauthorized")}
	o := New(
		keypool.New([]string{"k1"}, nil, nil),
		testRouter(), store.NewMemoryStore(), &testSink{},
		func(key string) provider.Provider { return mock },
		5*time.Second,
	)
	assert.Error(t, o.Probe(context.Background()))
}
