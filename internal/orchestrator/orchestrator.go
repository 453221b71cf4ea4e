// Package orchestrator runs one answer generation end to end: prompt
// assembly, model routing, key rotation, token streaming, cancellation,
// and turn persistence.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/deskpilot-dev/deskpilot/internal/llm/keypool"
	"github.com/deskpilot-dev/deskpilot/internal/llm/provider"
	"github.com/deskpilot-dev/deskpilot/internal/observability"
	"github.com/deskpilot-dev/deskpilot/internal/prompt"
	"github.com/deskpilot-dev/deskpilot/internal/router"
	"github.com/deskpilot-dev/deskpilot/internal/session"
	"github.com/deskpilot-dev/deskpilot/internal/store"
	pkgobs "github.com/deskpilot-dev/deskpilot/pkg/observability"
)

const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 4096
)

// ErrBusy is returned when a generation is already running for the session.
var ErrBusy = errors.New("orchestrator: generation already in flight")

// ErrCancelled is returned when the client cancelled mid-generation.
var ErrCancelled = errors.New("orchestrator: generation cancelled")

// Sink receives pipeline output for one session. Implementations must not
// block; the orchestrator calls them from the generation goroutine.
type Sink interface {
	// OnToken delivers one streamed response chunk.
	OnToken(sessionKey, token string)
	// OnFinal delivers the complete response text.
	OnFinal(sessionKey, text string)
	// OnStatus delivers a human-readable pipeline status line.
	OnStatus(sessionKey, status string)
	// OnPartial delivers an intermediate transcription preview.
	OnPartial(sessionKey, text string)
	// OnTurnSaved fires after a turn is accepted into history.
	OnTurnSaved(sessionKey, conversationID string, turn session.Turn, history []session.Turn)
}

// ProviderFactory builds a provider bound to one API key. Injected so
// tests can substitute a mock.
type ProviderFactory func(apiKey string) provider.Provider

// Options tweak a single generation.
type Options struct {
	// TurnLabel replaces the user message in the persisted turn. Used by
	// the screenshot path so history marks image-triggered turns.
	TurnLabel string
	// ForceComplex skips routing and uses the complex tier.
	ForceComplex bool
}

// Orchestrator drives generations for all sessions. Safe for concurrent
// use; per-session exclusivity comes from the session's guard.
type Orchestrator struct {
	pool        *keypool.Pool
	route       *router.Router
	store       store.Store
	sink        Sink
	newProvider ProviderFactory
	timeout     time.Duration
	now         func() time.Time
}

// New builds an orchestrator. timeout bounds each per-key attempt.
func New(pool *keypool.Pool, route *router.Router, st store.Store, sink Sink, factory ProviderFactory, timeout time.Duration) *Orchestrator {
	return &Orchestrator{
		pool:        pool,
		route:       route,
		store:       st,
		sink:        sink,
		newProvider: factory,
		timeout:     timeout,
		now:         time.Now,
	}
}

// Probe issues a one-token completion to verify that a key and the simple
// tier model are usable. It advances the simple bucket's rotation like any
// other draw.
func (o *Orchestrator) Probe(ctx context.Context) error {
	key, err := o.pool.Next(keypool.TierSimple)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	_, err = o.newProvider(key).CreateCompletion(ctx, provider.CompletionRequest{
		Messages:  []provider.Message{{Role: "user", Content: "ping"}},
		Model:     o.route.Route("ping").Model,
		MaxTokens: 1,
	})
	if err != nil {
		return fmt.Errorf("provider probe failed: %w", err)
	}
	return nil
}

// Generate produces a streamed answer for userMessage and, on success,
// persists the turn. It returns ErrBusy without side effects when the
// session is already generating, and ErrCancelled when the client stopped
// it mid-stream.
func (o *Orchestrator) Generate(ctx context.Context, sess *session.Session, userMessage string, opts Options) error {
	if !sess.BeginGenerate() {
		log.Printf("[Orchestrator] %s: skipping request, already generating", sess.ID)
		return ErrBusy
	}
	defer sess.EndGenerate()

	decision := o.route.Route(userMessage)
	if opts.ForceComplex {
		decision = router.Decision{
			Tier:   keypool.TierComplex,
			Model:  o.route.ComplexModel(),
			Reason: "forced complex",
		}
	}

	ctx, span := observability.StartSpan(ctx, "orchestrator.generate",
		attribute.String("tier", string(decision.Tier)),
		attribute.String("model", decision.Model),
	)
	defer span.End()

	rotation, err := o.pool.Rotation(decision.Tier)
	if err != nil {
		o.sink.OnStatus(sess.ID, "No API keys configured")
		observability.RecordError(ctx, err)
		return fmt.Errorf("no credentials for tier %s: %w", decision.Tier, err)
	}

	messages := prompt.Messages(sess.Params(), sess.History(), userMessage)
	req := provider.CompletionRequest{
		Messages:    messages,
		Model:       decision.Model,
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
	}

	o.sink.OnStatus(sess.ID, "Thinking...")
	start := o.now()

	var lastErr error
	for i, key := range rotation {
		if sess.CancelRequested() {
			o.sink.OnStatus(sess.ID, "Cancelled")
			pkgobs.RecordGeneration(string(decision.Tier), "cancelled", o.now().Sub(start))
			return ErrCancelled
		}
		if i > 0 {
			pkgobs.RecordKeyRotation()
			o.sink.OnStatus(sess.ID, "Retrying with the next key...")
		}

		text, err := o.attempt(ctx, sess, req, key)
		if err == nil {
			err = o.finish(ctx, sess, userMessage, text, start, opts)
			if err == nil {
				pkgobs.RecordGeneration(string(decision.Tier), "success", o.now().Sub(start))
				return nil
			}
		}
		if errors.Is(err, ErrCancelled) {
			o.sink.OnStatus(sess.ID, "Cancelled")
			pkgobs.RecordGeneration(string(decision.Tier), "cancelled", o.now().Sub(start))
			return err
		}
		lastErr = err
		log.Printf("[Orchestrator] %s: attempt %d/%d failed: %v", sess.ID, i+1, len(rotation), err)
	}

	o.sink.OnStatus(sess.ID, "Generation failed")
	observability.RecordError(ctx, lastErr)
	pkgobs.RecordGeneration(string(decision.Tier), "error", o.now().Sub(start))
	return fmt.Errorf("all %d keys exhausted: %w", len(rotation), lastErr)
}

// attempt runs one streaming request on one key, forwarding tokens as
// they arrive. The cancel flag is checked before and after every chunk.
func (o *Orchestrator) attempt(ctx context.Context, sess *session.Session, req provider.CompletionRequest, key string) (string, error) {
	attemptCtx := ctx
	var cancel context.CancelFunc
	if o.timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	stream, err := o.newProvider(key).CreateStreaming(attemptCtx, req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = stream.Close()
	}()

	var b strings.Builder
	for {
		if sess.CancelRequested() {
			return "", ErrCancelled
		}
		chunk, err := stream.Recv()
		if err == io.EOF {
			return b.String(), nil
		}
		if err != nil {
			return "", err
		}
		if chunk.Delta == "" {
			continue
		}
		b.WriteString(chunk.Delta)
		o.sink.OnToken(sess.ID, chunk.Delta)
		pkgobs.RecordTokenStreamed()
	}
}

// finish annotates the response with its latency, emits it, and persists
// the turn. A cancel that arrived after the last streamed chunk still
// suppresses both the emit and the save.
func (o *Orchestrator) finish(ctx context.Context, sess *session.Session, userMessage, text string, start time.Time, opts Options) error {
	if sess.CancelRequested() {
		return ErrCancelled
	}

	elapsed := o.now().Sub(start)
	final := text + fmt.Sprintf("\n\n*[Response Time: %.1fs]*", elapsed.Seconds())
	o.sink.OnFinal(sess.ID, final)
	o.sink.OnStatus(sess.ID, "Ready")

	label := userMessage
	if opts.TurnLabel != "" {
		label = opts.TurnLabel
	}
	turn := session.Turn{
		Transcription: label,
		Response:      final,
		Timestamp:     o.now(),
	}
	sess.AppendTurn(turn)

	conversationID := sess.ConversationID()
	if o.store != nil {
		if err := o.store.SaveTurn(ctx, sess.ID, conversationID, turn); err != nil {
			log.Printf("[Orchestrator] %s: persist turn: %v", sess.ID, err)
		}
	}
	o.sink.OnTurnSaved(sess.ID, conversationID, turn, sess.History())
	return nil
}
