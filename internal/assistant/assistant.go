// Package assistant is the session-facing service: it owns the per-session
// audio pipelines and exposes the operations the gateway calls.
package assistant

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/deskpilot-dev/deskpilot/internal/audio"
	"github.com/deskpilot-dev/deskpilot/internal/orchestrator"
	"github.com/deskpilot-dev/deskpilot/internal/session"
	"github.com/deskpilot-dev/deskpilot/internal/transcribe"
	"github.com/deskpilot-dev/deskpilot/internal/vision"
	pkgobs "github.com/deskpilot-dev/deskpilot/pkg/observability"
)

// flushPollInterval is how often a session's buffer is checked for a
// completed utterance.
const flushPollInterval = 200 * time.Millisecond

// ErrSessionNotFound is returned for operations on an unknown session.
var ErrSessionNotFound = errors.New("assistant: session not found")

// Transcriber is the speech-to-text dependency.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []byte) (string, error)
	// Ready reports whether a usable backend is configured.
	Ready() error
}

// Config holds the assistant's pipeline settings.
type Config struct {
	AudioParams        audio.Params
	DuplicateWindow    time.Duration
	ScreenshotCooldown time.Duration
}

// Service wires audio intake, transcription, filtering, and generation
// per session. All exported methods are safe for concurrent use.
type Service struct {
	cfg         Config
	registry    *session.Registry
	transcriber Transcriber
	orch        *orchestrator.Orchestrator
	vision      *vision.Pipeline
	sink        orchestrator.Sink

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	pipelines map[string]*pipeline
}

// pipeline is the audio-side state of one session.
type pipeline struct {
	sess   *session.Session
	buf    *audio.Buffer
	filter *transcribe.Filter
	cancel context.CancelFunc
	done   chan struct{}
}

// New builds the service. vision may be nil when screenshots are not
// configured.
func New(cfg Config, registry *session.Registry, transcriber Transcriber, orch *orchestrator.Orchestrator, vis *vision.Pipeline, sink orchestrator.Sink) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		cfg:         cfg,
		registry:    registry,
		transcriber: transcriber,
		orch:        orch,
		vision:      vis,
		sink:        sink,
		ctx:         ctx,
		cancel:      cancel,
		pipelines:   make(map[string]*pipeline),
	}
}

// StartListening opens (or reuses) a session, applies params, and starts
// audio intake for it.
func (s *Service) StartListening(sessionKey string, params session.Params) error {
	sess, created := s.registry.GetOrCreate(sessionKey, params)
	if !created {
		sess.SetParams(params)
	}
	sess.SetListening(true)
	sess.ClearCancel()
	sess.Touch()

	s.ensurePipeline(sess)
	if created {
		// Surface missing credentials at session start instead of on the
		// first utterance.
		if err := s.transcriber.Ready(); err != nil {
			log.Printf("[Assistant] %s: transcriber: %v", sessionKey, err)
			s.sink.OnStatus(sessionKey, "Transcription not configured")
		}
		go func() {
			if err := s.orch.Probe(s.ctx); err != nil {
				log.Printf("[Assistant] %s: provider probe: %v", sessionKey, err)
				s.sink.OnStatus(sessionKey, "Provider not configured")
			}
		}()
	}
	pkgobs.SetActiveSessions(s.registry.Len())
	s.sink.OnStatus(sessionKey, "Listening...")
	return nil
}

// IngestAudio appends a base64 PCM chunk to the session's buffer. Chunks
// for unknown or non-listening sessions are dropped.
func (s *Service) IngestAudio(sessionKey, pcmBase64 string) error {
	p := s.getPipeline(sessionKey)
	if p == nil {
		return ErrSessionNotFound
	}
	if !p.sess.Listening() {
		return nil
	}

	chunk, err := base64.StdEncoding.DecodeString(pcmBase64)
	if err != nil {
		return fmt.Errorf("decode audio chunk: %w", err)
	}
	p.buf.Ingest(chunk)
	p.sess.Touch()
	return nil
}

// IngestImage runs a screenshot through the analysis pipeline. The call
// returns once the analysis is scheduled; results stream through the sink.
func (s *Service) IngestImage(sessionKey, imageBase64 string, style vision.Style, quality string) error {
	if s.vision == nil {
		return errors.New("assistant: screenshot analysis not configured")
	}
	p := s.getPipeline(sessionKey)
	if p == nil {
		return ErrSessionNotFound
	}
	p.sess.Touch()

	go func() {
		if err := s.vision.Analyze(s.ctx, p.sess, imageBase64, style, quality, p.filter); err != nil {
			log.Printf("[Assistant] %s: screenshot analysis: %v", sessionKey, err)
		}
	}()
	return nil
}

// SendTextMessage routes typed text straight into generation, bypassing
// the audio stages.
func (s *Service) SendTextMessage(sessionKey, text string) error {
	p := s.getPipeline(sessionKey)
	if p == nil {
		return ErrSessionNotFound
	}
	p.sess.Touch()

	go func() {
		if err := s.orch.Generate(s.ctx, p.sess, text, orchestrator.Options{}); err != nil {
			log.Printf("[Assistant] %s: text message: %v", sessionKey, err)
		}
	}()
	return nil
}

// StopProcessing cancels any in-flight generation and drops buffered
// audio, leaving the session open.
func (s *Service) StopProcessing(sessionKey string) error {
	p := s.getPipeline(sessionKey)
	if p == nil {
		return ErrSessionNotFound
	}
	p.sess.RequestCancel()
	p.buf.Reset()
	s.sink.OnStatus(sessionKey, "Stopped")
	return nil
}

// SetManualMode switches push-to-answer mode. In manual mode accepted
// transcriptions are buffered and echoed as partials instead of answered.
func (s *Service) SetManualMode(sessionKey string, on bool) error {
	p := s.getPipeline(sessionKey)
	if p == nil {
		return ErrSessionNotFound
	}
	p.sess.SetManualMode(on)
	if on {
		s.sink.OnStatus(sessionKey, "Manual mode: buffering")
	} else {
		s.sink.OnStatus(sessionKey, "Listening...")
	}
	return nil
}

// TriggerManualAnswer flushes any audio still in the buffer, then answers
// everything accumulated since manual mode was entered. The session drops
// back to automatic mode afterwards.
func (s *Service) TriggerManualAnswer(sessionKey string) error {
	p := s.getPipeline(sessionKey)
	if p == nil {
		return ErrSessionNotFound
	}

	if p.sess.ManualMode() {
		if pcm := p.buf.Take(); len(pcm) > 0 && !s.processUtterance(s.ctx, p, pcm) {
			// transcription slot was busy, keep the audio for the next flush
			p.buf.Ingest(pcm)
		}
	}

	text := p.sess.DrainManual()
	p.sess.SetManualMode(false)
	if text == "" {
		s.sink.OnStatus(sessionKey, "Nothing buffered")
		return nil
	}

	go func() {
		if err := s.orch.Generate(s.ctx, p.sess, text, orchestrator.Options{}); err != nil {
			log.Printf("[Assistant] %s: manual answer: %v", sessionKey, err)
		}
	}()
	return nil
}

// ResetConversation clears the session's history and starts a fresh
// conversation under a new ID. The session stays open and listening.
func (s *Service) ResetConversation(sessionKey string) error {
	p := s.getPipeline(sessionKey)
	if p == nil {
		return ErrSessionNotFound
	}
	p.sess.ResetHistory()
	p.sess.Touch()
	s.sink.OnStatus(sessionKey, "New conversation")
	return nil
}

// CloseSession cancels the session's work and removes it.
func (s *Service) CloseSession(sessionKey string) error {
	s.mu.Lock()
	p, ok := s.pipelines[sessionKey]
	if ok {
		delete(s.pipelines, sessionKey)
	}
	s.mu.Unlock()

	if p != nil {
		p.sess.RequestCancel()
		p.cancel()
		<-p.done
	}
	if s.registry.Remove(sessionKey) == nil && p == nil {
		return ErrSessionNotFound
	}
	pkgobs.SetActiveSessions(s.registry.Len())
	return nil
}

// SweepIdle closes sessions idle past maxIdle and reports how many.
func (s *Service) SweepIdle(maxIdle time.Duration) int {
	removed := s.registry.SweepIdle(maxIdle)
	for _, key := range removed {
		s.mu.Lock()
		p, ok := s.pipelines[key]
		if ok {
			delete(s.pipelines, key)
		}
		s.mu.Unlock()
		if p != nil {
			p.cancel()
			<-p.done
		}
	}
	pkgobs.SetActiveSessions(s.registry.Len())
	return len(removed)
}

// Close shuts down every session concurrently.
func (s *Service) Close() error {
	s.cancel()

	s.mu.Lock()
	keys := make([]string, 0, len(s.pipelines))
	for key := range s.pipelines {
		keys = append(keys, key)
	}
	s.mu.Unlock()

	var g errgroup.Group
	for _, key := range keys {
		g.Go(func() error {
			return s.CloseSession(key)
		})
	}
	return g.Wait()
}

func (s *Service) getPipeline(sessionKey string) *pipeline {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pipelines[sessionKey]
}

// ensurePipeline creates the session's audio pipeline and starts its
// flush loop if it is not running yet.
func (s *Service) ensurePipeline(sess *session.Session) *pipeline {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.pipelines[sess.ID]; ok {
		return p
	}

	ctx, cancel := context.WithCancel(s.ctx)
	p := &pipeline{
		sess:   sess,
		buf:    audio.NewBuffer(s.cfg.AudioParams),
		filter: transcribe.NewFilter(s.cfg.DuplicateWindow, s.cfg.ScreenshotCooldown),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.pipelines[sess.ID] = p

	go s.flushLoop(ctx, p)
	return p
}

// flushLoop polls the buffer and processes completed utterances. The
// flush gate holds audio back while the pipeline is busy so an utterance
// is never lost to an in-flight generation.
func (s *Service) flushLoop(ctx context.Context, p *pipeline) {
	defer close(p.done)

	ticker := time.NewTicker(flushPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !p.sess.Listening() {
				continue
			}
			pcm, ok := p.buf.TryFlush(func() bool { return !p.sess.Busy() })
			if !ok {
				continue
			}
			s.processUtterance(ctx, p, pcm)
		}
	}
}

// processUtterance transcribes one flushed utterance and, when the filter
// accepts it, runs a generation. The return value reports whether the
// audio was consumed; false means the transcription slot was taken and
// the caller still owns pcm. Audio flushed while a cancel is pending is
// discarded.
func (s *Service) processUtterance(ctx context.Context, p *pipeline, pcm []byte) bool {
	if p.sess.CancelRequested() {
		return true
	}
	if !p.sess.BeginTranscribe() {
		return false
	}
	defer p.sess.EndTranscribe()

	s.sink.OnStatus(p.sess.ID, "Transcribing...")
	start := time.Now()
	text, err := s.transcriber.Transcribe(ctx, pcm)
	if err != nil {
		pkgobs.RecordTranscription("error", time.Since(start))
		log.Printf("[Assistant] %s: transcription failed: %v", p.sess.ID, err)
		s.sink.OnStatus(p.sess.ID, "Transcription failed")
		return true
	}
	pkgobs.RecordTranscription("success", time.Since(start))

	// A stop issued while the transcription was in flight discards it.
	if p.sess.CancelRequested() {
		return true
	}

	ok, reason := p.filter.Accept(text)
	if !ok {
		if reason != "empty" {
			log.Printf("[Assistant] %s: filtered transcription (%s): %q", p.sess.ID, reason, text)
		}
		pkgobs.RecordFilterRejection(reason)
		return true
	}

	log.Printf("[Assistant] %s: transcribed: %q", p.sess.ID, text)
	s.sink.OnPartial(p.sess.ID, text)

	if p.sess.ManualMode() {
		p.sess.BufferManual(text)
		s.sink.OnStatus(p.sess.ID, "Buffered (manual mode)")
		return true
	}

	if err := s.orch.Generate(ctx, p.sess, text, orchestrator.Options{}); err != nil {
		log.Printf("[Assistant] %s: generation: %v", p.sess.ID, err)
	}
	return true
}
