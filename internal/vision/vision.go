// Package vision answers questions about screenshots. It tries OCR first
// so most screenshots become cheap text generations; only unreadable
// images reach a vision-capable model.
package vision

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/deskpilot-dev/deskpilot/internal/llm/provider"
	"github.com/deskpilot-dev/deskpilot/internal/observability"
	"github.com/deskpilot-dev/deskpilot/internal/ocr"
	"github.com/deskpilot-dev/deskpilot/internal/orchestrator"
	"github.com/deskpilot-dev/deskpilot/internal/session"
	"github.com/deskpilot-dev/deskpilot/internal/store"
	"github.com/deskpilot-dev/deskpilot/internal/transcribe"
	pkgobs "github.com/deskpilot-dev/deskpilot/pkg/observability"
)

// turnLabel marks screenshot-triggered turns in history.
const turnLabel = "(Screenshot Analyzed)"

// minUsefulOCRText is the shortest extraction worth answering from. OCR
// of a diagram or photo often yields a few stray characters.
const minUsefulOCRText = 20

const maxResumeInjection = 1000

// ErrNoVisionProvider is returned when OCR failed and no vision-capable
// provider is configured.
var ErrNoVisionProvider = errors.New("vision: no vision provider configured")

// Pipeline runs screenshot analyses for all sessions.
type Pipeline struct {
	engine     ocr.Engine
	ocrEnabled bool
	orch       *orchestrator.Orchestrator
	providers  []provider.VisionProvider
	sink       orchestrator.Sink
	store      store.Store
	model      string
	now        func() time.Time
}

// New builds a pipeline. engine may be nil when OCR is disabled;
// providers are tried in order on the vision fallback path.
func New(engine ocr.Engine, ocrEnabled bool, orch *orchestrator.Orchestrator, providers []provider.VisionProvider, sink orchestrator.Sink, st store.Store) *Pipeline {
	return &Pipeline{
		engine:     engine,
		ocrEnabled: ocrEnabled && engine != nil,
		orch:       orch,
		providers:  providers,
		sink:       sink,
		store:      st,
		now:        time.Now,
	}
}

// SetModel overrides the vision model name. Providers fall back to their
// own default when unset.
func (p *Pipeline) SetModel(model string) { p.model = model }

// Analyze answers a screenshot. filter, when non-nil, is told about the
// analysis so the audio path can suppress echo follow-ups. quality is the
// capture quality hint ("low", "medium", "high") and scales the vision
// detail level.
func (p *Pipeline) Analyze(ctx context.Context, sess *session.Session, imageBase64 string, style Style, quality string, filter *transcribe.Filter) error {
	ctx, span := observability.StartSpan(ctx, "vision.analyze",
		attribute.String("style", string(style)),
	)
	defer span.End()

	if imageBase64 == "" {
		return errors.New("vision: empty image")
	}

	p.sink.OnStatus(sess.ID, "Analyzing screenshot...")
	instruction, budget := stylePrompt(style)

	if p.ocrEnabled {
		text, err := p.engine.ExtractText(ctx, imageBase64)
		if err != nil {
			log.Printf("[Vision] %s: OCR failed, falling back to vision model: %v", sess.ID, err)
			observability.RecordError(ctx, err)
		}
		if len(strings.TrimSpace(text)) >= minUsefulOCRText {
			return p.answerFromText(ctx, sess, instruction, text, filter)
		}
		log.Printf("[Vision] %s: OCR text unusable (%d chars), using vision model", sess.ID, len(strings.TrimSpace(text)))
	}

	return p.answerFromImage(ctx, sess, imageBase64, instruction, budget, quality, filter)
}

// answerFromText reroutes extracted screen text through the normal
// generation path as a synthetic utterance.
func (p *Pipeline) answerFromText(ctx context.Context, sess *session.Session, instruction, text string, filter *transcribe.Filter) error {
	synthetic := instruction + "\n\nExtracted screen content:\n-----\n" + text + "\n-----"

	err := p.orch.Generate(ctx, sess, synthetic, orchestrator.Options{
		TurnLabel:    turnLabel,
		ForceComplex: true,
	})
	if err != nil {
		pkgobs.RecordScreenshot("ocr", "error")
		return err
	}
	if filter != nil {
		filter.NoteImageAnalysis()
	}
	pkgobs.RecordScreenshot("ocr", "success")
	return nil
}

// answerFromImage calls vision-capable providers directly with the raw
// image.
func (p *Pipeline) answerFromImage(ctx context.Context, sess *session.Session, imageBase64, instruction string, budget int, quality string, filter *transcribe.Filter) error {
	if len(p.providers) == 0 {
		p.sink.OnStatus(sess.ID, "Screenshot analysis not configured")
		return ErrNoVisionProvider
	}

	if !sess.BeginGenerate() {
		return orchestrator.ErrBusy
	}
	defer sess.EndGenerate()

	detail := "high"
	if quality == "low" {
		detail = "low"
		if budget > 700 {
			budget = 700
		}
	}

	req := provider.VisionRequest{
		Model:       p.model,
		Prompt:      instruction,
		System:      resumeSystem(sess.Params().ResumeSnippet),
		ImageBase64: imageBase64,
		Detail:      detail,
		MaxTokens:   budget,
	}

	var lastErr error
	for _, vp := range p.providers {
		if sess.CancelRequested() {
			p.sink.OnStatus(sess.ID, "Cancelled")
			return orchestrator.ErrCancelled
		}
		resp, err := vp.CreateVision(ctx, req)
		if err != nil {
			lastErr = err
			log.Printf("[Vision] %s: %s failed: %v", sess.ID, vp.Name(), err)
			continue
		}
		if err := p.emit(ctx, sess, resp.Content, filter); err != nil {
			p.sink.OnStatus(sess.ID, "Cancelled")
			return err
		}
		pkgobs.RecordScreenshot("vision", "success")
		return nil
	}

	p.sink.OnStatus(sess.ID, "Screenshot analysis failed")
	pkgobs.RecordScreenshot("vision", "error")
	observability.RecordError(ctx, lastErr)
	return fmt.Errorf("all vision providers failed: %w", lastErr)
}

// emit delivers the analysis and persists the turn. A cancel that arrived
// while the provider call was in flight suppresses both.
func (p *Pipeline) emit(ctx context.Context, sess *session.Session, analysis string, filter *transcribe.Filter) error {
	if sess.CancelRequested() {
		return orchestrator.ErrCancelled
	}

	p.sink.OnFinal(sess.ID, analysis)
	p.sink.OnStatus(sess.ID, "Ready")

	turn := session.Turn{
		Transcription: turnLabel,
		Response:      analysis,
		Timestamp:     p.now(),
	}
	sess.AppendTurn(turn)

	conversationID := sess.ConversationID()
	if p.store != nil {
		if err := p.store.SaveTurn(ctx, sess.ID, conversationID, turn); err != nil {
			log.Printf("[Vision] %s: persist turn: %v", sess.ID, err)
		}
	}
	p.sink.OnTurnSaved(sess.ID, conversationID, turn, sess.History())

	if filter != nil {
		filter.NoteImageAnalysis()
	}
	return nil
}

func resumeSystem(resume string) string {
	resume = strings.TrimSpace(resume)
	if resume == "" {
		return ""
	}
	if len(resume) > maxResumeInjection {
		resume = resume[:maxResumeInjection] + "... [truncated]"
	}
	return "RESUME/USER CONTEXT\n-----\n" + resume + "\n-----"
}
