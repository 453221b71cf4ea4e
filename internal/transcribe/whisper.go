// Package transcribe turns buffered PCM into text via OpenAI-compatible
// speech endpoints, with ordered fallback across providers and a noise
// filter that keeps transcription artifacts out of the pipeline.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/deskpilot-dev/deskpilot/internal/audio"
)

// promptHintBase primes the speech model toward technical vocabulary.
const promptHintBase = "Programming interview: Java, Python, JavaScript, React, database, SQL, API, algorithm, data structure, object-oriented, frontend, backend, microservices, Docker, Kubernetes"

const maxHintLen = 600

// Client uploads WAV audio to one OpenAI-compatible transcription endpoint.
type Client struct {
	name    string
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewGroqWhisper talks to Groq's hosted whisper-large-v3.
func NewGroqWhisper(apiKey string, httpClient *http.Client) *Client {
	return newClient("groq-whisper", apiKey, "https://api.groq.com/openai/v1", "whisper-large-v3", httpClient)
}

// NewOpenAIWhisper talks to OpenAI's whisper-1.
func NewOpenAIWhisper(apiKey string, httpClient *http.Client) *Client {
	return newClient("openai-whisper", apiKey, "https://api.openai.com/v1", "whisper-1", httpClient)
}

// NewClient targets any OpenAI-compatible transcription endpoint, such as
// a local whisper server.
func NewClient(name, apiKey, baseURL, model string, httpClient *http.Client) *Client {
	return newClient(name, apiKey, baseURL, model, httpClient)
}

func newClient(name, apiKey, baseURL, model string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{name: name, apiKey: apiKey, baseURL: baseURL, model: model, client: httpClient}
}

// Name identifies the endpoint in logs.
func (c *Client) Name() string { return c.name }

// Result is one endpoint's transcription output. Language is whatever the
// endpoint reported and may be empty; it is observable only and never
// gates acceptance.
type Result struct {
	Text     string
	Language string
}

// Transcribe uploads wav and returns the recognized text.
func (c *Client) Transcribe(ctx context.Context, wav []byte, hint string) (Result, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return Result{}, err
	}
	if _, err := part.Write(wav); err != nil {
		return Result{}, err
	}
	_ = writer.WriteField("model", c.model)
	_ = writer.WriteField("language", "en")
	_ = writer.WriteField("response_format", "json")
	if hint != "" {
		_ = writer.WriteField("prompt", hint)
	}
	if err := writer.Close(); err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", c.name, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Result{}, fmt.Errorf("%s: status %d: %s", c.name, resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var result struct {
		Text     string `json:"text"`
		Language string `json:"language"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Result{}, fmt.Errorf("%s: decode response: %w", c.name, err)
	}
	return Result{Text: result.Text, Language: result.Language}, nil
}

// Service runs PCM through its clients in order until one succeeds.
type Service struct {
	clients    []*Client
	sampleRate int
	channels   int
	timeout    time.Duration
	hint       string
}

// NewService builds a transcription service. Clients are tried front to
// back; resumeSnippet, when present, extends the vocabulary hint.
func NewService(clients []*Client, sampleRate, channels int, timeout time.Duration, resumeSnippet string) *Service {
	return &Service{
		clients:    clients,
		sampleRate: sampleRate,
		channels:   channels,
		timeout:    timeout,
		hint:       buildHint(resumeSnippet),
	}
}

func buildHint(resumeSnippet string) string {
	hint := promptHintBase
	if snippet := strings.TrimSpace(resumeSnippet); snippet != "" {
		hint = hint + ". Context: " + snippet
	}
	if len(hint) > maxHintLen {
		hint = hint[:maxHintLen]
	}
	return hint
}

// Ready reports whether at least one transcription backend is configured.
func (s *Service) Ready() error {
	if len(s.clients) == 0 {
		return errors.New("no transcription clients configured")
	}
	return nil
}

// Transcribe encodes pcm as WAV and returns the recognized text, trimmed.
// Stereo input is downmixed; the speech endpoints take mono.
func (s *Service) Transcribe(ctx context.Context, pcm []byte) (string, error) {
	if err := s.Ready(); err != nil {
		return "", err
	}

	channels := s.channels
	if channels == 2 {
		pcm = audio.StereoToMono(pcm)
		channels = 1
	}
	wav := EncodeWAV(pcm, s.sampleRate, channels)

	var lastErr error
	for _, c := range s.clients {
		attemptCtx := ctx
		var cancel context.CancelFunc
		if s.timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, s.timeout)
		}
		res, err := c.Transcribe(attemptCtx, wav, s.hint)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			if res.Language != "" {
				log.Printf("[Transcribe] %s detected language %q", c.Name(), res.Language)
			}
			return strings.TrimSpace(res.Text), nil
		}
		lastErr = err
		log.Printf("[Transcribe] %s failed: %v", c.Name(), err)
		if ctx.Err() != nil {
			break
		}
	}
	return "", fmt.Errorf("all transcription endpoints failed: %w", lastErr)
}
