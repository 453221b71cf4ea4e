package ocr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const ocrSpaceURL = "https://api.ocr.space/parse/image"

// SpaceEngine calls the OCR.space cloud API. The free tier throttles
// aggressively, so requests go through a client-side rate limiter.
type SpaceEngine struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	timeout time.Duration
}

// NewSpaceEngine builds an OCR.space engine. An empty key falls back to
// the provider's public demo key, which only suits development.
func NewSpaceEngine(apiKey string, timeout time.Duration, httpClient *http.Client) *SpaceEngine {
	if apiKey == "" {
		apiKey = "helloworld"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &SpaceEngine{
		apiKey:  apiKey,
		baseURL: ocrSpaceURL,
		client:  httpClient,
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 3),
		timeout: timeout,
	}
}

func (e *SpaceEngine) Name() string { return "ocr.space" }

type spaceResponse struct {
	IsErroredOnProcessing bool `json:"IsErroredOnProcessing"`
	ErrorMessage          any  `json:"ErrorMessage"`
	ParsedResults         []struct {
		ParsedText string `json:"ParsedText"`
	} `json:"ParsedResults"`
}

// ExtractText uploads the image and returns the parsed text. Engine 2 is
// requested for better digit and symbol accuracy on code screenshots.
func (e *SpaceEngine) ExtractText(ctx context.Context, imageBase64 string) (string, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	form := url.Values{}
	form.Set("base64Image", "data:image/jpeg;base64,"+imageBase64)
	form.Set("language", "eng")
	form.Set("isOverlayRequired", "false")
	form.Set("scale", "true")
	form.Set("OCREngine", "2")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("apikey", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ocr.space request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("ocr.space status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result spaceResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("ocr.space decode: %w", err)
	}
	if result.IsErroredOnProcessing {
		return "", fmt.Errorf("ocr.space processing error: %v", result.ErrorMessage)
	}
	if len(result.ParsedResults) == 0 {
		return "", nil
	}

	text := result.ParsedResults[0].ParsedText
	log.Printf("[OCR] extracted %d chars", len(text))
	return text, nil
}
