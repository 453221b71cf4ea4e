package ocr

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSpaceEngineExtract(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("apikey"); got != "test-key" {
			t.Errorf("apikey header = %q", got)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if !strings.HasPrefix(r.FormValue("base64Image"), "data:image/jpeg;base64,") {
			t.Error("image missing data URI prefix")
		}
		if got := r.FormValue("OCREngine"); got != "2" {
			t.Errorf("OCREngine = %q, want 2", got)
		}
		_, _ = w.Write([]byte(`{"IsErroredOnProcessing": false, "ParsedResults": [{"ParsedText": "def add(a, b):"}]}`))
	}))
	defer server.Close()

	e := NewSpaceEngine("test-key", 5*time.Second, nil)
	e.baseURL = server.URL

	text, err := e.ExtractText(context.Background(), "aW1hZ2U=")
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if text != "def add(a, b):" {
		t.Errorf("text = %q", text)
	}
}

func TestSpaceEngineProcessingError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"IsErroredOnProcessing": true, "ErrorMessage": ["bad image"]}`))
	}))
	defer server.Close()

	e := NewSpaceEngine("k", 5*time.Second, nil)
	e.baseURL = server.URL

	if _, err := e.ExtractText(context.Background(), "x"); err == nil {
		t.Fatal("expected processing error")
	}
}

func TestSpaceEngineNoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"IsErroredOnProcessing": false, "ParsedResults": []}`))
	}))
	defer server.Close()

	e := NewSpaceEngine("k", 5*time.Second, nil)
	e.baseURL = server.URL

	text, err := e.ExtractText(context.Background(), "x")
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if text != "" {
		t.Errorf("text = %q, want empty", text)
	}
}

func TestChainLocalFirst(t *testing.T) {
	var cloudCalled bool

	local := &FuncEngine{EngineName: "local", Fn: func(ctx context.Context, img string) (string, error) {
		return "local text", nil
	}}
	cloud := &FuncEngine{EngineName: "cloud", Fn: func(ctx context.Context, img string) (string, error) {
		cloudCalled = true
		return "cloud text", nil
	}}

	text, err := NewChain(local, cloud).ExtractText(context.Background(), "x")
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if text != "local text" {
		t.Errorf("text = %q", text)
	}
	if cloudCalled {
		t.Error("cloud engine hit despite local success")
	}
}

func TestChainFallsThroughOnErrorAndEmpty(t *testing.T) {
	failing := &FuncEngine{EngineName: "failing", Fn: func(ctx context.Context, img string) (string, error) {
		return "", errors.New("down")
	}}
	empty := &FuncEngine{EngineName: "empty", Fn: func(ctx context.Context, img string) (string, error) {
		return "   ", nil
	}}
	good := &FuncEngine{EngineName: "good", Fn: func(ctx context.Context, img string) (string, error) {
		return "finally", nil
	}}

	text, err := NewChain(failing, empty, good).ExtractText(context.Background(), "x")
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if text != "finally" {
		t.Errorf("text = %q", text)
	}
}

func TestChainAllEmpty(t *testing.T) {
	empty := &FuncEngine{EngineName: "empty", Fn: func(ctx context.Context, img string) (string, error) {
		return "", nil
	}}

	text, err := NewChain(empty, nil).ExtractText(context.Background(), "x")
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if text != "" {
		t.Errorf("text = %q, want empty", text)
	}
}
