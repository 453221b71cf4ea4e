package ocr

import (
	"context"
	"log"
	"strings"
)

// FuncEngine adapts a plain function, typically a locally-installed OCR
// binding supplied by the host, into an Engine.
type FuncEngine struct {
	EngineName string
	Fn         func(ctx context.Context, imageBase64 string) (string, error)
}

func (f *FuncEngine) Name() string { return f.EngineName }

func (f *FuncEngine) ExtractText(ctx context.Context, imageBase64 string) (string, error) {
	return f.Fn(ctx, imageBase64)
}

// Chain tries engines in order and returns the first usable text. A local
// engine should come first so the cloud API is only hit when needed.
type Chain struct {
	engines []Engine
}

// NewChain builds a chain. Nil engines are skipped.
func NewChain(engines ...Engine) *Chain {
	var kept []Engine
	for _, e := range engines {
		if e != nil {
			kept = append(kept, e)
		}
	}
	return &Chain{engines: kept}
}

func (c *Chain) Name() string { return "chain" }

// ExtractText returns the first non-empty result. Engines that error or
// come back empty are logged and skipped; an empty result with nil error
// means no engine could read the image.
func (c *Chain) ExtractText(ctx context.Context, imageBase64 string) (string, error) {
	for _, e := range c.engines {
		text, err := e.ExtractText(ctx, imageBase64)
		if err != nil {
			log.Printf("[OCR] %s failed: %v", e.Name(), err)
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			continue
		}
		if strings.TrimSpace(text) != "" {
			return text, nil
		}
	}
	return "", nil
}
