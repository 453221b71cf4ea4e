// Package ocr extracts text from screenshots. Engines return empty text
// with a nil error when the image simply has nothing readable; errors are
// reserved for transport and provider failures.
package ocr

import "context"

// Engine turns a base64-encoded JPEG into text.
type Engine interface {
	// ExtractText returns the recognized text, which may be empty.
	ExtractText(ctx context.Context, imageBase64 string) (string, error)
	Name() string
}
