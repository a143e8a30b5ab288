// Package ocr recognizes text in scanned answer sheets. Output is
// plain text in reading order, one recognized line per text line.
package ocr

import "context"

// Recognizer converts raw image or PDF bytes into recognized text.
type Recognizer interface {
	Recognize(ctx context.Context, data []byte) (string, error)
}
