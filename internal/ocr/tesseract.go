package ocr

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"time"
)

// Tesseract recognizes text with a locally installed tesseract binary.
// It is the offline alternative to the remote Read API.
type Tesseract struct {
	Lang    string
	Timeout time.Duration
}

// NewTesseract creates a tesseract recognizer with English defaults.
func NewTesseract() *Tesseract {
	return &Tesseract{Lang: "eng", Timeout: 20 * time.Second}
}

// Recognize writes the sheet bytes to a temp file and runs tesseract
// over it.
func (t *Tesseract) Recognize(ctx context.Context, data []byte) (string, error) {
	if _, err := exec.LookPath("tesseract"); err != nil {
		return "", errors.New("tesseract not found in PATH")
	}

	f, err := os.CreateTemp("", "sheet-*.img")
	if err != nil {
		return "", err
	}
	defer func() { f.Close(); os.Remove(f.Name()) }()
	if _, err := f.Write(data); err != nil {
		return "", err
	}

	args := []string{f.Name(), "stdout"}
	if t.Lang != "" {
		args = append(args, "-l", t.Lang)
	}
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "tesseract", args...)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", errors.New(stderr.String())
	}
	return out.String(), nil
}
