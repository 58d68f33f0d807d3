// Package ocr reads handwritten or printed maths from images.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/denimozh/mathstutor-sub000/internal/logger"
)

// VerifyThreshold is the confidence below which the user is asked to check
// the recognised text.
const VerifyThreshold = 0.7

// MaxImageBytes bounds uploads accepted by Recognize.
const MaxImageBytes = 10 << 20

// Result is recognised text from one image.
type Result struct {
	Text            string   `json:"text"`
	LaTeX           string   `json:"latex,omitempty"`
	Confidence      float64  `json:"confidence"`
	StructuredSteps []string `json:"structured_steps,omitempty"`
	Provider        string   `json:"provider"`

	// NeedsVerification asks the user to confirm the text by hand.
	NeedsVerification bool   `json:"needs_verification"`
	Error             string `json:"error,omitempty"`
}

// Engine recognises text in an image. Implementations return an error on
// failure; Reader turns failures into low-confidence results.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, image []byte) (Result, error)
}

var ErrEmptyImage = errors.New("image is empty")

// Reader wraps an Engine so OCR never fails the caller: an engine error
// yields an empty, zero-confidence result flagged for verification.
type Reader struct {
	engine Engine
	log    *logger.Logger
}

func NewReader(engine Engine, log *logger.Logger) *Reader {
	return &Reader{engine: engine, log: logger.OrNop(log)}
}

// Read runs OCR on image.
func (r *Reader) Read(ctx context.Context, image []byte) Result {
	name := "none"
	if r.engine != nil {
		name = r.engine.Name()
	}

	err := validateImage(image)
	if err == nil && r.engine == nil {
		err = errors.New("no OCR engine configured")
	}
	if err != nil {
		return failed(name, err)
	}

	res, err := r.engine.Recognize(ctx, image)
	if err != nil {
		r.log.Warn("ocr failed", "provider", name, "bytes", len(image), "error", err)
		return failed(name, err)
	}

	res.Provider = name
	res.Text = strings.TrimSpace(res.Text)
	if len(res.StructuredSteps) == 0 {
		res.StructuredSteps = SplitSteps(res.Text)
	}
	res.NeedsVerification = res.Text == "" || res.Confidence < VerifyThreshold
	return res
}

func failed(provider string, err error) Result {
	return Result{Provider: provider, NeedsVerification: true, Error: err.Error()}
}

func validateImage(image []byte) error {
	if len(image) == 0 {
		return ErrEmptyImage
	}
	if len(image) > MaxImageBytes {
		return fmt.Errorf("image is %d bytes, limit is %d", len(image), MaxImageBytes)
	}
	if mime := http.DetectContentType(image); !strings.HasPrefix(mime, "image/") {
		return fmt.Errorf("unsupported content type %s", mime)
	}
	return nil
}

// SplitSteps splits recognised working into one step per non-blank line.
func SplitSteps(text string) []string {
	var steps []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			steps = append(steps, line)
		}
	}
	return steps
}
