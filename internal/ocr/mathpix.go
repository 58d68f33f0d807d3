package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DefaultMathpixURL = "https://api.mathpix.com"

// MathpixConfig configures the Mathpix text endpoint.
type MathpixConfig struct {
	AppID   string
	AppKey  string
	BaseURL string
	Timeout time.Duration
}

// MathpixEngine sends images to Mathpix /v3/text and returns text plus
// styled LaTeX.
type MathpixEngine struct {
	cfg    MathpixConfig
	client *http.Client
}

func NewMathpixEngine(cfg MathpixConfig) (*MathpixEngine, error) {
	if cfg.AppID == "" || cfg.AppKey == "" {
		return nil, errors.New("mathpix: app id and app key are required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultMathpixURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &MathpixEngine{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}, nil
}

func (e *MathpixEngine) Name() string { return "mathpix" }

type mathpixRequest struct {
	Src                 string   `json:"src"`
	Formats             []string `json:"formats"`
	RmSpaces            bool     `json:"rm_spaces"`
	IncludeLineData     bool     `json:"include_line_data"`
	ConfidenceThreshold float64  `json:"confidence_threshold,omitempty"`
}

type mathpixResponse struct {
	Text        string  `json:"text"`
	LaTeXStyled string  `json:"latex_styled"`
	Confidence  float64 `json:"confidence"`
	Error       string  `json:"error"`
	LineData    []struct {
		Text     string `json:"text"`
		Included bool   `json:"included"`
	} `json:"line_data"`
}

func (e *MathpixEngine) Recognize(ctx context.Context, image []byte) (Result, error) {
	body, err := json.Marshal(mathpixRequest{
		Src:             dataURL(image),
		Formats:         []string{"text", "latex_styled"},
		RmSpaces:        true,
		IncludeLineData: true,
	})
	if err != nil {
		return Result{}, fmt.Errorf("mathpix: marshal request: %w", err)
	}

	url := strings.TrimRight(e.cfg.BaseURL, "/") + "/v3/text"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("mathpix: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("app_id", e.cfg.AppID)
	req.Header.Set("app_key", e.cfg.AppKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("mathpix: request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return Result{}, fmt.Errorf("mathpix: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("mathpix: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out mathpixResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return Result{}, fmt.Errorf("mathpix: decode: %w", err)
	}
	if out.Error != "" {
		return Result{}, fmt.Errorf("mathpix: %s", out.Error)
	}

	var steps []string
	for _, l := range out.LineData {
		if t := strings.TrimSpace(l.Text); l.Included && t != "" {
			steps = append(steps, t)
		}
	}
	return Result{
		Text:            out.Text,
		LaTeX:           out.LaTeXStyled,
		Confidence:      out.Confidence,
		StructuredSteps: steps,
	}, nil
}

func dataURL(image []byte) string {
	return "data:" + http.DetectContentType(image) + ";base64," + base64.StdEncoding.EncodeToString(image)
}
