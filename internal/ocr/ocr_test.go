package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
)

// pngHeader is enough for content sniffing to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type stubEngine struct {
	res Result
	err error
}

func (s stubEngine) Name() string { return "stub" }

func (s stubEngine) Recognize(context.Context, []byte) (Result, error) { return s.res, s.err }

func TestReader_SplitsStepsAndFlagsLowConfidence(t *testing.T) {
	r := NewReader(stubEngine{res: Result{Text: "  y = x^2\n\ndy/dx = 2x\n", Confidence: 0.65}}, nil)

	got := r.Read(context.Background(), pngHeader)
	if got.Provider != "stub" || got.Text != "y = x^2\n\ndy/dx = 2x" {
		t.Fatalf("unexpected result: %+v", got)
	}
	if len(got.StructuredSteps) != 2 || got.StructuredSteps[1] != "dy/dx = 2x" {
		t.Fatalf("steps = %q", got.StructuredSteps)
	}
	if !got.NeedsVerification {
		t.Fatal("confidence below threshold should need verification")
	}
}

func TestReader_HighConfidence(t *testing.T) {
	r := NewReader(stubEngine{res: Result{Text: "x = 3", Confidence: 0.95}}, nil)
	if got := r.Read(context.Background(), pngHeader); got.NeedsVerification || got.Error != "" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestReader_FailuresNeverError(t *testing.T) {
	tests := []struct {
		name   string
		engine Engine
		image  []byte
	}{
		{"engine error", stubEngine{err: errors.New("quota exceeded")}, pngHeader},
		{"empty image", stubEngine{}, nil},
		{"not an image", stubEngine{}, []byte("%PDF-1.7 hello")},
		{"no engine", nil, pngHeader},
		{"empty text", stubEngine{res: Result{Confidence: 0.99}}, pngHeader},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewReader(tt.engine, nil).Read(context.Background(), tt.image)
			if !got.NeedsVerification || got.Text != "" {
				t.Fatalf("unexpected result: %+v", got)
			}
		})
	}
}

func TestVisionEngine_Recognize(t *testing.T) {
	var seen *visionpb.BatchAnnotateImagesRequest
	e := &VisionEngine{annotate: func(_ context.Context, req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error) {
		seen = req
		return &visionpb.BatchAnnotateImagesResponse{Responses: []*visionpb.AnnotateImageResponse{{
			FullTextAnnotation: &visionpb.TextAnnotation{
				Text: "2x + 3 = 7\nx = 2",
				Pages: []*visionpb.Page{
					{Confidence: 0.9},
					{Blocks: []*visionpb.Block{{Confidence: 0.6}, {Confidence: 0.8}}},
				},
			},
		}}}, nil
	}}

	got, err := e.Recognize(context.Background(), pngHeader)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Text != "2x + 3 = 7\nx = 2" {
		t.Fatalf("text = %q", got.Text)
	}
	if got.Confidence < 0.799 || got.Confidence > 0.801 {
		t.Fatalf("confidence = %v, want 0.8", got.Confidence)
	}
	if seen.Requests[0].Features[0].Type != visionpb.Feature_DOCUMENT_TEXT_DETECTION {
		t.Fatal("expected document text detection")
	}
}

func TestVisionEngine_ErrorsAndEmpty(t *testing.T) {
	failing := &VisionEngine{annotate: func(context.Context, *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error) {
		return nil, errors.New("permission denied")
	}}
	if _, err := failing.Recognize(context.Background(), pngHeader); err == nil {
		t.Fatal("expected error")
	}

	empty := &VisionEngine{annotate: func(context.Context, *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error) {
		return &visionpb.BatchAnnotateImagesResponse{}, nil
	}}
	got, err := empty.Recognize(context.Background(), pngHeader)
	if err != nil || got.Text != "" {
		t.Fatalf("expected empty result, got %+v %v", got, err)
	}
}

func TestMathpixEngine_Recognize(t *testing.T) {
	var body mathpixRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/text" || r.Header.Get("app_id") != "id" || r.Header.Get("app_key") != "key" {
			http.Error(w, "bad request", http.StatusUnauthorized)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(map[string]any{
			"text":         "\\( x^2 = 4 \\)\n\\( x = \\pm 2 \\)",
			"latex_styled": "x^2 = 4",
			"confidence":   0.92,
			"line_data": []map[string]any{
				{"text": "x^2 = 4", "included": true},
				{"text": "scribble", "included": false},
				{"text": "x = \\pm 2", "included": true},
			},
		})
	}))
	defer srv.Close()

	e, err := NewMathpixEngine(MathpixConfig{AppID: "id", AppKey: "key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	got := NewReader(e, nil).Read(context.Background(), pngHeader)
	if got.Error != "" || got.Provider != "mathpix" || got.LaTeX != "x^2 = 4" {
		t.Fatalf("unexpected result: %+v", got)
	}
	if len(got.StructuredSteps) != 2 || got.NeedsVerification {
		t.Fatalf("unexpected steps or flag: %+v", got)
	}
	if !strings.HasPrefix(body.Src, "data:image/png;base64,") {
		t.Fatalf("src = %.40s", body.Src)
	}
}

func TestMathpixEngine_Errors(t *testing.T) {
	if _, err := NewMathpixEngine(MathpixConfig{}); err == nil {
		t.Fatal("expected error without credentials")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid credentials"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	e, _ := NewMathpixEngine(MathpixConfig{AppID: "id", AppKey: "key", BaseURL: srv.URL})
	if _, err := e.Recognize(context.Background(), pngHeader); err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("expected status error, got %v", err)
	}
}
