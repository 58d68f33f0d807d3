package ocr

import (
	"context"
	"fmt"
	"strings"

	vision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
)

type annotateFunc func(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error)

// VisionEngine uses Google Cloud Vision document text detection.
type VisionEngine struct {
	annotate annotateFunc
	close    func() error
}

// NewVisionEngine creates a Vision client. An empty credentialsFile uses
// application default credentials.
func NewVisionEngine(ctx context.Context, credentialsFile string) (*VisionEngine, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	return &VisionEngine{
		annotate: func(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error) {
			return client.BatchAnnotateImages(ctx, req)
		},
		close: client.Close,
	}, nil
}

func (e *VisionEngine) Name() string { return "google-vision" }

func (e *VisionEngine) Close() error {
	if e == nil || e.close == nil {
		return nil
	}
	return e.close()
}

func (e *VisionEngine) Recognize(ctx context.Context, image []byte) (Result, error) {
	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:    &visionpb.Image{Content: image},
			Features: []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}},
		}},
	}
	resp, err := e.annotate(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("vision annotate: %w", err)
	}
	if resp == nil || len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return Result{}, nil
	}

	r0 := resp.Responses[0]
	if r0.Error != nil && r0.Error.Message != "" {
		return Result{}, fmt.Errorf("vision annotate: %s", r0.Error.Message)
	}
	fta := r0.FullTextAnnotation
	if fta == nil || strings.TrimSpace(fta.Text) == "" {
		return Result{}, nil
	}
	return Result{Text: fta.Text, Confidence: pageConfidence(fta.Pages)}, nil
}

// pageConfidence averages page confidences, falling back to block
// confidences when pages report zero.
func pageConfidence(pages []*visionpb.Page) float64 {
	var sum float64
	var n int
	for _, p := range pages {
		if p == nil {
			continue
		}
		c := float64(p.Confidence)
		if c == 0 {
			c = blockConfidence(p.Blocks)
		}
		sum += c
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func blockConfidence(blocks []*visionpb.Block) float64 {
	var sum float64
	var n int
	for _, b := range blocks {
		if b == nil {
			continue
		}
		sum += float64(b.Confidence)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
