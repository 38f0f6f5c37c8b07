package detection

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/menta2k/image-cropper/pkg/client"
	"github.com/menta2k/image-cropper/pkg/focus"
	"github.com/menta2k/image-cropper/pkg/types"
)

// DefaultPrompt is the default prompt for subject detection
const DefaultPrompt = `You are an image subject locator for a square crop tool.

Return JSON only:
{
  "primary": {
    "label": "string",
    "confidence": 0.0,
    "box": {"x": 0.0, "y": 0.0, "w": 0.0, "h": 0.0},
    "cx": 0.0,
    "cy": 0.0
  },
  "description": "short neutral sentence (≤ 20 words)",
  "tags": ["tag1", "tag2", "tag3", "tag4", "tag5"]
}

HARD RULES
- All coordinates are normalized to [0,1] (NOT pixels), origin top-left.
- cx, cy is the point the crop should be centred on: the middle of a face for people and animals, else the middle of the box.
- The box should tightly include the visually dominant subject (prefer people/vehicles/animals; else the most salient object).
- Description must be brief and factual. Do not guess real identities.
- Tags: lowercase, concise, no punctuation or duplicates.
- If no subject is found, return:
  {
    "primary":{"label":"none","confidence":0.0,"box":{"x":0.25,"y":0.25,"w":0.50,"h":0.50},"cx":0.5,"cy":0.5},
    "description":"centered generic scene",
    "tags":["generic","center","subject","photo","scene"]
  }
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// DefaultMaxDimension bounds the long side of the image sent to the model
const DefaultMaxDimension = 1024

// DefaultMinConfidence is the confidence below which a subject is ignored
const DefaultMinConfidence = 0.3

// Encoder turns an image into the base64 payload a vision model receives
type Encoder interface {
	EncodeBase64(img image.Image, opts types.OutputOptions, maxDim int) (string, error)
}

// Detector handles image subject detection using vision models
type Detector struct {
	client client.VisionClient
	prompt string
}

// NewDetector creates a new detector with a vision client
func NewDetector(client client.VisionClient) *Detector {
	return &Detector{client: client, prompt: DefaultPrompt}
}

// DetectSubject analyzes an image and detects the primary subject
func (d *Detector) DetectSubject(ctx context.Context, model, imageB64 string) (*types.AnalysisResult, error) {
	result, err := d.client.AnalyzeImage(ctx, model, d.prompt, imageB64)
	if err != nil {
		return nil, err
	}

	result = validateResult(result)
	result.Primary.Box = normalizeBox(result.Primary.Box)
	result.Tags = normalizeTags(result.Tags)
	return result, nil
}

// validateResult marks replies the client could not read as "none" so
// callers centre instead. The model's own wording is never inspected.
func validateResult(result *types.AnalysisResult) *types.AnalysisResult {
	if client.IsFallback(result) {
		result.Primary.Label = "none"
		result.Primary.Confidence = 0.0
	}
	return result
}

// SubjectFocuser is a focus.Focuser backed by a vision model
type SubjectFocuser struct {
	detector      *Detector
	encoder       Encoder
	model         string
	maxDim        int
	minConfidence float64
}

// NewSubjectFocuser creates a focuser that asks model through c
func NewSubjectFocuser(c client.VisionClient, enc Encoder, model string) *SubjectFocuser {
	return &SubjectFocuser{
		detector:      NewDetector(c),
		encoder:       enc,
		model:         model,
		maxDim:        DefaultMaxDimension,
		minConfidence: DefaultMinConfidence,
	}
}

// WithMinConfidence sets the confidence below which the centre is used
func (s *SubjectFocuser) WithMinConfidence(v float64) *SubjectFocuser {
	s.minConfidence = v
	return s
}

// Focus implements focus.Focuser. Low-confidence or missing subjects focus
// on the image centre.
func (s *SubjectFocuser) Focus(ctx context.Context, img image.Image) (types.Coordinate, error) {
	b64, err := s.encoder.EncodeBase64(img, types.OutputOptions{Format: "jpg", Quality: 85}, s.maxDim)
	if err != nil {
		return types.Coordinate{}, fmt.Errorf("failed to encode image for %s: %w", s.model, err)
	}

	result, err := s.detector.DetectSubject(ctx, s.model, b64)
	if err != nil {
		return types.Coordinate{}, fmt.Errorf("subject detection failed: %w", err)
	}

	if strings.EqualFold(result.Primary.Label, "none") || result.Primary.Confidence < s.minConfidence {
		return focus.CenterPoint, nil
	}
	return subjectPoint(result.Primary), nil
}

// subjectPoint prefers the reported centre and falls back to the box centre
func subjectPoint(p types.Primary) types.Coordinate {
	if inUnit(p.Cx) && inUnit(p.Cy) && (p.Cx != 0 || p.Cy != 0) {
		return types.Coordinate{X: p.Cx, Y: p.Cy}
	}
	if p.Box.W > 0 && p.Box.H > 0 {
		c := p.Box.Center()
		return types.Coordinate{X: clamp(c.X, 0, 1), Y: clamp(c.Y, 0, 1)}
	}
	return focus.CenterPoint
}

func inUnit(v float64) bool {
	return v >= 0 && v <= 1
}

// clamp ensures a value is within the given bounds
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// normalizeBox keeps the box inside the unit square
func normalizeBox(b types.Box) types.Box {
	x := clamp(b.X, 0, 1)
	y := clamp(b.Y, 0, 1)
	return types.Box{
		X: x,
		Y: y,
		W: clamp(b.W, 0, 1-x),
		H: clamp(b.H, 0, 1-y),
	}
}

// normalizeTags ensures tags are cleaned and limited to 5 entries
func normalizeTags(tags []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, 5)
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
		if len(out) == 5 {
			break
		}
	}
	return out
}
