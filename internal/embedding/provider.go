package embedding

import (
	"context"
	"errors"
)

// ErrNoFace is returned when an image yields no usable face.
var ErrNoFace = errors.New("no face detected")

// Face is one detected face: its embedding vector and a display-only
// bounding box [x1, y1, x2, y2]. The box never participates in matching.
type Face struct {
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"`
	DetScore  float64   `json:"det_score"`
}

// Provider turns image bytes into face embedding vectors. The core treats
// it as a pure function with two outcomes: a vector, or ErrNoFace.
type Provider interface {
	// Extract returns the single best face in the image, or ErrNoFace.
	Extract(ctx context.Context, imageData []byte) (*Face, error)

	// ExtractAll returns every detected face, or ErrNoFace when there are
	// none.
	ExtractAll(ctx context.Context, imageData []byte) ([]Face, error)
}
