package model

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/Brownie44l1/tomato-leaf-api/internal/preprocess"
)

// Inferencer runs one forward pass. *Server implements it.
type Inferencer interface {
	Run(input []float32) ([]float32, error)
}

var _ Inferencer = (*Server)(nil)

// Classifier turns uploaded image bytes into a Prediction.
type Classifier struct {
	runner    Inferencer
	metadata  Metadata
	maxPixels int
}

// NewClassifier builds a classifier over runner using the given metadata.
func NewClassifier(runner Inferencer, metadata Metadata) *Classifier {
	return &Classifier{runner: runner, metadata: metadata}
}

// WithMaxPixels sets the largest upload, in pixels, the classifier will
// decode. Zero keeps preprocess.DefaultMaxPixels.
func (c *Classifier) WithMaxPixels(n int) *Classifier {
	c.maxPixels = n
	return c
}

// Classes returns the label enumeration used to name output indices.
func (c *Classifier) Classes() []string {
	return c.metadata.Classes
}

// Predict decodes, resizes and classifies imageBytes. A result whose index
// falls outside the class list is reported as ErrInvalidPrediction.
func (c *Classifier) Predict(ctx context.Context, imageBytes []byte) (*Prediction, error) {
	img, _, err := preprocess.Decode(imageBytes, c.maxPixels)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	input := preprocess.Tensor(img, c.metadata.Options())

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	output, err := c.runner.Run(input)
	if err != nil {
		if errors.Is(err, ErrModelUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInference, err)
	}

	if c.metadata.Softmax {
		output = softmax(output)
	}

	idx, maxVal := argmax(output)
	label, ok := Label(c.metadata.Classes, idx)
	if !ok {
		return nil, fmt.Errorf("%w: class index %d outside %d known classes", ErrInvalidPrediction, idx, len(c.metadata.Classes))
	}

	scores := make(map[string]float32, len(c.metadata.Classes))
	for i, val := range output {
		if i < len(c.metadata.Classes) {
			scores[c.metadata.Classes[i]] = val
		}
	}

	return &Prediction{
		Index:      idx,
		Class:      label,
		Confidence: percent(maxVal),
		Scores:     scores,
	}, nil
}

// argmax skips NaN entries and returns -1 when nothing is comparable.
func argmax(values []float32) (int, float32) {
	idx := -1
	var best float32
	for i, v := range values {
		if math.IsNaN(float64(v)) {
			continue
		}
		if idx == -1 || v > best {
			idx, best = i, v
		}
	}
	return idx, best
}

func softmax(logits []float32) []float32 {
	out := make([]float32, len(logits))
	if len(logits) == 0 {
		return out
	}
	_, maxVal := argmax(logits)
	var sum float64
	for i, v := range logits {
		e := math.Exp(float64(v - maxVal))
		out[i] = float32(e)
		sum += e
	}
	if sum == 0 {
		return out
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
	return out
}

func percent(p float32) float32 {
	v := p * 100
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}
