package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/Brownie44l1/tomato-leaf-api/internal/preprocess"
)

// Metadata describes the tensors and class list of the exported classifier.
type Metadata struct {
	InputName   string   `json:"input_name"`
	OutputName  string   `json:"output_name"`
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	Classes     []string `json:"classes"`
	ImageSize   int      `json:"image_size"`
	Layout      string   `json:"layout"`
	Scale       float32  `json:"scale"`
	Softmax     bool     `json:"softmax"`
}

// Prediction is the outcome of one forward pass.
type Prediction struct {
	Index      int                `json:"index"`
	Class      string             `json:"class"`
	Confidence float32            `json:"confidence"`
	Scores     map[string]float32 `json:"scores,omitempty"`
}

const defaultImageSize = 128

// DefaultMetadata matches the Keras export: a 128x128 RGB NHWC input of raw
// 0-255 pixel values and a softmax over the tomato labels.
func DefaultMetadata() Metadata {
	return Metadata{
		InputName:   "input",
		OutputName:  "output",
		InputShape:  []int64{1, defaultImageSize, defaultImageSize, 3},
		OutputShape: []int64{1, int64(len(TomatoClasses))},
		Classes:     append([]string(nil), TomatoClasses...),
		ImageSize:   defaultImageSize,
		Layout:      string(preprocess.NHWC),
		Scale:       1,
	}
}

// LoadMetadata reads the JSON sidecar at path. Fields left out of the file
// keep their defaults, and a missing file yields DefaultMetadata.
func LoadMetadata(path string) (Metadata, error) {
	meta := DefaultMetadata()
	if path == "" {
		return meta, nil
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return meta, nil
	}
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to read metadata: %w", err)
	}

	if err := json.Unmarshal(raw, &meta); err != nil {
		return Metadata{}, fmt.Errorf("failed to parse metadata: %w", err)
	}
	if err := meta.Validate(); err != nil {
		return Metadata{}, err
	}
	return meta, nil
}

// Validate checks that the input shape agrees with the image size and layout.
func (m Metadata) Validate() error {
	if m.ImageSize <= 0 {
		return fmt.Errorf("invalid metadata: image_size must be positive, got %d", m.ImageSize)
	}
	if len(m.Classes) == 0 {
		return errors.New("invalid metadata: classes must not be empty")
	}
	if _, err := preprocess.ParseLayout(m.Layout); err != nil {
		return fmt.Errorf("invalid metadata: %w", err)
	}
	if m.Scale <= 0 {
		return fmt.Errorf("invalid metadata: scale must be positive, got %v", m.Scale)
	}
	if m.InputName == "" || m.OutputName == "" {
		return errors.New("invalid metadata: input_name and output_name are required")
	}

	want := int64(m.ImageSize * m.ImageSize * 3)
	if got := elements(m.InputShape); got != want {
		return fmt.Errorf("invalid metadata: input shape %v holds %d values, expected %d", m.InputShape, got, want)
	}
	if elements(m.OutputShape) <= 0 {
		return fmt.Errorf("invalid metadata: output shape %v is empty", m.OutputShape)
	}
	return nil
}

// Options returns the preprocessing parameters that produce this model's input.
func (m Metadata) Options() preprocess.Options {
	layout, _ := preprocess.ParseLayout(m.Layout)
	return preprocess.Options{Size: m.ImageSize, Layout: layout, Scale: m.Scale}
}

func elements(shape []int64) int64 {
	if len(shape) == 0 {
		return 0
	}
	n := int64(1)
	for _, dim := range shape {
		n *= dim
	}
	return n
}
