package model

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"math"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	out   []float32
	err   error
	calls int
	input []float32
}

func (s *stubRunner) Run(input []float32) ([]float32, error) {
	s.calls++
	s.input = input
	if s.err != nil {
		return nil, s.err
	}
	return s.out, nil
}

func leafPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := imaging.New(64, 48, color.NRGBA{R: 40, G: 140, B: 50, A: 255})
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

func onehot(n, idx int, val float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = (1 - val) / float32(n-1)
	}
	out[idx] = val
	return out
}

func TestClassifier_Predict(t *testing.T) {
	runner := &stubRunner{out: onehot(len(TomatoClasses), 3, 0.9)}
	c := NewClassifier(runner, DefaultMetadata())

	pred, err := c.Predict(context.Background(), leafPNG(t))

	require.NoError(t, err)
	assert.Equal(t, 3, pred.Index)
	assert.Equal(t, "Tomato Late Blight", pred.Class)
	assert.InDelta(t, 90, pred.Confidence, 0.001)
	assert.Len(t, pred.Scores, len(TomatoClasses))
	assert.Equal(t, 1, runner.calls)
	assert.Len(t, runner.input, 128*128*3)
}

func TestClassifier_PredictSplitLabels(t *testing.T) {
	for idx, want := range map[int]string{8: "Tomato Mosaic Virus", 9: "Tomato_Yellow_Leaf_Curl_Virus", 10: "Tomato___healthy"} {
		runner := &stubRunner{out: onehot(len(TomatoClasses), idx, 0.7)}
		pred, err := NewClassifier(runner, DefaultMetadata()).Predict(context.Background(), leafPNG(t))
		require.NoError(t, err)
		assert.Equal(t, want, pred.Class)
	}
}

func TestClassifier_PredictErrors(t *testing.T) {
	nan := float32(math.NaN())

	tests := []struct {
		name      string
		image     []byte
		runner    *stubRunner
		wantErr   error
		notErr    error
		wantCalls int
	}{
		{
			name:    "undecodable upload",
			image:   []byte("not an image"),
			runner:  &stubRunner{out: onehot(11, 0, 0.9)},
			wantErr: ErrInvalidImage,
		},
		{
			name:      "model unavailable passes through",
			runner:    &stubRunner{err: ErrModelUnavailable},
			wantErr:   ErrModelUnavailable,
			notErr:    ErrInference,
			wantCalls: 1,
		},
		{
			name:      "session failure",
			runner:    &stubRunner{err: errors.New("onnx: run failed")},
			wantErr:   ErrInference,
			wantCalls: 1,
		},
		{
			name:      "empty output",
			runner:    &stubRunner{out: []float32{}},
			wantErr:   ErrInvalidPrediction,
			wantCalls: 1,
		},
		{
			name:      "all NaN",
			runner:    &stubRunner{out: []float32{nan, nan, nan}},
			wantErr:   ErrInvalidPrediction,
			wantCalls: 1,
		},
		{
			name:      "index past the class list",
			runner:    &stubRunner{out: append(make([]float32, 11), 0.99)},
			wantErr:   ErrInvalidPrediction,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := tt.image
			if img == nil {
				img = leafPNG(t)
			}
			pred, err := NewClassifier(tt.runner, DefaultMetadata()).Predict(context.Background(), img)

			assert.Nil(t, pred)
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.notErr != nil {
				assert.NotErrorIs(t, err, tt.notErr)
			}
			assert.Equal(t, tt.wantCalls, tt.runner.calls)
		})
	}
}

func TestClassifier_PredictRejectsOversizedImage(t *testing.T) {
	runner := &stubRunner{out: onehot(11, 0, 0.9)}
	c := NewClassifier(runner, DefaultMetadata()).WithMaxPixels(64 * 48 / 2)

	_, err := c.Predict(context.Background(), leafPNG(t))

	assert.ErrorIs(t, err, ErrInvalidImage)
	assert.Zero(t, runner.calls)
}

func TestClassifier_PredictCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runner := &stubRunner{out: onehot(11, 0, 0.9)}

	_, err := NewClassifier(runner, DefaultMetadata()).Predict(ctx, leafPNG(t))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, runner.calls)
}

func TestClassifier_PredictSoftmax(t *testing.T) {
	meta := DefaultMetadata()
	meta.Softmax = true
	logits := make([]float32, 11)
	logits[5] = 4
	runner := &stubRunner{out: logits}

	pred, err := NewClassifier(runner, meta).Predict(context.Background(), leafPNG(t))

	require.NoError(t, err)
	assert.Equal(t, "Tomato Septoria leaf Spot", pred.Class)
	assert.Greater(t, pred.Confidence, float32(80))
	assert.LessOrEqual(t, pred.Confidence, float32(100))

	var sum float32
	for _, v := range pred.Scores {
		sum += v
	}
	assert.InDelta(t, 1, sum, 1e-4)
}

func TestArgmax(t *testing.T) {
	nan := float32(math.NaN())

	idx, val := argmax([]float32{0.1, nan, 0.7, 0.2})
	assert.Equal(t, 2, idx)
	assert.InDelta(t, 0.7, val, 1e-6)

	idx, _ = argmax([]float32{-3, -1, -2})
	assert.Equal(t, 1, idx)

	idx, _ = argmax(nil)
	assert.Equal(t, -1, idx)
}

func TestPercent(t *testing.T) {
	assert.Equal(t, float32(0), percent(-0.2))
	assert.Equal(t, float32(100), percent(1.3))
	assert.InDelta(t, 42.5, percent(0.425), 1e-4)
}
