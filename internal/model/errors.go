package model

import "errors"

var (
	// ErrInvalidImage is returned when the upload does not decode to a raster image.
	ErrInvalidImage = errors.New("invalid image")
	// ErrModelUnavailable is returned when the ONNX session cannot be created.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrInference is returned when a loaded session fails to run.
	ErrInference = errors.New("inference failed")
	// ErrInvalidPrediction is returned when the argmax does not map to a known class.
	ErrInvalidPrediction = errors.New("invalid prediction")
)
