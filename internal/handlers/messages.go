package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Brownie44l1/tomato-leaf-api/internal/model"
)

const (
	msgNoImage           = "Please choose a leaf image to upload."
	msgTooLarge          = "The image is too large. Please upload a smaller photo."
	msgUploadFailed      = "The upload could not be read. Please try again."
	msgInvalidImage      = "The uploaded file is not a readable JPEG or PNG image. Please upload a photo of a tomato leaf."
	msgModelUnavailable  = "The disease detection model is not available right now. Please try again later."
	msgInference         = "The model could not classify this image. Please try again."
	msgCanceled          = "The request was cancelled before the prediction finished."
	msgInvalidPrediction = "Upload a tomato leaf with clarity. The image is not a clear tomato leaf, so the model could not make a valid prediction. Please try again with a clear image."
	msgUnknownDisease    = "No report is available for this disease."
)

func unsupportedMessage(label string) string {
	return fmt.Sprintf("It's not a tomato, it's a: %s. Pesticide suggestions are only available for tomato leaf diseases.", label)
}

func uploadMessage(err error) string {
	switch {
	case errors.Is(err, errNoImage):
		return msgNoImage
	case errors.Is(err, errTooLarge):
		return msgTooLarge
	}
	return msgUploadFailed
}

// detectErrorResponse maps a detection error to a status code and message.
func detectErrorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrInvalidImage):
		return http.StatusBadRequest, msgInvalidImage
	case errors.Is(err, model.ErrModelUnavailable):
		return http.StatusServiceUnavailable, msgModelUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, msgCanceled
	}
	return http.StatusInternalServerError, msgInference
}
