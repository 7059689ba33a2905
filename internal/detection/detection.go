// Package detection runs the upload -> classify -> remediation lookup pipeline.
package detection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Brownie44l1/tomato-leaf-api/internal/disease"
	"github.com/Brownie44l1/tomato-leaf-api/internal/logging"
	"github.com/Brownie44l1/tomato-leaf-api/internal/metrics"
	"github.com/Brownie44l1/tomato-leaf-api/internal/model"
)

// Outcome classifies a completed detection.
type Outcome string

const (
	// OutcomeSupported means a remediation record was found for the label.
	OutcomeSupported Outcome = "supported"
	// OutcomeUnsupported means the label has no remediation record.
	OutcomeUnsupported Outcome = "unsupported"
	// OutcomeInvalid means the model output did not map to a known label.
	OutcomeInvalid Outcome = "invalid"
)

// Outcomes reported only through metrics, for runs that end in an error.
const (
	outcomeDecodeError = "decode_error"
	outcomeModelError  = "model_error"
)

// Predictor classifies raw image bytes.
type Predictor interface {
	Predict(ctx context.Context, imageBytes []byte) (*model.Prediction, error)
}

// Resolver finds remediation records by label.
type Resolver interface {
	Lookup(label string) (disease.Record, bool)
}

var (
	_ Predictor = (*model.Classifier)(nil)
	_ Resolver  = (*disease.Table)(nil)
)

// Result is what the UI renders for one upload.
type Result struct {
	Outcome    Outcome
	Label      string
	Confidence float32
	Record     disease.Record
}

// Service wires the predictor to the resolver.
type Service struct {
	predictor Predictor
	resolver  Resolver
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewService builds the pipeline. m may be nil.
func NewService(predictor Predictor, resolver Resolver, m *metrics.Metrics, logger *zap.Logger) *Service {
	return &Service{
		predictor: predictor,
		resolver:  resolver,
		metrics:   m,
		logger:    logger.Named("detection"),
	}
}

// Detect classifies imageBytes and looks up the remediation record.
//
// Decode failures wrap model.ErrInvalidImage and model failures wrap
// model.ErrModelUnavailable or model.ErrInference. An out-of-range class and
// a label without a record are not errors; they come back as
// OutcomeInvalid and OutcomeUnsupported.
func (s *Service) Detect(ctx context.Context, requestID string, imageBytes []byte) (*Result, error) {
	if requestID == "" {
		requestID = uuid.NewString()
	}
	opLogger := logging.WithOperation(s.logger, "detection.detect", requestID)
	start := time.Now()

	if len(imageBytes) == 0 {
		s.metrics.ObservePrediction(outcomeDecodeError, time.Since(start))
		return nil, logging.NewOperationError("detection.detect", requestID,
			fmt.Errorf("%w: empty upload", model.ErrInvalidImage))
	}

	pred, err := s.predictor.Predict(ctx, imageBytes)
	switch {
	case err == nil:
	case errors.Is(err, model.ErrInvalidPrediction):
		s.metrics.ObservePrediction(string(OutcomeInvalid), time.Since(start))
		opLogger.Warn("prediction outside label enumeration", zap.Error(err))
		return &Result{Outcome: OutcomeInvalid}, nil
	case errors.Is(err, model.ErrInvalidImage):
		s.metrics.ObservePrediction(outcomeDecodeError, time.Since(start))
		opLogger.Info("upload is not a decodable image", zap.Error(err))
		return nil, logging.NewOperationError("detection.detect", requestID, err)
	default:
		s.metrics.ObservePrediction(outcomeModelError, time.Since(start))
		opLogger.Error("classification failed", zap.Error(err))
		return nil, logging.NewOperationError("detection.detect", requestID, err)
	}

	res := &Result{Label: pred.Class, Confidence: pred.Confidence}
	if rec, ok := s.resolver.Lookup(pred.Class); ok {
		res.Outcome = OutcomeSupported
		res.Record = rec
	} else {
		res.Outcome = OutcomeUnsupported
	}

	s.metrics.ObservePrediction(string(res.Outcome), time.Since(start))
	opLogger.Info("leaf classified",
		zap.String("label", res.Label),
		zap.Float32("confidence", res.Confidence),
		zap.String("outcome", string(res.Outcome)))
	return res, nil
}
