package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Brownie44l1/tomato-leaf-api/internal/content"
	"github.com/Brownie44l1/tomato-leaf-api/internal/detection"
	"github.com/Brownie44l1/tomato-leaf-api/internal/disease"
	"github.com/Brownie44l1/tomato-leaf-api/internal/i18n"
)

// DefaultMaxUploadSize is used when Options.MaxUploadBytes is not set.
const DefaultMaxUploadSize = 20 << 20

// multipartOverhead leaves room for boundaries and form fields around the file.
const multipartOverhead = 1 << 20

// Detector runs the detection pipeline for one upload.
type Detector interface {
	Detect(ctx context.Context, requestID string, imageBytes []byte) (*detection.Result, error)
}

var _ Detector = (*detection.Service)(nil)

// Options carries the static dependencies of the UI.
type Options struct {
	Content         *content.Content
	Catalog         *i18n.Catalog
	DefaultLanguage i18n.Language
	MaxUploadBytes  int64
	// MaxImagePixels bounds the decoded size of the result page thumbnail.
	MaxImagePixels int
	// ModelReady reports whether the classifier session is loaded.
	ModelReady func() bool
}

type Handler struct {
	detector    Detector
	resolver    detection.Resolver
	content     *content.Content
	catalog     *i18n.Catalog
	defaultLang i18n.Language
	maxUpload   int64
	maxPixels   int
	modelReady  func() bool
	logger      *zap.Logger
}

func NewHandler(detector Detector, resolver detection.Resolver, opts Options, logger *zap.Logger) *Handler {
	h := &Handler{
		detector:    detector,
		resolver:    resolver,
		content:     opts.Content,
		catalog:     opts.Catalog,
		defaultLang: opts.DefaultLanguage,
		maxUpload:   opts.MaxUploadBytes,
		maxPixels:   opts.MaxImagePixels,
		modelReady:  opts.ModelReady,
		logger:      logger.Named("handlers"),
	}
	if h.content == nil {
		h.content = &content.Content{}
	}
	if h.catalog == nil {
		h.catalog = i18n.DefaultCatalog()
	}
	if h.defaultLang == "" {
		h.defaultLang = i18n.English
	}
	if h.maxUpload <= 0 {
		h.maxUpload = DefaultMaxUploadSize
	}
	if h.modelReady == nil {
		h.modelReady = func() bool { return true }
	}
	return h
}

// PredictionResponse is the JSON body of POST /api/predict.
type PredictionResponse struct {
	RequestID  string          `json:"request_id"`
	Outcome    string          `json:"outcome"`
	Class      string          `json:"class,omitempty"`
	Confidence float32         `json:"confidence"`
	Disease    *disease.Record `json:"disease,omitempty"`
	ReportURL  string          `json:"report_url,omitempty"`
	Message    string          `json:"message,omitempty"`
}

// ErrorResponse is the JSON body of a failed API call.
type ErrorResponse struct {
	RequestID string `json:"request_id,omitempty"`
	Error     string `json:"error"`
}

func (h *Handler) Health(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"model_loaded": h.modelReady(),
	})
}

// PredictFromImage classifies a multipart "image" upload and answers in JSON.
func (h *Handler) PredictFromImage(c *gin.Context) {
	requestID := requestIDFrom(c)

	imageBytes, status, err := h.readUpload(c)
	if err != nil {
		c.JSON(status, ErrorResponse{RequestID: requestID, Error: uploadMessage(err)})
		return
	}

	res, err := h.detector.Detect(c.Request.Context(), requestID, imageBytes)
	if err != nil {
		status, msg := detectErrorResponse(err)
		c.JSON(status, ErrorResponse{RequestID: requestID, Error: msg})
		return
	}

	resp := PredictionResponse{
		RequestID:  requestID,
		Outcome:    string(res.Outcome),
		Class:      res.Label,
		Confidence: res.Confidence,
	}
	switch res.Outcome {
	case detection.OutcomeSupported:
		rec := res.Record
		resp.Disease = &rec
		resp.ReportURL = reportURL(res.Label)
	case detection.OutcomeUnsupported:
		resp.Message = unsupportedMessage(res.Label)
	case detection.OutcomeInvalid:
		resp.Message = msgInvalidPrediction
	}
	c.JSON(http.StatusOK, resp)
}

var (
	errNoImage  = errors.New("no image file provided")
	errTooLarge = errors.New("upload too large")
)

// readUpload returns the bytes of the "image" form file and, on failure, the
// status code to answer with.
func (h *Handler) readUpload(c *gin.Context) ([]byte, int, error) {
	limit := h.maxUpload + multipartOverhead
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	if c.Request.ContentLength > limit {
		return nil, http.StatusRequestEntityTooLarge, errTooLarge
	}

	header, err := c.FormFile("image")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, http.StatusRequestEntityTooLarge, errTooLarge
		}
		return nil, http.StatusBadRequest, errNoImage
	}
	if header.Size > h.maxUpload {
		return nil, http.StatusRequestEntityTooLarge, errTooLarge
	}

	f, err := header.Open()
	if err != nil {
		h.logger.Error("failed to open upload", zap.Error(err), zap.String("request_id", requestIDFrom(c)))
		return nil, http.StatusInternalServerError, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			h.logger.Warn("failed to close upload", zap.Error(err))
		}
	}()

	data, err := io.ReadAll(f)
	if err != nil {
		h.logger.Error("failed to read upload", zap.Error(err), zap.String("request_id", requestIDFrom(c)))
		return nil, http.StatusInternalServerError, err
	}

	h.logger.Debug("received upload",
		zap.String("request_id", requestIDFrom(c)),
		zap.String("filename", header.Filename),
		zap.Int64("size", header.Size))
	return data, http.StatusOK, nil
}

// language resolves the request's UI language from the lang query value or an
// already parsed multipart form, falling back to the configured default.
func (h *Handler) language(c *gin.Context) i18n.Language {
	raw := c.Query("lang")
	if form := c.Request.MultipartForm; raw == "" && form != nil {
		if v := form.Value["lang"]; len(v) > 0 {
			raw = v[0]
		}
	}
	if lang, err := i18n.ParseLanguage(raw); err == nil {
		return lang
	}
	return h.defaultLang
}

func reportURL(label string) string {
	return "/report?" + url.Values{"disease": {label}}.Encode()
}
