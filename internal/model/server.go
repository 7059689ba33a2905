package model

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
)

var (
	envMu          sync.Mutex
	envInitialized bool
)

// Server owns the ONNX session. The session is created on first use and a
// failed load is attempted again on the next call.
type Server struct {
	mu           sync.Mutex
	modelPath    string
	libraryPath  string
	logger       *zap.Logger
	session      *ort.AdvancedSession
	Metadata     Metadata
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

// NewServer prepares a server for the model at modelPath without loading it.
// libraryPath overrides the onnxruntime shared library location when set.
func NewServer(modelPath, libraryPath string, metadata Metadata, logger *zap.Logger) *Server {
	return &Server{
		modelPath:   modelPath,
		libraryPath: libraryPath,
		logger:      logger.Named("model_server"),
		Metadata:    metadata,
	}
}

// Load creates the session if it does not exist yet.
func (s *Server) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// Loaded reports whether a session is ready.
func (s *Server) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session != nil
}

func (s *Server) loadLocked() error {
	if s.session != nil {
		return nil
	}

	if err := initEnvironment(s.libraryPath); err != nil {
		return fmt.Errorf("%w: failed to initialize ONNX environment: %v", ErrModelUnavailable, err)
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(s.Metadata.InputShape...))
	if err != nil {
		return fmt.Errorf("%w: failed to create input tensor: %v", ErrModelUnavailable, err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(s.Metadata.OutputShape...))
	if err != nil {
		inputTensor.Destroy()
		return fmt.Errorf("%w: failed to create output tensor: %v", ErrModelUnavailable, err)
	}

	session, err := ort.NewAdvancedSession(s.modelPath,
		[]string{s.Metadata.InputName}, []string{s.Metadata.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return fmt.Errorf("%w: failed to create ONNX session for %s: %v", ErrModelUnavailable, s.modelPath, err)
	}

	s.session = session
	s.inputTensor = inputTensor
	s.outputTensor = outputTensor
	s.logger.Info("model loaded",
		zap.String("path", s.modelPath),
		zap.Int64s("input_shape", s.Metadata.InputShape),
		zap.Int("classes", len(s.Metadata.Classes)))
	return nil
}

// Run feeds input through the model and returns a copy of the output tensor.
func (s *Server) Run(input []float32) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return nil, err
	}

	data := s.inputTensor.GetData()
	if len(input) != len(data) {
		return nil, fmt.Errorf("input has %d values, model expects %d", len(input), len(data))
	}
	copy(data, input)

	if err := s.session.Run(); err != nil {
		return nil, fmt.Errorf("session run: %w", err)
	}

	out := s.outputTensor.GetData()
	return append([]float32(nil), out...), nil
}

// Close releases the session, its tensors and the ONNX environment.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inputTensor != nil {
		s.inputTensor.Destroy()
		s.inputTensor = nil
	}
	if s.outputTensor != nil {
		s.outputTensor.Destroy()
		s.outputTensor = nil
	}
	if s.session != nil {
		s.session.Destroy()
		s.session = nil
	}

	envMu.Lock()
	defer envMu.Unlock()
	if envInitialized {
		ort.DestroyEnvironment()
		envInitialized = false
	}
}

func initEnvironment(libraryPath string) error {
	envMu.Lock()
	defer envMu.Unlock()
	if envInitialized {
		return nil
	}
	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return err
	}
	envInitialized = true
	return nil
}
