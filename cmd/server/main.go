package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Brownie44l1/tomato-leaf-api/internal/config"
	"github.com/Brownie44l1/tomato-leaf-api/internal/content"
	"github.com/Brownie44l1/tomato-leaf-api/internal/detection"
	"github.com/Brownie44l1/tomato-leaf-api/internal/disease"
	"github.com/Brownie44l1/tomato-leaf-api/internal/handlers"
	"github.com/Brownie44l1/tomato-leaf-api/internal/i18n"
	"github.com/Brownie44l1/tomato-leaf-api/internal/logging"
	"github.com/Brownie44l1/tomato-leaf-api/internal/metrics"
	"github.com/Brownie44l1/tomato-leaf-api/internal/model"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited with error", zap.Error(err))
	}
	logger.Info("server stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	metadata, err := model.LoadMetadata(cfg.MetadataPath)
	if err != nil {
		return fmt.Errorf("load model metadata: %w", err)
	}

	logger.Info("loading model",
		zap.String("model_path", cfg.ModelPath),
		zap.Strings("classes", metadata.Classes))
	modelServer := model.NewServer(cfg.ModelPath, cfg.ORTLibraryPath, metadata, logger)
	defer modelServer.Close()
	if err := modelServer.Load(); err != nil {
		// Predictions retry the load and report the model as unavailable.
		logger.Warn("model not loaded at startup", zap.Error(err))
	}

	if os.Getenv(gin.EnvGinMode) == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router, err := newRouter(cfg, modelServer, metadata, modelServer.Loaded, logger)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("server starting",
		zap.String("addr", server.Addr),
		zap.String("default_language", string(cfg.DefaultLanguage)),
		zap.Int64("max_upload_bytes", cfg.MaxUploadBytes),
		zap.Int("max_image_pixels", cfg.MaxImagePixels))
	return serveHTTPServer(server, cfg.ShutdownTimeout, logger)
}

// newRouter wires the detection pipeline and the UI around runner.
func newRouter(cfg *config.Config, runner model.Inferencer, metadata model.Metadata, modelReady func() bool, logger *zap.Logger) (*gin.Engine, error) {
	table, err := disease.LoadTable(cfg.DiseaseCSVPath)
	if err != nil {
		logger.Warn("disease guide not loaded, every label will be reported as unsupported",
			zap.String("path", cfg.DiseaseCSVPath), zap.Error(err))
		table = disease.NewTable()
	} else {
		logger.Info("disease guide loaded",
			zap.Int("records", table.Len()),
			zap.Int("skipped_rows", table.Skipped()))
	}

	doc, err := content.Load()
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	service := detection.NewService(model.NewClassifier(runner, metadata).WithMaxPixels(cfg.MaxImagePixels), table, m, logger)
	handler := handlers.NewHandler(service, table, handlers.Options{
		Content:         doc,
		Catalog:         i18n.DefaultCatalog(),
		DefaultLanguage: cfg.DefaultLanguage,
		MaxUploadBytes:  cfg.MaxUploadBytes,
		MaxImagePixels:  cfg.MaxImagePixels,
		ModelReady:      modelReady,
	}, logger)
	return handlers.NewRouter(handler, m, logger)
}

func serveHTTPServer(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger) error {
	return serveHTTPServerWithOptions(server, shutdownTimeout, logger, nil, nil)
}

// serveHTTPServerWithOptions serves until the server fails or a signal
// arrives, then shuts down within shutdownTimeout. A nil listener means
// ListenAndServe; a nil signalCh means SIGINT and SIGTERM.
func serveHTTPServerWithOptions(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger, listener net.Listener, signalCh <-chan os.Signal) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if listener != nil {
			err = server.Serve(listener)
		} else {
			err = server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	sigCh := signalCh
	if sigCh == nil {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(ch)
		sigCh = ch
	}

	select {
	case err := <-errCh:
		return err
	case sig, ok := <-sigCh:
		if !ok {
			return <-errCh
		}
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return <-errCh
	}
}
