package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Brownie44l1/tomato-leaf-api/internal/i18n"
)

// Config is the runtime configuration read from the environment.
type Config struct {
	Port            string
	ModelPath       string
	MetadataPath    string
	ORTLibraryPath  string
	DiseaseCSVPath  string
	MaxUploadBytes  int64
	MaxImagePixels  int
	ShutdownTimeout time.Duration
	LogLevel        string
	DefaultLanguage i18n.Language
}

// Load reads the environment. Relative paths are resolved against the
// project root, which is two levels up when started from cmd/server.
func Load() (*Config, error) {
	root, err := projectRoot()
	if err != nil {
		return nil, err
	}

	maxMB, err := strconv.ParseInt(getEnv("MAX_UPLOAD_MB", "20"), 10, 64)
	if err != nil || maxMB <= 0 {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_MB %q", os.Getenv("MAX_UPLOAD_MB"))
	}

	maxMP, err := strconv.Atoi(getEnv("MAX_IMAGE_MEGAPIXELS", "50"))
	if err != nil || maxMP <= 0 {
		return nil, fmt.Errorf("invalid MAX_IMAGE_MEGAPIXELS %q", os.Getenv("MAX_IMAGE_MEGAPIXELS"))
	}

	shutdown, err := time.ParseDuration(getEnv("SHUTDOWN_TIMEOUT", "15s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	lang, err := i18n.ParseLanguage(getEnv("DEFAULT_LANGUAGE", string(i18n.English)))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_LANGUAGE: %w", err)
	}

	return &Config{
		Port:            getEnv("PORT", "8080"),
		ModelPath:       resolve(root, getEnv("MODEL_PATH", filepath.Join("models", "trained_plant_disease_model.onnx"))),
		MetadataPath:    resolve(root, getEnv("MODEL_METADATA_PATH", filepath.Join("models", "model_metadata.json"))),
		ORTLibraryPath:  os.Getenv("ONNXRUNTIME_LIB"),
		DiseaseCSVPath:  resolve(root, getEnv("DISEASE_GUIDE_PATH", filepath.Join("data", "tomato_disease_guide.csv"))),
		MaxUploadBytes:  maxMB << 20,
		MaxImagePixels:  maxMP * 1_000_000,
		ShutdownTimeout: shutdown,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		DefaultLanguage: lang,
	}, nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func projectRoot() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	if filepath.Base(wd) == "server" && filepath.Base(filepath.Dir(wd)) == "cmd" {
		wd = filepath.Join(wd, "..", "..")
	}
	return filepath.Clean(wd), nil
}

func resolve(root, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
