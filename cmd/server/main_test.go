package main

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image/color"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Brownie44l1/tomato-leaf-api/internal/config"
	"github.com/Brownie44l1/tomato-leaf-api/internal/handlers"
	"github.com/Brownie44l1/tomato-leaf-api/internal/i18n"
	"github.com/Brownie44l1/tomato-leaf-api/internal/model"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fixedRunner struct {
	index int
	err   error
	calls atomic.Int32
}

func (r *fixedRunner) Run(input []float32) ([]float32, error) {
	r.calls.Add(1)
	if r.err != nil {
		return nil, r.err
	}
	out := make([]float32, len(model.TomatoClasses))
	out[r.index] = 0.93
	return out, nil
}

func testConfig() *config.Config {
	return &config.Config{
		DiseaseCSVPath:  filepath.Join("..", "..", "data", "tomato_disease_guide.csv"),
		MaxUploadBytes:  20 << 20,
		MaxImagePixels:  50_000_000,
		ShutdownTimeout: 2 * time.Second,
		DefaultLanguage: i18n.English,
	}
}

func newTestServer(t *testing.T, runner *fixedRunner, ready bool) *httptest.Server {
	t.Helper()
	router, err := newRouter(testConfig(), runner, model.DefaultMetadata(), func() bool { return ready }, zap.NewNop())
	require.NoError(t, err)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func leafJPEG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := imaging.New(320, 240, color.NRGBA{R: 52, G: 128, B: 44, A: 255})
	require.NoError(t, imaging.Encode(&buf, img, imaging.JPEG))
	return buf.Bytes()
}

// hugePNG is a valid PNG signature and IHDR chunk declaring a 40000x40000
// grayscale image, with no pixel data behind it.
func hugePNG() []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], 40000)
	binary.BigEndian.PutUint32(ihdr[4:8], 40000)
	ihdr[8] = 8
	chunk := append([]byte("IHDR"), ihdr...)
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestEndToEnd_PredictAndDownloadReport(t *testing.T) {
	runner := &fixedRunner{index: 3}
	srv := newTestServer(t, runner, true)
	client := resty.New().SetBaseURL(srv.URL)

	var result handlers.PredictionResponse
	resp, err := client.R().
		SetFileReader("image", "leaf.jpg", bytes.NewReader(leafJPEG(t))).
		SetResult(&result).
		Post("/api/predict")

	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode(), resp.String())
	assert.Equal(t, "supported", result.Outcome)
	assert.Equal(t, "Tomato Late Blight", result.Class)
	assert.InDelta(t, 93, result.Confidence, 0.01)
	require.NotNil(t, result.Disease)
	assert.NotEmpty(t, result.Disease.Symptoms)
	assert.NotEmpty(t, resp.Header().Get("X-Request-ID"))
	assert.EqualValues(t, 1, runner.calls.Load())

	report, err := client.R().Get(result.ReportURL)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, report.StatusCode())
	assert.Contains(t, report.Header().Get("Content-Disposition"), "plant_disease_report.txt")
	lines := strings.Split(report.String(), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Disease: Tomato Late Blight", lines[0])
	assert.Equal(t, "Symptoms: "+result.Disease.Symptoms, lines[1])
	assert.Equal(t, "Organic Pesticides: "+result.Disease.OrganicPesticides, lines[2])
	assert.Equal(t, "Tips: "+result.Disease.Tips, lines[3])
}

func TestEndToEnd_DetectPage(t *testing.T) {
	srv := newTestServer(t, &fixedRunner{index: 1}, true)
	client := resty.New().SetBaseURL(srv.URL)

	resp, err := client.R().
		SetFileReader("image", "leaf.jpg", bytes.NewReader(leafJPEG(t))).
		SetFormData(map[string]string{"lang": "en"}).
		Post("/detect")

	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Contains(t, resp.String(), "Tomato  Early blight")
	assert.Contains(t, resp.String(), "93.00")
	assert.Contains(t, resp.String(), "Download Report")
	assert.Contains(t, resp.String(), `src="data:image/jpeg;base64,`)
}

func TestEndToEnd_Errors(t *testing.T) {
	t.Run("model unavailable", func(t *testing.T) {
		srv := newTestServer(t, &fixedRunner{err: model.ErrModelUnavailable}, false)
		client := resty.New().SetBaseURL(srv.URL)

		health, err := client.R().Get("/health")
		require.NoError(t, err)
		assert.JSONEq(t, `{"status":"healthy","model_loaded":false}`, health.String())

		resp, err := client.R().
			SetFileReader("image", "leaf.jpg", bytes.NewReader(leafJPEG(t))).
			Post("/api/predict")
		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode())
	})

	t.Run("not an image", func(t *testing.T) {
		runner := &fixedRunner{index: 0}
		srv := newTestServer(t, runner, true)

		resp, err := resty.New().R().
			SetFileReader("image", "notes.txt", strings.NewReader("just some text")).
			Post(srv.URL + "/api/predict")
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
		assert.Zero(t, runner.calls.Load())
	})

	t.Run("oversized dimensions", func(t *testing.T) {
		runner := &fixedRunner{index: 0}
		srv := newTestServer(t, runner, true)

		var body handlers.ErrorResponse
		resp, err := resty.New().R().
			SetFileReader("image", "huge.png", bytes.NewReader(hugePNG())).
			SetError(&body).
			Post(srv.URL + "/api/predict")
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
		assert.NotEmpty(t, body.Error)
		assert.Zero(t, runner.calls.Load())

		page, err := resty.New().R().
			SetFileReader("image", "huge.png", bytes.NewReader(hugePNG())).
			Post(srv.URL + "/detect")
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, page.StatusCode())
		assert.NotContains(t, page.String(), "data:image/jpeg")
	})
}

func TestServerGracefulShutdown(t *testing.T) {
	requestStarted := make(chan struct{})
	releaseRequest := make(chan struct{})

	mux := http.NewServeMux()
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		close(requestStarted)
		<-releaseRequest
		_, _ = w.Write([]byte("ok"))
	})

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	server := &http.Server{Handler: mux}

	signalCh := make(chan os.Signal, 1)
	done := make(chan error, 1)
	go func() {
		done <- serveHTTPServerWithOptions(server, 2*time.Second, zap.NewNop(), listener, signalCh)
	}()

	addr := listener.Addr().String()
	waitForServer(t, addr)

	type result struct {
		status int
		body   string
		err    error
	}
	respCh := make(chan result, 1)
	go func() {
		resp, err := (&http.Client{Timeout: 2 * time.Second}).Get("http://" + addr + "/slow")
		if err != nil {
			respCh <- result{err: err}
			return
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		respCh <- result{status: resp.StatusCode, body: string(body), err: err}
	}()

	select {
	case <-requestStarted:
	case <-time.After(2 * time.Second):
		close(releaseRequest)
		t.Fatal("request did not start in time")
	}

	signalCh <- syscall.SIGTERM
	time.Sleep(50 * time.Millisecond)
	close(releaseRequest)

	select {
	case res := <-respCh:
		require.NoError(t, res.err)
		assert.Equal(t, http.StatusOK, res.status)
		assert.Equal(t, "ok", res.body)
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight request did not complete")
	}

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not exit after shutdown")
	}
}

func TestServeHTTPServer_ListenError(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	server := &http.Server{Addr: listener.Addr().String(), Handler: http.NotFoundHandler()}
	err = serveHTTPServerWithOptions(server, time.Second, zap.NewNop(), nil, make(chan os.Signal))
	assert.Error(t, err)
}

func waitForServer(t *testing.T, addr string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("server %s did not become ready", addr)
}
