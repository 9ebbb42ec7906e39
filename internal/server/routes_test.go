package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rpattn/roster/internal/export"
	"github.com/rpattn/roster/internal/ingestion"
	"github.com/rpattn/roster/internal/metrics"
	"github.com/rpattn/roster/internal/repository"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := repository.NewMemoryRecordRepository()
	registry := metrics.NewRegistry()
	svc := ingestion.NewService(store, repository.NewMemoryIngestionLogRepository(),
		ingestion.WithLogger(logger), ingestion.WithMetrics(registry))

	return NewHandler(Dependencies{
		Records:        store,
		Ingestion:      svc,
		Export:         export.NewService(store),
		Metrics:        registry,
		Logger:         logger,
		Backend:        "memory",
		Upload:         ingestion.HandlerConfig{UploadDir: t.TempDir()},
		AllowedOrigins: []string{"https://admin.example.com"},
	})
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestUploadThenReadBack(t *testing.T) {
	h := newTestHandler(t)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("csv", "participants.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("Yatri Id,First Name\nYT001,Asha\nYT002,Ravi\n"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/participants/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := serve(h, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/participants", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 2)

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/participants/YT002", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/participants/export?format=csv", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, strings.Count(rec.Body.String(), "\n"))

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `roster_ingest_rows_total{kind="participants",outcome="inserted"} 2`)
}

func TestHealthz(t *testing.T) {
	rec := serve(newTestHandler(t), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","store":"memory"}`, rec.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/participants/upload", nil)
	req.Header.Set("Origin", "https://admin.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rec := serve(newTestHandler(t), req)

	assert.Equal(t, "https://admin.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestNotFoundMessage(t *testing.T) {
	rec := serve(newTestHandler(t), httptest.NewRequest(http.MethodGet, "/api/submissions/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"Submission not found"}`, rec.Body.String())
}
