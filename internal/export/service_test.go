package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rpattn/roster/internal/domain"
	"github.com/rpattn/roster/internal/repository"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func seededService(t *testing.T) *Service {
	t.Helper()
	repo := repository.NewMemoryRecordRepository()
	spec, err := domain.SpecFor(domain.KindScreenshotPending)
	require.NoError(t, err)

	created := time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)
	_, err = repo.InsertMany(context.Background(), spec, []domain.Record{
		domain.NewRecord(spec.Kind, domain.Fields{
			"yatri_id": domain.String("YT1"),
			"amount":   domain.Number(1500),
			"status":   domain.String("pending"),
		}, created),
	})
	require.NoError(t, err)

	svc := NewService(repo)
	svc.now = func() time.Time { return created }
	return svc
}

func TestExportCSV(t *testing.T) {
	svc := seededService(t)

	var buf bytes.Buffer
	require.NoError(t, svc.Export(context.Background(), domain.KindScreenshotPending, FormatCSV, &buf))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	header := rows[0]
	assert.Equal(t, "id", header[0])
	assert.Equal(t, "yatri_id", header[1])
	assert.Equal(t, "created_at", header[len(header)-1])

	row := map[string]string{}
	for i, name := range header {
		row[name] = rows[1][i]
	}
	assert.Equal(t, "YT1", row["yatri_id"])
	assert.Equal(t, "1500", row["amount"])
	assert.Equal(t, "", row["email"])
	assert.Equal(t, "2024-02-01T08:00:00.000Z", row["created_at"])
}

func TestExportXLSX(t *testing.T) {
	svc := seededService(t)

	var buf bytes.Buffer
	require.NoError(t, svc.Export(context.Background(), domain.KindScreenshotPending, FormatXLSX, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(string(domain.KindScreenshotPending))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "id", rows[0][0])
	assert.Equal(t, "YT1", rows[1][1])
}

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, format)

	format, err = ParseFormat("CSV")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, format)

	_, err = ParseFormat("pdf")
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestFileName(t *testing.T) {
	svc := seededService(t)
	assert.Equal(t, "screenshot-pending-20240201.csv", svc.FileName(domain.KindScreenshotPending, FormatCSV))
}

func TestExportHandler(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	mux := http.NewServeMux()
	mux.Handle("GET /api/{kind}/export", NewHTTPHandler(seededService(t), logger))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/screenshot-pending/export?format=csv", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "screenshot-pending-20240201.csv")

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/screenshot-pending/export?format=pdf", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/visitors/export", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
