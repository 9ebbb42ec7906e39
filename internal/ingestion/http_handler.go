package ingestion

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rpattn/roster/internal/domain"

	"github.com/cockroachdb/errors"
	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"
)

const (
	uploadField           = "csv"
	DefaultMaxUploadBytes = 10 << 20
	// multipart framing on top of the file itself
	multipartOverhead = 1 << 20
)

// HandlerConfig controls upload spooling.
type HandlerConfig struct {
	UploadDir      string
	MaxUploadBytes int64
}

// Handler exposes ingestion over HTTP. Routes must supply the {kind} path value.
type Handler struct {
	service   *Service
	logger    *logrus.Logger
	uploadDir string
	maxBytes  int64
}

// NewHTTPHandler wraps the service with the upload and upload-history endpoints.
func NewHTTPHandler(service *Service, logger *logrus.Logger, cfg HandlerConfig) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = os.TempDir()
	}
	return &Handler{
		service:   service,
		logger:    logger,
		uploadDir: cfg.UploadDir,
		maxBytes:  cfg.MaxUploadBytes,
	}
}

type uploadResponse struct {
	OK            bool
	Message       string
	Total         int
	InsertedCount int
	Errors        int
	ListKey       string
	Records       []domain.Record
	ErrorDetails  []string
}

// MarshalJSON places the inserted records under the kind's list key.
func (r uploadResponse) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"ok":            r.OK,
		"message":       r.Message,
		"total":         r.Total,
		"insertedCount": r.InsertedCount,
		"errors":        r.Errors,
		r.ListKey:       r.Records,
		"errorDetails":  r.ErrorDetails,
	})
}

// Upload handles POST /api/{kind}/upload.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	spec, err := domain.SpecFor(domain.EntityKind(r.PathValue("kind")))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Unknown entity kind"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "CSV file exceeds the upload limit"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "No CSV file uploaded"})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "No CSV file uploaded"})
		return
	}
	defer file.Close()

	if header.Size > h.maxBytes {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "CSV file exceeds the upload limit"})
		return
	}
	if !h.looksLikeCSV(header.Filename, file) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Only CSV files are allowed"})
		return
	}

	path, err := h.spool(file)
	if path != "" {
		defer func() {
			if removeErr := os.Remove(path); removeErr != nil && !os.IsNotExist(removeErr) {
				h.logger.WithError(removeErr).WithField("path", path).Warn("failed to remove spooled upload")
			}
		}()
	}
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	spooled, err := os.Open(path)
	if err != nil {
		h.writeFailure(w, errors.Wrap(err, "failed to reopen spooled upload"))
		return
	}
	defer spooled.Close()

	result, err := h.service.Ingest(r.Context(), Request{
		Kind:     spec.Kind,
		FileName: header.Filename,
		Data:     spooled,
	})
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		OK:            true,
		Message:       fmt.Sprintf("Processed %d rows: %d %s inserted", result.TotalRows, result.InsertedCount(), spec.Plural),
		Total:         result.TotalRows,
		InsertedCount: result.InsertedCount(),
		Errors:        result.ErrorCount,
		ListKey:       spec.ListKey,
		Records:       result.Inserted,
		ErrorDetails:  result.ErrorDetails(h.service.MaxErrorDetails()),
	})
}

// Uploads handles GET /api/{kind}/uploads.
func (h *Handler) Uploads(w http.ResponseWriter, r *http.Request) {
	kind := domain.EntityKind(r.PathValue("kind"))

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "limit must be a non-negative integer"})
			return
		}
		limit = parsed
	}

	runs, err := h.service.Runs(r.Context(), kind, limit)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownKind) {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Unknown entity kind"})
			return
		}
		h.logger.WithError(err).WithField("kind", kind).Error("failed to list uploads")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Failed to list uploads", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"uploads": runs})
}

// looksLikeCSV accepts a .csv file name or any sniffed text content.
func (h *Handler) looksLikeCSV(name string, file io.ReadSeeker) bool {
	if strings.EqualFold(filepath.Ext(name), ".csv") {
		return true
	}
	detected, err := mimetype.DetectReader(file)
	if _, seekErr := file.Seek(0, io.SeekStart); seekErr != nil {
		return false
	}
	if err != nil {
		return false
	}
	for m := detected; m != nil; m = m.Parent() {
		if m.Is("text/csv") || m.Is("text/plain") {
			return true
		}
	}
	return false
}

// spool copies the upload to a temp file. The returned path is set whenever a file was
// created, even on error, so the caller can remove it.
func (h *Handler) spool(src io.Reader) (string, error) {
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return "", errors.Wrap(err, "failed to prepare upload directory")
	}
	tmp, err := os.CreateTemp(h.uploadDir, "upload-*.csv")
	if err != nil {
		return "", errors.Wrap(err, "failed to create spool file")
	}
	path := tmp.Name()
	if _, err := io.Copy(tmp, src); err != nil {
		_ = tmp.Close()
		return path, errors.Wrap(err, "failed to spool upload")
	}
	if err := tmp.Close(); err != nil {
		return path, errors.Wrap(err, "failed to close spool file")
	}
	return path, nil
}

func (h *Handler) writeFailure(w http.ResponseWriter, err error) {
	h.logger.WithError(err).Error("csv upload failed")
	writeJSON(w, http.StatusInternalServerError, map[string]any{
		"ok":      false,
		"message": "Error processing CSV file",
		"error":   err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
