package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rpattn/roster/internal/domain"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	service *Service
	logger  *logrus.Logger
}

func NewHTTPHandler(service *Service, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{service: service, logger: logger}
}

// ServeHTTP handles GET /api/{kind}/export?format=xlsx|csv.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	kind := domain.EntityKind(r.PathValue("kind"))

	format, err := ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "format must be csv or xlsx"})
		return
	}

	// buffered so a failure midway still produces a JSON error instead of a truncated file
	var buf bytes.Buffer
	if err := h.service.Export(r.Context(), kind, format, &buf); err != nil {
		if errors.Is(err, domain.ErrUnknownKind) {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Unknown entity kind"})
			return
		}
		h.logger.WithError(err).WithField("kind", kind).Error("export failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Export failed", "error": err.Error()})
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", h.service.FileName(kind, format)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.WithError(err).WithField("kind", kind).Warn("failed to stream export")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
