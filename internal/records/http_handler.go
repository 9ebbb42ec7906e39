package records

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rpattn/roster/internal/domain"
	"github.com/rpattn/roster/internal/repository"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Handler serves the read endpoints of every entity kind.
type Handler struct {
	repo   repository.RecordRepository
	logger *logrus.Logger
}

func NewHTTPHandler(repo repository.RecordRepository, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{repo: repo, logger: logger}
}

// List handles GET /api/{kind}. Records come newest first unless ?order=asc.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	spec, ok := h.spec(w, r)
	if !ok {
		return
	}

	opts := repository.ListOptions{Order: repository.SortNewestFirst}
	if strings.EqualFold(r.URL.Query().Get("order"), string(repository.SortOldestFirst)) {
		opts.Order = repository.SortOldestFirst
	}

	records, err := h.repo.List(r.Context(), spec, opts)
	if err != nil {
		if errors.Is(err, repository.ErrCollectionMissing) {
			writeJSON(w, http.StatusOK, []domain.Record{})
			return
		}
		h.fail(w, spec, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// Get handles GET /api/{kind}/{id}. Non-UUID ids are looked up by identifier value.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	spec, ok := h.spec(w, r)
	if !ok {
		return
	}

	record, err := Lookup(r.Context(), h.repo, spec, r.PathValue("id"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, record)
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, repository.ErrCollectionMissing):
		writeJSON(w, http.StatusNotFound, map[string]string{"message": spec.Singular + " not found"})
	default:
		h.fail(w, spec, err)
	}
}

// Lookup resolves an id path segment: a server UUID first, then each identifier field.
func Lookup(ctx context.Context, repo repository.RecordRepository, spec domain.FieldSpec, raw string) (domain.Record, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.Record{}, repository.ErrNotFound
	}

	if id, err := uuid.Parse(raw); err == nil {
		record, err := repo.GetByID(ctx, spec, id)
		if !errors.Is(err, repository.ErrNotFound) {
			return record, err
		}
	}

	for _, field := range spec.Identifiers {
		record, err := repo.FindByKey(ctx, spec, field, raw)
		if err == nil {
			return record, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return domain.Record{}, err
		}
	}
	return domain.Record{}, repository.ErrNotFound
}

func (h *Handler) spec(w http.ResponseWriter, r *http.Request) (domain.FieldSpec, bool) {
	spec, err := domain.SpecFor(domain.EntityKind(r.PathValue("kind")))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Unknown entity kind"})
		return domain.FieldSpec{}, false
	}
	return spec, true
}

func (h *Handler) fail(w http.ResponseWriter, spec domain.FieldSpec, err error) {
	h.logger.WithError(err).WithField("kind", spec.Kind).Error("failed to read records")
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"message": "Failed to fetch " + spec.Plural,
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
