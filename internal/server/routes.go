package server

import (
	"encoding/json"
	"net/http"

	"github.com/rpattn/roster/internal/export"
	"github.com/rpattn/roster/internal/ingestion"
	"github.com/rpattn/roster/internal/metrics"
	"github.com/rpattn/roster/internal/middleware"
	"github.com/rpattn/roster/internal/records"
	"github.com/rpattn/roster/internal/repository"

	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

// Dependencies are the wired services behind the HTTP surface.
type Dependencies struct {
	Records        repository.RecordRepository
	Ingestion      *ingestion.Service
	Export         *export.Service
	Metrics        *metrics.Registry
	Logger         *logrus.Logger
	Backend        string
	Upload         ingestion.HandlerConfig
	AllowedOrigins []string
}

// NewHandler registers every route and wraps them with CORS and request logging.
func NewHandler(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	uploads := ingestion.NewHTTPHandler(deps.Ingestion, logger, deps.Upload)
	reads := records.NewHTTPHandler(deps.Records, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/{kind}/upload", uploads.Upload)
	mux.HandleFunc("GET /api/{kind}/uploads", uploads.Uploads)
	mux.Handle("GET /api/{kind}/export", export.NewHTTPHandler(deps.Export, logger))
	mux.HandleFunc("GET /api/{kind}", reads.List)
	mux.HandleFunc("GET /api/{kind}/{id}", reads.Get)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "store": deps.Backend})
	})
	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics.Handler())
	}

	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	return corsHandler.Handler(middleware.LoggingMiddleware(logger)(mux))
}
