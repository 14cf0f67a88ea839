package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/air-quality-service/internal/advice"
	"github.com/couchcryptid/air-quality-service/internal/alerts"
	"github.com/couchcryptid/air-quality-service/internal/domain"
	"github.com/couchcryptid/air-quality-service/internal/pipeline"
	"github.com/couchcryptid/air-quality-service/internal/prediction"
)

// SnapshotSource hands out the trained snapshot once training completes.
type SnapshotSource interface {
	Snapshot() (*pipeline.Snapshot, bool)
}

// PredictionLog lists recently served predictions.
type PredictionLog interface {
	Recent(ctx context.Context, limit int) ([]domain.PredictionResult, error)
}

// Deps are the services behind the API. Log may be nil when the audit log
// is disabled.
type Deps struct {
	Ready            sharedobs.ReadinessChecker
	Snapshots        SnapshotSource
	Predictions      *prediction.Service
	Advice           *advice.Service
	Alerts           *alerts.Broadcaster
	Log              PredictionLog
	HistoryStartYear int
}

// Server exposes the prediction API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	deps       Deps
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the probe routes and the /api/v1 routes.
func NewServer(addr string, deps Deps, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:        addr,
			Handler:     mux,
			ReadTimeout: 10 * time.Second,
			// Covers advisor round trips and one SMTP dial per alert recipient.
			WriteTimeout: 2 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		deps:   deps,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(deps.Ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/v1/model", s.handleModel)
	mux.HandleFunc("GET /api/v1/locations", s.handleLocations)
	mux.HandleFunc("POST /api/v1/predictions", s.handlePredict)
	mux.HandleFunc("GET /api/v1/predictions/current", s.handleCurrent)
	mux.HandleFunc("GET /api/v1/predictions/log", s.handleLog)
	mux.HandleFunc("GET /api/v1/analytics", s.handleAnalytics)
	mux.HandleFunc("GET /api/v1/analytics/history", s.handleHistory)
	mux.HandleFunc("GET /api/v1/analytics/report", s.handleReport)
	mux.HandleFunc("GET /api/v1/advice", s.handleAdvice)
	mux.HandleFunc("POST /api/v1/advice/ask", s.handleAsk)
	mux.HandleFunc("POST /api/v1/alerts", s.handleAlerts)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}
