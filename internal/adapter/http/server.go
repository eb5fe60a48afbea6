package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/crop-risk-service/internal/cropcycle"
	"github.com/couchcryptid/crop-risk-service/internal/domain"
	"github.com/couchcryptid/crop-risk-service/internal/risk"
)

// RiskComputer runs a risk computation for one crop cycle.
type RiskComputer interface {
	ComputeForCropCycle(ctx context.Context, req risk.Request) (risk.Result, error)
}

// SnapshotLister reads the risk history of a crop cycle.
type SnapshotLister interface {
	ListSnapshots(ctx context.Context, farmerID, cropCycleID string, limit int) ([]domain.RiskSnapshot, error)
}

// CropCycleService manages a farmer's crop cycles.
type CropCycleService interface {
	Create(ctx context.Context, in cropcycle.CreateInput) (*domain.CropCycle, error)
	List(ctx context.Context, farmerID string, includeCompleted bool) ([]domain.CropCycle, error)
	Get(ctx context.Context, farmerID, cropCycleID string) (*domain.CropCycle, error)
	UpdateStage(ctx context.Context, in cropcycle.StageUpdate) (*domain.CropCycle, error)
}

// DefinitionLister reads the crop definition catalog.
type DefinitionLister interface {
	GetDefinition(ctx context.Context, code string) (*domain.CropDefinition, error)
	ListDefinitions(ctx context.Context, activeOnly bool) ([]domain.CropDefinition, error)
}

// NotificationStore reads and acknowledges farmer notifications.
type NotificationStore interface {
	ListNotifications(ctx context.Context, farmerID string, unreadOnly bool, limit int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, farmerID, notificationID string) error
}

// Services are the collaborators behind the /v1 API. A route is only mounted
// when the services it needs are set: POST .../risk needs Risk, and
// GET .../risk-snapshots needs both Snapshots and CropCycles.
type Services struct {
	Risk          RiskComputer
	Snapshots     SnapshotLister
	CropCycles    CropCycleService
	Definitions   DefinitionLister
	Notifications NotificationStore
}

// Server exposes the farmer API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the
// /v1 API routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, svc Services, logger *slog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(ready))
	r.Handle("/metrics", promhttp.Handler())

	h := &handlers{svc: svc, logger: logger}
	r.Route("/v1", func(r chi.Router) {
		r.Use(requireFarmer)
		r.Use(limitBody(1 << 20))

		if svc.CropCycles != nil || svc.Risk != nil {
			r.Route("/crop-cycles", func(r chi.Router) {
				if svc.CropCycles != nil {
					r.Post("/", h.createCropCycle)
					r.Get("/", h.listCropCycles)
				}
				r.Route("/{cropCycleID}", func(r chi.Router) {
					if svc.CropCycles != nil {
						r.Get("/", h.getCropCycle)
						r.Patch("/stage", h.updateStage)
					}
					if svc.Risk != nil {
						r.Post("/risk", h.computeRisk)
					}
					// Snapshot history checks cycle ownership first.
					if svc.Snapshots != nil && svc.CropCycles != nil {
						r.Get("/risk-snapshots", h.listSnapshots)
					}
				})
			})
		}
		if svc.Definitions != nil {
			r.Get("/crop-definitions", h.listDefinitions)
			r.Get("/crop-definitions/{code}", h.getDefinition)
		}
		if svc.Notifications != nil {
			r.Get("/notifications", h.listNotifications)
			r.Post("/notifications/{notificationID}/read", h.markNotificationRead)
		}
	})

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

type handlers struct {
	svc    Services
	logger *slog.Logger
}
