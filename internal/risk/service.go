// Package risk computes spoilage risk for a crop cycle and records the result.
package risk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/crop-risk-service/internal/domain"
	"github.com/couchcryptid/crop-risk-service/internal/observability"
)

// FarmerStore looks up farmers. A missing farmer is domain.ErrFarmerNotFound.
type FarmerStore interface {
	GetFarmer(ctx context.Context, farmerID string) (*domain.Farmer, error)
}

// CropCycleStore reads crop cycles and caches their latest risk summary.
// GetCropCycle returns domain.ErrCropCycleNotFound when the cycle does not
// exist or belongs to another farmer.
type CropCycleStore interface {
	GetCropCycle(ctx context.Context, farmerID, cropCycleID string) (*domain.CropCycle, error)
	UpdateRiskSummary(ctx context.Context, cropCycleID string, summary domain.RiskSummary) error
}

// DefinitionStore looks up crop definitions by code. A missing definition is
// domain.ErrCropDefinitionNotFound.
type DefinitionStore interface {
	GetDefinition(ctx context.Context, code string) (*domain.CropDefinition, error)
}

// SnapshotStore persists risk snapshots.
type SnapshotStore interface {
	CreateSnapshot(ctx context.Context, snapshot domain.RiskSnapshot) error
}

// AlertSink delivers risk-alert notifications to a farmer.
type AlertSink interface {
	CreateRiskAlert(ctx context.Context, alert domain.Notification) error
}

// Request identifies the crop cycle to score and where it is stored.
type Request struct {
	FarmerID               string
	CropCycleID            string
	Source                 domain.RiskSource
	Location               orb.Point
	CurrentMoisturePercent *float64
}

// Result is the outcome of one risk computation.
type Result struct {
	SnapshotID  string            `json:"snapshotId"`
	FarmerID    string            `json:"farmerId"`
	CropCycleID string            `json:"cropCycleId"`
	Source      domain.RiskSource `json:"source"`
	RiskLevel   domain.RiskLevel  `json:"riskLevel"`
	RiskType    string            `json:"riskType"`
	ETCLHours   *int              `json:"etclHours"`
	Summary     domain.Text       `json:"summary"`
	ComputedAt  time.Time         `json:"computedAt"`
}

// Stores groups the persistence collaborators of the Service.
type Stores struct {
	Farmers     FarmerStore
	CropCycles  CropCycleStore
	Definitions DefinitionStore
	Snapshots   SnapshotStore
}

// Service orchestrates a risk computation: lookups, weather, scoring, stage
// advice, persistence and alerting.
type Service struct {
	stores  Stores
	weather domain.WeatherProvider
	alerts  AlertSink
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewService creates a Service. A nil alerts sink disables alerting.
func NewService(stores Stores, weather domain.WeatherProvider, alerts AlertSink, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		stores:  stores,
		weather: weather,
		alerts:  alerts,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
	}
}

type resolved struct {
	farmer *domain.Farmer
	cycle  *domain.CropCycle
	def    *domain.CropDefinition
}

// ComputeForCropCycle scores the crop cycle's current spoilage risk, stores a
// snapshot, refreshes the cycle's risk summary and alerts the farmer when the
// risk is high or critical. Lookup failures abort before anything is written.
func (s *Service) ComputeForCropCycle(ctx context.Context, req Request) (Result, error) {
	start := s.clock.Now()
	if req.Source == "" {
		req.Source = domain.SourceOnDemand
	}
	if req.FarmerID == "" || req.CropCycleID == "" {
		s.recordError(req.Source, domain.ErrMissingIdentifier)
		return Result{}, domain.ErrMissingIdentifier
	}

	var (
		rec     resolved
		weather domain.WeatherSnapshot
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rec, err = s.resolve(gctx, req)
		return err
	})
	// Weather never fails the group and runs on ctx, so a lookup failure does
	// not cancel it mid-request.
	g.Go(func() error {
		weather = s.weather.CurrentWeather(ctx, req.Location)
		return nil
	})
	if err := g.Wait(); err != nil {
		s.recordError(req.Source, err)
		return Result{}, err
	}

	moisture := req.CurrentMoisturePercent
	if moisture == nil {
		moisture = rec.cycle.Batch.CurrentMoisturePercent
	}

	now := s.clock.Now()
	assessment := domain.ComputeETCL(domain.ScoreInput{
		CropName:               rec.def.Name,
		Profile:                *rec.def.StorageProfile,
		Weather:                weather,
		CurrentMoisturePercent: moisture,
	})
	stage := domain.EvaluateStageRules(*rec.def, *rec.cycle, weather, now)
	summary := domain.JoinText(assessment.Summary, stage.Advice)

	snapshot := domain.RiskSnapshot{
		ID:          uuid.NewString(),
		FarmerID:    req.FarmerID,
		CropCycleID: rec.cycle.ID,
		Source:      req.Source,
		ETCLHours:   assessment.ETCLHours,
		RiskLevel:   assessment.Level,
		RiskType:    assessment.Type,
		Summary:     summary,
		Inputs: domain.SnapshotInputs{
			TemperatureC:           weather.TemperatureC,
			HumidityPercent:        weather.HumidityPercent,
			RainProbabilityPercent: weather.RainProbabilityPercent,
			StorageType:            rec.cycle.Batch.StorageType,
			CurrentMoisturePercent: moisture,
			WeatherProvider:        weather.Provider,
		},
		CreatedAt: now,
	}
	if err := s.stores.Snapshots.CreateSnapshot(ctx, snapshot); err != nil {
		s.recordError(req.Source, err)
		return Result{}, fmt.Errorf("create risk snapshot: %w", err)
	}

	lang := domain.PreferredLanguage(rec.farmer.PreferredLanguage)
	if err := s.stores.CropCycles.UpdateRiskSummary(ctx, rec.cycle.ID, domain.RiskSummary{
		CurrentRiskLevel: assessment.Level,
		LastETCLHours:    assessment.ETCLHours,
		LastRiskReason:   summary.In(lang),
		LastUpdatedAt:    now,
	}); err != nil {
		s.recordError(req.Source, err)
		return Result{}, fmt.Errorf("update risk summary: %w", err)
	}

	if assessment.Level.Severe() {
		s.sendAlert(ctx, snapshot)
	}

	s.metrics.RiskComputations.WithLabelValues(string(req.Source), string(assessment.Level)).Inc()
	s.metrics.RiskComputationDuration.Observe(s.clock.Since(start).Seconds())
	s.logger.Info("risk computed",
		"crop_cycle_id", rec.cycle.ID,
		"source", req.Source,
		"level", assessment.Level,
		"type", assessment.Type,
		"stage", stageKey(stage),
	)

	return Result{
		SnapshotID:  snapshot.ID,
		FarmerID:    snapshot.FarmerID,
		CropCycleID: snapshot.CropCycleID,
		Source:      snapshot.Source,
		RiskLevel:   snapshot.RiskLevel,
		RiskType:    snapshot.RiskType,
		ETCLHours:   snapshot.ETCLHours,
		Summary:     snapshot.Summary,
		ComputedAt:  now,
	}, nil
}

func (s *Service) resolve(ctx context.Context, req Request) (resolved, error) {
	farmer, err := s.stores.Farmers.GetFarmer(ctx, req.FarmerID)
	if err != nil {
		return resolved{}, err
	}
	cycle, err := s.stores.CropCycles.GetCropCycle(ctx, req.FarmerID, req.CropCycleID)
	if err != nil {
		return resolved{}, err
	}
	def, err := s.stores.Definitions.GetDefinition(ctx, cycle.CropDefinitionCode)
	if err != nil {
		return resolved{}, err
	}
	if def.StorageProfile == nil {
		return resolved{}, domain.ErrStorageProfileMissing
	}
	return resolved{farmer: farmer, cycle: cycle, def: def}, nil
}

// sendAlert delivers the alert without failing the computation.
func (s *Service) sendAlert(ctx context.Context, snapshot domain.RiskSnapshot) {
	if s.alerts == nil {
		return
	}
	alert := domain.Notification{
		ID:          uuid.NewString(),
		FarmerID:    snapshot.FarmerID,
		CropCycleID: snapshot.CropCycleID,
		Type:        domain.NotificationRiskAlert,
		Level:       snapshot.RiskLevel,
		Title:       domain.RiskAlertTitle(snapshot.RiskLevel),
		Body:        snapshot.Summary,
		CreatedAt:   snapshot.CreatedAt,
	}
	if err := s.alerts.CreateRiskAlert(ctx, alert); err != nil {
		s.metrics.RiskAlerts.WithLabelValues(string(snapshot.RiskLevel), "failed").Inc()
		s.logger.Warn("risk alert delivery failed",
			"crop_cycle_id", snapshot.CropCycleID,
			"level", snapshot.RiskLevel,
			"error", err,
		)
		return
	}
	s.metrics.RiskAlerts.WithLabelValues(string(snapshot.RiskLevel), "sent").Inc()
}

func (s *Service) recordError(source domain.RiskSource, err error) {
	reason := "internal"
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		reason = "bad_request"
	case errors.Is(err, domain.ErrNotFound):
		reason = "not_found"
	}
	s.metrics.RiskComputationErrors.WithLabelValues(string(source), reason).Inc()
}

func stageKey(eval domain.StageEvaluation) string {
	if eval.Stage == nil {
		return ""
	}
	return eval.Stage.Key
}
