// Package cropcycle manages the lifecycle of farmer crop cycles.
package cropcycle

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"

	"github.com/couchcryptid/crop-risk-service/internal/domain"
)

// StartMode is the lifecycle point at which a farmer starts tracking a crop.
type StartMode string

const (
	StartPlanned   StartMode = "planned"
	StartPlanted   StartMode = "planted"
	StartHarvested StartMode = "harvested"
	StartStored    StartMode = "stored"
)

// Repository persists crop cycles.
type Repository interface {
	CreateCropCycle(ctx context.Context, cycle domain.CropCycle) error
	ListCropCycles(ctx context.Context, farmerID string, includeCompleted bool) ([]domain.CropCycle, error)
	GetCropCycle(ctx context.Context, farmerID, cropCycleID string) (*domain.CropCycle, error)
	UpdateCropCycle(ctx context.Context, cycle domain.CropCycle) error
}

// FarmerStore looks up farmers.
type FarmerStore interface {
	GetFarmer(ctx context.Context, farmerID string) (*domain.Farmer, error)
}

// DefinitionStore looks up crop definitions.
type DefinitionStore interface {
	GetDefinition(ctx context.Context, code string) (*domain.CropDefinition, error)
}

// CreateInput describes a new crop cycle.
type CreateInput struct {
	FarmerID               string
	CropDefinitionCode     string
	VarietyName            string
	FieldName              string
	FieldAreaDecimal       *float64
	StartMode              StartMode
	StartDate              *time.Time
	Location               *orb.Point
	StorageType            string
	CurrentMoisturePercent *float64
}

// StageUpdate moves a crop cycle to a new lifecycle stage.
type StageUpdate struct {
	FarmerID               string
	CropCycleID            string
	NewStage               domain.LifecycleStage
	Date                   *time.Time
	StorageType            string
	CurrentMoisturePercent *float64
}

// Service implements crop cycle operations.
type Service struct {
	repo        Repository
	farmers     FarmerStore
	definitions DefinitionStore
	clock       clockwork.Clock
	logger      *slog.Logger
}

// NewService creates a crop cycle Service.
func NewService(repo Repository, farmers FarmerStore, definitions DefinitionStore, clock clockwork.Clock, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		farmers:     farmers,
		definitions: definitions,
		clock:       clock,
		logger:      logger,
	}
}

// Create starts tracking a crop for a farmer. The start mode decides the
// initial stage and which milestone date is set.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.CropCycle, error) {
	if in.FarmerID == "" || in.CropDefinitionCode == "" {
		return nil, domain.ErrMissingIdentifier
	}

	def, err := s.definitions.GetDefinition(ctx, in.CropDefinitionCode)
	if err != nil {
		return nil, err
	}
	if !def.IsActive {
		return nil, domain.ErrCropDefinitionInactive
	}
	if _, err := s.farmers.GetFarmer(ctx, in.FarmerID); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	start := now
	if in.StartDate != nil {
		start = in.StartDate.UTC()
	}

	cycle := domain.CropCycle{
		ID:                 uuid.NewString(),
		FarmerID:           in.FarmerID,
		CropDefinitionCode: def.Code,
		Variety:            matchVariety(def.Varieties, in.VarietyName),
		Field:              domain.FieldInfo{AreaDecimal: in.FieldAreaDecimal, LocationName: in.FieldName},
		Location:           in.Location,
		Batch: domain.BatchInfo{
			StorageType:            in.StorageType,
			CurrentMoisturePercent: in.CurrentMoisturePercent,
		},
		RiskSummary: &domain.RiskSummary{CurrentRiskLevel: domain.RiskLow},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	switch in.StartMode {
	case StartPlanned:
		cycle.Stage = domain.StagePlanned
		cycle.Dates.PlannedPlantingAt = &start
	case StartPlanted:
		cycle.Stage = domain.StagePlanted
		cycle.Dates.PlantedAt = &start
	case StartHarvested:
		cycle.Stage = domain.StageHarvested
		cycle.Dates.HarvestedAt = &start
	case StartStored:
		cycle.Stage = domain.StageStored
		cycle.Dates.StorageStartedAt = &start
	default:
		return nil, domain.ErrInvalidStartMode
	}

	if err := s.repo.CreateCropCycle(ctx, cycle); err != nil {
		return nil, fmt.Errorf("create crop cycle: %w", err)
	}

	s.logger.Info("crop cycle created",
		"crop_cycle_id", cycle.ID,
		"farmer_id", cycle.FarmerID,
		"crop", cycle.CropDefinitionCode,
		"stage", cycle.Stage,
	)
	return &cycle, nil
}

// List returns the farmer's crop cycles, newest planting first. Completed
// cycles are left out unless includeCompleted is set.
func (s *Service) List(ctx context.Context, farmerID string, includeCompleted bool) ([]domain.CropCycle, error) {
	if farmerID == "" {
		return nil, domain.ErrMissingIdentifier
	}
	cycles, err := s.repo.ListCropCycles(ctx, farmerID, includeCompleted)
	if err != nil {
		return nil, fmt.Errorf("list crop cycles: %w", err)
	}
	return cycles, nil
}

// Get returns one crop cycle owned by the farmer.
func (s *Service) Get(ctx context.Context, farmerID, cropCycleID string) (*domain.CropCycle, error) {
	if farmerID == "" || cropCycleID == "" {
		return nil, domain.ErrMissingIdentifier
	}
	return s.repo.GetCropCycle(ctx, farmerID, cropCycleID)
}

// UpdateStage moves the crop cycle to planted, harvested, stored or completed
// and records the milestone date.
func (s *Service) UpdateStage(ctx context.Context, in StageUpdate) (*domain.CropCycle, error) {
	cycle, err := s.Get(ctx, in.FarmerID, in.CropCycleID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	at := now
	if in.Date != nil {
		at = in.Date.UTC()
	}

	switch in.NewStage {
	case domain.StagePlanted:
		cycle.Dates.PlantedAt = &at
	case domain.StageHarvested:
		cycle.Dates.HarvestedAt = &at
	case domain.StageStored:
		cycle.Dates.StorageStartedAt = &at
	case domain.StageCompleted:
		cycle.Dates.StorageEndAt = &at
	default:
		return nil, domain.ErrUnsupportedStageTransition
	}

	previous := cycle.Stage
	cycle.Stage = in.NewStage
	if in.StorageType != "" {
		cycle.Batch.StorageType = in.StorageType
	}
	if in.CurrentMoisturePercent != nil {
		cycle.Batch.CurrentMoisturePercent = in.CurrentMoisturePercent
	}
	cycle.UpdatedAt = now

	if err := s.repo.UpdateCropCycle(ctx, *cycle); err != nil {
		return nil, fmt.Errorf("update crop cycle: %w", err)
	}

	s.logger.Info("crop cycle stage updated",
		"crop_cycle_id", cycle.ID,
		"from", previous,
		"to", cycle.Stage,
	)
	return cycle, nil
}

// matchVariety finds the catalog variety named in either language. An unknown
// name is dropped.
func matchVariety(varieties []domain.Text, name string) domain.Text {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Text{}
	}
	for _, v := range varieties {
		if strings.EqualFold(v.En, name) || v.Bn == name {
			return v
		}
	}
	return domain.Text{}
}
