package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paulmach/orb"

	"github.com/couchcryptid/crop-risk-service/internal/domain"
)

const cropCycleColumns = `
	id, farmer_id, crop_definition_code, variety, stage, field_info,
	location_lon, location_lat,
	planned_planting_at, planted_at, expected_harvest_at, harvested_at,
	storage_started_at, storage_end_at,
	batch_info, risk_summary, created_at, updated_at`

// CropCycleRepository stores crop cycles.
type CropCycleRepository struct {
	db *pgxpool.Pool
}

// NewCropCycleRepository creates a CropCycleRepository.
func NewCropCycleRepository(db *pgxpool.Pool) *CropCycleRepository {
	return &CropCycleRepository{db: db}
}

// CreateCropCycle inserts a new crop cycle.
func (r *CropCycleRepository) CreateCropCycle(ctx context.Context, c domain.CropCycle) error {
	lon, lat := splitPoint(c.Location)
	d := c.Dates
	_, err := r.db.Exec(ctx, `
		INSERT INTO crop_cycles (`+cropCycleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		c.ID, c.FarmerID, c.CropDefinitionCode, c.Variety, c.Stage, c.Field,
		lon, lat,
		d.PlannedPlantingAt, d.PlantedAt, d.ExpectedHarvestAt, d.HarvestedAt,
		d.StorageStartedAt, d.StorageEndAt,
		c.Batch, c.RiskSummary, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert crop cycle: %w", err)
	}
	return nil
}

// GetCropCycle returns domain.ErrCropCycleNotFound when the cycle does not
// exist or is owned by another farmer.
func (r *CropCycleRepository) GetCropCycle(ctx context.Context, farmerID, cropCycleID string) (*domain.CropCycle, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+cropCycleColumns+`
		FROM crop_cycles WHERE id = $1 AND farmer_id = $2`, cropCycleID, farmerID)
	if err != nil {
		return nil, fmt.Errorf("get crop cycle: %w", err)
	}
	cycle, err := pgx.CollectExactlyOneRow(rows, scanCropCycle)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCropCycleNotFound
		}
		return nil, fmt.Errorf("get crop cycle: %w", err)
	}
	return &cycle, nil
}

// ListCropCycles returns the farmer's cycles, most recently planted first.
func (r *CropCycleRepository) ListCropCycles(ctx context.Context, farmerID string, includeCompleted bool) ([]domain.CropCycle, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+cropCycleColumns+`
		FROM crop_cycles
		WHERE farmer_id = $1 AND ($2 OR stage <> 'completed')
		ORDER BY planted_at DESC NULLS LAST, created_at DESC`, farmerID, includeCompleted)
	if err != nil {
		return nil, fmt.Errorf("list crop cycles: %w", err)
	}
	cycles, err := pgx.CollectRows(rows, scanCropCycle)
	if err != nil {
		return nil, fmt.Errorf("list crop cycles: %w", err)
	}
	return cycles, nil
}

// ListRiskCandidates returns harvested and stored cycles that have a
// location, oldest risk update first.
func (r *CropCycleRepository) ListRiskCandidates(ctx context.Context) ([]domain.CropCycle, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+cropCycleColumns+`
		FROM crop_cycles
		WHERE stage IN ('harvested', 'stored')
		  AND location_lon IS NOT NULL AND location_lat IS NOT NULL
		ORDER BY (risk_summary->>'lastUpdatedAt')::timestamptz NULLS FIRST, id`)
	if err != nil {
		return nil, fmt.Errorf("list risk candidates: %w", err)
	}
	cycles, err := pgx.CollectRows(rows, scanCropCycle)
	if err != nil {
		return nil, fmt.Errorf("list risk candidates: %w", err)
	}
	return cycles, nil
}

// UpdateCropCycle overwrites the mutable fields of a crop cycle.
func (r *CropCycleRepository) UpdateCropCycle(ctx context.Context, c domain.CropCycle) error {
	lon, lat := splitPoint(c.Location)
	d := c.Dates
	tag, err := r.db.Exec(ctx, `
		UPDATE crop_cycles SET
			variety = $3, stage = $4, field_info = $5,
			location_lon = $6, location_lat = $7,
			planned_planting_at = $8, planted_at = $9, expected_harvest_at = $10,
			harvested_at = $11, storage_started_at = $12, storage_end_at = $13,
			batch_info = $14, updated_at = $15
		WHERE id = $1 AND farmer_id = $2`,
		c.ID, c.FarmerID, c.Variety, c.Stage, c.Field,
		lon, lat,
		d.PlannedPlantingAt, d.PlantedAt, d.ExpectedHarvestAt,
		d.HarvestedAt, d.StorageStartedAt, d.StorageEndAt,
		c.Batch, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update crop cycle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCropCycleNotFound
	}
	return nil
}

// UpdateRiskSummary caches the latest risk computation on the cycle.
func (r *CropCycleRepository) UpdateRiskSummary(ctx context.Context, cropCycleID string, summary domain.RiskSummary) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE crop_cycles SET risk_summary = $2, updated_at = $3 WHERE id = $1`,
		cropCycleID, summary, summary.LastUpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update risk summary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCropCycleNotFound
	}
	return nil
}

func scanCropCycle(row pgx.CollectableRow) (domain.CropCycle, error) {
	var (
		c        domain.CropCycle
		lon, lat *float64
	)
	err := row.Scan(
		&c.ID, &c.FarmerID, &c.CropDefinitionCode, &c.Variety, &c.Stage, &c.Field,
		&lon, &lat,
		&c.Dates.PlannedPlantingAt, &c.Dates.PlantedAt, &c.Dates.ExpectedHarvestAt, &c.Dates.HarvestedAt,
		&c.Dates.StorageStartedAt, &c.Dates.StorageEndAt,
		&c.Batch, &c.RiskSummary, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return domain.CropCycle{}, err
	}
	if lon != nil && lat != nil {
		c.Location = &orb.Point{*lon, *lat}
	}
	return c, nil
}

func splitPoint(p *orb.Point) (lon, lat *float64) {
	if p == nil {
		return nil, nil
	}
	return &p[0], &p[1]
}
