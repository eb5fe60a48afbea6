package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/couchcryptid/crop-risk-service/internal/domain"
)

// SnapshotRepository stores the risk snapshot time series.
type SnapshotRepository struct {
	db *pgxpool.Pool
}

// NewSnapshotRepository creates a SnapshotRepository.
func NewSnapshotRepository(db *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// CreateSnapshot appends a risk snapshot.
func (r *SnapshotRepository) CreateSnapshot(ctx context.Context, s domain.RiskSnapshot) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO risk_snapshots
			(id, farmer_id, crop_cycle_id, source, etcl_hours, risk_level, risk_type, summary, inputs, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		s.ID, s.FarmerID, s.CropCycleID, s.Source, s.ETCLHours, s.RiskLevel, s.RiskType, s.Summary, s.Inputs, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert risk snapshot: %w", err)
	}
	return nil
}

// ListSnapshots returns up to limit snapshots of the farmer's crop cycle,
// newest first.
func (r *SnapshotRepository) ListSnapshots(ctx context.Context, farmerID, cropCycleID string, limit int) ([]domain.RiskSnapshot, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, farmer_id, crop_cycle_id, source, etcl_hours, risk_level, risk_type, summary, inputs, created_at
		FROM risk_snapshots
		WHERE farmer_id = $1 AND crop_cycle_id = $2
		ORDER BY created_at DESC
		LIMIT $3`, farmerID, cropCycleID, limit)
	if err != nil {
		return nil, fmt.Errorf("list risk snapshots: %w", err)
	}
	snapshots, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.RiskSnapshot, error) {
		var s domain.RiskSnapshot
		err := row.Scan(&s.ID, &s.FarmerID, &s.CropCycleID, &s.Source, &s.ETCLHours,
			&s.RiskLevel, &s.RiskType, &s.Summary, &s.Inputs, &s.CreatedAt)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("list risk snapshots: %w", err)
	}
	return snapshots, nil
}
