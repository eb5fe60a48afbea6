package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/couchcryptid/crop-risk-service/internal/domain"
)

// DefinitionRepository stores crop definitions as JSONB documents keyed by
// crop code.
type DefinitionRepository struct {
	db *pgxpool.Pool
}

// NewDefinitionRepository creates a DefinitionRepository.
func NewDefinitionRepository(db *pgxpool.Pool) *DefinitionRepository {
	return &DefinitionRepository{db: db}
}

// GetDefinition returns domain.ErrCropDefinitionNotFound for unknown codes.
// Inactive definitions are returned; callers decide whether that matters.
func (r *DefinitionRepository) GetDefinition(ctx context.Context, code string) (*domain.CropDefinition, error) {
	var def domain.CropDefinition
	err := r.db.QueryRow(ctx, `SELECT definition FROM crop_definitions WHERE code = $1`, code).Scan(&def)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCropDefinitionNotFound
		}
		return nil, fmt.Errorf("get crop definition: %w", err)
	}
	return &def, nil
}

// ListDefinitions returns definitions ordered by code.
func (r *DefinitionRepository) ListDefinitions(ctx context.Context, activeOnly bool) ([]domain.CropDefinition, error) {
	rows, err := r.db.Query(ctx, `
		SELECT definition FROM crop_definitions
		WHERE is_active OR NOT $1
		ORDER BY code`, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list crop definitions: %w", err)
	}
	defs, err := pgx.CollectRows(rows, pgx.RowTo[domain.CropDefinition])
	if err != nil {
		return nil, fmt.Errorf("list crop definitions: %w", err)
	}
	return defs, nil
}

// UpsertDefinition replaces the stored definition for def.Code.
func (r *DefinitionRepository) UpsertDefinition(ctx context.Context, def domain.CropDefinition) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO crop_definitions (code, is_active, definition, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (code) DO UPDATE
		SET is_active = EXCLUDED.is_active,
		    definition = EXCLUDED.definition,
		    updated_at = now()`,
		def.Code, def.IsActive, def,
	)
	if err != nil {
		return fmt.Errorf("upsert crop definition %s: %w", def.Code, err)
	}
	return nil
}
