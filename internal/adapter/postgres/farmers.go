package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/couchcryptid/crop-risk-service/internal/domain"
)

// FarmerRepository stores farmers.
type FarmerRepository struct {
	db *pgxpool.Pool
}

// NewFarmerRepository creates a FarmerRepository.
func NewFarmerRepository(db *pgxpool.Pool) *FarmerRepository {
	return &FarmerRepository{db: db}
}

// GetFarmer returns domain.ErrFarmerNotFound for unknown IDs.
func (r *FarmerRepository) GetFarmer(ctx context.Context, farmerID string) (*domain.Farmer, error) {
	var f domain.Farmer
	err := r.db.QueryRow(ctx, `
		SELECT id, name, phone, preferred_language, created_at
		FROM farmers WHERE id = $1`, farmerID,
	).Scan(&f.ID, &f.Name, &f.Phone, &f.PreferredLanguage, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFarmerNotFound
		}
		return nil, fmt.Errorf("get farmer: %w", err)
	}
	return &f, nil
}

// UpsertFarmer inserts the farmer or updates its profile fields.
func (r *FarmerRepository) UpsertFarmer(ctx context.Context, f domain.Farmer) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO farmers (id, name, phone, preferred_language, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    phone = EXCLUDED.phone,
		    preferred_language = EXCLUDED.preferred_language`,
		f.ID, f.Name, f.Phone, f.PreferredLanguage, f.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert farmer: %w", err)
	}
	return nil
}
