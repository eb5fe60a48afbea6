//go:build integration

package postgres_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/couchcryptid/crop-risk-service/internal/adapter/postgres"
	"github.com/couchcryptid/crop-risk-service/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startPostgres(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()

	container, err := tcpostgres.Run(ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("crop_risk"),
		tcpostgres.WithUsername("crop"),
		tcpostgres.WithPassword("crop"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := postgres.NewPool(ctx, connStr, 5, time.Minute, time.Hour, discardLogger())
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, postgres.Migrate(ctx, pool, discardLogger()))
	return pool
}

func TestRepositories_RoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool := startPostgres(ctx, t)
	now := time.Date(2025, time.May, 2, 6, 30, 0, 0, time.UTC)

	farmers := postgres.NewFarmerRepository(pool)
	definitions := postgres.NewDefinitionRepository(pool)
	cycles := postgres.NewCropCycleRepository(pool)
	snapshots := postgres.NewSnapshotRepository(pool)
	notifications := postgres.NewNotificationRepository(pool)

	require.NoError(t, postgres.NewReadiness(pool).CheckReadiness(ctx))

	// Farmers.
	require.NoError(t, farmers.UpsertFarmer(ctx, domain.Farmer{ID: "farmer-1", Name: "Karim", PreferredLanguage: "bn", CreatedAt: now}))
	farmer, err := farmers.GetFarmer(ctx, "farmer-1")
	require.NoError(t, err)
	assert.Equal(t, "Karim", farmer.Name)
	_, err = farmers.GetFarmer(ctx, "nobody")
	require.ErrorIs(t, err, domain.ErrFarmerNotFound)

	// Definitions.
	def := domain.CropDefinition{
		Code:     "wheat",
		Name:     domain.Text{Bn: "গম", En: "Wheat"},
		IsActive: true,
		StorageProfile: &domain.StorageProfile{
			IdealHumidity: 12, BadHumidity: 14, IdealTemperature: 24, BadTemperature: 30,
		},
	}
	require.NoError(t, definitions.UpsertDefinition(ctx, def))
	require.NoError(t, definitions.UpsertDefinition(ctx, domain.CropDefinition{Code: "jute", IsActive: false}))

	got, err := definitions.GetDefinition(ctx, "wheat")
	require.NoError(t, err)
	assert.Equal(t, def, *got)
	_, err = definitions.GetDefinition(ctx, "mango")
	require.ErrorIs(t, err, domain.ErrCropDefinitionNotFound)

	active, err := definitions.ListDefinitions(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	all, err := definitions.ListDefinitions(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// Crop cycles.
	harvested := now.Add(-72 * time.Hour)
	loc := orb.Point{90.41, 23.81}
	cycle := domain.CropCycle{
		ID:                 "cycle-1",
		FarmerID:           "farmer-1",
		CropDefinitionCode: "wheat",
		Stage:              domain.StageHarvested,
		Location:           &loc,
		Dates:              domain.CycleDates{HarvestedAt: &harvested},
		Batch:              domain.BatchInfo{StorageType: "jute_bag", CurrentMoisturePercent: domain.Float(13.5)},
		RiskSummary:        &domain.RiskSummary{CurrentRiskLevel: domain.RiskLow},
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	require.NoError(t, cycles.CreateCropCycle(ctx, cycle))
	require.NoError(t, cycles.CreateCropCycle(ctx, domain.CropCycle{
		ID: "cycle-2", FarmerID: "farmer-1", CropDefinitionCode: "wheat", Stage: domain.StageCompleted,
		CreatedAt: now, UpdatedAt: now,
	}))

	stored, err := cycles.GetCropCycle(ctx, "farmer-1", "cycle-1")
	require.NoError(t, err)
	require.NotNil(t, stored.Location)
	assert.Equal(t, loc, *stored.Location)
	assert.True(t, harvested.Equal(*stored.Dates.HarvestedAt))
	assert.Equal(t, "jute_bag", stored.Batch.StorageType)

	_, err = cycles.GetCropCycle(ctx, "farmer-2", "cycle-1")
	require.ErrorIs(t, err, domain.ErrCropCycleNotFound)

	listed, err := cycles.ListCropCycles(ctx, "farmer-1", false)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	listed, err = cycles.ListCropCycles(ctx, "farmer-1", true)
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	candidates, err := cycles.ListRiskCandidates(ctx)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "cycle-1", candidates[0].ID)

	stored.Stage = domain.StageStored
	storageStart := now
	stored.Dates.StorageStartedAt = &storageStart
	require.NoError(t, cycles.UpdateCropCycle(ctx, *stored))

	hours := 24
	require.NoError(t, cycles.UpdateRiskSummary(ctx, "cycle-1", domain.RiskSummary{
		CurrentRiskLevel: domain.RiskHigh,
		LastETCLHours:    &hours,
		LastRiskReason:   "Store temperature is around 30°C.",
		LastUpdatedAt:    now,
	}))
	require.ErrorIs(t, cycles.UpdateRiskSummary(ctx, "missing", domain.RiskSummary{}), domain.ErrCropCycleNotFound)

	stored, err = cycles.GetCropCycle(ctx, "farmer-1", "cycle-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StageStored, stored.Stage)
	require.NotNil(t, stored.RiskSummary)
	assert.Equal(t, domain.RiskHigh, stored.RiskSummary.CurrentRiskLevel)
	assert.Equal(t, 24, *stored.RiskSummary.LastETCLHours)

	// Snapshots.
	for i, level := range []domain.RiskLevel{domain.RiskMedium, domain.RiskHigh} {
		require.NoError(t, snapshots.CreateSnapshot(ctx, domain.RiskSnapshot{
			ID:          []string{"snap-1", "snap-2"}[i],
			FarmerID:    "farmer-1",
			CropCycleID: "cycle-1",
			Source:      domain.SourceScheduledJob,
			ETCLHours:   &hours,
			RiskLevel:   level,
			RiskType:    domain.RiskTypeTemperature,
			Summary:     domain.Text{Bn: "সারাংশ", En: "summary"},
			Inputs:      domain.SnapshotInputs{TemperatureC: domain.Float(30), WeatherProvider: "open-meteo"},
			CreatedAt:   now.Add(time.Duration(i) * time.Hour),
		}))
	}
	history, err := snapshots.ListSnapshots(ctx, "farmer-1", "cycle-1", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "snap-2", history[0].ID)
	assert.Equal(t, domain.RiskHigh, history[0].RiskLevel)
	assert.InDelta(t, 30.0, *history[0].Inputs.TemperatureC, 1e-9)

	// Notifications.
	require.NoError(t, notifications.CreateRiskAlert(ctx, domain.Notification{
		ID:          "note-1",
		FarmerID:    "farmer-1",
		CropCycleID: "cycle-1",
		Type:        domain.NotificationRiskAlert,
		Level:       domain.RiskHigh,
		Title:       domain.RiskAlertTitle(domain.RiskHigh),
		Body:        domain.Text{En: "summary"},
		CreatedAt:   now,
	}))
	unread, err := notifications.ListNotifications(ctx, "farmer-1", true, 10)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "cycle-1", unread[0].CropCycleID)

	require.NoError(t, notifications.MarkRead(ctx, "farmer-1", "note-1"))
	require.ErrorIs(t, notifications.MarkRead(ctx, "farmer-2", "note-1"), domain.ErrNotificationNotFound)

	unread, err = notifications.ListNotifications(ctx, "farmer-1", true, 10)
	require.NoError(t, err)
	assert.Empty(t, unread)
}
