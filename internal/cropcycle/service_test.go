package cropcycle_test

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/crop-risk-service/internal/cropcycle"
	"github.com/couchcryptid/crop-risk-service/internal/domain"
)

type memRepo struct {
	cycles    map[string]domain.CropCycle
	createErr error
}

func newMemRepo() *memRepo {
	return &memRepo{cycles: map[string]domain.CropCycle{}}
}

func (m *memRepo) CreateCropCycle(_ context.Context, cycle domain.CropCycle) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.cycles[cycle.ID] = cycle
	return nil
}

func (m *memRepo) ListCropCycles(_ context.Context, farmerID string, includeCompleted bool) ([]domain.CropCycle, error) {
	var out []domain.CropCycle
	for _, c := range m.cycles {
		if c.FarmerID != farmerID {
			continue
		}
		if !includeCompleted && c.Stage == domain.StageCompleted {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memRepo) GetCropCycle(_ context.Context, farmerID, cropCycleID string) (*domain.CropCycle, error) {
	c, ok := m.cycles[cropCycleID]
	if !ok || c.FarmerID != farmerID {
		return nil, domain.ErrCropCycleNotFound
	}
	return &c, nil
}

func (m *memRepo) UpdateCropCycle(_ context.Context, cycle domain.CropCycle) error {
	m.cycles[cycle.ID] = cycle
	return nil
}

type staticLookups struct{}

func (staticLookups) GetFarmer(_ context.Context, farmerID string) (*domain.Farmer, error) {
	if farmerID != "farmer-1" {
		return nil, domain.ErrFarmerNotFound
	}
	return &domain.Farmer{ID: farmerID, PreferredLanguage: "bn"}, nil
}

func (staticLookups) GetDefinition(_ context.Context, code string) (*domain.CropDefinition, error) {
	switch code {
	case "paddy_aman":
		return &domain.CropDefinition{
			Code:     code,
			IsActive: true,
			Varieties: []domain.Text{
				{Bn: "ব্রি ধান ৪৯", En: "BRRI dhan49"},
				{Bn: "বিনা ধান ৭", En: "BINA dhan7"},
			},
		}, nil
	case "jute":
		return &domain.CropDefinition{Code: code, IsActive: false}, nil
	default:
		return nil, domain.ErrCropDefinitionNotFound
	}
}

var now = time.Date(2025, time.July, 15, 8, 0, 0, 0, time.UTC)

func newService() (*memRepo, *cropcycle.Service, *clockwork.FakeClock) {
	repo := newMemRepo()
	clock := clockwork.NewFakeClockAt(now)
	return repo, cropcycle.NewService(repo, staticLookups{}, staticLookups{}, clock, slog.Default()), clock
}

func TestCreate_StartModes(t *testing.T) {
	tests := []struct {
		mode  cropcycle.StartMode
		stage domain.LifecycleStage
		date  func(domain.CycleDates) *time.Time
	}{
		{cropcycle.StartPlanned, domain.StagePlanned, func(d domain.CycleDates) *time.Time { return d.PlannedPlantingAt }},
		{cropcycle.StartPlanted, domain.StagePlanted, func(d domain.CycleDates) *time.Time { return d.PlantedAt }},
		{cropcycle.StartHarvested, domain.StageHarvested, func(d domain.CycleDates) *time.Time { return d.HarvestedAt }},
		{cropcycle.StartStored, domain.StageStored, func(d domain.CycleDates) *time.Time { return d.StorageStartedAt }},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			repo, svc, _ := newService()

			cycle, err := svc.Create(context.Background(), cropcycle.CreateInput{
				FarmerID:           "farmer-1",
				CropDefinitionCode: "paddy_aman",
				StartMode:          tt.mode,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.stage, cycle.Stage)
			require.NotNil(t, tt.date(cycle.Dates))
			assert.Equal(t, now, *tt.date(cycle.Dates))
			require.NotNil(t, cycle.RiskSummary)
			assert.Equal(t, domain.RiskLow, cycle.RiskSummary.CurrentRiskLevel)
			assert.Contains(t, repo.cycles, cycle.ID)
		})
	}
}

func TestCreate_Details(t *testing.T) {
	_, svc, _ := newService()
	planted := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	loc := orb.Point{89.55, 22.84}

	cycle, err := svc.Create(context.Background(), cropcycle.CreateInput{
		FarmerID:               "farmer-1",
		CropDefinitionCode:     "paddy_aman",
		VarietyName:            "brri DHAN49",
		FieldName:              "North plot",
		FieldAreaDecimal:       domain.Float(33),
		StartMode:              cropcycle.StartPlanted,
		StartDate:              &planted,
		Location:               &loc,
		StorageType:            "jute_bag",
		CurrentMoisturePercent: domain.Float(14),
	})
	require.NoError(t, err)
	assert.Equal(t, "BRRI dhan49", cycle.Variety.En)
	assert.Equal(t, "North plot", cycle.Field.LocationName)
	assert.Equal(t, planted, *cycle.Dates.PlantedAt)
	assert.Equal(t, &loc, cycle.Location)
	assert.Equal(t, "jute_bag", cycle.Batch.StorageType)
	assert.Equal(t, now, cycle.CreatedAt)
}

func TestCreate_UnknownVarietyIsDropped(t *testing.T) {
	_, svc, _ := newService()
	cycle, err := svc.Create(context.Background(), cropcycle.CreateInput{
		FarmerID:           "farmer-1",
		CropDefinitionCode: "paddy_aman",
		VarietyName:        "mystery rice",
		StartMode:          cropcycle.StartPlanned,
	})
	require.NoError(t, err)
	assert.True(t, cycle.Variety.IsZero())
}

func TestCreate_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   cropcycle.CreateInput
		want error
	}{
		{"missing code", cropcycle.CreateInput{FarmerID: "farmer-1", StartMode: cropcycle.StartPlanted}, domain.ErrMissingIdentifier},
		{"unknown definition", cropcycle.CreateInput{FarmerID: "farmer-1", CropDefinitionCode: "mango", StartMode: cropcycle.StartPlanted}, domain.ErrCropDefinitionNotFound},
		{"inactive definition", cropcycle.CreateInput{FarmerID: "farmer-1", CropDefinitionCode: "jute", StartMode: cropcycle.StartPlanted}, domain.ErrCropDefinitionInactive},
		{"unknown farmer", cropcycle.CreateInput{FarmerID: "ghost", CropDefinitionCode: "paddy_aman", StartMode: cropcycle.StartPlanted}, domain.ErrFarmerNotFound},
		{"bad start mode", cropcycle.CreateInput{FarmerID: "farmer-1", CropDefinitionCode: "paddy_aman", StartMode: "sowing"}, domain.ErrInvalidStartMode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, svc, _ := newService()
			_, err := svc.Create(context.Background(), tt.in)
			require.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, domain.ErrBadRequest)
			assert.Empty(t, repo.cycles)
		})
	}
}

func TestCreate_RepositoryError(t *testing.T) {
	repo, svc, _ := newService()
	repo.createErr = errors.New("connection reset")

	_, err := svc.Create(context.Background(), cropcycle.CreateInput{
		FarmerID: "farmer-1", CropDefinitionCode: "paddy_aman", StartMode: cropcycle.StartPlanted,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create crop cycle")
}

func TestList_ExcludesCompletedByDefault(t *testing.T) {
	repo, svc, clock := newService()
	ctx := context.Background()

	first, err := svc.Create(ctx, cropcycle.CreateInput{FarmerID: "farmer-1", CropDefinitionCode: "paddy_aman", StartMode: cropcycle.StartPlanted})
	require.NoError(t, err)
	clock.Advance(time.Hour)
	second, err := svc.Create(ctx, cropcycle.CreateInput{FarmerID: "farmer-1", CropDefinitionCode: "paddy_aman", StartMode: cropcycle.StartStored})
	require.NoError(t, err)
	_, err = svc.UpdateStage(ctx, cropcycle.StageUpdate{FarmerID: "farmer-1", CropCycleID: first.ID, NewStage: domain.StageCompleted})
	require.NoError(t, err)
	require.Len(t, repo.cycles, 2)

	active, err := svc.List(ctx, "farmer-1", false)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second.ID, active[0].ID)

	all, err := svc.List(ctx, "farmer-1", true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestGet_NotOwned(t *testing.T) {
	_, svc, _ := newService()
	cycle, err := svc.Create(context.Background(), cropcycle.CreateInput{FarmerID: "farmer-1", CropDefinitionCode: "paddy_aman", StartMode: cropcycle.StartPlanted})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), "farmer-2", cycle.ID)
	require.ErrorIs(t, err, domain.ErrCropCycleNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateStage(t *testing.T) {
	repo, svc, clock := newService()
	ctx := context.Background()
	cycle, err := svc.Create(ctx, cropcycle.CreateInput{FarmerID: "farmer-1", CropDefinitionCode: "paddy_aman", StartMode: cropcycle.StartPlanted})
	require.NoError(t, err)

	clock.Advance(24 * time.Hour)
	harvested := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)
	updated, err := svc.UpdateStage(ctx, cropcycle.StageUpdate{
		FarmerID:               "farmer-1",
		CropCycleID:            cycle.ID,
		NewStage:               domain.StageHarvested,
		Date:                   &harvested,
		CurrentMoisturePercent: domain.Float(19),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StageHarvested, updated.Stage)
	assert.Equal(t, harvested, *updated.Dates.HarvestedAt)
	assert.InDelta(t, 19.0, *updated.Batch.CurrentMoisturePercent, 1e-9)
	assert.Equal(t, now.Add(24*time.Hour), updated.UpdatedAt)

	stored, err := svc.UpdateStage(ctx, cropcycle.StageUpdate{
		FarmerID: "farmer-1", CropCycleID: cycle.ID, NewStage: domain.StageStored, StorageType: "metal_silo",
	})
	require.NoError(t, err)
	assert.Equal(t, now.Add(24*time.Hour), *stored.Dates.StorageStartedAt)
	assert.Equal(t, "metal_silo", repo.cycles[cycle.ID].Batch.StorageType)
}

func TestUpdateStage_UnsupportedTransition(t *testing.T) {
	_, svc, _ := newService()
	ctx := context.Background()
	cycle, err := svc.Create(ctx, cropcycle.CreateInput{FarmerID: "farmer-1", CropDefinitionCode: "paddy_aman", StartMode: cropcycle.StartPlanted})
	require.NoError(t, err)

	for _, stage := range []domain.LifecycleStage{domain.StagePlanned, domain.StageGrowing, domain.StagePreHarvest, "bogus"} {
		_, err := svc.UpdateStage(ctx, cropcycle.StageUpdate{FarmerID: "farmer-1", CropCycleID: cycle.ID, NewStage: stage})
		require.ErrorIs(t, err, domain.ErrUnsupportedStageTransition, string(stage))
	}
}

func TestUpdateStage_NotFound(t *testing.T) {
	_, svc, _ := newService()
	_, err := svc.UpdateStage(context.Background(), cropcycle.StageUpdate{
		FarmerID: "farmer-1", CropCycleID: "missing", NewStage: domain.StagePlanted,
	})
	require.ErrorIs(t, err, domain.ErrCropCycleNotFound)
}
