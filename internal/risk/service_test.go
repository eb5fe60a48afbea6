package risk_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/crop-risk-service/internal/domain"
	"github.com/couchcryptid/crop-risk-service/internal/observability"
	"github.com/couchcryptid/crop-risk-service/internal/risk"
)

// --- fakes ---

type fakeStore struct {
	mu          sync.Mutex
	farmers     map[string]*domain.Farmer
	cycles      map[string]*domain.CropCycle
	definitions map[string]*domain.CropDefinition
	snapshots   []domain.RiskSnapshot
	summaries   map[string]domain.RiskSummary

	snapshotErr error
	summaryErr  error
}

func (f *fakeStore) GetFarmer(_ context.Context, farmerID string) (*domain.Farmer, error) {
	farmer, ok := f.farmers[farmerID]
	if !ok {
		return nil, domain.ErrFarmerNotFound
	}
	return farmer, nil
}

func (f *fakeStore) GetCropCycle(_ context.Context, farmerID, cropCycleID string) (*domain.CropCycle, error) {
	cycle, ok := f.cycles[cropCycleID]
	if !ok || cycle.FarmerID != farmerID {
		return nil, domain.ErrCropCycleNotFound
	}
	return cycle, nil
}

func (f *fakeStore) UpdateRiskSummary(_ context.Context, cropCycleID string, summary domain.RiskSummary) error {
	if f.summaryErr != nil {
		return f.summaryErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaries[cropCycleID] = summary
	return nil
}

func (f *fakeStore) GetDefinition(_ context.Context, code string) (*domain.CropDefinition, error) {
	def, ok := f.definitions[code]
	if !ok {
		return nil, domain.ErrCropDefinitionNotFound
	}
	return def, nil
}

func (f *fakeStore) CreateSnapshot(_ context.Context, snapshot domain.RiskSnapshot) error {
	if f.snapshotErr != nil {
		return f.snapshotErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots = append(f.snapshots, snapshot)
	return nil
}

type fakeWeather struct {
	snapshot domain.WeatherSnapshot
	asked    []orb.Point
	delay    time.Duration
	ctxErr   error
}

func (f *fakeWeather) CurrentWeather(ctx context.Context, loc orb.Point) domain.WeatherSnapshot {
	f.asked = append(f.asked, loc)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.ctxErr = ctx.Err()
	return f.snapshot
}

type fakeAlerts struct {
	sent []domain.Notification
	err  error
}

func (f *fakeAlerts) CreateRiskAlert(_ context.Context, alert domain.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, alert)
	return nil
}

// --- fixtures ---

var now = time.Date(2025, time.May, 2, 6, 30, 0, 0, time.UTC)

func paddyDefinition() *domain.CropDefinition {
	return &domain.CropDefinition{
		Code:     "paddy_boro",
		Name:     domain.Text{Bn: "বোরো ধান", En: "Boro paddy"},
		IsActive: true,
		Stages: []domain.StageDefinition{
			{
				Key: "storage", Order: 7, LogicalPhase: domain.PhasePostHarvest,
				MinDayFromPlanting: 130, MaxDayFromPlanting: 400,
				WeatherRules: []domain.WeatherRule{{
					Condition: domain.WeatherCondition{MinRainProb: domain.Float(60)},
					Advice:    domain.Text{Bn: "গুদাম ঢেকে রাখুন।", En: "Cover the store."},
				}},
			},
		},
		StorageProfile: &domain.StorageProfile{
			IdealHumidity:    13,
			BadHumidity:      16,
			IdealTemperature: 25,
			BadTemperature:   32,
			SensitiveToRain:  true,
			HighTemperatureMessageTemplate: domain.Text{
				Bn: "তাপমাত্রা {currentTemp}°C।",
				En: "Store temperature is around {currentTemp}°C.",
			},
		},
	}
}

func newFixture(t *testing.T) (*fakeStore, *fakeWeather, *fakeAlerts, *risk.Service) {
	t.Helper()
	planted := now.Add(-150 * 24 * time.Hour)
	store := &fakeStore{
		farmers: map[string]*domain.Farmer{
			"farmer-1": {ID: "farmer-1", Name: "Rahim", PreferredLanguage: "en"},
		},
		cycles: map[string]*domain.CropCycle{
			"cycle-1": {
				ID:                 "cycle-1",
				FarmerID:           "farmer-1",
				CropDefinitionCode: "paddy_boro",
				Stage:              domain.StageStored,
				Dates:              domain.CycleDates{PlantedAt: &planted},
				Batch:              domain.BatchInfo{StorageType: "jute_bag", CurrentMoisturePercent: domain.Float(14)},
			},
		},
		definitions: map[string]*domain.CropDefinition{"paddy_boro": paddyDefinition()},
		summaries:   map[string]domain.RiskSummary{},
	}
	wx := &fakeWeather{snapshot: domain.WeatherSnapshot{
		Provider:               "test",
		TemperatureC:           domain.Float(30),
		HumidityPercent:        domain.Float(15),
		RainProbabilityPercent: domain.Float(70),
	}}
	alerts := &fakeAlerts{}
	svc := risk.NewService(
		risk.Stores{Farmers: store, CropCycles: store, Definitions: store, Snapshots: store},
		wx, alerts, clockwork.NewFakeClockAt(now), slog.Default(), observability.NewMetricsForTesting(),
	)
	return store, wx, alerts, svc
}

// --- tests ---

func TestComputeForCropCycle_HighRisk(t *testing.T) {
	store, wx, alerts, svc := newFixture(t)
	loc := orb.Point{90.41, 23.81}

	res, err := svc.ComputeForCropCycle(context.Background(), risk.Request{
		FarmerID:    "farmer-1",
		CropCycleID: "cycle-1",
		Source:      domain.SourceOnDemand,
		Location:    loc,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.RiskHigh, res.RiskLevel)
	assert.Equal(t, domain.RiskTypeTemperature, res.RiskType)
	require.NotNil(t, res.ETCLHours)
	assert.Equal(t, 24, *res.ETCLHours)
	assert.Equal(t, now, res.ComputedAt)
	assert.Equal(t,
		"Store temperature is around 30°C. In this condition, significant losses may start in approximately 24 hours. Cover the store.",
		res.Summary.En)
	assert.Equal(t, []orb.Point{loc}, wx.asked)

	require.Len(t, store.snapshots, 1)
	snap := store.snapshots[0]
	assert.Equal(t, res.SnapshotID, snap.ID)
	assert.Equal(t, domain.SourceOnDemand, snap.Source)
	assert.Equal(t, "jute_bag", snap.Inputs.StorageType)
	assert.Equal(t, "test", snap.Inputs.WeatherProvider)
	require.NotNil(t, snap.Inputs.CurrentMoisturePercent)
	assert.InDelta(t, 14.0, *snap.Inputs.CurrentMoisturePercent, 1e-9)
	assert.Equal(t, now, snap.CreatedAt)

	summary := store.summaries["cycle-1"]
	assert.Equal(t, domain.RiskHigh, summary.CurrentRiskLevel)
	assert.Equal(t, res.Summary.En, summary.LastRiskReason)
	assert.Equal(t, now, summary.LastUpdatedAt)

	require.Len(t, alerts.sent, 1)
	alert := alerts.sent[0]
	assert.Equal(t, domain.NotificationRiskAlert, alert.Type)
	assert.Equal(t, "farmer-1", alert.FarmerID)
	assert.Equal(t, "cycle-1", alert.CropCycleID)
	assert.Equal(t, domain.RiskAlertTitle(domain.RiskHigh), alert.Title)
	assert.Equal(t, res.Summary, alert.Body)
	assert.False(t, alert.IsRead)
}

func TestComputeForCropCycle_LowRiskSendsNoAlert(t *testing.T) {
	store, wx, alerts, svc := newFixture(t)
	wx.snapshot = domain.WeatherSnapshot{TemperatureC: domain.Float(24), HumidityPercent: domain.Float(12)}

	res, err := svc.ComputeForCropCycle(context.Background(), risk.Request{FarmerID: "farmer-1", CropCycleID: "cycle-1"})
	require.NoError(t, err)
	assert.Equal(t, domain.RiskLow, res.RiskLevel)
	assert.Equal(t, domain.RiskTypeNormal, res.RiskType)
	assert.Equal(t, domain.SourceOnDemand, res.Source)
	assert.Len(t, store.snapshots, 1)
	assert.Empty(t, alerts.sent)
}

func TestComputeForCropCycle_BengaliSummaryForBengaliFarmer(t *testing.T) {
	store, _, _, svc := newFixture(t)
	store.farmers["farmer-1"].PreferredLanguage = "bn"

	res, err := svc.ComputeForCropCycle(context.Background(), risk.Request{FarmerID: "farmer-1", CropCycleID: "cycle-1"})
	require.NoError(t, err)
	assert.Equal(t, res.Summary.Bn, store.summaries["cycle-1"].LastRiskReason)
}

func TestComputeForCropCycle_RequestMoistureOverridesBatch(t *testing.T) {
	store, _, _, svc := newFixture(t)

	_, err := svc.ComputeForCropCycle(context.Background(), risk.Request{
		FarmerID:               "farmer-1",
		CropCycleID:            "cycle-1",
		Source:                 domain.SourceWeatherUpdate,
		CurrentMoisturePercent: domain.Float(17.5),
	})
	require.NoError(t, err)
	require.Len(t, store.snapshots, 1)
	assert.InDelta(t, 17.5, *store.snapshots[0].Inputs.CurrentMoisturePercent, 1e-9)
	assert.Equal(t, domain.SourceWeatherUpdate, store.snapshots[0].Source)
}

func TestComputeForCropCycle_UnknownMoistureRendersPlaceholderDash(t *testing.T) {
	store, _, _, svc := newFixture(t)
	store.cycles["cycle-1"].Batch.CurrentMoisturePercent = nil
	store.definitions["paddy_boro"].StorageProfile.HighHumidityMessageTemplate = domain.Text{
		Bn: "{cropName} এর আর্দ্রতা {currentMoisture}%।",
		En: "{cropName} moisture is {currentMoisture}%, keep near {idealMoisture}%.",
	}

	res, err := svc.ComputeForCropCycle(context.Background(), risk.Request{FarmerID: "farmer-1", CropCycleID: "cycle-1"})
	require.NoError(t, err)

	assert.Equal(t, domain.RiskHigh, res.RiskLevel)
	assert.Contains(t, res.Summary.En, "Boro paddy moisture is –%, keep near 13%.")
	assert.Contains(t, res.Summary.Bn, "বোরো ধান এর আর্দ্রতা –%।")

	require.Len(t, store.snapshots, 1)
	assert.Nil(t, store.snapshots[0].Inputs.CurrentMoisturePercent)
	assert.Equal(t, res.Summary.En, store.summaries["cycle-1"].LastRiskReason)
}

func TestComputeForCropCycle_LookupFailureLeavesWeatherFetchRunning(t *testing.T) {
	store, wx, _, svc := newFixture(t)
	delete(store.farmers, "farmer-1")
	wx.delay = 50 * time.Millisecond

	_, err := svc.ComputeForCropCycle(context.Background(), risk.Request{FarmerID: "farmer-1", CropCycleID: "cycle-1"})
	require.ErrorIs(t, err, domain.ErrFarmerNotFound)
	require.Len(t, wx.asked, 1)
	assert.NoError(t, wx.ctxErr)
	assert.Empty(t, store.snapshots)
}

func TestComputeForCropCycle_LookupFailures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*fakeStore)
		req     risk.Request
		wantErr error
		class   error
	}{
		{
			name:    "unknown farmer",
			req:     risk.Request{FarmerID: "nobody", CropCycleID: "cycle-1"},
			wantErr: domain.ErrFarmerNotFound,
			class:   domain.ErrBadRequest,
		},
		{
			name:    "unknown cycle",
			req:     risk.Request{FarmerID: "farmer-1", CropCycleID: "missing"},
			wantErr: domain.ErrCropCycleNotFound,
			class:   domain.ErrNotFound,
		},
		{
			name: "cycle owned by another farmer",
			mutate: func(s *fakeStore) {
				s.farmers["farmer-2"] = &domain.Farmer{ID: "farmer-2"}
			},
			req:     risk.Request{FarmerID: "farmer-2", CropCycleID: "cycle-1"},
			wantErr: domain.ErrCropCycleNotFound,
			class:   domain.ErrNotFound,
		},
		{
			name: "definition missing",
			mutate: func(s *fakeStore) {
				delete(s.definitions, "paddy_boro")
			},
			req:     risk.Request{FarmerID: "farmer-1", CropCycleID: "cycle-1"},
			wantErr: domain.ErrCropDefinitionNotFound,
			class:   domain.ErrBadRequest,
		},
		{
			name: "storage profile missing",
			mutate: func(s *fakeStore) {
				s.definitions["paddy_boro"].StorageProfile = nil
			},
			req:     risk.Request{FarmerID: "farmer-1", CropCycleID: "cycle-1"},
			wantErr: domain.ErrStorageProfileMissing,
			class:   domain.ErrBadRequest,
		},
		{
			name:    "missing identifiers",
			req:     risk.Request{FarmerID: "farmer-1"},
			wantErr: domain.ErrMissingIdentifier,
			class:   domain.ErrBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _, alerts, svc := newFixture(t)
			if tt.mutate != nil {
				tt.mutate(store)
			}

			_, err := svc.ComputeForCropCycle(context.Background(), tt.req)
			require.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, tt.class)
			assert.Empty(t, store.snapshots)
			assert.Empty(t, store.summaries)
			assert.Empty(t, alerts.sent)
		})
	}
}

func TestComputeForCropCycle_SnapshotFailureSkipsSummary(t *testing.T) {
	store, _, alerts, svc := newFixture(t)
	store.snapshotErr = errors.New("db down")

	_, err := svc.ComputeForCropCycle(context.Background(), risk.Request{FarmerID: "farmer-1", CropCycleID: "cycle-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create risk snapshot")
	assert.Empty(t, store.summaries)
	assert.Empty(t, alerts.sent)
}

func TestComputeForCropCycle_SummaryFailureSkipsAlert(t *testing.T) {
	store, _, alerts, svc := newFixture(t)
	store.summaryErr = errors.New("db down")

	_, err := svc.ComputeForCropCycle(context.Background(), risk.Request{FarmerID: "farmer-1", CropCycleID: "cycle-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "update risk summary")
	assert.Len(t, store.snapshots, 1)
	assert.Empty(t, alerts.sent)
}

func TestComputeForCropCycle_AlertFailureDoesNotFail(t *testing.T) {
	store, _, alerts, svc := newFixture(t)
	alerts.err = errors.New("notification store unavailable")

	res, err := svc.ComputeForCropCycle(context.Background(), risk.Request{FarmerID: "farmer-1", CropCycleID: "cycle-1"})
	require.NoError(t, err)
	assert.Equal(t, domain.RiskHigh, res.RiskLevel)
	assert.Len(t, store.snapshots, 1)
	assert.Contains(t, store.summaries, "cycle-1")
}

func TestComputeForCropCycle_UnknownWeatherStillPersists(t *testing.T) {
	store, wx, alerts, svc := newFixture(t)
	wx.snapshot = domain.WeatherSnapshot{Provider: "open-meteo"}

	res, err := svc.ComputeForCropCycle(context.Background(), risk.Request{FarmerID: "farmer-1", CropCycleID: "cycle-1"})
	require.NoError(t, err)
	assert.Equal(t, domain.RiskLow, res.RiskLevel)
	require.NotNil(t, res.ETCLHours)
	assert.Equal(t, 96, *res.ETCLHours)
	require.Len(t, store.snapshots, 1)
	assert.Nil(t, store.snapshots[0].Inputs.TemperatureC)
	assert.Empty(t, alerts.sent)
}
