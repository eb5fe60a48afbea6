package domain

import (
	"time"

	"github.com/paulmach/orb"
)

// LifecycleStage is the farmer-facing stage of a crop cycle.
type LifecycleStage string

const (
	StagePlanned    LifecycleStage = "planned"
	StagePlanted    LifecycleStage = "planted"
	StageGrowing    LifecycleStage = "growing"
	StagePreHarvest LifecycleStage = "pre_harvest"
	StageHarvested  LifecycleStage = "harvested"
	StageStored     LifecycleStage = "stored"
	StageCompleted  LifecycleStage = "completed"
)

// CropCycle is one planting of one crop by one farmer, from planning through
// storage.
type CropCycle struct {
	ID                 string         `json:"id"`
	FarmerID           string         `json:"farmerId"`
	CropDefinitionCode string         `json:"cropDefinitionCode"`
	Variety            Text           `json:"variety,omitzero"`
	Stage              LifecycleStage `json:"stage"`
	Field              FieldInfo      `json:"fieldInfo,omitzero"`
	Location           *orb.Point     `json:"location,omitempty"`
	Dates              CycleDates     `json:"dates"`
	Batch              BatchInfo      `json:"batchInfo,omitzero"`
	RiskSummary        *RiskSummary   `json:"riskSummary,omitempty"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
}

// FieldInfo describes where the crop is grown.
type FieldInfo struct {
	AreaDecimal  *float64 `json:"areaDecimal,omitempty"`
	LocationName string   `json:"locationName,omitempty"`
}

// CycleDates holds the milestone timestamps of a crop cycle. Nil means the
// milestone has not happened (or was never planned).
type CycleDates struct {
	PlannedPlantingAt *time.Time `json:"plannedPlantingAt,omitempty"`
	PlantedAt         *time.Time `json:"plantedAt,omitempty"`
	ExpectedHarvestAt *time.Time `json:"expectedHarvestAt,omitempty"`
	HarvestedAt       *time.Time `json:"harvestedAt,omitempty"`
	StorageStartedAt  *time.Time `json:"storageStartedAt,omitempty"`
	StorageEndAt      *time.Time `json:"storageEndAt,omitempty"`
}

// BatchInfo is the post-harvest state of the crop.
type BatchInfo struct {
	StorageType            string   `json:"storageType,omitempty"`
	CurrentMoisturePercent *float64 `json:"currentMoisturePercent,omitempty"`
	EstimatedWeightKg      *float64 `json:"estimatedWeightKg,omitempty"`
}

// RiskSummary caches the latest risk computation on the crop cycle.
type RiskSummary struct {
	CurrentRiskLevel RiskLevel `json:"currentRiskLevel"`
	LastETCLHours    *int      `json:"lastETCLHours,omitempty"`
	LastRiskReason   string    `json:"lastRiskReason"`
	LastUpdatedAt    time.Time `json:"lastUpdatedAt"`
}

// Farmer is the owner of crop cycles.
type Farmer struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Phone             string    `json:"phone,omitempty"`
	PreferredLanguage string    `json:"preferredLanguage"`
	CreatedAt         time.Time `json:"createdAt"`
}
