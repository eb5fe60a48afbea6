package domain

// LogicalPhase groups lifecycle stages so stage rules can be selected without
// knowing the exact stage key.
type LogicalPhase string

const (
	PhaseGrowing       LogicalPhase = "growing"
	PhasePreHarvest    LogicalPhase = "pre_harvest"
	PhaseHarvestWindow LogicalPhase = "harvest_window"
	PhasePostHarvest   LogicalPhase = "post_harvest"
)

// CropDefinition is the static configuration for one crop type.
type CropDefinition struct {
	Code           string            `json:"code" yaml:"code"`
	Name           Text              `json:"name" yaml:"name"`
	Varieties      []Text            `json:"varieties,omitempty" yaml:"varieties,omitempty"`
	IsActive       bool              `json:"isActive" yaml:"isActive"`
	Stages         []StageDefinition `json:"stages,omitempty" yaml:"stages,omitempty"`
	StorageProfile *StorageProfile   `json:"storageProfile,omitempty" yaml:"storageProfile,omitempty"`
}

// StorageProfile holds the thresholds that drive the risk score. The stress
// for a dimension ramps linearly from its ideal value (0) to its bad value (1).
type StorageProfile struct {
	IdealHumidity    float64 `json:"idealHumidity" yaml:"idealHumidity"`
	BadHumidity      float64 `json:"badHumidity" yaml:"badHumidity"`
	IdealTemperature float64 `json:"idealTemperature" yaml:"idealTemperature"`
	BadTemperature   float64 `json:"badTemperature" yaml:"badTemperature"`
	SensitiveToRain  bool    `json:"sensitiveToRain" yaml:"sensitiveToRain"`

	RecommendedStorageTypes []string `json:"recommendedStorageTypes,omitempty" yaml:"recommendedStorageTypes,omitempty"`
	StorageHints            []Text   `json:"storageHints,omitempty" yaml:"storageHints,omitempty"`

	HighHumidityMessageTemplate    Text `json:"highHumidityMessageTemplate,omitzero" yaml:"highHumidityMessageTemplate,omitempty"`
	HighTemperatureMessageTemplate Text `json:"highTemperatureMessageTemplate,omitzero" yaml:"highTemperatureMessageTemplate,omitempty"`
}

// StageDefinition describes one growth stage of a crop and the inclusive day
// range (counted from planting) it covers.
type StageDefinition struct {
	Key                string        `json:"key" yaml:"key"`
	Order              int           `json:"order" yaml:"order"`
	LogicalPhase       LogicalPhase  `json:"logicalPhase" yaml:"logicalPhase"`
	MinDayFromPlanting int           `json:"minDayFromPlanting" yaml:"minDayFromPlanting"`
	MaxDayFromPlanting int           `json:"maxDayFromPlanting" yaml:"maxDayFromPlanting"`
	Name               Text          `json:"name" yaml:"name"`
	WateringAdvice     Text          `json:"wateringAdvice,omitzero" yaml:"wateringAdvice,omitempty"`
	FertilizerAdvice   Text          `json:"fertilizerAdvice,omitzero" yaml:"fertilizerAdvice,omitempty"`
	GeneralAdvice      Text          `json:"generalAdvice,omitzero" yaml:"generalAdvice,omitempty"`
	CommonIssues       []Text        `json:"commonIssues,omitempty" yaml:"commonIssues,omitempty"`
	WeatherRules       []WeatherRule `json:"weatherRules,omitempty" yaml:"weatherRules,omitempty"`
}

// WeatherRule is stage advice that applies when the current weather falls
// inside the rule's bounds.
type WeatherRule struct {
	Condition WeatherCondition `json:"condition" yaml:"condition"`
	Advice    Text             `json:"advice" yaml:"advice"`
}

// WeatherCondition bounds are inclusive; a nil bound is unconstrained.
type WeatherCondition struct {
	MinTempC    *float64 `json:"minTempC,omitempty" yaml:"minTempC,omitempty"`
	MaxTempC    *float64 `json:"maxTempC,omitempty" yaml:"maxTempC,omitempty"`
	MinHumidity *float64 `json:"minHumidity,omitempty" yaml:"minHumidity,omitempty"`
	MaxHumidity *float64 `json:"maxHumidity,omitempty" yaml:"maxHumidity,omitempty"`
	MinRainProb *float64 `json:"minRainProb,omitempty" yaml:"minRainProb,omitempty"`
	MaxRainProb *float64 `json:"maxRainProb,omitempty" yaml:"maxRainProb,omitempty"`
}
