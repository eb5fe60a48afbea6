package domain

import "time"

// RiskLevel is the coarse spoilage risk bucket.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Severe reports whether the level warrants an alert to the farmer.
func (l RiskLevel) Severe() bool {
	return l == RiskHigh || l == RiskCritical
}

// RiskSource records what triggered a risk computation.
type RiskSource string

const (
	SourceScheduledJob  RiskSource = "scheduled_job"
	SourceOnDemand      RiskSource = "on_demand"
	SourceWeatherUpdate RiskSource = "weather_update"
)

// ParseRiskSource accepts the two non-interactive sources and treats
// everything else as on_demand.
func ParseRiskSource(s string) RiskSource {
	switch RiskSource(s) {
	case SourceWeatherUpdate, SourceScheduledJob:
		return RiskSource(s)
	default:
		return SourceOnDemand
	}
}

// Risk type labels.
const (
	RiskTypeNormal          = "Normal"
	RiskTypeHumidity        = "High humidity"
	RiskTypeTemperature     = "High temperature"
	RiskTypeRainProbability = "High rain probability"
	RiskTypeCombined        = "Combined risk"
)

// RiskSnapshot is one persisted risk computation. Snapshots accumulate as a
// time series per crop cycle.
type RiskSnapshot struct {
	ID          string         `json:"id"`
	FarmerID    string         `json:"farmerId"`
	CropCycleID string         `json:"cropCycleId"`
	Source      RiskSource     `json:"source"`
	ETCLHours   *int           `json:"etclHours"`
	RiskLevel   RiskLevel      `json:"riskLevel"`
	RiskType    string         `json:"riskType"`
	Summary     Text           `json:"summary"`
	Inputs      SnapshotInputs `json:"inputs"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// SnapshotInputs are the raw values a snapshot was computed from.
type SnapshotInputs struct {
	TemperatureC           *float64 `json:"temperatureC,omitempty"`
	HumidityPercent        *float64 `json:"humidityPercent,omitempty"`
	RainProbabilityPercent *float64 `json:"rainProbabilityPercent,omitempty"`
	StorageType            string   `json:"storageType,omitempty"`
	CurrentMoisturePercent *float64 `json:"currentMoisturePercent,omitempty"`
	WeatherProvider        string   `json:"weatherProvider,omitempty"`
}

// NotificationType classifies farmer notifications.
type NotificationType string

const (
	NotificationWeatherAdvisory NotificationType = "weather_advisory"
	NotificationRiskAlert       NotificationType = "risk_alert"
	NotificationTaskSuggestion  NotificationType = "task_suggestion"
	NotificationBadgeEarned     NotificationType = "badge_earned"
	NotificationSystem          NotificationType = "system"
)

// Notification is a message delivered to a farmer.
type Notification struct {
	ID          string           `json:"id"`
	FarmerID    string           `json:"farmerId"`
	CropCycleID string           `json:"cropCycleId,omitempty"`
	Type        NotificationType `json:"type"`
	Level       RiskLevel        `json:"level,omitempty"`
	Title       Text             `json:"title"`
	Body        Text             `json:"body"`
	IsRead      bool             `json:"isRead"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// RiskAlertTitle returns the alert title for a severe risk level.
func RiskAlertTitle(level RiskLevel) Text {
	if level == RiskCritical {
		return Text{
			Bn: "জরুরি ঝুঁকি: ফসল দ্রুত নষ্ট হওয়ার সম্ভাবনা",
			En: "Critical risk: high chance of rapid spoilage",
		}
	}
	return Text{
		Bn: "উচ্চ ঝুঁকি: সংরক্ষণ অবস্থা দ্রুত পরীক্ষা করুন",
		En: "High risk: check storage conditions soon",
	}
}
