package domain

import (
	"math"
	"time"
)

// StageEvaluation is the result of matching a crop cycle against its crop
// definition's stages and weather rules.
type StageEvaluation struct {
	Stage        *StageDefinition `json:"stage,omitempty"`
	MatchedRules []WeatherRule    `json:"matchedRules,omitempty"`
	Advice       Text             `json:"advice,omitzero"`
}

// PhaseForStage maps a lifecycle stage to its logical phase. Planned cycles
// (and unknown stages) have no phase.
func PhaseForStage(stage LifecycleStage) (LogicalPhase, bool) {
	switch stage {
	case StagePlanted, StageGrowing:
		return PhaseGrowing, true
	case StagePreHarvest:
		return PhasePreHarvest, true
	case StageHarvested:
		return PhaseHarvestWindow, true
	case StageStored, StageCompleted:
		return PhasePostHarvest, true
	default:
		return "", false
	}
}

// DaysSincePlanting returns whole days elapsed since the cycle was planted,
// falling back to the planned planting date. The second result is false when
// neither date is set.
func DaysSincePlanting(dates CycleDates, now time.Time) (int, bool) {
	start := dates.PlantedAt
	if start == nil {
		start = dates.PlannedPlantingAt
	}
	if start == nil {
		return 0, false
	}
	days := math.Floor(now.Sub(*start).Hours() / 24)
	return int(days), true
}

// ActiveStage picks the stage definition that applies to the cycle now: the
// stage of the matching phase whose day range contains the elapsed days, or
// the lowest-order stage of that phase.
func ActiveStage(def CropDefinition, cycle CropCycle, now time.Time) *StageDefinition {
	phase, ok := PhaseForStage(cycle.Stage)
	if !ok {
		return nil
	}

	var candidates []*StageDefinition
	for i := range def.Stages {
		if def.Stages[i].LogicalPhase == phase {
			candidates = append(candidates, &def.Stages[i])
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	if days, ok := DaysSincePlanting(cycle.Dates, now); ok {
		for _, s := range candidates {
			if s.MinDayFromPlanting <= days && days <= s.MaxDayFromPlanting {
				return s
			}
		}
	}

	lowest := candidates[0]
	for _, s := range candidates[1:] {
		if s.Order < lowest.Order {
			lowest = s
		}
	}
	return lowest
}

// Matches reports whether every bound of the condition holds for the weather.
// A bound is skipped when either the bound or the weather value is unknown.
func (c WeatherCondition) Matches(w WeatherSnapshot) bool {
	return atLeast(w.TemperatureC, c.MinTempC) &&
		atMost(w.TemperatureC, c.MaxTempC) &&
		atLeast(w.HumidityPercent, c.MinHumidity) &&
		atMost(w.HumidityPercent, c.MaxHumidity) &&
		atLeast(w.RainProbabilityPercent, c.MinRainProb) &&
		atMost(w.RainProbabilityPercent, c.MaxRainProb)
}

func atLeast(v, bound *float64) bool {
	if !known(v) || !known(bound) {
		return true
	}
	return *v >= *bound
}

func atMost(v, bound *float64) bool {
	if !known(v) || !known(bound) {
		return true
	}
	return *v <= *bound
}

// EvaluateStageRules resolves the active stage and collects the advice of
// every weather rule that matches the current weather.
func EvaluateStageRules(def CropDefinition, cycle CropCycle, weather WeatherSnapshot, now time.Time) StageEvaluation {
	stage := ActiveStage(def, cycle, now)
	if stage == nil {
		return StageEvaluation{}
	}

	eval := StageEvaluation{Stage: stage}
	advice := make([]Text, 0, len(stage.WeatherRules))
	for _, rule := range stage.WeatherRules {
		if rule.Condition.Matches(weather) {
			eval.MatchedRules = append(eval.MatchedRules, rule)
			advice = append(advice, rule.Advice)
		}
	}
	eval.Advice = JoinText(advice...)
	return eval
}
