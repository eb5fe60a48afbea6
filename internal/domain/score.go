package domain

import (
	"math"
	"strconv"
)

// unknownValue is rendered in place of a weather or moisture reading that is
// not available.
const unknownValue = "–"

// ScoreInput is everything the risk score depends on.
type ScoreInput struct {
	CropName               Text
	Profile                StorageProfile
	Weather                WeatherSnapshot
	CurrentMoisturePercent *float64
}

// Stress holds the per-dimension stress values, each in [0,1].
type Stress struct {
	Humidity    float64 `json:"humidity"`
	Temperature float64 `json:"temperature"`
	Rain        float64 `json:"rain"`
}

// Max returns the largest of the three stress values.
func (s Stress) Max() float64 {
	return math.Max(s.Humidity, math.Max(s.Temperature, s.Rain))
}

// Assessment is the output of ComputeETCL.
type Assessment struct {
	ETCLHours *int      `json:"etclHours"`
	Level     RiskLevel `json:"riskLevel"`
	Type      string    `json:"riskType"`
	Summary   Text      `json:"summary"`
	Stress    Stress    `json:"stress"`
}

// ComputeETCL scores spoilage risk from storage thresholds, current weather
// and grain moisture. Unknown inputs contribute zero stress; the function has
// no failure path.
func ComputeETCL(in ScoreInput) Assessment {
	p := in.Profile
	w := in.Weather

	stress := Stress{
		Humidity:    rampStress(w.HumidityPercent, p.IdealHumidity, p.BadHumidity),
		Temperature: rampStress(w.TemperatureC, p.IdealTemperature, p.BadTemperature),
	}
	if p.SensitiveToRain && known(w.RainProbabilityPercent) {
		stress.Rain = clamp01(*w.RainProbabilityPercent / 100)
	}

	level, hours := riskBucket(stress.Max())
	return Assessment{
		ETCLHours: &hours,
		Level:     level,
		Type:      dominantRiskType(stress),
		Summary:   buildSummary(in, level, &hours),
		Stress:    stress,
	}
}

// rampStress maps v onto [0,1] between ideal and bad. The dimension is skipped
// (zero stress) when v is unknown or bad does not exceed ideal.
func rampStress(v *float64, ideal, bad float64) float64 {
	if !known(v) || !(bad > ideal) {
		return 0
	}
	return clamp01((*v - ideal) / (bad - ideal))
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}

// riskBucket maps max stress to a level and a fixed ETCL estimate. Upper
// bounds are inclusive.
func riskBucket(maxStress float64) (RiskLevel, int) {
	switch {
	case maxStress <= 0.2:
		return RiskLow, 96
	case maxStress <= 0.5:
		return RiskMedium, 48
	case maxStress <= 0.8:
		return RiskHigh, 24
	default:
		return RiskCritical, 6
	}
}

type causeStress struct {
	label  string
	stress float64
}

func dominantRiskType(s Stress) string {
	if s.Max() == 0 {
		return RiskTypeNormal
	}
	// Order is the tie-break priority.
	return strongestCause([]causeStress{
		{RiskTypeHumidity, s.Humidity},
		{RiskTypeTemperature, s.Temperature},
		{RiskTypeRainProbability, s.Rain},
	})
}

// strongestCause returns the label with the highest stress, keeping the
// earliest entry on ties. With nothing to choose from it is a combined risk.
func strongestCause(causes []causeStress) string {
	label := RiskTypeCombined
	best := math.Inf(-1)
	for _, c := range causes {
		if c.stress > best {
			label, best = c.label, c.stress
		}
	}
	return label
}

var (
	lowRiskFallback = Text{
		Bn: "বর্তমান তাপমাত্রা ও আর্দ্রতায় সংরক্ষণের ঝুঁকি কম। তবে নিয়মিত বাতাস চলাচল ও পরিষ্কার-পরিচ্ছন্নতা ঠিক রাখুন।",
		En: "At the current temperature and humidity, storage risk is low. Keep ventilation and cleanliness in good condition.",
	}
	generalRiskFallback = Text{
		Bn: "বর্তমান তাপমাত্রা ও আর্দ্রতায় ফসল নষ্ট হওয়ার ঝুঁকি বাড়তে পারে। যত দ্রুত সম্ভব গুদাম ও সংরক্ষণ ব্যবস্থা পরীক্ষা করুন।",
		En: "At the current temperature and humidity, the risk of spoilage may increase. Please check your storage conditions soon.",
	}
	insufficientDataSentence = Text{
		Bn: "পর্যাপ্ত তথ্য না থাকায় সঠিক সময় অনুমান করা যায়নি। সংরক্ষণ ব্যবস্থা নিয়মিত নজরে রাখুন।",
		En: "Due to limited data, we cannot estimate the exact time to damage. Please monitor your storage frequently.",
	}
)

func buildSummary(in ScoreInput, level RiskLevel, hours *int) Text {
	vars := templateVars(in)

	var parts []Text
	if t, ok := Render(in.Profile.HighHumidityMessageTemplate, vars); ok {
		parts = append(parts, t)
	}
	if t, ok := Render(in.Profile.HighTemperatureMessageTemplate, vars); ok {
		parts = append(parts, t)
	}

	advisory := JoinText(parts...)
	fallback := generalRiskFallback
	if level == RiskLow {
		fallback = lowRiskFallback
	}
	if advisory.Bn == "" {
		advisory.Bn = fallback.Bn
	}
	if advisory.En == "" {
		advisory.En = fallback.En
	}

	return JoinText(advisory, etclSentence(hours))
}

func etclSentence(hours *int) Text {
	if hours == nil {
		return insufficientDataSentence
	}
	h := strconv.Itoa(*hours)
	return Text{
		Bn: "এই অবস্থায় আনুমানিক " + h + " ঘণ্টার মধ্যে উল্লেখযোগ্য ক্ষতি শুরু হতে পারে।",
		En: "In this condition, significant losses may start in approximately " + h + " hours.",
	}
}

func templateVars(in ScoreInput) Vars {
	p := in.Profile
	w := in.Weather
	return Vars{
		"cropName":        cropDisplayName(in.CropName),
		"currentHumidity": formatWhole(w.HumidityPercent),
		"idealHumidity":   formatWhole(&p.IdealHumidity),
		"currentMoisture": formatWhole(in.CurrentMoisturePercent),
		"idealMoisture":   formatWhole(&p.IdealHumidity),
		"currentTemp":     formatTenths(w.TemperatureC),
		"idealTemp":       formatTenths(&p.IdealTemperature),
	}
}

// IsTemplateVar reports whether name is filled in when a storage profile's
// message templates are rendered.
func IsTemplateVar(name string) bool {
	_, ok := templateVars(ScoreInput{})[name]
	return ok
}

func cropDisplayName(name Text) Text {
	return Text{
		Bn: firstNonEmpty(name.Bn, name.En, "ফসল"),
		En: firstNonEmpty(name.En, name.Bn, "crop"),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func formatWhole(v *float64) string {
	if !known(v) {
		return unknownValue
	}
	r := math.Round(*v)
	if r == 0 {
		r = 0 // drop negative zero
	}
	return strconv.FormatFloat(r, 'f', 0, 64)
}

func formatTenths(v *float64) string {
	if !known(v) {
		return unknownValue
	}
	r := math.Round(*v*10) / 10
	if r == 0 {
		r = 0
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}
