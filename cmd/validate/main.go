// Command validate checks the crop definition catalog end to end: schema
// integrity, stage day-range coverage, and a dry-run of the risk score against
// ideal and worst-case weather for every crop with a storage profile.
//
// Usage:
//
//	go run ./cmd/validate -catalog data/crop_definitions.yaml
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/crop-risk-service/internal/catalog"
	"github.com/couchcryptid/crop-risk-service/internal/domain"
)

var referenceTime = time.Date(2025, time.May, 1, 6, 0, 0, 0, time.UTC)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	catalogPath := flag.String("catalog", catalog.DefaultPath, "path to the crop definition catalog")
	flag.Parse()

	if code := run(*catalogPath); code != 0 {
		os.Exit(code)
	}
}

func run(catalogPath string) int {
	fmt.Println("=== Crop Catalog Validation ===")
	fmt.Println()

	defs, err := catalog.LoadFile(catalogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	report := catalog.Validate(defs)
	phases := []*phase{
		validateIntegrity(report),
		validateStageCoverage(defs),
		validateScoring(defs),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Definitions: %d, warnings: %d\n", len(defs), len(report.Warnings()))
	for _, w := range report.Warnings() {
		fmt.Printf("  \033[33m%s\033[0m\n", w)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func validateIntegrity(report catalog.Report) *phase {
	p := &phase{name: "Phase 1: Catalog integrity"}
	for _, e := range report.Errors() {
		p.errorf("%s", e)
	}
	return p
}

// lifecycleFor is the farmer-facing stage a cycle would be in during a
// logical phase.
var lifecycleFor = map[domain.LogicalPhase]domain.LifecycleStage{
	domain.PhaseGrowing:       domain.StageGrowing,
	domain.PhasePreHarvest:    domain.StagePreHarvest,
	domain.PhaseHarvestWindow: domain.StageHarvested,
	domain.PhasePostHarvest:   domain.StageStored,
}

// validateStageCoverage checks that a cycle sitting in the middle of each
// stage's day range resolves to that stage.
func validateStageCoverage(defs []domain.CropDefinition) *phase {
	p := &phase{name: "Phase 2: Stage coverage"}
	for _, def := range defs {
		for _, s := range def.Stages {
			lifecycle, ok := lifecycleFor[s.LogicalPhase]
			if !ok {
				continue // reported by phase 1
			}
			mid := (s.MinDayFromPlanting + s.MaxDayFromPlanting) / 2
			planted := referenceTime.AddDate(0, 0, -mid)
			cycle := domain.CropCycle{
				Stage: lifecycle,
				Dates: domain.CycleDates{PlantedAt: &planted},
			}

			got := domain.ActiveStage(def, cycle, referenceTime)
			switch {
			case got == nil:
				p.errorf("%s: day %d in %s resolved to no stage, want %q", def.Code, mid, lifecycle, s.Key)
			case got.Key != s.Key:
				p.errorf("%s: day %d in %s resolved to %q, want %q", def.Code, mid, lifecycle, got.Key, s.Key)
			}
		}
	}
	return p
}

// validateScoring runs the risk score at ideal and at worst-case weather.
// Ideal conditions must score low; worst-case must score critical.
func validateScoring(defs []domain.CropDefinition) *phase {
	p := &phase{name: "Phase 3: Scoring dry run"}
	for _, def := range defs {
		prof := def.StorageProfile
		if prof == nil {
			continue
		}

		ideal := domain.ComputeETCL(domain.ScoreInput{
			CropName: def.Name,
			Profile:  *prof,
			Weather: domain.WeatherSnapshot{
				TemperatureC:           domain.Float(prof.IdealTemperature),
				HumidityPercent:        domain.Float(prof.IdealHumidity),
				RainProbabilityPercent: domain.Float(0),
			},
		})
		if ideal.Level != domain.RiskLow {
			p.errorf("%s: ideal weather scored %s, want low", def.Code, ideal.Level)
		}
		checkSummary(p, def.Code, "ideal", ideal.Summary)

		if !(prof.BadTemperature > prof.IdealTemperature) && !(prof.BadHumidity > prof.IdealHumidity) && !prof.SensitiveToRain {
			p.errorf("%s: no dimension can raise risk", def.Code)
			continue
		}
		worst := domain.ComputeETCL(domain.ScoreInput{
			CropName: def.Name,
			Profile:  *prof,
			Weather: domain.WeatherSnapshot{
				TemperatureC:           domain.Float(prof.BadTemperature),
				HumidityPercent:        domain.Float(prof.BadHumidity),
				RainProbabilityPercent: domain.Float(100),
			},
			CurrentMoisturePercent: domain.Float(prof.BadHumidity),
		})
		if worst.Level != domain.RiskCritical {
			p.errorf("%s: worst-case weather scored %s, want critical", def.Code, worst.Level)
		}
		checkSummary(p, def.Code, "worst-case", worst.Summary)
	}
	return p
}

func checkSummary(p *phase, code, scenario string, summary domain.Text) {
	if summary.En == "" || summary.Bn == "" {
		p.errorf("%s: %s summary is missing a language: %+v", code, scenario, summary)
	}
	for _, s := range []string{summary.En, summary.Bn} {
		if strings.Contains(s, "{") {
			p.errorf("%s: %s summary has an unfilled placeholder: %q", code, scenario, s)
		}
	}
}
