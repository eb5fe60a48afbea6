// Package catalog loads and checks the crop definition catalog, a YAML file
// listing every crop the service can score.
package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/crop-risk-service/internal/domain"
)

// DefaultPath is where the bundled catalog lives relative to the repo root.
const DefaultPath = "data/crop_definitions.yaml"

type file struct {
	Definitions []domain.CropDefinition `yaml:"definitions"`
}

// Load decodes a catalog. Unknown keys are rejected so typos in threshold
// names do not silently become zero values.
func Load(r io.Reader) ([]domain.CropDefinition, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f file
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("catalog is empty")
		}
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return f.Definitions, nil
}

// LoadFile reads and decodes the catalog at path.
func LoadFile(path string) ([]domain.CropDefinition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Severity of a catalog issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one problem found in a crop definition.
type Issue struct {
	Code     string
	Severity Severity
	Message  string
}

func (i Issue) String() string {
	code := i.Code
	if code == "" {
		code = "<no code>"
	}
	return fmt.Sprintf("%s: %s: %s", i.Severity, code, i.Message)
}

// Report collects the issues found by Validate.
type Report struct {
	Issues []Issue
}

// HasErrors reports whether any issue has error severity.
func (r Report) HasErrors() bool {
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns the error-severity issues.
func (r Report) Errors() []Issue { return r.filter(SeverityError) }

// Warnings returns the warning-severity issues.
func (r Report) Warnings() []Issue { return r.filter(SeverityWarning) }

func (r Report) filter(s Severity) []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == s {
			out = append(out, i)
		}
	}
	return out
}

func (r *Report) errorf(code, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{Code: code, Severity: SeverityError, Message: fmt.Sprintf(format, args...)})
}

func (r *Report) warnf(code, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{Code: code, Severity: SeverityWarning, Message: fmt.Sprintf(format, args...)})
}

var knownPhases = map[domain.LogicalPhase]bool{
	domain.PhaseGrowing:       true,
	domain.PhasePreHarvest:    true,
	domain.PhaseHarvestWindow: true,
	domain.PhasePostHarvest:   true,
}

// Validate checks every definition. Errors make a definition unusable;
// warnings flag data the risk score will quietly ignore.
func Validate(defs []domain.CropDefinition) Report {
	var r Report
	codes := make(map[string]bool, len(defs))
	for i := range defs {
		d := &defs[i]
		if d.Code == "" {
			r.errorf("", "definition #%d has no code", i+1)
		} else if codes[d.Code] {
			r.errorf(d.Code, "duplicate code")
		}
		codes[d.Code] = true

		if d.Name.En == "" && d.Name.Bn == "" {
			r.errorf(d.Code, "name is empty")
		}
		validateStages(&r, d)
		validateProfile(&r, d)
	}
	return r
}

func validateStages(r *Report, d *domain.CropDefinition) {
	keys := make(map[string]bool, len(d.Stages))
	orders := make(map[int]bool, len(d.Stages))
	for _, s := range d.Stages {
		switch {
		case s.Key == "":
			r.errorf(d.Code, "stage with order %d has no key", s.Order)
		case keys[s.Key]:
			r.errorf(d.Code, "duplicate stage key %q", s.Key)
		}
		keys[s.Key] = true

		if orders[s.Order] {
			r.errorf(d.Code, "duplicate stage order %d", s.Order)
		}
		orders[s.Order] = true

		if !knownPhases[s.LogicalPhase] {
			r.errorf(d.Code, "stage %q has unknown logical phase %q", s.Key, s.LogicalPhase)
		}
		if s.MinDayFromPlanting < 0 || s.MaxDayFromPlanting < s.MinDayFromPlanting {
			r.errorf(d.Code, "stage %q has invalid day range %d..%d", s.Key, s.MinDayFromPlanting, s.MaxDayFromPlanting)
		}
	}

	sorted := make([]domain.StageDefinition, len(d.Stages))
	copy(sorted, d.Stages)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if cur.MinDayFromPlanting <= prev.MaxDayFromPlanting {
			r.warnf(d.Code, "stages %q and %q overlap on day %d", prev.Key, cur.Key, cur.MinDayFromPlanting)
		}
	}
}

func validateProfile(r *Report, d *domain.CropDefinition) {
	p := d.StorageProfile
	if p == nil {
		if d.IsActive {
			r.warnf(d.Code, "active definition has no storage profile; risk cannot be computed")
		}
		return
	}
	if p.BadHumidity <= p.IdealHumidity {
		r.warnf(d.Code, "badHumidity %.0f does not exceed idealHumidity %.0f; humidity is ignored by the risk score", p.BadHumidity, p.IdealHumidity)
	}
	if p.BadTemperature <= p.IdealTemperature {
		r.warnf(d.Code, "badTemperature %.0f does not exceed idealTemperature %.0f; temperature is ignored by the risk score", p.BadTemperature, p.IdealTemperature)
	}
	checkTemplate(r, d.Code, "highHumidityMessageTemplate", p.HighHumidityMessageTemplate)
	checkTemplate(r, d.Code, "highTemperatureMessageTemplate", p.HighTemperatureMessageTemplate)
}

func checkTemplate(r *Report, code, field string, tmpl domain.Text) {
	for _, name := range domain.Placeholders(tmpl) {
		if !domain.IsTemplateVar(name) {
			r.warnf(code, "%s uses unknown placeholder {%s}", field, name)
		}
	}
}
