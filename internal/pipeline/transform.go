package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/couchcryptid/crop-risk-service/internal/domain"
	"github.com/couchcryptid/crop-risk-service/internal/risk"
)

// ErrInvalidMessage marks a message that cannot be decoded into a weather
// update.
var ErrInvalidMessage = errors.New("invalid weather update message")

// RiskComputer computes risk for one crop cycle.
type RiskComputer interface {
	ComputeForCropCycle(ctx context.Context, req risk.Request) (risk.Result, error)
}

// RiskTransformer implements Transformer by running a risk computation for
// each weather update.
type RiskTransformer struct {
	computer RiskComputer
}

// NewTransformer creates a RiskTransformer.
func NewTransformer(computer RiskComputer) *RiskTransformer {
	return &RiskTransformer{computer: computer}
}

func (t *RiskTransformer) Transform(ctx context.Context, raw domain.RawEvent) (risk.Result, error) {
	update, err := domain.ParseWeatherUpdate(raw)
	if err != nil {
		return risk.Result{}, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}

	return t.computer.ComputeForCropCycle(ctx, risk.Request{
		FarmerID:               update.FarmerID,
		CropCycleID:            update.CropCycleID,
		Source:                 domain.SourceWeatherUpdate,
		Location:               update.Point(),
		CurrentMoisturePercent: update.CurrentMoisturePercent,
	})
}
