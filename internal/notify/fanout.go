// Package notify delivers risk alerts to every configured destination.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/crop-risk-service/internal/domain"
)

// Sink receives risk-alert notifications.
type Sink interface {
	CreateRiskAlert(ctx context.Context, alert domain.Notification) error
}

// Target is a named Sink. Required targets fail the delivery; optional ones
// are logged and ignored.
type Target struct {
	Name     string
	Sink     Sink
	Required bool
}

// Fanout delivers each alert to all targets in order.
type Fanout struct {
	targets []Target
	logger  *slog.Logger
}

// NewFanout creates a Fanout over the given targets.
func NewFanout(logger *slog.Logger, targets ...Target) *Fanout {
	return &Fanout{targets: targets, logger: logger}
}

// CreateRiskAlert delivers the alert to every target. All targets are
// attempted; the joined errors of required targets are returned.
func (f *Fanout) CreateRiskAlert(ctx context.Context, alert domain.Notification) error {
	var errs []error
	for _, t := range f.targets {
		if err := t.Sink.CreateRiskAlert(ctx, alert); err != nil {
			if t.Required {
				errs = append(errs, fmt.Errorf("%s: %w", t.Name, err))
				continue
			}
			f.logger.Warn("optional alert target failed",
				"target", t.Name,
				"notification_id", alert.ID,
				"error", err,
			)
		}
	}
	return errors.Join(errs...)
}
