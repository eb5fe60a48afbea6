// Package scheduler periodically recomputes risk for every crop cycle that
// is harvested or in storage.
package scheduler

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/crop-risk-service/internal/domain"
	"github.com/couchcryptid/crop-risk-service/internal/observability"
	"github.com/couchcryptid/crop-risk-service/internal/risk"
)

// CandidateSource lists crop cycles eligible for a scheduled recompute.
type CandidateSource interface {
	ListRiskCandidates(ctx context.Context) ([]domain.CropCycle, error)
}

// RiskComputer runs a single risk computation.
type RiskComputer interface {
	ComputeForCropCycle(ctx context.Context, req risk.Request) (risk.Result, error)
}

// SweepStats summarizes one sweep. Candidates is always
// Succeeded + Failed + Skipped; cycles without a location are skipped.
type SweepStats struct {
	Candidates int
	Succeeded  int
	Failed     int
	Skipped    int
}

// Scheduler runs a sweep on start and then once per interval.
type Scheduler struct {
	candidates  CandidateSource
	computer    RiskComputer
	clock       clockwork.Clock
	interval    time.Duration
	concurrency int
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// New creates a Scheduler. A concurrency below 1 is treated as 1.
func New(candidates CandidateSource, computer RiskComputer, clock clockwork.Clock, interval time.Duration, concurrency int, logger *slog.Logger, metrics *observability.Metrics) *Scheduler {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Scheduler{
		candidates:  candidates,
		computer:    computer,
		clock:       clock,
		interval:    interval,
		concurrency: concurrency,
		logger:      logger,
		metrics:     metrics,
	}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval, "concurrency", s.concurrency)

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	s.runSweep(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return nil
		case <-ticker.Chan():
			s.runSweep(ctx)
		}
	}
}

func (s *Scheduler) runSweep(ctx context.Context) {
	stats, err := s.Sweep(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("risk sweep failed", "error", err)
		}
		return
	}
	s.logger.Info("risk sweep complete",
		"candidates", stats.Candidates,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"skipped", stats.Skipped,
	)
}

// Sweep recomputes risk for every candidate. A failure on one crop cycle is
// logged and counted; only a failure to list candidates is returned.
func (s *Scheduler) Sweep(ctx context.Context) (SweepStats, error) {
	s.metrics.SweepRuns.Inc()

	cycles, err := s.candidates.ListRiskCandidates(ctx)
	if err != nil {
		return SweepStats{}, err
	}

	var succeeded, failed atomic.Int64
	skipped := 0
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range cycles {
		c := cycles[i]
		if c.Location == nil {
			skipped++
			s.metrics.SweepCycles.WithLabelValues("skipped").Inc()
			s.logger.Debug("crop cycle has no location, skipping", "crop_cycle_id", c.ID)
			continue
		}
		g.Go(func() error {
			_, err := s.computer.ComputeForCropCycle(gctx, risk.Request{
				FarmerID:    c.FarmerID,
				CropCycleID: c.ID,
				Source:      domain.SourceScheduledJob,
				Location:    *c.Location,
			})
			if err != nil {
				failed.Add(1)
				s.metrics.SweepCycles.WithLabelValues("error").Inc()
				s.logger.Warn("scheduled risk computation failed",
					"crop_cycle_id", c.ID,
					"farmer_id", c.FarmerID,
					"error", err,
				)
				return nil
			}
			succeeded.Add(1)
			s.metrics.SweepCycles.WithLabelValues("success").Inc()
			return nil
		})
	}
	_ = g.Wait()

	return SweepStats{
		Candidates: len(cycles),
		Succeeded:  int(succeeded.Load()),
		Failed:     int(failed.Load()),
		Skipped:    skipped,
	}, nil
}
