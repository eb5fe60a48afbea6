package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"

	"github.com/couchcryptid/crop-risk-service/internal/domain"
	"github.com/couchcryptid/crop-risk-service/internal/observability"
	"github.com/couchcryptid/crop-risk-service/internal/risk"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second

	// maxTransformAttempts bounds attempts per message before it is skipped.
	maxTransformAttempts = 3
)

// BatchExtractor reads up to batchSize raw events from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer turns a raw weather-update event into a risk result.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (risk.Result, error)
}

// BatchLoader publishes risk results to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, results []risk.Result) error
}

// Pipeline orchestrates the extract-compute-load loop for weather updates.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	batchSize   int
	backoff     time.Duration
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
		backoff:     initialBackoff,
	}
}

// Run executes the batch loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx) {
			return nil
		}
	}
}

// processBatch runs one extract-compute-load cycle. Returns false if the
// pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context) bool {
	start := time.Now()

	rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx)
	}

	if len(rawBatch) == 0 {
		return ctx.Err() == nil
	}

	p.metrics.MessagesConsumed.Add(float64(len(rawBatch)))
	p.metrics.BatchSize.Observe(float64(len(rawBatch)))
	p.backoff = initialBackoff

	loaded, ok := p.transformAndLoad(ctx, rawBatch)
	if !ok {
		return false
	}

	if loaded > 0 {
		p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	}
	return true
}

// transformAndLoad computes a result for each message, publishes the results
// and commits offsets. Messages that can never succeed are committed and
// skipped; transient failures are retried with backoff. Returns the number of
// published results and false if the pipeline should stop.
func (p *Pipeline) transformAndLoad(ctx context.Context, rawBatch []domain.RawEvent) (int, bool) {
	results := make([]risk.Result, 0, len(rawBatch))
	successfulRaws := make([]domain.RawEvent, 0, len(rawBatch))

	for _, raw := range rawBatch {
		res, ok, cont := p.transform(ctx, raw)
		if !cont {
			return 0, false
		}
		if !ok {
			continue
		}
		results = append(results, res)
		successfulRaws = append(successfulRaws, raw)
	}

	if len(results) == 0 {
		return 0, true
	}

	for {
		err := p.loader.LoadBatch(ctx, results)
		if err == nil {
			break
		}
		p.logger.Error("load batch failed", "error", err, "batch_size", len(results))
		if !p.backoffOrStop(ctx) {
			return 0, false
		}
	}
	p.backoff = initialBackoff

	p.metrics.MessagesProduced.Add(float64(len(results)))

	for _, raw := range successfulRaws {
		p.commitOffset(ctx, raw)
	}

	return len(results), true
}

// transform retries transient failures for one message, up to
// maxTransformAttempts. Messages that fail permanently or exhaust their
// attempts are committed and skipped. It reports whether a result was
// produced and whether the pipeline should continue.
func (p *Pipeline) transform(ctx context.Context, raw domain.RawEvent) (risk.Result, bool, bool) {
	for attempt := 1; ; attempt++ {
		res, err := p.transformer.Transform(ctx, raw)
		if err == nil {
			return res, true, true
		}
		if permanent(err) {
			p.skip(ctx, raw, "weather update rejected, skipping message", err, attempt)
			return risk.Result{}, false, true
		}
		if attempt >= maxTransformAttempts {
			p.skip(ctx, raw, "risk computation failed, skipping message", err, attempt)
			p.backoff = initialBackoff
			return risk.Result{}, false, true
		}
		p.logger.Error("risk computation failed, retrying",
			"error", err,
			"topic", raw.Topic,
			"offset", raw.Offset,
			"attempt", attempt,
		)
		if !p.backoffOrStop(ctx) {
			return risk.Result{}, false, false
		}
	}
}

func (p *Pipeline) skip(ctx context.Context, raw domain.RawEvent, msg string, err error, attempts int) {
	p.logger.Warn(msg,
		"error", err,
		"topic", raw.Topic,
		"partition", raw.Partition,
		"offset", raw.Offset,
		"attempts", attempts,
	)
	p.metrics.TransformErrors.Inc()
	p.commitOffset(ctx, raw)
}

// permanent reports whether retrying the message can never succeed.
func permanent(err error) bool {
	return errors.Is(err, ErrInvalidMessage) ||
		errors.Is(err, domain.ErrBadRequest) ||
		errors.Is(err, domain.ErrNotFound)
}

// backoffOrStop sleeps with the current backoff and advances it. Returns
// false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	if !retry.SleepWithContext(ctx, p.backoff) {
		return false
	}
	p.backoff = retry.NextBackoff(p.backoff, maxBackoff)
	return true
}

// commitOffset commits the message offset if a commit function is available.
func (p *Pipeline) commitOffset(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}
