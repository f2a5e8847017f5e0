// internal/batch/coordinator.go - Concurrent batch job execution
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/multierr"

	"github.com/valpere/mapml_features/internal/output"
)

// Converter turns one document location into an output collection
type Converter interface {
	Convert(ctx context.Context, location string, sel Selection) (*output.Collection, error)
}

// Sink receives every converted collection and returns where it was written
type Sink func(ctx context.Context, c *output.Collection) (string, error)

// Coordinator runs batch jobs over a bounded worker pool
type Coordinator struct {
	converter Converter
	sink      Sink
	logger    *slog.Logger
}

// NewCoordinator creates a coordinator writing results to sink
func NewCoordinator(converter Converter, sink Sink, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		converter: converter,
		sink:      sink,
		logger:    logger,
	}
}

// Run converts every location of job. Failures are combined into the
// returned error; with FailOnError the first failure cancels the rest.
func (c *Coordinator) Run(ctx context.Context, job *Job) error {
	if err := c.validateJob(job); err != nil {
		return err
	}

	now := time.Now()
	job.Status = JobStatusRunning
	job.StartedAt = &now
	job.Progress.StartTime = now

	cfg := job.Config
	p := pool.New().
		WithContext(ctx).
		WithMaxGoroutines(cfg.Concurrency)
	if cfg.FailOnError {
		p = p.WithCancelOnError().WithFirstError()
	}

	var (
		mu      sync.Mutex
		results = make([]*WorkResult, len(job.Locations))
		errs    error
	)

	for i, location := range job.Locations {
		p.Go(func(ctx context.Context) error {
			result := c.process(ctx, location, cfg)
			job.Progress.record(result)

			mu.Lock()
			results[i] = result
			if result.Error != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", location, result.Error))
			}
			mu.Unlock()

			if result.Error != nil && cfg.FailOnError {
				return result.Error
			}
			return nil
		})
	}

	if err := p.Wait(); err != nil && errs == nil {
		errs = err
	}

	completed := time.Now()
	job.CompletedAt = &completed
	job.Results = results

	switch {
	case ctx.Err() != nil:
		job.Status = JobStatusCanceled
		errs = multierr.Append(errs, ctx.Err())
	case errs != nil:
		job.Status = JobStatusFailed
	default:
		job.Status = JobStatusCompleted
	}

	processed, success, failed := job.Progress.Snapshot()
	c.logger.Info("batch job finished",
		"job", job.ID,
		"status", job.Status,
		"processed", processed,
		"success", success,
		"failed", failed,
		"duration", completed.Sub(now))
	return errs
}

// process converts and writes one document
func (c *Coordinator) process(ctx context.Context, location string, cfg *JobConfig) *WorkResult {
	start := time.Now()
	result := &WorkResult{Location: location}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	collection, err := c.converter.Convert(ctx, location, cfg.Selection)
	if err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		c.logger.Warn("document failed", "location", location, "error", err)
		return result
	}

	result.Features = len(collection.Layers)
	if collection.Stats != nil {
		result.Stats = *collection.Stats
	}

	if c.sink != nil {
		out, err := c.sink(ctx, collection)
		if err != nil {
			result.Error = fmt.Errorf("failed to write output: %w", err)
		}
		result.Output = out
	}

	result.Duration = time.Since(start)
	return result
}

// validateJob checks a job before it is run
func (c *Coordinator) validateJob(job *Job) error {
	if job == nil {
		return fmt.Errorf("job is nil")
	}
	if len(job.Locations) == 0 {
		return fmt.Errorf("job %s has no documents", job.ID)
	}
	if job.Config == nil {
		job.Config = NewJobConfig()
	}
	if job.Config.Concurrency <= 0 {
		return fmt.Errorf("job %s: concurrency must be positive", job.ID)
	}
	if job.Progress == nil {
		job.Progress = NewJobProgress()
	}
	job.Progress.TotalDocuments = len(job.Locations)
	return nil
}
