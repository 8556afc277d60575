package queue

import (
	"context"
	"fmt"
	"time"

	"ragcore/internal/errs"
	"ragcore/internal/ingest"
	"ragcore/internal/model"
	"ragcore/internal/obs"
	"ragcore/internal/validate"
)

// Worker claims jobs from a Consumer one at a time, runs the Ingestion
// Pipeline, and writes back terminal status. One claim is active per
// Worker; horizontal scaling is by running more Worker processes in the
// same consumer group.
type Worker struct {
	Consumer    *Consumer
	Producer    *Producer
	Side        SideStore
	Pipeline    *ingest.Pipeline
	Validator   *validate.Validator
	JobTimeout  time.Duration
	Visibility  time.Duration
	MaxAttempts int
}

// NewWorker constructs a Worker with default timeouts.
func NewWorker(consumer *Consumer, producer *Producer, side SideStore, pipeline *ingest.Pipeline, validator *validate.Validator) *Worker {
	return &Worker{
		Consumer:    consumer,
		Producer:    producer,
		Side:        side,
		Pipeline:    pipeline,
		Validator:   validator,
		JobTimeout:  DefaultJobTimeout,
		Visibility:  DefaultVisibilityTimeout,
		MaxAttempts: 3,
	}
}

// Run blocks, claiming and processing jobs until ctx is canceled. On
// startup it runs the Validator for the dependency set this worker may
// need; a failed strict check aborts startup rather than claiming jobs it
// cannot service.
func (w *Worker) Run(ctx context.Context) error {
	if w.Validator != nil {
		if result := w.Validator.Check(ctx); !result.OK {
			return errs.New(errs.DependencyUnavailable, "worker startup validation failed: "+result.Error())
		}
	}

	logger := obs.FromContext(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		job, msg, err := w.Consumer.Claim(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn().Err(err).Msg("claim failed")
			continue
		}

		w.process(ctx, job)

		if err := w.Consumer.Commit(ctx, msg); err != nil {
			logger.Warn().Err(err).Str("job_id", job.JobID).Msg("commit failed")
		}
	}
}

func (w *Worker) process(ctx context.Context, job model.Job) {
	logger := obs.FromContext(ctx)
	now := time.Now()
	job.Status = model.JobRunning
	job.StartedAt = &now
	visibility := w.Visibility
	if visibility <= 0 {
		visibility = DefaultVisibilityTimeout
	}
	_ = putJobRecord(ctx, w.Side, job, visibility)

	deadline := w.JobTimeout
	if deadline <= 0 {
		deadline = DefaultJobTimeout
	}
	jobCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	var lastErr error
	maxAttempts := w.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var result model.JobResult
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		report, err := w.Pipeline.IngestWithCrawl(jobCtx, job.Payload)
		if err == nil && report.DocumentsIngested == 0 && report.Document == nil && len(report.Warnings) > 0 {
			// No source succeeded: every source was skipped with a warning.
			err = errs.New(errs.SourceUnreadable, fmt.Sprintf("no source ingested: %v", report.Warnings))
		}
		if err == nil {
			result = model.JobResult{
				DocumentsIngested: report.DocumentsIngested,
				ChunksIngested:    report.ChunksIngested,
				Warnings:          report.Warnings,
			}
			lastErr = nil
			break
		}
		lastErr = err
		if jobCtx.Err() != nil {
			lastErr = fmt.Errorf("deadline exceeded at ingest: %w", jobCtx.Err())
			break
		}
		logger.Warn().Err(err).Str("job_id", job.JobID).Int("attempt", attempt).Msg("ingest attempt failed")
		time.Sleep(backoffDelay(attempt))
	}

	finished := time.Now()
	job.FinishedAt = &finished

	if lastErr != nil {
		job.Status = model.JobFailed
		msg := lastErr.Error()
		job.Error = &msg
		_ = putJobRecord(ctx, w.Side, job, JobRecordTTL)
		if w.Producer != nil {
			if err := w.Producer.DLQ(ctx, job, lastErr); err != nil {
				logger.Warn().Err(err).Str("job_id", job.JobID).Msg("dlq publish failed")
			}
		}
		return
	}

	job.Status = model.JobFinished
	job.Result = &result
	_ = putJobRecord(ctx, w.Side, job, JobRecordTTL)
}

func backoffDelay(attempt int) time.Duration {
	return time.Duration(200*(1<<uint(attempt-1))) * time.Millisecond
}
