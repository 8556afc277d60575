package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"ragcore/internal/errs"
	"ragcore/internal/model"
)

// Queue is the ingress side of the Job Queue: Enqueue with dedupe and
// backpressure, Inspect for status lookups backed by the side store.
type Queue struct {
	producer  *Producer
	side      SideStore
	maxDepth  int
	depthFunc func() int // returns current approximate queue depth; nil disables the backpressure check
}

// NewQueue wires a Producer and SideStore into ingress behavior. maxDepth<=0
// disables the backpressure ceiling.
func NewQueue(producer *Producer, side SideStore, maxDepth int, depthFunc func() int) *Queue {
	return &Queue{producer: producer, side: side, maxDepth: maxDepth, depthFunc: depthFunc}
}

// Enqueue publishes payload as a new Job, rejecting the call if the queue is
// at its configured depth ceiling, and short-circuiting duplicate
// submissions (same fingerprint within the dedupe TTL) by returning the
// existing job_id instead of creating a second job.
func (q *Queue) Enqueue(ctx context.Context, payload model.SourceDescriptor, fingerprint string, dedupeTTL time.Duration) (string, error) {
	if q.maxDepth > 0 && q.depthFunc != nil && q.depthFunc() >= q.maxDepth {
		return "", errs.New(errs.QueueFull, "queue depth ceiling reached")
	}

	if fingerprint != "" {
		if existing, err := q.side.Get(ctx, dedupeKey(fingerprint)); err == nil && existing != "" {
			return existing, nil
		}
	}

	job := model.Job{
		JobID:      uuid.NewString(),
		SourceType: payload.Kind,
		Payload:    payload,
		Status:     model.JobQueued,
		EnqueuedAt: time.Now(),
	}
	if err := q.producer.Enqueue(ctx, job); err != nil {
		return "", err
	}
	if err := putJobRecord(ctx, q.side, job, JobRecordTTL); err != nil {
		return "", err
	}
	if fingerprint != "" {
		_ = q.side.Set(ctx, dedupeKey(fingerprint), job.JobID, dedupeTTL)
	}
	return job.JobID, nil
}

// Inspect returns the full Job Record as tracked in the side store. The
// durable record of truth remains the Kafka log; the side store holds the
// read-optimised projection a worker's status transitions keep up to date.
func (q *Queue) Inspect(ctx context.Context, jobID string) (model.Job, error) {
	return getJobRecord(ctx, q.side, jobID)
}

// putJobRecord serialises job and stores it under its job record key with
// ttl, used both at enqueue time and by the worker at every status
// transition. A non-terminal ttl (the claim visibility timeout) lets a
// running record expire if its worker dies mid-job; terminal transitions
// re-write it with the longer JobRecordTTL so it stays inspectable.
func putJobRecord(ctx context.Context, side SideStore, job model.Job, ttl time.Duration) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return errs.Wrap(errs.Internal, "marshal job record", err)
	}
	return side.Set(ctx, jobRecordKey(job.JobID), string(payload), ttl)
}

// getJobRecord reads back and decodes a job record, or returns IndexMissing
// if none is tracked under jobID.
func getJobRecord(ctx context.Context, side SideStore, jobID string) (model.Job, error) {
	raw, err := side.Get(ctx, jobRecordKey(jobID))
	if err != nil {
		return model.Job{}, err
	}
	if raw == "" {
		return model.Job{}, errs.New(errs.IndexMissing, "job not found: "+jobID)
	}
	var job model.Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return model.Job{}, errs.Wrap(errs.Internal, "decode job record", err)
	}
	return job, nil
}
