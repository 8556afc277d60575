package queue

import (
	"context"
	"encoding/json"
	"time"

	kafka "github.com/segmentio/kafka-go"

	"ragcore/internal/errs"
	"ragcore/internal/model"
)

// Producer publishes Job payloads onto a logical queue's topic.
type Producer struct {
	writer *kafka.Writer
}

// NewProducer constructs a Producer writing to topic across brokers.
func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{writer: &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}}
}

// Enqueue publishes job and returns immediately once the broker acknowledges
// the write.
func (p *Producer) Enqueue(ctx context.Context, job model.Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return errs.Wrap(errs.Internal, "marshal job", err)
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(job.JobID), Value: payload}); err != nil {
		return errs.Wrap(errs.DependencyUnavailable, "publish job to queue", err)
	}
	return nil
}

func (p *Producer) Close() error { return p.writer.Close() }

// DLQ publishes a job that exhausted its retry budget, with the terminal
// error attached, to <topic>.dlq.
func (p *Producer) DLQ(ctx context.Context, job model.Job, finalErr error) error {
	job.Status = model.JobFailed
	errMsg := finalErr.Error()
	job.Error = &errMsg
	payload, err := json.Marshal(job)
	if err != nil {
		return errs.Wrap(errs.Internal, "marshal dlq job", err)
	}
	dlqWriter := &kafka.Writer{
		Addr:     p.writer.Addr,
		Topic:    p.writer.Topic + ".dlq",
		Balancer: &kafka.LeastBytes{},
	}
	defer dlqWriter.Close()
	return dlqWriter.WriteMessages(ctx, kafka.Message{Key: []byte(job.JobID), Value: payload})
}

// Consumer reads Job messages from a topic under a consumer group, giving
// every worker process in the group a disjoint share of partitions.
type Consumer struct {
	reader *kafka.Reader
}

// NewConsumer constructs a Consumer in groupID reading topic.
func NewConsumer(brokers []string, groupID, topic string) *Consumer {
	return &Consumer{reader: kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})}
}

// Claim blocks until the next Job is available, decodes it, and returns the
// raw kafka.Message alongside so the caller can Commit it once processing
// finishes.
func (c *Consumer) Claim(ctx context.Context) (model.Job, kafka.Message, error) {
	msg, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return model.Job{}, kafka.Message{}, errs.Wrap(errs.DependencyUnavailable, "fetch job message", err)
	}
	var job model.Job
	if err := json.Unmarshal(msg.Value, &job); err != nil {
		return model.Job{}, msg, errs.Wrap(errs.Internal, "decode job message", err)
	}
	return job, msg, nil
}

// Commit acknowledges msg, advancing the consumer group's offset past it.
func (c *Consumer) Commit(ctx context.Context, msg kafka.Message) error {
	return c.reader.CommitMessages(ctx, msg)
}

func (c *Consumer) Close() error { return c.reader.Close() }

// jobRecordKey namespaces a job's full Job Record entry in the side store so
// it never collides with its dedupe-fingerprint entry. The same key backs
// both claim visibility-timeout bookkeeping and Inspect's read-back, so a
// worker's status transitions are the same writes that make a job
// inspectable.
func jobRecordKey(jobID string) string { return "job:" + jobID }

// dedupeKey namespaces a job fingerprint's duplicate-submission entry.
func dedupeKey(fingerprint string) string { return "dedupe:" + fingerprint }

// DefaultVisibilityTimeout is how long a claimed job is considered in flight
// before being eligible for reclaim if its worker is lost.
const DefaultVisibilityTimeout = 15 * time.Minute

// DefaultJobTimeout is the default per-job deadline for the ingestion
// pipeline to complete.
const DefaultJobTimeout = 30 * time.Minute

// JobRecordTTL is how long a terminal Job Record stays inspectable in the
// side store after the job finishes or fails, well past any single claim's
// visibility timeout.
const JobRecordTTL = 24 * time.Hour
