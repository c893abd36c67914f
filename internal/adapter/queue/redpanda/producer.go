// Package redpanda provides the Redpanda/Kafka report queue.
//
// A completed interview enqueues exactly one report-synthesis task; the
// worker consumes it and stores the finished report. Publishing uses a
// transactional producer and consumption a read-committed group session,
// so a task is neither lost nor half-committed.
package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/Raghav-madderla/AIMI/internal/adapter/observability"
	"github.com/Raghav-madderla/AIMI/internal/domain"
)

// DefaultReportTopic is the Kafka topic for report synthesis tasks.
const DefaultReportTopic = "interview-reports"

// Producer wraps a transactional Kafka producer and implements
// domain.ReportQueue.
type Producer struct {
	client *kgo.Client
	topic  string
	// Serializes transactions; the client allows one per transactional ID.
	transactionChan chan struct{}
}

// NewProducer constructs a Producer with exactly-once semantics.
func NewProducer(brokers []string, topic string) (*Producer, error) {
	return NewProducerWithTransactionalID(brokers, topic, "aimi-report-producer")
}

// NewProducerWithTransactionalID constructs a Producer with a custom
// transactional ID so tests can run multiple producers side by side.
func NewProducerWithTransactionalID(brokers []string, topic, transactionalID string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no seed brokers provided")
	}
	if topic == "" {
		topic = DefaultReportTopic
	}
	slog.Info("creating report queue producer",
		slog.Any("brokers", brokers),
		slog.String("transactional_id", transactionalID),
		slog.String("topic", topic))

	opts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.TransactionalID(transactionalID),
		kgo.RequestRetries(10),
		kgo.ProducerBatchMaxBytes(1000000),
	}
	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("redpanda client: %w", err)
	}

	if err := createTopicIfNotExists(context.Background(), client, topic, 1, 1); err != nil {
		slog.Warn("failed to create topic, it may already exist",
			slog.String("topic", topic),
			slog.Any("error", err))
	}

	return &Producer{
		client:          client,
		topic:           topic,
		transactionChan: make(chan struct{}, 1),
	}, nil
}

// EnqueueReport publishes a report synthesis task inside a transaction.
// The session id keys the record so retries for one session stay ordered;
// it is also returned as the task id.
func (p *Producer) EnqueueReport(ctx domain.Context, payload domain.ReportTaskPayload) (string, error) {
	slog.Info("enqueueing report task",
		slog.String("session_id", payload.SessionID),
		slog.String("job_role", payload.JobRole),
		slog.String("topic", p.topic))

	select {
	case p.transactionChan <- struct{}{}:
		defer func() { <-p.transactionChan }()
	case <-ctx.Done():
		return "", ctx.Err()
	}

	if err := p.client.BeginTransaction(); err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}

	b, err := json.Marshal(payload)
	if err != nil {
		if abortErr := p.client.EndTransaction(ctx, kgo.TryAbort); abortErr != nil {
			slog.Error("failed to abort transaction", slog.Any("error", abortErr))
		}
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(payload.SessionID),
		Value: b,
		Headers: []kgo.RecordHeader{
			{Key: "session_id", Value: []byte(payload.SessionID)},
			{Key: "job_role", Value: []byte(payload.JobRole)},
		},
	}

	e := kgo.AbortingFirstErrPromise(p.client)
	p.client.Produce(ctx, record, e.Promise())
	if err := e.Err(); err != nil {
		if abortErr := p.client.EndTransaction(ctx, kgo.TryAbort); abortErr != nil {
			slog.Error("failed to abort transaction", slog.Any("error", abortErr))
		}
		return "", fmt.Errorf("produce: %w", err)
	}

	if err := p.client.EndTransaction(ctx, kgo.TryCommit); err != nil {
		return "", fmt.Errorf("commit transaction: %w", err)
	}

	observability.EnqueueReport()
	slog.Info("report task enqueued",
		slog.String("topic", p.topic),
		slog.String("session_id", payload.SessionID))
	return payload.SessionID, nil
}

// Ping checks broker connectivity for readiness probes.
func (p *Producer) Ping(ctx domain.Context) error {
	if p == nil || p.client == nil {
		return fmt.Errorf("kafka client not configured")
	}
	return p.client.Ping(ctx)
}

// Close closes the producer.
func (p *Producer) Close() error {
	if p.client != nil {
		p.client.Close()
	}
	if p.transactionChan != nil {
		select {
		case <-p.transactionChan:
		default:
			close(p.transactionChan)
		}
	}
	return nil
}
