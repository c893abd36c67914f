package redpanda

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"

	"github.com/Raghav-madderla/AIMI/internal/domain"
)

// Consumer polls report tasks inside a group transact session so a
// record's offset only commits when its handler succeeded.
type Consumer struct {
	session *kgo.GroupTransactSession
	handler *ReportHandler
	groupID string
	topic   string
}

// NewConsumer constructs a Consumer for the default report topic.
func NewConsumer(brokers []string, groupID string, handler *ReportHandler) (*Consumer, error) {
	return NewConsumerWithTransactionalID(brokers, groupID, "aimi-report-worker", DefaultReportTopic, handler)
}

// NewConsumerWithTransactionalID constructs a Consumer with a custom
// transactional ID and topic so tests can isolate their traffic.
func NewConsumerWithTransactionalID(brokers []string, groupID, transactionalID, topic string, handler *ReportHandler) (*Consumer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no seed brokers provided")
	}
	if groupID == "" {
		return nil, fmt.Errorf("missing required group ID")
	}
	if topic == "" {
		topic = DefaultReportTopic
	}
	slog.Info("creating report queue consumer",
		slog.Any("brokers", brokers),
		slog.String("group_id", groupID),
		slog.String("transactional_id", transactionalID),
		slog.String("topic", topic))

	// The transact session cannot create topics; bootstrap with a plain client.
	bootstrap, err := kgo.NewClient(kgo.SeedBrokers(brokers...))
	if err != nil {
		return nil, fmt.Errorf("bootstrap client: %w", err)
	}
	if err := createTopicIfNotExists(context.Background(), bootstrap, topic, 1, 1); err != nil {
		slog.Warn("failed to create topic, it may already exist",
			slog.String("topic", topic),
			slog.Any("error", err))
	}
	bootstrap.Close()

	kotelTracer := kotel.NewTracer(
		kotel.TracerProvider(otel.GetTracerProvider()),
	)
	kotelService := kotel.NewKotel(
		kotel.WithTracer(kotelTracer),
	)

	opts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.TransactionalID(transactionalID),
		kgo.FetchIsolationLevel(kgo.ReadCommitted()),
		kgo.ConsumerGroup(groupID),
		kgo.ConsumeTopics(topic),
		kgo.RequireStableFetchOffsets(),
		kgo.WithHooks(kotelService.Hooks()...),
		kgo.DialTimeout(10 * time.Second),
		kgo.SessionTimeout(30 * time.Second),
		kgo.HeartbeatInterval(3 * time.Second),
		kgo.RebalanceTimeout(10 * time.Second),
		kgo.FetchMaxWait(5 * time.Second),
	}
	session, err := kgo.NewGroupTransactSession(opts...)
	if err != nil {
		return nil, fmt.Errorf("redpanda transact session: %w", err)
	}

	return &Consumer{
		session: session,
		handler: handler,
		groupID: groupID,
		topic:   topic,
	}, nil
}

// Start polls and processes report tasks until ctx is canceled or the
// client is closed. Each non-empty poll runs in one transaction: a
// handler error aborts it and the whole batch is redelivered, which is
// safe because report storage is idempotent per session.
func (c *Consumer) Start(ctx domain.Context) error {
	slog.Info("report consumer started",
		slog.String("group_id", c.groupID),
		slog.String("topic", c.topic))

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		fetches := c.session.PollFetches(ctx)
		if fetches.IsClientClosed() {
			slog.Info("report consumer client closed")
			return nil
		}

		canceled := false
		fetches.EachError(func(topic string, partition int32, err error) {
			if errors.Is(err, context.Canceled) {
				canceled = true
				return
			}
			slog.Error("fetch error",
				slog.String("topic", topic),
				slog.Int("partition", int(partition)),
				slog.Any("error", err))
		})
		if canceled {
			return ctx.Err()
		}
		if fetches.NumRecords() == 0 {
			continue
		}

		if err := c.session.Begin(); err != nil {
			slog.Error("failed to begin consume transaction", slog.Any("error", err))
			continue
		}

		var handleErr error
		fetches.EachRecord(func(record *kgo.Record) {
			if handleErr != nil {
				return
			}
			handleErr = c.handler.Handle(ctx, record)
		})
		if handleErr != nil {
			slog.Error("report task failed, aborting batch", slog.Any("error", handleErr))
		}

		committed, err := c.session.End(ctx, kgo.TransactionEndTry(handleErr == nil))
		if err != nil {
			slog.Error("failed to end consume transaction", slog.Any("error", err))
			continue
		}
		if !committed {
			slog.Warn("consume transaction aborted, batch will be redelivered",
				slog.Int("records", fetches.NumRecords()))
		}
	}
}

// Close closes the transact session and its underlying client.
func (c *Consumer) Close() error {
	if c.session != nil {
		c.session.Close()
	}
	return nil
}
