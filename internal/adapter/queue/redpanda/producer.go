// Package redpanda publishes finished interview results to a Kafka-compatible broker.
package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/ai-screening-interview/internal/adapter/observability"
	"github.com/fairyhunter13/ai-screening-interview/internal/domain"
)

// DefaultTopic receives one record per completed interview.
const DefaultTopic = "interview-results"

// client is the part of *kgo.Client the producer uses.
type client interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Ping(ctx context.Context) error
	Close()
}

// Producer implements domain.ResultPublisher over franz-go.
type Producer struct {
	client client
	topic  string
}

// NewProducer connects to brokers and makes sure topic exists.
func NewProducer(brokers []string, topic string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("op=redpanda.NewProducer: %w: no seed brokers provided", domain.ErrInvalidArgument)
	}
	if topic == "" {
		topic = DefaultTopic
	}
	slog.Info("creating redpanda producer", slog.Any("brokers", brokers), slog.String("topic", topic))

	kotelService := kotel.NewKotel(
		kotel.WithTracer(kotel.NewTracer(kotel.TracerProvider(otel.GetTracerProvider()))),
	)
	cl, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.WithHooks(kotelService.Hooks()...),
		kgo.RequestRetries(10),
		kgo.ProducerBatchMaxBytes(1_000_000),
		kgo.RecordDeliveryTimeout(30*time.Second),
		kgo.DialTimeout(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("op=redpanda.NewProducer: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := createTopicIfNotExists(ctx, cl, topic, 1, 1); err != nil {
		// the broker may auto-create topics or the account may lack admin rights
		slog.Warn("failed to ensure topic", slog.String("topic", topic), slog.Any("error", err))
	}
	return &Producer{client: cl, topic: topic}, nil
}

// Publish writes the result keyed by candidate so a candidate's events stay ordered.
func (p *Producer) Publish(ctx context.Context, r domain.SessionResult) error {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("op=redpanda.Publish: %w", err)
	}
	rec := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(r.CandidateKey),
		Value: b,
		Headers: []kgo.RecordHeader{
			{Key: "event", Value: []byte("interview.completed")},
			{Key: "result_id", Value: []byte(r.ID)},
			{Key: "status", Value: []byte(r.Status)},
		},
	}
	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("op=redpanda.Publish: %w", err)
	}
	observability.RecordResultEvent(p.topic)
	slog.Debug("result event published",
		slog.String("topic", p.topic),
		slog.String("candidate_key", r.CandidateKey),
		slog.String("result_id", r.ID))
	return nil
}

// Ping checks broker connectivity for readiness probes.
func (p *Producer) Ping(ctx context.Context) error { return p.client.Ping(ctx) }

// Close releases the broker connections.
func (p *Producer) Close() error {
	if p.client != nil {
		p.client.Close()
	}
	return nil
}
