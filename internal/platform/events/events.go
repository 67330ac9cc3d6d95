// Package events publishes run lifecycle notifications to Kafka using the
// same writer construction and JSON-envelope idiom as a general
// producer/consumer/DLQ surface, narrowed to the three run events this
// platform emits.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/wyfcoding/ore/internal/obslog"
	"github.com/wyfcoding/ore/internal/oreerr"
)

// Topic names for the run lifecycle.
const (
	TopicRunStarted        = "run.started"
	TopicRunStageCompleted = "run.stage.completed"
	TopicRunCompleted      = "run.completed"
)

// RunStarted is published once a config is loaded and validated.
type RunStarted struct {
	RunID       string    `json:"runId"`
	AsOfDate    time.Time `json:"asofDate"`
	Portfolio   string    `json:"portfolioFile"`
	StartedAt   time.Time `json:"startedAt"`
	WorkerCount int       `json:"workerCount"`
}

// StageCompleted is the run.stage.completed payload for one config group
// (NPV, Cashflow, Simulation, XVA, Sensitivity); the ore CLI does not
// publish it.
type StageCompleted struct {
	RunID    string        `json:"runId"`
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"durationNanos"`
}

// RunCompleted is published once the run exits, successfully or not.
type RunCompleted struct {
	RunID    string        `json:"runId"`
	Duration time.Duration `json:"durationNanos"`
	ExitCode int           `json:"exitCode"`
	Error    string        `json:"error,omitempty"`
}

// Publisher emits run lifecycle events to Kafka.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher builds a producer against brokers with at-least-once
// settings (gzip compression, wait for all replicas).
func NewPublisher(brokers []string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			AllowAutoTopicCreation: true,
			Compression:            kafka.Gzip,
			RequiredAcks:           kafka.RequireAll,
		},
	}
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error { return p.writer.Close() }

func (p *Publisher) publish(ctx context.Context, topic, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return oreerr.NewIO(err, "events: marshaling %s event", topic)
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Topic: topic, Key: []byte(key), Value: data}); err != nil {
		obslog.Get().Error(ctx, "failed to publish run event", "topic", topic, "key", key, "error", err)
		return oreerr.NewIO(err, "events: publishing to %s", topic)
	}
	return nil
}

// PublishRunStarted emits a run.started event.
func (p *Publisher) PublishRunStarted(ctx context.Context, e RunStarted) error {
	return p.publish(ctx, TopicRunStarted, e.RunID, e)
}

// PublishStageCompleted emits a run.stage.completed event.
func (p *Publisher) PublishStageCompleted(ctx context.Context, e StageCompleted) error {
	return p.publish(ctx, TopicRunStageCompleted, e.RunID, e)
}

// PublishRunCompleted emits a run.completed event.
func (p *Publisher) PublishRunCompleted(ctx context.Context, e RunCompleted) error {
	return p.publish(ctx, TopicRunCompleted, e.RunID, e)
}
