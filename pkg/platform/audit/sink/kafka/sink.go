// Package kafka streams audit events to a Kafka topic for downstream SIEM and
// retention pipelines. Kafka is a sink, not the system of record: the engine
// keeps its own audit store and fans out to Kafka when brokers are configured.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "coopaml/pkg/platform/audit"
)

// Sink publishes audit events to a single topic, keyed by cooperative ID so a
// tenant's trail stays ordered within a partition.
type Sink struct {
	client *kgo.Client
	topic  string
}

// payload is the wire form of an audit event. Field names are part of the
// consumer contract; do not rename.
type payload struct {
	Category      string `json:"category"`
	Timestamp     string `json:"timestamp"`
	CooperativeID string `json:"cooperative_id"`
	MemberID      string `json:"member_id,omitempty"`
	Subject       string `json:"subject,omitempty"`
	Action        string `json:"action"`
	Detail        string `json:"detail,omitempty"`
	RequestID     string `json:"request_id,omitempty"`
	ActorID       string `json:"actor_id,omitempty"`
}

// New connects a producer to the given brokers.
func New(brokers []string, topic string) (*Sink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Sink{client: client, topic: topic}, nil
}

// Append produces one audit event synchronously. Callers that must not block
// on Kafka should wrap the sink in the async publisher.
func (s *Sink) Append(ctx context.Context, event audit.Event) error {
	category := event.Category
	if category == "" {
		category = audit.AuditEvent(event.Action).Category()
	}

	p := payload{
		Category:      string(category),
		Timestamp:     event.Timestamp.Format(time.RFC3339Nano),
		CooperativeID: event.CooperativeID.String(),
		Subject:       event.Subject,
		Action:        event.Action,
		Detail:        event.Detail,
		RequestID:     event.RequestID,
		ActorID:       event.ActorID,
	}
	if !event.MemberID.IsNil() {
		p.MemberID = event.MemberID.String()
	}

	value, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.CooperativeID.String()),
		Value: value,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// Close flushes outstanding records and releases the client.
func (s *Sink) Close() {
	s.client.Close()
}
