package auditchain

import (
	"encoding/json"
	"log/slog"
	"time"

	"certus/internal/platform/kafka/producer"
)

// KafkaMirror fans appended audit events out to a Kafka topic for SIEM and
// archival consumers. Delivery is asynchronous and best-effort: the chain
// store remains the source of truth, and a mirror failure never fails or
// delays an append.
type KafkaMirror struct {
	producer *producer.Producer
	topic    string
	logger   *slog.Logger
}

// NewKafkaMirror constructs a mirror publishing to the given topic.
func NewKafkaMirror(prod *producer.Producer, topic string, logger *slog.Logger) *KafkaMirror {
	return &KafkaMirror{producer: prod, topic: topic, logger: logger}
}

// mirrorPayload is the wire shape for mirrored events. Field names are part
// of the downstream consumer contract; extend, never rename.
type mirrorPayload struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenant_id"`
	Sequence    uint64 `json:"sequence"`
	Timestamp   string `json:"ts"`
	Kind        string `json:"kind"`
	Actor       string `json:"actor"`
	Subject     string `json:"subject"`
	Correlation string `json:"correlation"`
	Decision    string `json:"decision"`
	Reason      string `json:"reason"`
	PrevHash    string `json:"prev_hash"`
	CurrentHash string `json:"current_hash"`
}

// Publish mirrors one event. Implements the Chain's Mirror interface.
func (m *KafkaMirror) Publish(event *Event) {
	payload, err := json.Marshal(mirrorPayload{
		ID:          event.ID.String(),
		TenantID:    event.TenantID.String(),
		Sequence:    event.Sequence,
		Timestamp:   event.Timestamp.UTC().Format(time.RFC3339Nano),
		Kind:        string(event.Kind),
		Actor:       event.Actor,
		Subject:     event.Subject,
		Correlation: event.Correlation,
		Decision:    event.Decision,
		Reason:      event.Reason,
		PrevHash:    event.PrevHash,
		CurrentHash: event.CurrentHash,
	})
	if err != nil {
		m.logger.Error("marshal mirrored audit event", "event_id", event.ID, "error", err)
		return
	}

	err = m.producer.ProduceAsync(&producer.Message{
		Topic: m.topic,
		// Tenant-keyed so one tenant's chain lands on one partition in order.
		Key:   []byte(event.TenantID.String()),
		Value: payload,
		Headers: map[string]string{
			"kind": string(event.Kind),
		},
	})
	if err != nil {
		m.logger.Error("mirror audit event", "event_id", event.ID, "error", err)
	}
}
