package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/seatgrid/reservation-engine/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Notifier writes settlement outcomes to a Kafka topic, keyed by requester
// so per-requester event order is preserved within a partition.
type Notifier struct {
	writer *kafkago.Writer
}

func NewNotifier(brokers []string, topic string) *Notifier {
	return &Notifier{
		writer: &kafkago.Writer{
			Addr:     kafkago.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafkago.Hash{},
		},
	}
}

func (n *Notifier) Notify(ctx context.Context, requester uuid.UUID, reservationID uuid.UUID, outcome domain.Outcome) error {
	payload, err := json.Marshal(map[string]interface{}{
		"reservation_id": reservationID,
		"requester_id":   requester,
		"outcome":        outcome,
		"at":             time.Now().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return n.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(requester.String()),
		Value: payload,
	})
}

func (n *Notifier) Close() error {
	return n.writer.Close()
}
