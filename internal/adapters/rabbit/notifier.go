package rabbit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/seatgrid/reservation-engine/internal/domain"
)

const exchange = "reservation.events"

// Notifier publishes settlement outcomes to a topic exchange with routing
// key reservation.<outcome>.
type Notifier struct {
	ch *amqp.Channel
}

func NewNotifier(conn *amqp.Connection) (*Notifier, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	err = ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil)
	if err != nil {
		return nil, err
	}
	return &Notifier{ch: ch}, nil
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
	msg := amqp.Publishing{
		MessageId:   uuid.New().String(),
		ContentType: "application/json",
		Body:        payload,
	}
	return n.ch.PublishWithContext(ctx, exchange, "reservation."+string(outcome), false, false, msg)
}
