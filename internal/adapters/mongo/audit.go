package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/seatgrid/reservation-engine/internal/domain"
	"github.com/seatgrid/reservation-engine/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AuditLogger keeps a trail of terminal settlements. It implements
// domain.SettlementRecorder and is invoked best-effort.
type AuditLogger struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditLogger(db *mongo.Database, logger observability.Logger) *AuditLogger {
	return &AuditLogger{
		coll:   db.Collection("settlement_audit"),
		logger: logger,
	}
}

type auditDoc struct {
	ID            uuid.UUID `bson:"_id"`
	ReservationID uuid.UUID `bson:"reservation_id"`
	RequesterID   uuid.UUID `bson:"requester_id"`
	Outcome       string    `bson:"outcome"`
	Status        string    `bson:"status"`
	Units         []string  `bson:"units"`
	Kind          string    `bson:"kind"`
	Amount        float64   `bson:"amount"`
	CreatedAt     time.Time `bson:"created_at"`
	SettledAt     time.Time `bson:"settled_at"`
	RecordedAt    time.Time `bson:"recorded_at"`
}

func (a *AuditLogger) RecordSettlement(ctx context.Context, res domain.Reservation, outcome domain.Outcome) error {
	units := make([]string, len(res.Units))
	for i, id := range res.Units {
		units[i] = string(id)
	}
	doc := auditDoc{
		ID:            uuid.New(),
		ReservationID: res.ID,
		RequesterID:   res.Requester,
		Outcome:       string(outcome),
		Status:        string(res.Status),
		Units:         units,
		Kind:          string(res.Kind),
		Amount:        res.Amount,
		CreatedAt:     res.CreatedAt,
		RecordedAt:    time.Now(),
	}
	if res.SettledAt != nil {
		doc.SettledAt = *res.SettledAt
	}
	_, err := a.coll.InsertOne(ctx, doc)
	if err != nil {
		a.logger.Error("failed to insert settlement audit", err)
		return err
	}
	return nil
}

// RecentByRequester returns the latest audit entries for a requester, newest
// first.
func (a *AuditLogger) RecentByRequester(ctx context.Context, requester uuid.UUID, limit int64) ([]domain.Reservation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "recorded_at", Value: -1}}).SetLimit(limit)
	cur, err := a.coll.Find(ctx, bson.M{"requester_id": requester}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []domain.Reservation
	for cur.Next(ctx) {
		var doc auditDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		units := make([]domain.UnitID, len(doc.Units))
		for i, u := range doc.Units {
			units[i] = domain.UnitID(u)
		}
		settled := doc.SettledAt
		out = append(out, domain.Reservation{
			ID:        doc.ReservationID,
			Requester: doc.RequesterID,
			Units:     units,
			Kind:      domain.Kind(doc.Kind),
			Amount:    doc.Amount,
			Status:    domain.ReservationStatus(doc.Status),
			CreatedAt: doc.CreatedAt,
			SettledAt: &settled,
		})
	}
	return out, cur.Err()
}
