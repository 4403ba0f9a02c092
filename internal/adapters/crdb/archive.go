package crdb

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/seatgrid/reservation-engine/internal/domain"
	"golang.org/x/sync/errgroup"
)

const (
	SerializationFailureCode = "40001"
)

// Archive copies terminal reservations into CockroachDB for durable history.
// The in-process ledger stays authoritative; the archive is a best-effort
// settlement recorder.
type Archive struct {
	pool *pgxpool.Pool
}

func NewArchive(pool *pgxpool.Pool) *Archive {
	return &Archive{pool: pool}
}

func (a *Archive) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE")
	if err != nil {
		return err
	}

	err = fn(tx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == SerializationFailureCode {
			return errors.Wrap(domain.ErrInvalidInput, "serialization failure")
		}
		return err
	}

	return tx.Commit(ctx)
}

// RecordSettlement implements domain.SettlementRecorder. Re-recording the
// same reservation id is a no-op so replays stay harmless.
func (a *Archive) RecordSettlement(ctx context.Context, res domain.Reservation, outcome domain.Outcome) error {
	return a.WithTx(ctx, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `
			INSERT INTO reservations (id, requester_id, kind, amount, status, outcome, created_at, settled_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO NOTHING
		`, res.ID, res.Requester, string(res.Kind), res.Amount, string(res.Status), string(outcome), res.CreatedAt, res.SettledAt)
		if err != nil {
			return err
		}
		if result.RowsAffected() == 0 {
			return nil
		}

		g, gctx := errgroup.WithContext(ctx)
		for i, unit := range res.Units {
			i, unit := i, unit
			g.Go(func() error {
				_, err := tx.Exec(gctx, `
					INSERT INTO reservation_units (reservation_id, unit_id, position)
					VALUES ($1, $2, $3)
				`, res.ID, string(unit), i)
				return err
			})
		}
		return g.Wait()
	})
}

// GetReservation reads an archived reservation with its unit set in claim
// order.
func (a *Archive) GetReservation(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	var res domain.Reservation
	var kind, status string
	err := a.pool.QueryRow(ctx, `
		SELECT id, requester_id, kind, amount, status, created_at, settled_at
		FROM reservations WHERE id = $1
	`, id).Scan(&res.ID, &res.Requester, &kind, &res.Amount, &status, &res.CreatedAt, &res.SettledAt)
	if err == pgx.ErrNoRows {
		return nil, errors.Wrapf(domain.ErrNotFound, "archived reservation %s", id)
	}
	if err != nil {
		return nil, err
	}
	res.Kind = domain.Kind(kind)
	res.Status = domain.ReservationStatus(status)

	rows, err := a.pool.Query(ctx, `
		SELECT unit_id FROM reservation_units WHERE reservation_id = $1 ORDER BY position
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var unit string
		if err := rows.Scan(&unit); err != nil {
			return nil, err
		}
		res.Units = append(res.Units, domain.UnitID(unit))
	}
	return &res, rows.Err()
}
