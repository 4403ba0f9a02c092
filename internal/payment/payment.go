package payment

import (
	"context"

	"github.com/cockroachdb/errors"
)

// Func adapts a plain function to the payment capability. Strategy selection
// happens in the caller; the engine only ever sees the interface.
type Func func(ctx context.Context, amount float64) error

func (f Func) Pay(ctx context.Context, amount float64) error {
	return f(ctx, amount)
}

// Card declines any charge above its limit. A zero limit accepts everything.
type Card struct {
	Limit float64
}

func (c Card) Pay(ctx context.Context, amount float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.Limit > 0 && amount > c.Limit {
		return errors.Newf("card declined: amount %.2f over limit %.2f", amount, c.Limit)
	}
	return nil
}

// Cash always settles.
type Cash struct{}

func (Cash) Pay(ctx context.Context, amount float64) error {
	return ctx.Err()
}
