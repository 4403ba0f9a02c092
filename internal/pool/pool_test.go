package pool_test

import (
	"testing"

	"github.com/seatgrid/reservation-engine/internal/domain"
	"github.com/seatgrid/reservation-engine/internal/pool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPool(t *testing.T) *pool.Pool {
	t.Helper()
	return pool.New([]domain.ResourceUnit{
		{ID: "C", Kind: domain.KindSeat, Price: 100},
		{ID: "A", Kind: domain.KindSeat, Price: 100},
		{ID: "B", Kind: domain.KindSeat, Price: 100},
		{ID: "P1", Kind: domain.KindSpot, Price: 10},
	})
}

func TestFindFree_AscendingAndStable(t *testing.T) {
	p := newPool(t)

	first := p.FindFree(2, domain.KindSeat)
	assert.Equal(t, []domain.UnitID{"A", "B"}, first)

	// No mutation happened, so a repeated query returns the same selection.
	second := p.FindFree(2, domain.KindSeat)
	assert.Equal(t, first, second)

	all := p.FindFree(10, domain.KindSeat)
	assert.Equal(t, []domain.UnitID{"A", "B", "C"}, all)

	spots := p.FindFree(1, domain.KindSpot)
	assert.Equal(t, []domain.UnitID{"P1"}, spots)
}

func TestMark_Lifecycle(t *testing.T) {
	p := newPool(t)

	require.NoError(t, p.MarkHeld([]domain.UnitID{"A", "B"}))
	u, ok := p.Get("A")
	require.True(t, ok)
	assert.Equal(t, domain.UnitHeld, u.Status)

	require.NoError(t, p.MarkOccupied([]domain.UnitID{"A", "B"}))
	u, _ = p.Get("B")
	assert.Equal(t, domain.UnitOccupied, u.Status)

	require.NoError(t, p.MarkFree([]domain.UnitID{"A", "B"}))
	assert.Equal(t, []domain.UnitID{"A", "B", "C"}, p.FindFree(3, domain.KindSeat))
}

func TestMark_InvalidSourceStatus(t *testing.T) {
	p := newPool(t)

	err := p.MarkOccupied([]domain.UnitID{"A"})
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)

	err = p.MarkFree([]domain.UnitID{"A"})
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)

	require.NoError(t, p.MarkHeld([]domain.UnitID{"A"}))
	err = p.MarkHeld([]domain.UnitID{"A"})
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}

func TestMark_AllOrNothing(t *testing.T) {
	p := newPool(t)
	require.NoError(t, p.MarkHeld([]domain.UnitID{"B"}))

	// B is HELD, so holding {A, B} must leave A untouched.
	err := p.MarkHeld([]domain.UnitID{"A", "B"})
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)

	u, _ := p.Get("A")
	assert.Equal(t, domain.UnitFree, u.Status)
}

func TestMark_UnknownUnit(t *testing.T) {
	p := newPool(t)
	err := p.MarkHeld([]domain.UnitID{"nope"})
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}

func TestPriceOf(t *testing.T) {
	p := newPool(t)
	assert.Equal(t, 200.0, p.PriceOf([]domain.UnitID{"A", "B"}))
	assert.Equal(t, 110.0, p.PriceOf([]domain.UnitID{"A", "P1"}))
}
