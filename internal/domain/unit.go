package domain

type UnitID string

type Kind string

const (
	KindSeat Kind = "SEAT"
	KindSpot Kind = "SPOT"
)

type UnitStatus string

const (
	UnitFree     UnitStatus = "FREE"
	UnitHeld     UnitStatus = "HELD"
	UnitOccupied UnitStatus = "OCCUPIED"
)

// ResourceUnit is a single allocatable slot. Units are owned by the pool and
// change status only through pool mark operations.
type ResourceUnit struct {
	ID     UnitID
	Kind   Kind
	Status UnitStatus
	Price  float64
}
