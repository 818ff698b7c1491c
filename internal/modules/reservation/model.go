// README: Reservation aggregate, statuses and the transition table.
package reservation

import (
	"context"
	"time"

	"github.com/mimoreirac/pi-tercero/internal/apperr"
	"github.com/mimoreirac/pi-tercero/internal/modules/trip"
	"github.com/mimoreirac/pi-tercero/internal/types"
)

type Status string

const (
	StatusPending   Status = "pendiente"
	StatusConfirmed Status = "confirmada"
	StatusRejected  Status = "rechazada"
	StatusCancelled Status = "cancelada"
)

// AllowedTransitions is the reservation state machine. Rejected and cancelled are terminal.
var AllowedTransitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusRejected, StatusCancelled},
	StatusConfirmed: {StatusCancelled},
}

func CanTransition(from, to Status) bool {
	for _, s := range AllowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return len(AllowedTransitions[s]) == 0
}

// Mode selects how Create guards the seat count.
type Mode string

const (
	// ModeBaseline checks then inserts with no transaction and never touches the seat count.
	ModeBaseline Mode = "baseline"
	// ModeStrict runs the checks and the insert in one serializable transaction
	// holding the trip row lock, and keeps asientos_disponibles in step.
	ModeStrict Mode = "strict"
)

var (
	ErrNotFound  = apperr.NotFound("reservation not found")
	ErrDuplicate = apperr.InvalidState("duplicate: passenger already holds an active reservation on this trip")
	ErrConflict  = apperr.InvalidState("reservation changed concurrently, retry")
)

type Reservation struct {
	ID          types.ID  `json:"id_reserva"`
	TripID      types.ID  `json:"id_viaje"`
	PassengerID types.ID  `json:"id_pasajero"`
	Status      Status    `json:"estado"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateCheck runs against the trip as seen by the insert; hasActive reports
// whether the passenger already holds a pending or confirmed reservation on it.
type CreateCheck func(t *trip.Trip, hasActive bool) error

type Repository interface {
	Create(ctx context.Context, r *Reservation) error
	// CreateLocked locks the trip row, runs check, inserts r and takes one seat, atomically.
	CreateLocked(ctx context.Context, r *Reservation, check CreateCheck) error
	Get(ctx context.Context, id types.ID) (*Reservation, error)
	// UpdateStatus moves r from its current status to to, failing with ErrConflict
	// when the stored status no longer matches. releaseSeat gives the seat back to the trip.
	UpdateStatus(ctx context.Context, r *Reservation, to Status, releaseSeat bool) (*Reservation, error)
	HasActive(ctx context.Context, passengerID, tripID types.ID) (bool, error)
	HasConfirmed(ctx context.Context, passengerID, tripID types.ID) (bool, error)
	ListActiveByTrip(ctx context.Context, tripID types.ID) ([]*Reservation, error)
	ListByPassenger(ctx context.Context, passengerID types.ID) ([]*Reservation, error)
}

type TripReader interface {
	Get(ctx context.Context, id types.ID) (*trip.Trip, error)
}
