// README: Reservation engine: create/confirm/reject/cancel with the fail-fast checks of each step.
package reservation

import (
	"context"

	"github.com/google/uuid"

	"github.com/mimoreirac/pi-tercero/internal/apperr"
	"github.com/mimoreirac/pi-tercero/internal/authz"
	"github.com/mimoreirac/pi-tercero/internal/modules/audit"
	"github.com/mimoreirac/pi-tercero/internal/modules/trip"
	"github.com/mimoreirac/pi-tercero/internal/types"
)

type Auditor interface {
	Record(ctx context.Context, e audit.Entry)
}

type Service struct {
	repo    Repository
	trips   TripReader
	mode    Mode
	auditor Auditor
}

// NewService wires the engine. An unknown mode falls back to ModeBaseline; auditor may be nil.
func NewService(repo Repository, trips TripReader, mode Mode, auditor Auditor) *Service {
	if mode != ModeStrict {
		mode = ModeBaseline
	}
	return &Service{repo: repo, trips: trips, mode: mode, auditor: auditor}
}

func (s *Service) Mode() Mode {
	return s.mode
}

// Create books a pending reservation on tripID for passengerID.
//
// Baseline mode checks then inserts without a transaction and leaves the seat
// count alone, so two passengers can both pass the seat check for the last
// seat. Strict mode closes that gap.
func (s *Service) Create(ctx context.Context, passengerID, tripID types.ID) (*Reservation, error) {
	if passengerID == "" {
		return nil, apperr.Unauthenticated("missing caller")
	}
	if tripID == "" {
		return nil, apperr.InvalidInput("id_viaje is required")
	}
	r := &Reservation{
		ID:          types.ID(uuid.NewString()),
		TripID:      tripID,
		PassengerID: passengerID,
		Status:      StatusPending,
	}

	if s.mode == ModeStrict {
		err := s.repo.CreateLocked(ctx, r, func(t *trip.Trip, hasActive bool) error {
			if err := checkTrip(t, passengerID); err != nil {
				return err
			}
			if hasActive {
				return ErrDuplicate
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	} else {
		t, err := s.trips.Get(ctx, tripID)
		if err != nil {
			return nil, err
		}
		if err := checkTrip(t, passengerID); err != nil {
			return nil, err
		}
		active, err := s.repo.HasActive(ctx, passengerID, tripID)
		if err != nil {
			return nil, err
		}
		if active {
			return nil, ErrDuplicate
		}
		if err := s.repo.Create(ctx, r); err != nil {
			return nil, err
		}
	}

	s.record(ctx, passengerID, audit.ActionReservationCreated, r, nil)
	return r, nil
}

// checkTrip applies the trip-side rules in order: active, has seats, not the caller's own trip.
func checkTrip(t *trip.Trip, passengerID types.ID) error {
	if t.Status != trip.StatusActive {
		return apperr.InvalidState("trip is not active (estado %s)", t.Status)
	}
	if t.SeatsAvailable <= 0 {
		return apperr.InvalidState("no seats available")
	}
	if t.DriverID == passengerID {
		return apperr.InvalidState("self-booking: drivers cannot reserve their own trip")
	}
	return nil
}

// UpdateStatus lets the trip's driver confirm or reject a reservation.
// Confirming does not re-check seats.
func (s *Service) UpdateStatus(ctx context.Context, caller, id types.ID, to Status) (*Reservation, error) {
	if to != StatusConfirmed && to != StatusRejected {
		return nil, apperr.InvalidInput("estado must be %q or %q", StatusConfirmed, StatusRejected)
	}
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	t, err := s.trips.Get(ctx, r.TripID)
	if err != nil {
		return nil, err
	}
	if err := authz.DecidesReservation(caller, t.DriverID).Err(); err != nil {
		return nil, err
	}
	if !CanTransition(r.Status, to) {
		return nil, apperr.InvalidState("cannot move reservation from %s to %s", r.Status, to)
	}
	release := s.mode == ModeStrict && to == StatusRejected
	updated, err := s.repo.UpdateStatus(ctx, r, to, release)
	if err != nil {
		return nil, err
	}

	action := audit.ActionReservationAccepted
	if to == StatusRejected {
		action = audit.ActionReservationRejected
	}
	s.record(ctx, caller, action, updated, map[string]any{"desde": r.Status})
	return updated, nil
}

// Cancel lets the passenger withdraw a pending or confirmed reservation.
func (s *Service) Cancel(ctx context.Context, caller, id types.ID) (*Reservation, error) {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.OwnsReservation(caller, r.PassengerID).Err(); err != nil {
		return nil, err
	}
	if !CanTransition(r.Status, StatusCancelled) {
		return nil, apperr.InvalidState("cannot cancel a reservation in status %s", r.Status)
	}
	updated, err := s.repo.UpdateStatus(ctx, r, StatusCancelled, s.mode == ModeStrict)
	if err != nil {
		return nil, err
	}
	s.record(ctx, caller, audit.ActionReservationCanceled, updated, map[string]any{"desde": r.Status})
	return updated, nil
}

// Get returns a reservation to its passenger or to the trip's driver.
func (s *Service) Get(ctx context.Context, caller, id types.ID) (*Reservation, error) {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	t, err := s.trips.Get(ctx, r.TripID)
	if err != nil {
		return nil, err
	}
	if err := authz.CanViewReservation(caller, r.PassengerID, t.DriverID).Err(); err != nil {
		return nil, err
	}
	return r, nil
}

// ListForTrip returns the trip's pending and confirmed reservations, oldest first.
func (s *Service) ListForTrip(ctx context.Context, tripID types.ID) ([]*Reservation, error) {
	return s.repo.ListActiveByTrip(ctx, tripID)
}

// ListMine returns every reservation the passenger made, newest first.
func (s *Service) ListMine(ctx context.Context, passengerID types.ID) ([]*Reservation, error) {
	return s.repo.ListByPassenger(ctx, passengerID)
}

// HasConfirmed reports whether the passenger holds a confirmed reservation on the trip.
func (s *Service) HasConfirmed(ctx context.Context, passengerID, tripID types.ID) (bool, error) {
	return s.repo.HasConfirmed(ctx, passengerID, tripID)
}

func (s *Service) record(ctx context.Context, actor types.ID, action audit.Action, r *Reservation, detail map[string]any) {
	if s.auditor == nil {
		return
	}
	if detail == nil {
		detail = map[string]any{}
	}
	detail["id_viaje"] = r.TripID
	s.auditor.Record(ctx, audit.Entry{
		UserID:       actor,
		Action:       action,
		ResourceType: audit.ResourceReservation,
		ResourceID:   r.ID.String(),
		Detail:       detail,
	})
}
