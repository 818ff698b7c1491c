package memstore

import (
	"context"
	"sort"

	"github.com/mimoreirac/pi-tercero/internal/modules/reservation"
	"github.com/mimoreirac/pi-tercero/internal/modules/trip"
	"github.com/mimoreirac/pi-tercero/internal/types"
)

type Reservations struct {
	db *DB
}

var _ reservation.Repository = (*Reservations)(nil)

func (s *Reservations) Create(_ context.Context, r *reservation.Reservation) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.insertLocked(r)
}

// CreateLocked holds the store mutex across check and insert, standing in for the trip row lock.
func (s *Reservations) CreateLocked(_ context.Context, r *reservation.Reservation, check reservation.CreateCheck) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	t, ok := s.db.trips[r.TripID]
	if !ok {
		return trip.ErrNotFound
	}
	if err := check(cloneTrip(t), s.hasLocked(r.PassengerID, r.TripID, activeStatus)); err != nil {
		return err
	}
	if err := s.insertLocked(r); err != nil {
		return err
	}
	t.SeatsAvailable--
	t.UpdatedAt = s.db.tick()
	return nil
}

func (s *Reservations) Get(_ context.Context, id types.ID) (*reservation.Reservation, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, ok := s.db.reservations[id]
	if !ok {
		return nil, reservation.ErrNotFound
	}
	return clonePtr(r), nil
}

func (s *Reservations) UpdateStatus(_ context.Context, r *reservation.Reservation, to reservation.Status, releaseSeat bool) (*reservation.Reservation, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	stored, ok := s.db.reservations[r.ID]
	if !ok || stored.Status != r.Status {
		return nil, reservation.ErrConflict
	}
	stored.Status = to
	stored.UpdatedAt = s.db.tick()
	if releaseSeat {
		if t, ok := s.db.trips[stored.TripID]; ok {
			t.SeatsAvailable++
		}
	}
	return clonePtr(stored), nil
}

func (s *Reservations) HasActive(_ context.Context, passengerID, tripID types.ID) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.hasLocked(passengerID, tripID, activeStatus), nil
}

func (s *Reservations) HasConfirmed(_ context.Context, passengerID, tripID types.ID) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.hasLocked(passengerID, tripID, func(st reservation.Status) bool {
		return st == reservation.StatusConfirmed
	}), nil
}

func (s *Reservations) ListActiveByTrip(_ context.Context, tripID types.ID) ([]*reservation.Reservation, error) {
	out := s.filter(func(r *reservation.Reservation) bool { return r.TripID == tripID && !r.Status.Terminal() })
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Reservations) ListByPassenger(_ context.Context, passengerID types.ID) ([]*reservation.Reservation, error) {
	out := s.filter(func(r *reservation.Reservation) bool { return r.PassengerID == passengerID })
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Reservations) insertLocked(r *reservation.Reservation) error {
	if _, ok := s.db.trips[r.TripID]; !ok {
		return trip.ErrNotFound
	}
	if s.hasLocked(r.PassengerID, r.TripID, activeStatus) {
		return reservation.ErrDuplicate
	}
	now := s.db.tick()
	r.CreatedAt, r.UpdatedAt = now, now
	s.db.reservations[r.ID] = clonePtr(r)
	return nil
}

func (s *Reservations) hasLocked(passengerID, tripID types.ID, match func(reservation.Status) bool) bool {
	for _, r := range s.db.reservations {
		if r.PassengerID == passengerID && r.TripID == tripID && match(r.Status) {
			return true
		}
	}
	return false
}

func (s *Reservations) filter(keep func(*reservation.Reservation) bool) []*reservation.Reservation {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []*reservation.Reservation
	for _, r := range s.db.reservations {
		if keep(r) {
			out = append(out, clonePtr(r))
		}
	}
	return out
}

func activeStatus(st reservation.Status) bool {
	return st == reservation.StatusPending || st == reservation.StatusConfirmed
}
