// Package memstore is an in-memory implementation of every repository, used by
// service and handler tests. It mirrors the Postgres schema's unique
// constraints and ON DELETE CASCADE rules.
package memstore

import (
	"sync"
	"time"

	"github.com/mimoreirac/pi-tercero/internal/modules/audit"
	"github.com/mimoreirac/pi-tercero/internal/modules/incident"
	"github.com/mimoreirac/pi-tercero/internal/modules/reservation"
	"github.com/mimoreirac/pi-tercero/internal/modules/trip"
	"github.com/mimoreirac/pi-tercero/internal/modules/user"
	"github.com/mimoreirac/pi-tercero/internal/types"
)

type DB struct {
	mu           sync.Mutex
	users        map[types.ID]*user.User
	trips        map[types.ID]*trip.Trip
	reservations map[types.ID]*reservation.Reservation
	incidents    map[types.ID]*incident.Incident
	audit        []audit.Entry

	clock time.Time
}

func New() *DB {
	return &DB{
		users:        map[types.ID]*user.User{},
		trips:        map[types.ID]*trip.Trip{},
		reservations: map[types.ID]*reservation.Reservation{},
		incidents:    map[types.ID]*incident.Incident{},
		clock:        time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// tick returns a strictly increasing timestamp so newest-first orderings are stable. Callers hold mu.
func (db *DB) tick() time.Time {
	db.clock = db.clock.Add(time.Millisecond)
	return db.clock
}

func (db *DB) Users() *Users               { return &Users{db: db} }
func (db *DB) Trips() *Trips               { return &Trips{db: db} }
func (db *DB) Reservations() *Reservations { return &Reservations{db: db} }
func (db *DB) Incidents() *Incidents       { return &Incidents{db: db} }
func (db *DB) Audit() *Audit               { return &Audit{db: db} }

// SetTripSeats overwrites a trip's seat count; tests use it to inspect or stage seat accounting.
func (db *DB) SetTripSeats(id types.ID, seats int) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if t, ok := db.trips[id]; ok {
		t.SeatsAvailable = seats
	}
}

// deleteTripLocked removes a trip and everything that references it.
func (db *DB) deleteTripLocked(id types.ID) {
	delete(db.trips, id)
	for rid, r := range db.reservations {
		if r.TripID == id {
			delete(db.reservations, rid)
		}
	}
	for iid, i := range db.incidents {
		if i.TripID == id {
			delete(db.incidents, iid)
		}
	}
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
