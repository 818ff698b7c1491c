package memstore

import (
	"context"
	"sort"

	"github.com/mimoreirac/pi-tercero/internal/modules/trip"
	"github.com/mimoreirac/pi-tercero/internal/types"
)

type Trips struct {
	db *DB
}

var _ trip.Repository = (*Trips)(nil)

func (s *Trips) Create(_ context.Context, t *trip.Trip) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	now := s.db.tick()
	t.CreatedAt, t.UpdatedAt = now, now
	s.db.trips[t.ID] = cloneTrip(t)
	return nil
}

func (s *Trips) Get(_ context.Context, id types.ID) (*trip.Trip, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.getLocked(id)
}

func (s *Trips) getLocked(id types.ID) (*trip.Trip, error) {
	t, ok := s.db.trips[id]
	if !ok {
		return nil, trip.ErrNotFound
	}
	return cloneTrip(t), nil
}

func (s *Trips) ListActive(_ context.Context) ([]*trip.Trip, error) {
	out := s.filter(func(t *trip.Trip) bool { return t.Status == trip.StatusActive })
	sort.SliceStable(out, func(i, j int) bool { return out[i].DepartureAt.Before(out[j].DepartureAt) })
	return out, nil
}

func (s *Trips) ListByDriver(_ context.Context, driverID types.ID) ([]*trip.Trip, error) {
	out := s.filter(func(t *trip.Trip) bool { return t.DriverID == driverID })
	sort.SliceStable(out, func(i, j int) bool { return out[i].DepartureAt.After(out[j].DepartureAt) })
	return out, nil
}

func (s *Trips) Update(_ context.Context, id types.ID, changes trip.Changes) (*trip.Trip, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	t, ok := s.db.trips[id]
	if !ok {
		return nil, trip.ErrNotFound
	}
	if len(changes) == 0 {
		return cloneTrip(t), nil
	}
	merged := changes.Apply(*t)
	merged.UpdatedAt = s.db.tick()
	s.db.trips[id] = cloneTrip(&merged)
	return cloneTrip(&merged), nil
}

func (s *Trips) Delete(_ context.Context, id types.ID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.trips[id]; !ok {
		return trip.ErrNotFound
	}
	s.db.deleteTripLocked(id)
	return nil
}

func (s *Trips) filter(keep func(*trip.Trip) bool) []*trip.Trip {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []*trip.Trip
	for _, t := range s.db.trips {
		if keep(t) {
			out = append(out, cloneTrip(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func cloneTrip(t *trip.Trip) *trip.Trip {
	c := *t
	c.Description = clonePtr(t.Description)
	if t.AreaTags != nil {
		c.AreaTags = append([]string(nil), t.AreaTags...)
	}
	return &c
}
