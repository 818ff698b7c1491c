package memstore

import (
	"context"
	"sort"

	"github.com/mimoreirac/pi-tercero/internal/modules/incident"
	"github.com/mimoreirac/pi-tercero/internal/types"
)

type Incidents struct {
	db *DB
}

var _ incident.Repository = (*Incidents)(nil)

func (s *Incidents) Create(_ context.Context, i *incident.Incident) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	now := s.db.tick()
	i.CreatedAt, i.UpdatedAt = now, now
	s.db.incidents[i.ID] = clonePtr(i)
	return nil
}

func (s *Incidents) Get(_ context.Context, id types.ID) (*incident.Incident, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	i, ok := s.db.incidents[id]
	if !ok {
		return nil, incident.ErrNotFound
	}
	return clonePtr(i), nil
}

func (s *Incidents) ListByTrip(_ context.Context, tripID types.ID) ([]*incident.TripIncident, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []*incident.TripIncident
	for _, i := range s.db.incidents {
		if i.TripID != tripID {
			continue
		}
		ti := &incident.TripIncident{Incident: *i}
		if u, ok := s.db.users[i.ReporterID]; ok {
			ti.ReporterName = u.Name
		}
		out = append(out, ti)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	return out, nil
}

func (s *Incidents) ListByReporter(_ context.Context, reporterID types.ID) ([]*incident.ReporterIncident, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []*incident.ReporterIncident
	for _, i := range s.db.incidents {
		if i.ReporterID != reporterID {
			continue
		}
		ri := &incident.ReporterIncident{Incident: *i}
		if t, ok := s.db.trips[i.TripID]; ok {
			ri.Origin, ri.Destination, ri.DepartureAt = t.Origin, t.Destination, t.DepartureAt
		}
		out = append(out, ri)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	return out, nil
}

func (s *Incidents) Update(_ context.Context, in *incident.Incident) (*incident.Incident, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	stored, ok := s.db.incidents[in.ID]
	if !ok {
		return nil, incident.ErrNotFound
	}
	stored.Category = in.Category
	stored.Description = in.Description
	stored.Status = in.Status
	stored.UpdatedAt = s.db.tick()
	return clonePtr(stored), nil
}

func (s *Incidents) Delete(_ context.Context, id types.ID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.incidents[id]; !ok {
		return incident.ErrNotFound
	}
	delete(s.db.incidents, id)
	return nil
}
