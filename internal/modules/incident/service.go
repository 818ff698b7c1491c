// README: Incident log: reports restricted to the trip's driver and confirmed passengers.
package incident

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/mimoreirac/pi-tercero/internal/apperr"
	"github.com/mimoreirac/pi-tercero/internal/authz"
	"github.com/mimoreirac/pi-tercero/internal/modules/audit"
	"github.com/mimoreirac/pi-tercero/internal/types"
)

type Auditor interface {
	Record(ctx context.Context, e audit.Entry)
}

type Service struct {
	repo        Repository
	trips       TripReader
	involvement Involvement
	auditor     Auditor
}

func NewService(repo Repository, trips TripReader, involvement Involvement, auditor Auditor) *Service {
	return &Service{repo: repo, trips: trips, involvement: involvement, auditor: auditor}
}

// Categories lists the accepted tipo_incidente values.
func (s *Service) Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

func (s *Service) Create(ctx context.Context, reporterID types.ID, cmd CreateCommand) (*Incident, error) {
	desc := strings.TrimSpace(cmd.Description)
	if cmd.TripID == "" || cmd.Category == "" || desc == "" {
		return nil, apperr.InvalidInput("id_viaje, tipo_incidente and descripcion are required")
	}
	if !cmd.Category.Valid() {
		return nil, apperr.InvalidInput("unknown tipo_incidente %q", cmd.Category)
	}
	t, err := s.trips.Get(ctx, cmd.TripID)
	if err != nil {
		return nil, err
	}
	confirmed := false
	if t.DriverID != reporterID {
		confirmed, err = s.involvement.HasConfirmed(ctx, reporterID, t.ID)
		if err != nil {
			return nil, err
		}
	}
	if err := authz.InvolvedInTrip(reporterID, t.DriverID, confirmed).Err(); err != nil {
		return nil, err
	}

	i := &Incident{
		ID:          types.ID(uuid.NewString()),
		TripID:      t.ID,
		ReporterID:  reporterID,
		Category:    cmd.Category,
		Description: desc,
		Status:      StatusOpen,
	}
	if err := s.repo.Create(ctx, i); err != nil {
		return nil, err
	}
	s.record(ctx, reporterID, audit.ActionIncidentCreated, i)
	return i, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Incident, error) {
	return s.repo.Get(ctx, id)
}

// ListForTrip is open to any authenticated user; the trip must exist.
func (s *Service) ListForTrip(ctx context.Context, tripID types.ID) ([]*TripIncident, error) {
	if _, err := s.trips.Get(ctx, tripID); err != nil {
		return nil, err
	}
	return s.repo.ListByTrip(ctx, tripID)
}

func (s *Service) ListMine(ctx context.Context, reporterID types.ID) ([]*ReporterIncident, error) {
	return s.repo.ListByReporter(ctx, reporterID)
}

// Update edits the reporter's own incident. Absent fields keep their value.
func (s *Service) Update(ctx context.Context, caller, id types.ID, cmd UpdateCommand) (*Incident, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.OwnsIncident(caller, current.ReporterID).Err(); err != nil {
		return nil, err
	}
	if cmd.Category == nil && cmd.Description == nil && cmd.Status == nil {
		return current, nil
	}
	next := *current
	if cmd.Category != nil {
		if !cmd.Category.Valid() {
			return nil, apperr.InvalidInput("unknown tipo_incidente %q", *cmd.Category)
		}
		next.Category = *cmd.Category
	}
	if cmd.Description != nil {
		next.Description = strings.TrimSpace(*cmd.Description)
		if next.Description == "" {
			return nil, apperr.InvalidInput("descripcion must not be empty")
		}
	}
	if cmd.Status != nil {
		if !cmd.Status.Valid() {
			return nil, apperr.InvalidInput("unknown estado %q", *cmd.Status)
		}
		next.Status = *cmd.Status
	}
	updated, err := s.repo.Update(ctx, &next)
	if err != nil {
		return nil, err
	}
	s.record(ctx, caller, audit.ActionIncidentUpdated, updated)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, caller, id types.ID) error {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := authz.OwnsIncident(caller, current.ReporterID).Err(); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, caller, audit.ActionIncidentDeleted, current)
	return nil
}

func (s *Service) record(ctx context.Context, actor types.ID, action audit.Action, i *Incident) {
	if s.auditor == nil {
		return
	}
	s.auditor.Record(ctx, audit.Entry{
		UserID:       actor,
		Action:       action,
		ResourceType: audit.ResourceIncident,
		ResourceID:   i.ID.String(),
		Detail:       map[string]any{"id_viaje": i.TripID, "tipo_incidente": i.Category},
	})
}
