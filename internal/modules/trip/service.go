// README: Trip service: creation, reads, whitelisted updates and owner-only deletes.
package trip

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mimoreirac/pi-tercero/internal/apperr"
	"github.com/mimoreirac/pi-tercero/internal/authz"
	"github.com/mimoreirac/pi-tercero/internal/modules/audit"
	"github.com/mimoreirac/pi-tercero/internal/types"
)

type Auditor interface {
	Record(ctx context.Context, e audit.Entry)
}

// RouteEstimator returns the driving duration and a human-readable distance between two addresses.
type RouteEstimator interface {
	GetTravelEstimate(ctx context.Context, origin, destination string) (time.Duration, string, error)
}

type Route struct {
	TripID      types.ID `json:"id_viaje"`
	Origin      string   `json:"origen"`
	Destination string   `json:"destino"`
	DurationSec int64    `json:"duracion_segundos"`
	Distance    string   `json:"distancia"`
}

type Service struct {
	repo    Repository
	auditor Auditor
	routes  RouteEstimator
}

// NewService wires the trip store. auditor may be nil.
func NewService(repo Repository, auditor Auditor) *Service {
	return &Service{repo: repo, auditor: auditor}
}

// WithRoutes enables Route; without an estimator it reports NotFound.
func (s *Service) WithRoutes(r RouteEstimator) *Service {
	s.routes = r
	return s
}

// RoutesEnabled reports whether a route estimator is configured.
func (s *Service) RoutesEnabled() bool {
	return s.routes != nil
}

// Create publishes a trip. The driver is always the caller.
func (s *Service) Create(ctx context.Context, driverID types.ID, cmd CreateCommand) (*Trip, error) {
	if driverID == "" {
		return nil, apperr.Unauthenticated("missing caller")
	}
	t := &Trip{
		ID:          types.ID(uuid.NewString()),
		DriverID:    driverID,
		Origin:      strings.TrimSpace(cmd.Origin),
		Destination: strings.TrimSpace(cmd.Destination),
		Description: cmd.Description,
		Status:      cmd.Status,
		AreaTags:    cmd.AreaTags,
	}
	if t.Origin == "" || t.Destination == "" || cmd.DepartureAt == nil || cmd.Seats == nil {
		return nil, apperr.InvalidInput("origen, destino, hora_salida and asientos_disponibles are required")
	}
	t.DepartureAt = cmd.DepartureAt.UTC()
	t.SeatsAvailable = *cmd.Seats
	if t.Status == "" {
		t.Status = StatusActive
	}
	if err := validate(t); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	s.record(ctx, driverID, audit.ActionTripCreated, t.ID, nil)
	return t, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Trip, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListActive(ctx context.Context) ([]*Trip, error) {
	return s.repo.ListActive(ctx)
}

func (s *Service) ListByDriver(ctx context.Context, driverID types.ID) ([]*Trip, error) {
	return s.repo.ListByDriver(ctx, driverID)
}

// Update applies the whitelisted fields of raw. With no whitelisted field the
// stored record is returned unchanged.
func (s *Service) Update(ctx context.Context, caller types.ID, id types.ID, raw map[string]json.RawMessage) (*Trip, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.OwnsTrip(caller, current.DriverID).Err(); err != nil {
		return nil, err
	}
	changes, err := ParseChanges(raw)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return current, nil
	}
	merged := changes.Apply(*current)
	if err := validate(&merged); err != nil {
		return nil, err
	}
	updated, err := s.repo.Update(ctx, id, changes)
	if err != nil {
		return nil, err
	}
	fields := make([]string, 0, len(changes))
	for _, f := range MutableFields {
		if _, ok := changes[f]; ok {
			fields = append(fields, f)
		}
	}
	s.record(ctx, caller, audit.ActionTripUpdated, id, map[string]any{"campos": fields})
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, caller types.ID, id types.ID) error {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := authz.OwnsTrip(caller, current.DriverID).Err(); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, caller, audit.ActionTripDeleted, id, nil)
	return nil
}

// Route asks the maps backend for the driving estimate between the trip's endpoints.
func (s *Service) Route(ctx context.Context, id types.ID) (*Route, error) {
	if s.routes == nil {
		return nil, apperr.NotFound("route estimates are not configured")
	}
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	dur, dist, err := s.routes.GetTravelEstimate(ctx, t.Origin, t.Destination)
	if err != nil {
		return nil, err
	}
	return &Route{
		TripID:      t.ID,
		Origin:      t.Origin,
		Destination: t.Destination,
		DurationSec: int64(dur / time.Second),
		Distance:    dist,
	}, nil
}

func validate(t *Trip) error {
	if t.Origin == "" || t.Destination == "" {
		return apperr.InvalidInput("origen and destino must not be empty")
	}
	if strings.EqualFold(t.Origin, t.Destination) {
		return apperr.InvalidInput("origen and destino must differ")
	}
	if t.DepartureAt.IsZero() {
		return apperr.InvalidInput("hora_salida is required")
	}
	if t.SeatsAvailable < 0 {
		return apperr.InvalidInput("asientos_disponibles must not be negative")
	}
	if !t.Status.Valid() {
		return apperr.InvalidInput("unknown estado %q", t.Status)
	}
	return nil
}

func (s *Service) record(ctx context.Context, actor types.ID, action audit.Action, id types.ID, detail map[string]any) {
	if s.auditor == nil {
		return
	}
	s.auditor.Record(ctx, audit.Entry{
		UserID:       actor,
		Action:       action,
		ResourceType: audit.ResourceTrip,
		ResourceID:   id.String(),
		Detail:       detail,
	})
}
