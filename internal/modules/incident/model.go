// README: Incident model, categories and read-side projections.
package incident

import (
	"context"
	"time"

	"github.com/mimoreirac/pi-tercero/internal/apperr"
	"github.com/mimoreirac/pi-tercero/internal/modules/trip"
	"github.com/mimoreirac/pi-tercero/internal/types"
)

type Category string

const (
	CategoryDelay        Category = "retraso"
	CategoryAccident     Category = "accidente"
	CategoryBehavior     Category = "comportamiento"
	CategoryCancellation Category = "cancelacion"
	CategoryOther        Category = "otro"
)

var categories = []Category{
	CategoryDelay,
	CategoryAccident,
	CategoryBehavior,
	CategoryCancellation,
	CategoryOther,
}

func (c Category) Valid() bool {
	for _, known := range categories {
		if c == known {
			return true
		}
	}
	return false
}

type Status string

const (
	StatusOpen     Status = "abierto"
	StatusInReview Status = "en_revision"
	StatusClosed   Status = "cerrado"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInReview, StatusClosed:
		return true
	}
	return false
}

var ErrNotFound = apperr.NotFound("incident not found")

type Incident struct {
	ID          types.ID  `json:"id_incidente"`
	TripID      types.ID  `json:"id_viaje"`
	ReporterID  types.ID  `json:"id_reportador"`
	Category    Category  `json:"tipo_incidente"`
	Description string    `json:"descripcion"`
	Status      Status    `json:"estado"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TripIncident is an incident listed under its trip, with the reporter's name.
type TripIncident struct {
	Incident
	ReporterName string `json:"nombre_reportador"`
}

// ReporterIncident is an incident listed for its reporter, with trip context.
type ReporterIncident struct {
	Incident
	Origin      string    `json:"origen"`
	Destination string    `json:"destino"`
	DepartureAt time.Time `json:"hora_salida"`
}

type CreateCommand struct {
	TripID      types.ID
	Category    Category
	Description string
}

type UpdateCommand struct {
	Category    *Category
	Description *string
	Status      *Status
}

type Repository interface {
	Create(ctx context.Context, i *Incident) error
	Get(ctx context.Context, id types.ID) (*Incident, error)
	ListByTrip(ctx context.Context, tripID types.ID) ([]*TripIncident, error)
	ListByReporter(ctx context.Context, reporterID types.ID) ([]*ReporterIncident, error)
	Update(ctx context.Context, i *Incident) (*Incident, error)
	Delete(ctx context.Context, id types.ID) error
}

type TripReader interface {
	Get(ctx context.Context, id types.ID) (*trip.Trip, error)
}

// Involvement answers whether a passenger holds a confirmed reservation on a trip.
type Involvement interface {
	HasConfirmed(ctx context.Context, passengerID, tripID types.ID) (bool, error)
}
