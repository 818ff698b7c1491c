// README: Trip model, statuses and the whitelist of mutable fields.
package trip

import (
	"context"
	"time"

	"github.com/mimoreirac/pi-tercero/internal/apperr"
	"github.com/mimoreirac/pi-tercero/internal/types"
)

type Status string

const (
	StatusActive    Status = "activo"
	StatusInactive  Status = "inactivo"
	StatusCompleted Status = "completado"
	StatusCancelled Status = "cancelado"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

var ErrNotFound = apperr.NotFound("trip not found")

type Trip struct {
	ID             types.ID  `json:"id_viaje"`
	DriverID       types.ID  `json:"id_conductor"`
	Origin         string    `json:"origen"`
	Destination    string    `json:"destino"`
	DepartureAt    time.Time `json:"hora_salida"`
	SeatsAvailable int       `json:"asientos_disponibles"`
	Description    *string   `json:"descripcion"`
	Status         Status    `json:"estado"`
	AreaTags       []string  `json:"etiquetas_area"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Mutable columns. Anything else in an update payload is ignored.
const (
	FieldOrigin      = "origen"
	FieldDestination = "destino"
	FieldDepartureAt = "hora_salida"
	FieldSeats       = "asientos_disponibles"
	FieldDescription = "descripcion"
	FieldStatus      = "estado"
	FieldAreaTags    = "etiquetas_area"
)

var MutableFields = []string{
	FieldOrigin,
	FieldDestination,
	FieldDepartureAt,
	FieldSeats,
	FieldDescription,
	FieldStatus,
	FieldAreaTags,
}

// Changes maps whitelisted column names to decoded values.
type Changes map[string]any

type CreateCommand struct {
	Origin      string
	Destination string
	DepartureAt *time.Time
	Seats       *int
	Description *string
	Status      Status
	AreaTags    []string
}

type Repository interface {
	Create(ctx context.Context, t *Trip) error
	Get(ctx context.Context, id types.ID) (*Trip, error)
	ListActive(ctx context.Context) ([]*Trip, error)
	ListByDriver(ctx context.Context, driverID types.ID) ([]*Trip, error)
	Update(ctx context.Context, id types.ID, changes Changes) (*Trip, error)
	Delete(ctx context.Context, id types.ID) error
}
