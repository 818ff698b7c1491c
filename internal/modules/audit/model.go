// README: Audit entry model (registro_auditoria) and the action vocabulary.
package audit

import (
	"context"
	"time"

	"github.com/mimoreirac/pi-tercero/internal/types"
)

type Action string

const (
	ActionUserCreated         Action = "usuario_creado"
	ActionUserDeleted         Action = "usuario_eliminado"
	ActionTripCreated         Action = "viaje_creado"
	ActionTripUpdated         Action = "viaje_actualizado"
	ActionTripDeleted         Action = "viaje_eliminado"
	ActionReservationCreated  Action = "reserva_creada"
	ActionReservationAccepted Action = "reserva_confirmada"
	ActionReservationRejected Action = "reserva_rechazada"
	ActionReservationCanceled Action = "reserva_cancelada"
	ActionIncidentCreated     Action = "incidente_creado"
	ActionIncidentUpdated     Action = "incidente_actualizado"
	ActionIncidentDeleted     Action = "incidente_eliminado"
)

type ResourceType string

const (
	ResourceUser        ResourceType = "usuario"
	ResourceTrip        ResourceType = "viaje"
	ResourceReservation ResourceType = "reserva"
	ResourceIncident    ResourceType = "incidente"
)

type Entry struct {
	ID           int64          `json:"id_registro"`
	UserID       types.ID       `json:"id_usuario"`
	Action       Action         `json:"accion"`
	ResourceType ResourceType   `json:"tipo_recurso"`
	ResourceID   string         `json:"id_recurso"`
	Detail       map[string]any `json:"detalle,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// RoutingKey is the topic the entry is published under, e.g. "reserva.reserva_creada".
func (e Entry) RoutingKey() string {
	return string(e.ResourceType) + "." + string(e.Action)
}

type Repository interface {
	Append(ctx context.Context, e *Entry) error
	ListByUser(ctx context.Context, userID types.ID, limit int) ([]Entry, error)
}

// Publisher forwards entries to a message broker.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}
