// README: Trip handlers: publish, browse, update, delete and route estimates.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mimoreirac/pi-tercero/internal/modules/trip"
)

type TripHandler struct {
	Base
	trips *trip.Service
}

func NewTripHandler(base Base, trips *trip.Service) *TripHandler {
	return &TripHandler{Base: base, trips: trips}
}

type createTripReq struct {
	Origin      string     `json:"origen"`
	Destination string     `json:"destino"`
	DepartureAt *time.Time `json:"hora_salida"`
	Seats       *int       `json:"asientos_disponibles"`
	Description *string    `json:"descripcion"`
	Status      string     `json:"estado"`
	AreaTags    []string   `json:"etiquetas_area"`
}

func (h *TripHandler) Create(c *gin.Context) {
	caller, ok := identityFrom(c)
	if !ok {
		return
	}
	var req createTripReq
	if !bindJSON(c, &req) {
		return
	}
	t, err := h.trips.Create(c.Request.Context(), caller.UserID, trip.CreateCommand{
		Origin:      req.Origin,
		Destination: req.Destination,
		DepartureAt: req.DepartureAt,
		Seats:       req.Seats,
		Description: req.Description,
		Status:      trip.Status(req.Status),
		AreaTags:    req.AreaTags,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, t)
}

// ListActive is the public board of trips open for booking.
func (h *TripHandler) ListActive(c *gin.Context) {
	trips, err := h.trips.ListActive(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	writeList(h.Base, c, trips, "trips")
}

func (h *TripHandler) ListMine(c *gin.Context) {
	caller, ok := identityFrom(c)
	if !ok {
		return
	}
	trips, err := h.trips.ListByDriver(c.Request.Context(), caller.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	writeList(h.Base, c, trips, "trips")
}

func (h *TripHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "trip")
	if !ok {
		return
	}
	t, err := h.trips.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, t)
}

// Update takes a partial body; keys outside the editable set are ignored.
func (h *TripHandler) Update(c *gin.Context) {
	caller, ok := identityFrom(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "trip")
	if !ok {
		return
	}
	var raw map[string]json.RawMessage
	if !bindJSON(c, &raw) {
		return
	}
	t, err := h.trips.Update(c.Request.Context(), caller.UserID, id, raw)
	if err != nil {
		h.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, t)
}

func (h *TripHandler) Delete(c *gin.Context) {
	caller, ok := identityFrom(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "trip")
	if !ok {
		return
	}
	if err := h.trips.Delete(c.Request.Context(), caller.UserID, id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *TripHandler) Route(c *gin.Context) {
	id, ok := pathID(c, "trip")
	if !ok {
		return
	}
	r, err := h.trips.Route(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, r)
}
