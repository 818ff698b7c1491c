// README: Reservation handlers: request, decide, cancel and list seats on trips.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mimoreirac/pi-tercero/internal/modules/reservation"
	"github.com/mimoreirac/pi-tercero/internal/types"
)

type ReservationHandler struct {
	Base
	reservations *reservation.Service
}

func NewReservationHandler(base Base, reservations *reservation.Service) *ReservationHandler {
	return &ReservationHandler{Base: base, reservations: reservations}
}

type createReservationReq struct {
	TripID string `json:"id_viaje"`
}

type statusReq struct {
	Status string `json:"estado"`
}

func (h *ReservationHandler) Create(c *gin.Context) {
	caller, ok := identityFrom(c)
	if !ok {
		return
	}
	var req createReservationReq
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.reservations.Create(c.Request.Context(), caller.UserID, types.ID(req.TripID))
	if err != nil {
		h.fail(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, r)
}

func (h *ReservationHandler) ListMine(c *gin.Context) {
	caller, ok := identityFrom(c)
	if !ok {
		return
	}
	list, err := h.reservations.ListMine(c.Request.Context(), caller.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	writeList(h.Base, c, list, "reservations")
}

// ListForTrip returns the pending and confirmed reservations of a trip, oldest first.
func (h *ReservationHandler) ListForTrip(c *gin.Context) {
	tripID, ok := pathID(c, "trip")
	if !ok {
		return
	}
	list, err := h.reservations.ListForTrip(c.Request.Context(), tripID)
	if err != nil {
		h.fail(c, err)
		return
	}
	writeList(h.Base, c, list, "reservations")
}

func (h *ReservationHandler) Get(c *gin.Context) {
	caller, ok := identityFrom(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "reservation")
	if !ok {
		return
	}
	r, err := h.reservations.Get(c.Request.Context(), caller.UserID, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, r)
}

// UpdateStatus is the driver's accept/reject decision.
func (h *ReservationHandler) UpdateStatus(c *gin.Context) {
	caller, ok := identityFrom(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "reservation")
	if !ok {
		return
	}
	var req statusReq
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.reservations.UpdateStatus(c.Request.Context(), caller.UserID, id, reservation.Status(req.Status))
	if err != nil {
		h.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, r)
}

func (h *ReservationHandler) Cancel(c *gin.Context) {
	caller, ok := identityFrom(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "reservation")
	if !ok {
		return
	}
	r, err := h.reservations.Cancel(c.Request.Context(), caller.UserID, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, r)
}
