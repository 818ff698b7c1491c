// README: Incident handlers: report, browse, edit and withdraw trip incidents.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mimoreirac/pi-tercero/internal/modules/incident"
	"github.com/mimoreirac/pi-tercero/internal/types"
)

type IncidentHandler struct {
	Base
	incidents *incident.Service
}

func NewIncidentHandler(base Base, incidents *incident.Service) *IncidentHandler {
	return &IncidentHandler{Base: base, incidents: incidents}
}

type createIncidentReq struct {
	TripID      string `json:"id_viaje"`
	Category    string `json:"tipo_incidente"`
	Description string `json:"descripcion"`
}

type updateIncidentReq struct {
	Category    *incident.Category `json:"tipo_incidente"`
	Description *string            `json:"descripcion"`
	Status      *incident.Status   `json:"estado"`
}

func (h *IncidentHandler) Create(c *gin.Context) {
	caller, ok := identityFrom(c)
	if !ok {
		return
	}
	var req createIncidentReq
	if !bindJSON(c, &req) {
		return
	}
	in, err := h.incidents.Create(c.Request.Context(), caller.UserID, incident.CreateCommand{
		TripID:      types.ID(req.TripID),
		Category:    incident.Category(req.Category),
		Description: req.Description,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, in)
}

func (h *IncidentHandler) Categories(c *gin.Context) {
	writeJSON(c, http.StatusOK, h.incidents.Categories())
}

func (h *IncidentHandler) ListMine(c *gin.Context) {
	caller, ok := identityFrom(c)
	if !ok {
		return
	}
	list, err := h.incidents.ListMine(c.Request.Context(), caller.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	writeList(h.Base, c, list, "incidents")
}

func (h *IncidentHandler) ListForTrip(c *gin.Context) {
	tripID, ok := pathID(c, "trip")
	if !ok {
		return
	}
	list, err := h.incidents.ListForTrip(c.Request.Context(), tripID)
	if err != nil {
		h.fail(c, err)
		return
	}
	writeList(h.Base, c, list, "incidents")
}

func (h *IncidentHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "incident")
	if !ok {
		return
	}
	in, err := h.incidents.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, in)
}

func (h *IncidentHandler) Update(c *gin.Context) {
	caller, ok := identityFrom(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "incident")
	if !ok {
		return
	}
	var req updateIncidentReq
	if !bindJSON(c, &req) {
		return
	}
	in, err := h.incidents.Update(c.Request.Context(), caller.UserID, id, incident.UpdateCommand{
		Category:    req.Category,
		Description: req.Description,
		Status:      req.Status,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, in)
}

func (h *IncidentHandler) Delete(c *gin.Context) {
	caller, ok := identityFrom(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "incident")
	if !ok {
		return
	}
	if err := h.incidents.Delete(c.Request.Context(), caller.UserID, id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
