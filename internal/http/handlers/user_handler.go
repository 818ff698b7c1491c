// README: User handlers: credential sync, own profile, activity and public profiles.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mimoreirac/pi-tercero/internal/http/middleware"
	"github.com/mimoreirac/pi-tercero/internal/modules/audit"
	"github.com/mimoreirac/pi-tercero/internal/modules/user"
)

type UserHandler struct {
	Base
	users *user.Service
	audit *audit.Service
}

func NewUserHandler(base Base, users *user.Service, auditSvc *audit.Service) *UserHandler {
	return &UserHandler{Base: base, users: users, audit: auditSvc}
}

type syncReq struct {
	Phone *string `json:"numero_telefono"`
}

type profileReq struct {
	Name  *string `json:"nombre"`
	Phone *string `json:"numero_telefono"`
}

// Sync links the verified credential to an internal user, creating it on first call.
// Mounted behind Auth only; the user may not exist yet.
func (h *UserHandler) Sync(c *gin.Context) {
	cred, ok := middleware.CredentialFrom(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "unauthenticated")
		return
	}
	var req syncReq
	if !bindOptionalJSON(c, &req) {
		return
	}
	u, created, err := h.users.ResolveOrCreate(c.Request.Context(), cred, req.Phone)
	if err != nil {
		h.fail(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(c, status, u)
}

func (h *UserHandler) Me(c *gin.Context) {
	caller, ok := identityFrom(c)
	if !ok {
		return
	}
	u, err := h.users.Get(c.Request.Context(), caller.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, u)
}

func (h *UserHandler) UpdateMe(c *gin.Context) {
	caller, ok := identityFrom(c)
	if !ok {
		return
	}
	var req profileReq
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.users.UpdateProfile(c.Request.Context(), caller, user.ProfileUpdate{Name: req.Name, Phone: req.Phone})
	if err != nil {
		h.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, u)
}

func (h *UserHandler) DeleteMe(c *gin.Context) {
	caller, ok := identityFrom(c)
	if !ok {
		return
	}
	if err := h.users.Delete(c.Request.Context(), caller); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Activity lists the caller's audit trail, newest first. ?limit= is clamped by the audit service.
func (h *UserHandler) Activity(c *gin.Context) {
	caller, ok := identityFrom(c)
	if !ok {
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(c, http.StatusBadRequest, "invalid input: limit must be a non-negative integer")
			return
		}
		limit = n
	}
	entries, err := h.audit.ListByUser(c.Request.Context(), caller.UserID, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	writeList(h.Base, c, entries, "activity")
}

// Get returns another user's public profile.
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "user")
	if !ok {
		return
	}
	u, err := h.users.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, u.Public())
}
