// README: Base handler utilities (JSON helpers, error mapping, empty-list policy).
package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mimoreirac/pi-tercero/internal/apperr"
	"github.com/mimoreirac/pi-tercero/internal/http/middleware"
	"github.com/mimoreirac/pi-tercero/internal/logging"
	"github.com/mimoreirac/pi-tercero/internal/types"
)

type errorResponse struct {
	Error string `json:"error"`
}

// Base carries what every handler needs to answer: a logger for 500s and
// the server-wide status for empty collections.
type Base struct {
	Log             logging.Logger
	EmptyListStatus int
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// fail maps an apperr kind to its status. Anything unclassified is logged
// and answered with a generic body.
func (b Base) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		b.Log.Error(c.Request.Context(), "request failed",
			"err", err,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"request_id", middleware.RequestIDFrom(c),
		)
		writeError(c, status, "internal error")
		return
	}
	writeError(c, status, err.Error())
}

func statusFor(err error) int {
	if _, ok := apperr.DuplicateField(err); ok {
		return http.StatusConflict
	}
	switch {
	case errors.Is(err, apperr.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrInvalidInput), errors.Is(err, apperr.ErrInvalidState):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeList answers a collection endpoint. Empty results follow EmptyListStatus.
func writeList[T any](b Base, c *gin.Context, items []T, what string) {
	if len(items) == 0 {
		if b.EmptyListStatus == http.StatusNotFound {
			writeError(c, http.StatusNotFound, "no "+what+" found")
			return
		}
		writeJSON(c, http.StatusOK, []T{})
		return
	}
	writeJSON(c, http.StatusOK, items)
}

// identityFrom returns the caller resolved by middleware.RequireUser. A
// route mounted without it is a wiring bug and answers 401.
func identityFrom(c *gin.Context) (types.Identity, bool) {
	id, ok := middleware.IdentityFrom(c)
	if !ok || id.UserID == "" {
		writeError(c, http.StatusUnauthorized, "unauthenticated")
		return types.Identity{}, false
	}
	return id, true
}

// pathID reads the :id parameter. Ids are UUIDs; anything else cannot
// name a stored resource and is answered as not found.
func pathID(c *gin.Context, what string) (types.ID, bool) {
	raw := c.Param("id")
	if _, err := uuid.Parse(raw); err != nil {
		writeError(c, http.StatusNotFound, apperr.NotFound(what+" not found").Error())
		return "", false
	}
	return types.ID(raw), true
}

// bindJSON decodes the body into dst, answering 400 on malformed input.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, http.StatusBadRequest, apperr.InvalidInput("invalid json body").Error())
		return false
	}
	return true
}

// bindOptionalJSON is bindJSON for endpoints whose body may be omitted.
func bindOptionalJSON(c *gin.Context, dst any) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		writeError(c, http.StatusBadRequest, apperr.InvalidInput("invalid json body").Error())
		return false
	}
	return true
}
