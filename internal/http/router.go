// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mimoreirac/pi-tercero/internal/http/handlers"
	"github.com/mimoreirac/pi-tercero/internal/http/middleware"
	"github.com/mimoreirac/pi-tercero/internal/infra"
	"github.com/mimoreirac/pi-tercero/internal/logging"
	"github.com/mimoreirac/pi-tercero/internal/modules/audit"
	"github.com/mimoreirac/pi-tercero/internal/modules/incident"
	"github.com/mimoreirac/pi-tercero/internal/modules/reservation"
	"github.com/mimoreirac/pi-tercero/internal/modules/trip"
	"github.com/mimoreirac/pi-tercero/internal/modules/user"
)

type RouterDeps struct {
	Log      logging.Logger
	Verifier infra.TokenVerifier
	// Issuer enables /auth/register and /auth/login. Nil outside local auth mode.
	Issuer handlers.TokenIssuer
	// Health is pinged by /health. May be nil.
	Health handlers.Pinger

	Users        *user.Service
	Trips        *trip.Service
	Reservations *reservation.Service
	Incidents    *incident.Service
	Audit        *audit.Service

	EmptyListStatus int
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(middleware.RequestID(), middleware.Logging(deps.Log), middleware.Recovery(deps.Log))
	r.NoRoute(notFound)
	r.NoMethod(methodNotAllowed)

	base := handlers.Base{Log: deps.Log, EmptyListStatus: emptyListStatus(deps.EmptyListStatus)}

	health := handlers.NewHealthHandler(base, deps.Health)
	r.GET("/health", health.Check)

	if deps.Issuer != nil {
		authH := handlers.NewAuthHandler(base, deps.Users, deps.Issuer)
		r.POST("/auth/register", authH.Register)
		r.POST("/auth/login", authH.Login)
	}

	authn := middleware.Auth(deps.Verifier)
	userH := handlers.NewUserHandler(base, deps.Users, deps.Audit)

	// Sync is the one authenticated route that runs before the user exists.
	r.POST("/users/sync", authn, userH.Sync)

	api := r.Group("/", authn, middleware.RequireUser(deps.Users, deps.Log))

	api.GET("/users/me", userH.Me)
	api.PUT("/users/me", userH.UpdateMe)
	api.DELETE("/users/me", userH.DeleteMe)
	api.GET("/users/me/activity", userH.Activity)
	api.GET("/users/:id", userH.Get)

	tripH := handlers.NewTripHandler(base, deps.Trips)
	api.POST("/trips", tripH.Create)
	api.GET("/trips", tripH.ListActive)
	api.GET("/trips/mine", tripH.ListMine)
	api.GET("/trips/:id", tripH.Get)
	api.PUT("/trips/:id", tripH.Update)
	api.DELETE("/trips/:id", tripH.Delete)
	if deps.Trips.RoutesEnabled() {
		api.GET("/trips/:id/route", tripH.Route)
	}

	resH := handlers.NewReservationHandler(base, deps.Reservations)
	api.POST("/reservations", resH.Create)
	api.GET("/reservations/mine", resH.ListMine)
	api.GET("/reservations/trip/:id", resH.ListForTrip)
	api.GET("/reservations/:id", resH.Get)
	api.PUT("/reservations/:id/status", resH.UpdateStatus)
	api.PUT("/reservations/:id/cancel", resH.Cancel)

	incH := handlers.NewIncidentHandler(base, deps.Incidents)
	api.POST("/incidents", incH.Create)
	api.GET("/incidents/categories", incH.Categories)
	api.GET("/incidents/mine", incH.ListMine)
	api.GET("/incidents/trip/:id", incH.ListForTrip)
	api.GET("/incidents/:id", incH.Get)
	api.PUT("/incidents/:id", incH.Update)
	api.DELETE("/incidents/:id", incH.Delete)

	return r
}

func emptyListStatus(s int) int {
	if s == http.StatusNotFound {
		return s
	}
	return http.StatusOK
}
