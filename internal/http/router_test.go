// README: End-to-end tests of the gin router over in-memory stores.
package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httptransport "github.com/mimoreirac/pi-tercero/internal/http"
	"github.com/mimoreirac/pi-tercero/internal/infra"
	"github.com/mimoreirac/pi-tercero/internal/logging"
	"github.com/mimoreirac/pi-tercero/internal/memstore"
	"github.com/mimoreirac/pi-tercero/internal/modules/audit"
	"github.com/mimoreirac/pi-tercero/internal/modules/incident"
	"github.com/mimoreirac/pi-tercero/internal/modules/reservation"
	"github.com/mimoreirac/pi-tercero/internal/modules/trip"
	"github.com/mimoreirac/pi-tercero/internal/modules/user"
	"github.com/mimoreirac/pi-tercero/internal/types"
)

// stubVerifier treats the bearer token as the subject. Credentials can be
// overridden per token.
type stubVerifier struct {
	creds map[string]types.Credential
}

func (s *stubVerifier) VerifyIDToken(_ context.Context, token string) (*types.Credential, error) {
	if cred, ok := s.creds[token]; ok {
		return &cred, nil
	}
	return &types.Credential{Subject: token, Email: token + "@example.com", Name: "Nombre " + token}, nil
}

type env struct {
	t        *testing.T
	router   *gin.Engine
	db       *memstore.DB
	verifier *stubVerifier
}

type option func(*httptransport.RouterDeps)

func withEmptyListStatus(s int) option {
	return func(d *httptransport.RouterDeps) { d.EmptyListStatus = s }
}

func newEnv(t *testing.T, opts ...option) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := memstore.New()
	log := logging.Discard()
	auditSvc := audit.NewService(db.Audit(), nil, log)
	users := user.NewService(db.Users(), memstore.NewCache(), auditSvc, log)
	users.SetBcryptCost(4)
	trips := trip.NewService(db.Trips(), auditSvc)
	reservations := reservation.NewService(db.Reservations(), db.Trips(), reservation.ModeBaseline, auditSvc)
	incidents := incident.NewService(db.Incidents(), db.Trips(), reservations, auditSvc)

	verifier := &stubVerifier{creds: map[string]types.Credential{}}
	deps := httptransport.RouterDeps{
		Log:             log,
		Verifier:        verifier,
		Users:           users,
		Trips:           trips,
		Reservations:    reservations,
		Incidents:       incidents,
		Audit:           auditSvc,
		EmptyListStatus: http.StatusOK,
	}
	for _, o := range opts {
		o(&deps)
	}
	return &env{t: t, router: httptransport.NewRouter(deps), db: db, verifier: verifier}
}

func (e *env) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// sync registers token's credential and returns the internal user id.
func (e *env) sync(token string) string {
	e.t.Helper()
	w := e.do(http.MethodPost, "/users/sync", token, nil)
	require.Contains(e.t, []int{http.StatusOK, http.StatusCreated}, w.Code, w.Body.String())
	return decode[map[string]any](e.t, w)["id_usuario"].(string)
}

func (e *env) createTrip(token string, seats int) string {
	e.t.Helper()
	w := e.do(http.MethodPost, "/trips", token, map[string]any{
		"origen":               "Quito",
		"destino":              "Ambato",
		"hora_salida":          time.Date(2025, 6, 1, 7, 30, 0, 0, time.UTC),
		"asientos_disponibles": seats,
	})
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[map[string]any](e.t, w)["id_viaje"].(string)
}

func (e *env) reserve(token, tripID string) string {
	e.t.Helper()
	w := e.do(http.MethodPost, "/reservations", token, map[string]any{"id_viaje": tripID})
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[map[string]any](e.t, w)["id_reserva"].(string)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	e := newEnv(t)
	w := e.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestAuthRequired(t *testing.T) {
	e := newEnv(t)
	for _, path := range []string{"/trips", "/users/me", "/reservations/mine", "/incidents/categories"} {
		w := e.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodPost, "/users/sync", "", nil).Code)
}

func TestUnsyncedCredentialIsForbidden(t *testing.T) {
	e := newEnv(t)
	w := e.do(http.MethodGet, "/trips", "ana", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "/users/sync")
}

func TestSyncCreatesThenFinds(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodPost, "/users/sync", "ana", map[string]any{"numero_telefono": "0991234567"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[map[string]any](t, w)
	assert.Equal(t, "ana@example.com", created["email"])
	assert.Equal(t, "0991234567", created["numero_telefono"])
	assert.NotContains(t, w.Body.String(), "password")

	w = e.do(http.MethodPost, "/users/sync", "ana", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created["id_usuario"], decode[map[string]any](t, w)["id_usuario"])

	w = e.do(http.MethodGet, "/users/me", "ana", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created["id_usuario"], decode[map[string]any](t, w)["id_usuario"])
}

func TestSyncDuplicateEmailIsConflict(t *testing.T) {
	e := newEnv(t)
	e.sync("ana")
	e.verifier.creds["other"] = types.Credential{Subject: "other", Email: "ANA@example.com"}

	w := e.do(http.MethodPost, "/users/sync", "other", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "email")
}

func TestProfileUpdateAndPublicView(t *testing.T) {
	e := newEnv(t)
	e.sync("ana")
	bob := e.sync("bob")

	w := e.do(http.MethodPut, "/users/me", "bob", map[string]any{"nombre": "Roberto", "numero_telefono": "0987654321"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Roberto", decode[map[string]any](t, w)["nombre"])

	w = e.do(http.MethodGet, "/users/"+bob, "ana", nil)
	require.Equal(t, http.StatusOK, w.Code)
	public := decode[map[string]any](t, w)
	assert.Equal(t, map[string]any{"id_usuario": bob, "nombre": "Roberto"}, public)

	e.do(http.MethodPost, "/users/sync", "carla", map[string]any{"numero_telefono": "0911111111"})
	w = e.do(http.MethodPut, "/users/me", "carla", map[string]any{"numero_telefono": "0987654321"})
	assert.Equal(t, http.StatusConflict, w.Code)

	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/users/not-a-uuid", "ana", nil).Code)
}

func TestDeleteAccount(t *testing.T) {
	e := newEnv(t)
	e.sync("ana")
	tripID := e.createTrip("ana", 3)

	w := e.do(http.MethodDelete, "/users/me", "ana", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	assert.Equal(t, http.StatusForbidden, e.do(http.MethodGet, "/users/me", "ana", nil).Code)
	e.sync("bob")
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/trips/"+tripID, "bob", nil).Code)
}

func TestTripLifecycle(t *testing.T) {
	e := newEnv(t)
	e.sync("driver")
	e.sync("other")
	tripID := e.createTrip("driver", 3)

	w := e.do(http.MethodGet, "/trips", "other", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 1)

	w = e.do(http.MethodGet, "/trips/mine", "driver", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 1)

	w = e.do(http.MethodPut, "/trips/"+tripID, "other", map[string]any{"asientos_disponibles": 1})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(http.MethodPut, "/trips/"+tripID, "driver", map[string]any{"asientos_disponibles": 1, "id_conductor": "x"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[map[string]any](t, w)
	assert.EqualValues(t, 1, updated["asientos_disponibles"])
	assert.NotEqual(t, "x", updated["id_conductor"])

	w = e.do(http.MethodPut, "/trips/"+tripID, "driver", map[string]any{"asientos_disponibles": "two"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodPost, "/trips", "driver", map[string]any{"origen": "Quito"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodPost, "/trips", "driver", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, http.StatusForbidden, e.do(http.MethodDelete, "/trips/"+tripID, "other", nil).Code)
	assert.Equal(t, http.StatusNoContent, e.do(http.MethodDelete, "/trips/"+tripID, "driver", nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/trips/"+tripID, "driver", nil).Code)
}

func TestRouteDisabledWithoutMaps(t *testing.T) {
	e := newEnv(t)
	e.sync("driver")
	tripID := e.createTrip("driver", 2)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/trips/"+tripID+"/route", "driver", nil).Code)
}

func TestReservationFlow(t *testing.T) {
	e := newEnv(t)
	e.sync("driver")
	e.sync("pax")
	e.sync("stranger")
	tripID := e.createTrip("driver", 2)

	w := e.do(http.MethodPost, "/reservations", "driver", map[string]any{"id_viaje": tripID})
	assert.Equal(t, http.StatusBadRequest, w.Code, "driver cannot book own trip")

	w = e.do(http.MethodPost, "/reservations", "pax", map[string]any{"id_viaje": "00000000-0000-0000-0000-000000000000"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	resID := e.reserve("pax", tripID)

	w = e.do(http.MethodPost, "/reservations", "pax", map[string]any{"id_viaje": tripID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "duplicate")

	assert.Equal(t, http.StatusForbidden, e.do(http.MethodGet, "/reservations/"+resID, "stranger", nil).Code)
	assert.Equal(t, http.StatusOK, e.do(http.MethodGet, "/reservations/"+resID, "driver", nil).Code)

	w = e.do(http.MethodPut, "/reservations/"+resID+"/status", "pax", map[string]any{"estado": "confirmada"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(http.MethodPut, "/reservations/"+resID+"/status", "driver", map[string]any{"estado": "cancelada"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodPut, "/reservations/"+resID+"/status", "driver", map[string]any{"estado": "confirmada"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "confirmada", decode[map[string]any](t, w)["estado"])

	w = e.do(http.MethodGet, "/reservations/trip/"+tripID, "driver", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 1)

	assert.Equal(t, http.StatusForbidden, e.do(http.MethodPut, "/reservations/"+resID+"/cancel", "driver", nil).Code)
	w = e.do(http.MethodPut, "/reservations/"+resID+"/cancel", "pax", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cancelada", decode[map[string]any](t, w)["estado"])

	w = e.do(http.MethodPut, "/reservations/"+resID+"/cancel", "pax", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "cancelada")

	w = e.do(http.MethodGet, "/reservations/mine", "pax", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 1)
}

func TestRejectedReservationLeavesEmptyTripList(t *testing.T) {
	for _, tc := range []struct {
		name   string
		status int
	}{
		{"empty list as 200", http.StatusOK},
		{"empty list as 404", http.StatusNotFound},
	} {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv(t, withEmptyListStatus(tc.status))
			e.sync("driver")
			e.sync("pax")
			tripID := e.createTrip("driver", 1)
			resID := e.reserve("pax", tripID)

			w := e.do(http.MethodPut, "/reservations/"+resID+"/status", "driver", map[string]any{"estado": "rechazada"})
			require.Equal(t, http.StatusOK, w.Code)

			w = e.do(http.MethodGet, "/reservations/trip/"+tripID, "driver", nil)
			assert.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusOK {
				assert.JSONEq(t, "[]", w.Body.String())
			} else {
				assert.Contains(t, w.Body.String(), "error")
			}

			// The same policy covers every collection endpoint.
			assert.Equal(t, tc.status, e.do(http.MethodGet, "/incidents/mine", "pax", nil).Code)
		})
	}
}

func TestIncidentFlow(t *testing.T) {
	e := newEnv(t)
	e.sync("driver")
	e.sync("pax")
	e.sync("stranger")
	tripID := e.createTrip("driver", 2)
	resID := e.reserve("pax", tripID)

	body := map[string]any{"id_viaje": tripID, "tipo_incidente": "retraso", "descripcion": "Salió 30 minutos tarde"}

	// Pending reservations do not count as involvement.
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodPost, "/incidents", "pax", body).Code)
	require.Equal(t, http.StatusOK, e.do(http.MethodPut, "/reservations/"+resID+"/status", "driver", map[string]any{"estado": "confirmada"}).Code)

	assert.Equal(t, http.StatusForbidden, e.do(http.MethodPost, "/incidents", "stranger", body).Code)
	w := e.do(http.MethodPost, "/incidents", "pax", map[string]any{"id_viaje": tripID, "tipo_incidente": "robo", "descripcion": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodPost, "/incidents", "pax", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[map[string]any](t, w)
	assert.Equal(t, "abierto", created["estado"])
	incID := created["id_incidente"].(string)

	w = e.do(http.MethodGet, "/incidents/trip/"+tripID, "stranger", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]map[string]any](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, "Nombre pax", list[0]["nombre_reportador"])

	w = e.do(http.MethodGet, "/incidents/mine", "pax", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Quito", decode[[]map[string]any](t, w)[0]["origen"])

	w = e.do(http.MethodGet, "/incidents/categories", "stranger", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"retraso", "accidente", "comportamiento", "cancelacion", "otro"}, decode[[]string](t, w))

	assert.Equal(t, http.StatusForbidden, e.do(http.MethodPut, "/incidents/"+incID, "driver", map[string]any{"descripcion": "no"}).Code)
	w = e.do(http.MethodPut, "/incidents/"+incID, "pax", map[string]any{"descripcion": "Salió 45 minutos tarde"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Salió 45 minutos tarde", decode[map[string]any](t, w)["descripcion"])

	assert.Equal(t, http.StatusForbidden, e.do(http.MethodDelete, "/incidents/"+incID, "driver", nil).Code)
	assert.Equal(t, http.StatusNoContent, e.do(http.MethodDelete, "/incidents/"+incID, "pax", nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/incidents/"+incID, "pax", nil).Code)

	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/incidents/trip/00000000-0000-0000-0000-000000000000", "pax", nil).Code)
}

func TestActivityFeed(t *testing.T) {
	e := newEnv(t)
	e.sync("driver")
	e.createTrip("driver", 2)

	w := e.do(http.MethodGet, "/users/me/activity?limit=10", "driver", nil)
	require.Equal(t, http.StatusOK, w.Code)
	entries := decode[[]map[string]any](t, w)
	require.Len(t, entries, 2)
	assert.Equal(t, "viaje_creado", entries[0]["accion"])
	assert.Equal(t, "usuario_creado", entries[1]["accion"])

	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodGet, "/users/me/activity?limit=abc", "driver", nil).Code)
}

func TestLocalPasswordAccounts(t *testing.T) {
	tokens := infra.NewLocalTokens("0123456789abcdef0123", time.Hour)
	e := newEnv(t, func(d *httptransport.RouterDeps) {
		d.Verifier = tokens
		d.Issuer = tokens
	})

	w := e.do(http.MethodPost, "/auth/register", "", map[string]any{
		"email": "Lucia@Example.com", "nombre": "Lucía", "password": "secreto-largo",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "secreto")

	w = e.do(http.MethodPost, "/auth/login", "", map[string]any{"email": "lucia@example.com", "password": "incorrecto"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(http.MethodPost, "/auth/login", "", map[string]any{"email": "lucia@example.com", "password": "secreto-largo"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	token := decode[map[string]any](t, w)["token"].(string)

	w = e.do(http.MethodGet, "/users/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Lucía", decode[map[string]any](t, w)["nombre"])

	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodGet, "/users/me", token+"x", nil).Code)
}

func TestAuthRoutesAbsentInFirebaseMode(t *testing.T) {
	e := newEnv(t)
	w := e.do(http.MethodPost, "/auth/login", "", map[string]any{"email": "a@b.c", "password": "12345678"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "route not found"))
}
