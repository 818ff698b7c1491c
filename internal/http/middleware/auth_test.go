// README: Tests for bearer auth, user resolution, request ids and recovery.
package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/mimoreirac/pi-tercero/internal/http/middleware"
	"github.com/mimoreirac/pi-tercero/internal/logging"
	"github.com/mimoreirac/pi-tercero/internal/modules/user"
	"github.com/mimoreirac/pi-tercero/internal/types"
)

// stubVerifier is a test double for infra.TokenVerifier.
type stubVerifier struct {
	cred *types.Credential
	err  error
}

func (s *stubVerifier) VerifyIDToken(_ context.Context, _ string) (*types.Credential, error) {
	return s.cred, s.err
}

type stubResolver struct {
	users map[string]*user.User
	err   error
}

func (s *stubResolver) Lookup(_ context.Context, externalID string) (*user.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[externalID]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

func newTestRouter(verifier *stubVerifier, resolver *stubResolver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Recovery(logging.Discard()))
	r.GET("/cred", middleware.Auth(verifier), func(c *gin.Context) {
		cred, _ := middleware.CredentialFrom(c)
		c.JSON(http.StatusOK, gin.H{"sub": cred.Subject})
	})
	r.GET("/me", middleware.Auth(verifier), middleware.RequireUser(resolver, logging.Discard()), func(c *gin.Context) {
		id, _ := middleware.IdentityFrom(c)
		c.JSON(http.StatusOK, gin.H{"user_id": id.UserID})
	})
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return r
}

func do(r http.Handler, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth_MissingHeader(t *testing.T) {
	r := newTestRouter(&stubVerifier{cred: &types.Credential{Subject: "user1"}}, nil)
	if w := do(r, "/cred", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestAuth_InvalidBearerPrefix(t *testing.T) {
	r := newTestRouter(&stubVerifier{cred: &types.Credential{Subject: "user1"}}, nil)
	for _, h := range []string{"Token sometoken", "Bearer ", "bearer abc"} {
		if w := do(r, "/cred", h); w.Code != http.StatusUnauthorized {
			t.Errorf("header %q: expected 401, got %d", h, w.Code)
		}
	}
}

func TestAuth_VerifierError(t *testing.T) {
	r := newTestRouter(&stubVerifier{err: errors.New("bad token")}, nil)
	if w := do(r, "/cred", "Bearer invalidtoken"); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestAuth_ValidToken_CredentialPopulated(t *testing.T) {
	r := newTestRouter(&stubVerifier{cred: &types.Credential{Subject: "fb-123", Email: "a@b.c"}}, nil)
	w := do(r, "/cred", "Bearer validtoken")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "fb-123") {
		t.Errorf("expected subject fb-123 in body, got %s", w.Body.String())
	}
}

func TestRequireUser(t *testing.T) {
	verifier := &stubVerifier{cred: &types.Credential{Subject: "fb-123"}}

	unsynced := newTestRouter(verifier, &stubResolver{users: map[string]*user.User{}})
	if w := do(unsynced, "/me", "Bearer t"); w.Code != http.StatusForbidden {
		t.Errorf("unsynced credential: expected 403, got %d", w.Code)
	}

	broken := newTestRouter(verifier, &stubResolver{err: errors.New("db down")})
	w := do(broken, "/me", "Bearer t")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("resolver failure: expected 500, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "db down") {
		t.Errorf("internal error leaked: %s", w.Body.String())
	}

	synced := newTestRouter(verifier, &stubResolver{users: map[string]*user.User{
		"fb-123": {ID: "u-internal", ExternalID: "fb-123"},
	}})
	w = do(synced, "/me", "Bearer t")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "u-internal") {
		t.Errorf("expected internal id in body, got %s", w.Body.String())
	}
}

func TestRequestID(t *testing.T) {
	r := newTestRouter(&stubVerifier{cred: &types.Credential{Subject: "x"}}, nil)

	w := do(r, "/cred", "Bearer t")
	if w.Header().Get(middleware.HeaderRequestID) == "" {
		t.Error("expected a generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/cred", nil)
	req.Header.Set(middleware.HeaderRequestID, "abc-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if got := rec.Header().Get(middleware.HeaderRequestID); got != "abc-123" {
		t.Errorf("expected request id to be echoed, got %q", got)
	}
}

func TestRecovery(t *testing.T) {
	r := newTestRouter(&stubVerifier{}, nil)
	w := do(r, "/panic", "")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}
