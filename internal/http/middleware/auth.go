// README: Bearer-token authentication and internal-user resolution for gin routes.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mimoreirac/pi-tercero/internal/apperr"
	"github.com/mimoreirac/pi-tercero/internal/infra"
	"github.com/mimoreirac/pi-tercero/internal/logging"
	"github.com/mimoreirac/pi-tercero/internal/modules/user"
	"github.com/mimoreirac/pi-tercero/internal/types"
)

const (
	ctxKeyCredential = "auth.credential"
	ctxKeyIdentity   = "auth.identity"
)

// UserResolver maps a verified credential subject to an internal user.
type UserResolver interface {
	Lookup(ctx context.Context, externalID string) (*user.User, error)
}

// Auth verifies the Authorization: Bearer <token> header and stores the credential.
// Missing or invalid tokens are rejected with 401.
func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		raw = strings.TrimSpace(raw)
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		cred, err := verifier.VerifyIDToken(c.Request.Context(), raw)
		if err != nil || cred == nil || cred.Subject == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(ctxKeyCredential, *cred)
		c.Next()
	}
}

// RequireUser resolves the credential set by Auth to an internal user. A
// credential that was never synced through POST /users/sync gets 403.
func RequireUser(users UserResolver, log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		cred, ok := CredentialFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		u, err := users.Lookup(c.Request.Context(), cred.Subject)
		if errors.Is(err, apperr.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "user not registered; call POST /users/sync first"})
			return
		}
		if err != nil {
			log.Error(c.Request.Context(), "resolve caller failed", "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.Set(ctxKeyIdentity, u.Identity())
		c.Next()
	}
}

// CredentialFrom returns the verified credential stored by Auth.
func CredentialFrom(c *gin.Context) (types.Credential, bool) {
	v, ok := c.Get(ctxKeyCredential)
	if !ok {
		return types.Credential{}, false
	}
	cred, ok := v.(types.Credential)
	return cred, ok
}

// IdentityFrom returns the caller resolved by RequireUser.
func IdentityFrom(c *gin.Context) (types.Identity, bool) {
	v, ok := c.Get(ctxKeyIdentity)
	if !ok {
		return types.Identity{}, false
	}
	id, ok := v.(types.Identity)
	return id, ok
}
