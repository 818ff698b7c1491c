// README: Password-account handlers, mounted only when RIDES_AUTH_MODE=local.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mimoreirac/pi-tercero/internal/modules/user"
	"github.com/mimoreirac/pi-tercero/internal/types"
)

// TokenIssuer mints bearer tokens for a verified credential.
type TokenIssuer interface {
	Issue(cred types.Credential) (string, time.Time, error)
}

type AuthHandler struct {
	Base
	users  *user.Service
	tokens TokenIssuer
}

func NewAuthHandler(base Base, users *user.Service, tokens TokenIssuer) *AuthHandler {
	return &AuthHandler{Base: base, users: users, tokens: tokens}
}

type registerReq struct {
	Email    string  `json:"email"`
	Name     string  `json:"nombre"`
	Phone    *string `json:"numero_telefono"`
	Password string  `json:"password"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResp struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	User      *user.User `json:"usuario"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerReq
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.users.Register(c.Request.Context(), user.RegisterCommand{
		Email:    req.Email,
		Name:     req.Name,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, u)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginReq
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	token, exp, err := h.tokens.Issue(types.Credential{Subject: u.ExternalID, Email: u.Email, Name: u.Name})
	if err != nil {
		h.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, tokenResp{Token: token, ExpiresAt: exp, User: u})
}
