// README: HS256 tokens for password accounts (RIDES_AUTH_MODE=local); issues and verifies.
package infra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mimoreirac/pi-tercero/internal/types"
)

const localIssuer = "pi-tercero"

type localClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// LocalTokens signs and verifies tokens with a shared secret. It satisfies TokenVerifier.
type LocalTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewLocalTokens(secret string, ttl time.Duration) *LocalTokens {
	return &LocalTokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue mints a token whose subject is the credential's external id.
func (l *LocalTokens) Issue(cred types.Credential) (string, time.Time, error) {
	now := l.now()
	exp := now.Add(l.ttl)
	claims := localClaims{
		Email: cred.Email,
		Name:  cred.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   cred.Subject,
			Issuer:    localIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(l.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

func (l *LocalTokens) VerifyIDToken(_ context.Context, raw string) (*types.Credential, error) {
	claims := &localClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return l.secret, nil
	},
		jwt.WithIssuer(localIssuer),
		jwt.WithTimeFunc(l.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return &types.Credential{Subject: claims.Subject, Email: claims.Email, Name: claims.Name}, nil
}
