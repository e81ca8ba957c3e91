// Package auth validates the userId/sessionToken pair presented on
// authenticate. The signaling core treats this as a pluggable collaborator:
// production points it at marketplace-issued JWTs, test environments accept
// any non-empty token.
package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tutorhub/signaling/internal/config"
)

var (
	ErrEmptyToken      = errors.New("empty session token")
	ErrInvalidToken    = errors.New("invalid session token")
	ErrSubjectMismatch = errors.New("token subject mismatch")
)

type Validator interface {
	Validate(userID, sessionToken string) error
}

func NewValidator(cfg *config.Config) (Validator, error) {
	switch cfg.AuthMode {
	case "static":
		return StaticValidator{}, nil
	case "jwt":
		if cfg.JWTSecret == "" {
			return nil, errors.New("auth_mode jwt requires jwt_secret")
		}
		return JWTValidator{Secret: []byte(cfg.JWTSecret)}, nil
	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.AuthMode)
	}
}

// StaticValidator accepts any non-empty token.
type StaticValidator struct{}

func (StaticValidator) Validate(userID, sessionToken string) error {
	if sessionToken == "" {
		return ErrEmptyToken
	}
	return nil
}

// JWTValidator checks an HMAC-SHA256 JWT whose subject must match the claimed
// user id, so a stolen token cannot be replayed under another identity.
type JWTValidator struct {
	Secret []byte
}

func (v JWTValidator) Validate(userID, sessionToken string) error {
	if sessionToken == "" {
		return ErrEmptyToken
	}
	tok, err := jwt.Parse(sessionToken, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.Secret, nil
	})
	if err != nil || !tok.Valid {
		return ErrInvalidToken
	}
	sub, err := tok.Claims.GetSubject()
	if err != nil || sub == "" {
		return ErrInvalidToken
	}
	if sub != userID {
		return ErrSubjectMismatch
	}
	return nil
}
