package domain

import (
	"context"
	"time"
)

// AuthToken es el app access token obtenido con client credentials.
// Se persiste tal cual en la cache de credenciales.
type AuthToken struct {
	ClientID    string    `json:"client_id"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Valid reports whether the token can still be used at now.
func (t AuthToken) Valid(now time.Time) bool {
	return t.AccessToken != "" && now.Before(t.ExpiresAt)
}

// ExpiresWithin reports whether now falls inside the margin before expiry
// (or past it).
func (t AuthToken) ExpiresWithin(now time.Time, margin time.Duration) bool {
	return !now.Before(t.ExpiresAt.Add(-margin))
}

// TokenCache guarda el token entre ejecuciones del proceso.
type TokenCache interface {
	Load() (AuthToken, bool)
	Store(token AuthToken) error
}

// TokenProvider entrega un token vigente a los clientes del API.
type TokenProvider interface {
	EnsureValid(ctx context.Context) error
	Current() AuthToken
}
