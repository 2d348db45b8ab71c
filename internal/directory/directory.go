// Package directory stores chat accounts. It exists so identity ids stay
// stable across reconnects; the engine's room and message state never
// touches it.
package directory

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("account not found")
	ErrExists   = errors.New("username already taken")
)

type Account struct {
	ID           string    `json:"userId"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Directory interface {
	Lookup(ctx context.Context, username string) (*Account, error)
	Create(ctx context.Context, username, passwordHash string) (*Account, error)
	Close() error
}
