// Package store persists user-facing side effects of presence changes.
// Relay routing never depends on it; writes are fire-and-forget and the
// only read is the REST user lookup.
package store

import (
	"context"
	"time"

	"github.com/avolkov/relay/internal/domain"
)

// UserStore is the external user-store collaborator.
type UserStore interface {
	FindByID(ctx context.Context, id domain.UserID) (*domain.User, error)
	UpdateOnlineStatus(ctx context.Context, id domain.UserID, online bool, lastSeen time.Time) error
}

// NopStore is used when no backing store is configured; presence then lives
// only in memory.
type NopStore struct{}

func (NopStore) FindByID(context.Context, domain.UserID) (*domain.User, error) {
	return nil, nil
}

func (NopStore) UpdateOnlineStatus(context.Context, domain.UserID, bool, time.Time) error {
	return nil
}
