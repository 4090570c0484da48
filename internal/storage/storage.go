// Package storage provides the append-only event stores that movements are
// recorded in.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/navid-fn/skywatch/internal/models"
)

// Window bounds a recent read. Rows is always honoured; Since is honoured by
// backends that can filter on capture time.
type Window struct {
	Rows  int
	Since time.Time
}

// EventStore is an append-only, tabular store of movement events.
// Implementations must be safe for concurrent use.
type EventStore interface {
	// ReadRecent returns the newest rows inside w, oldest first.
	ReadRecent(ctx context.Context, w Window) ([]models.Row, error)

	// Append writes the events in order as one batch.
	Append(ctx context.Context, events []models.MovementEvent) error
}

// Connector acquires a usable store handle, verifying access on the way.
type Connector interface {
	Connect(ctx context.Context) (EventStore, error)
}

// Pinger is implemented by connectors that can report reachability without
// building a full handle.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ErrUnknownBackend is returned for an unsupported STORE_BACKEND value.
var ErrUnknownBackend = errors.New("unknown store backend")
