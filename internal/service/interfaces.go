// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/paysplit/internal/model"
)

// RemoteStore is the best-effort settings sync endpoint.
type RemoteStore interface {
	// Fetch returns the stored settings. Empty settings mean nothing is stored.
	Fetch(ctx context.Context) (model.Settings, error)
	// Push stores settings and returns the server's acknowledgement.
	Push(ctx context.Context, settings model.Settings) (string, error)
}

// LocalCache is a durable key/value store on the user's machine.
type LocalCache interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	Close() error
}

// Renderer shows the current settings to the user.
type Renderer interface {
	Render(settings model.Settings)
}

// ChatClient relays a message to the budgeting assistant.
type ChatClient interface {
	Send(ctx context.Context, message string) (string, error)
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
