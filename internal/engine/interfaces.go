package engine

import (
	"context"

	"github.com/Veraticus/paysplit/internal/model"
)

// SettingsStore defines the contract the engine needs from the settings store.
type SettingsStore interface {
	Update(ctx context.Context, fn func(*model.Settings) error) (model.Settings, error)
	Current() model.Settings
}
