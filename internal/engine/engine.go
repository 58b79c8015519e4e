// Package engine handles the three user actions: splitting a paycheck,
// replacing the whole configuration, and adding one category.
package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Veraticus/paysplit/internal/budget"
	"github.com/Veraticus/paysplit/internal/model"
)

// ErrNoStore is returned by New when the store is nil.
var ErrNoStore = errors.New("settings store is required")

// BudgetEngine applies user actions to the settings store. Each action is a
// single store update, so a rejected action never changes the settings.
type BudgetEngine struct {
	store SettingsStore
}

// New creates an engine on top of store.
func New(store SettingsStore) (*BudgetEngine, error) {
	if store == nil {
		return nil, ErrNoStore
	}
	return &BudgetEngine{store: store}, nil
}

// SubmitPaycheck splits amount across the current categories, charges the
// limited ones and persists the result. Persistence errors are returned
// alongside the split, which has already been committed in memory.
func (e *BudgetEngine) SubmitPaycheck(ctx context.Context, amount float64) ([]budget.Allocation, error) {
	var allocations []budget.Allocation
	_, err := e.store.Update(ctx, func(s *model.Settings) error {
		var splitErr error
		allocations, splitErr = budget.ComputeSplit(amount, s)
		return splitErr
	})
	if allocations == nil && err != nil {
		return nil, err
	}

	for _, a := range allocations {
		if a.Exhausted {
			slog.Info("Limit reached, category removed",
				"category", a.Category,
				"remaining", a.RemainingLimit.StringFixed(2))
		}
	}
	return allocations, err
}

// SubmitSettings replaces every category with the ones read from the
// settings form.
func (e *BudgetEngine) SubmitSettings(ctx context.Context, entries []budget.FormEntry) (model.Settings, error) {
	staged, err := budget.ReplaceAll(entries)
	if err != nil {
		return e.store.Current(), err
	}

	return e.store.Update(ctx, func(s *model.Settings) error {
		*s = staged
		return nil
	})
}

// AddCategory inserts one category.
func (e *BudgetEngine) AddCategory(ctx context.Context, req budget.NewCategory) (model.Settings, error) {
	return e.store.Update(ctx, func(s *model.Settings) error {
		return budget.AddCategory(s, req)
	})
}

// Settings returns the current settings.
func (e *BudgetEngine) Settings() model.Settings {
	return e.store.Current()
}

// Fields returns the current settings as settings form entries.
func (e *BudgetEngine) Fields() []budget.FormEntry {
	return budget.Fields(e.store.Current())
}
