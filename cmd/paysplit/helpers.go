package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/paysplit/internal/common"
	"github.com/Veraticus/paysplit/internal/config"
	"github.com/Veraticus/paysplit/internal/engine"
	"github.com/Veraticus/paysplit/internal/remote"
	"github.com/Veraticus/paysplit/internal/service"
	"github.com/Veraticus/paysplit/internal/settings"
	"github.com/Veraticus/paysplit/internal/storage"
	"github.com/spf13/viper"
)

// session bundles what a settings command needs.
type session struct {
	cfg    *config.Config
	cache  service.LocalCache
	store  *settings.Store
	engine *engine.BudgetEngine
}

// openSession loads the configuration, opens the cache and loads the
// settings. renderer may be nil.
func openSession(ctx context.Context, renderer service.Renderer) (*session, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	cache, err := storage.Open(ctx, cfg.StorageOptions())
	if err != nil {
		return nil, common.NewUserError(
			fmt.Sprintf("Could not open the %s settings cache. Check cache.backend and cache.path.", cfg.Cache.Backend),
			fmt.Errorf("failed to open settings cache: %w", err))
	}

	var rs service.RemoteStore
	if cfg.Remote.Enabled {
		client, err := remote.NewClient(cfg.RemoteClientConfig())
		if err != nil {
			_ = cache.Close()
			return nil, err
		}
		rs = client
	}

	var opts []settings.Option
	if renderer != nil {
		opts = append(opts, settings.WithRenderer(renderer))
	}
	store, err := settings.NewStore(rs, cache, opts...)
	if err != nil {
		_ = cache.Close()
		return nil, err
	}
	store.Load(ctx)

	eng, err := engine.New(store)
	if err != nil {
		_ = cache.Close()
		return nil, err
	}

	return &session{cfg: cfg, cache: cache, store: store, engine: eng}, nil
}

// Close waits for background pushes and closes the cache.
func (s *session) Close() {
	s.store.Wait()
	if err := s.cache.Close(); err != nil {
		slog.Warn("Failed to close settings cache", "error", err)
	}
}
