// Package settings owns the budget configuration for a session and keeps it
// in sync with the local cache and the remote settings service.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/paysplit/internal/common"
	"github.com/Veraticus/paysplit/internal/model"
	"github.com/Veraticus/paysplit/internal/remote"
	"github.com/Veraticus/paysplit/internal/service"
	"golang.org/x/sync/errgroup"
)

// CacheKey is the local cache key holding the serialized settings.
const CacheKey = "userSettings"

// DefaultPushTimeout bounds each background push to the remote service.
const DefaultPushTimeout = 10 * time.Second

// ErrNoLocalCache is returned by NewStore when no local cache is given.
var ErrNoLocalCache = errors.New("local cache is required")

// Option configures a Store.
type Option func(*Store)

// WithRenderer sets the renderer notified after every load and update.
func WithRenderer(r service.Renderer) Option {
	return func(s *Store) { s.renderer = r }
}

// WithPushTimeout overrides DefaultPushTimeout.
func WithPushTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.pushTimeout = d
		}
	}
}

// Store holds the canonical settings. The local cache is authoritative; the
// remote service is a best-effort mirror and may be nil.
type Store struct {
	remote      service.RemoteStore
	local       service.LocalCache
	renderer    service.Renderer
	current     model.Settings
	pending     sync.WaitGroup
	pushTimeout time.Duration
	mu          sync.Mutex
}

// NewStore creates a store. Call Load before using it.
func NewStore(remote service.RemoteStore, local service.LocalCache, opts ...Option) (*Store, error) {
	if local == nil {
		return nil, ErrNoLocalCache
	}
	s := &Store{
		remote:      remote,
		local:       local,
		pushTimeout: DefaultPushTimeout,
		current:     model.DefaultSettings(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Load resolves the settings from the remote service and the local cache,
// saves the result and renders it. A non-empty local copy wins over the
// remote one; when both are empty the defaults are used. Load does not fail:
// read errors are logged and the next source is used.
func (s *Store) Load(ctx context.Context) model.Settings {
	var remoteSettings, localSettings model.Settings
	var fetchFailed bool

	var g errgroup.Group
	if s.remote != nil {
		g.Go(func() error {
			rs, err := s.remote.Fetch(ctx)
			if err != nil {
				slog.Warn("Failed to fetch remote settings", "error", err)
				fetchFailed = true
				return nil
			}
			remoteSettings = rs
			return nil
		})
	}
	g.Go(func() error {
		ls, err := s.readLocal(ctx)
		if err != nil {
			slog.Warn("Failed to read cached settings", "key", CacheKey, "error", err)
			return nil
		}
		localSettings = ls
		return nil
	})
	_ = g.Wait()

	resolved, source := model.DefaultSettings(), "default"
	if !remoteSettings.IsEmpty() {
		resolved, source = remoteSettings.Clone(), "remote"
	}
	if !localSettings.IsEmpty() {
		resolved, source = localSettings.Clone(), "local"
	}
	resolved.Version = max(remoteSettings.Version, localSettings.Version)
	if fetchFailed {
		slog.Warn("Settings version taken from the local cache only; pushes are rejected while the remote holds a newer version",
			"version", resolved.Version)
	}

	if err := resolved.Validate(); err != nil {
		slog.Warn("Loaded settings are inconsistent", "source", source, "error", err)
	}
	slog.Info("Loaded settings",
		"source", source,
		"categories", len(resolved.Categories),
		"limits", len(resolved.Limits),
		"version", resolved.Version)

	s.mu.Lock()
	s.current = resolved
	if err := s.saveLocked(ctx); err != nil {
		slog.Error("Failed to persist loaded settings", "error", err)
	}
	snapshot := s.current.Clone()
	s.mu.Unlock()

	s.render(snapshot)
	return snapshot
}

// Save persists the current settings under a new version. The local write
// is synchronous and its error is returned; the remote push runs in the
// background and only logs failures.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ctx)
}

// Update applies fn to a copy of the current settings and commits the copy
// only if fn succeeds. Committed settings are saved and rendered. The
// returned settings are the current ones in either case.
func (s *Store) Update(ctx context.Context, fn func(*model.Settings) error) (model.Settings, error) {
	s.mu.Lock()
	staged := s.current.Clone()
	if err := fn(&staged); err != nil {
		snapshot := s.current.Clone()
		s.mu.Unlock()
		return snapshot, err
	}

	staged.Version = s.current.Version
	s.current = staged
	saveErr := s.saveLocked(ctx)
	snapshot := s.current.Clone()
	s.mu.Unlock()

	s.render(snapshot)
	return snapshot, saveErr
}

// Current returns a copy of the current settings.
func (s *Store) Current() model.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// TotalPercentage sums the percentages of the current settings.
func (s *Store) TotalPercentage() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.TotalPercentage()
}

// Wait blocks until every background push has finished.
func (s *Store) Wait() {
	s.pending.Wait()
}

func (s *Store) saveLocked(ctx context.Context) error {
	s.current.Version++

	data, err := json.Marshal(s.current)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	s.pushAsync(ctx, s.current.Clone())

	if err := s.local.SetItem(ctx, CacheKey, string(data)); err != nil {
		common.LogError(ctx, err, "Failed to write settings to local cache", common.Fields{"version": s.current.Version})
		return fmt.Errorf("failed to write local settings: %w", err)
	}

	slog.Debug("Saved settings", "version", s.current.Version)
	return nil
}

func (s *Store) pushAsync(ctx context.Context, snapshot model.Settings) {
	if s.remote == nil {
		return
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.pushTimeout)
		defer cancel()

		msg, err := s.remote.Push(pushCtx, snapshot)
		if errors.Is(err, remote.ErrStaleVersion) {
			s.resyncVersion(pushCtx, snapshot.Version)
			return
		}
		if err != nil {
			slog.Warn("Failed to push settings", "version", snapshot.Version, "error", err)
			return
		}
		slog.Debug("Pushed settings", "version", snapshot.Version, "message", msg)
	}()
}

// resyncVersion raises the local version to the remote one after a rejected
// push, so the next save is newer than whatever the remote holds.
func (s *Store) resyncVersion(ctx context.Context, rejected int64) {
	rs, err := s.remote.Fetch(ctx)
	if err != nil {
		slog.Warn("Remote rejected settings as stale and its version could not be read",
			"version", rejected, "error", err)
		return
	}

	s.mu.Lock()
	raised := s.current.Version < rs.Version
	if raised {
		s.current.Version = rs.Version
	}
	s.mu.Unlock()

	slog.Warn("Remote rejected settings as stale; the next save will replace the remote copy",
		"version", rejected,
		"remote_version", rs.Version,
		"raised", raised)
}

func (s *Store) readLocal(ctx context.Context) (model.Settings, error) {
	raw, ok, err := s.local.GetItem(ctx, CacheKey)
	if err != nil || !ok {
		return model.Settings{}, err
	}

	var cached model.Settings
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return model.Settings{}, fmt.Errorf("failed to decode cached settings: %w", err)
	}
	return cached, nil
}

func (s *Store) render(snapshot model.Settings) {
	if s.renderer != nil {
		s.renderer.Render(snapshot)
	}
}
