// Package settings holds the singleton user preference record, cached in
// memory and persisted as one serialized blob in the settings table.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"monetra/internal/core"
)

const blobKey = "master_settings"

// Blob is the key-value slice of the persistent store settings live in.
type Blob interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// Store caches the settings record and notifies registered listeners after
// every successful save. Writes are persisted before the cache reflects
// them, matching the ledger's write-then-reflect discipline.
type Store struct {
	storage Blob

	mu        sync.RWMutex
	cache     core.AppSettings
	listeners map[int]func(core.AppSettings)
	nextID    int
}

func NewStore(storage Blob) *Store {
	return &Store{
		storage:   storage,
		cache:     core.DefaultSettings(),
		listeners: make(map[int]func(core.AppSettings)),
	}
}

// Load reads the stored blob into the cache. A missing or corrupt blob keeps
// the built-in defaults without raising; the returned settings are always
// usable.
func (s *Store) Load(ctx context.Context) core.AppSettings {
	blob, err := s.storage.GetSetting(ctx, blobKey)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to read settings blob, keeping defaults", "error", err)
		return s.Settings()
	}
	if blob == "" {
		return s.Settings()
	}

	var loaded core.AppSettings
	if err := json.Unmarshal([]byte(blob), &loaded); err != nil {
		slog.ErrorContext(ctx, "Corrupt settings blob, keeping defaults", "error", err)
		return s.Settings()
	}
	if loaded.Currency == "" {
		loaded.Currency = core.DefaultBaseCurrency
	}

	s.mu.Lock()
	s.cache = loaded
	s.mu.Unlock()

	return loaded
}

// Settings returns the current cached record synchronously, no I/O.
func (s *Store) Settings() core.AppSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache
}

// Save persists the full record as one serialized write, then replaces the
// cache and notifies listeners. On a failed write the cache keeps its old
// value and listeners stay silent.
func (s *Store) Save(ctx context.Context, settings core.AppSettings) error {
	blob, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := s.storage.SetSetting(ctx, blobKey, string(blob)); err != nil {
		return fmt.Errorf("persist settings: %w", err)
	}

	s.mu.Lock()
	s.cache = settings
	listeners := make([]func(core.AppSettings), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(settings)
	}

	slog.InfoContext(ctx, "Settings saved", "currency", settings.Currency)
	return nil
}

// Update shallow-merges the patch into the cached settings and saves the
// result. Fields absent from the patch keep their stored values.
func (s *Store) Update(ctx context.Context, patch core.SettingsPatch) error {
	return s.Save(ctx, patch.Apply(s.Settings()))
}

// OnChange registers a listener invoked on every successful Save. The
// returned function deregisters it. No ordering guarantee among listeners.
func (s *Store) OnChange(fn func(core.AppSettings)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}
