package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/yourusername/tray-cli/internal/logging"
	"github.com/yourusername/tray-cli/internal/platform"
)

const reloadDebounce = 250 * time.Millisecond

// Store holds the live configuration and serves it to the engine as
// platform.Settings. It is safe for concurrent use.
type Store struct {
	path string

	mu  sync.RWMutex
	cfg *Config
}

var _ platform.Settings = (*Store)(nil)

// NewStore wraps cfg. path is the file Reload and Watch read; it may be
// empty when running on defaults.
func NewStore(cfg *Config, path string) *Store {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Store{cfg: cfg, path: path}
}

// Config returns the current configuration. Callers must not modify it.
func (s *Store) Config() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Path returns the file backing the store, or "" when running on defaults
func (s *Store) Path() string {
	return s.path
}

// Set replaces the configuration
func (s *Store) Set(cfg *Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

// RehideInterval implements platform.Settings
func (s *Store) RehideInterval() time.Duration {
	return s.Config().Settings.RehideInterval.D()
}

// AlwaysHiddenEnabled implements platform.Settings
func (s *Store) AlwaysHiddenEnabled() bool {
	return s.Config().Settings.AlwaysHiddenEnabled
}

// MenuBarDisplay implements platform.Settings
func (s *Store) MenuBarDisplay() string {
	return s.Config().Settings.Display
}

// Reload re-reads the file. On error the current configuration is kept.
func (s *Store) Reload() error {
	if s.path == "" {
		return fmt.Errorf("no config file to reload")
	}
	cfg, err := LoadConfig(s.path)
	if err != nil {
		return err
	}
	s.Set(cfg)
	return nil
}

// Watch reloads the configuration whenever the file changes, until ctx is
// done. Bursts of writes are coalesced. onReload, if set, is called after
// each successful reload.
func (s *Store) Watch(ctx context.Context, onReload func(*Config)) error {
	if s.path == "" {
		return fmt.Errorf("no config file to watch")
	}
	target, err := filepath.Abs(s.path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	// Editors replace files by rename, so watch the directory too.
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}
	if err := watcher.Add(target); err != nil {
		logging.Debug().Err(err).Msg("unable to watch config file directly")
	}

	go func() {
		defer watcher.Close()
		var (
			timer   *time.Timer
			timerCh <-chan time.Time
		)
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(reloadDebounce)
					timerCh = timer.C
				} else {
					if !timer.Stop() {
						<-timerCh
					}
					timer.Reset(reloadDebounce)
				}
			case <-timerCh:
				timer = nil
				timerCh = nil
				if err := s.Reload(); err != nil {
					logging.Warn().Err(err).Str("path", target).Msg("config reload failed, keeping previous config")
					continue
				}
				logging.Info().Str("path", target).Msg("config reloaded")
				if onReload != nil {
					onReload(s.Config())
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logging.Warn().Err(err).Msg("config watcher error")
			}
		}
	}()
	return nil
}
