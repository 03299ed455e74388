package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	xglog "github.com/retrovue/core/internal/log"
)

// ConfigHolder holds the current AppConfig with atomic hot-reload support,
// watching the backing file for changes so an operator edit takes effect
// without a process restart. A failed reload keeps the prior configuration.
type ConfigHolder struct {
	reloadOpMu sync.Mutex
	current    atomic.Pointer[AppConfig]
	loader     *Loader
	configPath string
	configDir  string
	configFile string
	watcher    *fsnotify.Watcher
	logger     zerolog.Logger

	listenerMu sync.RWMutex
	listeners  []chan<- AppConfig
}

// NewConfigHolder wraps an already-loaded config for hot reloading.
func NewConfigHolder(initial AppConfig, loader *Loader, configPath string) *ConfigHolder {
	h := &ConfigHolder{
		loader:     loader,
		configPath: configPath,
		logger:     xglog.WithComponent("config"),
	}
	h.current.Store(&initial)
	return h
}

// Get returns the current configuration (thread-safe read).
func (h *ConfigHolder) Get() AppConfig {
	return *h.current.Load()
}

// Reload re-reads the backing file and env overrides, validating before
// swapping: either the full config is valid and applied, or the old one stays.
func (h *ConfigHolder) Reload(_ context.Context) error {
	h.reloadOpMu.Lock()
	defer h.reloadOpMu.Unlock()

	newCfg, err := h.loader.Load()
	if err != nil {
		h.logger.Error().Err(err).Msg("config reload: load failed")
		return fmt.Errorf("load config: %w", err)
	}

	old := h.Get()
	h.current.Store(&newCfg)
	h.logChanges(old, newCfg)
	h.notifyListeners(newCfg)

	h.logger.Info().Msg("config reload: applied")
	return nil
}

// StartWatcher watches configPath's directory for writes/renames (covering
// editors that write via a temp file and atomic rename) and debounces
// reloads. A no-op when configPath is empty (ENV-only configuration).
func (h *ConfigHolder) StartWatcher(ctx context.Context) error {
	if h.configPath == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	h.watcher = watcher
	h.configDir = filepath.Dir(h.configPath)
	h.configFile = filepath.Base(h.configPath)

	if err := watcher.Add(h.configDir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}

	h.logger.Info().Str("path", h.configPath).Msg("config watcher started")
	go h.watchLoop(ctx)
	return nil
}

func (h *ConfigHolder) watchLoop(ctx context.Context) {
	var debounce *time.Timer
	const debounceWindow = 500 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			_ = h.watcher.Close()
			return

		case ev, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != h.configFile {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceWindow, func() {
				if err := h.Reload(ctx); err != nil {
					h.logger.Error().Err(err).Msg("automatic config reload failed")
				}
			})

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Msg("config watcher error")
		}
	}
}

// Stop closes the watcher, if running.
func (h *ConfigHolder) Stop() {
	if h.watcher != nil {
		_ = h.watcher.Close()
	}
}

// RegisterListener registers a channel to receive the new config after
// every successful reload. Sends are non-blocking; a full channel is skipped.
func (h *ConfigHolder) RegisterListener(ch chan<- AppConfig) {
	h.listenerMu.Lock()
	defer h.listenerMu.Unlock()
	h.listeners = append(h.listeners, ch)
}

func (h *ConfigHolder) notifyListeners(cfg AppConfig) {
	h.listenerMu.RLock()
	defer h.listenerMu.RUnlock()
	for _, ch := range h.listeners {
		select {
		case ch <- cfg:
		default:
			h.logger.Warn().Msg("config reload listener channel full, skipped")
		}
	}
}

func (h *ConfigHolder) logChanges(old, next AppConfig) {
	if old.LogLevel != next.LogLevel {
		h.logger.Info().Str("old", old.LogLevel).Str("new", next.LogLevel).Msg("config changed: logLevel")
	}
	if old.Horizon.Mode != next.Horizon.Mode {
		h.logger.Info().Str("old", old.Horizon.Mode).Str("new", next.Horizon.Mode).Msg("config changed: horizon.mode")
	}
	if old.Sink.Target != next.Sink.Target {
		h.logger.Info().Str("old", old.Sink.Target).Str("new", next.Sink.Target).Msg("config changed: sink.target")
	}
	if len(old.Channels) != len(next.Channels) {
		h.logger.Info().Int("old", len(old.Channels)).Int("new", len(next.Channels)).Msg("config changed: channel count")
	}
}
