package daemon

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/act_mon/internal/config"
	"github.com/eliteGoblin/focusd/act_mon/internal/domain"
	"github.com/eliteGoblin/focusd/act_mon/internal/metrics"
)

const (
	// DefaultReloadDebounce ignores change events this close to the last accepted one.
	DefaultReloadDebounce = 500 * time.Millisecond

	// reloadSettle lets the writer finish before the file is read.
	reloadSettle = 100 * time.Millisecond
)

// ConfigApplier reacts to a successfully reloaded configuration.
type ConfigApplier interface {
	ApplyConfig(old, next *domain.Config)
}

// ConfigReloader watches the configuration file and swaps the active
// configuration when it changes. A file that fails to parse leaves the
// last-known-good configuration in place.
type ConfigReloader struct {
	path     string
	store    *config.Store
	holder   *config.Holder
	applier  ConfigApplier // Optional
	metrics  *metrics.Registry
	logger   *zap.Logger
	debounce time.Duration

	mu           sync.Mutex
	lastAccepted time.Time

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewConfigReloader creates a reloader for the config file at path.
func NewConfigReloader(
	path string,
	store *config.Store,
	holder *config.Holder,
	applier ConfigApplier,
	m *metrics.Registry,
	logger *zap.Logger,
) *ConfigReloader {
	return &ConfigReloader{
		path:     path,
		store:    store,
		holder:   holder,
		applier:  applier,
		metrics:  m,
		logger:   logger,
		debounce: DefaultReloadDebounce,
	}
}

// Start begins watching. The directory is watched rather than the file so
// that atomic replace-by-rename is seen.
func (r *ConfigReloader) Start() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(r.path)); err != nil {
		w.Close()
		return err
	}

	r.watcher = w
	r.done = make(chan struct{})
	r.wg.Add(1)
	go r.run()

	r.logger.Info("watching configuration", zap.String("path", r.path))
	return nil
}

// Stop ends the watch and waits for the loop to exit.
func (r *ConfigReloader) Stop() {
	if r.watcher == nil {
		return
	}
	close(r.done)
	r.wg.Wait()
	if err := r.watcher.Close(); err != nil {
		r.logger.Debug("failed to close config watcher", zap.Error(err))
	}
	r.watcher = nil
}

func (r *ConfigReloader) run() {
	defer r.wg.Done()

	var settle <-chan time.Time
	for {
		select {
		case <-r.done:
			return

		case ev, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if r.accept(ev, time.Now()) {
				settle = time.After(reloadSettle)
			}

		case <-settle:
			settle = nil
			r.Reload()
			r.rearm()

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.logger.Warn("config watcher error", zap.Error(err))
		}
	}
}

// accept filters and debounces a filesystem event.
func (r *ConfigReloader) accept(ev fsnotify.Event, now time.Time) bool {
	if filepath.Base(ev.Name) != filepath.Base(r.path) {
		return false
	}
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.lastAccepted.IsZero() && now.Sub(r.lastAccepted) < r.debounce {
		return false
	}
	r.lastAccepted = now
	return true
}

// Reload re-reads the file and swaps the active configuration.
// Returns false if the file could not be loaded.
func (r *ConfigReloader) Reload() bool {
	next, err := r.store.LoadFile(r.path)
	if err != nil {
		r.metrics.ConfigReload("error")
		r.logger.Warn("config reload failed, keeping previous configuration",
			zap.String("path", r.path),
			zap.Error(err))
		return false
	}

	old := r.holder.Swap(next)
	r.metrics.ConfigReload("ok")
	r.logger.Info("configuration reloaded",
		zap.String("path", r.path),
		zap.Int("blocked_processes", len(next.BlockedProcesses)))

	if r.applier != nil {
		r.applier.ApplyConfig(old, next)
	}
	return true
}

// rearm re-adds the directory watch. A rename of the directory itself or an
// editor replacing it drops the inotify watch silently.
func (r *ConfigReloader) rearm() {
	if err := r.watcher.Add(filepath.Dir(r.path)); err != nil {
		r.logger.Warn("failed to re-arm config watch", zap.Error(err))
	}
}
