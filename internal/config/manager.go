package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Manager watches the config file and reloads it on change. Running
// workflows keep the snapshot they started with; only new runs pick up
// the reloaded values.
type Manager struct {
	mu       sync.RWMutex
	cfg      *Research
	path     string
	watcher  *fsnotify.Watcher
	logger   *zap.Logger
	onChange []func(*Research)
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewManager loads the config at path and begins watching its parent
// directory. Watching the directory instead of the file survives the
// rename-then-replace dance most editors and config pushers do.
func NewManager(path string, logger *zap.Logger) (*Manager, error) {
	cfg, err := LoadFrom(path)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}

	m := &Manager{
		cfg:     cfg,
		path:    path,
		watcher: watcher,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}
	go m.watch()
	return m, nil
}

// Current returns the most recently loaded config.
func (m *Manager) Current() *Research {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// OnChange registers a callback invoked after each successful reload.
func (m *Manager) OnChange(fn func(*Research)) {
	m.mu.Lock()
	m.onChange = append(m.onChange, fn)
	m.mu.Unlock()
}

// Stop shuts down the file watcher.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
		m.watcher.Close()
	})
}

func (m *Manager) watch() {
	var debounce *time.Timer
	for {
		select {
		case <-m.stopCh:
			return
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(m.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			// Coalesce the burst of events a single save produces.
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(250*time.Millisecond, m.reload)
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.logger.Warn("config watcher error", zap.Error(err))
		}
	}
}

func (m *Manager) reload() {
	cfg, err := LoadFrom(m.path)
	if err != nil {
		m.logger.Error("config reload failed, keeping previous config",
			zap.String("path", m.path),
			zap.Error(err))
		return
	}

	m.mu.Lock()
	m.cfg = cfg
	callbacks := make([]func(*Research), len(m.onChange))
	copy(callbacks, m.onChange)
	m.mu.Unlock()

	m.logger.Info("config reloaded",
		zap.String("path", m.path),
		zap.Int("max_iterations", cfg.MaxIterations),
		zap.Float64("quality_threshold", cfg.QualityThreshold))

	for _, fn := range callbacks {
		fn(cfg)
	}
}
