package config

import (
	"os"
	"sync"
	"time"

	"github.com/KilimcininKorOglu/cloudkv/internal/logging"
)

// Watcher polls a config file and reports validated changes.
type Watcher struct {
	path         string
	pollInterval time.Duration
	debounce     time.Duration
	onChange     func(oldCfg, newCfg *Config)
	logger       logging.Logger

	modTime time.Time
	size    int64
	current *Config

	stopCh    chan struct{}
	stoppedCh chan struct{}
	running   bool
	mu        sync.Mutex
}

// WatcherConfig holds config watcher configuration.
type WatcherConfig struct {
	FilePath     string
	PollInterval time.Duration // Default: 1s
	Debounce     time.Duration // Default: 200ms
	OnChange     func(oldCfg, newCfg *Config)
	Logger       logging.Logger
}

// NewWatcher creates a watcher for cfg.FilePath. The file must exist and
// parse.
func NewWatcher(cfg *WatcherConfig) (*Watcher, error) {
	if cfg.FilePath == "" {
		return nil, ErrMissingConfigFile
	}
	if cfg.OnChange == nil {
		return nil, ErrMissingOnChange
	}

	w := &Watcher{
		path:         cfg.FilePath,
		pollInterval: cfg.PollInterval,
		debounce:     cfg.Debounce,
		onChange:     cfg.OnChange,
		logger:       cfg.Logger,
		stopCh:       make(chan struct{}),
		stoppedCh:    make(chan struct{}),
	}
	if w.pollInterval <= 0 {
		w.pollInterval = time.Second
	}
	if w.debounce <= 0 {
		w.debounce = 200 * time.Millisecond
	}
	if w.logger == nil {
		w.logger = logging.NewNop()
	}

	info, err := os.Stat(cfg.FilePath)
	if err != nil {
		return nil, err
	}
	initial, err := LoadConfig(cfg.FilePath)
	if err != nil {
		return nil, err
	}

	w.modTime = info.ModTime()
	w.size = info.Size()
	w.current = initial
	return w, nil
}

// Start begins polling.
func (w *Watcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true
	go w.loop()
}

// Stop stops polling and waits for the loop to exit. A stopped watcher
// cannot be restarted.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.stoppedCh
}

// Current returns the last valid configuration.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

func (w *Watcher) loop() {
	defer close(w.stoppedCh)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	var debounce *time.Timer
	var debounceCh <-chan time.Time

	for {
		select {
		case <-w.stopCh:
			if debounce != nil {
				debounce.Stop()
			}
			return

		case <-ticker.C:
			if !w.changed() {
				continue
			}
			// Restart the quiet period on every write
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.NewTimer(w.debounce)
			debounceCh = debounce.C

		case <-debounceCh:
			debounce = nil
			debounceCh = nil
			w.reload()
		}
	}
}

func (w *Watcher) changed() bool {
	info, err := os.Stat(w.path)
	if err != nil {
		return false
	}
	if info.ModTime().Equal(w.modTime) && info.Size() == w.size {
		return false
	}
	w.modTime = info.ModTime()
	w.size = info.Size()
	return true
}

// reload parses the file and hands a valid result to onChange. Invalid
// files are logged and otherwise ignored.
func (w *Watcher) reload() {
	next, err := LoadConfig(w.path)
	if err != nil {
		w.logger.Warn("config reload failed", "path", w.path, "error", err)
		return
	}
	if errs := ValidateConfig(next); len(errs) > 0 {
		w.logger.Warn("config reload rejected", "path", w.path, "error", errs[0], "errors", len(errs))
		return
	}

	w.mu.Lock()
	prev := w.current
	w.current = next
	w.mu.Unlock()

	w.logger.Info("config reloaded", "path", w.path)
	w.onChange(prev, next)
}
