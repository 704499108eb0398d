package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ConfigChangeCallback is called after a reload has been accepted.
type ConfigChangeCallback func(oldConfig, newConfig *Config)

// Watcher reloads a config file when it changes on disk and tells
// subscribers about each accepted version, oldest first.
type Watcher struct {
	path   string
	loader *Loader
	fsw    *fsnotify.Watcher
	logger *zap.Logger

	// debounce collapses bursts of writes into one reload; readd is how
	// long to wait before watching a removed file again
	debounce time.Duration
	readd    time.Duration

	// reloadMu orders load, swap and notification as one step
	reloadMu sync.Mutex
	current  *Config
	configMu sync.RWMutex

	callbacks   []ConfigChangeCallback
	callbacksMu sync.Mutex

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewWatcher loads configFile and prepares to watch it.
func NewWatcher(configFile string, loader *Loader, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := formatOf(configFile); err != nil {
		return nil, err
	}
	configFile = filepath.Clean(configFile)

	initial, err := loader.LoadFromFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load initial config: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigWatchError, err)
	}

	return &Watcher{
		path:     configFile,
		loader:   loader,
		fsw:      fsw,
		logger:   logger,
		debounce: 500 * time.Millisecond,
		readd:    time.Second,
		current:  initial,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching the file.
func (w *Watcher) Start() error {
	if err := w.fsw.Add(w.path); err != nil {
		return fmt.Errorf("%w: %v", ErrConfigWatchError, err)
	}
	w.wg.Add(1)
	go w.watchLoop()
	return nil
}

// Stop ends watching. Pending reloads are dropped; a reload already running
// finishes first.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.fsw.Close()
		w.wg.Wait()
	})
	return err
}

// GetConfig returns the last accepted configuration.
func (w *Watcher) GetConfig() *Config {
	w.configMu.RLock()
	defer w.configMu.RUnlock()
	return w.current
}

// OnConfigChange subscribes callback to accepted reloads.
func (w *Watcher) OnConfigChange(callback ConfigChangeCallback) {
	w.callbacksMu.Lock()
	defer w.callbacksMu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Reload reads the file now. An invalid file leaves the current
// configuration in place.
func (w *Watcher) Reload() error {
	w.reloadMu.Lock()
	defer w.reloadMu.Unlock()

	next, err := w.loader.LoadFromFile(w.path)
	if err != nil {
		return fmt.Errorf("failed to reload config: %w", err)
	}

	w.configMu.Lock()
	prev := w.current
	w.current = next
	w.configMu.Unlock()

	w.callbacksMu.Lock()
	callbacks := append([]ConfigChangeCallback(nil), w.callbacks...)
	w.callbacksMu.Unlock()

	for _, callback := range callbacks {
		w.notify(callback, prev, next)
	}

	w.logger.Info("configuration reloaded",
		zap.String("file", w.path),
		zap.String("universal_location", next.Router.UniversalLocation))
	return nil
}

func (w *Watcher) notify(callback ConfigChangeCallback, prev, next *Config) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("config change callback panicked", zap.Any("panic", r))
		}
	}()
	callback(prev, next)
}

// watchLoop owns both timers, so nothing fires after Stop returns.
func (w *Watcher) watchLoop() {
	defer w.wg.Done()

	var (
		reloadTimer, readdTimer *time.Timer
		reloadC, readdC         <-chan time.Time
	)
	arm := func(t **time.Timer, c *<-chan time.Time, d time.Duration) {
		if *t == nil {
			*t = time.NewTimer(d)
		} else {
			(*t).Stop()
			(*t).Reset(d)
		}
		*c = (*t).C
	}
	defer func() {
		for _, t := range []*time.Timer{reloadTimer, readdTimer} {
			if t != nil {
				t.Stop()
			}
		}
	}()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Name != w.path {
				continue
			}
			switch {
			case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
				arm(&reloadTimer, &reloadC, w.debounce)
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				w.logger.Warn("config file removed or renamed", zap.String("file", w.path))
				arm(&readdTimer, &readdC, w.readd)
			}

		case <-reloadC:
			reloadC = nil
			if err := w.Reload(); err != nil {
				w.logger.Warn("config reload rejected", zap.Error(err))
			}

		case <-readdC:
			readdC = nil
			if err := w.fsw.Add(w.path); err != nil {
				w.logger.Warn("config file not watched again", zap.String("file", w.path), zap.Error(err))
				continue
			}
			arm(&reloadTimer, &reloadC, w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", zap.Error(err))
		}
	}
}
