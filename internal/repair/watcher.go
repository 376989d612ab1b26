package repair

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"diagmend/internal/logging"
)

// RulesWatcher watches a custom rules file and reloads it into the Repairer
// when it changes, so rule edits take effect without restarting.
type RulesWatcher struct {
	mu          sync.RWMutex
	watcher     *fsnotify.Watcher
	repairer    *Repairer
	rulesPath   string
	debounceMap map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats RulesWatcherStats
}

// RulesWatcherStats tracks watcher activity for debugging.
type RulesWatcherStats struct {
	ReloadsTriggered int
	ReloadFailures   int
	LastReloadTime   time.Time
}

// NewRulesWatcher creates a watcher for the given custom rules file path.
func NewRulesWatcher(rulesPath string, repairer *Repairer) (*RulesWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &RulesWatcher{
		watcher:     watcher,
		repairer:    repairer,
		rulesPath:   rulesPath,
		debounceMap: make(map[string]time.Time),
		debounceDur: 500 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; the event loop runs in a goroutine.
// The containing directory is watched rather than the file itself so the
// watch survives editors that replace the file on save.
func (rw *RulesWatcher) Start(ctx context.Context) error {
	rw.mu.Lock()
	if rw.running {
		rw.mu.Unlock()
		return nil
	}
	rw.running = true
	rw.mu.Unlock()

	dir := filepath.Dir(rw.rulesPath)
	if err := rw.watcher.Add(dir); err != nil {
		logging.Get(logging.CategoryRepair).Warn("rules watcher: cannot watch %s: %v", dir, err)
	} else {
		logging.Repair("rules watcher: watching %s", rw.rulesPath)
	}

	go rw.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (rw *RulesWatcher) Stop() {
	rw.mu.Lock()
	if !rw.running {
		rw.mu.Unlock()
		return
	}
	rw.running = false
	rw.mu.Unlock()

	close(rw.stopCh)
	<-rw.doneCh

	if err := rw.watcher.Close(); err != nil {
		logging.Get(logging.CategoryRepair).Error("rules watcher: close: %v", err)
	}
}

func (rw *RulesWatcher) run(ctx context.Context) {
	defer close(rw.doneCh)

	debounceTicker := time.NewTicker(100 * time.Millisecond)
	defer debounceTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-rw.stopCh:
			return
		case event, ok := <-rw.watcher.Events:
			if !ok {
				return
			}
			rw.handleEvent(event)
		case err, ok := <-rw.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryRepair).Error("rules watcher: %v", err)
		case <-debounceTicker.C:
			rw.processDebounced()
		}
	}
}

func (rw *RulesWatcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(rw.rulesPath) {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return
	}
	logging.RepairDebug("rules watcher: %s event for %s", event.Op, event.Name)
	rw.mu.Lock()
	rw.debounceMap[event.Name] = time.Now()
	rw.mu.Unlock()
}

func (rw *RulesWatcher) processDebounced() {
	rw.mu.Lock()
	now := time.Now()
	reload := false
	for path, eventTime := range rw.debounceMap {
		if now.Sub(eventTime) >= rw.debounceDur {
			delete(rw.debounceMap, path)
			reload = true
		}
	}
	rw.mu.Unlock()

	if reload {
		rw.Reload()
	}
}

// Reload reloads the rules file into the repairer. Safe to call manually.
func (rw *RulesWatcher) Reload() {
	rules, err := LoadCustomRules(rw.rulesPath)
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if err != nil {
		rw.stats.ReloadFailures++
		logging.Get(logging.CategoryRepair).Warn("rules watcher: reload failed, keeping previous rules: %v", err)
		return
	}
	rw.repairer.SetCustomRules(rules)
	rw.stats.ReloadsTriggered++
	rw.stats.LastReloadTime = time.Now()
	logging.Repair("rules watcher: reloaded %s", rw.rulesPath)
}

// GetStats returns a copy of the watcher statistics.
func (rw *RulesWatcher) GetStats() RulesWatcherStats {
	rw.mu.RLock()
	defer rw.mu.RUnlock()
	return rw.stats
}

// IsWatching reports whether the event loop is running.
func (rw *RulesWatcher) IsWatching() bool {
	rw.mu.RLock()
	defer rw.mu.RUnlock()
	return rw.running
}
