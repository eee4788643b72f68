package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"pantry-intake/internal/shared/telemetry"
)

// RulesHolder publishes the current Rules to concurrent readers.
type RulesHolder struct {
	mu    sync.RWMutex
	rules Rules
}

// NewRulesHolder returns a holder seeded with r.
func NewRulesHolder(r Rules) *RulesHolder {
	return &RulesHolder{rules: r}
}

// Get returns the current rules.
func (h *RulesHolder) Get() Rules {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rules
}

// Set replaces the current rules.
func (h *RulesHolder) Set(r Rules) {
	h.mu.Lock()
	h.rules = r
	h.mu.Unlock()
}

const rulesDebounce = 250 * time.Millisecond

// WatchRules reloads path into holder whenever the file changes until ctx is done.
// The parent directory is watched so editor rename-on-save is seen. Invalid files
// are logged and the previous rules stay in effect.
func WatchRules(ctx context.Context, path string, holder *RulesHolder) error {
	if path == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("rules watcher: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		_ = watcher.Close()
		return fmt.Errorf("rules watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("rules watcher: %w", err)
	}

	go func() {
		defer watcher.Close()
		var pending <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				pending = time.After(rulesDebounce)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				telemetry.Warn("config.rules_watch_error", map[string]any{"error": err})
			case <-pending:
				pending = nil
				reloadRules(abs, holder)
			}
		}
	}()
	return nil
}

func reloadRules(path string, holder *RulesHolder) {
	rules, err := LoadRules(path)
	if err != nil {
		telemetry.Warn("config.rules_reload_rejected", map[string]any{
			"path":  path,
			"error": fmt.Errorf("%w: %v", ErrRulesInvalid, err),
		})
		return
	}
	holder.Set(rules)
	telemetry.Info("config.rules_reloaded", map[string]any{"path": path, "pet_slots": rules.PetSlots})
}
