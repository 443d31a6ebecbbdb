package trip

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce coalesces the write/rename event bursts editors
// produce when saving a rules file.
const reloadDebounce = 200 * time.Millisecond

// WatchRules reloads the rules file whenever it changes on disk.
// Blocks until ctx is cancelled. The watch is on the parent directory
// so atomic-rename saves (vim, sed -i) are still observed.
func (e *Engine) WatchRules(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return err
	}

	target := filepath.Base(path)

	var timer *time.Timer
	pending := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDebounce, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})
		case <-pending:
			rules, err := LoadRules(path)
			if err != nil {
				e.logger.Warn("rules reload failed", "path", path, "error", err)
				continue
			}
			e.SetRules(rules)
			e.logger.Info("rules reloaded", "path", path, "rules", e.RuleCount())
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			e.logger.Warn("rules watcher error", "error", werr)
		}
	}
}
