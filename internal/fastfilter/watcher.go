package fastfilter

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/logger"
)

const defaultDebounce = 250 * time.Millisecond

// FileSource loads the denylist from a YAML file, optionally layered on top
// of the built-in rules.
type FileSource struct {
	Path            string
	IncludeDefaults bool
}

// Load returns the combined rule list.
func (s FileSource) Load() ([]Rule, error) {
	var rules []Rule
	if s.IncludeDefaults {
		rules = DefaultRules()
	}
	if s.Path == "" {
		return rules, nil
	}
	fileRules, err := LoadRulesFile(s.Path)
	if err != nil {
		return nil, err
	}
	return append(rules, fileRules...), nil
}

// Reload loads the source and applies it to f.
func (s FileSource) Reload(f *Filter) error {
	rules, err := s.Load()
	if err != nil {
		f.telemetry.M().DenylistReload("rejected")
		return err
	}
	return f.UpdateRules(rules)
}

// Watcher reapplies a FileSource whenever its file changes.
type Watcher struct {
	source   FileSource
	filter   *Filter
	log      logger.Logger
	debounce time.Duration
}

// NewWatcher returns a Watcher for source feeding filter.
func NewWatcher(source FileSource, filter *Filter, log logger.Logger) *Watcher {
	return &Watcher{source: source, filter: filter, log: log, debounce: defaultDebounce}
}

// Run blocks until ctx is done. The parent directory is watched so that
// editors which replace the file by rename are picked up.
func (w *Watcher) Run(ctx context.Context) error {
	if w.source.Path == "" {
		return errors.New("denylist watcher: no file configured")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create denylist watcher: %w", err)
	}
	defer fw.Close()

	target := filepath.Clean(w.source.Path)
	if err = fw.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}
	w.log.Info("Watching denylist file", logger.String("path", target))

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(w.debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("Denylist watcher error", logger.Error(err))
		case <-timer.C:
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	if err := w.source.Reload(w.filter); err != nil {
		w.log.Error("Denylist reload rejected, keeping previous rules",
			logger.String("path", w.source.Path),
			logger.Error(err),
		)
		return
	}
	w.log.Info("Denylist reloaded", logger.String("path", w.source.Path))
}
