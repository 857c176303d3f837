package config

import (
	"log"
	"os"
	"sync"
	"time"
)

// Watcher reloads the config file when its modification time changes.
// Check is meant to be run periodically, e.g. as a cron job.
type Watcher struct {
	path     string
	onChange func(*Config)

	mu      sync.Mutex
	modTime time.Time
}

// NewWatcher records the file's current modification time so that only
// later edits trigger onChange.
func NewWatcher(path string, onChange func(*Config)) *Watcher {
	w := &Watcher{path: path, onChange: onChange}
	if info, err := os.Stat(path); err == nil {
		w.modTime = info.ModTime()
	}
	return w
}

// Check reloads and validates the file if it changed. An invalid file is
// logged and skipped; the previous configuration stays in effect.
func (w *Watcher) Check() {
	info, err := os.Stat(w.path)
	if err != nil {
		return
	}

	w.mu.Lock()
	changed := !info.ModTime().Equal(w.modTime)
	if changed {
		w.modTime = info.ModTime()
	}
	w.mu.Unlock()
	if !changed {
		return
	}

	cfg, err := Load(w.path)
	if err != nil {
		log.Printf("[ERROR] reload config: %v", err)
		return
	}
	if err := cfg.Validate(); err != nil {
		log.Printf("[ERROR] reloaded config invalid, keeping previous: %v", err)
		return
	}
	log.Printf("[INFO] config %s changed, %d instruments", w.path, len(cfg.Instruments))
	w.onChange(cfg)
}
