package config

import (
	"context"
	"os"
	"time"
)

// catalogWatcher tracks the modification time of the last catalog it
// applied, so polls can tell a stale stat from new content.
type catalogWatcher struct {
	path     string
	lastMod  time.Time
	onUpdate func(*CatalogConfig)
}

// WatchCatalog applies the equipment catalog at path and keeps polling
// the file until ctx is done, reapplying it whenever its modification
// time moves forward. The first apply runs synchronously and its error
// is returned; later reload failures keep the previous catalog.
func WatchCatalog(ctx context.Context, path string, interval time.Duration, onUpdate func(*CatalogConfig)) error {
	if path == "" {
		path = "configs/equipment.yaml"
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}

	w := &catalogWatcher{path: path, onUpdate: onUpdate}
	if err := w.reload(); err != nil {
		return err
	}

	go w.poll(ctx, interval)
	return nil
}

func (w *catalogWatcher) poll(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !w.changed() {
				continue
			}
			// a half-written file fails validation; lastMod is not
			// advanced, so the next tick retries
			_ = w.reload()
		}
	}
}

// changed reports whether the file was modified after the last applied
// reload. Stat failures read as no change; the file may be mid-swap.
func (w *catalogWatcher) changed() bool {
	info, err := os.Stat(w.path)
	if err != nil {
		return false
	}
	return info.ModTime().After(w.lastMod)
}

// reload parses the catalog, records the file's modification time and
// hands the result to onUpdate. On error nothing is recorded and the
// previously applied catalog stays in effect.
func (w *catalogWatcher) reload() error {
	info, err := os.Stat(w.path)
	if err != nil {
		return err
	}

	cfg, err := LoadCatalogConfig(w.path)
	if err != nil {
		return err
	}

	w.lastMod = info.ModTime()
	if w.onUpdate != nil {
		w.onUpdate(cfg)
	}
	return nil
}
