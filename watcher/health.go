package watcher

import (
	"fmt"
	"time"

	"github.com/wojas/go-healthz"
)

const (
	healthEvalInterval = 10 * time.Second

	warnFailingScans  = 2
	errorFailingScans = 5
)

// RegisterHealth registers the watcher with the healthz registry, so a
// storage backend that stays unreachable flips the daemon health.
func (w *Watcher) RegisterHealth() {
	healthz.Register("watcher_scans", healthEvalInterval, func() error {
		failing := w.FailingScans()
		if failing >= errorFailingScans {
			return fmt.Errorf("%d consecutive scans failed", failing)
		}
		if failing >= warnFailingScans {
			return healthz.Warnf("%d consecutive scans failed", failing)
		}
		return nil
	})
}
