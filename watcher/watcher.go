// Package watcher implements the archive upload daemon: it monitors a
// directory for new size archives, validates them and uploads them to the
// configured storage backend.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/PowerDNS/simpleblob"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/binsize/binsize/config"
	"github.com/binsize/binsize/sizefile"
	"github.com/binsize/binsize/utils"
)

func New(st simpleblob.Interface, c config.Config, l logrus.FieldLogger) *Watcher {
	return &Watcher{
		st:      st,
		c:       c,
		l:       l.WithField("component", "watcher"),
		handled: make(map[string]bool),
	}
}

// Watcher polls a directory for new *.size.gz archives and uploads every
// valid one it has not handled before. Uploads of one scan run concurrently;
// an archive that fails validation is skipped permanently, one that fails to
// upload is retried on the next scan.
type Watcher struct {
	st simpleblob.Interface
	c  config.Config
	l  logrus.FieldLogger

	// Consecutive scan failures, for health reporting.
	failing atomic.Uint32
	// Totals across the lifetime of the watcher.
	uploaded atomic.Int64
	failed   atomic.Int64

	mu      sync.Mutex
	handled map[string]bool // file names already uploaded or rejected
}

// Stats is a point in time snapshot of the watcher counters.
type Stats struct {
	Uploaded int64
	Failed   int64
}

func (w *Watcher) Stats() Stats {
	return Stats{
		Uploaded: w.uploaded.Load(),
		Failed:   w.failed.Load(),
	}
}

// FailingScans returns the number of consecutive failed scans.
func (w *Watcher) FailingScans() uint32 {
	return w.failing.Load()
}

func (w *Watcher) Run(ctx context.Context) error {
	w.l.WithField("dir", w.c.Watch.Dir).Info("Watching for new archives")
	for {
		if err := w.RunOnce(ctx); err != nil {
			if utils.IsCanceled(ctx) {
				return context.Canceled
			}
			w.failing.Inc()
			w.l.WithError(err).Error("Scan error")
		} else {
			w.failing.Store(0)
		}

		if err := utils.SleepContext(ctx, w.c.Watch.PollInterval); err != nil {
			return err
		}
	}
}

// RunOnce performs a single scan and upload pass.
func (w *Watcher) RunOnce(ctx context.Context) error {
	names, err := w.scan()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return nil
	}

	// Anything already in storage does not need another upload, e.g. after
	// a restart with a fresh handled map.
	metricListCalls.Inc()
	list, err := w.st.List(ctx, "")
	if err != nil {
		return err
	}
	remote := make(map[string]bool, len(list))
	for _, b := range list {
		remote[b.Name] = true
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(w.c.Watch.UploadWorkers)
	for _, name := range names {
		if remote[name] {
			w.markHandled(name)
			continue
		}
		name := name
		eg.Go(func() error {
			w.uploadOne(ctx, name)
			return nil // a single failed upload does not stop the scan
		})
	}
	return eg.Wait()
}

// scan lists candidate archive file names not handled before.
func (w *Watcher) scan() ([]string, error) {
	entries, err := os.ReadDir(w.c.Watch.Dir)
	if err != nil {
		return nil, err
	}
	var names []string
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, "."+sizefile.Extension) {
			continue
		}
		if w.handled[name] {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

func (w *Watcher) markHandled(name string) {
	w.mu.Lock()
	w.handled[name] = true
	w.mu.Unlock()
}

// uploadOne validates and uploads a single archive.
func (w *Watcher) uploadOne(ctx context.Context, name string) {
	l := w.l.WithField("filename", name)

	if !w.c.Watch.AllowAnyName {
		ni, err := sizefile.ParseArchiveName(name)
		if err != nil {
			l.WithError(err).Warn("Rejecting archive with invalid name")
			metricUploadsRejected.Inc()
			w.markHandled(name)
			return
		}
		if w.c.Product != "" && ni.Product != w.c.Product {
			l.WithField("product", ni.Product).Debug("Ignoring archive for other product")
			w.markHandled(name)
			return
		}
	}

	fpath := filepath.Join(w.c.Watch.Dir, name)
	if _, err := sizefile.LoadFile(fpath); err != nil {
		l.WithError(err).Warn("Rejecting corrupt archive")
		metricUploadsRejected.Inc()
		w.markHandled(name)
		return
	}

	data, err := os.ReadFile(fpath)
	if err != nil {
		l.WithError(err).Error("Read failed")
		w.failed.Inc()
		metricUploadsFailed.Inc()
		return
	}
	t0 := time.Now()
	if err := w.st.Store(ctx, name, data); err != nil {
		l.WithError(err).Error("Upload failed")
		w.failed.Inc()
		metricUploadsFailed.Inc()
		return
	}

	w.markHandled(name)
	w.uploaded.Inc()
	metricUploads.Inc()
	metricUploadBytes.Add(float64(len(data)))
	metricLastUploadTimestamp.SetToCurrentTime()
	l.WithFields(logrus.Fields{
		"size":        len(data),
		"time_upload": utils.TimeDiff(time.Now(), t0),
	}).Info("Archive uploaded")
}
