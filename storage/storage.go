// Package storage initialises the configured simpleblob backend and wraps it
// with Prometheus operation metrics.
package storage

import (
	"context"
	"time"

	"github.com/PowerDNS/simpleblob"
	"github.com/pkg/errors"

	"github.com/binsize/binsize/config"
)

// New initialises the backend described by sc and wraps it with metrics.
func New(ctx context.Context, sc config.Storage) (simpleblob.Interface, error) {
	if sc.Type == "" {
		return nil, errors.New("no storage.type configured, see the --config flag")
	}
	st, err := simpleblob.GetBackend(ctx, sc.Type, sc.Options)
	if err != nil {
		return nil, errors.Wrapf(err, "storage backend %q", sc.Type)
	}
	return Wrap(st), nil
}

// Wrap adds operation metrics around any simpleblob backend.
func Wrap(st simpleblob.Interface) simpleblob.Interface {
	return &instrumented{st: st}
}

type instrumented struct {
	st simpleblob.Interface
}

func (m *instrumented) List(ctx context.Context, prefix string) (simpleblob.BlobList, error) {
	t0 := time.Now()
	list, err := m.st.List(ctx, prefix)
	observe("list", t0, err)
	return list, err
}

func (m *instrumented) Load(ctx context.Context, name string) ([]byte, error) {
	t0 := time.Now()
	data, err := m.st.Load(ctx, name)
	observe("load", t0, err)
	return data, err
}

func (m *instrumented) Store(ctx context.Context, name string, data []byte) error {
	t0 := time.Now()
	err := m.st.Store(ctx, name, data)
	observe("store", t0, err)
	return err
}

func (m *instrumented) Delete(ctx context.Context, name string) error {
	t0 := time.Now()
	err := m.st.Delete(ctx, name)
	observe("delete", t0, err)
	return err
}
