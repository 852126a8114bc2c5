package store

import (
	"context"
	"errors"
	"time"

	"github.com/bissquit/incident-comms/internal/pkg/metrics"
)

// Instrumented records operation latency of the wrapped store.
type Instrumented struct {
	next   KV
	driver string
}

// Instrument wraps kv with latency metrics labelled by driver.
func Instrument(kv KV, driver string) *Instrumented {
	return &Instrumented{next: kv, driver: driver}
}

func (s *Instrumented) observe(op string, start time.Time, err error) {
	status := "ok"
	switch {
	case errors.Is(err, ErrNotFound):
		status = "not_found"
	case err != nil:
		status = "error"
	}
	metrics.StoreOperationDuration.WithLabelValues(s.driver, op, status).Observe(time.Since(start).Seconds())
}

// Get implements KV.
func (s *Instrumented) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	v, err := s.next.Get(ctx, key)
	s.observe("get", start, err)
	return v, err
}

// Put implements KV.
func (s *Instrumented) Put(ctx context.Context, key string, value []byte) error {
	start := time.Now()
	err := s.next.Put(ctx, key, value)
	s.observe("put", start, err)
	return err
}

// Delete implements KV.
func (s *Instrumented) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := s.next.Delete(ctx, key)
	s.observe("delete", start, err)
	return err
}

// Keys implements KV.
func (s *Instrumented) Keys(ctx context.Context, prefix string) ([]string, error) {
	start := time.Now()
	keys, err := s.next.Keys(ctx, prefix)
	s.observe("keys", start, err)
	return keys, err
}

// Close implements KV.
func (s *Instrumented) Close() error {
	return s.next.Close()
}
