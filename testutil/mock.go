// Package testutil provides test helpers for fncengine (e.g. RecordingFunc).
package testutil

import (
	"context"
	"maps"
	"sync"

	"github.com/skosovsky/fncengine"
)

// RecordingFunc is a configurable function that records every argument map it receives.
type RecordingFunc struct {
	// Result is returned when CallFn is nil.
	Result any
	CallFn func(ctx context.Context, args map[string]any) (any, error)

	mu    sync.Mutex
	calls []map[string]any
}

// Func returns the fncengine.Func to register.
func (m *RecordingFunc) Func() fncengine.Func {
	return func(ctx context.Context, args map[string]any) (any, error) {
		m.mu.Lock()
		m.calls = append(m.calls, maps.Clone(args))
		m.mu.Unlock()
		if m.CallFn != nil {
			return m.CallFn(ctx, args)
		}
		return m.Result, nil
	}
}

// Calls returns the argument maps received so far, in call order.
func (m *RecordingFunc) Calls() []map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]map[string]any, len(m.calls))
	copy(out, m.calls)
	return out
}

// LastCall returns the most recent argument map, or nil if the function was never called.
func (m *RecordingFunc) LastCall() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	return m.calls[len(m.calls)-1]
}
