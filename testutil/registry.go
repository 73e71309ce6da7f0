package testutil

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/skosovsky/fncengine"
)

// NewTestRegistry returns a Registry with deterministic session ids ("session-1",
// "session-2", ...) and the given functions registered. Panics on invalid names.
func NewTestRegistry(funcs map[string]fncengine.Func) *fncengine.Registry {
	n := 0
	reg := fncengine.NewRegistry(fncengine.WithSessionIDFunc(func() string {
		n++
		return fmt.Sprintf("session-%d", n)
	}))
	if err := reg.Register(funcs); err != nil {
		panic(err)
	}
	return reg
}

// NewTestDispatcher returns a Dispatcher over reg that logs nowhere unless opts override it.
func NewTestDispatcher(reg *fncengine.Registry, opts ...fncengine.Option) *fncengine.Dispatcher {
	opts = append([]fncengine.Option{fncengine.WithLogger(zerolog.Nop())}, opts...)
	return fncengine.NewDispatcher(reg, opts...)
}
