package fncengine

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Middleware wraps a registered Func with cross-cutting behavior (logging, recovery).
// name is the registration name of the wrapped function.
type Middleware func(name string, next Func) Func

// WithLogging returns a middleware that logs start, end, duration, and errors.
func WithLogging(logger zerolog.Logger) Middleware {
	return func(name string, next Func) Func {
		return func(ctx context.Context, args map[string]any) (any, error) {
			logger.Info().Str("function", name).Msg("function start")
			start := time.Now()
			res, err := next(ctx, args)
			dur := time.Since(start)
			if err != nil {
				logger.Error().Str("function", name).Dur("duration", dur).Err(err).Msg("function error")
				return nil, err
			}
			logger.Info().Str("function", name).Dur("duration", dur).Msg("function end")
			return res, nil
		}
	}
}

// WithRecovery returns a middleware that recovers panics and returns SystemError.
func WithRecovery() Middleware {
	return func(_ string, next Func) Func {
		return func(ctx context.Context, args map[string]any) (res any, err error) {
			defer func() {
				if p := recover(); p != nil {
					res = nil
					err = &SystemError{Err: &panicError{p: p}}
				}
			}()
			return next(ctx, args)
		}
	}
}

// Use stores the given middlewares and reapplies them from scratch to all registered
// functions (onion order: first middleware is outermost). Functions registered after Use
// are wrapped too. Calling Use again replaces the chain without double-wrapping.
func (r *Registry) Use(middlewares ...Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares = middlewares
	for name, raw := range r.rawFuncs {
		r.funcs[name] = r.wrap(name, raw)
	}
}

// wrap applies the stored middlewares to fn. Caller holds r.mu.
func (r *Registry) wrap(name string, fn Func) Func {
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		fn = r.middlewares[i](name, fn)
	}
	return fn
}
