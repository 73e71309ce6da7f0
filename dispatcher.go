package fncengine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Dispatcher parses descriptors and executes them against a Registry, one at a time and
// in order. It holds no session state of its own; outputs live in the Registry.
type Dispatcher struct {
	reg  *Registry
	opts dispatcherOptions
}

// NewDispatcher creates a Dispatcher bound to reg. Panics if reg is nil.
func NewDispatcher(reg *Registry, opts ...Option) *Dispatcher {
	if reg == nil {
		panic("fncengine: registry must not be nil")
	}
	o := dispatcherOptions{
		logger:        zerolog.New(os.Stderr).Level(zerolog.InfoLevel).With().Timestamp().Logger(),
		recoverPanics: true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Dispatcher{reg: reg, opts: o}
}

// Registry returns the registry this dispatcher reads and writes.
func (d *Dispatcher) Registry() *Registry { return d.reg }

// Parse is the package-level Parse; it does not touch the registry.
func (d *Dispatcher) Parse(input any) ([]Descriptor, error) { return Parse(input) }

// ResolveAndInvoke executes one descriptor:
//
//  1. the function is looked up (ErrUnknownFunction);
//  2. a native descriptor without returns fails with ErrMissingReturns, before invocation;
//  3. parameters are resolved against the output store (see WithReferenceMarker);
//  4. the function is called; its error is returned unchanged;
//  5. the result is stored under the return names. With several returns the result must
//     be a slice or array with at least that many elements (ErrArityMismatch otherwise,
//     and nothing is stored).
//
// Envelope descriptors have no returns: their result is returned but not stored, unless
// WithEnvelopeOutputs is set.
func (d *Dispatcher) ResolveAndInvoke(ctx context.Context, desc Descriptor) (any, error) {
	return d.invoke(ctx, 0, desc, false)
}

// InvokeSequence executes descriptors strictly in order, so outputs stored by call i are
// visible to call i+1. The first error aborts the batch and is returned with no results;
// outputs stored by earlier calls stay in place.
func (d *Dispatcher) InvokeSequence(ctx context.Context, descs []Descriptor) ([]any, error) {
	return d.invokeAll(ctx, descs, false)
}

// ParseAndInvoke parses input and executes the result with InvokeSequence. Besides
// everything Parse accepts, input may be JSON text (string, []byte or json.RawMessage).
// With Verbose, each descriptor is logged at Info level before it is invoked.
func (d *Dispatcher) ParseAndInvoke(ctx context.Context, input any, opts ...InvokeOption) ([]any, error) {
	var o invokeOptions
	for _, opt := range opts {
		opt(&o)
	}
	var (
		descs []Descriptor
		err   error
	)
	switch v := input.(type) {
	case string:
		descs, err = ParseJSON([]byte(v))
	case []byte:
		descs, err = ParseJSON(v)
	case json.RawMessage:
		descs, err = ParseJSON(v)
	default:
		descs, err = Parse(input)
	}
	if err != nil {
		return nil, err
	}
	return d.invokeAll(ctx, descs, o.verbose)
}

func (d *Dispatcher) invokeAll(ctx context.Context, descs []Descriptor, verbose bool) ([]any, error) {
	results := make([]any, 0, len(descs))
	for i, desc := range descs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := d.invoke(ctx, i, desc, verbose)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (d *Dispatcher) invoke(ctx context.Context, index int, desc Descriptor, verbose bool) (result any, err error) {
	log := d.opts.logger.With().
		Str("session", d.reg.SessionID()).
		Int("index", index).
		Str("function", desc.Name).
		Logger()
	if verbose {
		// The trace is requested per call, so it is not subject to the logger's level.
		traceLog := log.Level(min(log.GetLevel(), zerolog.InfoLevel))
		traceLog.Info().
			Interface("parameters", desc.Parameters).
			Interface("returns", desc.Returns).
			Msg("calling function")
	}

	summary := InvocationSummary{Index: index, Name: desc.Name}
	resolved := desc
	start := time.Now()
	// The after hook sees every outcome, including lookup, binding and arity errors.
	defer func() {
		summary.Result = result
		summary.Error = err
		if d.opts.onAfter != nil {
			d.opts.onAfter(ctx, resolved, summary, time.Since(start))
		}
	}()

	fn, err := d.reg.Lookup(desc.Name)
	if err != nil {
		log.Debug().Err(err).Msg("lookup failed")
		return nil, err
	}
	if len(desc.Returns) == 0 && !desc.FromEnvelope {
		return nil, fmt.Errorf("%w: function %q has no return bindings", ErrMissingReturns, desc.Name)
	}
	args, err := d.resolve(desc.Parameters)
	if err != nil {
		return nil, fmt.Errorf("function %q: %w", desc.Name, err)
	}
	resolved.Parameters = args

	if d.opts.onBefore != nil {
		d.opts.onBefore(ctx, resolved)
	}
	result, err = d.call(ctx, fn, args)
	if err != nil {
		log.Debug().Err(err).Dur("duration", time.Since(start)).Msg("function failed")
		return nil, err
	}
	summary.Stored, err = d.store(desc, result)
	if err != nil {
		return nil, err
	}
	log.Debug().Strs("stored", summary.Stored).Dur("duration", time.Since(start)).Msg("function done")
	return result, nil
}

func (d *Dispatcher) call(ctx context.Context, fn Func, args map[string]any) (res any, err error) {
	if d.opts.recoverPanics {
		defer func() {
			if p := recover(); p != nil {
				res = nil
				err = &SystemError{Err: &panicError{p: p}}
			}
		}()
	}
	return fn(ctx, args)
}
