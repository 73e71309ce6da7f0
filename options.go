package fncengine

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// toolOptions hold optional tool settings (strict, tags, etc.).
type toolOptions struct {
	strict    bool
	tags      []string
	version   string
	dangerous bool
}

// ToolOption configures NewFunc and NewTool (e.g. WithStrict, WithTags).
type ToolOption func(*toolOptions)

// WithStrict sets strict mode for the parameter schema: additionalProperties: false for
// all objects, and all properties become required. Use for OpenAI Structured Outputs.
func WithStrict() ToolOption {
	return func(o *toolOptions) {
		o.strict = true
	}
}

// WithTags sets tool tags (metadata for discovery/orchestrator).
func WithTags(tags ...string) ToolOption {
	return func(o *toolOptions) {
		o.tags = tags
	}
}

// WithVersion sets the tool version.
func WithVersion(version string) ToolOption {
	return func(o *toolOptions) {
		o.version = version
	}
}

// WithDangerous marks the tool as dangerous (orchestrator may require confirmation).
func WithDangerous() ToolOption {
	return func(o *toolOptions) {
		o.dangerous = true
	}
}

// RegistryOption configures a Registry.
type RegistryOption func(*registryOptions)

type registryOptions struct {
	newSessionID func() string
}

// WithSessionIDFunc replaces the session id generator (uuid by default).
func WithSessionIDFunc(fn func() string) RegistryOption {
	return func(o *registryOptions) {
		if fn != nil {
			o.newSessionID = fn
		}
	}
}

// Option configures a Dispatcher.
type Option func(*dispatcherOptions)

type dispatcherOptions struct {
	logger          zerolog.Logger
	referenceMarker string
	envelopeOutputs bool
	recoverPanics   bool
	onBefore        func(context.Context, Descriptor)
	onAfter         func(context.Context, Descriptor, InvocationSummary, time.Duration)
}

// WithLogger sets the logger for diagnostics (Debug) and the verbose trace (Info).
func WithLogger(logger zerolog.Logger) Option {
	return func(o *dispatcherOptions) {
		o.logger = logger
	}
}

// WithReferenceMarker switches reference resolution from plain textual matching to an
// explicit prefix: only string parameters of the form marker+name are references, and
// a marked name that is not in the output store fails with ErrUnresolvedReference.
// Unmarked strings are always literals. An empty marker keeps textual matching.
func WithReferenceMarker(marker string) Option {
	return func(o *dispatcherOptions) {
		o.referenceMarker = marker
	}
}

// WithEnvelopeOutputs stores results of envelope-shaped calls under their call id.
// Without it those results are only returned, never stored.
func WithEnvelopeOutputs() Option {
	return func(o *dispatcherOptions) {
		o.envelopeOutputs = true
	}
}

// WithRecoverPanics converts a panicking callable into a SystemError (enabled by default).
func WithRecoverPanics(enable bool) Option {
	return func(o *dispatcherOptions) {
		o.recoverPanics = enable
	}
}

// WithOnBeforeInvoke sets a hook called after resolution, right before each invocation.
// The descriptor carries the resolved parameters.
func WithOnBeforeInvoke(fn func(context.Context, Descriptor)) Option {
	return func(o *dispatcherOptions) {
		o.onBefore = fn
	}
}

// WithOnAfterInvoke sets a hook called once per descriptor, after it succeeds or fails.
// Failures before the call, such as an unknown function, are reported too; the hook then
// receives the parameters as written.
func WithOnAfterInvoke(fn func(context.Context, Descriptor, InvocationSummary, time.Duration)) Option {
	return func(o *dispatcherOptions) {
		o.onAfter = fn
	}
}

// InvokeOption configures a single ParseAndInvoke call.
type InvokeOption func(*invokeOptions)

type invokeOptions struct {
	verbose bool
}

// Verbose logs each descriptor's name, parameters and returns at Info level before
// invoking it, including descriptors that then fail. The trace is written even when
// the dispatcher's logger is set to a higher level; zerolog's global level still applies.
func Verbose() InvokeOption {
	return func(o *invokeOptions) {
		o.verbose = true
	}
}
