package fncengine

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
)

// Tool is a Func together with the metadata an LLM needs to call it: name, description
// and the JSON Schema of its parameters. Build one with NewTool or NewDynamicTool.
type Tool struct {
	name        string
	description string
	schema      map[string]any
	fn          Func
	opts        toolOptions
}

// NewFunc adapts a typed function to the Func calling convention. The resolved argument
// map is validated against the schema generated for T and bound to T; unknown, missing
// or mistyped arguments fail with ArgumentError before fn runs. Errors returned by fn
// are passed through unchanged. Returns an error if T does not describe a JSON object.
func NewFunc[T any, R any](fn func(ctx context.Context, args T) (R, error), opts ...ToolOption) (Func, error) {
	f, _, err := newTypedFunc(fn, opts...)
	return f, err
}

func newTypedFunc[T any, R any](
	fn func(ctx context.Context, args T) (R, error),
	opts ...ToolOption,
) (Func, *Extractor[T], error) {
	if fn == nil {
		return nil, nil, fmt.Errorf("%w: typed function must not be nil", ErrInvalidRegistration)
	}
	var o toolOptions
	for _, opt := range opts {
		opt(&o)
	}
	ext, err := NewExtractor[T](o.strict)
	if err != nil {
		return nil, nil, err
	}
	call := func(ctx context.Context, args map[string]any) (any, error) {
		in, err := ext.Bind(args)
		if err != nil {
			return nil, err
		}
		return fn(ctx, in)
	}
	return call, ext, nil
}

// NewTool builds a Tool from a typed function. Schema generation and binding are
// delegated to Extractor[T]; see NewFunc for the calling semantics.
func NewTool[T any, R any](
	name, description string,
	fn func(ctx context.Context, args T) (R, error),
	opts ...ToolOption,
) (*Tool, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: tool name must not be empty", ErrInvalidRegistration)
	}
	var o toolOptions
	for _, opt := range opts {
		opt(&o)
	}
	call, ext, err := newTypedFunc(fn, opts...)
	if err != nil {
		return nil, err
	}
	return &Tool{
		name:        name,
		description: description,
		schema:      ext.Schema(),
		fn:          call,
		opts:        o,
	}, nil
}

// NewDynamicTool creates a Tool from a raw JSON Schema map and an untyped Func. Arguments
// are validated against the schema before fn runs. Useful when the parameter shape is only
// known at runtime. The provided schemaMap is not mutated.
func NewDynamicTool(name, description string, schemaMap map[string]any, fn Func, opts ...ToolOption) (*Tool, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: tool name must not be empty", ErrInvalidRegistration)
	}
	if schemaMap == nil {
		return nil, fmt.Errorf("dynamic schema map must not be nil")
	}
	if fn == nil {
		return nil, fmt.Errorf("%w: dynamic tool handler must not be nil", ErrInvalidRegistration)
	}
	var o toolOptions
	for _, opt := range opts {
		opt(&o)
	}
	// Deep copy so the caller's map is never mutated.
	data, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("failed to deep copy schema map: %w", err)
	}
	var schemaCopy map[string]any
	if err := json.Unmarshal(data, &schemaCopy); err != nil {
		return nil, fmt.Errorf("failed to deep copy schema map: %w", err)
	}
	if o.strict {
		applyStrictMode(schemaCopy)
	}
	stripSchemaIDs(schemaCopy)
	compiled, err := compileRawSchema(schemaCopy)
	if err != nil {
		return nil, fmt.Errorf("failed to compile dynamic schema: %w", err)
	}
	call := func(ctx context.Context, args map[string]any) (any, error) {
		if args == nil {
			args = map[string]any{}
		}
		raw, err := json.Marshal(args)
		if err != nil {
			return nil, &ArgumentError{Reason: "arguments are not JSON-encodable: " + err.Error(), Err: ErrInvalidArguments}
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, wrapJSONParseError(err)
		}
		if err := validateAgainstSchema(compiled, v); err != nil {
			return nil, err
		}
		return fn(ctx, args)
	}
	return &Tool{
		name:        name,
		description: description,
		schema:      schemaCopy,
		fn:          call,
		opts:        o,
	}, nil
}

func (t *Tool) Name() string        { return t.name }
func (t *Tool) Description() string { return t.description }

// Parameters returns a shallow copy of the JSON Schema (top-level keys only).
// Nested maps (e.g. under "properties") are shared; callers must not mutate them.
func (t *Tool) Parameters() map[string]any { return maps.Clone(t.schema) }

// Func returns the callable registered for this tool.
func (t *Tool) Func() Func { return t.fn }

// Call invokes the tool directly, bypassing the registry and output store.
func (t *Tool) Call(ctx context.Context, args map[string]any) (any, error) {
	return t.fn(ctx, args)
}

// Definition returns the provider-facing tool definition.
func (t *Tool) Definition() ToolDefinition {
	return ToolDefinition{
		Type: ToolCallType,
		Function: FunctionDefinition{
			Name:        t.name,
			Description: t.description,
			Parameters:  t.Parameters(),
		},
	}
}

func (t *Tool) Tags() []string    { return append([]string(nil), t.opts.tags...) }
func (t *Tool) Version() string   { return t.opts.version }
func (t *Tool) IsDangerous() bool { return t.opts.dangerous }

var _ ToolMetadata = (*Tool)(nil)
