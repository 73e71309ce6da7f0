package fncengine

import (
	"encoding/json"
	"maps"
	"reflect"

	"github.com/google/jsonschema-go/jsonschema"
)

// Extractor generates the parameter schema for T and binds resolved argument maps to T
// with two-layer validation (schema, then Validatable). NewFunc uses it; custom adapters
// can use it directly.
type Extractor[T any] struct {
	schemaMap map[string]any
	resolved  *jsonschema.Resolved
}

// NewExtractor creates an Extractor for T. When strict is true the schema forbids
// additional properties and requires every property.
func NewExtractor[T any](strict bool) (*Extractor[T], error) {
	schemaMap, resolved, err := generateSchema[T](strict)
	if err != nil {
		return nil, err
	}
	return &Extractor[T]{
		schemaMap: schemaMap,
		resolved:  resolved,
	}, nil
}

// Schema returns a shallow copy of the JSON Schema (top-level keys only).
// Nested maps are shared; callers must not mutate them.
func (e *Extractor[T]) Schema() map[string]any {
	return maps.Clone(e.schemaMap)
}

// Bind converts a resolved argument map into T. Values are round-tripped through JSON,
// so outputs stored by earlier calls (structs, slices, numbers) bind like literals.
func (e *Extractor[T]) Bind(args map[string]any) (T, error) {
	var zero T
	if args == nil {
		args = map[string]any{}
	}
	data, err := json.Marshal(args)
	if err != nil {
		return zero, &ArgumentError{Reason: "arguments are not JSON-encodable: " + err.Error(), Err: ErrInvalidArguments}
	}
	return e.ParseAndValidate(data)
}

// ParseAndValidate deserializes argsJSON into T, runs Layer 1 (schema validation) and
// Layer 2 (Validatable.Validate() if T implements it).
func (e *Extractor[T]) ParseAndValidate(argsJSON []byte) (T, error) {
	var zero T
	var v any
	if err := json.Unmarshal(argsJSON, &v); err != nil {
		return zero, wrapJSONParseError(err)
	}
	if err := validateAgainstSchema(e.resolved, v); err != nil {
		return zero, err
	}
	var args T
	if err := json.Unmarshal(argsJSON, &args); err != nil {
		return zero, wrapJSONParseError(err)
	}
	if err := runLayer2Validation(args); err != nil {
		if IsArgumentError(err) {
			return zero, err
		}
		return zero, &ArgumentError{Reason: err.Error(), Err: ErrInvalidArguments}
	}
	return args, nil
}

// runLayer2Validation runs Validatable.Validate() on args; for value types it falls back
// to &args (pointer receiver). Validate is never called twice.
func runLayer2Validation[T any](args T) error {
	if err := validateCustom(any(args)); err != nil {
		return err
	}
	if _, ok := any(args).(Validatable); ok {
		return nil
	}
	typ := reflect.TypeOf(args)
	if typ == nil || typ.Kind() == reflect.Pointer {
		return nil
	}
	return validateCustom(any(&args))
}
