package fncengine

import (
	"encoding/json"
	"maps"
	"reflect"
	"slices"
)

// Parse normalizes structured input into an ordered list of validated descriptors.
//
// Accepted input: a single object or a sequence of objects, where each object is either
// a native descriptor ({"name", "parameters", "returns"}) or a provider tool-call
// envelope ({"id", "type", "function": {"name", "arguments"}}). Objects may be given as
// map[string]any, Descriptor or ToolCall (or pointers to them); sequences as []any,
// []map[string]any, []Descriptor or []ToolCall. Shapes may be mixed within a sequence.
//
// Text is not accepted here; use ParseJSON or ParseAndInvoke. Any other top-level value
// fails with ErrMalformedInput. Validation is all-or-nothing: the first invalid element
// fails the whole call with ErrValidation (or ErrDecode for undecodable envelope
// arguments) and no descriptors are returned.
func Parse(input any) ([]Descriptor, error) {
	elems, err := splitTopLevel(input)
	if err != nil {
		return nil, err
	}
	sh, err := loadShapes()
	if err != nil {
		return nil, err
	}
	out := make([]Descriptor, 0, len(elems))
	for i, elem := range elems {
		d, err := parseElement(sh, i, elem)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// ParseJSON decodes a JSON text encoding either accepted shape (one object or an array)
// and parses it. A decoding failure is reported as ErrDecode, distinct from validation.
func ParseJSON(data []byte) ([]Descriptor, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, undecodable(-1, err)
	}
	return Parse(v)
}

// splitTopLevel turns the top-level input into a list of candidate elements.
func splitTopLevel(input any) ([]any, error) {
	switch v := input.(type) {
	case nil:
		return nil, malformed("input is nil")
	case string, []byte, json.RawMessage:
		return nil, malformed("got text input %T; decode it first or use ParseJSON", input)
	case map[string]any, Descriptor, ToolCall:
		return []any{v}, nil
	case *Descriptor:
		if v == nil {
			return nil, malformed("input is a nil *Descriptor")
		}
		return []any{*v}, nil
	case *ToolCall:
		if v == nil {
			return nil, malformed("input is a nil *ToolCall")
		}
		return []any{*v}, nil
	case []any:
		return v, nil
	case []map[string]any:
		return toAnySlice(v), nil
	case []Descriptor:
		return toAnySlice(v), nil
	case []ToolCall:
		return toAnySlice(v), nil
	}
	rv := reflect.ValueOf(input)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			return []any{input}, nil
		}
	case reflect.Struct:
		return []any{input}, nil
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, nil
	case reflect.Pointer:
		if !rv.IsNil() {
			return splitTopLevel(rv.Elem().Interface())
		}
	}
	return nil, malformed("expected an object, a sequence of objects or text, got %T", input)
}

func toAnySlice[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

func parseElement(sh *shapes, index int, elem any) (Descriptor, error) {
	switch v := elem.(type) {
	case Descriptor:
		return parseDescriptorStruct(sh, index, v)
	case *Descriptor:
		if v == nil {
			return Descriptor{}, invalid(index, "nil *Descriptor")
		}
		return parseDescriptorStruct(sh, index, *v)
	case ToolCall:
		return parseToolCallStruct(sh, index, v)
	case *ToolCall:
		if v == nil {
			return Descriptor{}, invalid(index, "nil *ToolCall")
		}
		return parseToolCallStruct(sh, index, *v)
	case map[string]any:
		if isEnvelope(v) {
			return parseEnvelopeMap(sh, index, v)
		}
		return parseDescriptorMap(sh, index, v)
	}
	// Typed maps and foreign structs: re-read through JSON.
	obj, ok := asObject(elem)
	if !ok {
		return Descriptor{}, invalid(index, "expected an object, got %T", elem)
	}
	return parseElement(sh, index, obj)
}

// isEnvelope reports whether obj is a provider tool-call rather than a native descriptor.
func isEnvelope(obj map[string]any) bool {
	_, hasFunction := obj["function"]
	_, hasName := obj["name"]
	return hasFunction && !hasName
}

func parseDescriptorStruct(sh *shapes, index int, d Descriptor) (Descriptor, error) {
	if d.Parameters == nil {
		d.Parameters = map[string]any{}
	}
	shape := d
	shape.Parameters = map[string]any{}
	if err := validateShape(sh.descriptor, index, shape); err != nil {
		return Descriptor{}, err
	}
	d.Parameters = maps.Clone(d.Parameters)
	d.Returns = slices.Clone(d.Returns)
	return d, nil
}

func parseDescriptorMap(sh *shapes, index int, obj map[string]any) (Descriptor, error) {
	if r, ok := obj["returns"]; ok && r == nil {
		obj = maps.Clone(obj)
		delete(obj, "returns")
	}
	if err := validateShape(sh.descriptor, index, withoutValues(obj, "parameters")); err != nil {
		return Descriptor{}, err
	}
	name, _ := obj["name"].(string)
	params, ok := stringKeyed(obj["parameters"])
	if ok {
		params = maps.Clone(params)
	} else if params, ok = asObject(obj["parameters"]); !ok {
		return Descriptor{}, invalid(index, "parameters must be an object")
	}
	var returns []Return
	if raw, ok := obj["returns"]; ok {
		if err := reencode(raw, &returns); err != nil {
			return Descriptor{}, invalid(index, "returns: %v", err)
		}
	}
	return Descriptor{Name: name, Parameters: params, Returns: returns}, nil
}

func parseToolCallStruct(sh *shapes, index int, tc ToolCall) (Descriptor, error) {
	shape := tc
	if _, ok := stringKeyed(tc.Function.Arguments); ok {
		shape.Function.Arguments = map[string]any{}
	}
	if err := validateShape(sh.toolCall, index, shape); err != nil {
		return Descriptor{}, err
	}
	params, err := decodeArguments(index, tc.Function.Arguments)
	if err != nil {
		return Descriptor{}, err
	}
	return Descriptor{
		Name:         tc.Function.Name,
		Parameters:   params,
		CallID:       tc.ID,
		FromEnvelope: true,
	}, nil
}

func parseEnvelopeMap(sh *shapes, index int, obj map[string]any) (Descriptor, error) {
	shape := obj
	if fn, ok := obj["function"].(map[string]any); ok {
		shape = maps.Clone(obj)
		shape["function"] = withoutValues(fn, "arguments")
	}
	if err := validateShape(sh.toolCall, index, shape); err != nil {
		return Descriptor{}, err
	}
	fn, ok := obj["function"].(map[string]any)
	if !ok {
		if fn, ok = asObject(obj["function"]); !ok {
			return Descriptor{}, invalid(index, "function must be an object")
		}
	}
	name, _ := fn["name"].(string)
	params, err := decodeArguments(index, fn["arguments"])
	if err != nil {
		return Descriptor{}, err
	}
	id, _ := obj["id"].(string)
	return Descriptor{
		Name:         name,
		Parameters:   params,
		CallID:       id,
		FromEnvelope: true,
	}, nil
}

// decodeArguments turns an envelope's arguments (JSON text or an object) into parameters.
func decodeArguments(index int, raw any) (map[string]any, error) {
	var text []byte
	switch v := raw.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return maps.Clone(v), nil
	case string:
		text = []byte(v)
	case json.RawMessage:
		text = v
	case []byte:
		text = v
	default:
		if m, ok := stringKeyed(raw); ok {
			return maps.Clone(m), nil
		}
		obj, ok := asObject(raw)
		if !ok {
			return nil, invalid(index, "arguments must be JSON text or an object, got %T", raw)
		}
		return obj, nil
	}
	var decoded any
	if err := json.Unmarshal(text, &decoded); err != nil {
		return nil, undecodable(index, err)
	}
	switch v := decoded.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return v, nil
	default:
		return nil, invalid(index, "arguments must decode to an object, got %T", decoded)
	}
}

// withoutValues returns obj with the mapping under key replaced by an empty one. Shape
// checks only need to know that key holds an object; its values go to Go functions
// as they are and need not be JSON-encodable.
func withoutValues(obj map[string]any, key string) map[string]any {
	if _, ok := stringKeyed(obj[key]); !ok {
		return obj
	}
	out := maps.Clone(obj)
	out[key] = map[string]any{}
	return out
}

// stringKeyed returns v as a map[string]any if it is a non-nil map with string keys.
// Values are copied as they are, never encoded.
func stringKeyed(v any) (map[string]any, bool) {
	if m, ok := v.(map[string]any); ok {
		return m, m != nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String || rv.IsNil() {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	for iter := rv.MapRange(); iter.Next(); {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

// asObject re-reads v through JSON and reports whether it is a JSON object.
func asObject(v any) (map[string]any, bool) {
	if v == nil {
		return nil, false
	}
	var obj map[string]any
	if err := reencode(v, &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

func reencode(in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
