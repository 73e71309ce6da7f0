package fncengine

import (
	"fmt"
	"reflect"
	"strings"
)

// resolve returns a copy of params with references replaced by stored outputs.
//
// Without a reference marker a string value that equals a stored output name is a
// reference, so a literal that happens to match an output name is substituted too.
// Only top-level values are resolved.
func (d *Dispatcher) resolve(params map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(params))
	marker := d.opts.referenceMarker
	for key, val := range params {
		s, ok := val.(string)
		if !ok {
			out[key] = val
			continue
		}
		if marker == "" {
			if stored, found := d.reg.lookupOutput(s); found {
				out[key] = stored
			} else {
				out[key] = val
			}
			continue
		}
		name, isRef := strings.CutPrefix(s, marker)
		if !isRef {
			out[key] = val
			continue
		}
		stored, found := d.reg.lookupOutput(name)
		if !found {
			return nil, fmt.Errorf("%w: parameter %q refers to %q", ErrUnresolvedReference, key, name)
		}
		out[key] = stored
	}
	return out, nil
}

// store writes result to the output store per desc's return bindings and reports the
// names written.
func (d *Dispatcher) store(desc Descriptor, result any) ([]string, error) {
	switch n := len(desc.Returns); {
	case n == 0:
		if d.opts.envelopeOutputs && desc.CallID != "" {
			d.reg.SetOutput(desc.CallID, result)
			return []string{desc.CallID}, nil
		}
		return nil, nil
	case n == 1:
		d.reg.SetOutput(desc.Returns[0].Name, result)
		return []string{desc.Returns[0].Name}, nil
	default:
		values, ok := asSequence(result)
		if !ok {
			return nil, fmt.Errorf("%w: function %q returned %T, want a sequence of %d values",
				ErrArityMismatch, desc.Name, result, n)
		}
		if len(values) < n {
			return nil, fmt.Errorf("%w: function %q returned %d values, want at least %d",
				ErrArityMismatch, desc.Name, len(values), n)
		}
		names := make([]string, n)
		for i, r := range desc.Returns {
			d.reg.SetOutput(r.Name, values[i])
			names[i] = r.Name
		}
		return names, nil
	}
}

// asSequence unpacks slices and arrays of any element type. Strings are not sequences.
func asSequence(v any) ([]any, bool) {
	if s, ok := v.([]any); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
