// Package fncengine provides a small dispatch engine that turns declarative function-call
// descriptors (as produced by an LLM) into calls against a registry of Go functions.
//
// # Overview
//
// An LLM describes a multi-step plan as a flat JSON list: call A, store its result
// under a name, pass that name to B. This package parses the list, resolves names
// against a session-scoped output store, invokes the registered functions in order,
// and records their results for the calls that follow.
//
// Pipeline: JSON or structured input → Parse (shape validation) → ResolveAndInvoke
// per descriptor (resolve references, call, store) → ordered results.
//
// # Key concepts
//
//   - Registry owns the callables and the output store. Reset starts a new session
//     and keeps registrations.
//   - Reference resolution is textual: a string parameter equal to a stored output
//     name is replaced by that output. WithReferenceMarker switches to an explicit
//     prefix instead.
//   - Sequential execution: call i's outputs are visible to call i+1. The first
//     failing call aborts the batch; earlier outputs stay in the store.
//   - Two input shapes: the native descriptor ({name, parameters, returns}) and the
//     provider tool-call envelope ({id, type, function: {name, arguments}}).
//
// # Example
//
//	reg := fncengine.NewRegistry()
//	_ = reg.RegisterFunc("add", func(_ context.Context, args map[string]any) (any, error) {
//	    return args["a"].(float64) + args["b"].(float64), nil
//	})
//	d := fncengine.NewDispatcher(reg)
//	res, err := d.ParseAndInvoke(ctx, `[
//	    {"name": "add", "parameters": {"a": 2, "b": 3}, "returns": [{"name": "sum"}]},
//	    {"name": "add", "parameters": {"a": "sum", "b": 4}, "returns": [{"name": "total"}]}
//	]`)
//	// res == []any{5.0, 9.0}
package fncengine
