package fncengine

import "context"

// ToolCallType is the only envelope type providers emit today. It is accepted but not enforced.
const ToolCallType = "function"

// Func is the uniform calling convention for every registered callable. args holds the
// resolved parameters by name; the returned value is stored under the descriptor's
// return names. For descriptors with more than one return, the value must be a slice
// or array that is destructured positionally.
type Func func(ctx context.Context, args map[string]any) (any, error)

// Return binds one result (or one element of a multi-value result) to a name in the
// output store. Type is documentation for the LLM and is never checked.
type Return struct {
	Name string `json:"name" jsonschema:"minLength=1"`
	Type string `json:"type,omitempty"`
}

// Descriptor is a validated, normalized function call.
type Descriptor struct {
	Name       string         `json:"name" jsonschema:"minLength=1"`
	Parameters map[string]any `json:"parameters"`
	Returns    []Return       `json:"returns,omitempty"`

	// CallID and FromEnvelope are set when the descriptor was built from a provider
	// tool-call envelope, which carries no return bindings.
	CallID       string `json:"-"`
	FromEnvelope bool   `json:"-"`
}

// ToolCall is the provider tool-call envelope (OpenAI-style).
type ToolCall struct {
	ID       string           `json:"id,omitempty"`
	Type     string           `json:"type,omitempty"`
	Function ToolCallFunction `json:"function"`
}

// ToolCallFunction is the function part of a ToolCall. Arguments is either a JSON
// text encoding an object or an already decoded object.
type ToolCallFunction struct {
	Name      string `json:"name" jsonschema:"minLength=1"`
	Arguments any    `json:"arguments,omitempty"`
}

// ToolDefinition is the provider-facing description of a registered Tool.
type ToolDefinition struct {
	Type     string             `json:"type"`
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes a function by name, description and JSON Schema parameters.
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

// InvocationSummary is passed to the after-invoke hook (WithOnAfterInvoke) when a
// descriptor finishes (success or error). Stored lists the output names written.
type InvocationSummary struct {
	Index  int
	Name   string
	Result any
	Stored []string
	Error  error
}

// ToolMetadata is implemented by tools created with NewTool and exposes optional settings
// for orchestration or discovery.
type ToolMetadata interface {
	Tags() []string
	Version() string
	IsDangerous() bool
}
