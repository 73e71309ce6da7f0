package fncengine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"

	invopop "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

const (
	descriptorSchemaURL = "https://fncengine.invalid/descriptor.schema.json"
	toolCallSchemaURL   = "https://fncengine.invalid/tool_call.schema.json"
)

// shapes holds the compiled input-shape schemas. Both are reflected from the Go types,
// so the schema an LLM is shown and the check Parse applies never drift apart.
type shapes struct {
	descriptorJSON []byte
	toolCallJSON   []byte
	descriptor     *jsonschema.Schema
	toolCall       *jsonschema.Schema
}

var loadShapes = sync.OnceValues(func() (*shapes, error) {
	s := &shapes{
		descriptorJSON: reflectShape(&Descriptor{}),
		toolCallJSON:   reflectShape(&ToolCall{}),
	}
	c := jsonschema.NewCompiler()
	for url, doc := range map[string][]byte{
		descriptorSchemaURL: s.descriptorJSON,
		toolCallSchemaURL:   s.toolCallJSON,
	} {
		parsed, err := jsonschema.UnmarshalJSON(bytes.NewReader(doc))
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", url, err)
		}
		if err := c.AddResource(url, parsed); err != nil {
			return nil, fmt.Errorf("load %s: %w", url, err)
		}
	}
	var err error
	if s.descriptor, err = c.Compile(descriptorSchemaURL); err != nil {
		return nil, fmt.Errorf("compile descriptor schema: %w", err)
	}
	if s.toolCall, err = c.Compile(toolCallSchemaURL); err != nil {
		return nil, fmt.Errorf("compile tool call schema: %w", err)
	}
	return s, nil
})

func reflectShape(v any) []byte {
	r := &invopop.Reflector{
		Anonymous:                 true,
		DoNotReference:            true,
		AllowAdditionalProperties: true,
	}
	data, err := json.Marshal(r.Reflect(v))
	if err != nil {
		// Reflected schemas are plain maps and strings.
		panic("fncengine: marshal reflected schema: " + err.Error())
	}
	return data
}

// DescriptorSchema returns the JSON Schema of a native descriptor
// ({"name", "parameters", "returns"}), e.g. for inclusion in a system prompt.
func DescriptorSchema() (json.RawMessage, error) {
	s, err := loadShapes()
	if err != nil {
		return nil, err
	}
	return slices.Clone(s.descriptorJSON), nil
}

// ToolCallSchema returns the JSON Schema of the provider tool-call envelope.
func ToolCallSchema() (json.RawMessage, error) {
	s, err := loadShapes()
	if err != nil {
		return nil, err
	}
	return slices.Clone(s.toolCallJSON), nil
}

// validateShape checks one decoded element against sch. The element is re-encoded so
// that Go-typed input (structs, typed maps, ints) is checked exactly like wire JSON.
func validateShape(sch *jsonschema.Schema, index int, elem any) error {
	data, err := json.Marshal(elem)
	if err != nil {
		return invalid(index, "not JSON-encodable: %v", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return invalid(index, "not JSON-encodable: %v", err)
	}
	if err := sch.Validate(inst); err != nil {
		return invalid(index, "%s", flattenSchemaError(err))
	}
	return nil
}

func flattenSchemaError(err error) string {
	lines := strings.Split(strings.TrimSpace(err.Error()), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(l), "- "))
	}
	return strings.Join(lines, "; ")
}
