// Package tooling gives persona generation access to live external data
// (time, weather, URL fetches, news) through a schema-validated registry,
// with tool selection done heuristically or by a model call.
package tooling

import (
	"context"
	"fmt"
	"strings"
)

// Property describes one field of a tool's input schema.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// InputSchema is a JSON-schema-like description of a tool's input map.
type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required"`
}

// Schema declares one tool: its name, what it does, and what it accepts.
type Schema struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Input       InputSchema `json:"input_schema"`
}

// Call is a request to invoke a named tool with an input map.
type Call struct {
	Name  string
	Input map[string]any
}

// Result is the outcome of a dispatch. Failures are values, never panics:
// a handler error, a missing field, or an unknown tool all land here.
type Result struct {
	Name    string
	Input   map[string]any
	Output  any
	Success bool
	Error   string
}

// AsMap renders the result for inclusion in generation context.
func (r Result) AsMap() map[string]any {
	return map[string]any{
		"name":    r.Name,
		"input":   r.Input,
		"output":  r.Output,
		"success": r.Success,
		"error":   r.Error,
	}
}

// Handler executes one tool invocation. Input has already passed
// required-field validation.
type Handler func(ctx context.Context, input map[string]any) (any, error)

// Registry holds the available tools and their handlers.
type Registry struct {
	order    []string
	schemas  map[string]Schema
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{
		schemas:  make(map[string]Schema),
		handlers: make(map[string]Handler),
	}
}

// Register adds a tool. Re-registering a name replaces the previous entry.
func (r *Registry) Register(schema Schema, handler Handler) {
	if _, exists := r.schemas[schema.Name]; !exists {
		r.order = append(r.order, schema.Name)
	}
	r.schemas[schema.Name] = schema
	r.handlers[schema.Name] = handler
}

// List returns the tool schemas in registration order.
func (r *Registry) List() []Schema {
	schemas := make([]Schema, 0, len(r.order))
	for _, name := range r.order {
		schemas = append(schemas, r.schemas[name])
	}
	return schemas
}

// Has reports whether a tool name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.schemas[name]
	return ok
}

// Dispatch validates and executes a call. It never returns an error or
// panics: every failure mode becomes a failed Result.
func (r *Registry) Dispatch(ctx context.Context, call Call) (result Result) {
	result = Result{Name: call.Name, Input: call.Input}
	defer func() {
		outcome := "error"
		if result.Success {
			outcome = "success"
		}
		toolCallsTotal.WithLabelValues(call.Name, outcome).Inc()
	}()

	schema, ok := r.schemas[call.Name]
	if !ok {
		result.Error = "unknown tool"
		return result
	}
	handler, ok := r.handlers[call.Name]
	if !ok {
		result.Error = "tool handler not registered"
		return result
	}
	if err := validateInput(schema.Input, call.Input); err != nil {
		result.Error = err.Error()
		return result
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			result.Output = nil
			result.Success = false
			result.Error = fmt.Sprintf("tool panicked: %v", recovered)
		}
	}()

	output, err := handler(ctx, call.Input)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Output = output
	result.Success = true
	return result
}

func validateInput(schema InputSchema, input map[string]any) error {
	if schema.Type != "object" {
		return fmt.Errorf("input schema must be an object")
	}
	var missing []string
	for _, field := range schema.Required {
		if _, ok := input[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}
