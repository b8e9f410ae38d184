package tooling

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func echoSchema(name string, required ...string) Schema {
	properties := make(map[string]Property, len(required))
	for _, field := range required {
		properties[field] = Property{Type: "string"}
	}
	return Schema{
		Name:        name,
		Description: "test tool",
		Input:       InputSchema{Type: "object", Properties: properties, Required: required},
	}
}

func TestDispatchUnknownTool(t *testing.T) {
	registry := NewRegistry()
	result := registry.Dispatch(context.Background(), Call{Name: "nope", Input: map[string]any{}})
	if result.Success {
		t.Fatal("expected failure for unknown tool")
	}
	if result.Error != "unknown tool" {
		t.Fatalf("unexpected error %q", result.Error)
	}
}

func TestDispatchMissingRequiredFields(t *testing.T) {
	registry := NewRegistry()
	invoked := false
	registry.Register(echoSchema("lookup", "query", "limit"), func(ctx context.Context, input map[string]any) (any, error) {
		invoked = true
		return nil, nil
	})

	result := registry.Dispatch(context.Background(), Call{Name: "lookup", Input: map[string]any{"limit": 3}})
	if result.Success {
		t.Fatal("expected failure for missing field")
	}
	if !strings.Contains(result.Error, "query") {
		t.Fatalf("expected error to name missing field, got %q", result.Error)
	}
	if invoked {
		t.Fatal("handler must not run when validation fails")
	}
}

func TestDispatchHandlerError(t *testing.T) {
	registry := NewRegistry()
	registry.Register(echoSchema("flaky"), func(ctx context.Context, input map[string]any) (any, error) {
		return nil, errors.New("upstream down")
	})

	result := registry.Dispatch(context.Background(), Call{Name: "flaky", Input: map[string]any{}})
	if result.Success {
		t.Fatal("expected failure")
	}
	if result.Error != "upstream down" {
		t.Fatalf("unexpected error %q", result.Error)
	}
}

func TestDispatchRecoversPanic(t *testing.T) {
	registry := NewRegistry()
	registry.Register(echoSchema("boom"), func(ctx context.Context, input map[string]any) (any, error) {
		panic("handler bug")
	})

	result := registry.Dispatch(context.Background(), Call{Name: "boom", Input: map[string]any{}})
	if result.Success {
		t.Fatal("expected failure after panic")
	}
	if !strings.Contains(result.Error, "handler bug") {
		t.Fatalf("expected panic message in error, got %q", result.Error)
	}
}

func TestDispatchSuccess(t *testing.T) {
	registry := NewRegistry()
	registry.Register(echoSchema("echo", "value"), func(ctx context.Context, input map[string]any) (any, error) {
		return map[string]any{"echoed": input["value"]}, nil
	})

	result := registry.Dispatch(context.Background(), Call{Name: "echo", Input: map[string]any{"value": "hi"}})
	if !result.Success {
		t.Fatalf("expected success, got %q", result.Error)
	}
	output, ok := result.Output.(map[string]any)
	if !ok || output["echoed"] != "hi" {
		t.Fatalf("unexpected output %v", result.Output)
	}
	asMap := result.AsMap()
	if asMap["name"] != "echo" || asMap["success"] != true {
		t.Fatalf("unexpected result map %v", asMap)
	}
}

func TestListPreservesRegistrationOrder(t *testing.T) {
	registry := NewRegistry()
	registry.Register(echoSchema("first"), nil)
	registry.Register(echoSchema("second"), nil)
	registry.Register(echoSchema("first"), nil) // replacement keeps position

	schemas := registry.List()
	if len(schemas) != 2 || schemas[0].Name != "first" || schemas[1].Name != "second" {
		t.Fatalf("unexpected order: %+v", schemas)
	}
}
