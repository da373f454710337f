// Package tools exposes the correction pipeline to the agent loop as
// function-calling tools.
//
// The agent decides what a correction should be. It first calls
// find_memory_to_correct to learn whether a message is a correction and which
// stored memory it targets, then calls correct_memory with its decision.
// Every call's arguments are validated against the tool's JSON Schema before
// the tool runs.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	invopop "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/bdobrica/Kizuna/internal/kizuna/memory"
)

var (
	// ErrUnknownTool is returned by Call for names that are not registered.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrInvalidArguments is returned (wrapped) when arguments fail schema
	// validation or a tool's own checks.
	ErrInvalidArguments = errors.New("invalid tool arguments")
)

// ToolDefinition describes a tool the model may call.
type ToolDefinition struct {
	Type     string      `json:"type"` // "function"
	Function FunctionDef `json:"function"`
}

// FunctionDef is the name, description and parameter schema of a tool.
type FunctionDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// Tool is implemented by every registered tool.
type Tool interface {
	// Definition returns the LLM-facing definition.
	Definition() ToolDefinition

	// Execute runs the tool for the session with already validated JSON
	// arguments and returns a JSON result for the model.
	Execute(ctx context.Context, session memory.SessionContext, args json.RawMessage) (string, error)
}

// inputSchema is the reflected and compiled parameter schema of a tool.
type inputSchema struct {
	raw      json.RawMessage
	compiled *jsonschema.Schema
}

// reflectSchema derives the parameter schema of tool name from T. Properties
// not declared on T are rejected.
func reflectSchema[T any](name string) (inputSchema, error) {
	r := invopop.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	raw, err := json.Marshal(r.Reflect(v))
	if err != nil {
		return inputSchema{}, fmt.Errorf("tools: marshal %s schema: %w", name, err)
	}

	url := "https://kizuna.local/tools/" + name + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, bytes.NewReader(raw)); err != nil {
		return inputSchema{}, fmt.Errorf("tools: add %s schema: %w", name, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return inputSchema{}, fmt.Errorf("tools: compile %s schema: %w", name, err)
	}
	return inputSchema{raw: raw, compiled: compiled}, nil
}

func mustReflectSchema[T any](name string) inputSchema {
	s, err := reflectSchema[T](name)
	if err != nil {
		panic(err)
	}
	return s
}

// Registry holds the registered tools. Populate it at startup; it is not
// safe to Register concurrently with Call.
type Registry struct {
	tools   map[string]Tool
	schemas map[string]*jsonschema.Schema
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:   make(map[string]Tool),
		schemas: make(map[string]*jsonschema.Schema),
	}
}

// Register adds t. It panics on a duplicate name or an invalid parameter
// schema, both programming errors.
func (r *Registry) Register(t Tool) {
	def := t.Definition()
	name := def.Function.Name
	if _, dup := r.tools[name]; dup {
		panic("tools: duplicate tool registration: " + name)
	}

	c := jsonschema.NewCompiler()
	url := "https://kizuna.local/registry/" + name + ".json"
	if err := c.AddResource(url, bytes.NewReader(def.Function.Parameters)); err != nil {
		panic(fmt.Sprintf("tools: %s: %v", name, err))
	}
	compiled, err := c.Compile(url)
	if err != nil {
		panic(fmt.Sprintf("tools: %s: %v", name, err))
	}

	r.tools[name] = t
	r.schemas[name] = compiled
}

// Definitions returns the definitions of all registered tools sorted by name.
func (r *Registry) Definitions() []ToolDefinition {
	defs := make([]ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, t.Definition())
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Function.Name < defs[j].Function.Name })
	return defs
}

// Call validates args against the schema of tool name and executes it.
func (r *Registry) Call(ctx context.Context, session memory.SessionContext, name string, args json.RawMessage) (string, error) {
	t, ok := r.tools[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}

	if len(bytes.TrimSpace(args)) == 0 {
		args = json.RawMessage("{}")
	}
	var doc any
	if err := json.Unmarshal(args, &doc); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidArguments, name, err)
	}
	if err := r.schemas[name].Validate(doc); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidArguments, name, err)
	}
	return t.Execute(ctx, session, args)
}

func encodeResult(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("tools: encode result: %w", err)
	}
	return string(data), nil
}
