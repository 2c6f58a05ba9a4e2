// Package tools holds the callable tools exposed over MCP and the registry
// that lists and dispatches them by name.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
)

var (
	ErrDuplicateTool = errors.New("tool already registered")
	ErrToolNotFound  = errors.New("tool not found")
)

// Tool is a named operation a client can invoke through tools/call.
type Tool interface {
	Name() string
	Description() string
	// InputSchema returns the JSON Schema describing the tool's arguments.
	InputSchema() json.RawMessage
	// Execute runs the tool. A returned error is a domain failure that is
	// reported back to the client as a tool error, not a protocol error.
	Execute(ctx context.Context, args json.RawMessage) (any, error)
}

// Registry is a name-keyed collection of tools that remembers registration order.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool. Names are unique; registering a name twice fails and
// leaves the first registration in place.
func (r *Registry) Register(tool Tool) error {
	if tool == nil {
		return fmt.Errorf("tool cannot be nil")
	}
	name := tool.Name()
	if name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: Tool '%s' is already registered", ErrDuplicateTool, name)
	}
	r.tools[name] = tool
	r.order = append(r.order, name)
	return nil
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// List returns the descriptors of all registered tools in registration order.
// The result is never nil.
func (r *Registry) List() []mcp.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]mcp.Tool, 0, len(r.order))
	for _, name := range r.order {
		tool := r.tools[name]
		list = append(list, mcp.NewToolWithRawSchema(tool.Name(), tool.Description(), tool.InputSchema()))
	}
	return list
}

// Execute runs the named tool with args and returns its result or error unchanged.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage) (any, error) {
	tool, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: Tool '%s' not found", ErrToolNotFound, name)
	}
	return tool.Execute(ctx, args)
}
