package conversation

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/atmosuwiryo/onboarding-chatbot/onboarding"
	"github.com/atmosuwiryo/onboarding-chatbot/unifiedllm"
)

// ToolHandler handles the arguments of a tool call. Returning a record ends
// the session as completed; returning an error rejects the call and the
// error text is sent back to the model.
type ToolHandler func(arguments json.RawMessage) (*onboarding.Record, error)

// RegisteredTool pairs a tool definition with its handler.
type RegisteredTool struct {
	Definition unifiedllm.ToolDefinition
	Handler    ToolHandler
}

// ToolRegistry manages tool registration and lookup.
type ToolRegistry struct {
	tools map[string]*RegisteredTool
	mu    sync.RWMutex
}

func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools: make(map[string]*RegisteredTool),
	}
}

// DefaultToolRegistry holds the single onboarding completion action.
func DefaultToolRegistry() *ToolRegistry {
	r := NewToolRegistry()
	r.Register(RegisteredTool{
		Definition: onboarding.CompleteTool(),
		Handler:    onboarding.ParseCompletion,
	})
	return r
}

// Register adds or replaces a tool in the registry.
func (r *ToolRegistry) Register(tool RegisteredTool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Definition.Name] = &tool
}

// Get returns a registered tool by name, or nil if not found.
func (r *ToolRegistry) Get(name string) *RegisteredTool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Definitions returns all tool definitions sorted by name.
func (r *ToolRegistry) Definitions() []unifiedllm.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]unifiedllm.ToolDefinition, 0, len(r.tools))
	for _, tool := range r.tools {
		defs = append(defs, tool.Definition)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}
