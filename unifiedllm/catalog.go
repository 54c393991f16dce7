package unifiedllm

// ModelInfo describes a known model in the catalog.
type ModelInfo struct {
	ID            string   `json:"id"`
	Provider      string   `json:"provider"`
	DisplayName   string   `json:"display_name"`
	ContextWindow int      `json:"context_window"`
	SupportsTools bool     `json:"supports_tools"`
	Aliases       []string `json:"aliases,omitempty"`
}

// Models lists the chat models known to support tool calling, newest first
// per provider.
var Models = []ModelInfo{
	// OpenAI
	{
		ID: "gpt-4o", Provider: "openai", DisplayName: "GPT-4o",
		ContextWindow: 128000, SupportsTools: true,
		Aliases: []string{"4o"},
	},
	{
		ID: "gpt-4o-mini", Provider: "openai", DisplayName: "GPT-4o mini",
		ContextWindow: 128000, SupportsTools: true,
		Aliases: []string{"4o-mini"},
	},
	{
		ID: "gpt-3.5-turbo", Provider: "openai", DisplayName: "GPT-3.5 Turbo",
		ContextWindow: 16385, SupportsTools: true,
	},

	// Anthropic
	{
		ID: "claude-3-5-sonnet-latest", Provider: "anthropic", DisplayName: "Claude 3.5 Sonnet",
		ContextWindow: 200000, SupportsTools: true,
		Aliases: []string{"sonnet"},
	},
	{
		ID: "claude-3-5-haiku-latest", Provider: "anthropic", DisplayName: "Claude 3.5 Haiku",
		ContextWindow: 200000, SupportsTools: true,
		Aliases: []string{"haiku"},
	},
}

// GetModelInfo returns the catalog entry for a model, or nil if unknown.
func GetModelInfo(modelID string) *ModelInfo {
	for i := range Models {
		if Models[i].ID == modelID {
			return &Models[i]
		}
		for _, alias := range Models[i].Aliases {
			if alias == modelID {
				return &Models[i]
			}
		}
	}
	return nil
}

// ListModels returns all known models, optionally filtered by provider.
func ListModels(provider string) []ModelInfo {
	if provider == "" {
		result := make([]ModelInfo, len(Models))
		copy(result, Models)
		return result
	}
	var result []ModelInfo
	for _, m := range Models {
		if m.Provider == provider {
			result = append(result, m)
		}
	}
	return result
}

// GetLatestModel returns the first model for a provider that supports tool
// calling, or nil.
func GetLatestModel(provider string) *ModelInfo {
	for i := range Models {
		if Models[i].Provider == provider && Models[i].SupportsTools {
			return &Models[i]
		}
	}
	return nil
}

// ResolveModel maps an alias to its canonical ID. Unknown names are returned
// unchanged; an empty name yields the provider's latest model.
func ResolveModel(provider, model string) string {
	if model == "" {
		if info := GetLatestModel(provider); info != nil {
			return info.ID
		}
		return ""
	}
	if info := GetModelInfo(model); info != nil {
		return info.ID
	}
	return model
}
