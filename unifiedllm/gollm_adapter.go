package unifiedllm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/teilomillet/gollm"
	"github.com/tidwall/gjson"
)

// GollmAdapter wraps a gollm.LLM instance and implements ProviderAdapter.
// gollm takes a single prompt, so the transcript is flattened and tool calls
// are recovered from the reply text.
type GollmAdapter struct {
	provider string
	llm      gollm.LLM
	model    string
}

// GollmConfig selects the provider and defaults for a GollmAdapter.
type GollmConfig struct {
	Provider    string
	APIKey      string // empty reads the provider's environment variable
	Model       string // name or catalog alias
	MaxTokens   int
	Temperature float64
}

// NewGollmAdapter builds an adapter for cfg.Provider. A provider without a
// configured or catalogued model is a ConfigurationError.
func NewGollmAdapter(cfg GollmConfig) (*GollmAdapter, error) {
	model := ResolveModel(cfg.Provider, cfg.Model)
	if model == "" {
		return nil, &ConfigurationError{SDKError: SDKError{
			Message: fmt.Sprintf("no model configured for provider %s", cfg.Provider),
		}}
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	opts := []gollm.ConfigOption{
		gollm.SetProvider(cfg.Provider),
		gollm.SetModel(model),
		gollm.SetMaxTokens(maxTokens),
		gollm.SetTemperature(cfg.Temperature),
		gollm.SetMaxRetries(0),
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	if cfg.APIKey != "" {
		opts = append(opts, gollm.SetAPIKey(cfg.APIKey))
	}

	llm, err := gollm.NewLLM(opts...)
	if err != nil {
		return nil, &ConfigurationError{SDKError: SDKError{
			Message: fmt.Sprintf("failed to create gollm client for provider %s", cfg.Provider),
			Cause:   err,
		}}
	}
	return &GollmAdapter{provider: cfg.Provider, llm: llm, model: model}, nil
}

// Name returns the provider identifier.
func (a *GollmAdapter) Name() string { return a.provider }

// Complete sends a blocking request and returns the full response.
func (a *GollmAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	prompt := a.translateRequest(req)
	a.applyRequestOptions(req)

	text, err := a.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, ClassifyError(a.provider, err)
	}

	return a.buildResponse(req, text), nil
}

// flattenTranscript renders the conversation as a system prompt and a single
// user prompt, which is the shape gollm accepts.
func flattenTranscript(messages []Message) (string, string) {
	var system []string
	var parts []string

	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			system = append(system, msg.TextContent())
		case RoleUser:
			parts = append(parts, "[User]: "+msg.TextContent())
		case RoleAssistant:
			if text := msg.TextContent(); text != "" {
				parts = append(parts, "[Assistant]: "+text)
			}
			for _, call := range msg.ToolCalls() {
				parts = append(parts, fmt.Sprintf("[Assistant called %s]: %s", call.Name, string(call.Arguments)))
			}
		case RoleTool:
			for _, part := range msg.Content {
				if part.Kind != ContentToolResult || part.ToolResult == nil {
					continue
				}
				content := gjson.ParseBytes(part.ToolResult.Content).String()
				prefix := "[Tool Result]"
				if part.ToolResult.IsError {
					prefix = "[Tool Error]"
				}
				parts = append(parts, prefix+": "+content)
			}
		}
	}

	return strings.TrimSpace(strings.Join(system, "\n")), strings.Join(parts, "\n")
}

// translateRequest converts a unified Request into a gollm Prompt.
func (a *GollmAdapter) translateRequest(req Request) *gollm.Prompt {
	systemPrompt, promptText := flattenTranscript(req.Messages)
	if promptText == "" {
		promptText = "Hello"
	}

	var promptOpts []gollm.PromptOption
	if systemPrompt != "" {
		promptOpts = append(promptOpts, gollm.WithSystemPrompt(systemPrompt, gollm.CacheTypeEphemeral))
	}
	if req.MaxTokens != nil {
		promptOpts = append(promptOpts, gollm.WithMaxLength(*req.MaxTokens))
	}

	if len(req.ToolDefs) > 0 {
		tools := make([]gollm.Tool, 0, len(req.ToolDefs))
		for _, t := range req.ToolDefs {
			tools = append(tools, gollm.Tool{
				Type: "function",
				Function: gollm.Function{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.Parameters,
				},
			})
		}
		promptOpts = append(promptOpts, gollm.WithTools(tools))
	}

	if req.ToolChoice != nil {
		promptOpts = append(promptOpts, gollm.WithToolChoice(req.ToolChoice.Mode))
	}

	return gollm.NewPrompt(promptText, promptOpts...)
}

// applyRequestOptions applies request-level parameters to the gollm LLM.
func (a *GollmAdapter) applyRequestOptions(req Request) {
	if req.Model != "" {
		a.llm.SetOption("model", req.Model)
	}
	if req.Temperature != nil {
		a.llm.SetOption("temperature", *req.Temperature)
	}
	if req.MaxTokens != nil {
		a.llm.SetOption("max_tokens", *req.MaxTokens)
	}
}

// buildResponse constructs a unified Response from the generated text.
func (a *GollmAdapter) buildResponse(req Request, text string) *Response {
	model := req.Model
	if model == "" {
		model = a.model
	}

	toolCalls, start := parseToolCalls(text)

	var contentParts []ContentPart
	cleaned := text
	if start >= 0 {
		cleaned = strings.TrimSpace(text[:start])
	}
	if cleaned != "" {
		contentParts = append(contentParts, TextPart(cleaned))
	}
	for i := range toolCalls {
		contentParts = append(contentParts, ContentPart{Kind: ContentToolCall, ToolCall: &toolCalls[i]})
	}
	if len(contentParts) == 0 {
		contentParts = []ContentPart{TextPart(text)}
	}

	finishReason := FinishReason{Reason: "stop", Raw: "stop"}
	if len(toolCalls) > 0 {
		finishReason = FinishReason{Reason: "tool_calls", Raw: "tool_calls"}
	}

	input := estimateTokens(req)
	output := len(text) / 4
	return &Response{
		ID:       "resp_" + uuid.New().String()[:8],
		Model:    model,
		Provider: a.provider,
		Message: Message{
			Role:    RoleAssistant,
			Content: contentParts,
		},
		FinishReason: finishReason,
		Usage: Usage{
			// gollm does not expose usage; estimate from text length.
			InputTokens:  input,
			OutputTokens: output,
			TotalTokens:  input + output,
		},
	}
}

// parseToolCalls extracts tool calls embedded in a text reply. It accepts
// either {"tool_calls":[...]} or a bare [{"name":...}] array, where each
// entry carries name/arguments directly or under "function". It returns the
// calls and the byte offset where the JSON starts, or -1.
func parseToolCalls(text string) ([]ToolCallData, int) {
	var entries gjson.Result
	start := strings.Index(text, `{"tool_calls"`)
	if start >= 0 {
		entries = gjson.Get(text[start:], "tool_calls")
	} else if start = strings.Index(text, `[{"name"`); start >= 0 {
		// Parse reads one balanced value and ignores trailing text.
		entries = gjson.Parse(text[start:])
	} else {
		return nil, -1
	}
	if !entries.IsArray() {
		return nil, -1
	}

	var calls []ToolCallData
	entries.ForEach(func(_, entry gjson.Result) bool {
		name := entry.Get("name")
		args := entry.Get("arguments")
		if fn := entry.Get("function"); fn.Exists() {
			name = fn.Get("name")
			args = fn.Get("arguments")
		}
		if name.String() == "" {
			return true
		}
		raw := args.Raw
		if args.Type == gjson.String {
			// OpenAI-style arguments arrive as a JSON-encoded string.
			raw = args.Str
		}
		if raw == "" {
			raw = "{}"
		}
		id := entry.Get("id").String()
		if id == "" {
			id = "call_" + uuid.New().String()[:8]
		}
		calls = append(calls, ToolCallData{
			ID:        id,
			Name:      name.String(),
			Arguments: []byte(raw),
			Type:      "function",
		})
		return true
	})
	if len(calls) == 0 {
		return nil, -1
	}
	return calls, start
}

// estimateTokens provides a rough token count estimate from request messages.
func estimateTokens(req Request) int {
	total := 0
	for _, msg := range req.Messages {
		for _, part := range msg.Content {
			if part.Kind == ContentText {
				total += len(part.Text) / 4
			}
		}
	}
	if total == 0 {
		total = 10
	}
	return total
}
