package unifiedllm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// LangchainAdapter adapts a langchaingo llms.Model to ProviderAdapter. Unlike
// GollmAdapter it keeps the transcript structured and uses the provider's
// native tool calling.
type LangchainAdapter struct {
	provider string
	model    llms.Model
	modelID  string
}

// NewLangchainAdapter wraps an existing langchaingo model.
func NewLangchainAdapter(provider string, model llms.Model, modelID string) *LangchainAdapter {
	return &LangchainAdapter{provider: provider, model: model, modelID: modelID}
}

// NewOpenAILangchainAdapter builds an adapter backed by langchaingo's OpenAI
// client. An empty apiKey makes the client fall back to OPENAI_API_KEY and
// fail if that is unset too.
func NewOpenAILangchainAdapter(apiKey, model, baseURL string) (*LangchainAdapter, error) {
	model = ResolveModel("openai", model)
	opts := []openai.Option{openai.WithModel(model)}
	if apiKey != "" {
		opts = append(opts, openai.WithToken(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}
	return NewLangchainAdapter("openai", llm, model), nil
}

// Name returns the provider identifier.
func (a *LangchainAdapter) Name() string { return a.provider }

// Complete sends the transcript and tool definitions to the model.
func (a *LangchainAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	messages := convertMessages(req.Messages)
	options := a.buildCallOptions(req)

	resp, err := a.model.GenerateContent(ctx, messages, options...)
	if err != nil {
		return nil, ClassifyError(a.provider, err)
	}
	return a.convertResponse(req, resp)
}

// convertMessages maps unified messages to langchaingo message contents.
func convertMessages(messages []Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		mc := llms.MessageContent{Role: mapRole(msg.Role)}
		for _, part := range msg.Content {
			switch part.Kind {
			case ContentText:
				if part.Text != "" {
					mc.Parts = append(mc.Parts, llms.TextContent{Text: part.Text})
				}
			case ContentToolCall:
				if part.ToolCall == nil {
					continue
				}
				mc.Parts = append(mc.Parts, llms.ToolCall{
					ID:   part.ToolCall.ID,
					Type: "function",
					FunctionCall: &llms.FunctionCall{
						Name:      part.ToolCall.Name,
						Arguments: string(part.ToolCall.Arguments),
					},
				})
			case ContentToolResult:
				if part.ToolResult == nil {
					continue
				}
				mc.Parts = append(mc.Parts, llms.ToolCallResponse{
					ToolCallID: part.ToolResult.ToolCallID,
					Name:       part.ToolResult.Name,
					Content:    decodeToolContent(part.ToolResult.Content),
				})
			}
		}
		if len(mc.Parts) == 0 {
			continue
		}
		out = append(out, mc)
	}
	return out
}

func mapRole(role Role) llms.ChatMessageType {
	switch role {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	case RoleTool:
		return llms.ChatMessageTypeTool
	default:
		return llms.ChatMessageTypeHuman
	}
}

func (a *LangchainAdapter) buildCallOptions(req Request) []llms.CallOption {
	var options []llms.CallOption

	model := req.Model
	if model == "" {
		model = a.modelID
	}
	if model != "" {
		options = append(options, llms.WithModel(model))
	}
	if req.Temperature != nil {
		options = append(options, llms.WithTemperature(*req.Temperature))
	}
	if req.MaxTokens != nil {
		options = append(options, llms.WithMaxTokens(*req.MaxTokens))
	}

	if len(req.ToolDefs) > 0 {
		tools := make([]llms.Tool, 0, len(req.ToolDefs))
		for _, t := range req.ToolDefs {
			tools = append(tools, llms.Tool{
				Type: "function",
				Function: &llms.FunctionDefinition{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.Parameters,
				},
			})
		}
		options = append(options, llms.WithTools(tools))

		if req.ToolChoice != nil && req.ToolChoice.Mode != "" {
			options = append(options, llms.WithToolChoice(toolChoiceValue(*req.ToolChoice)))
		}
	}

	return options
}

// toolChoiceValue renders a ToolChoice in the OpenAI wire shape.
func toolChoiceValue(tc ToolChoice) any {
	if tc.Mode == "named" {
		return map[string]any{
			"type":     "function",
			"function": map[string]any{"name": tc.ToolName},
		}
	}
	return tc.Mode
}

func (a *LangchainAdapter) convertResponse(req Request, resp *llms.ContentResponse) (*Response, error) {
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return nil, &ProviderError{
			SDKError: SDKError{Message: "empty response from model"},
			Provider: a.provider,
		}
	}
	choice := resp.Choices[0]

	var parts []ContentPart
	if choice.Content != "" {
		parts = append(parts, TextPart(choice.Content))
	}
	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall == nil {
			continue
		}
		id := tc.ID
		if id == "" {
			id = "call_" + uuid.New().String()[:8]
		}
		args := tc.FunctionCall.Arguments
		if args == "" {
			args = "{}"
		}
		parts = append(parts, ToolCallPart(id, tc.FunctionCall.Name, []byte(args)))
	}

	finish := FinishReason{Reason: "stop", Raw: choice.StopReason}
	switch {
	case len(choice.ToolCalls) > 0:
		finish.Reason = "tool_calls"
	case choice.StopReason == "length":
		finish.Reason = "length"
	case choice.StopReason == "content_filter":
		finish.Reason = "content_filter"
	}

	model := req.Model
	if model == "" {
		model = a.modelID
	}

	return &Response{
		ID:           "resp_" + uuid.New().String()[:8],
		Model:        model,
		Provider:     a.provider,
		Message:      Message{Role: RoleAssistant, Content: parts},
		FinishReason: finish,
		Usage:        usageFromGenerationInfo(choice.GenerationInfo),
	}, nil
}

// usageFromGenerationInfo reads the token counters the OpenAI client reports.
func usageFromGenerationInfo(info map[string]any) Usage {
	u := Usage{
		InputTokens:  intFromAny(info["PromptTokens"]),
		OutputTokens: intFromAny(info["CompletionTokens"]),
		TotalTokens:  intFromAny(info["TotalTokens"]),
	}
	if u.TotalTokens == 0 {
		u.TotalTokens = u.InputTokens + u.OutputTokens
	}
	return u
}

func intFromAny(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

// decodeToolContent unwraps JSON-encoded string content; anything else is
// passed through as raw JSON text.
func decodeToolContent(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
