// Package unifiedllm is the completion service boundary of the onboarding
// chatbot. It presents a provider-agnostic request/response model and routes
// calls to one of two backends:
//
//   - LangchainAdapter wraps github.com/tmc/langchaingo and supports native
//     tool calling.
//   - GollmAdapter wraps github.com/teilomillet/gollm and recovers tool calls
//     from the reply text.
//
// # Quick Start
//
//	adapter := unifiedllm.NewLazyAdapter("openai", func() (unifiedllm.ProviderAdapter, error) {
//	    return unifiedllm.NewOpenAILangchainAdapter(os.Getenv("OPENAI_API_KEY"), "gpt-4o", "")
//	})
//	client := unifiedllm.NewClient(unifiedllm.WithProvider("openai", adapter))
//
//	resp, err := client.Complete(ctx, unifiedllm.Request{
//	    Model:    "gpt-4o",
//	    Messages: []unifiedllm.Message{unifiedllm.UserMessage("Hello")},
//	})
//	fmt.Println(resp.Text())
//
// # Tool Calling
//
// Tools are described to the model with ToolDefinition values carrying a JSON
// schema. A reply that invokes a tool has FinishReason "tool_calls" and its
// calls are available through Response.ToolCallsFromResponse.
package unifiedllm
