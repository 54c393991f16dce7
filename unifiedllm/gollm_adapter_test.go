package unifiedllm

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestGollmAdapterName(t *testing.T) {
	// Construction may fail without network or a real key; only check Name
	// when it succeeds.
	adapter, err := NewGollmAdapter(GollmConfig{Provider: "openai", APIKey: "test-key-not-real", Model: "4o-mini"})
	if err != nil {
		t.Logf("skipping openai adapter creation: %v", err)
		return
	}
	if adapter.Name() != "openai" {
		t.Errorf("expected name %q, got %q", "openai", adapter.Name())
	}
	if adapter.model != "gpt-4o-mini" {
		t.Errorf("expected model %q, got %q", "gpt-4o-mini", adapter.model)
	}
}

func TestNewGollmAdapterUnknownProviderWithoutModel(t *testing.T) {
	_, err := NewGollmAdapter(GollmConfig{Provider: "nonexistent", APIKey: "key"})
	if _, ok := err.(*ConfigurationError); !ok {
		t.Errorf("expected ConfigurationError, got %T (%v)", err, err)
	}
}

func TestFlattenTranscript(t *testing.T) {
	assistant := AssistantMessage("What is your business called?")
	assistant.Content = append(assistant.Content,
		ToolCallPart("call_1", "mark_onboarding_complete", json.RawMessage(`{"record":{}}`)))

	system, prompt := flattenTranscript([]Message{
		SystemMessage("You are an onboarding assistant."),
		UserMessage("Hi"),
		assistant,
		ToolResultMessage("call_1", "mark_onboarding_complete", "record.businessName is required", true),
		UserMessage("Acme Cuts"),
	})

	if system != "You are an onboarding assistant." {
		t.Errorf("unexpected system prompt %q", system)
	}
	wantLines := []string{
		"[User]: Hi",
		"[Assistant]: What is your business called?",
		`[Assistant called mark_onboarding_complete]: {"record":{}}`,
		"[Tool Error]: record.businessName is required",
		"[User]: Acme Cuts",
	}
	if got := strings.Split(prompt, "\n"); len(got) != len(wantLines) {
		t.Fatalf("expected %d lines, got %d:\n%s", len(wantLines), len(got), prompt)
	} else {
		for i := range wantLines {
			if got[i] != wantLines[i] {
				t.Errorf("line %d: expected %q, got %q", i, wantLines[i], got[i])
			}
		}
	}
}

func TestParseToolCalls(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantName string
		wantArgs string
		wantText string
	}{
		{
			name:     "wrapped object arguments",
			text:     `Thanks! {"tool_calls":[{"name":"mark_onboarding_complete","arguments":{"record":{"businessName":"Acme"}}}]}`,
			wantName: "mark_onboarding_complete",
			wantArgs: `{"record":{"businessName":"Acme"}}`,
			wantText: "Thanks!",
		},
		{
			name:     "openai function shape with string arguments",
			text:     `{"tool_calls":[{"id":"call_9","type":"function","function":{"name":"mark_onboarding_complete","arguments":"{\"record\":{}}"}}]}`,
			wantName: "mark_onboarding_complete",
			wantArgs: `{"record":{}}`,
			wantText: "",
		},
		{
			name:     "bare array with trailing text",
			text:     `Done. [{"name":"mark_onboarding_complete","arguments":{}}] Bye`,
			wantName: "mark_onboarding_complete",
			wantArgs: `{}`,
			wantText: "Done.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls, start := parseToolCalls(tt.text)
			if len(calls) != 1 {
				t.Fatalf("expected 1 call, got %d", len(calls))
			}
			if calls[0].Name != tt.wantName {
				t.Errorf("expected name %q, got %q", tt.wantName, calls[0].Name)
			}
			if string(calls[0].Arguments) != tt.wantArgs {
				t.Errorf("expected args %s, got %s", tt.wantArgs, calls[0].Arguments)
			}
			if calls[0].ID == "" {
				t.Error("expected a call ID")
			}
			if got := strings.TrimSpace(tt.text[:start]); got != tt.wantText {
				t.Errorf("expected leading text %q, got %q", tt.wantText, got)
			}
		})
	}

	if calls, start := parseToolCalls("Just some text about {curly} things"); calls != nil || start != -1 {
		t.Errorf("expected no calls for plain text, got %v at %d", calls, start)
	}
}

func TestGollmBuildResponse(t *testing.T) {
	adapter := &GollmAdapter{provider: "openai", model: "gpt-4o"}

	resp := adapter.buildResponse(Request{}, "What services do you offer?")
	if resp.Text() != "What services do you offer?" {
		t.Errorf("unexpected text %q", resp.Text())
	}
	if resp.FinishReason.Reason != "stop" {
		t.Errorf("expected stop, got %q", resp.FinishReason.Reason)
	}
	if resp.Model != "gpt-4o" {
		t.Errorf("expected default model, got %q", resp.Model)
	}

	resp = adapter.buildResponse(Request{Model: "gpt-4o-mini"},
		`All set. {"tool_calls":[{"name":"mark_onboarding_complete","arguments":{"record":{}}}]}`)
	if resp.FinishReason.Reason != "tool_calls" {
		t.Errorf("expected tool_calls, got %q", resp.FinishReason.Reason)
	}
	if resp.Text() != "All set." {
		t.Errorf("expected text without JSON, got %q", resp.Text())
	}
	if calls := resp.ToolCallsFromResponse(); len(calls) != 1 || calls[0].Name != "mark_onboarding_complete" {
		t.Errorf("unexpected tool calls %+v", calls)
	}
	if resp.Usage.TotalTokens != resp.Usage.InputTokens+resp.Usage.OutputTokens {
		t.Error("expected total tokens to be the sum of input and output")
	}
}

func TestEstimateTokens(t *testing.T) {
	req := Request{
		Messages: []Message{
			UserMessage("Hello world, this is a test message."),
		},
	}
	if tokens := estimateTokens(req); tokens <= 0 {
		t.Errorf("expected positive token estimate, got %d", tokens)
	}

	if tokens := estimateTokens(Request{}); tokens != 10 {
		t.Errorf("expected default token estimate of 10, got %d", tokens)
	}
}
