package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	charmlog "github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atmosuwiryo/onboarding-chatbot/config"
	"github.com/atmosuwiryo/onboarding-chatbot/unifiedllm"
)

const acmeRecord = `{"businessName":"Acme Cuts","firstServices":{"serviceName":"Haircut","durationInMinutes":30,"price":20,"priceCurrency":"USD"},"businessHours":[{"startTime24hr":"09:00","endTime24hr":"17:00","dayOfWeek":"Monday"}],"yourEmailAddress":"a@b.com","doYouWantUsToTakePaymentsDirectlyFromYourCustomers":true}`

// fakeOpenAI serves canned chat completion messages in order.
type fakeOpenAI struct {
	mu       sync.Mutex
	messages []map[string]any
	bodies   []map[string]any
}

func (f *fakeOpenAI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.bodies = append(f.bodies, body)

	n := len(f.bodies)
	if n > len(f.messages) {
		http.Error(w, `{"error":{"message":"unexpected request"}}`, http.StatusInternalServerError)
		return
	}
	msg := f.messages[n-1]
	finish := "stop"
	if _, ok := msg["tool_calls"]; ok {
		finish = "tool_calls"
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4o",
		"choices": []any{map[string]any{
			"index":         0,
			"message":       msg,
			"finish_reason": finish,
		}},
		"usage": map[string]any{"prompt_tokens": 12, "completion_tokens": 6, "total_tokens": 18},
	})
}

func (f *fakeOpenAI) requests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bodies)
}

func text(content string) map[string]any {
	return map[string]any{"role": "assistant", "content": content}
}

func completion() map[string]any {
	return map[string]any{
		"role":    "assistant",
		"content": "",
		"tool_calls": []any{map[string]any{
			"id":   "call_1",
			"type": "function",
			"function": map[string]any{
				"name":      "mark_onboarding_complete",
				"arguments": `{"record":` + acmeRecord + `}`,
			},
		}},
	}
}

func isolate(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	for _, m := range config.GenerateEnvMappings() {
		t.Setenv(m.EnvVar, "")
	}
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := RootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestRootCmd(t *testing.T) {
	t.Run("Should print the record once the model completes onboarding", func(t *testing.T) {
		isolate(t)
		t.Setenv("OPENAI_API_KEY", "sk-test")
		fake := &fakeOpenAI{messages: []map[string]any{
			text("Welcome! Please give me all your business details."),
			completion(),
		}}
		srv := httptest.NewServer(fake)
		defer srv.Close()

		stdout, _, err := execute(t, "Acme Cuts, Haircut 30 min 20 USD, Mondays 9-17, a@b.com, yes\n",
			"--base-url", srv.URL)

		require.NoError(t, err)
		assert.Contains(t, stdout, "Assistant: Welcome!")
		assert.Contains(t, stdout, "Onboarding complete")
		start := strings.Index(stdout, "{")
		require.GreaterOrEqual(t, start, 0)
		assert.JSONEq(t, acmeRecord, stdout[start:])
		assert.Equal(t, 2, fake.requests())

		first := fake.bodies[0]
		assert.Equal(t, "gpt-4o", first["model"])
		msgs := first["messages"].([]any)
		assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
		tools := first["tools"].([]any)
		require.Len(t, tools, 1)
	})

	t.Run("Should exit on the first prompt without a record", func(t *testing.T) {
		isolate(t)
		t.Setenv("OPENAI_API_KEY", "sk-test")
		fake := &fakeOpenAI{messages: []map[string]any{text("What is the name of your business?")}}
		srv := httptest.NewServer(fake)
		defer srv.Close()

		stdout, _, err := execute(t, "exit\n", "--base-url", srv.URL)

		require.NoError(t, err)
		assert.Contains(t, stdout, "Goodbye.")
		assert.NotContains(t, stdout, "Onboarding complete")
		assert.Equal(t, 1, fake.requests())
	})

	t.Run("Should prompt with the configured prompt", func(t *testing.T) {
		isolate(t)
		t.Setenv("OPENAI_API_KEY", "sk-test")
		t.Setenv("ONBOARDING_PROMPT", "Owner> ")
		fake := &fakeOpenAI{messages: []map[string]any{text("What is the name of your business?")}}
		srv := httptest.NewServer(fake)
		defer srv.Close()

		stdout, _, err := execute(t, "exit\n", "--base-url", srv.URL)

		require.NoError(t, err)
		assert.Contains(t, stdout, "Owner> ")
		assert.NotContains(t, stdout, "You: ")
	})

	t.Run("Should fail on the first call when the API key is missing", func(t *testing.T) {
		isolate(t)

		stdout, _, err := execute(t, "")

		require.Error(t, err)
		var cfgErr *unifiedllm.ConfigurationError
		assert.ErrorAs(t, err, &cfgErr)
		assert.False(t, unifiedllm.IsRetryable(err))
		assert.Contains(t, stdout, "Business onboarding")
	})

	t.Run("Should propagate server failures", func(t *testing.T) {
		isolate(t)
		t.Setenv("OPENAI_API_KEY", "sk-test")
		srv := httptest.NewServer(&fakeOpenAI{})
		defer srv.Close()

		_, _, err := execute(t, "", "--base-url", srv.URL)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "completion request failed")
	})

	t.Run("Should reject invalid flag values", func(t *testing.T) {
		isolate(t)

		_, _, err := execute(t, "", "--backend", "bedrock")

		assert.ErrorContains(t, err, "invalid configuration")
	})

	t.Run("Should reject positional arguments", func(t *testing.T) {
		isolate(t)

		_, _, err := execute(t, "", "extra")

		assert.Error(t, err)
	})
}

func TestFlagOverrides(t *testing.T) {
	t.Run("Should only include flags that were set", func(t *testing.T) {
		cmd := RootCmd()
		require.NoError(t, cmd.ParseFlags([]string{"--model", "4o-mini", "--trace", "--max-retries", "2"}))

		overrides, err := flagOverrides(cmd)

		require.NoError(t, err)
		assert.Equal(t, map[string]any{
			"llm.model":       "4o-mini",
			"tracing":         true,
			"llm.max_retries": 2,
		}, overrides)
	})
}

func TestAdapterFactory(t *testing.T) {
	t.Run("Should build the langchaingo adapter for openai", func(t *testing.T) {
		llm := config.Default().LLM
		llm.APIKey = "sk-test"

		adapter, err := adapterFactory(llm)()

		require.NoError(t, err)
		assert.Equal(t, "openai", adapter.Name())
		assert.IsType(t, &unifiedllm.LangchainAdapter{}, adapter)
	})

	t.Run("Should refuse other providers on langchaingo", func(t *testing.T) {
		llm := config.Default().LLM
		llm.Provider = "anthropic"

		_, err := adapterFactory(llm)()

		assert.ErrorContains(t, err, "supports provider openai")
	})
}

func TestSessionConfig(t *testing.T) {
	t.Run("Should resolve the default model for the configured provider", func(t *testing.T) {
		cfg := config.Default()
		cfg.LLM.Backend = config.BackendGollm
		cfg.LLM.Provider = "anthropic"

		sc := sessionConfig(cfg)

		assert.Equal(t, "anthropic", sc.Provider)
		assert.Equal(t, "claude-3-5-sonnet-latest", sc.Model)
	})

	t.Run("Should resolve model aliases", func(t *testing.T) {
		cfg := config.Default()
		cfg.LLM.Model = "4o-mini"

		sc := sessionConfig(cfg)

		assert.Equal(t, "gpt-4o-mini", sc.Model)
		assert.Equal(t, cfg.Session.ExitSentinel, sc.ExitSentinel)
		assert.Equal(t, cfg.Session.MaxToolRounds, sc.MaxToolRounds)
	})
}

func TestNewClient(t *testing.T) {
	t.Run("Should trace requests when tracing is enabled", func(t *testing.T) {
		cfg := config.Default()
		cfg.Tracing = true
		cfg.LLM.APIKey = "sk-test"
		var logs bytes.Buffer
		log := charmlog.NewWithOptions(&logs, charmlog.Options{Level: charmlog.DebugLevel})

		client := newClient(cfg, log)
		_, err := client.Complete(context.Background(), unifiedllm.Request{
			Messages: []unifiedllm.Message{unifiedllm.UserMessage("hi")},
			Provider: "missing",
		})

		require.Error(t, err)
		assert.Empty(t, logs.String(), "unregistered providers fail before middleware")

		cfg.LLM.APIKey = ""
		t.Setenv("OPENAI_API_KEY", "")
		client = newClient(cfg, log)
		_, err = client.Complete(context.Background(), unifiedllm.Request{
			Messages: []unifiedllm.Message{unifiedllm.UserMessage("hi")},
		})
		require.Error(t, err)
		assert.Contains(t, logs.String(), "llm request")
		assert.Contains(t, logs.String(), "llm error")
	})
}
