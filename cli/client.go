package cli

import (
	"fmt"
	"time"

	charmlog "github.com/charmbracelet/log"

	"github.com/atmosuwiryo/onboarding-chatbot/config"
	"github.com/atmosuwiryo/onboarding-chatbot/unifiedllm"
)

// newClient builds a client around a lazily constructed adapter, so missing
// credentials surface on the first completion call.
func newClient(cfg *config.Config, log *charmlog.Logger) *unifiedllm.Client {
	provider := cfg.LLM.Provider
	adapter := unifiedllm.NewLazyAdapter(provider, adapterFactory(cfg.LLM))

	opts := []unifiedllm.ClientOption{
		unifiedllm.WithProvider(provider, adapter),
		unifiedllm.WithDefaultProvider(provider),
	}
	if cfg.Tracing || cfg.Debug {
		opts = append(opts, unifiedllm.WithMiddleware(unifiedllm.TracingMiddleware(log)))
	}
	if cfg.LLM.MaxRetries > 0 {
		policy := unifiedllm.NoRetryPolicy()
		policy.MaxRetries = cfg.LLM.MaxRetries
		policy.OnRetry = func(err error, attempt int, delay time.Duration) {
			log.Warn("retrying completion", "attempt", attempt, "delay", delay, "err", err)
		}
		opts = append(opts, unifiedllm.WithRetryPolicy(policy))
	}
	return unifiedllm.NewClient(opts...)
}

func adapterFactory(llm config.LLMConfig) unifiedllm.AdapterFactory {
	return func() (unifiedllm.ProviderAdapter, error) {
		switch llm.Backend {
		case config.BackendGollm:
			apiKey := ""
			if llm.Provider == "openai" {
				apiKey = llm.APIKey
			}
			return unifiedllm.NewGollmAdapter(unifiedllm.GollmConfig{
				Provider:    llm.Provider,
				APIKey:      apiKey,
				Model:       llm.Model,
				MaxTokens:   llm.MaxTokens,
				Temperature: llm.Temperature,
			})
		case config.BackendLangchain:
			if llm.Provider != "openai" {
				return nil, fmt.Errorf("backend %s supports provider openai, got %s", llm.Backend, llm.Provider)
			}
			return unifiedllm.NewOpenAILangchainAdapter(llm.APIKey, llm.Model, llm.BaseURL)
		default:
			return nil, fmt.Errorf("unknown backend %q", llm.Backend)
		}
	}
}
