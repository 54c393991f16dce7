// Package cli wires configuration, logging, the completion client and the
// conversation into the onboard command.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atmosuwiryo/onboarding-chatbot/config"
	"github.com/atmosuwiryo/onboarding-chatbot/console"
	"github.com/atmosuwiryo/onboarding-chatbot/conversation"
	"github.com/atmosuwiryo/onboarding-chatbot/logger"
	"github.com/atmosuwiryo/onboarding-chatbot/unifiedllm"
)

// flagPaths maps flag names to the config paths they override.
var flagPaths = map[string]string{
	"backend":     "llm.backend",
	"provider":    "llm.provider",
	"model":       "llm.model",
	"base-url":    "llm.base_url",
	"max-retries": "llm.max_retries",
	"log-level":   "log.level",
	"log-json":    "log.json",
	"debug":       "debug",
	"trace":       "tracing",
}

func RootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "onboard",
		Short:         "Onboard a business through a guided chat",
		Long:          "Walks a business owner through the onboarding questionnaire and prints the collected record as JSON.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			overrides, err := flagOverrides(cmd)
			if err != nil {
				return err
			}
			cfg, err := config.Load(cmd.Context(), config.LoadOptions{EnvFile: envFile, Overrides: overrides})
			if err != nil {
				return err
			}
			return run(cmd, cfg)
		},
	}

	flags := root.Flags()
	flags.StringVar(&envFile, "env-file", "", "path to a .env file (default \".env\" when present)")
	flags.String("backend", config.BackendLangchain, "completion backend: langchaingo or gollm")
	flags.String("provider", "openai", "LLM provider")
	flags.String("model", "", "model name or alias")
	flags.String("base-url", "", "override the provider base URL")
	flags.Int("max-retries", 0, "retries for transient completion failures")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.Bool("log-json", false, "write logs as JSON")
	flags.Bool("debug", false, "enable debug logging")
	flags.Bool("trace", false, "log every completion request and response")

	root.AddCommand(modelsCmd())
	return root
}

// flagOverrides collects the flags the user set explicitly.
func flagOverrides(cmd *cobra.Command) (map[string]any, error) {
	overrides := make(map[string]any)
	for name, path := range flagPaths {
		flag := cmd.Flags().Lookup(name)
		if flag == nil || !flag.Changed {
			continue
		}
		var (
			value any
			err   error
		)
		switch flag.Value.Type() {
		case "bool":
			value, err = cmd.Flags().GetBool(name)
		case "int":
			value, err = cmd.Flags().GetInt(name)
		default:
			value, err = cmd.Flags().GetString(name)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get %s flag: %w", name, err)
		}
		overrides[path] = value
	}
	return overrides, nil
}

// sessionConfig maps the loaded configuration onto the session. An unset
// model resolves to the provider's catalog default.
func sessionConfig(cfg *config.Config) conversation.Config {
	return conversation.Config{
		Provider:      cfg.LLM.Provider,
		Model:         unifiedllm.ResolveModel(cfg.LLM.Provider, cfg.LLM.Model),
		Temperature:   cfg.LLM.Temperature,
		MaxTokens:     cfg.LLM.MaxTokens,
		ExitSentinel:  cfg.Session.ExitSentinel,
		MaxToolRounds: cfg.Session.MaxToolRounds,
	}
}

func run(cmd *cobra.Command, cfg *config.Config) error {
	log := logger.NewLogger(&logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel()),
		Output:     cmd.ErrOrStderr(),
		JSON:       cfg.Log.JSON,
		TimeFormat: "15:04:05",
	})
	ctx := logger.ContextWithLogger(cmd.Context(), log)
	sessionCfg := sessionConfig(cfg)
	log.Debug("configuration loaded",
		"backend", cfg.LLM.Backend,
		"provider", cfg.LLM.Provider,
		"model", sessionCfg.Model,
		"api_key", cfg.LLM.MaskedAPIKey(),
		"tracing", cfg.Tracing,
	)

	client := newClient(cfg, log)
	defer client.Close()

	session := conversation.NewSession(client, sessionCfg)

	con := console.New(cmd.InOrStdin(), cmd.OutOrStdout(), console.WithPrompt(cfg.Session.Prompt))
	con.Banner(cfg.Session.ExitSentinel)

	out, err := session.Run(ctx, con)
	usage := session.Usage()
	log.Debug("session finished",
		"thread_id", session.ID(),
		"state", out.State,
		"input_tokens", usage.InputTokens,
		"output_tokens", usage.OutputTokens,
	)
	if err != nil {
		return err
	}

	switch out.State {
	case conversation.StateCompleted:
		return con.PrintRecord(out.Record)
	case conversation.StateExited:
		con.Status("Goodbye.")
	}
	return nil
}
