package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/atmosuwiryo/onboarding-chatbot/unifiedllm"
)

func modelsCmd() *cobra.Command {
	var provider string
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the known tool-capable models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			models := unifiedllm.ListModels(provider)
			if len(models) == 0 {
				return fmt.Errorf("no known models for provider %q", provider)
			}
			_, err := fmt.Fprint(cmd.OutOrStdout(), renderModels(models))
			return err
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "only list models for this provider")
	return cmd
}

func renderModels(models []unifiedllm.ModelInfo) string {
	id := lipgloss.NewStyle().Width(28)
	prov := lipgloss.NewStyle().Width(11)
	ctx := lipgloss.NewStyle().Width(9).Align(lipgloss.Right).MarginRight(2)

	var b strings.Builder
	b.WriteString(id.Render("MODEL") + prov.Render("PROVIDER") + ctx.Render("CONTEXT") + "ALIASES\n")
	for _, m := range models {
		b.WriteString(id.Render(m.ID))
		b.WriteString(prov.Render(m.Provider))
		b.WriteString(ctx.Render(fmt.Sprintf("%d", m.ContextWindow)))
		b.WriteString(strings.Join(m.Aliases, ", "))
		b.WriteString("\n")
	}
	return b.String()
}
