package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/notexe/mediconnect/internal/api"
	"github.com/notexe/mediconnect/internal/config"
	"github.com/notexe/mediconnect/internal/consult"
	"github.com/notexe/mediconnect/internal/ui"
)

func newAskCmd(opts *rootOptions) *cobra.Command {
	var (
		provider string
		model    string
		quiet    bool
	)

	cmd := &cobra.Command{
		Use:   "ask <question...>",
		Short: "Ask the health assistant one question",
		Long:  "Send one question through the same system prompt and provider as the consult proxy and print the reply.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer a.log.Sync()

			if provider != "" {
				a.cfg.Provider = provider
				if err := a.cfg.Validate(); err != nil {
					return fmt.Errorf("invalid configuration: %w", err)
				}
				a.formatter = ui.NewFormatter(!opts.noColor && os.Getenv("NO_COLOR") == "", provider)
			}
			if model != "" {
				a.cfg.Model.Name = model
			}

			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				return errors.New("query is required")
			}

			apiKey := a.cfg.LookupCredential(os.LookupEnv)
			if apiKey == "" && config.RequiresCredential(a.cfg.Provider) {
				return fmt.Errorf("missing %s API key: set %s",
					api.DisplayName(a.cfg.Provider), config.CredentialCandidates(a.cfg.Provider)[0])
			}

			p, err := api.NewProvider(a.cfg.GetProviderConfig(apiKey))
			if err != nil {
				return fmt.Errorf("error creating provider: %w", err)
			}
			defer p.Close()

			ctx, stop := commandContext(cmd)
			defer stop()

			out := cmd.OutOrStdout()
			spinner := ui.NewSpinner(cmd.ErrOrStderr(), !opts.noColor)
			if !quiet {
				spinner.Start("Consulting " + api.DisplayName(a.cfg.Provider) + "...")
			}

			start := time.Now()
			answer, err := consult.AskWithUsage(ctx, p, a.cfg.Model, query)
			spinner.Stop()
			if err != nil {
				a.log.Debug("consult failed", zap.Error(err))
				return err
			}

			fmt.Fprintln(out, a.formatter.FormatReply(answer.Reply))
			if !quiet {
				fmt.Fprintln(out, a.formatter.FormatUsage(answer.Usage, a.cfg.Model.Name, time.Since(start)))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Provider to use (groq, deepseek, ollama)")
	cmd.Flags().StringVar(&model, "model", "", "Model name (overrides config)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Print only the reply")
	return cmd
}
