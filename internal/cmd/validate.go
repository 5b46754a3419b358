package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Gunoch/anonimatizacao/internal/config"
	"github.com/Gunoch/anonimatizacao/internal/detect"
	"github.com/Gunoch/anonimatizacao/internal/llm"
	"github.com/Gunoch/anonimatizacao/internal/validate"
)

var validateJSON bool

var validateCmd = &cobra.Command{
	Use:   "validate [files...]",
	Short: "Check anonymized documents for residual PII",
	Long: `Run the pattern sweep and the LLM reviewer over already-anonymized
documents. Findings are advisory: the command reports risk but never
modifies the input.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "print the full report as JSON")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx, span := tracer.Start(cmd.Context(), "validate")
	defer span.End()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	validator, err := buildValidator(cfg)
	if err != nil {
		return err
	}

	worst := validate.RiskLow
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		report, err := validator.Validate(ctx, string(data))
		if err != nil {
			return fmt.Errorf("validating %s: %w", path, err)
		}

		if validateJSON {
			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
		} else {
			printReport(cmd, path, report)
		}

		if riskRank(report.Risk) > riskRank(worst) {
			worst = report.Risk
		}
	}

	if worst == validate.RiskHigh {
		return fmt.Errorf("critical findings detected")
	}
	return nil
}

func printReport(cmd *cobra.Command, path string, report *validate.Report) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s: risk %s, %d findings, coverage %.0f%%\n",
		path, report.Risk, len(report.Findings), report.Coverage*100)
	for _, f := range report.Findings {
		fmt.Fprintf(cmd.OutOrStdout(), "  [%s] %q at offset %d (%s)\n",
			f.Severity, f.Value, f.Offset, f.Source)
	}
	for _, w := range report.Warnings {
		log.Warn().Str("file", path).Msg(w)
	}
}

// buildValidator wires the configured LLM provider into a Validator. The
// "none" provider still runs the pattern sweep.
func buildValidator(cfg *config.Config) (*validate.Validator, error) {
	scanner, err := detect.NewScanner(detect.WithMinScore(cfg.MinScore))
	if err != nil {
		return nil, err
	}

	var provider llm.Provider
	switch cfg.ValidatorProvider {
	case "openai":
		provider = llm.NewOpenAIProviderWithBaseURL(cfg.ValidatorAPIKey, cfg.ValidatorBaseURL)
	case "ollama":
		provider = llm.NewOllamaProvider(cfg.ValidatorBaseURL)
	case "none":
		provider = nil
	default:
		return nil, fmt.Errorf("invalid configuration: unknown validator provider %q", cfg.ValidatorProvider)
	}

	return validate.NewValidator(provider, cfg.ValidatorModel, scanner,
		validate.WithRateLimit(cfg.ValidatorRPS, 1)), nil
}

func riskRank(r validate.Risk) int {
	switch r {
	case validate.RiskHigh:
		return 2
	case validate.RiskMedium:
		return 1
	default:
		return 0
	}
}
