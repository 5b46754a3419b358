package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Gunoch/anonimatizacao/internal/config"
	"github.com/Gunoch/anonimatizacao/internal/mapping"
)

var revertOut string

var revertCmd = &cobra.Command{
	Use:   "revert <session-id> [files...]",
	Short: "Restore original PII in anonymized documents",
	Long: `Reverse a previous anonymization using the saved mapping table of the
given session. Synthetic values not found in the table are reported but
do not fail the operation.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runRevert,
}

func init() {
	revertCmd.Flags().StringVar(&revertOut, "out-dir", "", "directory for restored output (default: next to each input)")
	rootCmd.AddCommand(revertCmd)
}

func runRevert(cmd *cobra.Command, args []string) error {
	ctx, span := tracer.Start(cmd.Context(), "revert")
	defer span.End()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	store, err := mapping.NewStore(cfg.MappingDBPath())
	if err != nil {
		return err
	}
	defer store.Close()

	table, err := store.Load(ctx, args[0])
	if err != nil {
		return err
	}

	totalMismatches := 0
	for _, path := range args[1:] {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		result := table.Reverse(ctx, string(data))

		outPath := revertOutputPath(path, revertOut)
		if err := os.WriteFile(outPath, []byte(result.Text), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", outPath, err)
		}

		for _, m := range result.Mismatches {
			log.Warn().Str("file", path).Str("token", m.Token).
				Int("offset", m.Offset).Msg("unresolved token")
		}
		totalMismatches += len(result.Mismatches)
		log.Info().Str("file", path).Str("output", outPath).
			Int("replaced", result.Replaced).Msg("document restored")
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Session: %s\n", args[0])
	fmt.Fprintf(cmd.OutOrStdout(), "Documents restored: %d\n", len(args)-1)
	if totalMismatches > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Unresolved tokens: %d (see warnings)\n", totalMismatches)
	}
	return nil
}

func revertOutputPath(inputPath, outDir string) string {
	base := filepath.Base(inputPath)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	name = strings.TrimSuffix(name, ".anon") + ".restored" + ext
	if outDir != "" {
		return filepath.Join(outDir, name)
	}
	return filepath.Join(filepath.Dir(inputPath), name)
}
