package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Gunoch/anonimatizacao/internal/anonymize"
	"github.com/Gunoch/anonimatizacao/internal/config"
	"github.com/Gunoch/anonimatizacao/internal/detect"
	"github.com/Gunoch/anonimatizacao/internal/extract"
	"github.com/Gunoch/anonimatizacao/internal/mapping"
	"github.com/Gunoch/anonimatizacao/internal/pipeline"
)

var (
	runMode      string
	runSessionID string
	runOutDir    string
	runNoNER     bool
)

var runCmd = &cobra.Command{
	Use:   "run [files...]",
	Short: "Anonymize documents",
	Long: `Anonymize one or more documents, writing each result next to its
input with an .anon suffix (or into --out-dir). All documents share one
session, so repeated PII maps to the same synthetic value everywhere.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnonymize,
}

func init() {
	runCmd.Flags().StringVar(&runMode, "mode", "", "substitution mode: REALISTIC or PLACEHOLDER (default from config)")
	runCmd.Flags().StringVar(&runSessionID, "session", "", "resume an existing session instead of starting a new one")
	runCmd.Flags().StringVar(&runOutDir, "out-dir", "", "directory for anonymized output (default: next to each input)")
	runCmd.Flags().BoolVar(&runNoNER, "no-ner", false, "skip the NER model, pattern detection only")
	rootCmd.AddCommand(runCmd)
}

func runAnonymize(cmd *cobra.Command, args []string) error {
	ctx, span := tracer.Start(cmd.Context(), "run")
	defer span.End()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if runMode != "" {
		mode, ok := mapping.ParseMode(runMode)
		if !ok {
			return fmt.Errorf("invalid configuration: mode must be REALISTIC or PLACEHOLDER, got %q", runMode)
		}
		cfg.Mode = mode
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	store, err := mapping.NewStore(cfg.MappingDBPath())
	if err != nil {
		return err
	}
	defer store.Close()

	var session *pipeline.Session
	if runSessionID != "" {
		session, err = pipeline.ResumeSession(ctx, store, runSessionID)
		if err != nil {
			return err
		}
	} else {
		session = pipeline.NewSession(store, cfg.Mode)
	}

	p, err := buildPipeline(cfg, session.Table().Mode(), !runNoNER)
	if err != nil {
		return err
	}

	extractor := extract.NewExtractor(cfg.MaxDocumentMB)
	documents := make([]string, len(args))
	for i, path := range args {
		text, err := extractor.Extract(ctx, path)
		if err != nil {
			return fmt.Errorf("extracting %s: %w", path, err)
		}
		documents[i] = text
	}

	results := p.RunBatch(ctx, session, documents, cfg.Workers)

	failed := 0
	for i, r := range results {
		if r.Err != nil {
			failed++
			log.Error().Str("file", args[i]).Err(r.Err).Msg("document failed")
			continue
		}
		if r.Result.Degraded {
			log.Warn().Str("file", args[i]).Msg("anonymized in degraded, pattern-only mode")
		}
		outPath := outputPath(args[i], runOutDir)
		if err := os.WriteFile(outPath, []byte(r.Result.Text), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", outPath, err)
		}
		log.Info().Str("file", args[i]).Str("output", outPath).
			Int("substitutions", len(r.Result.Spans)).
			Str("by_category", categorySummary(r.Result.Spans)).
			Int("length_delta", len(r.Result.Text)-len(documents[i])).
			Msg("document anonymized")
	}

	if err := session.Save(ctx); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Session: %s\n", session.ID())
	fmt.Fprintf(cmd.OutOrStdout(), "Documents: %d ok, %d failed\n", len(results)-failed, failed)
	fmt.Fprintf(cmd.OutOrStdout(), "Mapping entries: %d\n", session.Table().Len())

	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(results))
	}
	return nil
}

// buildPipeline assembles detection and substitution stages from config.
func buildPipeline(cfg *config.Config, mode mapping.Mode, withNER bool) (*pipeline.Pipeline, error) {
	scannerOpts := []detect.ScannerOption{detect.WithMinScore(cfg.MinScore)}
	if cfg.PatternFile != "" {
		scannerOpts = append(scannerOpts, detect.WithPatternFile(cfg.PatternFile))
	}
	scanner, err := detect.NewScanner(scannerOpts...)
	if err != nil {
		return nil, err
	}

	stopTerms, err := loadStopTerms(cfg)
	if err != nil {
		return nil, err
	}

	var ner pipeline.NERDetector
	if withNER {
		ner = detect.NewNERClient(cfg.NERBaseURL)
	}

	engine := anonymize.NewEngine(anonymize.NewGenerator(mode, cfg.Seed))
	return pipeline.New(scanner, ner, detect.NewResolver(stopTerms), engine), nil
}

func loadStopTerms(cfg *config.Config) (detect.StopTerms, error) {
	if cfg.StopTermsFile != "" {
		return detect.LoadStopTerms(cfg.StopTermsFile)
	}
	return detect.DefaultStopTerms()
}

func categorySummary(spans detect.ResolvedSpanSet) string {
	counts := make(map[detect.Category]int)
	for _, sp := range spans {
		counts[sp.Category]++
	}
	parts := make([]string, 0, len(counts))
	for _, cat := range detect.Categories {
		if n := counts[cat]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", cat, n))
		}
	}
	return strings.Join(parts, " ")
}

func outputPath(inputPath, outDir string) string {
	base := filepath.Base(inputPath)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext) + ".anon" + normalizeExt(ext)
	if outDir != "" {
		return filepath.Join(outDir, name)
	}
	return filepath.Join(filepath.Dir(inputPath), name)
}

// normalizeExt keeps text-like extensions and maps everything else (pdf,
// html) to .txt, since the output is always plain text.
func normalizeExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".txt", ".md", ".csv":
		return ext
	default:
		return ".txt"
	}
}
