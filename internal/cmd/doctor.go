package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Gunoch/anonimatizacao/internal/doctor"
)

var (
	doctorOffline bool
	doctorJSON    bool
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run preflight checks (config, patterns, mapping DB, NER, validator)",
	Long: `Verifies the data directory is writable, pattern and stop-term files
compile, the mapping database opens, and the NER sidecar and validator
endpoints are reachable. Unreachable endpoints are warnings: the pipeline
still runs in degraded, pattern-only mode.`,
	RunE: runDoctor,
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorOffline, "offline", false, "skip NER and validator connectivity checks")
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "print the full report as JSON")
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx, span := tracer.Start(cmd.Context(), "doctor")
	defer span.End()

	report := doctor.Run(ctx, doctor.Options{SkipUpstream: doctorOffline})
	out := cmd.OutOrStdout()

	if doctorJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
	} else {
		for _, c := range report.Checks {
			mark := "✓"
			if c.Status == "warn" {
				mark = "!"
			} else if c.Status == "fail" {
				mark = "✗"
			}
			fmt.Fprintf(out, "%s %s: %s\n", mark, c.Name, c.Message)
			if c.Fix != "" && c.Status != "pass" {
				fmt.Fprintf(out, "  fix: %s\n", c.Fix)
			}
		}
		fmt.Fprintf(out, "\n%d passed, %d warnings, %d failed\n",
			report.Summary.Pass, report.Summary.Warn, report.Summary.Fail)
	}

	if report.Status == "fail" {
		return fmt.Errorf("doctor found failing checks")
	}
	return nil
}
