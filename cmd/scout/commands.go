package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MoonBagDexter/DEX-UTILITY/internal/domain"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/orchestrator"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/reporting"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline once: discover, enrich, filter, classify, dispose",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		app, err := newApplication(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		summary, err := app.svc.Run(cmd.Context(), orchestrator.EntryManual)
		if summary != nil {
			printRunSummary(summary)
		}
		return err
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Classify tokens still in status new",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		sequential, _ := cmd.Flags().GetBool("sequential")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		app, err := newApplication(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		summary, err := app.svc.AnalyzePending(cmd.Context(), limit, sequential)
		if err != nil {
			return err
		}
		printHeader("Pending Sweep")
		if summary.Processed == 0 {
			fmt.Printf("  %s\n\n", gray("No new tokens to analyze"))
			return nil
		}
		printDisposition(summary)
		return nil
	},
}

var classifyCmd = &cobra.Command{
	Use:   "classify <ca>",
	Short: "Classify one stored token with the detailed prompt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		app, err := newApplication(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		res, err := app.svc.ClassifyOne(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		printHeader("Classification")
		a := res.Analysis
		fmt.Printf("  CA:             %s\n", res.CA)
		fmt.Printf("  Classification: %s (confidence %d)\n", cyan(a.Classification), a.Confidence)
		if a.UtilityScore != nil {
			fmt.Printf("  Utility score:  %d\n", *a.UtilityScore)
		}
		fmt.Printf("  Reasoning:      %s\n", a.Reasoning)
		for _, f := range a.RedFlags {
			fmt.Printf("  %s %s\n", yellow("⚠"), f)
		}
		fmt.Printf("  Outcome:        %s\n\n", res.Outcome)
		return nil
	},
}

var refreshStatsCmd = &cobra.Command{
	Use:   "refresh-stats",
	Short: "Re-fetch market stats for stored tokens",
	RunE: func(cmd *cobra.Command, args []string) error {
		ca, _ := cmd.Flags().GetString("ca")
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		req := orchestrator.RefreshRequest{Limit: limit}
		if ca != "" {
			req.CAs = []string{ca}
		}
		if status != "" && status != "all" {
			st := domain.Status(status)
			if !st.IsValid() {
				return fmt.Errorf("invalid status %q: must be one of new, kept, deleted, all", status)
			}
			req.Status = &st
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		app, err := newApplication(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		summary, err := app.svc.RefreshStats(cmd.Context(), req)
		if err != nil {
			return err
		}
		printHeader("Stats Refresh")
		fmt.Printf("  Requested: %d\n", summary.Requested)
		fmt.Printf("  Updated:   %s\n", green(summary.Updated))
		fmt.Printf("  No data:   %s\n", gray(summary.NoData))
		if summary.BatchFailures > 0 {
			fmt.Printf("  Failed batches: %s\n", red(summary.BatchFailures))
		}
		for _, e := range summary.Errors {
			fmt.Printf("  %s %s: %s\n", red("✗"), e.CA, e.Message)
		}
		fmt.Println()
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the token export for a status (kept by default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetString("status")
		query, _ := cmd.Flags().GetString("query")
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		app, err := newApplication(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		export, err := reporting.NewGenerator(app.store).Generate(cmd.Context(), domain.Status(status), query)
		if err != nil {
			return err
		}
		if len(export.Tokens) == 0 {
			fmt.Printf("%s\n", yellow("No tokens to export"))
			return nil
		}

		var body string
		switch format {
		case "csv":
			if body, err = reporting.RenderCSV(export); err != nil {
				return err
			}
		case "text":
			body = reporting.RenderText(export)
		default:
			return fmt.Errorf("unknown format %q: must be text or csv", format)
		}

		if output == "" {
			output = reporting.Filename(export.Status, export.GeneratedAt)
			if format == "csv" {
				output = strings.TrimSuffix(output, ".txt") + ".csv"
			}
		}
		if output == "-" {
			fmt.Print(body)
			return nil
		}
		if err := os.WriteFile(output, []byte(body), 0o644); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		fmt.Printf("Exported %s coins to %s\n", statusColor(export.Status)(len(export.Tokens)), output)
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply PostgreSQL and ClickHouse migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Storage.UseMemory {
			return fmt.Errorf("migrate needs POSTGRES_DSN; in-memory storage has no schema")
		}
		// Opening the stores applies every embedded migration.
		app, err := newApplication(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		app.Close()

		fmt.Printf("%s postgres\n", green("✓"))
		if cfg.Storage.ClickHouseDSN != "" {
			fmt.Printf("%s clickhouse\n", green("✓"))
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().Int("limit", orchestrator.DefaultPendingLimit, "Maximum tokens to classify")
	analyzeCmd.Flags().Bool("sequential", false, "Classify one token at a time")

	refreshStatsCmd.Flags().String("ca", "", "Refresh a single contract address")
	refreshStatsCmd.Flags().String("status", "", "Only refresh tokens with this status (new, kept, deleted, all)")
	refreshStatsCmd.Flags().Int("limit", orchestrator.DefaultRefreshLimit, "Maximum tokens to refresh")

	exportCmd.Flags().String("status", string(domain.StatusKept), "Status to export")
	exportCmd.Flags().String("query", "", "Only tokens whose name, ticker or ca contains this text")
	exportCmd.Flags().String("format", "text", "Output format: text or csv")
	exportCmd.Flags().StringP("output", "o", "", "Output file; - writes to stdout")

	rootCmd.AddCommand(runCmd, analyzeCmd, classifyCmd, refreshStatsCmd, exportCmd, migrateCmd)
}
