package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"

	"github.com/MoonBagDexter/DEX-UTILITY/internal/domain"
	"github.com/MoonBagDexter/DEX-UTILITY/internal/orchestrator"
)

var (
	cyan   = color.New(color.FgCyan, color.Bold).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
)

func errorPrefix() string {
	return color.New(color.FgRed, color.Bold).Sprint("Error:")
}

func printHeader(title string) {
	fmt.Printf("\n%s\n\n", cyan("=== "+title+" ==="))
}

func printRunSummary(s *orchestrator.RunSummary) {
	printHeader("Pipeline Run")
	fmt.Printf("  Run:           %s (%s)\n", s.RunID, s.Entry)
	fmt.Printf("  Duration:      %s\n", s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond))
	fmt.Printf("  Discovered:    %d\n", s.Discovered)
	fmt.Printf("  Already known: %s\n", gray(s.AlreadyKnown))
	fmt.Printf("  Inserted:      %d\n", s.Inserted)
	fmt.Printf("  Auto-deleted:  %s\n", yellow(s.AutoDeleted))
	if s.StatsBatchFailures > 0 {
		fmt.Printf("  Stats batches failed: %s\n", red(s.StatsBatchFailures))
	}
	printDisposition(s.DispositionSummary)
}

func printDisposition(s domain.DispositionSummary) {
	fmt.Printf("  Classified:    %d\n", s.Processed)
	fmt.Printf("  Kept:          %s\n", green(s.Kept))
	fmt.Printf("  Deleted:       %s\n", red(s.Deleted))
	if s.Skipped > 0 {
		fmt.Printf("  Skipped:       %s\n", gray(s.Skipped))
	}
	for _, e := range s.Errors {
		fmt.Printf("  %s %s: %s\n", red("✗"), e.CA, e.Message)
	}
	fmt.Println()
}

func statusColor(status domain.Status) func(a ...interface{}) string {
	switch status {
	case domain.StatusKept:
		return green
	case domain.StatusDeleted:
		return red
	default:
		return yellow
	}
}
