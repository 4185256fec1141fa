// Command scout discovers new tokens, classifies them and keeps the utility ones.
//
// Subcommands:
//
//	serve          HTTP API, job queue and the ticker-driven pipeline
//	run            one pipeline run
//	analyze        classify tokens still in status new
//	classify <ca>  classify one stored token with the detailed prompt
//	refresh-stats  re-fetch market stats for stored tokens
//	export         write the kept-token export
//	migrate        apply database migrations
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MoonBagDexter/DEX-UTILITY/internal/config"
)

var (
	configPath string
	logLevel   string
	useMemory  bool
)

var rootCmd = &cobra.Command{
	Use:           "scout",
	Short:         "Discover, classify and curate newly listed Solana tokens",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Optional YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override LOG_LEVEL")
	rootCmd.PersistentFlags().BoolVar(&useMemory, "use-memory", false, "Use in-memory storage instead of PostgreSQL")
}

// loadConfig applies flag overrides on top of file and environment settings.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if useMemory {
		if err := os.Setenv("USE_MEMORY", "true"); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorPrefix(), err)
		os.Exit(1)
	}
}
