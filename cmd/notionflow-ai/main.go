// Package main provides the notionflow-ai entry point.
package main

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/thebtf/notionflow-ai/internal/config"
)

// Version is set at build time via ldflags.
var Version = "dev"

var (
	debug bool
	cfg   *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "notionflow-ai",
	Short: "AI worker for NotionFlow pages",
	Long: `notionflow-ai analyzes pages for the NotionFlow web application: tags,
summaries, note types, extracted entities and todos, topic clusters,
project suggestions and periodic change reports.

Example usage:
  notionflow-ai serve                       # Run the worker
  notionflow-ai cluster -i embeddings.json  # Cluster a batch offline
  notionflow-ai classify "회의록: 안건 논의"   # Classify a note`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.EnsureAll(); err != nil {
			log.Warn().Err(err).Msg("Failed to ensure data directory")
		}

		cfg = config.Load()

		setupLogging(cfg.LogLevel)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true})
}

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if debug {
		lvl = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
