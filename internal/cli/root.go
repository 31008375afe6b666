// Package cli implements the kiroku command tree. Commands are thin: they
// parse flags, call into the service layer through the root App, and print
// results.
package cli

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ashita-ai/kiroku"
	"github.com/ashita-ai/kiroku/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "kiroku",
	Short: "Personal decision journal",
	Long: "Kiroku records decisions with predicted outcomes, schedules reviews, " +
		"and measures how well confidence tracks reality.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(categoriesCmd)
	rootCmd.AddCommand(calendarCmd)
}

// newApp loads configuration, builds the logger, and wires the application.
// Callers must Close.
func newApp() (*kiroku.App, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return kiroku.New(
		kiroku.WithConfig(cfg),
		kiroku.WithLogger(newLogger(cfg)),
	)
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
