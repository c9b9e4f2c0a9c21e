package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/matheuskafuri/newsdesk/internal/update"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	flagConfig   string
	flagCountry  string
	flagCategory string
	flagCheck    bool
)

var rootCmd = &cobra.Command{
	Use:   "newsdesk",
	Short: "Terminal news reader",
	Long:  "newsdesk shows breaking headlines by country and category, searches the news, and keeps a list of saved articles.",
	RunE:  runTUI,
	// Errors are printed by Execute; usage only helps for flag mistakes.
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&flagCountry, "country", "", "two-letter country code for headlines (e.g., us, gb)")
	rootCmd.PersistentFlags().StringVar(&flagCategory, "category", "", "headline category (business, entertainment, general, health, science, sports, technology)")

	versionCmd.Flags().BoolVar(&flagCheck, "check", false, "check GitHub for a newer release")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(headlinesCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(savedCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(statsCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("newsdesk %s (commit: %s, built: %s)\n", version, commit, date)
		if !flagCheck {
			return
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		checker := update.NewChecker(update.Options{Logger: logger})
		rel, newer, err := checker.Newer(cmd.Context(), version)
		switch {
		case errors.Is(err, update.ErrDevBuild):
			fmt.Println("Development build; skipping update check.")
		case err != nil:
			logger.Warn("update check failed", "error", err)
		case newer:
			fmt.Printf("Update available: v%s (%s)\n", rel.Version, rel.URL)
		default:
			fmt.Println("You are on the latest version.")
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}
