package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/matheuskafuri/newsdesk/internal/cache"
	"github.com/matheuskafuri/newsdesk/internal/config"
	"github.com/spf13/cobra"
)

var (
	flagSavedSearch string
	flagSavedSource string
	flagSavedLimit  int
	flagSavedTitle  string
)

var savedCmd = &cobra.Command{
	Use:   "saved",
	Short: "Manage saved articles",
}

var savedListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved articles, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := cache.Open(config.CachePath())
		if err != nil {
			return fmt.Errorf("opening cache: %w", err)
		}
		defer db.Close()

		articles, err := db.SavedArticles(cache.QueryOpts{
			Search: flagSavedSearch,
			Source: flagSavedSource,
			Limit:  flagSavedLimit,
		})
		if err != nil {
			return fmt.Errorf("reading saved articles: %w", err)
		}

		if flagJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(articles)
		}
		if len(articles) == 0 {
			fmt.Println("Nothing saved yet.")
			return nil
		}
		printArticles(os.Stdout, articles)
		return nil
	},
}

var savedAddCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Save an article by URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := cache.Open(config.CachePath())
		if err != nil {
			return fmt.Errorf("opening cache: %w", err)
		}
		defer db.Close()

		title := flagSavedTitle
		if title == "" {
			title = args[0]
		}
		if err := db.SaveArticle(cache.Article{URL: args[0], Title: title, Source: flagSavedSource}); err != nil {
			return err
		}
		fmt.Printf("Saved %s\n", args[0])
		return nil
	},
}

var savedRmCmd = &cobra.Command{
	Use:   "rm <url>",
	Short: "Remove a saved article",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := cache.Open(config.CachePath())
		if err != nil {
			return fmt.Errorf("opening cache: %w", err)
		}
		defer db.Close()

		a, err := db.DeleteArticle(args[0])
		if errors.Is(err, cache.ErrNotFound) {
			return fmt.Errorf("%s is not saved", args[0])
		}
		if err != nil {
			return err
		}
		fmt.Printf("Removed %q\n", a.Title)
		return nil
	},
}

func init() {
	savedListCmd.Flags().StringVarP(&flagSavedSearch, "search", "s", "", "only articles whose title or description contains this text")
	savedListCmd.Flags().StringVar(&flagSavedSource, "source", "", "only articles from this source")
	savedListCmd.Flags().IntVarP(&flagSavedLimit, "limit", "n", 0, "maximum number of articles (default 500)")
	savedListCmd.Flags().BoolVar(&flagJSON, "json", false, "print JSON instead of text")

	savedAddCmd.Flags().StringVarP(&flagSavedTitle, "title", "t", "", "article title (defaults to the URL)")
	savedAddCmd.Flags().StringVar(&flagSavedSource, "source", "", "source name")

	savedCmd.AddCommand(savedListCmd, savedAddCmd, savedRmCmd)
}
