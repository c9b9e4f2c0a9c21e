package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/matheuskafuri/newsdesk/internal/cache"
	"github.com/matheuskafuri/newsdesk/internal/config"
	"github.com/matheuskafuri/newsdesk/internal/pager"
	"github.com/spf13/cobra"
)

var (
	flagPage int
	flagJSON bool
)

var headlinesCmd = &cobra.Command{
	Use:   "headlines",
	Short: "Print one page of breaking headlines",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagPage < 1 {
			return fmt.Errorf("--page must be at least 1")
		}
		s, err := open(false)
		if err != nil {
			return err
		}
		defer s.close()

		p, err := s.src.TopHeadlines(cmd.Context(), s.cfg.Country, s.cfg.Category, flagPage)
		if err != nil {
			return fmt.Errorf("fetching headlines: %s", pager.Message(err))
		}
		if !flagJSON {
			fmt.Printf("%s · %s · page %d\n\n", strings.ToUpper(s.cfg.Country), config.CategoryLabel(s.cfg.Category), flagPage)
		}
		return printPage(os.Stdout, p, flagJSON)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search all news for a query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.TrimSpace(strings.Join(args, " "))
		if query == "" {
			return pager.ErrEmptyQuery
		}
		if flagPage < 1 {
			return fmt.Errorf("--page must be at least 1")
		}

		s, err := open(false)
		if err != nil {
			return err
		}
		defer s.close()

		p, err := s.src.Search(cmd.Context(), query, flagPage)
		if err != nil {
			return fmt.Errorf("searching: %s", pager.Message(err))
		}
		return printPage(os.Stdout, p, flagJSON)
	},
}

func init() {
	for _, c := range []*cobra.Command{headlinesCmd, searchCmd} {
		c.Flags().IntVarP(&flagPage, "page", "p", 1, "page number, starting at 1")
		c.Flags().BoolVar(&flagJSON, "json", false, "print JSON instead of text")
	}
}

func printPage(w io.Writer, p *cache.Page, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	}
	if p.Stale {
		fmt.Fprintln(w, "(offline: showing cached results)")
	}
	if len(p.Articles) == 0 {
		fmt.Fprintln(w, "No articles found.")
		return nil
	}
	printArticles(w, p.Articles)
	fmt.Fprintf(w, "\n%d of %d results\n", len(p.Articles), p.TotalResults)
	return nil
}

func printArticles(w io.Writer, articles []cache.Article) {
	for i, a := range articles {
		fmt.Fprintf(w, "%2d. %s\n", i+1, a.Title)
		meta := a.Source
		if !a.Published.IsZero() {
			meta += " · " + a.Published.Local().Format(time.DateTime)
		}
		fmt.Fprintf(w, "    %s\n    %s\n", meta, a.URL)
	}
}
