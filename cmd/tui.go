package cmd

import (
	"github.com/matheuskafuri/newsdesk/internal/tui"
	"github.com/spf13/cobra"
)

func runTUI(cmd *cobra.Command, args []string) error {
	s, err := open(true)
	if err != nil {
		return err
	}
	defer s.close()

	// Auto-prune old responses on launch
	if n, err := s.db.Prune(s.cfg.RetentionDuration()); err != nil {
		s.logger.Warn("pruning response cache", "error", err)
	} else if n > 0 {
		s.logger.Info("pruned response cache", "deleted", n)
	}

	s.logger.Info("starting tui", "provider", s.cfg.Provider, "country", s.cfg.Country, "category", s.cfg.Category)
	return tui.Run(tui.RunOpts{
		Cfg:      s.cfg,
		Store:    s.db,
		Source:   s.src,
		Logger:   s.logger,
		Country:  flagCountry,
		Category: flagCategory,
	})
}
