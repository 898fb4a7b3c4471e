package main

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"
)

func hintsCMD(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "hints <origin> <goal...>",
		Short: "Print goal-relevant paths discovered on a site",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			a, err := buildApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := withTimeout(cmd.Context(), cfg.SiteHints.RobotsTimeout+cfg.SiteHints.SitemapTimeout+cfg.SiteHints.CrawlTimeout)
			defer cancel()
			res, err := a.hints.Hints(ctx, args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
}
