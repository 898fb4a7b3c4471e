package main

import (
	"github.com/spf13/cobra"

	srv "github.com/AcceptableTrouble/button-buddy/internal/server"
)

func serveCMD(load configLoader) *cobra.Command {
	var addr string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Address = addr
			}
			a, err := buildApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			deps := srv.Deps{
				Resolver:    a.resolver,
				Hints:       a.hints,
				Sessions:    a.sessions,
				Metrics:     a.metrics,
				MetricsPath: cfg.Telemetry.MetricsPath,
			}
			return srv.New(cfg.Server, deps).Run(cmd.Context())
		},
	}
	serve.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.address)")
	return serve
}
