package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/eddiefleurent/scranton_spreads/internal/dashboard"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve reconciliation reports of source.path over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.cfg.Dashboard.Addr
			}
			if a.cfg.Dashboard.AuthToken == "" {
				a.logger.Warn("dashboard.auth_token is empty, the report API is unauthenticated")
			}
			src := dashboard.FileSource{Path: a.cfg.Source.Path, Match: a.cfg.SignatureMatch()}
			srv := dashboard.NewServer(dashboard.Config{Addr: addr, AuthToken: a.cfg.Dashboard.AuthToken}, src, a.logger)

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(srv.Start)
			g.Go(func() error {
				<-ctx.Done()
				a.logger.Info("shutting down report API")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address; defaults to dashboard.addr")
	return cmd
}
