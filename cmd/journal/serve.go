package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"trading-journal-go/internal/api"
	"trading-journal-go/internal/mentor"
)

func newServeCmd(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the journal HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port == 0 {
				port = a.cfg.Server.Port
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			go func() {
				sigchan := make(chan os.Signal, 1)
				signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
				<-sigchan
				a.log.Info("Shutdown signal received, gracefully shutting down...")
				cancel()
			}()

			gen, err := mentor.NewGenerator(ctx, &a.cfg.Mentor, a.log)
			if err != nil {
				return err
			}
			mentorService := mentor.NewService(gen, &a.cfg.Mentor, a.log)

			sessions := api.NewSessions(a.cfg.Session.TTL, a.cfg.Session.Cleanup, a.newStore, a.log)
			server := api.NewServer(port, api.NewHandler(sessions, mentorService, a.log).Routes(), a.log)
			server.Start()

			<-ctx.Done()

			shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
			defer stop()
			if err := server.Stop(shutdownCtx); err != nil {
				a.log.Error("API server shutdown failed", zap.Error(err))
				return err
			}
			a.log.Info("Journal server has been shut down.")
			return nil
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default server.port)")
	return cmd
}
