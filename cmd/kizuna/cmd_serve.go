package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bdobrica/Kizuna/internal/kizuna/app"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the engine over HTTP until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr, _ := cmd.Flags().GetString("addr")

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := app.NewServer(addr, a)
			if err := srv.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			srv.Stop()
			return nil
		},
	}
	cmd.Flags().String("addr", "127.0.0.1:8787", "listen address")
	return cmd
}
