package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shouni/sdwebui-image-kit/internal/bridge"
	"github.com/shouni/sdwebui-image-kit/pkg/generator"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "フロントエンド向けのブリッジサーバーを起動します",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.BridgeAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			hub := bridge.NewHub()
			exec, err := a.newExecutor(generator.WithListener(hub.Notify))
			if err != nil {
				return err
			}
			srv, err := bridge.NewServer(ctx, exec, a.query, hub,
				bridge.WithAllowedOrigins(a.cfg.AllowedOrigins...),
				bridge.WithJobRetention(a.cfg.JobRetention),
			)
			if err != nil {
				return err
			}
			return srv.ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "待ち受けアドレス (既定は SDKIT_BRIDGE_ADDR)")
	return cmd
}
