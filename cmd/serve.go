package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/KaramelBytes/flowviz-cli/internal/server"
	"github.com/KaramelBytes/flowviz-cli/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis API over HTTP",
	Long: `Serve starts the JSON API. Users come from the "users" map in the config
file (username -> bcrypt hash); add one with 'flowviz user add'.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := settings()
		creds, err := session.NewCredentialStore(c.Users)
		if err != nil {
			return fmt.Errorf("load users: %w", err)
		}
		if creds.Len() == 0 {
			log.Warn().Msg("no users configured; every login will be rejected")
		}
		addr := serveAddr
		if addr == "" {
			addr = c.ServerAddr
		}
		if !verbose {
			gin.SetMode(gin.ReleaseMode)
		}

		handler := server.NewAPIHandler(session.NewManager(creds), c.DatasetOptions(), c.PlotlyURL)
		router := server.NewRouter(handler)

		ctx, stop := signal.NotifyContext(contextOf(cmd), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		fmt.Printf("✓ Listening on http://%s (Ctrl+C to stop)\n", addr)
		return server.Run(ctx, addr, router)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config: 127.0.0.1:8080)")
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
