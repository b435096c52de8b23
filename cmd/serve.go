package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/stabsim/server"
)

var serveAddr string // Listen address override

// serveCmd starts the HTTP API. Configuration comes from STABSIM_* env vars;
// --addr overrides STABSIM_ADDR.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the simulation API over HTTP",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := server.LoadConfig()
		if err != nil {
			logrus.Fatalf("Invalid server config: %v", err)
		}
		if cmd.Flags().Changed("addr") {
			cfg.Addr = serveAddr
		}
		if !cmd.Flags().Changed("log") {
			logLevel = cfg.LogLevel
		}
		setLogLevel()
		if logrus.GetLevel() < logrus.DebugLevel {
			gin.SetMode(gin.ReleaseMode)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := server.New(cfg).Run(ctx); err != nil {
			logrus.Fatalf("Server failed: %v", err)
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address (overrides STABSIM_ADDR)")
	rootCmd.AddCommand(serveCmd)
}
