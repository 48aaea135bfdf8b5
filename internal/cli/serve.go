package cli

import (
	"os"
	"os/signal"
	"syscall"

	"CompanionGuard/internal/app"
	"CompanionGuard/pkg/config"
	"CompanionGuard/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the screening API, the professional alert API and the overdue
alert sweep. Configuration comes from the environment and from .env files
selected by APP_ENV.

Endpoints (under API_PREFIX, default /api):
  POST /crisis/screen                 screen one message
  DELETE /crisis/conversations/:id    end a conversation
  GET  /crisis/alerts[?status=]       list alerts
  GET  /crisis/alerts/stream          live alert events (SSE)
  POST /crisis/alerts/:id/notified    delivery confirmation
  POST /crisis/alerts/:id/viewed      professional viewed the alert
  POST /crisis/alerts/:id/resolve     close the alert with notes
  GET  /system/health`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("addr", "a", "", "listen address, overrides ADDR")
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := config.Load(); err != nil {
		return err
	}
	cfg := config.GlobalConfig
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Addr = addr
	}

	log := logger.Init(cfg.Log, "companionguard")
	defer logger.Sync()

	a, err := app.New(cfg, log)
	if err != nil {
		log.Error("startup failed", zap.Error(err))
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.Run(ctx)
}
