// cmd/assessment-server/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"credit-assessment/internal/app"
	"credit-assessment/internal/common/config"
	"credit-assessment/internal/common/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("info", "console")
		boot.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	log.Info("starting credit assessment service", map[string]interface{}{
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
		"analyzers":   cfg.Analyzers.Mode,
		"storage":     cfg.Storage.Driver,
		"workflow":    cfg.Camunda.Enabled,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, app.Options{}, log)
	if err != nil {
		zapLog.Fatal("startup failed", zap.Error(err))
	}

	if err := a.Run(ctx); err != nil {
		log.Error("service stopped with error", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	log.Info("service stopped", nil)
}
