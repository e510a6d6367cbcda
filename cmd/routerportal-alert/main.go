package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/zawnaing-2024/Router-Portal/internal/config"
	"github.com/zawnaing-2024/Router-Portal/internal/logger"
	"github.com/zawnaing-2024/Router-Portal/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "routerportal-alert")
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer log.Sync()

	alertService, err := service.NewAlertService(cfg, log)
	if err != nil {
		log.Fatal("Failed to create alert service",
			zap.Error(err),
		)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := alertService.Start(ctx); err != nil {
		log.Fatal("Failed to start alert service",
			zap.Error(err),
		)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Info("Received signal, shutting down",
		zap.String("signal", sig.String()),
	)
	cancel()

	if err := alertService.Stop(); err != nil {
		log.Error("Shutdown error",
			zap.Error(err),
		)
	}

	log.Info("Alert service stopped")
}
