package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/httplog/v2"

	"github.com/vadimbarashkov/shorty/internal/app"
	"github.com/vadimbarashkov/shorty/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		slog.Error("application stopped", slog.Any("err", err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return err
	}

	logger := httplog.NewLogger("shorty", httplog.Options{
		JSON:             cfg.Env != config.EnvDev,
		LogLevel:         logLevel(cfg.Env),
		Concise:          cfg.Env == config.EnvDev,
		QuietDownRoutes:  []string{"/api/v1/ping", "/metrics"},
		QuietDownPeriod:  time.Minute,
		MessageFieldName: "message",
		Tags: map[string]string{
			"env": cfg.Env,
		},
	})

	return app.Run(ctx, cfg, logger)
}

func logLevel(env string) slog.Level {
	if env == config.EnvDev {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
