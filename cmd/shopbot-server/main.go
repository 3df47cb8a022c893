package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"shopbot/internal/app"
	"shopbot/internal/config"
	"shopbot/internal/httpapi"
	"shopbot/internal/observability"
)

var cli struct {
	Config   string `help:"Path to YAML config file (uses ./config.yaml or ~/.config/shopbot/config.yaml if not provided)" type:"path"`
	Addr     string `help:"Address to listen on" default:":8080"`
	LogLevel string `help:"Override log level (debug, info, warn, error)" default:""`
}

func main() {
	_ = godotenv.Load()
	_ = kong.Parse(&cli, kong.Description("광진구 착한가게 챗봇 HTTP API"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		cfg  *config.AppConfig
		path = cli.Config
		err  error
	)
	if path == "" {
		cfg, path, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(path)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cli.LogLevel != "" {
		cfg.Log.Level = cli.LogLevel
	}

	logger, closer, err := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	}, os.Stderr)
	if err != nil {
		log.Fatalf("failed to set up logging: %v", err)
	}
	defer closer.Close()
	slog.SetDefault(logger)
	logger.Info("config loaded", "path", path)

	tp, err := observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName:  cfg.Tracing.ServiceName,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		SampleRate:   cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}
	defer tp.Shutdown(context.Background())

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	defer a.Close()

	srv := httpapi.NewServer(cli.Addr, a.Service, logger)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server stopped", "error", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}
}
