package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"shopbot/internal/app"
	"shopbot/internal/config"
	"shopbot/internal/observability"
	"shopbot/internal/service"
	"shopbot/internal/tui"
)

var cli struct {
	Config   string `help:"Path to YAML config file (uses ./config.yaml or ~/.config/shopbot/config.yaml if not provided)" type:"path"`
	LogLevel string `help:"Override log level (debug, info, warn, error)" default:""`
	LogFile  string `help:"Override log file; the terminal is reserved for the UI" default:""`
}

func main() {
	_ = godotenv.Load()
	_ = kong.Parse(&cli, kong.Description("광진구 착한가게 챗봇"))
	ctx := context.Background()

	cfg, path, err := loadConfig(cli.Config)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cli.LogLevel != "" {
		cfg.Log.Level = cli.LogLevel
	}
	if cli.LogFile != "" {
		cfg.Log.File = cli.LogFile
	}
	if cfg.Log.File == "" {
		cfg.Log.File = "shopbot.log"
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

	fmt.Println("문서 저장소를 준비하는 중입니다...")
	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	defer a.Close()

	m := tui.New(ctx, a.Service, service.ExampleQuestions)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		log.Fatal(err)
	}
}

func loadConfig(path string) (*config.AppConfig, string, error) {
	if path == "" {
		return config.LoadDefault()
	}
	cfg, err := config.Load(path)
	return cfg, path, err
}
