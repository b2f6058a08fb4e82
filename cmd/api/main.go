package main

import (
	"context"
	"flag"
	"log"

	"github.com/invoicekit/invoice-studio/internal/api/rest"
	"github.com/invoicekit/invoice-studio/internal/infrastructure/config"
	"github.com/invoicekit/invoice-studio/internal/infrastructure/telemetry"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := telemetry.SetupLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}

	ctx := context.Background()
	provider, err := telemetry.Initialize(ctx, &telemetry.Config{
		ServiceName:    "invoice-studio-api",
		ServiceVersion: cfg.Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SamplingRate:   cfg.Telemetry.SamplingRate,
		ExportTimeout:  cfg.Telemetry.ExportTimeout,
		BatchTimeout:   cfg.Telemetry.BatchTimeout,
	})
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}
	defer func() {
		if err := provider.Shutdown(ctx); err != nil {
			logger.Error("telemetry shutdown failed", "error", err)
		}
	}()

	server, err := rest.NewServer(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	if err := server.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
