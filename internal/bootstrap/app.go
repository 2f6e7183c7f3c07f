// Package bootstrap handles application initialization and lifecycle management
// for the curation service.
package bootstrap

import (
	"context"
	"fmt"

	infralogger "github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/logger"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/profiling"
	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/telemetry"
)

// Start initializes and runs the curation service until ctx is done or the
// process receives SIGINT/SIGTERM.
func Start(ctx context.Context, configPath string) error {
	// Phase 1: Load config and create logger
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}

	log, err := CreateLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	// Phase 2: Start profilers (if enabled)
	profilers, err := profiling.Start(cfg.Profiling, cfg.Service.Name, cfg.Service.Version, log)
	if err != nil {
		log.Warn("Profiling disabled", infralogger.Error(err))
	}
	defer profilers.Stop()

	// Phase 3: Connect backing services
	infra, err := SetupInfra(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to set up infrastructure: %w", err)
	}
	defer infra.Close(log)

	// Phase 4: Wire the curation pipeline
	tp := telemetry.NewProvider()
	pipeline, err := BuildPipeline(cfg, infra, log, tp)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	pipeline.WatchDenylist(ctx)

	// Phase 5: Serve
	server := SetupHTTPServer(cfg, infra, pipeline, log, tp)
	if runErr := server.Run(ctx); runErr != nil {
		log.Error("Server error", infralogger.Error(runErr))
		return fmt.Errorf("server error: %w", runErr)
	}

	log.Info("Server exited")
	return nil
}
