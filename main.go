package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "brainforge/app/configs"
	"brainforge/app/core/comms"
	"brainforge/app/core/interaction/http"
	"brainforge/app/core/remote"
	"brainforge/app/core/task"
	"brainforge/app/core/workflow"
	"brainforge/app/pkg/logger"
)

func main() {
	if err := logger.Init("output/logs"); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()
	logger.Info("Brainforge Orchestrator Starting...")

	cfgManager, err := config.NewManager(config.DefaultPath())
	if err != nil {
		logger.Error("Failed to load config: %v", err)
		os.Exit(1)
	}
	cfg := cfgManager.Get()

	commsSink := comms.NewFileSink("output/comms")

	registry := remote.NewRegistry(map[string]string{
		workflow.RoleIdea:        cfg.Workers.IdeaURL,
		workflow.RoleCritic:      cfg.Workers.CriticURL,
		workflow.RolePrioritizer: cfg.Workers.PrioritizerURL,
	}, 10*time.Second)

	client := remote.NewClient(registry, commsSink, remote.Options{
		MaxAttempts: cfg.Remote.MaxAttempts,
		RetryBase:   time.Duration(cfg.Remote.RetryBaseMs) * time.Millisecond,
		CallTimeout: time.Duration(cfg.Remote.CallTimeoutSec) * time.Second,
	})

	engine := workflow.NewEngine(client, cfg.Pipeline.CritiqueConcurrency)
	store := task.NewStore()
	scheduler := task.NewScheduler(store, engine, time.Duration(cfg.Pipeline.BudgetSec)*time.Second)

	server := http.NewServer(cfg.Server.Port, scheduler)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tasks are kept for the process lifetime unless retention is
	// configured explicitly.
	if cfg.Pipeline.RetentionMin > 0 {
		janitor := task.NewJanitor(store, time.Minute, time.Duration(cfg.Pipeline.RetentionMin)*time.Minute)
		janitor.Start(ctx)
		logger.Info("Task retention enabled: terminal tasks pruned after %d minutes", cfg.Pipeline.RetentionMin)
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Received signal: %v. Shutting down...", sig)
		cancel()
	}()

	logger.Info("Workers: idea=%s critic=%s prioritizer=%s",
		cfg.Workers.IdeaURL, cfg.Workers.CriticURL, cfg.Workers.PrioritizerURL)
	if err := server.Start(ctx); err != nil {
		logger.Error("HTTP server failed: %v", err)
		os.Exit(1)
	}
	logger.Info("Brainforge stopped.")
}
