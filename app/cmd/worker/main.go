package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	config "brainforge/app/configs"
	"brainforge/app/core/brain"
	"brainforge/app/core/worker"
	"brainforge/app/pkg/logger"
)

var roleDefs = map[string]struct {
	port        int
	name        string
	description string
	build       func(brain.Provider) worker.Responder
}{
	"idea": {
		port:        9991,
		name:        "Idea Generator",
		description: "Generates candidate ideas for a brainstorm topic",
		build:       func(p brain.Provider) worker.Responder { return worker.NewIdeaResponder(p) },
	},
	"critic": {
		port:        9992,
		name:        "Critic",
		description: "Critiques ideas for strengths, issues and feasibility",
		build:       func(p brain.Provider) worker.Responder { return worker.NewCritiqueResponder(p) },
	},
	"prioritizer": {
		port:        9993,
		name:        "Prioritizer",
		description: "Ranks reviewed ideas by feasibility, impact, novelty and cost",
		build:       func(p brain.Provider) worker.Responder { return worker.NewPrioritizeResponder(p) },
	},
}

func main() {
	role := flag.String("role", "", "worker role: idea, critic or prioritizer")
	port := flag.Int("port", 0, "listen port (default depends on role)")
	configPath := flag.String("config", "config/config.json", "path to runtime config json")
	flag.Parse()

	def, ok := roleDefs[strings.ToLower(*role)]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown role %q; expected idea, critic or prioritizer\n", *role)
		os.Exit(1)
	}
	if *port != 0 {
		def.port = *port
	}

	if err := logger.Init("logs"); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	manager, err := config.NewManager(*configPath)
	if err != nil {
		logger.Error("Load config failed: %v", err)
		os.Exit(1)
	}
	cfg := manager.Get()

	provider, err := buildProvider(cfg.Brain)
	if err != nil {
		logger.Error("Configure model provider failed: %v", err)
		os.Exit(1)
	}
	if provider == nil {
		logger.Info("Worker %s running with static responses (no model provider configured)", def.name)
	} else {
		logger.Info("Worker %s using provider %s", def.name, provider.Name())
	}

	card := worker.Card{
		Name:        def.name,
		Description: def.description,
		URL:         fmt.Sprintf("http://localhost:%d", def.port),
		Version:     "1.0.0",
	}
	srv := worker.NewServer(def.port, card, def.build(provider))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logger.Info("Worker %s shutting down...", def.name)
		cancel()
	}()

	if err := srv.Start(ctx); err != nil {
		logger.Error("Worker %s failed: %v", def.name, err)
		os.Exit(1)
	}
}

// buildProvider registers every backend that can be constructed from the
// environment and resolves the configured one. "static" means no model:
// responders fall back to deterministic output.
func buildProvider(cfg config.BrainConfig) (brain.Provider, error) {
	name := strings.ToLower(cfg.Provider)
	if name == "" || name == "static" {
		return nil, nil
	}

	router := brain.NewRouter(name)
	if p, err := brain.NewOpenAIProvider("", cfg.Model); err == nil {
		router.Register(p)
	}
	if p, err := brain.NewAnthropicProvider("", cfg.Model); err == nil {
		router.Register(p)
	}
	if p, err := brain.NewOllamaProvider(cfg.Model); err == nil {
		router.Register(p)
	}
	return router.Resolve(name)
}
