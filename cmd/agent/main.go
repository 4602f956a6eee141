package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/roughcut/roughcut-agent/internal/api"
	"github.com/roughcut/roughcut-agent/internal/config"
	"github.com/roughcut/roughcut-agent/internal/db"
	"github.com/roughcut/roughcut-agent/internal/llm"
	"github.com/roughcut/roughcut-agent/internal/logging"
	"github.com/roughcut/roughcut-agent/internal/pipeline"
	"github.com/roughcut/roughcut-agent/internal/run"
	"github.com/roughcut/roughcut-agent/internal/watcher"
)

func main() {
	if err := runAgent(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func runAgent() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting roughcut agent", "version", config.Version, "data_dir", cfg.DataDir())

	profile, err := config.LoadProfile(cfg.ProfilePath())
	if err != nil {
		return fmt.Errorf("failed to load project profile: %w", err)
	}
	logger.Info("project profile loaded",
		"cameras", profile.CameraIDs(),
		"producer", profile.Producer.Backend+"/"+profile.Producer.Model,
		"director", profile.Director.Backend+"/"+profile.Director.Model,
	)

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := run.NewRepository(database.Conn())

	authToken, err := ensureAuthToken(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Println("║                   ROUGHCUT AGENT v0.1.0                   ║")
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-27d ║\n", cfg.Port())
	fmt.Printf("║  Auth Token: %-45s ║\n", authToken)
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	if host := cfg.OllamaHost(); host != "" {
		os.Setenv("OLLAMA_HOST", host)
	}

	producerClient, err := newCollaborator(profile.Producer.Backend, profile.Producer.Model, profile, cfg)
	if err != nil {
		return fmt.Errorf("producer collaborator: %w", err)
	}
	directorClient, err := newCollaborator(profile.Director.Backend, profile.Director.Model, profile, cfg)
	if err != nil {
		return fmt.Errorf("director collaborator: %w", err)
	}

	var embedder llm.Embedder
	if profile.Memory.EmbedModel != "" {
		embedClient, err := llm.NewOllamaClient(llm.DefaultOllamaModel, profile.Memory.EmbedModel)
		if err != nil {
			logger.Warn("embedder unavailable, global retrieval disabled", "error", err)
		} else {
			embedder = llm.WithEmbedTimeout(embedClient, cfg.EmbedTimeout())
		}
	}

	pipe, err := pipeline.New(pipeline.Config{
		Repo:         repo,
		DB:           database.Conn(),
		Profile:      profile,
		Producer:     producerClient,
		Director:     directorClient,
		Embedder:     embedder,
		ArtifactsDir: cfg.ArtifactsDir(),
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := pipeline.NewRunner(pipe, repo, logging.WithComponent(logger, "runner"))
	go runner.Start(ctx)

	if inbox := cfg.InboxDir(); inbox != "" {
		if err := os.MkdirAll(inbox, 0755); err != nil {
			return fmt.Errorf("failed to create inbox dir: %w", err)
		}
		w, err := watcher.New(inbox, repo, logging.WithComponent(logger, "watcher"))
		if err != nil {
			return fmt.Errorf("failed to start inbox watcher: %w", err)
		}
		defer w.Stop()
		go func() {
			if err := w.Start(ctx); err != nil && ctx.Err() == nil {
				logger.Error("inbox watcher exited", "error", err)
			}
		}()
	}

	apiServer := api.NewServer(api.ServerConfig{
		Port:       cfg.Port(),
		Repository: repo,
		Pipeline:   pipe,
		Runner:     runner,
		Profile:    profile,
		Logger:     logging.WithComponent(logger, "api"),
		StartTime:  startTime,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig)

	logger.Info("initiating graceful shutdown")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// newCollaborator builds the LLM client for one editorial pass. Backend
// misconfiguration is fatal, the agent cannot limp along without its
// collaborators.
func newCollaborator(backend, model string, profile *config.Profile, cfg config.Config) (llm.Client, error) {
	var client llm.Client
	var err error
	switch backend {
	case "ollama":
		client, err = llm.NewOllamaClient(model, profile.Memory.EmbedModel)
	case "gemini":
		keys := cfg.GeminiAPIKeys()
		if len(keys) == 0 {
			return nil, fmt.Errorf("backend gemini requires ROUGHCUT_GEMINI_API_KEYS")
		}
		client, err = llm.NewGeminiClient(keys, model)
	default:
		return nil, fmt.Errorf("unknown backend %q (want ollama or gemini)", backend)
	}
	if err != nil {
		return nil, err
	}
	return llm.WithTimeout(client, cfg.ReasoningTimeout()), nil
}

func ensureAuthToken(repo run.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "auth_token")
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, "auth_token", token); err != nil {
		return "", err
	}

	return token, nil
}
