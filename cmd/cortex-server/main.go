package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/scrypster/cortex/internal/alerts"
	"github.com/scrypster/cortex/internal/config"
	"github.com/scrypster/cortex/internal/consolidate"
	"github.com/scrypster/cortex/internal/defrag"
	"github.com/scrypster/cortex/internal/ghost"
	"github.com/scrypster/cortex/internal/jobs"
	"github.com/scrypster/cortex/internal/llm"
	"github.com/scrypster/cortex/internal/pipeline"
	"github.com/scrypster/cortex/internal/router"
	"github.com/scrypster/cortex/internal/search"
	"github.com/scrypster/cortex/internal/server"
	"github.com/scrypster/cortex/internal/store"
	"github.com/scrypster/cortex/internal/store/postgres"
	"github.com/scrypster/cortex/internal/store/sqlite"
)

func main() {
	// .env is optional; real deployments use the environment directly.
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	st, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer st.Close()

	profile, err := config.LoadProfile(cfg.Profile.Path)
	if err != nil {
		log.Fatalf("Failed to load profile: %v", err)
	}
	if profile == nil {
		// First boot: write a starter profile so there is a file to edit.
		profile = config.DefaultProfile()
		if err := config.SaveProfile(cfg.Profile.Path, profile); err != nil {
			log.Printf("Could not write starter profile: %v", err)
		} else {
			log.Printf("Wrote starter profile to %s, edit it to personalize", cfg.Profile.Path)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt := router.New(cfg.LLM)
	embedder := llm.NewOllamaClient(llm.OllamaConfig{
		BaseURL: cfg.LLM.OllamaURL,
		Model:   cfg.LLM.EmbeddingModel,
		Timeout: cfg.LLM.RequestTimeout,
	})
	se := search.New(embedder, st)

	sink, err := alerts.NewSink(st, cfg.Redis.URL)
	if err != nil {
		log.Fatalf("Failed to initialize alert sink: %v", err)
	}
	defer sink.Close()

	queue := jobs.NewQueue(cfg.Jobs.QueueSize, cfg.Jobs.NumWorkers, cfg.Jobs.JobTimeout)
	p := pipeline.New(rt, st, se, profile, queue, cfg.Pipeline.StageTimeout)

	scheduler := jobs.NewScheduler(cfg.Jobs.JobTimeout)
	ghostDetector := ghost.New(st, sink)
	defragAnalyzer := defrag.New(st, sink)
	consolidator := consolidate.New(st, se, rt)

	scheduler.Register("ghost-detector", cfg.Jobs.GhostInterval, func(ctx context.Context) error {
		_, err := ghostDetector.Run(ctx)
		return err
	})
	scheduler.Register("schedule-defrag", cfg.Jobs.DefragInterval, func(ctx context.Context) error {
		_, err := defragAnalyzer.Run(ctx)
		return err
	})
	scheduler.Register("consolidation", cfg.Jobs.ConsolidationInterval, func(ctx context.Context) error {
		_, err := consolidator.Run(ctx)
		return err
	})
	scheduler.Start()

	srv := server.New(p, rt, st, sink)
	addr, err := srv.Start(ctx, cfg.Server)
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	log.Printf("Cortex listening on http://%s", addr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("Shutting down...")

	cancel()
	scheduler.Stop()

	drainCtx, drainCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer drainCancel()
	if err := queue.Shutdown(drainCtx); err != nil {
		log.Printf("Task queue shutdown: %v", err)
	}
	log.Println("Goodbye")
}

// openStore selects the persistence backend from configuration.
func openStore(cfg *config.Config) (store.KnowledgeStore, error) {
	switch cfg.Storage.StorageEngine {
	case "postgres":
		log.Println("Using postgres storage")
		return postgres.New(cfg.Storage.PostgresDSN)
	default:
		if err := os.MkdirAll(cfg.Storage.DataPath, 0o755); err != nil {
			return nil, err
		}
		path := cfg.Storage.DataPath + "/cortex.db"
		log.Printf("Using sqlite storage at %s", path)
		return sqlite.New(path)
	}
}
