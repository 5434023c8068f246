package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	"bookassist/internal/config"
	"bookassist/internal/util"
	"bookassist/pkg/ai"
	"bookassist/pkg/ingest"
	"bookassist/pkg/vectorindex"
)

func main() {
	configPath := flag.String("config", config.ConfigPath, "path to config file")
	contentDir := flag.String("content", "", "markdown content directory (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := util.InitLogger(cfg.LogLevel)

	dir := cfg.ContentDir
	if *contentDir != "" {
		dir = *contentDir
	}

	openai := ai.NewOpenAIClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey)
	embedder, err := ai.NewOpenAIEmbedder(openai, cfg.EmbeddingModel, cfg.EmbeddingDimensions)
	if err != nil {
		log.Fatalf("failed to init embedder: %v", err)
	}
	index, err := vectorindex.NewQdrantGateway(vectorindex.QdrantConfig{
		Host:   cfg.QdrantHost,
		Port:   cfg.QdrantPort,
		APIKey: cfg.QdrantAPIKey,
		UseTLS: cfg.QdrantUseTLS,
	})
	if err != nil {
		log.Fatalf("failed to init vector index: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pipeline := ingest.NewPipeline(embedder, index, logger)
	slog.Info("ingest starting", "content_dir", dir, "collection", cfg.Collection)
	if err := pipeline.Run(ctx, dir, cfg.Collection, cfg.EmbeddingDimensions); err != nil {
		log.Fatalf("ingest failed: %v", err)
	}
}
