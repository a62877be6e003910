// ragdrive answers questions about the documents in a Google Drive
// folder. It ingests the folder into a vector index and serves a
// retrieval-grounded chat endpoint over HTTP.
package main

import (
	"context"
	"os"
	"time"

	googledrive "github.com/atelier-labs/ragdrive/internal/adapters/driven/drive/google"
	embeddinggemini "github.com/atelier-labs/ragdrive/internal/adapters/driven/embedding/gemini"
	generationgemini "github.com/atelier-labs/ragdrive/internal/adapters/driven/generation/gemini"
	"github.com/atelier-labs/ragdrive/internal/adapters/driven/vector/pinecone"
	"github.com/atelier-labs/ragdrive/internal/adapters/driving/cli"
	"github.com/atelier-labs/ragdrive/internal/chunker"
	"github.com/atelier-labs/ragdrive/internal/config"
	"github.com/atelier-labs/ragdrive/internal/core/services"
	"github.com/atelier-labs/ragdrive/internal/extractor"
	"github.com/atelier-labs/ragdrive/internal/logger"
)

func main() {
	if err := run(); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	drive, err := googledrive.NewService(ctx, googledrive.Config{
		ServiceAccountKey: cfg.ServiceAccountKey,
		ClientID:          cfg.ClientID,
		ClientSecret:      cfg.ClientSecret,
		RefreshToken:      cfg.RefreshToken,
	})
	if err != nil {
		return err
	}

	embedder, err := embeddinggemini.NewService(ctx, embeddinggemini.Config{
		APIKey:       cfg.GeminiAPIKey,
		Models:       cfg.Tunables.EmbeddingModels,
		CacheEntries: cfg.Tunables.CacheEntries,
		CacheTTL:     time.Duration(cfg.Tunables.CacheTTLMinutes) * time.Minute,
	})
	if err != nil {
		return err
	}
	defer embedder.Close()

	generator, err := generationgemini.NewService(ctx, generationgemini.Config{
		APIKey: cfg.GeminiAPIKey,
		Models: cfg.Tunables.GenerationModels,
	})
	if err != nil {
		return err
	}
	defer generator.Close()

	store, err := pinecone.New(pinecone.Config{
		APIKey:    cfg.PineconeAPIKey,
		IndexName: cfg.PineconeIndex,
		Dimension: embedder.Dimensions(),
	})
	if err != nil {
		return err
	}

	var chunkerOpts []chunker.Option
	if cfg.Tunables.MaxChunkSize > 0 {
		chunkerOpts = append(chunkerOpts, chunker.WithMaxChunkSize(cfg.Tunables.MaxChunkSize))
	}
	if cfg.Tunables.OverlapSize > 0 {
		chunkerOpts = append(chunkerOpts, chunker.WithOverlapSize(cfg.Tunables.OverlapSize))
	}

	pipeline := services.NewIngestionPipeline(
		drive,
		extractor.New(),
		chunker.New(chunkerOpts...),
		embedder,
		store,
	)
	chat := services.NewChatService(embedder, store, generator,
		services.WithTopK(cfg.Tunables.TopK))

	cli.Configure(cli.Options{
		Ingestor:    pipeline,
		Chat:        chat,
		VectorStore: store,
		Addr:        cfg.Addr,
		FolderID:    cfg.FolderID,
	})

	return cli.Execute()
}
