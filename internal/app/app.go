package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/veridian-labs/docstream/internal/config"
	"github.com/veridian-labs/docstream/internal/core"
	"github.com/veridian-labs/docstream/internal/core/chunker"
	db "github.com/veridian-labs/docstream/internal/core/database"
	"github.com/veridian-labs/docstream/internal/core/embedder"
	"github.com/veridian-labs/docstream/internal/core/extract"
	"github.com/veridian-labs/docstream/internal/core/layout"
	"github.com/veridian-labs/docstream/internal/core/llm"
	objectclient "github.com/veridian-labs/docstream/internal/core/object-client"
	"github.com/veridian-labs/docstream/internal/core/pipeline"
	"github.com/veridian-labs/docstream/internal/services"
)

// numPipelineWorkers is how many documents can be processed concurrently.
const numPipelineWorkers = 2

type App struct {
	Store    core.StorageClient
	Objects  core.ObjectClient
	Pipeline *pipeline.Pipeline
	Worker   *pipeline.Worker
	Server   *Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	store, err := db.NewDatabaseClient(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Println("Database initialized and ready.")

	objects, err := objectclient.NewS3Client(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Println("Object client initialized and ready.")

	// With no API key the generator falls back to deterministic placeholder
	// vectors, which keeps local development working offline.
	var embedProvider core.EmbeddingProvider
	var llmProvider core.LLMProvider
	if cfg.AIAPIKey != "" {
		gemEmb, err := llm.NewGeminiEmbedder(appCtx, cfg.AIAPIKey, cfg.EmbedModel)
		if err != nil {
			return nil, fmt.Errorf("couldn't initialize the embedder: %w", err)
		}
		embedProvider = gemEmb

		gemLLM, err := llm.NewGeminiLLM(appCtx, cfg.AIAPIKey, cfg.GenModel)
		if err != nil {
			return nil, fmt.Errorf("couldn't initialize the llm: %w", err)
		}
		llmProvider = gemLLM
	} else {
		log.Println("GEMINI_API_KEY not set; using placeholder embeddings and no LLM.")
	}

	extractor := extract.NewTextExtractor(
		extract.WithMaxRetries(cfg.Pipeline.MaxRetries),
		extract.WithLogger(logger),
	)

	// No layout endpoint configured means no structural analysis; documents
	// then chunk by sliding window.
	var layoutProvider core.LayoutProvider
	if hp := layout.NewHTTPProvider(cfg.LayoutAPIURL, cfg.LayoutAPIKey); hp != nil {
		layoutProvider = hp
	}
	layoutAdapter := layout.NewAdapter(
		layoutProvider,
		core.LayoutOptions{ExtractTables: true, ExtractFigures: true, MinConfidence: 0.5},
		logger,
	)

	chunkEngine := chunker.NewEngine(logger)
	embedGen := embedder.NewGenerator(embedProvider, cfg.Pipeline.EmbedBatchSize, cfg.EmbedDim, logger)

	runner := pipeline.New(
		store, objects, extractor, layoutAdapter, chunkEngine, embedGen,
		pipeline.NewSlogTracker(logger), cfg.Pipeline, logger,
	)
	worker := pipeline.NewWorker(runner, 0, logger)
	worker.Start(ctx, numPipelineWorkers)

	docService := services.NewDocumentService(store, objects, cfg.BucketName)

	server := NewServer(cfg, store, docService, worker, runner, embedGen, llmProvider)

	return &App{
		Store:    store,
		Objects:  objects,
		Pipeline: runner,
		Worker:   worker,
		Server:   server,
	}, nil
}

func (a *App) Close() {
	if a.Store != nil {
		_ = a.Store.Close()
	}
}
