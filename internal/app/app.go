package app

import (
	"context"
	"log"
	"time"

	"campusassist/internal/config"
	"campusassist/internal/core"
	"campusassist/internal/core/answer"
	db "campusassist/internal/core/database"
	"campusassist/internal/core/extract"
	"campusassist/internal/core/ingestion"
	"campusassist/internal/core/llm"
	"campusassist/internal/core/objectstore"
	"campusassist/internal/core/retrieval"
)

type App struct {
	DBClient core.DbClient
	Embedder *llm.GeminiEmbedder
	LLM      *llm.GeminiLLM
	Server   *Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Println("Database initialized and ready.")

	// Object storage is optional; without AWS credentials uploads are
	// ingested but the raw file is not archived.
	var objClient core.ObjectClient
	if cfg.AwsAccessKey != "" && cfg.AwsSecretKey != "" {
		objClient, err = objectstore.NewS3Client(appCtx, cfg)
		if err != nil {
			_ = dbClient.Close()
			return nil, err
		}
		log.Println("Object client initialized and ready.")
	} else {
		log.Println("AWS credentials not set; raw file archival disabled.")
	}

	embedder, err := llm.NewGeminiEmbedder(appCtx, cfg.AIAPIKey, cfg.EmbedModel, cfg.EmbedDim, cfg.AITimeout)
	if err != nil {
		_ = dbClient.Close()
		return nil, err
	}

	generator, err := llm.NewGeminiLLM(appCtx, cfg.AIAPIKey, cfg.GenModel, cfg.AITimeout)
	if err != nil {
		_ = dbClient.Close()
		return nil, err
	}

	extractor := extract.NewDocconvExtractor(false)
	ingestPipeline := ingestion.NewPipeline(dbClient, embedder, cfg.ChunkSize, cfg.ChunkOverlap, cfg.ChunkLimit)
	retriever := retrieval.New(dbClient, embedder, cfg.TopK)
	answerPipeline := answer.NewPipeline(dbClient, retriever, generator)

	server := NewServer(cfg, dbClient, objClient, extractor, ingestPipeline, answerPipeline)

	return &App{DBClient: dbClient, Embedder: embedder, LLM: generator, Server: server}, nil
}

func (a *App) Close() {
	if a.Embedder != nil {
		_ = a.Embedder.Close()
	}
	if a.LLM != nil {
		_ = a.LLM.Close()
	}
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}
