package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/inkwell-app/inkwell/internal/config"
	"github.com/inkwell-app/inkwell/internal/core"
	db "github.com/inkwell-app/inkwell/internal/core/database"
	"github.com/inkwell-app/inkwell/internal/core/extraction"
	"github.com/inkwell-app/inkwell/internal/core/llm"
	objectclient "github.com/inkwell-app/inkwell/internal/core/object-client"
	"github.com/inkwell-app/inkwell/internal/services"
	"github.com/inkwell-app/inkwell/internal/workers"
)

type App struct {
	DBClient     core.DbClient
	ObjectClient core.ObjectClient
	Dispatcher   *workers.Dispatcher
	Server       *Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Println("Database initialized and ready.")

	objClient, err := objectclient.NewS3Client(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Println("Object client initialized and ready.")

	llmProvider, err := llm.NewGeminiLLM(appCtx, cfg.AIAPIKey, cfg.GenModel)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the llm provider, %w", err)
	}

	registry := extraction.DefaultRegistry(objClient, llmProvider, extraction.Policy{
		Bucket:          cfg.BucketName,
		MaxURLChars:     cfg.MaxURLChars,
		MinCaptionChars: cfg.MinCaptionChars,
	})

	dispatcher := workers.NewDispatcher(dbClient, registry)
	dispatcher.Start(ctx, cfg.WorkerCount)
	if err := dispatcher.Recover(ctx); err != nil {
		log.Printf("WARN: queued job recovery: %v", err)
	}

	jobSvc := services.NewJobService(dbClient, dispatcher, cfg.MaxRetries)
	intakeSvc := services.NewIntakeService(dbClient, objClient, jobSvc, cfg.BucketName)
	statusSvc := services.NewStatusService(dbClient)
	draftSvc := services.NewDraftService(dbClient, llmProvider, statusSvc)

	server := NewServer(cfg, dbClient, objClient, intakeSvc, jobSvc, statusSvc, draftSvc)

	return &App{
		DBClient:     dbClient,
		ObjectClient: objClient,
		Dispatcher:   dispatcher,
		Server:       server,
	}, nil
}

func (a *App) Close() {
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}
