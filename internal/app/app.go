package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/Learnify/internal/api/handlers"
	"github.com/markdave123-py/Learnify/internal/config"
	"github.com/markdave123-py/Learnify/internal/core"
	"github.com/markdave123-py/Learnify/internal/core/billing"
	db "github.com/markdave123-py/Learnify/internal/core/database"
	"github.com/markdave123-py/Learnify/internal/core/generation_engine"
	objectclient "github.com/markdave123-py/Learnify/internal/core/object-client"
	"github.com/markdave123-py/Learnify/internal/logger"
	"github.com/markdave123-py/Learnify/internal/services"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	DBClient     core.DbClient
	ObjectClient core.ObjectClient
	LLM          core.LLMProvider
	Server       *Server

	closeLLM func() error
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("database initialized and ready")

	objClient, err := objectclient.NewS3Client(appCtx, cfg)
	if err != nil {
		_ = dbClient.Close()
		return nil, err
	}
	logger.Info("object client initialized and ready", "bucket", cfg.BucketName)

	provider, closeLLM, err := NewLLM(ctx, cfg)
	if err != nil {
		_ = dbClient.Close()
		return nil, err
	}

	useReadability := false
	extractor := generation_engine.NewPDFExtractor(useReadability)
	generator := NewGenerator(cfg, provider)

	catalog := billing.NewCatalog(cfg.BasicPriceID, cfg.ProPriceID, cfg.BasicDailyLimit, cfg.ProDailyLimit)
	var webhooks *billing.WebhookProcessor
	if cfg.StripeSecretKey != "" && cfg.StripeWebhookSecret != "" {
		webhooks = billing.NewWebhookProcessor(billing.NewStripeGateway(cfg.StripeSecretKey), dbClient, cfg.StripeWebhookSecret)
		logger.Info("stripe billing enabled")
	} else {
		logger.Warn("stripe keys not set, webhook endpoint disabled")
	}

	users := services.NewUserService(dbClient, catalog, cfg.RequireSubscription)
	uploads := services.NewUploadService(dbClient, objClient, extractor, generator, users)
	library := services.NewLibraryService(dbClient, objClient)
	study := services.NewStudyService(dbClient)

	server := NewServer(cfg, Handlers{
		Auth:    handlers.NewAuthHandler(users, cfg.JWTSecret, time.Duration(cfg.JWTTTLHours)*time.Hour),
		Upload:  handlers.NewUploadHandler(uploads, cfg.MaxUploadBytes()),
		Library: handlers.NewLibraryHandler(library),
		Study:   handlers.NewStudyHandler(study),
		Billing: handlers.NewBillingHandler(catalog, webhooks, users),
	})

	return &App{
		DBClient:     dbClient,
		ObjectClient: objClient,
		LLM:          provider,
		Server:       server,
		closeLLM:     closeLLM,
	}, nil
}

// Run serves HTTP until ctx is cancelled, then shuts the server down gracefully.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.Server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.Server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (a *App) Close() {
	if a.closeLLM != nil {
		if err := a.closeLLM(); err != nil {
			logger.Warn("closing llm client failed", "err", err)
		}
	}
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}
