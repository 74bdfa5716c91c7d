package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/sie-engine/siechat/internal/api/handlers"
	"github.com/sie-engine/siechat/internal/config"
	"github.com/sie-engine/siechat/internal/database"
	"github.com/sie-engine/siechat/internal/jobs"
	"github.com/sie-engine/siechat/internal/openai"
	"github.com/sie-engine/siechat/internal/pinecone"
	"github.com/sie-engine/siechat/internal/repository"
	"github.com/sie-engine/siechat/internal/server"
	"github.com/sie-engine/siechat/internal/service"
	"github.com/sie-engine/siechat/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the chat API server",
		Long:  "Start the siechat API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	topicRepo := repository.NewTopicTermRepository(pool)
	apiKeyRepo := repository.NewAPIKeyRepository(pool)
	docRepo := repository.NewDocumentRepository(pool)
	jobRepo := repository.NewSyncJobRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)

	uuidGen := &service.DefaultUUIDGenerator{}

	authSvc := service.NewAuthService(apiKeyRepo, uuidGen)
	topicSvc := service.NewTopicService(topicRepo, uuidGen)

	var embedder service.Embedder
	var retriever service.Retriever
	var generator service.Generator
	var vectors service.VectorWriter = noopVectorWriter{}
	if cfg.HasProviders() {
		openaiClient := openai.NewClient(cfg.OpenAIAPIKey, cfg.ChatModel)
		pineconeClient := pinecone.NewClient(cfg.PineconeHost, cfg.PineconeAPIKey)
		embedder = openaiClient
		retriever = pineconeClient
		generator = openaiClient
		vectors = &PineconeVectorAdapter{client: pineconeClient}
	} else {
		log.Println("chat providers not configured; /chat will answer 503")
	}

	// The sync service works without providers too: pushes still queue, and
	// the queued jobs get indexed once credentials arrive and the worker runs.
	syncSvc := service.NewSyncService(docRepo, jobRepo, chunkRepo, embedder, vectors, uuidGen)

	var syncWorker *jobs.Worker
	if cfg.HasProviders() {
		syncWorker = jobs.NewWorker(syncSvc, 10*time.Second)
		go syncWorker.Start(ctx)
		log.Println("knowledge sync worker started")
	}

	chatSvc := service.NewChatService(service.ChatSettings{
		OpenAIAPIKey:   cfg.OpenAIAPIKey,
		PineconeAPIKey: cfg.PineconeAPIKey,
		PineconeHost:   cfg.PineconeHost,
		SystemPrompt:   cfg.SystemPrompt,
	}, embedder, retriever, generator)

	policy := service.NewAccessPolicy(cfg.ChatAccess, cfg.ChatRequiredRole)

	routerCfg := server.RouterConfig{
		KeyValidator:     authSvc,
		ChatHandler:      handlers.NewChatHandler(chatSvc, policy),
		TopicHandler:     handlers.NewTopicHandler(topicSvc),
		KnowledgeHandler: handlers.NewKnowledgeHandler(syncSvc),
		WidgetHandler:    handlers.NewWidgetHandler(cfg.WidgetTitle, policy),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if syncWorker != nil {
		syncWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// PineconeVectorAdapter bridges the pinecone client to the service-layer
// VectorWriter interface.
type PineconeVectorAdapter struct {
	client *pinecone.Client
}

func (a *PineconeVectorAdapter) Upsert(ctx context.Context, records []service.VectorRecord) error {
	vectors := make([]pinecone.Vector, len(records))
	for i, rec := range records {
		vectors[i] = pinecone.Vector{ID: rec.ID, Values: rec.Values, Metadata: rec.Metadata}
	}
	return a.client.Upsert(ctx, vectors)
}

func (a *PineconeVectorAdapter) DeleteVectors(ctx context.Context, ids []string) error {
	return a.client.Delete(ctx, ids)
}

// noopVectorWriter accepts pushes when no vector index is configured. The
// sync job stays pending until the worker (which only runs with providers)
// picks it up.
type noopVectorWriter struct{}

func (noopVectorWriter) Upsert(ctx context.Context, records []service.VectorRecord) error {
	return nil
}

func (noopVectorWriter) DeleteVectors(ctx context.Context, ids []string) error {
	return nil
}

func runMigrations(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
