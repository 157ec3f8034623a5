package admin

import (
	"context"
	"database/sql"
	"errors"
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

	"github.com/cloo-solutions/citewise/internal/api/handlers"
	"github.com/cloo-solutions/citewise/internal/api/middleware"
	"github.com/cloo-solutions/citewise/internal/complexity"
	"github.com/cloo-solutions/citewise/internal/config"
	"github.com/cloo-solutions/citewise/internal/jobs"
	"github.com/cloo-solutions/citewise/internal/openai"
	"github.com/cloo-solutions/citewise/internal/server"
	"github.com/cloo-solutions/citewise/internal/service"
	"github.com/cloo-solutions/citewise/internal/telemetry"
)

const activeSessionCacheSize = 1024

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the citewise API server: chat sessions, feedback and document ingestion",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (overrides CITEWISE_PORT)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().String("migrations", "file://migrations", "Migration source URL")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// 10% sampling in production, everything in development
	sampleRate := 0.1
	if cfg.Environment == "development" {
		sampleRate = 1.0
	}
	shutdownTelemetry, err := telemetry.Init(telemetry.Config{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		TracesSampleRate: sampleRate,
		Debug:            cfg.Debug,
	})
	if err != nil {
		log.Printf("telemetry init failed (continuing without tracing): %v", err)
	} else {
		defer shutdownTelemetry()
	}

	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}

	if !cfg.HasOpenAI() {
		return errors.New("CITEWISE_OPENAI_API_KEY is required to answer questions")
	}
	if len(cfg.APIKeys) == 0 {
		return errors.New("CITEWISE_API_KEYS is empty: no user could authenticate")
	}

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if noMigrate, _ := cmd.Flags().GetBool("no-migrate"); !noMigrate {
		source, _ := cmd.Flags().GetString("migrations")
		if err := runMigrations(cfg.DatabaseURL, source); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	docStorage, err := openDocumentStorage(ctx, cfg)
	if err != nil {
		return err
	}

	vocab, err := complexity.LoadVocabulary(cfg.VocabularyFile)
	if err != nil {
		return fmt.Errorf("failed to load vocabulary: %w", err)
	}
	scorer, err := complexity.NewScorer(vocab)
	if err != nil {
		return fmt.Errorf("failed to build scorer: %w", err)
	}

	llm := openai.NewClientWithConfig(openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		BaseURL:             cfg.OpenAIBaseURL,
		EmbeddingModel:      cfg.EmbeddingModel,
		EmbeddingDimensions: cfg.EmbeddingDimensions,
		CompletionModel:     cfg.Model,
	})

	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()

	embeddingSvc := service.NewEmbeddingService(llm, st.documents, st.chunks)
	embeddingWorker := jobs.NewWorker(jobs.NewEmbeddingWorker(st.embeddingJobs, embeddingSvc), cfg.EmbeddingWorkerInterval)
	go embeddingWorker.Start(workerCtx)

	retrieval := service.NewRetrievalService(st.search, llm, service.ParseSearchMode(cfg.SearchMode))
	log.Printf("retrieval mode: %s", retrieval.Mode())

	historySvc := service.NewHistoryService(st.transcripts, st.feedback)
	sessions, err := service.NewSessionManager(historySvc, activeSessionCacheSize)
	if err != nil {
		return fmt.Errorf("failed to create session manager: %w", err)
	}

	chatSvc := service.NewChatService(scorer, retrieval, nil, llm, st.transcripts, service.ChatConfig{
		Model:     cfg.Model,
		MinChunks: cfg.MinChunks,
		MaxChunks: cfg.MaxChunks,
	})

	router := server.NewRouter(server.RouterConfig{
		AuthValidator:   middleware.StaticKeys(cfg.APIKeys),
		ChatHandler:     handlers.NewChatHandler(chatSvc, sessions, cfg.ShowSources),
		SessionHandler:  handlers.NewSessionHandler(historySvc, sessions),
		FeedbackHandler: handlers.NewFeedbackHandler(service.NewFeedbackService(st.feedback)),
		DocumentHandler: handlers.NewDocumentHandler(
			service.NewDocumentService(st.documents, docStorage),
			service.NewIngestService(st.txRunner, st.documents, docStorage),
		),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
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

	embeddingWorker.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func runMigrations(databaseURL, source string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	upErr := m.Up()
	if upErr != nil && upErr != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", upErr)
	}

	version, dirty, err := m.Version()
	switch {
	case err == migrate.ErrNilVersion:
		log.Println("migrations: no migrations found")
	case err != nil:
		return fmt.Errorf("failed to get migration version: %w", err)
	case dirty:
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	case upErr == migrate.ErrNoChange:
		log.Printf("migrations: database is up to date (version %d)", version)
	default:
		log.Printf("migrations: applied successfully (version %d)", version)
	}
	return nil
}
