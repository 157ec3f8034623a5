package admin

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/citewise/internal/config"
	"github.com/cloo-solutions/citewise/internal/database"
	"github.com/cloo-solutions/citewise/internal/repository"
	"github.com/cloo-solutions/citewise/internal/service"
	"github.com/cloo-solutions/citewise/internal/storage"
)

// stores groups the Postgres-backed repositories shared by every command.
type stores struct {
	pool          *pgxpool.Pool
	documents     *repository.DocumentRepository
	chunks        *repository.ChunkRepository
	search        *repository.SearchRepository
	transcripts   *repository.TranscriptRepository
	feedback      *repository.FeedbackRepository
	embeddingJobs *repository.EmbeddingJobRepository
	txRunner      *repository.TxRunner
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	pool, err := database.NewPool(ctx, database.Config{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("connected to database")

	return &stores{
		pool:          pool,
		documents:     repository.NewDocumentRepository(pool),
		chunks:        repository.NewChunkRepository(pool),
		search:        repository.NewSearchRepository(pool),
		transcripts:   repository.NewTranscriptRepository(pool),
		feedback:      repository.NewFeedbackRepository(pool),
		embeddingJobs: repository.NewEmbeddingJobRepository(pool),
		txRunner:      repository.NewTxRunner(pool),
	}, nil
}

func (s *stores) Close() {
	s.pool.Close()
}

// openDocumentStorage returns nil when S3 is not configured.
func openDocumentStorage(ctx context.Context, cfg *config.Config) (service.DocumentStorage, error) {
	if !cfg.HasS3() {
		return nil, nil
	}

	client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.S3Bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	if err := client.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
	}
	log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
	return client, nil
}
