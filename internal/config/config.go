package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "CITEWISE"

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"10"`

	OpenAIAPIKey        string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL       string `envconfig:"OPENAI_BASE_URL"`
	Model               string `envconfig:"MODEL" default:"gpt-4o-mini"`
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`

	// Retrieval depth bounds for the simplest and the most complex questions.
	MinChunks      int    `envconfig:"MIN_CHUNKS" default:"3"`
	MaxChunks      int    `envconfig:"MAX_CHUNKS" default:"15"`
	SearchMode     string `envconfig:"SEARCH_MODE" default:"hybrid"`
	VocabularyFile string `envconfig:"VOCABULARY_FILE"`
	ShowSources    bool   `envconfig:"SHOW_SOURCES" default:"true"`

	// APIKeys maps bearer tokens to user ids, e.g. "tok1:alice,tok2:bob".
	APIKeys map[string]string `envconfig:"API_KEYS"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"citewise-documents"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	EmbeddingWorkerInterval time.Duration `envconfig:"EMBEDDING_WORKER_INTERVAL" default:"5s"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}
