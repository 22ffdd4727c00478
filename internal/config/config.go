package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingRequired = errors.New("missing required configuration")

type Config struct {
	DBHost string `envconfig:"DB_HOST" default:"postgres"`
	DBPort int    `envconfig:"DB_PORT" default:"5432"`
	DBUser string `envconfig:"DB_USER" default:"vectorflow"`
	DBPass string `envconfig:"DB_PASS" default:"password"`
	DBName string `envconfig:"DB_NAME" default:"vectorflow"`

	NSQLookupd string `envconfig:"NSQ_LOOKUPD" default:"nsqlookupd:4161"`
	NSQDHTTP   string `envconfig:"NSQD_HTTP" default:"nsqd:4151"`

	UploadConcurrency int    `envconfig:"UPLOAD_CONCURRENCY" default:"4"`
	MigrationPath     string `envconfig:"MIGRATION_PATH" default:"file://migrations"`

	// Vector stores
	VectorDBKey          string `envconfig:"VECTOR_DB_KEY"`
	LocalVectorDB        string `envconfig:"LOCAL_VECTOR_DB"`
	UploadBatchSize      int    `envconfig:"VECTOR_UPLOAD_BATCH_SIZE" default:"128"`
	QdrantGRPCPort       int    `envconfig:"QDRANT_GRPC_PORT" default:"6334"`
	QdrantTimeoutSeconds int    `envconfig:"QDRANT_TIMEOUT_SECONDS" default:"5"`
	WeaviateBatchWorkers int    `envconfig:"WEAVIATE_BATCH_WORKERS" default:"2"`

	// Server
	ServerPort int    `envconfig:"SERVER_PORT" default:"8081"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Ignore errors, as env vars might be set in the shell
	_ = godotenv.Load(".env")

	cwd, _ := os.Getwd()
	rootEnv := filepath.Join(cwd, "../../.env")
	_ = godotenv.Load(rootEnv)

	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBHost == "" {
		return fmt.Errorf("%w: DB_HOST", ErrMissingRequired)
	}
	if c.DBUser == "" {
		return fmt.Errorf("%w: DB_USER", ErrMissingRequired)
	}
	if c.DBName == "" {
		return fmt.Errorf("%w: DB_NAME", ErrMissingRequired)
	}
	if c.UploadBatchSize <= 0 {
		return fmt.Errorf("%w: VECTOR_UPLOAD_BATCH_SIZE must be positive", ErrMissingRequired)
	}
	if c.WeaviateBatchWorkers <= 0 {
		return fmt.Errorf("%w: WEAVIATE_BATCH_WORKERS must be positive", ErrMissingRequired)
	}
	return nil
}
