package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"vectorflow/apps/worker/internal/vector"
)

type IntegrationSuite struct {
	T       *testing.T
	DB      *sql.DB
	ConnStr string

	pgContainer *postgres.PostgresContainer
}

func NewIntegrationSuite(t *testing.T) *IntegrationSuite {
	return &IntegrationSuite{T: t}
}

func (s *IntegrationSuite) Setup() {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("vectorflow_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(s.T, err)
	s.pgContainer = pgContainer

	s.ConnStr, err = pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(s.T, err)

	s.DB, err = sql.Open("postgres", s.ConnStr)
	require.NoError(s.T, err)

	m, err := migrate.New(MigrationPath(), s.ConnStr)
	require.NoError(s.T, err)
	require.NoError(s.T, m.Up())
}

// MigrationPath points at the repository's migrations directory.
func MigrationPath() string {
	_, b, _, _ := runtime.Caller(0)
	return fmt.Sprintf("file://%s/../../migrations", filepath.Dir(b))
}

// HostPort returns the mapped address of the Postgres container.
func (s *IntegrationSuite) HostPort() (string, int) {
	ctx := context.Background()
	host, err := s.pgContainer.Host(ctx)
	require.NoError(s.T, err)
	port, err := s.pgContainer.MappedPort(ctx, "5432/tcp")
	require.NoError(s.T, err)
	return host, port.Int()
}

func (s *IntegrationSuite) SeedJob(filename string, totalBatches int) string {
	var id string
	err := s.DB.QueryRowContext(context.Background(),
		`INSERT INTO jobs (source_filename, total_batches) VALUES ($1, $2) RETURNING id`,
		filename, totalBatches).Scan(&id)
	require.NoError(s.T, err)
	return id
}

func (s *IntegrationSuite) SeedBatch(jobID string, meta vector.Metadata) string {
	var id string
	err := s.DB.QueryRowContext(context.Background(),
		`INSERT INTO batches (job_id, vector_db_type, environment, index_name) VALUES ($1, $2, $3, $4) RETURNING id`,
		jobID, meta.Type, meta.Environment, meta.IndexName).Scan(&id)
	require.NoError(s.T, err)
	return id
}

func (s *IntegrationSuite) Teardown() {
	ctx := context.Background()
	if s.DB != nil {
		s.DB.Close()
	}
	if s.pgContainer != nil {
		s.pgContainer.Terminate(ctx)
	}
}
