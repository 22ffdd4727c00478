package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vectorflow/apps/worker/features/batch"
	"vectorflow/apps/worker/features/job"
	"vectorflow/apps/worker/internal/app"
	"vectorflow/apps/worker/internal/config"
	"vectorflow/apps/worker/internal/testutils"
	"vectorflow/apps/worker/internal/vector"
)

func TestSmoke_UploadAgainstPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping smoke test in short mode")
	}

	suite := testutils.NewIntegrationSuite(t)
	suite.Setup()
	defer suite.Teardown()

	cfg := &config.Config{
		ServerPort:           0,
		UploadBatchSize:      2,
		QdrantGRPCPort:       6334,
		QdrantTimeoutSeconds: 1,
		WeaviateBatchWorkers: 2,
	}
	application, err := app.New(cfg, suite.DB)
	require.NoError(t, err)

	srv := httptest.NewServer(application.Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// A backend with no registered adapter fails the batch without any network call.
	jobID := suite.SeedJob("smoke.pdf", 1)
	batchID := suite.SeedBatch(jobID, vector.Metadata{Type: "MILVUS", Environment: "local", IndexName: "docs"})

	ctx := context.Background()
	err = application.Orchestrator.UploadBatch(ctx, batchID, []vector.Chunk{{Text: "hello", Vector: []float32{0.1, 0.2}}})
	require.NoError(t, err)

	b, err := batch.NewPostgresRepo(suite.DB).Get(ctx, batchID)
	require.NoError(t, err)
	assert.Equal(t, batch.StatusFailed, b.Status)

	j, err := job.NewPostgresRepo(suite.DB).Get(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, 1, j.BatchesProcessed)
	assert.Equal(t, job.StatusFailed, j.Status)

	resp, err = http.Get(srv.URL + "/jobs/" + jobID)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
