package batch_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"vectorflow/apps/worker/features/batch"
	"vectorflow/apps/worker/internal/vector"
)

func TestHandler_Get(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		repo := new(MockRepo)
		repo.On("Get", mock.Anything, "b1").Return(&batch.Batch{
			ID:       "b1",
			JobID:    "j1",
			Status:   batch.StatusFailed,
			Retries:  2,
			Metadata: vector.Metadata{Type: vector.Weaviate, Environment: "http://weaviate:8080", IndexName: "Docs"},
		}, nil)

		req := httptest.NewRequest("GET", "/batches/b1", nil)
		req.SetPathValue("id", "b1")
		w := httptest.NewRecorder()

		batch.NewHandler(batch.NewService(repo)).Get(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var body map[string]map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "FAILED", body["data"]["status"])
		assert.EqualValues(t, 2, body["data"]["retries"])
		meta := body["data"]["vector_db_metadata"].(map[string]interface{})
		assert.Equal(t, "WEAVIATE", meta["vector_db_type"])
	})

	t.Run("Not Found", func(t *testing.T) {
		repo := new(MockRepo)
		repo.On("Get", mock.Anything, "b2").Return(nil, batch.ErrNotFound)

		req := httptest.NewRequest("GET", "/batches/b2", nil)
		req.SetPathValue("id", "b2")
		w := httptest.NewRecorder()

		batch.NewHandler(batch.NewService(repo)).Get(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
