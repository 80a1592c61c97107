// internal/handlers/health_test.go
package handlers_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ammerola/pharmacy-pos/internal/adapters/memory"
	"github.com/ammerola/pharmacy-pos/internal/handlers"
	"github.com/ammerola/pharmacy-pos/test/helpers"
	"github.com/ammerola/pharmacy-pos/test/mocks"
)

type fakeInspector struct {
	err error
}

func (f fakeInspector) Queues() ([]string, error) {
	return []string{"critical", "default"}, f.err
}

func (f fakeInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return &asynq.QueueInfo{Queue: queue, Size: 2, Pending: 1, Active: 1}, nil
}

func (f fakeInspector) Servers() ([]*asynq.ServerInfo, error) {
	return []*asynq.ServerInfo{{ActiveWorkers: make([]*asynq.WorkerInfo, 3)}}, nil
}

func TestHealthHandler_Health(t *testing.T) {
	cfg := helpers.LoadTestConfig()
	log := helpers.TestLogger()

	t.Run("all_dependencies_healthy", func(t *testing.T) {
		rdb := helpers.SetupTestRedis(t)
		h := handlers.NewHealthHandler(memory.NewStore(log), rdb.Client, fakeInspector{}, cfg, log)

		w := httptest.NewRecorder()
		h.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var status handlers.HealthStatus
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
		assert.Equal(t, "healthy", status.Status)
		assert.Equal(t, "test", status.Environment)
		assert.Contains(t, status.Services, "database")
		assert.Contains(t, status.Services, "redis")
		assert.Equal(t, float64(3), status.Services["queues"].Details["active_workers"])
		assert.Equal(t, "no-cache, no-store, must-revalidate", w.Header().Get("Cache-Control"))
	})

	t.Run("database_down_degrades", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		database := mocks.NewMockDatabase(ctrl)
		database.EXPECT().Ping(gomock.Any()).Return(errors.New("connection refused"))

		h := handlers.NewHealthHandler(database, nil, nil, cfg, log)
		w := httptest.NewRecorder()
		h.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), `"degraded"`)
	})

	t.Run("queue_inspector_failure", func(t *testing.T) {
		h := handlers.NewHealthHandler(memory.NewStore(log), nil, fakeInspector{err: errors.New("redis gone")}, cfg, log)
		w := httptest.NewRecorder()
		h.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestHealthHandler_Readiness(t *testing.T) {
	cfg := helpers.LoadTestConfig()
	log := helpers.TestLogger()

	rdb := helpers.SetupTestRedis(t)
	h := handlers.NewHealthHandler(memory.NewStore(log), rdb.Client, nil, cfg, log)
	router := handlers.NewRouter(handlers.Routes{Health: h})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ready":true,"details":{"database":"ready","redis":"ready"}}`, w.Body.String())

	rdb.Server.Close()
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"redis":"not ready"`)
}
