package database

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credit-assessment/internal/common/config"
)

func TestOpen(t *testing.T) {
	t.Run("sqlite", func(t *testing.T) {
		cfg := &config.Config{Storage: config.StorageConfig{Driver: DriverSQLite, SQLitePath: "file:open_test?mode=memory&cache=shared"}}
		client, err := Open(cfg)
		require.NoError(t, err)
		defer client.Close()

		assert.Equal(t, DriverSQLite, client.Driver)
		assert.NoError(t, client.Ping(context.Background()))
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := Open(&config.Config{Storage: config.StorageConfig{Driver: "oracle"}})
		assert.Error(t, err)
	})
}

func TestRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := NewRedis(config.RedisConfig{Address: mr.Addr(), ReportTTL: 90})
	defer rdb.Close()

	assert.Equal(t, 90*time.Second, rdb.ReportTTL)
	assert.NoError(t, rdb.Ping(context.Background()))

	mr.Close()
	assert.Error(t, rdb.Ping(context.Background()))
}

func TestElasticsearch(t *testing.T) {
	_, err := NewElasticsearch(config.ElasticsearchConfig{})
	assert.Error(t, err, "addresses are required")

	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(status)
	}))
	defer srv.Close()

	es, err := NewElasticsearch(config.ElasticsearchConfig{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	assert.NoError(t, es.Ping(context.Background()))

	status = http.StatusUnauthorized
	assert.Error(t, es.Ping(context.Background()))
}
