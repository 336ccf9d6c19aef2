package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/hexdraft/internal/config"
	"github.com/cory-johannsen/hexdraft/internal/storage/postgres"
	"github.com/cory-johannsen/hexdraft/internal/testutil"
)

func TestNewPool_DisabledHistory(t *testing.T) {
	cfg := config.Default().Database
	cfg.Enabled = false
	pool, err := postgres.NewPool(context.Background(), cfg)
	assert.ErrorIs(t, err, postgres.ErrHistoryDisabled)
	assert.Nil(t, pool)
}

func TestNewPool_TagsConnections(t *testing.T) {
	pc := testutil.NewPostgresContainer(t)

	var name string
	err := pc.RawPool.QueryRow(context.Background(), `SELECT current_setting('application_name')`).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, postgres.ApplicationName, name)
	assert.NoError(t, pc.Pool.Health(context.Background(), 5*time.Second))
}

func TestPool_MonitorStopsWhenDone(t *testing.T) {
	pc := testutil.NewPostgresContainer(t)
	core, logs := observer.New(zap.DebugLevel)

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		pc.Pool.Monitor(done, 10*time.Millisecond, time.Second, zap.New(core))
		close(stopped)
	}()

	time.Sleep(50 * time.Millisecond)
	close(done)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Monitor did not return after done was closed")
	}
	assert.Zero(t, logs.Len(), "a healthy database logs nothing")
}
