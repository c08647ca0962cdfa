package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/solar-poller/internal/infrastructure/database"
	"github.com/nerrad567/solar-poller/internal/reading"
	_ "github.com/nerrad567/solar-poller/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sqliteConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		Database: database.Config{
			Driver: "sqlite3",
			Path:   filepath.Join(t.TempDir(), "solar.db"),
		},
		Migrate: true,
	}
}

func countRows(t *testing.T, path string) (int, int) {
	t.Helper()

	db, err := database.Open(context.Background(), database.Config{Driver: "sqlite3", Path: path})
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck // Test cleanup

	var count, power int
	require.NoError(t, db.QueryRowContext(context.Background(),
		"SELECT COUNT(*), COALESCE(MAX(Power), -1) FROM inverterdata",
	).Scan(&count, &power))
	return count, power
}

func TestGateway_InsertReading(t *testing.T) {
	cfg := sqliteConfig(t)
	gw := NewGateway(cfg)
	ctx := context.Background()

	require.NoError(t, gw.Connect(ctx))
	defer gw.Close() //nolint:errcheck // Test cleanup
	assert.True(t, gw.Connected())

	at := time.Date(2026, 6, 1, 12, 30, 0, 0, time.UTC)
	assert.True(t, gw.InsertReading(ctx, reading.New(532, at)))

	count, power := countRows(t, cfg.Database.Path)
	assert.Equal(t, 1, count)
	assert.Equal(t, 532, power)
}

func TestGateway_StoresUTC(t *testing.T) {
	cfg := sqliteConfig(t)
	gw := NewGateway(cfg)
	ctx := context.Background()

	require.NoError(t, gw.Connect(ctx))
	defer gw.Close() //nolint:errcheck // Test cleanup

	local := time.Date(2026, 6, 1, 14, 30, 0, 0, time.FixedZone("CEST", 2*60*60))
	require.True(t, gw.InsertReading(ctx, reading.Reading{PowerWatts: 100, Time: local}))

	db, err := database.Open(ctx, database.Config{Driver: "sqlite3", Path: cfg.Database.Path})
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck // Test cleanup

	var stored time.Time
	require.NoError(t, db.QueryRowContext(ctx, "SELECT reading_utc_time FROM inverterdata").Scan(&stored))
	assert.True(t, stored.Equal(local))
	assert.Equal(t, 12, stored.UTC().Hour())
}

func TestGateway_InsertWhenDisconnected(t *testing.T) {
	gw := NewGateway(sqliteConfig(t))

	assert.False(t, gw.Connected())
	assert.NotPanics(t, func() {
		assert.False(t, gw.InsertReading(context.Background(), reading.New(1, time.Now())))
	})
}

func TestGateway_InsertFaultReturnsFalse(t *testing.T) {
	cfg := sqliteConfig(t)
	gw := NewGateway(cfg)
	ctx := context.Background()

	require.NoError(t, gw.Connect(ctx))
	defer gw.Close() //nolint:errcheck // Test cleanup

	// Drop the table behind the gateway's back.
	other, err := database.Open(ctx, database.Config{Driver: "sqlite3", Path: cfg.Database.Path})
	require.NoError(t, err)
	_, err = other.ExecContext(ctx, "DROP TABLE inverterdata")
	require.NoError(t, err)
	require.NoError(t, other.Close())

	assert.NotPanics(t, func() {
		assert.False(t, gw.InsertReading(ctx, reading.New(10, time.Now())))
	})
	// The gateway does not reconnect by itself.
	assert.True(t, gw.Connected())
}

func TestGateway_ConnectFailureLeavesDisconnected(t *testing.T) {
	gw := NewGateway(Config{
		Database: database.Config{
			Driver:         "mysql",
			Host:           "127.0.0.1",
			Port:           1,
			User:           "solar",
			Database:       "solar",
			ConnectTimeout: time.Second,
		},
	})

	err := gw.Connect(context.Background())

	assert.Error(t, err)
	assert.False(t, gw.Connected())
	assert.False(t, gw.InsertReading(context.Background(), reading.New(1, time.Now())))
}

func TestGateway_ReconnectReplacesHandle(t *testing.T) {
	cfg := sqliteConfig(t)
	gw := NewGateway(cfg)
	ctx := context.Background()

	require.NoError(t, gw.Connect(ctx))
	first := gw.db

	require.NoError(t, gw.Connect(ctx))
	defer gw.Close() //nolint:errcheck // Test cleanup

	assert.NotSame(t, first, gw.db)
	// The old handle was closed.
	assert.Error(t, first.PingContext(ctx))

	assert.True(t, gw.InsertReading(ctx, reading.New(7, time.Now())))
}

func TestGateway_FailedReconnectDropsOldHandle(t *testing.T) {
	cfg := sqliteConfig(t)
	gw := NewGateway(cfg)
	ctx := context.Background()

	require.NoError(t, gw.Connect(ctx))

	gw.cfg.Database = database.Config{Driver: "unknown"}
	require.Error(t, gw.Connect(ctx))

	assert.False(t, gw.Connected())
}

func TestGateway_CloseIsIdempotent(t *testing.T) {
	gw := NewGateway(sqliteConfig(t))
	require.NoError(t, gw.Connect(context.Background()))

	require.NoError(t, gw.Close())
	require.NoError(t, gw.Close())
	assert.False(t, gw.Connected())
}
