package storage

import (
	"context"
	"fmt"

	"github.com/nerrad567/solar-poller/internal/infrastructure/database"
	"github.com/nerrad567/solar-poller/internal/reading"
)

// insertReadingSQL writes one sample. Placeholders are rebound per dialect.
const insertReadingSQL = "INSERT INTO inverterdata (Power, reading_utc_time) VALUES (?, ?)"

// Config holds the connection settings of the readings database.
type Config struct {
	Database database.Config

	// Migrate applies pending schema migrations after each successful connect.
	Migrate bool
}

// Logger defines the logging interface for the gateway.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Gateway owns the single live database connection.
// It is not safe for concurrent use.
type Gateway struct {
	cfg    Config
	db     *database.DB
	logger Logger
}

// NewGateway creates a disconnected Gateway.
func NewGateway(cfg Config) *Gateway {
	return &Gateway{
		cfg:    cfg,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the gateway.
func (g *Gateway) SetLogger(logger Logger) {
	g.logger = logger
}

// Connect discards the current connection, if any, and opens a new one.
//
// On failure the error is logged and the Gateway stays disconnected until
// the next Connect; the returned error is informational only.
func (g *Gateway) Connect(ctx context.Context) error {
	g.closeCurrent()

	db, err := database.Open(ctx, g.cfg.Database)
	if err != nil {
		g.logger.Error("database connection failed", "error", err)
		return fmt.Errorf("connecting to database: %w", err)
	}

	if g.cfg.Migrate {
		// A failed migration does not invalidate the connection: the
		// table may already exist under a user without DDL rights.
		if err := db.Migrate(ctx); err != nil {
			g.logger.Warn("database migration failed", "database", db.Name(), "error", err)
		}
	}

	g.db = db
	g.logger.Info("connected to database",
		"database", db.Name(),
		"driver", string(db.Dialect()),
	)
	return nil
}

// InsertReading writes r and commits. Any database fault, including a
// missing connection, is logged and reported as false.
func (g *Gateway) InsertReading(ctx context.Context, r reading.Reading) bool {
	g.logger.Info("storing reading",
		"power_watts", r.PowerWatts,
		"reading_utc_time", r.Time.UTC().Format("2006-01-02 15:04:05"),
	)

	if err := g.insert(ctx, r); err != nil {
		g.logger.Error("error adding entry to database", "error", err)
		return false
	}

	g.logger.Info("successfully added entry to database")
	return true
}

func (g *Gateway) insert(ctx context.Context, r reading.Reading) error {
	if g.db == nil {
		return ErrNotConnected
	}

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	if _, err := tx.ExecContext(ctx,
		g.db.Dialect().Rebind(insertReadingSQL),
		r.PowerWatts,
		r.Time.UTC(),
	); err != nil {
		return fmt.Errorf("inserting reading: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing reading: %w", err)
	}
	return nil
}

// Connected reports whether the last Connect succeeded.
// It does not probe the server.
func (g *Gateway) Connected() bool {
	return g.db != nil
}

// Close releases the connection. The Gateway may be reconnected afterwards.
func (g *Gateway) Close() error {
	if g.db == nil {
		return nil
	}
	err := g.db.Close()
	g.db = nil
	return err
}

// closeCurrent drops the existing handle; errors from a dead connection are expected.
func (g *Gateway) closeCurrent() {
	if g.db == nil {
		return
	}
	if err := g.db.Close(); err != nil {
		g.logger.Debug("closing previous database connection", "error", err)
	}
	g.db = nil
}
