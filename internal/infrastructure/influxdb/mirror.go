package influxdb

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/nerrad567/solar-poller/internal/infrastructure/config"
)

const (
	pingTimeout = 5 * time.Second

	// Applied when the config leaves batching unset.
	fallbackBatchSize     = 100
	fallbackFlushInterval = 10 * time.Second
)

// Logger defines the logging interface for the mirror.
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

// Mirror queues readings into an InfluxDB v2 bucket. Points are batched by
// the library and sent from its own goroutine, so PublishReading never
// waits on the network. Rejected batches are logged and counted.
type Mirror struct {
	client   influxdb2.Client
	writes   api.WriteAPI
	deviceID string
	logger   Logger

	closed   atomic.Bool
	failures atomic.Int64
}

// Open pings the server once and returns a Mirror writing to cfg.Bucket.
// A nil logger discards the mirror's records.
func Open(ctx context.Context, cfg config.InfluxDBConfig, logger Logger) (*Mirror, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	if logger == nil {
		logger = noopLogger{}
	}

	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, writeOptions(cfg))

	if err := ping(ctx, client); err != nil {
		client.Close()
		return nil, err
	}

	m := &Mirror{
		client:   client,
		writes:   client.WriteAPI(cfg.Org, cfg.Bucket),
		deviceID: cfg.DeviceID,
		logger:   logger,
	}
	go m.drainFailures(m.writes.Errors())

	return m, nil
}

// writeOptions maps the batching settings onto client options. The
// library's own logger is silenced; failures reach the Mirror's logger.
func writeOptions(cfg config.InfluxDBConfig) *influxdb2.Options {
	batch := uint(fallbackBatchSize)
	if cfg.BatchSize > 0 {
		batch = uint(cfg.BatchSize)
	}
	flush := fallbackFlushInterval
	if cfg.FlushInterval > 0 {
		flush = time.Duration(cfg.FlushInterval) * time.Second
	}

	return influxdb2.DefaultOptions().
		SetBatchSize(batch).
		SetFlushInterval(uint(flush.Milliseconds())).
		SetLogLevel(0)
}

func ping(ctx context.Context, client influxdb2.Client) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	up, err := client.Ping(ctx)
	switch {
	case err != nil:
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	case !up:
		return fmt.Errorf("%w: ping reported not ready", ErrUnreachable)
	}
	return nil
}

// drainFailures runs until the write API closes its error channel.
func (m *Mirror) drainFailures(errs <-chan error) {
	for err := range errs {
		m.logger.Warn("influxdb rejected a batch of readings", "error", err)
		m.failures.Add(1)
	}
}

// Name identifies the mirror in log records.
func (m *Mirror) Name() string {
	return "influxdb"
}

// Failures returns how many batches the server has rejected so far.
func (m *Mirror) Failures() int64 {
	return m.failures.Load()
}

// Close sends any queued points and releases the client. Later calls are no-ops.
func (m *Mirror) Close() error {
	if m == nil || !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	m.writes.Flush()
	m.client.Close()
	return nil
}
