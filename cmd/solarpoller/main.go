// Solar Poller - inverter power logger
//
// This is the main entry point for the solar poller. Every sampling period
// it reads the instantaneous output of a grid-tie inverter from its embedded
// web interface and appends the value to the inverterdata table, optionally
// mirroring it to InfluxDB and MQTT.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	_ "github.com/nerrad567/solar-poller/migrations"

	"github.com/nerrad567/solar-poller/internal/infrastructure/config"
	"github.com/nerrad567/solar-poller/internal/infrastructure/database"
	"github.com/nerrad567/solar-poller/internal/infrastructure/influxdb"
	"github.com/nerrad567/solar-poller/internal/infrastructure/logging"
	"github.com/nerrad567/solar-poller/internal/infrastructure/mqtt"
	"github.com/nerrad567/solar-poller/internal/inverter"
	"github.com/nerrad567/solar-poller/internal/poller"
	"github.com/nerrad567/solar-poller/internal/schedule"
	"github.com/nerrad567/solar-poller/internal/storage"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on Ctrl+C and SIGTERM; the loop treats cancellation as a clean exit.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

// run loads configuration, builds the logger and runs the poller inside
// the fault boundary.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on interrupt, or the fault that stopped the poller
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version).With("run_id", uuid.NewString())
	defer log.Close() //nolint:errcheck // Nothing left to log to

	log.Info("starting solar poller",
		"version", version,
		"commit", commit,
		"build_date", date,
		"config", configPath,
	)

	err = log.Guard(func() error {
		return poll(ctx, cfg, log)
	})
	if logging.IsInterrupt(err) {
		log.Info("interrupted, solar poller stopped")
		return nil
	}
	return err
}

// poll wires the components together and blocks in the poll loop.
func poll(ctx context.Context, cfg *config.Config, log *logging.Logger) error {
	clock := schedule.RealClock()
	start := clock.Now()

	// Both schedules share the start instant so offline retries land on
	// boundaries of the same grid as the sampling period.
	sampling := schedule.New(clock, start, cfg.GetPollInterval())
	offline := schedule.New(clock, start, cfg.GetOfflineRetryInterval())

	reader := inverter.New(inverter.Config{
		StatusURL:      cfg.Inverter.StatusURL,
		StatusUser:     cfg.Inverter.StatusUser,
		StatusPassword: cfg.Inverter.StatusPassword,
		LoginURL:       cfg.Inverter.LoginURL,
		LoginUser:      cfg.Inverter.LoginUser,
		LoginPassword:  cfg.Inverter.LoginPassword,
		Timeout:        cfg.GetRequestTimeout(),
		MaxAttempts:    cfg.Inverter.MaxAttempts,
	}, offline)
	reader.SetLogger(log.With("component", "inverter"))

	gateway := storage.NewGateway(storage.Config{
		Database: database.Config{
			Driver:         cfg.Database.Driver,
			User:           cfg.Database.User,
			Password:       cfg.Database.Password,
			Host:           cfg.Database.Host,
			Port:           cfg.Database.Port,
			Database:       cfg.Database.Database,
			Path:           cfg.Database.Path,
			SSLMode:        cfg.Database.SSLMode,
			ConnectTimeout: cfg.GetConnectTimeout(),
		},
		Migrate: cfg.Database.Migrate,
	})
	gateway.SetLogger(log.With("component", "storage"))
	defer func() {
		log.Info("closing database")
		if closeErr := gateway.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	// An unreachable database is not fatal: the loop reconnects after
	// the first failed insert.
	if connErr := gateway.Connect(ctx); connErr != nil {
		log.Warn("starting without database connection", "error", connErr)
	}

	loop := poller.New(reader, gateway, sampling, clock)
	loop.SetLogger(log.With("component", "poller"))

	if cfg.InfluxDB.Enabled {
		influxMirror, influxErr := influxdb.Open(ctx, cfg.InfluxDB, log.With("component", "influxdb"))
		if influxErr != nil {
			log.Warn("InfluxDB mirror disabled", "error", influxErr)
		} else {
			defer func() {
				log.Info("closing InfluxDB mirror")
				if closeErr := influxMirror.Close(); closeErr != nil {
					log.Error("error closing InfluxDB", "error", closeErr)
				}
			}()
			loop.AddSink(influxMirror)
			log.Info("InfluxDB mirror connected",
				"url", cfg.InfluxDB.URL,
				"bucket", cfg.InfluxDB.Bucket,
			)
		}
	}

	if cfg.MQTT.Enabled {
		mqttMirror, mqttErr := mqtt.Open(cfg.MQTT, log.With("component", "mqtt"))
		if mqttErr != nil {
			log.Warn("MQTT mirror disabled", "error", mqttErr)
		} else {
			defer func() {
				log.Info("closing MQTT mirror")
				if closeErr := mqttMirror.Close(); closeErr != nil {
					log.Error("error closing MQTT", "error", closeErr)
				}
			}()
			loop.AddSink(mqttMirror)
			log.Info("MQTT mirror started",
				"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
				"topic", mqttMirror.Topics().InverterPower(),
			)
		}
	}

	log.Info("polling inverter",
		"interval", sampling.Period().String(),
		"offline_retry_interval", offline.Period().String(),
	)
	return loop.Run(ctx)
}

// getConfigPath returns the configuration file path.
// Uses SOLARPOLLER_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("SOLARPOLLER_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
