package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/solar-poller/internal/infrastructure/config"
	"github.com/nerrad567/solar-poller/internal/reading"
)

const (
	// connectWait bounds how long Open blocks for the first CONNACK.
	connectWait = 10 * time.Second

	// ackTimeout bounds how long a publish may stay unacknowledged before
	// it is logged. PublishReading itself never waits for it.
	ackTimeout = 2 * time.Second

	// closeQuiesce is the time in milliseconds Disconnect allows for in-flight work.
	closeQuiesce = 250
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

// Mirror publishes each reading as the retained latest value on
// <prefix>/inverter/power. Publishing is fire-and-forget: acknowledgements
// are awaited on a separate goroutine and failures only reach the log.
//
// Readings produced while the broker is unreachable are dropped; paho
// keeps reconnecting in the background.
type Mirror struct {
	client   pahomqtt.Client
	topics   Topics
	qos      byte
	clientID string
	logger   Logger

	ackTimeout time.Duration
	inflight   sync.WaitGroup
	closed     atomic.Bool
}

// Open starts the broker connection and waits up to connectWait for it.
// A broker that does not answer in time is not an error: the mirror is
// returned and keeps retrying. A nil logger discards the mirror's records.
func Open(cfg config.MQTTConfig, logger Logger) (*Mirror, error) {
	return open(cfg, logger, pahomqtt.NewClient, connectWait)
}

// open is Open with the paho constructor and the initial wait injected.
func open(cfg config.MQTTConfig, logger Logger, newClient func(*pahomqtt.ClientOptions) pahomqtt.Client, wait time.Duration) (*Mirror, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	if logger == nil {
		logger = noopLogger{}
	}

	m := &Mirror{
		topics:     Topics{Prefix: cfg.TopicPrefix},
		qos:        byte(cfg.QoS),
		clientID:   cfg.Broker.ClientID,
		logger:     logger,
		ackTimeout: ackTimeout,
	}
	m.client = newClient(m.clientOptions(cfg))

	token := m.client.Connect()
	if !token.WaitTimeout(wait) {
		m.logger.Warn("mqtt broker not reachable yet, retrying in background",
			"broker", brokerURL(cfg.Broker),
			"waited", wait.String(),
		)
		return m, nil
	}
	if err := token.Error(); err != nil {
		m.client.Disconnect(0)
		return nil, fmt.Errorf("%w: %w", ErrRefused, err)
	}
	return m, nil
}

// Name identifies the mirror in log records.
func (m *Mirror) Name() string {
	return "mqtt"
}

// Topics returns the topic builder bound to the configured prefix.
func (m *Mirror) Topics() Topics {
	return m.topics
}

// PublishReading hands r to paho and returns without waiting for the
// broker. It fails synchronously only when the mirror is closed or the
// connection is currently down.
func (m *Mirror) PublishReading(_ context.Context, r reading.Reading) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if !m.client.IsConnectionOpen() {
		return ErrNotConnected
	}

	payload, err := buildPowerPayload(r)
	if err != nil {
		return fmt.Errorf("encoding reading: %w", err)
	}

	topic := m.topics.InverterPower()
	m.inflight.Add(1)
	go m.awaitAck(topic, m.client.Publish(topic, m.qos, true, payload))
	return nil
}

// awaitAck logs a publish that fails or stays unacknowledged past ackTimeout.
func (m *Mirror) awaitAck(topic string, token pahomqtt.Token) {
	defer m.inflight.Done()

	timer := time.NewTimer(m.ackTimeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			m.logger.Warn("mqtt publish failed", "topic", topic, "error", err)
		}
	case <-timer.C:
		m.logger.Warn("mqtt publish not acknowledged", "topic", topic, "timeout", m.ackTimeout.String())
	}
}

// announce marks the poller online. paho calls it after every (re)connect.
func (m *Mirror) announce() {
	m.logger.Info("mqtt connected", "status_topic", m.topics.SystemStatus())
	m.client.Publish(m.topics.SystemStatus(), m.qos, true, statusPayload(m.clientID, statusOnline, ""))
}

// Close publishes a graceful offline status, lets pending acknowledgements
// settle and disconnects. Later calls are no-ops.
func (m *Mirror) Close() error {
	if m == nil || !m.closed.CompareAndSwap(false, true) {
		return nil
	}

	if m.client.IsConnectionOpen() {
		token := m.client.Publish(m.topics.SystemStatus(), m.qos, true, statusPayload(m.clientID, statusOffline, reasonShutdown))
		if !token.WaitTimeout(m.ackTimeout) {
			m.logger.Debug("offline status not acknowledged before disconnect")
		}
	}

	m.inflight.Wait()
	m.client.Disconnect(closeQuiesce)
	return nil
}
