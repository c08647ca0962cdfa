package poller

import (
	"context"

	"github.com/nerrad567/solar-poller/internal/reading"
	"github.com/nerrad567/solar-poller/internal/schedule"
)

// State is the loop's recovery state.
type State int

const (
	// StatePolling is the steady state.
	StatePolling State = iota

	// StateRecovering is entered when an insert fails and left once a
	// reconnect has been attempted.
	StateRecovering
)

// String returns the state name.
func (s State) String() string {
	if s == StateRecovering {
		return "RECOVERING"
	}
	return "POLLING"
}

// Reader produces the current power output.
// err is reserved for cancellation; ok is false for an unreadable cycle.
type Reader interface {
	FetchPower(ctx context.Context) (watts int, ok bool, err error)
}

// Store persists readings.
type Store interface {
	Connect(ctx context.Context) error
	InsertReading(ctx context.Context, r reading.Reading) bool
}

// Sink is an optional secondary destination for readings.
type Sink interface {
	Name() string
	PublishReading(ctx context.Context, r reading.Reading) error
}

// Logger defines the logging interface for the loop.
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

// Stats counts loop outcomes since start.
type Stats struct {
	Cycles     int
	Stored     int
	Skipped    int
	Reconnects int
}

// Loop ties the reader and the store to the sampling schedule.
// It is single-goroutine; Run must not be called concurrently.
type Loop struct {
	reader   Reader
	store    Store
	sampling *schedule.Schedule
	clock    schedule.Clock
	sinks    []Sink
	logger   Logger

	state State
	stats Stats
}

// New creates a Loop. clock stamps readings and should be the clock
// driving sampling.
func New(reader Reader, store Store, sampling *schedule.Schedule, clock schedule.Clock) *Loop {
	return &Loop{
		reader:   reader,
		store:    store,
		sampling: sampling,
		clock:    clock,
		logger:   noopLogger{},
		state:    StatePolling,
	}
}

// SetLogger sets the logger for the loop.
func (l *Loop) SetLogger(logger Logger) {
	l.logger = logger
}

// AddSink registers a mirror that receives every reading obtained, stored or not.
func (l *Loop) AddSink(sink Sink) {
	l.sinks = append(l.sinks, sink)
}

// State returns the current recovery state.
func (l *Loop) State() State {
	return l.state
}

// Stats returns the outcome counters.
func (l *Loop) Stats() Stats {
	return l.stats
}

// Run polls until ctx is cancelled and returns ctx's error.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("poll loop started", "interval", l.sampling.Period().String())

	for {
		if err := l.cycle(ctx); err != nil {
			return err
		}
		if err := l.sampling.Wait(ctx); err != nil {
			return err
		}
	}
}

// cycle performs one fetch-stamp-store pass.
func (l *Loop) cycle(ctx context.Context) error {
	l.stats.Cycles++

	watts, ok, err := l.reader.FetchPower(ctx)
	if err != nil {
		return err
	}
	now := l.clock.Now().UTC()

	if !ok {
		l.stats.Skipped++
		l.logger.Error("power output unavailable, skipping cycle", "cycle", l.stats.Cycles)
		return nil
	}

	r := reading.New(watts, now)
	if l.store.InsertReading(ctx, r) {
		l.stats.Stored++
	} else {
		l.reconnect(ctx)
	}

	l.publish(ctx, r)
	return nil
}

// reconnect reconnects the store exactly once and returns to polling
// without checking that the new connection works.
func (l *Loop) reconnect(ctx context.Context) {
	l.state = StateRecovering
	l.logger.Warn("storing reading failed, reconnecting to database", "state", l.state.String())

	l.stats.Reconnects++
	if err := l.store.Connect(ctx); err != nil {
		l.logger.Debug("reconnect did not succeed", "error", err)
	}

	l.state = StatePolling
}

// publish forwards r to every sink. Sink failures never affect the loop.
func (l *Loop) publish(ctx context.Context, r reading.Reading) {
	for _, sink := range l.sinks {
		if err := sink.PublishReading(ctx, r); err != nil {
			l.logger.Warn("mirror publish failed", "sink", sink.Name(), "error", err)
		}
	}
}
