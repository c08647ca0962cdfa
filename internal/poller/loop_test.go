package poller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/solar-poller/internal/infrastructure/database"
	"github.com/nerrad567/solar-poller/internal/inverter"
	"github.com/nerrad567/solar-poller/internal/reading"
	"github.com/nerrad567/solar-poller/internal/schedule"
	"github.com/nerrad567/solar-poller/internal/storage"
	_ "github.com/nerrad567/solar-poller/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplingPeriod = 180 * time.Second

var epoch = time.Date(2026, 6, 1, 4, 0, 0, 0, time.UTC)

type fetchResult struct {
	watts int
	ok    bool
	work  time.Duration
}

// scriptedReader returns results in order, advancing the clock by each
// result's work time. Once the script runs out it cancels the loop.
type scriptedReader struct {
	clock   *schedule.FakeClock
	results []fetchResult
	cancel  context.CancelFunc
	calls   int
}

func (r *scriptedReader) FetchPower(ctx context.Context) (int, bool, error) {
	if r.calls >= len(r.results) {
		r.cancel()
		return 0, false, ctx.Err()
	}
	res := r.results[r.calls]
	r.calls++
	r.clock.Advance(res.work)
	return res.watts, res.ok, nil
}

// recordingStore logs every call in order.
type recordingStore struct {
	calls    []string
	inserts  []reading.Reading
	failures map[int]bool // insert index -> fail
	onInsert func()
}

func (s *recordingStore) Connect(context.Context) error {
	s.calls = append(s.calls, "connect")
	return nil
}

func (s *recordingStore) InsertReading(_ context.Context, r reading.Reading) bool {
	idx := len(s.inserts)
	s.inserts = append(s.inserts, r)
	s.calls = append(s.calls, "insert")
	if s.onInsert != nil {
		s.onInsert()
	}
	return !s.failures[idx]
}

type recordingSink struct {
	name     string
	err      error
	received []reading.Reading
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) PublishReading(_ context.Context, r reading.Reading) error {
	s.received = append(s.received, r)
	return s.err
}

func newScriptedLoop(results []fetchResult, store Store) (*Loop, *schedule.FakeClock, context.Context) {
	clock := schedule.NewFakeClock(epoch)
	ctx, cancel := context.WithCancel(context.Background())
	reader := &scriptedReader{clock: clock, results: results, cancel: cancel}
	loop := New(reader, store, schedule.New(clock, clock.Now(), samplingPeriod), clock)
	return loop, clock, ctx
}

func TestLoop_StoresEachReading(t *testing.T) {
	store := &recordingStore{}
	loop, clock, ctx := newScriptedLoop([]fetchResult{
		{watts: 100, ok: true, work: 2 * time.Second},
		{watts: 200, ok: true, work: 5 * time.Second},
	}, store)

	err := loop.Run(ctx)

	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, store.inserts, 2)
	assert.Equal(t, 100, store.inserts[0].PowerWatts)
	assert.Equal(t, 200, store.inserts[1].PowerWatts)

	// Timestamps are taken after the fetch, in UTC.
	assert.Equal(t, epoch.Add(2*time.Second), store.inserts[0].Time)
	assert.Equal(t, epoch.Add(samplingPeriod+5*time.Second), store.inserts[1].Time)
	assert.Equal(t, time.UTC, store.inserts[0].Time.Location())

	assert.Equal(t, []time.Duration{178 * time.Second, 175 * time.Second}, clock.Sleeps())
	assert.Equal(t, Stats{Cycles: 3, Stored: 2}, loop.Stats())
}

func TestLoop_ReconnectsExactlyOncePerFailure(t *testing.T) {
	store := &recordingStore{failures: map[int]bool{1: true, 2: true}}
	loop, _, ctx := newScriptedLoop([]fetchResult{
		{watts: 1, ok: true},
		{watts: 2, ok: true},
		{watts: 3, ok: true},
		{watts: 4, ok: true},
	}, store)

	require.ErrorIs(t, loop.Run(ctx), context.Canceled)

	assert.Equal(t, []string{"insert", "insert", "connect", "insert", "connect", "insert"}, store.calls)
	assert.Equal(t, StatePolling, loop.State())
	assert.Equal(t, 2, loop.Stats().Reconnects)
	assert.Equal(t, 2, loop.Stats().Stored)
}

func TestLoop_AbsentReadingIsSkipped(t *testing.T) {
	store := &recordingStore{}
	loop, clock, ctx := newScriptedLoop([]fetchResult{
		{ok: false, work: time.Second},
		{watts: 9, ok: true},
	}, store)

	require.ErrorIs(t, loop.Run(ctx), context.Canceled)

	assert.Equal(t, []string{"insert"}, store.calls)
	assert.Equal(t, 9, store.inserts[0].PowerWatts)
	assert.Equal(t, 1, loop.Stats().Skipped)
	assert.Equal(t, 0, loop.Stats().Reconnects)
	// The skipped cycle still waits for the next boundary.
	assert.Equal(t, []time.Duration{179 * time.Second, samplingPeriod}, clock.Sleeps())
}

func TestLoop_StateDuringRecovery(t *testing.T) {
	var loop *Loop
	var seen []State

	store := &recordingStore{failures: map[int]bool{0: true}}
	observer := &observingStore{recordingStore: store, onConnect: func() { seen = append(seen, loop.State()) }}

	loop, _, ctx := newScriptedLoop([]fetchResult{{watts: 1, ok: true}}, observer)

	require.ErrorIs(t, loop.Run(ctx), context.Canceled)

	assert.Equal(t, []State{StateRecovering}, seen)
	assert.Equal(t, StatePolling, loop.State())
}

// observingStore runs a hook when Connect is called.
type observingStore struct {
	*recordingStore
	onConnect func()
}

func (s *observingStore) Connect(ctx context.Context) error {
	s.onConnect()
	return s.recordingStore.Connect(ctx)
}

func TestLoop_SinkFailureDoesNotAffectState(t *testing.T) {
	store := &recordingStore{}
	good := &recordingSink{name: "mqtt"}
	bad := &recordingSink{name: "influxdb", err: errors.New("broker down")}

	loop, _, ctx := newScriptedLoop([]fetchResult{
		{watts: 5, ok: true},
		{ok: false},
		{watts: 6, ok: true},
	}, store)
	loop.AddSink(bad)
	loop.AddSink(good)

	require.ErrorIs(t, loop.Run(ctx), context.Canceled)

	assert.Len(t, store.inserts, 2)
	assert.Len(t, good.received, 2)
	assert.Len(t, bad.received, 2)
	assert.Equal(t, StatePolling, loop.State())
	assert.NotContains(t, store.calls, "connect")
}

func TestLoop_NoDriftOverManyCycles(t *testing.T) {
	const cycles = 200

	results := make([]fetchResult, cycles)
	for i := range results {
		results[i] = fetchResult{watts: i, ok: i%7 != 0, work: time.Duration(i%150) * time.Second}
	}

	store := &recordingStore{}
	loop, clock, ctx := newScriptedLoop(results, store)

	require.ErrorIs(t, loop.Run(ctx), context.Canceled)

	assert.Equal(t, cycles*samplingPeriod, clock.Now().Sub(epoch))
	for i, r := range store.inserts {
		// Each reading lands in its own sampling slot.
		slot := r.Time.Sub(epoch) / samplingPeriod
		if i > 0 {
			prev := store.inserts[i-1].Time.Sub(epoch) / samplingPeriod
			assert.Greater(t, slot, prev)
		}
	}
}

// Integration: real inverter reader against an HTTP fixture, real gateway on sqlite.

type inverterFixture struct {
	mu     sync.Mutex
	calls  int
	status func(call int, w http.ResponseWriter, r *http.Request)
}

func (f *inverterFixture) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/login" {
		fmt.Fprint(w, "ok")
		return
	}
	f.mu.Lock()
	call := f.calls
	f.calls++
	f.mu.Unlock()
	f.status(call, w, r)
}

func newInverterReader(baseURL string, clock schedule.Clock, start time.Time, timeout time.Duration) *inverter.Reader {
	return inverter.New(inverter.Config{
		StatusURL:      baseURL + "/status",
		StatusUser:     "admin",
		StatusPassword: "admin",
		LoginURL:       baseURL + "/login",
		LoginUser:      "admin",
		LoginPassword:  "admin",
		Timeout:        timeout,
		MaxAttempts:    10,
	}, schedule.New(clock, start, 900*time.Second))
}

func TestScenario_ReadingStoredInDatabase(t *testing.T) {
	srv := httptest.NewServer(&inverterFixture{
		status: func(_ int, w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, "<html><script>var webdata_now_p = 532;</script></html>")
		},
	})
	defer srv.Close()

	dbPath := filepath.Join(t.TempDir(), "solar.db")
	gw := storage.NewGateway(storage.Config{
		Database: database.Config{Driver: "sqlite3", Path: dbPath},
		Migrate:  true,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, gw.Connect(ctx))
	defer gw.Close() //nolint:errcheck // Test cleanup

	clock := schedule.NewFakeClock(time.Now())
	clock.OnSleep(func(time.Duration) { cancel() })
	start := clock.Now()

	loop := New(newInverterReader(srv.URL, clock, start, 5*time.Second), gw, schedule.New(clock, start, samplingPeriod), clock)

	require.ErrorIs(t, loop.Run(ctx), context.Canceled)

	db, err := database.Open(context.Background(), database.Config{Driver: "sqlite3", Path: dbPath})
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck // Test cleanup

	var (
		count int
		power int
		at    time.Time
	)
	require.NoError(t, db.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM inverterdata").Scan(&count))
	require.NoError(t, db.QueryRowContext(context.Background(), "SELECT Power, reading_utc_time FROM inverterdata").Scan(&power, &at))

	assert.Equal(t, 1, count)
	assert.Equal(t, 532, power)
	assert.WithinDuration(t, time.Now().UTC(), at, time.Minute)
}

func TestScenario_TimeoutsThenZero(t *testing.T) {
	srv := httptest.NewServer(&inverterFixture{
		status: func(call int, w http.ResponseWriter, r *http.Request) {
			if call < 3 {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
				return
			}
			fmt.Fprint(w, "var webdata_now_p = 0;")
		},
	})
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := &recordingStore{onInsert: cancel}
	clock := schedule.NewFakeClock(epoch)
	start := clock.Now()

	loop := New(newInverterReader(srv.URL, clock, start, 100*time.Millisecond), store, schedule.New(clock, start, samplingPeriod), clock)

	require.ErrorIs(t, loop.Run(ctx), context.Canceled)

	require.Len(t, store.inserts, 1)
	assert.Equal(t, 0, store.inserts[0].PowerWatts)
	assert.Equal(t, []string{"insert"}, store.calls)
}

func TestLoop_ReaderCancellationStopsLoop(t *testing.T) {
	store := &recordingStore{}
	loop, _, ctx := newScriptedLoop(nil, store)

	err := loop.Run(ctx)

	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, store.calls)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "POLLING", StatePolling.String())
	assert.Equal(t, "RECOVERING", StateRecovering.String())
}
