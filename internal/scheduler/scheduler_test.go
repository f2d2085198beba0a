package scheduler

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RainbowCandyX/sserver-status/internal/models"
	"github.com/RainbowCandyX/sserver-status/internal/store"
)

type captureSink struct {
	mu         sync.Mutex
	inserts    []models.CheckResult
	insertErr  error
	pruneCalls int
}

func (s *captureSink) Insert(r models.CheckResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserts = append(s.inserts, r)
	return s.insertErr
}

func (s *captureSink) PruneOlderThan(days int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneCalls++
	return 0, nil
}

func (s *captureSink) insertCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inserts)
}

func (s *captureSink) prunes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pruneCalls
}

type captureBus struct {
	mu     sync.Mutex
	events []models.Event
}

func (b *captureBus) Publish(ev models.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
}

func (b *captureBus) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

func addServer(st *store.Store, name string, enabled bool) models.Server {
	srv := models.Server{ID: uuid.New(), Name: name, Host: "10.0.0.1", Port: 8388, Enabled: enabled}
	st.UpsertServer(srv)
	return srv
}

// checkRecorder signals every pipeline invocation on a channel.
func checkRecorder(ch chan uuid.UUID) CheckFunc {
	return func(srv models.Server) models.CheckResult {
		ch <- srv.ID
		return models.CheckResult{
			ServerID:  srv.ID,
			Timestamp: time.Now().UTC(),
			TCP:       models.TCPResult{Reachable: true},
		}
	}
}

func awaitChecks(t *testing.T, ch chan uuid.UUID, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for check %d of %d", i+1, n)
		}
	}
}

func expectNoCheck(t *testing.T, ch chan uuid.UUID) {
	t.Helper()
	select {
	case id := <-ch:
		t.Fatalf("unexpected check for %s", id)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestIntervalChangeFiresOneImmediateCycle(t *testing.T) {
	st := store.New(60)
	addServer(st, "a", true)
	sink := &captureSink{}
	bus := &captureBus{}
	mock := clock.NewMock()
	checks := make(chan uuid.UUID, 64)

	s := New(st, sink, bus, checkRecorder(checks), mock)
	s.Start()
	defer s.Stop()
	time.Sleep(20 * time.Millisecond) // scheduler owns the ticker now

	// 10s into a 60s period: no tick yet
	mock.Add(10 * time.Second)
	expectNoCheck(t, checks)

	// reconfigure mid-wait: exactly one early tick fires
	st.SetInterval(5)
	awaitChecks(t, checks, 1)
	expectNoCheck(t, checks)

	// then periodic ticking resumes at the new cadence
	mock.Add(5 * time.Second)
	awaitChecks(t, checks, 1)

	mock.Add(4 * time.Second)
	expectNoCheck(t, checks)
	mock.Add(1 * time.Second)
	awaitChecks(t, checks, 1)
}

func TestCycleFansOutOverEnabledServers(t *testing.T) {
	st := store.New(60)
	a := addServer(st, "a", true)
	b := addServer(st, "b", true)
	addServer(st, "off", false)

	sink := &captureSink{}
	bus := &captureBus{}
	mock := clock.NewMock()
	checks := make(chan uuid.UUID, 64)

	s := New(st, sink, bus, checkRecorder(checks), mock)
	s.Start()
	defer s.Stop()
	time.Sleep(20 * time.Millisecond)

	mock.Add(60 * time.Second)
	awaitChecks(t, checks, 2)
	expectNoCheck(t, checks)

	// wait for the post-fan-out persistence/publish sequence
	require.Eventually(t, func() bool { return sink.insertCount() == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, bus.count())
	assert.Len(t, st.History(a.ID, 0), 1)
	assert.Len(t, st.History(b.ID, 0), 1)
}

func TestEmptyCycleIsNoOp(t *testing.T) {
	st := store.New(60)
	sink := &captureSink{}
	bus := &captureBus{}
	mock := clock.NewMock()

	s := New(st, sink, bus, checkRecorder(make(chan uuid.UUID, 1)), mock)
	s.Start()
	defer s.Stop()
	time.Sleep(20 * time.Millisecond)

	for i := 0; i < 10; i++ {
		mock.Add(60 * time.Second)
		time.Sleep(time.Millisecond)
	}

	assert.Zero(t, sink.insertCount(), "empty cycles must not touch persistence")
	assert.Zero(t, bus.count(), "empty cycles must not publish events")
	assert.Zero(t, sink.prunes(), "prune cadence not reached yet")
}

func TestPruneRunsEveryHundredCycles(t *testing.T) {
	st := store.New(60)
	sink := &captureSink{}
	bus := &captureBus{}
	mock := clock.NewMock()

	s := New(st, sink, bus, checkRecorder(make(chan uuid.UUID, 1)), mock)
	s.Start()
	defer s.Stop()
	time.Sleep(20 * time.Millisecond)

	// empty cycles still advance the counter that drives prune cadence
	for i := 0; i < pruneEvery; i++ {
		mock.Add(60 * time.Second)
		time.Sleep(time.Millisecond)
	}

	require.Eventually(t, func() bool { return sink.prunes() == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestDurableInsertFailureStillCachesAndPublishes(t *testing.T) {
	st := store.New(60)
	srv := addServer(st, "a", true)
	sink := &captureSink{insertErr: errors.New("disk full")}
	bus := &captureBus{}
	mock := clock.NewMock()
	checks := make(chan uuid.UUID, 8)

	s := New(st, sink, bus, checkRecorder(checks), mock)
	s.Start()
	defer s.Stop()
	time.Sleep(20 * time.Millisecond)

	mock.Add(60 * time.Second)
	awaitChecks(t, checks, 1)

	require.Eventually(t, func() bool { return len(st.History(srv.ID, 0)) == 1 },
		2*time.Second, 5*time.Millisecond, "cache update must survive a durable-write failure")
	require.Eventually(t, func() bool { return bus.count() == 1 },
		2*time.Second, 5*time.Millisecond, "event publication must survive a durable-write failure")
}
