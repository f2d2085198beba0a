// Package scheduler drives periodic check cycles. A single goroutine owns
// the timer and selects over three inputs: the tick source, live interval
// changes from the store, and shutdown. Cycles run strictly one after
// another; cycle N+1 never starts before cycle N finished.
package scheduler

import (
	"log"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/RainbowCandyX/sserver-status/internal/models"
	"github.com/RainbowCandyX/sserver-status/internal/store"
)

const (
	// retentionDays is the durable-store retention window.
	retentionDays = 7
	// pruneEvery is the cycle cadence for retention pruning.
	pruneEvery = 100
)

// Sink is the durable side of the dual-write discipline.
type Sink interface {
	Insert(models.CheckResult) error
	PruneOlderThan(days int) (int64, error)
}

// Publisher fans completed checks out to live subscribers.
type Publisher interface {
	Publish(models.Event)
}

// CheckFunc runs the pipeline for one server.
type CheckFunc func(models.Server) models.CheckResult

// Scheduler runs check cycles for all enabled servers at the configured
// interval. It has no fatal error path: probe failures are data, and
// durable-write or prune failures are logged and skipped.
type Scheduler struct {
	store *store.Store
	sink  Sink
	bus   Publisher
	check CheckFunc
	clock clock.Clock

	cycles uint64

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New wires a scheduler. Pass clock.New() in production; tests use a mock.
func New(st *store.Store, sink Sink, bus Publisher, check CheckFunc, clk clock.Clock) *Scheduler {
	return &Scheduler{
		store:  st,
		sink:   sink,
		bus:    bus,
		check:  check,
		clock:  clk,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start launches the scheduling loop in a goroutine.
func (s *Scheduler) Start() {
	go s.run()
}

// Stop requests loop termination and waits until the current cycle finished.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	<-s.doneCh
}

func (s *Scheduler) run() {
	defer close(s.doneCh)

	ticker := s.clock.Ticker(time.Duration(s.store.Interval()) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runCycle()
		case secs := <-s.store.IntervalChanges():
			ticker.Reset(time.Duration(secs) * time.Second)
			log.Printf("[scheduler] check interval changed to %ds", secs)
			// one immediate tick after reconfiguration, then the new cadence
			s.runCycle()
		case <-s.stopCh:
			return
		}
	}
}

// runCycle fans the pipeline out over all enabled servers, waits for every
// result, then persists, caches and publishes each one. Per-server results
// are isolated: one slow or failing probe never delays or fails another.
func (s *Scheduler) runCycle() {
	s.cycles++

	servers := s.store.EnabledServers()
	if len(servers) > 0 {
		results := make([]models.CheckResult, len(servers))
		var wg sync.WaitGroup
		for i := range servers {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = s.check(servers[i])
			}(i)
		}
		wg.Wait()

		for i := range results {
			// durable write first; a failure is logged and never blocks
			// the cache update or the event
			if err := s.sink.Insert(results[i]); err != nil {
				log.Printf("[scheduler] durable insert failed: %v", err)
			}
			s.store.RecordResult(results[i])
			s.bus.Publish(models.Event{Type: models.EventCheckComplete, Result: &results[i]})
		}
	}

	if s.cycles%pruneEvery == 0 {
		n, err := s.sink.PruneOlderThan(retentionDays)
		switch {
		case err != nil:
			log.Printf("[scheduler] prune failed: %v", err)
		case n > 0:
			log.Printf("[scheduler] pruned %d results older than %d days", n, retentionDays)
		}
	}
}
