// Package store holds the live state of the monitor: the server set, the
// bounded per-server result history, active session tokens and the tunable
// check interval. Each of the four partitions is guarded by its own RWMutex
// so read-heavy status queries never contend with writes to an unrelated
// partition. No method takes more than one partition lock at a time.
package store

import (
	"sync"

	"github.com/google/uuid"

	"github.com/RainbowCandyX/sserver-status/internal/models"
)

// MaxHistory bounds the in-memory result history per server. The durable
// store keeps its own, longer retention window.
const MaxHistory = 100

// Store is the shared state accessed by the scheduler, the API handlers and
// the event bus. Construct one per process (or per test) and inject it; the
// zero value is not usable.
type Store struct {
	serversMu sync.RWMutex
	servers   map[uuid.UUID]models.Server

	historyMu sync.RWMutex
	history   map[uuid.UUID][]models.CheckResult

	sessionsMu sync.RWMutex
	sessions   map[string]struct{}

	settingsMu   sync.RWMutex
	intervalSecs int

	// intervalCh carries interval changes to the scheduler. Buffered size 1
	// and coalescing: only the most recent pending value is retained.
	intervalCh chan int
}

// New creates a Store with the given initial check interval.
func New(intervalSecs int) *Store {
	return &Store{
		servers:      make(map[uuid.UUID]models.Server),
		history:      make(map[uuid.UUID][]models.CheckResult),
		sessions:     make(map[string]struct{}),
		intervalSecs: intervalSecs,
		intervalCh:   make(chan int, 1),
	}
}

// ── Servers partition ────────────────────────────────────────────────────────

// UpsertServer inserts or replaces a server by ID. Validation is the
// caller's responsibility.
func (s *Store) UpsertServer(server models.Server) {
	s.serversMu.Lock()
	defer s.serversMu.Unlock()
	s.servers[server.ID] = server
}

// GetServer returns the server with the given ID.
func (s *Store) GetServer(id uuid.UUID) (models.Server, bool) {
	s.serversMu.RLock()
	defer s.serversMu.RUnlock()
	srv, ok := s.servers[id]
	return srv, ok
}

// Servers returns a copy of all servers, in unspecified order.
func (s *Store) Servers() []models.Server {
	s.serversMu.RLock()
	defer s.serversMu.RUnlock()
	out := make([]models.Server, 0, len(s.servers))
	for _, srv := range s.servers {
		out = append(out, srv)
	}
	return out
}

// EnabledServers returns a copy of the servers currently enabled for checks.
func (s *Store) EnabledServers() []models.Server {
	s.serversMu.RLock()
	defer s.serversMu.RUnlock()
	out := make([]models.Server, 0, len(s.servers))
	for _, srv := range s.servers {
		if srv.Enabled {
			out = append(out, srv)
		}
	}
	return out
}

// RemoveServer deletes a server and its history. Returns whether the server
// existed. The two partitions are locked one after the other, never nested;
// a status query started after RemoveServer returns cannot observe the
// server, because ComputeStatuses derives entries from the server partition.
func (s *Store) RemoveServer(id uuid.UUID) bool {
	s.serversMu.Lock()
	_, ok := s.servers[id]
	delete(s.servers, id)
	s.serversMu.Unlock()

	s.historyMu.Lock()
	delete(s.history, id)
	s.historyMu.Unlock()
	return ok
}

// ── History partition ────────────────────────────────────────────────────────

// RecordResult inserts a result at the front of its server's history and
// truncates to MaxHistory. Call only after the durable write was attempted:
// the durable-write-then-cache order bounds cache/store divergence to a
// single failed insert.
func (s *Store) RecordResult(result models.CheckResult) {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()
	h := s.history[result.ServerID]
	h = append([]models.CheckResult{result}, h...)
	if len(h) > MaxHistory {
		h = h[:MaxHistory]
	}
	s.history[result.ServerID] = h
}

// WarmHistory seeds a server's history from the durable store at startup.
// The slice must already be newest-first; it is truncated to MaxHistory.
func (s *Store) WarmHistory(id uuid.UUID, results []models.CheckResult) {
	if len(results) > MaxHistory {
		results = results[:MaxHistory]
	}
	s.historyMu.Lock()
	defer s.historyMu.Unlock()
	s.history[id] = append([]models.CheckResult(nil), results...)
}

// History returns up to limit most-recent results for a server, newest-first.
// A limit <= 0 means MaxHistory.
func (s *Store) History(id uuid.UUID, limit int) []models.CheckResult {
	if limit <= 0 || limit > MaxHistory {
		limit = MaxHistory
	}
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()
	h := s.history[id]
	if len(h) > limit {
		h = h[:limit]
	}
	return append([]models.CheckResult(nil), h...)
}

// ── Sessions partition ───────────────────────────────────────────────────────

// Authenticate reports whether the token belongs to an active session.
func (s *Store) Authenticate(token string) bool {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()
	_, ok := s.sessions[token]
	return ok
}

// CreateSession registers an opaque bearer token.
func (s *Store) CreateSession(token string) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	s.sessions[token] = struct{}{}
}

// DestroySession removes a token; unknown tokens are a no-op.
func (s *Store) DestroySession(token string) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	delete(s.sessions, token)
}

// ── Settings partition ───────────────────────────────────────────────────────

// Interval returns the current check interval in seconds.
func (s *Store) Interval() int {
	s.settingsMu.RLock()
	defer s.settingsMu.RUnlock()
	return s.intervalSecs
}

// SetInterval updates the interval and notifies the scheduler before
// returning. The caller validates the floor and persists the change to the
// durable configuration. Notification coalesces: if a previous change is
// still pending, it is replaced by the newer value.
func (s *Store) SetInterval(secs int) {
	s.settingsMu.Lock()
	s.intervalSecs = secs
	s.settingsMu.Unlock()

	for {
		select {
		case s.intervalCh <- secs:
			return
		default:
			select {
			case <-s.intervalCh:
			default:
			}
		}
	}
}

// IntervalChanges is the channel the scheduler selects on for live
// reconfiguration.
func (s *Store) IntervalChanges() <-chan int {
	return s.intervalCh
}
