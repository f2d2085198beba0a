package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RainbowCandyX/sserver-status/internal/models"
)

func openTemp(t *testing.T) *Storage {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	return s
}

func resultAt(id uuid.UUID, ts time.Time) models.CheckResult {
	lat := 12.5
	success := true
	protoLat := 48.0
	return models.CheckResult{
		ServerID:  id,
		Timestamp: ts,
		TCP:       models.TCPResult{Reachable: true, LatencyMs: &lat},
		Protocol:  &models.ProtocolResult{Success: success, LatencyMs: &protoLat},
	}
}

func TestInsertAndLoadHistoryNewestFirst(t *testing.T) {
	s := openTemp(t)
	id := uuid.New()
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Insert(resultAt(id, base.Add(time.Duration(i)*time.Second))))
	}
	// a different server's results must not leak in
	require.NoError(t, s.Insert(resultAt(uuid.New(), base)))

	history, err := s.LoadHistory(id, 3)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, base.Add(4*time.Second), history[0].Timestamp)
	assert.Equal(t, base.Add(3*time.Second), history[1].Timestamp)
	assert.Equal(t, base.Add(2*time.Second), history[2].Timestamp)
	for i := range history {
		assert.Equal(t, id, history[i].ServerID)
	}
}

func TestLoadHistoryRoundTripsFields(t *testing.T) {
	s := openTemp(t)
	id := uuid.New()
	ts := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	reason := "connection refused"
	skipped := "skipped: unreachable"
	require.NoError(t, s.Insert(models.CheckResult{
		ServerID:  id,
		Timestamp: ts,
		TCP:       models.TCPResult{Reachable: false, Error: &reason},
		Protocol:  &models.ProtocolResult{Success: false, Error: &skipped},
	}))

	history, err := s.LoadHistory(id, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)

	got := history[0]
	assert.False(t, got.TCP.Reachable)
	assert.Nil(t, got.TCP.LatencyMs)
	require.NotNil(t, got.TCP.Error)
	assert.Equal(t, reason, *got.TCP.Error)
	require.NotNil(t, got.Protocol)
	assert.False(t, got.Protocol.Success)
	assert.Equal(t, skipped, *got.Protocol.Error)
	assert.Equal(t, ts, got.Timestamp)
}

func TestPruneOlderThanIsExactAndIdempotent(t *testing.T) {
	s := openTemp(t)
	id := uuid.New()
	now := time.Now().UTC()

	require.NoError(t, s.Insert(resultAt(id, now.AddDate(0, 0, -8))))
	require.NoError(t, s.Insert(resultAt(id, now.AddDate(0, 0, -6))))
	require.NoError(t, s.Insert(resultAt(id, now)))

	deleted, err := s.PruneOlderThan(7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted, "only records beyond the window are pruned")

	history, err := s.LoadHistory(id, 10)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	deleted, err = s.PruneOlderThan(7)
	require.NoError(t, err)
	assert.Zero(t, deleted, "second prune with no new records deletes nothing")
}

func TestLoadHistoryUnknownServerIsEmpty(t *testing.T) {
	s := openTemp(t)
	history, err := s.LoadHistory(uuid.New(), 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}
