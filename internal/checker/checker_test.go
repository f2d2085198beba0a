package checker

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RainbowCandyX/sserver-status/internal/models"
)

func tcpUp(latency float64) TCPProbe {
	return func(string, uint16, time.Duration) models.TCPResult {
		return models.TCPResult{Reachable: true, LatencyMs: &latency}
	}
}

func tcpDown(reason string) TCPProbe {
	return func(string, uint16, time.Duration) models.TCPResult {
		return models.TCPResult{Reachable: false, Error: &reason}
	}
}

func protoOK(latency float64) ProtocolProbe {
	return func(string, uint16, string, string, string, time.Duration) models.ProtocolResult {
		return models.ProtocolResult{Success: true, LatencyMs: &latency}
	}
}

func testServer() models.Server {
	return models.Server{
		ID:       uuid.New(),
		Name:     "jp-1",
		Host:     "203.0.113.5",
		Port:     8388,
		Password: "secret",
		Method:   "aes-256-gcm",
		Enabled:  true,
	}
}

func TestCheckBothSucceed(t *testing.T) {
	c := NewWithProbes(time.Second, time.Second, "example.com", tcpUp(12), protoOK(40))

	result := c.Check(testServer())

	assert.True(t, result.TCP.Reachable)
	require.NotNil(t, result.Protocol)
	assert.True(t, result.Protocol.Success)
	require.NotNil(t, result.Protocol.LatencyMs)
	assert.InDelta(t, 40, *result.Protocol.LatencyMs, 1e-9)
}

func TestCheckTCPFailureSkipsProtocol(t *testing.T) {
	protoCalls := 0
	proto := func(string, uint16, string, string, string, time.Duration) models.ProtocolResult {
		protoCalls++
		return models.ProtocolResult{Success: true}
	}
	c := NewWithProbes(time.Second, time.Second, "example.com", tcpDown("connection refused"), proto)

	result := c.Check(testServer())

	assert.Zero(t, protoCalls, "protocol probe must not run when TCP failed")
	assert.False(t, result.TCP.Reachable)
	require.NotNil(t, result.Protocol, "protocol outcome is synthesized, not omitted")
	assert.False(t, result.Protocol.Success)
	assert.Nil(t, result.Protocol.LatencyMs)
	require.NotNil(t, result.Protocol.Error)
	assert.Equal(t, "skipped: unreachable", *result.Protocol.Error)
}

func TestCheckTimestampAssignedAtCompletion(t *testing.T) {
	slowTCP := func(string, uint16, time.Duration) models.TCPResult {
		time.Sleep(30 * time.Millisecond)
		return models.TCPResult{Reachable: false}
	}
	c := NewWithProbes(time.Second, time.Second, "example.com", slowTCP, protoOK(1))

	started := time.Now()
	result := c.Check(testServer())

	assert.False(t, result.Timestamp.Before(started.Add(30*time.Millisecond)),
		"timestamp must be taken after the probes finished")
}

func TestCheckCarriesServerID(t *testing.T) {
	srv := testServer()
	c := NewWithProbes(time.Second, time.Second, "example.com", tcpUp(1), protoOK(1))
	assert.Equal(t, srv.ID, c.Check(srv).ServerID)
}
