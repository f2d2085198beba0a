// Package checker orchestrates one server's probe sequence into a
// timestamped check result. The probes themselves are injected so tests can
// substitute deterministic outcomes.
package checker

import (
	"time"

	"github.com/RainbowCandyX/sserver-status/internal/models"
	"github.com/RainbowCandyX/sserver-status/internal/probe"
)

// TCPProbe performs the reachability test. Matches probe.TCP.
type TCPProbe func(host string, port uint16, timeout time.Duration) models.TCPResult

// ProtocolProbe performs the protocol-level test. Matches probe.Protocol.
type ProtocolProbe func(host string, port uint16, password, method, testTarget string, timeout time.Duration) models.ProtocolResult

// Checker runs the check pipeline with fixed timeouts and test target.
type Checker struct {
	TCPTimeout      time.Duration
	ProtocolTimeout time.Duration
	TestTarget      string

	tcpProbe      TCPProbe
	protocolProbe ProtocolProbe
}

// New creates a Checker backed by the real network probes.
func New(tcpTimeout, protocolTimeout time.Duration, testTarget string) *Checker {
	return &Checker{
		TCPTimeout:      tcpTimeout,
		ProtocolTimeout: protocolTimeout,
		TestTarget:      testTarget,
		tcpProbe:        probe.TCP,
		protocolProbe:   probe.Protocol,
	}
}

// NewWithProbes creates a Checker with custom probe implementations.
func NewWithProbes(tcpTimeout, protocolTimeout time.Duration, testTarget string, tcp TCPProbe, protocol ProtocolProbe) *Checker {
	return &Checker{
		TCPTimeout:      tcpTimeout,
		ProtocolTimeout: protocolTimeout,
		TestTarget:      testTarget,
		tcpProbe:        tcp,
		protocolProbe:   protocol,
	}
}

// Check probes one server: TCP first, then the protocol test only when TCP
// succeeded. A TCP failure synthesizes a skipped protocol outcome instead of
// wasting a probe, so callers always see a non-nil protocol field after a
// TCP attempt. The timestamp is assigned at completion, not at start.
func (c *Checker) Check(server models.Server) models.CheckResult {
	tcp := c.tcpProbe(server.Host, server.Port, c.TCPTimeout)

	var proto models.ProtocolResult
	if tcp.Reachable {
		proto = c.protocolProbe(server.Host, server.Port, server.Password, server.Method, c.TestTarget, c.ProtocolTimeout)
	} else {
		msg := "skipped: unreachable"
		proto = models.ProtocolResult{Success: false, Error: &msg}
	}

	return models.CheckResult{
		ServerID:  server.ID,
		Timestamp: time.Now().UTC(),
		TCP:       tcp,
		Protocol:  &proto,
	}
}
