package models

import (
	"time"

	"github.com/google/uuid"
)

// TCPResult is the outcome of the plain TCP reachability probe.
// LatencyMs is set only when the connect succeeded; Error only when it failed.
type TCPResult struct {
	Reachable bool     `json:"reachable"`
	LatencyMs *float64 `json:"latency_ms"`
	Error     *string  `json:"error"`
}

// ProtocolResult is the outcome of the Shadowsocks protocol-level probe:
// a full handshake plus a tunneled HTTP request to the test target.
type ProtocolResult struct {
	Success   bool     `json:"success"`
	LatencyMs *float64 `json:"latency_ms"`
	Error     *string  `json:"error"`
}

// CheckResult is one timestamped probe outcome for one server. It is
// immutable once produced. Protocol is nil only when the TCP check itself
// could not run; a TCP failure still yields a synthesized skipped Protocol
// outcome so callers always see a uniform shape after a TCP attempt.
type CheckResult struct {
	ServerID  uuid.UUID       `json:"server_id"`
	Timestamp time.Time       `json:"timestamp"`
	TCP       TCPResult       `json:"tcp_check"`
	Protocol  *ProtocolResult `json:"ss_check"`
}
