// Package probe implements the network probes behind the check pipeline:
// a plain TCP reachability test and a Shadowsocks protocol test that tunnels
// an HTTP request through the target server. Both honor their timeout
// strictly and report ordinary network failure as data, never as an error.
package probe

import (
	"errors"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/RainbowCandyX/sserver-status/internal/models"
)

// TCP dials host:port and reports reachability and connect latency.
// A timeout is distinguished from other failures by its error text.
func TCP(host string, port uint16, timeout time.Duration) models.TCPResult {
	start := time.Now()
	addr := net.JoinHostPort(host, strconv.Itoa(int(port)))

	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		msg := err.Error()
		if isTimeout(err) {
			msg = "connection timed out"
		}
		return models.TCPResult{Reachable: false, Error: &msg}
	}
	_ = conn.Close()

	lat := float64(time.Since(start)) / float64(time.Millisecond)
	return models.TCPResult{Reachable: true, LatencyMs: &lat}
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}
