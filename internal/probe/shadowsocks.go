package probe

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	sscore "github.com/shadowsocks/go-shadowsocks2/core"
	"github.com/shadowsocks/go-shadowsocks2/socks"

	"github.com/RainbowCandyX/sserver-status/internal/models"
)

// Protocol performs a full Shadowsocks protocol check: it connects to the
// server, wraps the connection with the configured cipher, and relays a
// minimal HTTP request to testTarget through the tunnel. Any response that
// starts with "HTTP/" validates the handshake and encryption end to end.
//
// A timeout yields no latency and a "timed out" reason; every other failure
// carries the elapsed time so slow-but-broken servers remain visible.
func Protocol(host string, port uint16, password, method, testTarget string, timeout time.Duration) models.ProtocolResult {
	start := time.Now()
	deadline := start.Add(timeout)

	failed := func(msg string) models.ProtocolResult {
		lat := float64(time.Since(start)) / float64(time.Millisecond)
		return models.ProtocolResult{Success: false, LatencyMs: &lat, Error: &msg}
	}
	timedOut := func() models.ProtocolResult {
		msg := "protocol check timed out"
		return models.ProtocolResult{Success: false, Error: &msg}
	}

	ciph, err := sscore.PickCipher(method, nil, password)
	if err != nil {
		return failed("unknown cipher method: " + method)
	}

	addr := net.JoinHostPort(host, strconv.Itoa(int(port)))
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		if isTimeout(err) {
			return timedOut()
		}
		return failed("connect: " + err.Error())
	}
	defer conn.Close()
	_ = conn.SetDeadline(deadline)

	tunnel := ciph.StreamConn(conn)

	target := socks.ParseAddr(net.JoinHostPort(testTarget, "80"))
	if target == nil {
		return failed("invalid test target: " + testTarget)
	}
	if _, err := tunnel.Write(target); err != nil {
		if isTimeout(err) {
			return timedOut()
		}
		return failed("write target address: " + err.Error())
	}

	req := fmt.Sprintf("GET /generate_204 HTTP/1.1\r\nHost: %s\r\nConnection: close\r\n\r\n", testTarget)
	if _, err := tunnel.Write([]byte(req)); err != nil {
		if isTimeout(err) {
			return timedOut()
		}
		return failed("write request: " + err.Error())
	}

	buf := make([]byte, 512)
	n, err := tunnel.Read(buf)
	if err != nil {
		if isTimeout(err) {
			return timedOut()
		}
		return failed("read response: " + err.Error())
	}
	if n == 0 {
		return failed("empty response from test target")
	}
	if !strings.HasPrefix(string(buf[:n]), "HTTP/") {
		return failed("invalid HTTP response through tunnel")
	}

	lat := float64(time.Since(start)) / float64(time.Millisecond)
	return models.ProtocolResult{Success: true, LatencyMs: &lat}
}
