package probe

import (
	"net"
	"testing"
	"time"
)

func localListener(t *testing.T) (host string, port uint16, close func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().(*net.TCPAddr)
	return "127.0.0.1", uint16(addr.Port), func() { _ = ln.Close() }
}

func TestTCPReachable(t *testing.T) {
	host, port, closeLn := localListener(t)
	defer closeLn()

	res := TCP(host, port, 2*time.Second)
	if !res.Reachable {
		t.Fatalf("expected reachable, got error %v", res.Error)
	}
	if res.LatencyMs == nil || *res.LatencyMs < 0 {
		t.Fatalf("expected a latency measurement, got %v", res.LatencyMs)
	}
	if res.Error != nil {
		t.Fatalf("unexpected error on success: %q", *res.Error)
	}
}

func TestTCPRefused(t *testing.T) {
	// grab a free port, then close the listener so the dial is refused
	host, port, closeLn := localListener(t)
	closeLn()

	res := TCP(host, port, 2*time.Second)
	if res.Reachable {
		t.Fatal("expected unreachable after listener closed")
	}
	if res.LatencyMs != nil {
		t.Fatalf("failed probe must not report latency, got %v", *res.LatencyMs)
	}
	if res.Error == nil {
		t.Fatal("expected failure reason")
	}
}

func TestProtocolRejectsUnknownCipher(t *testing.T) {
	host, port, closeLn := localListener(t)
	defer closeLn()

	res := Protocol(host, port, "pw", "not-a-cipher", "example.com", time.Second)
	if res.Success {
		t.Fatal("expected failure for unknown cipher method")
	}
	if res.Error == nil {
		t.Fatal("expected failure reason")
	}
}

func TestProtocolUnreachableServer(t *testing.T) {
	host, port, closeLn := localListener(t)
	closeLn()

	res := Protocol(host, port, "pw", "aes-256-gcm", "example.com", time.Second)
	if res.Success {
		t.Fatal("expected failure when server is down")
	}
	if res.Error == nil {
		t.Fatal("expected failure reason")
	}
}
