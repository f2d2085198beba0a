// Package models defines the domain types of sserver-status: monitored
// servers, check results, derived statuses and the redacted public views
// exposed to unauthenticated consumers.
package models

import "github.com/google/uuid"

// Server is a monitored Shadowsocks endpoint. The ID is assigned once at
// creation and never changes; updates replace every other field in place.
type Server struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Host string    `json:"host"`
	Port uint16    `json:"port"`
	// Password and Method are the SS credential material, e.g.
	// "aes-256-gcm", "chacha20-ietf-poly1305".
	Password string   `json:"password"`
	Method   string   `json:"method"`
	Enabled  bool     `json:"enabled"`
	Tags     []string `json:"tags"`
}

// PublicServer is the redaction view of a Server: host, port and credential
// material are dropped. It is the only server shape that crosses the boundary
// to unauthenticated clients.
type PublicServer struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Enabled bool      `json:"enabled"`
	Tags    []string  `json:"tags"`
}

// Public returns the redacted view of s.
func (s *Server) Public() PublicServer {
	return PublicServer{
		ID:      s.ID,
		Name:    s.Name,
		Enabled: s.Enabled,
		Tags:    s.Tags,
	}
}

// ServerStatus is the derived per-server view: the bounded history plus
// aggregates computed from it. It is never stored; every status query
// recomputes it from the current history.
type ServerStatus struct {
	Server       Server        `json:"server"`
	LatestResult *CheckResult  `json:"latest_result"`
	History      []CheckResult `json:"history"`
	UptimePct    float64       `json:"uptime_pct"`
	AvgLatencyMs *float64      `json:"avg_latency_ms"`
}

// PublicServerStatus mirrors ServerStatus with the redacted server view.
// Check results carry no secrets and pass through unchanged.
type PublicServerStatus struct {
	Server       PublicServer  `json:"server"`
	LatestResult *CheckResult  `json:"latest_result"`
	History      []CheckResult `json:"history"`
	UptimePct    float64       `json:"uptime_pct"`
	AvgLatencyMs *float64      `json:"avg_latency_ms"`
}

// Public returns the redacted view of st.
func (st *ServerStatus) Public() PublicServerStatus {
	return PublicServerStatus{
		Server:       st.Server.Public(),
		LatestResult: st.LatestResult,
		History:      st.History,
		UptimePct:    st.UptimePct,
		AvgLatencyMs: st.AvgLatencyMs,
	}
}
