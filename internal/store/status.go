package store

import (
	"github.com/RainbowCandyX/sserver-status/internal/models"
)

// ComputeStatuses derives the per-server status view: latest result, uptime
// percentage and average TCP latency over the bounded history. The servers
// and history partitions are snapshotted under their read locks first; the
// derived math runs after both locks are released so concurrent check cycles
// are not held up.
func (s *Store) ComputeStatuses() []models.ServerStatus {
	servers := s.Servers()

	s.historyMu.RLock()
	histories := make(map[string][]models.CheckResult, len(servers))
	for _, srv := range servers {
		histories[srv.ID.String()] = append([]models.CheckResult(nil), s.history[srv.ID]...)
	}
	s.historyMu.RUnlock()

	out := make([]models.ServerStatus, 0, len(servers))
	for _, srv := range servers {
		out = append(out, deriveStatus(srv, histories[srv.ID.String()]))
	}
	return out
}

func deriveStatus(srv models.Server, history []models.CheckResult) models.ServerStatus {
	st := models.ServerStatus{
		Server:  srv,
		History: history,
	}
	if len(history) == 0 {
		return st
	}

	latest := history[0]
	st.LatestResult = &latest

	reachable := 0
	var latencySum float64
	latencyN := 0
	for i := range history {
		if history[i].TCP.Reachable {
			reachable++
		}
		if history[i].TCP.LatencyMs != nil {
			latencySum += *history[i].TCP.LatencyMs
			latencyN++
		}
	}
	st.UptimePct = float64(reachable) / float64(len(history)) * 100
	if latencyN > 0 {
		avg := latencySum / float64(latencyN)
		st.AvgLatencyMs = &avg
	}
	return st
}
