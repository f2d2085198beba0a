// Package sysinfo collects a point-in-time host snapshot for the health
// endpoint. It uses gopsutil for cross-platform telemetry.
package sysinfo

import (
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

// Snapshot holds one collection cycle's data.
type Snapshot struct {
	Hostname      string    `json:"hostname"`
	Platform      string    `json:"platform"`
	CPUUsagePct   float64   `json:"cpu_usage_pct"`
	MemUsagePct   float64   `json:"mem_usage_pct"`
	HostUptimeSec uint64    `json:"host_uptime_sec"`
	Goroutines    int       `json:"goroutines"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Collect gathers the current snapshot. Individual collectors failing leave
// their fields zero; the endpoint stays useful on partial data.
func Collect() Snapshot {
	snap := Snapshot{
		Platform:    runtime.GOOS,
		Goroutines:  runtime.NumGoroutine(),
		CollectedAt: time.Now().UTC(),
	}

	if h, err := os.Hostname(); err == nil {
		snap.Hostname = h
	}
	if pcts, err := cpu.Percent(0, false); err == nil && len(pcts) > 0 {
		snap.CPUUsagePct = pcts[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		snap.MemUsagePct = vm.UsedPercent
	}
	if info, err := host.Info(); err == nil {
		snap.HostUptimeSec = info.Uptime
		if info.Platform != "" {
			snap.Platform = info.Platform
		}
	}
	return snap
}
