package collector

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	gnet "github.com/shirou/gopsutil/v3/net"

	"github.com/okpiyush/pulse-monitor/model"
)

// Host samples host telemetry on demand via gopsutil.
type Host struct {
	// DiskPath is the mount point checked for disk usage. Defaults to "/".
	DiskPath string
}

// NewHost creates a host telemetry collector.
func NewHost() *Host {
	return &Host{DiskPath: "/"}
}

// Stats returns one sample of CPU, memory, disk, load, and NIC counters.
// CPU is the instantaneous (non-blocking) reading since the last call.
// Load is left at zero on platforms that cannot supply it.
func (h *Host) Stats() (model.HostStats, error) {
	var stats model.HostStats

	pct, err := cpu.Percent(0, false)
	if err != nil {
		return stats, fmt.Errorf("cpu percent: %w", err)
	}
	if len(pct) > 0 {
		stats.CPUPercent = pct[0]
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return stats, fmt.Errorf("virtual memory: %w", err)
	}
	stats.MemoryPercent = vm.UsedPercent

	path := h.DiskPath
	if path == "" {
		path = "/"
	}
	du, err := disk.Usage(path)
	if err != nil {
		return stats, fmt.Errorf("disk usage %s: %w", path, err)
	}
	stats.DiskPercent = du.UsedPercent

	if avg, err := load.Avg(); err == nil {
		stats.Load1 = avg.Load1
		stats.Load5 = avg.Load5
		stats.Load15 = avg.Load15
	}

	if counters, err := gnet.IOCounters(false); err == nil && len(counters) > 0 {
		stats.NetBytesSent = counters[0].BytesSent
		stats.NetBytesRecv = counters[0].BytesRecv
	}

	return stats, nil
}
