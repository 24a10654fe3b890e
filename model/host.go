package model

// HostStats is one on-demand sample of host telemetry.
// The load triplet is (0,0,0) on platforms that cannot supply it.
type HostStats struct {
	CPUPercent    float64
	MemoryPercent float64
	DiskPercent   float64
	Load1         float64
	Load5         float64
	Load15        float64
	NetBytesSent  uint64
	NetBytesRecv  uint64
}

// HealthPoint is one entry of the kv health ring.
type HealthPoint struct {
	Time   float64 `json:"time"`
	CPU    float64 `json:"cpu"`
	Memory float64 `json:"memory"`
	Disk   float64 `json:"disk"`
}
