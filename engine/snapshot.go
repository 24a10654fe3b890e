package engine

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/okpiyush/pulse-monitor/model"
)

// Snapshotter captures host telemetry and persists it as a snapshot row
// tagged with a cause. All failures are logged and swallowed; snapshot
// rows are advisory.
type Snapshotter struct {
	store     Store
	telemetry Telemetry
	log       *logrus.Logger
	now       func() time.Time
}

// NewSnapshotter creates a snapshotter.
func NewSnapshotter(store Store, telemetry Telemetry, log *logrus.Logger) *Snapshotter {
	return &Snapshotter{store: store, telemetry: telemetry, log: log, now: time.Now}
}

// SnapshotContext carries the optional cause context of a capture.
type SnapshotContext struct {
	TargetID     string
	IncidentID   string
	ResponseTime *float64
}

// Capture samples host metrics synchronously and appends a snapshot row.
func (s *Snapshotter) Capture(ctx context.Context, title, reason string, sc SnapshotContext) {
	stats, err := s.telemetry.Stats()
	if err != nil {
		s.log.WithField("component", "snapshotter").
			Errorf("telemetry read failed, snapshot %q dropped: %v", title, err)
		return
	}

	snap := &model.SystemSnapshot{
		Title:        title,
		Reason:       reason,
		Timestamp:    s.now().UTC(),
		CPU:          stats.CPUPercent,
		Memory:       stats.MemoryPercent,
		Disk:         stats.DiskPercent,
		Load1:        stats.Load1,
		Load5:        stats.Load5,
		Load15:       stats.Load15,
		NetSent:      stats.NetBytesSent,
		NetRecv:      stats.NetBytesRecv,
		ResponseTime: sc.ResponseTime,
	}
	if sc.TargetID != "" {
		snap.TargetID = &sc.TargetID
	}
	if sc.IncidentID != "" {
		snap.IncidentID = &sc.IncidentID
	}

	if err := s.store.AppendSnapshot(ctx, snap); err != nil {
		s.log.WithField("component", "snapshotter").
			Errorf("snapshot %q not persisted: %v", title, err)
	}
}
