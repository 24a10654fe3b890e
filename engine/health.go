package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/okpiyush/pulse-monitor/model"
)

// healthCooldown gates resource-spike alerts. The read-then-set on the
// cooldown key is best-effort; a racing duplicate is tolerable.
const healthCooldown = time.Hour

// HealthMonitor samples host metrics on a periodic tick, keeps the kv
// ring current, and raises resource-spike alerts under cooldown.
type HealthMonitor struct {
	store     Store
	kv        KV
	telemetry Telemetry
	alerter   *Alerter
	snaps     *Snapshotter
	log       *logrus.Logger
	now       func() time.Time
}

// NewHealthMonitor creates a health monitor.
func NewHealthMonitor(store Store, kv KV, telemetry Telemetry, alerter *Alerter, snaps *Snapshotter, log *logrus.Logger) *HealthMonitor {
	return &HealthMonitor{
		store:     store,
		kv:        kv,
		telemetry: telemetry,
		alerter:   alerter,
		snaps:     snaps,
		log:       log,
		now:       time.Now,
	}
}

// Tick runs one sample-evaluate cycle.
func (m *HealthMonitor) Tick(ctx context.Context) {
	stats, err := m.telemetry.Stats()
	if err != nil {
		m.log.WithField("component", "health").Errorf("telemetry read: %v", err)
		return
	}
	now := m.now().UTC()

	point := model.HealthPoint{
		Time:   float64(now.UnixNano()) / 1e9,
		CPU:    stats.CPUPercent,
		Memory: stats.MemoryPercent,
		Disk:   stats.DiskPercent,
	}
	if err := m.kv.PushHealthPoint(ctx, point); err != nil {
		m.log.WithField("component", "health").Errorf("push health point: %v", err)
	}

	cfg, err := m.store.SystemConfig(ctx)
	if err != nil {
		m.log.WithField("component", "health").Errorf("system config: %v", err)
		return
	}
	if cfg.AlertEmail == "" {
		return
	}

	var spikes []string
	if stats.CPUPercent > float64(cfg.CPUAlertThreshold) {
		spikes = append(spikes, fmt.Sprintf("CPU at %.1f%% (threshold %d%%)",
			stats.CPUPercent, cfg.CPUAlertThreshold))
	}
	if stats.MemoryPercent > float64(cfg.MemoryAlertThreshold) {
		spikes = append(spikes, fmt.Sprintf("Memory at %.1f%% (threshold %d%%)",
			stats.MemoryPercent, cfg.MemoryAlertThreshold))
	}
	if stats.DiskPercent > float64(cfg.DiskAlertThreshold) {
		spikes = append(spikes, fmt.Sprintf("Disk at %.1f%% (threshold %d%%)",
			stats.DiskPercent, cfg.DiskAlertThreshold))
	}
	if len(spikes) == 0 {
		return
	}

	last, ok, err := m.kv.LastAlertAt(ctx)
	if err != nil {
		m.log.WithField("component", "health").Errorf("cooldown read: %v", err)
	}
	if ok && now.Sub(last) < healthCooldown {
		return
	}
	if err := m.kv.SetLastAlert(ctx, now); err != nil {
		m.log.WithField("component", "health").Errorf("cooldown set: %v", err)
	}

	reason := strings.Join(spikes, "; ")
	m.snaps.Capture(ctx, "CRITICAL: System Health Spike", reason, SnapshotContext{})
	m.alerter.Alert("System Health Spike", "", cfg.AlertEmail, "CRITICAL", reason)
}
