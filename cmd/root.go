package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/okpiyush/pulse-monitor/collector"
	"github.com/okpiyush/pulse-monitor/config"
	"github.com/okpiyush/pulse-monitor/engine"
	"github.com/okpiyush/pulse-monitor/kv"
	"github.com/okpiyush/pulse-monitor/mail"
	"github.com/okpiyush/pulse-monitor/model"
	"github.com/okpiyush/pulse-monitor/store"
)

// Version is set at build time via ldflags.
var Version = "0.3.0"

// uptimeWindow is the window for the uptime percentage shown by -list.
const uptimeWindow = 30 * 24 * time.Hour

func printUsage() {
	fmt.Fprintf(os.Stderr, `pulse v%s - uptime and latency monitor

Usage:
  pulse [OPTIONS]

Modes:
  (default)          Run the monitoring daemon
  -add               Add a target (requires -name and -url) and probe it once
  -list              List targets with status and 30-day uptime
  -remove ID         Remove a target and its history
  -check ID          Run one immediate probe of a target
  -snapshot TITLE    Capture a manual host telemetry snapshot
  -health            Print current host metrics, config, and recent history
  -version           Print version and exit

Target options (with -add):
  -name NAME             Display name
  -url URL               Endpoint URL (GET against this)
  -interval N            Check interval in minutes when healthy (default: 5)
  -fail-interval N       Poll interval in seconds while down (default: 5)
  -alert-threshold N     Consecutive failures before CRITICAL (default: 3)
  -recovery-threshold N  Consecutive successes to leave down (default: 2)
  -email ADDR            Alert email for this target

Options:
  -reason TEXT       Reason text for -snapshot (default: "Manual snapshot")
  -tick N            Dispatch tick interval in seconds (default: 60)
  -workers N         Probe worker pool size (default: 8)
  -verbose           Debug logging

Examples:
  pulse -add -name "API" -url https://api.example.com -interval 1
  pulse -list
  pulse -check 6f1c...
  pulse -snapshot "Deploy v42" -reason "Pre-deploy baseline"
  pulse -health
  pulse
`, Version)
}

// Run parses flags and starts the application.
func Run() error {
	var (
		addMode      bool
		listMode     bool
		removeID     string
		checkID      string
		snapshotName string
		healthMode   bool
		showVersion  bool
		verbose      bool

		name              string
		targetURL         string
		intervalMin       int
		failIntervalSec   int
		alertThreshold    int
		recoveryThreshold int
		email             string
		reason            string
		tickSec           int
		workers           int
	)

	flag.BoolVar(&addMode, "add", false, "Add a target and probe it once")
	flag.BoolVar(&listMode, "list", false, "List targets")
	flag.StringVar(&removeID, "remove", "", "Remove a target by id")
	flag.StringVar(&checkID, "check", "", "Run one immediate probe of a target")
	flag.StringVar(&snapshotName, "snapshot", "", "Capture a manual snapshot with this title")
	flag.BoolVar(&healthMode, "health", false, "Print current host metrics and history")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.BoolVar(&verbose, "verbose", false, "Debug logging")

	flag.StringVar(&name, "name", "", "Target display name (with -add)")
	flag.StringVar(&targetURL, "url", "", "Target URL (with -add)")
	flag.IntVar(&intervalMin, "interval", 5, "Check interval in minutes (with -add)")
	flag.IntVar(&failIntervalSec, "fail-interval", 5, "Poll interval in seconds while down (with -add)")
	flag.IntVar(&alertThreshold, "alert-threshold", 3, "Consecutive failures before CRITICAL (with -add)")
	flag.IntVar(&recoveryThreshold, "recovery-threshold", 2, "Consecutive successes to leave down (with -add)")
	flag.StringVar(&email, "email", "", "Alert email for this target (with -add)")
	flag.StringVar(&reason, "reason", "Manual snapshot", "Reason text for -snapshot")
	flag.IntVar(&tickSec, "tick", 0, "Dispatch tick interval in seconds (default from config)")
	flag.IntVar(&workers, "workers", 0, "Probe worker pool size (default from config)")

	flag.Usage = printUsage
	flag.Parse()

	if showVersion {
		fmt.Printf("pulse v%s\n", Version)
		return nil
	}

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	cfg := config.Load()
	if tickSec > 0 {
		cfg.TickIntervalSec = tickSec
	}
	if workers > 0 {
		cfg.Workers = workers
	}

	ctx := context.Background()

	switch {
	case addMode:
		return runAdd(ctx, cfg, log, &model.Target{
			Name:                   name,
			URL:                    targetURL,
			CheckIntervalMin:       intervalMin,
			FailurePollIntervalSec: failIntervalSec,
			AlertThreshold:         alertThreshold,
			RecoveryThreshold:      recoveryThreshold,
			AlertEmail:             email,
			IsActive:               true,
		})
	case listMode:
		return runList(ctx, cfg)
	case removeID != "":
		return runRemove(ctx, cfg, removeID)
	case checkID != "":
		return runCheck(ctx, cfg, log, checkID)
	case snapshotName != "":
		return runSnapshot(ctx, cfg, log, snapshotName, reason)
	case healthMode:
		return runHealth(ctx, cfg)
	}

	return runDaemon(cfg, log)
}

// app bundles the wired engine components for one process.
type app struct {
	store     *store.Store
	kv        *kv.Client
	scheduler *engine.Scheduler
	health    *engine.HealthMonitor
	snaps     *engine.Snapshotter
}

func buildApp(cfg config.Config, log *logrus.Logger) (*app, error) {
	st, err := store.Open(cfg.StoreDSN)
	if err != nil {
		return nil, err
	}
	kvc, err := kv.Open(cfg.KVURL)
	if err != nil {
		st.Close()
		return nil, err
	}

	host := collector.NewHost()
	mailer := &mail.SMTP{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.DefaultFromEmail,
	}
	alerter := engine.NewAlerter(mailer, log)
	snaps := engine.NewSnapshotter(st, host, log)
	fsm := engine.NewFSM(st, alerter, snaps, log)
	scheduler := engine.NewScheduler(st, engine.NewHTTPProber(), fsm, log)
	health := engine.NewHealthMonitor(st, kvc, host, alerter, snaps, log)

	return &app{store: st, kv: kvc, scheduler: scheduler, health: health, snaps: snaps}, nil
}

func (a *app) Close() {
	a.kv.Close()
	a.store.Close()
}

func runDaemon(cfg config.Config, log *logrus.Logger) error {
	a, err := buildApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()
	return engine.RunDaemon(engine.DaemonConfig{
		Scheduler:    a.scheduler,
		Health:       a.health,
		TickInterval: time.Duration(cfg.TickIntervalSec) * time.Second,
		Workers:      cfg.Workers,
		Log:          log,
	})
}

func runAdd(ctx context.Context, cfg config.Config, log *logrus.Logger, t *model.Target) error {
	if t.Name == "" || t.URL == "" {
		return fmt.Errorf("-add requires -name and -url")
	}
	a, err := buildApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.CreateTarget(ctx, t); err != nil {
		return err
	}
	fmt.Printf("added %s (%s)\n", t.Name, t.ID)

	// New targets get an immediate probe.
	if err := a.scheduler.RunOnce(ctx, t.ID); err != nil {
		return err
	}
	updated, err := a.store.Target(ctx, t.ID)
	if err != nil {
		return err
	}
	fmt.Printf("first probe: %s\n", updated.CurrentStatus)
	return nil
}

func runList(ctx context.Context, cfg config.Config) error {
	st, err := store.Open(cfg.StoreDSN)
	if err != nil {
		return err
	}
	defer st.Close()

	targets, err := st.ListTargets(ctx)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		fmt.Println("no targets")
		return nil
	}

	since := time.Now().UTC().Add(-uptimeWindow)
	fmt.Printf("%-36s  %-20s  %-8s  %-8s  %-14s  %s\n",
		"ID", "NAME", "STATUS", "UPTIME", "LAST CHECK", "URL")
	for _, t := range targets {
		uptime, err := st.UptimePercentage(ctx, t.ID, since)
		if err != nil {
			return err
		}
		lastCheck := "never"
		if t.LastCheckTime != nil {
			lastCheck = humanize.Time(*t.LastCheckTime)
		}
		status := string(t.CurrentStatus)
		if !t.IsActive {
			status = "paused"
		}
		fmt.Printf("%-36s  %-20s  %-8s  %6.2f%%  %-14s  %s\n",
			t.ID, t.Name, status, uptime, lastCheck, t.URL)
	}
	return nil
}

func runRemove(ctx context.Context, cfg config.Config, id string) error {
	st, err := store.Open(cfg.StoreDSN)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.DeleteTarget(ctx, id); err != nil {
		return err
	}
	fmt.Printf("removed %s\n", id)
	return nil
}

func runCheck(ctx context.Context, cfg config.Config, log *logrus.Logger, id string) error {
	a, err := buildApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.scheduler.RunOnce(ctx, id); err != nil {
		return err
	}
	logs, err := a.store.RecentLogs(ctx, id, 1)
	if err != nil {
		return err
	}
	if len(logs) == 0 {
		return fmt.Errorf("no log row recorded for %s", id)
	}
	l := logs[0]
	if l.IsSuccess {
		size := "-"
		if l.PayloadBytes != nil {
			size = humanize.Bytes(uint64(*l.PayloadBytes))
		}
		fmt.Printf("ok: %.3fs, %s\n", l.ResponseTime, size)
	} else {
		fmt.Printf("failed: %s (%.3fs)\n", l.ErrorMessage, l.ResponseTime)
	}
	return nil
}

func runSnapshot(ctx context.Context, cfg config.Config, log *logrus.Logger, title, reason string) error {
	a, err := buildApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	a.snaps.Capture(ctx, title, reason, engine.SnapshotContext{})
	snaps, err := a.store.Snapshots(ctx, 1)
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		return fmt.Errorf("snapshot was not persisted; see log")
	}
	s := snaps[0]
	fmt.Printf("snapshot %s: cpu=%.1f%% mem=%.1f%% disk=%.1f%%\n",
		s.ID, s.CPU, s.Memory, s.Disk)
	return nil
}

func runHealth(ctx context.Context, cfg config.Config) error {
	st, err := store.Open(cfg.StoreDSN)
	if err != nil {
		return err
	}
	defer st.Close()
	kvc, err := kv.Open(cfg.KVURL)
	if err != nil {
		return err
	}
	defer kvc.Close()

	storeStatus := "healthy"
	if err := st.Ping(ctx); err != nil {
		storeStatus = fmt.Sprintf("down (%v)", err)
	}
	kvStatus := "healthy"
	if err := kvc.Ping(ctx); err != nil {
		kvStatus = fmt.Sprintf("down (%v)", err)
	}

	stats, err := collector.NewHost().Stats()
	if err != nil {
		return err
	}
	sysCfg, err := st.SystemConfig(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("cpu: %.1f%%  memory: %.1f%%  disk: %.1f%%\n",
		stats.CPUPercent, stats.MemoryPercent, stats.DiskPercent)
	fmt.Printf("load: %.2f %.2f %.2f\n", stats.Load1, stats.Load5, stats.Load15)
	fmt.Printf("net: sent %s, recv %s\n",
		humanize.Bytes(stats.NetBytesSent), humanize.Bytes(stats.NetBytesRecv))
	fmt.Printf("store: %s  kv: %s\n", storeStatus, kvStatus)
	fmt.Printf("thresholds: cpu %d%%, memory %d%%, disk %d%%  alert email: %s\n",
		sysCfg.CPUAlertThreshold, sysCfg.MemoryAlertThreshold,
		sysCfg.DiskAlertThreshold, orNone(sysCfg.AlertEmail))

	points, err := kvc.HealthHistory(ctx)
	if err != nil {
		return nil // ring is best-effort
	}
	// Ring is newest first; print chronologically.
	for i := len(points) - 1; i >= 0; i-- {
		p := points[i]
		ts := time.Unix(int64(p.Time), 0).UTC().Format("15:04:05")
		fmt.Printf("  %s  cpu=%5.1f%%  mem=%5.1f%%  disk=%5.1f%%\n",
			ts, p.CPU, p.Memory, p.Disk)
	}
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
