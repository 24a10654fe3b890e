package engine

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

// DaemonConfig holds the assembled components and cadences of the
// monitoring daemon.
type DaemonConfig struct {
	Scheduler *Scheduler
	Health    *HealthMonitor

	// TickInterval is the dispatch tick; defaults to 60 s.
	TickInterval time.Duration
	// HealthInterval is the host sampling tick; defaults to 60 s.
	HealthInterval time.Duration
	// Workers bounds probe parallelism; defaults to 8.
	Workers int

	Log *logrus.Logger
}

// RunDaemon runs the monitor until SIGINT/SIGTERM. Both periodic loops
// fire immediately on startup, then on their tickers.
func RunDaemon(cfg DaemonConfig) error {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 60 * time.Second
	}
	if cfg.HealthInterval <= 0 {
		cfg.HealthInterval = 60 * time.Second
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg.Scheduler.Start(ctx, cfg.Workers)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	dispatchTicker := time.NewTicker(cfg.TickInterval)
	defer dispatchTicker.Stop()
	healthTicker := time.NewTicker(cfg.HealthInterval)
	defer healthTicker.Stop()

	cfg.Log.Infof("pulse daemon started (pid=%d, tick=%s, workers=%d)",
		os.Getpid(), cfg.TickInterval, cfg.Workers)

	cfg.Scheduler.Tick(ctx)
	cfg.Health.Tick(ctx)

	for {
		select {
		case <-sigCh:
			cfg.Log.Info("pulse daemon shutting down")
			cancel()
			// In-flight probes finish or are abandoned; nothing durable
			// is lost beyond what last_check_time already reflects.
			done := make(chan struct{})
			go func() {
				cfg.Scheduler.Wait()
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(probeTimeout):
			}
			return nil
		case <-dispatchTicker.C:
			cfg.Scheduler.Tick(ctx)
		case <-healthTicker.C:
			cfg.Health.Tick(ctx)
		}
	}
}
