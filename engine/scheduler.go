package engine

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/okpiyush/pulse-monitor/model"
)

// Scheduler multiplexes two polling cadences (minutes while healthy,
// seconds while down) through one dispatch tick. Probe jobs run on a
// bounded worker pool; a target that is in flight is never re-enqueued,
// which also serializes outcome application per target.
type Scheduler struct {
	store  Store
	prober Prober
	fsm    *FSM
	log    *logrus.Logger
	now    func() time.Time

	jobs chan string
	mu   sync.Mutex
	busy map[string]struct{}
	wg   sync.WaitGroup

	// afterFunc arms the one-shot fast re-probe; swappable in tests.
	afterFunc func(d time.Duration, fn func())
}

// NewScheduler creates a scheduler. Call Start to launch the worker pool.
func NewScheduler(store Store, prober Prober, fsm *FSM, log *logrus.Logger) *Scheduler {
	return &Scheduler{
		store:  store,
		prober: prober,
		fsm:    fsm,
		log:    log,
		now:    time.Now,
		jobs:   make(chan string, 256),
		busy:   make(map[string]struct{}),
		afterFunc: func(d time.Duration, fn func()) {
			time.AfterFunc(d, fn)
		},
	}
}

// Start launches the worker pool. Workers exit when ctx is canceled.
func (s *Scheduler) Start(ctx context.Context, workers int) {
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx)
	}
}

// Wait blocks until all workers have exited.
func (s *Scheduler) Wait() { s.wg.Wait() }

// Tick runs one dispatch pass: every active target that is due gets one
// probe job enqueued.
func (s *Scheduler) Tick(ctx context.Context) {
	targets, err := s.store.ActiveTargets(ctx)
	if err != nil {
		s.log.WithField("component", "scheduler").Errorf("list active targets: %v", err)
		return
	}
	now := s.now().UTC()
	for i := range targets {
		if isDue(&targets[i], now) {
			s.TryEnqueue(targets[i].ID)
		}
	}
}

// isDue reports whether a target should be probed at now. Down targets
// follow their fast poll interval; healthy ones their check interval.
func isDue(t *model.Target, now time.Time) bool {
	if t.LastCheckTime == nil {
		return true
	}
	elapsed := now.Sub(*t.LastCheckTime).Seconds()
	if t.CurrentStatus == model.StatusDown {
		return elapsed >= float64(t.FailurePollIntervalSec)
	}
	return elapsed >= float64(t.CheckIntervalMin*60)
}

// TryEnqueue enqueues one probe job unless the target is already in
// flight or the queue is full. Reports whether the job was accepted.
func (s *Scheduler) TryEnqueue(id string) bool {
	s.mu.Lock()
	if _, inflight := s.busy[id]; inflight {
		s.mu.Unlock()
		return false
	}
	s.busy[id] = struct{}{}
	s.mu.Unlock()

	select {
	case s.jobs <- id:
		return true
	default:
		s.release(id)
		s.log.WithField("component", "scheduler").
			Warnf("probe queue full, dropping job for %s", id)
		return false
	}
}

func (s *Scheduler) release(id string) {
	s.mu.Lock()
	delete(s.busy, id)
	s.mu.Unlock()
}

func (s *Scheduler) worker(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-s.jobs:
			s.runJob(ctx, id)
		}
	}
}

// runJob re-reads the target row (control-plane edits must not stale),
// probes it, and applies the outcome. On failure or while the target
// stays down, it arms a one-shot re-probe at the fast poll interval.
func (s *Scheduler) runJob(ctx context.Context, id string) {
	t, err := s.store.Target(ctx, id)
	if err != nil {
		s.release(id)
		s.log.WithField("component", "scheduler").
			Warnf("dropping probe job for %s: %v", id, err)
		return
	}
	if !t.IsActive {
		s.release(id)
		return
	}

	out := s.prober.Probe(ctx, t)
	rearm := s.fsm.Apply(ctx, t, out)

	// The busy mark must clear before the rearm timer can fire, so the
	// self-scheduled probe is not treated as in flight.
	s.release(id)
	if rearm {
		delay := time.Duration(t.FailurePollIntervalSec) * time.Second
		s.afterFunc(delay, func() { s.TryEnqueue(id) })
	}
}

// RunOnce performs one immediate synchronous probe of a target, outside
// the worker pool. Used for on-create checks and manual triggers.
func (s *Scheduler) RunOnce(ctx context.Context, id string) error {
	t, err := s.store.Target(ctx, id)
	if err != nil {
		return err
	}
	out := s.prober.Probe(ctx, t)
	s.fsm.Apply(ctx, t, out)
	return nil
}
