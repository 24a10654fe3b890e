package engine

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/okpiyush/pulse-monitor/model"
)

// memStore is an in-memory Store for engine tests.
type memStore struct {
	mu        sync.Mutex
	targets   map[string]*model.Target
	logs      []model.ProbeLog
	incidents map[string]*model.Incident
	snapshots []model.SystemSnapshot
	config    model.SystemConfig
	applyErr  error
}

var errNoRow = errors.New("not found")

func newMemStore() *memStore {
	return &memStore{
		targets:   make(map[string]*model.Target),
		incidents: make(map[string]*model.Incident),
		config: model.SystemConfig{
			ID:                   1,
			CPUAlertThreshold:    85,
			MemoryAlertThreshold: 85,
			DiskAlertThreshold:   85,
		},
	}
}

func (m *memStore) put(t *model.Target) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.targets[t.ID] = &cp
}

func (m *memStore) Target(_ context.Context, id string) (*model.Target, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.targets[id]
	if !ok {
		return nil, errNoRow
	}
	cp := *t
	return &cp, nil
}

func (m *memStore) ActiveTargets(context.Context) ([]model.Target, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ts []model.Target
	for _, t := range m.targets {
		if t.IsActive {
			ts = append(ts, *t)
		}
	}
	return ts, nil
}

func (m *memStore) UnresolvedIncident(_ context.Context, targetID string) (*model.Incident, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inc := range m.incidents {
		if inc.TargetID == targetID && !inc.IsResolved {
			cp := *inc
			return &cp, nil
		}
	}
	return nil, errNoRow
}

func (m *memStore) ApplyProbe(_ context.Context, w *model.ProbeWrite) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.applyErr != nil {
		return m.applyErr
	}
	if w.Log != nil {
		m.logs = append(m.logs, *w.Log)
	}
	if w.OpenIncident != nil {
		cp := *w.OpenIncident
		m.incidents[cp.ID] = &cp
	}
	if w.ResolveIncident != nil {
		cp := *w.ResolveIncident
		m.incidents[cp.ID] = &cp
	}
	if w.Target != nil {
		cp := *w.Target
		m.targets[cp.ID] = &cp
	}
	return nil
}

func (m *memStore) SystemConfig(context.Context) (*model.SystemConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := m.config
	return &cp, nil
}

func (m *memStore) AppendSnapshot(_ context.Context, snap *model.SystemSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = append(m.snapshots, *snap)
	return nil
}

func (m *memStore) unresolvedCount(targetID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, inc := range m.incidents {
		if inc.TargetID == targetID && !inc.IsResolved {
			n++
		}
	}
	return n
}

func (m *memStore) snapshotTitles() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var titles []string
	for _, s := range m.snapshots {
		titles = append(titles, s.Title)
	}
	return titles
}

// fakeMailer records sent mail and can be told to fail.
type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail bool
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

func (f *fakeMailer) Send(to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("smtp unreachable")
	}
	f.sent = append(f.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (f *fakeMailer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// fakeTelemetry returns canned host stats.
type fakeTelemetry struct {
	stats model.HostStats
	err   error
}

func (f *fakeTelemetry) Stats() (model.HostStats, error) {
	return f.stats, f.err
}

// fakeProber returns canned outcomes in sequence, repeating the last one.
type fakeProber struct {
	mu       sync.Mutex
	outcomes []model.ProbeOutcome
	calls    int
}

func (f *fakeProber) Probe(context.Context, *model.Target) model.ProbeOutcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i >= len(f.outcomes) {
		i = len(f.outcomes) - 1
	}
	return f.outcomes[i]
}

func ctxb() context.Context { return context.Background() }

func quietLog() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// harness wires an FSM over fakes with a controllable clock.
type harness struct {
	store   *memStore
	mailer  *fakeMailer
	fsm     *FSM
	clock   time.Time
	rearmed []bool
}

func newHarness() *harness {
	h := &harness{
		store:  newMemStore(),
		mailer: &fakeMailer{},
		clock:  time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	log := quietLog()
	alerter := NewAlerter(h.mailer, log)
	alerter.now = h.now
	snaps := NewSnapshotter(h.store, &fakeTelemetry{stats: model.HostStats{CPUPercent: 10}}, log)
	snaps.now = h.now
	h.fsm = NewFSM(h.store, alerter, snaps, log)
	h.fsm.now = h.now
	return h
}

func (h *harness) now() time.Time { return h.clock }

// applyAt advances the clock to base+offset seconds and applies one outcome.
func (h *harness) applyAt(offsetSec int, out model.ProbeOutcome, target *model.Target) *model.Target {
	h.clock = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(offsetSec) * time.Second)
	t, err := h.store.Target(context.Background(), target.ID)
	if err != nil {
		panic(err)
	}
	rearm := h.fsm.Apply(context.Background(), t, out)
	h.rearmed = append(h.rearmed, rearm)
	return t
}

func success(elapsed float64) model.ProbeOutcome {
	code := 200
	payload := int64(512)
	ttfb := elapsed / 2
	return model.ProbeOutcome{
		ElapsedSec:   elapsed,
		TTFBSec:      &ttfb,
		PayloadBytes: &payload,
		StatusCode:   &code,
		IsSuccess:    true,
	}
}

func failure(msg string) model.ProbeOutcome {
	return model.ProbeOutcome{
		ElapsedSec:   0.2,
		IsSuccess:    false,
		ErrorMessage: msg,
	}
}
