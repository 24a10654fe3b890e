package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/okpiyush/pulse-monitor/model"
)

// latencySpikeSec is the response time above which a successful probe
// still triggers a telemetry snapshot (strictly greater).
const latencySpikeSec = 5.0

// FSM applies one probe outcome to one target: it updates counters,
// transitions status, opens and closes incidents, and fires alerts and
// snapshots. The scheduler guarantees outcomes for a single target are
// applied sequentially, so the FSM is the sole mutator of target state.
type FSM struct {
	store   Store
	alerter *Alerter
	snaps   *Snapshotter
	log     *logrus.Logger
	now     func() time.Time
}

// NewFSM creates the target state machine.
func NewFSM(store Store, alerter *Alerter, snaps *Snapshotter, log *logrus.Logger) *FSM {
	return &FSM{store: store, alerter: alerter, snaps: snaps, log: log, now: time.Now}
}

// Apply processes one probe outcome for t. It returns true when the
// scheduler should arm a one-shot fast re-probe (outcome failed, or the
// target remains down).
func (f *FSM) Apply(ctx context.Context, t *model.Target, out model.ProbeOutcome) bool {
	now := f.now().UTC()
	prevStatus := model.NormalizeStatus(t.CurrentStatus)

	w := &model.ProbeWrite{
		Target: t,
		Log: &model.ProbeLog{
			TargetID:     t.ID,
			Timestamp:    now,
			StatusCode:   out.StatusCode,
			ResponseTime: out.ElapsedSec,
			TTFB:         out.TTFBSec,
			PayloadBytes: out.PayloadBytes,
			IsSuccess:    out.IsSuccess,
			ErrorMessage: out.ErrorMessage,
		},
	}

	latencySpike := out.IsSuccess && out.ElapsedSec > latencySpikeSec

	// Each outcome zeroes the opposing counter.
	if out.IsSuccess {
		t.ConsecutiveFailures = 0
		t.ConsecutiveSuccesses++
	} else {
		t.ConsecutiveSuccesses = 0
		t.ConsecutiveFailures++
	}

	var critical bool
	var resolved *model.Incident
	var mttr int64

	if !out.IsSuccess {
		// First failure of a streak drops the target to down at once so
		// fast polling begins; the CRITICAL alert waits for the threshold.
		if t.ConsecutiveFailures == 1 && prevStatus != model.StatusDown {
			t.CurrentStatus = model.StatusDown
			w.OpenIncident = &model.Incident{
				ID:        uuid.NewString(),
				TargetID:  t.ID,
				StartTime: now,
				Reason:    out.ErrorMessage,
			}
		}
		// Strict equality: exactly one alert per streak.
		if t.ConsecutiveFailures == t.AlertThreshold {
			critical = true
		}
	} else {
		switch {
		case prevStatus == model.StatusDown && t.ConsecutiveSuccesses >= t.RecoveryThreshold:
			t.CurrentStatus = model.StatusUp
			inc, err := f.store.UnresolvedIncident(ctx, t.ID)
			if err != nil {
				f.log.WithField("component", "fsm").
					Warnf("target %s recovered but no open incident found: %v", t.Name, err)
			} else {
				end := now
				mttr = int64(now.Sub(inc.StartTime).Seconds())
				inc.EndTime = &end
				inc.IsResolved = true
				inc.MTTRSeconds = &mttr
				w.ResolveIncident = inc
				resolved = inc
			}
		case prevStatus == model.StatusPending:
			t.CurrentStatus = model.StatusUp
		}
	}

	t.LastCheckTime = &now

	if err := f.store.ApplyProbe(ctx, w); err != nil {
		// The outcome for this cycle is lost; the next probe re-reads the
		// stored row, so state cannot become inconsistent.
		f.log.WithField("component", "fsm").
			Errorf("probe outcome for %s not persisted: %v", t.Name, err)
		return !out.IsSuccess || t.CurrentStatus == model.StatusDown
	}

	// Side effects fire after the write set commits.
	if latencySpike {
		rt := out.ElapsedSec
		f.snaps.Capture(ctx, "High Latency Spike: "+t.Name,
			fmt.Sprintf("Response took %.2fs (threshold %.1fs)", out.ElapsedSec, latencySpikeSec),
			SnapshotContext{TargetID: t.ID, ResponseTime: &rt})
	}
	if w.OpenIncident != nil {
		f.snaps.Capture(ctx, "Service Failure: "+t.Name, out.ErrorMessage,
			SnapshotContext{TargetID: t.ID, IncidentID: w.OpenIncident.ID})
	}
	if critical {
		f.alerter.Alert(t.Name, t.URL, t.AlertEmail, "CRITICAL FAILURE",
			fmt.Sprintf("%d consecutive failed checks (threshold %d). Last error: %s",
				t.ConsecutiveFailures, t.AlertThreshold, out.ErrorMessage))
	}
	if resolved != nil {
		f.alerter.Alert(t.Name, t.URL, t.AlertEmail, "RECOVERED",
			fmt.Sprintf("Target recovered after %d minutes of downtime.", mttr/60))
	}

	return !out.IsSuccess || t.CurrentStatus == model.StatusDown
}
