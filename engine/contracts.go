package engine

import (
	"context"
	"time"

	"github.com/okpiyush/pulse-monitor/model"
)

// Store is the durable record store consumed by the engine. The concrete
// implementation lives in the store package.
type Store interface {
	Target(ctx context.Context, id string) (*model.Target, error)
	ActiveTargets(ctx context.Context) ([]model.Target, error)
	UnresolvedIncident(ctx context.Context, targetID string) (*model.Incident, error)

	// ApplyProbe persists one outcome's write set (log + target state +
	// optional incident open/resolve) in a single transaction scope.
	ApplyProbe(ctx context.Context, w *model.ProbeWrite) error

	SystemConfig(ctx context.Context) (*model.SystemConfig, error)
	AppendSnapshot(ctx context.Context, snap *model.SystemSnapshot) error
}

// KV is the side-store holding the health ring and the alert cooldown.
type KV interface {
	PushHealthPoint(ctx context.Context, p model.HealthPoint) error
	LastAlertAt(ctx context.Context) (time.Time, bool, error)
	SetLastAlert(ctx context.Context, t time.Time) error
}

// Mailer delivers one alert message.
type Mailer interface {
	Send(to, subject, body string) error
}

// Telemetry samples host metrics on demand.
type Telemetry interface {
	Stats() (model.HostStats, error)
}

// Prober performs one probe against a target. The default implementation
// is an HTTP GET; alternative probe kinds plug in here.
type Prober interface {
	Probe(ctx context.Context, target *model.Target) model.ProbeOutcome
}
