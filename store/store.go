// Package store persists targets, probe logs, incidents, snapshots, and
// the singleton system config in sqlite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/okpiyush/pulse-monitor/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// Store wraps the sqlite database.
type Store struct {
	db *sqlx.DB
}

// Open connects to the sqlite database at dsn and applies the schema.
func Open(dsn string) (*Store, error) {
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	// A single writer keeps sqlite's locking out of the picture; reads
	// still share the connection pool.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	var one int
	return s.db.GetContext(ctx, &one, "SELECT 1")
}

// --- Targets ---

// CreateTarget inserts a new target, assigning an ID and timestamps.
func (s *Store) CreateTarget(ctx context.Context, t *model.Target) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.CheckIntervalMin <= 0 {
		t.CheckIntervalMin = 5
	}
	if t.FailurePollIntervalSec <= 0 {
		t.FailurePollIntervalSec = 5
	}
	if t.AlertThreshold <= 0 {
		t.AlertThreshold = 3
	}
	if t.RecoveryThreshold <= 0 {
		t.RecoveryThreshold = 2
	}
	if t.CurrentStatus == "" {
		t.CurrentStatus = model.StatusPending
	}
	_, err := sqlx.NamedExecContext(ctx, s.db, `
		INSERT INTO targets (id, name, url, check_interval_min, failure_poll_interval_sec,
			alert_threshold, recovery_threshold, alert_email, is_active, current_status,
			last_check_time, consecutive_failures, consecutive_successes, created_at, updated_at)
		VALUES (:id, :name, :url, :check_interval_min, :failure_poll_interval_sec,
			:alert_threshold, :recovery_threshold, :alert_email, :is_active, :current_status,
			:last_check_time, :consecutive_failures, :consecutive_successes, :created_at, :updated_at)`, t)
	if err != nil {
		return fmt.Errorf("create target: %w", err)
	}
	return nil
}

// UpdateTarget persists a control-plane edit of a target.
func (s *Store) UpdateTarget(ctx context.Context, t *model.Target) error {
	t.UpdatedAt = time.Now().UTC()
	res, err := sqlx.NamedExecContext(ctx, s.db, `
		UPDATE targets SET name = :name, url = :url,
			check_interval_min = :check_interval_min,
			failure_poll_interval_sec = :failure_poll_interval_sec,
			alert_threshold = :alert_threshold,
			recovery_threshold = :recovery_threshold,
			alert_email = :alert_email, is_active = :is_active,
			updated_at = :updated_at
		WHERE id = :id`, t)
	if err != nil {
		return fmt.Errorf("update target: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTarget removes a target and, via cascade, its logs and incidents.
func (s *Store) DeleteTarget(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM targets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete target: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Target returns one target by id.
func (s *Store) Target(ctx context.Context, id string) (*model.Target, error) {
	var t model.Target
	err := s.db.GetContext(ctx, &t, "SELECT * FROM targets WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get target: %w", err)
	}
	t.CurrentStatus = model.NormalizeStatus(t.CurrentStatus)
	return &t, nil
}

// ListTargets returns all targets ordered by creation time.
func (s *Store) ListTargets(ctx context.Context) ([]model.Target, error) {
	var ts []model.Target
	if err := s.db.SelectContext(ctx, &ts, "SELECT * FROM targets ORDER BY created_at"); err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	for i := range ts {
		ts[i].CurrentStatus = model.NormalizeStatus(ts[i].CurrentStatus)
	}
	return ts, nil
}

// ActiveTargets returns all targets with is_active set.
func (s *Store) ActiveTargets(ctx context.Context) ([]model.Target, error) {
	var ts []model.Target
	if err := s.db.SelectContext(ctx, &ts, "SELECT * FROM targets WHERE is_active = 1 ORDER BY created_at"); err != nil {
		return nil, fmt.Errorf("active targets: %w", err)
	}
	for i := range ts {
		ts[i].CurrentStatus = model.NormalizeStatus(ts[i].CurrentStatus)
	}
	return ts, nil
}

// --- Probe application ---

// ApplyProbe writes one probe outcome's full write set (log row, target
// state, optional incident open/resolve) in a single transaction.
func (s *Store) ApplyProbe(ctx context.Context, w *model.ProbeWrite) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if w.Log != nil {
		if _, err := sqlx.NamedExecContext(ctx, tx, `
			INSERT INTO probe_logs (target_id, timestamp, status_code, response_time_s,
				ttfb_s, payload_bytes, is_success, error_message)
			VALUES (:target_id, :timestamp, :status_code, :response_time_s,
				:ttfb_s, :payload_bytes, :is_success, :error_message)`, w.Log); err != nil {
			return fmt.Errorf("append probe log: %w", err)
		}
	}
	if w.OpenIncident != nil {
		if _, err := sqlx.NamedExecContext(ctx, tx, `
			INSERT INTO incidents (id, target_id, start_time, end_time, reason, is_resolved, mttr_seconds)
			VALUES (:id, :target_id, :start_time, :end_time, :reason, :is_resolved, :mttr_seconds)`,
			w.OpenIncident); err != nil {
			return fmt.Errorf("open incident: %w", err)
		}
	}
	if w.ResolveIncident != nil {
		if _, err := sqlx.NamedExecContext(ctx, tx, `
			UPDATE incidents SET end_time = :end_time, is_resolved = :is_resolved,
				mttr_seconds = :mttr_seconds
			WHERE id = :id AND is_resolved = 0`, w.ResolveIncident); err != nil {
			return fmt.Errorf("resolve incident: %w", err)
		}
	}
	if w.Target != nil {
		w.Target.UpdatedAt = time.Now().UTC()
		if _, err := sqlx.NamedExecContext(ctx, tx, `
			UPDATE targets SET current_status = :current_status,
				last_check_time = :last_check_time,
				consecutive_failures = :consecutive_failures,
				consecutive_successes = :consecutive_successes,
				updated_at = :updated_at
			WHERE id = :id`, w.Target); err != nil {
			return fmt.Errorf("save target state: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// --- Probe logs ---

// RecentLogs returns the newest n log rows for a target, newest first.
func (s *Store) RecentLogs(ctx context.Context, targetID string, n int) ([]model.ProbeLog, error) {
	var logs []model.ProbeLog
	err := s.db.SelectContext(ctx, &logs, `
		SELECT * FROM probe_logs WHERE target_id = ?
		ORDER BY timestamp DESC, id DESC LIMIT ?`, targetID, n)
	if err != nil {
		return nil, fmt.Errorf("recent logs: %w", err)
	}
	return logs, nil
}

// LogsSince returns log rows since the given time, newest first.
func (s *Store) LogsSince(ctx context.Context, targetID string, since time.Time) ([]model.ProbeLog, error) {
	var logs []model.ProbeLog
	err := s.db.SelectContext(ctx, &logs, `
		SELECT * FROM probe_logs WHERE target_id = ? AND timestamp >= ?
		ORDER BY timestamp DESC, id DESC`, targetID, since)
	if err != nil {
		return nil, fmt.Errorf("logs since: %w", err)
	}
	return logs, nil
}

// UptimePercentage returns the success ratio of probes since the given
// time, as a percentage. Returns 100 when no probes were recorded.
func (s *Store) UptimePercentage(ctx context.Context, targetID string, since time.Time) (float64, error) {
	var row struct {
		Total int64 `db:"total"`
		OK    int64 `db:"ok"`
	}
	err := s.db.GetContext(ctx, &row, `
		SELECT COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN is_success THEN 1 ELSE 0 END), 0) AS ok
		FROM probe_logs WHERE target_id = ? AND timestamp >= ?`, targetID, since)
	if err != nil {
		return 0, fmt.Errorf("uptime: %w", err)
	}
	if row.Total == 0 {
		return 100, nil
	}
	return float64(row.OK) / float64(row.Total) * 100, nil
}

// --- Incidents ---

// UnresolvedIncident returns the open incident for a target, or ErrNotFound.
func (s *Store) UnresolvedIncident(ctx context.Context, targetID string) (*model.Incident, error) {
	var inc model.Incident
	err := s.db.GetContext(ctx, &inc, `
		SELECT * FROM incidents WHERE target_id = ? AND is_resolved = 0
		ORDER BY start_time DESC LIMIT 1`, targetID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("unresolved incident: %w", err)
	}
	return &inc, nil
}

// Incidents returns the newest n incidents for a target, newest first.
func (s *Store) Incidents(ctx context.Context, targetID string, n int) ([]model.Incident, error) {
	var incs []model.Incident
	err := s.db.SelectContext(ctx, &incs, `
		SELECT * FROM incidents WHERE target_id = ?
		ORDER BY start_time DESC LIMIT ?`, targetID, n)
	if err != nil {
		return nil, fmt.Errorf("incidents: %w", err)
	}
	return incs, nil
}

// --- System config ---

// SystemConfig returns the singleton config row, creating it on first read.
func (s *Store) SystemConfig(ctx context.Context) (*model.SystemConfig, error) {
	var cfg model.SystemConfig
	err := s.db.GetContext(ctx, &cfg, "SELECT * FROM system_config WHERE id = 1")
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := s.db.ExecContext(ctx, "INSERT INTO system_config (id) VALUES (1)"); err != nil {
			return nil, fmt.Errorf("create system config: %w", err)
		}
		err = s.db.GetContext(ctx, &cfg, "SELECT * FROM system_config WHERE id = 1")
	}
	if err != nil {
		return nil, fmt.Errorf("system config: %w", err)
	}
	return &cfg, nil
}

// UpdateSystemConfig persists the singleton config row.
func (s *Store) UpdateSystemConfig(ctx context.Context, cfg *model.SystemConfig) error {
	cfg.ID = 1
	if _, err := s.SystemConfig(ctx); err != nil {
		return err
	}
	_, err := sqlx.NamedExecContext(ctx, s.db, `
		UPDATE system_config SET alert_email = :alert_email,
			cpu_alert_threshold = :cpu_alert_threshold,
			memory_alert_threshold = :memory_alert_threshold,
			disk_alert_threshold = :disk_alert_threshold,
			store_dsn_override = :store_dsn_override,
			kv_url_override = :kv_url_override
		WHERE id = 1`, cfg)
	if err != nil {
		return fmt.Errorf("update system config: %w", err)
	}
	return nil
}

// --- Snapshots ---

// AppendSnapshot persists a host telemetry snapshot row.
func (s *Store) AppendSnapshot(ctx context.Context, snap *model.SystemSnapshot) error {
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	_, err := sqlx.NamedExecContext(ctx, s.db, `
		INSERT INTO system_snapshots (id, title, reason, timestamp, cpu, memory, disk,
			load_1, load_5, load_15, net_sent, net_recv, target_id, incident_id, response_time_s)
		VALUES (:id, :title, :reason, :timestamp, :cpu, :memory, :disk,
			:load_1, :load_5, :load_15, :net_sent, :net_recv, :target_id, :incident_id, :response_time_s)`, snap)
	if err != nil {
		return fmt.Errorf("append snapshot: %w", err)
	}
	return nil
}

// Snapshots returns the newest n snapshot rows, newest first.
func (s *Store) Snapshots(ctx context.Context, n int) ([]model.SystemSnapshot, error) {
	var snaps []model.SystemSnapshot
	err := s.db.SelectContext(ctx, &snaps, `
		SELECT * FROM system_snapshots ORDER BY timestamp DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("snapshots: %w", err)
	}
	return snaps, nil
}
