package model

import "time"

// Status is the health state of a target.
type Status string

const (
	StatusPending Status = "pending"
	StatusUp      Status = "up"
	StatusDown    Status = "down"
)

// NormalizeStatus maps unknown status values to pending.
func NormalizeStatus(s Status) Status {
	switch s {
	case StatusUp, StatusDown, StatusPending:
		return s
	}
	return StatusPending
}

// Target is a monitored HTTP endpoint with its polling configuration
// and current health state.
type Target struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	URL  string `db:"url" json:"url"`

	// Polling configuration
	CheckIntervalMin       int `db:"check_interval_min" json:"check_interval_min"`
	FailurePollIntervalSec int `db:"failure_poll_interval_sec" json:"failure_poll_interval_sec"`

	// Alerting configuration
	AlertThreshold    int    `db:"alert_threshold" json:"alert_threshold"`
	RecoveryThreshold int    `db:"recovery_threshold" json:"recovery_threshold"`
	AlertEmail        string `db:"alert_email" json:"alert_email,omitempty"`

	// State tracking
	IsActive             bool       `db:"is_active" json:"is_active"`
	CurrentStatus        Status     `db:"current_status" json:"current_status"`
	LastCheckTime        *time.Time `db:"last_check_time" json:"last_check_time,omitempty"`
	ConsecutiveFailures  int        `db:"consecutive_failures" json:"consecutive_failures"`
	ConsecutiveSuccesses int        `db:"consecutive_successes" json:"consecutive_successes"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ProbeLog is the persisted record of one probe attempt.
type ProbeLog struct {
	ID           int64     `db:"id" json:"id"`
	TargetID     string    `db:"target_id" json:"target_id"`
	Timestamp    time.Time `db:"timestamp" json:"timestamp"`
	StatusCode   *int      `db:"status_code" json:"status_code,omitempty"`
	ResponseTime float64   `db:"response_time_s" json:"response_time_s"`
	TTFB         *float64  `db:"ttfb_s" json:"ttfb_s,omitempty"`
	PayloadBytes *int64    `db:"payload_bytes" json:"payload_bytes,omitempty"`
	IsSuccess    bool      `db:"is_success" json:"is_success"`
	ErrorMessage string    `db:"error_message" json:"error_message,omitempty"`
}

// Incident is an open interval of down status on a target.
// Once resolved it is never mutated again.
type Incident struct {
	ID          string     `db:"id" json:"id"`
	TargetID    string     `db:"target_id" json:"target_id"`
	StartTime   time.Time  `db:"start_time" json:"start_time"`
	EndTime     *time.Time `db:"end_time" json:"end_time,omitempty"`
	Reason      string     `db:"reason" json:"reason"`
	IsResolved  bool       `db:"is_resolved" json:"is_resolved"`
	MTTRSeconds *int64     `db:"mttr_seconds" json:"mttr_seconds,omitempty"`
}

// SystemConfig is the singleton configuration row (id=1, lazily created).
type SystemConfig struct {
	ID                   int    `db:"id" json:"id"`
	AlertEmail           string `db:"alert_email" json:"alert_email"`
	CPUAlertThreshold    int    `db:"cpu_alert_threshold" json:"cpu_alert_threshold"`
	MemoryAlertThreshold int    `db:"memory_alert_threshold" json:"memory_alert_threshold"`
	DiskAlertThreshold   int    `db:"disk_alert_threshold" json:"disk_alert_threshold"`

	// Optional override connection strings used by the broader app.
	StoreDSNOverride string `db:"store_dsn_override" json:"store_dsn_override,omitempty"`
	KVURLOverride    string `db:"kv_url_override" json:"kv_url_override,omitempty"`
}

// SystemSnapshot is a persisted capture of host telemetry tagged with a cause.
type SystemSnapshot struct {
	ID        string    `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	Reason    string    `db:"reason" json:"reason"`
	Timestamp time.Time `db:"timestamp" json:"timestamp"`

	CPU     float64 `db:"cpu" json:"cpu"`
	Memory  float64 `db:"memory" json:"memory"`
	Disk    float64 `db:"disk" json:"disk"`
	Load1   float64 `db:"load_1" json:"load_1"`
	Load5   float64 `db:"load_5" json:"load_5"`
	Load15  float64 `db:"load_15" json:"load_15"`
	NetSent uint64  `db:"net_sent" json:"net_sent"`
	NetRecv uint64  `db:"net_recv" json:"net_recv"`

	// Context
	TargetID     *string  `db:"target_id" json:"target_id,omitempty"`
	IncidentID   *string  `db:"incident_id" json:"incident_id,omitempty"`
	ResponseTime *float64 `db:"response_time_s" json:"response_time_s,omitempty"`
}
