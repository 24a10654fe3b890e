package store

// Schema for the sqlite store. Append-only tables (probe_logs,
// system_snapshots) carry their own rowid; identity-keyed rows use UUIDs.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS targets (
  id                        TEXT PRIMARY KEY,
  name                      TEXT NOT NULL,
  url                       TEXT NOT NULL,
  check_interval_min        INTEGER NOT NULL DEFAULT 5,
  failure_poll_interval_sec INTEGER NOT NULL DEFAULT 5,
  alert_threshold           INTEGER NOT NULL DEFAULT 3,
  recovery_threshold        INTEGER NOT NULL DEFAULT 2,
  alert_email               TEXT NOT NULL DEFAULT '',
  is_active                 INTEGER NOT NULL DEFAULT 1,
  current_status            TEXT NOT NULL DEFAULT 'pending',
  last_check_time           TIMESTAMP,
  consecutive_failures      INTEGER NOT NULL DEFAULT 0,
  consecutive_successes     INTEGER NOT NULL DEFAULT 0,
  created_at                TIMESTAMP NOT NULL,
  updated_at                TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS probe_logs (
  id              INTEGER PRIMARY KEY AUTOINCREMENT,
  target_id       TEXT NOT NULL REFERENCES targets(id) ON DELETE CASCADE,
  timestamp       TIMESTAMP NOT NULL,
  status_code     INTEGER,
  response_time_s REAL NOT NULL,
  ttfb_s          REAL,
  payload_bytes   INTEGER,
  is_success      INTEGER NOT NULL,
  error_message   TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_probe_logs_target_ts
  ON probe_logs(target_id, timestamp DESC);

CREATE TABLE IF NOT EXISTS incidents (
  id           TEXT PRIMARY KEY,
  target_id    TEXT NOT NULL REFERENCES targets(id) ON DELETE CASCADE,
  start_time   TIMESTAMP NOT NULL,
  end_time     TIMESTAMP,
  reason       TEXT NOT NULL DEFAULT '',
  is_resolved  INTEGER NOT NULL DEFAULT 0,
  mttr_seconds INTEGER
);
CREATE INDEX IF NOT EXISTS idx_incidents_target_open
  ON incidents(target_id, is_resolved);

CREATE TABLE IF NOT EXISTS system_config (
  id                     INTEGER PRIMARY KEY CHECK (id = 1),
  alert_email            TEXT NOT NULL DEFAULT '',
  cpu_alert_threshold    INTEGER NOT NULL DEFAULT 85,
  memory_alert_threshold INTEGER NOT NULL DEFAULT 85,
  disk_alert_threshold   INTEGER NOT NULL DEFAULT 85,
  store_dsn_override     TEXT NOT NULL DEFAULT '',
  kv_url_override        TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS system_snapshots (
  id              TEXT PRIMARY KEY,
  title           TEXT NOT NULL,
  reason          TEXT NOT NULL,
  timestamp       TIMESTAMP NOT NULL,
  cpu             REAL NOT NULL,
  memory          REAL NOT NULL,
  disk            REAL NOT NULL,
  load_1          REAL NOT NULL DEFAULT 0,
  load_5          REAL NOT NULL DEFAULT 0,
  load_15         REAL NOT NULL DEFAULT 0,
  net_sent        INTEGER NOT NULL DEFAULT 0,
  net_recv        INTEGER NOT NULL DEFAULT 0,
  target_id       TEXT,
  incident_id     TEXT,
  response_time_s REAL
);
CREATE INDEX IF NOT EXISTS idx_system_snapshots_ts
  ON system_snapshots(timestamp DESC);
`
