package model

import "time"

// ProbeOutcome is the classified result of one probe attempt.
type ProbeOutcome struct {
	StartedAt    time.Time
	ElapsedSec   float64
	TTFBSec      *float64
	PayloadBytes *int64
	StatusCode   *int
	IsSuccess    bool
	ErrorMessage string
}

// ProbeWrite is the write set produced by applying one probe outcome
// to a target. The store persists it in a single transaction scope so
// a partial failure cannot leave the target inconsistent.
type ProbeWrite struct {
	Target          *Target
	Log             *ProbeLog
	OpenIncident    *Incident // non-nil when the outcome opened an incident
	ResolveIncident *Incident // non-nil when the outcome resolved one
}
