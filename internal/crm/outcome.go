package crm

import "time"

// Mode reports whether an outcome came from the real CRM or from the
// simulation fallback.
type Mode string

const (
	ModeLive       Mode = "live"
	ModeSimulation Mode = "simulation"
)

// Action is the operation the sync attempt resolved to.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
	// ActionNone marks a delete that found nothing to delete remotely.
	ActionNone Action = "noop"
)

// Outcome is the uniform result of every reconciliation attempt, live or
// simulated. Callers must branch on Mode explicitly rather than inspecting
// optional fields.
type Outcome struct {
	Success  bool
	RemoteID string
	Mode     Mode
	Action   Action
	Err      string

	// WriteTime is the commit time of the local write that triggered the
	// attempt. The dispatcher uses it to discard stale outcomes.
	WriteTime time.Time
}

// ReferralRecord is the local view of a referral handed to the sync engine.
// ReferralNumber is the business key correlating local and remote records;
// the local primary key never crosses this boundary.
type ReferralRecord struct {
	ReferralNumber string
	PatientName    string
	Condition      string
	Urgency        string
	Status         string
	ClinicalNotes  string
	PracticeName   string
	DateReceived   time.Time

	// RemoteID is the previously persisted remote identifier, if any.
	// It is only a hint for the simulation fallback; live upserts always
	// re-resolve by referral number.
	RemoteID string
}
