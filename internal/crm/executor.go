package crm

import (
	"context"
	"time"

	"github.com/eyedocs/caredesk/internal/logging"
)

// Sessions is the session surface the executor needs.
type Sessions interface {
	EnsureSession(ctx context.Context) error
	Connected() bool
	Source() Source
}

// Remote is the org surface the executor needs. *Client implements it.
type Remote interface {
	LookupReferral(ctx context.Context, referralNumber string) (bool, string, error)
	CreateReferral(ctx context.Context, rec ReferralRecord) (string, error)
	UpdateReferral(ctx context.Context, recordID string, rec ReferralRecord) error
	DeleteReferral(ctx context.Context, recordID string) error
	Query(ctx context.Context, soql string) (*queryResult, error)
}

// Executor performs one reconciliation attempt per call and normalizes
// every result or failure into an Outcome.
//
// Failure policy: anything that goes wrong before a genuine remote write is
// attempted (session, lookup) is absorbed into the simulation fallback.
// Once a real create/update/delete has been issued, failures surface as
// unsuccessful live outcomes; fabricating a success after a genuine failure
// would misreport remote state.
type Executor struct {
	sessions Sessions
	remote   Remote
	sim      *Simulator
	logger   logging.Logger
}

func NewExecutor(sessions Sessions, remote Remote, sim *Simulator, logger logging.Logger) *Executor {
	return &Executor{sessions: sessions, remote: remote, sim: sim, logger: logger}
}

// SyncRecord mirrors one local record into the org, resolving
// create-vs-update by referral number. The local primary key is never used
// as a correlation key; repeated attempts for the same record can therefore
// never create duplicates.
func (e *Executor) SyncRecord(ctx context.Context, rec ReferralRecord) Outcome {
	fallbackAction := ActionCreated
	if rec.RemoteID != "" {
		fallbackAction = ActionUpdated
	}

	if err := e.sessions.EnsureSession(ctx); err != nil {
		e.logger.Debug(ctx, "no CRM session, falling back to simulation",
			"referralNumber", rec.ReferralNumber, "error", err.Error())
		return e.sim.Simulate(ctx, rec, fallbackAction)
	}

	exists, remoteID, err := e.remote.LookupReferral(ctx, rec.ReferralNumber)
	if err != nil {
		e.logger.Warn(ctx, "CRM lookup failed, falling back to simulation",
			"referralNumber", rec.ReferralNumber, "error", err.Error())
		return e.sim.Simulate(ctx, rec, fallbackAction)
	}

	if !exists {
		id, err := e.remote.CreateReferral(ctx, rec)
		if err != nil {
			e.logger.Error(ctx, "CRM create failed", "referralNumber", rec.ReferralNumber, "error", err.Error())
			return Outcome{Mode: ModeLive, Action: ActionCreated, Err: err.Error()}
		}
		e.logger.Info(ctx, "created CRM referral", "referralNumber", rec.ReferralNumber, "remoteId", id)
		return Outcome{Success: true, RemoteID: id, Mode: ModeLive, Action: ActionCreated}
	}

	if err := e.remote.UpdateReferral(ctx, remoteID, rec); err != nil {
		e.logger.Error(ctx, "CRM update failed", "referralNumber", rec.ReferralNumber, "error", err.Error())
		return Outcome{Mode: ModeLive, Action: ActionUpdated, Err: err.Error()}
	}
	e.logger.Info(ctx, "updated CRM referral", "referralNumber", rec.ReferralNumber, "remoteId", remoteID)
	return Outcome{Success: true, RemoteID: remoteID, Mode: ModeLive, Action: ActionUpdated}
}

// DeleteRecord removes the remote counterpart of a deleted local record.
// Nothing to delete remotely is a successful no-op, not an error.
func (e *Executor) DeleteRecord(ctx context.Context, businessKey string) Outcome {
	rec := ReferralRecord{ReferralNumber: businessKey}

	if err := e.sessions.EnsureSession(ctx); err != nil {
		e.logger.Debug(ctx, "no CRM session, simulating delete", "referralNumber", businessKey)
		return e.sim.Simulate(ctx, rec, ActionDeleted)
	}

	exists, remoteID, err := e.remote.LookupReferral(ctx, businessKey)
	if err != nil {
		e.logger.Warn(ctx, "CRM lookup failed, simulating delete",
			"referralNumber", businessKey, "error", err.Error())
		return e.sim.Simulate(ctx, rec, ActionDeleted)
	}

	if !exists {
		return Outcome{Success: true, Mode: ModeLive, Action: ActionNone}
	}

	if err := e.remote.DeleteReferral(ctx, remoteID); err != nil {
		e.logger.Error(ctx, "CRM delete failed", "referralNumber", businessKey, "error", err.Error())
		return Outcome{Mode: ModeLive, Action: ActionDeleted, Err: err.Error()}
	}
	e.logger.Info(ctx, "deleted CRM referral", "referralNumber", businessKey, "remoteId", remoteID)
	return Outcome{Success: true, RemoteID: remoteID, Mode: ModeLive, Action: ActionDeleted}
}

// ProbeResult reports connectivity for the settings endpoint and the
// crmcheck tool.
type ProbeResult struct {
	Connected bool      `json:"connected"`
	Mode      Mode      `json:"mode"`
	Source    Source    `json:"source"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checkedAt"`
}

// Probe authenticates (if needed) and runs a cheap test query to verify the
// session actually works.
func (e *Executor) Probe(ctx context.Context) ProbeResult {
	result := ProbeResult{Mode: ModeSimulation, Source: e.sessions.Source(), CheckedAt: time.Now()}

	if err := e.sessions.EnsureSession(ctx); err != nil {
		result.Error = err.Error()
		return result
	}

	if _, err := e.remote.Query(ctx, "SELECT Id, Name FROM User LIMIT 1"); err != nil {
		result.Error = err.Error()
		return result
	}

	result.Connected = true
	result.Mode = ModeLive
	return result
}
