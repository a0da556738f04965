// Package models defines server-side data models persisted in the database.
package models

import (
	"database/sql"
	"time"
)

// SyncStatus tracks the CRM reconciliation state of a record. A record
// starts unsynced; a live success moves it to synced, a live failure to
// failed, and a simulation fallback to simulated. It never reverts to
// unsynced automatically.
type SyncStatus string

const (
	SyncUnsynced  SyncStatus = "unsynced"
	SyncSynced    SyncStatus = "synced"
	SyncFailed    SyncStatus = "failed"
	SyncSimulated SyncStatus = "simulated"
)

// SyncResult is the secondary update persisted onto an already-committed
// record after a reconciliation attempt.
type SyncResult struct {
	RemoteID  string
	Status    SyncStatus
	WriteTime time.Time
}

// Patient is a locally-owned patient record. SalesforceID is set once by the
// first successful remote (or simulated) create and never cleared; a later
// remote failure does not erase it.
type Patient struct {
	ID               int64
	FirstName        string
	LastName         string
	Email            string
	Phone            string
	DateOfBirth      time.Time
	Address          string
	EmergencyContact string
	MedicalHistory   string
	Allergies        string
	Medications      string
	Status           string

	ReferralNumber string
	SalesforceID   sql.NullString
	SyncStatus     SyncStatus
	SyncUpdatedAt  sql.NullTime

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Referral is a locally-owned referral record; ReferralNumber is the
// business key correlating it with the remote CRM.
type Referral struct {
	ID             int64
	ReferralNumber string
	PatientName    string
	Condition      string
	Urgency        string
	ClinicalNotes  string
	Status         string
	PracticeName   string
	DateReceived   time.Time

	SalesforceID  sql.NullString
	SyncStatus    SyncStatus
	SyncUpdatedAt sql.NullTime

	CreatedAt time.Time
	UpdatedAt time.Time
}

type Appointment struct {
	ID        int64
	PatientID int64
	Date      time.Time
	Time      string
	Type      string
	Notes     string
	Status    string
	Duration  int

	CreatedAt time.Time
	UpdatedAt time.Time
}

type User struct {
	ID           int64
	UserName     string
	Email        string
	PasswordHash string
	Role         string
	FirstName    string
	LastName     string
	IsActive     bool
	CreatedAt    time.Time
}

type RefreshToken struct {
	UserID  int64
	Token   string
	Expires time.Time
}
