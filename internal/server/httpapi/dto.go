package httpapi

import (
	"time"

	"github.com/eyedocs/caredesk/internal/common"
	"github.com/eyedocs/caredesk/internal/crm"
	"github.com/eyedocs/caredesk/internal/server/models"
)

const dateLayout = "2006-01-02"

// syncInfo is the informational sync block on write responses. The
// attempt runs after the response is sent, so status reflects the record
// as committed and mode reflects the engine's current connectivity.
type syncInfo struct {
	Status models.SyncStatus `json:"status"`
	Mode   crm.Mode          `json:"mode"`
}

type patientPayload struct {
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	DateOfBirth      string `json:"dateOfBirth"`
	Address          string `json:"address"`
	EmergencyContact string `json:"emergencyContact"`
	MedicalHistory   string `json:"medicalHistory"`
	Allergies        string `json:"allergies"`
	Medications      string `json:"medications"`
	Status           string `json:"status"`
}

func (p *patientPayload) toModel() (*models.Patient, error) {
	dob, err := time.Parse(dateLayout, p.DateOfBirth)
	if err != nil {
		return nil, common.ErrorValidation
	}
	return &models.Patient{
		FirstName:        p.FirstName,
		LastName:         p.LastName,
		Email:            p.Email,
		Phone:            p.Phone,
		DateOfBirth:      dob,
		Address:          p.Address,
		EmergencyContact: p.EmergencyContact,
		MedicalHistory:   p.MedicalHistory,
		Allergies:        p.Allergies,
		Medications:      p.Medications,
		Status:           p.Status,
	}, nil
}

type patientView struct {
	ID               int64             `json:"id"`
	FirstName        string            `json:"firstName"`
	LastName         string            `json:"lastName"`
	Email            string            `json:"email"`
	Phone            string            `json:"phone"`
	DateOfBirth      string            `json:"dateOfBirth"`
	Address          string            `json:"address"`
	EmergencyContact string            `json:"emergencyContact"`
	MedicalHistory   string            `json:"medicalHistory"`
	Allergies        string            `json:"allergies"`
	Medications      string            `json:"medications"`
	Status           string            `json:"status"`
	ReferralNumber   string            `json:"referralNumber"`
	SalesforceID     string            `json:"salesforceId,omitempty"`
	SyncStatus       models.SyncStatus `json:"syncStatus"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

func viewPatient(p *models.Patient) patientView {
	return patientView{
		ID:               p.ID,
		FirstName:        p.FirstName,
		LastName:         p.LastName,
		Email:            p.Email,
		Phone:            p.Phone,
		DateOfBirth:      p.DateOfBirth.Format(dateLayout),
		Address:          p.Address,
		EmergencyContact: p.EmergencyContact,
		MedicalHistory:   p.MedicalHistory,
		Allergies:        p.Allergies,
		Medications:      p.Medications,
		Status:           p.Status,
		ReferralNumber:   p.ReferralNumber,
		SalesforceID:     p.SalesforceID.String,
		SyncStatus:       p.SyncStatus,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func viewPatients(ps []*models.Patient) []patientView {
	out := make([]patientView, 0, len(ps))
	for _, p := range ps {
		out = append(out, viewPatient(p))
	}
	return out
}

type referralPayload struct {
	PatientName   string `json:"patientName"`
	Condition     string `json:"condition"`
	Urgency       string `json:"urgency"`
	ClinicalNotes string `json:"clinicalNotes"`
	Status        string `json:"status"`
	PracticeName  string `json:"practiceName"`
	DateReceived  string `json:"dateReceived"`
}

func (p *referralPayload) toModel() (*models.Referral, error) {
	ref := &models.Referral{
		PatientName:   p.PatientName,
		Condition:     p.Condition,
		Urgency:       p.Urgency,
		ClinicalNotes: p.ClinicalNotes,
		Status:        p.Status,
		PracticeName:  p.PracticeName,
	}
	if p.DateReceived != "" {
		received, err := time.Parse(dateLayout, p.DateReceived)
		if err != nil {
			return nil, common.ErrorValidation
		}
		ref.DateReceived = received
	}
	return ref, nil
}

type referralView struct {
	ID             int64             `json:"id"`
	ReferralNumber string            `json:"referralNumber"`
	PatientName    string            `json:"patientName"`
	Condition      string            `json:"condition"`
	Urgency        string            `json:"urgency"`
	ClinicalNotes  string            `json:"clinicalNotes"`
	Status         string            `json:"status"`
	PracticeName   string            `json:"practiceName"`
	DateReceived   string            `json:"dateReceived"`
	SalesforceID   string            `json:"salesforceId,omitempty"`
	SyncStatus     models.SyncStatus `json:"syncStatus"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

func viewReferral(ref *models.Referral) referralView {
	return referralView{
		ID:             ref.ID,
		ReferralNumber: ref.ReferralNumber,
		PatientName:    ref.PatientName,
		Condition:      ref.Condition,
		Urgency:        ref.Urgency,
		ClinicalNotes:  ref.ClinicalNotes,
		Status:         ref.Status,
		PracticeName:   ref.PracticeName,
		DateReceived:   ref.DateReceived.Format(dateLayout),
		SalesforceID:   ref.SalesforceID.String,
		SyncStatus:     ref.SyncStatus,
		CreatedAt:      ref.CreatedAt,
		UpdatedAt:      ref.UpdatedAt,
	}
}

func viewReferrals(refs []*models.Referral) []referralView {
	out := make([]referralView, 0, len(refs))
	for _, ref := range refs {
		out = append(out, viewReferral(ref))
	}
	return out
}

type appointmentPayload struct {
	PatientID int64  `json:"patientId"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Type      string `json:"type"`
	Notes     string `json:"notes"`
	Status    string `json:"status"`
	Duration  int    `json:"duration"`
}

func (p *appointmentPayload) toModel() (*models.Appointment, error) {
	date, err := time.Parse(dateLayout, p.Date)
	if err != nil {
		return nil, common.ErrorValidation
	}
	return &models.Appointment{
		PatientID: p.PatientID,
		Date:      date,
		Time:      p.Time,
		Type:      p.Type,
		Notes:     p.Notes,
		Status:    p.Status,
		Duration:  p.Duration,
	}, nil
}

type appointmentView struct {
	ID        int64     `json:"id"`
	PatientID int64     `json:"patientId"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	Type      string    `json:"type"`
	Notes     string    `json:"notes"`
	Status    string    `json:"status"`
	Duration  int       `json:"duration"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func viewAppointment(a *models.Appointment) appointmentView {
	return appointmentView{
		ID:        a.ID,
		PatientID: a.PatientID,
		Date:      a.Date.Format(dateLayout),
		Time:      a.Time,
		Type:      a.Type,
		Notes:     a.Notes,
		Status:    a.Status,
		Duration:  a.Duration,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func viewAppointments(as []*models.Appointment) []appointmentView {
	out := make([]appointmentView, 0, len(as))
	for _, a := range as {
		out = append(out, viewAppointment(a))
	}
	return out
}

type userView struct {
	ID        int64  `json:"id"`
	UserName  string `json:"username"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func viewUser(u *models.User) userView {
	return userView{
		ID:        u.ID,
		UserName:  u.UserName,
		Email:     u.Email,
		Role:      u.Role,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}
