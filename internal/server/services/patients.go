package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/eyedocs/caredesk/internal/common"
	"github.com/eyedocs/caredesk/internal/crm"
	"github.com/eyedocs/caredesk/internal/logging"
	"github.com/eyedocs/caredesk/internal/server/models"
	"github.com/eyedocs/caredesk/internal/server/repositories/patients"
	"github.com/eyedocs/caredesk/internal/server/repositories/repomanager"
)

// PatientService owns patient writes. Patients mirror into the CRM as
// referral records keyed by the patient's referral number, with the same
// local-write-first contract the referral service uses.
type PatientService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	reconciler  Reconciler
	logger      logging.Logger

	now func() time.Time
}

func NewPatientService(db *sql.DB, m repomanager.RepositoryManager, reconciler Reconciler, logger logging.Logger) *PatientService {
	return &PatientService{
		db:          db,
		repomanager: m,
		reconciler:  reconciler,
		logger:      logger,
		now:         time.Now,
	}
}

// Create commits the patient locally, assigning a referral number, then
// schedules a CRM sync.
func (s *PatientService) Create(ctx context.Context, patient *models.Patient) (*models.Patient, error) {
	if patient.FirstName == "" || patient.LastName == "" || patient.Email == "" {
		return nil, common.ErrorValidation
	}
	if patient.Status == "" {
		patient.Status = "active"
	}

	repo := s.repomanager.Patients(s.db)
	refRepo := s.repomanager.Referrals(s.db)
	prefix := fmt.Sprintf("REF-%s-", s.now().Format("200601"))

	var created *models.Patient
	for attempt := 0; attempt < referralNumberAttempts; attempt++ {
		number, err := refRepo.NextReferralNumber(ctx, prefix)
		if err != nil {
			return nil, err
		}
		patient.ReferralNumber = number

		created, err = repo.Create(ctx, patient)
		if err == nil {
			break
		}
		// The duplicate may be the email rather than the number; retrying
		// with a fresh number is harmless either way and the last attempt
		// surfaces the real error.
		if errors.Is(err, common.ErrorAlreadyExists) && attempt < referralNumberAttempts-1 {
			continue
		}
		return nil, err
	}

	s.enqueueSync(created)
	return created, nil
}

// Update commits the change locally, then schedules a CRM sync.
func (s *PatientService) Update(ctx context.Context, patient *models.Patient) (*models.Patient, error) {
	repo := s.repomanager.Patients(s.db)
	if err := repo.Update(ctx, patient); err != nil {
		return nil, err
	}

	updated, err := repo.GetByID(ctx, patient.ID)
	if err != nil {
		return nil, err
	}

	s.enqueueSync(updated)
	return updated, nil
}

// Delete removes the patient locally, then schedules removal of the
// mirrored CRM record.
func (s *PatientService) Delete(ctx context.Context, id int64) error {
	repo := s.repomanager.Patients(s.db)

	patient, err := repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := repo.Delete(ctx, id); err != nil {
		return err
	}

	s.reconciler.EnqueueDelete(patient.ReferralNumber, s.now(), nil)
	return nil
}

func (s *PatientService) GetByID(ctx context.Context, id int64) (*models.Patient, error) {
	return s.repomanager.Patients(s.db).GetByID(ctx, id)
}

func (s *PatientService) List(ctx context.Context, filter patients.ListFilter) ([]*models.Patient, int, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	return s.repomanager.Patients(s.db).List(ctx, filter)
}

func (s *PatientService) enqueueSync(patient *models.Patient) {
	id := patient.ID
	writeTime := s.now()

	s.reconciler.EnqueueUpsert(patient.ReferralNumber, writeTime, patientToRecord(patient),
		func(ctx context.Context, o crm.Outcome) error {
			return s.repomanager.Patients(s.db).UpdateSyncResult(ctx, id, outcomeToSyncResult(o))
		})
}

// patientToRecord shapes a patient as the referral record the CRM stores.
// The medical condition summarises history and allergies; sensitive detail
// stays local.
func patientToRecord(patient *models.Patient) crm.ReferralRecord {
	condition := patient.MedicalHistory
	if condition == "" {
		condition = "General ophthalmic care"
	}
	return crm.ReferralRecord{
		ReferralNumber: patient.ReferralNumber,
		PatientName:    patient.FirstName + " " + patient.LastName,
		Condition:      condition,
		Urgency:        "routine",
		Status:         "new",
		ClinicalNotes:  patient.Allergies,
		DateReceived:   patient.CreatedAt,
		RemoteID:       patient.SalesforceID.String,
	}
}
