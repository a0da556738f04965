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
	"github.com/eyedocs/caredesk/internal/server/repositories/referrals"
	"github.com/eyedocs/caredesk/internal/server/repositories/repomanager"
)

// referralNumberAttempts bounds retries when concurrent creates race for
// the same sequence number.
const referralNumberAttempts = 3

var validUrgencies = map[string]bool{"routine": true, "soon": true, "urgent": true}

// ReferralService owns referral writes. Every write commits locally first
// and only then hands the record to the reconciler; a CRM outage can never
// block or roll back a local write.
type ReferralService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	reconciler  Reconciler
	logger      logging.Logger

	now func() time.Time
}

func NewReferralService(db *sql.DB, m repomanager.RepositoryManager, reconciler Reconciler, logger logging.Logger) *ReferralService {
	return &ReferralService{
		db:          db,
		repomanager: m,
		reconciler:  reconciler,
		logger:      logger,
		now:         time.Now,
	}
}

// Create commits the referral locally, assigning the next REF-YYYYMM-NNNN
// number, then schedules a CRM sync.
func (s *ReferralService) Create(ctx context.Context, referral *models.Referral) (*models.Referral, error) {
	if referral.PatientName == "" || referral.Condition == "" {
		return nil, common.ErrorValidation
	}
	if referral.Urgency == "" {
		referral.Urgency = "routine"
	}
	if !validUrgencies[referral.Urgency] {
		return nil, common.ErrorValidation
	}
	if referral.Status == "" {
		referral.Status = "new"
	}
	if referral.DateReceived.IsZero() {
		referral.DateReceived = s.now()
	}

	repo := s.repomanager.Referrals(s.db)
	prefix := fmt.Sprintf("REF-%s-", s.now().Format("200601"))

	var created *models.Referral
	for attempt := 0; attempt < referralNumberAttempts; attempt++ {
		number, err := repo.NextReferralNumber(ctx, prefix)
		if err != nil {
			return nil, err
		}
		referral.ReferralNumber = number

		created, err = repo.Create(ctx, referral)
		if err == nil {
			break
		}
		if errors.Is(err, common.ErrorAlreadyExists) && attempt < referralNumberAttempts-1 {
			continue
		}
		return nil, err
	}

	s.enqueueSync(created)
	return created, nil
}

// Update commits the change locally, then schedules a CRM sync carrying
// the new field values.
func (s *ReferralService) Update(ctx context.Context, referral *models.Referral) (*models.Referral, error) {
	if referral.Urgency != "" && !validUrgencies[referral.Urgency] {
		return nil, common.ErrorValidation
	}

	repo := s.repomanager.Referrals(s.db)
	if err := repo.Update(ctx, referral); err != nil {
		return nil, err
	}

	updated, err := repo.GetByID(ctx, referral.ID)
	if err != nil {
		return nil, err
	}

	s.enqueueSync(updated)
	return updated, nil
}

// Delete removes the referral locally, then schedules removal of the
// remote counterpart. The remote record is located by referral number; a
// missing counterpart is treated as already deleted.
func (s *ReferralService) Delete(ctx context.Context, id int64) error {
	repo := s.repomanager.Referrals(s.db)

	referral, err := repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := repo.Delete(ctx, id); err != nil {
		return err
	}

	// The local row is gone; the outcome is log-only.
	s.reconciler.EnqueueDelete(referral.ReferralNumber, s.now(), nil)
	return nil
}

func (s *ReferralService) GetByID(ctx context.Context, id int64) (*models.Referral, error) {
	return s.repomanager.Referrals(s.db).GetByID(ctx, id)
}

func (s *ReferralService) GetByReferralNumber(ctx context.Context, number string) (*models.Referral, error) {
	return s.repomanager.Referrals(s.db).GetByReferralNumber(ctx, number)
}

func (s *ReferralService) List(ctx context.Context, filter referrals.ListFilter) ([]*models.Referral, int, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	return s.repomanager.Referrals(s.db).List(ctx, filter)
}

// Resync re-enqueues a sync attempt for an existing referral without
// changing it locally.
func (s *ReferralService) Resync(ctx context.Context, id int64) (*models.Referral, error) {
	referral, err := s.repomanager.Referrals(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.enqueueSync(referral)
	return referral, nil
}

func (s *ReferralService) enqueueSync(referral *models.Referral) {
	id := referral.ID
	writeTime := s.now()

	s.reconciler.EnqueueUpsert(referral.ReferralNumber, writeTime, referralToRecord(referral),
		func(ctx context.Context, o crm.Outcome) error {
			return s.repomanager.Referrals(s.db).UpdateSyncResult(ctx, id, outcomeToSyncResult(o))
		})
}

func referralToRecord(referral *models.Referral) crm.ReferralRecord {
	return crm.ReferralRecord{
		ReferralNumber: referral.ReferralNumber,
		PatientName:    referral.PatientName,
		Condition:      referral.Condition,
		Urgency:        referral.Urgency,
		Status:         referral.Status,
		ClinicalNotes:  referral.ClinicalNotes,
		PracticeName:   referral.PracticeName,
		DateReceived:   referral.DateReceived,
		RemoteID:       referral.SalesforceID.String,
	}
}
