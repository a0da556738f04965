package services

import (
	"context"
	"errors"
	"testing"

	"github.com/eyedocs/caredesk/internal/common"
	"github.com/eyedocs/caredesk/internal/crm"
	"github.com/eyedocs/caredesk/internal/server/models"
)

func newPatientService(t *testing.T, rm *fakeRepoManager, rec *fakeReconciler) *PatientService {
	t.Helper()
	db, _ := newSQLMockDB(t)
	t.Cleanup(func() { db.Close() })
	return NewPatientService(db, rm, rec, discardLogger{})
}

func TestPatientCreate_AssignsReferralNumberAndEnqueues(t *testing.T) {
	rm := &fakeRepoManager{patients: newFakePatientsRepo(), referrals: newFakeReferralsRepo()}
	rec := &fakeReconciler{}
	s := newPatientService(t, rm, rec)

	created, err := s.Create(context.Background(), &models.Patient{
		FirstName: "Ada", LastName: "Byrne", Email: "ada@example.com",
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if created.ReferralNumber != "REF-202608-0001" {
		t.Fatalf("unexpected number: %q", created.ReferralNumber)
	}
	if created.Status != "active" {
		t.Fatalf("default status not applied: %+v", created)
	}

	if len(rec.upserts) != 1 {
		t.Fatalf("want 1 enqueued upsert, got %d", len(rec.upserts))
	}
	if rec.upserts[0].key != created.ReferralNumber {
		t.Fatalf("sync key %q, want referral number", rec.upserts[0].key)
	}
	if rec.upserts[0].rec.PatientName != "Ada Byrne" {
		t.Fatalf("record payload: %+v", rec.upserts[0].rec)
	}
}

func TestPatientCreate_Validation(t *testing.T) {
	s := newPatientService(t, &fakeRepoManager{patients: newFakePatientsRepo(), referrals: newFakeReferralsRepo()}, &fakeReconciler{})

	if _, err := s.Create(context.Background(), &models.Patient{FirstName: "Ada"}); !errors.Is(err, common.ErrorValidation) {
		t.Fatalf("want ErrorValidation, got %v", err)
	}
}

func TestPatientCreate_PersistMapsOutcome(t *testing.T) {
	rm := &fakeRepoManager{patients: newFakePatientsRepo(), referrals: newFakeReferralsRepo()}
	rec := &fakeReconciler{}
	s := newPatientService(t, rm, rec)

	if _, err := s.Create(context.Background(), &models.Patient{
		FirstName: "Ada", LastName: "Byrne", Email: "ada@example.com",
	}); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	err := rec.upserts[0].persist(context.Background(), crm.Outcome{
		Success:  true,
		RemoteID: "a0C1x000001",
		Mode:     crm.ModeLive,
		Action:   crm.ActionCreated,
	})
	if err != nil {
		t.Fatalf("persist error: %v", err)
	}

	result := rm.patients.results[0]
	if result.Status != models.SyncSynced || result.RemoteID != "a0C1x000001" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestPatientDelete_EnqueuesRemoteDeleteByNumber(t *testing.T) {
	rm := &fakeRepoManager{patients: newFakePatientsRepo(), referrals: newFakeReferralsRepo()}
	rec := &fakeReconciler{}
	s := newPatientService(t, rm, rec)

	created, err := s.Create(context.Background(), &models.Patient{
		FirstName: "Ada", LastName: "Byrne", Email: "ada@example.com",
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if err := s.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if len(rec.deletes) != 1 || rec.deletes[0].key != created.ReferralNumber {
		t.Fatalf("remote delete not enqueued: %+v", rec.deletes)
	}
}

func TestPatientToRecord_SummarisesCondition(t *testing.T) {
	p := &models.Patient{FirstName: "Ada", LastName: "Byrne"}
	if got := patientToRecord(p).Condition; got != "General ophthalmic care" {
		t.Fatalf("empty history must get a default condition, got %q", got)
	}

	p.MedicalHistory = "Glaucoma"
	if got := patientToRecord(p).Condition; got != "Glaucoma" {
		t.Fatalf("want Glaucoma, got %q", got)
	}
}
