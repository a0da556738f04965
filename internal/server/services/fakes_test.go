package services

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/eyedocs/caredesk/internal/common"
	"github.com/eyedocs/caredesk/internal/crm"
	"github.com/eyedocs/caredesk/internal/dbx"
	"github.com/eyedocs/caredesk/internal/logging"
	"github.com/eyedocs/caredesk/internal/server/models"
	analyticsrepo "github.com/eyedocs/caredesk/internal/server/repositories/analytics"
	appointmentsrepo "github.com/eyedocs/caredesk/internal/server/repositories/appointments"
	patientsrepo "github.com/eyedocs/caredesk/internal/server/repositories/patients"
	referralsrepo "github.com/eyedocs/caredesk/internal/server/repositories/referrals"
	refreshtokensrepo "github.com/eyedocs/caredesk/internal/server/repositories/refreshtokens"
	usersrepo "github.com/eyedocs/caredesk/internal/server/repositories/users"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

// discardLogger drops everything; service tests assert behavior, not logs.
type discardLogger struct{}

func (discardLogger) Debug(context.Context, string, ...any) {}
func (discardLogger) Info(context.Context, string, ...any)  {}
func (discardLogger) Warn(context.Context, string, ...any)  {}
func (discardLogger) Error(context.Context, string, ...any) {}
func (d discardLogger) With(...any) logging.Logger          { return d }

// --- fake repositories ---

type fakeUsersRepo struct {
	createOut *models.User
	createErr error
	getOut    *models.User
	getErr    error
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.createOut != nil {
		return f.createOut, nil
	}
	return u, nil
}

func (f *fakeUsersRepo) GetByUserName(ctx context.Context, userName string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

type fakeRefreshRepo struct {
	findOut   *models.RefreshToken
	findErr   error
	delErr    error
	createErr error
}

func (f *fakeRefreshRepo) Create(ctx context.Context, userID int64, token string, validity time.Duration) error {
	return f.createErr
}

func (f *fakeRefreshRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.findOut, nil
}

func (f *fakeRefreshRepo) Delete(ctx context.Context, token string) error { return f.delErr }

type fakePatientsRepo struct {
	mu      sync.Mutex
	byID    map[int64]*models.Patient
	nextID  int64
	results []models.SyncResult

	createErr error
	updateErr error
}

func newFakePatientsRepo() *fakePatientsRepo {
	return &fakePatientsRepo{byID: map[int64]*models.Patient{}, nextID: 1}
}

func (f *fakePatientsRepo) Create(ctx context.Context, p *models.Patient) (*models.Patient, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	cp.ID = f.nextID
	cp.CreatedAt = time.Now()
	f.nextID++
	f.byID[cp.ID] = &cp
	return &cp, nil
}

func (f *fakePatientsRepo) GetByID(ctx context.Context, id int64) (*models.Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return p, nil
}

func (f *fakePatientsRepo) List(ctx context.Context, filter patientsrepo.ListFilter) ([]*models.Patient, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Patient
	for _, p := range f.byID {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (f *fakePatientsRepo) Update(ctx context.Context, p *models.Patient) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.byID[p.ID]
	if !ok {
		return common.ErrorNotFound
	}
	p.ReferralNumber = stored.ReferralNumber
	f.byID[p.ID] = p
	return nil
}

func (f *fakePatientsRepo) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakePatientsRepo) UpdateSyncResult(ctx context.Context, id int64, result models.SyncResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, result)
	return nil
}

type fakeReferralsRepo struct {
	mu      sync.Mutex
	byID    map[int64]*models.Referral
	nextID  int64
	next    string
	results []models.SyncResult

	createErrs []error
	nextErr    error
}

func newFakeReferralsRepo() *fakeReferralsRepo {
	return &fakeReferralsRepo{byID: map[int64]*models.Referral{}, nextID: 1, next: "REF-202608-0001"}
}

func (f *fakeReferralsRepo) Create(ctx context.Context, ref *models.Referral) (*models.Referral, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	cp := *ref
	cp.ID = f.nextID
	f.nextID++
	f.byID[cp.ID] = &cp
	return &cp, nil
}

func (f *fakeReferralsRepo) GetByID(ctx context.Context, id int64) (*models.Referral, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ref, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return ref, nil
}

func (f *fakeReferralsRepo) GetByReferralNumber(ctx context.Context, number string) (*models.Referral, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ref := range f.byID {
		if ref.ReferralNumber == number {
			return ref, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeReferralsRepo) List(ctx context.Context, filter referralsrepo.ListFilter) ([]*models.Referral, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Referral
	for _, ref := range f.byID {
		out = append(out, ref)
	}
	return out, len(out), nil
}

func (f *fakeReferralsRepo) Update(ctx context.Context, ref *models.Referral) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.byID[ref.ID]
	if !ok {
		return common.ErrorNotFound
	}
	ref.ReferralNumber = stored.ReferralNumber
	f.byID[ref.ID] = ref
	return nil
}

func (f *fakeReferralsRepo) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeReferralsRepo) NextReferralNumber(ctx context.Context, prefix string) (string, error) {
	if f.nextErr != nil {
		return "", f.nextErr
	}
	return f.next, nil
}

func (f *fakeReferralsRepo) UpdateSyncResult(ctx context.Context, id int64, result models.SyncResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, result)
	return nil
}

type fakeAppointmentsRepo struct {
	mu     sync.Mutex
	byID   map[int64]*models.Appointment
	nextID int64
}

func newFakeAppointmentsRepo() *fakeAppointmentsRepo {
	return &fakeAppointmentsRepo{byID: map[int64]*models.Appointment{}, nextID: 1}
}

func (f *fakeAppointmentsRepo) Create(ctx context.Context, a *models.Appointment) (*models.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *a
	cp.ID = f.nextID
	f.nextID++
	f.byID[cp.ID] = &cp
	return &cp, nil
}

func (f *fakeAppointmentsRepo) GetByID(ctx context.Context, id int64) (*models.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return a, nil
}

func (f *fakeAppointmentsRepo) List(ctx context.Context, filter appointmentsrepo.ListFilter) ([]*models.Appointment, int, error) {
	return nil, 0, nil
}

func (f *fakeAppointmentsRepo) Update(ctx context.Context, a *models.Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[a.ID]; !ok {
		return common.ErrorNotFound
	}
	f.byID[a.ID] = a
	return nil
}

func (f *fakeAppointmentsRepo) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byID, id)
	return nil
}

type fakeAnalyticsRepo struct {
	out        *analyticsrepo.Overview
	err        error
	lastPeriod int
}

func (f *fakeAnalyticsRepo) Overview(ctx context.Context, periodDays int) (*analyticsrepo.Overview, error) {
	f.lastPeriod = periodDays
	return f.out, f.err
}

// --- fake repository manager ---

type fakeRepoManager struct {
	users         *fakeUsersRepo
	refreshTokens *fakeRefreshRepo
	patients      *fakePatientsRepo
	referrals     *fakeReferralsRepo
	appointments  *fakeAppointmentsRepo
	analytics     *fakeAnalyticsRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository      { return m.users }
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokensrepo.Repository {
	return m.refreshTokens
}
func (m *fakeRepoManager) Patients(db dbx.DBTX) patientsrepo.Repository   { return m.patients }
func (m *fakeRepoManager) Referrals(db dbx.DBTX) referralsrepo.Repository { return m.referrals }
func (m *fakeRepoManager) Appointments(db dbx.DBTX) appointmentsrepo.Repository {
	return m.appointments
}
func (m *fakeRepoManager) Analytics(db dbx.DBTX) analyticsrepo.Repository { return m.analytics }

// --- fake reconciler ---

type enqueuedUpsert struct {
	key       string
	writeTime time.Time
	rec       crm.ReferralRecord
	persist   crm.PersistFunc
}

type enqueuedDelete struct {
	key       string
	writeTime time.Time
}

// fakeReconciler records enqueues; tests invoke persist themselves to
// replicate the dispatcher's callback.
type fakeReconciler struct {
	mu      sync.Mutex
	upserts []enqueuedUpsert
	deletes []enqueuedDelete
}

func (f *fakeReconciler) EnqueueUpsert(key string, writeTime time.Time, rec crm.ReferralRecord, persist crm.PersistFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, enqueuedUpsert{key: key, writeTime: writeTime, rec: rec, persist: persist})
}

func (f *fakeReconciler) EnqueueDelete(key string, writeTime time.Time, persist crm.PersistFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, enqueuedDelete{key: key, writeTime: writeTime})
}
