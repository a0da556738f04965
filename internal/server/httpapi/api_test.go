package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/eyedocs/caredesk/internal/common"
	"github.com/eyedocs/caredesk/internal/crm"
	"github.com/eyedocs/caredesk/internal/logging"
	"github.com/eyedocs/caredesk/internal/server/auth"
	"github.com/eyedocs/caredesk/internal/server/models"
	"github.com/eyedocs/caredesk/internal/server/repositories/analytics"
	appointmentsrepo "github.com/eyedocs/caredesk/internal/server/repositories/appointments"
	patientsrepo "github.com/eyedocs/caredesk/internal/server/repositories/patients"
	referralsrepo "github.com/eyedocs/caredesk/internal/server/repositories/referrals"
	"github.com/eyedocs/caredesk/internal/server/services"
)

type discardLogger struct{}

func (discardLogger) Debug(context.Context, string, ...any) {}
func (discardLogger) Info(context.Context, string, ...any)  {}
func (discardLogger) Warn(context.Context, string, ...any)  {}
func (discardLogger) Error(context.Context, string, ...any) {}
func (d discardLogger) With(...any) logging.Logger          { return d }

// --- fakes ---

type fakeUsers struct {
	loginErr error
}

func (f *fakeUsers) Register(ctx context.Context, user *models.User, password string) (*models.User, error) {
	user.ID = 9
	return user, nil
}

func (f *fakeUsers) Login(ctx context.Context, userName, password string) (*models.User, *services.TokenPair, error) {
	if f.loginErr != nil {
		return nil, nil, f.loginErr
	}
	return &models.User{ID: 1, UserName: userName, Role: "doctor"},
		&services.TokenPair{AccessToken: "at", RefreshToken: "rt"}, nil
}

func (f *fakeUsers) RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error) {
	if refreshToken != "rt" {
		return nil, common.ErrorUnauthorized
	}
	return &services.TokenPair{AccessToken: "at2", RefreshToken: "rt2"}, nil
}

func (f *fakeUsers) Logout(ctx context.Context, refreshToken string) error { return nil }

// Tokens are fixed strings; the middleware only cares about the verifier.
func (f *fakeUsers) VerifyAccessToken(tokenString string) (*auth.Claims, error) {
	switch tokenString {
	case "token-admin":
		return &auth.Claims{UserID: 1, Role: "admin"}, nil
	case "token-doctor":
		return &auth.Claims{UserID: 2, Role: "doctor"}, nil
	default:
		return nil, common.ErrInvalidToken
	}
}

type fakePatients struct {
	created *models.Patient
	getErr  error
}

func (f *fakePatients) Create(ctx context.Context, p *models.Patient) (*models.Patient, error) {
	p.ID = 7
	p.ReferralNumber = "REF-202608-0001"
	p.SyncStatus = models.SyncUnsynced
	f.created = p
	return p, nil
}

func (f *fakePatients) GetByID(ctx context.Context, id int64) (*models.Patient, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &models.Patient{ID: id, FirstName: "Ada", SyncStatus: models.SyncSynced}, nil
}

func (f *fakePatients) List(ctx context.Context, filter patientsrepo.ListFilter) ([]*models.Patient, int, error) {
	return []*models.Patient{{ID: 1, FirstName: "Ada"}}, 1, nil
}

func (f *fakePatients) Update(ctx context.Context, p *models.Patient) (*models.Patient, error) {
	return p, nil
}

func (f *fakePatients) Delete(ctx context.Context, id int64) error { return nil }

type fakeReferrals struct{}

func (f *fakeReferrals) Create(ctx context.Context, ref *models.Referral) (*models.Referral, error) {
	if ref.PatientName == "" {
		return nil, common.ErrorValidation
	}
	ref.ID = 3
	ref.ReferralNumber = "REF-202608-0002"
	return ref, nil
}

func (f *fakeReferrals) GetByID(ctx context.Context, id int64) (*models.Referral, error) {
	return &models.Referral{ID: id, ReferralNumber: "REF-202608-0002"}, nil
}

func (f *fakeReferrals) List(ctx context.Context, filter referralsrepo.ListFilter) ([]*models.Referral, int, error) {
	return nil, 0, nil
}

func (f *fakeReferrals) Update(ctx context.Context, ref *models.Referral) (*models.Referral, error) {
	return ref, nil
}

func (f *fakeReferrals) Delete(ctx context.Context, id int64) error { return nil }

func (f *fakeReferrals) Resync(ctx context.Context, id int64) (*models.Referral, error) {
	return &models.Referral{ID: id, ReferralNumber: "REF-202608-0002", SyncStatus: models.SyncFailed}, nil
}

type fakeAppointments struct{}

func (f *fakeAppointments) Create(ctx context.Context, a *models.Appointment) (*models.Appointment, error) {
	a.ID = 11
	return a, nil
}

func (f *fakeAppointments) GetByID(ctx context.Context, id int64) (*models.Appointment, error) {
	return &models.Appointment{ID: id}, nil
}

func (f *fakeAppointments) List(ctx context.Context, filter appointmentsrepo.ListFilter) ([]*models.Appointment, int, error) {
	return nil, 0, nil
}

func (f *fakeAppointments) Update(ctx context.Context, a *models.Appointment) (*models.Appointment, error) {
	return a, nil
}

func (f *fakeAppointments) Delete(ctx context.Context, id int64) error { return nil }

type fakeAnalytics struct {
	lastPeriod int
}

func (f *fakeAnalytics) Overview(ctx context.Context, periodDays int) (*analytics.Overview, error) {
	f.lastPeriod = periodDays
	return &analytics.Overview{TotalPatients: 5, Period: periodDays}, nil
}

type fakeAttachments struct{}

func (f *fakeAttachments) GetPresignedPutURL(ctx context.Context, patientID int64) (string, string, error) {
	return "patients/1/2026/8/key", "https://s3/put", nil
}

func (f *fakeAttachments) GetPresignedGetURL(ctx context.Context, key string) (string, error) {
	return "https://s3/get", nil
}

type fakeSettings struct {
	updateResult crm.ProbeResult
	resetCalled  bool
}

func (f *fakeSettings) View(ctx context.Context) services.SettingsView {
	return services.SettingsView{Username: "ops@example.com", HasPassword: true}
}

func (f *fakeSettings) Update(ctx context.Context, settings crm.Settings) (crm.ProbeResult, error) {
	if settings.Username == "" || settings.Password == "" {
		return crm.ProbeResult{}, common.ErrorValidation
	}
	return f.updateResult, nil
}

func (f *fakeSettings) Reset(ctx context.Context) error {
	f.resetCalled = true
	return nil
}

func (f *fakeSettings) Probe(ctx context.Context) crm.ProbeResult {
	return crm.ProbeResult{Connected: true, Mode: crm.ModeLive}
}

type fakeConnection struct{ connected bool }

func (f *fakeConnection) Connected() bool { return f.connected }

func newTestAPI(t *testing.T) (*API, *fakeSettings, *fakeConnection) {
	t.Helper()
	settings := &fakeSettings{}
	conn := &fakeConnection{}
	api := New(Deps{
		Logger:       discardLogger{},
		Users:        &fakeUsers{},
		Patients:     &fakePatients{},
		Referrals:    &fakeReferrals{},
		Appointments: &fakeAppointments{},
		Analytics:    &fakeAnalytics{},
		Attachments:  &fakeAttachments{},
		Settings:     settings,
		Connection:   conn,
	})
	return api, settings, conn
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode error: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var env map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("bad envelope: %v (%s)", err, rec.Body.String())
	}
	return env
}

// --- tests ---

func TestLogin_ReturnsTokenPair(t *testing.T) {
	api, _, _ := newTestAPI(t)
	routes := api.Routes()

	rec := doJSON(t, routes, http.MethodPost, "/api/auth/login", "",
		map[string]string{"username": "drsmith", "password": "pw"})
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", rec.Code, rec.Body.String())
	}

	env := decodeEnvelope(t, rec)
	data := env["data"].(map[string]any)
	if data["accessToken"] != "at" || data["refreshToken"] != "rt" {
		t.Fatalf("unexpected tokens: %v", data)
	}
}

func TestProtectedRoutes_RequireBearerToken(t *testing.T) {
	api, _, _ := newTestAPI(t)
	routes := api.Routes()

	rec := doJSON(t, routes, http.MethodGet, "/api/patients", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("want 401 without token, got %d", rec.Code)
	}

	rec = doJSON(t, routes, http.MethodGet, "/api/patients", "garbage", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("want 401 with bad token, got %d", rec.Code)
	}

	rec = doJSON(t, routes, http.MethodGet, "/api/patients", "token-doctor", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200 with valid token, got %d", rec.Code)
	}
}

func TestPatientCreate_CarriesSyncBlock(t *testing.T) {
	api, _, conn := newTestAPI(t)
	conn.connected = false
	routes := api.Routes()

	rec := doJSON(t, routes, http.MethodPost, "/api/patients", "token-doctor", map[string]any{
		"firstName": "Ada", "lastName": "Byrne", "email": "ada@example.com",
		"dateOfBirth": "1990-03-14",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("want 201, got %d: %s", rec.Code, rec.Body.String())
	}

	env := decodeEnvelope(t, rec)
	data := env["data"].(map[string]any)
	sync := data["sync"].(map[string]any)
	if sync["mode"] != "simulation" {
		t.Fatalf("disconnected engine must report simulation mode: %v", sync)
	}
	if sync["status"] != "unsynced" {
		t.Fatalf("status must reflect the committed row: %v", sync)
	}

	conn.connected = true
	rec = doJSON(t, routes, http.MethodPost, "/api/patients", "token-doctor", map[string]any{
		"firstName": "Ada", "lastName": "Byrne", "email": "ada@example.com",
		"dateOfBirth": "1990-03-14",
	})
	sync = decodeEnvelope(t, rec)["data"].(map[string]any)["sync"].(map[string]any)
	if sync["mode"] != "live" {
		t.Fatalf("connected engine must report live mode: %v", sync)
	}
}

func TestPatientCreate_BadDate(t *testing.T) {
	api, _, _ := newTestAPI(t)
	routes := api.Routes()

	rec := doJSON(t, routes, http.MethodPost, "/api/patients", "token-doctor", map[string]any{
		"firstName": "Ada", "lastName": "Byrne", "email": "a@b.c", "dateOfBirth": "14/03/1990",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", rec.Code)
	}
}

func TestPatientGet_NotFound(t *testing.T) {
	api, _, _ := newTestAPI(t)
	patients := &fakePatients{getErr: common.ErrorNotFound}
	api.patients = patients
	routes := api.Routes()

	rec := doJSON(t, routes, http.MethodGet, "/api/patients/42", "token-doctor", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d", rec.Code)
	}
}

func TestReferralCreate_ValidationMapsTo400(t *testing.T) {
	api, _, _ := newTestAPI(t)
	routes := api.Routes()

	rec := doJSON(t, routes, http.MethodPost, "/api/referrals", "token-doctor",
		map[string]string{"condition": "Cataract"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestReferralResync_Accepted(t *testing.T) {
	api, _, _ := newTestAPI(t)
	routes := api.Routes()

	rec := doJSON(t, routes, http.MethodPost, "/api/referrals/3/sync", "token-doctor", nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("want 202, got %d", rec.Code)
	}
}

func TestSettingsUpdate_AdminOnly(t *testing.T) {
	api, settings, _ := newTestAPI(t)
	settings.updateResult = crm.ProbeResult{Connected: true, Mode: crm.ModeLive}
	routes := api.Routes()

	body := map[string]string{"username": "ops@example.com", "password": "pw"}

	rec := doJSON(t, routes, http.MethodPost, "/api/settings/crm", "token-doctor", body)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("doctor must not change CRM settings, got %d", rec.Code)
	}

	rec = doJSON(t, routes, http.MethodPost, "/api/settings/crm", "token-admin", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200 for admin, got %d: %s", rec.Code, rec.Body.String())
	}
	data := decodeEnvelope(t, rec)["data"].(map[string]any)
	if data["saved"] != true {
		t.Fatalf("connected probe must save: %v", data)
	}
}

func TestSettingsUpdate_FailedProbeNotSaved(t *testing.T) {
	api, settings, _ := newTestAPI(t)
	settings.updateResult = crm.ProbeResult{Connected: false, Error: "invalid_grant"}
	routes := api.Routes()

	rec := doJSON(t, routes, http.MethodPost, "/api/settings/crm", "token-admin",
		map[string]string{"username": "typo@example.com", "password": "x"})
	if rec.Code != http.StatusOK {
		t.Fatalf("failed probe is not an http error, got %d", rec.Code)
	}
	data := decodeEnvelope(t, rec)["data"].(map[string]any)
	if data["saved"] != false {
		t.Fatalf("failed probe must not save: %v", data)
	}
	probe := data["probe"].(map[string]any)
	if probe["error"] != "invalid_grant" {
		t.Fatalf("org error must reach the operator: %v", probe)
	}
}

func TestAttachmentUploadURL_RequiresPatientID(t *testing.T) {
	api, _, _ := newTestAPI(t)
	routes := api.Routes()

	rec := doJSON(t, routes, http.MethodGet, "/api/attachments/upload-url", "token-doctor", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("want 400 without patientId, got %d", rec.Code)
	}

	rec = doJSON(t, routes, http.MethodGet, "/api/attachments/upload-url?patientId=1", "token-doctor", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
}

func TestAnalyticsOverview(t *testing.T) {
	api, _, _ := newTestAPI(t)
	routes := api.Routes()

	rec := doJSON(t, routes, http.MethodGet, "/api/analytics/overview", "token-doctor", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	data := decodeEnvelope(t, rec)["data"].(map[string]any)
	if data["totalPatients"] != float64(5) {
		t.Fatalf("unexpected overview: %v", data)
	}

	rec = doJSON(t, routes, http.MethodGet, "/api/analytics/overview?period=7", "token-doctor", nil)
	data = decodeEnvelope(t, rec)["data"].(map[string]any)
	if data["period"] != float64(7) {
		t.Fatalf("period query parameter not passed through: %v", data)
	}
}
