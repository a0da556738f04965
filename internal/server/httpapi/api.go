package httpapi

import (
	"context"
	"net/http"

	"github.com/eyedocs/caredesk/internal/crm"
	"github.com/eyedocs/caredesk/internal/logging"
	"github.com/eyedocs/caredesk/internal/server/auth"
	"github.com/eyedocs/caredesk/internal/server/models"
	"github.com/eyedocs/caredesk/internal/server/repositories/analytics"
	"github.com/eyedocs/caredesk/internal/server/repositories/appointments"
	"github.com/eyedocs/caredesk/internal/server/repositories/patients"
	"github.com/eyedocs/caredesk/internal/server/repositories/referrals"
	"github.com/eyedocs/caredesk/internal/server/services"
)

// Service seams. The concrete implementations live in the services
// package; handlers depend on the narrow surface only.
type UserService interface {
	Register(ctx context.Context, user *models.User, password string) (*models.User, error)
	Login(ctx context.Context, userName, password string) (*models.User, *services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	VerifyAccessToken(tokenString string) (*auth.Claims, error)
}

type PatientService interface {
	Create(ctx context.Context, patient *models.Patient) (*models.Patient, error)
	GetByID(ctx context.Context, id int64) (*models.Patient, error)
	List(ctx context.Context, filter patients.ListFilter) ([]*models.Patient, int, error)
	Update(ctx context.Context, patient *models.Patient) (*models.Patient, error)
	Delete(ctx context.Context, id int64) error
}

type ReferralService interface {
	Create(ctx context.Context, referral *models.Referral) (*models.Referral, error)
	GetByID(ctx context.Context, id int64) (*models.Referral, error)
	List(ctx context.Context, filter referrals.ListFilter) ([]*models.Referral, int, error)
	Update(ctx context.Context, referral *models.Referral) (*models.Referral, error)
	Delete(ctx context.Context, id int64) error
	Resync(ctx context.Context, id int64) (*models.Referral, error)
}

type AppointmentService interface {
	Create(ctx context.Context, appointment *models.Appointment) (*models.Appointment, error)
	GetByID(ctx context.Context, id int64) (*models.Appointment, error)
	List(ctx context.Context, filter appointments.ListFilter) ([]*models.Appointment, int, error)
	Update(ctx context.Context, appointment *models.Appointment) (*models.Appointment, error)
	Delete(ctx context.Context, id int64) error
}

type AnalyticsService interface {
	Overview(ctx context.Context, periodDays int) (*analytics.Overview, error)
}

type AttachmentService interface {
	GetPresignedPutURL(ctx context.Context, patientID int64) (string, string, error)
	GetPresignedGetURL(ctx context.Context, key string) (string, error)
}

type SettingsService interface {
	View(ctx context.Context) services.SettingsView
	Update(ctx context.Context, settings crm.Settings) (crm.ProbeResult, error)
	Reset(ctx context.Context) error
	Probe(ctx context.Context) crm.ProbeResult
}

// ConnectionReporter exposes live CRM connectivity for the informational
// sync block on write responses. *crm.SessionManager implements it.
type ConnectionReporter interface {
	Connected() bool
}

// API wires the service layer to the route table.
type API struct {
	logger logging.Logger

	users        UserService
	patients     PatientService
	referrals    ReferralService
	appointments AppointmentService
	analytics    AnalyticsService
	attachments  AttachmentService
	settings     SettingsService
	connection   ConnectionReporter
}

type Deps struct {
	Logger       logging.Logger
	Users        UserService
	Patients     PatientService
	Referrals    ReferralService
	Appointments AppointmentService
	Analytics    AnalyticsService
	Attachments  AttachmentService
	Settings     SettingsService
	Connection   ConnectionReporter
}

func New(deps Deps) *API {
	return &API{
		logger:       deps.Logger,
		users:        deps.Users,
		patients:     deps.Patients,
		referrals:    deps.Referrals,
		appointments: deps.Appointments,
		analytics:    deps.Analytics,
		attachments:  deps.Attachments,
		settings:     deps.Settings,
		connection:   deps.Connection,
	}
}

// Routes builds the full route table. Everything except the auth
// endpoints sits behind the bearer-token middleware.
func (a *API) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/login", a.handleLogin)
	mux.HandleFunc("POST /api/auth/refresh", a.handleRefresh)
	mux.HandleFunc("POST /api/auth/register", a.handleRegister)
	mux.HandleFunc("POST /api/auth/logout", a.handleLogout)

	protected := http.NewServeMux()

	protected.HandleFunc("GET /api/patients", a.handlePatientList)
	protected.HandleFunc("POST /api/patients", a.handlePatientCreate)
	protected.HandleFunc("GET /api/patients/{id}", a.handlePatientGet)
	protected.HandleFunc("PUT /api/patients/{id}", a.handlePatientUpdate)
	protected.HandleFunc("DELETE /api/patients/{id}", a.handlePatientDelete)
	protected.HandleFunc("GET /api/patients/{id}/appointments", a.handlePatientAppointments)

	protected.HandleFunc("GET /api/referrals", a.handleReferralList)
	protected.HandleFunc("POST /api/referrals", a.handleReferralCreate)
	protected.HandleFunc("GET /api/referrals/{id}", a.handleReferralGet)
	protected.HandleFunc("PUT /api/referrals/{id}", a.handleReferralUpdate)
	protected.HandleFunc("DELETE /api/referrals/{id}", a.handleReferralDelete)
	protected.HandleFunc("POST /api/referrals/{id}/sync", a.handleReferralResync)

	protected.HandleFunc("GET /api/appointments", a.handleAppointmentList)
	protected.HandleFunc("POST /api/appointments", a.handleAppointmentCreate)
	protected.HandleFunc("GET /api/appointments/{id}", a.handleAppointmentGet)
	protected.HandleFunc("PUT /api/appointments/{id}", a.handleAppointmentUpdate)
	protected.HandleFunc("DELETE /api/appointments/{id}", a.handleAppointmentDelete)

	protected.HandleFunc("GET /api/analytics/overview", a.handleAnalyticsOverview)

	protected.HandleFunc("GET /api/attachments/upload-url", a.handleAttachmentUploadURL)
	protected.HandleFunc("GET /api/attachments/download-url", a.handleAttachmentDownloadURL)

	protected.HandleFunc("GET /api/settings/crm", a.handleSettingsGet)
	protected.Handle("POST /api/settings/crm", requireRole("admin", http.HandlerFunc(a.handleSettingsUpdate)))
	protected.Handle("DELETE /api/settings/crm", requireRole("admin", http.HandlerFunc(a.handleSettingsReset)))
	protected.HandleFunc("GET /api/settings/crm/status", a.handleSettingsStatus)

	mux.Handle("/api/", requireAuth(a.users, protected))

	return logRequests(a.logger, mux)
}

// syncMode reports which path the next reconciliation attempt would take.
func (a *API) syncMode() crm.Mode {
	if a.connection != nil && a.connection.Connected() {
		return crm.ModeLive
	}
	return crm.ModeSimulation
}
