package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/eyedocs/caredesk/internal/common"
	"github.com/eyedocs/caredesk/internal/server/models"
	"github.com/eyedocs/caredesk/internal/server/repositories/appointments"
	"github.com/eyedocs/caredesk/internal/server/repositories/repomanager"
)

var validAppointmentTypes = map[string]bool{
	"general": true, "follow-up": true, "consultation": true, "emergency": true,
}

// AppointmentService owns appointment scheduling. Appointments never
// touch the CRM.
type AppointmentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewAppointmentService(db *sql.DB, m repomanager.RepositoryManager) *AppointmentService {
	return &AppointmentService{db: db, repomanager: m}
}

// Create validates the slot and verifies the patient exists before
// inserting.
func (s *AppointmentService) Create(ctx context.Context, appointment *models.Appointment) (*models.Appointment, error) {
	if appointment.PatientID == 0 || appointment.Date.IsZero() || appointment.Time == "" {
		return nil, common.ErrorValidation
	}
	if !validAppointmentTypes[appointment.Type] {
		return nil, common.ErrorValidation
	}
	if appointment.Status == "" {
		appointment.Status = "scheduled"
	}
	if appointment.Duration == 0 {
		appointment.Duration = 30
	}

	if _, err := s.repomanager.Patients(s.db).GetByID(ctx, appointment.PatientID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorValidation
		}
		return nil, err
	}

	return s.repomanager.Appointments(s.db).Create(ctx, appointment)
}

func (s *AppointmentService) GetByID(ctx context.Context, id int64) (*models.Appointment, error) {
	return s.repomanager.Appointments(s.db).GetByID(ctx, id)
}

func (s *AppointmentService) List(ctx context.Context, filter appointments.ListFilter) ([]*models.Appointment, int, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	return s.repomanager.Appointments(s.db).List(ctx, filter)
}

func (s *AppointmentService) Update(ctx context.Context, appointment *models.Appointment) (*models.Appointment, error) {
	if appointment.Type != "" && !validAppointmentTypes[appointment.Type] {
		return nil, common.ErrorValidation
	}

	repo := s.repomanager.Appointments(s.db)
	if err := repo.Update(ctx, appointment); err != nil {
		return nil, err
	}
	return repo.GetByID(ctx, appointment.ID)
}

func (s *AppointmentService) Delete(ctx context.Context, id int64) error {
	return s.repomanager.Appointments(s.db).Delete(ctx, id)
}
