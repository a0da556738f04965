package appointments

import (
	"context"
	"time"

	"github.com/eyedocs/caredesk/internal/server/models"
)

// ListFilter narrows and pages the appointment listing. Date filters on
// the calendar day of the appointment.
type ListFilter struct {
	PatientID int64
	Date      time.Time
	Status    string
	Limit     int
	Offset    int
}

type Repository interface {
	Create(ctx context.Context, appointment *models.Appointment) (*models.Appointment, error)
	GetByID(ctx context.Context, id int64) (*models.Appointment, error)
	List(ctx context.Context, filter ListFilter) ([]*models.Appointment, int, error)
	Update(ctx context.Context, appointment *models.Appointment) error
	Delete(ctx context.Context, id int64) error
}
