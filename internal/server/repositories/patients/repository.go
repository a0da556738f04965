package patients

import (
	"context"

	"github.com/eyedocs/caredesk/internal/server/models"
)

// ListFilter narrows and pages the patient listing.
type ListFilter struct {
	Search string
	Status string
	Limit  int
	Offset int
}

type Repository interface {
	Create(ctx context.Context, patient *models.Patient) (*models.Patient, error)
	GetByID(ctx context.Context, id int64) (*models.Patient, error)
	List(ctx context.Context, filter ListFilter) ([]*models.Patient, int, error)
	Update(ctx context.Context, patient *models.Patient) error
	Delete(ctx context.Context, id int64) error
	UpdateSyncResult(ctx context.Context, id int64, result models.SyncResult) error
}
