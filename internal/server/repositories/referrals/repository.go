package referrals

import (
	"context"

	"github.com/eyedocs/caredesk/internal/server/models"
)

// ListFilter narrows and pages the referral listing.
type ListFilter struct {
	Search  string
	Urgency string
	Status  string
	Limit   int
	Offset  int
}

type Repository interface {
	Create(ctx context.Context, referral *models.Referral) (*models.Referral, error)
	GetByID(ctx context.Context, id int64) (*models.Referral, error)
	GetByReferralNumber(ctx context.Context, number string) (*models.Referral, error)
	List(ctx context.Context, filter ListFilter) ([]*models.Referral, int, error)
	Update(ctx context.Context, referral *models.Referral) error
	Delete(ctx context.Context, id int64) error
	NextReferralNumber(ctx context.Context, prefix string) (string, error)
	UpdateSyncResult(ctx context.Context, id int64, result models.SyncResult) error
}
