package services

import (
	"context"
	"database/sql"

	"github.com/eyedocs/caredesk/internal/server/repositories/analytics"
	"github.com/eyedocs/caredesk/internal/server/repositories/repomanager"
)

// AnalyticsService serves the practice dashboard.
type AnalyticsService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewAnalyticsService(db *sql.DB, m repomanager.RepositoryManager) *AnalyticsService {
	return &AnalyticsService{db: db, repomanager: m}
}

const (
	defaultPeriodDays = 30
	maxPeriodDays     = 365
)

// Overview returns the dashboard counters; periodDays sets the activity
// window and is clamped to [1, 365], defaulting to 30.
func (s *AnalyticsService) Overview(ctx context.Context, periodDays int) (*analytics.Overview, error) {
	if periodDays <= 0 {
		periodDays = defaultPeriodDays
	}
	if periodDays > maxPeriodDays {
		periodDays = maxPeriodDays
	}
	return s.repomanager.Analytics(s.db).Overview(ctx, periodDays)
}
