// Package analytics provides read-only aggregate queries for the practice
// dashboard.
package analytics

import (
	"context"
	"fmt"

	"github.com/eyedocs/caredesk/internal/dbx"
)

// PostgresRepository computes dashboard aggregates over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Overview runs the dashboard counters; periodDays sets the window for the
// new-patient and appointment-activity counts. Referral breakdowns come
// back as status→count maps so new statuses need no schema change here.
func (r *PostgresRepository) Overview(ctx context.Context, periodDays int) (*Overview, error) {
	o := &Overview{
		ReferralsByStatus: map[string]int{},
		ReferralsBySync:   map[string]int{},
		Period:            periodDays,
	}

	counters := `
		SELECT
			(SELECT COUNT(*) FROM patients),
			(SELECT COUNT(*) FROM patients WHERE status = 'active'),
			(SELECT COUNT(*) FROM patients WHERE created_at >= CURRENT_DATE - $1::int),
			(SELECT COUNT(*) FROM referrals),
			(SELECT COUNT(*) FROM referrals WHERE urgency = 'urgent'),
			(SELECT COUNT(*) FROM appointments WHERE appointment_date = CURRENT_DATE),
			(SELECT COUNT(*) FROM appointments
				WHERE appointment_date > CURRENT_DATE
				AND appointment_date <= CURRENT_DATE + 7),
			(SELECT COUNT(*) FROM appointments WHERE appointment_date >= CURRENT_DATE - $1::int),
			(SELECT COUNT(*) FROM appointments
				WHERE status = 'completed' AND appointment_date >= CURRENT_DATE - $1::int),
			(SELECT COUNT(*) FROM appointments
				WHERE status IN ('scheduled', 'confirmed')
				AND appointment_date >= CURRENT_DATE - $1::int)`
	err := r.db.QueryRowContext(ctx, counters, periodDays).Scan(
		&o.TotalPatients, &o.ActivePatients, &o.NewPatients, &o.TotalReferrals,
		&o.UrgentReferrals, &o.AppointmentsToday, &o.UpcomingWeek,
		&o.PeriodAppointments, &o.CompletedAppointments, &o.PendingAppointments)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	if err := r.countInto(ctx, `SELECT status, COUNT(*) FROM referrals GROUP BY status`, o.ReferralsByStatus); err != nil {
		return nil, err
	}
	if err := r.countInto(ctx, `SELECT sync_status, COUNT(*) FROM referrals GROUP BY sync_status`, o.ReferralsBySync); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *PostgresRepository) countInto(ctx context.Context, query string, dest map[string]int) error {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		dest[key] = n
	}
	return rows.Err()
}
