// Package appointments provides the PostgreSQL-backed repository for
// appointment scheduling. Appointments are purely local; they carry no
// CRM sync state.
package appointments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/eyedocs/caredesk/internal/common"
	"github.com/eyedocs/caredesk/internal/dbx"
	"github.com/eyedocs/caredesk/internal/server/models"
)

// PostgresRepository implements appointment storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const appointmentColumns = `id, patient_id, appointment_date, appointment_time, type, notes,
	status, duration, created_at, updated_at`

func scanAppointment(row interface{ Scan(dest ...any) error }) (*models.Appointment, error) {
	var a models.Appointment
	err := row.Scan(
		&a.ID, &a.PatientID, &a.Date, &a.Time, &a.Type, &a.Notes,
		&a.Status, &a.Duration, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts an appointment and returns the stored row. A missing
// patient violates the foreign key and surfaces as a db error.
func (r *PostgresRepository) Create(ctx context.Context, appointment *models.Appointment) (*models.Appointment, error) {
	query := `
		INSERT INTO appointments (patient_id, appointment_date, appointment_time, type, notes, status, duration)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + appointmentColumns
	row := r.db.QueryRowContext(ctx, query,
		appointment.PatientID, appointment.Date, appointment.Time, appointment.Type,
		appointment.Notes, appointment.Status, appointment.Duration)

	created, err := scanAppointment(row)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return created, nil
}

// GetByID returns the appointment or common.ErrorNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	a, err := scanAppointment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

// List returns a page of appointments plus the total count for the filter.
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*models.Appointment, int, error) {
	where := `WHERE 1=1`
	args := []any{}

	if filter.PatientID != 0 {
		args = append(args, filter.PatientID)
		where += fmt.Sprintf(` AND patient_id = $%d`, len(args))
	}
	if !filter.Date.IsZero() {
		args = append(args, filter.Date)
		where += fmt.Sprintf(` AND appointment_date = $%d`, len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(` AND status = $%d`, len(args))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM appointments `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM appointments %s ORDER BY appointment_date, appointment_time LIMIT $%d OFFSET $%d`,
		appointmentColumns, where, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

// Update overwrites the mutable fields of an appointment.
func (r *PostgresRepository) Update(ctx context.Context, appointment *models.Appointment) error {
	query := `
		UPDATE appointments SET
			appointment_date = $1, appointment_time = $2, type = $3, notes = $4,
			status = $5, duration = $6, updated_at = now()
		WHERE id = $7`
	res, err := r.db.ExecContext(ctx, query,
		appointment.Date, appointment.Time, appointment.Type, appointment.Notes,
		appointment.Status, appointment.Duration, appointment.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.RequireRowAffected(res)
}

// Delete removes an appointment by id; common.ErrorNotFound if none matched.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.RequireRowAffected(res)
}
