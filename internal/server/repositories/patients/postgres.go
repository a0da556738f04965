// Package patients provides the PostgreSQL-backed repository for patient
// records, including the sync-result secondary update used by the CRM
// reconciliation engine.
package patients

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/eyedocs/caredesk/internal/common"
	"github.com/eyedocs/caredesk/internal/dbx"
	"github.com/eyedocs/caredesk/internal/server/models"
)

// PostgresRepository implements patient storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const patientColumns = `id, first_name, last_name, email, phone, date_of_birth, address,
	emergency_contact, medical_history, allergies, medications, status,
	referral_number, salesforce_id, sync_status, sync_updated_at, created_at, updated_at`

func scanPatient(row interface{ Scan(dest ...any) error }) (*models.Patient, error) {
	var p models.Patient
	err := row.Scan(
		&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.Phone, &p.DateOfBirth, &p.Address,
		&p.EmergencyContact, &p.MedicalHistory, &p.Allergies, &p.Medications, &p.Status,
		&p.ReferralNumber, &p.SalesforceID, &p.SyncStatus, &p.SyncUpdatedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a patient and returns the stored row. A unique-violation
// on email surfaces as common.ErrorAlreadyExists.
func (r *PostgresRepository) Create(ctx context.Context, patient *models.Patient) (*models.Patient, error) {
	query := `
		INSERT INTO patients (first_name, last_name, email, phone, date_of_birth, address,
			emergency_contact, medical_history, allergies, medications, status, referral_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + patientColumns
	row := r.db.QueryRowContext(ctx, query,
		patient.FirstName, patient.LastName, patient.Email, patient.Phone, patient.DateOfBirth,
		patient.Address, patient.EmergencyContact, patient.MedicalHistory, patient.Allergies,
		patient.Medications, patient.Status, patient.ReferralNumber)

	created, err := scanPatient(row)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return created, nil
}

// GetByID returns the patient or common.ErrorNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1`
	p, err := scanPatient(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

// List returns a page of patients plus the total count for the filter.
// Search matches name, email, and phone.
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*models.Patient, int, error) {
	where := `WHERE 1=1`
	args := []any{}

	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		where += fmt.Sprintf(` AND (first_name ILIKE $%d OR last_name ILIKE $%d OR email ILIKE $%d OR phone ILIKE $%d)`, n, n, n, n)
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(` AND status = $%d`, len(args))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM patients `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM patients %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		patientColumns, where, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

// Update overwrites the domain fields of a patient. Sync fields are not
// touched here; they belong to UpdateSyncResult.
func (r *PostgresRepository) Update(ctx context.Context, patient *models.Patient) error {
	query := `
		UPDATE patients SET
			first_name = $1, last_name = $2, email = $3, phone = $4, date_of_birth = $5,
			address = $6, emergency_contact = $7, medical_history = $8, allergies = $9,
			medications = $10, status = $11, updated_at = now()
		WHERE id = $12`
	res, err := r.db.ExecContext(ctx, query,
		patient.FirstName, patient.LastName, patient.Email, patient.Phone, patient.DateOfBirth,
		patient.Address, patient.EmergencyContact, patient.MedicalHistory, patient.Allergies,
		patient.Medications, patient.Status, patient.ID)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.RequireRowAffected(res)
}

// Delete removes a patient by id; common.ErrorNotFound if none matched.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.RequireRowAffected(res)
}

// UpdateSyncResult persists a reconciliation outcome onto an
// already-committed patient. salesforce_id is written once and never
// cleared; the sync_updated_at guard drops outcomes older than the last
// applied write so a slow early sync cannot clobber a later one.
func (r *PostgresRepository) UpdateSyncResult(ctx context.Context, id int64, result models.SyncResult) error {
	query := `
		UPDATE patients SET
			salesforce_id = COALESCE(salesforce_id, NULLIF($1, '')),
			sync_status = $2,
			sync_updated_at = $3
		WHERE id = $4 AND (sync_updated_at IS NULL OR sync_updated_at <= $3)`
	if _, err := r.db.ExecContext(ctx, query, result.RemoteID, result.Status, result.WriteTime, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
