// Package referrals provides the PostgreSQL-backed repository for referral
// records. The referral number is the business key the CRM reconciliation
// engine correlates on, so it is unique and never rewritten after insert.
package referrals

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/eyedocs/caredesk/internal/common"
	"github.com/eyedocs/caredesk/internal/dbx"
	"github.com/eyedocs/caredesk/internal/server/models"
)

// PostgresRepository implements referral storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const referralColumns = `id, referral_number, patient_name, condition, urgency, clinical_notes,
	status, practice_name, date_received, salesforce_id, sync_status, sync_updated_at,
	created_at, updated_at`

func scanReferral(row interface{ Scan(dest ...any) error }) (*models.Referral, error) {
	var ref models.Referral
	err := row.Scan(
		&ref.ID, &ref.ReferralNumber, &ref.PatientName, &ref.Condition, &ref.Urgency,
		&ref.ClinicalNotes, &ref.Status, &ref.PracticeName, &ref.DateReceived,
		&ref.SalesforceID, &ref.SyncStatus, &ref.SyncUpdatedAt, &ref.CreatedAt, &ref.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// Create inserts a referral and returns the stored row. A duplicate
// referral number surfaces as common.ErrorAlreadyExists.
func (r *PostgresRepository) Create(ctx context.Context, referral *models.Referral) (*models.Referral, error) {
	query := `
		INSERT INTO referrals (referral_number, patient_name, condition, urgency,
			clinical_notes, status, practice_name, date_received)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + referralColumns
	row := r.db.QueryRowContext(ctx, query,
		referral.ReferralNumber, referral.PatientName, referral.Condition, referral.Urgency,
		referral.ClinicalNotes, referral.Status, referral.PracticeName, referral.DateReceived)

	created, err := scanReferral(row)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return created, nil
}

// GetByID returns the referral or common.ErrorNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Referral, error) {
	query := `SELECT ` + referralColumns + ` FROM referrals WHERE id = $1`
	ref, err := scanReferral(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return ref, nil
}

// GetByReferralNumber returns the referral carrying the given business key,
// or common.ErrorNotFound.
func (r *PostgresRepository) GetByReferralNumber(ctx context.Context, number string) (*models.Referral, error) {
	query := `SELECT ` + referralColumns + ` FROM referrals WHERE referral_number = $1`
	ref, err := scanReferral(r.db.QueryRowContext(ctx, query, number))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return ref, nil
}

// List returns a page of referrals plus the total count for the filter.
// Search matches patient name, referral number, and condition.
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*models.Referral, int, error) {
	where := `WHERE 1=1`
	args := []any{}

	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		where += fmt.Sprintf(` AND (patient_name ILIKE $%d OR referral_number ILIKE $%d OR condition ILIKE $%d)`, n, n, n)
	}
	if filter.Urgency != "" {
		args = append(args, filter.Urgency)
		where += fmt.Sprintf(` AND urgency = $%d`, len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(` AND status = $%d`, len(args))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM referrals `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM referrals %s ORDER BY date_received DESC, id DESC LIMIT $%d OFFSET $%d`,
		referralColumns, where, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Referral
	for rows.Next() {
		ref, err := scanReferral(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

// Update overwrites the domain fields of a referral. The referral number
// and the sync fields are immutable here.
func (r *PostgresRepository) Update(ctx context.Context, referral *models.Referral) error {
	query := `
		UPDATE referrals SET
			patient_name = $1, condition = $2, urgency = $3, clinical_notes = $4,
			status = $5, practice_name = $6, date_received = $7, updated_at = now()
		WHERE id = $8`
	res, err := r.db.ExecContext(ctx, query,
		referral.PatientName, referral.Condition, referral.Urgency, referral.ClinicalNotes,
		referral.Status, referral.PracticeName, referral.DateReceived, referral.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.RequireRowAffected(res)
}

// Delete removes a referral by id; common.ErrorNotFound if none matched.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM referrals WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.RequireRowAffected(res)
}

// NextReferralNumber allocates the next number under the given month
// prefix (for example "REF-202608-"). The counter restarts at 0001 for
// every new prefix. Concurrent callers may race to the same number; the
// unique constraint on referral_number rejects the loser, which retries
// at the service layer.
func (r *PostgresRepository) NextReferralNumber(ctx context.Context, prefix string) (string, error) {
	query := `
		SELECT referral_number FROM referrals
		WHERE referral_number LIKE $1
		ORDER BY referral_number DESC
		LIMIT 1`
	var last string
	err := r.db.QueryRowContext(ctx, query, prefix+"%").Scan(&last)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Sprintf("%s%04d", prefix, 1), nil
		}
		return "", fmt.Errorf("db error: %w", err)
	}

	seq, err := strconv.Atoi(strings.TrimPrefix(last, prefix))
	if err != nil {
		return "", fmt.Errorf("malformed referral number %q: %w", last, err)
	}
	return fmt.Sprintf("%s%04d", prefix, seq+1), nil
}

// UpdateSyncResult persists a reconciliation outcome onto an
// already-committed referral. salesforce_id is written once and never
// cleared; the sync_updated_at guard drops outcomes older than the last
// applied write.
func (r *PostgresRepository) UpdateSyncResult(ctx context.Context, id int64, result models.SyncResult) error {
	query := `
		UPDATE referrals SET
			salesforce_id = COALESCE(salesforce_id, NULLIF($1, '')),
			sync_status = $2,
			sync_updated_at = $3
		WHERE id = $4 AND (sync_updated_at IS NULL OR sync_updated_at <= $3)`
	if _, err := r.db.ExecContext(ctx, query, result.RemoteID, result.Status, result.WriteTime, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
