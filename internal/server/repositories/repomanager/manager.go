package repomanager

import (
	"context"
	"database/sql"

	"github.com/eyedocs/caredesk/internal/dbx"
	"github.com/eyedocs/caredesk/internal/server/repositories/analytics"
	"github.com/eyedocs/caredesk/internal/server/repositories/appointments"
	"github.com/eyedocs/caredesk/internal/server/repositories/patients"
	"github.com/eyedocs/caredesk/internal/server/repositories/referrals"
	"github.com/eyedocs/caredesk/internal/server/repositories/refreshtokens"
	"github.com/eyedocs/caredesk/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Patients(db dbx.DBTX) patients.Repository
	Referrals(db dbx.DBTX) referrals.Repository
	Appointments(db dbx.DBTX) appointments.Repository
	Analytics(db dbx.DBTX) analytics.Repository
}
