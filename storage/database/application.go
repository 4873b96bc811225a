package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core/application"
)

type applicationRow struct {
	ID                 string         `db:"id"`
	Kind               string         `db:"kind"`
	Status             string         `db:"status"`
	Name               string         `db:"name"`
	Email              string         `db:"email"`
	GradeLevel         null.String    `db:"grade_level"`
	ParentName         null.String    `db:"parent_name"`
	ParentEmail        null.String    `db:"parent_email"`
	ParentPhone        null.String    `db:"parent_phone"`
	Subjects           pq.StringArray `db:"subjects"`
	TokenHash          null.String    `db:"token_hash"`
	TokenExpires       null.Time      `db:"token_expires"`
	ParentTokenHash    null.String    `db:"parent_token_hash"`
	ParentTokenExpires null.Time      `db:"parent_token_expires"`
	RejectReason       null.String    `db:"reject_reason"`
	RejectedAt         null.Time      `db:"rejected_at"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

func (r applicationRow) toModel() application.Application {
	return application.Application{
		ID:                 r.ID,
		Kind:               r.Kind,
		Status:             r.Status,
		Name:               r.Name,
		Email:              r.Email,
		GradeLevel:         r.GradeLevel,
		ParentName:         r.ParentName,
		ParentEmail:        r.ParentEmail,
		ParentPhone:        r.ParentPhone,
		Subjects:           r.Subjects,
		TokenHash:          r.TokenHash,
		TokenExpires:       r.TokenExpires,
		ParentTokenHash:    r.ParentTokenHash,
		ParentTokenExpires: r.ParentTokenExpires,
		RejectReason:       r.RejectReason,
		RejectedAt:         r.RejectedAt,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

func newApplicationRow(app application.Application) applicationRow {
	return applicationRow{
		ID:                 app.ID,
		Kind:               app.Kind,
		Status:             app.Status,
		Name:               app.Name,
		Email:              app.Email,
		GradeLevel:         app.GradeLevel,
		ParentName:         app.ParentName,
		ParentEmail:        app.ParentEmail,
		ParentPhone:        app.ParentPhone,
		Subjects:           pq.StringArray(app.Subjects),
		TokenHash:          app.TokenHash,
		TokenExpires:       app.TokenExpires,
		ParentTokenHash:    app.ParentTokenHash,
		ParentTokenExpires: app.ParentTokenExpires,
		RejectReason:       app.RejectReason,
		RejectedAt:         app.RejectedAt,
		CreatedAt:          app.CreatedAt,
		UpdatedAt:          app.UpdatedAt,
	}
}

type applicationRepository struct {
	db *sqlx.DB
}

var _ application.Repository = (*applicationRepository)(nil)

func NewApplicationRepository(db *sqlx.DB) application.Repository {
	return &applicationRepository{db: db}
}

func (repo *applicationRepository) CreateApplication(ctx context.Context, app application.Application) (application.Application, error) {
	const q = `
INSERT INTO applications (
	id, kind, status, name, email, grade_level, parent_name, parent_email, parent_phone, subjects,
	token_hash, token_expires, parent_token_hash, parent_token_expires, reject_reason, rejected_at,
	created_at, updated_at
) VALUES (
	:id, :kind, :status, :name, :email, :grade_level, :parent_name, :parent_email, :parent_phone, :subjects,
	:token_hash, :token_expires, :parent_token_hash, :parent_token_expires, :reject_reason, :rejected_at,
	:created_at, :updated_at
)`
	if _, err := repo.db.NamedExecContext(ctx, q, newApplicationRow(app)); err != nil {
		return application.Application{}, err
	}
	return app, nil
}

func (repo *applicationRepository) getOne(ctx context.Context, q string, args ...interface{}) (application.Application, error) {
	var row applicationRow
	if err := repo.db.GetContext(ctx, &row, q, args...); err != nil {
		if err == sql.ErrNoRows {
			return application.Application{}, application.ErrNotFound
		}
		return application.Application{}, promoteErr(err)
	}
	return row.toModel(), nil
}

func (repo *applicationRepository) GetApplicationByID(ctx context.Context, id string) (application.Application, error) {
	return repo.getOne(ctx, `SELECT * FROM applications WHERE id = $1`, id)
}

func (repo *applicationRepository) GetActiveApplicationByEmail(ctx context.Context, email string) (application.Application, error) {
	const q = `SELECT * FROM applications WHERE email = $1 AND status IN ($2, $3) LIMIT 1`
	return repo.getOne(ctx, q, email, application.StatusPending, application.StatusApproved)
}

func (repo *applicationRepository) GetApplicationByToken(ctx context.Context, hash string, now time.Time) (application.Application, error) {
	const q = `SELECT * FROM applications WHERE token_hash = $1 AND token_expires > $2`
	return repo.getOne(ctx, q, hash, now)
}

func (repo *applicationRepository) GetApplicationByParentToken(ctx context.Context, hash string, now time.Time) (application.Application, error) {
	const q = `SELECT * FROM applications WHERE parent_token_hash = $1 AND parent_token_expires > $2`
	return repo.getOne(ctx, q, hash, now)
}

func (repo *applicationRepository) UpdateApplication(ctx context.Context, app application.Application) (application.Application, error) {
	const q = `
UPDATE applications SET
	status = :status,
	token_hash = :token_hash,
	token_expires = :token_expires,
	parent_token_hash = :parent_token_hash,
	parent_token_expires = :parent_token_expires,
	reject_reason = :reject_reason,
	rejected_at = :rejected_at,
	updated_at = :updated_at
WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, newApplicationRow(app))
	if err != nil {
		return application.Application{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return application.Application{}, application.ErrNotFound
	}
	return app, nil
}

func (repo *applicationRepository) FilterApplications(ctx context.Context, filter application.QueryFilter) ([]application.Application, error) {
	conds := []string{"TRUE"}
	args := make([]interface{}, 0, 5)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Kind != "" {
		conds = append(conds, "kind = "+arg(filter.Kind))
	}
	if filter.Status != "" {
		conds = append(conds, "status = "+arg(filter.Status))
	}
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		conds = append(conds, fmt.Sprintf("(name ILIKE %s OR email ILIKE %s)", p, p))
	}
	if !filter.CreatedFrom.IsZero() {
		conds = append(conds, "created_at >= "+arg(filter.CreatedFrom))
	}
	if !filter.CreatedTo.IsZero() {
		conds = append(conds, "created_at <= "+arg(filter.CreatedTo))
	}

	q := `SELECT * FROM applications WHERE ` + strings.Join(conds, " AND ") + ` ORDER BY created_at DESC`
	var rows []applicationRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "filtering applications")
	}

	apps := make([]application.Application, 0, len(rows))
	for _, row := range rows {
		apps = append(apps, row.toModel())
	}
	return apps, nil
}
