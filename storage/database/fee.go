package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/billing"
)

type feeRepository struct {
	db *sqlx.DB
}

var _ billing.Repository = (*feeRepository)(nil)

func NewFeeRepository(db *sqlx.DB) billing.Repository {
	return &feeRepository{db: db}
}

func (repo *feeRepository) CreateFee(ctx context.Context, fee billing.FeeRecord) (billing.FeeRecord, error) {
	if fee.ID == "" {
		fee.ID = uuid.New().String()
	}
	const q = `
INSERT INTO fees (id, student_id, academic_year, amount_due, amount_paid, status, next_payment_due, created_at, updated_at)
VALUES (:id, :student_id, :academic_year, :amount_due, :amount_paid, :status, :next_payment_due, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, fee); err != nil {
		return billing.FeeRecord{}, errors.Wrap(err, "creating fee")
	}
	return fee, nil
}

func (repo *feeRepository) ListFeesByStudent(ctx context.Context, studentID string) ([]billing.FeeRecord, error) {
	const q = `SELECT * FROM fees WHERE student_id = $1 ORDER BY created_at`
	fees := make([]billing.FeeRecord, 0)
	if err := repo.db.SelectContext(ctx, &fees, q, studentID); err != nil {
		return nil, errors.Wrap(err, "listing fees")
	}
	return fees, nil
}

func (repo *feeRepository) ListOverduePartialFees(ctx context.Context, t time.Time) ([]billing.FeeRecord, error) {
	const q = `SELECT * FROM fees WHERE status = $1 AND next_payment_due < $2`
	fees := make([]billing.FeeRecord, 0)
	if err := repo.db.SelectContext(ctx, &fees, q, billing.FeeStatusPartial, t); err != nil {
		return nil, errors.Wrap(err, "listing overdue fees")
	}
	return fees, nil
}

func (repo *feeRepository) SetFeeStatus(ctx context.Context, id, status string, t time.Time) error {
	const q = `UPDATE fees SET status = $1, updated_at = $2 WHERE id = $3`
	if _, err := repo.db.ExecContext(ctx, q, status, t, id); err != nil {
		return errors.Wrap(err, "setting fee status")
	}
	return nil
}
