package inmem

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core/billing"
)

type feeRepository struct {
	db *DB
}

var _ billing.Repository = (*feeRepository)(nil)

func NewFeeRepository(db *DB) billing.Repository {
	return &feeRepository{db: db}
}

func (repo *feeRepository) CreateFee(_ context.Context, fee billing.FeeRecord) (billing.FeeRecord, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if fee.ID == "" {
		fee.ID = uuid.NewString()
	}
	repo.db.fees[fee.ID] = fee
	return fee, nil
}

func (repo *feeRepository) ListFeesByStudent(_ context.Context, studentID string) ([]billing.FeeRecord, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	fees := make([]billing.FeeRecord, 0)
	for _, fee := range repo.db.fees {
		if fee.StudentID == studentID {
			fees = append(fees, fee)
		}
	}
	sort.Slice(fees, func(i, j int) bool { return fees[i].CreatedAt.Before(fees[j].CreatedAt) })
	return fees, nil
}

func (repo *feeRepository) ListOverduePartialFees(_ context.Context, t time.Time) ([]billing.FeeRecord, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	fees := make([]billing.FeeRecord, 0)
	for _, fee := range repo.db.fees {
		if fee.Status == billing.FeeStatusPartial && fee.NextPaymentDue.Before(t) {
			fees = append(fees, fee)
		}
	}
	sort.Slice(fees, func(i, j int) bool { return fees[i].NextPaymentDue.Before(fees[j].NextPaymentDue) })
	return fees, nil
}

func (repo *feeRepository) SetFeeStatus(_ context.Context, id, status string, t time.Time) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	fee, ok := repo.db.fees[id]
	if !ok {
		return billing.ErrFeeNotFound
	}
	fee.Status = status
	fee.UpdatedAt = t
	repo.db.fees[id] = fee
	return nil
}
