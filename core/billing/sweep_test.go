package billing_test

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core/billing"
	logsvc "github.com/trezcool/shule/services/logger"
	"github.com/trezcool/shule/storage/database/inmem"
)

func newFee(status string, due time.Time) billing.FeeRecord {
	now := time.Now().UTC()
	return billing.FeeRecord{
		StudentID:      "student-1",
		AcademicYear:   "2026-2027",
		AmountDue:      50000,
		AmountPaid:     20000,
		Status:         status,
		NextPaymentDue: due,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestSweeperRun(t *testing.T) {
	repo := inmem.NewFeeRepository(inmem.NewDB())
	ctx := context.Background()

	now := time.Date(2026, time.September, 1, 8, 0, 0, 0, time.UTC)

	overdue, err := repo.CreateFee(ctx, newFee(billing.FeeStatusPartial, now.Add(-24*time.Hour)))
	require.NoError(t, err)
	upcoming, err := repo.CreateFee(ctx, newFee(billing.FeeStatusPartial, now.Add(24*time.Hour)))
	require.NoError(t, err)
	paid, err := repo.CreateFee(ctx, newFee(billing.FeeStatusPaid, now.Add(-24*time.Hour)))
	require.NoError(t, err)

	sweeper := billing.NewSweeper(
		repo,
		logsvc.NewStdLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags)),
		func() time.Time { return now },
	)

	swept, err := sweeper.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	fees, err := repo.ListFeesByStudent(ctx, "student-1")
	require.NoError(t, err)
	byID := make(map[string]billing.FeeRecord, len(fees))
	for _, fee := range fees {
		byID[fee.ID] = fee
	}
	assert.Equal(t, billing.FeeStatusUnpaid, byID[overdue.ID].Status)
	assert.Equal(t, billing.FeeStatusPartial, byID[upcoming.ID].Status)
	assert.Equal(t, billing.FeeStatusPaid, byID[paid.ID].Status)

	// a second pass finds nothing left to do
	swept, err = sweeper.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, swept)
}
