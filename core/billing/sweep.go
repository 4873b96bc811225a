package billing

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

const sweepInterval = 24 * time.Hour

type (
	Repository interface {
		CreateFee(ctx context.Context, fee FeeRecord) (FeeRecord, error)
		ListFeesByStudent(ctx context.Context, studentID string) ([]FeeRecord, error)
		// ListOverduePartialFees returns partial fees whose next payment due date is before t.
		ListOverduePartialFees(ctx context.Context, t time.Time) ([]FeeRecord, error)
		SetFeeStatus(ctx context.Context, id, status string, t time.Time) error
	}

	// Sweeper runs the daily overdue-fee check. Each pass re-derives the fee
	// status from the due date, so running it repeatedly (or concurrently with
	// itself) is safe.
	Sweeper struct {
		repo     Repository
		logger   core.Logger
		now      func() time.Time
		stopChan chan struct{}
	}
)

func NewSweeper(repo Repository, logger core.Logger, now func() time.Time) *Sweeper {
	if now == nil {
		now = time.Now
	}
	return &Sweeper{
		repo:     repo,
		logger:   logger,
		now:      now,
		stopChan: make(chan struct{}),
	}
}

// Run performs one sweep pass and returns how many fees were marked unpaid.
func (s *Sweeper) Run(ctx context.Context) (int, error) {
	now := s.now().UTC()
	fees, err := s.repo.ListOverduePartialFees(ctx, now)
	if err != nil {
		return 0, errors.Wrap(err, "listing overdue fees")
	}

	var swept int
	for _, fee := range fees {
		if err = s.repo.SetFeeStatus(ctx, fee.ID, FeeStatusUnpaid, now); err != nil {
			return swept, errors.Wrapf(err, "marking fee %s unpaid", fee.ID)
		}
		swept++
	}
	return swept, nil
}

// Start runs the sweep immediately and then once per day until Stop is called
// or the context is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	go s.loop(ctx)
}

func (s *Sweeper) Stop() {
	close(s.stopChan)
}

func (s *Sweeper) loop(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-s.stopChan:
			s.logger.Info("fee sweep stopped")
			return
		case <-ctx.Done():
			s.logger.Info("fee sweep cancelled")
			return
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	swept, err := s.Run(ctx)
	if err != nil {
		s.logger.Error("overdue fee sweep failed", err)
		return
	}
	if swept > 0 {
		s.logger.Info("overdue fee sweep done", map[string]interface{}{"swept": swept})
	}
}
