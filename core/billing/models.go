package billing

import (
	"time"

	"github.com/pkg/errors"
)

var ErrFeeNotFound = errors.New("fee record not found")

// Fee statuses. The overdue sweep only ever transitions partial → unpaid.
const (
	FeeStatusPaid    = "paid"
	FeeStatusPartial = "partial"
	FeeStatusUnpaid  = "unpaid"
)

// FeeRecord tracks a student's fee balance for a billing period.
// Amounts are in minor currency units.
type FeeRecord struct {
	ID             string    `db:"id" json:"id"`
	StudentID      string    `db:"student_id" json:"student_id"`
	AcademicYear   string    `db:"academic_year" json:"academic_year"`
	AmountDue      int64     `db:"amount_due" json:"amount_due"`
	AmountPaid     int64     `db:"amount_paid" json:"amount_paid"`
	Status         string    `db:"status" json:"status"`
	NextPaymentDue time.Time `db:"next_payment_due" json:"next_payment_due"` // UTC
	CreatedAt      time.Time `db:"created_at" json:"created_at"`             // UTC
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`             // UTC
}
