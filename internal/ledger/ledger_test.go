package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ankunda/credit-engine/internal/domain"
	customError "github.com/ankunda/credit-engine/pkg/errors"
)

var disbursedAt = time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

func testLoan() *domain.LoanApplication {
	approved := decimal.NewFromInt(100000)
	return &domain.LoanApplication{
		LoanID:         "LOAN123456",
		AccountID:      "ACC-1",
		AmountApproved: &approved,
		InterestRate:   decimal.NewFromFloat(12.0),
		TenureMonths:   6,
		Status:         domain.LoanStatusDisbursed,
	}
}

func testDisbursement() *domain.LoanDisbursement {
	return &domain.LoanDisbursement{
		LoanID:           "LOAN123456",
		DisbursementDate: disbursedAt,
	}
}

func successRepayment(amount int64) *domain.LoanRepayment {
	return &domain.LoanRepayment{
		LoanID:        "LOAN123456",
		AmountPaid:    decimal.NewFromInt(amount),
		PaymentStatus: domain.PaymentStatusSuccess,
	}
}

func TestTotalAmountDue(t *testing.T) {
	l := New(decimal.NewFromFloat(0.001))

	// 100000 principal at 12% annual over 6 months: interest 6000.
	got := l.TotalAmountDue(testLoan())
	assert.True(t, got.Equal(decimal.NewFromInt(106000)), "got %s", got)

	t.Run("no approved amount means nothing due", func(t *testing.T) {
		assert.True(t, l.TotalAmountDue(&domain.LoanApplication{}).IsZero())
	})
}

func TestDueDate(t *testing.T) {
	due := DueDate(testDisbursement(), 6)
	assert.Equal(t, time.Date(2026, 7, 15, 10, 0, 0, 0, time.UTC), due)
}

func TestLatePenalty(t *testing.T) {
	l := New(decimal.NewFromFloat(0.001))
	loan := testLoan()
	disbursement := testDisbursement()
	due := DueDate(disbursement, loan.TenureMonths)

	tests := []struct {
		name string
		now  time.Time
		want int64
	}{
		{"before due date", due.AddDate(0, 0, -1), 0},
		{"exactly on due date", due, 0},
		{"ten days late", due.AddDate(0, 0, 10), 1000}, // 10 * 0.001 * 100000
		{"hundred days late", due.AddDate(0, 0, 100), 10000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := l.LatePenalty(loan, disbursement, tt.now)
			assert.True(t, got.Equal(decimal.NewFromInt(tt.want)), "got %s", got)
		})
	}

	t.Run("no disbursement accrues nothing", func(t *testing.T) {
		got := l.LatePenalty(loan, nil, due.AddDate(0, 0, 100))
		assert.True(t, got.IsZero())
	})
}

func TestAmountPaid(t *testing.T) {
	l := New(decimal.NewFromFloat(0.001))

	repayments := []*domain.LoanRepayment{
		successRepayment(30000),
		{AmountPaid: decimal.NewFromInt(20000), PaymentStatus: domain.PaymentStatusPending},
		{AmountPaid: decimal.NewFromInt(10000), PaymentStatus: domain.PaymentStatusFailed},
		{AmountPaid: decimal.NewFromInt(5000), PaymentStatus: domain.PaymentStatusCancelled},
		successRepayment(6000),
	}
	got := l.AmountPaid(repayments)
	assert.True(t, got.Equal(decimal.NewFromInt(36000)), "only SUCCESS rows count, got %s", got)
}

func TestOutstandingBalance(t *testing.T) {
	l := New(decimal.NewFromFloat(0.001))
	loan := testLoan()
	disbursement := testDisbursement()
	due := DueDate(disbursement, loan.TenureMonths)

	t.Run("on time", func(t *testing.T) {
		got := l.OutstandingBalance(loan, disbursement,
			[]*domain.LoanRepayment{successRepayment(50000)}, due)
		assert.True(t, got.Equal(decimal.NewFromInt(56000)), "got %s", got)
	})

	t.Run("late adds penalty", func(t *testing.T) {
		got := l.OutstandingBalance(loan, disbursement,
			[]*domain.LoanRepayment{successRepayment(50000)}, due.AddDate(0, 0, 10))
		assert.True(t, got.Equal(decimal.NewFromInt(57000)), "got %s", got)
	})

	t.Run("fully repaid", func(t *testing.T) {
		got := l.OutstandingBalance(loan, disbursement,
			[]*domain.LoanRepayment{successRepayment(106000)}, due)
		assert.True(t, got.IsZero())
		assert.True(t, IsSettled(got))
	})
}

func TestCanDisburse(t *testing.T) {
	l := New(decimal.NewFromFloat(0.001))

	t.Run("approved loan with amount", func(t *testing.T) {
		loan := testLoan()
		loan.Status = domain.LoanStatusApproved
		assert.NoError(t, l.CanDisburse(loan, nil))
	})

	t.Run("wrong status", func(t *testing.T) {
		loan := testLoan()
		loan.Status = domain.LoanStatusRejected
		err := l.CanDisburse(loan, nil)
		var be *customError.BusinessError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, customError.ErrCodeInvalidLoanState, be.Code)
	})

	t.Run("no approved amount", func(t *testing.T) {
		loan := testLoan()
		loan.Status = domain.LoanStatusApproved
		loan.AmountApproved = nil
		err := l.CanDisburse(loan, nil)
		var be *customError.BusinessError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, customError.ErrCodeInvalidAmount, be.Code)
	})

	t.Run("already disbursed", func(t *testing.T) {
		loan := testLoan()
		loan.Status = domain.LoanStatusApproved
		err := l.CanDisburse(loan, testDisbursement())
		var be *customError.BusinessError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, customError.ErrCodeAlreadyDisbursed, be.Code)
	})
}

func TestValidateRepayment(t *testing.T) {
	l := New(decimal.NewFromFloat(0.001))
	loan := testLoan()
	disbursement := testDisbursement()
	now := disbursedAt.AddDate(0, 1, 0)

	t.Run("valid repayment", func(t *testing.T) {
		err := l.ValidateRepayment(loan, disbursement, nil, decimal.NewFromInt(10000), now)
		assert.NoError(t, err)
	})

	t.Run("not disbursed", func(t *testing.T) {
		pending := testLoan()
		pending.Status = domain.LoanStatusApproved
		err := l.ValidateRepayment(pending, nil, nil, decimal.NewFromInt(10000), now)
		var be *customError.BusinessError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, customError.ErrCodeInvalidLoanState, be.Code)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		err := l.ValidateRepayment(loan, disbursement, nil, decimal.Zero, now)
		var be *customError.BusinessError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, customError.ErrCodeInvalidAmount, be.Code)
	})

	t.Run("overpayment rejected", func(t *testing.T) {
		err := l.ValidateRepayment(loan, disbursement, nil, decimal.NewFromInt(106001), now)
		var be *customError.BusinessError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, customError.ErrCodeInvalidAmount, be.Code)
	})

	t.Run("exact settlement allowed", func(t *testing.T) {
		err := l.ValidateRepayment(loan, disbursement, nil, decimal.NewFromInt(106000), now)
		assert.NoError(t, err)
	})

	t.Run("pending repayments reserve the balance", func(t *testing.T) {
		// A 106000 payment awaiting confirmation leaves no room; accepting a
		// second full settlement would double-charge once both confirm.
		pending := []*domain.LoanRepayment{
			{AmountPaid: decimal.NewFromInt(106000), PaymentStatus: domain.PaymentStatusPending},
		}
		err := l.ValidateRepayment(loan, disbursement, pending, decimal.NewFromInt(106000), now)
		var be *customError.BusinessError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, customError.ErrCodeInvalidAmount, be.Code)
	})

	t.Run("partial pending leaves the remainder payable", func(t *testing.T) {
		pending := []*domain.LoanRepayment{
			{AmountPaid: decimal.NewFromInt(50000), PaymentStatus: domain.PaymentStatusPending},
		}
		err := l.ValidateRepayment(loan, disbursement, pending, decimal.NewFromInt(56000), now)
		assert.NoError(t, err)
		err = l.ValidateRepayment(loan, disbursement, pending, decimal.NewFromInt(56001), now)
		var be *customError.BusinessError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, customError.ErrCodeInvalidAmount, be.Code)
	})
}

func TestIsOnTime(t *testing.T) {
	loan := testLoan()
	disbursement := testDisbursement()
	due := DueDate(disbursement, loan.TenureMonths)

	assert.True(t, IsOnTime(loan, disbursement, due))
	assert.True(t, IsOnTime(loan, disbursement, due.Add(-time.Hour)))
	assert.False(t, IsOnTime(loan, disbursement, due.Add(time.Hour)))
	assert.True(t, IsOnTime(loan, nil, due), "no disbursement cannot be late")
}

func TestIsSettled(t *testing.T) {
	assert.True(t, IsSettled(decimal.Zero))
	assert.True(t, IsSettled(decimal.NewFromFloat(-0.01)))
	assert.False(t, IsSettled(decimal.NewFromFloat(0.01)))
}
