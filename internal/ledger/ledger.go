package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ankunda/credit-engine/internal/domain"
	customError "github.com/ankunda/credit-engine/pkg/errors"
	"github.com/ankunda/credit-engine/pkg/utils"
)

var (
	hundred      = decimal.NewFromInt(100)
	monthsInYear = decimal.NewFromInt(12)
)

// Ledger computes a loan's financial state and guards its status
// transitions. It is pure: callers supply the loan, its disbursement and
// repayment rows, and the evaluation time.
type Ledger struct {
	penaltyRatePerDay decimal.Decimal
}

// New builds a ledger with the daily late-penalty rate applied to the
// principal, e.g. 0.001 for 0.1% per day.
func New(penaltyRatePerDay decimal.Decimal) *Ledger {
	return &Ledger{penaltyRatePerDay: penaltyRatePerDay}
}

// TotalAmountDue is principal plus simple interest prorated by the tenure's
// fraction of a year: approved * (rate/100) * (tenure/12).
func (l *Ledger) TotalAmountDue(loan *domain.LoanApplication) decimal.Decimal {
	if loan.AmountApproved == nil {
		return decimal.Zero
	}
	principal := *loan.AmountApproved
	interest := principal.
		Mul(loan.InterestRate).Div(hundred).
		Mul(decimal.NewFromInt(int64(loan.TenureMonths))).Div(monthsInYear)
	return principal.Add(interest)
}

// DueDate is the disbursement date plus the tenure in calendar months, not
// a 30-day approximation.
func DueDate(disbursement *domain.LoanDisbursement, tenureMonths int) time.Time {
	return disbursement.DisbursementDate.AddDate(0, tenureMonths, 0)
}

// LatePenalty accrues daysLate * rate * principal once the due date has
// passed. The penalty is charged on the principal, not on the outstanding
// balance. Zero before disbursement or before the due date.
func (l *Ledger) LatePenalty(loan *domain.LoanApplication, disbursement *domain.LoanDisbursement, now time.Time) decimal.Decimal {
	if disbursement == nil || loan.AmountApproved == nil {
		return decimal.Zero
	}
	due := DueDate(disbursement, loan.TenureMonths)
	if !now.After(due) {
		return decimal.Zero
	}
	daysLate := utils.DaysBetween(due, now)
	return decimal.NewFromInt(int64(daysLate)).
		Mul(l.penaltyRatePerDay).
		Mul(*loan.AmountApproved)
}

// AmountPaid sums the successful repayments. PENDING, FAILED and CANCELLED
// rows never reduce the balance.
func (l *Ledger) AmountPaid(repayments []*domain.LoanRepayment) decimal.Decimal {
	total := decimal.Zero
	for _, r := range repayments {
		if r.PaymentStatus == domain.PaymentStatusSuccess {
			total = total.Add(r.AmountPaid)
		}
	}
	return total
}

// PendingAmount sums repayments still awaiting confirmation. They do not
// reduce the balance yet, but a new repayment must leave room for them or
// the loan is overpaid once they confirm.
func (l *Ledger) PendingAmount(repayments []*domain.LoanRepayment) decimal.Decimal {
	total := decimal.Zero
	for _, r := range repayments {
		if r.PaymentStatus == domain.PaymentStatusPending {
			total = total.Add(r.AmountPaid)
		}
	}
	return total
}

// OutstandingBalance is total due plus accrued late penalty minus the sum of
// successful repayments.
func (l *Ledger) OutstandingBalance(loan *domain.LoanApplication, disbursement *domain.LoanDisbursement, repayments []*domain.LoanRepayment, now time.Time) decimal.Decimal {
	return l.TotalAmountDue(loan).
		Add(l.LatePenalty(loan, disbursement, now)).
		Sub(l.AmountPaid(repayments))
}

// CanDisburse checks the APPROVED -> DISBURSED guards: approved status, a
// positive approved amount, and no prior disbursement.
func (l *Ledger) CanDisburse(loan *domain.LoanApplication, existing *domain.LoanDisbursement) error {
	if loan.Status != domain.LoanStatusApproved {
		return customError.WrapInvalidLoanState(loan.LoanID, loan.Status)
	}
	if loan.AmountApproved == nil || !loan.AmountApproved.IsPositive() {
		return customError.WrapInvalidAmount("loan has no approved amount")
	}
	if existing != nil {
		return customError.WrapAlreadyDisbursed(loan.LoanID)
	}
	return nil
}

// ValidateRepayment checks the repayment guards: the loan must be disbursed
// and the amount must be positive and no larger than the outstanding
// balance at evaluation time, net of repayments still pending confirmation.
func (l *Ledger) ValidateRepayment(loan *domain.LoanApplication, disbursement *domain.LoanDisbursement, repayments []*domain.LoanRepayment, amount decimal.Decimal, now time.Time) error {
	if loan.Status != domain.LoanStatusDisbursed {
		return customError.WrapInvalidLoanState(loan.LoanID, loan.Status)
	}
	if !amount.IsPositive() {
		return customError.WrapInvalidAmount("repayment amount must be positive")
	}
	available := l.OutstandingBalance(loan, disbursement, repayments, now).
		Sub(l.PendingAmount(repayments))
	if amount.GreaterThan(available) {
		return customError.WrapInvalidAmount("repayment amount exceeds outstanding balance")
	}
	return nil
}

// IsOnTime reports whether a repayment made now lands before the due date.
func IsOnTime(loan *domain.LoanApplication, disbursement *domain.LoanDisbursement, now time.Time) bool {
	if disbursement == nil {
		return true
	}
	return !now.After(DueDate(disbursement, loan.TenureMonths))
}

// IsSettled reports whether the balance has reached zero (or crossed it by
// rounding), which triggers the DISBURSED -> COMPLETED transition.
func IsSettled(outstanding decimal.Decimal) bool {
	return outstanding.Sign() <= 0
}
