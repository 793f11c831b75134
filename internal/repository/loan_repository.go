package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ankunda/credit-engine/internal/domain"
)

const loanColumns = `
	id, loan_id, account_id, purpose, amount_requested, amount_approved,
	tenure_months, interest_rate, status, credit_score, loan_tier, tariff_id,
	rejection_reason, created_at, updated_at
`

type loanRepository struct{}

func NewLoanRepository() LoanRepository {
	return &loanRepository{}
}

func (r *loanRepository) Create(ctx context.Context, q DBTX, loan *domain.LoanApplication) error {
	query := `
		INSERT INTO loan_applications (` + loanColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := q.ExecContext(ctx, query,
		loan.ID,
		loan.LoanID,
		loan.AccountID,
		loan.Purpose,
		loan.AmountRequested,
		loan.AmountApproved,
		loan.TenureMonths,
		loan.InterestRate,
		loan.Status,
		loan.CreditScore,
		loan.LoanTier,
		loan.TariffID,
		loan.RejectionReason,
		loan.CreatedAt,
		loan.UpdatedAt,
	)
	return err
}

func (r *loanRepository) GetByLoanID(ctx context.Context, q DBTX, loanID string) (*domain.LoanApplication, error) {
	query := `SELECT ` + loanColumns + ` FROM loan_applications WHERE loan_id = $1`

	var loan domain.LoanApplication
	if err := sqlx.GetContext(ctx, q, &loan, query, loanID); err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *loanRepository) LockByLoanID(ctx context.Context, q DBTX, loanID string) (*domain.LoanApplication, error) {
	query := `SELECT ` + loanColumns + ` FROM loan_applications WHERE loan_id = $1 FOR UPDATE`

	var loan domain.LoanApplication
	if err := sqlx.GetContext(ctx, q, &loan, query, loanID); err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *loanRepository) UpdateStatus(ctx context.Context, q DBTX, loanID, status string) error {
	query := `
		UPDATE loan_applications
		SET status = $2, updated_at = $3
		WHERE loan_id = $1
	`
	_, err := q.ExecContext(ctx, query, loanID, status, time.Now())
	return err
}

func (r *loanRepository) HasActiveLoan(ctx context.Context, q DBTX, accountID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM loan_applications
			WHERE account_id = $1 AND status IN ('PENDING', 'APPROVED', 'DISBURSED')
		)
	`
	var exists bool
	if err := sqlx.GetContext(ctx, q, &exists, query, accountID); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *loanRepository) ListByAccount(ctx context.Context, q DBTX, accountID string) ([]*domain.LoanApplication, error) {
	query := `
		SELECT ` + loanColumns + `
		FROM loan_applications
		WHERE account_id = $1
		ORDER BY created_at DESC
	`
	var loans []*domain.LoanApplication
	if err := sqlx.SelectContext(ctx, q, &loans, query, accountID); err != nil {
		return nil, err
	}
	return loans, nil
}

func (r *loanRepository) ListByStatus(ctx context.Context, q DBTX, status string) ([]*domain.LoanApplication, error) {
	query := `
		SELECT ` + loanColumns + `
		FROM loan_applications
		WHERE status = $1
		ORDER BY created_at
	`
	var loans []*domain.LoanApplication
	if err := sqlx.SelectContext(ctx, q, &loans, query, status); err != nil {
		return nil, err
	}
	return loans, nil
}

func (r *loanRepository) CreateDisbursement(ctx context.Context, q DBTX, d *domain.LoanDisbursement) error {
	query := `
		INSERT INTO loan_disbursements (id, loan_id, disbursed_amount, units_disbursed, token, token_expiry, meter_no, disbursement_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := q.ExecContext(ctx, query,
		d.ID,
		d.LoanID,
		d.DisbursedAmount,
		d.UnitsDisbursed,
		d.Token,
		d.TokenExpiry,
		d.MeterNo,
		d.DisbursementDate,
	)
	return err
}

func (r *loanRepository) GetDisbursement(ctx context.Context, q DBTX, loanID string) (*domain.LoanDisbursement, error) {
	query := `
		SELECT id, loan_id, disbursed_amount, units_disbursed, token, token_expiry, meter_no, disbursement_date
		FROM loan_disbursements
		WHERE loan_id = $1
	`
	var d domain.LoanDisbursement
	if err := sqlx.GetContext(ctx, q, &d, query, loanID); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *loanRepository) CreateRepayment(ctx context.Context, q DBTX, rep *domain.LoanRepayment) error {
	query := `
		INSERT INTO loan_repayments (id, loan_id, amount_paid, units_paid, payment_reference, payment_method, payment_status, is_on_time, payment_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := q.ExecContext(ctx, query,
		rep.ID,
		rep.LoanID,
		rep.AmountPaid,
		rep.UnitsPaid,
		rep.PaymentReference,
		rep.PaymentMethod,
		rep.PaymentStatus,
		rep.IsOnTime,
		rep.PaymentDate,
		rep.CreatedAt,
	)
	return err
}

func (r *loanRepository) GetRepayments(ctx context.Context, q DBTX, loanID string) ([]*domain.LoanRepayment, error) {
	query := `
		SELECT id, loan_id, amount_paid, units_paid, payment_reference, payment_method, payment_status, is_on_time, payment_date, created_at
		FROM loan_repayments
		WHERE loan_id = $1
		ORDER BY created_at
	`
	var repayments []*domain.LoanRepayment
	if err := sqlx.SelectContext(ctx, q, &repayments, query, loanID); err != nil {
		return nil, err
	}
	return repayments, nil
}

func (r *loanRepository) LockRepaymentByReference(ctx context.Context, q DBTX, reference string) (*domain.LoanRepayment, error) {
	query := `
		SELECT id, loan_id, amount_paid, units_paid, payment_reference, payment_method, payment_status, is_on_time, payment_date, created_at
		FROM loan_repayments
		WHERE payment_reference = $1
		FOR UPDATE
	`
	var rep domain.LoanRepayment
	if err := sqlx.GetContext(ctx, q, &rep, query, reference); err != nil {
		return nil, err
	}
	return &rep, nil
}

func (r *loanRepository) UpdateRepaymentStatus(ctx context.Context, q DBTX, reference, status string) error {
	query := `
		UPDATE loan_repayments
		SET payment_status = $2
		WHERE payment_reference = $1
	`
	_, err := q.ExecContext(ctx, query, reference, status)
	return err
}

func (r *loanRepository) ListPendingRepaymentsBefore(ctx context.Context, q DBTX, cutoff time.Time) ([]*domain.LoanRepayment, error) {
	query := `
		SELECT id, loan_id, amount_paid, units_paid, payment_reference, payment_method, payment_status, is_on_time, payment_date, created_at
		FROM loan_repayments
		WHERE payment_status = 'PENDING' AND payment_method = 'MOBILE_MONEY' AND created_at < $1
		ORDER BY created_at
	`
	var repayments []*domain.LoanRepayment
	if err := sqlx.SelectContext(ctx, q, &repayments, query, cutoff); err != nil {
		return nil, err
	}
	return repayments, nil
}
