package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/ankunda/credit-engine/internal/domain"
)

// DBTX is satisfied by both *sqlx.DB and *sqlx.Tx so the same repository
// methods run standalone or inside a unit of work.
type DBTX interface {
	sqlx.ExtContext
}

// UnitOfWork runs fn inside a single database transaction. Any error rolls
// the whole transaction back; lock conflicts surface as
// CONCURRENCY_CONFLICT business errors so callers can retry from scratch.
type UnitOfWork interface {
	Within(ctx context.Context, fn func(q DBTX) error) error
}

// TariffRepository reads tariffs and their blocks.
type TariffRepository interface {
	Create(ctx context.Context, q DBTX, tariff *domain.Tariff) error
	GetByCode(ctx context.Context, q DBTX, code string) (*domain.Tariff, error)
	GetByID(ctx context.Context, q DBTX, id uuid.UUID) (*domain.Tariff, error)
	FirstActive(ctx context.Context, q DBTX) (*domain.Tariff, error)
	ListActive(ctx context.Context, q DBTX) ([]*domain.Tariff, error)
}

// LoanRepository owns loan applications, disbursements and repayments.
type LoanRepository interface {
	Create(ctx context.Context, q DBTX, loan *domain.LoanApplication) error
	GetByLoanID(ctx context.Context, q DBTX, loanID string) (*domain.LoanApplication, error)
	// LockByLoanID takes an exclusive row lock for the duration of the
	// surrounding transaction. Always acquired before any meter lock.
	LockByLoanID(ctx context.Context, q DBTX, loanID string) (*domain.LoanApplication, error)
	UpdateStatus(ctx context.Context, q DBTX, loanID, status string) error
	HasActiveLoan(ctx context.Context, q DBTX, accountID string) (bool, error)
	ListByAccount(ctx context.Context, q DBTX, accountID string) ([]*domain.LoanApplication, error)
	ListByStatus(ctx context.Context, q DBTX, status string) ([]*domain.LoanApplication, error)

	CreateDisbursement(ctx context.Context, q DBTX, d *domain.LoanDisbursement) error
	GetDisbursement(ctx context.Context, q DBTX, loanID string) (*domain.LoanDisbursement, error)

	CreateRepayment(ctx context.Context, q DBTX, r *domain.LoanRepayment) error
	GetRepayments(ctx context.Context, q DBTX, loanID string) ([]*domain.LoanRepayment, error)
	LockRepaymentByReference(ctx context.Context, q DBTX, reference string) (*domain.LoanRepayment, error)
	UpdateRepaymentStatus(ctx context.Context, q DBTX, reference, status string) error
	ListPendingRepaymentsBefore(ctx context.Context, q DBTX, cutoff time.Time) ([]*domain.LoanRepayment, error)
}

// MeterRepository owns meter balances and tokens. Balance mutations happen
// only under a row lock taken through LockByMeterNos or LockByAccountID.
type MeterRepository interface {
	GetByMeterNo(ctx context.Context, q DBTX, meterNo string) (*domain.Meter, error)
	GetByAccountID(ctx context.Context, q DBTX, accountID string) (*domain.Meter, error)
	LockByAccountID(ctx context.Context, q DBTX, accountID string) (*domain.Meter, error)
	// LockByMeterNos locks the given meters in ascending primary-key order
	// so two transfers crossing in opposite directions cannot deadlock.
	LockByMeterNos(ctx context.Context, q DBTX, meterNos ...string) (map[string]*domain.Meter, error)
	UpdateUnits(ctx context.Context, q DBTX, meterNo string, units decimal.Decimal) error
	SetActive(ctx context.Context, q DBTX, meterNo string, active bool, at time.Time) error

	CreateToken(ctx context.Context, q DBTX, token *domain.MeterToken) error
	ExpireTokens(ctx context.Context, q DBTX, now time.Time) (int64, error)
}

// TransactionRepository appends unit-movement log rows. Rows are written in
// the same transaction as the unit movement itself, already in their final
// state, so there is no status-flip operation.
type TransactionRepository interface {
	Create(ctx context.Context, q DBTX, txn *domain.UnitTransaction) error
}
