package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/ankunda/credit-engine/internal/domain"
	"github.com/ankunda/credit-engine/internal/events"
	"github.com/ankunda/credit-engine/internal/repository"
)

// UnitOfWork runs the callback inline with a nil DBTX. The repository mocks
// below accept whatever q they are handed, so service tests exercise the
// real transaction-shaped flow without a database.
type UnitOfWork struct {
	mock.Mock
}

func (m *UnitOfWork) Within(ctx context.Context, fn func(q repository.DBTX) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(nil)
}

// ExpectWithin registers the usual passthrough expectation.
func (m *UnitOfWork) ExpectWithin() *mock.Call {
	return m.On("Within", mock.Anything, mock.Anything).Return(nil)
}

type TariffRepository struct {
	mock.Mock
}

func (m *TariffRepository) Create(ctx context.Context, q repository.DBTX, tariff *domain.Tariff) error {
	args := m.Called(ctx, q, tariff)
	return args.Error(0)
}

func (m *TariffRepository) GetByCode(ctx context.Context, q repository.DBTX, code string) (*domain.Tariff, error) {
	args := m.Called(ctx, q, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Tariff), args.Error(1)
}

func (m *TariffRepository) GetByID(ctx context.Context, q repository.DBTX, id uuid.UUID) (*domain.Tariff, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Tariff), args.Error(1)
}

func (m *TariffRepository) FirstActive(ctx context.Context, q repository.DBTX) (*domain.Tariff, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Tariff), args.Error(1)
}

func (m *TariffRepository) ListActive(ctx context.Context, q repository.DBTX) ([]*domain.Tariff, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Tariff), args.Error(1)
}

type LoanRepository struct {
	mock.Mock
}

func (m *LoanRepository) Create(ctx context.Context, q repository.DBTX, loan *domain.LoanApplication) error {
	args := m.Called(ctx, q, loan)
	return args.Error(0)
}

func (m *LoanRepository) GetByLoanID(ctx context.Context, q repository.DBTX, loanID string) (*domain.LoanApplication, error) {
	args := m.Called(ctx, q, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanApplication), args.Error(1)
}

func (m *LoanRepository) LockByLoanID(ctx context.Context, q repository.DBTX, loanID string) (*domain.LoanApplication, error) {
	args := m.Called(ctx, q, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanApplication), args.Error(1)
}

func (m *LoanRepository) UpdateStatus(ctx context.Context, q repository.DBTX, loanID, status string) error {
	args := m.Called(ctx, q, loanID, status)
	return args.Error(0)
}

func (m *LoanRepository) HasActiveLoan(ctx context.Context, q repository.DBTX, accountID string) (bool, error) {
	args := m.Called(ctx, q, accountID)
	return args.Bool(0), args.Error(1)
}

func (m *LoanRepository) ListByAccount(ctx context.Context, q repository.DBTX, accountID string) ([]*domain.LoanApplication, error) {
	args := m.Called(ctx, q, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.LoanApplication), args.Error(1)
}

func (m *LoanRepository) ListByStatus(ctx context.Context, q repository.DBTX, status string) ([]*domain.LoanApplication, error) {
	args := m.Called(ctx, q, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.LoanApplication), args.Error(1)
}

func (m *LoanRepository) CreateDisbursement(ctx context.Context, q repository.DBTX, d *domain.LoanDisbursement) error {
	args := m.Called(ctx, q, d)
	return args.Error(0)
}

func (m *LoanRepository) GetDisbursement(ctx context.Context, q repository.DBTX, loanID string) (*domain.LoanDisbursement, error) {
	args := m.Called(ctx, q, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanDisbursement), args.Error(1)
}

func (m *LoanRepository) CreateRepayment(ctx context.Context, q repository.DBTX, r *domain.LoanRepayment) error {
	args := m.Called(ctx, q, r)
	return args.Error(0)
}

func (m *LoanRepository) GetRepayments(ctx context.Context, q repository.DBTX, loanID string) ([]*domain.LoanRepayment, error) {
	args := m.Called(ctx, q, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.LoanRepayment), args.Error(1)
}

func (m *LoanRepository) LockRepaymentByReference(ctx context.Context, q repository.DBTX, reference string) (*domain.LoanRepayment, error) {
	args := m.Called(ctx, q, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanRepayment), args.Error(1)
}

func (m *LoanRepository) UpdateRepaymentStatus(ctx context.Context, q repository.DBTX, reference, status string) error {
	args := m.Called(ctx, q, reference, status)
	return args.Error(0)
}

func (m *LoanRepository) ListPendingRepaymentsBefore(ctx context.Context, q repository.DBTX, cutoff time.Time) ([]*domain.LoanRepayment, error) {
	args := m.Called(ctx, q, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.LoanRepayment), args.Error(1)
}

type MeterRepository struct {
	mock.Mock
}

func (m *MeterRepository) GetByMeterNo(ctx context.Context, q repository.DBTX, meterNo string) (*domain.Meter, error) {
	args := m.Called(ctx, q, meterNo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Meter), args.Error(1)
}

func (m *MeterRepository) GetByAccountID(ctx context.Context, q repository.DBTX, accountID string) (*domain.Meter, error) {
	args := m.Called(ctx, q, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Meter), args.Error(1)
}

func (m *MeterRepository) LockByAccountID(ctx context.Context, q repository.DBTX, accountID string) (*domain.Meter, error) {
	args := m.Called(ctx, q, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Meter), args.Error(1)
}

func (m *MeterRepository) LockByMeterNos(ctx context.Context, q repository.DBTX, meterNos ...string) (map[string]*domain.Meter, error) {
	callArgs := make([]interface{}, 0, len(meterNos)+2)
	callArgs = append(callArgs, ctx, q)
	for _, no := range meterNos {
		callArgs = append(callArgs, no)
	}
	args := m.Called(callArgs...)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]*domain.Meter), args.Error(1)
}

func (m *MeterRepository) UpdateUnits(ctx context.Context, q repository.DBTX, meterNo string, units decimal.Decimal) error {
	args := m.Called(ctx, q, meterNo, units)
	return args.Error(0)
}

func (m *MeterRepository) SetActive(ctx context.Context, q repository.DBTX, meterNo string, active bool, at time.Time) error {
	args := m.Called(ctx, q, meterNo, active, at)
	return args.Error(0)
}

func (m *MeterRepository) CreateToken(ctx context.Context, q repository.DBTX, token *domain.MeterToken) error {
	args := m.Called(ctx, q, token)
	return args.Error(0)
}

func (m *MeterRepository) ExpireTokens(ctx context.Context, q repository.DBTX, now time.Time) (int64, error) {
	args := m.Called(ctx, q, now)
	return args.Get(0).(int64), args.Error(1)
}

type TransactionRepository struct {
	mock.Mock
}

func (m *TransactionRepository) Create(ctx context.Context, q repository.DBTX, txn *domain.UnitTransaction) error {
	args := m.Called(ctx, q, txn)
	return args.Error(0)
}

// Publisher records published events for assertions.
type Publisher struct {
	mock.Mock
}

func (m *Publisher) Publish(ctx context.Context, event events.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
