package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ankunda/credit-engine/internal/domain"
	"github.com/ankunda/credit-engine/internal/mocks"
	"github.com/ankunda/credit-engine/internal/tariff"
	customError "github.com/ankunda/credit-engine/pkg/errors"
)

type transferFixture struct {
	uow          *mocks.UnitOfWork
	meters       *mocks.MeterRepository
	tariffs      *mocks.TariffRepository
	transactions *mocks.TransactionRepository
	publisher    *mocks.Publisher
	svc          *TransferService
}

func newTransferFixture(t *testing.T) *transferFixture {
	t.Helper()

	f := &transferFixture{
		uow:          &mocks.UnitOfWork{},
		meters:       &mocks.MeterRepository{},
		tariffs:      &mocks.TariffRepository{},
		transactions: &mocks.TransactionRepository{},
		publisher:    &mocks.Publisher{},
	}
	converter := tariff.NewConverter(decimal.NewFromInt(500))
	f.svc = NewTransferService(f.uow, f.meters, f.tariffs, f.transactions, converter, f.publisher)
	f.svc.now = func() time.Time { return testNow }
	return f
}

func activePair() map[string]*domain.Meter {
	return map[string]*domain.Meter{
		"MTR-A": {MeterNo: "MTR-A", AccountID: "ACC-A", Units: decimal.NewFromInt(100), IsActive: true},
		"MTR-B": {MeterNo: "MTR-B", AccountID: "ACC-B", Units: decimal.NewFromInt(5), IsActive: true},
	}
}

func TestPurchaseUnits(t *testing.T) {
	t.Run("flat rate without an active tariff", func(t *testing.T) {
		f := newTransferFixture(t)
		f.uow.ExpectWithin()
		f.meters.On("LockByMeterNos", mock.Anything, mock.Anything, "MTR-A").Return(activePair(), nil)
		f.tariffs.On("FirstActive", mock.Anything, mock.Anything).Return(nil, sql.ErrNoRows)
		f.meters.On("UpdateUnits", mock.Anything, mock.Anything, "MTR-A",
			mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(decimal.NewFromInt(110)) })).Return(nil)

		var token *domain.MeterToken
		f.meters.On("CreateToken", mock.Anything, mock.Anything, mock.AnythingOfType("*domain.MeterToken")).
			Run(func(args mock.Arguments) {
				token = args.Get(2).(*domain.MeterToken)
			}).Return(nil)
		var txn *domain.UnitTransaction
		f.transactions.On("Create", mock.Anything, mock.Anything, mock.AnythingOfType("*domain.UnitTransaction")).
			Run(func(args mock.Arguments) {
				txn = args.Get(2).(*domain.UnitTransaction)
			}).Return(nil)

		result, err := f.svc.PurchaseUnits(context.Background(), &domain.PurchaseUnitsRequest{
			MeterNo: "MTR-A",
			Amount:  decimal.NewFromInt(5000),
		})
		require.NoError(t, err)

		// 5000 at the flat 500/unit fallback.
		assert.True(t, result.UnitsAdded.Equal(decimal.NewFromInt(10)))
		assert.Equal(t, "DEFAULT", result.TariffCode)
		assert.Empty(t, result.CostBreakdown)
		assert.Len(t, result.Token, 10)
		assert.Equal(t, testNow.AddDate(0, 0, 30), result.TokenExpiry)

		require.NotNil(t, token)
		assert.Equal(t, domain.TokenSourcePurchase, token.Source)
		assert.Equal(t, "ACC-A", token.AccountID)
		assert.True(t, token.Units.Equal(decimal.NewFromInt(10)))

		require.NotNil(t, txn)
		assert.Equal(t, domain.DirectionIn, txn.Direction)
		assert.Equal(t, domain.TransactionStatusCompleted, txn.Status)
	})

	t.Run("block walk through the active tariff", func(t *testing.T) {
		f := newTransferFixture(t)
		f.uow.ExpectWithin()

		seven := int64(7)
		trf := &domain.Tariff{
			TariffCode: "CODE10.1",
			IsActive:   true,
			Blocks: []*domain.TariffBlock{
				{BlockName: "Subsidised", MinUnits: 0, MaxUnits: &seven, RatePerUnit: decimal.NewFromInt(250), BlockOrder: 1},
				{BlockName: "Standard", MinUnits: 8, RatePerUnit: decimal.NewFromFloat(775.7), BlockOrder: 2},
			},
		}
		f.meters.On("LockByMeterNos", mock.Anything, mock.Anything, "MTR-A").Return(activePair(), nil)
		f.tariffs.On("FirstActive", mock.Anything, mock.Anything).Return(trf, nil)

		// 8 units at 250 cost 2000, the remaining 3000 buys 3000/775.7 more,
		// about 11.87 in total on top of the existing 100.
		f.meters.On("UpdateUnits", mock.Anything, mock.Anything, "MTR-A",
			mock.MatchedBy(func(d decimal.Decimal) bool {
				return d.GreaterThan(decimal.NewFromFloat(111.86)) && d.LessThan(decimal.NewFromFloat(111.88))
			})).Return(nil)
		f.meters.On("CreateToken", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		f.transactions.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		result, err := f.svc.PurchaseUnits(context.Background(), &domain.PurchaseUnitsRequest{
			MeterNo: "MTR-A",
			Amount:  decimal.NewFromInt(5000),
		})
		require.NoError(t, err)

		assert.True(t, result.UnitsAdded.Equal(decimal.NewFromFloat(11.87)), "got %s", result.UnitsAdded)
		assert.Equal(t, "CODE10.1", result.TariffCode)
		require.Len(t, result.CostBreakdown, 2)
		assert.Equal(t, "Subsidised", result.CostBreakdown[0].BlockName)
	})

	t.Run("inactive meter refused", func(t *testing.T) {
		f := newTransferFixture(t)
		f.uow.ExpectWithin()
		pair := activePair()
		pair["MTR-A"].IsActive = false
		f.meters.On("LockByMeterNos", mock.Anything, mock.Anything, "MTR-A").Return(pair, nil)

		_, err := f.svc.PurchaseUnits(context.Background(), &domain.PurchaseUnitsRequest{
			MeterNo: "MTR-A",
			Amount:  decimal.NewFromInt(5000),
		})
		assertBusinessCode(t, err, customError.ErrCodeMeterInactive)
		f.meters.AssertNotCalled(t, "UpdateUnits", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown meter", func(t *testing.T) {
		f := newTransferFixture(t)
		f.uow.ExpectWithin()
		f.meters.On("LockByMeterNos", mock.Anything, mock.Anything, "MTR-X").
			Return(map[string]*domain.Meter{}, nil)

		_, err := f.svc.PurchaseUnits(context.Background(), &domain.PurchaseUnitsRequest{
			MeterNo: "MTR-X",
			Amount:  decimal.NewFromInt(5000),
		})
		assertBusinessCode(t, err, customError.ErrCodeMeterNotFound)
	})

	t.Run("non-positive amount refused", func(t *testing.T) {
		f := newTransferFixture(t)
		_, err := f.svc.PurchaseUnits(context.Background(), &domain.PurchaseUnitsRequest{
			MeterNo: "MTR-A",
			Amount:  decimal.Zero,
		})
		assertBusinessCode(t, err, customError.ErrCodeInvalidAmount)
	})
}

func TestPeerTransfer(t *testing.T) {
	t.Run("moves units atomically", func(t *testing.T) {
		f := newTransferFixture(t)
		f.uow.ExpectWithin()
		f.meters.On("LockByMeterNos", mock.Anything, mock.Anything, "MTR-A", "MTR-B").Return(activePair(), nil)
		f.meters.On("UpdateUnits", mock.Anything, mock.Anything, "MTR-A", decimal.NewFromInt(70)).Return(nil)
		f.meters.On("UpdateUnits", mock.Anything, mock.Anything, "MTR-B", decimal.NewFromInt(35)).Return(nil)

		var txn *domain.UnitTransaction
		f.transactions.On("Create", mock.Anything, mock.Anything, mock.AnythingOfType("*domain.UnitTransaction")).
			Run(func(args mock.Arguments) {
				txn = args.Get(2).(*domain.UnitTransaction)
			}).Return(nil)
		f.publisher.On("Publish", mock.Anything, mock.AnythingOfType("*events.UnitsTransferred")).Return(nil)

		result, err := f.svc.PeerTransfer(context.Background(), &domain.PeerTransferRequest{
			SenderMeterNo:   "MTR-A",
			ReceiverMeterNo: "MTR-B",
			Units:           decimal.NewFromInt(30),
		})
		require.NoError(t, err)

		assert.Equal(t, domain.TransactionStatusCompleted, result.Status)
		assert.True(t, result.Units.Equal(decimal.NewFromInt(30)))

		require.NotNil(t, txn)
		assert.Equal(t, "MTR-A", txn.SenderMeter)
		assert.Equal(t, "MTR-B", txn.ReceiverMeter)
		assert.Len(t, txn.TransactionID, 16)
	})

	t.Run("credit failure aborts the transaction", func(t *testing.T) {
		f := newTransferFixture(t)
		f.uow.ExpectWithin()
		f.meters.On("LockByMeterNos", mock.Anything, mock.Anything, "MTR-A", "MTR-B").Return(activePair(), nil)
		f.meters.On("UpdateUnits", mock.Anything, mock.Anything, "MTR-A", mock.Anything).Return(nil)
		f.meters.On("UpdateUnits", mock.Anything, mock.Anything, "MTR-B", mock.Anything).
			Return(errors.New("connection reset"))

		_, err := f.svc.PeerTransfer(context.Background(), &domain.PeerTransferRequest{
			SenderMeterNo:   "MTR-A",
			ReceiverMeterNo: "MTR-B",
			Units:           decimal.NewFromInt(30),
		})
		assertBusinessCode(t, err, customError.ErrCodeDatabaseError)
		f.transactions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
		f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})

	t.Run("insufficient balance", func(t *testing.T) {
		f := newTransferFixture(t)
		f.uow.ExpectWithin()
		f.meters.On("LockByMeterNos", mock.Anything, mock.Anything, "MTR-A", "MTR-B").Return(activePair(), nil)

		_, err := f.svc.PeerTransfer(context.Background(), &domain.PeerTransferRequest{
			SenderMeterNo:   "MTR-A",
			ReceiverMeterNo: "MTR-B",
			Units:           decimal.NewFromInt(101),
		})
		assertBusinessCode(t, err, customError.ErrCodeInsufficientBalance)
		f.meters.AssertNotCalled(t, "UpdateUnits", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("inactive receiver refused", func(t *testing.T) {
		f := newTransferFixture(t)
		f.uow.ExpectWithin()
		pair := activePair()
		pair["MTR-B"].IsActive = false
		f.meters.On("LockByMeterNos", mock.Anything, mock.Anything, "MTR-A", "MTR-B").Return(pair, nil)

		_, err := f.svc.PeerTransfer(context.Background(), &domain.PeerTransferRequest{
			SenderMeterNo:   "MTR-A",
			ReceiverMeterNo: "MTR-B",
			Units:           decimal.NewFromInt(10),
		})
		assertBusinessCode(t, err, customError.ErrCodeMeterInactive)
	})

	t.Run("unknown receiver", func(t *testing.T) {
		f := newTransferFixture(t)
		f.uow.ExpectWithin()
		pair := activePair()
		delete(pair, "MTR-B")
		f.meters.On("LockByMeterNos", mock.Anything, mock.Anything, "MTR-A", "MTR-B").Return(pair, nil)

		_, err := f.svc.PeerTransfer(context.Background(), &domain.PeerTransferRequest{
			SenderMeterNo:   "MTR-A",
			ReceiverMeterNo: "MTR-B",
			Units:           decimal.NewFromInt(10),
		})
		assertBusinessCode(t, err, customError.ErrCodeMeterNotFound)
	})

	t.Run("self transfer refused", func(t *testing.T) {
		f := newTransferFixture(t)
		_, err := f.svc.PeerTransfer(context.Background(), &domain.PeerTransferRequest{
			SenderMeterNo:   "MTR-A",
			ReceiverMeterNo: "MTR-A",
			Units:           decimal.NewFromInt(10),
		})
		assertBusinessCode(t, err, customError.ErrCodeValidation)
	})

	t.Run("non-positive units refused", func(t *testing.T) {
		f := newTransferFixture(t)
		_, err := f.svc.PeerTransfer(context.Background(), &domain.PeerTransferRequest{
			SenderMeterNo:   "MTR-A",
			ReceiverMeterNo: "MTR-B",
			Units:           decimal.Zero,
		})
		assertBusinessCode(t, err, customError.ErrCodeInvalidAmount)
	})
}

func TestDeactivateAndMigrate(t *testing.T) {
	t.Run("moves full balance and flips active flags", func(t *testing.T) {
		f := newTransferFixture(t)
		f.uow.ExpectWithin()

		pair := map[string]*domain.Meter{
			"MTR-OLD": {MeterNo: "MTR-OLD", AccountID: "ACC-A", Units: decimal.NewFromInt(42), IsActive: true},
			"MTR-NEW": {MeterNo: "MTR-NEW", AccountID: "ACC-A", Units: decimal.NewFromInt(0), IsActive: false},
		}
		f.meters.On("LockByMeterNos", mock.Anything, mock.Anything, "MTR-OLD", "MTR-NEW").Return(pair, nil)
		f.meters.On("UpdateUnits", mock.Anything, mock.Anything, "MTR-OLD",
			mock.MatchedBy(func(d decimal.Decimal) bool { return d.IsZero() })).Return(nil)
		f.meters.On("UpdateUnits", mock.Anything, mock.Anything, "MTR-NEW", decimal.NewFromInt(42)).Return(nil)
		f.meters.On("SetActive", mock.Anything, mock.Anything, "MTR-OLD", false, testNow).Return(nil)
		f.meters.On("SetActive", mock.Anything, mock.Anything, "MTR-NEW", true, testNow).Return(nil)

		var token *domain.MeterToken
		f.meters.On("CreateToken", mock.Anything, mock.Anything, mock.AnythingOfType("*domain.MeterToken")).
			Run(func(args mock.Arguments) {
				token = args.Get(2).(*domain.MeterToken)
			}).Return(nil)
		f.transactions.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		result, err := f.svc.DeactivateAndMigrate(context.Background(), &domain.MigrateMeterRequest{
			OldMeterNo: "MTR-OLD",
			NewMeterNo: "MTR-NEW",
		})
		require.NoError(t, err)

		assert.True(t, result.Units.Equal(decimal.NewFromInt(42)))
		require.NotNil(t, token)
		assert.Equal(t, domain.TokenSourceTransfer, token.Source)
		assert.Equal(t, "MTR-NEW", token.MeterNo)
	})

	t.Run("empty old meter skips the token", func(t *testing.T) {
		f := newTransferFixture(t)
		f.uow.ExpectWithin()

		pair := map[string]*domain.Meter{
			"MTR-OLD": {MeterNo: "MTR-OLD", AccountID: "ACC-A", Units: decimal.Zero, IsActive: true},
			"MTR-NEW": {MeterNo: "MTR-NEW", AccountID: "ACC-A", Units: decimal.Zero, IsActive: false},
		}
		f.meters.On("LockByMeterNos", mock.Anything, mock.Anything, "MTR-OLD", "MTR-NEW").Return(pair, nil)
		f.meters.On("UpdateUnits", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
		f.meters.On("SetActive", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
		f.transactions.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		_, err := f.svc.DeactivateAndMigrate(context.Background(), &domain.MigrateMeterRequest{
			OldMeterNo: "MTR-OLD",
			NewMeterNo: "MTR-NEW",
		})
		require.NoError(t, err)
		f.meters.AssertNotCalled(t, "CreateToken", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("already deactivated old meter refused", func(t *testing.T) {
		f := newTransferFixture(t)
		f.uow.ExpectWithin()

		pair := map[string]*domain.Meter{
			"MTR-OLD": {MeterNo: "MTR-OLD", Units: decimal.NewFromInt(42), IsActive: false},
			"MTR-NEW": {MeterNo: "MTR-NEW", IsActive: false},
		}
		f.meters.On("LockByMeterNos", mock.Anything, mock.Anything, "MTR-OLD", "MTR-NEW").Return(pair, nil)

		_, err := f.svc.DeactivateAndMigrate(context.Background(), &domain.MigrateMeterRequest{
			OldMeterNo: "MTR-OLD",
			NewMeterNo: "MTR-NEW",
		})
		assertBusinessCode(t, err, customError.ErrCodeMeterInactive)
	})
}
