package service

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ankunda/credit-engine/internal/domain"
	"github.com/ankunda/credit-engine/internal/events"
	"github.com/ankunda/credit-engine/internal/repository"
	"github.com/ankunda/credit-engine/internal/tariff"
	customError "github.com/ankunda/credit-engine/pkg/errors"
	"github.com/ankunda/credit-engine/pkg/utils"
)

// TransferService moves units onto and between meters: vending purchases,
// peer transfers and meter migration. Meter rows are locked in a single
// ORDER BY id FOR UPDATE select so concurrent movements over the same pair
// cannot deadlock.
type TransferService struct {
	uow          repository.UnitOfWork
	meters       repository.MeterRepository
	tariffs      repository.TariffRepository
	transactions repository.TransactionRepository
	converter    *tariff.Converter
	publisher    events.Publisher
	now          func() time.Time
}

func NewTransferService(
	uow repository.UnitOfWork,
	meters repository.MeterRepository,
	tariffs repository.TariffRepository,
	transactions repository.TransactionRepository,
	converter *tariff.Converter,
	publisher events.Publisher,
) *TransferService {
	return &TransferService{
		uow:          uow,
		meters:       meters,
		tariffs:      tariffs,
		transactions: transactions,
		converter:    converter,
		publisher:    publisher,
		now:          time.Now,
	}
}

// PurchaseUnits converts a paid amount into units on a meter through the
// active tariff's blocks and issues a PURCHASE redemption token. Payment
// collection happens upstream; this is the vending side only.
func (s *TransferService) PurchaseUnits(ctx context.Context, req *domain.PurchaseUnitsRequest) (*domain.PurchaseResult, error) {
	if !req.Amount.IsPositive() {
		return nil, customError.WrapInvalidAmount("purchase amount must be positive")
	}

	var result *domain.PurchaseResult
	err := s.uow.Within(ctx, func(q repository.DBTX) error {
		locked, err := s.meters.LockByMeterNos(ctx, q, req.MeterNo)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}
		meter, ok := locked[req.MeterNo]
		if !ok {
			return customError.WrapMeterNotFound(req.MeterNo)
		}
		if !meter.IsActive {
			return customError.WrapMeterInactive(meter.MeterNo)
		}

		trf, err := s.activeTariff(ctx, q)
		if err != nil {
			return err
		}
		units, err := s.converter.AmountToUnits(trf, req.Amount)
		if err != nil {
			return err
		}
		breakdown, err := s.converter.CostBreakdown(trf, req.Amount)
		if err != nil {
			return err
		}

		n := s.now()
		token := &domain.MeterToken{
			ID:        uuid.New(),
			Token:     utils.GenerateToken(),
			MeterNo:   meter.MeterNo,
			AccountID: meter.AccountID,
			Units:     units,
			Source:    domain.TokenSourcePurchase,
			ExpiresAt: n.AddDate(0, 0, 30),
			CreatedAt: n,
		}
		if err := s.meters.CreateToken(ctx, q, token); err != nil {
			return customError.WrapDatabaseError(err)
		}
		if err := s.meters.UpdateUnits(ctx, q, meter.MeterNo, meter.Units.Add(units)); err != nil {
			return customError.WrapDatabaseError(err)
		}
		if err := s.transactions.Create(ctx, q, &domain.UnitTransaction{
			ID:            uuid.New(),
			TransactionID: utils.GenerateTransactionID(),
			SenderMeter:   meter.MeterNo,
			ReceiverMeter: meter.MeterNo,
			Units:         units,
			Direction:     domain.DirectionIn,
			Status:        domain.TransactionStatusCompleted,
			Message:       "Unit purchase - " + meter.MeterNo,
			CreatedAt:     n,
		}); err != nil {
			return customError.WrapDatabaseError(err)
		}

		tariffCode := "DEFAULT"
		if trf != nil {
			tariffCode = trf.TariffCode
		}
		result = &domain.PurchaseResult{
			MeterNo:       meter.MeterNo,
			UnitsAdded:    units.Round(2),
			Token:         token.Token,
			TokenExpiry:   token.ExpiresAt,
			TariffCode:    tariffCode,
			CostBreakdown: breakdown,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// activeTariff tolerates a missing tariff; conversion then falls back to
// the flat default rate.
func (s *TransferService) activeTariff(ctx context.Context, q repository.DBTX) (*domain.Tariff, error) {
	trf, err := s.tariffs.FirstActive(ctx, q)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, customError.WrapDatabaseError(err)
	}
	return trf, nil
}

// PeerTransfer atomically debits the sender and credits the receiver. Both
// meters must be active and the sender's balance must cover the amount.
func (s *TransferService) PeerTransfer(ctx context.Context, req *domain.PeerTransferRequest) (*domain.TransferResult, error) {
	if !req.Units.IsPositive() {
		return nil, customError.WrapInvalidAmount("transfer units must be positive")
	}
	if req.SenderMeterNo == req.ReceiverMeterNo {
		return nil, customError.WrapValidation("sender and receiver meters must differ")
	}

	var result *domain.TransferResult
	var transferred *events.UnitsTransferred

	err := s.uow.Within(ctx, func(q repository.DBTX) error {
		locked, err := s.meters.LockByMeterNos(ctx, q, req.SenderMeterNo, req.ReceiverMeterNo)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}
		sender, ok := locked[req.SenderMeterNo]
		if !ok {
			return customError.WrapMeterNotFound(req.SenderMeterNo)
		}
		receiver, ok := locked[req.ReceiverMeterNo]
		if !ok {
			return customError.WrapMeterNotFound(req.ReceiverMeterNo)
		}
		if !sender.IsActive {
			return customError.WrapMeterInactive(sender.MeterNo)
		}
		if !receiver.IsActive {
			return customError.WrapMeterInactive(receiver.MeterNo)
		}
		if sender.Units.LessThan(req.Units) {
			return customError.WrapInsufficientBalance(sender.MeterNo)
		}

		if err := s.meters.UpdateUnits(ctx, q, sender.MeterNo, sender.Units.Sub(req.Units)); err != nil {
			return customError.WrapDatabaseError(err)
		}
		if err := s.meters.UpdateUnits(ctx, q, receiver.MeterNo, receiver.Units.Add(req.Units)); err != nil {
			return customError.WrapDatabaseError(err)
		}

		message := req.Message
		if message == "" {
			message = "Peer unit transfer"
		}
		txn := &domain.UnitTransaction{
			ID:            uuid.New(),
			TransactionID: utils.GenerateTransactionID(),
			SenderMeter:   sender.MeterNo,
			ReceiverMeter: receiver.MeterNo,
			Units:         req.Units,
			Direction:     domain.DirectionOut,
			Status:        domain.TransactionStatusCompleted,
			Message:       message,
			CreatedAt:     s.now(),
		}
		if err := s.transactions.Create(ctx, q, txn); err != nil {
			return customError.WrapDatabaseError(err)
		}

		result = &domain.TransferResult{
			TransactionID:   txn.TransactionID,
			SenderMeterNo:   sender.MeterNo,
			ReceiverMeterNo: receiver.MeterNo,
			Units:           req.Units,
			Status:          txn.Status,
		}
		transferred = &events.UnitsTransferred{
			TransactionID:   txn.TransactionID,
			SenderMeterNo:   sender.MeterNo,
			ReceiverMeterNo: receiver.MeterNo,
			Units:           req.Units,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, transferred); err != nil {
			log.Printf("event publish failed for %s: %v", transferred.Name(), err)
		}
	}
	return result, nil
}

// DeactivateAndMigrate moves the full balance from a faulty meter onto its
// replacement, deactivates the old meter and activates the new one. The new
// meter receives a TRANSFER token for the migrated units.
func (s *TransferService) DeactivateAndMigrate(ctx context.Context, req *domain.MigrateMeterRequest) (*domain.TransferResult, error) {
	if req.OldMeterNo == req.NewMeterNo {
		return nil, customError.WrapValidation("old and new meters must differ")
	}

	var result *domain.TransferResult

	err := s.uow.Within(ctx, func(q repository.DBTX) error {
		locked, err := s.meters.LockByMeterNos(ctx, q, req.OldMeterNo, req.NewMeterNo)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}
		old, ok := locked[req.OldMeterNo]
		if !ok {
			return customError.WrapMeterNotFound(req.OldMeterNo)
		}
		replacement, ok := locked[req.NewMeterNo]
		if !ok {
			return customError.WrapMeterNotFound(req.NewMeterNo)
		}
		if !old.IsActive {
			return customError.WrapMeterInactive(old.MeterNo)
		}

		n := s.now()
		migrated := old.Units

		if err := s.meters.UpdateUnits(ctx, q, old.MeterNo, old.Units.Sub(migrated)); err != nil {
			return customError.WrapDatabaseError(err)
		}
		if err := s.meters.UpdateUnits(ctx, q, replacement.MeterNo, replacement.Units.Add(migrated)); err != nil {
			return customError.WrapDatabaseError(err)
		}
		if err := s.meters.SetActive(ctx, q, old.MeterNo, false, n); err != nil {
			return customError.WrapDatabaseError(err)
		}
		if err := s.meters.SetActive(ctx, q, replacement.MeterNo, true, n); err != nil {
			return customError.WrapDatabaseError(err)
		}

		if migrated.IsPositive() {
			if err := s.meters.CreateToken(ctx, q, &domain.MeterToken{
				ID:        uuid.New(),
				Token:     utils.GenerateToken(),
				MeterNo:   replacement.MeterNo,
				AccountID: old.AccountID,
				Units:     migrated,
				Source:    domain.TokenSourceTransfer,
				ExpiresAt: n.AddDate(0, 0, 30),
				CreatedAt: n,
			}); err != nil {
				return customError.WrapDatabaseError(err)
			}
		}

		txn := &domain.UnitTransaction{
			ID:            uuid.New(),
			TransactionID: utils.GenerateTransactionID(),
			SenderMeter:   old.MeterNo,
			ReceiverMeter: replacement.MeterNo,
			Units:         migrated,
			Direction:     domain.DirectionOut,
			Status:        domain.TransactionStatusCompleted,
			Message:       "Meter migration " + old.MeterNo + " -> " + replacement.MeterNo,
			CreatedAt:     n,
		}
		if err := s.transactions.Create(ctx, q, txn); err != nil {
			return customError.WrapDatabaseError(err)
		}

		result = &domain.TransferResult{
			TransactionID:   txn.TransactionID,
			SenderMeterNo:   old.MeterNo,
			ReceiverMeterNo: replacement.MeterNo,
			Units:           migrated,
			Status:          txn.Status,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
