package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/ankunda/credit-engine/internal/config"
	"github.com/ankunda/credit-engine/internal/domain"
	"github.com/ankunda/credit-engine/internal/events"
	"github.com/ankunda/credit-engine/internal/ledger"
	"github.com/ankunda/credit-engine/internal/repository"
	"github.com/ankunda/credit-engine/internal/scoring"
	"github.com/ankunda/credit-engine/internal/tariff"
	customError "github.com/ankunda/credit-engine/pkg/errors"
	"github.com/ankunda/credit-engine/pkg/utils"
)

const (
	tariffsCacheKey = "tariffs:active"
	tariffsCacheTTL = 24 * time.Hour
)

// PaymentScheduler arms a deferred confirmation for a pending mobile-money
// repayment, keyed by its payment reference.
type PaymentScheduler interface {
	Schedule(reference string)
}

// LoanService drives the loan lifecycle: scoring at application time,
// disbursement into meter units, and the repayment ledger. Every coupled
// ledger/meter mutation runs inside the unit of work with row locks taken
// loan-first, meter-second.
type LoanService struct {
	db           repository.DBTX
	uow          repository.UnitOfWork
	loans        repository.LoanRepository
	meters       repository.MeterRepository
	tariffs      repository.TariffRepository
	transactions repository.TransactionRepository
	scorer       scoring.Scorer
	converter    *tariff.Converter
	ledger       *ledger.Ledger
	publisher    events.Publisher
	redis        *redis.Client
	config       *config.Config
	scheduler    PaymentScheduler
	now          func() time.Time
}

func NewLoanService(
	db repository.DBTX,
	uow repository.UnitOfWork,
	loans repository.LoanRepository,
	meters repository.MeterRepository,
	tariffs repository.TariffRepository,
	transactions repository.TransactionRepository,
	scorer scoring.Scorer,
	converter *tariff.Converter,
	ldg *ledger.Ledger,
	publisher events.Publisher,
	redisClient *redis.Client,
	cfg *config.Config,
) *LoanService {
	return &LoanService{
		db:           db,
		uow:          uow,
		loans:        loans,
		meters:       meters,
		tariffs:      tariffs,
		transactions: transactions,
		scorer:       scorer,
		converter:    converter,
		ledger:       ldg,
		publisher:    publisher,
		redis:        redisClient,
		config:       cfg,
		now:          time.Now,
	}
}

// SetPaymentScheduler attaches the deferred mobile-money confirmer. Set
// after construction because the scheduler calls back into this service.
func (s *LoanService) SetPaymentScheduler(ps PaymentScheduler) {
	s.scheduler = ps
}

// Apply scores a loan application synchronously and persists it APPROVED or
// REJECTED. One active loan per account; the account must own a meter.
func (s *LoanService) Apply(ctx context.Context, req *domain.ApplyRequest) (*domain.ApplyResult, error) {
	if !req.AmountRequested.IsPositive() {
		return nil, customError.WrapInvalidAmount("requested amount must be positive")
	}

	tenure := req.TenureMonths
	if tenure == 0 {
		tenure = s.config.Business.DefaultTenureMonths
	}

	var result *domain.ApplyResult
	err := s.uow.Within(ctx, func(q repository.DBTX) error {
		active, err := s.loans.HasActiveLoan(ctx, q, req.AccountID)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}
		if active {
			return customError.WrapActiveLoanExists(req.AccountID)
		}

		if _, err := s.meters.GetByAccountID(ctx, q, req.AccountID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return customError.WrapMeterNotFound(req.AccountID)
			}
			return customError.WrapDatabaseError(err)
		}

		trf, err := s.defaultTariff(ctx, q)
		if err != nil {
			return err
		}

		score := s.scorer.Score(req.Answers, req.AmountRequested)
		tier := scoring.DetermineTier(score)

		n := s.now()
		loan := &domain.LoanApplication{
			ID:              uuid.New(),
			LoanID:          utils.GenerateLoanID(),
			AccountID:       req.AccountID,
			Purpose:         req.Purpose,
			AmountRequested: req.AmountRequested,
			TenureMonths:    tenure,
			InterestRate:    decimal.NewFromFloat(10.0),
			CreditScore:     &score,
			CreatedAt:       n,
			UpdatedAt:       n,
		}
		if trf != nil {
			loan.TariffID = &trf.ID
		}

		result = &domain.ApplyResult{
			CreditScore:     score,
			AmountRequested: req.AmountRequested,
		}
		if trf != nil {
			result.TariffApplied = trf.TariffCode
		}

		if tier != nil {
			approved := scoring.ApprovedAmount(tier.MaxAmount, req.AmountRequested)
			tierName := tier.Name
			loan.AmountApproved = &approved
			loan.LoanTier = &tierName
			loan.InterestRate = tier.InterestRate
			loan.Status = domain.LoanStatusApproved

			units, err := s.converter.AmountToUnits(trf, approved)
			if err != nil {
				return err
			}
			breakdown, err := s.converter.CostBreakdown(trf, approved)
			if err != nil {
				return err
			}
			result.AmountApproved = approved
			result.LoanTier = tierName
			result.MaxEligibleAmount = tier.MaxAmount
			result.InterestRate = tier.InterestRate
			result.UnitsCalculated = units.Round(0)
			result.CostBreakdown = breakdown
		} else {
			reason := "Credit score below 75% threshold"
			loan.Status = domain.LoanStatusRejected
			loan.RejectionReason = &reason
			result.RejectionReason = reason
		}
		result.Status = loan.Status

		if err := s.loans.Create(ctx, q, loan); err != nil {
			return customError.WrapDatabaseError(err)
		}
		result.LoanID = loan.LoanID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Disburse converts the approved amount into whole meter units, credits the
// meter and issues a 30-day redemption token, all in one transaction.
func (s *LoanService) Disburse(ctx context.Context, loanID string) (*domain.DisbursementResult, error) {
	var result *domain.DisbursementResult
	var disbursed *events.LoanDisbursed

	err := s.uow.Within(ctx, func(q repository.DBTX) error {
		loan, err := s.lockLoan(ctx, q, loanID)
		if err != nil {
			return err
		}
		existing, err := s.getDisbursement(ctx, q, loanID)
		if err != nil {
			return err
		}
		if err := s.ledger.CanDisburse(loan, existing); err != nil {
			return err
		}

		trf, err := s.loanTariff(ctx, q, loan)
		if err != nil {
			return err
		}

		units, err := s.converter.AmountToUnits(trf, *loan.AmountApproved)
		if err != nil {
			return err
		}
		headline := units.Round(0)
		breakdown, err := s.converter.CostBreakdown(trf, *loan.AmountApproved)
		if err != nil {
			return err
		}

		meter, err := s.lockMeter(ctx, q, loan.AccountID)
		if err != nil {
			return err
		}

		n := s.now()
		disbursement := &domain.LoanDisbursement{
			ID:               uuid.New(),
			LoanID:           loan.LoanID,
			DisbursedAmount:  *loan.AmountApproved,
			UnitsDisbursed:   headline,
			Token:            utils.GenerateToken(),
			TokenExpiry:      n.AddDate(0, 0, s.config.Business.TokenExpiryDays),
			MeterNo:          meter.MeterNo,
			DisbursementDate: n,
		}
		if err := s.loans.CreateDisbursement(ctx, q, disbursement); err != nil {
			return customError.WrapDatabaseError(err)
		}

		loanRef := loan.LoanID
		if err := s.meters.CreateToken(ctx, q, &domain.MeterToken{
			ID:        uuid.New(),
			Token:     disbursement.Token,
			MeterNo:   meter.MeterNo,
			AccountID: loan.AccountID,
			Units:     headline,
			Source:    domain.TokenSourceLoan,
			LoanID:    &loanRef,
			ExpiresAt: disbursement.TokenExpiry,
			CreatedAt: n,
		}); err != nil {
			return customError.WrapDatabaseError(err)
		}

		if err := s.meters.UpdateUnits(ctx, q, meter.MeterNo, meter.Units.Add(headline)); err != nil {
			return customError.WrapDatabaseError(err)
		}
		if err := s.loans.UpdateStatus(ctx, q, loan.LoanID, domain.LoanStatusDisbursed); err != nil {
			return customError.WrapDatabaseError(err)
		}
		if err := s.transactions.Create(ctx, q, &domain.UnitTransaction{
			ID:            uuid.New(),
			TransactionID: utils.GenerateTransactionID(),
			SenderMeter:   meter.MeterNo,
			ReceiverMeter: meter.MeterNo,
			Units:         headline,
			Direction:     domain.DirectionIn,
			Status:        domain.TransactionStatusCompleted,
			Message:       "Loan disbursement - " + loan.LoanID,
			CreatedAt:     n,
		}); err != nil {
			return customError.WrapDatabaseError(err)
		}

		tariffCode := "DEFAULT"
		if trf != nil {
			tariffCode = trf.TariffCode
		}
		result = &domain.DisbursementResult{
			LoanID:        loan.LoanID,
			Token:         disbursement.Token,
			TokenExpiry:   disbursement.TokenExpiry,
			UnitsAdded:    headline,
			TariffCode:    tariffCode,
			CostBreakdown: breakdown,
		}
		disbursed = &events.LoanDisbursed{
			LoanID:      loan.LoanID,
			AccountID:   loan.AccountID,
			MeterNo:     meter.MeterNo,
			Amount:      *loan.AmountApproved,
			Units:       headline,
			Token:       disbursement.Token,
			TokenExpiry: disbursement.TokenExpiry,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, disbursed)
	return result, nil
}

// Repay records a repayment against a disbursed loan. Cash and bank
// transfers settle immediately and credit the meter; mobile money is
// recorded PENDING and confirmed later through ConfirmMobilePayment.
func (s *LoanService) Repay(ctx context.Context, loanID string, req *domain.RepayRequest) (*domain.RepaymentResult, error) {
	if !req.Amount.IsPositive() {
		return nil, customError.WrapInvalidAmount("repayment amount must be positive")
	}
	method := req.PaymentMethod
	if method == "" {
		method = domain.PaymentMethodCash
	}

	var result *domain.RepaymentResult
	var toPublish []events.Event

	err := s.uow.Within(ctx, func(q repository.DBTX) error {
		loan, err := s.lockLoan(ctx, q, loanID)
		if err != nil {
			return err
		}
		disbursement, err := s.getDisbursement(ctx, q, loanID)
		if err != nil {
			return err
		}
		repayments, err := s.loans.GetRepayments(ctx, q, loanID)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}

		n := s.now()
		if err := s.ledger.ValidateRepayment(loan, disbursement, repayments, req.Amount, n); err != nil {
			return err
		}

		trf, err := s.loanTariff(ctx, q, loan)
		if err != nil {
			return err
		}
		units, err := s.converter.AmountToUnits(trf, req.Amount)
		if err != nil {
			return err
		}
		headline := units.Round(0)

		repayment := &domain.LoanRepayment{
			ID:               uuid.New(),
			LoanID:           loan.LoanID,
			AmountPaid:       req.Amount,
			UnitsPaid:        headline,
			PaymentReference: utils.GeneratePaymentReference(),
			PaymentMethod:    method,
			PaymentStatus:    domain.PaymentStatusSuccess,
			IsOnTime:         ledger.IsOnTime(loan, disbursement, n),
			PaymentDate:      n,
			CreatedAt:        n,
		}
		if method == domain.PaymentMethodMobileMoney {
			repayment.PaymentStatus = domain.PaymentStatusPending
		}
		if err := s.loans.CreateRepayment(ctx, q, repayment); err != nil {
			return customError.WrapDatabaseError(err)
		}

		result = &domain.RepaymentResult{
			LoanID:           loan.LoanID,
			PaymentReference: repayment.PaymentReference,
			PaymentStatus:    repayment.PaymentStatus,
			LoanStatus:       loan.Status,
		}

		repayments = append(repayments, repayment)
		if repayment.PaymentStatus != domain.PaymentStatusSuccess {
			// Units are credited once the payment confirms.
			result.OutstandingBalance = s.ledger.OutstandingBalance(loan, disbursement, repayments, n)
			return nil
		}

		outstanding, evts, err := s.creditRepayment(ctx, q, loan, disbursement, repayments, repayment, n)
		if err != nil {
			return err
		}
		result.UnitsAdded = headline
		result.OutstandingBalance = outstanding
		if ledger.IsSettled(outstanding) {
			result.LoanStatus = domain.LoanStatusCompleted
		}
		toPublish = evts
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, evt := range toPublish {
		s.publish(ctx, evt)
	}
	if result.PaymentStatus == domain.PaymentStatusPending && s.scheduler != nil {
		s.scheduler.Schedule(result.PaymentReference)
	}
	return result, nil
}

// ConfirmMobilePayment applies a confirmed mobile-money repayment. It is
// idempotent: the repayment row is re-read under lock and anything other
// than PENDING is a no-op, so the simulator, the recovery sweep and a
// racing user confirmation cannot double-credit.
func (s *LoanService) ConfirmMobilePayment(ctx context.Context, reference string) error {
	var toPublish []events.Event

	err := s.uow.Within(ctx, func(q repository.DBTX) error {
		repayment, err := s.loans.LockRepaymentByReference(ctx, q, reference)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return customError.WrapValidation("unknown payment reference")
			}
			return customError.WrapDatabaseError(err)
		}
		if repayment.PaymentStatus != domain.PaymentStatusPending {
			return nil
		}

		loan, err := s.lockLoan(ctx, q, repayment.LoanID)
		if err != nil {
			return err
		}
		disbursement, err := s.getDisbursement(ctx, q, loan.LoanID)
		if err != nil {
			return err
		}
		repayments, err := s.loans.GetRepayments(ctx, q, loan.LoanID)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}

		n := s.now()
		outstanding := s.ledger.OutstandingBalance(loan, disbursement, repayments, n)
		if repayment.AmountPaid.GreaterThan(outstanding) {
			// The balance shrank while this payment was pending, e.g. it was
			// settled in cash. Void the payment rather than overcharge.
			if err := s.loans.UpdateRepaymentStatus(ctx, q, reference, domain.PaymentStatusCancelled); err != nil {
				return customError.WrapDatabaseError(err)
			}
			log.Printf("cancelled pending repayment %s: amount exceeds outstanding balance", reference)
			return nil
		}

		if err := s.loans.UpdateRepaymentStatus(ctx, q, reference, domain.PaymentStatusSuccess); err != nil {
			return customError.WrapDatabaseError(err)
		}
		for _, r := range repayments {
			if r.PaymentReference == reference {
				r.PaymentStatus = domain.PaymentStatusSuccess
				repayment = r
			}
		}

		_, evts, err := s.creditRepayment(ctx, q, loan, disbursement, repayments, repayment, n)
		if err != nil {
			return err
		}
		toPublish = evts
		return nil
	})
	if err != nil {
		return err
	}

	for _, evt := range toPublish {
		s.publish(ctx, evt)
	}
	return nil
}

// CancelMobilePayment voids a still-pending repayment, e.g. when the
// gateway reports a failure or the user backs out. A payment that already
// confirmed cannot be voided.
func (s *LoanService) CancelMobilePayment(ctx context.Context, reference string) error {
	return s.uow.Within(ctx, func(q repository.DBTX) error {
		repayment, err := s.loans.LockRepaymentByReference(ctx, q, reference)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return customError.WrapValidation("unknown payment reference")
			}
			return customError.WrapDatabaseError(err)
		}
		if repayment.PaymentStatus != domain.PaymentStatusPending {
			return customError.WrapRepaymentNotPending(reference)
		}
		if err := s.loans.UpdateRepaymentStatus(ctx, q, reference, domain.PaymentStatusCancelled); err != nil {
			return customError.WrapDatabaseError(err)
		}
		return nil
	})
}

// creditRepayment applies the successful-repayment side effects under the
// locks already held: meter credit, transaction log, completion check.
func (s *LoanService) creditRepayment(
	ctx context.Context,
	q repository.DBTX,
	loan *domain.LoanApplication,
	disbursement *domain.LoanDisbursement,
	repayments []*domain.LoanRepayment,
	repayment *domain.LoanRepayment,
	n time.Time,
) (decimal.Decimal, []events.Event, error) {
	meter, err := s.lockMeter(ctx, q, loan.AccountID)
	if err != nil {
		return decimal.Zero, nil, err
	}
	if err := s.meters.UpdateUnits(ctx, q, meter.MeterNo, meter.Units.Add(repayment.UnitsPaid)); err != nil {
		return decimal.Zero, nil, customError.WrapDatabaseError(err)
	}
	if err := s.transactions.Create(ctx, q, &domain.UnitTransaction{
		ID:            uuid.New(),
		TransactionID: utils.GenerateTransactionID(),
		SenderMeter:   meter.MeterNo,
		ReceiverMeter: meter.MeterNo,
		Units:         repayment.UnitsPaid,
		Direction:     domain.DirectionIn,
		Status:        domain.TransactionStatusCompleted,
		Message:       "Loan repayment - " + loan.LoanID,
		CreatedAt:     n,
	}); err != nil {
		return decimal.Zero, nil, customError.WrapDatabaseError(err)
	}

	outstanding := s.ledger.OutstandingBalance(loan, disbursement, repayments, n)
	evts := []events.Event{&events.RepaymentRecorded{
		LoanID:           loan.LoanID,
		AccountID:        loan.AccountID,
		PaymentReference: repayment.PaymentReference,
		Amount:           repayment.AmountPaid,
		Units:            repayment.UnitsPaid,
		Outstanding:      outstanding,
	}}

	if ledger.IsSettled(outstanding) && loan.Status == domain.LoanStatusDisbursed {
		if err := s.loans.UpdateStatus(ctx, q, loan.LoanID, domain.LoanStatusCompleted); err != nil {
			return decimal.Zero, nil, customError.WrapDatabaseError(err)
		}
		loan.Status = domain.LoanStatusCompleted
		evts = append(evts, &events.LoanCompleted{LoanID: loan.LoanID, AccountID: loan.AccountID})
	}
	return outstanding, evts, nil
}

// GetOutstanding returns the loan's balance breakdown at call time.
func (s *LoanService) GetOutstanding(ctx context.Context, loanID string) (*domain.OutstandingResult, error) {
	loan, err := s.loans.GetByLoanID(ctx, s.db, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapLoanNotFound(loanID)
		}
		return nil, customError.WrapDatabaseError(err)
	}
	disbursement, err := s.getDisbursement(ctx, s.db, loanID)
	if err != nil {
		return nil, err
	}
	repayments, err := s.loans.GetRepayments(ctx, s.db, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	n := s.now()
	result := &domain.OutstandingResult{
		LoanID:             loan.LoanID,
		TotalAmountDue:     s.ledger.TotalAmountDue(loan),
		LatePenalty:        s.ledger.LatePenalty(loan, disbursement, n),
		AmountPaid:         s.ledger.AmountPaid(repayments),
		OutstandingBalance: s.ledger.OutstandingBalance(loan, disbursement, repayments, n),
	}
	if disbursement != nil {
		due := ledger.DueDate(disbursement, loan.TenureMonths)
		result.DueDate = &due
	}
	return result, nil
}

// GetTariffs lists active tariffs with blocks, cached in redis for a day.
func (s *LoanService) GetTariffs(ctx context.Context) ([]*domain.Tariff, error) {
	if s.redis != nil {
		cached, err := s.redis.Get(ctx, tariffsCacheKey).Bytes()
		switch {
		case err == nil:
			var tariffs []*domain.Tariff
			if err := json.Unmarshal(cached, &tariffs); err == nil {
				return tariffs, nil
			}
		case !errors.Is(err, redis.Nil):
			log.Printf("%v", customError.WrapCacheError(err))
		}
	}

	tariffs, err := s.tariffs.ListActive(ctx, s.db)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	if s.redis != nil {
		if body, err := json.Marshal(tariffs); err == nil {
			if err := s.redis.Set(ctx, tariffsCacheKey, body, tariffsCacheTTL).Err(); err != nil {
				log.Printf("%v", customError.WrapCacheError(err))
			}
		}
	}
	return tariffs, nil
}

// GetLoanStats aggregates an account's loan portfolio.
func (s *LoanService) GetLoanStats(ctx context.Context, accountID string) (*domain.LoanStatsResult, error) {
	loans, err := s.loans.ListByAccount(ctx, s.db, accountID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	n := s.now()
	stats := &domain.LoanStatsResult{TotalLoans: len(loans)}
	for _, loan := range loans {
		switch loan.Status {
		case domain.LoanStatusDisbursed:
			stats.ActiveLoans++
		case domain.LoanStatusPending:
			stats.PendingApplications++
		case domain.LoanStatusApproved:
			stats.ApprovedLoans++
		}

		repayments, err := s.loans.GetRepayments(ctx, s.db, loan.LoanID)
		if err != nil {
			return nil, customError.WrapDatabaseError(err)
		}
		stats.TotalRepayments = stats.TotalRepayments.Add(s.ledger.AmountPaid(repayments))

		if loan.AmountApproved != nil {
			switch loan.Status {
			case domain.LoanStatusApproved, domain.LoanStatusDisbursed, domain.LoanStatusCompleted:
				stats.TotalBorrowed = stats.TotalBorrowed.Add(*loan.AmountApproved)
			}
		}

		if loan.Status == domain.LoanStatusDisbursed {
			disbursement, err := s.getDisbursement(ctx, s.db, loan.LoanID)
			if err != nil {
				return nil, err
			}
			stats.OutstandingBalance = stats.OutstandingBalance.
				Add(s.ledger.OutstandingBalance(loan, disbursement, repayments, n))
		}
	}
	return stats, nil
}

// MarkDefaults flags disbursed loans as DEFAULTED once the due date plus the
// grace period has passed with a balance still outstanding. Run daily by the
// scheduler; this is the only path into the DEFAULTED state.
func (s *LoanService) MarkDefaults(ctx context.Context) (int, error) {
	loans, err := s.loans.ListByStatus(ctx, s.db, domain.LoanStatusDisbursed)
	if err != nil {
		return 0, customError.WrapDatabaseError(err)
	}

	defaulted := 0
	grace := s.config.Business.DefaultGraceDays
	for _, candidate := range loans {
		var evt *events.LoanDefaulted
		err := s.uow.Within(ctx, func(q repository.DBTX) error {
			loan, err := s.lockLoan(ctx, q, candidate.LoanID)
			if err != nil {
				return err
			}
			if loan.Status != domain.LoanStatusDisbursed {
				return nil
			}
			disbursement, err := s.getDisbursement(ctx, q, loan.LoanID)
			if err != nil {
				return err
			}
			if disbursement == nil {
				return nil
			}

			n := s.now()
			deadline := ledger.DueDate(disbursement, loan.TenureMonths).AddDate(0, 0, grace)
			if !n.After(deadline) {
				return nil
			}

			repayments, err := s.loans.GetRepayments(ctx, q, loan.LoanID)
			if err != nil {
				return customError.WrapDatabaseError(err)
			}
			outstanding := s.ledger.OutstandingBalance(loan, disbursement, repayments, n)
			if ledger.IsSettled(outstanding) {
				return nil
			}

			if err := s.loans.UpdateStatus(ctx, q, loan.LoanID, domain.LoanStatusDefaulted); err != nil {
				return customError.WrapDatabaseError(err)
			}
			evt = &events.LoanDefaulted{
				LoanID:      loan.LoanID,
				AccountID:   loan.AccountID,
				Outstanding: outstanding,
			}
			return nil
		})
		if err != nil {
			return defaulted, err
		}
		if evt != nil {
			defaulted++
			s.publish(ctx, evt)
		}
	}
	return defaulted, nil
}

// SweepPendingPayments confirms mobile-money repayments that were left
// PENDING past the simulator delay, e.g. after a crash. The confirm path is
// idempotent so re-processing a reference is harmless.
func (s *LoanService) SweepPendingPayments(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.config.Business.SandboxPaymentDelay)
	pending, err := s.loans.ListPendingRepaymentsBefore(ctx, s.db, cutoff)
	if err != nil {
		return 0, customError.WrapDatabaseError(err)
	}

	confirmed := 0
	for _, repayment := range pending {
		if err := s.ConfirmMobilePayment(ctx, repayment.PaymentReference); err != nil {
			return confirmed, err
		}
		confirmed++
	}
	return confirmed, nil
}

func (s *LoanService) lockLoan(ctx context.Context, q repository.DBTX, loanID string) (*domain.LoanApplication, error) {
	loan, err := s.loans.LockByLoanID(ctx, q, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapLoanNotFound(loanID)
		}
		return nil, customError.WrapDatabaseError(err)
	}
	return loan, nil
}

func (s *LoanService) lockMeter(ctx context.Context, q repository.DBTX, accountID string) (*domain.Meter, error) {
	meter, err := s.meters.LockByAccountID(ctx, q, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapMeterNotFound(accountID)
		}
		return nil, customError.WrapDatabaseError(err)
	}
	return meter, nil
}

// getDisbursement returns nil without error when the loan has none yet.
func (s *LoanService) getDisbursement(ctx context.Context, q repository.DBTX, loanID string) (*domain.LoanDisbursement, error) {
	disbursement, err := s.loans.GetDisbursement(ctx, q, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, customError.WrapDatabaseError(err)
	}
	return disbursement, nil
}

func (s *LoanService) loanTariff(ctx context.Context, q repository.DBTX, loan *domain.LoanApplication) (*domain.Tariff, error) {
	if loan.TariffID == nil {
		return nil, nil
	}
	trf, err := s.tariffs.GetByID(ctx, q, *loan.TariffID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, customError.WrapDatabaseError(err)
	}
	return trf, nil
}

func (s *LoanService) defaultTariff(ctx context.Context, q repository.DBTX) (*domain.Tariff, error) {
	trf, err := s.tariffs.GetByCode(ctx, q, s.config.Business.DefaultTariffCode)
	if err == nil && trf.IsActive {
		return trf, nil
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapDatabaseError(err)
	}
	trf, err = s.tariffs.FirstActive(ctx, q)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return trf, nil
}

func (s *LoanService) publish(ctx context.Context, evt events.Event) {
	if evt == nil || s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		log.Printf("event publish failed for %s: %v", evt.Name(), err)
	}
}
