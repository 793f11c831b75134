package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	LoanStatusPending   = "PENDING"
	LoanStatusApproved  = "APPROVED"
	LoanStatusRejected  = "REJECTED"
	LoanStatusDisbursed = "DISBURSED"
	LoanStatusCompleted = "COMPLETED"
	LoanStatusDefaulted = "DEFAULTED"
)

const (
	TierBronze   = "BRONZE"
	TierSilver   = "SILVER"
	TierGold     = "GOLD"
	TierPlatinum = "PLATINUM"
)

const (
	PaymentMethodCash         = "CASH"
	PaymentMethodMobileMoney  = "MOBILE_MONEY"
	PaymentMethodBankTransfer = "BANK_TRANSFER"
)

const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusSuccess   = "SUCCESS"
	PaymentStatusFailed    = "FAILED"
	PaymentStatusCancelled = "CANCELLED"
)

// LoanApplication is the loan aggregate root. Status moves
// PENDING -> APPROVED|REJECTED at application time, APPROVED -> DISBURSED on
// disbursement, DISBURSED -> COMPLETED once the outstanding balance is paid
// off, and DISBURSED -> DEFAULTED only via the scheduler.
type LoanApplication struct {
	ID              uuid.UUID        `json:"id" db:"id"`
	LoanID          string           `json:"loan_id" db:"loan_id"`
	AccountID       string           `json:"account_id" db:"account_id"`
	Purpose         string           `json:"purpose" db:"purpose"`
	AmountRequested decimal.Decimal  `json:"amount_requested" db:"amount_requested"`
	AmountApproved  *decimal.Decimal `json:"amount_approved" db:"amount_approved"`
	TenureMonths    int              `json:"tenure_months" db:"tenure_months"`
	InterestRate    decimal.Decimal  `json:"interest_rate" db:"interest_rate"`
	Status          string           `json:"status" db:"status"`
	CreditScore     *int             `json:"credit_score" db:"credit_score"`
	LoanTier        *string          `json:"loan_tier" db:"loan_tier"`
	TariffID        *uuid.UUID       `json:"tariff_id" db:"tariff_id"`
	RejectionReason *string          `json:"rejection_reason" db:"rejection_reason"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at" db:"updated_at"`
}

// LoanDisbursement records the one-time conversion of an approved amount
// into meter units. UnitsDisbursed is fixed at disbursement time.
type LoanDisbursement struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	LoanID           string          `json:"loan_id" db:"loan_id"`
	DisbursedAmount  decimal.Decimal `json:"disbursed_amount" db:"disbursed_amount"`
	UnitsDisbursed   decimal.Decimal `json:"units_disbursed" db:"units_disbursed"`
	Token            string          `json:"token" db:"token"`
	TokenExpiry      time.Time       `json:"token_expiry" db:"token_expiry"`
	MeterNo          string          `json:"meter_no" db:"meter_no"`
	DisbursementDate time.Time       `json:"disbursement_date" db:"disbursement_date"`
}

// LoanRepayment is an append-only ledger entry. A SUCCESS row is never
// mutated afterwards.
type LoanRepayment struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	LoanID           string          `json:"loan_id" db:"loan_id"`
	AmountPaid       decimal.Decimal `json:"amount_paid" db:"amount_paid"`
	UnitsPaid        decimal.Decimal `json:"units_paid" db:"units_paid"`
	PaymentReference string          `json:"payment_reference" db:"payment_reference"`
	PaymentMethod    string          `json:"payment_method" db:"payment_method"`
	PaymentStatus    string          `json:"payment_status" db:"payment_status"`
	IsOnTime         bool            `json:"is_on_time" db:"is_on_time"`
	PaymentDate      time.Time       `json:"payment_date" db:"payment_date"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
}

// DTOs for requests and responses

type ApplyRequest struct {
	AccountID       string            `json:"account_id" validate:"required"`
	Purpose         string            `json:"purpose" validate:"required"`
	AmountRequested decimal.Decimal   `json:"amount_requested" validate:"required"`
	TenureMonths    int               `json:"tenure_months" validate:"omitempty,gt=0"`
	Answers         map[string]string `json:"answers" validate:"required"`
}

type ApplyResult struct {
	LoanID            string                `json:"loan_id"`
	CreditScore       int                   `json:"credit_score"`
	Status            string                `json:"status"`
	AmountRequested   decimal.Decimal       `json:"amount_requested"`
	AmountApproved    decimal.Decimal       `json:"amount_approved"`
	LoanTier          string                `json:"loan_tier,omitempty"`
	MaxEligibleAmount decimal.Decimal       `json:"max_eligible_amount"`
	InterestRate      decimal.Decimal       `json:"interest_rate"`
	TariffApplied     string                `json:"tariff_applied,omitempty"`
	UnitsCalculated   decimal.Decimal       `json:"units_calculated"`
	CostBreakdown     []*CostBreakdownEntry `json:"cost_breakdown,omitempty"`
	RejectionReason   string                `json:"rejection_reason,omitempty"`
}

type DisbursementResult struct {
	LoanID        string                `json:"loan_id"`
	Token         string                `json:"token"`
	TokenExpiry   time.Time             `json:"token_expiry"`
	UnitsAdded    decimal.Decimal       `json:"units_added"`
	TariffCode    string                `json:"tariff_code"`
	CostBreakdown []*CostBreakdownEntry `json:"cost_breakdown,omitempty"`
}

type RepayRequest struct {
	Amount        decimal.Decimal `json:"amount" validate:"required"`
	PaymentMethod string          `json:"payment_method" validate:"omitempty,oneof=CASH MOBILE_MONEY BANK_TRANSFER"`
	PhoneNumber   string          `json:"phone_number" validate:"required_if=PaymentMethod MOBILE_MONEY"`
}

type RepaymentResult struct {
	LoanID             string          `json:"loan_id"`
	PaymentReference   string          `json:"payment_reference"`
	PaymentStatus      string          `json:"payment_status"`
	UnitsAdded         decimal.Decimal `json:"units_added"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
	LoanStatus         string          `json:"loan_status"`
}

type OutstandingResult struct {
	LoanID             string          `json:"loan_id"`
	TotalAmountDue     decimal.Decimal `json:"total_amount_due"`
	LatePenalty        decimal.Decimal `json:"late_penalty"`
	AmountPaid         decimal.Decimal `json:"amount_paid"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
	DueDate            *time.Time      `json:"due_date,omitempty"`
}

type LoanStatsResult struct {
	ActiveLoans         int             `json:"active_loans"`
	PendingApplications int             `json:"pending_applications"`
	ApprovedLoans       int             `json:"approved_loans"`
	TotalRepayments     decimal.Decimal `json:"total_repayments"`
	TotalBorrowed       decimal.Decimal `json:"total_borrowed"`
	OutstandingBalance  decimal.Decimal `json:"outstanding_balance"`
	TotalLoans          int             `json:"total_loans"`
}
