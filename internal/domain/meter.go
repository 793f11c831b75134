package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TokenSourcePurchase = "PURCHASE"
	TokenSourceLoan     = "LOAN"
	TokenSourceTransfer = "TRANSFER"
)

const (
	DirectionIn  = "IN"
	DirectionOut = "OUT"
)

const (
	TransactionStatusPending   = "PENDING"
	TransactionStatusCompleted = "COMPLETED"
	TransactionStatusFailed    = "FAILED"
)

// Meter holds a prepaid unit balance. The balance is mutated only through
// the transfer service's locked paths and never goes negative.
type Meter struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	MeterNo       string          `json:"meter_no" db:"meter_no"`
	AccountID     string          `json:"account_id" db:"account_id"`
	Units         decimal.Decimal `json:"units" db:"units"`
	IsActive      bool            `json:"is_active" db:"is_active"`
	DeactivatedAt *time.Time      `json:"deactivated_at" db:"deactivated_at"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// MeterToken is a redemption code for a fixed unit quantity.
type MeterToken struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	Token     string          `json:"token" db:"token"`
	MeterNo   string          `json:"meter_no" db:"meter_no"`
	AccountID string          `json:"account_id" db:"account_id"`
	Units     decimal.Decimal `json:"units" db:"units"`
	Source    string          `json:"source" db:"source"`
	LoanID    *string         `json:"loan_id" db:"loan_id"`
	IsUsed    bool            `json:"is_used" db:"is_used"`
	ExpiresAt time.Time       `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// UnitTransaction is the ledger row written for every unit movement.
type UnitTransaction struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	TransactionID string          `json:"transaction_id" db:"transaction_id"`
	SenderMeter   string          `json:"sender_meter" db:"sender_meter"`
	ReceiverMeter string          `json:"receiver_meter" db:"receiver_meter"`
	Units         decimal.Decimal `json:"units" db:"units"`
	Direction     string          `json:"direction" db:"direction"`
	Status        string          `json:"status" db:"status"`
	Message       string          `json:"message" db:"message"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

type PurchaseUnitsRequest struct {
	MeterNo     string          `json:"meter_no" validate:"required"`
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	PhoneNumber string          `json:"phone_number"`
}

type PurchaseResult struct {
	MeterNo       string                `json:"meter_no"`
	UnitsAdded    decimal.Decimal       `json:"units_added"`
	Token         string                `json:"token"`
	TokenExpiry   time.Time             `json:"token_expiry"`
	TariffCode    string                `json:"tariff_code"`
	CostBreakdown []*CostBreakdownEntry `json:"cost_breakdown,omitempty"`
}

type PeerTransferRequest struct {
	SenderMeterNo   string          `json:"sender_meter_no" validate:"required"`
	ReceiverMeterNo string          `json:"receiver_meter_no" validate:"required"`
	Units           decimal.Decimal `json:"units" validate:"required"`
	Message         string          `json:"message"`
}

type MigrateMeterRequest struct {
	OldMeterNo string `json:"old_meter_no" validate:"required"`
	NewMeterNo string `json:"new_meter_no" validate:"required"`
}

type TransferResult struct {
	TransactionID   string          `json:"transaction_id"`
	SenderMeterNo   string          `json:"sender_meter_no"`
	ReceiverMeterNo string          `json:"receiver_meter_no"`
	Units           decimal.Decimal `json:"units"`
	Status          string          `json:"status"`
}
