package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrLoanNotFound        = errors.New("loan not found")
	ErrMeterNotFound       = errors.New("meter not found")
	ErrActiveLoanExists    = errors.New("an active loan already exists")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidLoanState    = errors.New("loan is not in a valid state for this operation")
	ErrAlreadyDisbursed    = errors.New("loan already has a disbursement")
	ErrInvalidTariff       = errors.New("tariff configuration is invalid")
	ErrConcurrencyConflict = errors.New("concurrent modification detected")
	ErrRepaymentNotPending = errors.New("repayment is not pending")
	ErrMeterInactive       = errors.New("meter is not active")
)

// BusinessError carries a stable machine-readable code alongside the
// human-readable message surfaced to callers.
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeInvalidAmount       = "INVALID_AMOUNT"
	ErrCodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	ErrCodeConfiguration       = "CONFIGURATION_ERROR"
	ErrCodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	ErrCodeLoanNotFound        = "LOAN_NOT_FOUND"
	ErrCodeMeterNotFound       = "METER_NOT_FOUND"
	ErrCodeActiveLoanExists    = "ACTIVE_LOAN_EXISTS"
	ErrCodeInvalidLoanState    = "INVALID_LOAN_STATE"
	ErrCodeAlreadyDisbursed    = "ALREADY_DISBURSED"
	ErrCodeMeterInactive       = "METER_INACTIVE"
	ErrCodeDatabaseError       = "DATABASE_ERROR"
	ErrCodeCacheError          = "CACHE_ERROR"
)

// Wrap common errors with business context

func WrapValidation(message string) *BusinessError {
	return NewBusinessError(ErrCodeValidation, message, nil)
}

func WrapInvalidAmount(message string) *BusinessError {
	return NewBusinessError(ErrCodeInvalidAmount, message, ErrInvalidAmount)
}

func WrapInsufficientBalance(meterNo string) *BusinessError {
	return NewBusinessError(
		ErrCodeInsufficientBalance,
		fmt.Sprintf("Meter %s does not have enough units", meterNo),
		ErrInsufficientBalance,
	)
}

func WrapConfiguration(message string) *BusinessError {
	return NewBusinessError(ErrCodeConfiguration, message, ErrInvalidTariff)
}

func WrapConcurrencyConflict(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeConcurrencyConflict,
		"Operation conflicted with a concurrent update, retry from scratch",
		errors.Join(ErrConcurrencyConflict, err),
	)
}

func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan with ID %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapMeterNotFound(meterNo string) *BusinessError {
	return NewBusinessError(
		ErrCodeMeterNotFound,
		fmt.Sprintf("Meter %s not found", meterNo),
		ErrMeterNotFound,
	)
}

func WrapActiveLoanExists(accountID string) *BusinessError {
	return NewBusinessError(
		ErrCodeActiveLoanExists,
		fmt.Sprintf("Account %s already has an active loan", accountID),
		ErrActiveLoanExists,
	)
}

func WrapInvalidLoanState(loanID, status string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidLoanState,
		fmt.Sprintf("Loan %s is %s", loanID, status),
		ErrInvalidLoanState,
	)
}

func WrapAlreadyDisbursed(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeAlreadyDisbursed,
		fmt.Sprintf("Loan %s has already been disbursed", loanID),
		ErrAlreadyDisbursed,
	)
}

func WrapRepaymentNotPending(reference string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidLoanState,
		fmt.Sprintf("Repayment %s is not pending", reference),
		ErrRepaymentNotPending,
	)
}

func WrapMeterInactive(meterNo string) *BusinessError {
	return NewBusinessError(
		ErrCodeMeterInactive,
		fmt.Sprintf("Meter %s is deactivated", meterNo),
		ErrMeterInactive,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"Cache operation failed",
		err,
	)
}
