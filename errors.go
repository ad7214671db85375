package tollgate

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios. Every precondition failure
// is detected before any mutation, so a returned error always means the
// operation had no effect.
var (
	// General errors
	ErrNotFound      = errors.New("tollgate: not found")
	ErrAlreadyExists = errors.New("tollgate: already exists")
	ErrInvalidInput  = errors.New("tollgate: invalid input")
	ErrUnauthorized  = errors.New("tollgate: unauthorized")
	ErrPaused        = errors.New("tollgate: operation paused")

	// Instrument errors
	ErrInstrumentNotFound = errors.New("tollgate: instrument not found")
	ErrInstrumentPaused   = errors.New("tollgate: instrument is paused")
	ErrInstrumentActive   = errors.New("tollgate: instrument is not paused")
	ErrSupplyExceeded     = errors.New("tollgate: max supply exceeded")
	ErrThresholdOrder     = errors.New("tollgate: access threshold exceeds premium threshold")
	ErrPublicIssueClosed  = errors.New("tollgate: public issuance disabled")
	ErrInsufficientUnits  = errors.New("tollgate: insufficient entitlement balance")

	// Registry errors
	ErrResourceNotFound  = errors.New("tollgate: resource not found")
	ErrResourceExists    = errors.New("tollgate: resource already registered")
	ErrResourceInactive  = errors.New("tollgate: resource is inactive")
	ErrResourceActive    = errors.New("tollgate: resource already active")
	ErrPriceBelowFloor   = errors.New("tollgate: price below platform floor")
	ErrOwnerMismatch     = errors.New("tollgate: resource owner mismatch")
	ErrOffsetOutOfRange  = errors.New("tollgate: list offset out of range")
	ErrEmptyContentRef   = errors.New("tollgate: empty content reference")
	ErrInvalidInstrument = errors.New("tollgate: invalid instrument reference")

	// Payment errors
	ErrCurrencyNotFound     = errors.New("tollgate: unsupported currency")
	ErrCurrencyInactive     = errors.New("tollgate: currency inactive")
	ErrCurrencyReserved     = errors.New("tollgate: base currency cannot be removed")
	ErrAmountOutOfBounds    = errors.New("tollgate: amount out of currency bounds")
	ErrInsufficientBalance  = errors.New("tollgate: insufficient custodial balance")
	ErrPaymentNotFound      = errors.New("tollgate: payment not found")
	ErrFeeAboveCeiling      = errors.New("tollgate: fee exceeds ceiling")
	ErrLedgerPaused         = errors.New("tollgate: payment ledger is paused")
	ErrNoFeeRecipient       = errors.New("tollgate: fee recipient not configured")
	ErrInvalidCapability    = errors.New("tollgate: unknown capability")
	ErrNothingToWithdraw    = errors.New("tollgate: nothing to withdraw")
	ErrSelfSettlement       = errors.New("tollgate: payer and payee are the same account")
	ErrZeroAmount           = errors.New("tollgate: amount must be positive")
	ErrEmptyAccount         = errors.New("tollgate: empty account identity")

	// Store errors
	ErrStoreNotReady     = errors.New("tollgate: store not ready")
	ErrStoreClosed       = errors.New("tollgate: store is closed")
	ErrTransactionFailed = errors.New("tollgate: transaction failed")
	ErrMigrationFailed   = errors.New("tollgate: migration failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("tollgate: validation failed for %s: %s", e.Field, e.Message)
}

func (e ValidationError) Unwrap() error { return ErrInvalidInput }

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInstrumentNotFound) ||
		errors.Is(err, ErrResourceNotFound) ||
		errors.Is(err, ErrPaymentNotFound) ||
		errors.Is(err, ErrCurrencyNotFound)
}

// IsAuthorization returns true if the error means the caller lacks a
// required capability or role.
func IsAuthorization(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrOwnerMismatch)
}

// IsValidation returns true if the error means the input was malformed or
// out of range.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrZeroAmount) ||
		errors.Is(err, ErrEmptyAccount) ||
		errors.Is(err, ErrEmptyContentRef) ||
		errors.Is(err, ErrInvalidInstrument) ||
		errors.Is(err, ErrThresholdOrder) ||
		errors.Is(err, ErrPriceBelowFloor) ||
		errors.Is(err, ErrFeeAboveCeiling) ||
		errors.Is(err, ErrAmountOutOfBounds) ||
		errors.Is(err, ErrOffsetOutOfRange) ||
		errors.Is(err, ErrInvalidCapability)
}

// IsStateConflict returns true if the error means the operation conflicts
// with current state: duplicates, inactive targets, exhausted supply or
// balances.
func IsStateConflict(err error) bool {
	return errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrResourceExists) ||
		errors.Is(err, ErrResourceInactive) ||
		errors.Is(err, ErrResourceActive) ||
		errors.Is(err, ErrSupplyExceeded) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInsufficientUnits) ||
		errors.Is(err, ErrSelfSettlement) ||
		errors.Is(err, ErrNothingToWithdraw) ||
		errors.Is(err, ErrCurrencyInactive) ||
		errors.Is(err, ErrCurrencyReserved) ||
		errors.Is(err, ErrPublicIssueClosed) ||
		errors.Is(err, ErrInstrumentActive)
}

// IsPaused returns true if the error means the operation is disabled by a
// maintenance pause. Read-only queries are never paused.
func IsPaused(err error) bool {
	return errors.Is(err, ErrPaused) ||
		errors.Is(err, ErrLedgerPaused) ||
		errors.Is(err, ErrInstrumentPaused)
}

// IsRetryable returns true if the error is temporary and the operation can
// be retried. Failed operations are side-effect-free, so retry is always
// safe for the caller.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrTransactionFailed)
}
