package ledger

import (
	"errors"
	"fmt"
)

// Validation errors. A rejected transaction is simply not admitted; the
// caller corrects and resubmits.
var (
	ErrEmptyTransaction = errors.New("transaction has no details")
	ErrUnknownEntity    = errors.New("unknown entity")
	ErrNegativeAmount   = errors.New("amount must be a non-negative magnitude")
	ErrAmountMismatch   = errors.New("same-currency transfer legs must be equal")
	ErrCurrencyMismatch = errors.New("amount currency does not match account currency")
	ErrNotBrokerage     = errors.New("security trades must settle against a brokerage account")
	ErrZeroQuantity     = errors.New("security quantity must be non-zero")
	ErrUnknownCurrency  = errors.New("unknown currency")
)

// Log and engine errors.
var (
	ErrStorageUnavailable = errors.New("log storage unavailable")
	ErrUnknownBook        = errors.New("unknown book")
	ErrStaleSnapshot      = errors.New("snapshot is newer than the log")

	// ErrArithmeticOverflow is fatal to a single recompute attempt only;
	// the previous snapshot remains authoritative.
	ErrArithmeticOverflow = errors.New("arithmetic overflow during balance fold")
)

// ValidationError reports which detail of a transaction failed admission.
// DetailIndex is -1 for transaction-level failures.
type ValidationError struct {
	Transaction TransactionID
	DetailIndex int
	Err         error
}

func (e *ValidationError) Error() string {
	if e.DetailIndex < 0 {
		return fmt.Sprintf("transaction %s: %v", e.Transaction, e.Err)
	}
	return fmt.Sprintf("transaction %s detail %d: %v", e.Transaction, e.DetailIndex, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }
