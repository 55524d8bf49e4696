package lendpool

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios. All domain errors are
// non-fatal and leave the ledger state unchanged: commands validate against
// the committed snapshot first and apply only on success.
var (
	// General errors
	ErrNotFound      = errors.New("lendpool: not found")
	ErrAlreadyExists = errors.New("lendpool: already exists")
	ErrInvalidInput  = errors.New("lendpool: invalid input")
	ErrUnauthorized  = errors.New("lendpool: unauthorized")

	// Membership errors
	ErrUserNotFound         = errors.New("lendpool: user not found")
	ErrDuplicateName        = errors.New("lendpool: display name already taken")
	ErrRoleCapacityExceeded = errors.New("lendpool: role capacity exceeded")

	// Capital errors
	ErrInsufficientCapital = errors.New("lendpool: insufficient available capital")

	// Loan errors
	ErrLoanNotFound        = errors.New("lendpool: loan not found")
	ErrLoanLimitExceeded   = errors.New("lendpool: principal exceeds loan limit")
	ErrDuplicateActiveLoan = errors.New("lendpool: borrower already has an active loan")
	ErrInvalidLoanState    = errors.New("lendpool: invalid loan state for operation")

	// Payment errors
	ErrExceedsBalance = errors.New("lendpool: payment exceeds remaining balance")

	// Store errors
	ErrStoreNotReady     = errors.New("lendpool: store not ready")
	ErrStoreClosed       = errors.New("lendpool: store is closed")
	ErrTransactionFailed = errors.New("lendpool: transaction failed")
	ErrMigrationFailed   = errors.New("lendpool: migration failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("lendpool: validation failed for %s: %s", e.Field, e.Message)
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrLoanNotFound)
}

// IsDomainError returns true if the error is a domain rule violation that
// should surface to the end user rather than an operator.
func IsDomainError(err error) bool {
	return errors.Is(err, ErrDuplicateName) ||
		errors.Is(err, ErrRoleCapacityExceeded) ||
		errors.Is(err, ErrInsufficientCapital) ||
		errors.Is(err, ErrLoanLimitExceeded) ||
		errors.Is(err, ErrDuplicateActiveLoan) ||
		errors.Is(err, ErrInvalidLoanState) ||
		errors.Is(err, ErrExceedsBalance) ||
		errors.Is(err, ErrUnauthorized)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrTransactionFailed)
}
