// Package capital defines the append-only capital movement ledger of a pool.
package capital

import (
	"github.com/xraph/lendpool/id"
	"github.com/xraph/lendpool/types"
)

// Entry is a single signed capital movement for a lender. Positive amounts
// are deposits, negative amounts are withdrawals. Entries are append-only
// and never mutated or deleted; the running sum over a lender's entries is
// that lender's total contributed capital.
type Entry struct {
	types.Entity
	ID       id.CapitalEntryID `json:"id"`
	LenderID id.UserID         `json:"lender_id"`
	Amount   types.Money       `json:"amount"` // Signed: positive = deposit, negative = withdrawal
}

// IsDeposit reports whether the entry adds capital to the pool.
func (e *Entry) IsDeposit() bool { return e.Amount.IsPositive() }

// IsWithdrawal reports whether the entry removes capital from the pool.
func (e *Entry) IsWithdrawal() bool { return e.Amount.IsNegative() }
