// Package store defines the storage contract for Lendpool backends.
package store

import (
	"context"

	"github.com/xraph/lendpool/capital"
	"github.com/xraph/lendpool/id"
	"github.com/xraph/lendpool/loan"
	"github.com/xraph/lendpool/payment"
	"github.com/xraph/lendpool/user"
)

// Store is the unified storage interface for all Lendpool entities.
// Instead of per-entity sub-interfaces, all methods are declared explicitly
// to avoid naming conflicts between entity stores.
//
// Backends hold committed state only; derived values such as available
// capital are never persisted and are always recomputed by the engine.
type Store interface {
	// User methods
	CreateUser(ctx context.Context, u *user.User) error
	GetUser(ctx context.Context, userID id.UserID) (*user.User, error)
	GetUserByName(ctx context.Context, name string) (*user.User, error) // case-insensitive
	ListUsers(ctx context.Context) ([]*user.User, error)
	CountUsersByRole(ctx context.Context, role user.Role) (int, error)

	// Capital methods. A Nil lenderID lists or sums entries across all
	// lenders.
	AppendCapitalEntry(ctx context.Context, e *capital.Entry) error
	ListCapitalEntries(ctx context.Context, lenderID id.UserID) ([]*capital.Entry, error)
	SumCapital(ctx context.Context, lenderID id.UserID) (int64, error) // minor units

	// Loan methods
	CreateLoan(ctx context.Context, l *loan.Loan) error
	GetLoan(ctx context.Context, loanID id.LoanID) (*loan.Loan, error)
	GetActiveLoanByBorrower(ctx context.Context, borrowerID id.UserID) (*loan.Loan, error)
	ListLoans(ctx context.Context, opts loan.ListOpts) ([]*loan.Loan, error)
	UpdateLoan(ctx context.Context, l *loan.Loan) error

	// Payment methods
	CreatePayment(ctx context.Context, p *payment.Payment) error
	ListPayments(ctx context.Context, opts payment.ListOpts) ([]*payment.Payment, error)

	// Reset discards all capital entries, loans, and payments while
	// retaining the user registry.
	Reset(ctx context.Context) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
