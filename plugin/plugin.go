// Package plugin provides an extensible plugin system for Lendpool.
// Plugins can hook into various lifecycle events to extend functionality.
package plugin

import (
	"context"
	"time"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Membership hooks
// ──────────────────────────────────────────────────

// OnUserRegistered is called when a new pool member is registered.
type OnUserRegistered interface {
	Plugin
	OnUserRegistered(ctx context.Context, user interface{}) error
}

// ──────────────────────────────────────────────────
// Capital hooks
// ──────────────────────────────────────────────────

// OnCapitalDeposited is called when the lender deposits capital.
type OnCapitalDeposited interface {
	Plugin
	OnCapitalDeposited(ctx context.Context, entry interface{}) error
}

// OnCapitalWithdrawn is called when the lender withdraws capital.
type OnCapitalWithdrawn interface {
	Plugin
	OnCapitalWithdrawn(ctx context.Context, entry interface{}) error
}

// ──────────────────────────────────────────────────
// Loan lifecycle hooks
// ──────────────────────────────────────────────────

// OnLoanRequested is called when a borrower requests a loan.
type OnLoanRequested interface {
	Plugin
	OnLoanRequested(ctx context.Context, loan interface{}) error
}

// OnLoanApproved is called when the lender approves a pending loan.
type OnLoanApproved interface {
	Plugin
	OnLoanApproved(ctx context.Context, loan interface{}) error
}

// OnLoanRejected is called when the lender rejects a pending loan.
type OnLoanRejected interface {
	Plugin
	OnLoanRejected(ctx context.Context, loan interface{}) error
}

// OnLoanOverdue is called when a sweep marks a loan overdue.
type OnLoanOverdue interface {
	Plugin
	OnLoanOverdue(ctx context.Context, loan interface{}) error
}

// ──────────────────────────────────────────────────
// Payment hooks
// ──────────────────────────────────────────────────

// OnPaymentRecorded is called when a repayment is committed against a loan.
type OnPaymentRecorded interface {
	Plugin
	OnPaymentRecorded(ctx context.Context, payment, loan interface{}) error
}

// ──────────────────────────────────────────────────
// Scheduler and administration hooks
// ──────────────────────────────────────────────────

// OnSweepCompleted is called after an overdue sweep finishes.
type OnSweepCompleted interface {
	Plugin
	OnSweepCompleted(ctx context.Context, marked int, elapsed time.Duration) error
}

// OnSystemReset is called after the lender wipes the ledger.
type OnSystemReset interface {
	Plugin
	OnSystemReset(ctx context.Context) error
}
