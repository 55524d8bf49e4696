// Package lendpool provides a small-group peer lending ledger engine for Go
// applications.
//
// Lendpool is designed as a library, not a service. Import it directly into
// your Go application and drive it through the Engine. It provides:
//
//   - A membership registry with one lender and up to nineteen borrowers
//   - An append-only capital ledger with derived available-capital accounting
//   - A loan book with a pending/approved/rejected lifecycle and fixed-rate
//     weekly or monthly repayment schedules
//   - Interest-first payment allocation with exact integer arithmetic
//   - An autonomous overdue sweep with a one-time interest bump per episode
//   - Pluggable storage backends (memory, SQLite, PostgreSQL, MongoDB)
//
// # Quick Start
//
// Create an engine with your preferred store:
//
//	import (
//	    "github.com/xraph/lendpool"
//	    "github.com/xraph/lendpool/store/memory"
//	)
//
//	eng := lendpool.New(memory.New())
//
//	// Start the engine (migrates the store, begins the overdue sweep)
//	if err := eng.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Stop()
//
// # Core Concepts
//
// Users join the pool with a fixed role:
//
//	lender, err := eng.RegisterUser(ctx, "alice", user.RoleLender)
//	borrower, err := eng.RegisterUser(ctx, "bob", user.RoleBorrower)
//
// The lender funds the pool; available capital is always derived, never
// stored:
//
//	eng.Deposit(ctx, lender.ID, lendpool.USD(50_000))
//	available, err := eng.AvailableCapital(ctx, lender.ID)
//
// Borrowers request loans against the pool and repay them interest-first:
//
//	l, err := eng.RequestLoan(ctx, borrower.ID, lendpool.USD(10_000), loan.ScheduleWeekly)
//	l, err = eng.DecideLoan(ctx, lender.ID, l.ID, true)
//	_, err = eng.RecordPayment(ctx, borrower.ID, l.ID, lendpool.USD(5_000), payment.MethodCash)
//
// # Money
//
// All monetary calculations use integer arithmetic to avoid floating-point
// precision issues. The Money type represents amounts in the smallest
// currency unit (cents for USD, pence for GBP, etc). Interest is computed in
// basis points with round-half-up division, and payment allocation is exact:
// the interest and principal portions of a payment always sum to the paid
// amount.
//
// # TypeID
//
// All entities use TypeID for globally unique, type-safe identifiers:
//
//	user_01h2xcejqtf2nbrexx3vqjhp41  // User ID
//	loan_01h2xcejqtf2nbrexx3vqjhp41  // Loan ID
//	pay_01h455vb4pex5vsknk084sn02q   // Payment ID
//
// TypeIDs are K-sortable, making them ideal for database indexes and
// providing natural time-ordering of entities.
package lendpool
