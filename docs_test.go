package lendpool_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/lendpool"
	"github.com/xraph/lendpool/loan"
	"github.com/xraph/lendpool/payment"
	"github.com/xraph/lendpool/store/memory"
	"github.com/xraph/lendpool/user"
)

// TestDocumentationExamples verifies that all examples in the documentation compile
func TestDocumentationExamples(t *testing.T) {
	// Test Quick Start example from package docs
	t.Run("QuickStartExample", func(t *testing.T) {
		// Create store (memory for demo, use PostgreSQL in production)
		store := memory.New()

		// Initialize the engine
		eng := lendpool.New(store,
			lendpool.WithLogger(slog.Default()),
			lendpool.WithCurrency("usd"),
			lendpool.WithSweepInterval(time.Minute),
		)

		// Start the engine
		ctx := context.Background()
		if err := eng.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer eng.Stop()

		// Register the pool members
		lender, err := eng.RegisterUser(ctx, "alice", user.RoleLender)
		if err != nil {
			t.Fatal(err)
		}
		borrower, err := eng.RegisterUser(ctx, "bob", user.RoleBorrower)
		if err != nil {
			t.Fatal(err)
		}

		// Fund the pool
		if _, err := eng.Deposit(ctx, lender.ID, lendpool.USD(50_000)); err != nil {
			t.Fatal(err)
		}
		available, err := eng.AvailableCapital(ctx, lender.ID)
		if err != nil {
			t.Fatal(err)
		}
		if !available.Equal(lendpool.USD(50_000)) {
			t.Errorf("available: got %v, want %v", available, lendpool.USD(50_000))
		}

		// Request, approve, and repay a loan
		l, err := eng.RequestLoan(ctx, borrower.ID, lendpool.USD(10_000), loan.ScheduleWeekly)
		if err != nil {
			t.Fatal(err)
		}
		l, err = eng.DecideLoan(ctx, lender.ID, l.ID, true)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := eng.RecordPayment(ctx, borrower.ID, l.ID, lendpool.USD(5_000), payment.MethodCash); err != nil {
			t.Fatal(err)
		}
	})

	// Test the Money example from package docs
	t.Run("MoneyExample", func(t *testing.T) {
		principal := lendpool.USD(30_000) // $300.00
		interest := principal.MulBasisPoints(600)

		if !interest.Equal(lendpool.USD(1_800)) {
			t.Errorf("interest: got %v, want %v", interest, lendpool.USD(1_800))
		}
		if principal.Add(interest).String() != "$318.00" {
			t.Errorf("display: got %s, want $318.00", principal.Add(interest).String())
		}
	})
}
