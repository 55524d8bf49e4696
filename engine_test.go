package lendpool_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/xraph/lendpool"
	"github.com/xraph/lendpool/loan"
	"github.com/xraph/lendpool/payment"
	"github.com/xraph/lendpool/store/memory"
	"github.com/xraph/lendpool/user"
)

// testClock is a controllable time source for deterministic due dates.
type testClock struct {
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time           { return c.now }
func (c *testClock) AdvanceDays(days int)     { c.now = c.now.AddDate(0, 0, days) }
func (c *testClock) AdvanceMonths(months int) { c.now = c.now.AddDate(0, months, 0) }

func newTestEngine(t *testing.T) (*lendpool.Engine, *testClock) {
	t.Helper()

	clock := newTestClock()
	eng := lendpool.New(memory.New(), lendpool.WithClock(clock.Now))
	return eng, clock
}

// fundedPool registers a lender and a borrower and deposits capital.
func fundedPool(t *testing.T, eng *lendpool.Engine, deposit int64) (lender, borrower *user.User) {
	t.Helper()
	ctx := context.Background()

	lender, err := eng.RegisterUser(ctx, "Alice", user.RoleLender)
	if err != nil {
		t.Fatalf("register lender: %v", err)
	}
	borrower, err = eng.RegisterUser(ctx, "Bob", user.RoleBorrower)
	if err != nil {
		t.Fatalf("register borrower: %v", err)
	}
	if _, err := eng.Deposit(ctx, lender.ID, lendpool.USD(deposit)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	return lender, borrower
}

func TestRegisterUser(t *testing.T) {
	ctx := context.Background()

	t.Run("LenderAndBorrower", func(t *testing.T) {
		eng, _ := newTestEngine(t)

		lender, err := eng.RegisterUser(ctx, "Alice", user.RoleLender)
		if err != nil {
			t.Fatalf("register lender: %v", err)
		}
		if lender.Role != user.RoleLender {
			t.Errorf("role: got %q, want %q", lender.Role, user.RoleLender)
		}
		if lender.ID.IsNil() {
			t.Error("expected non-nil user ID")
		}

		borrower, err := eng.RegisterUser(ctx, "Bob", user.RoleBorrower)
		if err != nil {
			t.Fatalf("register borrower: %v", err)
		}
		if borrower.Role != user.RoleBorrower {
			t.Errorf("role: got %q, want %q", borrower.Role, user.RoleBorrower)
		}
	})

	t.Run("DuplicateNameCaseInsensitive", func(t *testing.T) {
		eng, _ := newTestEngine(t)

		if _, err := eng.RegisterUser(ctx, "Alice", user.RoleLender); err != nil {
			t.Fatalf("register: %v", err)
		}
		_, err := eng.RegisterUser(ctx, "ALICE", user.RoleBorrower)
		if !errors.Is(err, lendpool.ErrDuplicateName) {
			t.Errorf("expected ErrDuplicateName, got %v", err)
		}
	})

	t.Run("SecondLenderRejected", func(t *testing.T) {
		eng, _ := newTestEngine(t)

		if _, err := eng.RegisterUser(ctx, "Alice", user.RoleLender); err != nil {
			t.Fatalf("register: %v", err)
		}
		_, err := eng.RegisterUser(ctx, "Eve", user.RoleLender)
		if !errors.Is(err, lendpool.ErrRoleCapacityExceeded) {
			t.Errorf("expected ErrRoleCapacityExceeded, got %v", err)
		}
	})

	t.Run("TwentiethBorrowerRejected", func(t *testing.T) {
		eng, _ := newTestEngine(t)

		for i := 1; i <= 19; i++ {
			name := fmt.Sprintf("borrower-%02d", i)
			if _, err := eng.RegisterUser(ctx, name, user.RoleBorrower); err != nil {
				t.Fatalf("register %s: %v", name, err)
			}
		}
		_, err := eng.RegisterUser(ctx, "borrower-20", user.RoleBorrower)
		if !errors.Is(err, lendpool.ErrRoleCapacityExceeded) {
			t.Errorf("expected ErrRoleCapacityExceeded, got %v", err)
		}
	})

	t.Run("EmptyName", func(t *testing.T) {
		eng, _ := newTestEngine(t)

		_, err := eng.RegisterUser(ctx, "   ", user.RoleLender)
		var verr lendpool.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("expected ValidationError, got %v", err)
		}
	})

	t.Run("UnknownRole", func(t *testing.T) {
		eng, _ := newTestEngine(t)

		_, err := eng.RegisterUser(ctx, "Alice", user.Role("admin"))
		var verr lendpool.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("expected ValidationError, got %v", err)
		}
	})

	t.Run("LookupByNameCaseInsensitive", func(t *testing.T) {
		eng, _ := newTestEngine(t)

		registered, err := eng.RegisterUser(ctx, "Alice", user.RoleLender)
		if err != nil {
			t.Fatalf("register: %v", err)
		}
		found, err := eng.GetUserByName(ctx, "aLiCe")
		if err != nil {
			t.Fatalf("lookup: %v", err)
		}
		if found.ID.String() != registered.ID.String() {
			t.Errorf("lookup mismatch: %q != %q", found.ID, registered.ID)
		}
	})
}

func TestCapitalLedger(t *testing.T) {
	ctx := context.Background()

	t.Run("DepositAndWithdraw", func(t *testing.T) {
		eng, _ := newTestEngine(t)
		lender, _ := fundedPool(t, eng, 50000)

		available, err := eng.AvailableCapital(ctx, lender.ID)
		if err != nil {
			t.Fatalf("available: %v", err)
		}
		if !available.Equal(lendpool.USD(50000)) {
			t.Errorf("available: got %v, want %v", available, lendpool.USD(50000))
		}

		entry, err := eng.Withdraw(ctx, lender.ID, lendpool.USD(20000))
		if err != nil {
			t.Fatalf("withdraw: %v", err)
		}
		if !entry.Amount.Equal(lendpool.USD(-20000)) {
			t.Errorf("withdrawal entry: got %v, want %v", entry.Amount, lendpool.USD(-20000))
		}

		available, err = eng.AvailableCapital(ctx, lender.ID)
		if err != nil {
			t.Fatalf("available: %v", err)
		}
		if !available.Equal(lendpool.USD(30000)) {
			t.Errorf("available after withdrawal: got %v, want %v", available, lendpool.USD(30000))
		}
	})

	t.Run("OverWithdrawalLeavesStateUnchanged", func(t *testing.T) {
		eng, _ := newTestEngine(t)
		lender, _ := fundedPool(t, eng, 50000)

		_, err := eng.Withdraw(ctx, lender.ID, lendpool.USD(60000))
		if !errors.Is(err, lendpool.ErrInsufficientCapital) {
			t.Fatalf("expected ErrInsufficientCapital, got %v", err)
		}

		available, err := eng.AvailableCapital(ctx, lender.ID)
		if err != nil {
			t.Fatalf("available: %v", err)
		}
		if !available.Equal(lendpool.USD(50000)) {
			t.Errorf("available changed after failed withdrawal: got %v", available)
		}
	})

	t.Run("BorrowerCannotDeposit", func(t *testing.T) {
		eng, _ := newTestEngine(t)
		_, borrower := fundedPool(t, eng, 50000)

		_, err := eng.Deposit(ctx, borrower.ID, lendpool.USD(1000))
		if !errors.Is(err, lendpool.ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("NonPositiveAmount", func(t *testing.T) {
		eng, _ := newTestEngine(t)
		lender, _ := fundedPool(t, eng, 50000)

		_, err := eng.Deposit(ctx, lender.ID, lendpool.USD(0))
		var verr lendpool.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("expected ValidationError, got %v", err)
		}
	})

	t.Run("CurrencyMismatch", func(t *testing.T) {
		eng, _ := newTestEngine(t)
		lender, _ := fundedPool(t, eng, 50000)

		_, err := eng.Deposit(ctx, lender.ID, lendpool.EUR(1000))
		var verr lendpool.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("expected ValidationError, got %v", err)
		}
	})
}

func TestLoanLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("RequestApproveAndDeriveCapital", func(t *testing.T) {
		eng, clock := newTestEngine(t)
		lender, borrower := fundedPool(t, eng, 50000)

		l, err := eng.RequestLoan(ctx, borrower.ID, lendpool.USD(30000), loan.ScheduleMonthly)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		if l.Status != loan.StatusPending {
			t.Errorf("status: got %q, want %q", l.Status, loan.StatusPending)
		}
		if !l.TotalDue.Equal(lendpool.USD(31800)) {
			t.Errorf("total due: got %v, want %v", l.TotalDue, lendpool.USD(31800))
		}
		if l.DueDate != nil {
			t.Error("pending loan should have no due date")
		}

		l, err = eng.DecideLoan(ctx, lender.ID, l.ID, true)
		if err != nil {
			t.Fatalf("approve: %v", err)
		}
		if l.Status != loan.StatusApproved {
			t.Errorf("status: got %q, want %q", l.Status, loan.StatusApproved)
		}
		wantDue := clock.Now().AddDate(0, 1, 0)
		if l.DueDate == nil || !l.DueDate.Equal(wantDue) {
			t.Errorf("due date: got %v, want %v", l.DueDate, wantDue)
		}

		available, err := eng.AvailableCapital(ctx, lender.ID)
		if err != nil {
			t.Fatalf("available: %v", err)
		}
		if !available.Equal(lendpool.USD(20000)) {
			t.Errorf("available: got %v, want %v", available, lendpool.USD(20000))
		}
	})

	t.Run("WeeklyDueDate", func(t *testing.T) {
		eng, clock := newTestEngine(t)
		lender, borrower := fundedPool(t, eng, 50000)

		l, err := eng.RequestLoan(ctx, borrower.ID, lendpool.USD(10000), loan.ScheduleWeekly)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		if !l.TotalDue.Equal(lendpool.USD(10200)) {
			t.Errorf("total due: got %v, want %v", l.TotalDue, lendpool.USD(10200))
		}

		l, err = eng.DecideLoan(ctx, lender.ID, l.ID, true)
		if err != nil {
			t.Fatalf("approve: %v", err)
		}
		wantDue := clock.Now().AddDate(0, 0, 7)
		if l.DueDate == nil || !l.DueDate.Equal(wantDue) {
			t.Errorf("due date: got %v, want %v", l.DueDate, wantDue)
		}
	})

	t.Run("Reject", func(t *testing.T) {
		eng, _ := newTestEngine(t)
		lender, borrower := fundedPool(t, eng, 50000)

		l, err := eng.RequestLoan(ctx, borrower.ID, lendpool.USD(30000), loan.ScheduleMonthly)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		l, err = eng.DecideLoan(ctx, lender.ID, l.ID, false)
		if err != nil {
			t.Fatalf("reject: %v", err)
		}
		if l.Status != loan.StatusRejected {
			t.Errorf("status: got %q, want %q", l.Status, loan.StatusRejected)
		}

		// A rejected loan no longer blocks new requests.
		if _, err := eng.RequestLoan(ctx, borrower.ID, lendpool.USD(20000), loan.ScheduleWeekly); err != nil {
			t.Errorf("request after rejection: %v", err)
		}
	})

	t.Run("PrincipalOverCap", func(t *testing.T) {
		eng, _ := newTestEngine(t)
		_, _ = fundedPool(t, eng, 50000)

		carol, err := eng.RegisterUser(ctx, "Carol", user.RoleBorrower)
		if err != nil {
			t.Fatalf("register: %v", err)
		}
		_, err = eng.RequestLoan(ctx, carol.ID, lendpool.USD(120000), loan.ScheduleWeekly)
		if !errors.Is(err, lendpool.ErrLoanLimitExceeded) {
			t.Errorf("expected ErrLoanLimitExceeded, got %v", err)
		}
	})

	t.Run("DuplicateActiveLoan", func(t *testing.T) {
		eng, _ := newTestEngine(t)
		lender, borrower := fundedPool(t, eng, 50000)

		l, err := eng.RequestLoan(ctx, borrower.ID, lendpool.USD(30000), loan.ScheduleMonthly)
		if err != nil {
			t.Fatalf("request: %v", err)
		}

		// Blocked while pending.
		_, err = eng.RequestLoan(ctx, borrower.ID, lendpool.USD(10000), loan.ScheduleWeekly)
		if !errors.Is(err, lendpool.ErrDuplicateActiveLoan) {
			t.Errorf("expected ErrDuplicateActiveLoan while pending, got %v", err)
		}

		// Still blocked while approved with outstanding balance.
		if _, err := eng.DecideLoan(ctx, lender.ID, l.ID, true); err != nil {
			t.Fatalf("approve: %v", err)
		}
		_, err = eng.RequestLoan(ctx, borrower.ID, lendpool.USD(10000), loan.ScheduleWeekly)
		if !errors.Is(err, lendpool.ErrDuplicateActiveLoan) {
			t.Errorf("expected ErrDuplicateActiveLoan while approved, got %v", err)
		}
	})

	t.Run("ApprovalBeyondAvailableCapital", func(t *testing.T) {
		eng, _ := newTestEngine(t)
		lender, borrower := fundedPool(t, eng, 20000)

		l, err := eng.RequestLoan(ctx, borrower.ID, lendpool.USD(30000), loan.ScheduleMonthly)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		_, err = eng.DecideLoan(ctx, lender.ID, l.ID, true)
		if !errors.Is(err, lendpool.ErrInsufficientCapital) {
			t.Errorf("expected ErrInsufficientCapital, got %v", err)
		}

		// The loan stays pending and can still be decided later.
		got, err := eng.GetLoan(ctx, l.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Status != loan.StatusPending {
			t.Errorf("status after failed approval: got %q, want %q", got.Status, loan.StatusPending)
		}
	})

	t.Run("RedecidingFails", func(t *testing.T) {
		eng, _ := newTestEngine(t)
		lender, borrower := fundedPool(t, eng, 50000)

		l, err := eng.RequestLoan(ctx, borrower.ID, lendpool.USD(30000), loan.ScheduleMonthly)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		if _, err := eng.DecideLoan(ctx, lender.ID, l.ID, true); err != nil {
			t.Fatalf("approve: %v", err)
		}
		_, err = eng.DecideLoan(ctx, lender.ID, l.ID, false)
		if !errors.Is(err, lendpool.ErrInvalidLoanState) {
			t.Errorf("expected ErrInvalidLoanState, got %v", err)
		}
	})

	t.Run("BorrowerCannotDecide", func(t *testing.T) {
		eng, _ := newTestEngine(t)
		_, borrower := fundedPool(t, eng, 50000)

		l, err := eng.RequestLoan(ctx, borrower.ID, lendpool.USD(30000), loan.ScheduleMonthly)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		_, err = eng.DecideLoan(ctx, borrower.ID, l.ID, true)
		if !errors.Is(err, lendpool.ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})
}

// approvedLoan sets up a funded pool with one approved monthly loan of 300.00.
func approvedLoan(t *testing.T, eng *lendpool.Engine) (lender, borrower *user.User, l *loan.Loan) {
	t.Helper()
	ctx := context.Background()

	lender, borrower = fundedPool(t, eng, 50000)

	l, err := eng.RequestLoan(ctx, borrower.ID, lendpool.USD(30000), loan.ScheduleMonthly)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	l, err = eng.DecideLoan(ctx, lender.ID, l.ID, true)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	return lender, borrower, l
}

func TestRecordPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("InterestFirstAllocation", func(t *testing.T) {
		eng, clock := newTestEngine(t)
		_, borrower, l := approvedLoan(t, eng)

		clock.AdvanceDays(3)

		p, err := eng.RecordPayment(ctx, borrower.ID, l.ID, lendpool.USD(15000), payment.MethodCash)
		if err != nil {
			t.Fatalf("pay: %v", err)
		}
		if !p.InterestPortion.Equal(lendpool.USD(1800)) {
			t.Errorf("interest portion: got %v, want %v", p.InterestPortion, lendpool.USD(1800))
		}
		if !p.PrincipalPortion.Equal(lendpool.USD(13200)) {
			t.Errorf("principal portion: got %v, want %v", p.PrincipalPortion, lendpool.USD(13200))
		}
		if !p.InterestPortion.Add(p.PrincipalPortion).Equal(p.Amount) {
			t.Errorf("portions %v + %v do not reconstruct amount %v",
				p.InterestPortion, p.PrincipalPortion, p.Amount)
		}

		got, err := eng.GetLoan(ctx, l.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if !got.Outstanding().Equal(lendpool.USD(16800)) {
			t.Errorf("outstanding: got %v, want %v", got.Outstanding(), lendpool.USD(16800))
		}

		// Cycle reset: due date one period from the payment, flags cleared.
		wantDue := clock.Now().AddDate(0, 1, 0)
		if got.DueDate == nil || !got.DueDate.Equal(wantDue) {
			t.Errorf("due date: got %v, want %v", got.DueDate, wantDue)
		}
		if got.Overdue || got.OverdueInterestApplied {
			t.Error("overdue flags should be cleared after payment")
		}
	})

	t.Run("InterestOnlyPayment", func(t *testing.T) {
		eng, _ := newTestEngine(t)
		_, borrower, l := approvedLoan(t, eng)

		p, err := eng.RecordPayment(ctx, borrower.ID, l.ID, lendpool.USD(1000), payment.MethodMobile)
		if err != nil {
			t.Fatalf("pay: %v", err)
		}
		if !p.InterestPortion.Equal(lendpool.USD(1000)) {
			t.Errorf("interest portion: got %v, want %v", p.InterestPortion, lendpool.USD(1000))
		}
		if !p.PrincipalPortion.IsZero() {
			t.Errorf("principal portion: got %v, want zero", p.PrincipalPortion)
		}
	})

	t.Run("ExceedsBalance", func(t *testing.T) {
		eng, _ := newTestEngine(t)
		_, borrower, l := approvedLoan(t, eng)

		_, err := eng.RecordPayment(ctx, borrower.ID, l.ID, lendpool.USD(31801), payment.MethodBank)
		if !errors.Is(err, lendpool.ErrExceedsBalance) {
			t.Errorf("expected ErrExceedsBalance, got %v", err)
		}
	})

	t.Run("PendingLoanNotPayable", func(t *testing.T) {
		eng, _ := newTestEngine(t)
		_, borrower := fundedPool(t, eng, 50000)

		l, err := eng.RequestLoan(ctx, borrower.ID, lendpool.USD(30000), loan.ScheduleMonthly)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		_, err = eng.RecordPayment(ctx, borrower.ID, l.ID, lendpool.USD(1000), payment.MethodCash)
		if !errors.Is(err, lendpool.ErrInvalidLoanState) {
			t.Errorf("expected ErrInvalidLoanState, got %v", err)
		}
	})

	t.Run("OwnershipEnforced", func(t *testing.T) {
		eng, _ := newTestEngine(t)
		_, _, l := approvedLoan(t, eng)

		carol, err := eng.RegisterUser(ctx, "Carol", user.RoleBorrower)
		if err != nil {
			t.Fatalf("register: %v", err)
		}
		_, err = eng.RecordPayment(ctx, carol.ID, l.ID, lendpool.USD(1000), payment.MethodCash)
		if !errors.Is(err, lendpool.ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("FullRepaymentMakesLoanInert", func(t *testing.T) {
		eng, _ := newTestEngine(t)
		lender, borrower, l := approvedLoan(t, eng)

		if _, err := eng.RecordPayment(ctx, borrower.ID, l.ID, lendpool.USD(31800), payment.MethodBank); err != nil {
			t.Fatalf("pay in full: %v", err)
		}

		got, err := eng.GetLoan(ctx, l.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if !got.FullyPaid() {
			t.Error("loan should be fully paid")
		}
		if got.Status != loan.StatusApproved {
			t.Errorf("fully paid loan keeps approved status, got %q", got.Status)
		}

		// Paid-off principal is no longer deployed.
		available, err := eng.AvailableCapital(ctx, lender.ID)
		if err != nil {
			t.Fatalf("available: %v", err)
		}
		if !available.Equal(lendpool.USD(50000)) {
			t.Errorf("available: got %v, want %v", available, lendpool.USD(50000))
		}

		// A fully paid loan no longer blocks new requests.
		if _, err := eng.RequestLoan(ctx, borrower.ID, lendpool.USD(10000), loan.ScheduleWeekly); err != nil {
			t.Errorf("request after full repayment: %v", err)
		}

		// Overpaying an inert loan fails.
		_, err = eng.RecordPayment(ctx, borrower.ID, l.ID, lendpool.USD(1), payment.MethodCash)
		if !errors.Is(err, lendpool.ErrExceedsBalance) {
			t.Errorf("expected ErrExceedsBalance, got %v", err)
		}
	})

	t.Run("PaidNeverExceedsTotalDue", func(t *testing.T) {
		eng, _ := newTestEngine(t)
		_, borrower, l := approvedLoan(t, eng)

		amounts := []int64{5000, 10000, 16800}
		for _, amt := range amounts {
			if _, err := eng.RecordPayment(ctx, borrower.ID, l.ID, lendpool.USD(amt), payment.MethodCash); err != nil {
				t.Fatalf("pay %d: %v", amt, err)
			}
			got, err := eng.GetLoan(ctx, l.ID)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			paid := got.PrincipalPaid.Add(got.InterestPaid)
			if paid.GreaterThan(got.TotalDue) {
				t.Fatalf("paid %v exceeds total due %v", paid, got.TotalDue)
			}
		}
	})
}

func TestOverdueSweep(t *testing.T) {
	ctx := context.Background()

	t.Run("MarksAndBumpsOnce", func(t *testing.T) {
		eng, clock := newTestEngine(t)
		_, borrower, l := approvedLoan(t, eng)

		// Pay 132.00: interest 18.00 satisfied, principal 114.00, leaving
		// a remaining balance of 186.00 on a total due of 318.00.
		if _, err := eng.RecordPayment(ctx, borrower.ID, l.ID, lendpool.USD(13200), payment.MethodCash); err != nil {
			t.Fatalf("pay: %v", err)
		}

		clock.AdvanceMonths(1)
		clock.AdvanceDays(1)

		marked, err := eng.SweepOverdue(ctx, clock.Now())
		if err != nil {
			t.Fatalf("sweep: %v", err)
		}
		if marked != 1 {
			t.Fatalf("marked: got %d, want 1", marked)
		}

		got, err := eng.GetLoan(ctx, l.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if !got.Overdue || !got.OverdueInterestApplied {
			t.Error("expected overdue flags set")
		}
		// Bump is 6% of the 186.00 remaining balance: 11.16.
		if !got.TotalDue.Equal(lendpool.USD(32916)) {
			t.Errorf("total due after bump: got %v, want %v", got.TotalDue, lendpool.USD(32916))
		}

		// Second sweep at a later time changes nothing.
		clock.AdvanceDays(3)
		marked, err = eng.SweepOverdue(ctx, clock.Now())
		if err != nil {
			t.Fatalf("second sweep: %v", err)
		}
		if marked != 0 {
			t.Errorf("second sweep marked: got %d, want 0", marked)
		}
		got, err = eng.GetLoan(ctx, l.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if !got.TotalDue.Equal(lendpool.USD(32916)) {
			t.Errorf("total due changed on second sweep: got %v", got.TotalDue)
		}
	})

	t.Run("PaymentRearmsBump", func(t *testing.T) {
		eng, clock := newTestEngine(t)
		_, borrower, l := approvedLoan(t, eng)

		clock.AdvanceMonths(1)
		clock.AdvanceDays(1)
		if _, err := eng.SweepOverdue(ctx, clock.Now()); err != nil {
			t.Fatalf("sweep: %v", err)
		}

		// A payment clears the overdue state and re-arms the bump.
		if _, err := eng.RecordPayment(ctx, borrower.ID, l.ID, lendpool.USD(10000), payment.MethodCash); err != nil {
			t.Fatalf("pay: %v", err)
		}
		got, err := eng.GetLoan(ctx, l.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Overdue || got.OverdueInterestApplied {
			t.Error("overdue flags should be cleared after payment")
		}
		firstBumped := got.TotalDue

		// Going overdue again in the next cycle applies a fresh bump.
		clock.AdvanceMonths(1)
		clock.AdvanceDays(1)
		marked, err := eng.SweepOverdue(ctx, clock.Now())
		if err != nil {
			t.Fatalf("second episode sweep: %v", err)
		}
		if marked != 1 {
			t.Fatalf("marked: got %d, want 1", marked)
		}
		got, err = eng.GetLoan(ctx, l.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if !got.TotalDue.GreaterThan(firstBumped) {
			t.Errorf("expected a fresh bump, total due still %v", got.TotalDue)
		}
	})

	t.Run("SkipsNotYetDue", func(t *testing.T) {
		eng, clock := newTestEngine(t)
		_, _, _ = approvedLoan(t, eng)

		clock.AdvanceDays(3)
		marked, err := eng.SweepOverdue(ctx, clock.Now())
		if err != nil {
			t.Fatalf("sweep: %v", err)
		}
		if marked != 0 {
			t.Errorf("marked: got %d, want 0", marked)
		}
	})

	t.Run("SkipsPendingLoans", func(t *testing.T) {
		eng, clock := newTestEngine(t)
		_, borrower := fundedPool(t, eng, 50000)

		if _, err := eng.RequestLoan(ctx, borrower.ID, lendpool.USD(30000), loan.ScheduleMonthly); err != nil {
			t.Fatalf("request: %v", err)
		}

		clock.AdvanceMonths(2)
		marked, err := eng.SweepOverdue(ctx, clock.Now())
		if err != nil {
			t.Fatalf("sweep: %v", err)
		}
		if marked != 0 {
			t.Errorf("marked: got %d, want 0", marked)
		}
	})
}

func TestSystemReset(t *testing.T) {
	ctx := context.Background()

	t.Run("KeepsUsersOnly", func(t *testing.T) {
		eng, _ := newTestEngine(t)
		lender, borrower, l := approvedLoan(t, eng)

		if _, err := eng.RecordPayment(ctx, borrower.ID, l.ID, lendpool.USD(5000), payment.MethodCash); err != nil {
			t.Fatalf("pay: %v", err)
		}

		if err := eng.SystemReset(ctx, lender.ID); err != nil {
			t.Fatalf("reset: %v", err)
		}

		snap, err := eng.Snapshot(ctx)
		if err != nil {
			t.Fatalf("snapshot: %v", err)
		}
		if len(snap.Users) != 2 {
			t.Errorf("users: got %d, want 2", len(snap.Users))
		}
		if len(snap.Capital) != 0 || len(snap.Loans) != 0 || len(snap.Payments) != 0 {
			t.Errorf("expected empty ledger after reset, got %d capital, %d loans, %d payments",
				len(snap.Capital), len(snap.Loans), len(snap.Payments))
		}

		available, err := eng.AvailableCapital(ctx, lender.ID)
		if err != nil {
			t.Fatalf("available: %v", err)
		}
		if !available.IsZero() {
			t.Errorf("available after reset: got %v, want zero", available)
		}
	})

	t.Run("LenderOnly", func(t *testing.T) {
		eng, _ := newTestEngine(t)
		_, borrower := fundedPool(t, eng, 50000)

		err := eng.SystemReset(ctx, borrower.ID)
		if !errors.Is(err, lendpool.ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestSnapshot(t *testing.T) {
	ctx := context.Background()

	eng, _ := newTestEngine(t)
	_, borrower, l := approvedLoan(t, eng)

	if _, err := eng.RecordPayment(ctx, borrower.ID, l.ID, lendpool.USD(5000), payment.MethodCash); err != nil {
		t.Fatalf("pay: %v", err)
	}

	snap, err := eng.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap.Users) != 2 {
		t.Errorf("users: got %d, want 2", len(snap.Users))
	}
	if len(snap.Capital) != 1 {
		t.Errorf("capital entries: got %d, want 1", len(snap.Capital))
	}
	if len(snap.Loans) != 1 {
		t.Errorf("loans: got %d, want 1", len(snap.Loans))
	}
	if len(snap.Payments) != 1 {
		t.Errorf("payments: got %d, want 1", len(snap.Payments))
	}
}

func TestListPaymentsByLoan(t *testing.T) {
	ctx := context.Background()

	eng, _ := newTestEngine(t)
	_, borrower, l := approvedLoan(t, eng)

	for _, amt := range []int64{5000, 7000} {
		if _, err := eng.RecordPayment(ctx, borrower.ID, l.ID, lendpool.USD(amt), payment.MethodCard); err != nil {
			t.Fatalf("pay %d: %v", amt, err)
		}
	}

	payments, err := eng.ListPayments(ctx, payment.ListOpts{LoanID: l.ID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(payments) != 2 {
		t.Fatalf("payments: got %d, want 2", len(payments))
	}
	for _, p := range payments {
		if p.LoanID.String() != l.ID.String() {
			t.Errorf("payment %s belongs to loan %s, want %s", p.ID, p.LoanID, l.ID)
		}
	}
}
