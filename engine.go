package lendpool

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/xraph/lendpool/capital"
	"github.com/xraph/lendpool/id"
	"github.com/xraph/lendpool/loan"
	"github.com/xraph/lendpool/payment"
	"github.com/xraph/lendpool/plugin"
	"github.com/xraph/lendpool/store"
	"github.com/xraph/lendpool/types"
	"github.com/xraph/lendpool/user"
)

// Engine is the aggregate root of a lending pool ledger. It owns the user
// registry, capital ledger, loan book, and payment history, and is the only
// writer: every command — including the scheduler's overdue sweep — passes
// through one serialization point, observes a fully committed snapshot,
// validates, and then commits. Domain failures surface as typed errors and
// leave state unchanged.
type Engine struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger

	// Serialization point for all mutations.
	mu sync.Mutex

	// Background sweep worker
	stopChan chan struct{}
	wg       sync.WaitGroup

	// Configuration
	currency      string
	sweepInterval time.Duration
	now           func() time.Time
}

// New creates a new Engine instance.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:         s,
		plugins:       plugin.NewRegistry(),
		logger:        slog.Default(),
		stopChan:      make(chan struct{}),
		currency:      "usd",
		sweepInterval: time.Minute,
		now:           func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithCurrency sets the pool currency (ISO 4217, lowercase).
func WithCurrency(currency string) Option {
	return func(e *Engine) {
		e.currency = strings.ToLower(currency)
	}
}

// WithSweepInterval sets how often the overdue sweep runs.
func WithSweepInterval(d time.Duration) Option {
	return func(e *Engine) {
		e.sweepInterval = d
	}
}

// WithClock sets the time source. Used by tests for deterministic due dates.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// Currency returns the pool currency.
func (e *Engine) Currency() string { return e.currency }

// Start migrates the store and begins the overdue sweep worker.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.store.Migrate(ctx); err != nil {
		return err
	}

	// Initialize plugins
	e.plugins.EmitInit(ctx, e)

	// Start overdue sweep worker
	e.wg.Add(1)
	go e.sweepWorker(ctx)

	e.logger.Info("lendpool engine started",
		"currency", e.currency,
		"sweep_interval", e.sweepInterval,
	)

	return nil
}

// Stop shuts down the Engine. No further sweeps are scheduled.
func (e *Engine) Stop() error {
	close(e.stopChan)
	e.wg.Wait()

	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)

	return e.store.Close()
}

// sweepWorker enqueues an overdue sweep through the same serialization
// point as user commands on a fixed interval. A sweep that finds nothing
// overdue is a no-op, and a failed sweep never halts future sweeps.
func (e *Engine) sweepWorker(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopChan:
			return

		case <-ticker.C:
			if _, err := e.SweepOverdue(ctx, e.now()); err != nil {
				e.logger.Error("overdue sweep failed", "error", err)
			}
		}
	}
}

// ──────────────────────────────────────────────────
// Membership
// ──────────────────────────────────────────────────

// RegisterUser registers a new pool member. Display names are unique
// case-insensitively; at most one lender and nineteen borrowers may exist.
func (e *Engine) RegisterUser(ctx context.Context, name string, role user.Role) (*user.User, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ValidationError{Field: "name", Message: "must not be empty"}
	}
	if !role.Valid() {
		return nil, ValidationError{Field: "role", Message: fmt.Sprintf("unknown role %q", role)}
	}

	if _, err := e.store.GetUserByName(ctx, name); err == nil {
		return nil, ErrDuplicateName
	} else if !IsNotFound(err) {
		return nil, err
	}

	count, err := e.store.CountUsersByRole(ctx, role)
	if err != nil {
		return nil, err
	}
	if count >= role.Cap() {
		return nil, ErrRoleCapacityExceeded
	}

	u := &user.User{
		Entity: types.EntityAt(e.now()),
		ID:     id.NewUserID(),
		Name:   name,
		Role:   role,
	}

	if err := e.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	e.plugins.EmitUserRegistered(ctx, u)
	e.logger.Info("user registered",
		"user_id", u.ID.String(),
		"name", u.Name,
		"role", u.Role,
	)

	return u, nil
}

// GetUser retrieves a user by ID.
func (e *Engine) GetUser(ctx context.Context, userID id.UserID) (*user.User, error) {
	return e.store.GetUser(ctx, userID)
}

// GetUserByName retrieves a user by display name (case-insensitive).
func (e *Engine) GetUserByName(ctx context.Context, name string) (*user.User, error) {
	return e.store.GetUserByName(ctx, name)
}

// ──────────────────────────────────────────────────
// Capital
// ──────────────────────────────────────────────────

// Deposit appends a positive capital entry for the lender.
func (e *Engine) Deposit(ctx context.Context, actorID id.UserID, amount types.Money) (*capital.Entry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	lender, err := e.requireRole(ctx, actorID, user.RoleLender)
	if err != nil {
		return nil, err
	}
	if err := e.validateAmount(amount); err != nil {
		return nil, err
	}

	entry := &capital.Entry{
		Entity:   types.EntityAt(e.now()),
		ID:       id.NewCapitalEntryID(),
		LenderID: lender.ID,
		Amount:   amount,
	}

	if err := e.store.AppendCapitalEntry(ctx, entry); err != nil {
		return nil, err
	}

	e.plugins.EmitCapitalDeposited(ctx, entry)
	e.logger.Info("capital deposited",
		"lender_id", lender.ID.String(),
		"amount", amount.String(),
	)

	return entry, nil
}

// Withdraw appends a negative capital entry for the lender. It fails with
// ErrInsufficientCapital if the amount exceeds available capital (deposits
// minus withdrawals minus principal still outstanding on approved loans).
func (e *Engine) Withdraw(ctx context.Context, actorID id.UserID, amount types.Money) (*capital.Entry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	lender, err := e.requireRole(ctx, actorID, user.RoleLender)
	if err != nil {
		return nil, err
	}
	if err := e.validateAmount(amount); err != nil {
		return nil, err
	}

	available, err := e.availableCapital(ctx, lender.ID)
	if err != nil {
		return nil, err
	}
	if amount.GreaterThan(available) {
		return nil, ErrInsufficientCapital
	}

	entry := &capital.Entry{
		Entity:   types.EntityAt(e.now()),
		ID:       id.NewCapitalEntryID(),
		LenderID: lender.ID,
		Amount:   amount.Negate(),
	}

	if err := e.store.AppendCapitalEntry(ctx, entry); err != nil {
		return nil, err
	}

	e.plugins.EmitCapitalWithdrawn(ctx, entry)
	e.logger.Info("capital withdrawn",
		"lender_id", lender.ID.String(),
		"amount", amount.String(),
	)

	return entry, nil
}

// AvailableCapital returns the lender's capital not currently deployed in
// outstanding loan principal. It is a pure derived value, recomputed on
// every query — never cached — so it stays correct after payments reduce
// outstanding principal.
func (e *Engine) AvailableCapital(ctx context.Context, lenderID id.UserID) (types.Money, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.availableCapital(ctx, lenderID)
}

// availableCapital computes Σ capital entries − Σ outstanding approved
// principal. Callers must hold e.mu.
func (e *Engine) availableCapital(ctx context.Context, lenderID id.UserID) (types.Money, error) {
	sum, err := e.store.SumCapital(ctx, lenderID)
	if err != nil {
		return types.Zero(e.currency), err
	}
	available := types.New(sum, e.currency)

	approved, err := e.store.ListLoans(ctx, loan.ListOpts{Status: loan.StatusApproved})
	if err != nil {
		return types.Zero(e.currency), err
	}
	for _, l := range approved {
		if outstanding := l.OutstandingPrincipal(); outstanding.IsPositive() {
			available = available.Subtract(outstanding)
		}
	}

	return available, nil
}

// ──────────────────────────────────────────────────
// Loans
// ──────────────────────────────────────────────────

// RequestLoan creates a pending loan for the borrower. The interest rate is
// fixed by the schedule (2% weekly, 6% monthly) and totalDue is computed
// once at request time.
func (e *Engine) RequestLoan(ctx context.Context, actorID id.UserID, principal types.Money, schedule loan.Schedule) (*loan.Loan, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	borrower, err := e.requireRole(ctx, actorID, user.RoleBorrower)
	if err != nil {
		return nil, err
	}
	if err := e.validateAmount(principal); err != nil {
		return nil, err
	}
	if !schedule.Valid() {
		return nil, ValidationError{Field: "schedule", Message: fmt.Sprintf("unknown schedule %q", schedule)}
	}
	if principal.Amount > loan.PrincipalCapMinorUnits {
		return nil, ErrLoanLimitExceeded
	}

	if _, err := e.store.GetActiveLoanByBorrower(ctx, borrower.ID); err == nil {
		return nil, ErrDuplicateActiveLoan
	} else if !IsNotFound(err) {
		return nil, err
	}

	now := e.now()
	interest := principal.MulBasisPoints(schedule.RateBasisPoints())

	l := &loan.Loan{
		Entity:        types.EntityAt(now),
		ID:            id.NewLoanID(),
		BorrowerID:    borrower.ID,
		BorrowerName:  borrower.Name,
		Principal:     principal,
		Schedule:      schedule,
		Status:        loan.StatusPending,
		RequestedAt:   now,
		TotalDue:      principal.Add(interest),
		PrincipalPaid: types.Zero(e.currency),
		InterestPaid:  types.Zero(e.currency),
	}

	if err := e.store.CreateLoan(ctx, l); err != nil {
		return nil, err
	}

	e.plugins.EmitLoanRequested(ctx, l)
	e.logger.Info("loan requested",
		"loan_id", l.ID.String(),
		"borrower", l.BorrowerName,
		"principal", principal.String(),
		"schedule", schedule,
		"total_due", l.TotalDue.String(),
	)

	return l, nil
}

// DecideLoan approves or rejects a pending loan. The approval decision is
// terminal: re-deciding a decided loan fails with ErrInvalidLoanState.
// Approval fails with ErrInsufficientCapital if the principal exceeds the
// lender's available capital.
func (e *Engine) DecideLoan(ctx context.Context, actorID id.UserID, loanID id.LoanID, approve bool) (*loan.Loan, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	lender, err := e.requireRole(ctx, actorID, user.RoleLender)
	if err != nil {
		return nil, err
	}

	l, err := e.store.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if l.Status != loan.StatusPending {
		return nil, ErrInvalidLoanState
	}

	now := e.now()

	if approve {
		available, err := e.availableCapital(ctx, lender.ID)
		if err != nil {
			return nil, err
		}
		if l.Principal.GreaterThan(available) {
			return nil, ErrInsufficientCapital
		}

		due := l.Schedule.NextDue(now)
		l.Status = loan.StatusApproved
		l.ApprovedAt = &now
		l.DueDate = &due
	} else {
		l.Status = loan.StatusRejected
	}

	l.TouchAt(now)
	if err := e.store.UpdateLoan(ctx, l); err != nil {
		return nil, err
	}

	if approve {
		e.plugins.EmitLoanApproved(ctx, l)
	} else {
		e.plugins.EmitLoanRejected(ctx, l)
	}
	e.logger.Info("loan decided",
		"loan_id", l.ID.String(),
		"borrower", l.BorrowerName,
		"status", l.Status,
	)

	return l, nil
}

// GetLoan retrieves a loan by ID.
func (e *Engine) GetLoan(ctx context.Context, loanID id.LoanID) (*loan.Loan, error) {
	return e.store.GetLoan(ctx, loanID)
}

// ListLoans lists loans matching the filter.
func (e *Engine) ListLoans(ctx context.Context, opts loan.ListOpts) ([]*loan.Loan, error) {
	return e.store.ListLoans(ctx, opts)
}

// ──────────────────────────────────────────────────
// Payments
// ──────────────────────────────────────────────────

// RecordPayment records a repayment against an approved loan, allocating
// interest first and the remainder to principal. If the loan is not fully
// paid afterwards, its cycle resets: a new due date one schedule period
// out, overdue flags cleared, and the one-time overdue bump re-armed.
func (e *Engine) RecordPayment(ctx context.Context, actorID id.UserID, loanID id.LoanID, amount types.Money, method payment.Method) (*payment.Payment, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	borrower, err := e.requireRole(ctx, actorID, user.RoleBorrower)
	if err != nil {
		return nil, err
	}
	if err := e.validateAmount(amount); err != nil {
		return nil, err
	}
	if !method.Valid() {
		return nil, ValidationError{Field: "method", Message: fmt.Sprintf("unknown method %q", method)}
	}

	l, err := e.store.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if l.BorrowerID.String() != borrower.ID.String() {
		return nil, ErrUnauthorized
	}
	if l.Status != loan.StatusApproved {
		return nil, ErrInvalidLoanState
	}
	if amount.GreaterThan(l.Outstanding()) {
		return nil, ErrExceedsBalance
	}

	now := e.now()
	interestPortion, principalPortion := l.Allocate(amount)

	l.InterestPaid = l.InterestPaid.Add(interestPortion)
	l.PrincipalPaid = l.PrincipalPaid.Add(principalPortion)

	if !l.FullyPaid() {
		// Reset the cycle: next due date one period from now, overdue
		// cleared, and the one-time bump re-armed for the next episode.
		due := l.Schedule.NextDue(now)
		l.DueDate = &due
		l.Overdue = false
		l.OverdueInterestApplied = false
	}

	l.TouchAt(now)
	if err := e.store.UpdateLoan(ctx, l); err != nil {
		return nil, err
	}

	p := &payment.Payment{
		Entity:           types.EntityAt(now),
		ID:               id.NewPaymentID(),
		LoanID:           l.ID,
		BorrowerID:       borrower.ID,
		Amount:           amount,
		Method:           method,
		PrincipalPortion: principalPortion,
		InterestPortion:  interestPortion,
	}

	if err := e.store.CreatePayment(ctx, p); err != nil {
		return nil, err
	}

	e.plugins.EmitPaymentRecorded(ctx, p, l)
	e.logger.Info("payment recorded",
		"payment_id", p.ID.String(),
		"loan_id", l.ID.String(),
		"amount", amount.String(),
		"interest_portion", interestPortion.String(),
		"principal_portion", principalPortion.String(),
		"outstanding", l.Outstanding().String(),
	)

	return p, nil
}

// ListPayments lists payments matching the filter.
func (e *Engine) ListPayments(ctx context.Context, opts payment.ListOpts) ([]*payment.Payment, error) {
	return e.store.ListPayments(ctx, opts)
}

// ──────────────────────────────────────────────────
// Overdue sweep
// ──────────────────────────────────────────────────

// SweepOverdue marks approved loans past their due date as overdue and
// applies the one-time overdue interest bump (schedule rate on the
// remaining balance). The bump is applied at most once per overdue episode:
// a second sweep over an already-overdue loan changes nothing until a
// payment returns the loan to not-overdue. This is the only autonomous,
// time-triggered mutation in the system; the sweep worker routes it through
// the same serialization point as user commands.
func (e *Engine) SweepOverdue(ctx context.Context, now time.Time) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()

	approved, err := e.store.ListLoans(ctx, loan.ListOpts{Status: loan.StatusApproved})
	if err != nil {
		return 0, err
	}

	marked := 0
	for _, l := range approved {
		if l.Overdue || l.FullyPaid() {
			continue
		}
		if l.DueDate == nil || !l.DueDate.Before(now) {
			continue
		}

		l.Overdue = true
		if !l.OverdueInterestApplied {
			bump := l.Outstanding().MulBasisPoints(l.Schedule.RateBasisPoints())
			l.TotalDue = l.TotalDue.Add(bump)
			l.OverdueInterestApplied = true
		}

		l.TouchAt(now)
		if err := e.store.UpdateLoan(ctx, l); err != nil {
			return marked, err
		}

		e.plugins.EmitLoanOverdue(ctx, l)
		e.logger.Info("loan marked overdue",
			"loan_id", l.ID.String(),
			"borrower", l.BorrowerName,
			"total_due", l.TotalDue.String(),
		)
		marked++
	}

	e.plugins.EmitSweepCompleted(ctx, marked, time.Since(start))
	if marked > 0 {
		e.logger.Debug("overdue sweep completed", "marked", marked)
	}

	return marked, nil
}

// ──────────────────────────────────────────────────
// Administration
// ──────────────────────────────────────────────────

// SystemReset discards all capital entries, loans, and payments, retaining
// only the user registry. Lender-only.
func (e *Engine) SystemReset(ctx context.Context, actorID id.UserID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.requireRole(ctx, actorID, user.RoleLender); err != nil {
		return err
	}

	if err := e.store.Reset(ctx); err != nil {
		return err
	}

	e.plugins.EmitSystemReset(ctx)
	e.logger.Warn("system reset", "actor_id", actorID.String())

	return nil
}

// Snapshot returns the full committed aggregate for transport and UI
// collaborators. It contains no derived fields; values like available
// capital are always recomputed from the snapshot.
func (e *Engine) Snapshot(ctx context.Context) (*Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	users, err := e.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := e.store.ListCapitalEntries(ctx, id.Nil)
	if err != nil {
		return nil, err
	}
	loans, err := e.store.ListLoans(ctx, loan.ListOpts{})
	if err != nil {
		return nil, err
	}
	payments, err := e.store.ListPayments(ctx, payment.ListOpts{})
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		Users:    users,
		Capital:  entries,
		Loans:    loans,
		Payments: payments,
	}, nil
}

// Snapshot is the serializable aggregate state of a pool.
type Snapshot struct {
	Users    []*user.User       `json:"users"`
	Capital  []*capital.Entry   `json:"capital"`
	Loans    []*loan.Loan       `json:"loans"`
	Payments []*payment.Payment `json:"payments"`
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

// requireRole fetches the acting user and checks their role.
func (e *Engine) requireRole(ctx context.Context, actorID id.UserID, role user.Role) (*user.User, error) {
	u, err := e.store.GetUser(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if u.Role != role {
		return nil, ErrUnauthorized
	}
	return u, nil
}

// validateAmount checks that an amount is positive and in the pool currency.
func (e *Engine) validateAmount(amount types.Money) error {
	if !amount.IsPositive() {
		return ValidationError{Field: "amount", Message: "must be positive"}
	}
	if amount.Currency != e.currency {
		return ValidationError{Field: "amount", Message: fmt.Sprintf("currency %q does not match pool currency %q", amount.Currency, e.currency)}
	}
	return nil
}
