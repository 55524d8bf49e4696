// Package postgres provides a PostgreSQL-backed Store via the Grove ORM.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	lendpool "github.com/xraph/lendpool"
	"github.com/xraph/lendpool/capital"
	"github.com/xraph/lendpool/id"
	"github.com/xraph/lendpool/loan"
	"github.com/xraph/lendpool/payment"
	lendpoolstore "github.com/xraph/lendpool/store"
	"github.com/xraph/lendpool/user"
)

// compile-time interface check
var _ lendpoolstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("lendpool/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("lendpool/postgres: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== User Store ====================

func (s *Store) CreateUser(ctx context.Context, u *user.User) error {
	m := toUserModel(u)
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetUser(ctx context.Context, userID id.UserID) (*user.User, error) {
	m := new(userModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", userID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, lendpool.ErrUserNotFound
		}
		return nil, err
	}
	return fromUserModel(m)
}

func (s *Store) GetUserByName(ctx context.Context, name string) (*user.User, error) {
	m := new(userModel)
	err := s.pg.NewSelect(m).
		Where("name_folded = $1", user.NormalizeName(name)).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, lendpool.ErrUserNotFound
		}
		return nil, err
	}
	return fromUserModel(m)
}

func (s *Store) ListUsers(ctx context.Context) ([]*user.User, error) {
	var models []userModel
	err := s.pg.NewSelect(&models).
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*user.User, len(models))
	for i := range models {
		u, err := fromUserModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = u
	}
	return result, nil
}

func (s *Store) CountUsersByRole(ctx context.Context, role user.Role) (int, error) {
	var count int
	err := s.pg.NewRaw(`
		SELECT COUNT(*) FROM lendpool_users WHERE role = $1
	`, string(role)).Scan(ctx, &count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ==================== Capital Store ====================

func (s *Store) AppendCapitalEntry(ctx context.Context, e *capital.Entry) error {
	m := toCapitalEntryModel(e)
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) ListCapitalEntries(ctx context.Context, lenderID id.UserID) ([]*capital.Entry, error) {
	var models []capitalEntryModel
	q := s.pg.NewSelect(&models)
	if !lenderID.IsNil() {
		q = q.Where("lender_id = $1", lenderID.String())
	}
	q = q.OrderExpr("id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*capital.Entry, len(models))
	for i := range models {
		e, err := fromCapitalEntryModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = e
	}
	return result, nil
}

func (s *Store) SumCapital(ctx context.Context, lenderID id.UserID) (int64, error) {
	var sum int64
	var err error
	if lenderID.IsNil() {
		err = s.pg.NewRaw(`
			SELECT COALESCE(SUM(amount_cents), 0) FROM lendpool_capital_entries
		`).Scan(ctx, &sum)
	} else {
		err = s.pg.NewRaw(`
			SELECT COALESCE(SUM(amount_cents), 0) FROM lendpool_capital_entries
			WHERE lender_id = $1
		`, lenderID.String()).Scan(ctx, &sum)
	}
	if err != nil {
		return 0, err
	}
	return sum, nil
}

// ==================== Loan Store ====================

func (s *Store) CreateLoan(ctx context.Context, l *loan.Loan) error {
	m := toLoanModel(l)
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetLoan(ctx context.Context, loanID id.LoanID) (*loan.Loan, error) {
	m := new(loanModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", loanID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, lendpool.ErrLoanNotFound
		}
		return nil, err
	}
	return fromLoanModel(m)
}

func (s *Store) GetActiveLoanByBorrower(ctx context.Context, borrowerID id.UserID) (*loan.Loan, error) {
	m := new(loanModel)
	err := s.pg.NewSelect(m).
		Where("borrower_id = $1", borrowerID.String()).
		Where("status IN ($2, $3)", string(loan.StatusPending), string(loan.StatusApproved)).
		Where("total_due_cents - principal_paid_cents - interest_paid_cents > 0").
		OrderExpr("id DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, lendpool.ErrLoanNotFound
		}
		return nil, err
	}
	return fromLoanModel(m)
}

func (s *Store) ListLoans(ctx context.Context, opts loan.ListOpts) ([]*loan.Loan, error) {
	var models []loanModel
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if !opts.BorrowerID.IsNil() {
		argIdx++
		q = q.Where(fmt.Sprintf("borrower_id = $%d", argIdx), opts.BorrowerID.String())
	}
	if opts.Status != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("status = $%d", argIdx), string(opts.Status))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*loan.Loan, len(models))
	for i := range models {
		l, err := fromLoanModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = l
	}
	return result, nil
}

func (s *Store) UpdateLoan(ctx context.Context, l *loan.Loan) error {
	m := toLoanModel(l)
	m.UpdatedAt = now()
	res, err := s.pg.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return lendpool.ErrLoanNotFound
	}
	return nil
}

// ==================== Payment Store ====================

func (s *Store) CreatePayment(ctx context.Context, p *payment.Payment) error {
	m := toPaymentModel(p)
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) ListPayments(ctx context.Context, opts payment.ListOpts) ([]*payment.Payment, error) {
	var models []paymentModel
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if !opts.LoanID.IsNil() {
		argIdx++
		q = q.Where(fmt.Sprintf("loan_id = $%d", argIdx), opts.LoanID.String())
	}
	if !opts.BorrowerID.IsNil() {
		argIdx++
		q = q.Where(fmt.Sprintf("borrower_id = $%d", argIdx), opts.BorrowerID.String())
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*payment.Payment, len(models))
	for i := range models {
		p, err := fromPaymentModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = p
	}
	return result, nil
}

// ==================== Reset ====================

// Reset truncates capital entries, loans, and payments. Users survive.
func (s *Store) Reset(ctx context.Context) error {
	for _, model := range []interface{}{
		(*capitalEntryModel)(nil),
		(*loanModel)(nil),
		(*paymentModel)(nil),
	} {
		if _, err := s.pg.NewDelete(model).Where("id IS NOT NULL").Exec(ctx); err != nil {
			return fmt.Errorf("lendpool/postgres: reset: %w", err)
		}
	}
	return nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
