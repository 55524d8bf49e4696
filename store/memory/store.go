// Package memory provides an in-memory Store for tests and embedded use.
package memory

import (
	"context"
	"sort"
	"sync"

	lendpool "github.com/xraph/lendpool"
	"github.com/xraph/lendpool/capital"
	"github.com/xraph/lendpool/id"
	"github.com/xraph/lendpool/loan"
	"github.com/xraph/lendpool/payment"
	"github.com/xraph/lendpool/store"
	"github.com/xraph/lendpool/user"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	// User storage
	users map[string]*user.User

	// Capital storage (append-only)
	capitalEntries []*capital.Entry

	// Loan storage
	loans map[string]*loan.Loan

	// Payment storage (append-only)
	payments []*payment.Payment
}

func New() *Store {
	return &Store{
		users:          make(map[string]*user.User),
		capitalEntries: make([]*capital.Entry, 0),
		loans:          make(map[string]*loan.Loan),
		payments:       make([]*payment.Payment, 0),
	}
}

// User Store implementation

func (s *Store) CreateUser(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[u.ID.String()]; exists {
		return lendpool.ErrAlreadyExists
	}
	cp := *u
	s.users[u.ID.String()] = &cp
	return nil
}

func (s *Store) GetUser(_ context.Context, userID id.UserID) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if u, ok := s.users[userID.String()]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, lendpool.ErrUserNotFound
}

func (s *Store) GetUserByName(_ context.Context, name string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	folded := user.NormalizeName(name)
	for _, u := range s.users {
		if user.NormalizeName(u.Name) == folded {
			cp := *u
			return &cp, nil
		}
	}
	return nil, lendpool.ErrUserNotFound
}

func (s *Store) ListUsers(_ context.Context) ([]*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*user.User, 0, len(s.users))
	for _, u := range s.users {
		cp := *u
		result = append(result, &cp)
	}
	// TypeIDs are K-sortable, so this is creation order.
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID.String() < result[j].ID.String()
	})
	return result, nil
}

func (s *Store) CountUsersByRole(_ context.Context, role user.Role) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, u := range s.users {
		if u.Role == role {
			count++
		}
	}
	return count, nil
}

// Capital Store implementation

func (s *Store) AppendCapitalEntry(_ context.Context, e *capital.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *e
	s.capitalEntries = append(s.capitalEntries, &cp)
	return nil
}

func (s *Store) ListCapitalEntries(_ context.Context, lenderID id.UserID) ([]*capital.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*capital.Entry, 0)
	for _, e := range s.capitalEntries {
		if !lenderID.IsNil() && e.LenderID.String() != lenderID.String() {
			continue
		}
		cp := *e
		result = append(result, &cp)
	}
	return result, nil
}

func (s *Store) SumCapital(_ context.Context, lenderID id.UserID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum int64
	for _, e := range s.capitalEntries {
		if !lenderID.IsNil() && e.LenderID.String() != lenderID.String() {
			continue
		}
		sum += e.Amount.Amount
	}
	return sum, nil
}

// Loan Store implementation

func (s *Store) CreateLoan(_ context.Context, l *loan.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.loans[l.ID.String()]; exists {
		return lendpool.ErrAlreadyExists
	}
	cp := *l
	s.loans[l.ID.String()] = &cp
	return nil
}

func (s *Store) GetLoan(_ context.Context, loanID id.LoanID) (*loan.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if l, ok := s.loans[loanID.String()]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, lendpool.ErrLoanNotFound
}

func (s *Store) GetActiveLoanByBorrower(_ context.Context, borrowerID id.UserID) (*loan.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, l := range s.loans {
		if l.BorrowerID.String() == borrowerID.String() && l.Active() {
			cp := *l
			return &cp, nil
		}
	}
	return nil, lendpool.ErrLoanNotFound
}

func (s *Store) ListLoans(_ context.Context, opts loan.ListOpts) ([]*loan.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*loan.Loan, 0)
	for _, l := range s.loans {
		if !opts.BorrowerID.IsNil() && l.BorrowerID.String() != opts.BorrowerID.String() {
			continue
		}
		if opts.Status != "" && l.Status != opts.Status {
			continue
		}
		cp := *l
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID.String() < result[j].ID.String()
	})

	// Apply limit/offset
	start := opts.Offset
	if start > len(result) {
		start = len(result)
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}

	return result[start:end], nil
}

func (s *Store) UpdateLoan(_ context.Context, l *loan.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.loans[l.ID.String()]; !exists {
		return lendpool.ErrLoanNotFound
	}
	cp := *l
	s.loans[l.ID.String()] = &cp
	return nil
}

// Payment Store implementation

func (s *Store) CreatePayment(_ context.Context, p *payment.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *p
	s.payments = append(s.payments, &cp)
	return nil
}

func (s *Store) ListPayments(_ context.Context, opts payment.ListOpts) ([]*payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*payment.Payment, 0)
	for _, p := range s.payments {
		if !opts.LoanID.IsNil() && p.LoanID.String() != opts.LoanID.String() {
			continue
		}
		if !opts.BorrowerID.IsNil() && p.BorrowerID.String() != opts.BorrowerID.String() {
			continue
		}
		cp := *p
		result = append(result, &cp)
	}

	// Apply limit/offset
	start := opts.Offset
	if start > len(result) {
		start = len(result)
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}

	return result[start:end], nil
}

// Reset discards capital entries, loans, and payments; users survive.
func (s *Store) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.capitalEntries = make([]*capital.Entry, 0)
	s.loans = make(map[string]*loan.Loan)
	s.payments = make([]*payment.Payment, 0)
	return nil
}

// Core methods

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) Close() error { return nil }
