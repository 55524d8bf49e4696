package postgres

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/lendpool/capital"
	"github.com/xraph/lendpool/id"
	"github.com/xraph/lendpool/loan"
	"github.com/xraph/lendpool/payment"
	"github.com/xraph/lendpool/types"
	"github.com/xraph/lendpool/user"
)

// ==================== User models ====================

type userModel struct {
	grove.BaseModel `grove:"table:lendpool_users"`

	ID         string    `grove:"id,pk"`
	Name       string    `grove:"name"`
	NameFolded string    `grove:"name_folded"`
	Role       string    `grove:"role"`
	CreatedAt  time.Time `grove:"created_at"`
	UpdatedAt  time.Time `grove:"updated_at"`
}

func toUserModel(u *user.User) *userModel {
	return &userModel{
		ID:         u.ID.String(),
		Name:       u.Name,
		NameFolded: user.NormalizeName(u.Name),
		Role:       string(u.Role),
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

func fromUserModel(m *userModel) (*user.User, error) {
	userID, err := id.ParseUserID(m.ID)
	if err != nil {
		return nil, err
	}

	return &user.User{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:   userID,
		Name: m.Name,
		Role: user.Role(m.Role),
	}, nil
}

// ==================== Capital entry models ====================

type capitalEntryModel struct {
	grove.BaseModel `grove:"table:lendpool_capital_entries"`

	ID             string    `grove:"id,pk"`
	LenderID       string    `grove:"lender_id"`
	AmountCents    int64     `grove:"amount_cents"`
	AmountCurrency string    `grove:"amount_currency"`
	CreatedAt      time.Time `grove:"created_at"`
	UpdatedAt      time.Time `grove:"updated_at"`
}

func toCapitalEntryModel(e *capital.Entry) *capitalEntryModel {
	return &capitalEntryModel{
		ID:             e.ID.String(),
		LenderID:       e.LenderID.String(),
		AmountCents:    e.Amount.Amount,
		AmountCurrency: e.Amount.Currency,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

func fromCapitalEntryModel(m *capitalEntryModel) (*capital.Entry, error) {
	entryID, err := id.ParseCapitalEntryID(m.ID)
	if err != nil {
		return nil, err
	}
	lenderID, err := id.ParseUserID(m.LenderID)
	if err != nil {
		return nil, err
	}

	return &capital.Entry{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:       entryID,
		LenderID: lenderID,
		Amount:   types.New(m.AmountCents, m.AmountCurrency),
	}, nil
}

// ==================== Loan models ====================

type loanModel struct {
	grove.BaseModel `grove:"table:lendpool_loans"`

	ID                     string     `grove:"id,pk"`
	BorrowerID             string     `grove:"borrower_id"`
	BorrowerName           string     `grove:"borrower_name"`
	PrincipalCents         int64      `grove:"principal_cents"`
	PrincipalCurrency      string     `grove:"principal_currency"`
	Schedule               string     `grove:"schedule"`
	Status                 string     `grove:"status"`
	RequestedAt            time.Time  `grove:"requested_at"`
	ApprovedAt             *time.Time `grove:"approved_at"`
	DueDate                *time.Time `grove:"due_date"`
	TotalDueCents          int64      `grove:"total_due_cents"`
	TotalDueCurrency       string     `grove:"total_due_currency"`
	PrincipalPaidCents     int64      `grove:"principal_paid_cents"`
	PrincipalPaidCurrency  string     `grove:"principal_paid_currency"`
	InterestPaidCents      int64      `grove:"interest_paid_cents"`
	InterestPaidCurrency   string     `grove:"interest_paid_currency"`
	Overdue                bool       `grove:"overdue"`
	OverdueInterestApplied bool       `grove:"overdue_interest_applied"`
	CreatedAt              time.Time  `grove:"created_at"`
	UpdatedAt              time.Time  `grove:"updated_at"`
}

func toLoanModel(l *loan.Loan) *loanModel {
	return &loanModel{
		ID:                     l.ID.String(),
		BorrowerID:             l.BorrowerID.String(),
		BorrowerName:           l.BorrowerName,
		PrincipalCents:         l.Principal.Amount,
		PrincipalCurrency:      l.Principal.Currency,
		Schedule:               string(l.Schedule),
		Status:                 string(l.Status),
		RequestedAt:            l.RequestedAt,
		ApprovedAt:             l.ApprovedAt,
		DueDate:                l.DueDate,
		TotalDueCents:          l.TotalDue.Amount,
		TotalDueCurrency:       l.TotalDue.Currency,
		PrincipalPaidCents:     l.PrincipalPaid.Amount,
		PrincipalPaidCurrency:  l.PrincipalPaid.Currency,
		InterestPaidCents:      l.InterestPaid.Amount,
		InterestPaidCurrency:   l.InterestPaid.Currency,
		Overdue:                l.Overdue,
		OverdueInterestApplied: l.OverdueInterestApplied,
		CreatedAt:              l.CreatedAt,
		UpdatedAt:              l.UpdatedAt,
	}
}

func fromLoanModel(m *loanModel) (*loan.Loan, error) {
	loanID, err := id.ParseLoanID(m.ID)
	if err != nil {
		return nil, err
	}
	borrowerID, err := id.ParseUserID(m.BorrowerID)
	if err != nil {
		return nil, err
	}

	return &loan.Loan{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:                     loanID,
		BorrowerID:             borrowerID,
		BorrowerName:           m.BorrowerName,
		Principal:              types.New(m.PrincipalCents, m.PrincipalCurrency),
		Schedule:               loan.Schedule(m.Schedule),
		Status:                 loan.Status(m.Status),
		RequestedAt:            m.RequestedAt,
		ApprovedAt:             m.ApprovedAt,
		DueDate:                m.DueDate,
		TotalDue:               types.New(m.TotalDueCents, m.TotalDueCurrency),
		PrincipalPaid:          types.New(m.PrincipalPaidCents, m.PrincipalPaidCurrency),
		InterestPaid:           types.New(m.InterestPaidCents, m.InterestPaidCurrency),
		Overdue:                m.Overdue,
		OverdueInterestApplied: m.OverdueInterestApplied,
	}, nil
}

// ==================== Payment models ====================

type paymentModel struct {
	grove.BaseModel `grove:"table:lendpool_payments"`

	ID                       string    `grove:"id,pk"`
	LoanID                   string    `grove:"loan_id"`
	BorrowerID               string    `grove:"borrower_id"`
	AmountCents              int64     `grove:"amount_cents"`
	AmountCurrency           string    `grove:"amount_currency"`
	Method                   string    `grove:"method"`
	PrincipalPortionCents    int64     `grove:"principal_portion_cents"`
	PrincipalPortionCurrency string    `grove:"principal_portion_currency"`
	InterestPortionCents     int64     `grove:"interest_portion_cents"`
	InterestPortionCurrency  string    `grove:"interest_portion_currency"`
	CreatedAt                time.Time `grove:"created_at"`
	UpdatedAt                time.Time `grove:"updated_at"`
}

func toPaymentModel(p *payment.Payment) *paymentModel {
	return &paymentModel{
		ID:                       p.ID.String(),
		LoanID:                   p.LoanID.String(),
		BorrowerID:               p.BorrowerID.String(),
		AmountCents:              p.Amount.Amount,
		AmountCurrency:           p.Amount.Currency,
		Method:                   string(p.Method),
		PrincipalPortionCents:    p.PrincipalPortion.Amount,
		PrincipalPortionCurrency: p.PrincipalPortion.Currency,
		InterestPortionCents:     p.InterestPortion.Amount,
		InterestPortionCurrency:  p.InterestPortion.Currency,
		CreatedAt:                p.CreatedAt,
		UpdatedAt:                p.UpdatedAt,
	}
}

func fromPaymentModel(m *paymentModel) (*payment.Payment, error) {
	paymentID, err := id.ParsePaymentID(m.ID)
	if err != nil {
		return nil, err
	}
	loanID, err := id.ParseLoanID(m.LoanID)
	if err != nil {
		return nil, err
	}
	borrowerID, err := id.ParseUserID(m.BorrowerID)
	if err != nil {
		return nil, err
	}

	return &payment.Payment{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:               paymentID,
		LoanID:           loanID,
		BorrowerID:       borrowerID,
		Amount:           types.New(m.AmountCents, m.AmountCurrency),
		Method:           payment.Method(m.Method),
		PrincipalPortion: types.New(m.PrincipalPortionCents, m.PrincipalPortionCurrency),
		InterestPortion:  types.New(m.InterestPortionCents, m.InterestPortionCurrency),
	}, nil
}
