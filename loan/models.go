// Package loan defines the loan lifecycle model.
//
// A loan moves pending → approved or pending → rejected exactly once. Within
// approved, a secondary overdue axis toggles on due-date comparisons; an
// overdue loan is still approved for all other purposes and can keep
// receiving payments.
package loan

import (
	"time"

	"github.com/xraph/lendpool/id"
	"github.com/xraph/lendpool/types"
)

// Status is the approval lifecycle state of a loan.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Schedule fixes both the interest rate and the due-date cadence of a loan.
type Schedule string

const (
	ScheduleWeekly  Schedule = "weekly"  // 2% interest, due every 7 days
	ScheduleMonthly Schedule = "monthly" // 6% interest, due every calendar month
)

// PrincipalCapMinorUnits is the maximum loan principal: 1000 currency units.
const PrincipalCapMinorUnits = 100_000

// Valid reports whether the schedule is one of the known values.
func (s Schedule) Valid() bool {
	return s == ScheduleWeekly || s == ScheduleMonthly
}

// RateBasisPoints returns the fixed interest rate for the schedule
// in basis points (weekly 2% = 200 bp, monthly 6% = 600 bp).
func (s Schedule) RateBasisPoints() int64 {
	if s == ScheduleWeekly {
		return 200
	}
	return 600
}

// NextDue returns the due date one schedule period after from.
func (s Schedule) NextDue(from time.Time) time.Time {
	if s == ScheduleWeekly {
		return from.AddDate(0, 0, 7)
	}
	return from.AddDate(0, 1, 0)
}

// Loan is a single borrowing against the pool's capital.
type Loan struct {
	types.Entity
	ID           id.LoanID   `json:"id"`
	BorrowerID   id.UserID   `json:"borrower_id"`
	BorrowerName string      `json:"borrower_name"` // Denormalized for rendering
	Principal    types.Money `json:"principal"`
	Schedule     Schedule    `json:"schedule"`
	Status       Status      `json:"status"`
	RequestedAt  time.Time   `json:"requested_at"`
	ApprovedAt   *time.Time  `json:"approved_at,omitempty"`
	DueDate      *time.Time  `json:"due_date,omitempty"`

	// TotalDue = principal + one schedule period's interest, plus at most
	// one overdue bump per overdue episode.
	TotalDue      types.Money `json:"total_due"`
	PrincipalPaid types.Money `json:"principal_paid"`
	InterestPaid  types.Money `json:"interest_paid"`

	Overdue                bool `json:"overdue"`
	OverdueInterestApplied bool `json:"overdue_interest_applied"`
}

// Outstanding returns the remaining balance: totalDue − principalPaid − interestPaid.
func (l *Loan) Outstanding() types.Money {
	return l.TotalDue.Subtract(l.PrincipalPaid).Subtract(l.InterestPaid)
}

// OutstandingPrincipal returns the principal not yet repaid. A loan counts
// as deployed capital only while this is positive.
func (l *Loan) OutstandingPrincipal() types.Money {
	return l.Principal.Subtract(l.PrincipalPaid)
}

// OutstandingInterest returns the interest owed and not yet paid, including
// any overdue bump folded into TotalDue.
func (l *Loan) OutstandingInterest() types.Money {
	return l.TotalDue.Subtract(l.Principal).Subtract(l.InterestPaid)
}

// FullyPaid reports whether the loan carries zero outstanding balance.
// A fully paid loan remains status=approved but is inert.
func (l *Loan) FullyPaid() bool {
	return !l.Outstanding().IsPositive()
}

// Active reports whether the loan blocks new requests by its borrower:
// pending or approved with a nonzero outstanding balance. A fully repaid
// loan no longer counts as active even though its status stays approved.
func (l *Loan) Active() bool {
	if l.Status != StatusPending && l.Status != StatusApproved {
		return false
	}
	return l.Outstanding().IsPositive()
}

// ListOpts filters loan listings.
type ListOpts struct {
	BorrowerID id.UserID
	Status     Status
	Limit      int
	Offset     int
}

// Allocate splits a payment amount between outstanding interest and
// principal, interest first. The rounding remainder always lands on the
// principal portion so that interest + principal reconstructs amount exactly.
func (l *Loan) Allocate(amount types.Money) (interest, principal types.Money) {
	interest = amount.Min(l.OutstandingInterest())
	if interest.IsNegative() {
		interest = types.Zero(amount.Currency)
	}
	principal = amount.Subtract(interest)
	return interest, principal
}
