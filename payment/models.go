// Package payment defines the repayment record model.
package payment

import (
	"github.com/xraph/lendpool/id"
	"github.com/xraph/lendpool/types"
)

// Method is the channel a repayment arrived through.
type Method string

const (
	MethodCash   Method = "cash"
	MethodBank   Method = "bank"
	MethodCard   Method = "card"
	MethodMobile Method = "mobile"
)

// Valid reports whether the method is one of the known values.
func (m Method) Valid() bool {
	switch m {
	case MethodCash, MethodBank, MethodCard, MethodMobile:
		return true
	}
	return false
}

// ListOpts filters payment listings.
type ListOpts struct {
	LoanID     id.LoanID
	BorrowerID id.UserID
	Limit      int
	Offset     int
}

// Payment is an append-only repayment record against an approved loan.
// PrincipalPortion + InterestPortion always equals Amount exactly.
type Payment struct {
	types.Entity
	ID               id.PaymentID `json:"id"`
	LoanID           id.LoanID    `json:"loan_id"`
	BorrowerID       id.UserID    `json:"borrower_id"`
	Amount           types.Money  `json:"amount"`
	Method           Method       `json:"method"`
	PrincipalPortion types.Money  `json:"principal_portion"`
	InterestPortion  types.Money  `json:"interest_portion"`
}
