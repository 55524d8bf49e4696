// Package user defines the membership model of a lending pool.
//
// A pool has at most one lender and nineteen borrowers. Users are created on
// registration and immutable thereafter; the role is fixed at creation.
package user

import (
	"strings"

	"github.com/xraph/lendpool/id"
	"github.com/xraph/lendpool/types"
)

// Role determines which commands a user may issue.
type Role string

const (
	RoleLender   Role = "lender"
	RoleBorrower Role = "borrower"
)

// Membership caps per role.
const (
	MaxLenders   = 1
	MaxBorrowers = 19
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleLender || r == RoleBorrower
}

// Cap returns the maximum number of concurrent members for the role.
func (r Role) Cap() int {
	if r == RoleLender {
		return MaxLenders
	}
	return MaxBorrowers
}

// User is a member of the lending pool.
type User struct {
	types.Entity
	ID   id.UserID `json:"id"`
	Name string    `json:"name"` // Display name, unique case-insensitively
	Role Role      `json:"role"`
}

// NormalizeName folds a display name for case-insensitive uniqueness checks.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// IsLender reports whether the user holds the lender role.
func (u *User) IsLender() bool { return u.Role == RoleLender }

// IsBorrower reports whether the user holds the borrower role.
func (u *User) IsBorrower() bool { return u.Role == RoleBorrower }
