package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientFunds is returned when available credit is below the amount to block.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientPoints is returned when the point balance is below the amount to spend.
	ErrInsufficientPoints = errors.New("insufficient points")

	// ErrInsufficientBlocked means a release or consume exceeds the blocked balance.
	// It signals a reconciliation bug, never a user error.
	ErrInsufficientBlocked = errors.New("blocked credit below requested amount")

	// ErrInvalidAmount is returned for zero or negative amounts where a positive one is required.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrAccountNotFound is returned by stores for unknown users.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInvalidUserID is returned for empty user ids.
	ErrInvalidUserID = errors.New("invalid user id")
)

// InsufficientFundsError carries the shortfall of a failed block.
type InsufficientFundsError struct {
	UserID    UserID
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds for %s: available %s, requested %s",
		e.UserID, e.Available.StringFixed(2), e.Requested.StringFixed(2))
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}

// InsufficientPointsError carries the shortfall of a failed spend.
type InsufficientPointsError struct {
	UserID    UserID
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("insufficient points for %s: available %s, requested %s",
		e.UserID, e.Available.String(), e.Requested.String())
}

func (e *InsufficientPointsError) Unwrap() error {
	return ErrInsufficientPoints
}
