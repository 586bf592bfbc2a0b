package core

import "errors"

var (
	// ErrNotFound marks a row that is absent or not owned by the caller.
	// Non-retryable: background sweeps log and skip.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInterval marks a recurrence configuration outside
	// DAILY/WEEKLY/MONTHLY/YEARLY. Non-retryable.
	ErrInvalidInterval = errors.New("invalid recurring interval")

	// ErrInsufficientFunds marks a balance mutation that would drive an
	// account negative.
	ErrInsufficientFunds = errors.New("insufficient funds")

	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInvalidDate            = errors.New("invalid date")
	ErrInvalidCategory        = errors.New("invalid category")
	ErrInvalidAccountType     = errors.New("invalid account type")
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrEmptyName              = errors.New("empty name")
	ErrNameTooLong            = errors.New("name too long (max 100 characters)")
	ErrDescriptionTooLong     = errors.New("description too long (max 200 characters)")
)
