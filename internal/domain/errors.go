package domain

import "errors"

// Domain errors
var (
	ErrNotFound               = errors.New("resource not found")
	ErrInvalidInput           = errors.New("invalid input")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrInternalError          = errors.New("internal error")
	ErrAccountNotFound        = errors.New("account not found")
	ErrTransactionNotFound    = errors.New("transaction not found")
	ErrScheduleNotFound       = errors.New("scheduled transaction not found")
	ErrAPITokenNotFound       = errors.New("api token not found")
	ErrInvalidAmount          = errors.New("amount must not be negative")
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrInvalidAccountType     = errors.New("invalid account type")
	ErrInvalidPattern         = errors.New("invalid recurrence pattern")
	ErrSameAccountTransfer    = errors.New("transfer accounts must differ")
	ErrStaleAccountReference  = errors.New("account referenced by schedule no longer exists")
	ErrNameRequired           = errors.New("name is required")
	ErrNameTooLong            = errors.New("name exceeds maximum length")
	ErrMemoTooLong            = errors.New("memo exceeds maximum length")
)

// Validation constants
const (
	MaxAccountNameLength     = 255
	MaxTransactionNameLength = 255
	MaxTransactionMemoLength = 1000
)
