package ledger

import "errors"

var (
	ErrUnauthorized        = errors.New("ledger: unauthorized")
	ErrPaused              = errors.New("ledger: paused")
	ErrInvalidAddress      = errors.New("ledger: invalid address")
	ErrInvalidAmount       = errors.New("ledger: invalid amount")
	ErrNotWhitelisted      = errors.New("ledger: recipient not whitelisted")
	ErrAlreadyWhitelisted  = errors.New("ledger: recipient already whitelisted")
	ErrTransferNotAllowed  = errors.New("ledger: transfer not allowed")
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")
	ErrUnknownRole         = errors.New("ledger: unknown role")
	ErrEmptyBatch          = errors.New("ledger: empty batch")
)
