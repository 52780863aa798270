package domain

import (
	"errors"
	"fmt"

	"github.com/efreitasn/ledgerauction/internal/pubkey"
)

// Sentinel errors for domain-level error handling.
// The service layer maps these to rejection reasons in logs and metrics.
var (
	ErrNotFound          = errors.New("not_found")
	ErrAlreadyExists     = errors.New("already_exists")
	ErrInvalidConfig     = errors.New("invalid_config")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidState      = errors.New("invalid_state")
	ErrAuctionClosed     = errors.New("auction_closed")
	ErrBidTooLow         = errors.New("bid_too_low")
	ErrUnverified        = errors.New("unverified")
	ErrCancelNotAllowed  = errors.New("cancel_not_allowed")
	ErrAlreadyClaimed    = errors.New("already_claimed")
	ErrMissingEndTime    = errors.New("missing_end_time")
	ErrEndTimeNotReached = errors.New("end_time_not_reached")
	ErrNotWinner         = errors.New("not_winner")
	ErrTransferFailed    = errors.New("transfer_failed")
)

// Ledger transfer failure causes, wrapped by TransferError.
var (
	ErrInsufficientFunds    = errors.New("insufficient_funds")
	ErrUnauthorizedTransfer = errors.New("unauthorized_transfer")
	ErrMintMismatch         = errors.New("mint_mismatch")
	ErrAccountNotFound      = errors.New("account_not_found")
)

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// TransferError is returned by the ledger adapter when a transfer is
// rejected. Nothing has moved when it is returned.
type TransferError struct {
	From   pubkey.PublicKey
	To     pubkey.PublicKey
	Amount uint64
	Err    error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer %d from %s to %s: %v", e.Amount, e.From, e.To, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// Is makes every TransferError match ErrTransferFailed.
func (e *TransferError) Is(target error) bool {
	return target == ErrTransferFailed
}

// Reason returns the sentinel name of err when it is a known domain error,
// or "internal" otherwise.
func Reason(err error) string {
	for _, sentinel := range []error{
		ErrNotFound, ErrAlreadyExists, ErrInvalidConfig, ErrUnauthorized,
		ErrInvalidState, ErrAuctionClosed, ErrBidTooLow, ErrUnverified,
		ErrCancelNotAllowed, ErrAlreadyClaimed, ErrMissingEndTime,
		ErrEndTimeNotReached, ErrNotWinner, ErrTransferFailed,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return "validation"
	}
	return "internal"
}
