package types

import "errors"

// Rejection reasons shared across the engine. Every rejected operation maps to
// exactly one of these so the web layer can hand the caller a stable,
// serializable reason string instead of an arbitrary error chain.
var (
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInvalidRatio        = errors.New("reserve ratio must be between 100 and 200")
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInsufficientAllowance is part of the wire contract but not produced by
	// planning, which turns an allowance shortfall into an approval step instead
	// of a rejection. Clients match on the reason string, so the kind stays mapped.
	ErrInsufficientAllowance  = errors.New("insufficient allowance")
	ErrExceedsStakeCap        = errors.New("stake exceeds maximum USD value cap")
	ErrExceedsAvailableProfit = errors.New("amount exceeds available profit")
	ErrStillLocked            = errors.New("stake is still locked")
	ErrNotActive              = errors.New("stake record is not active")
	ErrNotFound               = errors.New("stake record not found")
	ErrUnauthorized           = errors.New("operation requires the owner capability")
)

// RejectionReason returns the stable wire identifier for a known rejection,
// or empty string when the error is not one of the declared kinds.
func RejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		return "INVALID_AMOUNT"
	case errors.Is(err, ErrInvalidRatio):
		return "INVALID_RATIO"
	case errors.Is(err, ErrInsufficientBalance):
		return "INSUFFICIENT_BALANCE"
	case errors.Is(err, ErrInsufficientAllowance):
		return "INSUFFICIENT_ALLOWANCE"
	case errors.Is(err, ErrExceedsStakeCap):
		return "EXCEEDS_STAKE_CAP"
	case errors.Is(err, ErrExceedsAvailableProfit):
		return "EXCEEDS_AVAILABLE_PROFIT"
	case errors.Is(err, ErrStillLocked):
		return "STILL_LOCKED"
	case errors.Is(err, ErrNotActive):
		return "NOT_ACTIVE"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrUnauthorized):
		return "UNAUTHORIZED"
	default:
		return ""
	}
}
