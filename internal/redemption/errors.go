package redemption

import "errors"

// Redemption failure modes, in the order the validator reports them. Each
// maps to a distinct client-facing reason so the frontend can explain why a
// code did not go through.
var (
	ErrCodeNotFound    = errors.New("access code not found or already redeemed")
	ErrTargetNotFound  = errors.New("redemption target not found")
	ErrWrongTarget     = errors.New("access code is tied to a different item")
	ErrValueTooHigh    = errors.New("access code value exceeds the item price")
	ErrValueTooLow     = errors.New("access code value is below the item price")
	ErrAlreadyRedeemed = errors.New("access code was redeemed by another request")

	// ErrPartialApply means the code was consumed but the enrollment write
	// failed. The grant has been queued for replay; the student keeps the
	// redemption and should not retry the code.
	ErrPartialApply = errors.New("code redeemed, enrollment pending")
)
