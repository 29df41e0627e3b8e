// Package errs defines the allocation error taxonomy. Every failure surfaced by
// the allocator is one of the sentinel values below (possibly wrapped), so
// callers can branch with errors.Is or group them with KindOf.
package errs

import "errors"

var (
	// ErrInsufficientPayment is returned when the paid amount is below the price.
	ErrInsufficientPayment = errors.New("idmint: insufficient payment")

	// ErrPoolEmpty is returned when the pool holds no unallocated identifier.
	ErrPoolEmpty = errors.New("idmint: pool empty")

	// ErrAllocationExhausted is returned when every lazy attempt collided.
	ErrAllocationExhausted = errors.New("idmint: allocation attempts exhausted")

	// ErrAlreadyInitialized is returned when a full initialization is
	// requested on a pool that already holds, or once held, identifiers.
	ErrAlreadyInitialized = errors.New("idmint: pool already initialized")

	// ErrAlreadyComplete is returned once the cursor reached the universe size.
	ErrAlreadyComplete = errors.New("idmint: materialization already complete")

	// ErrInvalidBatchSize is returned for a zero batch.
	ErrInvalidBatchSize = errors.New("idmint: invalid batch size")

	// ErrOutOfRange is returned for identifiers outside the universe.
	ErrOutOfRange = errors.New("idmint: identifier out of range")

	// ErrAlreadyAllocated is returned when assigning an owned identifier.
	ErrAlreadyAllocated = errors.New("idmint: identifier already allocated")

	// ErrUnauthorized is returned when the caller is not permitted.
	ErrUnauthorized = errors.New("idmint: unauthorized")

	// ErrNothingToWithdraw is returned when proceeds are zero.
	ErrNothingToWithdraw = errors.New("idmint: nothing to withdraw")
)

// Kind groups errors by what the caller should do about them.
type Kind string

const (
	KindUnknown      Kind = "unknown"
	KindRetryLater   Kind = "retry_later"
	KindInvalidInput Kind = "invalid_input"
	KindForbidden    Kind = "forbidden"
	KindConflict     Kind = "conflict"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrPoolEmpty, KindRetryLater},
	{ErrAllocationExhausted, KindRetryLater},
	{ErrInsufficientPayment, KindInvalidInput},
	{ErrOutOfRange, KindInvalidInput},
	{ErrInvalidBatchSize, KindInvalidInput},
	{ErrUnauthorized, KindForbidden},
	{ErrAlreadyInitialized, KindConflict},
	{ErrAlreadyComplete, KindConflict},
	{ErrAlreadyAllocated, KindConflict},
	{ErrNothingToWithdraw, KindConflict},
}

// KindOf classifies err; unrecognised errors (storage, context) are KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	for _, candidate := range kinds {
		if errors.Is(err, candidate.err) {
			return candidate.kind
		}
	}
	return KindUnknown
}

// IsRetryable reports whether the same request may succeed later.
func IsRetryable(err error) bool {
	return KindOf(err) == KindRetryLater
}
