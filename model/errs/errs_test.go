package errs

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected Kind
	}{
		{name: "nil", err: nil, expected: KindUnknown},
		{name: "pool empty", err: ErrPoolEmpty, expected: KindRetryLater},
		{name: "exhausted wrapped", err: fmt.Errorf("lazy: %w", ErrAllocationExhausted), expected: KindRetryLater},
		{name: "payment", err: ErrInsufficientPayment, expected: KindInvalidInput},
		{name: "range", err: fmt.Errorf("owner of 1000: %w", ErrOutOfRange), expected: KindInvalidInput},
		{name: "batch", err: ErrInvalidBatchSize, expected: KindInvalidInput},
		{name: "operator", err: ErrUnauthorized, expected: KindForbidden},
		{name: "complete", err: ErrAlreadyComplete, expected: KindConflict},
		{name: "withdraw", err: ErrNothingToWithdraw, expected: KindConflict},
		{name: "foreign", err: context.Canceled, expected: KindUnknown},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.expected, KindOf(testCase.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrPoolEmpty))
	assert.True(t, IsRetryable(fmt.Errorf("x: %w", ErrAllocationExhausted)))
	assert.False(t, IsRetryable(ErrInsufficientPayment))
	assert.False(t, IsRetryable(ErrUnauthorized))
}
