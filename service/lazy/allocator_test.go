package lazy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/idmint/internal/journal"
	"github.com/viant/idmint/model"
	"github.com/viant/idmint/model/errs"
	"github.com/viant/idmint/service/entropy"
	"github.com/viant/idmint/service/ledger"
)

// sequence returns seeds whose value is the nonce-th element of values.
func sequence(values ...byte) entropy.Deriver {
	return func(_ []byte, _ string, nonce uint64) entropy.Seed {
		return entropy.Seed{31: values[int(nonce)%len(values)]}
	}
}

func TestAllocator_Allocate(t *testing.T) {
	testCases := []struct {
		name           string
		taken          []uint64
		values         []byte
		maxAttempts    int
		expectID       uint64
		expectAttempts int
		expectErr      error
	}{
		{name: "first hit", values: []byte{5}, maxAttempts: 3, expectID: 5, expectAttempts: 1},
		{name: "one collision", taken: []uint64{5}, values: []byte{5, 6}, maxAttempts: 3, expectID: 6, expectAttempts: 2},
		{name: "wraps modulo", values: []byte{12}, maxAttempts: 1, expectID: 2, expectAttempts: 1},
		{name: "exhausted", taken: []uint64{5}, values: []byte{5}, maxAttempts: 4, expectAttempts: 4, expectErr: errs.ErrAllocationExhausted},
		{name: "default bound", taken: []uint64{5}, values: []byte{5}, expectAttempts: DefaultMaxAttempts, expectErr: errs.ErrAllocationExhausted},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			u := model.NewUniverse(10)
			l := ledger.New(u)
			for _, id := range testCase.taken {
				require.NoError(t, l.Assign(nil, id, "other"))
			}
			source := entropy.NewSource(sequence(testCase.values...))
			a := New(u, l, source)

			id, attempts, err := a.Allocate(nil, "alice", nil, testCase.maxAttempts)
			assert.Equal(t, testCase.expectAttempts, attempts)
			assert.EqualValues(t, testCase.expectAttempts, source.Nonce("alice"), "one nonce per attempt")
			if testCase.expectErr != nil {
				assert.ErrorIs(t, err, testCase.expectErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testCase.expectID, id)
		})
	}
}

func TestAllocator_RollbackNonces(t *testing.T) {
	u := model.NewUniverse(10)
	l := ledger.New(u)
	require.NoError(t, l.Assign(nil, 1, "other"))
	source := entropy.NewSource(sequence(1))
	a := New(u, l, source)

	j := journal.New()
	_, _, err := a.Allocate(j, "alice", nil, 3)
	require.ErrorIs(t, err, errs.ErrAllocationExhausted)
	j.Rollback()
	assert.EqualValues(t, 0, source.Nonce("alice"))
}

func TestAllocator_FillsUniverse(t *testing.T) {
	u := model.Universe{Min: 1000, Max: 1099}
	l := ledger.New(u)
	a := New(u, l, entropy.NewSource(nil))
	for i := 0; i < 50; i++ {
		id, _, err := a.Allocate(nil, "alice", []byte("entropy"), 1000)
		require.NoError(t, err)
		require.True(t, u.Contains(id))
		require.NoError(t, l.Assign(nil, id, "alice"))
	}
	assert.Equal(t, 50, l.Total())
	assert.NoError(t, l.Verify())
}
