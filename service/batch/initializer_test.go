package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/idmint/internal/journal"
	"github.com/viant/idmint/model"
	"github.com/viant/idmint/model/errs"
	"github.com/viant/idmint/service/pool"
)

func TestInitializer_TenBatchesOfHundred(t *testing.T) {
	p := pool.New(model.NewUniverse(1000))
	initializer := New(p)

	for k := 1; k <= 10; k++ {
		cursor, err := initializer.MaterializeNext(nil, 100)
		require.NoError(t, err)
		assert.EqualValues(t, 100*k, cursor)
		assert.Equal(t, 100*k, p.Size())
	}
	assert.True(t, initializer.Complete())
	assert.Equal(t, pool.PhaseReady, p.Phase())

	items := p.Items()
	for i, id := range items {
		assert.EqualValues(t, i, id)
	}

	_, err := initializer.MaterializeNext(nil, 100)
	assert.ErrorIs(t, err, errs.ErrAlreadyComplete)
}

func TestInitializer_MaterializeNext(t *testing.T) {
	testCases := []struct {
		name         string
		universe     model.Universe
		batches      []uint64
		expectCursor uint64
		expectErr    error
	}{
		{name: "zero batch", universe: model.NewUniverse(10), batches: []uint64{0}, expectErr: errs.ErrInvalidBatchSize},
		{name: "clamped tail", universe: model.NewUniverse(10), batches: []uint64{4, 4, 4}, expectCursor: 10},
		{name: "oversized single", universe: model.NewUniverse(10), batches: []uint64{1 << 40}, expectCursor: 10},
		{name: "offset universe", universe: model.Universe{Min: 100, Max: 104}, batches: []uint64{3}, expectCursor: 3},
		{name: "complete", universe: model.NewUniverse(2), batches: []uint64{2, 1}, expectCursor: 2, expectErr: errs.ErrAlreadyComplete},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			initializer := New(pool.New(testCase.universe))
			var err error
			for _, b := range testCase.batches {
				if _, err = initializer.MaterializeNext(nil, b); err != nil {
					break
				}
			}
			if testCase.expectErr != nil {
				assert.ErrorIs(t, err, testCase.expectErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, testCase.expectCursor, initializer.Cursor())
		})
	}
}

func TestInitializer_BatchIdentifiers(t *testing.T) {
	p := pool.New(model.Universe{Min: 100, Max: 104})
	initializer := New(p)
	_, err := initializer.MaterializeNext(nil, 3)
	require.NoError(t, err)
	assert.Equal(t, []uint64{100, 101, 102}, p.Items())
	assert.EqualValues(t, 2, initializer.Remaining())
}

func TestInitializer_Rollback(t *testing.T) {
	p := pool.New(model.NewUniverse(10))
	initializer := New(p)
	_, err := initializer.MaterializeNext(nil, 3)
	require.NoError(t, err)

	j := journal.New()
	_, err = initializer.MaterializeNext(j, 5)
	require.NoError(t, err)
	j.Rollback()
	assert.EqualValues(t, 3, initializer.Cursor())
	assert.Equal(t, 3, p.Size())
}
