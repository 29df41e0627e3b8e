// Package statetest holds the behaviour every state store must share.
package statetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/idmint/model"
	"github.com/viant/idmint/service/dao"
	"github.com/viant/idmint/service/dao/criteria"
	"github.com/viant/idmint/service/dao/state"
)

// Sample returns a populated state.
func Sample(name string, strategy model.Strategy, version uint64) *model.State {
	return &model.State{
		Name:      name,
		Universe:  model.NewUniverse(1000),
		Strategy:  strategy,
		Cursor:    1000,
		Pool:      []uint64{4, 9, 2},
		Holdings:  map[string][]uint64{"alice": {7, 3}, "bob": {999}},
		Nonces:    map[string]uint64{"alice": 2, "bob": 1},
		Proceeds:  300,
		Price:     100,
		Version:   version,
		UpdatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

// Run exercises save, load, versioning, list and delete against svc.
func Run(t *testing.T, svc dao.Service[string, model.State]) {
	ctx := context.Background()

	_, err := svc.Load(ctx, "tickets")
	assert.ErrorIs(t, err, dao.ErrNotFound)
	assert.ErrorIs(t, svc.Save(ctx, nil), dao.ErrNilEntity)
	assert.ErrorIs(t, svc.Save(ctx, &model.State{}), dao.ErrInvalidID)

	state := Sample("tickets", model.StrategyPool, 1)
	require.NoError(t, svc.Save(ctx, state))

	loaded, err := svc.Load(ctx, "tickets")
	require.NoError(t, err)
	assert.Equal(t, state, loaded)

	loaded.Holdings["alice"][0] = 1
	again, err := svc.Load(ctx, "tickets")
	require.NoError(t, err)
	assert.EqualValues(t, 7, again.Holdings["alice"][0], "loaded state does not alias the store")

	assert.ErrorIs(t, svc.Save(ctx, Sample("tickets", model.StrategyPool, 1)), dao.ErrConflict)

	next := Sample("tickets", model.StrategyPool, 2)
	next.Pool = []uint64{4, 9}
	next.Holdings["carol"] = []uint64{2}
	require.NoError(t, svc.Save(ctx, next))
	loaded, err = svc.Load(ctx, "tickets")
	require.NoError(t, err)
	assert.Equal(t, next, loaded)

	require.NoError(t, svc.Save(ctx, Sample("seats", model.StrategyLazy, 1)))
	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	lazy, err := svc.List(ctx, dao.NewParameter(criteria.ByStrategy, string(model.StrategyLazy)))
	require.NoError(t, err)
	require.Len(t, lazy, 1)
	assert.Equal(t, "seats", lazy[0].Name)

	require.NoError(t, svc.Delete(ctx, "seats"))
	assert.ErrorIs(t, svc.Delete(ctx, "seats"), dao.ErrNotFound)
	_, err = svc.Load(ctx, "seats")
	assert.ErrorIs(t, err, dao.ErrNotFound)
}

// RunDeltas exercises Apply against svc: version ordering, pool swaps and
// growth, ledger appends and nonce updates.
func RunDeltas(t *testing.T, svc state.Service) {
	ctx := context.Background()
	updatedAt := time.Date(2026, 1, 2, 4, 0, 0, 0, time.UTC)

	assert.ErrorIs(t, svc.Apply(ctx, nil), dao.ErrNilEntity)
	assert.ErrorIs(t, svc.Apply(ctx, &model.Delta{Version: 1}), dao.ErrInvalidID)
	assert.ErrorIs(t, svc.Apply(ctx, &model.Delta{Name: "lanes", Version: 1}), dao.ErrNotFound)

	base := Sample("lanes", model.StrategyPool, 1)
	require.NoError(t, svc.Save(ctx, base))

	assert.ErrorIs(t, svc.Apply(ctx, &model.Delta{Name: "lanes", Version: 1, PoolSize: 3}), dao.ErrConflict, "replayed version")
	assert.ErrorIs(t, svc.Apply(ctx, &model.Delta{Name: "lanes", Version: 3, PoolSize: 3}), dao.ErrConflict, "skipped version")

	// swap-and-pop of slot 0: the last value moves into it, the pool shrinks
	swap := &model.Delta{
		Name:      "lanes",
		Version:   2,
		Cursor:    1000,
		PoolSize:  2,
		Slots:     []model.Slot{{Index: 0, ID: 2}},
		Assigned:  []model.Assignment{{ID: 4, Owner: "carol"}},
		Nonces:    map[string]uint64{"carol": 1},
		Proceeds:  400,
		Price:     100,
		UpdatedAt: updatedAt,
	}
	require.NoError(t, svc.Apply(ctx, swap))

	expect := Sample("lanes", model.StrategyPool, 2)
	expect.Pool = []uint64{2, 9}
	expect.Holdings["carol"] = []uint64{4}
	expect.Nonces["carol"] = 1
	expect.Proceeds = 400
	expect.UpdatedAt = updatedAt
	loaded, err := svc.Load(ctx, "lanes")
	require.NoError(t, err)
	assert.Equal(t, expect, loaded)

	growth := &model.Delta{
		Name:      "lanes",
		Version:   3,
		Cursor:    1000,
		PoolSize:  4,
		Slots:     []model.Slot{{Index: 2, ID: 11}, {Index: 3, ID: 12}},
		Assigned:  []model.Assignment{{ID: 5, Owner: "alice"}, {ID: 6, Owner: "alice"}},
		Nonces:    map[string]uint64{"alice": 4},
		Proceeds:  400,
		Price:     250,
		UpdatedAt: updatedAt.Add(time.Minute),
	}
	require.NoError(t, svc.Apply(ctx, growth))

	expect.Version = 3
	expect.Pool = []uint64{2, 9, 11, 12}
	expect.Holdings["alice"] = []uint64{7, 3, 5, 6}
	expect.Nonces["alice"] = 4
	expect.Price = 250
	expect.UpdatedAt = growth.UpdatedAt
	loaded, err = svc.Load(ctx, "lanes")
	require.NoError(t, err)
	assert.Equal(t, expect, loaded)

	drain := &model.Delta{
		Name:      "lanes",
		Version:   4,
		Cursor:    1000,
		Assigned:  []model.Assignment{{ID: 2, Owner: "bob"}, {ID: 9, Owner: "bob"}, {ID: 11, Owner: "bob"}, {ID: 12, Owner: "bob"}},
		Proceeds:  400,
		Price:     250,
		UpdatedAt: growth.UpdatedAt,
	}
	require.NoError(t, svc.Apply(ctx, drain))
	expect.Version = 4
	expect.Pool = nil
	expect.Holdings["bob"] = []uint64{999, 2, 9, 11, 12}
	loaded, err = svc.Load(ctx, "lanes")
	require.NoError(t, err)
	assert.Equal(t, expect, loaded)

	// a full save after deltas replaces everything they wrote
	require.NoError(t, svc.Save(ctx, Sample("lanes", model.StrategyPool, 5)))
	loaded, err = svc.Load(ctx, "lanes")
	require.NoError(t, err)
	assert.Equal(t, Sample("lanes", model.StrategyPool, 5), loaded)

	require.NoError(t, svc.Delete(ctx, "lanes"))
	_, err = svc.Load(ctx, "lanes")
	assert.ErrorIs(t, err, dao.ErrNotFound)
}
