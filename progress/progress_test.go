package progress

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgress_Update(t *testing.T) {
	var seen []Counters
	ctx, tr := WithNewTracker(context.Background(), "tickets", 1000, 0, 0, func(p Counters) {
		seen = append(seen, p)
	})

	for i := 0; i < 4; i++ {
		UpdateCtx(ctx, Delta{Materialized: 250})
	}
	UpdateCtx(ctx, Delta{Allocated: 2})
	UpdateCtx(ctx, Delta{Allocated: -5})

	snapshot := tr.Snapshot()
	assert.EqualValues(t, 1000, snapshot.Materialized)
	assert.EqualValues(t, 0, snapshot.Allocated)
	assert.Equal(t, float64(100), tr.Percent())
	require.Len(t, seen, 6)
	assert.Equal(t, float64(25), seen[0].Percent())
	assert.EqualValues(t, 2, seen[4].Allocated)
}

func TestProgress_NoTracker(t *testing.T) {
	UpdateCtx(context.Background(), Delta{Materialized: 1})
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	var p *Progress
	p.Update(Delta{Materialized: 1})
	p.OnChange(nil)
	assert.Equal(t, Counters{}, p.Snapshot())
	assert.Equal(t, float64(0), p.Percent())
}

func TestProgress_Seeded(t *testing.T) {
	_, tr := WithNewTracker(context.TODO(), "tickets", 10, 4, 1, nil)
	tr.Update(Delta{Materialized: 6})
	assert.EqualValues(t, 10, tr.Snapshot().Materialized)
	assert.EqualValues(t, 1, tr.Snapshot().Allocated)
}

func TestProgress_OnChange(t *testing.T) {
	_, tr := WithNewTracker(context.Background(), "tickets", 4, 0, 0, nil)
	var last Counters
	tr.OnChange(func(c Counters) { last = c })
	tr.Update(Delta{Materialized: 1, Allocated: 1})
	assert.Equal(t, "tickets", last.Allocator)
	assert.Equal(t, float64(25), last.Percent())
	assert.Equal(t, tr.Snapshot(), last)

	tr.OnChange(nil)
	tr.Update(Delta{Materialized: 1})
	assert.EqualValues(t, 1, last.Materialized)
	assert.EqualValues(t, 2, tr.Snapshot().Materialized)
}
