package event

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/idmint/model"
	"github.com/viant/idmint/service/messaging"
	"github.com/viant/idmint/service/messaging/memory"
)

func TestService_PublisherOf(t *testing.T) {
	testCases := []struct {
		name   string
		vendor messaging.Vendor
		opts   func(t *testing.T) []Option
	}{
		{name: "memory", vendor: messaging.VendorMemory, opts: func(*testing.T) []Option { return nil }},
		{name: "fs", vendor: messaging.VendorFS, opts: func(t *testing.T) []Option {
			return []Option{WithNewFsQueueConfig(FsQueueConfig(t.TempDir()))}
		}},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			srv, err := New(testCase.vendor, testCase.opts(t)...)
			require.NoError(t, err)
			defer srv.Close()

			publisher, err := PublisherOf[model.Allocation](srv)
			require.NoError(t, err)
			same, err := Subscribe[model.Allocation](srv)
			require.NoError(t, err)
			assert.Same(t, publisher, same)
			assert.True(t, publisher.Subscribed())

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			evt := NewEvent(&Context{Allocator: "tickets", EventType: TypeNumberAllocated}, model.Allocation{Owner: "alice", Number: 42})
			require.NoError(t, publisher.Publish(ctx, evt))

			got, err := publisher.Consume(ctx)
			require.NoError(t, err)
			assert.Equal(t, TypeNumberAllocated, got.Type())
			assert.EqualValues(t, 42, got.Data.Number)
			assert.Equal(t, evt.ID, got.ID)
		})
	}
}

func TestService_Listeners(t *testing.T) {
	srv, err := New(messaging.VendorMemory)
	require.NoError(t, err)
	defer srv.Close()

	var mu sync.Mutex
	var typed []uint64
	var all []string
	require.NoError(t, SetListenerOf[model.Allocation](srv, func(e *Event[model.Allocation]) {
		mu.Lock()
		typed = append(typed, e.Data.Number)
		mu.Unlock()
	}))
	srv.SetListener(func(e *Event[any]) {
		mu.Lock()
		all = append(all, e.Type())
		mu.Unlock()
	})

	ctx := context.Background()
	allocations, err := PublisherOf[model.Allocation](srv)
	require.NoError(t, err)
	withdrawals, err := PublisherOf[model.Withdrawal](srv)
	require.NoError(t, err)
	require.NoError(t, allocations.Publish(ctx, NewEvent(&Context{EventType: TypeNumberAllocated}, model.Allocation{Number: 1})))
	require.NoError(t, withdrawals.Publish(ctx, NewEvent(&Context{EventType: TypeProceedsWithdrawn}, model.Withdrawal{Amount: 5})))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(typed) == 1 && len(all) == 2
	}, time.Second, 5*time.Millisecond)
	assert.ElementsMatch(t, []string{TypeNumberAllocated, TypeProceedsWithdrawn}, all)
}

func TestNew_Vendors(t *testing.T) {
	_, err := New("kafka")
	assert.Error(t, err)
	_, err = New(messaging.VendorFS)
	assert.Error(t, err)
}

func TestListener_StopWithoutStart(t *testing.T) {
	l := NewListener[model.Allocation](nil, nil)
	l.Stop()
	l.Stop()
	l.Start()
	l.Stop()
}

func TestListener_StartTwice(t *testing.T) {
	srv, err := New(messaging.VendorMemory)
	require.NoError(t, err)
	defer srv.Close()
	publisher, err := Subscribe[model.Allocation](srv)
	require.NoError(t, err)

	var mu sync.Mutex
	var seen []uint64
	l := NewListener[model.Allocation](publisher, func(e *Event[model.Allocation]) {
		mu.Lock()
		seen = append(seen, e.Data.Number)
		mu.Unlock()
	})
	l.Start()
	l.Start()
	require.NoError(t, publisher.Publish(context.Background(), NewEvent(&Context{EventType: TypeNumberAllocated}, model.Allocation{Number: 3})))
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 1
	}, time.Second, 5*time.Millisecond)
	l.Stop()
	l.Stop()
}

func TestPublisher_DropsUntilSubscribed(t *testing.T) {
	srv, err := New(messaging.VendorMemory, WithNewMemoryQueueConfig(func(string) memory.Config {
		config := memory.DefaultConfig()
		config.QueueBuffer = 2
		return config
	}))
	require.NoError(t, err)
	defer srv.Close()

	publisher, err := PublisherOf[model.Allocation](srv)
	require.NoError(t, err)
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		require.NoError(t, publisher.Publish(ctx, NewEvent(&Context{EventType: TypeNumberAllocated}, model.Allocation{Number: uint64(i)})))
	}
	assert.False(t, publisher.Subscribed())

	publisher.Subscribe()
	require.NoError(t, publisher.Publish(ctx, NewEvent(&Context{EventType: TypeNumberAllocated}, model.Allocation{Number: 42})))
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	got, err := publisher.Consume(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 42, got.Data.Number)
}
