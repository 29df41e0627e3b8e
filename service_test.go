package idmint

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/idmint/model"
	"github.com/viant/idmint/model/errs"
	"github.com/viant/idmint/policy"
	"github.com/viant/idmint/service/allocator"
	"github.com/viant/idmint/service/entropy"
	"github.com/viant/idmint/service/event"
)

func testConfig() *Config {
	config := DefaultConfig()
	config.Allocator.Universe = model.NewUniverse(20)
	config.Allocator.Price = 10
	config.Policy.Operators = []string{"ops"}
	return config
}

func asOperator() context.Context {
	return policy.WithActor(context.Background(), "ops")
}

func TestService_Stores(t *testing.T) {
	testCases := []struct {
		description string
		store       func(dir string) StoreConfig
	}{
		{description: "memory", store: func(string) StoreConfig { return StoreConfig{Kind: StoreMemory} }},
		{description: "fs", store: func(dir string) StoreConfig { return StoreConfig{Kind: StoreFS, URL: filepath.Join(dir, "state")} }},
		{description: "sqlite", store: func(dir string) StoreConfig {
			return StoreConfig{Kind: StoreSQLite, URL: filepath.Join(dir, "idmint.db")}
		}},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			ctx := context.Background()
			config := testConfig()
			config.Store = testCase.store(t.TempDir())

			srv, err := New(ctx, config)
			require.NoError(t, err)
			alloc := srv.Allocator()
			_, err = alloc.InitializeFull(asOperator())
			require.NoError(t, err)
			result, err := alloc.RequestAllocation(ctx, allocator.Request{Owner: "alice", Paid: 15, Entropy: []byte("e")})
			require.NoError(t, err)
			assert.EqualValues(t, 5, result.Refund)
			_, err = alloc.GrantBatch(asOperator(), []string{"bob", "carol"})
			require.NoError(t, err)
			require.NoError(t, srv.Close())

			if config.Store.Kind == StoreMemory {
				return
			}
			reopened, err := New(ctx, config)
			require.NoError(t, err)
			defer reopened.Close()
			owner, err := reopened.Allocator().OwnerOf(result.Record.Number)
			require.NoError(t, err)
			assert.Equal(t, "alice", owner)
			assert.EqualValues(t, 17, reopened.Allocator().RemainingCapacity())
			assert.Equal(t, 1, reopened.Allocator().CountOf("carol"))
			assert.EqualValues(t, 10, reopened.Allocator().Proceeds())
		})
	}
}

func TestService_CloseReleasesTracing(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	for _, name := range []string{"first.json", "second.json"} {
		config := testConfig()
		config.Tracing = TracingConfig{Enabled: true, OutputFile: filepath.Join(dir, name)}
		srv, err := New(ctx, config)
		require.NoError(t, err)
		_, err = srv.Allocator().Deposit(ctx, "patron", 5)
		require.NoError(t, err)
		require.NoError(t, srv.Close())

		data, err := os.ReadFile(config.Tracing.OutputFile)
		require.NoError(t, err, "each service opens its own trace file once the previous one is closed")
		assert.Contains(t, string(data), "idmint.deposit")
	}
}

func TestService_OperatorOptionAndPolicy(t *testing.T) {
	ctx := context.Background()
	config := testConfig()
	config.Policy = policy.Config{Mode: policy.ModeClosed, AllowList: []string{"alice"}}

	srv, err := New(ctx, config, WithOperators("admin"), WithEntropyProvider(entropy.Static([]byte("seed"))))
	require.NoError(t, err)
	defer srv.Close()
	alloc := srv.Allocator()

	_, err = alloc.InitializeFull(asOperator())
	assert.ErrorIs(t, err, errs.ErrUnauthorized)
	_, err = alloc.InitializeFull(policy.WithActor(ctx, "admin"))
	require.NoError(t, err)

	_, err = alloc.RequestAllocation(ctx, allocator.Request{Owner: "bob", Paid: 10})
	assert.ErrorIs(t, err, errs.ErrUnauthorized)
	_, err = alloc.RequestAllocation(ctx, allocator.Request{Owner: "alice", Paid: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, alloc.CountOf("alice"))
}

func TestService_OperatorSecret(t *testing.T) {
	ctx := context.Background()
	location := filepath.Join(t.TempDir(), "operator.enc")
	require.NoError(t, StoreOperator(ctx, location, "blowfish://default", "vault-ops"))

	config := testConfig()
	config.Operator = OperatorConfig{SecretURL: location, Key: "blowfish://default"}
	srv, err := New(ctx, config)
	require.NoError(t, err)
	defer srv.Close()
	_, err = srv.Allocator().InitializeFull(policy.WithActor(ctx, "vault-ops"))
	assert.NoError(t, err)
}

func TestService_Listener(t *testing.T) {
	ctx := context.Background()
	config := testConfig()
	config.Events.Vendor = "memory"

	var (
		mux   sync.Mutex
		types []string
		done  = make(chan struct{}, 8)
	)
	srv, err := New(ctx, config, WithListener(func(e *event.Event[any]) {
		mux.Lock()
		types = append(types, e.Type())
		mux.Unlock()
		done <- struct{}{}
	}))
	require.NoError(t, err)
	defer srv.Close()
	require.NotNil(t, srv.Events())

	_, err = srv.Allocator().InitializeFull(asOperator())
	require.NoError(t, err)
	_, err = srv.Allocator().RequestAllocation(ctx, allocator.Request{Owner: "alice", Paid: 10})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}
	mux.Lock()
	defer mux.Unlock()
	assert.Equal(t, []string{event.TypePoolMaterialized, event.TypeNumberAllocated}, types)
}

func TestNew_InvalidConfig(t *testing.T) {
	config := testConfig()
	config.Store.Kind = "redis"
	_, err := New(context.Background(), config)
	assert.Error(t, err)

	_, err = New(context.Background(), nil)
	assert.Error(t, err)
}
