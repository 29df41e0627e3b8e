package tracing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracingFile(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "span.json")
	require.NoError(t, Init("idmint", "0.0.1", fname))
	t.Cleanup(func() { _ = Shutdown(context.Background()) })

	ctx, parent := StartSpan(context.Background(), "allocator.request", KindInternal)
	parent.WithAttributes(map[string]string{"owner": "alice"})
	current, ok := SpanFromContext(ctx)
	assert.True(t, ok)
	assert.NotNil(t, current)

	_, child := StartSpan(ctx, "allocator.persist", KindClient)
	EndSpan(child, errors.New("disk full"))
	EndSpan(parent, nil)

	data, err := os.ReadFile(fname)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "allocator.request"))
	assert.True(t, strings.Contains(string(data), "disk full"))
}

func TestSpan_Nil(t *testing.T) {
	var span *Span
	assert.Nil(t, span.WithAttributes(map[string]string{"k": "v"}))
	span.SetStatus(nil)
	EndSpan(nil, nil)
	_, ok := SpanFromContext(context.Background())
	assert.False(t, ok)
}

func TestShutdown_ClosesOutput(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.json")
	require.NoError(t, Init("idmint", "0.0.1", first))
	require.NotNil(t, output)
	require.NoError(t, Init("idmint", "0.0.1", filepath.Join(dir, "ignored.json")))
	_, err := os.Stat(filepath.Join(dir, "ignored.json"))
	assert.True(t, os.IsNotExist(err), "a second Init does not open another file")

	_, span := StartSpan(context.Background(), "allocator.materialize", KindInternal)
	EndSpan(span, nil)
	require.NoError(t, Shutdown(context.Background()))
	assert.Nil(t, output)
	assert.NoError(t, Shutdown(context.Background()))

	second := filepath.Join(dir, "second.json")
	require.NoError(t, Init("idmint", "0.0.1", second))
	_, span = StartSpan(context.Background(), "allocator.request", KindInternal)
	EndSpan(span, nil)
	require.NoError(t, Shutdown(context.Background()))

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "allocator.materialize"))
	data, err = os.ReadFile(second)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "allocator.request"))
}
