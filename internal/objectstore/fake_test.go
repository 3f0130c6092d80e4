package objectstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakePutGetDeleteExistsHead(t *testing.T) {
	ctx := context.Background()
	f := NewFake()

	require.NoError(t, f.Put(ctx, "memories/m1/documents/d1", []byte("hello"), "text/plain"))

	exists, err := f.Exists(ctx, "memories/m1/documents/d1")
	require.NoError(t, err)
	assert.True(t, exists)

	size, err := f.Head(ctx, "memories/m1/documents/d1")
	require.NoError(t, err)
	assert.EqualValues(t, 5, size)

	data, err := f.Get(ctx, "memories/m1/documents/d1")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, f.Delete(ctx, "memories/m1/documents/d1"))
	_, err = f.Get(ctx, "memories/m1/documents/d1")
	require.Error(t, err)
}

func TestFakeListPrefix(t *testing.T) {
	ctx := context.Background()
	f := NewFake()
	require.NoError(t, f.Put(ctx, "memories/m1/documents/d1", []byte("a"), "text/plain"))
	require.NoError(t, f.Put(ctx, "memories/m1/documents/d2", []byte("b"), "text/plain"))
	require.NoError(t, f.Put(ctx, "memories/m2/documents/d3", []byte("c"), "text/plain"))

	keys, err := f.ListPrefix(ctx, "memories/m1/")
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}
