package shm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool(t *testing.T) {
	file, err := Create("shm-test", 8192)
	require.NoError(t, err)

	_, err = file.WriteAt([]byte{1, 2, 3, 4}, 16)
	require.NoError(t, err)

	pool, err := NewPool(file, 4096)
	require.NoError(t, err)
	assert.Equal(t, 4096, pool.Size())
	assert.Equal(t, []byte{1, 2, 3, 4}, pool.Bytes(16, 4))
	assert.Nil(t, pool.Bytes(4094, 4))
	assert.Nil(t, pool.Bytes(-1, 4))

	assert.Error(t, pool.Resize(1024))
	require.NoError(t, pool.Resize(8192))
	assert.Equal(t, 8192, pool.Size())
	assert.NotNil(t, pool.Bytes(4094, 4))

	pool.Ref()
	require.NoError(t, pool.Unref())
	assert.NotNil(t, pool.Bytes(0, 4))
	require.NoError(t, pool.Unref())
	assert.Equal(t, 0, pool.Size())
}

func TestNewPoolRejectsEmpty(t *testing.T) {
	file, err := Create("shm-test-empty", 0)
	require.NoError(t, err)
	defer file.Close()

	_, err = NewPool(file, 0)
	assert.Error(t, err)
}
