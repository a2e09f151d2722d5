package bin

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, int32(-2)))
	require.NoError(t, Write(&buf, uint32(0x01020304)))
	assert.Equal(t, 8, buf.Len())

	i, err := Read[int32](&buf)
	require.NoError(t, err)
	assert.Equal(t, int32(-2), i)
	u, err := Read[uint32](&buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x01020304), u)

	_, err = Read[uint32](&buf)
	assert.Error(t, err)
}

func TestPack(t *testing.T) {
	vals := []uint32{1, 4, 0xffffffff}
	data := Pack(vals)
	assert.Len(t, data, 12)
	assert.Equal(t, vals, Unpack[uint32](data))
	assert.Equal(t, vals[:2], Unpack[uint32](data[:11]), "trailing bytes are ignored")
	assert.Empty(t, Unpack[uint32](nil))
}
