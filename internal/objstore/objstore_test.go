package objstore

import (
	"testing"

	"deedles.dev/wlcore/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testObject struct {
	id      uint32
	deleted *[]uint32
}

func (obj *testObject) ID() uint32 { return obj.id }
func (obj *testObject) SetID(id uint32) { obj.id = id }
func (obj *testObject) Dispatch(msg *wire.MessageBuffer) error { return nil }
func (obj *testObject) MethodName(op uint16) string { return "test" }
func (obj *testObject) Delete() { *obj.deleted = append(*obj.deleted, obj.id) }

func TestStore(t *testing.T) {
	var deleted []uint32
	s := New(wire.ServerIDStart)

	client := &testObject{id: 3, deleted: &deleted}
	require.NoError(t, s.Add(client))
	assert.Error(t, s.Add(&testObject{id: 3, deleted: &deleted}), "ID in use")

	server1 := &testObject{deleted: &deleted}
	server2 := &testObject{deleted: &deleted}
	require.NoError(t, s.Add(server1))
	require.NoError(t, s.Add(server2))
	assert.Equal(t, uint32(wire.ServerIDStart), server1.ID())
	assert.Equal(t, uint32(wire.ServerIDStart+1), server2.ID())

	assert.Equal(t, client, s.Get(3))
	assert.Nil(t, s.Get(4))
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []uint32{wire.ServerIDStart + 1, wire.ServerIDStart, 3}, s.IDs())

	assert.True(t, s.Delete(3))
	assert.False(t, s.Delete(3))
	assert.Equal(t, []uint32{3}, deleted)
	assert.Nil(t, s.Get(3))
}
