package rw

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderWriterPrimitives(t *testing.T) {
	w := NewNavMeshDataBinWriter()
	w.WriteUInt8(7)
	w.WriteUInt16(0xbeef)
	w.WriteInt32(-42)
	w.WriteFloat32s([]float32{1.5, -2.25})
	w.WriteUInt8s([]byte("abc"))

	r := NewNavMeshDataBinReader(w.GetWriteBytes())
	assert.Equal(t, uint8(7), r.ReadUInt8())
	assert.Equal(t, uint16(0xbeef), r.ReadUInt16())
	assert.Equal(t, int32(-42), r.ReadInt32())
	fs := make([]float32, 2)
	r.ReadFloat32s(fs)
	assert.Equal(t, []float32{1.5, -2.25}, fs)
	assert.Equal(t, []byte("abc"), r.ReadBytes(3))
	require.NoError(t, r.Err())
	assert.Equal(t, 0, r.Size())
}

func TestReaderStickyError(t *testing.T) {
	r := NewNavMeshDataBinReader([]byte{1, 2})
	assert.Equal(t, uint32(0), r.ReadUInt32())
	require.ErrorIs(t, r.Err(), ErrShortBuffer)
	// later reads keep failing quietly
	assert.Equal(t, uint8(0), r.ReadUInt8())
	assert.Nil(t, r.ReadBytes(1))
}
