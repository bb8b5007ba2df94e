package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestBuilderDecode(t *testing.T) {
	var b Builder
	data := b.Varint(1, 300).Bytes(2, []byte{9, 8}).String(3, "id").Fixed32(4, 0xdeadbeef).Encode()

	var got []Field
	require.NoError(t, Decode(data, func(f Field) error {
		got = append(got, f)
		return nil
	}))
	require.Len(t, got, 4)
	assert.Equal(t, uint64(300), got[0].Varint)
	assert.Equal(t, []byte{9, 8}, got[1].Bytes)
	assert.Equal(t, "id", string(got[2].Bytes))
	assert.Equal(t, protowire.Fixed32Type, got[3].Type)
	assert.Equal(t, uint32(0xdeadbeef), got[3].Fixed32)
}

func TestDecodeTruncated(t *testing.T) {
	var b Builder
	data := b.Bytes(1, []byte("hello")).Encode()
	err := Decode(data[:len(data)-2], func(Field) error { return nil })
	require.ErrorIs(t, err, ErrMalformed)
}
