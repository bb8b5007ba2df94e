// Package message holds small helpers for hand-built protobuf wire messages.
package message

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

var ErrMalformed = errors.New("message: malformed wire data")

// Builder appends tagged protobuf fields to a buffer.
type Builder struct {
	buf []byte
}

func (b *Builder) Varint(num protowire.Number, v uint64) *Builder {
	b.buf = protowire.AppendTag(b.buf, num, protowire.VarintType)
	b.buf = protowire.AppendVarint(b.buf, v)
	return b
}

func (b *Builder) Bytes(num protowire.Number, v []byte) *Builder {
	b.buf = protowire.AppendTag(b.buf, num, protowire.BytesType)
	b.buf = protowire.AppendBytes(b.buf, v)
	return b
}

func (b *Builder) String(num protowire.Number, v string) *Builder {
	b.buf = protowire.AppendTag(b.buf, num, protowire.BytesType)
	b.buf = protowire.AppendString(b.buf, v)
	return b
}

func (b *Builder) Fixed32(num protowire.Number, v uint32) *Builder {
	b.buf = protowire.AppendTag(b.buf, num, protowire.Fixed32Type)
	b.buf = protowire.AppendFixed32(b.buf, v)
	return b
}

func (b *Builder) Encode() []byte {
	return b.buf
}

// Field is one decoded field. Only the member matching Type is set.
type Field struct {
	Num     protowire.Number
	Type    protowire.Type
	Varint  uint64
	Fixed32 uint32
	Bytes   []byte
}

// Decode walks every field of data in order. Unknown wire types are skipped.
func Decode(data []byte, fn func(f Field) error) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		data = data[n:]
		f := Field{Num: num, Type: typ}
		switch typ {
		case protowire.VarintType:
			f.Varint, n = protowire.ConsumeVarint(data)
		case protowire.Fixed32Type:
			f.Fixed32, n = protowire.ConsumeFixed32(data)
		case protowire.BytesType:
			f.Bytes, n = protowire.ConsumeBytes(data)
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
		}
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		data = data[n:]
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}
