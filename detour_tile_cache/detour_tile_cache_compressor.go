package detour_tile_cache

import (
	"errors"

	"github.com/pierrec/lz4/v4"
)

var (
	ErrBufferTooSmall = errors.New("tile cache: buffer too small")
	ErrCorruptLayer   = errors.New("tile cache: corrupt layer data")
)

// DtTileCacheCompressor packs the layer grids stored by the tile cache.
type DtTileCacheCompressor interface {
	// MaxCompressedSize is the worst case output size for bufferSize input bytes.
	MaxCompressedSize(bufferSize int) int
	Compress(buffer, compressed []byte) (int, error)
	Decompress(compressed, buffer []byte) (int, error)
}

const (
	lz4Stored = 0
	lz4Block  = 1
)

// LZ4Compressor stores grids as LZ4 blocks, falling back to a stored copy when the
// data does not shrink. It is not safe for concurrent use.
type LZ4Compressor struct {
	c lz4.Compressor
}

func NewLZ4Compressor() *LZ4Compressor { return &LZ4Compressor{} }

func (l *LZ4Compressor) MaxCompressedSize(bufferSize int) int {
	return lz4.CompressBlockBound(bufferSize) + 1
}

func (l *LZ4Compressor) Compress(buffer, compressed []byte) (int, error) {
	if len(compressed) < l.MaxCompressedSize(len(buffer)) {
		return 0, ErrBufferTooSmall
	}
	n, err := l.c.CompressBlock(buffer, compressed[1:])
	if err != nil {
		return 0, err
	}
	if n == 0 || n >= len(buffer) {
		compressed[0] = lz4Stored
		copy(compressed[1:], buffer)
		return len(buffer) + 1, nil
	}
	compressed[0] = lz4Block
	return n + 1, nil
}

func (l *LZ4Compressor) Decompress(compressed, buffer []byte) (int, error) {
	if len(compressed) == 0 {
		return 0, ErrCorruptLayer
	}
	switch compressed[0] {
	case lz4Stored:
		if len(buffer) < len(compressed)-1 {
			return 0, ErrBufferTooSmall
		}
		return copy(buffer, compressed[1:]), nil
	case lz4Block:
		return lz4.UncompressBlock(compressed[1:], buffer)
	default:
		return 0, ErrCorruptLayer
	}
}

// RawCompressor copies grids as-is.
type RawCompressor struct{}

func (RawCompressor) MaxCompressedSize(bufferSize int) int { return bufferSize }

func (RawCompressor) Compress(buffer, compressed []byte) (int, error) {
	if len(compressed) < len(buffer) {
		return 0, ErrBufferTooSmall
	}
	return copy(compressed, buffer), nil
}

func (RawCompressor) Decompress(compressed, buffer []byte) (int, error) {
	if len(buffer) < len(compressed) {
		return 0, ErrBufferTooSmall
	}
	return copy(buffer, compressed), nil
}
