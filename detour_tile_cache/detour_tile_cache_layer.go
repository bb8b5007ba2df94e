package detour_tile_cache

import (
	"fmt"

	"github.com/gorustyt/navcore/common/rw"
	"github.com/gorustyt/navcore/detour"
	"github.com/gorustyt/navcore/recast"
)

const (
	DT_TILECACHE_MAGIC   = 'D'<<24 | 'T'<<16 | 'L'<<8 | 'R' ///< 'DTLR'
	DT_TILECACHE_VERSION = 1

	DT_TILECACHE_NULL_AREA     = 0
	DT_TILECACHE_WALKABLE_AREA = 63
	DT_TILECACHE_NULL_IDX      = 0xffff
)

// Serialized header size, padded to 4 bytes.
const tileCacheLayerHeaderSize = 64

type DtTileCacheLayerHeader struct {
	Magic                  int32 ///< Data magic
	Version                int32 ///< Data version
	Tx, Ty, Tlayer         int32
	Bmin, Bmax             [3]float32
	Hmin, Hmax             uint16 ///< Height min/max range
	Width, Height          uint16 ///< Dimension of the layer.
	BorderSize             uint16
	Minx, Maxx, Miny, Maxy uint16 ///< Usable sub-region.
}

func (h *DtTileCacheLayerHeader) ToBin(w *rw.ReaderWriter) {
	w.WriteInt32(h.Magic)
	w.WriteInt32(h.Version)
	w.WriteInt32(h.Tx)
	w.WriteInt32(h.Ty)
	w.WriteInt32(h.Tlayer)
	w.WriteFloat32s(h.Bmin[:])
	w.WriteFloat32s(h.Bmax[:])
	w.WriteUInt16s([]uint16{h.Hmin, h.Hmax, h.Width, h.Height, h.BorderSize, h.Minx, h.Maxx, h.Miny, h.Maxy})
	w.PadZero(2)
}

func (h *DtTileCacheLayerHeader) FromBin(r *rw.ReaderWriter) {
	h.Magic = r.ReadInt32()
	h.Version = r.ReadInt32()
	h.Tx = r.ReadInt32()
	h.Ty = r.ReadInt32()
	h.Tlayer = r.ReadInt32()
	r.ReadFloat32s(h.Bmin[:])
	r.ReadFloat32s(h.Bmax[:])
	var v [9]uint16
	r.ReadUInt16s(v[:])
	h.Hmin, h.Hmax, h.Width, h.Height, h.BorderSize = v[0], v[1], v[2], v[3], v[4]
	h.Minx, h.Maxx, h.Miny, h.Maxy = v[5], v[6], v[7], v[8]
	r.Skip(2)
}

func (h *DtTileCacheLayerHeader) gridSize() int {
	return int(h.Width) * int(h.Height) * 4
}

// DecodeTileCacheLayerHeader reads and checks the header at the start of a layer blob.
func DecodeTileCacheLayerHeader(data []byte) (*DtTileCacheLayerHeader, detour.DtStatus) {
	if len(data) < tileCacheLayerHeaderSize {
		return nil, detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}
	h := &DtTileCacheLayerHeader{}
	r := rw.NewNavMeshDataBinReader(data[:tileCacheLayerHeaderSize])
	h.FromBin(r)
	if r.Err() != nil {
		return nil, detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}
	if h.Magic != DT_TILECACHE_MAGIC {
		return nil, detour.DT_FAILURE | detour.DT_WRONG_MAGIC
	}
	if h.Version != DT_TILECACHE_VERSION {
		return nil, detour.DT_FAILURE | detour.DT_WRONG_VERSION
	}
	return h, detour.DT_SUCCESS
}

// DtTileCacheLayer is a decompressed layer: one height, area and connection byte per cell.
type DtTileCacheLayer struct {
	Header  *DtTileCacheLayerHeader
	Heights []uint16
	Areas   []uint8
	Cons    []uint8
}

// NewDtTileCacheLayerHeader describes a heightfield layer located at tile (tx, ty, tlayer).
func NewDtTileCacheLayerHeader(layer *recast.RcHeightfieldLayer, tx, ty, tlayer int) *DtTileCacheLayerHeader {
	return &DtTileCacheLayerHeader{
		Magic:      DT_TILECACHE_MAGIC,
		Version:    DT_TILECACHE_VERSION,
		Tx:         int32(tx),
		Ty:         int32(ty),
		Tlayer:     int32(tlayer),
		Bmin:       layer.Bmin,
		Bmax:       layer.Bmax,
		Hmin:       uint16(layer.Hmin),
		Hmax:       uint16(layer.Hmax),
		Width:      uint16(layer.Width),
		Height:     uint16(layer.Height),
		BorderSize: uint16(layer.BorderSize),
		Minx:       uint16(layer.Minx),
		Maxx:       uint16(layer.Maxx),
		Miny:       uint16(layer.Miny),
		Maxy:       uint16(layer.Maxy),
	}
}

// DtBuildTileCacheLayer packs header and compressed grid into one blob.
func DtBuildTileCacheLayer(comp DtTileCacheCompressor, header *DtTileCacheLayerHeader,
	heights []uint16, areas, cons []uint8) ([]byte, error) {
	n := int(header.Width) * int(header.Height)
	if len(heights) < n || len(areas) < n || len(cons) < n {
		return nil, fmt.Errorf("%w: grid of %d cells needs %d values", ErrCorruptLayer, n, n)
	}

	grid := rw.NewNavMeshDataBinWriter()
	grid.WriteUInt16s(heights[:n])
	grid.WriteUInt8s(areas[:n])
	grid.WriteUInt8s(cons[:n])
	raw := grid.GetWriteBytes()

	compressed := make([]byte, comp.MaxCompressedSize(len(raw)))
	size, err := comp.Compress(raw, compressed)
	if err != nil {
		return nil, fmt.Errorf("compress layer: %w", err)
	}

	w := rw.NewNavMeshDataBinWriter()
	header.ToBin(w)
	w.WriteUInt8s(compressed[:size])
	return w.GetWriteBytes(), nil
}

// DtBuildTileCacheLayerFromHeightfield packs a recast heightfield layer.
func DtBuildTileCacheLayerFromHeightfield(comp DtTileCacheCompressor, layer *recast.RcHeightfieldLayer, tx, ty, tlayer int) ([]byte, error) {
	header := NewDtTileCacheLayerHeader(layer, tx, ty, tlayer)
	return DtBuildTileCacheLayer(comp, header, layer.Heights, layer.Areas, layer.Cons)
}

// DtDecompressTileCacheLayer unpacks a layer blob. The grid memory comes from alloc when
// one is given.
func DtDecompressTileCacheLayer(comp DtTileCacheCompressor, alloc DtTileCacheAlloc, data []byte) (*DtTileCacheLayer, detour.DtStatus) {
	header, status := DecodeTileCacheLayerHeader(data)
	if status.Failed() {
		return nil, status
	}

	gridSize := header.gridSize()
	var buffer []byte
	if alloc != nil {
		buffer = alloc.Alloc(gridSize)
	}
	if len(buffer) < gridSize {
		buffer = make([]byte, gridSize)
	}
	n, err := comp.Decompress(data[tileCacheLayerHeaderSize:], buffer)
	if err != nil || n != gridSize {
		return nil, detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}

	cells := int(header.Width) * int(header.Height)
	layer := &DtTileCacheLayer{
		Header:  header,
		Heights: make([]uint16, cells),
		Areas:   buffer[2*cells : 3*cells],
		Cons:    buffer[3*cells : 4*cells],
	}
	r := rw.NewNavMeshDataBinReader(buffer[:2*cells])
	r.ReadUInt16s(layer.Heights)
	return layer, detour.DT_SUCCESS
}

// ToHeightfieldLayer views the layer as a recast heightfield layer with cell sizes cs and ch.
func (l *DtTileCacheLayer) ToHeightfieldLayer(cs, ch float32) *recast.RcHeightfieldLayer {
	h := l.Header
	return &recast.RcHeightfieldLayer{
		Bmin:       h.Bmin,
		Bmax:       h.Bmax,
		Cs:         cs,
		Ch:         ch,
		Width:      int(h.Width),
		Height:     int(h.Height),
		BorderSize: int(h.BorderSize),
		Minx:       int(h.Minx),
		Maxx:       int(h.Maxx),
		Miny:       int(h.Miny),
		Maxy:       int(h.Maxy),
		Hmin:       int(h.Hmin),
		Hmax:       int(h.Hmax),
		Heights:    l.Heights,
		Areas:      l.Areas,
		Cons:       l.Cons,
	}
}
