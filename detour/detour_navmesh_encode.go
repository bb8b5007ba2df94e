package detour

import (
	"errors"
	"fmt"

	"github.com/gorustyt/navcore/common/rw"
)

var (
	ErrWrongMagic   = errors.New("detour: wrong navmesh data magic")
	ErrWrongVersion = errors.New("detour: wrong navmesh data version")
	ErrCorruptData  = errors.New("detour: corrupt navmesh data")
)

// Serialized element sizes. Sections are padded to 4 bytes.
const (
	meshHeaderSize   = 100
	polySize         = 32
	polyDetailSize   = 10
	bvNodeSize       = 16
	offMeshConSize   = 36
	navMeshParamSize = 28
)

func dtAlign4(x int) int { return (x + 3) &^ 3 }

func getAlignOffset(old int) int {
	return dtAlign4(old) - old
}

func (h *DtMeshHeader) ToBin(w *rw.ReaderWriter) {
	w.WriteInt32(h.Magic)
	w.WriteInt32(h.Version)
	w.WriteInt32(h.X)
	w.WriteInt32(h.Y)
	w.WriteInt32(h.Layer)
	w.WriteUInt32(h.UserId)
	w.WriteInt32(h.PolyCount)
	w.WriteInt32(h.VertCount)
	w.WriteInt32(h.MaxLinkCount)
	w.WriteInt32(h.DetailMeshCount)
	w.WriteInt32(h.DetailVertCount)
	w.WriteInt32(h.DetailTriCount)
	w.WriteInt32(h.BvNodeCount)
	w.WriteInt32(h.OffMeshConCount)
	w.WriteInt32(h.OffMeshBase)
	w.WriteFloat32(h.WalkableHeight)
	w.WriteFloat32(h.WalkableRadius)
	w.WriteFloat32(h.WalkableClimb)
	w.WriteFloat32s(h.Bmin[:])
	w.WriteFloat32s(h.Bmax[:])
	w.WriteFloat32(h.BvQuantFactor)
}

func (h *DtMeshHeader) FromBin(r *rw.ReaderWriter) {
	h.Magic = r.ReadInt32()
	h.Version = r.ReadInt32()
	h.X = r.ReadInt32()
	h.Y = r.ReadInt32()
	h.Layer = r.ReadInt32()
	h.UserId = r.ReadUInt32()
	h.PolyCount = r.ReadInt32()
	h.VertCount = r.ReadInt32()
	h.MaxLinkCount = r.ReadInt32()
	h.DetailMeshCount = r.ReadInt32()
	h.DetailVertCount = r.ReadInt32()
	h.DetailTriCount = r.ReadInt32()
	h.BvNodeCount = r.ReadInt32()
	h.OffMeshConCount = r.ReadInt32()
	h.OffMeshBase = r.ReadInt32()
	h.WalkableHeight = r.ReadFloat32()
	h.WalkableRadius = r.ReadFloat32()
	h.WalkableClimb = r.ReadFloat32()
	r.ReadFloat32s(h.Bmin[:])
	r.ReadFloat32s(h.Bmax[:])
	h.BvQuantFactor = r.ReadFloat32()
}

func (p *DtPoly) ToBin(w *rw.ReaderWriter) {
	w.WriteUInt32(p.FirstLink)
	w.WriteUInt16s(p.Verts[:])
	w.WriteUInt16s(p.Neis[:])
	w.WriteUInt16(p.Flags)
	w.WriteUInt8(p.VertCount)
	w.WriteUInt8(p.AreaAndtype)
}

func (p *DtPoly) FromBin(r *rw.ReaderWriter) {
	p.FirstLink = r.ReadUInt32()
	r.ReadUInt16s(p.Verts[:])
	r.ReadUInt16s(p.Neis[:])
	p.Flags = r.ReadUInt16()
	p.VertCount = r.ReadUInt8()
	p.AreaAndtype = r.ReadUInt8()
}

func (d *DtPolyDetail) ToBin(w *rw.ReaderWriter) {
	w.WriteUInt32(d.VertBase)
	w.WriteUInt32(d.TriBase)
	w.WriteUInt8(d.VertCount)
	w.WriteUInt8(d.TriCount)
}

func (d *DtPolyDetail) FromBin(r *rw.ReaderWriter) {
	d.VertBase = r.ReadUInt32()
	d.TriBase = r.ReadUInt32()
	d.VertCount = r.ReadUInt8()
	d.TriCount = r.ReadUInt8()
}

func (n *DtBVNode) ToBin(w *rw.ReaderWriter) {
	w.WriteUInt16s(n.Bmin[:])
	w.WriteUInt16s(n.Bmax[:])
	w.WriteInt32(n.I)
}

func (n *DtBVNode) FromBin(r *rw.ReaderWriter) {
	r.ReadUInt16s(n.Bmin[:])
	r.ReadUInt16s(n.Bmax[:])
	n.I = r.ReadInt32()
}

func (c *DtOffMeshConnection) ToBin(w *rw.ReaderWriter) {
	w.WriteFloat32s(c.Pos[:])
	w.WriteFloat32(c.Rad)
	w.WriteUInt16(c.Poly)
	w.WriteUInt8(c.Flags)
	w.WriteUInt8(c.Side)
	w.WriteUInt32(c.UserId)
}

func (c *DtOffMeshConnection) FromBin(r *rw.ReaderWriter) {
	r.ReadFloat32s(c.Pos[:])
	c.Rad = r.ReadFloat32()
	c.Poly = r.ReadUInt16()
	c.Flags = r.ReadUInt8()
	c.Side = r.ReadUInt8()
	c.UserId = r.ReadUInt32()
}

func (p *NavMeshParams) ToBin() []byte {
	w := rw.NewNavMeshDataBinWriter()
	w.WriteFloat32s(p.Orig[:])
	w.WriteFloat32(p.TileWidth)
	w.WriteFloat32(p.TileHeight)
	w.WriteInt32(p.MaxTiles)
	w.WriteInt32(p.MaxPolys)
	return w.GetWriteBytes()
}

func (p *NavMeshParams) FromBin(data []byte) error {
	if len(data) < navMeshParamSize {
		return fmt.Errorf("%w: params need %d bytes, got %d", ErrCorruptData, navMeshParamSize, len(data))
	}
	r := rw.NewNavMeshDataBinReader(data)
	r.ReadFloat32s(p.Orig[:])
	p.TileWidth = r.ReadFloat32()
	p.TileHeight = r.ReadFloat32()
	p.MaxTiles = r.ReadInt32()
	p.MaxPolys = r.ReadInt32()
	return r.Err()
}

// dataSize returns the serialized size of the sections following the header.
func (h *DtMeshHeader) dataSize() int {
	size := dtAlign4(4 * 3 * int(h.VertCount))
	size += dtAlign4(polySize * int(h.PolyCount))
	size += dtAlign4(polyDetailSize * int(h.DetailMeshCount))
	size += dtAlign4(4 * 3 * int(h.DetailVertCount))
	size += dtAlign4(4 * int(h.DetailTriCount))
	size += dtAlign4(bvNodeSize * int(h.BvNodeCount))
	size += dtAlign4(offMeshConSize * int(h.OffMeshConCount))
	return size
}

func (d *NavMeshData) ToBin() []byte {
	w := rw.NewNavMeshDataBinWriter()
	d.Header.ToBin(w)
	w.WriteFloat32s(d.NavVerts)
	w.PadZero(getAlignOffset(4 * len(d.NavVerts)))
	for i := range d.NavPolys {
		d.NavPolys[i].ToBin(w)
	}
	w.PadZero(getAlignOffset(polySize * len(d.NavPolys)))
	for i := range d.NavDMeshes {
		d.NavDMeshes[i].ToBin(w)
	}
	w.PadZero(getAlignOffset(polyDetailSize * len(d.NavDMeshes)))
	w.WriteFloat32s(d.NavDVerts)
	w.PadZero(getAlignOffset(4 * len(d.NavDVerts)))
	w.WriteUInt8s(d.NavDTris)
	w.PadZero(getAlignOffset(len(d.NavDTris)))
	for i := range d.NavBvtree {
		d.NavBvtree[i].ToBin(w)
	}
	w.PadZero(getAlignOffset(bvNodeSize * len(d.NavBvtree)))
	for i := range d.OffMeshCons {
		d.OffMeshCons[i].ToBin(w)
	}
	w.PadZero(getAlignOffset(offMeshConSize * len(d.OffMeshCons)))
	return w.GetWriteBytes()
}

func (d *NavMeshData) FromBin(data []byte) error {
	if len(data) < meshHeaderSize {
		return fmt.Errorf("%w: %d bytes is shorter than a tile header", ErrCorruptData, len(data))
	}
	r := rw.NewNavMeshDataBinReader(data)
	h := &d.Header
	h.FromBin(r)
	if h.Magic != DT_NAVMESH_MAGIC {
		return ErrWrongMagic
	}
	if h.Version != DT_NAVMESH_VERSION {
		return fmt.Errorf("%w: %d", ErrWrongVersion, h.Version)
	}
	if h.VertCount < 0 || h.PolyCount < 0 || h.DetailMeshCount < 0 || h.DetailVertCount < 0 ||
		h.DetailTriCount < 0 || h.BvNodeCount < 0 || h.OffMeshConCount < 0 || h.MaxLinkCount < 0 {
		return fmt.Errorf("%w: negative section count", ErrCorruptData)
	}
	if need := h.dataSize(); need > r.Size() {
		return fmt.Errorf("%w: need %d bytes, have %d", ErrCorruptData, need, r.Size())
	}

	d.NavVerts = make([]float32, 3*h.VertCount)
	r.ReadFloat32s(d.NavVerts)
	r.Skip(getAlignOffset(4 * len(d.NavVerts)))
	d.NavPolys = make([]DtPoly, h.PolyCount)
	for i := range d.NavPolys {
		d.NavPolys[i].FromBin(r)
	}
	r.Skip(getAlignOffset(polySize * len(d.NavPolys)))
	d.NavDMeshes = make([]DtPolyDetail, h.DetailMeshCount)
	for i := range d.NavDMeshes {
		d.NavDMeshes[i].FromBin(r)
	}
	r.Skip(getAlignOffset(polyDetailSize * len(d.NavDMeshes)))
	d.NavDVerts = make([]float32, 3*h.DetailVertCount)
	r.ReadFloat32s(d.NavDVerts)
	r.Skip(getAlignOffset(4 * len(d.NavDVerts)))
	d.NavDTris = make([]uint8, 4*h.DetailTriCount)
	r.ReadUInt8s(d.NavDTris)
	r.Skip(getAlignOffset(len(d.NavDTris)))
	d.NavBvtree = make([]DtBVNode, h.BvNodeCount)
	for i := range d.NavBvtree {
		d.NavBvtree[i].FromBin(r)
	}
	r.Skip(getAlignOffset(bvNodeSize * len(d.NavBvtree)))
	d.OffMeshCons = make([]DtOffMeshConnection, h.OffMeshConCount)
	for i := range d.OffMeshCons {
		d.OffMeshCons[i].FromBin(r)
	}
	r.Skip(getAlignOffset(offMeshConSize * len(d.OffMeshCons)))
	if err := r.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptData, err)
	}
	return nil
}
