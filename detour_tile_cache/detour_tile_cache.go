package detour_tile_cache

import (
	"math"

	"github.com/gorustyt/navcore/common"
	"github.com/gorustyt/navcore/common/rw"
	"github.com/gorustyt/navcore/detour"
	"github.com/gorustyt/navcore/recast"
)

type DtObstacleRef uint32

type DtCompressedTileRef uint32

// / Flags for addTile
const DT_COMPRESSEDTILE_FREE_DATA = 0x01 ///< Navmesh owns the tile memory and should free it.

// Region partitioning used by the tile rebuild.
const (
	DT_PARTITION_WATERSHED = iota
	DT_PARTITION_MONOTONE
)

type DtCompressedTile struct {
	salt       uint32 ///< Counter describing modifications to the tile.
	index      int
	Header     *DtTileCacheLayerHeader
	Compressed []byte
	Data       []byte
	Flags      uint32
	next       *DtCompressedTile
}

type DtTileCacheParams struct {
	Orig                   [3]float32
	Cs, Ch                 float32
	Width, Height          int
	WalkableHeight         float32
	WalkableRadius         float32
	WalkableClimb          float32
	MaxSimplificationError float32
	MaxTiles               int
	MaxObstacles           int

	MinRegionArea        int
	MergeRegionArea      int
	MaxEdgeLen           int
	MaxVertsPerPoly      int
	DetailSampleDist     float32
	DetailSampleMaxError float32
	Partition            int
}

const (
	tileCacheParamsBaseSize = 60
	tileCacheParamsSize     = tileCacheParamsBaseSize + 28
)

// ToBin writes the params. Legacy output stops after the fields older files carried.
func (p *DtTileCacheParams) ToBin(legacy bool) []byte {
	w := rw.NewNavMeshDataBinWriter()
	w.WriteFloat32s(p.Orig[:])
	w.WriteFloat32(p.Cs)
	w.WriteFloat32(p.Ch)
	w.WriteInt32(int32(p.Width))
	w.WriteInt32(int32(p.Height))
	w.WriteFloat32(p.WalkableHeight)
	w.WriteFloat32(p.WalkableRadius)
	w.WriteFloat32(p.WalkableClimb)
	w.WriteFloat32(p.MaxSimplificationError)
	w.WriteInt32(int32(p.MaxTiles))
	w.WriteInt32(int32(p.MaxObstacles))
	if legacy {
		return w.GetWriteBytes()
	}
	w.WriteInt32(int32(p.MinRegionArea))
	w.WriteInt32(int32(p.MergeRegionArea))
	w.WriteInt32(int32(p.MaxEdgeLen))
	w.WriteInt32(int32(p.MaxVertsPerPoly))
	w.WriteFloat32(p.DetailSampleDist)
	w.WriteFloat32(p.DetailSampleMaxError)
	w.WriteInt32(int32(p.Partition))
	return w.GetWriteBytes()
}

// FromBin reads params written by ToBin. Fields missing from legacy data keep their
// current values.
func (p *DtTileCacheParams) FromBin(data []byte) error {
	if len(data) < tileCacheParamsBaseSize {
		return ErrCorruptLayer
	}
	r := rw.NewNavMeshDataBinReader(data)
	r.ReadFloat32s(p.Orig[:])
	p.Cs = r.ReadFloat32()
	p.Ch = r.ReadFloat32()
	p.Width = int(r.ReadInt32())
	p.Height = int(r.ReadInt32())
	p.WalkableHeight = r.ReadFloat32()
	p.WalkableRadius = r.ReadFloat32()
	p.WalkableClimb = r.ReadFloat32()
	p.MaxSimplificationError = r.ReadFloat32()
	p.MaxTiles = int(r.ReadInt32())
	p.MaxObstacles = int(r.ReadInt32())
	if len(data) >= tileCacheParamsSize {
		p.MinRegionArea = int(r.ReadInt32())
		p.MergeRegionArea = int(r.ReadInt32())
		p.MaxEdgeLen = int(r.ReadInt32())
		p.MaxVertsPerPoly = int(r.ReadInt32())
		p.DetailSampleDist = r.ReadFloat32()
		p.DetailSampleMaxError = r.ReadFloat32()
		p.Partition = int(r.ReadInt32())
	}
	return r.Err()
}

// ParamsBinSize reports how many bytes FromBin consumes from data.
func ParamsBinSize(legacy bool) int {
	if legacy {
		return tileCacheParamsBaseSize
	}
	return tileCacheParamsSize
}

const (
	MAX_REQUESTS = 64
	MAX_UPDATE   = 64
)

const (
	REQUEST_ADD = iota
	REQUEST_REMOVE
)

type obstacleRequest struct {
	action int
	ref    DtObstacleRef
}

type DtTileCache struct {
	m_tileLutSize int ///< Tile hash lookup size (must be pot).
	m_tileLutMask int ///< Tile hash lookup mask.

	m_posLookup    []*DtCompressedTile ///< Tile hash lookup.
	m_nextFreeTile *DtCompressedTile   ///< Freelist of tiles.
	m_tiles        []DtCompressedTile  ///< List of tiles.

	m_saltBits int ///< Number of salt bits in the tile ID.
	m_tileBits int ///< Number of tile bits in the tile ID.

	m_params DtTileCacheParams
	m_talloc DtTileCacheAlloc
	m_tcomp  DtTileCacheCompressor
	m_tmproc DtTileCacheMeshProcess
	m_ctx    recast.RcContext

	m_obstacles        []DtTileCacheObstacle
	m_nextFreeObstacle *DtTileCacheObstacle

	m_reqs   []obstacleRequest
	m_update []DtCompressedTileRef
}

func NewDtTileCache() *DtTileCache {
	return &DtTileCache{}
}

func (d *DtTileCache) GetAlloc() DtTileCacheAlloc           { return d.m_talloc }
func (d *DtTileCache) GetCompressor() DtTileCacheCompressor { return d.m_tcomp }
func (d *DtTileCache) GetParams() *DtTileCacheParams        { return &d.m_params }

// SetContext routes rebuild logs and timers to ctx.
func (d *DtTileCache) SetContext(ctx recast.RcContext) { d.m_ctx = ctx }

func (d *DtTileCache) GetTileCount() int               { return len(d.m_tiles) }
func (d *DtTileCache) GetTile(i int) *DtCompressedTile { return &d.m_tiles[i] }

func (d *DtTileCache) GetObstacleCount() int                  { return len(d.m_obstacles) }
func (d *DtTileCache) GetObstacle(i int) *DtTileCacheObstacle { return &d.m_obstacles[i] }

// / Encodes a tile id.
func (d *DtTileCache) encodeTileId(salt uint32, it int) DtCompressedTileRef {
	return DtCompressedTileRef(salt<<d.m_tileBits | uint32(it))
}

// / Decodes a tile salt.
func (d *DtTileCache) decodeTileIdSalt(ref DtCompressedTileRef) uint32 {
	saltMask := uint32(1)<<d.m_saltBits - 1
	return (uint32(ref) >> d.m_tileBits) & saltMask
}

// / Decodes a tile id.
func (d *DtTileCache) decodeTileIdTile(ref DtCompressedTileRef) int {
	tileMask := uint32(1)<<d.m_tileBits - 1
	return int(uint32(ref) & tileMask)
}

// / Encodes an obstacle id.
func encodeObstacleId(salt uint16, it int) DtObstacleRef {
	return DtObstacleRef(uint32(salt)<<16 | uint32(it))
}

// / Decodes an obstacle salt.
func decodeObstacleIdSalt(ref DtObstacleRef) uint16 {
	return uint16(uint32(ref) >> 16)
}

// / Decodes an obstacle id.
func decodeObstacleIdObstacle(ref DtObstacleRef) int {
	return int(uint32(ref) & 0xffff)
}

// Init sizes the tile and obstacle pools. alloc may be nil, in which case a linear
// allocator is used; tmproc may be nil.
func (d *DtTileCache) Init(params *DtTileCacheParams, talloc DtTileCacheAlloc,
	tcomp DtTileCacheCompressor, tmproc DtTileCacheMeshProcess) detour.DtStatus {
	if params == nil || tcomp == nil || params.MaxTiles <= 0 || params.MaxObstacles < 0 ||
		params.MaxObstacles > 0xffff || params.Cs <= 0 || params.Ch <= 0 {
		return detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}
	if talloc == nil {
		talloc = NewLinearAllocator(32 * 1024)
	}
	d.m_talloc = talloc
	d.m_tcomp = tcomp
	d.m_tmproc = tmproc
	d.m_params = *params
	if d.m_params.MaxVertsPerPoly < 3 || d.m_params.MaxVertsPerPoly > detour.DT_VERTS_PER_POLYGON {
		d.m_params.MaxVertsPerPoly = detour.DT_VERTS_PER_POLYGON
	}
	d.m_reqs = make([]obstacleRequest, 0, MAX_REQUESTS)
	d.m_update = make([]DtCompressedTileRef, 0, MAX_UPDATE)

	// Alloc space for obstacles.
	d.m_obstacles = make([]DtTileCacheObstacle, d.m_params.MaxObstacles)
	d.m_nextFreeObstacle = nil
	for i := d.m_params.MaxObstacles - 1; i >= 0; i-- {
		d.m_obstacles[i].salt = 1
		d.m_obstacles[i].index = i
		d.m_obstacles[i].next = d.m_nextFreeObstacle
		d.m_nextFreeObstacle = &d.m_obstacles[i]
	}

	// Init tiles
	d.m_tileLutSize = int(common.NextPow2(uint32(d.m_params.MaxTiles / 4)))
	if d.m_tileLutSize == 0 {
		d.m_tileLutSize = 1
	}
	d.m_tileLutMask = d.m_tileLutSize - 1

	d.m_tiles = make([]DtCompressedTile, d.m_params.MaxTiles)
	d.m_posLookup = make([]*DtCompressedTile, d.m_tileLutSize)
	d.m_nextFreeTile = nil
	for i := d.m_params.MaxTiles - 1; i >= 0; i-- {
		d.m_tiles[i].salt = 1
		d.m_tiles[i].index = i
		d.m_tiles[i].next = d.m_nextFreeTile
		d.m_nextFreeTile = &d.m_tiles[i]
	}

	// Init ID generator values.
	d.m_tileBits = int(common.Ilog2(common.NextPow2(uint32(d.m_params.MaxTiles))))
	// Only allow 31 salt bits, since the salt mask is calculated using 32bit uint and it will overflow.
	d.m_saltBits = min(31, 32-d.m_tileBits)
	if d.m_saltBits < 10 {
		return detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}

	return detour.DT_SUCCESS
}

// GetTilesAt returns the refs of every layer stored at tile (tx, ty).
func (d *DtTileCache) GetTilesAt(tx, ty int) []DtCompressedTileRef {
	var tiles []DtCompressedTileRef

	// Find tile based on hash.
	h := common.ComputeTileHash(tx, ty, d.m_tileLutMask)
	for tile := d.m_posLookup[h]; tile != nil; tile = tile.next {
		if tile.Header != nil && int(tile.Header.Tx) == tx && int(tile.Header.Ty) == ty {
			tiles = append(tiles, d.GetTileRef(tile))
		}
	}
	return tiles
}

func (d *DtTileCache) getTileAt(tx, ty, tlayer int) *DtCompressedTile {
	// Find tile based on hash.
	h := common.ComputeTileHash(tx, ty, d.m_tileLutMask)
	for tile := d.m_posLookup[h]; tile != nil; tile = tile.next {
		if tile.Header != nil &&
			int(tile.Header.Tx) == tx &&
			int(tile.Header.Ty) == ty &&
			int(tile.Header.Tlayer) == tlayer {
			return tile
		}
	}
	return nil
}

func (d *DtTileCache) GetTileRef(tile *DtCompressedTile) DtCompressedTileRef {
	if tile == nil {
		return 0
	}
	return d.encodeTileId(tile.salt, tile.index)
}

func (d *DtTileCache) GetTileByRef(ref DtCompressedTileRef) *DtCompressedTile {
	if ref == 0 {
		return nil
	}
	tileIndex := d.decodeTileIdTile(ref)
	tileSalt := d.decodeTileIdSalt(ref)
	if tileIndex >= len(d.m_tiles) {
		return nil
	}
	tile := &d.m_tiles[tileIndex]
	if tile.salt != tileSalt || tile.Header == nil {
		return nil
	}
	return tile
}

// AddTile stores a layer blob built by DtBuildTileCacheLayer.
func (d *DtTileCache) AddTile(data []byte, flags uint32) (DtCompressedTileRef, detour.DtStatus) {
	// Make sure the data is in right format.
	header, status := DecodeTileCacheLayerHeader(data)
	if status.Failed() {
		return 0, status
	}

	// Make sure the location is free.
	if d.getTileAt(int(header.Tx), int(header.Ty), int(header.Tlayer)) != nil {
		return 0, detour.DT_FAILURE
	}

	// Find empty slot.
	tile := d.m_nextFreeTile
	if tile == nil {
		return 0, detour.DT_FAILURE | detour.DT_OUT_OF_MEMORY
	}
	d.m_nextFreeTile = tile.next
	tile.next = nil

	// Insert tile into the position lut.
	h := common.ComputeTileHash(int(header.Tx), int(header.Ty), d.m_tileLutMask)
	tile.next = d.m_posLookup[h]
	d.m_posLookup[h] = tile

	// Init tile.
	tile.Header = header
	tile.Data = data
	tile.Compressed = data[tileCacheLayerHeaderSize:]
	tile.Flags = flags

	return d.GetTileRef(tile), detour.DT_SUCCESS
}

// RemoveTile frees the slot of ref and returns the blob it held.
func (d *DtTileCache) RemoveTile(ref DtCompressedTileRef) ([]byte, detour.DtStatus) {
	if ref == 0 {
		return nil, detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}
	tileIndex := d.decodeTileIdTile(ref)
	tileSalt := d.decodeTileIdSalt(ref)
	if tileIndex >= len(d.m_tiles) {
		return nil, detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}
	tile := &d.m_tiles[tileIndex]
	if tile.salt != tileSalt || tile.Header == nil {
		return nil, detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}

	// Remove tile from hash lookup.
	h := common.ComputeTileHash(int(tile.Header.Tx), int(tile.Header.Ty), d.m_tileLutMask)
	var prev *DtCompressedTile
	for cur := d.m_posLookup[h]; cur != nil; cur = cur.next {
		if cur == tile {
			if prev != nil {
				prev.next = cur.next
			} else {
				d.m_posLookup[h] = cur.next
			}
			break
		}
		prev = cur
	}

	data := tile.Data

	// Reset tile.
	tile.Header = nil
	tile.Data = nil
	tile.Compressed = nil
	tile.Flags = 0

	// Update salt, salt should never be zero.
	tile.salt = (tile.salt + 1) & (uint32(1)<<d.m_saltBits - 1)
	if tile.salt == 0 {
		tile.salt++
	}

	// Add to free list.
	tile.next = d.m_nextFreeTile
	d.m_nextFreeTile = tile

	return data, detour.DT_SUCCESS
}

// QueryTiles returns the tiles whose tight bounds overlap [bmin, bmax], at most maxResults.
func (d *DtTileCache) QueryTiles(bmin, bmax []float32, maxResults int) []DtCompressedTileRef {
	var results []DtCompressedTileRef
	tw := float32(d.m_params.Width) * d.m_params.Cs
	th := float32(d.m_params.Height) * d.m_params.Cs
	tx0 := int(math.Floor(float64((bmin[0] - d.m_params.Orig[0]) / tw)))
	tx1 := int(math.Floor(float64((bmax[0] - d.m_params.Orig[0]) / tw)))
	ty0 := int(math.Floor(float64((bmin[2] - d.m_params.Orig[2]) / th)))
	ty1 := int(math.Floor(float64((bmax[2] - d.m_params.Orig[2]) / th)))

	for ty := ty0; ty <= ty1; ty++ {
		for tx := tx0; tx <= tx1; tx++ {
			for _, ref := range d.GetTilesAt(tx, ty) {
				tile := &d.m_tiles[d.decodeTileIdTile(ref)]
				tbmin, tbmax := d.CalcTightTileBounds(tile.Header)
				if common.OverlapBounds(bmin, bmax, tbmin[:], tbmax[:]) {
					if len(results) < maxResults {
						results = append(results, ref)
					}
				}
			}
		}
	}
	return results
}

// CalcTightTileBounds returns the bounds of the usable cells of a layer.
func (d *DtTileCache) CalcTightTileBounds(header *DtTileCacheLayerHeader) (bmin, bmax [3]float32) {
	cs := d.m_params.Cs
	bmin[0] = header.Bmin[0] + float32(header.Minx)*cs
	bmin[1] = header.Bmin[1]
	bmin[2] = header.Bmin[2] + float32(header.Miny)*cs
	bmax[0] = header.Bmin[0] + float32(header.Maxx+1)*cs
	bmax[1] = header.Bmax[1]
	bmax[2] = header.Bmin[2] + float32(header.Maxy+1)*cs
	return bmin, bmax
}

// Update queues the tiles touched by pending obstacle requests and rebuilds one of them.
// upToDate is true once every request has been applied to navmesh.
func (d *DtTileCache) Update(dt float32, navmesh *detour.DtNavMesh) (upToDate bool, status detour.DtStatus) {
	if len(d.m_update) == 0 {
		// Process requests. A request whose touched tiles do not fit in the
		// update list stays queued for a later call.
		handled := 0
		for _, req := range d.m_reqs {
			ob := d.GetObstacleByRef(req.ref)
			if ob == nil {
				handled++
				continue
			}

			touched := ob.touched
			if req.action == REQUEST_ADD {
				// Find touched tiles.
				bmin, bmax := d.obstacleQueryBounds(ob)
				touched = d.QueryTiles(bmin[:], bmax[:], DT_MAX_TOUCHED_TILES)
			}
			if len(d.m_update)+d.countUnqueued(touched) > MAX_UPDATE {
				break
			}
			handled++

			switch req.action {
			case REQUEST_ADD:
				ob.touched = touched
				ob.pending = ob.pending[:0]
				d.queueTouched(ob)
				if len(ob.pending) == 0 {
					ob.State = DT_OBSTACLE_PROCESSED
				}
			case REQUEST_REMOVE:
				// Prepare to remove obstacle.
				ob.State = DT_OBSTACLE_REMOVING
				ob.pending = ob.pending[:0]
				d.queueTouched(ob)
				if len(ob.pending) == 0 {
					d.freeObstacle(ob)
				}
			}
		}
		d.m_reqs = append(d.m_reqs[:0], d.m_reqs[handled:]...)
	}

	status = detour.DT_SUCCESS
	// Process updates
	if len(d.m_update) > 0 {
		// Build mesh
		ref := d.m_update[0]
		status = d.BuildNavMeshTile(ref, navmesh)
		d.m_update = append(d.m_update[:0], d.m_update[1:]...)

		// Update obstacle states.
		for i := range d.m_obstacles {
			ob := &d.m_obstacles[i]
			if ob.State != DT_OBSTACLE_PROCESSING && ob.State != DT_OBSTACLE_REMOVING {
				continue
			}
			// Remove handled tile from pending list.
			for j, p := range ob.pending {
				if p == ref {
					last := len(ob.pending) - 1
					ob.pending[j] = ob.pending[last]
					ob.pending = ob.pending[:last]
					break
				}
			}

			// If all pending tiles processed, change state.
			if len(ob.pending) == 0 {
				if ob.State == DT_OBSTACLE_PROCESSING {
					ob.State = DT_OBSTACLE_PROCESSED
				} else {
					d.freeObstacle(ob)
				}
			}
		}
	}

	upToDate = len(d.m_update) == 0 && len(d.m_reqs) == 0
	return upToDate, status
}

func (d *DtTileCache) queueTouched(ob *DtTileCacheObstacle) {
	// Add tiles to update list.
	for _, ref := range ob.touched {
		if !contains(d.m_update, ref) {
			d.m_update = append(d.m_update, ref)
		}
		ob.pending = append(ob.pending, ref)
	}
}

// countUnqueued returns how many of refs are not yet in the update list.
func (d *DtTileCache) countUnqueued(refs []DtCompressedTileRef) int {
	n := 0
	for _, ref := range refs {
		if !contains(d.m_update, ref) {
			n++
		}
	}
	return n
}

func contains(a []DtCompressedTileRef, v DtCompressedTileRef) bool {
	for _, x := range a {
		if x == v {
			return true
		}
	}
	return false
}

// BuildNavMeshTilesAt rebuilds every layer of tile (tx, ty) into navmesh.
func (d *DtTileCache) BuildNavMeshTilesAt(tx, ty int, navmesh *detour.DtNavMesh) detour.DtStatus {
	for _, ref := range d.GetTilesAt(tx, ty) {
		status := d.BuildNavMeshTile(ref, navmesh)
		if status.Failed() {
			return status
		}
	}
	return detour.DT_SUCCESS
}
