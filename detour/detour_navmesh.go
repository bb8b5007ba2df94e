package detour

import (
	"math"

	"github.com/gorustyt/navcore/common"
)

// / A navigation mesh based on tiles of convex polygons.
// / @ingroup detour
type DtNavMesh struct {
	params      NavMeshParams ///< Current initialization params.
	orig        [3]float32    ///< Origin of the tile (0,0)
	tileWidth   float32       ///< Dimensions of each tile.
	tileHeight  float32
	maxTiles    int           ///< Max number of tiles.
	tileLutSize int           ///< Tile hash lookup size (must be pot).
	tileLutMask int           ///< Tile hash lookup mask.
	posLookup   []*DtMeshTile ///< Tile hash lookup.
	nextFree    *DtMeshTile   ///< Freelist of tiles.
	tiles       []DtMeshTile  ///< List of tiles.
	saltBits    uint32        ///< Number of salt bits in the tile ID.
	tileBits    uint32        ///< Number of tile bits in the tile ID.
	polyBits    uint32        ///< Number of poly bits in the tile ID.
}

// NewDtNavMesh returns an uninitialized mesh; call Init or InitSingle before use.
func NewDtNavMesh() *DtNavMesh {
	return &DtNavMesh{}
}

// / Initializes the navigation mesh for tiled use.
func (m *DtNavMesh) Init(params *NavMeshParams) DtStatus {
	if params.MaxTiles <= 0 || params.MaxPolys <= 0 {
		return DT_FAILURE | DT_INVALID_PARAM
	}
	m.params = *params
	m.orig = params.Orig
	m.tileWidth = params.TileWidth
	m.tileHeight = params.TileHeight

	// Init tiles
	m.maxTiles = int(params.MaxTiles)
	m.tileLutSize = int(common.NextPow2(uint32(params.MaxTiles / 4)))
	if m.tileLutSize == 0 {
		m.tileLutSize = 1
	}
	m.tileLutMask = m.tileLutSize - 1

	m.tiles = make([]DtMeshTile, m.maxTiles)
	m.posLookup = make([]*DtMeshTile, m.tileLutSize)
	m.nextFree = nil
	for i := m.maxTiles - 1; i >= 0; i-- {
		m.tiles[i].salt = 1
		m.tiles[i].index = i
		m.tiles[i].next = m.nextFree
		m.nextFree = &m.tiles[i]
	}

	// Init ID generator values.
	m.tileBits = common.Ilog2(common.NextPow2(uint32(params.MaxTiles)))
	m.polyBits = common.Ilog2(common.NextPow2(uint32(params.MaxPolys)))
	// Only allow 31 salt bits, since the salt mask is calculated using 32bit uint and it will overflow.
	saltBits := min(31, 32-int(m.tileBits)-int(m.polyBits))
	if saltBits < 10 {
		return DT_FAILURE | DT_INVALID_PARAM
	}
	m.saltBits = uint32(saltBits)
	return DT_SUCCESS
}

// / Initializes the navigation mesh for single tile use.
func (m *DtNavMesh) InitSingle(data *NavMeshData) DtStatus {
	if data == nil {
		return DT_FAILURE | DT_INVALID_PARAM
	}
	header := &data.Header
	if header.Magic != DT_NAVMESH_MAGIC {
		return DT_FAILURE | DT_WRONG_MAGIC
	}
	if header.Version != DT_NAVMESH_VERSION {
		return DT_FAILURE | DT_WRONG_VERSION
	}
	params := NavMeshParams{
		Orig:       header.Bmin,
		TileWidth:  header.Bmax[0] - header.Bmin[0],
		TileHeight: header.Bmax[2] - header.Bmin[2],
		MaxTiles:   1,
		MaxPolys:   max(header.PolyCount, 1),
	}
	status := m.Init(&params)
	if status.Failed() {
		return status
	}
	_, status = m.AddTile(data, 0)
	return status
}

// / The navigation mesh initialization params.
func (m *DtNavMesh) GetParams() *NavMeshParams { return &m.params }

// / The maximum number of tiles supported by the navigation mesh.
func (m *DtNavMesh) GetMaxTiles() int { return m.maxTiles }

// / Returns the tile at the specified index. Tiles without data have a nil Header.
func (m *DtNavMesh) GetTile(i int) *DtMeshTile { return &m.tiles[i] }

// / Derives a standard polygon reference.
func (m *DtNavMesh) EncodePolyId(salt, it, ip uint32) DtPolyRef {
	return DtPolyRef((salt << (m.polyBits + m.tileBits)) | (it << m.polyBits) | ip)
}

// / Decodes a standard polygon reference.
func (m *DtNavMesh) DecodePolyId(ref DtPolyRef) (salt, it, ip uint32) {
	return m.DecodePolyIdSalt(ref), m.DecodePolyIdTile(ref), m.DecodePolyIdPoly(ref)
}

// / Extracts a tile's salt value from the specified polygon reference.
func (m *DtNavMesh) DecodePolyIdSalt(ref DtPolyRef) uint32 {
	saltMask := (uint32(1) << m.saltBits) - 1
	return (uint32(ref) >> (m.polyBits + m.tileBits)) & saltMask
}

// / Extracts the tile's index from the specified polygon reference.
func (m *DtNavMesh) DecodePolyIdTile(ref DtPolyRef) uint32 {
	tileMask := (uint32(1) << m.tileBits) - 1
	return (uint32(ref) >> m.polyBits) & tileMask
}

// / Extracts the polygon's index (within its tile) from the specified polygon reference.
func (m *DtNavMesh) DecodePolyIdPoly(ref DtPolyRef) uint32 {
	polyMask := (uint32(1) << m.polyBits) - 1
	return uint32(ref) & polyMask
}

// / Gets the polygon reference for the tile's base polygon.
func (m *DtNavMesh) GetPolyRefBase(tile *DtMeshTile) DtPolyRef {
	if tile == nil {
		return 0
	}
	return m.EncodePolyId(tile.salt, uint32(tile.index), 0)
}

// / Gets the tile reference for the specified tile.
func (m *DtNavMesh) GetTileRef(tile *DtMeshTile) DtTileRef {
	if tile == nil {
		return 0
	}
	return DtTileRef(m.EncodePolyId(tile.salt, uint32(tile.index), 0))
}

// / Gets the tile for the specified tile reference.
func (m *DtNavMesh) GetTileByRef(ref DtTileRef) *DtMeshTile {
	if ref == 0 {
		return nil
	}
	tileIndex := m.DecodePolyIdTile(DtPolyRef(ref))
	tileSalt := m.DecodePolyIdSalt(DtPolyRef(ref))
	if int(tileIndex) >= m.maxTiles {
		return nil
	}
	tile := &m.tiles[tileIndex]
	if tile.salt != tileSalt {
		return nil
	}
	return tile
}

// / Calculates the tile grid location for the specified world position.
func (m *DtNavMesh) CalcTileLoc(pos []float32) (tx, ty int) {
	tx = int(math.Floor(float64((pos[0] - m.orig[0]) / m.tileWidth)))
	ty = int(math.Floor(float64((pos[2] - m.orig[2]) / m.tileHeight)))
	return tx, ty
}

// / Gets the tile at the specified grid location.
func (m *DtNavMesh) GetTileAt(x, y, layer int) *DtMeshTile {
	// Find tile based on hash.
	h := common.ComputeTileHash(x, y, m.tileLutMask)
	for tile := m.posLookup[h]; tile != nil; tile = tile.next {
		if tile.Header != nil &&
			int(tile.Header.X) == x &&
			int(tile.Header.Y) == y &&
			int(tile.Header.Layer) == layer {
			return tile
		}
	}
	return nil
}

// / Gets all tile layers at the specified grid location.
func (m *DtNavMesh) GetTilesAt(x, y int) []*DtMeshTile {
	var tiles []*DtMeshTile
	// Find tile based on hash.
	h := common.ComputeTileHash(x, y, m.tileLutMask)
	for tile := m.posLookup[h]; tile != nil; tile = tile.next {
		if tile.Header != nil && int(tile.Header.X) == x && int(tile.Header.Y) == y {
			tiles = append(tiles, tile)
		}
	}
	return tiles
}

// / Gets the tile reference for the tile at specified grid location.
func (m *DtNavMesh) GetTileRefAt(x, y, layer int) DtTileRef {
	return m.GetTileRef(m.GetTileAt(x, y, layer))
}

func (m *DtNavMesh) getNeighbourTilesAt(x, y, side int) []*DtMeshTile {
	nx, ny := x, y
	switch side {
	case 0:
		nx++
	case 1:
		nx++
		ny++
	case 2:
		ny++
	case 3:
		nx--
		ny++
	case 4:
		nx--
	case 5:
		nx--
		ny--
	case 6:
		ny--
	case 7:
		nx++
		ny--
	}
	return m.GetTilesAt(nx, ny)
}

// / Gets the tile and polygon for the specified polygon reference.
func (m *DtNavMesh) GetTileAndPolyByRef(ref DtPolyRef) (*DtMeshTile, *DtPoly, DtStatus) {
	if ref == 0 {
		return nil, nil, DT_FAILURE
	}
	salt, it, ip := m.DecodePolyId(ref)
	if int(it) >= m.maxTiles {
		return nil, nil, DT_FAILURE | DT_INVALID_PARAM
	}
	tile := &m.tiles[it]
	if tile.salt != salt || tile.Header == nil {
		return nil, nil, DT_FAILURE | DT_INVALID_PARAM
	}
	if int(ip) >= int(tile.Header.PolyCount) {
		return nil, nil, DT_FAILURE | DT_INVALID_PARAM
	}
	return tile, &tile.Polys[ip], DT_SUCCESS
}

// / Returns the tile and polygon for the specified polygon reference.
// / @warning Only use this function if it is known that the provided polygon reference is valid.
func (m *DtNavMesh) GetTileAndPolyByRefUnsafe(ref DtPolyRef) (*DtMeshTile, *DtPoly) {
	_, it, ip := m.DecodePolyId(ref)
	tile := &m.tiles[it]
	return tile, &tile.Polys[ip]
}

// / Checks the validity of a polygon reference.
func (m *DtNavMesh) IsValidPolyRef(ref DtPolyRef) bool {
	_, _, status := m.GetTileAndPolyByRef(ref)
	return status.Succeed()
}

// / Adds a tile to the navigation mesh.
// / When lastRef is not zero the tile is restored at the index and salt it encodes.
func (m *DtNavMesh) AddTile(data *NavMeshData, lastRef DtTileRef) (DtTileRef, DtStatus) {
	if data == nil {
		return 0, DT_FAILURE | DT_INVALID_PARAM
	}
	header := &data.Header
	if header.Magic != DT_NAVMESH_MAGIC {
		return 0, DT_FAILURE | DT_WRONG_MAGIC
	}
	if header.Version != DT_NAVMESH_VERSION {
		return 0, DT_FAILURE | DT_WRONG_VERSION
	}
	// Do not allow adding more polygons than specified in the NavMesh's maxPolys constraint.
	if m.polyBits < common.Ilog2(common.NextPow2(uint32(header.PolyCount))) {
		return 0, DT_FAILURE | DT_INVALID_PARAM
	}
	// Make sure the location is free.
	if m.GetTileAt(int(header.X), int(header.Y), int(header.Layer)) != nil {
		return 0, DT_FAILURE | DT_ALREADY_OCCUPIED
	}

	// Allocate a tile.
	var tile *DtMeshTile
	if lastRef == 0 {
		if m.nextFree != nil {
			tile = m.nextFree
			m.nextFree = tile.next
			tile.next = nil
		}
	} else {
		// Try to relocate the tile to specific index with same salt.
		tileIndex := int(m.DecodePolyIdTile(DtPolyRef(lastRef)))
		if tileIndex >= m.maxTiles {
			return 0, DT_FAILURE | DT_OUT_OF_MEMORY
		}
		// Try to find the specific tile id from the free list.
		target := &m.tiles[tileIndex]
		var prev *DtMeshTile
		tile = m.nextFree
		for tile != nil && tile != target {
			prev = tile
			tile = tile.next
		}
		// Could not find the correct location.
		if tile != target {
			return 0, DT_FAILURE | DT_OUT_OF_MEMORY
		}
		// Remove from freelist
		if prev == nil {
			m.nextFree = tile.next
		} else {
			prev.next = tile.next
		}
		// Restore salt.
		tile.salt = m.DecodePolyIdSalt(DtPolyRef(lastRef))
	}

	// Make sure we could allocate a tile.
	if tile == nil {
		return 0, DT_FAILURE | DT_OUT_OF_MEMORY
	}

	// Insert tile into the position lut.
	h := common.ComputeTileHash(int(header.X), int(header.Y), m.tileLutMask)
	tile.next = m.posLookup[h]
	m.posLookup[h] = tile

	// Patch header pointers.
	tile.Header = header
	tile.Verts = data.NavVerts
	tile.Polys = data.NavPolys
	tile.DetailMeshes = data.NavDMeshes
	tile.DetailVerts = data.NavDVerts
	tile.DetailTris = data.NavDTris
	tile.BvTree = data.NavBvtree
	tile.OffMeshCons = data.OffMeshCons
	tile.Links = make([]DtLink, header.MaxLinkCount)

	// Build links freelist
	tile.linksFreeList = DT_NULL_LINK
	if len(tile.Links) > 0 {
		tile.linksFreeList = 0
		tile.Links[len(tile.Links)-1].Next = DT_NULL_LINK
		for i := 0; i < len(tile.Links)-1; i++ {
			tile.Links[i].Next = uint32(i + 1)
		}
	}

	// Init tile.
	tile.Data = data

	m.connectIntLinks(tile)

	// Base off-mesh connections to their starting polygons and connect connections inside the tile.
	m.baseOffMeshLinks(tile)
	m.connectExtOffMeshLinks(tile, tile, -1)

	// Create connections with neighbour tiles.

	// Connect with layers in current tile.
	for _, nei := range m.GetTilesAt(int(header.X), int(header.Y)) {
		if nei == tile {
			continue
		}
		m.connectExtLinks(tile, nei, -1)
		m.connectExtLinks(nei, tile, -1)
		m.connectExtOffMeshLinks(tile, nei, -1)
		m.connectExtOffMeshLinks(nei, tile, -1)
	}

	// Connect with neighbour tiles.
	for i := 0; i < 8; i++ {
		for _, nei := range m.getNeighbourTilesAt(int(header.X), int(header.Y), i) {
			m.connectExtLinks(tile, nei, i)
			m.connectExtLinks(nei, tile, dtOppositeTile(i))
			m.connectExtOffMeshLinks(tile, nei, i)
			m.connectExtOffMeshLinks(nei, tile, dtOppositeTile(i))
		}
	}
	return m.GetTileRef(tile), DT_SUCCESS
}

// / Removes the specified tile from the navigation mesh and returns its data.
func (m *DtNavMesh) RemoveTile(ref DtTileRef) (*NavMeshData, DtStatus) {
	if ref == 0 {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}
	tileIndex := m.DecodePolyIdTile(DtPolyRef(ref))
	tileSalt := m.DecodePolyIdSalt(DtPolyRef(ref))
	if int(tileIndex) >= m.maxTiles {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}
	tile := &m.tiles[tileIndex]
	if tile.salt != tileSalt || tile.Header == nil {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}

	// Remove tile from hash lookup.
	h := common.ComputeTileHash(int(tile.Header.X), int(tile.Header.Y), m.tileLutMask)
	var prev *DtMeshTile
	for cur := m.posLookup[h]; cur != nil; cur = cur.next {
		if cur == tile {
			if prev != nil {
				prev.next = cur.next
			} else {
				m.posLookup[h] = cur.next
			}
			break
		}
		prev = cur
	}

	// Remove connections to neighbour tiles.
	x, y := int(tile.Header.X), int(tile.Header.Y)
	for _, nei := range m.GetTilesAt(x, y) {
		if nei == tile {
			continue
		}
		m.unconnectLinks(nei, tile)
	}
	for i := 0; i < 8; i++ {
		for _, nei := range m.getNeighbourTilesAt(x, y, i) {
			m.unconnectLinks(nei, tile)
		}
	}

	data := tile.Data

	// Reset tile.
	tile.Header = nil
	tile.Data = nil
	tile.Polys = nil
	tile.Verts = nil
	tile.Links = nil
	tile.DetailMeshes = nil
	tile.DetailVerts = nil
	tile.DetailTris = nil
	tile.BvTree = nil
	tile.OffMeshCons = nil
	tile.linksFreeList = 0

	// Update salt, salt should never be zero.
	tile.salt = (tile.salt + 1) & ((1 << m.saltBits) - 1)
	if tile.salt == 0 {
		tile.salt++
	}

	// Add to free list.
	tile.next = m.nextFree
	m.nextFree = tile
	return data, DT_SUCCESS
}

func allocLink(tile *DtMeshTile) uint32 {
	if tile.linksFreeList == DT_NULL_LINK {
		return DT_NULL_LINK
	}
	link := tile.linksFreeList
	tile.linksFreeList = tile.Links[link].Next
	return link
}

func freeLink(tile *DtMeshTile, link uint32) {
	tile.Links[link].Next = tile.linksFreeList
	tile.linksFreeList = link
}

func (m *DtNavMesh) connectIntLinks(tile *DtMeshTile) {
	base := m.GetPolyRefBase(tile)
	for i := 0; i < int(tile.Header.PolyCount); i++ {
		poly := &tile.Polys[i]
		poly.FirstLink = DT_NULL_LINK
		if poly.GetType() == DT_POLYTYPE_OFFMESH_CONNECTION {
			continue
		}
		// Build edge links backwards so that the links will be
		// in the linked list from lowest index to highest.
		for j := int(poly.VertCount) - 1; j >= 0; j-- {
			// Skip hard and non-internal edges.
			if poly.Neis[j] == 0 || (poly.Neis[j]&DT_EXT_LINK) != 0 {
				continue
			}
			idx := allocLink(tile)
			if idx != DT_NULL_LINK {
				link := &tile.Links[idx]
				link.Ref = base | DtPolyRef(poly.Neis[j]-1)
				link.Edge = uint8(j)
				link.Side = 0xff
				link.Bmin = 0
				link.Bmax = 0
				// Add to linked list.
				link.Next = poly.FirstLink
				poly.FirstLink = idx
			}
		}
	}
}

func (m *DtNavMesh) unconnectLinks(tile, target *DtMeshTile) {
	if tile == nil || target == nil {
		return
	}
	targetNum := m.DecodePolyIdTile(DtPolyRef(m.GetTileRef(target)))
	for i := 0; i < int(tile.Header.PolyCount); i++ {
		poly := &tile.Polys[i]
		j := poly.FirstLink
		pj := uint32(DT_NULL_LINK)
		for j != DT_NULL_LINK {
			if m.DecodePolyIdTile(tile.Links[j].Ref) == targetNum {
				// Remove link.
				nj := tile.Links[j].Next
				if pj == DT_NULL_LINK {
					poly.FirstLink = nj
				} else {
					tile.Links[pj].Next = nj
				}
				freeLink(tile, j)
				j = nj
			} else {
				// Advance
				pj = j
				j = tile.Links[j].Next
			}
		}
	}
}

func (m *DtNavMesh) connectExtLinks(tile, target *DtMeshTile, side int) {
	if tile == nil {
		return
	}
	// Connect border links.
	for i := 0; i < int(tile.Header.PolyCount); i++ {
		poly := &tile.Polys[i]
		nv := int(poly.VertCount)
		for j := 0; j < nv; j++ {
			// Skip non-portal edges.
			if (poly.Neis[j] & DT_EXT_LINK) == 0 {
				continue
			}
			dir := int(poly.Neis[j] & 0xff)
			if side != -1 && dir != side {
				continue
			}
			// Create new links
			va := tile.Verts[int(poly.Verts[j])*3:]
			vb := tile.Verts[int(poly.Verts[(j+1)%nv])*3:]
			nei, neia := m.findConnectingPolys(va, vb, target, dtOppositeTile(dir), 4)
			for k := range nei {
				idx := allocLink(tile)
				if idx == DT_NULL_LINK {
					continue
				}
				link := &tile.Links[idx]
				link.Ref = nei[k]
				link.Edge = uint8(j)
				link.Side = uint8(dir)
				link.Next = poly.FirstLink
				poly.FirstLink = idx

				// Compress portal limits to a byte value.
				if dir == 0 || dir == 4 {
					tmin := (neia[k*2+0] - va[2]) / (vb[2] - va[2])
					tmax := (neia[k*2+1] - va[2]) / (vb[2] - va[2])
					if tmin > tmax {
						tmin, tmax = tmax, tmin
					}
					link.Bmin = uint8(math.Round(float64(common.Clamp(tmin, 0, 1) * 255)))
					link.Bmax = uint8(math.Round(float64(common.Clamp(tmax, 0, 1) * 255)))
				} else if dir == 2 || dir == 6 {
					tmin := (neia[k*2+0] - va[0]) / (vb[0] - va[0])
					tmax := (neia[k*2+1] - va[0]) / (vb[0] - va[0])
					if tmin > tmax {
						tmin, tmax = tmax, tmin
					}
					link.Bmin = uint8(math.Round(float64(common.Clamp(tmin, 0, 1) * 255)))
					link.Bmax = uint8(math.Round(float64(common.Clamp(tmax, 0, 1) * 255)))
				}
			}
		}
	}
}

func (m *DtNavMesh) connectExtOffMeshLinks(tile, target *DtMeshTile, side int) {
	if tile == nil {
		return
	}
	// Connect off-mesh links.
	// We are interested on links which land from target tile to this tile.
	oppositeSide := uint8(0xff)
	if side != -1 {
		oppositeSide = uint8(dtOppositeTile(side))
	}
	for i := 0; i < int(target.Header.OffMeshConCount); i++ {
		targetCon := &target.OffMeshCons[i]
		if targetCon.Side != oppositeSide {
			continue
		}
		targetPoly := &target.Polys[targetCon.Poly]
		// Skip off-mesh connections which start location could not be connected at all.
		if targetPoly.FirstLink == DT_NULL_LINK {
			continue
		}
		halfExtents := [3]float32{targetCon.Rad, target.Header.WalkableClimb, targetCon.Rad}

		// Find polygon to connect to.
		p := targetCon.Pos[3:6]
		ref, nearestPt := m.findNearestPolyInTile(tile, p, halfExtents[:])
		if ref == 0 {
			continue
		}
		// findNearestPoly may return too optimistic results, further check to make sure.
		if common.Sqr(nearestPt[0]-p[0])+common.Sqr(nearestPt[2]-p[2]) > common.Sqr(targetCon.Rad) {
			continue
		}
		// Make sure the location is on current mesh.
		copy(target.Verts[int(targetPoly.Verts[1])*3:int(targetPoly.Verts[1])*3+3], nearestPt[:])

		// Link off-mesh connection to target poly.
		idx := allocLink(target)
		if idx != DT_NULL_LINK {
			link := &target.Links[idx]
			link.Ref = ref
			link.Edge = 1
			link.Side = oppositeSide
			link.Bmin = 0
			link.Bmax = 0
			// Add to linked list.
			link.Next = targetPoly.FirstLink
			targetPoly.FirstLink = idx
		}

		// Link target poly to off-mesh connection.
		if (targetCon.Flags & DT_OFFMESH_CON_BIDIR) != 0 {
			tidx := allocLink(tile)
			if tidx != DT_NULL_LINK {
				landPoly := &tile.Polys[m.DecodePolyIdPoly(ref)]
				link := &tile.Links[tidx]
				link.Ref = m.GetPolyRefBase(target) | DtPolyRef(targetCon.Poly)
				link.Edge = 0xff
				link.Side = 0xff
				if side != -1 {
					link.Side = uint8(side)
				}
				link.Bmin = 0
				link.Bmax = 0
				// Add to linked list.
				link.Next = landPoly.FirstLink
				landPoly.FirstLink = tidx
			}
		}
	}
}

func (m *DtNavMesh) baseOffMeshLinks(tile *DtMeshTile) {
	base := m.GetPolyRefBase(tile)

	// Base off-mesh connection start points.
	for i := 0; i < int(tile.Header.OffMeshConCount); i++ {
		con := &tile.OffMeshCons[i]
		poly := &tile.Polys[con.Poly]

		halfExtents := [3]float32{con.Rad, tile.Header.WalkableClimb, con.Rad}

		// Find polygon to connect to.
		p := con.Pos[0:3] // First vertex
		ref, nearestPt := m.findNearestPolyInTile(tile, p, halfExtents[:])
		if ref == 0 {
			continue
		}
		// findNearestPoly may return too optimistic results, further check to make sure.
		if common.Sqr(nearestPt[0]-p[0])+common.Sqr(nearestPt[2]-p[2]) > common.Sqr(con.Rad) {
			continue
		}
		// Make sure the location is on current mesh.
		copy(tile.Verts[int(poly.Verts[0])*3:int(poly.Verts[0])*3+3], nearestPt[:])

		// Link off-mesh connection to target poly.
		idx := allocLink(tile)
		if idx != DT_NULL_LINK {
			link := &tile.Links[idx]
			link.Ref = ref
			link.Edge = 0
			link.Side = 0xff
			link.Bmin = 0
			link.Bmax = 0
			// Add to linked list.
			link.Next = poly.FirstLink
			poly.FirstLink = idx
		}

		// Start end-point is always connect back to off-mesh connection.
		tidx := allocLink(tile)
		if tidx != DT_NULL_LINK {
			landPoly := &tile.Polys[m.DecodePolyIdPoly(ref)]
			link := &tile.Links[tidx]
			link.Ref = base | DtPolyRef(con.Poly)
			link.Edge = 0xff
			link.Side = 0xff
			link.Bmin = 0
			link.Bmax = 0
			// Add to linked list.
			link.Next = landPoly.FirstLink
			landPoly.FirstLink = tidx
		}
	}
}

func getSlabCoord(va []float32, side int) float32 {
	if side == 0 || side == 4 {
		return va[0]
	} else if side == 2 || side == 6 {
		return va[2]
	}
	return 0
}

func calcSlabEndPoints(va, vb []float32, side int) (bmin, bmax [2]float32) {
	if side == 0 || side == 4 {
		if va[2] < vb[2] {
			bmin = [2]float32{va[2], va[1]}
			bmax = [2]float32{vb[2], vb[1]}
		} else {
			bmin = [2]float32{vb[2], vb[1]}
			bmax = [2]float32{va[2], va[1]}
		}
	} else if side == 2 || side == 6 {
		if va[0] < vb[0] {
			bmin = [2]float32{va[0], va[1]}
			bmax = [2]float32{vb[0], vb[1]}
		} else {
			bmin = [2]float32{vb[0], vb[1]}
			bmax = [2]float32{va[0], va[1]}
		}
	}
	return bmin, bmax
}

func overlapSlabs(amin, amax, bmin, bmax [2]float32, px, py float32) bool {
	// Check for horizontal overlap.
	// The segment is shrunken a little so that slabs which touch
	// at end points are not connected.
	minx := max(amin[0]+px, bmin[0]+px)
	maxx := min(amax[0]-px, bmax[0]-px)
	if minx > maxx {
		return false
	}

	// Check vertical overlap.
	ad := (amax[1] - amin[1]) / (amax[0] - amin[0])
	ak := amin[1] - ad*amin[0]
	bd := (bmax[1] - bmin[1]) / (bmax[0] - bmin[0])
	bk := bmin[1] - bd*bmin[0]
	aminy := ad*minx + ak
	amaxy := ad*maxx + ak
	bminy := bd*minx + bk
	bmaxy := bd*maxx + bk
	dmin := bminy - aminy
	dmax := bmaxy - amaxy

	// Crossing segments always overlap.
	if dmin*dmax < 0 {
		return true
	}

	// Check for overlap at endpoints.
	thr := common.Sqr(py * 2)
	return dmin*dmin <= thr || dmax*dmax <= thr
}

func (m *DtNavMesh) findConnectingPolys(va, vb []float32, tile *DtMeshTile, side, maxcon int) (con []DtPolyRef, conarea []float32) {
	if tile == nil {
		return nil, nil
	}
	amin, amax := calcSlabEndPoints(va, vb, side)
	apos := getSlabCoord(va, side)

	// Remove links pointing to 'side' and compact the links array.
	mask := uint16(DT_EXT_LINK | side)
	base := m.GetPolyRefBase(tile)
	for i := 0; i < int(tile.Header.PolyCount); i++ {
		poly := &tile.Polys[i]
		nv := int(poly.VertCount)
		for j := 0; j < nv; j++ {
			// Skip edges which do not point to the right side.
			if poly.Neis[j] != mask {
				continue
			}
			vc := tile.Verts[int(poly.Verts[j])*3:]
			vd := tile.Verts[int(poly.Verts[(j+1)%nv])*3:]
			bpos := getSlabCoord(vc, side)

			// Segments are not close enough.
			if common.Abs(apos-bpos) > 0.01 {
				continue
			}

			// Check if the segments touch.
			bmin, bmax := calcSlabEndPoints(vc, vd, side)
			if !overlapSlabs(amin, amax, bmin, bmax, 0.01, tile.Header.WalkableClimb) {
				continue
			}

			// Add return value.
			if len(con) < maxcon {
				conarea = append(conarea, max(amin[0], bmin[0]), min(amax[0], bmax[0]))
				con = append(con, base|DtPolyRef(i))
			}
			break
		}
	}
	return con, conarea
}

func (m *DtNavMesh) queryPolygonsInTile(tile *DtMeshTile, qmin, qmax []float32) []DtPolyRef {
	var polys []DtPolyRef
	base := m.GetPolyRefBase(tile)
	if len(tile.BvTree) > 0 {
		tbmin := tile.Header.Bmin
		tbmax := tile.Header.Bmax
		qfac := tile.Header.BvQuantFactor

		// Calculate quantized box
		// dtClamp query box to world box.
		minx := common.Clamp(qmin[0], tbmin[0], tbmax[0]) - tbmin[0]
		miny := common.Clamp(qmin[1], tbmin[1], tbmax[1]) - tbmin[1]
		minz := common.Clamp(qmin[2], tbmin[2], tbmax[2]) - tbmin[2]
		maxx := common.Clamp(qmax[0], tbmin[0], tbmax[0]) - tbmin[0]
		maxy := common.Clamp(qmax[1], tbmin[1], tbmax[1]) - tbmin[1]
		maxz := common.Clamp(qmax[2], tbmin[2], tbmax[2]) - tbmin[2]
		// Quantize
		bmin := [3]uint16{
			uint16(int(qfac*minx) & 0xfffe),
			uint16(int(qfac*miny) & 0xfffe),
			uint16(int(qfac*minz) & 0xfffe),
		}
		bmax := [3]uint16{
			uint16(int(qfac*maxx+1) | 1),
			uint16(int(qfac*maxy+1) | 1),
			uint16(int(qfac*maxz+1) | 1),
		}

		// Traverse tree
		node := 0
		end := int(tile.Header.BvNodeCount)
		for node < end {
			n := &tile.BvTree[node]
			overlap := common.OverlapQuantBounds(bmin[:], bmax[:], n.Bmin[:], n.Bmax[:])
			isLeafNode := n.I >= 0
			if isLeafNode && overlap {
				polys = append(polys, base|DtPolyRef(n.I))
			}
			if overlap || isLeafNode {
				node++
			} else {
				node += int(-n.I)
			}
		}
		return polys
	}

	var bmin, bmax [3]float32
	for i := 0; i < int(tile.Header.PolyCount); i++ {
		p := &tile.Polys[i]
		// Do not return off-mesh connection polygons.
		if p.GetType() == DT_POLYTYPE_OFFMESH_CONNECTION {
			continue
		}
		// Calc polygon bounds.
		v := tile.Verts[int(p.Verts[0])*3:]
		common.Vcopy(bmin[:], v)
		common.Vcopy(bmax[:], v)
		for j := 1; j < int(p.VertCount); j++ {
			v = tile.Verts[int(p.Verts[j])*3:]
			common.Vmin(bmin[:], v)
			common.Vmax(bmax[:], v)
		}
		if common.OverlapBounds(qmin, qmax, bmin[:], bmax[:]) {
			polys = append(polys, base|DtPolyRef(i))
		}
	}
	return polys
}

func (m *DtNavMesh) findNearestPolyInTile(tile *DtMeshTile, center, halfExtents []float32) (nearest DtPolyRef, nearestPt [3]float32) {
	var bmin, bmax [3]float32
	common.Vsub(bmin[:], center, halfExtents)
	common.Vadd(bmax[:], center, halfExtents)

	// Get nearby polygons from proximity grid.
	polys := m.queryPolygonsInTile(tile, bmin[:], bmax[:])

	// Find nearest polygon amongst the nearby polygons.
	nearestDistanceSqr := float32(math.MaxFloat32)
	for _, ref := range polys {
		closestPtPoly, posOverPoly := m.ClosestPointOnPoly(ref, center)

		// If a point is directly over a polygon and closer than
		// climb height, favor that instead of straight line nearest point.
		var diff [3]float32
		common.Vsub(diff[:], center, closestPtPoly[:])
		var d float32
		if posOverPoly {
			d = common.Abs(diff[1]) - tile.Header.WalkableClimb
			if d > 0 {
				d = d * d
			} else {
				d = 0
			}
		} else {
			d = common.VlenSqr(diff[:])
		}
		if d < nearestDistanceSqr {
			nearestPt = closestPtPoly
			nearestDistanceSqr = d
			nearest = ref
		}
	}
	return nearest, nearestPt
}

// detailTriVerts resolves the three vertices of a detail triangle.
func detailTriVerts(tile *DtMeshTile, poly *DtPoly, pd *DtPolyDetail, t []uint8) (v [3][]float32) {
	for k := 0; k < 3; k++ {
		if t[k] < poly.VertCount {
			v[k] = tile.Verts[int(poly.Verts[t[k]])*3:]
		} else {
			v[k] = tile.DetailVerts[(int(pd.VertBase)+int(t[k]-poly.VertCount))*3:]
		}
	}
	return v
}

func (m *DtNavMesh) closestPointOnDetailEdges(tile *DtMeshTile, poly *DtPoly, ip int, pos, closest []float32, onlyBoundary bool) {
	pd := &tile.DetailMeshes[ip]
	const anyBoundaryEdge = (DT_DETAIL_EDGE_BOUNDARY << 0) | (DT_DETAIL_EDGE_BOUNDARY << 2) | (DT_DETAIL_EDGE_BOUNDARY << 4)

	dmin := float32(math.MaxFloat32)
	var tmin float32
	var pmin, pmax []float32
	for i := 0; i < int(pd.TriCount); i++ {
		tris := tile.DetailTris[(int(pd.TriBase)+i)*4:]
		if onlyBoundary && (tris[3]&anyBoundaryEdge) == 0 {
			continue
		}
		v := detailTriVerts(tile, poly, pd, tris)
		for k, j := 0, 2; k < 3; j, k = k, k+1 {
			if (DtGetDetailTriEdgeFlags(tris[3], j)&DT_DETAIL_EDGE_BOUNDARY) == 0 &&
				(onlyBoundary || tris[j] < tris[k]) {
				// Only looking at boundary edges and this is internal, or
				// this is an inner edge that we will see again or have already seen.
				continue
			}
			d, t := common.DistancePtSegSqr2D(pos, v[j], v[k])
			if d < dmin {
				dmin = d
				tmin = t
				pmin = v[j]
				pmax = v[k]
			}
		}
	}
	if pmin == nil {
		common.Vcopy(closest, pos)
		return
	}
	common.Vlerp(closest, pmin, pmax, tmin)
}

func (m *DtNavMesh) getPolyHeight(tile *DtMeshTile, poly *DtPoly, ip int, pos []float32) (float32, bool) {
	// Off-mesh connections do not have detail polys and getting height
	// over them does not make sense.
	if poly.GetType() == DT_POLYTYPE_OFFMESH_CONNECTION {
		return 0, false
	}
	pd := &tile.DetailMeshes[ip]

	var verts [DT_VERTS_PER_POLYGON * 3]float32
	nv := int(poly.VertCount)
	for i := 0; i < nv; i++ {
		common.Vcopy(verts[i*3:], tile.Verts[int(poly.Verts[i])*3:])
	}
	if !common.PointInPolygon(pos, verts[:], nv) {
		return 0, false
	}

	// Find height at the location.
	for j := 0; j < int(pd.TriCount); j++ {
		t := tile.DetailTris[(int(pd.TriBase)+j)*4:]
		v := detailTriVerts(tile, poly, pd, t)
		if h, ok := common.ClosestHeightPointTriangle(pos, v[0], v[1], v[2]); ok {
			return h, true
		}
	}

	// If all triangle checks failed above (can happen with degenerate triangles
	// or larger floating point values) the point is on an edge, so just select
	// closest. This should almost never happen so the extra iteration here is ok.
	var closest [3]float32
	m.closestPointOnDetailEdges(tile, poly, ip, pos, closest[:], false)
	return closest[1], true
}

// / Finds the closest point on the specified polygon.
// / posOverPoly is true when pos lies above the polygon in the xz-plane.
func (m *DtNavMesh) ClosestPointOnPoly(ref DtPolyRef, pos []float32) (closest [3]float32, posOverPoly bool) {
	tile, poly := m.GetTileAndPolyByRefUnsafe(ref)
	ip := int(m.DecodePolyIdPoly(ref))
	common.Vcopy(closest[:], pos)
	if h, ok := m.getPolyHeight(tile, poly, ip, pos); ok {
		closest[1] = h
		return closest, true
	}

	// Off-mesh connections don't have detail polygons.
	if poly.GetType() == DT_POLYTYPE_OFFMESH_CONNECTION {
		v0 := tile.Verts[int(poly.Verts[0])*3:]
		v1 := tile.Verts[int(poly.Verts[1])*3:]
		_, t := common.DistancePtSegSqr2D(pos, v0, v1)
		common.Vlerp(closest[:], v0, v1, t)
		return closest, false
	}

	// Outside poly that is not an offmesh connection.
	m.closestPointOnDetailEdges(tile, poly, ip, pos, closest[:], true)
	return closest, false
}

// / Gets the endpoints for an off-mesh connection, ordered by "direction of travel".
func (m *DtNavMesh) GetOffMeshConnectionPolyEndPoints(prevRef, polyRef DtPolyRef) (startPos, endPos [3]float32, status DtStatus) {
	tile, poly, status := m.GetTileAndPolyByRef(polyRef)
	if status.Failed() {
		return startPos, endPos, status
	}
	// Make sure that the current poly is indeed off-mesh link.
	if poly.GetType() != DT_POLYTYPE_OFFMESH_CONNECTION {
		return startPos, endPos, DT_FAILURE
	}

	// Figure out which way to hand out the vertices.
	idx0, idx1 := 0, 1

	// Find link that points to first vertex.
	for i := poly.FirstLink; i != DT_NULL_LINK; i = tile.Links[i].Next {
		if tile.Links[i].Edge == 0 {
			if tile.Links[i].Ref != prevRef {
				idx0 = 1
				idx1 = 0
			}
			break
		}
	}
	common.Vcopy(startPos[:], tile.Verts[int(poly.Verts[idx0])*3:])
	common.Vcopy(endPos[:], tile.Verts[int(poly.Verts[idx1])*3:])
	return startPos, endPos, DT_SUCCESS
}

// / Gets the specified off-mesh connection.
func (m *DtNavMesh) GetOffMeshConnectionByRef(ref DtPolyRef) *DtOffMeshConnection {
	tile, poly, status := m.GetTileAndPolyByRef(ref)
	if status.Failed() {
		return nil
	}
	// Make sure that the current poly is indeed off-mesh link.
	if poly.GetType() != DT_POLYTYPE_OFFMESH_CONNECTION {
		return nil
	}
	idx := int(m.DecodePolyIdPoly(ref)) - int(tile.Header.OffMeshBase)
	if idx < 0 || idx >= len(tile.OffMeshCons) {
		return nil
	}
	return &tile.OffMeshCons[idx]
}

// / Sets the user defined flags for the specified polygon.
func (m *DtNavMesh) SetPolyFlags(ref DtPolyRef, flags uint16) DtStatus {
	_, poly, status := m.GetTileAndPolyByRef(ref)
	if status.Failed() {
		return status
	}
	poly.Flags = flags
	return DT_SUCCESS
}

// / Gets the user defined flags for the specified polygon.
func (m *DtNavMesh) GetPolyFlags(ref DtPolyRef) (uint16, DtStatus) {
	_, poly, status := m.GetTileAndPolyByRef(ref)
	if status.Failed() {
		return 0, status
	}
	return poly.Flags, DT_SUCCESS
}

// / Sets the user defined area for the specified polygon.
func (m *DtNavMesh) SetPolyArea(ref DtPolyRef, area uint8) DtStatus {
	_, poly, status := m.GetTileAndPolyByRef(ref)
	if status.Failed() {
		return status
	}
	poly.SetArea(area)
	return DT_SUCCESS
}

// / Gets the user defined area for the specified polygon.
func (m *DtNavMesh) GetPolyArea(ref DtPolyRef) (uint8, DtStatus) {
	_, poly, status := m.GetTileAndPolyByRef(ref)
	if status.Failed() {
		return 0, status
	}
	return poly.GetArea(), DT_SUCCESS
}
