package detour

import (
	"math"
	"sort"

	"github.com/gorustyt/navcore/common"
)

const meshNullIdx = 0xffff

// / Represents the source data used to build an navigation mesh tile.
// / @ingroup detour
type DtNavMeshCreateParams struct {
	/// @name Polygon Mesh Attributes
	/// Used to create the base navigation graph.
	/// See #RcPolyMesh for details related to these attributes.
	/// @{
	Verts     []uint16 ///< The polygon mesh vertices. [(x, y, z) * #vertCount] [Unit: vx]
	VertCount int      ///< The number vertices in the polygon mesh. [Limit: >= 3]
	Polys     []uint16 ///< The polygon data. [Size: #polyCount * 2 * #nvp]
	PolyFlags []uint16 ///< The user defined flags assigned to each polygon. [Size: #polyCount]
	PolyAreas []uint8  ///< The user defined area ids assigned to each polygon. [Size: #polyCount]
	PolyCount int      ///< Number of polygons in the mesh. [Limit: >= 1]
	Nvp       int      ///< Number maximum number of vertices per polygon. [Limit: >= 3]

	/// @}
	/// @name Height Detail Attributes (Optional)
	/// See #RcPolyMeshDetail for details related to these attributes.
	/// @{
	DetailMeshes     []uint32  ///< The height detail sub-mesh data. [Size: 4 * #polyCount]
	DetailVerts      []float32 ///< The detail mesh vertices. [Size: 3 * #detailVertsCount] [Unit: wu]
	DetailVertsCount int       ///< The number of vertices in the detail mesh.
	DetailTris       []uint8   ///< The detail mesh triangles. [Size: 4 * #detailTriCount]
	DetailTriCount   int       ///< The number of triangles in the detail mesh.

	/// @}
	/// @name Off-Mesh Connections Attributes (Optional)
	/// Used to define a custom point-to-point edge within the navigation graph, an
	/// off-mesh connection is a user defined traversable connection made up to two vertices,
	/// at least one of which resides within a navigation mesh polygon.
	/// @{
	OffMeshConVerts  []float32 ///< Off-mesh connection vertices. [(ax, ay, az, bx, by, bz) * #offMeshConCount] [Unit: wu]
	OffMeshConRad    []float32 ///< Off-mesh connection radii. [Size: #offMeshConCount] [Unit: wu]
	OffMeshConFlags  []uint16  ///< User defined flags assigned to the off-mesh connections. [Size: #offMeshConCount]
	OffMeshConAreas  []uint8   ///< User defined area ids assigned to the off-mesh connections. [Size: #offMeshConCount]
	OffMeshConDir    []uint8   ///< The permitted travel direction of the off-mesh connections. [Size: #offMeshConCount]
	OffMeshConUserID []uint32  ///< The user defined ids of the off-mesh connection. [Size: #offMeshConCount]
	OffMeshConCount  int       ///< The number of off-mesh connections. [Limit: >= 0]

	/// @}
	/// @name Tile Attributes
	/// @note The tile grid/layer data can be left at zero if the destination is a single tile mesh.
	/// @{
	UserId    uint32     ///< The user defined id of the tile.
	TileX     int        ///< The tile's x-grid location within the multi-tile destination mesh. (Along the x-axis.)
	TileY     int        ///< The tile's y-grid location within the multi-tile desitation mesh. (Along the z-axis.)
	TileLayer int        ///< The tile's layer within the layered destination mesh. [Limit: >= 0] (Along the y-axis.)
	Bmin      [3]float32 ///< The minimum bounds of the tile. [(x, y, z)] [Unit: wu]
	Bmax      [3]float32 ///< The maximum bounds of the tile. [(x, y, z)] [Unit: wu]

	/// @}
	/// @name General Configuration Attributes
	/// @{
	WalkableHeight float32 ///< The agent height. [Unit: wu]
	WalkableRadius float32 ///< The agent radius. [Unit: wu]
	WalkableClimb  float32 ///< The agent maximum traversable ledge. (Up/Down) [Unit: wu]
	Cs             float32 ///< The xz-plane cell size of the polygon mesh. [Limit: > 0] [Unit: wu]
	Ch             float32 ///< The y-axis cell height of the polygon mesh. [Limit: > 0] [Unit: wu]

	/// True if a bounding volume tree should be built for the tile.
	/// @note The BVTree is not normally needed for layered navigation meshes.
	BuildBvTree bool
	/// @}
}

type bvItem struct {
	bmin [3]uint16
	bmax [3]uint16
	i    int
}

func calcExtends(items []bvItem, imin, imax int) (bmin, bmax [3]uint16) {
	bmin = items[imin].bmin
	bmax = items[imin].bmax
	for i := imin + 1; i < imax; i++ {
		it := &items[i]
		for k := 0; k < 3; k++ {
			bmin[k] = min(bmin[k], it.bmin[k])
			bmax[k] = max(bmax[k], it.bmax[k])
		}
	}
	return bmin, bmax
}

func longestAxis(x, y, z uint16) int {
	axis := 0
	maxVal := x
	if y > maxVal {
		axis = 1
		maxVal = y
	}
	if z > maxVal {
		axis = 2
	}
	return axis
}

func subdivide(items []bvItem, imin, imax int, curNode *int, nodes []DtBVNode) {
	inum := imax - imin
	icur := *curNode

	node := &nodes[*curNode]
	*curNode++

	if inum == 1 {
		// Leaf
		node.Bmin = items[imin].bmin
		node.Bmax = items[imin].bmax
		node.I = int32(items[imin].i)
		return
	}

	// Split
	node.Bmin, node.Bmax = calcExtends(items, imin, imax)
	axis := longestAxis(node.Bmax[0]-node.Bmin[0], node.Bmax[1]-node.Bmin[1], node.Bmax[2]-node.Bmin[2])
	sub := items[imin:imax]
	sort.Slice(sub, func(a, b int) bool { return sub[a].bmin[axis] < sub[b].bmin[axis] })

	isplit := imin + inum/2

	// Left
	subdivide(items, imin, isplit, curNode, nodes)
	// Right
	subdivide(items, isplit, imax, curNode, nodes)

	iescape := *curNode - icur
	// Negative index means escape.
	node.I = int32(-iescape)
}

func quantize(v, orig, factor float32) uint16 {
	return uint16(common.Clamp(int((v-orig)*factor), 0, 0xffff))
}

func createBVTree(params *DtNavMeshCreateParams, nodes []DtBVNode) int {
	// Build tree
	quantFactor := 1 / params.Cs
	items := make([]bvItem, params.PolyCount)
	for i := 0; i < params.PolyCount; i++ {
		it := &items[i]
		it.i = i
		// Calc polygon bounds. Use detail meshes if available.
		if len(params.DetailMeshes) > 0 {
			vb := int(params.DetailMeshes[i*4+0])
			ndv := int(params.DetailMeshes[i*4+1])
			var bmin, bmax [3]float32
			common.Vcopy(bmin[:], params.DetailVerts[vb*3:])
			common.Vcopy(bmax[:], params.DetailVerts[vb*3:])
			for j := 1; j < ndv; j++ {
				common.Vmin(bmin[:], params.DetailVerts[(vb+j)*3:])
				common.Vmax(bmax[:], params.DetailVerts[(vb+j)*3:])
			}
			// BV-tree uses cs for all dimensions
			for k := 0; k < 3; k++ {
				it.bmin[k] = quantize(bmin[k], params.Bmin[k], quantFactor)
				it.bmax[k] = quantize(bmax[k], params.Bmin[k], quantFactor)
			}
			continue
		}

		p := params.Polys[i*params.Nvp*2:]
		copy(it.bmin[:], params.Verts[int(p[0])*3:int(p[0])*3+3])
		copy(it.bmax[:], params.Verts[int(p[0])*3:int(p[0])*3+3])
		for j := 1; j < params.Nvp; j++ {
			if p[j] == meshNullIdx {
				break
			}
			v := params.Verts[int(p[j])*3:]
			for k := 0; k < 3; k++ {
				it.bmin[k] = min(it.bmin[k], v[k])
				it.bmax[k] = max(it.bmax[k], v[k])
			}
		}
		// Remap y
		it.bmin[1] = uint16(math.Floor(float64(float32(it.bmin[1]) * params.Ch / params.Cs)))
		it.bmax[1] = uint16(math.Ceil(float64(float32(it.bmax[1]) * params.Ch / params.Cs)))
	}

	curNode := 0
	subdivide(items, 0, params.PolyCount, &curNode, nodes)
	return curNode
}

func classifyOffMeshPoint(pt, bmin, bmax []float32) uint8 {
	const (
		XP = 1 << 0
		ZP = 1 << 1
		XM = 1 << 2
		ZM = 1 << 3
	)
	outcode := 0
	if pt[0] >= bmax[0] {
		outcode |= XP
	}
	if pt[2] >= bmax[2] {
		outcode |= ZP
	}
	if pt[0] < bmin[0] {
		outcode |= XM
	}
	if pt[2] < bmin[2] {
		outcode |= ZM
	}
	switch outcode {
	case XP:
		return 0
	case XP | ZP:
		return 1
	case ZP:
		return 2
	case XM | ZP:
		return 3
	case XM:
		return 4
	case XM | ZM:
		return 5
	case ZM:
		return 6
	case XP | ZM:
		return 7
	}
	return 0xff
}

// / Builds navigation mesh tile data from the provided tile creation data.
// / Off-mesh connections whose start point lies outside the tile are dropped.
// / @return False if the parameters cannot describe a tile.
func DtCreateNavMeshData(params *DtNavMeshCreateParams) (*NavMeshData, bool) {
	if params.Nvp > DT_VERTS_PER_POLYGON {
		return nil, false
	}
	if params.VertCount >= 0xffff {
		return nil, false
	}
	if params.VertCount == 0 || len(params.Verts) == 0 {
		return nil, false
	}
	if params.PolyCount == 0 || len(params.Polys) == 0 {
		return nil, false
	}
	nvp := params.Nvp

	// Classify off-mesh connection points. We store only the connections
	// whose start point is inside the tile.
	var offMeshConClass []uint8
	storedOffMeshConCount := 0
	offMeshConLinkCount := 0

	if params.OffMeshConCount > 0 {
		offMeshConClass = make([]uint8, params.OffMeshConCount*2)

		// Find tight heigh bounds, used for culling out off-mesh start locations.
		hmin := float32(math.MaxFloat32)
		hmax := float32(-math.MaxFloat32)
		if len(params.DetailVerts) > 0 && params.DetailVertsCount > 0 {
			for i := 0; i < params.DetailVertsCount; i++ {
				h := params.DetailVerts[i*3+1]
				hmin = min(hmin, h)
				hmax = max(hmax, h)
			}
		} else {
			for i := 0; i < params.VertCount; i++ {
				h := params.Bmin[1] + float32(params.Verts[i*3+1])*params.Ch
				hmin = min(hmin, h)
				hmax = max(hmax, h)
			}
		}
		hmin -= params.WalkableClimb
		hmax += params.WalkableClimb
		bmin := params.Bmin
		bmax := params.Bmax
		bmin[1] = hmin
		bmax[1] = hmax

		for i := 0; i < params.OffMeshConCount; i++ {
			p0 := params.OffMeshConVerts[(i*2+0)*3:]
			p1 := params.OffMeshConVerts[(i*2+1)*3:]
			offMeshConClass[i*2+0] = classifyOffMeshPoint(p0, bmin[:], bmax[:])
			offMeshConClass[i*2+1] = classifyOffMeshPoint(p1, bmin[:], bmax[:])

			// Zero out off-mesh start positions which are not even potentially touching the mesh.
			if offMeshConClass[i*2+0] == 0xff {
				if p0[1] < bmin[1] || p0[1] > bmax[1] {
					offMeshConClass[i*2+0] = 0
				}
			}

			// Count how many links should be allocated for off-mesh connections.
			if offMeshConClass[i*2+0] == 0xff {
				offMeshConLinkCount++
			}
			if offMeshConClass[i*2+1] == 0xff {
				offMeshConLinkCount++
			}
			if offMeshConClass[i*2+0] == 0xff {
				storedOffMeshConCount++
			}
		}
	}

	// Off-mesh connections are stored as polygons, adjust values.
	totPolyCount := params.PolyCount + storedOffMeshConCount
	totVertCount := params.VertCount + storedOffMeshConCount*2

	// Find portal edges which are at tile borders.
	edgeCount := 0
	portalCount := 0
	for i := 0; i < params.PolyCount; i++ {
		p := params.Polys[i*2*nvp:]
		for j := 0; j < nvp; j++ {
			if p[j] == meshNullIdx {
				break
			}
			edgeCount++
			if p[nvp+j]&0x8000 != 0 {
				dir := p[nvp+j] & 0xf
				if dir != 0xf {
					portalCount++
				}
			}
		}
	}

	maxLinkCount := edgeCount + portalCount*2 + offMeshConLinkCount*2

	// Find unique detail vertices.
	uniqueDetailVertCount := 0
	detailTriCount := 0
	if len(params.DetailMeshes) > 0 {
		// Has detail mesh, count unique detail vertex count and use input detail tri count.
		detailTriCount = params.DetailTriCount
		for i := 0; i < params.PolyCount; i++ {
			p := params.Polys[i*nvp*2:]
			ndv := int(params.DetailMeshes[i*4+1])
			nv := 0
			for j := 0; j < nvp; j++ {
				if p[j] == meshNullIdx {
					break
				}
				nv++
			}
			ndv -= nv
			uniqueDetailVertCount += ndv
		}
	} else {
		// No input detail mesh, build detail mesh from nav polys.
		for i := 0; i < params.PolyCount; i++ {
			p := params.Polys[i*nvp*2:]
			nv := 0
			for j := 0; j < nvp; j++ {
				if p[j] == meshNullIdx {
					break
				}
				nv++
			}
			detailTriCount += nv - 2
		}
	}

	bvNodeCount := 0
	if params.BuildBvTree {
		bvNodeCount = params.PolyCount * 2
	}

	data := &NavMeshData{
		NavVerts:    make([]float32, 3*totVertCount),
		NavPolys:    make([]DtPoly, totPolyCount),
		NavDMeshes:  make([]DtPolyDetail, params.PolyCount),
		NavDVerts:   make([]float32, 3*uniqueDetailVertCount),
		NavDTris:    make([]uint8, 4*detailTriCount),
		NavBvtree:   make([]DtBVNode, bvNodeCount),
		OffMeshCons: make([]DtOffMeshConnection, storedOffMeshConCount),
	}

	// Store header
	header := &data.Header
	header.Magic = DT_NAVMESH_MAGIC
	header.Version = DT_NAVMESH_VERSION
	header.X = int32(params.TileX)
	header.Y = int32(params.TileY)
	header.Layer = int32(params.TileLayer)
	header.UserId = params.UserId
	header.PolyCount = int32(totPolyCount)
	header.VertCount = int32(totVertCount)
	header.MaxLinkCount = int32(maxLinkCount)
	header.Bmin = params.Bmin
	header.Bmax = params.Bmax
	header.DetailMeshCount = int32(params.PolyCount)
	header.DetailVertCount = int32(uniqueDetailVertCount)
	header.DetailTriCount = int32(detailTriCount)
	header.BvQuantFactor = 1.0 / params.Cs
	header.OffMeshBase = int32(params.PolyCount)
	header.WalkableHeight = params.WalkableHeight
	header.WalkableRadius = params.WalkableRadius
	header.WalkableClimb = params.WalkableClimb
	header.OffMeshConCount = int32(storedOffMeshConCount)

	offMeshVertsBase := params.VertCount
	offMeshPolyBase := params.PolyCount

	// Store vertices
	// Mesh vertices
	for i := 0; i < params.VertCount; i++ {
		iv := params.Verts[i*3:]
		v := data.NavVerts[i*3:]
		v[0] = params.Bmin[0] + float32(iv[0])*params.Cs
		v[1] = params.Bmin[1] + float32(iv[1])*params.Ch
		v[2] = params.Bmin[2] + float32(iv[2])*params.Cs
	}
	// Off-mesh link vertices.
	n := 0
	for i := 0; i < params.OffMeshConCount; i++ {
		// Only store connections which start from this tile.
		if offMeshConClass[i*2+0] == 0xff {
			linkv := params.OffMeshConVerts[i*2*3 : i*2*3+6]
			v := data.NavVerts[(offMeshVertsBase+n*2)*3:]
			copy(v[:6], linkv)
			n++
		}
	}

	// Store polygons
	// Mesh polys
	for i := 0; i < params.PolyCount; i++ {
		src := params.Polys[i*2*nvp:]
		p := &data.NavPolys[i]
		p.VertCount = 0
		p.Flags = params.PolyFlags[i]
		p.SetArea(params.PolyAreas[i])
		p.SetType(DT_POLYTYPE_GROUND)
		for j := 0; j < nvp; j++ {
			if src[j] == meshNullIdx {
				break
			}
			p.Verts[j] = src[j]
			if src[nvp+j]&0x8000 != 0 {
				// Border or portal edge.
				switch src[nvp+j] & 0xf {
				case 0xf: // Border
					p.Neis[j] = 0
				case 0: // Portal x-
					p.Neis[j] = DT_EXT_LINK | 4
				case 1: // Portal z+
					p.Neis[j] = DT_EXT_LINK | 2
				case 2: // Portal x+
					p.Neis[j] = DT_EXT_LINK | 0
				case 3: // Portal z-
					p.Neis[j] = DT_EXT_LINK | 6
				}
			} else {
				// Normal connection
				p.Neis[j] = src[nvp+j] + 1
			}
			p.VertCount++
		}
	}
	// Off-mesh connection vertices.
	n = 0
	for i := 0; i < params.OffMeshConCount; i++ {
		// Only store connections which start from this tile.
		if offMeshConClass[i*2+0] == 0xff {
			p := &data.NavPolys[offMeshPolyBase+n]
			p.VertCount = 2
			p.Verts[0] = uint16(offMeshVertsBase + n*2 + 0)
			p.Verts[1] = uint16(offMeshVertsBase + n*2 + 1)
			p.Flags = params.OffMeshConFlags[i]
			p.SetArea(params.OffMeshConAreas[i])
			p.SetType(DT_POLYTYPE_OFFMESH_CONNECTION)
			n++
		}
	}

	// Store detail meshes and vertices.
	// The nav polygon vertices are stored as the first vertices on each mesh.
	// We compress the mesh data by skipping them and using the navmesh coordinates.
	if len(params.DetailMeshes) > 0 {
		vbase := 0
		for i := 0; i < params.PolyCount; i++ {
			dtl := &data.NavDMeshes[i]
			vb := int(params.DetailMeshes[i*4+0])
			ndv := int(params.DetailMeshes[i*4+1])
			nv := int(data.NavPolys[i].VertCount)
			dtl.VertBase = uint32(vbase)
			dtl.VertCount = uint8(ndv - nv)
			dtl.TriBase = params.DetailMeshes[i*4+2]
			dtl.TriCount = uint8(params.DetailMeshes[i*4+3])
			// Copy vertices except the first 'nv' verts which are equal to nav poly verts.
			if ndv-nv > 0 {
				copy(data.NavDVerts[vbase*3:], params.DetailVerts[(vb+nv)*3:(vb+ndv)*3])
				vbase += ndv - nv
			}
		}
		// Store triangles.
		copy(data.NavDTris, params.DetailTris[:4*params.DetailTriCount])
	} else {
		// Create dummy detail mesh by triangulating polys.
		tbase := 0
		for i := 0; i < params.PolyCount; i++ {
			dtl := &data.NavDMeshes[i]
			nv := int(data.NavPolys[i].VertCount)
			dtl.VertBase = 0
			dtl.VertCount = 0
			dtl.TriBase = uint32(tbase)
			dtl.TriCount = uint8(nv - 2)
			// Triangulate polygon (local indices).
			for j := 2; j < nv; j++ {
				t := data.NavDTris[tbase*4:]
				t[0] = 0
				t[1] = uint8(j - 1)
				t[2] = uint8(j)
				// Bit for each edge that belongs to poly boundary.
				t[3] = 1 << 2
				if j == 2 {
					t[3] |= 1 << 0
				}
				if j == nv-1 {
					t[3] |= 1 << 4
				}
				tbase++
			}
		}
	}

	// Store and create BVtree.
	if params.BuildBvTree {
		header.BvNodeCount = int32(createBVTree(params, data.NavBvtree))
		data.NavBvtree = data.NavBvtree[:header.BvNodeCount]
	}

	// Store Off-Mesh connections.
	n = 0
	for i := 0; i < params.OffMeshConCount; i++ {
		// Only store connections which start from this tile.
		if offMeshConClass[i*2+0] == 0xff {
			con := &data.OffMeshCons[n]
			con.Poly = uint16(offMeshPolyBase + n)
			// Copy connection end-points.
			copy(con.Pos[:], params.OffMeshConVerts[i*2*3:i*2*3+6])
			con.Rad = params.OffMeshConRad[i]
			if params.OffMeshConDir[i] != 0 {
				con.Flags = DT_OFFMESH_CON_BIDIR
			}
			con.Side = offMeshConClass[i*2+1]
			if len(params.OffMeshConUserID) > 0 {
				con.UserId = params.OffMeshConUserID[i]
			}
			n++
		}
	}
	return data, true
}
