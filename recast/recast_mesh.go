package recast

// / Represents a polygon mesh suitable for use in building a navigation mesh.
type RcPolyMesh struct {
	Verts        []uint16 ///< The mesh vertices. [Form: (x, y, z) * #nverts]
	Polys        []uint16 ///< Polygon and neighbor data. [Length: #maxpolys * 2 * #nvp]
	Regs         []uint16 ///< The region id assigned to each polygon. [Length: #maxpolys]
	Flags        []uint16 ///< The user defined flags for each polygon. [Length: #maxpolys]
	Areas        []uint8  ///< The area id assigned to each polygon. [Length: #maxpolys]
	NVerts       int      ///< The number of vertices.
	NPolys       int      ///< The number of polygons.
	MaxPolys     int      ///< The number of allocated polygons.
	Nvp          int      ///< The maximum number of vertices per polygon.
	Bmin         [3]float32
	Bmax         [3]float32
	Cs           float32
	Ch           float32
	BorderSize   int     ///< The AABB border size used to generate the source data from which the mesh was derived.
	MaxEdgeError float32 ///< The max error of the polygon edges in the mesh.
}

const vertexBucketCount = 1 << 12

const (
	triVertMask    = 0x0fffffff
	triVertRemoved = 0x80000000
)

type rcEdge struct {
	vert     [2]uint16
	polyEdge [2]uint16
	poly     [2]uint16
}

func buildMeshAdjacency(polys []uint16, npolys, nverts, vertsPerPoly int) bool {
	// Based on code by Eric Lengyel from:
	// https://web.archive.org/web/20080704083314/http://www.terathon.com/code/edges.php
	maxEdgeCount := npolys * vertsPerPoly
	firstEdge := make([]uint16, nverts+maxEdgeCount)
	nextEdge := firstEdge[nverts:]
	edges := make([]rcEdge, 0, maxEdgeCount)

	for i := 0; i < nverts; i++ {
		firstEdge[i] = RC_MESH_NULL_IDX
	}

	for i := 0; i < npolys; i++ {
		t := polys[i*vertsPerPoly*2:]
		for j := 0; j < vertsPerPoly; j++ {
			if t[j] == RC_MESH_NULL_IDX {
				break
			}
			v0 := t[j]
			v1 := t[0]
			if j+1 < vertsPerPoly && t[j+1] != RC_MESH_NULL_IDX {
				v1 = t[j+1]
			}
			if v0 < v1 {
				edgeCount := len(edges)
				edges = append(edges, rcEdge{
					vert:     [2]uint16{v0, v1},
					poly:     [2]uint16{uint16(i), uint16(i)},
					polyEdge: [2]uint16{uint16(j), 0},
				})
				// Insert edge
				nextEdge[edgeCount] = firstEdge[v0]
				firstEdge[v0] = uint16(edgeCount)
			}
		}
	}

	for i := 0; i < npolys; i++ {
		t := polys[i*vertsPerPoly*2:]
		for j := 0; j < vertsPerPoly; j++ {
			if t[j] == RC_MESH_NULL_IDX {
				break
			}
			v0 := t[j]
			v1 := t[0]
			if j+1 < vertsPerPoly && t[j+1] != RC_MESH_NULL_IDX {
				v1 = t[j+1]
			}
			if v0 > v1 {
				for e := firstEdge[v1]; e != RC_MESH_NULL_IDX; e = nextEdge[e] {
					edge := &edges[e]
					if edge.vert[1] == v0 && edge.poly[0] == edge.poly[1] {
						edge.poly[1] = uint16(i)
						edge.polyEdge[1] = uint16(j)
						break
					}
				}
			}
		}
	}

	// Store adjacency
	for i := range edges {
		e := &edges[i]
		if e.poly[0] != e.poly[1] {
			p0 := polys[int(e.poly[0])*vertsPerPoly*2:]
			p1 := polys[int(e.poly[1])*vertsPerPoly*2:]
			p0[vertsPerPoly+int(e.polyEdge[0])] = e.poly[1]
			p1[vertsPerPoly+int(e.polyEdge[1])] = e.poly[0]
		}
	}
	return true
}

func computeVertexHash(x, y, z int) int {
	const h1 = 0x8da6b343 // Large multiplicative constants;
	const h2 = 0xd8163841 // here arbitrarily chosen primes
	const h3 = 0xcb1ab31f
	n := uint32(h1*uint64(uint32(x)) + h2*uint64(uint32(y)) + h3*uint64(uint32(z)))
	return int(n & (vertexBucketCount - 1))
}

type vertexWelder struct {
	verts     []uint16
	firstVert []int
	nextVert  []int
	nv        int
}

func newVertexWelder(maxVerts int) *vertexWelder {
	w := &vertexWelder{
		verts:     make([]uint16, maxVerts*3),
		firstVert: make([]int, vertexBucketCount),
		nextVert:  make([]int, maxVerts),
	}
	for i := range w.firstVert {
		w.firstVert[i] = -1
	}
	return w
}

func (w *vertexWelder) add(x, y, z uint16) uint16 {
	bucket := computeVertexHash(int(x), 0, int(z))
	i := w.firstVert[bucket]
	for i != -1 {
		v := w.verts[i*3:]
		if v[0] == x && abs16(int(v[1])-int(y)) <= 2 && v[2] == z {
			return uint16(i)
		}
		i = w.nextVert[i] // next
	}
	// Could not find, create new.
	i = w.nv
	w.nv++
	w.verts[i*3+0] = x
	w.verts[i*3+1] = y
	w.verts[i*3+2] = z
	w.nextVert[i] = w.firstVert[bucket]
	w.firstVert[bucket] = i
	return uint16(i)
}

func abs16(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func triVert(verts []int32, indices []int, i int) []int32 {
	return verts[(indices[i]&triVertMask)*4:]
}

func diagonalie(i, j, n int, verts []int32, indices []int) bool {
	d0 := triVert(verts, indices, i)
	d1 := triVert(verts, indices, j)
	// For each edge (k,k+1) of P
	for k := 0; k < n; k++ {
		k1 := next(k, n)
		// Skip edges incident to i or j
		if k == i || k1 == i || k == j || k1 == j {
			continue
		}
		p0 := triVert(verts, indices, k)
		p1 := triVert(verts, indices, k1)
		if vequal(d0, p0) || vequal(d1, p0) || vequal(d0, p1) || vequal(d1, p1) {
			continue
		}
		if intersect(d0, d1, p0, p1) {
			return false
		}
	}
	return true
}

func inCone(i, j, n int, verts []int32, indices []int) bool {
	pi := triVert(verts, indices, i)
	pj := triVert(verts, indices, j)
	pi1 := triVert(verts, indices, next(i, n))
	pin1 := triVert(verts, indices, prev(i, n))
	// If P[i] is a convex vertex [ i+1 left or on (i-1,i) ].
	if leftOn(pin1, pi, pi1) {
		return left(pi, pj, pin1) && left(pj, pi, pi1)
	}
	// Assume (i-1,i,i+1) not collinear.
	// else P[i] is reflex.
	return !(leftOn(pi, pj, pi1) && leftOn(pj, pi, pin1))
}

// Returns T iff (v_i, v_j) is a proper internal
// diagonal of P.
func diagonal(i, j, n int, verts []int32, indices []int) bool {
	return inCone(i, j, n, verts, indices) && diagonalie(i, j, n, verts, indices)
}

func diagonalieLoose(i, j, n int, verts []int32, indices []int) bool {
	d0 := triVert(verts, indices, i)
	d1 := triVert(verts, indices, j)
	for k := 0; k < n; k++ {
		k1 := next(k, n)
		if k == i || k1 == i || k == j || k1 == j {
			continue
		}
		p0 := triVert(verts, indices, k)
		p1 := triVert(verts, indices, k1)
		if vequal(d0, p0) || vequal(d1, p0) || vequal(d0, p1) || vequal(d1, p1) {
			continue
		}
		if intersectProp(d0, d1, p0, p1) {
			return false
		}
	}
	return true
}

func inConeLoose(i, j, n int, verts []int32, indices []int) bool {
	pi := triVert(verts, indices, i)
	pj := triVert(verts, indices, j)
	pi1 := triVert(verts, indices, next(i, n))
	pin1 := triVert(verts, indices, prev(i, n))
	if leftOn(pin1, pi, pi1) {
		return leftOn(pi, pj, pin1) && leftOn(pj, pi, pi1)
	}
	return !(leftOn(pi, pj, pi1) && leftOn(pj, pi, pin1))
}

func diagonalLoose(i, j, n int, verts []int32, indices []int) bool {
	return inConeLoose(i, j, n, verts, indices) && diagonalieLoose(i, j, n, verts, indices)
}

// triangulate ear-clips the contour described by indices into tris. A negative count
// means the contour could only be partially triangulated.
func triangulate(n int, verts []int32, indices []int, tris []int) int {
	ntris := 0
	dst := 0

	// The last bit of the index is used to indicate if the vertex can be removed.
	for i := 0; i < n; i++ {
		i1 := next(i, n)
		i2 := next(i1, n)
		if diagonal(i, i2, n, verts, indices) {
			indices[i1] |= triVertRemoved
		}
	}

	for n > 3 {
		minLen := -1
		mini := -1
		for i := 0; i < n; i++ {
			i1 := next(i, n)
			if indices[i1]&triVertRemoved != 0 {
				p0 := triVert(verts, indices, i)
				p2 := triVert(verts, indices, next(i1, n))
				dx := int(p2[0] - p0[0])
				dy := int(p2[2] - p0[2])
				l := dx*dx + dy*dy
				if minLen < 0 || l < minLen {
					minLen = l
					mini = i
				}
			}
		}

		if mini == -1 {
			// We might get here because the contour has overlapping segments, like this:
			//
			//  A o-o=====o---o B
			//   /  |C   D|    \.
			//  o   o     o     o
			//  :   :     :     :
			// We'll try to recover by loosing up the inCone test a bit so that a diagonal
			// like A-B or C-D can be found and we can continue.
			minLen = -1
			mini = -1
			for i := 0; i < n; i++ {
				i1 := next(i, n)
				i2 := next(i1, n)
				if diagonalLoose(i, i2, n, verts, indices) {
					p0 := triVert(verts, indices, i)
					p2 := triVert(verts, indices, next(i2, n))
					dx := int(p2[0] - p0[0])
					dy := int(p2[2] - p0[2])
					l := dx*dx + dy*dy
					if minLen < 0 || l < minLen {
						minLen = l
						mini = i
					}
				}
			}
			if mini == -1 {
				// The contour is messed up. This sometimes happens
				// if the contour simplification is too aggressive.
				return -ntris
			}
		}

		i := mini
		i1 := next(i, n)
		i2 := next(i1, n)

		tris[dst+0] = indices[i] & triVertMask
		tris[dst+1] = indices[i1] & triVertMask
		tris[dst+2] = indices[i2] & triVertMask
		dst += 3
		ntris++

		// Removes P[i1] by copying P[i+1]...P[n-1] left one index.
		n--
		for k := i1; k < n; k++ {
			indices[k] = indices[k+1]
		}
		if i1 >= n {
			i1 = 0
		}
		i = prev(i1, n)
		// Update diagonal flags.
		if diagonal(prev(i, n), i1, n, verts, indices) {
			indices[i] |= triVertRemoved
		} else {
			indices[i] &= triVertMask
		}
		if diagonal(i, next(i1, n), n, verts, indices) {
			indices[i1] |= triVertRemoved
		} else {
			indices[i1] &= triVertMask
		}
	}

	// Append the remaining triangle.
	tris[dst+0] = indices[0] & triVertMask
	tris[dst+1] = indices[1] & triVertMask
	tris[dst+2] = indices[2] & triVertMask
	ntris++
	return ntris
}

func countPolyVerts(p []uint16, nvp int) int {
	for i := 0; i < nvp; i++ {
		if p[i] == RC_MESH_NULL_IDX {
			return i
		}
	}
	return nvp
}

func uleft(a, b, c []uint16) bool {
	return (int(b[0])-int(a[0]))*(int(c[2])-int(a[2]))-(int(c[0])-int(a[0]))*(int(b[2])-int(a[2])) < 0
}

func getPolyMergeValue(pa, pb []uint16, verts []uint16, nvp int) (value, ea, eb int) {
	na := countPolyVerts(pa, nvp)
	nb := countPolyVerts(pb, nvp)

	// If the merged polygon would be too big, do not merge.
	if na+nb-2 > nvp {
		return -1, -1, -1
	}

	// Check if the polygons share an edge.
	ea = -1
	eb = -1
	for i := 0; i < na && ea == -1; i++ {
		va0 := pa[i]
		va1 := pa[(i+1)%na]
		if va0 > va1 {
			va0, va1 = va1, va0
		}
		for j := 0; j < nb; j++ {
			vb0 := pb[j]
			vb1 := pb[(j+1)%nb]
			if vb0 > vb1 {
				vb0, vb1 = vb1, vb0
			}
			if va0 == vb0 && va1 == vb1 {
				ea = i
				eb = j
				break
			}
		}
	}

	// No common edge, cannot merge.
	if ea == -1 || eb == -1 {
		return -1, -1, -1
	}

	// Check to see if the merged polygon would be convex.
	va := pa[(ea+na-1)%na]
	vb := pa[ea]
	vc := pb[(eb+2)%nb]
	if !uleft(verts[int(va)*3:], verts[int(vb)*3:], verts[int(vc)*3:]) {
		return -1, -1, -1
	}
	va = pb[(eb+nb-1)%nb]
	vb = pb[eb]
	vc = pa[(ea+2)%na]
	if !uleft(verts[int(va)*3:], verts[int(vb)*3:], verts[int(vc)*3:]) {
		return -1, -1, -1
	}

	va = pa[ea]
	vb = pa[(ea+1)%na]
	dx := int(verts[int(va)*3+0]) - int(verts[int(vb)*3+0])
	dy := int(verts[int(va)*3+2]) - int(verts[int(vb)*3+2])
	return dx*dx + dy*dy, ea, eb
}

func mergePolyVerts(pa, pb []uint16, ea, eb int, tmp []uint16, nvp int) {
	na := countPolyVerts(pa, nvp)
	nb := countPolyVerts(pb, nvp)

	// Merge polygons.
	for i := 0; i < nvp; i++ {
		tmp[i] = RC_MESH_NULL_IDX
	}
	n := 0
	// Add pa
	for i := 0; i < na-1; i++ {
		tmp[n] = pa[(ea+1+i)%na]
		n++
	}
	// Add pb
	for i := 0; i < nb-1; i++ {
		tmp[n] = pb[(eb+1+i)%nb]
		n++
	}
	copy(pa[:nvp], tmp[:nvp])
}

// / Builds a polygon mesh from the provided contours.
// / Vertices flagged as border vertices are kept; they sit on tile edges and only add
// / extra vertices along portal edges.
func RcBuildPolyMesh(ctx RcContext, cset *RcContourSet, nvp int) *RcPolyMesh {
	defer rcScopedTimer(ctx, RC_TIMER_BUILD_POLYMESH)()

	mesh := &RcPolyMesh{
		Bmin:         cset.Bmin,
		Bmax:         cset.Bmax,
		Cs:           cset.Cs,
		Ch:           cset.Ch,
		BorderSize:   cset.BorderSize,
		MaxEdgeError: cset.MaxError,
		Nvp:          nvp,
	}

	maxVertices := 0
	maxTris := 0
	maxVertsPerCont := 0
	for i := range cset.Conts {
		// Skip null contours.
		if cset.Conts[i].NVerts < 3 {
			continue
		}
		maxVertices += cset.Conts[i].NVerts
		maxTris += cset.Conts[i].NVerts - 2
		maxVertsPerCont = max(maxVertsPerCont, cset.Conts[i].NVerts)
	}

	if maxVertices >= 0xfffe {
		ctxLog(ctx, RC_LOG_ERROR, "rcBuildPolyMesh: Too many vertices %d.", maxVertices)
		return nil
	}

	welder := newVertexWelder(maxVertices)
	mesh.Polys = make([]uint16, maxTris*nvp*2)
	for i := range mesh.Polys {
		mesh.Polys[i] = RC_MESH_NULL_IDX
	}
	mesh.Regs = make([]uint16, maxTris)
	mesh.Areas = make([]uint8, maxTris)
	mesh.MaxPolys = maxTris

	indices := make([]int, maxVertsPerCont)
	tris := make([]int, maxVertsPerCont*3)
	polys := make([]uint16, (maxVertsPerCont+1)*nvp)
	tmpPoly := polys[maxVertsPerCont*nvp:]

	for i := range cset.Conts {
		cont := &cset.Conts[i]
		// Skip null contours.
		if cont.NVerts < 3 {
			continue
		}

		// Triangulate contour
		for j := 0; j < cont.NVerts; j++ {
			indices[j] = j
		}
		ntris := triangulate(cont.NVerts, cont.Verts, indices, tris)
		if ntris <= 0 {
			// Bad triangulation, should not happen.
			ctxLog(ctx, RC_LOG_WARNING, "rcBuildPolyMesh: Bad triangulation Contour %d.", i)
			ntris = -ntris
		}

		// Add and merge vertices.
		for j := 0; j < cont.NVerts; j++ {
			v := cont.Verts[j*4:]
			indices[j] = int(welder.add(uint16(v[0]), uint16(v[1]), uint16(v[2])))
		}

		// Build initial polygons.
		npolys := 0
		for j := 0; j < maxVertsPerCont*nvp; j++ {
			polys[j] = RC_MESH_NULL_IDX
		}
		for j := 0; j < ntris; j++ {
			t := tris[j*3:]
			if t[0] != t[1] && t[0] != t[2] && t[1] != t[2] {
				polys[npolys*nvp+0] = uint16(indices[t[0]])
				polys[npolys*nvp+1] = uint16(indices[t[1]])
				polys[npolys*nvp+2] = uint16(indices[t[2]])
				npolys++
			}
		}
		if npolys == 0 {
			continue
		}

		// Merge polygons.
		if nvp > 3 {
			for {
				// Find best polygons to merge.
				bestMergeVal := 0
				bestPa, bestPb, bestEa, bestEb := 0, 0, 0, 0
				for j := 0; j < npolys-1; j++ {
					pj := polys[j*nvp:]
					for k := j + 1; k < npolys; k++ {
						pk := polys[k*nvp:]
						v, ea, eb := getPolyMergeValue(pj, pk, welder.verts, nvp)
						if v > bestMergeVal {
							bestMergeVal = v
							bestPa = j
							bestPb = k
							bestEa = ea
							bestEb = eb
						}
					}
				}
				if bestMergeVal <= 0 {
					// Could not merge any polygons, stop.
					break
				}
				// Found best, merge.
				pa := polys[bestPa*nvp:]
				pb := polys[bestPb*nvp:]
				mergePolyVerts(pa, pb, bestEa, bestEb, tmpPoly, nvp)
				if bestPb != npolys-1 {
					copy(pb[:nvp], polys[(npolys-1)*nvp:npolys*nvp])
				}
				npolys--
			}
		}

		// Store polygons.
		for j := 0; j < npolys; j++ {
			if mesh.NPolys >= maxTris {
				ctxLog(ctx, RC_LOG_ERROR, "rcBuildPolyMesh: Too many polygons %d (max:%d).", mesh.NPolys, maxTris)
				return nil
			}
			p := mesh.Polys[mesh.NPolys*nvp*2:]
			copy(p[:nvp], polys[j*nvp:(j+1)*nvp])
			mesh.Regs[mesh.NPolys] = cont.Reg
			mesh.Areas[mesh.NPolys] = cont.Area
			mesh.NPolys++
		}
	}

	mesh.NVerts = welder.nv
	mesh.Verts = welder.verts[:welder.nv*3]

	// Calculate adjacency.
	if !buildMeshAdjacency(mesh.Polys, mesh.NPolys, mesh.NVerts, nvp) {
		ctxLog(ctx, RC_LOG_ERROR, "rcBuildPolyMesh: Adjacency failed.")
		return nil
	}

	// Find portal edges
	if mesh.BorderSize > 0 {
		w := cset.Width
		h := cset.Height
		for i := 0; i < mesh.NPolys; i++ {
			p := mesh.Polys[i*2*nvp:]
			for j := 0; j < nvp; j++ {
				if p[j] == RC_MESH_NULL_IDX {
					break
				}
				// Skip connected edges.
				if p[nvp+j] != RC_MESH_NULL_IDX {
					continue
				}
				nj := j + 1
				if nj >= nvp || p[nj] == RC_MESH_NULL_IDX {
					nj = 0
				}
				va := mesh.Verts[int(p[j])*3:]
				vb := mesh.Verts[int(p[nj])*3:]
				if va[0] == 0 && vb[0] == 0 {
					p[nvp+j] = 0x8000 | 0
				} else if int(va[2]) == h && int(vb[2]) == h {
					p[nvp+j] = 0x8000 | 1
				} else if int(va[0]) == w && int(vb[0]) == w {
					p[nvp+j] = 0x8000 | 2
				} else if va[2] == 0 && vb[2] == 0 {
					p[nvp+j] = 0x8000 | 3
				}
			}
		}
	}

	// Just allocate the mesh flags array. The user is resposible to fill it.
	mesh.Flags = make([]uint16, mesh.NPolys)

	if mesh.NVerts > 0xffff {
		ctxLog(ctx, RC_LOG_ERROR, "rcBuildPolyMesh: The resulting mesh has too many vertices %d (max %d). Data can be corrupted.", mesh.NVerts, 0xffff)
	}
	if mesh.NPolys > 0xffff {
		ctxLog(ctx, RC_LOG_ERROR, "rcBuildPolyMesh: The resulting mesh has too many polygons %d (max %d). Data can be corrupted.", mesh.NPolys, 0xffff)
	}
	return mesh
}
