package recast

import (
	"math"

	"github.com/gorustyt/navcore/common"
)

// / Contains triangle meshes that represent detailed height data associated
// / with the polygons in its associated polygon mesh object.
type RcPolyMeshDetail struct {
	Meshes  []uint32  ///< The sub-mesh data. [Size: 4*#nmeshes]
	Verts   []float32 ///< The mesh vertices. [Size: 3*#nverts]
	Tris    []uint8   ///< The mesh triangles. [Size: 4*#ntris]
	NMeshes int       ///< The number of sub-meshes defined by #meshes.
	NVerts  int       ///< The number of vertices in #verts.
	NTris   int       ///< The number of triangles in #tris.
}

const (
	RC_UNSET_HEIGHT = 0xffff

	MAX_VERTS          = 127
	MAX_TRIS           = 255 // Max tris for delaunay is 2n-2-k (n=num verts, k=num hull verts).
	MAX_VERTS_PER_EDGE = 32

	EV_UNDEF = -1
	EV_HULL  = -2
)

// Triangle edge lies on the polygon boundary.
const rcDetailEdgeBoundary = 0x01

type rcHeightPatch struct {
	data                      []uint16
	xmin, ymin, width, height int
}

func vdot2(a, b []float32) float32 {
	return a[0]*b[0] + a[2]*b[2]
}

func vcross2(p1, p2, p3 []float32) float32 {
	u1 := p2[0] - p1[0]
	v1 := p2[2] - p1[2]
	u2 := p3[0] - p1[0]
	v2 := p3[2] - p1[2]
	return u1*v2 - v1*u2
}

// circumCircle returns the xz circumcircle of p1, p2, p3.
func circumCircle(p1, p2, p3 []float32) (c [3]float32, r float32, ok bool) {
	const eps = 1e-6
	// Calculate the circle relative to p1, to avoid some precision issues.
	var v1, v2, v3 [3]float32
	common.Vsub(v2[:], p2, p1)
	common.Vsub(v3[:], p3, p1)

	cp := vcross2(v1[:], v2[:], v3[:])
	if common.Abs(cp) > eps {
		v1Sq := vdot2(v1[:], v1[:])
		v2Sq := vdot2(v2[:], v2[:])
		v3Sq := vdot2(v3[:], v3[:])
		c[0] = (v1Sq*(v2[2]-v3[2]) + v2Sq*(v3[2]-v1[2]) + v3Sq*(v1[2]-v2[2])) / (2 * cp)
		c[1] = 0
		c[2] = (v1Sq*(v3[0]-v2[0]) + v2Sq*(v1[0]-v3[0]) + v3Sq*(v2[0]-v1[0])) / (2 * cp)
		r = common.Vdist2D(c[:], v1[:])
		common.Vadd(c[:], c[:], p1)
		return c, r, true
	}
	copy(c[:], p1[:3])
	return c, 0, false
}

// distPtTri returns the vertical distance from p to triangle abc, or MaxFloat32
// when p is outside it on the xz-plane.
func distPtTri(p, a, b, c []float32) float32 {
	var v0, v1, v2 [3]float32
	common.Vsub(v0[:], c, a)
	common.Vsub(v1[:], b, a)
	common.Vsub(v2[:], p, a)

	dot00 := vdot2(v0[:], v0[:])
	dot01 := vdot2(v0[:], v1[:])
	dot02 := vdot2(v0[:], v2[:])
	dot11 := vdot2(v1[:], v1[:])
	dot12 := vdot2(v1[:], v2[:])

	// Compute barycentric coordinates
	invDenom := 1.0 / (dot00*dot11 - dot01*dot01)
	u := (dot11*dot02 - dot01*dot12) * invDenom
	v := (dot00*dot12 - dot01*dot02) * invDenom

	// If point lies inside the triangle, return interpolated y-coord.
	const eps = 1e-4
	if u >= -eps && v >= -eps && (u+v) <= 1+eps {
		y := a[1] + v0[1]*u + v1[1]*v
		return common.Abs(y - p[1])
	}
	return math.MaxFloat32
}

// distSqPtSeg returns the squared 3D distance from pt to segment pq.
func distSqPtSeg(pt, p, q []float32) float32 {
	pqx := q[0] - p[0]
	pqy := q[1] - p[1]
	pqz := q[2] - p[2]
	dx := pt[0] - p[0]
	dy := pt[1] - p[1]
	dz := pt[2] - p[2]
	d := pqx*pqx + pqy*pqy + pqz*pqz
	t := pqx*dx + pqy*dy + pqz*dz
	if d > 0 {
		t /= d
	}
	t = common.Clamp(t, 0, 1)

	dx = p[0] + t*pqx - pt[0]
	dy = p[1] + t*pqy - pt[1]
	dz = p[2] + t*pqz - pt[2]
	return dx*dx + dy*dy + dz*dz
}

func distToTriMesh(p, verts []float32, tris []int) float32 {
	dmin := float32(math.MaxFloat32)
	for i := 0; i+3 < len(tris); i += 4 {
		d := distPtTri(p, verts[tris[i]*3:], verts[tris[i+1]*3:], verts[tris[i+2]*3:])
		if d < dmin {
			dmin = d
		}
	}
	if dmin == math.MaxFloat32 {
		return -1
	}
	return dmin
}

// distToPoly returns the xz distance from p to the polygon outline, negative inside.
func distToPoly(nvert int, verts, p []float32) float32 {
	dmin := float32(math.MaxFloat32)
	c := false
	for i, j := 0, nvert-1; i < nvert; j, i = i, i+1 {
		vi := verts[i*3:]
		vj := verts[j*3:]
		if ((vi[2] > p[2]) != (vj[2] > p[2])) &&
			(p[0] < (vj[0]-vi[0])*(p[2]-vi[2])/(vj[2]-vi[2])+vi[0]) {
			c = !c
		}
		d, _ := common.DistancePtSegSqr2D(p, vj, vi)
		dmin = min(dmin, d)
	}
	if c {
		return -dmin
	}
	return dmin
}

func getHeight(fx, fy, fz, ics, ch float32, radius int, hp *rcHeightPatch) uint16 {
	ix := int(math.Floor(float64(fx*ics + 0.01)))
	iz := int(math.Floor(float64(fz*ics + 0.01)))
	ix = common.Clamp(ix-hp.xmin, 0, hp.width-1)
	iz = common.Clamp(iz-hp.ymin, 0, hp.height-1)
	h := hp.data[ix+iz*hp.width]
	if h != RC_UNSET_HEIGHT {
		return h
	}

	// Special case when data might be bad.
	// Walk adjacent cells in a spiral up to 'radius', and look
	// for a pixel which has a valid height.
	x, z, dx, dz := 1, 0, 1, 0
	maxSize := radius*2 + 1
	maxIter := maxSize*maxSize - 1

	nextRingIterStart := 8
	nextRingIters := 16

	dmin := float32(math.MaxFloat32)
	for i := 0; i < maxIter; i++ {
		nx := ix + x
		nz := iz + z

		if nx >= 0 && nz >= 0 && nx < hp.width && nz < hp.height {
			nh := hp.data[nx+nz*hp.width]
			if nh != RC_UNSET_HEIGHT {
				d := common.Abs(float32(nh)*ch - fy)
				if d < dmin {
					h = nh
					dmin = d
				}
			}
		}

		// The spiral visits rings of 8, 16, 24... cells around the start.
		// Stop at the first ring boundary once any height was found, so the
		// best height comes from the closest ring that has one.
		if i+1 == nextRingIterStart {
			if h != RC_UNSET_HEIGHT {
				break
			}
			nextRingIterStart += nextRingIters
			nextRingIters += 8
		}

		if (x == z) || ((x < 0) && (x == -z)) || ((x > 0) && (x == 1-z)) {
			dx, dz = -dz, dx
		}
		x += dx
		z += dz
	}
	return h
}

func findEdge(edges []int, s, t int) int {
	for i := 0; i+3 < len(edges); i += 4 {
		if (edges[i] == s && edges[i+1] == t) || (edges[i] == t && edges[i+1] == s) {
			return i / 4
		}
	}
	return EV_UNDEF
}

func addEdge(ctx RcContext, edges *[]int, maxEdges, s, t, l, r int) {
	if len(*edges)/4 >= maxEdges {
		ctxLog(ctx, RC_LOG_ERROR, "addEdge: Too many edges (%d/%d).", len(*edges)/4, maxEdges)
		return
	}
	// Add edge if not already in the triangulation.
	if findEdge(*edges, s, t) == EV_UNDEF {
		*edges = append(*edges, s, t, l, r)
	}
}

func updateLeftFace(e []int, s, t, f int) {
	if e[0] == s && e[1] == t && e[2] == EV_UNDEF {
		e[2] = f
	} else if e[1] == s && e[0] == t && e[3] == EV_UNDEF {
		e[3] = f
	}
}

func overlapSegSeg2d(a, b, c, d []float32) bool {
	a1 := vcross2(a, b, d)
	a2 := vcross2(a, b, c)
	if a1*a2 < 0 {
		a3 := vcross2(c, d, a)
		a4 := a3 + a2 - a1
		if a3*a4 < 0 {
			return true
		}
	}
	return false
}

func overlapEdges(pts []float32, edges []int, s1, t1 int) bool {
	for i := 0; i+3 < len(edges); i += 4 {
		s0 := edges[i]
		t0 := edges[i+1]
		// Same or connected edges do not overlap.
		if s0 == s1 || s0 == t1 || t0 == s1 || t0 == t1 {
			continue
		}
		if overlapSegSeg2d(pts[s0*3:], pts[t0*3:], pts[s1*3:], pts[t1*3:]) {
			return true
		}
	}
	return false
}

func completeFacet(ctx RcContext, pts []float32, npts int, edges *[]int, maxEdges, nfaces, e int) int {
	const eps = 1e-5

	edge := (*edges)[e*4:]

	// Cache s and t.
	var s, t int
	if edge[2] == EV_UNDEF {
		s = edge[0]
		t = edge[1]
	} else if edge[3] == EV_UNDEF {
		s = edge[1]
		t = edge[0]
	} else {
		// Edge already completed.
		return nfaces
	}

	// Find best point on left of edge.
	pt := npts
	var c [3]float32
	r := float32(-1)
	for u := 0; u < npts; u++ {
		if u == s || u == t {
			continue
		}
		if vcross2(pts[s*3:], pts[t*3:], pts[u*3:]) <= eps {
			continue
		}
		if r < 0 {
			// The circle is not updated yet, do it now.
			pt = u
			c, r, _ = circumCircle(pts[s*3:], pts[t*3:], pts[u*3:])
			continue
		}
		d := common.Vdist2D(c[:], pts[u*3:])
		const tol = 0.001
		if d > r*(1+tol) {
			// Outside current circumcircle, skip.
			continue
		} else if d < r*(1-tol) {
			// Inside safe circumcircle, update circle.
			pt = u
			c, r, _ = circumCircle(pts[s*3:], pts[t*3:], pts[u*3:])
		} else {
			// Inside epsilon circumcircle: s-u and t-u must not cross existing edges.
			if overlapEdges(pts, *edges, s, u) || overlapEdges(pts, *edges, t, u) {
				continue
			}
			// Edge is valid.
			pt = u
			c, r, _ = circumCircle(pts[s*3:], pts[t*3:], pts[u*3:])
		}
	}

	// Add new triangle or update edge info if s-t is on hull.
	if pt < npts {
		// Update face information of edge being completed.
		updateLeftFace((*edges)[e*4:], s, t, nfaces)

		// Add new edge or update face info of old edge.
		e = findEdge(*edges, pt, s)
		if e == EV_UNDEF {
			addEdge(ctx, edges, maxEdges, pt, s, nfaces, EV_UNDEF)
		} else {
			updateLeftFace((*edges)[e*4:], pt, s, nfaces)
		}

		// Add new edge or update face info of old edge.
		e = findEdge(*edges, t, pt)
		if e == EV_UNDEF {
			addEdge(ctx, edges, maxEdges, t, pt, nfaces, EV_UNDEF)
		} else {
			updateLeftFace((*edges)[e*4:], t, pt, nfaces)
		}
		nfaces++
	} else {
		updateLeftFace((*edges)[e*4:], s, t, EV_HULL)
	}
	return nfaces
}

func delaunayHull(ctx RcContext, npts int, pts []float32, hull []int, tris, edges []int) ([]int, []int) {
	nfaces := 0
	maxEdges := npts * 10
	edges = edges[:0]

	for i, j := 0, len(hull)-1; i < len(hull); j, i = i, i+1 {
		addEdge(ctx, &edges, maxEdges, hull[j], hull[i], EV_HULL, EV_UNDEF)
	}

	for currentEdge := 0; currentEdge < len(edges)/4; currentEdge++ {
		if edges[currentEdge*4+2] == EV_UNDEF {
			nfaces = completeFacet(ctx, pts, npts, &edges, maxEdges, nfaces, currentEdge)
		}
		if edges[currentEdge*4+3] == EV_UNDEF {
			nfaces = completeFacet(ctx, pts, npts, &edges, maxEdges, nfaces, currentEdge)
		}
	}

	// Create tris
	tris = tris[:0]
	for i := 0; i < nfaces*4; i++ {
		tris = append(tris, -1)
	}
	for i := 0; i+3 < len(edges); i += 4 {
		e := edges[i : i+4]
		if e[3] >= 0 {
			// Left face
			t := tris[e[3]*4:]
			if t[0] == -1 {
				t[0] = e[0]
				t[1] = e[1]
			} else if t[0] == e[1] {
				t[2] = e[0]
			} else if t[1] == e[0] {
				t[2] = e[1]
			}
		}
		if e[2] >= 0 {
			// Right
			t := tris[e[2]*4:]
			if t[0] == -1 {
				t[0] = e[1]
				t[1] = e[0]
			} else if t[0] == e[0] {
				t[2] = e[1]
			} else if t[1] == e[1] {
				t[2] = e[0]
			}
		}
	}

	for i := 0; i+3 < len(tris); i += 4 {
		t := tris[i : i+4]
		if t[0] == -1 || t[1] == -1 || t[2] == -1 {
			ctxLog(ctx, RC_LOG_WARNING, "delaunayHull: Removing dangling face %d [%d,%d,%d].", i/4, t[0], t[1], t[2])
			copy(t, tris[len(tris)-4:])
			tris = tris[:len(tris)-4]
			i -= 4
		}
	}
	return tris, edges
}

// polyMinExtent returns the smallest of the polygon's edge-to-farthest-vertex distances.
func polyMinExtent(verts []float32, nverts int) float32 {
	minDist := float32(math.MaxFloat32)
	for i := 0; i < nverts; i++ {
		ni := (i + 1) % nverts
		p1 := verts[i*3:]
		p2 := verts[ni*3:]
		maxEdgeDist := float32(0)
		for j := 0; j < nverts; j++ {
			if j == i || j == ni {
				continue
			}
			d, _ := common.DistancePtSegSqr2D(verts[j*3:], p1, p2)
			maxEdgeDist = max(maxEdgeDist, d)
		}
		minDist = min(minDist, maxEdgeDist)
	}
	return common.Sqrtf(minDist)
}

// triangulateHull fans out from the shortest-perimeter ear, stepping left or
// right toward the shorter next diagonal.
func triangulateHull(verts []float32, hull []int, nin int, tris []int) []int {
	nhull := len(hull)
	start, left, right := 0, 1, nhull-1

	dmin := float32(math.MaxFloat32)
	for i := 0; i < nhull; i++ {
		// Only original polygon vertices make ears; edge samples lie on straight lines.
		if hull[i] >= nin {
			continue
		}
		pi := prev(i, nhull)
		ni := next(i, nhull)
		pv := verts[hull[pi]*3:]
		cv := verts[hull[i]*3:]
		nv := verts[hull[ni]*3:]
		d := common.Vdist2D(pv, cv) + common.Vdist2D(cv, nv) + common.Vdist2D(nv, pv)
		if d < dmin {
			start = i
			left = ni
			right = pi
			dmin = d
		}
	}

	// Add first triangle
	tris = append(tris, hull[start], hull[left], hull[right], 0)

	for next(left, nhull) != right {
		// Check to see if se should advance left or right.
		nleft := next(left, nhull)
		nright := prev(right, nhull)

		cvleft := verts[hull[left]*3:]
		nvleft := verts[hull[nleft]*3:]
		cvright := verts[hull[right]*3:]
		nvright := verts[hull[nright]*3:]
		dleft := common.Vdist2D(cvleft, nvleft) + common.Vdist2D(nvleft, cvright)
		dright := common.Vdist2D(cvright, nvright) + common.Vdist2D(cvleft, nvright)

		if dleft < dright {
			tris = append(tris, hull[left], hull[nleft], hull[right], 0)
			left = nleft
		} else {
			tris = append(tris, hull[left], hull[nright], hull[right], 0)
			right = nright
		}
	}
	return tris
}

func getJitterX(i int) float32 {
	return (float32((i*0x8da6b343)&0xffff) / 65535.0 * 2.0) - 1.0
}

func getJitterY(i int) float32 {
	return (float32((i*0xd8163841)&0xffff) / 65535.0 * 2.0) - 1.0
}

func onHull(a, b int, hull []int) bool {
	// All internal sampled points come after the hull so we can early out for those.
	if a >= len(hull) || b >= len(hull) {
		return false
	}
	for i, j := 0, len(hull)-1; i < len(hull); j, i = i, i+1 {
		if a == hull[j] && b == hull[i] {
			return true
		}
	}
	return false
}

// setTriFlags marks the triangle edges that lie on the polygon outline.
func setTriFlags(tris []int, hull []int) {
	for i := 0; i+3 < len(tris); i += 4 {
		a, b, c := tris[i], tris[i+1], tris[i+2]
		flags := 0
		if onHull(a, b, hull) {
			flags |= rcDetailEdgeBoundary
		}
		if onHull(b, c, hull) {
			flags |= rcDetailEdgeBoundary << 2
		}
		if onHull(c, a, hull) {
			flags |= rcDetailEdgeBoundary << 4
		}
		tris[i+3] = flags
	}
}

// detailScratch holds the per-polygon buffers reused across buildPolyDetail calls.
type detailScratch struct {
	verts   [MAX_VERTS * 3]float32
	edge    [(MAX_VERTS_PER_EDGE + 1) * 3]float32
	idx     [MAX_VERTS_PER_EDGE]int
	hull    []int
	tris    []int
	edges   []int
	samples []int
}

// buildPolyDetail tessellates one polygon given in local space. Outline edges
// are sampled first so neighbouring polygons share heights, then interior
// samples with the largest error are inserted until the surface is within
// sampleMaxError. Returns the number of vertices written to sc.verts.
func buildPolyDetail(ctx RcContext, in []float32, nin int, sampleDist, sampleMaxError float32, heightSearchRadius int,
	chf *RcCompactHeightfield, hp *rcHeightPatch, sc *detailScratch) int {
	verts := sc.verts[:]
	edge := sc.edge[:]
	idx := sc.idx[:]
	sc.hull = sc.hull[:0]
	sc.tris = sc.tris[:0]
	sc.edges = sc.edges[:0]

	nverts := nin
	copy(verts, in[:nin*3])

	cs := chf.Cs
	ics := 1.0 / cs

	// Calculate minimum extents of the polygon based on input data.
	minExtent := polyMinExtent(verts, nverts)

	// Tessellate outlines in a separate pass so heights match across polygon boundaries.
	for i, j := 0, nin-1; i < nin; j, i = i, i+1 {
		sc.hull = append(sc.hull, j)
		if sampleDist <= 0 {
			continue
		}
		vj := in[j*3:]
		vi := in[i*3:]
		swapped := false
		// Make sure the segments are always handled in same order
		// using lexological sort or else there will be seams.
		if common.Abs(vj[0]-vi[0]) < 1e-6 {
			if vj[2] > vi[2] {
				vj, vi = vi, vj
				swapped = true
			}
		} else if vj[0] > vi[0] {
			vj, vi = vi, vj
			swapped = true
		}

		// Create samples along the edge.
		dx := vi[0] - vj[0]
		dy := vi[1] - vj[1]
		dz := vi[2] - vj[2]
		d := common.Sqrtf(dx*dx + dz*dz)
		nn := 1 + int(math.Floor(float64(d/sampleDist)))
		if nn >= MAX_VERTS_PER_EDGE {
			nn = MAX_VERTS_PER_EDGE - 1
		}
		if nverts+nn >= MAX_VERTS {
			nn = MAX_VERTS - 1 - nverts
		}
		nn = max(nn, 1)

		for k := 0; k <= nn; k++ {
			u := float32(k) / float32(nn)
			pos := edge[k*3:]
			pos[0] = vj[0] + dx*u
			pos[1] = vj[1] + dy*u
			pos[2] = vj[2] + dz*u
			pos[1] = float32(getHeight(pos[0], pos[1], pos[2], ics, chf.Ch, heightSearchRadius, hp)) * chf.Ch
		}

		// Simplify samples.
		idx[0] = 0
		idx[1] = nn
		nidx := 2
		for k := 0; k < nidx-1; {
			a := idx[k]
			b := idx[k+1]
			va := edge[a*3:]
			vb := edge[b*3:]
			// Find maximum deviation along the segment.
			maxd := float32(0)
			maxi := -1
			for m := a + 1; m < b; m++ {
				dev := distSqPtSeg(edge[m*3:], va, vb)
				if dev > maxd {
					maxd = dev
					maxi = m
				}
			}
			// If the max deviation is larger than accepted error,
			// add new point, else continue to next segment.
			if maxi != -1 && maxd > sampleMaxError*sampleMaxError {
				for m := nidx; m > k; m-- {
					idx[m] = idx[m-1]
				}
				idx[k+1] = maxi
				nidx++
			} else {
				k++
			}
		}

		// Add new vertices.
		if swapped {
			for k := nidx - 2; k > 0; k-- {
				copy(verts[nverts*3:nverts*3+3], edge[idx[k]*3:])
				sc.hull = append(sc.hull, nverts)
				nverts++
			}
		} else {
			for k := 1; k < nidx-1; k++ {
				copy(verts[nverts*3:nverts*3+3], edge[idx[k]*3:])
				sc.hull = append(sc.hull, nverts)
				nverts++
			}
		}
	}

	// Slivers and small triangles get no interior points.
	if minExtent < sampleDist*2 {
		sc.tris = triangulateHull(verts, sc.hull, nin, sc.tris)
		setTriFlags(sc.tris, sc.hull)
		return nverts
	}

	// Tessellate the base mesh. The hull triangulation handles long thin
	// triangles better than the delaunay one when there are no interior points.
	sc.tris = triangulateHull(verts, sc.hull, nin, sc.tris)

	if len(sc.tris) == 0 {
		// Could not triangulate the poly, make sure there is some valid data there.
		ctxLog(ctx, RC_LOG_WARNING, "buildPolyDetail: Could not triangulate polygon (%d verts).", nverts)
		return nverts
	}

	if sampleDist > 0 {
		// Create sample locations in a grid.
		var bmin, bmax [3]float32
		copy(bmin[:], in[:3])
		copy(bmax[:], in[:3])
		for i := 1; i < nin; i++ {
			common.Vmin(bmin[:], in[i*3:])
			common.Vmax(bmax[:], in[i*3:])
		}
		x0 := int(math.Floor(float64(bmin[0] / sampleDist)))
		x1 := int(math.Ceil(float64(bmax[0] / sampleDist)))
		z0 := int(math.Floor(float64(bmin[2] / sampleDist)))
		z1 := int(math.Ceil(float64(bmax[2] / sampleDist)))
		sc.samples = sc.samples[:0]
		for z := z0; z < z1; z++ {
			for x := x0; x < x1; x++ {
				pt := [3]float32{float32(x) * sampleDist, (bmax[1] + bmin[1]) * 0.5, float32(z) * sampleDist}
				// Make sure the samples are not too close to the edges.
				if distToPoly(nin, in, pt[:]) > -sampleDist/2 {
					continue
				}
				h := getHeight(pt[0], pt[1], pt[2], ics, chf.Ch, heightSearchRadius, hp)
				sc.samples = append(sc.samples, x, int(h), z, 0)
			}
		}

		// Add the samples starting from the one that has the most
		// error. The procedure stops when all samples are added
		// or when the max error is within treshold.
		nsamples := len(sc.samples) / 4
		for iter := 0; iter < nsamples; iter++ {
			if nverts >= MAX_VERTS {
				break
			}

			// Find sample with most error.
			var bestpt [3]float32
			bestd := float32(0)
			besti := -1
			for i := 0; i < nsamples; i++ {
				s := sc.samples[i*4:]
				if s[3] != 0 {
					continue // skip added.
				}
				// Jitter breaks the symmetry of the sample grid.
				pt := [3]float32{
					float32(s[0])*sampleDist + getJitterX(i)*cs*0.1,
					float32(s[1]) * chf.Ch,
					float32(s[2])*sampleDist + getJitterY(i)*cs*0.1,
				}
				d := distToTriMesh(pt[:], verts, sc.tris)
				if d < 0 {
					continue // did not hit the mesh.
				}
				if d > bestd {
					bestd = d
					besti = i
					bestpt = pt
				}
			}
			// If the max error is within accepted threshold, stop tesselating.
			if bestd <= sampleMaxError || besti == -1 {
				break
			}
			// Mark sample as added.
			sc.samples[besti*4+3] = 1
			// Add the new sample point.
			copy(verts[nverts*3:nverts*3+3], bestpt[:])
			nverts++

			// Create new triangulation.
			sc.tris, sc.edges = delaunayHull(ctx, nverts, verts, sc.hull, sc.tris, sc.edges)
		}
	}

	if ntris := len(sc.tris) / 4; ntris > MAX_TRIS {
		sc.tris = sc.tris[:MAX_TRIS*4]
		ctxLog(ctx, RC_LOG_ERROR, "rcBuildPolyMeshDetail: Shrinking triangle count from %d to max %d.", ntris, MAX_TRIS)
	}
	setTriFlags(sc.tris, sc.hull)
	return nverts
}

// seedArrayWithPolyCenter walks from the span nearest a polygon vertex to the
// polygon centre and returns the centre span as the only flood fill seed.
func seedArrayWithPolyCenter(ctx RcContext, chf *RcCompactHeightfield, poly []uint16, npoly int, verts []uint16,
	bs int, hp *rcHeightPatch, queue []int) []int {
	offset := [9 * 2]int{0, 0, -1, -1, 0, -1, 1, -1, 1, 0, 1, 1, 0, 1, -1, 1, -1, 0}

	// Find cell closest to a poly vertex
	startCellX, startCellY, startSpanIndex := 0, 0, -1
	dmin := RC_UNSET_HEIGHT
	for j := 0; j < npoly && dmin > 0; j++ {
		for k := 0; k < 9 && dmin > 0; k++ {
			ax := int(verts[int(poly[j])*3+0]) + offset[k*2+0]
			ay := int(verts[int(poly[j])*3+1])
			az := int(verts[int(poly[j])*3+2]) + offset[k*2+1]
			if ax < hp.xmin || ax >= hp.xmin+hp.width || az < hp.ymin || az >= hp.ymin+hp.height {
				continue
			}
			c := &chf.Cells[(ax+bs)+(az+bs)*chf.Width]
			for i, ni := int(c.Index), int(c.Index)+int(c.Count); i < ni && dmin > 0; i++ {
				d := abs16(ay - int(chf.Spans[i].Y))
				if d < dmin {
					startCellX = ax
					startCellY = az
					startSpanIndex = i
					dmin = d
				}
			}
		}
	}
	queue = queue[:0]
	if startSpanIndex < 0 {
		return queue
	}

	// Find center of the polygon
	pcx, pcy := 0, 0
	for j := 0; j < npoly; j++ {
		pcx += int(verts[int(poly[j])*3+0])
		pcy += int(verts[int(poly[j])*3+2])
	}
	pcx /= npoly
	pcy /= npoly

	queue = append(queue, startCellX, startCellY, startSpanIndex)
	dirs := [4]int{0, 1, 2, 3}
	data := hp.data[:hp.width*hp.height]
	clear(data)

	// DFS to move to the center. The visited cells are recorded since
	// contour simplification can leave a direct walk stuck.
	cx, cy, ci := -1, -1, -1
	for {
		if len(queue) < 3 {
			ctxLog(ctx, RC_LOG_WARNING, "Walk towards polygon center failed to reach center")
			break
		}
		n := len(queue)
		cx, cy, ci = queue[n-3], queue[n-2], queue[n-1]
		queue = queue[:n-3]

		if cx == pcx && cy == pcy {
			break
		}

		// Prefer moving along z when x already matches, else along x.
		var directDir int
		if cx == pcx {
			directDir = common.GetDirForOffset(0, sign(pcy-cy))
		} else {
			directDir = common.GetDirForOffset(sign(pcx-cx), 0)
		}

		// Push the direct dir last so we start with this on next iteration
		dirs[directDir], dirs[3] = dirs[3], dirs[directDir]

		cs := &chf.Spans[ci]
		for i := 0; i < 4; i++ {
			dir := dirs[i]
			if RcGetCon(cs, dir) == RC_NOT_CONNECTED {
				continue
			}
			newX := cx + common.GetDirOffsetX(dir)
			newY := cy + common.GetDirOffsetY(dir)

			hpx := newX - hp.xmin
			hpy := newY - hp.ymin
			if hpx < 0 || hpx >= hp.width || hpy < 0 || hpy >= hp.height {
				continue
			}
			if data[hpx+hpy*hp.width] != 0 {
				continue
			}
			data[hpx+hpy*hp.width] = 1
			queue = append(queue, newX, newY, int(chf.Cells[(newX+bs)+(newY+bs)*chf.Width].Index)+RcGetCon(cs, dir))
		}

		dirs[directDir], dirs[3] = dirs[3], dirs[directDir]
	}

	// getHeightData seeds are given in coordinates with borders
	queue = append(queue[:0], cx+bs, cy+bs, ci)
	for i := range data {
		data[i] = RC_UNSET_HEIGHT
	}
	data[cx-hp.xmin+(cy-hp.ymin)*hp.width] = chf.Spans[ci].Y
	return queue
}

func sign(v int) int {
	if v > 0 {
		return 1
	}
	return -1
}

// getHeightData fills hp with the heights of the spans under the polygon.
// Spans of the polygon's own region are copied directly and the rest of the
// patch is flood filled from them. Reads of chf are offset by bs since the
// poly mesh vertices have the border removed.
func getHeightData(ctx RcContext, chf *RcCompactHeightfield, poly []uint16, npoly int, verts []uint16,
	bs int, hp *rcHeightPatch, queue []int, region uint16) []int {
	queue = queue[:0]
	data := hp.data[:hp.width*hp.height]
	for i := range data {
		data[i] = RC_UNSET_HEIGHT
	}

	empty := true

	// A polygon merged from several regions may overlap polygons of those
	// regions, so its heights are not copied by region.
	if region != RC_MULTIPLE_REGS {
		// Copy the height from the same region, and mark region borders
		// as seed points to fill the rest.
		for hy := 0; hy < hp.height; hy++ {
			y := hp.ymin + hy + bs
			for hx := 0; hx < hp.width; hx++ {
				x := hp.xmin + hx + bs
				c := &chf.Cells[x+y*chf.Width]
				for i, ni := int(c.Index), int(c.Index)+int(c.Count); i < ni; i++ {
					s := &chf.Spans[i]
					if s.Reg != region {
						continue
					}
					// Store height
					data[hx+hy*hp.width] = s.Y
					empty = false

					// If any of the neighbours is not in same region,
					// add the current location as flood fill start
					border := false
					for dir := 0; dir < 4; dir++ {
						if RcGetCon(s, dir) == RC_NOT_CONNECTED {
							continue
						}
						ax := x + common.GetDirOffsetX(dir)
						ay := y + common.GetDirOffsetY(dir)
						ai := int(chf.Cells[ax+ay*chf.Width].Index) + RcGetCon(s, dir)
						if chf.Spans[ai].Reg != region {
							border = true
							break
						}
					}
					if border {
						queue = append(queue, x, y, i)
					}
					break
				}
			}
		}
	}

	// No span of the region under the polygon (rare) or a multi-region
	// polygon: seed from the polygon centre instead.
	if empty {
		queue = seedArrayWithPolyCenter(ctx, chf, poly, npoly, verts, bs, hp, queue)
	}

	// The seeds lie inside the polygon, so a BFS collecting heights does not
	// step onto overlapping polygons.
	for head := 0; head+2 < len(queue); head += 3 {
		cx, cy, ci := queue[head], queue[head+1], queue[head+2]
		cs := &chf.Spans[ci]
		for dir := 0; dir < 4; dir++ {
			if RcGetCon(cs, dir) == RC_NOT_CONNECTED {
				continue
			}
			ax := cx + common.GetDirOffsetX(dir)
			ay := cy + common.GetDirOffsetY(dir)
			hx := ax - hp.xmin - bs
			hy := ay - hp.ymin - bs
			if hx < 0 || hx >= hp.width || hy < 0 || hy >= hp.height {
				continue
			}
			if data[hx+hy*hp.width] != RC_UNSET_HEIGHT {
				continue
			}
			ai := int(chf.Cells[ax+ay*chf.Width].Index) + RcGetCon(cs, dir)
			data[hx+hy*hp.width] = chf.Spans[ai].Y
			queue = append(queue, ax, ay, ai)
		}
	}
	return queue
}

// / Builds a detail mesh from the provided polygon mesh.
// / Each polygon outline is sampled every sampleDist against the compact
// / heightfield, then interior samples are added until the detail surface is
// / within sampleMaxError of the sampled heights.
func RcBuildPolyMeshDetail(ctx RcContext, mesh *RcPolyMesh, chf *RcCompactHeightfield, sampleDist, sampleMaxError float32) *RcPolyMeshDetail {
	defer rcScopedTimer(ctx, RC_TIMER_BUILD_POLYMESHDETAIL)()

	dmesh := &RcPolyMeshDetail{}
	if mesh.NVerts == 0 || mesh.NPolys == 0 {
		return dmesh
	}

	nvp := mesh.Nvp
	cs := mesh.Cs
	ch := mesh.Ch
	orig := mesh.Bmin
	borderSize := mesh.BorderSize
	heightSearchRadius := max(1, int(math.Ceil(float64(mesh.MaxEdgeError))))

	// Find max size for a polygon area.
	bounds := make([]int, mesh.NPolys*4)
	nPolyVerts := 0
	maxhw, maxhh := 0, 0
	for i := 0; i < mesh.NPolys; i++ {
		p := mesh.Polys[i*nvp*2:]
		xmin, xmax, ymin, ymax := chf.Width, 0, chf.Height, 0
		for j := 0; j < nvp && p[j] != RC_MESH_NULL_IDX; j++ {
			v := mesh.Verts[int(p[j])*3:]
			xmin = min(xmin, int(v[0]))
			xmax = max(xmax, int(v[0]))
			ymin = min(ymin, int(v[2]))
			ymax = max(ymax, int(v[2]))
			nPolyVerts++
		}
		xmin = max(0, xmin-1)
		xmax = min(chf.Width, xmax+1)
		ymin = max(0, ymin-1)
		ymax = min(chf.Height, ymax+1)
		bounds[i*4+0], bounds[i*4+1], bounds[i*4+2], bounds[i*4+3] = xmin, xmax, ymin, ymax
		if xmin >= xmax || ymin >= ymax {
			continue
		}
		maxhw = max(maxhw, xmax-xmin)
		maxhh = max(maxhh, ymax-ymin)
	}

	hp := &rcHeightPatch{data: make([]uint16, maxhw*maxhh)}
	sc := &detailScratch{}
	var queue []int
	poly := make([]float32, nvp*3)

	vcap := nPolyVerts + nPolyVerts/2
	dmesh.NMeshes = mesh.NPolys
	dmesh.Meshes = make([]uint32, dmesh.NMeshes*4)
	dmesh.Verts = make([]float32, 0, vcap*3)
	dmesh.Tris = make([]uint8, 0, vcap*2*4)

	for i := 0; i < mesh.NPolys; i++ {
		p := mesh.Polys[i*nvp*2:]

		// Store polygon vertices for processing.
		npoly := 0
		for j := 0; j < nvp && p[j] != RC_MESH_NULL_IDX; j++ {
			v := mesh.Verts[int(p[j])*3:]
			poly[j*3+0] = float32(v[0]) * cs
			poly[j*3+1] = float32(v[1]) * ch
			poly[j*3+2] = float32(v[2]) * cs
			npoly++
		}

		hp.xmin = bounds[i*4+0]
		hp.ymin = bounds[i*4+2]
		hp.width = bounds[i*4+1] - bounds[i*4+0]
		hp.height = bounds[i*4+3] - bounds[i*4+2]
		if npoly < 3 || hp.width <= 0 || hp.height <= 0 {
			ctxLog(ctx, RC_LOG_WARNING, "rcBuildPolyMeshDetail: Skipping degenerate polygon %d.", i)
			dmesh.Meshes[i*4+0] = uint32(dmesh.NVerts)
			dmesh.Meshes[i*4+2] = uint32(dmesh.NTris)
			continue
		}

		// Get the height data from the area of the polygon.
		queue = getHeightData(ctx, chf, p, npoly, mesh.Verts, borderSize, hp, queue, mesh.Regs[i])

		// Build detail mesh.
		nverts := buildPolyDetail(ctx, poly, npoly, sampleDist, sampleMaxError, heightSearchRadius, chf, hp, sc)

		// Store detail submesh in world space. Sampled heights are span tops,
		// the same reference the polygon vertices use.
		ntris := len(sc.tris) / 4
		dmesh.Meshes[i*4+0] = uint32(dmesh.NVerts)
		dmesh.Meshes[i*4+1] = uint32(nverts)
		dmesh.Meshes[i*4+2] = uint32(dmesh.NTris)
		dmesh.Meshes[i*4+3] = uint32(ntris)

		for j := 0; j < nverts; j++ {
			v := sc.verts[j*3:]
			dmesh.Verts = append(dmesh.Verts, v[0]+orig[0], v[1]+orig[1], v[2]+orig[2])
		}
		dmesh.NVerts += nverts

		for j := 0; j < ntris; j++ {
			t := sc.tris[j*4:]
			dmesh.Tris = append(dmesh.Tris, uint8(t[0]), uint8(t[1]), uint8(t[2]), uint8(t[3]))
		}
		dmesh.NTris += ntris
	}
	return dmesh
}
