package recast

import (
	"sort"

	"github.com/gorustyt/navcore/common"
)

// / Represents a simple, non-overlapping contour in field space.
type RcContour struct {
	Verts   []int32 ///< Simplified contour vertex and connection data. [Size: 4 * #nverts]
	NVerts  int     ///< The number of vertices in the simplified contour.
	RVerts  []int32 ///< Raw contour vertex and connection data. [Size: 4 * #nrverts]
	NRVerts int     ///< The number of vertices in the raw contour.
	Reg     uint16  ///< The region id of the contour.
	Area    uint8   ///< The area id of the contour.
}

// / Represents a group of related contours.
type RcContourSet struct {
	Conts      []RcContour
	Bmin       [3]float32
	Bmax       [3]float32
	Cs         float32
	Ch         float32
	Width      int     ///< The width of the set. (Along the x-axis in cell units.)
	Height     int     ///< The height of the set. (Along the z-axis in cell units.)
	BorderSize int     ///< The AABB border size used to generate the source data from which the contours were derived.
	MaxError   float32 ///< The max edge error that this contour set was simplified with.
}

func getCornerHeight(x, y, i, dir int, chf *RcCompactHeightfield) (height int, isBorderVertex bool) {
	s := &chf.Spans[i]
	ch := int(s.Y)
	dirp := (dir + 1) & 0x3
	var regs [4]uint32

	// Combine region and area codes in order to prevent
	// border vertices which are in between two areas to be removed.
	regs[0] = uint32(chf.Spans[i].Reg) | uint32(chf.Areas[i])<<16

	if RcGetCon(s, dir) != RC_NOT_CONNECTED {
		ax := x + common.GetDirOffsetX(dir)
		ay := y + common.GetDirOffsetY(dir)
		ai := int(chf.Cells[ax+ay*chf.Width].Index) + RcGetCon(s, dir)
		as := &chf.Spans[ai]
		ch = max(ch, int(as.Y))
		regs[1] = uint32(as.Reg) | uint32(chf.Areas[ai])<<16
		if RcGetCon(as, dirp) != RC_NOT_CONNECTED {
			ax2 := ax + common.GetDirOffsetX(dirp)
			ay2 := ay + common.GetDirOffsetY(dirp)
			ai2 := int(chf.Cells[ax2+ay2*chf.Width].Index) + RcGetCon(as, dirp)
			as2 := &chf.Spans[ai2]
			ch = max(ch, int(as2.Y))
			regs[2] = uint32(as2.Reg) | uint32(chf.Areas[ai2])<<16
		}
	}
	if RcGetCon(s, dirp) != RC_NOT_CONNECTED {
		ax := x + common.GetDirOffsetX(dirp)
		ay := y + common.GetDirOffsetY(dirp)
		ai := int(chf.Cells[ax+ay*chf.Width].Index) + RcGetCon(s, dirp)
		as := &chf.Spans[ai]
		ch = max(ch, int(as.Y))
		regs[3] = uint32(as.Reg) | uint32(chf.Areas[ai])<<16
		if RcGetCon(as, dir) != RC_NOT_CONNECTED {
			ax2 := ax + common.GetDirOffsetX(dir)
			ay2 := ay + common.GetDirOffsetY(dir)
			ai2 := int(chf.Cells[ax2+ay2*chf.Width].Index) + RcGetCon(as, dir)
			as2 := &chf.Spans[ai2]
			ch = max(ch, int(as2.Y))
			regs[2] = uint32(as2.Reg) | uint32(chf.Areas[ai2])<<16
		}
	}

	// Check if the vertex is special edge vertex, these vertices will be removed later.
	for j := 0; j < 4; j++ {
		a := j
		b := (j + 1) & 0x3
		c := (j + 2) & 0x3
		d := (j + 3) & 0x3

		// The vertex is a border vertex there are two same exterior cells in a row,
		// followed by two interior cells and none of the regions are out of bounds.
		twoSameExts := (regs[a]&regs[b]&RC_BORDER_REG) != 0 && regs[a] == regs[b]
		twoInts := ((regs[c] | regs[d]) & RC_BORDER_REG) == 0
		intsSameArea := (regs[c] >> 16) == (regs[d] >> 16)
		noZeros := regs[a] != 0 && regs[b] != 0 && regs[c] != 0 && regs[d] != 0
		if twoSameExts && twoInts && intsSameArea && noZeros {
			isBorderVertex = true
			break
		}
	}
	return ch, isBorderVertex
}

func walkContour(x, y, i int, chf *RcCompactHeightfield, flags []uint8, points []int32) []int32 {
	// Choose the first non-connected edge
	dir := 0
	for (flags[i] & (1 << dir)) == 0 {
		dir++
	}
	startDir := dir
	starti := i
	area := chf.Areas[i]

	for iter := 1; iter < 40000; iter++ {
		if flags[i]&(1<<dir) != 0 {
			// Choose the edge corner
			isAreaBorder := false
			px := x
			py, isBorderVertex := getCornerHeight(x, y, i, dir, chf)
			pz := y
			switch dir {
			case 0:
				pz++
			case 1:
				px++
				pz++
			case 2:
				px++
			}
			r := 0
			s := &chf.Spans[i]
			if RcGetCon(s, dir) != RC_NOT_CONNECTED {
				ax := x + common.GetDirOffsetX(dir)
				ay := y + common.GetDirOffsetY(dir)
				ai := int(chf.Cells[ax+ay*chf.Width].Index) + RcGetCon(s, dir)
				r = int(chf.Spans[ai].Reg)
				if area != chf.Areas[ai] {
					isAreaBorder = true
				}
			}
			if isBorderVertex {
				r |= RC_BORDER_VERTEX
			}
			if isAreaBorder {
				r |= RC_AREA_BORDER
			}
			points = append(points, int32(px), int32(py), int32(pz), int32(r))
			flags[i] &^= 1 << dir // Remove visited edges
			dir = (dir + 1) & 0x3 // Rotate CW
		} else {
			ni := -1
			nx := x + common.GetDirOffsetX(dir)
			ny := y + common.GetDirOffsetY(dir)
			s := &chf.Spans[i]
			if RcGetCon(s, dir) != RC_NOT_CONNECTED {
				nc := &chf.Cells[nx+ny*chf.Width]
				ni = int(nc.Index) + RcGetCon(s, dir)
			}
			if ni == -1 {
				// Should not happen.
				return points
			}
			x = nx
			y = ny
			i = ni
			dir = (dir + 3) & 0x3 // Rotate CCW
		}
		if starti == i && startDir == dir {
			break
		}
	}
	return points
}

func distancePtSeg(x, z, px, pz, qx, qz int32) float32 {
	pqx := float32(qx - px)
	pqz := float32(qz - pz)
	dx := float32(x - px)
	dz := float32(z - pz)
	d := pqx*pqx + pqz*pqz
	t := pqx*dx + pqz*dz
	if d > 0 {
		t /= d
	}
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	dx = float32(px) + t*pqx - float32(x)
	dz = float32(pz) + t*pqz - float32(z)
	return dx*dx + dz*dz
}

func insertSimplified(simplified []int32, at int, v [4]int32) []int32 {
	simplified = append(simplified, 0, 0, 0, 0)
	copy(simplified[(at+1)*4:], simplified[at*4:len(simplified)-4])
	copy(simplified[at*4:at*4+4], v[:])
	return simplified
}

func simplifyContour(points []int32, simplified []int32, maxError float32, maxEdgeLen int, buildFlags int) []int32 {
	// Add initial points.
	hasConnections := false
	for i := 0; i < len(points); i += 4 {
		if points[i+3]&RC_CONTOUR_REG_MASK != 0 {
			hasConnections = true
			break
		}
	}
	pn := len(points) / 4

	if hasConnections {
		// The contour has some portals to other regions.
		// Add a new point to every location where the region changes.
		for i := 0; i < pn; i++ {
			ii := (i + 1) % pn
			differentRegs := (points[i*4+3] & RC_CONTOUR_REG_MASK) != (points[ii*4+3] & RC_CONTOUR_REG_MASK)
			areaBorders := (points[i*4+3] & RC_AREA_BORDER) != (points[ii*4+3] & RC_AREA_BORDER)
			if differentRegs || areaBorders {
				simplified = append(simplified, points[i*4+0], points[i*4+1], points[i*4+2], int32(i))
			}
		}
	}

	if len(simplified) == 0 {
		// If there is no connections at all,
		// create some initial points for the simplification process.
		// Find lower-left and upper-right vertices of the contour.
		llx, lly, llz, lli := points[0], points[1], points[2], 0
		urx, ury, urz, uri := points[0], points[1], points[2], 0
		for i := 0; i < pn; i++ {
			x, y, z := points[i*4+0], points[i*4+1], points[i*4+2]
			if x < llx || (x == llx && z < llz) {
				llx, lly, llz, lli = x, y, z, i
			}
			if x > urx || (x == urx && z > urz) {
				urx, ury, urz, uri = x, y, z, i
			}
		}
		simplified = append(simplified, llx, lly, llz, int32(lli))
		simplified = append(simplified, urx, ury, urz, int32(uri))
	}

	// Add points until all raw points are within
	// error tolerance to the simplified shape.
	for i := 0; i < len(simplified)/4; {
		ii := (i + 1) % (len(simplified) / 4)

		ax := simplified[i*4+0]
		az := simplified[i*4+2]
		ai := int(simplified[i*4+3])

		bx := simplified[ii*4+0]
		bz := simplified[ii*4+2]
		bi := int(simplified[ii*4+3])

		// Find maximum deviation from the segment.
		var maxd float32
		maxi := -1
		var ci, cinc, endi int

		// Traverse the segment in lexilogical order so that the
		// max deviation is calculated similarly when traversing
		// opposite segments.
		if bx > ax || (bx == ax && bz > az) {
			cinc = 1
			ci = (ai + cinc) % pn
			endi = bi
		} else {
			cinc = pn - 1
			ci = (bi + cinc) % pn
			endi = ai
			ax, bx = bx, ax
			az, bz = bz, az
		}

		// Tessellate only outer edges or edges between areas.
		if (points[ci*4+3]&RC_CONTOUR_REG_MASK) == 0 || (points[ci*4+3]&RC_AREA_BORDER) != 0 {
			for ci != endi {
				d := distancePtSeg(points[ci*4+0], points[ci*4+2], ax, az, bx, bz)
				if d > maxd {
					maxd = d
					maxi = ci
				}
				ci = (ci + cinc) % pn
			}
		}

		// If the max deviation is larger than accepted error,
		// add new point, else continue to next segment.
		if maxi != -1 && maxd > maxError*maxError {
			simplified = insertSimplified(simplified, i+1, [4]int32{points[maxi*4+0], points[maxi*4+1], points[maxi*4+2], int32(maxi)})
		} else {
			i++
		}
	}

	// Split too long edges.
	if maxEdgeLen > 0 && (buildFlags&(RC_CONTOUR_TESS_WALL_EDGES|RC_CONTOUR_TESS_AREA_EDGES)) != 0 {
		for i := 0; i < len(simplified)/4; {
			ii := (i + 1) % (len(simplified) / 4)

			ax := simplified[i*4+0]
			az := simplified[i*4+2]
			ai := int(simplified[i*4+3])

			bx := simplified[ii*4+0]
			bz := simplified[ii*4+2]
			bi := int(simplified[ii*4+3])

			// Find maximum deviation from the segment.
			maxi := -1
			ci := (ai + 1) % pn

			// Tessellate only outer edges or edges between areas.
			tess := false
			// Wall edges.
			if (buildFlags&RC_CONTOUR_TESS_WALL_EDGES) != 0 && (points[ci*4+3]&RC_CONTOUR_REG_MASK) == 0 {
				tess = true
			}
			// Edges between areas.
			if (buildFlags&RC_CONTOUR_TESS_AREA_EDGES) != 0 && (points[ci*4+3]&RC_AREA_BORDER) != 0 {
				tess = true
			}

			if tess {
				dx := int(bx - ax)
				dz := int(bz - az)
				if dx*dx+dz*dz > maxEdgeLen*maxEdgeLen {
					// Round based on the segments in lexilogical order so that the
					// max tesselation is consistent regardless in which direction
					// segments are traversed.
					n := bi - ai
					if bi < ai {
						n = bi + pn - ai
					}
					if n > 1 {
						if bx > ax || (bx == ax && bz > az) {
							maxi = (ai + n/2) % pn
						} else {
							maxi = (ai + (n+1)/2) % pn
						}
					}
				}
			}

			// If the max deviation is larger than accepted error,
			// add new point, else continue to next segment.
			if maxi != -1 {
				simplified = insertSimplified(simplified, i+1, [4]int32{points[maxi*4+0], points[maxi*4+1], points[maxi*4+2], int32(maxi)})
			} else {
				i++
			}
		}
	}

	for i := 0; i < len(simplified)/4; i++ {
		// The edge vertex flag is take from the current raw point,
		// and the neighbour region is take from the next raw point.
		ai := (int(simplified[i*4+3]) + 1) % pn
		bi := int(simplified[i*4+3])
		simplified[i*4+3] = (points[ai*4+3] & (RC_CONTOUR_REG_MASK | RC_AREA_BORDER)) | (points[bi*4+3] & RC_BORDER_VERTEX)
	}
	return simplified
}

func removeDegenerateSegments(simplified []int32) []int32 {
	// Remove adjacent vertices which are equal on xz-plane,
	// or else the triangulator will get confused.
	npts := len(simplified) / 4
	for i := 0; i < npts; i++ {
		ni := next(i, npts)
		if vequal(simplified[i*4:], simplified[ni*4:]) {
			// Degenerate segment, remove.
			copy(simplified[i*4:], simplified[(i+1)*4:])
			simplified = simplified[:len(simplified)-4]
			npts--
		}
	}
	return simplified
}

func calcAreaOfPolygon2D(verts []int32, nverts int) int {
	area := 0
	for i, j := 0, nverts-1; i < nverts; j, i = i, i+1 {
		vi := verts[i*4:]
		vj := verts[j*4:]
		area += int(vi[0])*int(vj[2]) - int(vj[0])*int(vi[2])
	}
	return (area + 1) / 2
}

func inConeContour(i, n int, verts []int32, pj []int32) bool {
	pi := verts[i*4:]
	pi1 := verts[next(i, n)*4:]
	pin1 := verts[prev(i, n)*4:]

	// If P[i] is a convex vertex [ i+1 left or on (i-1,i) ].
	if leftOn(pin1, pi, pi1) {
		return left(pi, pj, pin1) && left(pj, pi, pi1)
	}
	// Assume (i-1,i,i+1) not collinear.
	// else P[i] is reflex.
	return !(leftOn(pi, pj, pi1) && leftOn(pj, pi, pin1))
}

func intersectSegContour(d0, d1 []int32, i, n int, verts []int32) bool {
	// For each edge (k,k+1) of P
	for k := 0; k < n; k++ {
		k1 := next(k, n)
		// Skip edges incident to i.
		if i == k || i == k1 {
			continue
		}
		p0 := verts[k*4:]
		p1 := verts[k1*4:]
		if vequal(d0, p0) || vequal(d1, p0) || vequal(d0, p1) || vequal(d1, p1) {
			continue
		}
		if intersect(d0, d1, p0, p1) {
			return true
		}
	}
	return false
}

func mergeContours(ca, cb *RcContour, ia, ib int) {
	verts := make([]int32, 0, (ca.NVerts+cb.NVerts+2)*4)
	// Copy contour A.
	for i := 0; i <= ca.NVerts; i++ {
		src := ca.Verts[((ia+i)%ca.NVerts)*4:]
		verts = append(verts, src[0], src[1], src[2], src[3])
	}
	// Copy contour B
	for i := 0; i <= cb.NVerts; i++ {
		src := cb.Verts[((ib+i)%cb.NVerts)*4:]
		verts = append(verts, src[0], src[1], src[2], src[3])
	}
	ca.Verts = verts
	ca.NVerts = len(verts) / 4
	cb.Verts = nil
	cb.NVerts = 0
}

type rcContourHole struct {
	contour  *RcContour
	minx     int32
	minz     int32
	leftmost int
}

type rcContourRegion struct {
	outline *RcContour
	holes   []rcContourHole
}

type rcPotentialDiagonal struct {
	vert int
	dist int
}

// Finds the lowest leftmost vertex of a contour.
func findLeftMostVertex(contour *RcContour) (minx, minz int32, leftmost int) {
	minx = contour.Verts[0]
	minz = contour.Verts[2]
	for i := 1; i < contour.NVerts; i++ {
		x := contour.Verts[i*4+0]
		z := contour.Verts[i*4+2]
		if x < minx || (x == minx && z < minz) {
			minx = x
			minz = z
			leftmost = i
		}
	}
	return
}

func mergeRegionHoles(ctx RcContext, region *rcContourRegion) {
	// Sort holes from left to right.
	for i := range region.holes {
		region.holes[i].minx, region.holes[i].minz, region.holes[i].leftmost = findLeftMostVertex(region.holes[i].contour)
	}
	sort.Slice(region.holes, func(a, b int) bool {
		ha, hb := region.holes[a], region.holes[b]
		if ha.minx == hb.minx {
			return ha.minz < hb.minz
		}
		return ha.minx < hb.minx
	})

	outline := region.outline
	var diags []rcPotentialDiagonal

	// Merge holes into the outline one by one.
	for i := range region.holes {
		hole := region.holes[i].contour
		index := -1
		bestVertex := region.holes[i].leftmost
		for iter := 0; iter < hole.NVerts; iter++ {
			// Find potential diagonals.
			// The 'best' vertex must be in the cone described by 3 consecutive vertices of the outline.
			// ..o j-1
			//   |
			//   |   * best
			//   |
			// j o-----o j+1
			//         :
			diags = diags[:0]
			corner := hole.Verts[bestVertex*4:]
			for j := 0; j < outline.NVerts; j++ {
				if inConeContour(j, outline.NVerts, outline.Verts, corner) {
					dx := int(outline.Verts[j*4+0] - corner[0])
					dz := int(outline.Verts[j*4+2] - corner[2])
					diags = append(diags, rcPotentialDiagonal{vert: j, dist: dx*dx + dz*dz})
				}
			}
			// Sort potential diagonals by distance, we want to make the connection as short as possible.
			sort.Slice(diags, func(a, b int) bool { return diags[a].dist < diags[b].dist })

			// Find a diagonal that is not intersecting the outline not the remaining holes.
			index = -1
			for _, dg := range diags {
				pt := outline.Verts[dg.vert*4:]
				isect := intersectSegContour(pt, corner, dg.vert, outline.NVerts, outline.Verts)
				for k := i; k < len(region.holes) && !isect; k++ {
					isect = isect || intersectSegContour(pt, corner, -1, region.holes[k].contour.NVerts, region.holes[k].contour.Verts)
				}
				if !isect {
					index = dg.vert
					break
				}
			}
			// If found non-intersecting diagonal, stop looking.
			if index != -1 {
				break
			}
			// All the potential diagonals for the current vertex were intersecting, try next vertex.
			bestVertex = (bestVertex + 1) % hole.NVerts
		}

		if index == -1 {
			ctxLog(ctx, RC_LOG_WARNING, "mergeHoles: Failed to find merge points for %p and %p.", region.outline, hole)
			continue
		}
		mergeContours(region.outline, hole, index, bestVertex)
	}
}

// / Builds a contour set from the region outlines in the provided compact heightfield.
func RcBuildContours(ctx RcContext, chf *RcCompactHeightfield, maxError float32, maxEdgeLen int, buildFlags int) *RcContourSet {
	defer rcScopedTimer(ctx, RC_TIMER_BUILD_CONTOURS)()
	w := chf.Width
	h := chf.Height
	borderSize := chf.BorderSize

	cset := &RcContourSet{
		Bmin:       chf.Bmin,
		Bmax:       chf.Bmax,
		Cs:         chf.Cs,
		Ch:         chf.Ch,
		Width:      chf.Width - chf.BorderSize*2,
		Height:     chf.Height - chf.BorderSize*2,
		BorderSize: chf.BorderSize,
		MaxError:   maxError,
	}
	if borderSize > 0 {
		// If the heightfield was build with bordersize, remove the offset.
		pad := float32(borderSize) * chf.Cs
		cset.Bmin[0] += pad
		cset.Bmin[2] += pad
		cset.Bmax[0] -= pad
		cset.Bmax[2] -= pad
	}
	cset.Conts = make([]RcContour, 0, max(int(chf.MaxRegions), 8))

	flags := make([]uint8, chf.SpanCount)

	stopTrace := rcScopedTimer(ctx, RC_TIMER_BUILD_CONTOURS_TRACE)
	// Mark boundaries.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := &chf.Cells[x+y*w]
			for i := int(c.Index); i < int(c.Index)+int(c.Count); i++ {
				var res uint8
				s := &chf.Spans[i]
				if s.Reg == 0 || (s.Reg&RC_BORDER_REG) != 0 {
					flags[i] = 0
					continue
				}
				for dir := 0; dir < 4; dir++ {
					var r uint16
					if RcGetCon(s, dir) != RC_NOT_CONNECTED {
						ax := x + common.GetDirOffsetX(dir)
						ay := y + common.GetDirOffsetY(dir)
						ai := int(chf.Cells[ax+ay*w].Index) + RcGetCon(s, dir)
						r = chf.Spans[ai].Reg
					}
					if r == s.Reg {
						res |= 1 << dir
					}
				}
				flags[i] = res ^ 0xf // Inverse, mark non connected edges.
			}
		}
	}
	stopTrace()

	var verts, simplified []int32
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := &chf.Cells[x+y*w]
			for i := int(c.Index); i < int(c.Index)+int(c.Count); i++ {
				if flags[i] == 0 || flags[i] == 0xf {
					flags[i] = 0
					continue
				}
				reg := chf.Spans[i].Reg
				if reg == 0 || (reg&RC_BORDER_REG) != 0 {
					continue
				}
				area := chf.Areas[i]

				verts = verts[:0]
				simplified = simplified[:0]

				stopTrace = rcScopedTimer(ctx, RC_TIMER_BUILD_CONTOURS_TRACE)
				verts = walkContour(x, y, i, chf, flags, verts)
				stopTrace()

				stopSimplify := rcScopedTimer(ctx, RC_TIMER_BUILD_CONTOURS_SIMPLIFY)
				simplified = simplifyContour(verts, simplified, maxError, maxEdgeLen, buildFlags)
				simplified = removeDegenerateSegments(simplified)
				stopSimplify()

				// Store region->contour remap info.
				// Create contour.
				if len(simplified)/4 >= 3 {
					cont := RcContour{
						NVerts:  len(simplified) / 4,
						Verts:   append([]int32(nil), simplified...),
						NRVerts: len(verts) / 4,
						RVerts:  append([]int32(nil), verts...),
						Reg:     reg,
						Area:    area,
					}
					if borderSize > 0 {
						// If the heightfield was build with bordersize, remove the offset.
						for j := 0; j < cont.NVerts; j++ {
							cont.Verts[j*4+0] -= int32(borderSize)
							cont.Verts[j*4+2] -= int32(borderSize)
						}
						for j := 0; j < cont.NRVerts; j++ {
							cont.RVerts[j*4+0] -= int32(borderSize)
							cont.RVerts[j*4+2] -= int32(borderSize)
						}
					}
					cset.Conts = append(cset.Conts, cont)
				}
			}
		}
	}

	// Merge holes if needed.
	if len(cset.Conts) > 0 {
		// Calculate winding of all polygons.
		winding := make([]int8, len(cset.Conts))
		nholes := 0
		for i := range cset.Conts {
			cont := &cset.Conts[i]
			// If the contour is wound backwards, it is a hole.
			if calcAreaOfPolygon2D(cont.Verts, cont.NVerts) < 0 {
				winding[i] = -1
				nholes++
			} else {
				winding[i] = 1
			}
		}

		if nholes > 0 {
			// Collect outline contour and holes contours per region.
			// We assume that there is one outline and multiple holes.
			nregions := int(chf.MaxRegions) + 1
			regions := make([]rcContourRegion, nregions)
			for i := range cset.Conts {
				cont := &cset.Conts[i]
				if int(cont.Reg) >= nregions {
					continue
				}
				// Positively would contours are outlines, negative holes.
				if winding[i] > 0 {
					if regions[cont.Reg].outline != nil {
						ctxLog(ctx, RC_LOG_ERROR, "rcBuildContours: Multiple outlines for region %d.", cont.Reg)
					}
					regions[cont.Reg].outline = cont
				} else {
					regions[cont.Reg].holes = append(regions[cont.Reg].holes, rcContourHole{contour: cont})
				}
			}

			// Finally merge each regions holes into the outline.
			for i := range regions {
				reg := &regions[i]
				if len(reg.holes) == 0 {
					continue
				}
				if reg.outline != nil {
					mergeRegionHoles(ctx, reg)
				} else {
					// The region does not have an outline.
					// This can happen if the contour becaomes selfoverlapping because of
					// too aggressive simplification settings.
					ctxLog(ctx, RC_LOG_ERROR, "rcBuildContours: Bad outline for region %d, contour simplification is likely too aggressive.", i)
				}
			}
		}
	}
	return cset
}
