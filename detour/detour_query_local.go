package detour

import (
	"math"

	"github.com/gorustyt/navcore/common"
)

// / Provides information about raycast hit
// / filled by DtNavMeshQuery::Raycast
// / @ingroup detour
type DtRaycastHit struct {
	/// The hit parameter. (math.MaxFloat32 if no wall hit.)
	T float32

	/// hitNormal	The normal of the nearest wall hit. [(x, y, z)]
	HitNormal [3]float32

	/// the index of the edge on the final polygon where the wall was hit.
	HitEdgeIndex int

	/// Visited polygons.
	Path []DtPolyRef

	/// The cost of the path until hit.
	PathCost float32
}

// / Uses the detail polygons to find the surface height. (Most accurate.)
func (q *DtNavMeshQuery) ClosestPointOnPoly(ref DtPolyRef, pos []float32) (closest [3]float32, posOverPoly bool, status DtStatus) {
	if !q.nav.IsValidPolyRef(ref) || len(pos) < 3 || !common.Visfinite(pos) {
		return closest, false, DT_FAILURE | DT_INVALID_PARAM
	}
	closest, posOverPoly = q.nav.ClosestPointOnPoly(ref, pos)
	return closest, posOverPoly, DT_SUCCESS
}

// / Returns a point on the boundary closest to the source point if the source point is outside the
// / polygon's xz-bounds.
// / Much faster than ClosestPointOnPoly(). If the provided position lies within the polygon's xz-bounds
// / (above or below), then pos and the result will be equal.
func (q *DtNavMeshQuery) ClosestPointOnPolyBoundary(ref DtPolyRef, pos []float32) (closest [3]float32, status DtStatus) {
	tile, poly, status := q.nav.GetTileAndPolyByRef(ref)
	if status.Failed() {
		return closest, DT_FAILURE | DT_INVALID_PARAM
	}
	if len(pos) < 3 || !common.Visfinite(pos) {
		return closest, DT_FAILURE | DT_INVALID_PARAM
	}

	// Collect vertices.
	var verts [DT_VERTS_PER_POLYGON * 3]float32
	var edged, edget [DT_VERTS_PER_POLYGON]float32
	nv := int(poly.VertCount)
	for i := 0; i < nv; i++ {
		common.Vcopy(verts[i*3:], tile.Verts[int(poly.Verts[i])*3:])
	}

	if common.DistancePtPolyEdgesSqr(pos, verts[:], nv, edged[:], edget[:]) {
		common.Vcopy(closest[:], pos)
	} else {
		// Point is outside the polygon, dtClamp to nearest edge.
		dmin := edged[0]
		imin := 0
		for i := 1; i < nv; i++ {
			if edged[i] < dmin {
				dmin = edged[i]
				imin = i
			}
		}
		va := verts[imin*3:]
		vb := verts[((imin+1)%nv)*3:]
		common.Vlerp(closest[:], va, vb, edget[imin])
	}
	return closest, DT_SUCCESS
}

// / Gets the height of the polygon at the provided position using the height detail. (Most accurate.)
func (q *DtNavMeshQuery) GetPolyHeight(ref DtPolyRef, pos []float32) (float32, DtStatus) {
	tile, poly, status := q.nav.GetTileAndPolyByRef(ref)
	if status.Failed() {
		return 0, DT_FAILURE | DT_INVALID_PARAM
	}
	if len(pos) < 3 || !common.Visfinite2D(pos) {
		return 0, DT_FAILURE | DT_INVALID_PARAM
	}

	// We used to return success for offmesh connections, but the
	// getPolyHeight in DetourNavMesh does not do this, so special
	// case it here.
	if poly.GetType() == DT_POLYTYPE_OFFMESH_CONNECTION {
		v0 := tile.Verts[int(poly.Verts[0])*3:]
		v1 := tile.Verts[int(poly.Verts[1])*3:]
		_, t := common.DistancePtSegSqr2D(pos, v0, v1)
		return v0[1] + (v1[1]-v0[1])*t, DT_SUCCESS
	}
	if h, ok := q.nav.getPolyHeight(tile, poly, int(q.nav.DecodePolyIdPoly(ref)), pos); ok {
		return h, DT_SUCCESS
	}
	return 0, DT_FAILURE | DT_INVALID_PARAM
}

// / Returns true if the polygon reference is valid and passes the filter restrictions.
func (q *DtNavMeshQuery) IsValidPolyRef(ref DtPolyRef, filter *DtQueryFilter) bool {
	_, poly, status := q.nav.GetTileAndPolyByRef(ref)
	// If cannot get polygon, assume it does not exists and boundary is invalid.
	if status.Failed() {
		return false
	}
	// If cannot pass filter, assume flags has changed and boundary is invalid.
	return filter.PassFilter(poly)
}

// / Returns true if the polygon reference is in the closed list.
// / The closed list is the list of polygons that were fully evaluated during
// / the last navigation graph search. (A* or Dijkstra)
func (q *DtNavMeshQuery) IsInClosedList(ref DtPolyRef) bool {
	if q.nodePool == nil {
		return false
	}
	for _, n := range q.nodePool.FindNodes(ref, DT_MAX_STATES_PER_NODE) {
		if n.Flags&DT_NODE_CLOSED != 0 {
			return true
		}
	}
	return false
}

// / Moves from the start to the end position constrained to the navigation mesh.
// / This method is optimized for small delta movement and a small number of
// / polygons. If used for too great a distance, the result set will form an
// / incomplete path.
// / The resulting position is projected onto the xz-plane of the start polygon;
// / callers apply height via GetPolyHeight.
func (q *DtNavMeshQuery) MoveAlongSurface(startRef DtPolyRef, startPos, endPos []float32, filter *DtQueryFilter, maxVisitedSize int) (resultPos [3]float32, visited []DtPolyRef, status DtStatus) {
	// Validate input
	if !q.nav.IsValidPolyRef(startRef) ||
		len(startPos) < 3 || !common.Visfinite(startPos) ||
		len(endPos) < 3 || !common.Visfinite(endPos) ||
		filter == nil || maxVisitedSize <= 0 {
		return resultPos, nil, DT_FAILURE | DT_INVALID_PARAM
	}

	status = DT_SUCCESS

	const MAX_STACK = 48
	var stack []*DtNode

	q.tinyNodePool.Clear()

	startNode := q.tinyNodePool.GetNode(startRef, 0)
	startNode.Pidx = 0
	startNode.Cost = 0
	startNode.Total = 0
	startNode.Id = startRef
	startNode.Flags = DT_NODE_CLOSED
	stack = append(stack, startNode)

	var bestPos [3]float32
	bestDist := float32(math.MaxFloat32)
	var bestNode *DtNode
	common.Vcopy(bestPos[:], startPos)

	// Search constraints
	var searchPos [3]float32
	common.Vlerp(searchPos[:], startPos, endPos, 0.5)
	searchRadSqr := common.Sqr(common.Vdist(startPos, endPos)/2.0 + 0.001)

	var verts [DT_VERTS_PER_POLYGON * 3]float32

	for len(stack) > 0 {
		// Pop front.
		curNode := stack[0]
		stack = stack[1:]

		// Get poly and tile.
		// The API input has been checked already, skip checking internal data.
		curRef := curNode.Id
		curTile, curPoly := q.nav.GetTileAndPolyByRefUnsafe(curRef)

		// Collect vertices.
		nverts := int(curPoly.VertCount)
		for i := 0; i < nverts; i++ {
			common.Vcopy(verts[i*3:], curTile.Verts[int(curPoly.Verts[i])*3:])
		}

		// If target is inside the poly, stop search.
		if common.PointInPolygon(endPos, verts[:], nverts) {
			bestNode = curNode
			common.Vcopy(bestPos[:], endPos)
			break
		}

		// Find wall edges and find nearest point inside the walls.
		for i, j := 0, nverts-1; i < nverts; j, i = i, i+1 {
			// Find links to neighbours.
			const MAX_NEIS = 8
			var neis []DtPolyRef

			if curPoly.Neis[j]&DT_EXT_LINK != 0 {
				// Tile border.
				for k := curPoly.FirstLink; k != DT_NULL_LINK; k = curTile.Links[k].Next {
					link := &curTile.Links[k]
					if int(link.Edge) == j {
						if link.Ref != 0 {
							_, neiPoly := q.nav.GetTileAndPolyByRefUnsafe(link.Ref)
							if filter.PassFilter(neiPoly) {
								if len(neis) < MAX_NEIS {
									neis = append(neis, link.Ref)
								}
							}
						}
					}
				}
			} else if curPoly.Neis[j] != 0 {
				idx := uint32(curPoly.Neis[j] - 1)
				ref := q.nav.GetPolyRefBase(curTile) | DtPolyRef(idx)
				if filter.PassFilter(&curTile.Polys[idx]) {
					// Internal edge, encode id.
					neis = append(neis, ref)
				}
			}

			if len(neis) == 0 {
				// Wall edge, calc distance.
				vj := verts[j*3:]
				vi := verts[i*3:]
				distSqr, tseg := common.DistancePtSegSqr2D(endPos, vj, vi)
				if distSqr < bestDist {
					// Update nearest distance.
					common.Vlerp(bestPos[:], vj, vi, tseg)
					bestDist = distSqr
					bestNode = curNode
				}
			} else {
				for _, nei := range neis {
					// Skip if no node can be allocated.
					neighbourNode := q.tinyNodePool.GetNode(nei, 0)
					if neighbourNode == nil {
						continue
					}
					// Skip if already visited.
					if neighbourNode.Flags&DT_NODE_CLOSED != 0 {
						continue
					}

					// Skip the link if it is too far from search constraint.
					vj := verts[j*3:]
					vi := verts[i*3:]
					distSqr, _ := common.DistancePtSegSqr2D(searchPos[:], vj, vi)
					if distSqr > searchRadSqr {
						continue
					}

					// Mark as the node as visited and push to queue.
					if len(stack) < MAX_STACK {
						neighbourNode.Pidx = q.tinyNodePool.GetNodeIdx(curNode)
						neighbourNode.Flags |= DT_NODE_CLOSED
						stack = append(stack, neighbourNode)
					}
				}
			}
		}
	}

	if bestNode != nil {
		// Reverse the path.
		var prev *DtNode
		node := bestNode
		for {
			next := q.tinyNodePool.GetNodeAtIdx(node.Pidx)
			node.Pidx = q.tinyNodePool.GetNodeIdx(prev)
			prev = node
			node = next
			if node == nil {
				break
			}
		}

		// Store result
		node = prev
		for node != nil {
			visited = append(visited, node.Id)
			if len(visited) >= maxVisitedSize {
				status |= DT_BUFFER_TOO_SMALL
				break
			}
			node = q.tinyNodePool.GetNodeAtIdx(node.Pidx)
		}
	}

	common.Vcopy(resultPos[:], bestPos[:])
	return resultPos, visited, status
}

// / Casts a 'walkability' ray along the surface of the navigation mesh from
// / the start position toward the end position.
// / If the hit parameter T is math.MaxFloat32 the ray reached the end position
// / without hitting a wall. Otherwise the hit position is startPos + (endPos - startPos) * T.
func (q *DtNavMeshQuery) Raycast(startRef DtPolyRef, startPos, endPos []float32, filter *DtQueryFilter, options int, maxPath int, prevRef DtPolyRef) (*DtRaycastHit, DtStatus) {
	hit := &DtRaycastHit{}

	// Validate input
	if !q.nav.IsValidPolyRef(startRef) ||
		len(startPos) < 3 || !common.Visfinite(startPos) ||
		len(endPos) < 3 || !common.Visfinite(endPos) ||
		filter == nil || maxPath < 0 ||
		(prevRef != 0 && !q.nav.IsValidPolyRef(prevRef)) {
		return hit, DT_FAILURE | DT_INVALID_PARAM
	}

	var dir, curPos, lastPos [3]float32
	var verts [DT_VERTS_PER_POLYGON*3 + 3]float32
	status := DT_SUCCESS

	common.Vcopy(curPos[:], startPos)
	common.Vsub(dir[:], endPos, startPos)

	var tile, nextTile *DtMeshTile
	var prevPoly, poly, nextPoly *DtPoly

	// The API input has been checked already, skip checking internal data.
	curRef := startRef
	tile, poly = q.nav.GetTileAndPolyByRefUnsafe(curRef)
	nextTile = tile
	nextPoly, prevPoly = poly, poly
	if prevRef != 0 {
		_, prevPoly = q.nav.GetTileAndPolyByRefUnsafe(prevRef)
	}

	for curRef != 0 {
		// Cast ray against current polygon.

		// Collect vertices.
		nv := 0
		for i := 0; i < int(poly.VertCount); i++ {
			common.Vcopy(verts[nv*3:], tile.Verts[int(poly.Verts[i])*3:])
			nv++
		}

		_, tmax, _, segMax, ok := common.IntersectSegmentPoly2D(startPos, endPos, verts[:], nv)
		if !ok {
			// Could not hit the polygon, keep the old t and report hit.
			hit.Path = q.appendRaycastPath(hit.Path, curRef, maxPath, &status)
			return hit, status
		}

		hit.HitEdgeIndex = segMax

		// Keep track of furthest t so far.
		if tmax > hit.T {
			hit.T = tmax
		}

		// Store visited polygons.
		hit.Path = q.appendRaycastPath(hit.Path, curRef, maxPath, &status)

		// Ray end is completely inside the polygon.
		if segMax == -1 {
			hit.T = math.MaxFloat32

			// add the cost
			if options&DT_RAYCAST_USE_COSTS != 0 {
				hit.PathCost += filter.GetCost(curPos[:], endPos, poly)
			}
			return hit, status
		}

		// Follow neighbours.
		var nextRef DtPolyRef

		for i := poly.FirstLink; i != DT_NULL_LINK; i = tile.Links[i].Next {
			link := &tile.Links[i]

			// Find link which contains this edge.
			if int(link.Edge) != segMax {
				continue
			}

			// Get pointer to the next polygon.
			nextTile, nextPoly = q.nav.GetTileAndPolyByRefUnsafe(link.Ref)

			// Skip off-mesh connections.
			if nextPoly.GetType() == DT_POLYTYPE_OFFMESH_CONNECTION {
				continue
			}

			// Skip links based on filter.
			if !filter.PassFilter(nextPoly) {
				continue
			}

			// If the link is internal, just return the ref.
			if link.Side == 0xff {
				nextRef = link.Ref
				break
			}

			// If the link is at tile boundary,

			// Check if the link spans the whole edge, and accept.
			if link.Bmin == 0 && link.Bmax == 255 {
				nextRef = link.Ref
				break
			}

			// Check for partial edge links.
			v0 := poly.Verts[link.Edge]
			v1 := poly.Verts[(int(link.Edge)+1)%int(poly.VertCount)]
			left := tile.Verts[int(v0)*3:]
			right := tile.Verts[int(v1)*3:]

			// Check that the intersection lies inside the link portal.
			if link.Side == 0 || link.Side == 4 {
				// Calculate link size.
				s := float32(1.0 / 255.0)
				lmin := left[2] + (right[2]-left[2])*(float32(link.Bmin)*s)
				lmax := left[2] + (right[2]-left[2])*(float32(link.Bmax)*s)
				if lmin > lmax {
					lmin, lmax = lmax, lmin
				}

				// Find Z intersection.
				z := startPos[2] + (endPos[2]-startPos[2])*tmax
				if z >= lmin && z <= lmax {
					nextRef = link.Ref
					break
				}
			} else if link.Side == 2 || link.Side == 6 {
				// Calculate link size.
				s := float32(1.0 / 255.0)
				lmin := left[0] + (right[0]-left[0])*(float32(link.Bmin)*s)
				lmax := left[0] + (right[0]-left[0])*(float32(link.Bmax)*s)
				if lmin > lmax {
					lmin, lmax = lmax, lmin
				}

				// Find X intersection.
				x := startPos[0] + (endPos[0]-startPos[0])*tmax
				if x >= lmin && x <= lmax {
					nextRef = link.Ref
					break
				}
			}
		}

		// add the cost
		if options&DT_RAYCAST_USE_COSTS != 0 {
			// compute the intersection point at the furthest end of the polygon
			// and correct the height (since the raycast moves in 2d)
			common.Vcopy(lastPos[:], curPos[:])
			common.Vmad(curPos[:], startPos, dir[:], hit.T)
			e1 := verts[segMax*3:]
			e2 := verts[((segMax+1)%nv)*3:]
			var eDir, diff [3]float32
			common.Vsub(eDir[:], e2, e1)
			common.Vsub(diff[:], curPos[:], e1)
			var s float32
			if common.Sqr(eDir[0]) > common.Sqr(eDir[2]) {
				s = diff[0] / eDir[0]
			} else {
				s = diff[2] / eDir[2]
			}
			curPos[1] = e1[1] + eDir[1]*s

			hit.PathCost += filter.GetCost(lastPos[:], curPos[:], prevPoly)
		}

		if nextRef == 0 {
			// No neighbour, we hit a wall.

			// Calculate hit normal.
			a := segMax
			b := 0
			if segMax+1 < nv {
				b = segMax + 1
			}
			va := verts[a*3:]
			vb := verts[b*3:]
			dx := vb[0] - va[0]
			dz := vb[2] - va[2]
			hit.HitNormal[0] = dz
			hit.HitNormal[1] = 0
			hit.HitNormal[2] = -dx
			common.Vnormalize(hit.HitNormal[:])
			return hit, status
		}

		// No hit, advance to neighbour polygon.
		prevRef = curRef
		curRef = nextRef
		tile = nextTile
		prevPoly, poly = poly, nextPoly
	}
	return hit, status
}

func (q *DtNavMeshQuery) appendRaycastPath(path []DtPolyRef, ref DtPolyRef, maxPath int, status *DtStatus) []DtPolyRef {
	if len(path) < maxPath {
		return append(path, ref)
	}
	*status |= DT_BUFFER_TOO_SMALL
	return path
}

// / Finds the non-overlapping navigation polygons in the local neighbourhood around the center position.
// / The search is a breadth-first traversal limited to radius; polygons that overlap
// / an already accepted polygon are skipped, so the result is a simple
// / surface patch suitable for local steering.
func (q *DtNavMeshQuery) FindLocalNeighbourhood(startRef DtPolyRef, centerPos []float32, radius float32, filter *DtQueryFilter, maxResult int) (resultRef, resultParent []DtPolyRef, status DtStatus) {
	// Validate input
	if !q.nav.IsValidPolyRef(startRef) ||
		len(centerPos) < 3 || !common.Visfinite(centerPos) ||
		radius < 0 || !common.IsFinite(radius) ||
		filter == nil || maxResult < 0 {
		return nil, nil, DT_FAILURE | DT_INVALID_PARAM
	}

	const MAX_STACK = 48
	var stack []*DtNode

	q.tinyNodePool.Clear()

	startNode := q.tinyNodePool.GetNode(startRef, 0)
	startNode.Pidx = 0
	startNode.Id = startRef
	startNode.Flags = DT_NODE_CLOSED
	stack = append(stack, startNode)

	radiusSqr := common.Sqr(radius)

	var pa, pb [DT_VERTS_PER_POLYGON * 3]float32

	status = DT_SUCCESS

	if maxResult > 0 {
		resultRef = append(resultRef, startNode.Id)
		resultParent = append(resultParent, 0)
	} else {
		status |= DT_BUFFER_TOO_SMALL
	}

	for len(stack) > 0 {
		// Pop front.
		curNode := stack[0]
		stack = stack[1:]

		// Get poly and tile.
		// The API input has been checked already, skip checking internal data.
		curRef := curNode.Id
		curTile, curPoly := q.nav.GetTileAndPolyByRefUnsafe(curRef)

		for i := curPoly.FirstLink; i != DT_NULL_LINK; i = curTile.Links[i].Next {
			link := &curTile.Links[i]
			neighbourRef := link.Ref
			// Skip invalid neighbours.
			if neighbourRef == 0 {
				continue
			}

			// Skip if cannot alloca more nodes.
			neighbourNode := q.tinyNodePool.GetNode(neighbourRef, 0)
			if neighbourNode == nil {
				continue
			}
			// Skip visited.
			if neighbourNode.Flags&DT_NODE_CLOSED != 0 {
				continue
			}

			// Expand to neighbour
			neighbourTile, neighbourPoly := q.nav.GetTileAndPolyByRefUnsafe(neighbourRef)

			// Skip off-mesh connections.
			if neighbourPoly.GetType() == DT_POLYTYPE_OFFMESH_CONNECTION {
				continue
			}

			// Do not advance if the polygon is excluded by the filter.
			if !filter.PassFilter(neighbourPoly) {
				continue
			}

			// Find edge and calc distance to the edge.
			var va, vb [3]float32
			if q.getPortalPoints1(curRef, curPoly, curTile, neighbourRef, neighbourPoly, neighbourTile, va[:], vb[:]).Failed() {
				continue
			}

			// If the circle is not touching the next polygon, skip it.
			distSqr, _ := common.DistancePtSegSqr2D(centerPos, va[:], vb[:])
			if distSqr > radiusSqr {
				continue
			}

			// Mark node visited, this is done before the overlap test so that
			// we will not visit the poly again if the test fails.
			neighbourNode.Flags |= DT_NODE_CLOSED
			neighbourNode.Pidx = q.tinyNodePool.GetNodeIdx(curNode)

			// Check that the polygon does not collide with existing polygons.

			// Collect vertices of the neighbour poly.
			npa := int(neighbourPoly.VertCount)
			for k := 0; k < npa; k++ {
				common.Vcopy(pa[k*3:], neighbourTile.Verts[int(neighbourPoly.Verts[k])*3:])
			}

			overlap := false
			for _, pastRef := range resultRef {
				// Connected polys do not overlap.
				connected := false
				for k := curPoly.FirstLink; k != DT_NULL_LINK; k = curTile.Links[k].Next {
					if curTile.Links[k].Ref == pastRef {
						connected = true
						break
					}
				}
				if connected {
					continue
				}

				// Potentially overlapping.
				pastTile, pastPoly := q.nav.GetTileAndPolyByRefUnsafe(pastRef)

				// Get vertices and test overlap
				npb := int(pastPoly.VertCount)
				for k := 0; k < npb; k++ {
					common.Vcopy(pb[k*3:], pastTile.Verts[int(pastPoly.Verts[k])*3:])
				}

				if dtOverlapPolyPoly2D(pa[:], npa, pb[:], npb) {
					overlap = true
					break
				}
			}
			if overlap {
				continue
			}

			// This poly is fine, store and advance to the poly.
			if len(resultRef) < maxResult {
				resultRef = append(resultRef, neighbourRef)
				resultParent = append(resultParent, curRef)
			} else {
				status |= DT_BUFFER_TOO_SMALL
			}

			if len(stack) < MAX_STACK {
				stack = append(stack, neighbourNode)
			}
		}
	}
	return resultRef, resultParent, status
}

type dtSegInterval struct {
	ref        DtPolyRef
	tmin, tmax int
}

func insertInterval(ints []dtSegInterval, maxInts int, tmin, tmax int, ref DtPolyRef) []dtSegInterval {
	if len(ints)+1 > maxInts {
		return ints
	}
	// Find insertion point.
	idx := 0
	for idx < len(ints) {
		if tmax <= ints[idx].tmin {
			break
		}
		idx++
	}
	ints = append(ints, dtSegInterval{})
	copy(ints[idx+1:], ints[idx:])
	ints[idx] = dtSegInterval{ref: ref, tmin: tmin, tmax: tmax}
	return ints
}

// / Returns the segments for the specified polygon, optionally including portals.
// / Each segment is six floats (ax, ay, az, bx, by, bz). segmentRefs holds the
// / neighbour of a portal segment or zero for a wall.
func (q *DtNavMeshQuery) GetPolyWallSegments(ref DtPolyRef, filter *DtQueryFilter, maxSegments int, storePortals bool) (segmentVerts []float32, segmentRefs []DtPolyRef, status DtStatus) {
	tile, poly, status := q.nav.GetTileAndPolyByRef(ref)
	if status.Failed() {
		return nil, nil, DT_FAILURE | DT_INVALID_PARAM
	}
	if filter == nil || maxSegments < 0 {
		return nil, nil, DT_FAILURE | DT_INVALID_PARAM
	}

	const MAX_INTERVAL = 16
	status = DT_SUCCESS

	appendSeg := func(a, b []float32, nei DtPolyRef) {
		if len(segmentRefs) < maxSegments {
			segmentVerts = append(segmentVerts, a[0], a[1], a[2], b[0], b[1], b[2])
			segmentRefs = append(segmentRefs, nei)
		} else {
			status |= DT_BUFFER_TOO_SMALL
		}
	}

	nv := int(poly.VertCount)
	for i, j := 0, nv-1; i < nv; j, i = i, i+1 {
		// Skip non-solid edges.
		var ints []dtSegInterval
		if poly.Neis[j]&DT_EXT_LINK != 0 {
			// Tile border.
			for k := poly.FirstLink; k != DT_NULL_LINK; k = tile.Links[k].Next {
				link := &tile.Links[k]
				if int(link.Edge) == j {
					if link.Ref != 0 {
						_, neiPoly := q.nav.GetTileAndPolyByRefUnsafe(link.Ref)
						if filter.PassFilter(neiPoly) {
							ints = insertInterval(ints, MAX_INTERVAL, int(link.Bmin), int(link.Bmax), link.Ref)
						}
					}
				}
			}
		} else {
			// Internal edge
			var neiRef DtPolyRef
			if poly.Neis[j] != 0 {
				idx := uint32(poly.Neis[j] - 1)
				neiRef = q.nav.GetPolyRefBase(tile) | DtPolyRef(idx)
				if !filter.PassFilter(&tile.Polys[idx]) {
					neiRef = 0
				}
			}

			// If the edge leads to another polygon and portals are not stored, skip.
			if neiRef != 0 && !storePortals {
				continue
			}

			vj := tile.Verts[int(poly.Verts[j])*3:]
			vi := tile.Verts[int(poly.Verts[i])*3:]
			appendSeg(vj, vi, neiRef)
			continue
		}

		// Add sentinels
		ints = insertInterval(ints, MAX_INTERVAL, -1, 0, 0)
		ints = insertInterval(ints, MAX_INTERVAL, 255, 256, 0)

		// Store segments.
		vj := tile.Verts[int(poly.Verts[j])*3:]
		vi := tile.Verts[int(poly.Verts[i])*3:]
		for k := 1; k < len(ints); k++ {
			// Portal segment.
			if storePortals && ints[k].ref != 0 {
				tmin := float32(ints[k].tmin) / 255.0
				tmax := float32(ints[k].tmax) / 255.0
				var a, b [3]float32
				common.Vlerp(a[:], vj, vi, tmin)
				common.Vlerp(b[:], vj, vi, tmax)
				appendSeg(a[:], b[:], ints[k].ref)
			}

			// Wall segment.
			imin := ints[k-1].tmax
			imax := ints[k].tmin
			if imin != imax {
				tmin := float32(imin) / 255.0
				tmax := float32(imax) / 255.0
				var a, b [3]float32
				common.Vlerp(a[:], vj, vi, tmin)
				common.Vlerp(b[:], vj, vi, tmax)
				appendSeg(a[:], b[:], 0)
			}
		}
	}
	return segmentVerts, segmentRefs, status
}

// / Finds the polygons along the navigation graph that touch the specified circle.
// / The result is ordered from least to highest cost to reach the polygon.
func (q *DtNavMeshQuery) FindPolysAroundCircle(startRef DtPolyRef, centerPos []float32, radius float32, filter *DtQueryFilter, maxResult int) (resultRef, resultParent []DtPolyRef, resultCost []float32, status DtStatus) {
	// Validate input
	if !q.nav.IsValidPolyRef(startRef) ||
		len(centerPos) < 3 || !common.Visfinite(centerPos) ||
		radius < 0 || !common.IsFinite(radius) ||
		filter == nil || maxResult < 0 {
		return nil, nil, nil, DT_FAILURE | DT_INVALID_PARAM
	}

	q.nodePool.Clear()
	q.openList.Reset()

	startNode := q.nodePool.GetNode(startRef, 0)
	common.Vcopy(startNode.Pos[:], centerPos)
	startNode.Pidx = 0
	startNode.Cost = 0
	startNode.Total = 0
	startNode.Id = startRef
	startNode.Flags = DT_NODE_OPEN
	q.openList.Offer(startNode)

	status = DT_SUCCESS
	radiusSqr := common.Sqr(radius)

	for !q.openList.Empty() {
		bestNode := q.openList.Poll()
		bestNode.Flags &^= DT_NODE_OPEN
		bestNode.Flags |= DT_NODE_CLOSED

		// Get poly and tile.
		// The API input has been checked already, skip checking internal data.
		bestRef := bestNode.Id
		bestTile, bestPoly := q.nav.GetTileAndPolyByRefUnsafe(bestRef)

		// Get parent poly and tile.
		var parentRef DtPolyRef
		if bestNode.Pidx != 0 {
			parentRef = q.nodePool.GetNodeAtIdx(bestNode.Pidx).Id
		}

		if len(resultRef) < maxResult {
			resultRef = append(resultRef, bestRef)
			resultParent = append(resultParent, parentRef)
			resultCost = append(resultCost, bestNode.Total)
		} else {
			status |= DT_BUFFER_TOO_SMALL
		}

		for i := bestPoly.FirstLink; i != DT_NULL_LINK; i = bestTile.Links[i].Next {
			link := &bestTile.Links[i]
			neighbourRef := link.Ref
			// Skip invalid neighbours and do not follow back to parent.
			if neighbourRef == 0 || neighbourRef == parentRef {
				continue
			}

			// Expand to neighbour
			neighbourTile, neighbourPoly := q.nav.GetTileAndPolyByRefUnsafe(neighbourRef)

			// Do not advance if the polygon is excluded by the filter.
			if !filter.PassFilter(neighbourPoly) {
				continue
			}

			// Find edge and calc distance to the edge.
			var va, vb [3]float32
			if q.getPortalPoints1(bestRef, bestPoly, bestTile, neighbourRef, neighbourPoly, neighbourTile, va[:], vb[:]).Failed() {
				continue
			}

			// If the circle is not touching the next polygon, skip it.
			distSqr, _ := common.DistancePtSegSqr2D(centerPos, va[:], vb[:])
			if distSqr > radiusSqr {
				continue
			}

			neighbourNode := q.nodePool.GetNode(neighbourRef, 0)
			if neighbourNode == nil {
				status |= DT_OUT_OF_NODES
				continue
			}

			if neighbourNode.Flags&DT_NODE_CLOSED != 0 {
				continue
			}

			// Cost
			if neighbourNode.Flags == 0 {
				common.Vlerp(neighbourNode.Pos[:], va[:], vb[:], 0.5)
			}

			cost := filter.GetCost(bestNode.Pos[:], neighbourNode.Pos[:], bestPoly)
			total := bestNode.Total + cost

			// The node is already in open list and the new result is worse, skip.
			if neighbourNode.Flags&DT_NODE_OPEN != 0 && total >= neighbourNode.Total {
				continue
			}

			neighbourNode.Id = neighbourRef
			neighbourNode.Pidx = q.nodePool.GetNodeIdx(bestNode)
			neighbourNode.Total = total

			if neighbourNode.Flags&DT_NODE_OPEN != 0 {
				q.openList.Update(neighbourNode)
			} else {
				neighbourNode.Flags = DT_NODE_OPEN
				q.openList.Offer(neighbourNode)
			}
		}
	}
	return resultRef, resultParent, resultCost, status
}
