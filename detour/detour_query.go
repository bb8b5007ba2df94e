package detour

import (
	"math"

	"github.com/gorustyt/navcore/common"
)

// Search heuristic scale.
const H_SCALE = 0.999

// / Options for DtNavMeshQuery::Raycast
const (
	DT_RAYCAST_USE_COSTS = 0x01 ///< Raycast should calculate movement cost along the ray and fill RaycastHit::cost
)

// / Defines polygon filtering and traversal costs for navigation mesh query operations.
// / @ingroup detour
type DtQueryFilter struct {
	areaCost     [DT_MAX_AREAS]float32 ///< Cost per area type. (Used by default implementation.)
	includeFlags uint16                ///< Flags for polygons that can be visited. (Used by default implementation.)
	excludeFlags uint16                ///< Flags for polygons that should not be visited. (Used by default implementation.)
}

// NewDtQueryFilter accepts every polygon with unit area costs.
func NewDtQueryFilter() *DtQueryFilter {
	f := &DtQueryFilter{includeFlags: 0xffff}
	for i := range f.areaCost {
		f.areaCost[i] = 1
	}
	return f
}

// / Returns the traversal cost of the area.
func (filter *DtQueryFilter) GetAreaCost(i int) float32 { return filter.areaCost[i] }

// / Sets the traversal cost of the area.
func (filter *DtQueryFilter) SetAreaCost(i int, cost float32) { filter.areaCost[i] = cost }

// / Returns the include flags for the filter.
// / Any polygons that include one or more of these flags will be
// / included in the operation.
func (filter *DtQueryFilter) GetIncludeFlags() uint16 { return filter.includeFlags }

// / Sets the include flags for the filter.
func (filter *DtQueryFilter) SetIncludeFlags(flags uint16) { filter.includeFlags = flags }

// / Returns the exclude flags for the filter.
// / Any polygons that include one ore more of these flags will be
// / excluded from the operation.
func (filter *DtQueryFilter) GetExcludeFlags() uint16 { return filter.excludeFlags }

// / Sets the exclude flags for the filter.
func (filter *DtQueryFilter) SetExcludeFlags(flags uint16) { filter.excludeFlags = flags }

// / Returns true if the polygon can be visited.  (I.e. Is traversable.)
func (filter *DtQueryFilter) PassFilter(poly *DtPoly) bool {
	return (poly.Flags&filter.includeFlags) != 0 && (poly.Flags&filter.excludeFlags) == 0
}

// / Returns cost to move from the beginning to the end of a line segment
// / that is fully contained within a polygon.
func (filter *DtQueryFilter) GetCost(pa, pb []float32, curPoly *DtPoly) float32 {
	return common.Vdist(pa, pb) * filter.areaCost[curPoly.GetArea()]
}

type dtQueryData struct {
	status           DtStatus
	lastBestNode     *DtNode
	lastBestNodeCost float32
	startRef, endRef DtPolyRef
	startPos, endPos [3]float32
	filter           *DtQueryFilter
}

// / Provides the ability to perform pathfinding related queries against
// / a navigation mesh.
// / @ingroup detour
type DtNavMeshQuery struct {
	nav          *DtNavMesh  ///< Pointer to navmesh data.
	query        dtQueryData ///< Sliced query state.
	tinyNodePool *DtNodePool ///< Pointer to small node pool.
	nodePool     *DtNodePool ///< Pointer to node pool.
	openList     NodeQueue[*DtNode]
}

// / Creates a query object bound to nav with a search pool of maxNodes nodes.
func NewDtNavMeshQuery(nav *DtNavMesh, maxNodes int) (*DtNavMeshQuery, DtStatus) {
	if nav == nil || maxNodes <= 0 || maxNodes > (1<<DT_NODE_PARENT_BITS)-1 {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}
	hashSize := int(common.NextPow2(uint32(maxNodes / 4)))
	if hashSize == 0 {
		hashSize = 1
	}
	return &DtNavMeshQuery{
		nav:          nav,
		nodePool:     NewDtNodePool(maxNodes, hashSize),
		tinyNodePool: NewDtNodePool(64, 32),
		openList:     newNodeTotalQueue(),
	}, DT_SUCCESS
}

// / Gets the navigation mesh the query object is using.
func (q *DtNavMeshQuery) GetAttachedNavMesh() *DtNavMesh { return q.nav }

// / Gets the node pool.
func (q *DtNavMeshQuery) GetNodePool() *DtNodePool { return q.nodePool }

func (q *DtNavMeshQuery) forEachTile(bmin, bmax []float32, fn func(tile *DtMeshTile)) {
	// Find tiles the query touches.
	minx, miny := q.nav.CalcTileLoc(bmin)
	maxx, maxy := q.nav.CalcTileLoc(bmax)
	for y := miny; y <= maxy; y++ {
		for x := minx; x <= maxx; x++ {
			for _, tile := range q.nav.GetTilesAt(x, y) {
				fn(tile)
			}
		}
	}
}

// / Finds the polygon nearest to the specified center point.
// / isOverPoly is set when the point lies above the returned polygon.
func (q *DtNavMeshQuery) FindNearestPoly(center, halfExtents []float32, filter *DtQueryFilter) (nearestRef DtPolyRef, nearestPt [3]float32, isOverPoly bool, status DtStatus) {
	if len(center) < 3 || !common.Visfinite(center) ||
		len(halfExtents) < 3 || !common.Visfinite(halfExtents) ||
		halfExtents[0] < 0 || halfExtents[1] < 0 || halfExtents[2] < 0 || filter == nil {
		return 0, nearestPt, false, DT_FAILURE | DT_INVALID_PARAM
	}
	var bmin, bmax [3]float32
	common.Vsub(bmin[:], center, halfExtents)
	common.Vadd(bmax[:], center, halfExtents)

	nearestDistanceSqr := float32(math.MaxFloat32)
	q.forEachTile(bmin[:], bmax[:], func(tile *DtMeshTile) {
		for _, ref := range q.nav.queryPolygonsInTile(tile, bmin[:], bmax[:]) {
			poly := &tile.Polys[q.nav.DecodePolyIdPoly(ref)]
			if !filter.PassFilter(poly) {
				continue
			}
			closestPtPoly, posOverPoly := q.nav.ClosestPointOnPoly(ref, center)

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
				nearestRef = ref
				isOverPoly = posOverPoly
			}
		}
	})
	return nearestRef, nearestPt, isOverPoly, DT_SUCCESS
}

// / Finds polygons that overlap the search box.
func (q *DtNavMeshQuery) QueryPolygons(center, halfExtents []float32, filter *DtQueryFilter, maxPolys int) ([]DtPolyRef, DtStatus) {
	if len(center) < 3 || !common.Visfinite(center) ||
		len(halfExtents) < 3 || !common.Visfinite(halfExtents) ||
		halfExtents[0] < 0 || halfExtents[1] < 0 || halfExtents[2] < 0 ||
		filter == nil || maxPolys < 0 {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}
	var bmin, bmax [3]float32
	common.Vsub(bmin[:], center, halfExtents)
	common.Vadd(bmax[:], center, halfExtents)

	var polys []DtPolyRef
	status := DT_SUCCESS
	q.forEachTile(bmin[:], bmax[:], func(tile *DtMeshTile) {
		for _, ref := range q.nav.queryPolygonsInTile(tile, bmin[:], bmax[:]) {
			if !filter.PassFilter(&tile.Polys[q.nav.DecodePolyIdPoly(ref)]) {
				continue
			}
			if len(polys) >= maxPolys {
				status |= DT_BUFFER_TOO_SMALL
				return
			}
			polys = append(polys, ref)
		}
	})
	return polys, status
}

// / Finds a path from the start polygon to the end polygon.
// / If the end polygon cannot be reached through the navigation graph,
// / the last polygon in the path will be the nearest the end polygon and
// / the status carries DT_PARTIAL_RESULT.
func (q *DtNavMeshQuery) FindPath(startRef, endRef DtPolyRef, startPos, endPos []float32, filter *DtQueryFilter, maxPath int) ([]DtPolyRef, DtStatus) {
	// Validate input
	if !q.nav.IsValidPolyRef(startRef) || !q.nav.IsValidPolyRef(endRef) ||
		len(startPos) < 3 || !common.Visfinite(startPos) ||
		len(endPos) < 3 || !common.Visfinite(endPos) ||
		filter == nil || maxPath <= 0 {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}
	if startRef == endRef {
		return []DtPolyRef{startRef}, DT_SUCCESS
	}

	q.nodePool.Clear()
	q.openList.Reset()

	startNode := q.nodePool.GetNode(startRef, 0)
	common.Vcopy(startNode.Pos[:], startPos)
	startNode.Pidx = 0
	startNode.Cost = 0
	startNode.Total = common.Vdist(startPos, endPos) * H_SCALE
	startNode.Id = startRef
	startNode.Flags = DT_NODE_OPEN
	q.openList.Offer(startNode)

	lastBestNode := startNode
	lastBestNodeCost := startNode.Total
	outOfNodes := false

	for !q.openList.Empty() {
		// Remove node from open list and put it in closed list.
		bestNode := q.openList.Poll()
		bestNode.Flags &^= DT_NODE_OPEN
		bestNode.Flags |= DT_NODE_CLOSED

		// Reached the goal, stop searching.
		if bestNode.Id == endRef {
			lastBestNode = bestNode
			break
		}

		// Get current poly and tile.
		// The API input has been checked already, skip checking internal data.
		bestRef := bestNode.Id
		bestTile, bestPoly := q.nav.GetTileAndPolyByRefUnsafe(bestRef)

		// Get parent poly and tile.
		var parentRef DtPolyRef
		if bestNode.Pidx != 0 {
			parentRef = q.nodePool.GetNodeAtIdx(bestNode.Pidx).Id
		}

		for i := bestPoly.FirstLink; i != DT_NULL_LINK; i = bestTile.Links[i].Next {
			link := &bestTile.Links[i]
			neighbourRef := link.Ref

			// Skip invalid ids and do not expand back to where we came from.
			if neighbourRef == 0 || neighbourRef == parentRef {
				continue
			}

			// Get neighbour poly and tile.
			// The API input has been checked already, skip checking internal data.
			neighbourTile, neighbourPoly := q.nav.GetTileAndPolyByRefUnsafe(neighbourRef)
			if !filter.PassFilter(neighbourPoly) {
				continue
			}

			// deal explicitly with crossing tile boundaries
			var crossSide uint8
			if link.Side != 0xff {
				crossSide = link.Side >> 1
			}

			// get the node
			neighbourNode := q.nodePool.GetNode(neighbourRef, crossSide)
			if neighbourNode == nil {
				outOfNodes = true
				continue
			}

			// If the node is visited the first time, calculate node position.
			if neighbourNode.Flags == 0 {
				q.getEdgeMidPoint(bestRef, bestPoly, bestTile, neighbourRef, neighbourPoly, neighbourTile, neighbourNode.Pos[:])
			}

			// Calculate cost and heuristic.
			var cost, heuristic float32

			// Special case for last node.
			if neighbourRef == endRef {
				// Cost
				curCost := filter.GetCost(bestNode.Pos[:], neighbourNode.Pos[:], bestPoly)
				endCost := filter.GetCost(neighbourNode.Pos[:], endPos, neighbourPoly)
				cost = bestNode.Cost + curCost + endCost
				heuristic = 0
			} else {
				// Cost
				curCost := filter.GetCost(bestNode.Pos[:], neighbourNode.Pos[:], bestPoly)
				cost = bestNode.Cost + curCost
				heuristic = common.Vdist(neighbourNode.Pos[:], endPos) * H_SCALE
			}
			total := cost + heuristic

			// The node is already in open list and the new result is worse, skip.
			if (neighbourNode.Flags&DT_NODE_OPEN) != 0 && total >= neighbourNode.Total {
				continue
			}
			// The node is already visited and process, and the new result is worse, skip.
			if (neighbourNode.Flags&DT_NODE_CLOSED) != 0 && total >= neighbourNode.Total {
				continue
			}

			// Add or update the node.
			neighbourNode.Pidx = q.nodePool.GetNodeIdx(bestNode)
			neighbourNode.Id = neighbourRef
			neighbourNode.Flags &^= DT_NODE_CLOSED
			neighbourNode.Cost = cost
			neighbourNode.Total = total

			if (neighbourNode.Flags & DT_NODE_OPEN) != 0 {
				// Already in open, update node location.
				q.openList.Update(neighbourNode)
			} else {
				// Put the node in open list.
				neighbourNode.Flags |= DT_NODE_OPEN
				q.openList.Offer(neighbourNode)
			}

			// Update nearest node to target so far.
			if heuristic < lastBestNodeCost {
				lastBestNodeCost = heuristic
				lastBestNode = neighbourNode
			}
		}
	}

	path, status := q.getPathToNode(lastBestNode, maxPath)
	if lastBestNode.Id != endRef {
		status |= DT_PARTIAL_RESULT
	}
	if outOfNodes {
		status |= DT_OUT_OF_NODES
	}
	return path, status
}

func (q *DtNavMeshQuery) getPathToNode(endNode *DtNode, maxPath int) ([]DtPolyRef, DtStatus) {
	// Find the length of the entire path.
	length := 0
	for curNode := endNode; curNode != nil; curNode = q.nodePool.GetNodeAtIdx(curNode.Pidx) {
		length++
	}

	// If the path cannot be fully stored then advance to the last node we will be able to store.
	curNode := endNode
	writeCount := length
	for ; writeCount > maxPath; writeCount-- {
		curNode = q.nodePool.GetNodeAtIdx(curNode.Pidx)
	}

	// Write path
	path := make([]DtPolyRef, writeCount)
	for i := writeCount - 1; i >= 0; i-- {
		path[i] = curNode.Id
		curNode = q.nodePool.GetNodeAtIdx(curNode.Pidx)
	}
	if length > maxPath {
		return path, DT_SUCCESS | DT_BUFFER_TOO_SMALL
	}
	return path, DT_SUCCESS
}

// / Intializes a sliced path query.
// / Common use case:
// /	-# Call InitSlicedFindPath() to initialize the sliced path query.
// /	-# Call UpdateSlicedFindPath() until it returns complete.
// /	-# Call FinalizeSlicedFindPath() to get the path.
func (q *DtNavMeshQuery) InitSlicedFindPath(startRef, endRef DtPolyRef, startPos, endPos []float32, filter *DtQueryFilter) DtStatus {
	// Init path state.
	q.query = dtQueryData{status: DT_FAILURE, startRef: startRef, endRef: endRef, filter: filter}
	if len(startPos) >= 3 {
		common.Vcopy(q.query.startPos[:], startPos)
	}
	if len(endPos) >= 3 {
		common.Vcopy(q.query.endPos[:], endPos)
	}

	// Validate input
	if !q.nav.IsValidPolyRef(startRef) || !q.nav.IsValidPolyRef(endRef) ||
		len(startPos) < 3 || !common.Visfinite(startPos) ||
		len(endPos) < 3 || !common.Visfinite(endPos) || filter == nil {
		return DT_FAILURE | DT_INVALID_PARAM
	}

	if startRef == endRef {
		q.query.status = DT_SUCCESS
		return DT_SUCCESS
	}

	q.nodePool.Clear()
	q.openList.Reset()

	startNode := q.nodePool.GetNode(startRef, 0)
	common.Vcopy(startNode.Pos[:], startPos)
	startNode.Pidx = 0
	startNode.Cost = 0
	startNode.Total = common.Vdist(startPos, endPos) * H_SCALE
	startNode.Id = startRef
	startNode.Flags = DT_NODE_OPEN
	q.openList.Offer(startNode)

	q.query.status = DT_IN_PROGRESS
	q.query.lastBestNode = startNode
	q.query.lastBestNodeCost = startNode.Total
	return q.query.status
}

// / Updates an in-progress sliced path query.
func (q *DtNavMeshQuery) UpdateSlicedFindPath(maxIter int) (doneIters int, status DtStatus) {
	if !q.query.status.InProgress() {
		return 0, q.query.status
	}

	// Make sure the request is still valid.
	if !q.nav.IsValidPolyRef(q.query.startRef) || !q.nav.IsValidPolyRef(q.query.endRef) {
		q.query.status = DT_FAILURE
		return 0, DT_FAILURE
	}

	filter := q.query.filter
	iter := 0
	for iter < maxIter && !q.openList.Empty() {
		iter++

		// Remove node from open list and put it in closed list.
		bestNode := q.openList.Poll()
		bestNode.Flags &^= DT_NODE_OPEN
		bestNode.Flags |= DT_NODE_CLOSED

		// Reached the goal, stop searching.
		if bestNode.Id == q.query.endRef {
			q.query.lastBestNode = bestNode
			details := q.query.status & DT_STATUS_DETAIL_MASK
			q.query.status = DT_SUCCESS | details
			return iter, q.query.status
		}

		// Get current poly and tile.
		// The API input has been checked already, skip checking internal data.
		bestRef := bestNode.Id
		bestTile, bestPoly, st := q.nav.GetTileAndPolyByRef(bestRef)
		if st.Failed() {
			// The polygon has disappeared during the sliced query, fail.
			q.query.status = DT_FAILURE
			return iter, q.query.status
		}

		// Get parent poly and tile.
		var parentRef DtPolyRef
		if bestNode.Pidx != 0 {
			parentRef = q.nodePool.GetNodeAtIdx(bestNode.Pidx).Id
		}
		if parentRef != 0 && !q.nav.IsValidPolyRef(parentRef) {
			// The polygon has disappeared during the sliced query, fail.
			q.query.status = DT_FAILURE
			return iter, q.query.status
		}

		for i := bestPoly.FirstLink; i != DT_NULL_LINK; i = bestTile.Links[i].Next {
			link := &bestTile.Links[i]
			neighbourRef := link.Ref

			// Skip invalid ids and do not expand back to where we came from.
			if neighbourRef == 0 || neighbourRef == parentRef {
				continue
			}

			// Get neighbour poly and tile.
			// The API input has been checked already, skip checking internal data.
			neighbourTile, neighbourPoly := q.nav.GetTileAndPolyByRefUnsafe(neighbourRef)
			if !filter.PassFilter(neighbourPoly) {
				continue
			}

			// deal explicitly with crossing tile boundaries
			var crossSide uint8
			if link.Side != 0xff {
				crossSide = link.Side >> 1
			}

			// get the node
			neighbourNode := q.nodePool.GetNode(neighbourRef, crossSide)
			if neighbourNode == nil {
				q.query.status |= DT_OUT_OF_NODES
				continue
			}

			// If the node is visited the first time, calculate node position.
			if neighbourNode.Flags == 0 {
				q.getEdgeMidPoint(bestRef, bestPoly, bestTile, neighbourRef, neighbourPoly, neighbourTile, neighbourNode.Pos[:])
			}

			// Calculate cost and heuristic.
			var cost, heuristic float32
			curCost := filter.GetCost(bestNode.Pos[:], neighbourNode.Pos[:], bestPoly)
			if neighbourRef == q.query.endRef {
				// Special case for last node.
				endCost := filter.GetCost(neighbourNode.Pos[:], q.query.endPos[:], neighbourPoly)
				cost = bestNode.Cost + curCost + endCost
				heuristic = 0
			} else {
				cost = bestNode.Cost + curCost
				heuristic = common.Vdist(neighbourNode.Pos[:], q.query.endPos[:]) * H_SCALE
			}
			total := cost + heuristic

			// The node is already in open list and the new result is worse, skip.
			if (neighbourNode.Flags&DT_NODE_OPEN) != 0 && total >= neighbourNode.Total {
				continue
			}
			// The node is already visited and process, and the new result is worse, skip.
			if (neighbourNode.Flags&DT_NODE_CLOSED) != 0 && total >= neighbourNode.Total {
				continue
			}

			// Add or update the node.
			neighbourNode.Pidx = q.nodePool.GetNodeIdx(bestNode)
			neighbourNode.Id = neighbourRef
			neighbourNode.Flags &^= DT_NODE_CLOSED
			neighbourNode.Cost = cost
			neighbourNode.Total = total

			if (neighbourNode.Flags & DT_NODE_OPEN) != 0 {
				// Already in open, update node location.
				q.openList.Update(neighbourNode)
			} else {
				// Put the node in open list.
				neighbourNode.Flags |= DT_NODE_OPEN
				q.openList.Offer(neighbourNode)
			}

			// Update nearest node to target so far.
			if heuristic < q.query.lastBestNodeCost {
				q.query.lastBestNodeCost = heuristic
				q.query.lastBestNode = neighbourNode
			}
		}
	}

	// Exhausted all nodes, but could not find path.
	if q.openList.Empty() {
		details := q.query.status & DT_STATUS_DETAIL_MASK
		q.query.status = DT_SUCCESS | details
	}
	return iter, q.query.status
}

// / Finalizes and returns the results of a sliced path query.
func (q *DtNavMeshQuery) FinalizeSlicedFindPath(maxPath int) ([]DtPolyRef, DtStatus) {
	defer func() { q.query = dtQueryData{} }()
	if q.query.status.Failed() {
		return nil, DT_FAILURE
	}
	if maxPath <= 0 {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}
	if q.query.startRef == q.query.endRef {
		// Special case: the search starts and ends at same poly.
		return []DtPolyRef{q.query.startRef}, DT_SUCCESS
	}
	if q.query.lastBestNode.Id != q.query.endRef {
		q.query.status |= DT_PARTIAL_RESULT
	}
	path, st := q.getPathToNode(q.query.lastBestNode, maxPath)
	details := (q.query.status | st) & DT_STATUS_DETAIL_MASK
	return path, DT_SUCCESS | details
}

// / Finalizes and returns the results of an incomplete sliced path query, returning the path to the furthest
// / polygon on the existing path that was visited during the search.
func (q *DtNavMeshQuery) FinalizeSlicedFindPathPartial(existing []DtPolyRef, maxPath int) ([]DtPolyRef, DtStatus) {
	defer func() { q.query = dtQueryData{} }()
	if len(existing) == 0 || maxPath <= 0 {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}
	if q.query.status.Failed() {
		return nil, DT_FAILURE
	}
	if q.query.startRef == q.query.endRef {
		// Special case: the search starts and ends at same poly.
		return []DtPolyRef{q.query.startRef}, DT_SUCCESS
	}

	// Find furthest existing node that was visited.
	var node *DtNode
	for i := len(existing) - 1; i >= 0; i-- {
		if nodes := q.nodePool.FindNodes(existing[i], 1); len(nodes) > 0 {
			node = nodes[0]
			break
		}
	}
	if node == nil {
		q.query.status |= DT_PARTIAL_RESULT
		node = q.query.lastBestNode
	}
	path, st := q.getPathToNode(node, maxPath)
	details := (q.query.status | st) & DT_STATUS_DETAIL_MASK
	return path, DT_SUCCESS | details
}

// / Returns portal points between two polygons.
func (q *DtNavMeshQuery) getPortalPoints(from, to DtPolyRef) (left, right [3]float32, fromType, toType uint8, status DtStatus) {
	fromTile, fromPoly, status := q.nav.GetTileAndPolyByRef(from)
	if status.Failed() {
		return left, right, 0, 0, DT_FAILURE | DT_INVALID_PARAM
	}
	fromType = fromPoly.GetType()

	toTile, toPoly, status := q.nav.GetTileAndPolyByRef(to)
	if status.Failed() {
		return left, right, 0, 0, DT_FAILURE | DT_INVALID_PARAM
	}
	toType = toPoly.GetType()

	status = q.getPortalPoints1(from, fromPoly, fromTile, to, toPoly, toTile, left[:], right[:])
	return left, right, fromType, toType, status
}

// Returns portal points between two polygons.
func (q *DtNavMeshQuery) getPortalPoints1(from DtPolyRef, fromPoly *DtPoly, fromTile *DtMeshTile,
	to DtPolyRef, toPoly *DtPoly, toTile *DtMeshTile, left, right []float32) DtStatus {
	// Find the link that points to the 'to' polygon.
	var link *DtLink
	for i := fromPoly.FirstLink; i != DT_NULL_LINK; i = fromTile.Links[i].Next {
		if fromTile.Links[i].Ref == to {
			link = &fromTile.Links[i]
			break
		}
	}
	if link == nil {
		return DT_FAILURE | DT_INVALID_PARAM
	}

	// Handle off-mesh connections.
	if fromPoly.GetType() == DT_POLYTYPE_OFFMESH_CONNECTION {
		// Find link that points to first vertex.
		for i := fromPoly.FirstLink; i != DT_NULL_LINK; i = fromTile.Links[i].Next {
			if fromTile.Links[i].Ref == to {
				v := fromTile.Links[i].Edge
				common.Vcopy(left, fromTile.Verts[int(fromPoly.Verts[v])*3:])
				common.Vcopy(right, fromTile.Verts[int(fromPoly.Verts[v])*3:])
				return DT_SUCCESS
			}
		}
		return DT_FAILURE | DT_INVALID_PARAM
	}

	if toPoly.GetType() == DT_POLYTYPE_OFFMESH_CONNECTION {
		for i := toPoly.FirstLink; i != DT_NULL_LINK; i = toTile.Links[i].Next {
			if toTile.Links[i].Ref == from {
				v := toTile.Links[i].Edge
				common.Vcopy(left, toTile.Verts[int(toPoly.Verts[v])*3:])
				common.Vcopy(right, toTile.Verts[int(toPoly.Verts[v])*3:])
				return DT_SUCCESS
			}
		}
		return DT_FAILURE | DT_INVALID_PARAM
	}

	// Find portal vertices.
	v0 := int(fromPoly.Verts[link.Edge])
	v1 := int(fromPoly.Verts[(int(link.Edge)+1)%int(fromPoly.VertCount)])
	common.Vcopy(left, fromTile.Verts[v0*3:])
	common.Vcopy(right, fromTile.Verts[v1*3:])

	// If the link is at tile boundary, dtClamp the vertices to
	// the link width.
	if link.Side != 0xff {
		// Unpack portal limits.
		if link.Bmin != 0 || link.Bmax != 255 {
			s := float32(1.0 / 255.0)
			tmin := float32(link.Bmin) * s
			tmax := float32(link.Bmax) * s
			common.Vlerp(left, fromTile.Verts[v0*3:], fromTile.Verts[v1*3:], tmin)
			common.Vlerp(right, fromTile.Verts[v0*3:], fromTile.Verts[v1*3:], tmax)
		}
	}
	return DT_SUCCESS
}

// Returns edge mid point between two polygons.
func (q *DtNavMeshQuery) getEdgeMidPoint(from DtPolyRef, fromPoly *DtPoly, fromTile *DtMeshTile,
	to DtPolyRef, toPoly *DtPoly, toTile *DtMeshTile, mid []float32) DtStatus {
	var left, right [3]float32
	if status := q.getPortalPoints1(from, fromPoly, fromTile, to, toPoly, toTile, left[:], right[:]); status.Failed() {
		return DT_FAILURE | DT_INVALID_PARAM
	}
	mid[0] = (left[0] + right[0]) * 0.5
	mid[1] = (left[1] + right[1]) * 0.5
	mid[2] = (left[2] + right[2]) * 0.5
	return DT_SUCCESS
}

// straightPath accumulates the output of FindStraightPath.
type straightPath struct {
	verts []float32
	flags []uint8
	refs  []DtPolyRef
	max   int
}

func (sp *straightPath) count() int { return len(sp.refs) }

func (sp *straightPath) appendVertex(pos []float32, flags uint8, ref DtPolyRef) DtStatus {
	n := sp.count()
	if n > 0 && common.Vequal(sp.verts[(n-1)*3:], pos) {
		// The vertices are equal, update flags and poly.
		sp.flags[n-1] = flags
		sp.refs[n-1] = ref
		return DT_IN_PROGRESS
	}
	// Append new vertex.
	sp.verts = append(sp.verts, pos[0], pos[1], pos[2])
	sp.flags = append(sp.flags, flags)
	sp.refs = append(sp.refs, ref)

	// If there is no space to append more vertices, return.
	if sp.count() >= sp.max {
		return DT_SUCCESS | DT_BUFFER_TOO_SMALL
	}
	// If reached end of path, return.
	if flags == DT_STRAIGHTPATH_END {
		return DT_SUCCESS
	}
	return DT_IN_PROGRESS
}

func (q *DtNavMeshQuery) appendPortals(startIdx, endIdx int, endPos []float32, path []DtPolyRef, sp *straightPath, options int) DtStatus {
	var startPos [3]float32
	common.Vcopy(startPos[:], sp.verts[(sp.count()-1)*3:])

	// Append or update last vertex
	for i := startIdx; i < endIdx; i++ {
		// Calculate portal
		from := path[i]
		fromTile, fromPoly, status := q.nav.GetTileAndPolyByRef(from)
		if status.Failed() {
			return DT_FAILURE | DT_INVALID_PARAM
		}
		to := path[i+1]
		toTile, toPoly, status := q.nav.GetTileAndPolyByRef(to)
		if status.Failed() {
			return DT_FAILURE | DT_INVALID_PARAM
		}
		var left, right [3]float32
		if q.getPortalPoints1(from, fromPoly, fromTile, to, toPoly, toTile, left[:], right[:]).Failed() {
			break
		}

		if options&DT_STRAIGHTPATH_AREA_CROSSINGS != 0 {
			// Skip intersection if only area crossings are requested.
			if fromPoly.GetArea() == toPoly.GetArea() {
				continue
			}
		}

		// Append intersection
		if _, t, ok := common.IntersectSegSeg2D(startPos[:], endPos, left[:], right[:]); ok {
			var pt [3]float32
			common.Vlerp(pt[:], left[:], right[:], t)
			if stat := sp.appendVertex(pt[:], 0, path[i+1]); stat != DT_IN_PROGRESS {
				return stat
			}
		}
	}
	return DT_IN_PROGRESS
}

// / Finds the straight path from the start to the end position within the polygon corridor.
// / The result holds (x, y, z) triples, one flag and one polygon reference per vertex.
func (q *DtNavMeshQuery) FindStraightPath(startPos, endPos []float32, path []DtPolyRef, maxStraightPath int, options int) (straightPathVerts []float32, straightPathFlags []uint8, straightPathRefs []DtPolyRef, status DtStatus) {
	if len(startPos) < 3 || !common.Visfinite(startPos) ||
		len(endPos) < 3 || !common.Visfinite(endPos) ||
		len(path) == 0 || path[0] == 0 || maxStraightPath <= 0 {
		return nil, nil, nil, DT_FAILURE | DT_INVALID_PARAM
	}
	sp := &straightPath{max: maxStraightPath}
	result := func(st DtStatus) ([]float32, []uint8, []DtPolyRef, DtStatus) {
		return sp.verts, sp.flags, sp.refs, st
	}
	pathSize := len(path)

	closestStartPos, status := q.ClosestPointOnPolyBoundary(path[0], startPos)
	if status.Failed() {
		return nil, nil, nil, DT_FAILURE | DT_INVALID_PARAM
	}
	closestEndPos, status := q.ClosestPointOnPolyBoundary(path[pathSize-1], endPos)
	if status.Failed() {
		return nil, nil, nil, DT_FAILURE | DT_INVALID_PARAM
	}

	// Add start point.
	stat := sp.appendVertex(closestStartPos[:], DT_STRAIGHTPATH_START, path[0])
	if stat != DT_IN_PROGRESS {
		return result(stat)
	}

	if pathSize > 1 {
		portalApex := closestStartPos
		portalLeft := portalApex
		portalRight := portalApex
		apexIndex := 0
		leftIndex := 0
		rightIndex := 0

		var leftPolyType, rightPolyType uint8
		leftPolyRef := path[0]
		rightPolyRef := path[0]

		for i := 0; i < pathSize; i++ {
			var left, right [3]float32
			var toType uint8

			if i+1 < pathSize {
				// Next portal.
				var st DtStatus
				left, right, _, toType, st = q.getPortalPoints(path[i], path[i+1])
				if st.Failed() {
					// Failed to get portal points, in practice this means that path[i+1] is invalid polygon.
					// Clamp the end point to path[i], and return the path so far.
					closestEndPos, st = q.ClosestPointOnPolyBoundary(path[i], endPos)
					if st.Failed() {
						// This should only happen when the first polygon is invalid.
						return nil, nil, nil, DT_FAILURE | DT_INVALID_PARAM
					}

					// Append portals along the current straight path segment.
					if options&(DT_STRAIGHTPATH_AREA_CROSSINGS|DT_STRAIGHTPATH_ALL_CROSSINGS) != 0 {
						// Ignore status return value as we're just about to return anyway.
						q.appendPortals(apexIndex, i, closestEndPos[:], path, sp, options)
					}
					// Ignore status return value as we're just about to return anyway.
					sp.appendVertex(closestEndPos[:], 0, path[i])

					res := DT_SUCCESS | DT_PARTIAL_RESULT
					if sp.count() >= maxStraightPath {
						res |= DT_BUFFER_TOO_SMALL
					}
					return result(res)
				}

				// If starting really close the portal, advance.
				if i == 0 {
					if d, _ := common.DistancePtSegSqr2D(portalApex[:], left[:], right[:]); d < common.Sqr(float32(0.001)) {
						continue
					}
				}
			} else {
				// End of the path.
				left = closestEndPos
				right = closestEndPos
				toType = DT_POLYTYPE_GROUND
			}

			// Right vertex.
			if common.TriArea2D(portalApex[:], portalRight[:], right[:]) <= 0 {
				if common.Vequal(portalApex[:], portalRight[:]) || common.TriArea2D(portalApex[:], portalLeft[:], right[:]) > 0 {
					portalRight = right
					rightPolyRef = 0
					if i+1 < pathSize {
						rightPolyRef = path[i+1]
					}
					rightPolyType = toType
					rightIndex = i
				} else {
					// Append portals along the current straight path segment.
					if options&(DT_STRAIGHTPATH_AREA_CROSSINGS|DT_STRAIGHTPATH_ALL_CROSSINGS) != 0 {
						stat = q.appendPortals(apexIndex, leftIndex, portalLeft[:], path, sp, options)
						if stat != DT_IN_PROGRESS {
							return result(stat)
						}
					}

					portalApex = portalLeft
					apexIndex = leftIndex

					var flags uint8
					if leftPolyRef == 0 {
						flags = DT_STRAIGHTPATH_END
					} else if leftPolyType == DT_POLYTYPE_OFFMESH_CONNECTION {
						flags = DT_STRAIGHTPATH_OFFMESH_CONNECTION
					}

					// Append or update vertex
					stat = sp.appendVertex(portalApex[:], flags, leftPolyRef)
					if stat != DT_IN_PROGRESS {
						return result(stat)
					}

					portalLeft = portalApex
					portalRight = portalApex
					leftIndex = apexIndex
					rightIndex = apexIndex

					// Restart
					i = apexIndex
					continue
				}
			}

			// Left vertex.
			if common.TriArea2D(portalApex[:], portalLeft[:], left[:]) >= 0 {
				if common.Vequal(portalApex[:], portalLeft[:]) || common.TriArea2D(portalApex[:], portalRight[:], left[:]) < 0 {
					portalLeft = left
					leftPolyRef = 0
					if i+1 < pathSize {
						leftPolyRef = path[i+1]
					}
					leftPolyType = toType
					leftIndex = i
				} else {
					// Append portals along the current straight path segment.
					if options&(DT_STRAIGHTPATH_AREA_CROSSINGS|DT_STRAIGHTPATH_ALL_CROSSINGS) != 0 {
						stat = q.appendPortals(apexIndex, rightIndex, portalRight[:], path, sp, options)
						if stat != DT_IN_PROGRESS {
							return result(stat)
						}
					}

					portalApex = portalRight
					apexIndex = rightIndex

					var flags uint8
					if rightPolyRef == 0 {
						flags = DT_STRAIGHTPATH_END
					} else if rightPolyType == DT_POLYTYPE_OFFMESH_CONNECTION {
						flags = DT_STRAIGHTPATH_OFFMESH_CONNECTION
					}

					// Append or update vertex
					stat = sp.appendVertex(portalApex[:], flags, rightPolyRef)
					if stat != DT_IN_PROGRESS {
						return result(stat)
					}

					portalLeft = portalApex
					portalRight = portalApex
					leftIndex = apexIndex
					rightIndex = apexIndex

					// Restart
					i = apexIndex
					continue
				}
			}
		}

		// Append portals along the current straight path segment.
		if options&(DT_STRAIGHTPATH_AREA_CROSSINGS|DT_STRAIGHTPATH_ALL_CROSSINGS) != 0 {
			stat = q.appendPortals(apexIndex, pathSize-1, closestEndPos[:], path, sp, options)
			if stat != DT_IN_PROGRESS {
				return result(stat)
			}
		}
	}

	// Ignore status return value as we're just about to return anyway.
	sp.appendVertex(closestEndPos[:], DT_STRAIGHTPATH_END, 0)

	res := DT_SUCCESS
	if sp.count() >= maxStraightPath {
		res |= DT_BUFFER_TOO_SMALL
	}
	return result(res)
}
