package detour_crowd

import (
	"github.com/gorustyt/navcore/common"
	"github.com/gorustyt/navcore/detour"
)

// furthestCommon returns the last index pair where path and visited share a polygon,
// scanning path from the end (fromEnd) or from the start.
func furthestCommon(path, visited []detour.DtPolyRef, fromEnd bool) (furthestPath, furthestVisited int) {
	furthestPath, furthestVisited = -1, -1
	match := func(i int) bool {
		for j := len(visited) - 1; j >= 0; j-- {
			if path[i] == visited[j] {
				furthestPath = i
				furthestVisited = j
				return true
			}
		}
		return false
	}
	if fromEnd {
		for i := len(path) - 1; i >= 0; i-- {
			if match(i) {
				break
			}
		}
	} else {
		for i := range path {
			if match(i) {
				break
			}
		}
	}
	return furthestPath, furthestVisited
}

// DtMergeCorridorStartMoved replaces the start of path with the polygons visited while moving.
func DtMergeCorridorStartMoved(path []detour.DtPolyRef, maxPath int, visited []detour.DtPolyRef) []detour.DtPolyRef {
	furthestPath, furthestVisited := furthestCommon(path, visited, true)

	// If no intersection found just return current path.
	if furthestPath == -1 || furthestVisited == -1 {
		return path
	}

	// Concatenate paths.

	// Adjust beginning of the buffer to include the visited.
	req := len(visited) - furthestVisited
	orig := min(furthestPath+1, len(path))
	size := max(0, len(path)-orig)
	if req+size > maxPath {
		size = maxPath - req
	}

	merged := make([]detour.DtPolyRef, 0, req+max(size, 0))
	// Store visited
	for i := 0; i < req; i++ {
		merged = append(merged, visited[(len(visited)-1)-i])
	}
	if size > 0 {
		merged = append(merged, path[orig:orig+size]...)
	}
	return merged
}

// DtMergeCorridorEndMoved extends the end of path with the polygons visited by the target.
func DtMergeCorridorEndMoved(path []detour.DtPolyRef, maxPath int, visited []detour.DtPolyRef) []detour.DtPolyRef {
	furthestPath, furthestVisited := furthestCommon(path, visited, false)

	// If no intersection found just return current path.
	if furthestPath == -1 || furthestVisited == -1 {
		return path
	}

	// Concatenate paths.
	ppos := furthestPath + 1
	vpos := furthestVisited + 1
	count := min(len(visited)-vpos, maxPath-ppos)
	merged := append([]detour.DtPolyRef(nil), path[:ppos]...)
	if count > 0 {
		merged = append(merged, visited[vpos:vpos+count]...)
	}
	return merged
}

// DtMergeCorridorStartShortcut replaces the start of path with a shortcut found by a local search.
func DtMergeCorridorStartShortcut(path []detour.DtPolyRef, maxPath int, visited []detour.DtPolyRef) []detour.DtPolyRef {
	furthestPath, furthestVisited := furthestCommon(path, visited, true)

	// If no intersection found just return current path.
	if furthestPath == -1 || furthestVisited == -1 {
		return path
	}

	// Concatenate paths.

	// Adjust beginning of the buffer to include the visited.
	req := furthestVisited
	if req <= 0 {
		return path
	}

	orig := furthestPath
	size := max(0, len(path)-orig)
	if req+size > maxPath {
		size = maxPath - req
	}

	merged := append([]detour.DtPolyRef(nil), visited[:req]...)
	if size > 0 {
		merged = append(merged, path[orig:orig+size]...)
	}
	return merged
}

// / Represents a dynamic polygon corridor used to plan agent movement.
// / The corridor is loaded with a path, usually obtained from a DtNavMeshQuery.FindPath() query,
// / then used to plan local movement with the corridor updating as the agent moves.
// / The corridor position and target are always constrained to the navigation mesh.
// / @ingroup crowd, detour
type DtPathCorridor struct {
	m_pos     [3]float32
	m_target  [3]float32
	m_path    []detour.DtPolyRef
	m_maxPath int
}

func NewDtPathCorridor(maxPath int) *DtPathCorridor {
	return &DtPathCorridor{
		m_path:    make([]detour.DtPolyRef, 0, maxPath),
		m_maxPath: maxPath,
	}
}

// / Gets the current position within the corridor. (In the first polygon.)
func (d *DtPathCorridor) GetPos() []float32 { return d.m_pos[:] }

// / Gets the current target within the corridor. (In the last polygon.)
func (d *DtPathCorridor) GetTarget() []float32 { return d.m_target[:] }

// / The polygon reference id of the first polygon in the corridor, the polygon containing the position.
func (d *DtPathCorridor) GetFirstPoly() detour.DtPolyRef {
	if len(d.m_path) > 0 {
		return d.m_path[0]
	}
	return 0
}

// / The polygon reference id of the last polygon in the corridor, the polygon containing the target.
func (d *DtPathCorridor) GetLastPoly() detour.DtPolyRef {
	if len(d.m_path) > 0 {
		return d.m_path[len(d.m_path)-1]
	}
	return 0
}

// / The corridor's path.
func (d *DtPathCorridor) GetPath() []detour.DtPolyRef { return d.m_path }

// / The number of polygons in the current corridor path.
func (d *DtPathCorridor) GetPathCount() int { return len(d.m_path) }

// / Resets the path corridor to the specified position.
// / Essentially, the corridor is set of one polygon in size with the target
// / equal to the position.
func (d *DtPathCorridor) Reset(ref detour.DtPolyRef, pos []float32) {
	common.Vcopy(d.m_pos[:], pos)
	common.Vcopy(d.m_target[:], pos)
	d.m_path = append(d.m_path[:0], ref)
}

// / Finds the corners in the corridor from the position toward the target. (The straightened path.)
// / If the target is within range, it will be the last corner and have a polygon reference id of zero.
func (d *DtPathCorridor) FindCorners(maxCorners int, navquery *detour.DtNavMeshQuery) (cornerVerts []float32, cornerFlags []uint8, cornerPolys []detour.DtPolyRef) {
	const MIN_TARGET_DIST = 0.01

	cornerVerts, cornerFlags, cornerPolys, _ = navquery.FindStraightPath(d.m_pos[:], d.m_target[:], d.m_path, maxCorners, 0)

	// Prune points in the beginning of the path which are too close.
	for len(cornerFlags) > 0 {
		if cornerFlags[0]&detour.DT_STRAIGHTPATH_OFFMESH_CONNECTION != 0 ||
			common.Vdist2DSqr(cornerVerts, d.m_pos[:]) > common.Sqr(float32(MIN_TARGET_DIST)) {
			break
		}
		cornerFlags = cornerFlags[1:]
		cornerPolys = cornerPolys[1:]
		cornerVerts = cornerVerts[3:]
	}

	// Prune points after an off-mesh connection.
	for i := range cornerFlags {
		if cornerFlags[i]&detour.DT_STRAIGHTPATH_OFFMESH_CONNECTION != 0 {
			cornerFlags = cornerFlags[:i+1]
			cornerPolys = cornerPolys[:i+1]
			cornerVerts = cornerVerts[:(i+1)*3]
			break
		}
	}
	return cornerVerts, cornerFlags, cornerPolys
}

// / Attempts to optimize the path if the specified point is visible from the current position.
// / The corridor changes only if next is visible from the current position and moving directly
// / toward the point is better than following the existing path.
func (d *DtPathCorridor) OptimizePathVisibility(next []float32, pathOptimizationRange float32,
	navquery *detour.DtNavMeshQuery, filter *detour.DtQueryFilter) {
	// Clamp the ray to max distance.
	var goal [3]float32
	common.Vcopy(goal[:], next)
	dist := common.Vdist2D(d.m_pos[:], goal[:])

	// If too close to the goal, do not try to optimize.
	if dist < 0.01 {
		return
	}

	// Overshoot a little. This helps to optimize open fields in tiled meshes.
	dist = min(dist+0.01, pathOptimizationRange)

	// Adjust ray length.
	var delta [3]float32
	common.Vsub(delta[:], goal[:], d.m_pos[:])
	common.Vmad(goal[:], d.m_pos[:], delta[:], pathOptimizationRange/dist)

	const MAX_RES = 32
	hit, _ := navquery.Raycast(d.m_path[0], d.m_pos[:], goal[:], filter, 0, MAX_RES, 0)
	if len(hit.Path) > 1 && hit.T > 0.99 {
		d.m_path = DtMergeCorridorStartShortcut(d.m_path, d.m_maxPath, hit.Path)
	}
}

// / Attempts to optimize the path using a local area search. (Partial replanning.)
func (d *DtPathCorridor) OptimizePathTopology(navquery *detour.DtNavMeshQuery, filter *detour.DtQueryFilter) bool {
	if len(d.m_path) < 3 {
		return false
	}

	const MAX_ITER = 32
	const MAX_RES = 32

	navquery.InitSlicedFindPath(d.m_path[0], d.m_path[len(d.m_path)-1], d.m_pos[:], d.m_target[:], filter)
	navquery.UpdateSlicedFindPath(MAX_ITER)
	res, status := navquery.FinalizeSlicedFindPathPartial(d.m_path, MAX_RES)
	if status.Succeed() && len(res) > 0 {
		d.m_path = DtMergeCorridorStartShortcut(d.m_path, d.m_maxPath, res)
		return true
	}
	return false
}

// / Advances the path up to and over the off-mesh connection.
// / Returns the polygon before the connection, the connection itself and its end points.
func (d *DtPathCorridor) MoveOverOffmeshConnection(offMeshConRef detour.DtPolyRef, navquery *detour.DtNavMeshQuery) (refs [2]detour.DtPolyRef, startPos, endPos [3]float32, ok bool) {
	// Advance the path up to and over the off-mesh connection.
	var prevRef detour.DtPolyRef
	polyRef := d.m_path[0]
	npos := 0
	for npos < len(d.m_path) && polyRef != offMeshConRef {
		prevRef = polyRef
		polyRef = d.m_path[npos]
		npos++
	}
	if npos == len(d.m_path) {
		// Could not find offMeshConRef
		return refs, startPos, endPos, false
	}

	// Prune path
	d.m_path = append(d.m_path[:0], d.m_path[npos:]...)

	refs[0] = prevRef
	refs[1] = polyRef

	nav := navquery.GetAttachedNavMesh()
	startPos, endPos, status := nav.GetOffMeshConnectionPolyEndPoints(refs[0], refs[1])
	if status.Succeed() {
		d.m_pos = endPos
		return refs, startPos, endPos, true
	}
	return refs, startPos, endPos, false
}

// / Moves the position from the current location to the desired location, adjusting the corridor
// / as needed to reflect the change.
// / The resulting position will differ from the desired position if the desired position is not on
// / the navigation mesh, or it can't be reached using a local search.
func (d *DtPathCorridor) MovePosition(npos []float32, navquery *detour.DtNavMeshQuery, filter *detour.DtQueryFilter) bool {
	// Move along navmesh and update new position.
	const MAX_VISITED = 16
	result, visited, status := navquery.MoveAlongSurface(d.m_path[0], d.m_pos[:], npos, filter, MAX_VISITED)
	if status.Succeed() {
		d.m_path = DtMergeCorridorStartMoved(d.m_path, d.m_maxPath, visited)

		// Adjust the position to stay on top of the navmesh.
		if h, st := navquery.GetPolyHeight(d.m_path[0], result[:]); st.Succeed() {
			result[1] = h
		} else {
			result[1] = d.m_pos[1]
		}
		d.m_pos = result
		return true
	}
	return false
}

// / Moves the target from the curent location to the desired location, adjusting the corridor
// / as needed to reflect the change.
func (d *DtPathCorridor) MoveTargetPosition(npos []float32, navquery *detour.DtNavMeshQuery, filter *detour.DtQueryFilter) bool {
	// Move along navmesh and update new position.
	const MAX_VISITED = 16
	result, visited, status := navquery.MoveAlongSurface(d.m_path[len(d.m_path)-1], d.m_target[:], npos, filter, MAX_VISITED)
	if status.Succeed() {
		d.m_path = DtMergeCorridorEndMoved(d.m_path, d.m_maxPath, visited)
		d.m_target = result
		return true
	}
	return false
}

// / Loads a new path and target into the corridor.
// / The current corridor position is expected to be within the first polygon in the path. The target
// / is expected to be in the last polygon.
func (d *DtPathCorridor) SetCorridor(target []float32, path []detour.DtPolyRef) {
	common.Vcopy(d.m_target[:], target)
	n := min(len(path), d.m_maxPath)
	d.m_path = append(d.m_path[:0], path[:n]...)
}

// FixPathStart puts safeRef at the start of the corridor and invalidates the next polygon,
// forcing a replan.
func (d *DtPathCorridor) FixPathStart(safeRef detour.DtPolyRef, safePos []float32) bool {
	common.Vcopy(d.m_pos[:], safePos)
	if len(d.m_path) < 3 && len(d.m_path) > 0 {
		last := d.m_path[len(d.m_path)-1]
		d.m_path = append(d.m_path[:0], safeRef, 0, last)
	} else if len(d.m_path) > 0 {
		d.m_path[0] = safeRef
		d.m_path[1] = 0
	}
	return true
}

// TrimInvalidPath keeps the valid prefix of the corridor and clamps the target to it.
func (d *DtPathCorridor) TrimInvalidPath(safeRef detour.DtPolyRef, safePos []float32,
	navquery *detour.DtNavMeshQuery, filter *detour.DtQueryFilter) bool {
	// Keep valid path as far as possible.
	n := 0
	for n < len(d.m_path) && navquery.IsValidPolyRef(d.m_path[n], filter) {
		n++
	}

	if n == len(d.m_path) {
		// All valid, no need to fix.
		return true
	} else if n == 0 {
		// The first polyref is bad, use current safe values.
		common.Vcopy(d.m_pos[:], safePos)
		d.m_path = append(d.m_path[:0], safeRef)
	} else {
		// The path is partially usable.
		d.m_path = d.m_path[:n]
	}

	// Clamp target pos to last poly
	if tgt, st := navquery.ClosestPointOnPolyBoundary(d.m_path[len(d.m_path)-1], d.m_target[:]); st.Succeed() {
		d.m_target = tgt
	}
	return true
}

// / Checks the current corridor path to see if its polygon references remain valid.
// / The path can be invalidated if there are structural changes to the underlying navigation mesh, or the state of
// / a polygon within the path changes resulting in it being filtered out. (E.g. An exclusion or inclusion flag changes.)
func (d *DtPathCorridor) IsValid(maxLookAhead int, navquery *detour.DtNavMeshQuery, filter *detour.DtQueryFilter) bool {
	// Check that all polygons still pass query filter.
	n := min(len(d.m_path), maxLookAhead)
	for i := 0; i < n; i++ {
		if !navquery.IsValidPolyRef(d.m_path[i], filter) {
			return false
		}
	}
	return true
}
