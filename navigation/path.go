package navigation

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorustyt/navcore/common"
	"github.com/gorustyt/navcore/detour"
	"github.com/gorustyt/navcore/detour_crowd"
)

const (
	MAX_POLYS        = 256
	MAX_SMOOTH       = 2048
	MAX_STEER_POINTS = 3
	STEP_SIZE        = 0.5
	SLOP             = 0.01
)

type PathSegmentKind int

const (
	PathWalk PathSegmentKind = iota // points follow the mesh surface
	PathLink                        // start and end of an off-mesh connection
)

func (k PathSegmentKind) String() string {
	if k == PathLink {
		return "link"
	}
	return "walk"
}

type PathSegment struct {
	Kind   PathSegmentKind
	Points []common.Vec3
}

// SmoothPath is the result of FindPath: surface walks separated by off-mesh links.
type SmoothPath struct {
	Segments []PathSegment
	Polys    []detour.DtPolyRef ///< Polygon corridor found by the search.
	count    int
}

// Len returns the number of points stored across all segments.
func (p *SmoothPath) Len() int { return p.count }

// Points flattens the segments, dropping the repeated point where one segment
// ends and the next begins.
func (p *SmoothPath) Points() []common.Vec3 {
	pts := make([]common.Vec3, 0, p.count)
	for _, seg := range p.Segments {
		for _, pt := range seg.Points {
			if len(pts) > 0 && pts[len(pts)-1] == pt {
				continue
			}
			pts = append(pts, pt)
		}
	}
	return pts
}

func (p *SmoothPath) add(kind PathSegmentKind, pt common.Vec3) bool {
	if p.count >= MAX_SMOOTH {
		return false
	}
	if n := len(p.Segments); n == 0 || p.Segments[n-1].Kind != kind {
		p.Segments = append(p.Segments, PathSegment{Kind: kind})
	}
	seg := &p.Segments[len(p.Segments)-1]
	seg.Points = append(seg.Points, pt)
	p.count++
	return true
}

func (p *SmoothPath) addLink(start, end common.Vec3) bool {
	if p.count+2 > MAX_SMOOTH {
		return false
	}
	p.Segments = append(p.Segments, PathSegment{Kind: PathLink, Points: []common.Vec3{start, end}})
	p.count += 2
	return true
}

func inRange(v1, v2 []float32, r, h float32) bool {
	dx := v2[0] - v1[0]
	dy := v2[1] - v1[1]
	dz := v2[2] - v1[2]
	return (dx*dx+dz*dz) < r*r && common.Abs(dy) < h
}

// fixupCorridor splices the polygons visited by a surface move onto the
// front of the corridor.
func fixupCorridor(path []detour.DtPolyRef, maxPath int, visited []detour.DtPolyRef) []detour.DtPolyRef {
	return detour_crowd.DtMergeCorridorStartMoved(path, maxPath, visited)
}

// fixupShortcuts removes small U-turns: when a neighbour of the first polygon
// appears a few polygons ahead, everything in between is cut.
//
//	+-S-+-T-+
//	|:::|   | <-- the step can end up in here, resulting U-turn path.
//	+---+---+
//	|:::|   |
//	+---+---+
func fixupShortcuts(path []detour.DtPolyRef, nav *detour.DtNavMesh) []detour.DtPolyRef {
	if len(path) < 3 {
		return path
	}

	// Get connected polygons
	const maxNeis = 16
	neis := make([]detour.DtPolyRef, 0, maxNeis)
	tile, poly, status := nav.GetTileAndPolyByRef(path[0])
	if status.Failed() {
		return path
	}
	for k := poly.FirstLink; k != detour.DT_NULL_LINK; k = tile.Links[k].Next {
		link := &tile.Links[k]
		if link.Ref != 0 && len(neis) < maxNeis {
			neis = append(neis, link.Ref)
		}
	}

	// If any of the neighbour polygons is within the next few polygons
	// in the path, short cut to that polygon directly.
	const maxLookAhead = 6
	cut := 0
	for i := min(maxLookAhead, len(path)) - 1; i > 1 && cut == 0; i-- {
		for _, n := range neis {
			if path[i] == n {
				cut = i
				break
			}
		}
	}
	if cut > 1 {
		path = append(path[:1], path[cut:]...)
	}
	return path
}

type steerTarget struct {
	pos  [3]float32
	flag uint8
	ref  detour.DtPolyRef
}

// getSteerTarget finds the next straight path corner further than minTargetDist
// from startPos, stopping early at off-mesh connections.
func getSteerTarget(navQuery *detour.DtNavMeshQuery, startPos, endPos []float32, minTargetDist float32,
	path []detour.DtPolyRef) (steerTarget, bool) {
	// Find steer target.
	steerPath, steerPathFlags, steerPathPolys, status := navQuery.FindStraightPath(startPos, endPos, path, MAX_STEER_POINTS, 0)
	if status.Failed() || len(steerPathFlags) == 0 {
		return steerTarget{}, false
	}
	nsteerPath := len(steerPathFlags)

	// Find vertex far enough to steer to.
	ns := 0
	for ns < nsteerPath {
		// Stop at Off-Mesh link or when point is further than slop away.
		if (steerPathFlags[ns]&detour.DT_STRAIGHTPATH_OFFMESH_CONNECTION) != 0 ||
			!inRange(steerPath[ns*3:ns*3+3], startPos, minTargetDist, 1000.0) {
			break
		}
		ns++
	}
	// Failed to find good point to steer to.
	if ns >= nsteerPath {
		return steerTarget{}, false
	}

	var target steerTarget
	copy(target.pos[:], steerPath[ns*3:ns*3+3])
	target.pos[1] = startPos[1]
	target.flag = steerPathFlags[ns]
	target.ref = steerPathPolys[ns]
	return target, true
}

// smoothPath walks the corridor in STEP_SIZE steps, resampling the height of
// every step from the detail mesh.
func smoothPath(navQuery *detour.DtNavMeshQuery, filter *detour.DtQueryFilter,
	startPos, endPos []float32, polys []detour.DtPolyRef) SmoothPath {
	nav := navQuery.GetAttachedNavMesh()
	out := SmoothPath{Polys: append([]detour.DtPolyRef(nil), polys...)}
	polys = append([]detour.DtPolyRef(nil), polys...)

	// Iterate over the path to find smooth path on the detail mesh surface.
	iterPos, _, _ := navQuery.ClosestPointOnPoly(polys[0], startPos)
	targetPos, _, _ := navQuery.ClosestPointOnPoly(polys[len(polys)-1], endPos)
	out.add(PathWalk, iterPos)

	// Move towards target a small advancement at a time until target reached or
	// when ran out of memory to store the path.
	for len(polys) > 0 && out.Len() < MAX_SMOOTH {
		// Find location to steer towards.
		steer, ok := getSteerTarget(navQuery, iterPos[:], targetPos[:], SLOP, polys)
		if !ok {
			break
		}
		endOfPath := steer.flag&detour.DT_STRAIGHTPATH_END != 0
		offMeshConnection := steer.flag&detour.DT_STRAIGHTPATH_OFFMESH_CONNECTION != 0

		// Find movement delta.
		delta := mgl32.Vec3(steer.pos).Sub(iterPos)
		l := delta.Len()
		// If the steer target is end of path or off-mesh link, do not move past the location.
		if (endOfPath || offMeshConnection) && l < STEP_SIZE {
			l = 1
		} else {
			l = STEP_SIZE / l
		}
		moveTgt := mgl32.Vec3(iterPos).Add(delta.Mul(l))

		// Move
		result, visited, _ := navQuery.MoveAlongSurface(polys[0], iterPos[:], moveTgt[:], filter, 16)
		polys = fixupCorridor(polys, MAX_POLYS, visited)
		polys = fixupShortcuts(polys, nav)
		if len(polys) == 0 {
			break
		}
		if h, status := navQuery.GetPolyHeight(polys[0], result[:]); status.Succeed() {
			result[1] = h
		}
		iterPos = result

		// Handle end of path and off-mesh links when close enough.
		if endOfPath && inRange(iterPos[:], steer.pos[:], SLOP, 1.0) {
			// Reached end of path.
			iterPos = targetPos
			out.add(PathWalk, iterPos)
			break
		} else if offMeshConnection && inRange(iterPos[:], steer.pos[:], SLOP, 1.0) {
			// Reached off-mesh connection.
			// Advance the path up to and over the off-mesh connection.
			var prevRef detour.DtPolyRef
			polyRef := polys[0]
			npos := 0
			for npos < len(polys) && polyRef != steer.ref {
				prevRef = polyRef
				polyRef = polys[npos]
				npos++
			}
			polys = polys[npos:]

			// Handle the connection.
			start, end, status := nav.GetOffMeshConnectionPolyEndPoints(prevRef, polyRef)
			if status.Succeed() && len(polys) > 0 {
				out.add(PathWalk, start)
				if h, status := navQuery.GetPolyHeight(polys[0], end[:]); status.Succeed() {
					end[1] = h
				}
				if !out.addLink(start, end) {
					break
				}
				iterPos = end
			}
		}

		// Store results.
		if !out.add(PathWalk, iterPos) {
			break
		}
	}
	return out
}
