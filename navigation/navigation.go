package navigation

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorustyt/navcore/common"
	"github.com/gorustyt/navcore/common/logger"
	"github.com/gorustyt/navcore/detour"
	"github.com/gorustyt/navcore/detour_crowd"
)

const (
	MAX_QUERY_FILTER_TYPE = detour_crowd.DT_CROWD_MAX_QUERY_FILTER_TYPE
	MAX_QUERY_NODES       = 2048
	RAY_CHUNK_LENGTH      = 50.0
	MAX_RAY_POLYS         = 512
)

var polyPickExt = [3]float32{2, 4, 2}

// Navigation is a built or loaded navmesh together with its query object,
// crowd and filters. Implementations differ in how the navmesh is produced.
type Navigation interface {
	SetGeometry(geom *InputGeometryData)
	Build(agentRadius, agentHeight, stepHeight float32) bool
	Update(dt float32)
	Save(path string) error
	Load(path string) error
	Cleanup()
	IsLoaded() bool

	Query
	Crowd
}

type Query interface {
	FindPath(start, end common.Vec3, filterType int) (SmoothPath, bool)
	FindStraightPath(start, end common.Vec3) ([]common.Vec3, bool)
	FindNearestPoly(pos, extent common.Vec3) (common.Vec3, bool)
	FindNearestPolyBetween(start, end common.Vec3, deltaY, step float32) (common.Vec3, bool)
	RayCast(start, dir common.Vec3, distance float32, filterType int) (hit bool, endPos common.Vec3, dist float32)
	RayDetect(start, dir common.Vec3, length float32) (common.Vec3, bool)

	SetIncludeFlag(filterType int, flags uint16)
	SetExcludeFlag(filterType int, flags uint16)
	SetAreaCost(filterType int, area uint8, cost float32)
	SetCrowdIncludeFlag(filterType int, flags uint16)
	SetCrowdExcludeFlag(filterType int, flags uint16)
	SetCrowdAreaCost(filterType int, area uint8, cost float32)
}

// navigationBase owns the runtime objects shared by every navmesh flavour.
type navigationBase struct {
	m_settings Settings
	m_geom     *InputGeometryData
	m_ctx      *BuildContext

	m_navMesh  *detour.DtNavMesh
	m_navQuery *detour.DtNavMeshQuery
	m_crowd    *detour_crowd.DtCrowd
	m_filters  [MAX_QUERY_FILTER_TYPE]*detour.DtQueryFilter

	m_agentGen   []uint32
	m_agentDebug detour_crowd.DtCrowdAgentDebugInfo

	m_isLoaded bool
	m_buildErr error
}

func newNavigationBase(settings Settings) navigationBase {
	n := navigationBase{
		m_settings: settings,
		m_ctx:      NewBuildContext(),
	}
	for i := range n.m_filters {
		f := detour.NewDtQueryFilter()
		f.SetIncludeFlags(POLYFLAGS_ALL ^ POLYFLAGS_DISABLED)
		f.SetExcludeFlags(0)
		for area := POLYAREA_GROUND; area <= POLYAREA_JUMP; area++ {
			f.SetAreaCost(int(area), defaultAreaCost(area))
		}
		n.m_filters[i] = f
	}
	return n
}

func (n *navigationBase) SetGeometry(geom *InputGeometryData) { n.m_geom = geom }
func (n *navigationBase) GetGeometry() *InputGeometryData     { return n.m_geom }
func (n *navigationBase) GetContext() *BuildContext           { return n.m_ctx }
func (n *navigationBase) GetSettings() Settings               { return n.m_settings }
func (n *navigationBase) SetSettings(s Settings)              { n.m_settings = s }
func (n *navigationBase) GetNavMesh() *detour.DtNavMesh       { return n.m_navMesh }
func (n *navigationBase) GetNavMeshQuery() *detour.DtNavMeshQuery {
	return n.m_navQuery
}
func (n *navigationBase) GetCrowd() *detour_crowd.DtCrowd { return n.m_crowd }
func (n *navigationBase) IsLoaded() bool                  { return n.m_isLoaded }

// LastBuildError returns why the last Build failed, nil after a success.
func (n *navigationBase) LastBuildError() error { return n.m_buildErr }

func (n *navigationBase) buildFailed(op string, err error) bool {
	logger.LogError("%s: %v", op, err)
	n.m_buildErr = err
	return false
}

// attach installs a freshly built or loaded navmesh and creates its query
// object and crowd.
func (n *navigationBase) attach(nav *detour.DtNavMesh) error {
	query, status := detour.NewDtNavMeshQuery(nav, MAX_QUERY_NODES)
	if status.Failed() {
		return fmt.Errorf("%w: init navmesh query: %v", ErrBuildFailed, status)
	}
	n.m_navMesh = nav
	n.m_navQuery = query
	if err := n.CrowdInit(n.m_settings.MaxAgents, n.m_settings.MaxAgentRadius); err != nil {
		n.m_navMesh, n.m_navQuery = nil, nil
		return err
	}
	n.m_isLoaded = true
	return nil
}

func (n *navigationBase) cleanupBase() {
	n.m_isLoaded = false
	n.m_crowd = nil
	n.m_navQuery = nil
	n.m_navMesh = nil
	for i := range n.m_agentGen {
		n.m_agentGen[i]++
	}
}

func (n *navigationBase) filter(filterType int) *detour.DtQueryFilter {
	if filterType < 0 || filterType >= MAX_QUERY_FILTER_TYPE {
		return nil
	}
	return n.m_filters[filterType]
}

func (n *navigationBase) nearestPoly(pos []float32, ext []float32, filter *detour.DtQueryFilter) (detour.DtPolyRef, [3]float32, bool) {
	ref, pt, _, status := n.m_navQuery.FindNearestPoly(pos, ext, filter)
	if status.Failed() || ref == 0 {
		return 0, pt, false
	}
	return ref, pt, true
}

// findCorridor resolves both end points and searches the polygon corridor between them.
func (n *navigationBase) findCorridor(start, end common.Vec3, filter *detour.DtQueryFilter) ([]detour.DtPolyRef, bool) {
	startRef, _, ok := n.nearestPoly(start[:], polyPickExt[:], filter)
	if !ok {
		return nil, false
	}
	endRef, _, ok := n.nearestPoly(end[:], polyPickExt[:], filter)
	if !ok {
		return nil, false
	}
	polys, status := n.m_navQuery.FindPath(startRef, endRef, start[:], end[:], filter, MAX_POLYS)
	if status.Failed() || len(polys) == 0 {
		return nil, false
	}
	return polys, true
}

// FindPath returns a path that follows the detail mesh surface from start to end.
func (n *navigationBase) FindPath(start, end common.Vec3, filterType int) (SmoothPath, bool) {
	if !n.m_isLoaded {
		return SmoothPath{}, false
	}
	filter := n.filter(filterType)
	if filter == nil {
		return SmoothPath{}, false
	}
	polys, ok := n.findCorridor(start, end, filter)
	if !ok {
		return SmoothPath{}, false
	}
	path := smoothPath(n.m_navQuery, filter, start[:], end[:], polys)
	return path, path.Len() > 0
}

// FindStraightPath returns the corners of the funnel path from start to end.
func (n *navigationBase) FindStraightPath(start, end common.Vec3) ([]common.Vec3, bool) {
	if !n.m_isLoaded {
		return nil, false
	}
	filter := n.m_filters[0]
	polys, ok := n.findCorridor(start, end, filter)
	if !ok {
		return nil, false
	}
	// In case of partial path, make sure the end point is clamped to the last polygon.
	epos := end
	if closest, _, status := n.m_navQuery.ClosestPointOnPoly(polys[len(polys)-1], end[:]); status.Succeed() {
		epos = closest
	}
	verts, _, _, status := n.m_navQuery.FindStraightPath(start[:], epos[:], polys, MAX_POLYS, 0)
	if status.Failed() || len(verts) == 0 {
		return nil, false
	}
	pts := make([]common.Vec3, len(verts)/3)
	for i := range pts {
		pts[i] = common.V3(verts[i*3:])
	}
	return pts, true
}

// FindNearestPoly snaps pos onto the navmesh within the half extents.
func (n *navigationBase) FindNearestPoly(pos, extent common.Vec3) (common.Vec3, bool) {
	if !n.m_isLoaded {
		return pos, false
	}
	_, pt, ok := n.nearestPoly(pos[:], extent[:], n.m_filters[0])
	if !ok {
		return pos, false
	}
	return pt, true
}

// FindNearestPolyBetween walks from end toward start in steps of step,
// searching with the vertical extent grown by deltaY, and returns the first
// navmesh point found.
func (n *navigationBase) FindNearestPolyBetween(start, end common.Vec3, deltaY, step float32) (common.Vec3, bool) {
	if !n.m_isLoaded {
		return end, false
	}
	ext := polyPickExt
	ext[1] += common.Abs(deltaY)
	dir := start.Sub(end)
	dist := dir.Len()
	if dist > 0 {
		dir = dir.Mul(1 / dist)
	}
	if step <= 0 {
		step = dist
	}
	for t := float32(0); ; t += step {
		if t > dist {
			t = dist
		}
		p := end.Add(dir.Mul(t))
		if _, pt, ok := n.nearestPoly(p[:], ext[:], n.m_filters[0]); ok {
			return pt, true
		}
		if t >= dist {
			break
		}
	}
	return end, false
}

// RayCast casts along the navmesh surface from start. When no wall is met the
// end height is resolved by a vertical probe at the end position.
// A start off the navmesh reports no hit with endPos == start and zero distance.
func (n *navigationBase) RayCast(start, dir common.Vec3, distance float32, filterType int) (bool, common.Vec3, float32) {
	if !n.m_isLoaded {
		return false, start, 0
	}
	filter := n.filter(filterType)
	if filter == nil {
		return false, start, 0
	}
	startRef, spos, ok := n.nearestPoly(start[:], polyPickExt[:], filter)
	if !ok {
		return false, start, 0
	}
	if l := dir.Len(); l > 0 {
		dir = dir.Mul(1 / l)
	}
	epos := mgl32.Vec3(spos).Add(dir.Mul(distance))
	hit, status := n.m_navQuery.Raycast(startRef, spos[:], epos[:], filter, 0, MAX_POLYS, 0)
	if status.Failed() {
		return false, start, 0
	}
	if hit.T == math.MaxFloat32 {
		// No wall in the way; find the ground under the end point.
		if y, ok := n.rayDetectPoly(epos); ok {
			epos[1] = y
		}
		return false, epos, distance
	}
	endPos := mgl32.Vec3(spos).Add(epos.Sub(spos).Mul(hit.T))
	if len(hit.Path) > 0 {
		if h, status := n.m_navQuery.GetPolyHeight(hit.Path[len(hit.Path)-1], endPos[:]); status.Succeed() {
			endPos[1] = h
		}
	}
	return true, endPos, distance * hit.T
}

// rayDetectPoly probes straight down through pos for the detail surface.
func (n *navigationBase) rayDetectPoly(pos common.Vec3) (float32, bool) {
	h := polyPickExt[1]
	origin := pos.Add(common.Vec3{0, h, 0})
	hit, ok := n.RayDetect(origin, common.Vec3{0, -1, 0}, 2*h)
	if !ok {
		return 0, false
	}
	return hit[1], true
}

// RayDetect intersects the segment start + dir*length with the detail mesh
// surface and returns the closest hit. Long rays are tested in chunks of
// RAY_CHUNK_LENGTH so that each polygon query stays within MAX_RAY_POLYS.
func (n *navigationBase) RayDetect(start, dir common.Vec3, length float32) (common.Vec3, bool) {
	if !n.m_isLoaded || length <= 0 {
		return start, false
	}
	l := dir.Len()
	if l == 0 {
		return start, false
	}
	dir = dir.Mul(1 / l)

	for t0 := float32(0); t0 < length; t0 += RAY_CHUNK_LENGTH {
		t1 := min(t0+RAY_CHUNK_LENGTH, length)
		p0 := start.Add(dir.Mul(t0))
		p1 := start.Add(dir.Mul(t1))
		if hit, ok := n.rayDetectSegment(p0, p1); ok {
			return hit, true
		}
	}
	return start, false
}

func (n *navigationBase) rayDetectSegment(p0, p1 common.Vec3) (common.Vec3, bool) {
	const pad = 0.1
	center := p0.Add(p1).Mul(0.5)
	d := p1.Sub(p0)
	ext := common.Vec3{common.Abs(d[0])*0.5 + pad, common.Abs(d[1])*0.5 + pad, common.Abs(d[2])*0.5 + pad}
	polys, status := n.m_navQuery.QueryPolygons(center[:], ext[:], n.m_filters[0], MAX_RAY_POLYS)
	if status.Failed() {
		return p0, false
	}
	if status.Detail(detour.DT_BUFFER_TOO_SMALL) {
		logger.LogWarn("ray detect: polygon buffer full at %v", center)
	}

	best := float32(math.MaxFloat32)
	for _, ref := range polys {
		tile, poly, status := n.m_navMesh.GetTileAndPolyByRef(ref)
		if status.Failed() || poly.GetType() == detour.DT_POLYTYPE_OFFMESH_CONNECTION {
			continue
		}
		ip := n.m_navMesh.DecodePolyIdPoly(ref)
		pd := &tile.DetailMeshes[ip]
		for j := 0; j < int(pd.TriCount); j++ {
			t := tile.DetailTris[(int(pd.TriBase)+j)*4:]
			var v [3]common.Vec3
			for k := 0; k < 3; k++ {
				if int(t[k]) < int(poly.VertCount) {
					v[k] = common.V3(tile.Verts[int(poly.Verts[t[k]])*3:])
				} else {
					v[k] = common.V3(tile.DetailVerts[(int(pd.VertBase)+int(t[k])-int(poly.VertCount))*3:])
				}
			}
			if s, ok := intersectSegmentTriangle(p0, p1, v[0], v[1], v[2]); ok && s < best {
				best = s
			}
		}
	}
	if best == math.MaxFloat32 {
		return p0, false
	}
	return p0.Add(p1.Sub(p0).Mul(best)), true
}

// intersectSegmentTriangle returns the parameter along p->q where the segment
// crosses triangle abc, from either side.
func intersectSegmentTriangle(p, q, a, b, c common.Vec3) (float32, bool) {
	const eps = 1e-6
	d := q.Sub(p)
	e1 := b.Sub(a)
	e2 := c.Sub(a)
	h := d.Cross(e2)
	det := e1.Dot(h)
	if common.Abs(det) < eps {
		return 0, false
	}
	inv := 1 / det
	s := p.Sub(a)
	u := s.Dot(h) * inv
	if u < 0 || u > 1 {
		return 0, false
	}
	qv := s.Cross(e1)
	v := d.Dot(qv) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}
	t := e2.Dot(qv) * inv
	if t < 0 || t > 1 {
		return 0, false
	}
	return t, true
}

// SetIncludeFlag sets the include flags of the query filter and of the crowd
// filter of the same type.
func (n *navigationBase) SetIncludeFlag(filterType int, flags uint16) {
	if f := n.filter(filterType); f != nil {
		f.SetIncludeFlags(flags)
	}
	n.SetCrowdIncludeFlag(filterType, flags)
}

func (n *navigationBase) SetExcludeFlag(filterType int, flags uint16) {
	if f := n.filter(filterType); f != nil {
		f.SetExcludeFlags(flags)
	}
	n.SetCrowdExcludeFlag(filterType, flags)
}

func (n *navigationBase) SetAreaCost(filterType int, area uint8, cost float32) {
	if int(area) >= detour.DT_MAX_AREAS {
		return
	}
	if f := n.filter(filterType); f != nil {
		f.SetAreaCost(int(area), cost)
	}
	n.SetCrowdAreaCost(filterType, area, cost)
}

func (n *navigationBase) crowdFilter(filterType int) *detour.DtQueryFilter {
	if n.m_crowd == nil {
		return nil
	}
	return n.m_crowd.GetEditableFilter(filterType)
}

func (n *navigationBase) SetCrowdIncludeFlag(filterType int, flags uint16) {
	if f := n.crowdFilter(filterType); f != nil {
		f.SetIncludeFlags(flags)
	}
}

func (n *navigationBase) SetCrowdExcludeFlag(filterType int, flags uint16) {
	if f := n.crowdFilter(filterType); f != nil {
		f.SetExcludeFlags(flags)
	}
}

func (n *navigationBase) SetCrowdAreaCost(filterType int, area uint8, cost float32) {
	if int(area) >= detour.DT_MAX_AREAS {
		return
	}
	if f := n.crowdFilter(filterType); f != nil {
		f.SetAreaCost(int(area), cost)
	}
}
