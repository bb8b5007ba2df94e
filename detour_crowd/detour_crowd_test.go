package detour_crowd

import (
	"testing"

	"github.com/gorustyt/navcore/common"
	"github.com/gorustyt/navcore/detour"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testNvp   = 6
	nullIdx   = 0xffff
	agentRad  = 0.6
	agentTall = 2.0
)

func poly(verts []uint16, neis []uint16) []uint16 {
	p := make([]uint16, testNvp*2)
	for i := range p {
		p[i] = nullIdx
	}
	copy(p, verts)
	copy(p[testNvp:], neis)
	return p
}

// newCorridorMesh builds three 10x10 quads along +x: A(0..10) B(10..20) C(20..30).
func newCorridorMesh(t *testing.T) *detour.DtNavMesh {
	t.Helper()
	var polys []uint16
	polys = append(polys, poly([]uint16{0, 1, 2, 3}, []uint16{nullIdx, nullIdx, 1, nullIdx})...)
	polys = append(polys, poly([]uint16{3, 2, 4, 5}, []uint16{0, nullIdx, 2, nullIdx})...)
	polys = append(polys, poly([]uint16{5, 4, 6, 7}, []uint16{1, nullIdx, nullIdx, nullIdx})...)
	params := &detour.DtNavMeshCreateParams{
		Verts: []uint16{
			0, 0, 0,
			0, 0, 10,
			10, 0, 10,
			10, 0, 0,
			20, 0, 10,
			20, 0, 0,
			30, 0, 10,
			30, 0, 0,
		},
		VertCount:      8,
		Polys:          polys,
		PolyFlags:      []uint16{1, 1, 1},
		PolyAreas:      []uint8{0, 0, 0},
		PolyCount:      3,
		Nvp:            testNvp,
		Bmin:           [3]float32{0, 0, 0},
		Bmax:           [3]float32{30, 1, 10},
		WalkableHeight: 2,
		WalkableRadius: 0.5,
		WalkableClimb:  0.9,
		Cs:             1,
		Ch:             1,
		BuildBvTree:    true,
	}
	data, ok := detour.DtCreateNavMeshData(params)
	require.True(t, ok)
	nav := detour.NewDtNavMesh()
	require.True(t, nav.InitSingle(data).Succeed())
	return nav
}

func nearestRef(t *testing.T, q *detour.DtNavMeshQuery, pos []float32) detour.DtPolyRef {
	t.Helper()
	ref, _, _, status := q.FindNearestPoly(pos, []float32{2, 4, 2}, detour.NewDtQueryFilter())
	require.True(t, status.Succeed())
	require.NotZero(t, ref)
	return ref
}

func agentParams(flags uint8) *DtCrowdAgentParams {
	return &DtCrowdAgentParams{
		Radius:                agentRad,
		Height:                agentTall,
		MaxAcceleration:       8.0,
		MaxSpeed:              3.5,
		CollisionQueryRange:   agentRad * 12.0,
		PathOptimizationRange: agentRad * 30.0,
		SeparationWeight:      2,
		UpdateFlags:           flags,
	}
}

func TestProximityGrid(t *testing.T) {
	grid := NewDtProximityGrid(32, 1)
	grid.AddItem(1, 0, 0, 0.5, 0.5)
	grid.AddItem(2, 5, 5, 5.5, 5.5)
	grid.AddItem(3, 0.2, 0.2, 1.5, 1.5)

	ids := grid.QueryItems(-1, -1, 1, 1, 8)
	assert.ElementsMatch(t, []uint16{1, 3}, ids)
	assert.Equal(t, []uint16{2}, grid.QueryItems(4.8, 4.8, 5.2, 5.2, 8))
	assert.Len(t, grid.QueryItems(-1, -1, 6, 6, 2), 2)
	assert.Equal(t, 2, grid.GetItemCountAt(0, 0))
	assert.Equal(t, [4]int{0, 0, 5, 5}, grid.GetBounds())

	grid.Clear()
	assert.Empty(t, grid.QueryItems(-1, -1, 6, 6, 8))
}

func TestMergeCorridor(t *testing.T) {
	path := []detour.DtPolyRef{1, 2, 3, 4}

	assert.Equal(t, []detour.DtPolyRef{2, 3, 4}, DtMergeCorridorStartMoved(path, 16, []detour.DtPolyRef{1, 2}))
	assert.Equal(t, []detour.DtPolyRef{1, 7, 3, 4}, DtMergeCorridorStartShortcut(path, 16, []detour.DtPolyRef{1, 7, 3}))
	assert.Equal(t, []detour.DtPolyRef{1, 2, 3, 4, 5, 6}, DtMergeCorridorEndMoved(path, 16, []detour.DtPolyRef{4, 5, 6}))
	assert.Equal(t, []detour.DtPolyRef{1, 2, 3, 4, 5}, DtMergeCorridorEndMoved(path, 5, []detour.DtPolyRef{4, 5, 6}))

	// Nothing in common leaves the path untouched.
	assert.Equal(t, path, DtMergeCorridorStartMoved(path, 16, []detour.DtPolyRef{9}))
	assert.Equal(t, path, DtMergeCorridorEndMoved(path, 16, []detour.DtPolyRef{9}))
}

func TestObstacleAvoidanceFreeSpace(t *testing.T) {
	q := NewDtObstacleAvoidanceQuery(6, 8)
	params := DefaultObstacleAvoidanceParams()
	debug := NewDtObstacleAvoidanceDebugData(512)

	pos := []float32{0, 0, 0}
	dvel := []float32{1, 0, 0}
	vel := []float32{1, 0, 0}
	nvel := make([]float32, 3)

	ns := q.SampleVelocityAdaptive(pos, agentRad, 1, vel, dvel, nvel, &params, debug)
	assert.Positive(t, ns)
	assert.Equal(t, ns, debug.GetSampleCount())
	assert.InDelta(t, 1.0, nvel[0], 0.25)
	assert.InDelta(t, 0.0, nvel[2], 0.25)

	debug.NormalizeSamples()
	for i := 0; i < debug.GetSampleCount(); i++ {
		assert.GreaterOrEqual(t, debug.GetSamplePenalty(i), float32(0))
		assert.LessOrEqual(t, debug.GetSamplePenalty(i), float32(1))
	}
}

func TestObstacleAvoidanceSteersAroundCircle(t *testing.T) {
	q := NewDtObstacleAvoidanceQuery(6, 8)
	params := DefaultObstacleAvoidanceParams()

	q.AddCircle([]float32{1.5, 0, 0}, agentRad, []float32{0, 0, 0}, []float32{0, 0, 0})
	q.AddSegment([]float32{-5, 0, 3}, []float32{5, 0, 3})
	assert.Equal(t, 1, q.GetObstacleCircleCount())
	assert.Equal(t, 1, q.GetObstacleSegmentCount())

	nvel := make([]float32, 3)
	ns := q.SampleVelocityGrid([]float32{0, 0, 0}, agentRad, 2, []float32{2, 0, 0}, []float32{2, 0, 0}, nvel, &params, nil)
	assert.Positive(t, ns)
	// Heading straight into the obstacle is never the best sample.
	assert.False(t, nvel[0] > 1.5 && common.Abs(nvel[2]) < 0.1)

	q.Reset()
	assert.Zero(t, q.GetObstacleCircleCount())
	assert.Zero(t, q.GetObstacleSegmentCount())
}

func TestLocalBoundary(t *testing.T) {
	nav := newCorridorMesh(t)
	q, status := detour.NewDtNavMeshQuery(nav, 256)
	require.True(t, status.Succeed())
	filter := detour.NewDtQueryFilter()

	b := NewDtLocalBoundary()
	assert.False(t, b.IsValid(q, filter))

	pos := []float32{5, 0, 5}
	b.Update(nearestRef(t, q, pos), pos, 6, q, filter)
	assert.Equal(t, pos, b.GetCenter())
	assert.True(t, b.IsValid(q, filter))
	require.Positive(t, b.GetSegmentCount())
	assert.LessOrEqual(t, b.GetSegmentCount(), MAX_LOCAL_SEGS)
	for i := 0; i < b.GetSegmentCount(); i++ {
		s := b.GetSegment(i)
		d, _ := common.DistancePtSegSqr2D(pos, s[:], s[3:])
		assert.LessOrEqual(t, d, float32(36))
	}

	b.Reset()
	assert.Zero(t, b.GetSegmentCount())
}

func TestPathQueue(t *testing.T) {
	nav := newCorridorMesh(t)
	pq, ok := NewDtPathQueue(64, 512, nav)
	require.True(t, ok)
	q := pq.GetNavQuery()

	start := []float32{2, 0, 5}
	end := []float32{28, 0, 5}
	ref := pq.Request(nearestRef(t, q, start), nearestRef(t, q, end), start, end, detour.NewDtQueryFilter())
	require.NotEqual(t, DT_PATHQ_INVALID, ref)
	assert.False(t, pq.GetRequestStatus(ref).Succeed())

	for i := 0; i < 4 && !pq.GetRequestStatus(ref).Succeed(); i++ {
		pq.Update(MAX_ITERS_PER_UPDATE)
	}
	require.True(t, pq.GetRequestStatus(ref).Succeed())

	path, status := pq.GetPathResult(ref, 64)
	require.True(t, status.Succeed())
	assert.Len(t, path, 3)

	// Results are handed out once.
	_, status = pq.GetPathResult(ref, 64)
	assert.True(t, status.Failed())
}

func TestPathCorridor(t *testing.T) {
	nav := newCorridorMesh(t)
	q, status := detour.NewDtNavMeshQuery(nav, 256)
	require.True(t, status.Succeed())
	filter := detour.NewDtQueryFilter()

	start := []float32{2, 0, 5}
	end := []float32{28, 0, 5}
	startRef := nearestRef(t, q, start)
	endRef := nearestRef(t, q, end)
	path, status := q.FindPath(startRef, endRef, start, end, filter, 64)
	require.True(t, status.Succeed())

	c := NewDtPathCorridor(64)
	c.Reset(startRef, start)
	assert.Equal(t, 1, c.GetPathCount())
	c.SetCorridor(end, path)
	assert.Equal(t, startRef, c.GetFirstPoly())
	assert.Equal(t, endRef, c.GetLastPoly())
	assert.True(t, c.IsValid(CHECK_LOOKAHEAD, q, filter))

	verts, flags, polys := c.FindCorners(DT_CROWDAGENT_MAX_CORNERS, q)
	require.NotEmpty(t, flags)
	assert.Len(t, verts, len(flags)*3)
	assert.Len(t, polys, len(flags))
	last := len(flags) - 1
	assert.NotZero(t, flags[last]&detour.DT_STRAIGHTPATH_END)
	assert.InDelta(t, 28, verts[last*3], 1e-3)

	// Walking into the second polygon drops the first one.
	require.True(t, c.MovePosition([]float32{12, 0, 5}, q, filter))
	assert.Equal(t, 2, c.GetPathCount())
	assert.InDelta(t, 12, c.GetPos()[0], 1e-3)

	// A target moved back along the corridor stays constrained to the mesh.
	require.True(t, c.MoveTargetPosition([]float32{26, 0, 4}, q, filter))
	assert.InDelta(t, 26, c.GetTarget()[0], 1e-3)
}

func TestCrowdAddRemove(t *testing.T) {
	nav := newCorridorMesh(t)
	crowd, ok := NewDtCrowd(2, agentRad, nav)
	require.True(t, ok)
	assert.Equal(t, 2, crowd.GetAgentCount())

	a := crowd.AddAgent([]float32{2, 0, 5}, agentParams(0))
	b := crowd.AddAgent([]float32{5, 0, 5}, agentParams(0))
	assert.Equal(t, 0, a)
	assert.Equal(t, 1, b)
	assert.Equal(t, -1, crowd.AddAgent([]float32{8, 0, 5}, agentParams(0)))
	assert.Len(t, crowd.GetActiveAgents(), 2)

	crowd.RemoveAgent(a)
	assert.Len(t, crowd.GetActiveAgents(), 1)
	assert.Equal(t, a, crowd.AddAgent([]float32{8, 0, 5}, agentParams(0)))

	ag := crowd.GetAgent(b)
	require.NotNil(t, ag)
	assert.Equal(t, uint8(DT_CROWDAGENT_STATE_WALKING), ag.State)
	assert.Nil(t, crowd.GetAgent(5))

	// Out of range indices are clamped.
	p := agentParams(0)
	p.ObstacleAvoidanceType = 200
	p.QueryFilterType = 200
	crowd.UpdateAgentParameters(b, p)
	assert.Equal(t, uint8(DT_CROWD_MAX_OBSTAVOIDANCE_PARAMS-1), ag.Params.ObstacleAvoidanceType)
	assert.Equal(t, uint8(DT_CROWD_MAX_QUERY_FILTER_TYPE-1), ag.Params.QueryFilterType)
}

func TestCrowdAgentOffMeshIsInvalid(t *testing.T) {
	nav := newCorridorMesh(t)
	crowd, ok := NewDtCrowd(4, agentRad, nav)
	require.True(t, ok)

	idx := crowd.AddAgent([]float32{100, 0, 100}, agentParams(0))
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, uint8(DT_CROWDAGENT_STATE_INVALID), crowd.GetAgent(idx).State)
}

func TestCrowdMovesAgentToTarget(t *testing.T) {
	nav := newCorridorMesh(t)
	crowd, ok := NewDtCrowd(4, agentRad, nav)
	require.True(t, ok)

	flags := uint8(DT_CROWD_ANTICIPATE_TURNS | DT_CROWD_OPTIMIZE_VIS | DT_CROWD_OPTIMIZE_TOPO | DT_CROWD_SEPARATION)
	idx := crowd.AddAgent([]float32{2, 0, 5}, agentParams(flags))
	require.GreaterOrEqual(t, idx, 0)

	target := []float32{28, 0, 5}
	targetRef, _, _, status := crowd.GetNavMeshQuery().FindNearestPoly(target, crowd.GetQueryHalfExtents(), crowd.GetFilter(0))
	require.True(t, status.Succeed())
	require.True(t, crowd.RequestMoveTarget(idx, targetRef, target))
	assert.False(t, crowd.RequestMoveTarget(idx, 0, target))

	ag := crowd.GetAgent(idx)
	debug := &DtCrowdAgentDebugInfo{Idx: idx}
	crowd.Update(0.1, debug)
	assert.Equal(t, uint8(DT_CROWDAGENT_TARGET_VALID), ag.TargetState)
	assert.Equal(t, 3, ag.Corridor.GetPathCount())
	assert.InDelta(t, 2, debug.OptStart[0], 1e-3)

	for i := 0; i < 300; i++ {
		crowd.Update(0.1, nil)
	}
	assert.Less(t, common.Vdist2D(ag.Npos[:], target), float32(0.5))
	assert.False(t, ag.Partial)
	assert.Equal(t, uint8(DT_CROWDAGENT_STATE_WALKING), ag.State)
}

func TestCrowdAvoidanceMakesProgress(t *testing.T) {
	nav := newCorridorMesh(t)
	crowd, ok := NewDtCrowd(4, agentRad, nav)
	require.True(t, ok)

	idx := crowd.AddAgent([]float32{2, 0, 5}, agentParams(DT_CROWD_OBSTACLE_AVOIDANCE|DT_CROWD_ANTICIPATE_TURNS))
	require.GreaterOrEqual(t, idx, 0)
	target := []float32{28, 0, 5}
	targetRef, _, _, _ := crowd.GetNavMeshQuery().FindNearestPoly(target, crowd.GetQueryHalfExtents(), crowd.GetFilter(0))
	require.True(t, crowd.RequestMoveTarget(idx, targetRef, target))

	for i := 0; i < 30; i++ {
		crowd.Update(0.1, nil)
	}
	ag := crowd.GetAgent(idx)
	assert.Greater(t, ag.Npos[0], float32(5))
	assert.Positive(t, crowd.GetVelocitySampleCount())
}

func TestCrowdVelocityRequest(t *testing.T) {
	nav := newCorridorMesh(t)
	crowd, ok := NewDtCrowd(4, agentRad, nav)
	require.True(t, ok)

	idx := crowd.AddAgent([]float32{5, 0, 5}, agentParams(0))
	require.True(t, crowd.RequestMoveVelocity(idx, []float32{2, 0, 0}))
	for i := 0; i < 10; i++ {
		crowd.UpdateAgents(0.1, []int{idx}, nil)
	}
	ag := crowd.GetAgent(idx)
	assert.Greater(t, ag.Npos[0], float32(6))
	assert.Equal(t, 1, ag.Corridor.GetPathCount())

	require.True(t, crowd.ResetMoveTarget(idx))
	assert.Equal(t, uint8(DT_CROWDAGENT_TARGET_NONE), ag.TargetState)
	assert.Equal(t, [3]float32{}, ag.Dvel)
}

func TestCrowdResolvesOverlap(t *testing.T) {
	nav := newCorridorMesh(t)
	crowd, ok := NewDtCrowd(4, agentRad, nav)
	require.True(t, ok)

	a := crowd.AddAgent([]float32{5, 0, 5}, agentParams(0))
	b := crowd.AddAgent([]float32{5.5, 0, 5}, agentParams(0))
	for i := 0; i < 10; i++ {
		crowd.Update(0.1, nil)
	}
	d := common.Vdist2D(crowd.GetAgent(a).Npos[:], crowd.GetAgent(b).Npos[:])
	assert.Greater(t, d, float32(2*agentRad-0.1))
	require.NotEmpty(t, crowd.GetAgent(a).Neis)
	assert.Equal(t, b, crowd.GetAgent(a).Neis[0].Idx)
}

func TestCrowdSettings(t *testing.T) {
	nav := newCorridorMesh(t)
	crowd, ok := NewDtCrowd(4, agentRad, nav)
	require.True(t, ok)

	params := DefaultObstacleAvoidanceParams()
	params.AdaptiveDivs = 5
	crowd.SetObstacleAvoidanceParams(3, &params)
	assert.Equal(t, 5, crowd.GetObstacleAvoidanceParams(3).AdaptiveDivs)
	assert.Nil(t, crowd.GetObstacleAvoidanceParams(DT_CROWD_MAX_OBSTAVOIDANCE_PARAMS))

	crowd.GetEditableFilter(2).SetAreaCost(1, 10)
	assert.Equal(t, float32(10), crowd.GetFilter(2).GetAreaCost(1))
	assert.Equal(t, float32(1), crowd.GetFilter(0).GetAreaCost(1))
	assert.Nil(t, crowd.GetFilter(DT_CROWD_MAX_QUERY_FILTER_TYPE))

	assert.InDeltaSlice(t, []float32{1.2, 0.9, 1.2}, crowd.GetQueryHalfExtents(), 1e-5)

	_, ok = NewDtCrowd(0, agentRad, nav)
	assert.False(t, ok)
}
