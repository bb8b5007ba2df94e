package detour

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testNvp = 6

// poly packs a polygon row: vertex indices then neighbour words, padded to nvp.
func poly(verts []uint16, neis []uint16) []uint16 {
	p := make([]uint16, testNvp*2)
	for i := range p {
		p[i] = meshNullIdx
	}
	copy(p, verts)
	copy(p[testNvp:], neis)
	return p
}

// corridorParams describes three 10x10 quads along +x: A(0..10) B(10..20) C(20..30).
func corridorParams() *DtNavMeshCreateParams {
	verts := []uint16{
		0, 0, 0,
		0, 0, 10,
		10, 0, 10,
		10, 0, 0,
		20, 0, 10,
		20, 0, 0,
		30, 0, 10,
		30, 0, 0,
	}
	var polys []uint16
	polys = append(polys, poly([]uint16{0, 1, 2, 3}, []uint16{meshNullIdx, meshNullIdx, 1, meshNullIdx})...)
	polys = append(polys, poly([]uint16{3, 2, 4, 5}, []uint16{0, meshNullIdx, 2, meshNullIdx})...)
	polys = append(polys, poly([]uint16{5, 4, 6, 7}, []uint16{1, meshNullIdx, meshNullIdx, meshNullIdx})...)
	return &DtNavMeshCreateParams{
		Verts:          verts,
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
}

// tileParams describes one 10x10 quad tile at grid (tx, 0) with portals on its x sides.
func tileParams(tx int, neis []uint16) *DtNavMeshCreateParams {
	x0 := float32(tx * 10)
	return &DtNavMeshCreateParams{
		Verts: []uint16{
			0, 0, 0,
			0, 0, 10,
			10, 0, 10,
			10, 0, 0,
		},
		VertCount:      4,
		Polys:          poly([]uint16{0, 1, 2, 3}, neis),
		PolyFlags:      []uint16{1},
		PolyAreas:      []uint8{0},
		PolyCount:      1,
		Nvp:            testNvp,
		TileX:          tx,
		Bmin:           [3]float32{x0, 0, 0},
		Bmax:           [3]float32{x0 + 10, 1, 10},
		WalkableHeight: 2,
		WalkableRadius: 0.5,
		WalkableClimb:  0.9,
		Cs:             1,
		Ch:             1,
	}
}

func newCorridor(t *testing.T) (*DtNavMesh, *DtNavMeshQuery) {
	t.Helper()
	data, ok := DtCreateNavMeshData(corridorParams())
	require.True(t, ok)
	nav := NewDtNavMesh()
	require.True(t, nav.InitSingle(data).Succeed())
	q, status := NewDtNavMeshQuery(nav, 256)
	require.True(t, status.Succeed())
	return nav, q
}

func nearest(t *testing.T, q *DtNavMeshQuery, pos []float32) DtPolyRef {
	t.Helper()
	ref, _, _, status := q.FindNearestPoly(pos, []float32{2, 4, 2}, NewDtQueryFilter())
	require.True(t, status.Succeed())
	require.NotZero(t, ref)
	return ref
}

func TestCreateNavMeshData(t *testing.T) {
	data, ok := DtCreateNavMeshData(corridorParams())
	require.True(t, ok)
	assert.Equal(t, int32(3), data.Header.PolyCount)
	assert.Equal(t, int32(8), data.Header.VertCount)
	assert.Equal(t, int32(6), data.Header.DetailTriCount)
	assert.NotEmpty(t, data.NavBvtree)

	// Internal neighbours are stored one-based.
	assert.Equal(t, uint16(2), data.NavPolys[0].Neis[2])
	assert.Equal(t, uint16(0), data.NavPolys[0].Neis[0])
}

func TestNavMeshDataEncodeRoundTrip(t *testing.T) {
	data, ok := DtCreateNavMeshData(corridorParams())
	require.True(t, ok)

	bin := data.ToBin()
	decoded := &NavMeshData{}
	require.NoError(t, decoded.FromBin(bin))
	assert.Equal(t, data.Header, decoded.Header)
	assert.Equal(t, data.NavVerts, decoded.NavVerts)
	assert.Equal(t, data.NavPolys, decoded.NavPolys)
	assert.Equal(t, data.NavDTris, decoded.NavDTris)
	assert.Equal(t, data.NavBvtree, decoded.NavBvtree)

	bin[0] ^= 0xff
	assert.ErrorIs(t, (&NavMeshData{}).FromBin(bin), ErrWrongMagic)
	assert.Error(t, (&NavMeshData{}).FromBin(bin[:10]))
}

func TestNavMeshParamsEncode(t *testing.T) {
	params := NavMeshParams{Orig: [3]float32{1, 2, 3}, TileWidth: 10, TileHeight: 12, MaxTiles: 64, MaxPolys: 128}
	var decoded NavMeshParams
	require.NoError(t, decoded.FromBin(params.ToBin()))
	assert.Equal(t, params, decoded)
}

func TestFindNearestPoly(t *testing.T) {
	_, q := newCorridor(t)
	ref, pt, over, status := q.FindNearestPoly([]float32{15, 0.5, 5}, []float32{2, 4, 2}, NewDtQueryFilter())
	require.True(t, status.Succeed())
	assert.NotZero(t, ref)
	assert.True(t, over)
	assert.InDelta(t, 15, pt[0], 1e-4)
	assert.InDelta(t, 0, pt[1], 1e-4)

	ref, _, _, status = q.FindNearestPoly([]float32{100, 0, 100}, []float32{2, 4, 2}, NewDtQueryFilter())
	assert.True(t, status.Succeed())
	assert.Zero(t, ref)

	_, _, _, status = q.FindNearestPoly([]float32{0, 0, 0}, []float32{-1, 1, 1}, NewDtQueryFilter())
	assert.True(t, status.Detail(DT_INVALID_PARAM))
}

func TestFindPathAndStraightPath(t *testing.T) {
	_, q := newCorridor(t)
	start := []float32{5, 0, 5}
	end := []float32{25, 0, 5}
	startRef := nearest(t, q, start)
	endRef := nearest(t, q, end)

	path, status := q.FindPath(startRef, endRef, start, end, NewDtQueryFilter(), 256)
	require.True(t, status.Succeed())
	assert.False(t, status.Detail(DT_PARTIAL_RESULT))
	require.Len(t, path, 3)
	assert.Equal(t, startRef, path[0])
	assert.Equal(t, endRef, path[2])
	assert.True(t, q.IsInClosedList(startRef))

	verts, flags, refs, status := q.FindStraightPath(start, end, path, 16, 0)
	require.True(t, status.Succeed())
	require.Len(t, flags, 2)
	assert.Len(t, refs, 2)
	assert.Equal(t, uint8(DT_STRAIGHTPATH_START), flags[0])
	assert.Equal(t, uint8(DT_STRAIGHTPATH_END), flags[1])
	assert.InDeltaSlice(t, []float32{5, 0, 5, 25, 0, 5}, verts, 1e-4)

	// Every edge crossing adds a vertex.
	_, flags, _, status = q.FindStraightPath(start, end, path, 16, DT_STRAIGHTPATH_ALL_CROSSINGS)
	require.True(t, status.Succeed())
	assert.Len(t, flags, 4)

	// Truncated output.
	_, flags, _, status = q.FindStraightPath(start, end, path, 1, 0)
	assert.True(t, status.Detail(DT_BUFFER_TOO_SMALL))
	assert.Len(t, flags, 1)

	path, status = q.FindPath(startRef, endRef, start, end, NewDtQueryFilter(), 2)
	assert.True(t, status.Detail(DT_BUFFER_TOO_SMALL))
	assert.Len(t, path, 2)
}

func TestFindPathExcludedPoly(t *testing.T) {
	nav, q := newCorridor(t)
	start := []float32{5, 0, 5}
	end := []float32{25, 0, 5}
	startRef := nearest(t, q, start)
	endRef := nearest(t, q, end)
	midRef := nearest(t, q, []float32{15, 0, 5})
	require.True(t, nav.SetPolyFlags(midRef, 0x10).Succeed())

	filter := NewDtQueryFilter()
	filter.SetExcludeFlags(0x10)
	path, status := q.FindPath(startRef, endRef, start, end, filter, 256)
	require.True(t, status.Succeed())
	assert.True(t, status.Detail(DT_PARTIAL_RESULT))
	assert.Equal(t, []DtPolyRef{startRef}, path)
	assert.False(t, q.IsValidPolyRef(midRef, filter))
}

func TestSlicedFindPath(t *testing.T) {
	_, q := newCorridor(t)
	start := []float32{5, 0, 5}
	end := []float32{25, 0, 5}
	startRef := nearest(t, q, start)
	endRef := nearest(t, q, end)

	status := q.InitSlicedFindPath(startRef, endRef, start, end, NewDtQueryFilter())
	require.True(t, status.InProgress())
	for status.InProgress() {
		_, status = q.UpdateSlicedFindPath(1)
	}
	require.True(t, status.Succeed())
	path, status := q.FinalizeSlicedFindPath(16)
	require.True(t, status.Succeed())
	assert.Len(t, path, 3)

	require.True(t, q.InitSlicedFindPath(startRef, endRef, start, end, NewDtQueryFilter()).InProgress())
	q.UpdateSlicedFindPath(1)
	path, status = q.FinalizeSlicedFindPathPartial([]DtPolyRef{startRef}, 16)
	require.True(t, status.Succeed())
	assert.Equal(t, []DtPolyRef{startRef}, path)
}

func TestRaycast(t *testing.T) {
	_, q := newCorridor(t)
	start := []float32{5, 0, 5}
	startRef := nearest(t, q, start)

	hit, status := q.Raycast(startRef, start, []float32{25, 0, 5}, NewDtQueryFilter(), 0, 16, 0)
	require.True(t, status.Succeed())
	assert.Equal(t, float32(math.MaxFloat32), hit.T)
	assert.Len(t, hit.Path, 3)

	hit, status = q.Raycast(startRef, start, []float32{35, 0, 5}, NewDtQueryFilter(), DT_RAYCAST_USE_COSTS, 16, 0)
	require.True(t, status.Succeed())
	assert.InDelta(t, 25.0/30.0, hit.T, 1e-4)
	assert.InDeltaSlice(t, []float32{-1, 0, 0}, hit.HitNormal[:], 1e-4)
	assert.Greater(t, hit.PathCost, float32(0))

	hit, status = q.Raycast(startRef, start, []float32{35, 0, 5}, NewDtQueryFilter(), 0, 1, 0)
	assert.True(t, status.Detail(DT_BUFFER_TOO_SMALL))
	assert.Len(t, hit.Path, 1)
}

func TestMoveAlongSurfaceAndHeight(t *testing.T) {
	_, q := newCorridor(t)
	start := []float32{5, 0, 5}
	startRef := nearest(t, q, start)

	pos, visited, status := q.MoveAlongSurface(startRef, start, []float32{15, 0, 5}, NewDtQueryFilter(), 16)
	require.True(t, status.Succeed())
	assert.InDeltaSlice(t, []float32{15, 0, 5}, pos[:], 1e-4)
	require.Len(t, visited, 2)
	assert.Equal(t, startRef, visited[0])

	// Moving off the mesh stops at the wall.
	pos, _, status = q.MoveAlongSurface(startRef, start, []float32{5, 0, -5}, NewDtQueryFilter(), 16)
	require.True(t, status.Succeed())
	assert.InDelta(t, 0, pos[2], 1e-4)

	h, status := q.GetPolyHeight(startRef, []float32{3, 7, 3})
	require.True(t, status.Succeed())
	assert.InDelta(t, 0, h, 1e-4)

	closest, status := q.ClosestPointOnPolyBoundary(startRef, []float32{-4, 0, 5})
	require.True(t, status.Succeed())
	assert.InDeltaSlice(t, []float32{0, 0, 5}, closest[:], 1e-4)
}

func TestNeighbourhoodQueries(t *testing.T) {
	_, q := newCorridor(t)
	center := []float32{5, 0, 5}
	startRef := nearest(t, q, center)

	refs, parents, costs, status := q.FindPolysAroundCircle(startRef, center, 7, NewDtQueryFilter(), 16)
	require.True(t, status.Succeed())
	assert.Len(t, refs, 2)
	assert.Len(t, parents, 2)
	assert.Zero(t, parents[0])
	assert.Equal(t, startRef, parents[1])
	assert.LessOrEqual(t, costs[0], costs[1])

	refs, _, status = q.FindLocalNeighbourhood(startRef, center, 7, NewDtQueryFilter(), 16)
	require.True(t, status.Succeed())
	assert.Len(t, refs, 2)

	polys, status := q.QueryPolygons([]float32{15, 0, 5}, []float32{6, 2, 2}, NewDtQueryFilter(), 16)
	require.True(t, status.Succeed())
	assert.Len(t, polys, 3)

	polys, status = q.QueryPolygons([]float32{15, 0, 5}, []float32{6, 2, 2}, NewDtQueryFilter(), 1)
	assert.True(t, status.Detail(DT_BUFFER_TOO_SMALL))
	assert.Len(t, polys, 1)
}

func TestPolyWallSegments(t *testing.T) {
	_, q := newCorridor(t)
	midRef := nearest(t, q, []float32{15, 0, 5})

	segs, refs, status := q.GetPolyWallSegments(midRef, NewDtQueryFilter(), 16, false)
	require.True(t, status.Succeed())
	assert.Len(t, refs, 2)
	assert.Len(t, segs, 12)

	_, refs, status = q.GetPolyWallSegments(midRef, NewDtQueryFilter(), 16, true)
	require.True(t, status.Succeed())
	assert.Len(t, refs, 4)
	portals := 0
	for _, r := range refs {
		if r != 0 {
			portals++
		}
	}
	assert.Equal(t, 2, portals)
}

func TestTiledMeshLinksAndStaleRefs(t *testing.T) {
	nav := NewDtNavMesh()
	require.True(t, nav.Init(&NavMeshParams{TileWidth: 10, TileHeight: 10, MaxTiles: 4, MaxPolys: 16}).Succeed())

	left, ok := DtCreateNavMeshData(tileParams(0, []uint16{meshNullIdx, meshNullIdx, 0x8002, meshNullIdx}))
	require.True(t, ok)
	right, ok := DtCreateNavMeshData(tileParams(1, []uint16{0x8000, meshNullIdx, meshNullIdx, meshNullIdx}))
	require.True(t, ok)

	_, status := nav.AddTile(left, 0)
	require.True(t, status.Succeed())
	rightTile, status := nav.AddTile(right, 0)
	require.True(t, status.Succeed())

	_, status = nav.AddTile(right, 0)
	assert.True(t, status.Detail(DT_ALREADY_OCCUPIED))

	q, status := NewDtNavMeshQuery(nav, 64)
	require.True(t, status.Succeed())
	start := []float32{5, 0, 5}
	end := []float32{15, 0, 5}
	startRef := nearest(t, q, start)
	endRef := nearest(t, q, end)
	path, status := q.FindPath(startRef, endRef, start, end, NewDtQueryFilter(), 16)
	require.True(t, status.Succeed())
	assert.Equal(t, []DtPolyRef{startRef, endRef}, path)

	// Removing a tile invalidates its refs; re-adding bumps the salt.
	data, status := nav.RemoveTile(rightTile)
	require.True(t, status.Succeed())
	assert.False(t, nav.IsValidPolyRef(endRef))
	_, status = q.FindPath(startRef, endRef, start, end, NewDtQueryFilter(), 16)
	assert.True(t, status.Detail(DT_INVALID_PARAM))

	_, status = nav.AddTile(data, 0)
	require.True(t, status.Succeed())
	newRef := nearest(t, q, end)
	assert.NotEqual(t, endRef, newRef)
	path, status = q.FindPath(startRef, newRef, start, end, NewDtQueryFilter(), 16)
	require.True(t, status.Succeed())
	assert.Len(t, path, 2)
}

func TestPolyFlagsAndArea(t *testing.T) {
	nav, q := newCorridor(t)
	ref := nearest(t, q, []float32{5, 0, 5})
	require.True(t, nav.SetPolyArea(ref, 3).Succeed())
	area, status := nav.GetPolyArea(ref)
	require.True(t, status.Succeed())
	assert.Equal(t, uint8(3), area)

	flags, status := nav.GetPolyFlags(ref)
	require.True(t, status.Succeed())
	assert.Equal(t, uint16(1), flags)

	_, status = nav.GetPolyFlags(0)
	assert.True(t, status.Failed())
}

func TestNodePoolAndQueue(t *testing.T) {
	pool := NewDtNodePool(4, 4)
	a := pool.GetNode(7, 0)
	require.NotNil(t, a)
	assert.Same(t, a, pool.GetNode(7, 0))
	b := pool.GetNode(7, 1)
	assert.NotSame(t, a, b)
	assert.Len(t, pool.FindNodes(7, DT_MAX_STATES_PER_NODE), 2)
	assert.Same(t, a, pool.GetNodeAtIdx(pool.GetNodeIdx(a)))
	assert.Nil(t, pool.GetNodeAtIdx(0))

	pool.GetNode(8, 0)
	pool.GetNode(9, 0)
	assert.Nil(t, pool.GetNode(10, 0))
	pool.Clear()
	assert.Nil(t, pool.FindNode(7, 0))

	queue := newNodeTotalQueue()
	nodes := []*DtNode{{Total: 3}, {Total: 1}, {Total: 2}}
	for _, n := range nodes {
		queue.Offer(n)
	}
	nodes[0].Total = 0
	queue.Update(nodes[0])
	assert.Same(t, nodes[0], queue.Poll())
	assert.Same(t, nodes[1], queue.Poll())
	assert.Same(t, nodes[2], queue.Poll())
	assert.True(t, queue.Empty())
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "success, partial result", (DT_SUCCESS | DT_PARTIAL_RESULT).String())
	assert.Equal(t, "failure, invalid param", (DT_FAILURE | DT_INVALID_PARAM).String())
}
