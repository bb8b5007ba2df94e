package navigation

import (
	"testing"

	"github.com/gorustyt/navcore/common"
	"github.com/gorustyt/navcore/detour"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testNvp  = 6
	nullNeis = 0xffff
)

func gridPoly(verts, neis []uint16) []uint16 {
	p := make([]uint16, 2*testNvp)
	for i := range p {
		p[i] = nullNeis
	}
	copy(p, verts)
	copy(p[testNvp:], neis)
	return p
}

// quadGridNavMesh is a 2x2 grid of 10x10 quads:
//
//	+---+---+
//	| C | D |
//	+---+---+
//	| A | B |
//	+---+---+
func quadGridNavMesh(t *testing.T) (*detour.DtNavMesh, [4]detour.DtPolyRef) {
	t.Helper()
	idx := func(x, z uint16) uint16 { return x*3 + z }
	var verts []uint16
	for x := uint16(0); x <= 2; x++ {
		for z := uint16(0); z <= 2; z++ {
			verts = append(verts, x*10, 0, z*10)
		}
	}
	const a, b, c, d = 0, 1, 2, 3
	var polys []uint16
	polys = append(polys, gridPoly([]uint16{idx(0, 0), idx(0, 1), idx(1, 1), idx(1, 0)}, []uint16{nullNeis, c, b, nullNeis})...)
	polys = append(polys, gridPoly([]uint16{idx(1, 0), idx(1, 1), idx(2, 1), idx(2, 0)}, []uint16{a, d, nullNeis, nullNeis})...)
	polys = append(polys, gridPoly([]uint16{idx(0, 1), idx(0, 2), idx(1, 2), idx(1, 1)}, []uint16{nullNeis, nullNeis, d, a})...)
	polys = append(polys, gridPoly([]uint16{idx(1, 1), idx(1, 2), idx(2, 2), idx(2, 1)}, []uint16{c, nullNeis, nullNeis, b})...)

	data, ok := detour.DtCreateNavMeshData(&detour.DtNavMeshCreateParams{
		Verts:          verts,
		VertCount:      9,
		Polys:          polys,
		PolyFlags:      []uint16{POLYFLAGS_WALK, POLYFLAGS_WALK, POLYFLAGS_WALK, POLYFLAGS_WALK},
		PolyAreas:      []uint8{POLYAREA_GROUND, POLYAREA_GROUND, POLYAREA_GROUND, POLYAREA_GROUND},
		PolyCount:      4,
		Nvp:            testNvp,
		Bmin:           [3]float32{0, 0, 0},
		Bmax:           [3]float32{20, 1, 20},
		WalkableHeight: 2,
		WalkableRadius: 0.5,
		WalkableClimb:  0.9,
		Cs:             1,
		Ch:             1,
		BuildBvTree:    true,
	})
	require.True(t, ok)
	nav := detour.NewDtNavMesh()
	require.True(t, nav.InitSingle(data).Succeed())

	base := nav.GetPolyRefBase(nav.GetTile(0))
	return nav, [4]detour.DtPolyRef{base | a, base | b, base | c, base | d}
}

func TestFixupShortcutsCutsUTurn(t *testing.T) {
	nav, refs := quadGridNavMesh(t)
	a, b, c, d := refs[0], refs[1], refs[2], refs[3]

	got := fixupShortcuts([]detour.DtPolyRef{a, c, d, b}, nav)
	assert.Equal(t, []detour.DtPolyRef{a, b}, got)

	// Straight corridors are left alone.
	got = fixupShortcuts([]detour.DtPolyRef{a, b, d}, nav)
	assert.Equal(t, []detour.DtPolyRef{a, b, d}, got)

	got = fixupShortcuts([]detour.DtPolyRef{a, c}, nav)
	assert.Equal(t, []detour.DtPolyRef{a, c}, got)
}

func TestSmoothPathOnQuadGrid(t *testing.T) {
	nav, refs := quadGridNavMesh(t)
	query, status := detour.NewDtNavMeshQuery(nav, MAX_QUERY_NODES)
	require.True(t, status.Succeed())
	filter := detour.NewDtQueryFilter()

	start := [3]float32{2, 0, 2}
	end := [3]float32{18, 0, 18}
	polys, status := query.FindPath(refs[0], refs[3], start[:], end[:], filter, MAX_POLYS)
	require.True(t, status.Succeed())

	path := smoothPath(query, filter, start[:], end[:], polys)
	require.Greater(t, path.Len(), 2)
	require.Len(t, path.Segments, 1)
	pts := path.Points()
	assert.InDelta(t, 0, horizDist(common.Vec3(start), pts[0]), 0.001)
	assert.InDelta(t, 0, horizDist(common.Vec3(end), pts[len(pts)-1]), 0.001)
	for i := 1; i < len(pts); i++ {
		assert.LessOrEqual(t, horizDist(pts[i-1], pts[i]), float32(STEP_SIZE+SLOP))
	}
}

func TestSmoothPathPoints(t *testing.T) {
	var p SmoothPath
	p.add(PathWalk, common.Vec3{0, 0, 0})
	p.add(PathWalk, common.Vec3{1, 0, 0})
	p.addLink(common.Vec3{1, 0, 0}, common.Vec3{3, 0, 0})
	p.add(PathWalk, common.Vec3{3, 0, 0})
	p.add(PathWalk, common.Vec3{4, 0, 0})

	assert.Equal(t, 6, p.Len())
	require.Len(t, p.Segments, 3)
	assert.Equal(t, PathLink, p.Segments[1].Kind)
	assert.Equal(t, "link", p.Segments[1].Kind.String())
	assert.Equal(t, []common.Vec3{{0, 0, 0}, {1, 0, 0}, {3, 0, 0}, {4, 0, 0}}, p.Points())
}

func TestSmoothPathCapacity(t *testing.T) {
	var p SmoothPath
	for i := 0; i < MAX_SMOOTH; i++ {
		require.True(t, p.add(PathWalk, common.Vec3{float32(i), 0, 0}))
	}
	assert.False(t, p.add(PathWalk, common.Vec3{}))
	assert.False(t, p.addLink(common.Vec3{}, common.Vec3{}))
	assert.Equal(t, MAX_SMOOTH, p.Len())
}
