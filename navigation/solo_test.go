package navigation

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/gorustyt/navcore/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSoloFindPathFlat(t *testing.T) {
	nav := buildSolo(t, flatGeometry(20))
	assert.Equal(t, StateBuilt, nav.State())
	assert.NotNil(t, nav.GetNavMeshData())
	assert.GreaterOrEqual(t, int64(nav.GetBuildTime()), int64(0))

	start := common.Vec3{2, 0, 2}
	end := common.Vec3{18, 0, 18}
	path, ok := nav.FindPath(start, end, 0)
	require.True(t, ok)
	assert.NotEmpty(t, path.Polys)
	for _, seg := range path.Segments {
		assert.Equal(t, PathWalk, seg.Kind)
	}
	pts := path.Points()
	assert.InDelta(t, 0, horizDist(pts[0], start), 0.01)
	assert.InDelta(t, 0, horizDist(lastPoint(t, path), end), 0.01)
	for _, p := range pts {
		assert.InDelta(t, 0, p[1], 0.5)
	}

	straight, ok := nav.FindStraightPath(start, end)
	require.True(t, ok)
	require.GreaterOrEqual(t, len(straight), 2)
	assert.InDelta(t, 0, horizDist(straight[0], start), 0.01)
	assert.InDelta(t, 0, horizDist(straight[len(straight)-1], end), 0.01)
}

func TestSoloFindPathInvalidFilter(t *testing.T) {
	nav := buildSolo(t, flatGeometry(20))
	_, ok := nav.FindPath(common.Vec3{2, 0, 2}, common.Vec3{18, 0, 18}, -1)
	assert.False(t, ok)
	_, ok = nav.FindPath(common.Vec3{2, 0, 2}, common.Vec3{18, 0, 18}, MAX_QUERY_FILTER_TYPE)
	assert.False(t, ok)
}

func TestSoloExcludeFlag(t *testing.T) {
	nav := buildSolo(t, flatGeometry(20))
	nav.SetExcludeFlag(0, POLYFLAGS_WALK)
	_, ok := nav.FindPath(common.Vec3{2, 0, 2}, common.Vec3{18, 0, 18}, 0)
	assert.False(t, ok)

	_, ok = nav.FindPath(common.Vec3{2, 0, 2}, common.Vec3{18, 0, 18}, 1)
	assert.True(t, ok)

	nav.SetExcludeFlag(0, 0)
	_, ok = nav.FindPath(common.Vec3{2, 0, 2}, common.Vec3{18, 0, 18}, 0)
	assert.True(t, ok)
}

func TestSoloFindNearestPoly(t *testing.T) {
	nav := buildSolo(t, flatGeometry(20))
	p, ok := nav.FindNearestPoly(common.Vec3{5, 0.5, 5}, common.Vec3{2, 4, 2})
	require.True(t, ok)
	assert.InDelta(t, 0, horizDist(p, common.Vec3{5, 0, 5}), 0.001)
	assert.InDelta(t, 0, p[1], 0.5)

	far := common.Vec3{100, 0, 100}
	p, ok = nav.FindNearestPoly(far, common.Vec3{2, 4, 2})
	assert.False(t, ok)
	assert.Equal(t, far, p)
}

func TestSoloFindNearestPolyBetween(t *testing.T) {
	g := NewInputGeometryData()
	addQuadGrid(g, 0, 0, 10, 10, 0)
	addQuadGrid(g, 0, 0, 10, 10, 5)
	nav := buildSolo(t, g)

	p, ok := nav.FindNearestPolyBetween(common.Vec3{5, 5, 5}, common.Vec3{5, 20, 5}, 0, 0.5)
	require.True(t, ok)
	assert.InDelta(t, 5, p[1], 0.5)

	p, ok = nav.FindNearestPolyBetween(common.Vec3{5, 5, 5}, common.Vec3{5, 0, 5}, 0, 0.5)
	require.True(t, ok)
	assert.InDelta(t, 0, p[1], 0.5)

	end := common.Vec3{60, 50, 60}
	p, ok = nav.FindNearestPolyBetween(common.Vec3{50, 50, 50}, end, 0, 1)
	assert.False(t, ok)
	assert.Equal(t, end, p)
}

func TestSoloFindNearestPolyBetweenFloors(t *testing.T) {
	g := NewInputGeometryData()
	addQuadGrid(g, 0, 0, 10, 10, 0)
	addQuadGrid(g, 0, 0, 10, 10, 100)
	nav := buildSolo(t, g)

	// Both ends are below the lower floor, out of the default vertical reach.
	below := common.Vec3{5, -30, 5}
	p, ok := nav.FindNearestPolyBetween(common.Vec3{5, -20, 5}, below, 0, 1)
	assert.False(t, ok)
	assert.Equal(t, below, p)

	p, ok = nav.FindNearestPolyBetween(common.Vec3{5, -20, 5}, below, 40, 1)
	require.True(t, ok)
	assert.InDelta(t, 0, p[1], 0.5)

	// From y=70 the grown reach only covers the upper floor.
	p, ok = nav.FindNearestPolyBetween(common.Vec3{5, 60, 5}, common.Vec3{5, 70, 5}, 40, 1)
	require.True(t, ok)
	assert.InDelta(t, 100, p[1], 0.5)

	// The search starts at end, so the floor nearer to end wins.
	p, ok = nav.FindNearestPolyBetween(common.Vec3{5, 100, 5}, common.Vec3{5, 0, 5}, 0, 1)
	require.True(t, ok)
	assert.InDelta(t, 0, p[1], 0.5)

	p, ok = nav.FindNearestPolyBetween(common.Vec3{5, 0, 5}, common.Vec3{5, 50, 5}, 0, 1)
	require.True(t, ok)
	assert.InDelta(t, 0, p[1], 0.5)
}

func TestSoloRayCast(t *testing.T) {
	nav := buildSolo(t, flatGeometry(20))

	hit, end, dist := nav.RayCast(common.Vec3{10, 0, 10}, common.Vec3{1, 0, 0}, 5, 0)
	assert.False(t, hit)
	assert.InDelta(t, 15, end[0], 0.01)
	assert.InDelta(t, 10, end[2], 0.01)
	assert.InDelta(t, 0, end[1], 0.5)
	assert.Equal(t, float32(5), dist)

	hit, end, dist = nav.RayCast(common.Vec3{10, 0, 10}, common.Vec3{2, 0, 0}, 50, 0)
	assert.True(t, hit)
	assert.InDelta(t, 19.4, end[0], 0.4)
	assert.InDelta(t, 9.4, dist, 0.4)

	start := common.Vec3{100, 0, 100}
	hit, end, dist = nav.RayCast(start, common.Vec3{1, 0, 0}, 5, 0)
	assert.False(t, hit)
	assert.Equal(t, start, end)
	assert.Zero(t, dist)
}

func TestSoloRayDetect(t *testing.T) {
	nav := buildSolo(t, flatGeometry(20))

	p, ok := nav.RayDetect(common.Vec3{10, 10, 10}, common.Vec3{0, -1, 0}, 20)
	require.True(t, ok)
	assert.InDelta(t, 10, p[0], 0.001)
	assert.InDelta(t, 10, p[2], 0.001)
	assert.InDelta(t, 0, p[1], 0.5)

	// Long slanted ray, tested in several chunks.
	p, ok = nav.RayDetect(common.Vec3{-50, 60, 10}, common.Vec3{1, -1, 0}, 200)
	require.True(t, ok)
	assert.InDelta(t, 0, p[1], 0.5)

	_, ok = nav.RayDetect(common.Vec3{50, 10, 50}, common.Vec3{0, -1, 0}, 20)
	assert.False(t, ok)
	_, ok = nav.RayDetect(common.Vec3{10, 10, 10}, common.Vec3{}, 20)
	assert.False(t, ok)
}

func TestSoloOffMeshLink(t *testing.T) {
	g := NewInputGeometryData()
	addQuadGrid(g, 0, 0, 8, 8, 0)
	addQuadGrid(g, 12, 0, 20, 8, 0)
	require.NoError(t, g.AddOffMeshConnection(common.Vec3{7, 0, 4}, common.Vec3{13, 0, 4}, 0.6, true, POLYAREA_JUMP, POLYFLAGS_JUMP))
	nav := buildSolo(t, g)

	end := common.Vec3{18, 0, 4}
	path, ok := nav.FindPath(common.Vec3{2, 0, 4}, end, 0)
	require.True(t, ok)

	var links []PathSegment
	for _, seg := range path.Segments {
		if seg.Kind == PathLink {
			links = append(links, seg)
		}
	}
	require.Len(t, links, 1)
	require.Len(t, links[0].Points, 2)
	assert.InDelta(t, 7, links[0].Points[0][0], 0.7)
	assert.InDelta(t, 13, links[0].Points[1][0], 0.7)
	assert.Equal(t, PathWalk, path.Segments[len(path.Segments)-1].Kind)
	assert.InDelta(t, 0, horizDist(lastPoint(t, path), end), 0.01)

	// Without the jump flag the platforms are disconnected.
	nav.SetExcludeFlag(0, POLYFLAGS_JUMP)
	path, ok = nav.FindPath(common.Vec3{2, 0, 4}, end, 0)
	if ok {
		assert.Greater(t, horizDist(lastPoint(t, path), end), float32(3))
	}
}

func TestSoloBuildFailure(t *testing.T) {
	st := DefaultSettings()
	nav := NewNavigationSolo(st)
	assert.False(t, nav.Build(st.AgentRadius, st.AgentHeight, st.AgentMaxClimb))
	assert.False(t, nav.IsLoaded())
	assert.ErrorIs(t, nav.LastBuildError(), ErrNoGeometry)

	nav.SetGeometry(flatGeometry(20))
	require.True(t, nav.Build(st.AgentRadius, st.AgentHeight, st.AgentMaxClimb))
	assert.NoError(t, nav.LastBuildError())

	bad := flatGeometry(4)
	bad.AddVertex(float32(math.Inf(1)), 0, 0)
	nav.SetGeometry(bad)
	assert.False(t, nav.Build(st.AgentRadius, st.AgentHeight, st.AgentMaxClimb))
	assert.False(t, nav.IsLoaded())
	assert.Equal(t, StateEmpty, nav.State())
	assert.Error(t, nav.LastBuildError())
	_, ok := nav.FindPath(common.Vec3{1, 0, 1}, common.Vec3{2, 0, 2}, 0)
	assert.False(t, ok)
}

func TestSoloSaveLoad(t *testing.T) {
	nav := buildSolo(t, flatGeometry(20))
	file := filepath.Join(t.TempDir(), "solo.nav")
	require.NoError(t, nav.Save(file))

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte(NAVFILE_MAGIC)))

	loaded := NewNavigationSolo(DefaultSettings())
	require.NoError(t, loaded.Load(file))
	assert.True(t, loaded.IsLoaded())
	want, ok := nav.FindPath(common.Vec3{2, 0, 2}, common.Vec3{18, 0, 18}, 0)
	require.True(t, ok)
	got, ok := loaded.FindPath(common.Vec3{2, 0, 2}, common.Vec3{18, 0, 18}, 0)
	require.True(t, ok)
	assert.Equal(t, want.Polys, got.Polys)
	assert.Equal(t, want.Points(), got.Points())
}

func TestSoloSaveLoadLegacy(t *testing.T) {
	nav := buildSolo(t, flatGeometry(20))
	st := nav.GetSettings()
	st.LegacyFormat = true
	nav.SetSettings(st)

	file := filepath.Join(t.TempDir(), "solo.bin")
	require.NoError(t, nav.Save(file))
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.False(t, bytes.HasPrefix(data, []byte(NAVFILE_MAGIC)))

	loaded := NewNavigationSolo(DefaultSettings())
	require.NoError(t, loaded.Load(file))
	_, ok := loaded.FindPath(common.Vec3{2, 0, 2}, common.Vec3{18, 0, 18}, 0)
	assert.True(t, ok)
}

func TestSoloSaveWithoutMesh(t *testing.T) {
	file := filepath.Join(t.TempDir(), "stale.nav")
	require.NoError(t, os.WriteFile(file, []byte("old"), 0o644))

	nav := NewNavigationSolo(DefaultSettings())
	assert.ErrorIs(t, nav.Save(file), ErrNotLoaded)
	_, err := os.Stat(file)
	assert.True(t, os.IsNotExist(err))
}

func TestSoloLoadBadFileKeepsMesh(t *testing.T) {
	nav := buildSolo(t, flatGeometry(20))
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.nav")
	require.NoError(t, os.WriteFile(bad, []byte("definitely not a navmesh"), 0o644))
	assert.ErrorIs(t, nav.Load(bad), ErrBadFormat)
	assert.True(t, nav.IsLoaded())

	assert.Error(t, nav.Load(filepath.Join(dir, "missing.nav")))
	assert.True(t, nav.IsLoaded())

	tiled := buildTiled(t, flatGeometry(20))
	tiledFile := filepath.Join(dir, "tiled.nav")
	require.NoError(t, tiled.Save(tiledFile))
	assert.ErrorIs(t, nav.Load(tiledFile), ErrBadFormat)
	assert.True(t, nav.IsLoaded())
}
