package navigation

import (
	"testing"

	"github.com/gorustyt/navcore/common"
	"github.com/stretchr/testify/require"
)

// addQuadGrid adds a flat grid of unit quads covering [x0,x1]x[z0,z1] at height y.
func addQuadGrid(g *InputGeometryData, x0, z0, x1, z1, y float32) {
	nx := int(x1 - x0)
	nz := int(z1 - z0)
	base := g.GetVertCount()
	for i := 0; i <= nx; i++ {
		for j := 0; j <= nz; j++ {
			g.AddVertex(x0+float32(i), y, z0+float32(j))
		}
	}
	idx := func(i, j int) int { return base + i*(nz+1) + j }
	for i := 0; i < nx; i++ {
		for j := 0; j < nz; j++ {
			g.AddTriangle(idx(i, j), idx(i, j+1), idx(i+1, j+1), POLYAREA_GROUND, 45)
			g.AddTriangle(idx(i, j), idx(i+1, j+1), idx(i+1, j), POLYAREA_GROUND, 45)
		}
	}
}

func flatGeometry(size float32) *InputGeometryData {
	g := NewInputGeometryData()
	addQuadGrid(g, 0, 0, size, size, 0)
	return g
}

func buildSolo(t *testing.T, geom *InputGeometryData) *NavigationSolo {
	t.Helper()
	st := DefaultSettings()
	nav := NewNavigationSolo(st)
	nav.SetGeometry(geom)
	require.True(t, nav.Build(st.AgentRadius, st.AgentHeight, st.AgentMaxClimb))
	require.True(t, nav.IsLoaded())
	return nav
}

func tiledSettings() Settings {
	st := DefaultSettings()
	st.TileSize = 32
	st.MaxObstacles = 16
	return st
}

func buildTiled(t *testing.T, geom *InputGeometryData) *NavigationTempObstacles {
	t.Helper()
	st := tiledSettings()
	nav := NewNavigationTempObstacles(st)
	nav.SetGeometry(geom)
	require.True(t, nav.Build(st.AgentRadius, st.AgentHeight, st.AgentMaxClimb))
	require.True(t, nav.IsLoaded())
	return nav
}

func lastPoint(t *testing.T, p SmoothPath) common.Vec3 {
	t.Helper()
	pts := p.Points()
	require.NotEmpty(t, pts)
	return pts[len(pts)-1]
}

func horizDist(a, b common.Vec3) float32 {
	dx := a[0] - b[0]
	dz := a[2] - b[2]
	return common.Vec3{dx, 0, dz}.Len()
}
