package navigation

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportObjRoundTrip(t *testing.T) {
	nav := buildSolo(t, flatGeometry(20))
	stats := GetMeshStats(nav.GetNavMesh())
	assert.Equal(t, 1, stats.Tiles)
	assert.Positive(t, stats.Polys)
	assert.Zero(t, stats.OffMeshCons)

	var buf bytes.Buffer
	require.NoError(t, ExportObj(nav.GetNavMesh(), &buf))
	assert.True(t, strings.HasPrefix(buf.String(), "# Recast Navmesh"))

	// The exported surface loads back as valid geometry.
	geom, err := LoadObj(&buf, POLYAREA_GROUND, 45)
	require.NoError(t, err)
	require.NoError(t, geom.Validate())
	assert.GreaterOrEqual(t, geom.GetTriCount(), stats.Polys)
	assert.InDelta(t, stats.Bmin[0], geom.GetBoundsMin()[0], 0.5)
}

func TestTiledMeshStats(t *testing.T) {
	nav := buildTiled(t, flatGeometry(20))
	stats := GetMeshStats(nav.GetNavMesh())
	assert.GreaterOrEqual(t, stats.Tiles, 4)
	assert.Positive(t, stats.Polys)
	assert.Positive(t, stats.DetailTris)
}
