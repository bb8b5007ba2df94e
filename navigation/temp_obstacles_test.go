package navigation

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/gorustyt/navcore/common"
	"github.com/gorustyt/navcore/detour_tile_cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stripGeometry is a 20 long, 4 wide walkway along +x.
func stripGeometry() *InputGeometryData {
	g := NewInputGeometryData()
	addQuadGrid(g, 0, 0, 20, 4, 0)
	return g
}

var (
	stripStart = common.Vec3{1.5, 0, 2}
	stripEnd   = common.Vec3{18.5, 0, 2}
)

func TestTileIdBits(t *testing.T) {
	tileBits, polyBits := tileIdBits(36)
	assert.Equal(t, 6, tileBits)
	assert.Equal(t, 16, polyBits)

	tileBits, polyBits = tileIdBits(1 << 20)
	assert.Equal(t, MAX_TILE_BITS, tileBits)
	assert.Equal(t, TOTAL_ID_BITS-MAX_TILE_BITS, polyBits)
}

func TestTiledBuildAndPath(t *testing.T) {
	nav := buildTiled(t, flatGeometry(20))
	cols, rows := nav.GetTileGrid()
	assert.Equal(t, 3, cols)
	assert.Equal(t, 3, rows)
	layers, compressed, raw := nav.GetCacheStats()
	assert.GreaterOrEqual(t, layers, 4)
	assert.Positive(t, compressed)
	assert.Positive(t, raw)
	assert.Equal(t, StateBuilt, nav.State())

	end := common.Vec3{18, 0, 18}
	path, ok := nav.FindPath(common.Vec3{2, 0, 2}, end, 0)
	require.True(t, ok)
	assert.InDelta(t, 0, horizDist(lastPoint(t, path), end), 0.01)
}

func TestTiledBuildFailure(t *testing.T) {
	st := tiledSettings()
	nav := NewNavigationTempObstacles(st)
	assert.False(t, nav.Build(st.AgentRadius, st.AgentHeight, st.AgentMaxClimb))
	assert.False(t, nav.IsLoaded())
	_, err := nav.AddTempObstacleCylinder(common.Vec3{1, 0, 1}, 1, 2)
	assert.ErrorIs(t, err, ErrNotLoaded)
	assert.False(t, nav.RemoveTempObstacle(common.Vec3{0, 1, 0}, common.Vec3{1, 1, 1}))
	assert.False(t, nav.FlushObstacles())
	assert.Zero(t, nav.GetObstacleCount())
}

func TestObstacleBlocksAndRestores(t *testing.T) {
	nav := buildTiled(t, stripGeometry())

	path, ok := nav.FindPath(stripStart, stripEnd, 0)
	require.True(t, ok)
	require.InDelta(t, 0, horizDist(lastPoint(t, path), stripEnd), 0.01)

	_, err := nav.AddTempObstacleBox(common.Vec3{9, -1, -1}, common.Vec3{11, 3, 5})
	require.NoError(t, err)
	assert.Equal(t, 1, nav.GetObstacleCount())
	require.True(t, nav.FlushObstacles())

	path, ok = nav.FindPath(stripStart, stripEnd, 0)
	if ok {
		assert.Less(t, lastPoint(t, path)[0], float32(10))
	}

	// Remove it by pointing a segment through the box.
	assert.False(t, nav.RemoveTempObstacle(common.Vec3{0, 1, 10}, common.Vec3{20, 1, 10}))
	assert.True(t, nav.RemoveTempObstacle(common.Vec3{10, 1, -5}, common.Vec3{10, 1, 10}))
	require.True(t, nav.FlushObstacles())
	assert.Zero(t, nav.GetObstacleCount())

	path, ok = nav.FindPath(stripStart, stripEnd, 0)
	require.True(t, ok)
	assert.InDelta(t, 0, horizDist(lastPoint(t, path), stripEnd), 0.01)
}

func TestObstacleShapesBlock(t *testing.T) {
	add := map[string]func(n *NavigationTempObstacles) (ObstacleHandle, error){
		"cylinder": func(n *NavigationTempObstacles) (ObstacleHandle, error) {
			return n.AddTempObstacleCylinder(common.Vec3{10, 0, 2}, 3, 2)
		},
		"obb": func(n *NavigationTempObstacles) (ObstacleHandle, error) {
			return n.AddTempObstacleObb(common.Vec3{10, 1, 2}, common.Vec3{1, 2, 4}, 0.3)
		},
	}
	for name, fn := range add {
		t.Run(name, func(t *testing.T) {
			nav := buildTiled(t, stripGeometry())
			_, err := fn(nav)
			require.NoError(t, err)
			require.True(t, nav.FlushObstacles())

			path, ok := nav.FindPath(stripStart, stripEnd, 0)
			if ok {
				assert.Less(t, lastPoint(t, path)[0], float32(10))
			}
		})
	}
}

func TestObstacleStaleHandle(t *testing.T) {
	nav := buildTiled(t, stripGeometry())
	h, err := nav.AddTempObstacleCylinder(common.Vec3{5, 0, 2}, 0.5, 2)
	require.NoError(t, err)
	require.True(t, nav.FlushObstacles())

	require.NoError(t, nav.RemoveTempObstacleByHandle(h))
	require.True(t, nav.FlushObstacles())
	assert.ErrorIs(t, nav.RemoveTempObstacleByHandle(h), ErrStaleHandle)
	assert.ErrorIs(t, nav.RemoveTempObstacleByHandle(ObstacleHandle{}), ErrInvalidHandle)

	// The freed slot is handed out again under a new generation.
	h2, err := nav.AddTempObstacleCylinder(common.Vec3{5, 0, 2}, 0.5, 2)
	require.NoError(t, err)
	assert.Equal(t, h.Index, h2.Index)
	assert.NotEqual(t, h.Generation, h2.Generation)
	assert.ErrorIs(t, nav.RemoveTempObstacleByHandle(h), ErrStaleHandle)
}

func TestObstacleCapacity(t *testing.T) {
	nav := buildTiled(t, stripGeometry())
	limit := nav.GetSettings().MaxObstacles
	for i := 0; i < limit; i++ {
		_, err := nav.AddTempObstacleCylinder(common.Vec3{float32(i%20) + 0.5, 0, 2}, 0.2, 1)
		require.NoError(t, err)
	}
	_, err := nav.AddTempObstacleCylinder(common.Vec3{1, 0, 2}, 0.2, 1)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, limit, nav.GetObstacleCount())
}

func TestClearAllTempObstacles(t *testing.T) {
	nav := buildTiled(t, stripGeometry())
	for _, x := range []float32{4, 10, 16} {
		_, err := nav.AddTempObstacleCylinder(common.Vec3{x, 0, 2}, 1, 2)
		require.NoError(t, err)
	}
	require.True(t, nav.FlushObstacles())
	require.Equal(t, 3, nav.GetObstacleCount())

	nav.ClearAllTempObstacles()
	nav.ClearAllTempObstacles()
	require.True(t, nav.FlushObstacles())
	assert.Zero(t, nav.GetObstacleCount())

	nav.ClearAllTempObstacles()
	assert.True(t, nav.FlushObstacles())

	path, ok := nav.FindPath(stripStart, stripEnd, 0)
	require.True(t, ok)
	assert.InDelta(t, 0, horizDist(lastPoint(t, path), stripEnd), 0.01)
}

func TestRemoveTempObstacleSkipsPendingRemoval(t *testing.T) {
	nav := buildTiled(t, stripGeometry())
	st := nav.GetSettings()
	border := float32(st.TileSize) * st.CellSize

	// The near obstacle straddles a tile border, so its removal spans two updates.
	near, err := nav.AddTempObstacleCylinder(common.Vec3{border, 0, 2}, 1, 2)
	require.NoError(t, err)
	_, err = nav.AddTempObstacleCylinder(common.Vec3{border * 1.5, 0, 2}, 1, 2)
	require.NoError(t, err)
	require.True(t, nav.FlushObstacles())

	sp, sq := common.Vec3{0, 1, 2}, common.Vec3{20, 1, 2}
	require.True(t, nav.RemoveTempObstacle(sp, sq))
	nav.Update(0)
	ob := nav.GetTileCache().GetObstacleByRef(near.ref())
	require.NotNil(t, ob)
	require.Equal(t, uint8(detour_tile_cache.DT_OBSTACLE_REMOVING), ob.State)

	// The same segment now reaches the far obstacle.
	assert.True(t, nav.RemoveTempObstacle(sp, sq))
	assert.ErrorIs(t, nav.RemoveTempObstacleByHandle(near), ErrStaleHandle)

	require.True(t, nav.FlushObstacles())
	assert.Zero(t, nav.GetObstacleCount())
}

func TestTiledSaveLoad(t *testing.T) {
	for _, legacy := range []bool{false, true} {
		nav := buildTiled(t, stripGeometry())
		st := nav.GetSettings()
		st.LegacyFormat = legacy
		nav.SetSettings(st)

		file := filepath.Join(t.TempDir(), "tiled.nav")
		require.NoError(t, nav.Save(file))
		data, err := os.ReadFile(file)
		require.NoError(t, err)
		assert.Equal(t, !legacy, bytes.HasPrefix(data, []byte(NAVFILE_MAGIC)))

		loaded := NewNavigationTempObstacles(tiledSettings())
		require.NoError(t, loaded.Load(file))
		require.True(t, loaded.IsLoaded())
		require.NotNil(t, loaded.GetTileCache())
		layers, _, _ := loaded.GetCacheStats()
		wantLayers, _, _ := nav.GetCacheStats()
		assert.Equal(t, wantLayers, layers)

		path, ok := loaded.FindPath(stripStart, stripEnd, 0)
		require.True(t, ok)
		assert.InDelta(t, 0, horizDist(lastPoint(t, path), stripEnd), 0.01)

		// Obstacles work on the loaded cache.
		_, err = loaded.AddTempObstacleBox(common.Vec3{9, -1, -1}, common.Vec3{11, 3, 5})
		require.NoError(t, err)
		require.True(t, loaded.FlushObstacles())
		path, ok = loaded.FindPath(stripStart, stripEnd, 0)
		if ok {
			assert.Less(t, lastPoint(t, path)[0], float32(10))
		}
	}
}

func TestTiledLoadsSoloFile(t *testing.T) {
	solo := buildSolo(t, stripGeometry())
	file := filepath.Join(t.TempDir(), "solo.nav")
	require.NoError(t, solo.Save(file))

	nav := NewNavigationTempObstacles(tiledSettings())
	require.NoError(t, nav.Load(file))
	assert.True(t, nav.IsLoaded())
	assert.Nil(t, nav.GetTileCache())
	_, ok := nav.FindPath(stripStart, stripEnd, 0)
	assert.True(t, ok)

	_, err := nav.AddTempObstacleBox(common.Vec3{9, -1, -1}, common.Vec3{11, 3, 5})
	assert.ErrorIs(t, err, ErrNotLoaded)
	nav.Update(0.1)
}

func TestTiledSaveWithoutMesh(t *testing.T) {
	file := filepath.Join(t.TempDir(), "none.nav")
	nav := NewNavigationTempObstacles(tiledSettings())
	assert.ErrorIs(t, nav.Save(file), ErrNotLoaded)
	_, err := os.Stat(file)
	assert.True(t, os.IsNotExist(err))
}
