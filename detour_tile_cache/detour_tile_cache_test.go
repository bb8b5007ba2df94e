package detour_tile_cache

import (
	"bytes"
	"testing"

	"github.com/gorustyt/navcore/detour"
	"github.com/gorustyt/navcore/recast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testCells = 16
	testCs    = 0.3
	testCh    = 0.2
)

// flatLayer is a fully walkable square layer at height zero.
func flatLayer(tx, ty int) *recast.RcHeightfieldLayer {
	n := testCells * testCells
	size := float32(testCells) * testCs
	layer := &recast.RcHeightfieldLayer{
		Bmin:    [3]float32{float32(tx) * size, 0, float32(ty) * size},
		Bmax:    [3]float32{float32(tx+1) * size, 2, float32(ty+1) * size},
		Cs:      testCs,
		Ch:      testCh,
		Width:   testCells,
		Height:  testCells,
		Maxx:    testCells - 1,
		Maxy:    testCells - 1,
		Heights: make([]uint16, n),
		Areas:   bytes.Repeat([]byte{recast.RC_WALKABLE_AREA}, n),
		Cons:    bytes.Repeat([]byte{0x0f}, n),
	}
	return layer
}

func testParams() *DtTileCacheParams {
	return &DtTileCacheParams{
		Cs:                     testCs,
		Ch:                     testCh,
		Width:                  testCells,
		Height:                 testCells,
		WalkableHeight:         2,
		WalkableRadius:         0.3,
		WalkableClimb:          0.9,
		MaxSimplificationError: 1.3,
		MaxTiles:               8,
		MaxObstacles:           16,
		MinRegionArea:          8,
		MergeRegionArea:        20,
		MaxEdgeLen:             40,
		MaxVertsPerPoly:        6,
		DetailSampleDist:       1.8,
		DetailSampleMaxError:   0.2,
	}
}

func walkableProcess() DtTileCacheMeshProcess {
	return DtTileCacheMeshProcessFunc(func(params *detour.DtNavMeshCreateParams, polyAreas []uint8, polyFlags []uint16) {
		for i := 0; i < params.PolyCount; i++ {
			if polyAreas[i] == recast.RC_WALKABLE_AREA {
				polyAreas[i] = 0
			}
			polyFlags[i] = 1
		}
	})
}

func newTestCache(t *testing.T, params *DtTileCacheParams) *DtTileCache {
	t.Helper()
	tc := NewDtTileCache()
	require.True(t, tc.Init(params, nil, NewLZ4Compressor(), walkableProcess()).Succeed())
	return tc
}

func newTestNavMesh(t *testing.T) *detour.DtNavMesh {
	t.Helper()
	size := float32(testCells) * testCs
	nav := detour.NewDtNavMesh()
	require.True(t, nav.Init(&detour.NavMeshParams{
		TileWidth:  size,
		TileHeight: size,
		MaxTiles:   8,
		MaxPolys:   1 << 10,
	}).Succeed())
	return nav
}

func addLayer(t *testing.T, tc *DtTileCache, tx, ty int) DtCompressedTileRef {
	t.Helper()
	data, err := DtBuildTileCacheLayerFromHeightfield(tc.GetCompressor(), flatLayer(tx, ty), tx, ty, 0)
	require.NoError(t, err)
	ref, status := tc.AddTile(data, DT_COMPRESSEDTILE_FREE_DATA)
	require.True(t, status.Succeed())
	return ref
}

func polyAt(t *testing.T, nav *detour.DtNavMesh, x, z float32) detour.DtPolyRef {
	t.Helper()
	q, status := detour.NewDtNavMeshQuery(nav, 256)
	require.True(t, status.Succeed())
	ref, _, _, _ := q.FindNearestPoly([]float32{x, 0, z}, []float32{0.05, 1, 0.05}, detour.NewDtQueryFilter())
	return ref
}

func runUpdates(t *testing.T, tc *DtTileCache, nav *detour.DtNavMesh) {
	t.Helper()
	for i := 0; i < 32; i++ {
		upToDate, status := tc.Update(0.1, nav)
		require.True(t, status.Succeed())
		if upToDate {
			return
		}
	}
	t.Fatal("tile cache did not settle")
}

func TestCompressorRoundTrip(t *testing.T) {
	compressible := bytes.Repeat([]byte("navmesh"), 200)
	random := []byte{9, 1, 200, 3, 77}

	for name, comp := range map[string]DtTileCacheCompressor{
		"lz4": NewLZ4Compressor(),
		"raw": RawCompressor{},
	} {
		for _, src := range [][]byte{compressible, random} {
			packed := make([]byte, comp.MaxCompressedSize(len(src)))
			n, err := comp.Compress(src, packed)
			require.NoError(t, err, name)

			out := make([]byte, len(src))
			m, err := comp.Decompress(packed[:n], out)
			require.NoError(t, err, name)
			assert.Equal(t, len(src), m, name)
			assert.Equal(t, src, out, name)
		}
	}

	lz := NewLZ4Compressor()
	packed := make([]byte, lz.MaxCompressedSize(len(compressible)))
	n, err := lz.Compress(compressible, packed)
	require.NoError(t, err)
	assert.Less(t, n, len(compressible))

	_, err = lz.Compress(compressible, make([]byte, 4))
	assert.ErrorIs(t, err, ErrBufferTooSmall)
	_, err = lz.Decompress([]byte{7, 1, 2}, make([]byte, 8))
	assert.ErrorIs(t, err, ErrCorruptLayer)
}

func TestLinearAllocator(t *testing.T) {
	a := NewLinearAllocator(16)
	m1 := a.Alloc(10)
	assert.Len(t, m1, 10)
	m2 := a.Alloc(10)
	assert.Len(t, m2, 10)
	assert.Equal(t, 20, a.Used())
	assert.Equal(t, 16, a.Capacity())
	assert.Nil(t, a.Alloc(0))

	a.Reset()
	assert.Equal(t, 20, a.Capacity())
	assert.Zero(t, a.Used())
	m3 := a.Alloc(20)
	assert.Len(t, m3, 20)
}

func TestTileCacheLayerRoundTrip(t *testing.T) {
	comp := NewLZ4Compressor()
	src := flatLayer(2, 3)
	src.Heights[5] = 7
	src.Areas[6] = 4
	data, err := DtBuildTileCacheLayerFromHeightfield(comp, src, 2, 3, 1)
	require.NoError(t, err)

	layer, status := DtDecompressTileCacheLayer(comp, NewLinearAllocator(64), data)
	require.True(t, status.Succeed())
	assert.EqualValues(t, 2, layer.Header.Tx)
	assert.EqualValues(t, 3, layer.Header.Ty)
	assert.EqualValues(t, 1, layer.Header.Tlayer)
	assert.EqualValues(t, testCells, layer.Header.Width)
	assert.Equal(t, src.Heights, layer.Heights)
	assert.Equal(t, src.Areas, layer.Areas)
	assert.Equal(t, src.Cons, layer.Cons)

	hf := layer.ToHeightfieldLayer(testCs, testCh)
	assert.Equal(t, src.Bmin, hf.Bmin)
	assert.Equal(t, testCells-1, hf.Maxx)

	bad := append([]byte(nil), data...)
	bad[0] ^= 0xff
	_, status = DtDecompressTileCacheLayer(comp, nil, bad)
	assert.True(t, status.Failed())
	assert.True(t, status.Detail(detour.DT_WRONG_MAGIC))

	_, err = DtBuildTileCacheLayer(comp, NewDtTileCacheLayerHeader(src, 0, 0, 0), src.Heights[:4], src.Areas, src.Cons)
	assert.ErrorIs(t, err, ErrCorruptLayer)
}

func TestTileCacheParamsBin(t *testing.T) {
	p := testParams()
	p.Orig = [3]float32{1, 2, 3}
	p.Partition = DT_PARTITION_MONOTONE

	full := p.ToBin(false)
	assert.Len(t, full, ParamsBinSize(false))
	var got DtTileCacheParams
	require.NoError(t, got.FromBin(full))
	assert.Equal(t, *p, got)

	legacy := p.ToBin(true)
	assert.Len(t, legacy, ParamsBinSize(true))
	got = DtTileCacheParams{MaxVertsPerPoly: 5}
	require.NoError(t, got.FromBin(legacy))
	assert.Equal(t, p.Orig, got.Orig)
	assert.Equal(t, p.MaxObstacles, got.MaxObstacles)
	assert.Equal(t, 5, got.MaxVertsPerPoly)

	assert.Error(t, got.FromBin(legacy[:10]))
}

func TestTileCacheAddRemoveTile(t *testing.T) {
	tc := newTestCache(t, testParams())
	ref := addLayer(t, tc, 0, 0)
	addLayer(t, tc, 1, 0)

	assert.Len(t, tc.GetTilesAt(0, 0), 1)
	assert.Equal(t, ref, tc.GetTilesAt(0, 0)[0])
	require.NotNil(t, tc.GetTileByRef(ref))

	data, err := DtBuildTileCacheLayerFromHeightfield(tc.GetCompressor(), flatLayer(0, 0), 0, 0, 0)
	require.NoError(t, err)
	_, status := tc.AddTile(data, 0)
	assert.True(t, status.Failed(), "location already taken")

	blob, status := tc.RemoveTile(ref)
	require.True(t, status.Succeed())
	assert.NotEmpty(t, blob)
	assert.Nil(t, tc.GetTileByRef(ref))
	assert.Empty(t, tc.GetTilesAt(0, 0))

	_, status = tc.RemoveTile(ref)
	assert.True(t, status.Failed(), "stale ref")

	again := addLayer(t, tc, 0, 0)
	assert.NotEqual(t, ref, again)
}

func TestTileCacheQueryTiles(t *testing.T) {
	tc := newTestCache(t, testParams())
	a := addLayer(t, tc, 0, 0)
	b := addLayer(t, tc, 1, 0)

	size := float32(testCells) * testCs
	got := tc.QueryTiles([]float32{0.5, 0, 0.5}, []float32{1, 1, 1}, 8)
	assert.Equal(t, []DtCompressedTileRef{a}, got)

	got = tc.QueryTiles([]float32{size - 0.5, 0, 0.5}, []float32{size + 0.5, 1, 1}, 8)
	assert.ElementsMatch(t, []DtCompressedTileRef{a, b}, got)

	assert.Len(t, tc.QueryTiles([]float32{0, 0, 0}, []float32{2 * size, 1, size}, 1), 1)
	assert.Empty(t, tc.QueryTiles([]float32{0, 0, 10 * size}, []float32{1, 1, 11 * size}, 8))
}

func TestTileCacheObstacleLifecycle(t *testing.T) {
	params := testParams()
	params.MaxObstacles = 2
	tc := newTestCache(t, params)
	nav := newTestNavMesh(t)
	addLayer(t, tc, 0, 0)
	require.True(t, tc.BuildNavMeshTilesAt(0, 0, nav).Succeed())

	r1, status := tc.AddObstacle([]float32{1, 0, 1}, 0.5, 2)
	require.True(t, status.Succeed())
	r2, status := tc.AddBoxObstacle([]float32{3, 0, 3}, []float32{4, 1, 4})
	require.True(t, status.Succeed())
	_, status = tc.AddObstacle([]float32{2, 0, 2}, 0.5, 2)
	assert.True(t, status.Failed())
	assert.True(t, status.Detail(detour.DT_OUT_OF_MEMORY))

	ob := tc.GetObstacleByRef(r1)
	require.NotNil(t, ob)
	assert.EqualValues(t, DT_OBSTACLE_PROCESSING, ob.State)

	runUpdates(t, tc, nav)
	assert.EqualValues(t, DT_OBSTACLE_PROCESSED, ob.State)
	assert.NotEmpty(t, ob.Touched())

	require.True(t, tc.RemoveObstacle(r1).Succeed())
	runUpdates(t, tc, nav)
	assert.Nil(t, tc.GetObstacleByRef(r1))
	assert.True(t, tc.RemoveObstacle(r1).Failed(), "stale ref")
	assert.True(t, tc.RemoveObstacle(0).Succeed())

	r3, status := tc.AddObstacle([]float32{2, 0, 2}, 0.5, 2)
	require.True(t, status.Succeed())
	assert.NotEqual(t, r1, r3)
	assert.NotNil(t, tc.GetObstacleByRef(r2))
}

func TestTileCacheObstacleOutsideTiles(t *testing.T) {
	tc := newTestCache(t, testParams())
	nav := newTestNavMesh(t)
	addLayer(t, tc, 0, 0)

	ref, status := tc.AddObstacle([]float32{100, 0, 100}, 0.5, 2)
	require.True(t, status.Succeed())
	upToDate, status := tc.Update(0.1, nav)
	assert.True(t, status.Succeed())
	assert.True(t, upToDate)
	ob := tc.GetObstacleByRef(ref)
	require.NotNil(t, ob)
	assert.EqualValues(t, DT_OBSTACLE_PROCESSED, ob.State)
	assert.Empty(t, ob.Touched())
}

func TestTileCacheObstacleRayHit(t *testing.T) {
	tc := newTestCache(t, testParams())
	ref, _ := tc.AddBoxObstacle([]float32{4, 0, -1}, []float32{6, 2, 1})
	ob := tc.GetObstacleByRef(ref)
	require.NotNil(t, ob)

	tmin, ok := tc.ObstacleRayHit(ob, []float32{0, 1, 0}, []float32{10, 1, 0})
	assert.True(t, ok)
	assert.InDelta(t, 0.4, tmin, 1e-4)

	_, ok = tc.ObstacleRayHit(ob, []float32{0, 1, 5}, []float32{10, 1, 5})
	assert.False(t, ok)
}

func TestTileCacheRebuildCarvesObstacles(t *testing.T) {
	for name, partition := range map[string]int{
		"watershed": DT_PARTITION_WATERSHED,
		"monotone":  DT_PARTITION_MONOTONE,
	} {
		t.Run(name, func(t *testing.T) {
			params := testParams()
			params.Partition = partition
			tc := newTestCache(t, params)
			nav := newTestNavMesh(t)
			addLayer(t, tc, 0, 0)
			require.True(t, tc.BuildNavMeshTilesAt(0, 0, nav).Succeed())

			tile := nav.GetTileAt(0, 0, 0)
			require.NotNil(t, tile)
			require.NotZero(t, tile.Header.PolyCount)

			center := float32(testCells) * testCs / 2
			require.NotZero(t, polyAt(t, nav, center, center))

			ref, status := tc.AddObstacle([]float32{center, 0, center}, 0.5, 2)
			require.True(t, status.Succeed())
			runUpdates(t, tc, nav)
			assert.Zero(t, polyAt(t, nav, center, center), "center is carved out")
			assert.NotZero(t, polyAt(t, nav, 0.3, 0.3))

			require.True(t, tc.RemoveObstacle(ref).Succeed())
			runUpdates(t, tc, nav)
			assert.NotZero(t, polyAt(t, nav, center, center))
		})
	}
}

func TestTileCacheOrientedBoxObstacle(t *testing.T) {
	tc := newTestCache(t, testParams())
	nav := newTestNavMesh(t)
	addLayer(t, tc, 0, 0)
	require.True(t, tc.BuildNavMeshTilesAt(0, 0, nav).Succeed())

	center := float32(testCells) * testCs / 2
	_, status := tc.AddOrientedBoxObstacle([]float32{center, 0.5, center}, []float32{0.6, 1, 0.2}, 0.7)
	require.True(t, status.Succeed())
	runUpdates(t, tc, nav)
	assert.Zero(t, polyAt(t, nav, center, center))
}

func TestTileCacheBatchTouchingManyTiles(t *testing.T) {
	const grid = 10
	params := testParams()
	params.MaxTiles = 128
	params.MaxObstacles = MAX_REQUESTS
	tc := newTestCache(t, params)

	size := float32(testCells) * testCs
	nav := detour.NewDtNavMesh()
	require.True(t, nav.Init(&detour.NavMeshParams{
		TileWidth:  size,
		TileHeight: size,
		MaxTiles:   128,
		MaxPolys:   1 << 10,
	}).Succeed())
	for ty := 0; ty < grid; ty++ {
		for tx := 0; tx < grid; tx++ {
			addLayer(t, tc, tx, ty)
			require.True(t, tc.BuildNavMeshTilesAt(tx, ty, nav).Succeed())
		}
	}

	// Every obstacle sits on a tile corner and touches four tiles, so the
	// batch touches all 100 tiles at once.
	var corners [][2]float32
	var refs []DtObstacleRef
	for j := 1; j < grid && len(refs) < MAX_REQUESTS; j++ {
		for i := 1; i < grid && len(refs) < MAX_REQUESTS; i++ {
			c := [2]float32{float32(i) * size, float32(j) * size}
			ref, status := tc.AddObstacle([]float32{c[0], 0, c[1]}, 0.5, 2)
			require.True(t, status.Succeed())
			corners = append(corners, c)
			refs = append(refs, ref)
		}
	}
	require.Len(t, refs, MAX_REQUESTS)

	settle := func() {
		for i := 0; i < 1000; i++ {
			upToDate, status := tc.Update(0.1, nav)
			require.True(t, status.Succeed())
			if upToDate {
				return
			}
		}
		t.Fatal("tile cache did not settle")
	}

	settle()
	for i, ref := range refs {
		ob := tc.GetObstacleByRef(ref)
		require.NotNil(t, ob)
		assert.EqualValues(t, DT_OBSTACLE_PROCESSED, ob.State)
		assert.Len(t, ob.Touched(), 4)
		assert.Zero(t, polyAt(t, nav, corners[i][0], corners[i][1]), "corner %v is carved out", corners[i])
	}

	for _, ref := range refs {
		require.True(t, tc.RemoveObstacle(ref).Succeed())
	}
	settle()
	for i, ref := range refs {
		assert.Nil(t, tc.GetObstacleByRef(ref))
		assert.NotZero(t, polyAt(t, nav, corners[i][0], corners[i][1]), "corner %v is restored", corners[i])
	}
}
