package recast

import (
	"testing"

	"github.com/gorustyt/navcore/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// quad returns two triangles covering [x0,x1]x[z0,z1] at height y, facing up.
func quad(x0, z0, x1, z1, y float32, base int32) ([]float32, []int32) {
	verts := []float32{
		x0, y, z0,
		x0, y, z1,
		x1, y, z1,
		x1, y, z0,
	}
	tris := []int32{base + 0, base + 1, base + 2, base + 0, base + 2, base + 3}
	return verts, tris
}

type testBuild struct {
	cfg   RcConfig
	hf    *RcHeightfield
	chf   *RcCompactHeightfield
	cset  *RcContourSet
	pmesh *RcPolyMesh
	dmesh *RcPolyMeshDetail
}

func testConfig(bmin, bmax [3]float32) RcConfig {
	cfg := RcConfig{
		Cs:                     0.3,
		Ch:                     0.2,
		WalkableSlopeAngle:     45,
		WalkableHeight:         10,
		WalkableClimb:          4,
		WalkableRadius:         2,
		MaxEdgeLen:             40,
		MaxSimplificationError: 1.3,
		MinRegionArea:          8 * 8,
		MergeRegionArea:        20 * 20,
		MaxVertsPerPoly:        6,
		DetailSampleDist:       1.8,
		DetailSampleMaxError:   0.2,
		Bmin:                   bmin,
		Bmax:                   bmax,
	}
	cfg.Width, cfg.Height = RcCalcGridSize(bmin[:], bmax[:], cfg.Cs)
	return cfg
}

func runPipeline(t *testing.T, verts []float32, tris []int32, monotone bool) *testBuild {
	t.Helper()
	nverts := len(verts) / 3
	ntris := len(tris) / 3
	bmin, bmax := RcCalcBounds(verts, nverts)
	b := &testBuild{cfg: testConfig(bmin, bmax)}
	cfg := &b.cfg

	b.hf = RcCreateHeightfield(nil, cfg.Width, cfg.Height, cfg.Bmin[:], cfg.Bmax[:], cfg.Cs, cfg.Ch)
	require.NotNil(t, b.hf)
	areas := make([]uint8, ntris)
	RcMarkWalkableTriangles(nil, cfg.WalkableSlopeAngle, verts, tris, ntris, areas)
	require.True(t, RcRasterizeTriangles(nil, verts, tris, areas, ntris, b.hf, cfg.WalkableClimb))

	RcFilterLowHangingWalkableObstacles(nil, cfg.WalkableClimb, b.hf)
	RcFilterLedgeSpans(nil, cfg.WalkableHeight, cfg.WalkableClimb, b.hf)
	RcFilterWalkableLowHeightSpans(nil, cfg.WalkableHeight, b.hf)

	b.chf = RcBuildCompactHeightfield(nil, cfg.WalkableHeight, cfg.WalkableClimb, b.hf)
	require.NotNil(t, b.chf)
	require.True(t, RcErodeWalkableArea(nil, cfg.WalkableRadius, b.chf))

	if monotone {
		require.True(t, RcBuildRegionsMonotone(nil, b.chf, 0, cfg.MinRegionArea, cfg.MergeRegionArea))
	} else {
		require.True(t, RcBuildDistanceField(nil, b.chf))
		require.True(t, RcBuildRegions(nil, b.chf, 0, cfg.MinRegionArea, cfg.MergeRegionArea))
	}

	b.cset = RcBuildContours(nil, b.chf, cfg.MaxSimplificationError, cfg.MaxEdgeLen, RC_CONTOUR_TESS_WALL_EDGES)
	require.NotNil(t, b.cset)
	b.pmesh = RcBuildPolyMesh(nil, b.cset, cfg.MaxVertsPerPoly)
	require.NotNil(t, b.pmesh)
	b.dmesh = RcBuildPolyMeshDetail(nil, b.pmesh, b.chf, cfg.DetailSampleDist, cfg.DetailSampleMaxError)
	require.NotNil(t, b.dmesh)
	return b
}

func TestCalcBoundsAndGridSize(t *testing.T) {
	verts := []float32{1, 2, 3, 0, 2, 6}
	bmin, bmax := RcCalcBounds(verts, 2)
	assert.Equal(t, [3]float32{0, 2, 3}, bmin)
	assert.Equal(t, [3]float32{1, 2, 6}, bmax)

	w, h := RcCalcGridSize(bmin[:], bmax[:], 1.5)
	assert.Equal(t, 1, w)
	assert.Equal(t, 2, h)
}

func TestCreateHeightfield(t *testing.T) {
	hf := RcCreateHeightfield(nil, 4, 3, []float32{0, 0, 0}, []float32{4, 1, 3}, 1, 0.5)
	require.NotNil(t, hf)
	assert.Equal(t, 4, hf.Width)
	assert.Equal(t, 3, hf.Height)
	assert.Len(t, hf.Spans, 12)
	assert.Nil(t, RcCreateHeightfield(nil, 0, 3, []float32{0, 0, 0}, []float32{4, 1, 3}, 1, 0.5))
}

func TestMarkWalkableTriangles(t *testing.T) {
	verts := []float32{
		0, 0, 0,
		1, 0, 0,
		0, 0, -1,
	}
	walkable := []int32{0, 1, 2}
	unwalkable := []int32{0, 2, 1}

	areas := []uint8{RC_NULL_AREA}
	RcMarkWalkableTriangles(nil, 45, verts, walkable, 1, areas)
	assert.Equal(t, uint8(RC_WALKABLE_AREA), areas[0], "one walkable triangle")

	areas[0] = RC_NULL_AREA
	RcMarkWalkableTriangles(nil, 45, verts, unwalkable, 1, areas)
	assert.Equal(t, uint8(RC_NULL_AREA), areas[0], "one non-walkable triangle")

	areas[0] = 42
	RcMarkWalkableTriangles(nil, 45, verts, unwalkable, 1, areas)
	assert.Equal(t, uint8(42), areas[0], "non-walkable triangle area ids are not modified")

	areas[0] = RC_NULL_AREA
	RcMarkWalkableTriangles(nil, 0, verts, walkable, 1, areas)
	assert.Equal(t, uint8(RC_NULL_AREA), areas[0], "slopes equal to the max slope are unwalkable")
}

func TestClearUnwalkableTriangles(t *testing.T) {
	verts := []float32{
		0, 0, 0,
		1, 0, 0,
		0, 0, -1,
	}
	areas := []uint8{42}
	RcClearUnwalkableTriangles(nil, 45, verts, []int32{0, 2, 1}, 1, areas)
	assert.Equal(t, uint8(RC_NULL_AREA), areas[0])

	areas[0] = 42
	RcClearUnwalkableTriangles(nil, 45, verts, []int32{0, 1, 2}, 1, areas)
	assert.Equal(t, uint8(42), areas[0])
}

func TestMarkWalkableTrianglesBySlope(t *testing.T) {
	// A 60 degree ramp.
	verts := []float32{
		0, 0, 0,
		0, 1.732, 1,
		1, 1.732, 1,
		1, 0, 0,
	}
	tris := []int32{0, 1, 2, 0, 2, 3}
	areas := []uint8{0, 4}
	out := make([]uint8, 2)

	RcMarkWalkableTrianglesBySlope(nil, verts, tris, 2, areas, []float32{70, 70}, out)
	assert.Equal(t, []uint8{RC_WALKABLE_AREA, 4}, out, "ground promotes to walkable, other areas are kept")

	RcMarkWalkableTrianglesBySlope(nil, verts, tris, 2, areas, []float32{45, 70}, out)
	assert.Equal(t, []uint8{RC_NULL_AREA, 4}, out, "each triangle uses its own slope limit")
}

func TestAddSpanMerges(t *testing.T) {
	hf := RcCreateHeightfield(nil, 1, 1, []float32{0, 0, 0}, []float32{1, 1, 1}, 1, 0.1)
	require.True(t, RcAddSpan(nil, hf, 0, 0, 0, 2, 1, 1))
	require.True(t, RcAddSpan(nil, hf, 0, 0, 1, 3, 2, 1))

	s := hf.Spans[0]
	require.NotNil(t, s)
	assert.Equal(t, 0, s.Min())
	assert.Equal(t, 3, s.Max())
	assert.Equal(t, uint8(2), s.Area(), "merged span keeps the higher area when tops are within the threshold")
	assert.Nil(t, s.Next())

	require.True(t, RcAddSpan(nil, hf, 0, 0, 10, 12, 1, 1))
	require.NotNil(t, hf.Spans[0].Next())
	assert.Equal(t, 10, hf.Spans[0].Next().Min())

	assert.False(t, RcAddSpan(nil, hf, 1, 0, 0, 1, 1, 1), "out of bounds column")
}

func TestRasterizeTriangle(t *testing.T) {
	verts := []float32{
		0, 0, 0,
		1, 0, 0,
		0, 0, -1,
	}
	bmin, bmax := RcCalcBounds(verts, 3)
	w, h := RcCalcGridSize(bmin[:], bmax[:], 0.5)
	hf := RcCreateHeightfield(nil, w, h, bmin[:], bmax[:], 0.5, 0.5)
	require.NotNil(t, hf)

	require.True(t, RcRasterizeTriangle(nil, verts[0:], verts[3:], verts[6:], 42, hf, 1))

	assert.NotNil(t, hf.Spans[0+0*w])
	assert.Nil(t, hf.Spans[1+0*w])
	assert.NotNil(t, hf.Spans[0+1*w])
	assert.NotNil(t, hf.Spans[1+1*w])
	for _, col := range []int{0 + 0*w, 0 + 1*w, 1 + 1*w} {
		s := hf.Spans[col]
		assert.Equal(t, 0, s.Min())
		assert.Equal(t, 1, s.Max())
		assert.Equal(t, uint8(42), s.Area())
		assert.Nil(t, s.Next())
	}
}

func TestRasterizeTriangleOutsideBounds(t *testing.T) {
	hf := RcCreateHeightfield(nil, 10, 10, []float32{0, 0, 0}, []float32{10, 10, 10}, 1, 1)
	verts := []float32{
		-10.0, 5.5, -10.0,
		-10.0, 5.5, 3,
		3.0, 5.5, -10.0,
	}
	require.True(t, RcRasterizeTriangle(nil, verts[0:], verts[3:], verts[6:], 42, hf, 1))
	for _, s := range hf.Spans {
		assert.Nil(t, s)
	}
}

func TestFilterLowHeightSpans(t *testing.T) {
	hf := RcCreateHeightfield(nil, 1, 1, []float32{0, 0, 0}, []float32{1, 10, 1}, 1, 0.1)
	require.True(t, RcAddSpan(nil, hf, 0, 0, 0, 1, RC_WALKABLE_AREA, 1))
	require.True(t, RcAddSpan(nil, hf, 0, 0, 4, 6, RC_WALKABLE_AREA, 1))

	RcFilterWalkableLowHeightSpans(nil, 5, hf)
	assert.Equal(t, uint8(RC_NULL_AREA), hf.Spans[0].Area(), "clearance 3 is below the walkable height")
	assert.Equal(t, uint8(RC_WALKABLE_AREA), hf.Spans[0].Next().Area())
}

func TestFilterLowHangingObstacles(t *testing.T) {
	hf := RcCreateHeightfield(nil, 1, 1, []float32{0, 0, 0}, []float32{1, 10, 1}, 1, 0.1)
	require.True(t, RcAddSpan(nil, hf, 0, 0, 0, 1, RC_WALKABLE_AREA, 0))
	require.True(t, RcAddSpan(nil, hf, 0, 0, 2, 3, RC_NULL_AREA, 0))

	RcFilterLowHangingWalkableObstacles(nil, 4, hf)
	assert.Equal(t, uint8(RC_WALKABLE_AREA), hf.Spans[0].Next().Area(), "step within climb becomes walkable")
}

func TestTriangulateSquare(t *testing.T) {
	verts := []int32{
		0, 0, 0, 0,
		0, 0, 10, 0,
		10, 0, 10, 0,
		10, 0, 0, 0,
	}
	indices := []int{0, 1, 2, 3}
	tris := make([]int, 4*3)
	n := triangulate(4, verts, indices, tris)
	require.Equal(t, 2, n)
	seen := map[int]bool{}
	for _, v := range tris[:6] {
		seen[v] = true
	}
	assert.Len(t, seen, 4, "both triangles together use every corner")
}

func TestBuildMeshAdjacency(t *testing.T) {
	const nvp = 3
	polys := []uint16{
		0, 1, 2, RC_MESH_NULL_IDX, RC_MESH_NULL_IDX, RC_MESH_NULL_IDX,
		0, 2, 3, RC_MESH_NULL_IDX, RC_MESH_NULL_IDX, RC_MESH_NULL_IDX,
	}
	require.True(t, buildMeshAdjacency(polys, 2, 4, nvp))
	// Edge 2-0 of the first poly is edge 0-2 of the second.
	assert.Equal(t, uint16(1), polys[nvp+2])
	assert.Equal(t, uint16(0), polys[2*nvp+nvp+0])
	assert.Equal(t, uint16(RC_MESH_NULL_IDX), polys[nvp+0])
}

func TestMergePolyVerts(t *testing.T) {
	const nvp = 6
	verts := []uint16{
		0, 0, 0,
		0, 0, 10,
		10, 0, 10,
		10, 0, 0,
	}
	pa := []uint16{0, 1, 2, RC_MESH_NULL_IDX, RC_MESH_NULL_IDX, RC_MESH_NULL_IDX}
	pb := []uint16{0, 2, 3, RC_MESH_NULL_IDX, RC_MESH_NULL_IDX, RC_MESH_NULL_IDX}
	v, ea, eb := getPolyMergeValue(pa, pb, verts, nvp)
	require.Greater(t, v, 0)
	tmp := make([]uint16, nvp)
	mergePolyVerts(pa, pb, ea, eb, tmp, nvp)
	assert.Equal(t, 4, countPolyVerts(pa, nvp))
}

func TestFlatQuadPipeline(t *testing.T) {
	for _, monotone := range []bool{false, true} {
		verts, tris := quad(0, 0, 20, 20, 0, 0)
		b := runPipeline(t, verts, tris, monotone)

		require.Greater(t, b.pmesh.NPolys, 0)
		assert.Equal(t, b.pmesh.NPolys, b.dmesh.NMeshes)
		assert.Len(t, b.pmesh.Flags, b.pmesh.NPolys)
		for i := 0; i < b.pmesh.NPolys; i++ {
			assert.Equal(t, uint8(RC_WALKABLE_AREA), b.pmesh.Areas[i])
			assert.GreaterOrEqual(t, countPolyVerts(b.pmesh.Polys[i*2*b.pmesh.Nvp:], b.pmesh.Nvp), 3)
		}
		for i := 0; i < b.pmesh.NVerts; i++ {
			v := b.pmesh.Verts[i*3:]
			assert.LessOrEqual(t, int(v[0]), b.cfg.Width)
			assert.LessOrEqual(t, int(v[2]), b.cfg.Height)
		}
		for i := 0; i < b.dmesh.NVerts; i++ {
			assert.InDelta(t, 0, b.dmesh.Verts[i*3+1], 0.5, "detail heights stay on the quad")
		}
	}
}

// rampHeight is flat at 0 up to x=5, climbs to 2 at x=10 and stays flat after.
func rampHeight(x float32) float32 {
	return common.Clamp((x-5)*0.4, 0, 2)
}

// detailHeightAt returns the height of the detail triangle under (x, z).
func detailHeightAt(dmesh *RcPolyMeshDetail, x, z float32) (float32, bool) {
	p := []float32{x, 0, z}
	for i := 0; i < dmesh.NMeshes; i++ {
		m := dmesh.Meshes[i*4:]
		vbase, tbase, ntris := int(m[0]), int(m[2]), int(m[3])
		for j := 0; j < ntris; j++ {
			t := dmesh.Tris[(tbase+j)*4:]
			a := dmesh.Verts[(vbase+int(t[0]))*3:]
			b := dmesh.Verts[(vbase+int(t[1]))*3:]
			c := dmesh.Verts[(vbase+int(t[2]))*3:]
			if h, ok := common.ClosestHeightPointTriangle(p, a, b, c); ok {
				return h, true
			}
		}
	}
	return 0, false
}

func TestDetailMeshFollowsRamp(t *testing.T) {
	xs := []float32{0, 5, 10, 20}
	var verts []float32
	var tris []int32
	for i, x := range xs {
		verts = append(verts, x, rampHeight(x), 0, x, rampHeight(x), 4)
		if i > 0 {
			a0, a1 := int32(i-1)*2, int32(i-1)*2+1
			b0, b1 := int32(i)*2, int32(i)*2+1
			tris = append(tris, a0, a1, b1, a0, b1, b0)
		}
	}
	b := runPipeline(t, verts, tris, false)
	require.Greater(t, b.pmesh.NPolys, 0)
	require.Equal(t, b.pmesh.NPolys, b.dmesh.NMeshes)

	// Edge and interior samples add vertices beyond the polygon outlines.
	outline := 0
	for i := 0; i < b.pmesh.NPolys; i++ {
		nv := countPolyVerts(b.pmesh.Polys[i*2*b.pmesh.Nvp:], b.pmesh.Nvp)
		outline += nv
		assert.GreaterOrEqual(t, int(b.dmesh.Meshes[i*4+1]), nv)
	}
	assert.Greater(t, b.dmesh.NVerts, outline+b.pmesh.NPolys)

	// Span tops sit up to one cell height above the surface.
	tol := b.cfg.DetailSampleMaxError + b.cfg.Ch
	hits := 0
	for x := float32(1.5); x <= 18.5; x += 0.5 {
		for _, z := range []float32{1.5, 2, 2.5} {
			h, ok := detailHeightAt(b.dmesh, x, z)
			if !ok {
				continue
			}
			hits++
			assert.InDelta(t, rampHeight(x)+b.cfg.Ch/2, h, float64(tol), "x=%v z=%v", x, z)
		}
	}
	assert.Greater(t, hits, 90)
}

func TestErodeShrinksWalkableArea(t *testing.T) {
	verts, tris := quad(0, 0, 6, 6, 0, 0)
	bmin, bmax := RcCalcBounds(verts, 4)
	cfg := testConfig(bmin, bmax)
	hf := RcCreateHeightfield(nil, cfg.Width, cfg.Height, cfg.Bmin[:], cfg.Bmax[:], cfg.Cs, cfg.Ch)
	areas := []uint8{RC_WALKABLE_AREA, RC_WALKABLE_AREA}
	require.True(t, RcRasterizeTriangles(nil, verts, tris, areas, 2, hf, cfg.WalkableClimb))
	chf := RcBuildCompactHeightfield(nil, cfg.WalkableHeight, cfg.WalkableClimb, hf)
	require.NotNil(t, chf)

	countWalkable := func() int {
		n := 0
		for _, a := range chf.Areas {
			if a != RC_NULL_AREA {
				n++
			}
		}
		return n
	}
	before := countWalkable()
	require.True(t, RcErodeWalkableArea(nil, 2, chf))
	after := countWalkable()
	assert.Less(t, after, before)
	assert.Greater(t, after, 0)
}

func TestMarkCylinderArea(t *testing.T) {
	verts, tris := quad(0, 0, 10, 10, 0, 0)
	b := runPipeline(t, verts, tris, false)
	chf := b.chf

	nulls := func() int {
		n := 0
		for _, a := range chf.Areas {
			if a == RC_NULL_AREA {
				n++
			}
		}
		return n
	}
	before := nulls()
	RcMarkCylinderArea(nil, []float32{5, 0, 5}, 1, 2, RC_NULL_AREA, chf)
	assert.Greater(t, nulls(), before)
}

func TestHeightfieldLayers(t *testing.T) {
	lowV, lowT := quad(0, 0, 10, 10, 0, 0)
	highV, highT := quad(0, 0, 10, 10, 5, 4)
	verts := append(lowV, highV...)
	tris := append(lowT, highT...)
	b := runPipeline(t, verts, tris, false)

	lset := RcBuildHeightfieldLayers(nil, b.chf, 0, b.cfg.WalkableHeight)
	require.NotNil(t, lset)
	require.Equal(t, 2, lset.NLayers())

	walkable := 0
	for _, a := range b.chf.Areas {
		if a != RC_NULL_AREA {
			walkable++
		}
	}
	total := 0
	for _, layer := range lset.Layers {
		assert.LessOrEqual(t, layer.Minx, layer.Maxx)
		chf := RcCompactHeightfieldFromLayer(nil, layer, b.cfg.WalkableHeight, b.cfg.WalkableClimb)
		require.NotNil(t, chf)
		total += chf.SpanCount
		for i := range chf.Spans {
			assert.LessOrEqual(t, int(chf.Spans[i].Y), layer.Hmax-layer.Hmin)
		}
	}
	assert.Equal(t, walkable, total, "every walkable span lands in exactly one layer")
	assert.Less(t, lset.Layers[0].Bmin[1], lset.Layers[1].Bmin[1])
}

func TestPolyMeshFromLayerMatchesTile(t *testing.T) {
	verts, tris := quad(0, 0, 12, 12, 0, 0)
	b := runPipeline(t, verts, tris, false)

	lset := RcBuildHeightfieldLayers(nil, b.chf, 0, b.cfg.WalkableHeight)
	require.NotNil(t, lset)
	require.Equal(t, 1, lset.NLayers())

	chf := RcCompactHeightfieldFromLayer(nil, lset.Layers[0], b.cfg.WalkableHeight, b.cfg.WalkableClimb)
	require.True(t, RcBuildDistanceField(nil, chf))
	require.True(t, RcBuildRegions(nil, chf, 0, b.cfg.MinRegionArea, b.cfg.MergeRegionArea))
	cset := RcBuildContours(nil, chf, b.cfg.MaxSimplificationError, b.cfg.MaxEdgeLen, RC_CONTOUR_TESS_WALL_EDGES)
	require.NotNil(t, cset)
	pmesh := RcBuildPolyMesh(nil, cset, b.cfg.MaxVertsPerPoly)
	require.NotNil(t, pmesh)
	assert.Greater(t, pmesh.NPolys, 0)
}

type recordingContext struct {
	logs    []string
	started map[RcTimerLabel]int
	stopped map[RcTimerLabel]int
}

func (c *recordingContext) Log(category RcLogCategory, format string, args ...any) {
	c.logs = append(c.logs, format)
}
func (c *recordingContext) StartTimer(label RcTimerLabel) { c.started[label]++ }
func (c *recordingContext) StopTimer(label RcTimerLabel)  { c.stopped[label]++ }

func TestContextTimersArePaired(t *testing.T) {
	ctx := &recordingContext{started: map[RcTimerLabel]int{}, stopped: map[RcTimerLabel]int{}}
	verts, tris := quad(0, 0, 10, 10, 0, 0)
	bmin, bmax := RcCalcBounds(verts, 4)
	cfg := testConfig(bmin, bmax)
	hf := RcCreateHeightfield(ctx, cfg.Width, cfg.Height, cfg.Bmin[:], cfg.Bmax[:], cfg.Cs, cfg.Ch)
	areas := []uint8{RC_WALKABLE_AREA, RC_WALKABLE_AREA}
	require.True(t, RcRasterizeTriangles(ctx, verts, tris, areas, 2, hf, cfg.WalkableClimb))
	chf := RcBuildCompactHeightfield(ctx, cfg.WalkableHeight, cfg.WalkableClimb, hf)
	require.True(t, RcBuildDistanceField(ctx, chf))
	require.True(t, RcBuildRegions(ctx, chf, 0, cfg.MinRegionArea, cfg.MergeRegionArea))

	assert.Equal(t, ctx.started, ctx.stopped)
	assert.Equal(t, 1, ctx.started[RC_TIMER_RASTERIZE_TRIANGLES])
	assert.Equal(t, "rasterize", RC_TIMER_RASTERIZE_TRIANGLES.String())
}
