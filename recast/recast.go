package recast

import (
	"math"

	"github.com/gorustyt/navcore/common"
)

// / Recast log categories.
// / @see RcContext
type RcLogCategory int

const (
	RC_LOG_PROGRESS RcLogCategory = iota + 1 ///< A progress log entry.
	RC_LOG_WARNING                           ///< A warning log entry.
	RC_LOG_ERROR                             ///< An error log entry.
)

// / Recast performance timer categories.
type RcTimerLabel int

const (
	RC_TIMER_TOTAL RcTimerLabel = iota
	RC_TIMER_TEMP
	RC_TIMER_RASTERIZE_TRIANGLES
	RC_TIMER_BUILD_COMPACTHEIGHTFIELD
	RC_TIMER_BUILD_CONTOURS
	RC_TIMER_BUILD_CONTOURS_TRACE
	RC_TIMER_BUILD_CONTOURS_SIMPLIFY
	RC_TIMER_FILTER_BORDER
	RC_TIMER_FILTER_WALKABLE
	RC_TIMER_MEDIAN_AREA
	RC_TIMER_FILTER_LOW_OBSTACLES
	RC_TIMER_BUILD_POLYMESH
	RC_TIMER_MERGE_POLYMESH
	RC_TIMER_ERODE_AREA
	RC_TIMER_MARK_BOX_AREA
	RC_TIMER_MARK_CYLINDER_AREA
	RC_TIMER_MARK_CONVEXPOLY_AREA
	RC_TIMER_BUILD_DISTANCEFIELD
	RC_TIMER_BUILD_DISTANCEFIELD_DIST
	RC_TIMER_BUILD_DISTANCEFIELD_BLUR
	RC_TIMER_BUILD_REGIONS
	RC_TIMER_BUILD_REGIONS_WATERSHED
	RC_TIMER_BUILD_REGIONS_EXPAND
	RC_TIMER_BUILD_REGIONS_FLOOD
	RC_TIMER_BUILD_REGIONS_FILTER
	RC_TIMER_BUILD_LAYERS
	RC_TIMER_BUILD_POLYMESHDETAIL
	RC_TIMER_MERGE_POLYMESHDETAIL
	RC_MAX_TIMERS
)

var timerNames = [RC_MAX_TIMERS]string{
	"total", "temp", "rasterize", "compact", "contours", "contours.trace", "contours.simplify",
	"filter.border", "filter.walkable", "median.area", "filter.lowobstacles", "polymesh",
	"polymesh.merge", "erode", "mark.box", "mark.cylinder", "mark.convex", "distancefield",
	"distancefield.dist", "distancefield.blur", "regions", "regions.watershed", "regions.expand",
	"regions.flood", "regions.filter", "layers", "polymeshdetail", "polymeshdetail.merge",
}

func (l RcTimerLabel) String() string {
	if l < 0 || l >= RC_MAX_TIMERS {
		return "unknown"
	}
	return timerNames[l]
}

// RcContext receives log lines and stage timings from every build function.
// A nil context is allowed everywhere and drops everything.
type RcContext interface {
	Log(category RcLogCategory, format string, args ...any)
	StartTimer(label RcTimerLabel)
	StopTimer(label RcTimerLabel)
}

func ctxLog(ctx RcContext, category RcLogCategory, format string, args ...any) {
	if ctx != nil {
		ctx.Log(category, format, args...)
	}
}

// rcScopedTimer starts a timer and returns its stop func, meant for defer.
func rcScopedTimer(ctx RcContext, label RcTimerLabel) func() {
	if ctx == nil {
		return func() {}
	}
	ctx.StartTimer(label)
	return func() { ctx.StopTimer(label) }
}

// / Specifies a configuration to use when performing Recast builds.
type RcConfig struct {
	/// The width of the field along the x-axis. [Limit: >= 0] [Units: vx]
	Width int
	/// The height of the field along the z-axis. [Limit: >= 0] [Units: vx]
	Height int
	/// The width/height size of tile's on the xz-plane. [Limit: >= 0] [Units: vx]
	TileSize int
	/// The size of the non-navigable border around the heightfield. [Limit: >=0] [Units: vx]
	BorderSize int
	/// The xz-plane cell size to use for fields. [Limit: > 0] [Units: wu]
	Cs float32
	/// The y-axis cell size to use for fields. [Limit: > 0] [Units: wu]
	Ch float32
	/// The minimum bounds of the field's AABB. [(x, y, z)] [Units: wu]
	Bmin [3]float32
	/// The maximum bounds of the field's AABB. [(x, y, z)] [Units: wu]
	Bmax [3]float32
	/// The maximum slope that is considered walkable. [Limits: 0 <= value < 90] [Units: Degrees]
	WalkableSlopeAngle float32
	/// Minimum floor to 'ceiling' height that will still allow the floor area to
	/// be considered walkable. [Limit: >= 3] [Units: vx]
	WalkableHeight int
	/// Maximum ledge height that is considered to still be traversable. [Limit: >=0] [Units: vx]
	WalkableClimb int
	/// The distance to erode/shrink the walkable area of the heightfield away from
	/// obstructions.  [Limit: >=0] [Units: vx]
	WalkableRadius int
	/// The maximum allowed length for contour edges along the border of the mesh. [Limit: >=0] [Units: vx]
	MaxEdgeLen int
	/// The maximum distance a simplified contour's border edges should deviate
	/// the raw contour. [Limit: >=0] [Units: vx]
	MaxSimplificationError float32
	/// The minimum number of cells allowed to form isolated island areas. [Limit: >=0] [Units: vx]
	MinRegionArea int
	/// Any regions with a span count smaller than this value will, if possible,
	/// be merged with larger regions. [Limit: >=0] [Units: vx]
	MergeRegionArea int
	/// The maximum number of vertices allowed for polygons generated during the
	/// contour to polygon conversion process. [Limit: >= 3]
	MaxVertsPerPoly int
	/// Sets the sampling distance to use when generating the detail mesh.
	/// (For height detail only.) [Limits: 0 or >= 0.9] [Units: wu]
	DetailSampleDist float32
	/// The maximum distance the detail mesh surface should deviate from heightfield
	/// data. (For height detail only.) [Limit: >=0] [Units: wu]
	DetailSampleMaxError float32
}

const (
	/// Defines the number of bits allocated to rcSpan::smin and rcSpan::smax.
	RC_SPAN_HEIGHT_BITS = 13
	/// Defines the maximum value for rcSpan::smin and rcSpan::smax.
	RC_SPAN_MAX_HEIGHT = (1 << RC_SPAN_HEIGHT_BITS) - 1

	/// Heightfield border flag.
	/// If a heightfield region ID has this bit set, then the region is a border
	/// region and its spans are considered unwalkable.
	RC_BORDER_REG = 0x8000

	/// Polygon touches multiple regions.
	RC_MULTIPLE_REGS = 0

	/// Border vertex flag.
	RC_BORDER_VERTEX = 0x10000
	/// Area border flag.
	RC_AREA_BORDER = 0x20000
	/// Applied to the region id field of contour vertices in order to extract the region id.
	RC_CONTOUR_REG_MASK = 0xffff

	/// An value which indicates an invalid index within a mesh.
	RC_MESH_NULL_IDX = 0xffff

	/// Represents the null area.
	RC_NULL_AREA = 0
	/// The default area id used to indicate a walkable polygon.
	/// This is also the maximum allowed area id.
	RC_WALKABLE_AREA = 63

	/// The value returned by RcGetCon if the specified direction is not connected
	/// to another span. (Has no neighbor.)
	RC_NOT_CONNECTED = 0x3f

	/// Contour build flags.
	RC_CONTOUR_TESS_WALL_EDGES = 0x01 ///< Tessellate solid (impassable) edges during contour simplification.
	RC_CONTOUR_TESS_AREA_EDGES = 0x02 ///< Tessellate edges between areas during contour simplification.
)

// / Represents a span in a heightfield.
type RcSpan struct {
	smin uint32  ///< The lower limit of the span. [Limit: < #smax]
	smax uint32  ///< The upper limit of the span. [Limit: <= #RC_SPAN_MAX_HEIGHT]
	area uint8   ///< The area id assigned to the span.
	next *RcSpan ///< The next span higher up in column.
}

func (s *RcSpan) Min() int      { return int(s.smin) }
func (s *RcSpan) Max() int      { return int(s.smax) }
func (s *RcSpan) Area() uint8   { return s.area }
func (s *RcSpan) Next() *RcSpan { return s.next }

// / A dynamic heightfield representing obstructed space.
type RcHeightfield struct {
	Width  int        ///< The width of the heightfield. (Along the x-axis in cell units.)
	Height int        ///< The height of the heightfield. (Along the z-axis in cell units.)
	Bmin   [3]float32 ///< The minimum bounds in world space. [(x, y, z)]
	Bmax   [3]float32 ///< The maximum bounds in world space. [(x, y, z)]
	Cs     float32    ///< The size of each cell. (On the xz-plane.)
	Ch     float32    ///< The height of each cell. (The minimum increment along the y-axis.)
	Spans  []*RcSpan  ///< Heightfield of spans (width*height).
}

// / Provides information on the content of a cell column in a compact heightfield.
type RcCompactCell struct {
	Index uint32 ///< Index to the first span in the column.
	Count uint8  ///< Number of spans in the column.
}

// / Represents a span of unobstructed space within a compact heightfield.
type RcCompactSpan struct {
	Y   uint16 ///< The lower extent of the span. (Measured from the heightfield's base.)
	Reg uint16 ///< The id of the region the span belongs to. (Or zero if not in a region.)
	Con uint32 ///< Packed neighbor connection data.
	H   uint8  ///< The height of the span.  (Measured from #y.)
}

// / A compact, static heightfield representing unobstructed space.
type RcCompactHeightfield struct {
	Width          int ///< The width of the heightfield. (Along the x-axis in cell units.)
	Height         int ///< The height of the heightfield. (Along the z-axis in cell units.)
	SpanCount      int ///< The number of spans in the heightfield.
	WalkableHeight int ///< The walkable height used during the build of the field.
	WalkableClimb  int ///< The walkable climb used during the build of the field.
	BorderSize     int ///< The AABB border size used during the build of the field.
	MaxDistance    uint16
	MaxRegions     uint16
	Bmin           [3]float32
	Bmax           [3]float32
	Cs             float32
	Ch             float32
	Cells          []RcCompactCell
	Spans          []RcCompactSpan
	Dist           []uint16 ///< Array containing border distance data. [Size: #spanCount]
	Areas          []uint8  ///< Array containing area id data. [Size: #spanCount]
}

// / Sets the neighbor connection data for the specified direction.
func RcSetCon(span *RcCompactSpan, direction int, neighborIndex int) {
	shift := uint32(direction * 6)
	con := span.Con
	span.Con = (con &^ (0x3f << shift)) | ((uint32(neighborIndex) & 0x3f) << shift)
}

// / Gets neighbor connection data for the specified direction.
// / @return The neighbor connection data for the specified direction, or #RC_NOT_CONNECTED
// / if there is no connection.
func RcGetCon(span *RcCompactSpan, direction int) int {
	shift := uint32(direction * 6)
	return int((span.Con >> shift) & 0x3f)
}

func RcCalcBounds(verts []float32, numVerts int) (bmin, bmax [3]float32) {
	if numVerts == 0 {
		return
	}
	copy(bmin[:], verts[:3])
	copy(bmax[:], verts[:3])
	for i := 1; i < numVerts; i++ {
		v := common.GetVert3(verts, i)
		common.Vmin(bmin[:], v)
		common.Vmax(bmax[:], v)
	}
	return
}

func RcCalcGridSize(bmin, bmax []float32, cs float32) (sizeX, sizeZ int) {
	sizeX = int((bmax[0]-bmin[0])/cs + 0.5)
	sizeZ = int((bmax[2]-bmin[2])/cs + 0.5)
	return
}

func calcTriNormal(v0, v1, v2 []float32, norm []float32) {
	var e0, e1 [3]float32
	common.Vsub(e0[:], v1, v0)
	common.Vsub(e1[:], v2, v0)
	common.Vcross(norm, e0[:], e1[:])
	common.Vnormalize(norm)
}

// / Sets the area id of all triangles with a slope below the specified value
// / to #RC_WALKABLE_AREA.
func RcMarkWalkableTriangles(ctx RcContext, walkableSlopeAngle float32, verts []float32,
	tris []int32, numTris int, triAreaIDs []uint8) {
	walkableThr := float32(math.Cos(float64(walkableSlopeAngle) / 180.0 * math.Pi))
	var norm [3]float32
	for i := 0; i < numTris; i++ {
		tri := tris[i*3:]
		calcTriNormal(common.GetVert3(verts, int(tri[0])), common.GetVert3(verts, int(tri[1])), common.GetVert3(verts, int(tri[2])), norm[:])
		if norm[1] > walkableThr {
			triAreaIDs[i] = RC_WALKABLE_AREA
		}
	}
}

// RcMarkWalkableTrianglesBySlope classifies every triangle against its own slope limit.
// Triangles steeper than their limit become #RC_NULL_AREA, the rest take the area id
// from triAreas, with area 0 promoted to #RC_WALKABLE_AREA so it is not mistaken for null.
func RcMarkWalkableTrianglesBySlope(ctx RcContext, verts []float32, tris []int32, numTris int,
	triAreas []uint8, triSlopes []float32, out []uint8) {
	var norm [3]float32
	for i := 0; i < numTris; i++ {
		tri := tris[i*3:]
		calcTriNormal(common.GetVert3(verts, int(tri[0])), common.GetVert3(verts, int(tri[1])), common.GetVert3(verts, int(tri[2])), norm[:])
		thr := float32(math.Cos(float64(triSlopes[i]) / 180.0 * math.Pi))
		if norm[1] <= thr {
			out[i] = RC_NULL_AREA
			continue
		}
		area := triAreas[i]
		if area == RC_NULL_AREA {
			area = RC_WALKABLE_AREA
		}
		out[i] = area
	}
}

// / Sets the area id of all triangles with a slope greater than or equal to the specified
// / value to #RC_NULL_AREA.
func RcClearUnwalkableTriangles(ctx RcContext, walkableSlopeAngle float32, verts []float32,
	tris []int32, numTris int, triAreaIDs []uint8) {
	walkableLimitY := float32(math.Cos(float64(walkableSlopeAngle) / 180.0 * math.Pi))
	var norm [3]float32
	for i := 0; i < numTris; i++ {
		tri := tris[i*3:]
		calcTriNormal(common.GetVert3(verts, int(tri[0])), common.GetVert3(verts, int(tri[1])), common.GetVert3(verts, int(tri[2])), norm[:])
		if norm[1] <= walkableLimitY {
			triAreaIDs[i] = RC_NULL_AREA
		}
	}
}

func RcCreateHeightfield(ctx RcContext, sizeX, sizeZ int, bmin, bmax []float32, cs, ch float32) *RcHeightfield {
	if sizeX <= 0 || sizeZ <= 0 {
		ctxLog(ctx, RC_LOG_ERROR, "rcCreateHeightfield: invalid size %dx%d", sizeX, sizeZ)
		return nil
	}
	hf := &RcHeightfield{
		Width:  sizeX,
		Height: sizeZ,
		Cs:     cs,
		Ch:     ch,
		Spans:  make([]*RcSpan, sizeX*sizeZ),
	}
	copy(hf.Bmin[:], bmin)
	copy(hf.Bmax[:], bmax)
	return hf
}

// / Returns the number of spans contained in the specified heightfield.
func RcGetHeightFieldSpanCount(hf *RcHeightfield) int {
	spanCount := 0
	for _, s := range hf.Spans {
		for ; s != nil; s = s.next {
			if s.area != RC_NULL_AREA {
				spanCount++
			}
		}
	}
	return spanCount
}

// / Builds a compact heightfield representing open space, from a heightfield representing solid space.
func RcBuildCompactHeightfield(ctx RcContext, walkableHeight, walkableClimb int, hf *RcHeightfield) *RcCompactHeightfield {
	defer rcScopedTimer(ctx, RC_TIMER_BUILD_COMPACTHEIGHTFIELD)()

	xSize := hf.Width
	zSize := hf.Height
	spanCount := RcGetHeightFieldSpanCount(hf)

	chf := &RcCompactHeightfield{
		Width:          xSize,
		Height:         zSize,
		SpanCount:      spanCount,
		WalkableHeight: walkableHeight,
		WalkableClimb:  walkableClimb,
		Bmin:           hf.Bmin,
		Bmax:           hf.Bmax,
		Cs:             hf.Cs,
		Ch:             hf.Ch,
		Cells:          make([]RcCompactCell, xSize*zSize),
		Spans:          make([]RcCompactSpan, spanCount),
		Areas:          make([]uint8, spanCount),
	}
	chf.Bmax[1] += float32(walkableHeight) * hf.Ch
	const maxHeight = 0xffff

	// Fill in cells and spans.
	idx := 0
	for col, s := range hf.Spans {
		if s == nil {
			continue
		}
		c := &chf.Cells[col]
		c.Index = uint32(idx)
		c.Count = 0
		for ; s != nil; s = s.next {
			if s.area == RC_NULL_AREA {
				continue
			}
			bot := int(s.smax)
			top := maxHeight
			if s.next != nil {
				top = int(s.next.smin)
			}
			chf.Spans[idx].Y = uint16(common.Clamp(bot, 0, 0xffff))
			chf.Spans[idx].H = uint8(common.Clamp(top-bot, 0, 0xff))
			chf.Areas[idx] = s.area
			idx++
			c.Count++
		}
	}

	// Find neighbour connections.
	const maxLayers = RC_NOT_CONNECTED - 1
	tooHighNeighbour := 0
	for z := 0; z < zSize; z++ {
		for x := 0; x < xSize; x++ {
			c := &chf.Cells[x+z*xSize]
			for i := int(c.Index); i < int(c.Index)+int(c.Count); i++ {
				s := &chf.Spans[i]
				for dir := 0; dir < 4; dir++ {
					RcSetCon(s, dir, RC_NOT_CONNECTED)
					nx := x + common.GetDirOffsetX(dir)
					nz := z + common.GetDirOffsetY(dir)
					// First check that the neighbour cell is in bounds.
					if nx < 0 || nz < 0 || nx >= xSize || nz >= zSize {
						continue
					}
					// Iterate over all neighbour spans and check if any of the is
					// accessible from current cell.
					nc := &chf.Cells[nx+nz*xSize]
					for k := int(nc.Index); k < int(nc.Index)+int(nc.Count); k++ {
						ns := &chf.Spans[k]
						bot := max(int(s.Y), int(ns.Y))
						top := min(int(s.Y)+int(s.H), int(ns.Y)+int(ns.H))
						// Check that the gap between the spans is walkable,
						// and that the climb height between the gaps is not too high.
						if (top-bot) >= walkableHeight && common.Abs(int(ns.Y)-int(s.Y)) <= walkableClimb {
							lidx := k - int(nc.Index)
							if lidx < 0 || lidx > maxLayers {
								tooHighNeighbour = max(tooHighNeighbour, lidx)
								continue
							}
							RcSetCon(s, dir, lidx)
							break
						}
					}
				}
			}
		}
	}
	if tooHighNeighbour > maxLayers {
		ctxLog(ctx, RC_LOG_ERROR, "rcBuildCompactHeightfield: Heightfield has too many layers %d (max: %d)", tooHighNeighbour, maxLayers)
	}
	return chf
}
