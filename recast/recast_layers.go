package recast

import "github.com/gorustyt/navcore/common"

const (
	RC_MAX_LAYERS = 32
	// Height value of a layer cell that holds no span.
	RC_LAYER_EMPTY_HEIGHT = 0xffff
)

// / Represents a heightfield layer within a layer set.
// / The layer keeps the border cells of its source field so that tile edges can be
// / detected again when it is turned back into a compact heightfield.
type RcHeightfieldLayer struct {
	Bmin       [3]float32 ///< The minimum bounds in world space. [(x, y, z)]
	Bmax       [3]float32 ///< The maximum bounds in world space. [(x, y, z)]
	Cs         float32    ///< The size of each cell. (On the xz-plane.)
	Ch         float32    ///< The height of each cell. (The minimum increment along the y-axis.)
	Width      int        ///< The width of the heightfield. (Along the x-axis in cell units.)
	Height     int        ///< The height of the heightfield. (Along the z-axis in cell units.)
	BorderSize int
	Minx       int      ///< The minimum x-bounds of usable data.
	Maxx       int      ///< The maximum x-bounds of usable data.
	Miny       int      ///< The minimum y-bounds of usable data. (Along the z-axis.)
	Maxy       int      ///< The maximum y-bounds of usable data. (Along the z-axis.)
	Hmin       int      ///< The minimum height bounds of usable data. (Along the y-axis.)
	Hmax       int      ///< The maximum height bounds of usable data. (Along the y-axis.)
	Heights    []uint16 ///< The heightfield. [Size: width * height]
	Areas      []uint8  ///< Area ids. [Size: Same as #heights]
	Cons       []uint8  ///< Packed neighbor connection information. [Size: Same as #heights]
}

// / Represents a set of heightfield layers.
type RcHeightfieldLayerSet struct {
	Layers []*RcHeightfieldLayer
}

func (s *RcHeightfieldLayerSet) NLayers() int { return len(s.Layers) }

// / Builds a layer set from the specified compact heightfield.
// / Every walkable span is assigned to exactly one layer and a layer holds at most one
// / span per column. Layers are seeded from the lowest unassigned span of each column and
// / flooded through the span connections.
func RcBuildHeightfieldLayers(ctx RcContext, chf *RcCompactHeightfield, borderSize, walkableHeight int) *RcHeightfieldLayerSet {
	defer rcScopedTimer(ctx, RC_TIMER_BUILD_LAYERS)()

	w := chf.Width
	h := chf.Height
	const unassigned = 0xff

	layerID := make([]uint8, chf.SpanCount)
	for i := range layerID {
		layerID[i] = unassigned
	}
	remaining := 0
	for i := 0; i < chf.SpanCount; i++ {
		if chf.Areas[i] != RC_NULL_AREA {
			remaining++
		}
	}

	occupied := make([]int32, w*h)
	stack := make([]int32, 0, 256)
	nlayers := 0
	for remaining > 0 {
		if nlayers >= RC_MAX_LAYERS {
			ctxLog(ctx, RC_LOG_ERROR, "rcBuildHeightfieldLayers: Layer overflow (too many overlapping walkable platforms). Try increasing RC_MAX_LAYERS.")
			return nil
		}
		id := uint8(nlayers)
		for i := range occupied {
			occupied[i] = -1
		}
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				col := x + y*w
				if occupied[col] != -1 {
					continue
				}
				c := &chf.Cells[col]
				seed := -1
				for i := int(c.Index); i < int(c.Index)+int(c.Count); i++ {
					if chf.Areas[i] != RC_NULL_AREA && layerID[i] == unassigned {
						seed = i
						break
					}
				}
				if seed == -1 {
					continue
				}
				layerID[seed] = id
				occupied[col] = int32(seed)
				remaining--
				stack = append(stack[:0], int32(col), int32(seed))
				for len(stack) > 0 {
					ci := int(stack[len(stack)-2])
					si := int(stack[len(stack)-1])
					stack = stack[:len(stack)-2]
					cx := ci % w
					cy := ci / w
					s := &chf.Spans[si]
					for dir := 0; dir < 4; dir++ {
						if RcGetCon(s, dir) == RC_NOT_CONNECTED {
							continue
						}
						ax := cx + common.GetDirOffsetX(dir)
						ay := cy + common.GetDirOffsetY(dir)
						acol := ax + ay*w
						ai := int(chf.Cells[acol].Index) + RcGetCon(s, dir)
						if chf.Areas[ai] == RC_NULL_AREA || layerID[ai] != unassigned || occupied[acol] != -1 {
							continue
						}
						layerID[ai] = id
						occupied[acol] = int32(ai)
						remaining--
						stack = append(stack, int32(acol), int32(ai))
					}
				}
			}
		}
		nlayers++
	}

	lset := &RcHeightfieldLayerSet{Layers: make([]*RcHeightfieldLayer, 0, nlayers)}
	for l := 0; l < nlayers; l++ {
		id := uint8(l)
		layer := &RcHeightfieldLayer{
			Bmin:       chf.Bmin,
			Bmax:       chf.Bmax,
			Cs:         chf.Cs,
			Ch:         chf.Ch,
			Width:      w,
			Height:     h,
			BorderSize: borderSize,
			Minx:       w,
			Maxx:       0,
			Miny:       h,
			Maxy:       0,
			Hmin:       0xffff,
			Hmax:       0,
			Heights:    make([]uint16, w*h),
			Areas:      make([]uint8, w*h),
			Cons:       make([]uint8, w*h),
		}
		for i := range layer.Heights {
			layer.Heights[i] = RC_LAYER_EMPTY_HEIGHT
		}

		// Find layer height bounds.
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				c := &chf.Cells[x+y*w]
				for i := int(c.Index); i < int(c.Index)+int(c.Count); i++ {
					if layerID[i] != id {
						continue
					}
					sy := int(chf.Spans[i].Y)
					layer.Hmin = min(layer.Hmin, sy)
					layer.Hmax = max(layer.Hmax, sy)
				}
			}
		}

		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				c := &chf.Cells[x+y*w]
				for i := int(c.Index); i < int(c.Index)+int(c.Count); i++ {
					if layerID[i] != id {
						continue
					}
					s := &chf.Spans[i]
					idx := x + y*w
					layer.Heights[idx] = uint16(int(s.Y) - layer.Hmin)
					layer.Areas[idx] = chf.Areas[i]

					var con, portal uint8
					for dir := 0; dir < 4; dir++ {
						if RcGetCon(s, dir) == RC_NOT_CONNECTED {
							continue
						}
						ax := x + common.GetDirOffsetX(dir)
						ay := y + common.GetDirOffsetY(dir)
						ai := int(chf.Cells[ax+ay*w].Index) + RcGetCon(s, dir)
						if layerID[ai] == id {
							con |= 1 << dir
						} else if layerID[ai] != unassigned {
							portal |= 1 << dir
						}
					}
					layer.Cons[idx] = portal<<4 | con

					layer.Minx = min(layer.Minx, x)
					layer.Maxx = max(layer.Maxx, x)
					layer.Miny = min(layer.Miny, y)
					layer.Maxy = max(layer.Maxy, y)
				}
			}
		}

		layer.Bmin[1] = chf.Bmin[1] + float32(layer.Hmin)*chf.Ch
		layer.Bmax[1] = chf.Bmin[1] + float32(layer.Hmax+walkableHeight)*chf.Ch
		lset.Layers = append(lset.Layers, layer)
	}

	ctxLog(ctx, RC_LOG_PROGRESS, "rcBuildHeightfieldLayers: %d layers.", nlayers)
	return lset
}

// / Rebuilds a compact heightfield with one span per cell from a layer.
// / The layer's border size is restored so regions and contours treat it as a tile.
func RcCompactHeightfieldFromLayer(ctx RcContext, layer *RcHeightfieldLayer, walkableHeight, walkableClimb int) *RcCompactHeightfield {
	w := layer.Width
	h := layer.Height
	chf := &RcCompactHeightfield{
		Width:          w,
		Height:         h,
		WalkableHeight: walkableHeight,
		WalkableClimb:  walkableClimb,
		BorderSize:     layer.BorderSize,
		Bmin:           layer.Bmin,
		Bmax:           layer.Bmax,
		Cs:             layer.Cs,
		Ch:             layer.Ch,
		Cells:          make([]RcCompactCell, w*h),
	}

	spanIndex := make([]int32, w*h)
	for i := range spanIndex {
		spanIndex[i] = -1
		if layer.Heights[i] != RC_LAYER_EMPTY_HEIGHT {
			spanIndex[i] = int32(chf.SpanCount)
			chf.SpanCount++
		}
	}
	if chf.SpanCount == 0 {
		ctxLog(ctx, RC_LOG_WARNING, "rcCompactHeightfieldFromLayer: Empty layer.")
	}
	chf.Spans = make([]RcCompactSpan, chf.SpanCount)
	chf.Areas = make([]uint8, chf.SpanCount)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := x + y*w
			si := spanIndex[idx]
			if si < 0 {
				continue
			}
			chf.Cells[idx] = RcCompactCell{Index: uint32(si), Count: 1}
			s := &chf.Spans[si]
			s.Y = layer.Heights[idx]
			s.H = 0xff
			chf.Areas[si] = layer.Areas[idx]
			for dir := 0; dir < 4; dir++ {
				RcSetCon(s, dir, RC_NOT_CONNECTED)
				if layer.Cons[idx]&(1<<dir) == 0 {
					continue
				}
				ax := x + common.GetDirOffsetX(dir)
				ay := y + common.GetDirOffsetY(dir)
				if ax < 0 || ay < 0 || ax >= w || ay >= h || spanIndex[ax+ay*w] < 0 {
					continue
				}
				RcSetCon(s, dir, 0)
			}
		}
	}
	return chf
}
