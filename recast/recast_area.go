package recast

import (
	"sort"

	"github.com/gorustyt/navcore/common"
)

// / Erodes the walkable area within the heightfield by the specified radius.
func RcErodeWalkableArea(ctx RcContext, erosionRadius int, chf *RcCompactHeightfield) bool {
	defer rcScopedTimer(ctx, RC_TIMER_ERODE_AREA)()
	xSize := chf.Width
	zSize := chf.Height
	zStride := xSize

	distanceToBoundary := make([]uint8, chf.SpanCount)
	for i := range distanceToBoundary {
		distanceToBoundary[i] = 0xff
	}

	// Mark boundary cells.
	for z := 0; z < zSize; z++ {
		for x := 0; x < xSize; x++ {
			cell := &chf.Cells[x+z*zStride]
			for spanIndex := int(cell.Index); spanIndex < int(cell.Index)+int(cell.Count); spanIndex++ {
				if chf.Areas[spanIndex] == RC_NULL_AREA {
					distanceToBoundary[spanIndex] = 0
					continue
				}
				span := &chf.Spans[spanIndex]
				// Check that there is a non-null adjacent span in each of the 4 cardinal directions.
				neighborCount := 0
				for direction := 0; direction < 4; direction++ {
					neighborConnection := RcGetCon(span, direction)
					if neighborConnection == RC_NOT_CONNECTED {
						break
					}
					neighborX := x + common.GetDirOffsetX(direction)
					neighborZ := z + common.GetDirOffsetY(direction)
					neighborSpanIndex := int(chf.Cells[neighborX+neighborZ*zStride].Index) + neighborConnection
					if chf.Areas[neighborSpanIndex] == RC_NULL_AREA {
						break
					}
					neighborCount++
				}
				// At least one missing neighbour, so this is a boundary cell.
				if neighborCount != 4 {
					distanceToBoundary[spanIndex] = 0
				}
			}
		}
	}

	var newDistance uint8

	// Pass 1
	for z := 0; z < zSize; z++ {
		for x := 0; x < xSize; x++ {
			cell := &chf.Cells[x+z*zStride]
			for spanIndex := int(cell.Index); spanIndex < int(cell.Index)+int(cell.Count); spanIndex++ {
				span := &chf.Spans[spanIndex]
				if RcGetCon(span, 0) != RC_NOT_CONNECTED {
					// (-1,0)
					aX := x + common.GetDirOffsetX(0)
					aY := z + common.GetDirOffsetY(0)
					aIndex := int(chf.Cells[aX+aY*xSize].Index) + RcGetCon(span, 0)
					aSpan := &chf.Spans[aIndex]
					newDistance = uint8(min(int(distanceToBoundary[aIndex])+2, 255))
					if newDistance < distanceToBoundary[spanIndex] {
						distanceToBoundary[spanIndex] = newDistance
					}
					// (-1,-1)
					if RcGetCon(aSpan, 3) != RC_NOT_CONNECTED {
						bX := aX + common.GetDirOffsetX(3)
						bY := aY + common.GetDirOffsetY(3)
						bIndex := int(chf.Cells[bX+bY*xSize].Index) + RcGetCon(aSpan, 3)
						newDistance = uint8(min(int(distanceToBoundary[bIndex])+3, 255))
						if newDistance < distanceToBoundary[spanIndex] {
							distanceToBoundary[spanIndex] = newDistance
						}
					}
				}
				if RcGetCon(span, 3) != RC_NOT_CONNECTED {
					// (0,-1)
					aX := x + common.GetDirOffsetX(3)
					aY := z + common.GetDirOffsetY(3)
					aIndex := int(chf.Cells[aX+aY*xSize].Index) + RcGetCon(span, 3)
					aSpan := &chf.Spans[aIndex]
					newDistance = uint8(min(int(distanceToBoundary[aIndex])+2, 255))
					if newDistance < distanceToBoundary[spanIndex] {
						distanceToBoundary[spanIndex] = newDistance
					}
					// (1,-1)
					if RcGetCon(aSpan, 2) != RC_NOT_CONNECTED {
						bX := aX + common.GetDirOffsetX(2)
						bY := aY + common.GetDirOffsetY(2)
						bIndex := int(chf.Cells[bX+bY*xSize].Index) + RcGetCon(aSpan, 2)
						newDistance = uint8(min(int(distanceToBoundary[bIndex])+3, 255))
						if newDistance < distanceToBoundary[spanIndex] {
							distanceToBoundary[spanIndex] = newDistance
						}
					}
				}
			}
		}
	}

	// Pass 2
	for z := zSize - 1; z >= 0; z-- {
		for x := xSize - 1; x >= 0; x-- {
			cell := &chf.Cells[x+z*zStride]
			for spanIndex := int(cell.Index); spanIndex < int(cell.Index)+int(cell.Count); spanIndex++ {
				span := &chf.Spans[spanIndex]
				if RcGetCon(span, 2) != RC_NOT_CONNECTED {
					// (1,0)
					aX := x + common.GetDirOffsetX(2)
					aY := z + common.GetDirOffsetY(2)
					aIndex := int(chf.Cells[aX+aY*xSize].Index) + RcGetCon(span, 2)
					aSpan := &chf.Spans[aIndex]
					newDistance = uint8(min(int(distanceToBoundary[aIndex])+2, 255))
					if newDistance < distanceToBoundary[spanIndex] {
						distanceToBoundary[spanIndex] = newDistance
					}
					// (1,1)
					if RcGetCon(aSpan, 1) != RC_NOT_CONNECTED {
						bX := aX + common.GetDirOffsetX(1)
						bY := aY + common.GetDirOffsetY(1)
						bIndex := int(chf.Cells[bX+bY*xSize].Index) + RcGetCon(aSpan, 1)
						newDistance = uint8(min(int(distanceToBoundary[bIndex])+3, 255))
						if newDistance < distanceToBoundary[spanIndex] {
							distanceToBoundary[spanIndex] = newDistance
						}
					}
				}
				if RcGetCon(span, 1) != RC_NOT_CONNECTED {
					// (0,1)
					aX := x + common.GetDirOffsetX(1)
					aY := z + common.GetDirOffsetY(1)
					aIndex := int(chf.Cells[aX+aY*xSize].Index) + RcGetCon(span, 1)
					aSpan := &chf.Spans[aIndex]
					newDistance = uint8(min(int(distanceToBoundary[aIndex])+2, 255))
					if newDistance < distanceToBoundary[spanIndex] {
						distanceToBoundary[spanIndex] = newDistance
					}
					// (-1,1)
					if RcGetCon(aSpan, 0) != RC_NOT_CONNECTED {
						bX := aX + common.GetDirOffsetX(0)
						bY := aY + common.GetDirOffsetY(0)
						bIndex := int(chf.Cells[bX+bY*xSize].Index) + RcGetCon(aSpan, 0)
						newDistance = uint8(min(int(distanceToBoundary[bIndex])+3, 255))
						if newDistance < distanceToBoundary[spanIndex] {
							distanceToBoundary[spanIndex] = newDistance
						}
					}
				}
			}
		}
	}

	minBoundaryDistance := uint8(min(erosionRadius*2, 255))
	for spanIndex := 0; spanIndex < chf.SpanCount; spanIndex++ {
		if distanceToBoundary[spanIndex] < minBoundaryDistance {
			chf.Areas[spanIndex] = RC_NULL_AREA
		}
	}
	return true
}

// / Applies a median filter to walkable area types (based on area id), removing noise.
func RcMedianFilterWalkableArea(ctx RcContext, chf *RcCompactHeightfield) bool {
	defer rcScopedTimer(ctx, RC_TIMER_MEDIAN_AREA)()
	w := chf.Width
	h := chf.Height
	areas := make([]uint8, chf.SpanCount)
	for i := range areas {
		areas[i] = 0xff
	}
	var nei [9]int
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := &chf.Cells[x+y*w]
			for i := int(c.Index); i < int(c.Index)+int(c.Count); i++ {
				s := &chf.Spans[i]
				if chf.Areas[i] == RC_NULL_AREA {
					areas[i] = chf.Areas[i]
					continue
				}
				for j := range nei {
					nei[j] = int(chf.Areas[i])
				}
				for dir := 0; dir < 4; dir++ {
					if RcGetCon(s, dir) == RC_NOT_CONNECTED {
						continue
					}
					ax := x + common.GetDirOffsetX(dir)
					ay := y + common.GetDirOffsetY(dir)
					ai := int(chf.Cells[ax+ay*w].Index) + RcGetCon(s, dir)
					if chf.Areas[ai] != RC_NULL_AREA {
						nei[dir*2+0] = int(chf.Areas[ai])
					}
					as := &chf.Spans[ai]
					dir2 := (dir + 1) & 0x3
					if RcGetCon(as, dir2) != RC_NOT_CONNECTED {
						ax2 := ax + common.GetDirOffsetX(dir2)
						ay2 := ay + common.GetDirOffsetY(dir2)
						ai2 := int(chf.Cells[ax2+ay2*w].Index) + RcGetCon(as, dir2)
						if chf.Areas[ai2] != RC_NULL_AREA {
							nei[dir*2+1] = int(chf.Areas[ai2])
						}
					}
				}
				sorted := nei
				sort.Ints(sorted[:])
				areas[i] = uint8(sorted[4])
			}
		}
	}
	copy(chf.Areas, areas)
	return true
}

// / Applies an area id to all spans within the specified bounding box. (AABB)
func RcMarkBoxArea(ctx RcContext, bmin, bmax []float32, areaID uint8, chf *RcCompactHeightfield) {
	defer rcScopedTimer(ctx, RC_TIMER_MARK_BOX_AREA)()
	xSize := chf.Width
	zSize := chf.Height

	// Find the footprint of the box area in grid cell coordinates.
	minX := int((bmin[0] - chf.Bmin[0]) / chf.Cs)
	minY := int((bmin[1] - chf.Bmin[1]) / chf.Ch)
	minZ := int((bmin[2] - chf.Bmin[2]) / chf.Cs)
	maxX := int((bmax[0] - chf.Bmin[0]) / chf.Cs)
	maxY := int((bmax[1] - chf.Bmin[1]) / chf.Ch)
	maxZ := int((bmax[2] - chf.Bmin[2]) / chf.Cs)

	// Early-out if the box is outside the bounds of the grid.
	if maxX < 0 || minX >= xSize || maxZ < 0 || minZ >= zSize {
		return
	}
	// Clamp relevant bound coordinates to the grid.
	minX = max(minX, 0)
	maxX = min(maxX, xSize-1)
	minZ = max(minZ, 0)
	maxZ = min(maxZ, zSize-1)

	for z := minZ; z <= maxZ; z++ {
		for x := minX; x <= maxX; x++ {
			cell := &chf.Cells[x+z*xSize]
			for spanIdx := int(cell.Index); spanIdx < int(cell.Index)+int(cell.Count); spanIdx++ {
				span := &chf.Spans[spanIdx]
				// Skip if the span is outside the box extents.
				if int(span.Y) < minY || int(span.Y) > maxY {
					continue
				}
				// Skip if the span has been removed.
				if chf.Areas[spanIdx] == RC_NULL_AREA {
					continue
				}
				chf.Areas[spanIdx] = areaID
			}
		}
	}
}

// / Applies the area id to the all spans within the specified convex polygon.
// / The y-values of the polygon vertices are ignored, the polygon is projected onto the xz-plane,
// / then extruded over [minY, maxY].
func RcMarkConvexPolyArea(ctx RcContext, verts []float32, numVerts int, minY, maxY float32, areaID uint8, chf *RcCompactHeightfield) {
	defer rcScopedTimer(ctx, RC_TIMER_MARK_CONVEXPOLY_AREA)()
	xSize := chf.Width
	zSize := chf.Height

	// Compute the bounding box of the polygon
	var bmin, bmax [3]float32
	copy(bmin[:], verts[:3])
	copy(bmax[:], verts[:3])
	for i := 1; i < numVerts; i++ {
		common.Vmin(bmin[:], verts[i*3:])
		common.Vmax(bmax[:], verts[i*3:])
	}
	bmin[1] = minY
	bmax[1] = maxY

	// Compute the grid footprint of the polygon
	minx := int((bmin[0] - chf.Bmin[0]) / chf.Cs)
	miny := int((bmin[1] - chf.Bmin[1]) / chf.Ch)
	minz := int((bmin[2] - chf.Bmin[2]) / chf.Cs)
	maxx := int((bmax[0] - chf.Bmin[0]) / chf.Cs)
	maxy := int((bmax[1] - chf.Bmin[1]) / chf.Ch)
	maxz := int((bmax[2] - chf.Bmin[2]) / chf.Cs)

	// Early-out if the polygon lies entirely outside the grid.
	if maxx < 0 || minx >= xSize || maxz < 0 || minz >= zSize {
		return
	}
	// Clamp the polygon footprint to the grid
	minx = max(minx, 0)
	maxx = min(maxx, xSize-1)
	minz = max(minz, 0)
	maxz = min(maxz, zSize-1)

	for z := minz; z <= maxz; z++ {
		for x := minx; x <= maxx; x++ {
			cell := &chf.Cells[x+z*xSize]
			for spanIdx := int(cell.Index); spanIdx < int(cell.Index)+int(cell.Count); spanIdx++ {
				span := &chf.Spans[spanIdx]
				// Skip if span is removed.
				if chf.Areas[spanIdx] == RC_NULL_AREA {
					continue
				}
				// Skip if y extents don't overlap.
				if int(span.Y) < miny || int(span.Y) > maxy {
					continue
				}
				point := [3]float32{
					chf.Bmin[0] + (float32(x)+0.5)*chf.Cs,
					0,
					chf.Bmin[2] + (float32(z)+0.5)*chf.Cs,
				}
				if common.PointInPolygon(point[:], verts, numVerts) {
					chf.Areas[spanIdx] = areaID
				}
			}
		}
	}
}

// / Applies the area id to all spans within the specified y-axis-aligned cylinder.
func RcMarkCylinderArea(ctx RcContext, position []float32, radius, height float32, areaID uint8, chf *RcCompactHeightfield) {
	defer rcScopedTimer(ctx, RC_TIMER_MARK_CYLINDER_AREA)()
	xSize := chf.Width
	zSize := chf.Height

	// Compute the bounding box of the cylinder
	cylinderBBMin := [3]float32{position[0] - radius, position[1], position[2] - radius}
	cylinderBBMax := [3]float32{position[0] + radius, position[1] + height, position[2] + radius}

	// Compute the grid footprint of the cylinder
	minx := int((cylinderBBMin[0] - chf.Bmin[0]) / chf.Cs)
	miny := int((cylinderBBMin[1] - chf.Bmin[1]) / chf.Ch)
	minz := int((cylinderBBMin[2] - chf.Bmin[2]) / chf.Cs)
	maxx := int((cylinderBBMax[0] - chf.Bmin[0]) / chf.Cs)
	maxy := int((cylinderBBMax[1] - chf.Bmin[1]) / chf.Ch)
	maxz := int((cylinderBBMax[2] - chf.Bmin[2]) / chf.Cs)

	// Early-out if the cylinder is completely outside the grid bounds.
	if maxx < 0 || minx >= xSize || maxz < 0 || minz >= zSize {
		return
	}
	// Clamp the cylinder bounds to the grid.
	minx = max(minx, 0)
	maxx = min(maxx, xSize-1)
	minz = max(minz, 0)
	maxz = min(maxz, zSize-1)

	radiusSq := radius * radius
	for z := minz; z <= maxz; z++ {
		for x := minx; x <= maxx; x++ {
			cell := &chf.Cells[x+z*xSize]
			cellX := chf.Bmin[0] + (float32(x)+0.5)*chf.Cs
			cellZ := chf.Bmin[2] + (float32(z)+0.5)*chf.Cs
			deltaX := cellX - position[0]
			deltaZ := cellZ - position[2]
			// Skip this column if it's too far from the center point of the cylinder.
			if deltaX*deltaX+deltaZ*deltaZ >= radiusSq {
				continue
			}
			// Mark all overlapping spans
			for spanIdx := int(cell.Index); spanIdx < int(cell.Index)+int(cell.Count); spanIdx++ {
				span := &chf.Spans[spanIdx]
				// Skip if span is removed.
				if chf.Areas[spanIdx] == RC_NULL_AREA {
					continue
				}
				// Mark if y extents overlap.
				if int(span.Y) >= miny && int(span.Y) <= maxy {
					chf.Areas[spanIdx] = areaID
				}
			}
		}
	}
}
