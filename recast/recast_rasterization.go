package recast

import (
	"github.com/gorustyt/navcore/common"
)

// / Check whether two bounding boxes overlap
func overlapBounds(aMin, aMax, bMin, bMax []float32) bool {
	return aMin[0] <= bMax[0] && aMax[0] >= bMin[0] &&
		aMin[1] <= bMax[1] && aMax[1] >= bMin[1] &&
		aMin[2] <= bMax[2] && aMax[2] >= bMin[2]
}

// / Adds a span to the heightfield. If the new span overlaps existing spans,
// / it will merge the new span with the existing ones.
func addSpan(hf *RcHeightfield, x, z int, smin, smax uint32, areaID uint8, flagMergeThreshold int) {
	columnIndex := x + z*hf.Width
	newSpan := &RcSpan{smin: smin, smax: smax, area: areaID}

	// Empty cell, add the first span.
	if hf.Spans[columnIndex] == nil {
		hf.Spans[columnIndex] = newSpan
		return
	}
	var previousSpan *RcSpan
	currentSpan := hf.Spans[columnIndex]

	// Insert the new span, possibly merging it with existing spans.
	for currentSpan != nil {
		if currentSpan.smin > newSpan.smax {
			// Current span is completely after the new span, break.
			break
		}
		if currentSpan.smax < newSpan.smin {
			// Current span is completely before the new span.  Keep going.
			previousSpan = currentSpan
			currentSpan = currentSpan.next
			continue
		}
		// The new span overlaps with an existing span.  Merge them.
		if currentSpan.smin < newSpan.smin {
			newSpan.smin = currentSpan.smin
		}
		if currentSpan.smax > newSpan.smax {
			newSpan.smax = currentSpan.smax
		}
		// Merge flags.
		if common.Abs(int(newSpan.smax)-int(currentSpan.smax)) <= flagMergeThreshold {
			// Higher area ID numbers indicate higher resolution priority.
			newSpan.area = max(newSpan.area, currentSpan.area)
		}
		// Remove the current span since it's now merged with newSpan.
		next := currentSpan.next
		if previousSpan != nil {
			previousSpan.next = next
		} else {
			hf.Spans[columnIndex] = next
		}
		currentSpan = next
	}

	// Insert new span after prev
	if previousSpan != nil {
		newSpan.next = previousSpan.next
		previousSpan.next = newSpan
	} else {
		// This span should go before the others in the list
		newSpan.next = hf.Spans[columnIndex]
		hf.Spans[columnIndex] = newSpan
	}
}

// RcAddSpan adds a span to the specified heightfield column.
func RcAddSpan(ctx RcContext, hf *RcHeightfield, x, z int, spanMin, spanMax int, areaID uint8, flagMergeThreshold int) bool {
	if x < 0 || z < 0 || x >= hf.Width || z >= hf.Height || spanMin > spanMax {
		ctxLog(ctx, RC_LOG_ERROR, "rcAddSpan: invalid span (%d,%d) [%d,%d]", x, z, spanMin, spanMax)
		return false
	}
	addSpan(hf, x, z, uint32(spanMin), uint32(spanMax), areaID, flagMergeThreshold)
	return true
}

// / Divides a convex polygon of max 12 vertices into two convex polygons
// / across a separating axis.
func dividePoly(inVerts []float32, inVertsCount int, outVerts1 []float32, outVerts2 []float32, axisOffset float32, axis int) (poly1Count, poly2Count int) {
	// How far positive or negative away from the separating axis is each vertex.
	var inVertAxisDelta [12]float32
	for inVert := 0; inVert < inVertsCount; inVert++ {
		inVertAxisDelta[inVert] = axisOffset - inVerts[inVert*3+axis]
	}
	for inVertA, inVertB := 0, inVertsCount-1; inVertA < inVertsCount; inVertB, inVertA = inVertA, inVertA+1 {
		// If the two vertices are on the same side of the separating axis
		sameSide := (inVertAxisDelta[inVertA] >= 0) == (inVertAxisDelta[inVertB] >= 0)
		if !sameSide {
			s := inVertAxisDelta[inVertB] / (inVertAxisDelta[inVertB] - inVertAxisDelta[inVertA])
			for k := 0; k < 3; k++ {
				v := inVerts[inVertB*3+k] + (inVerts[inVertA*3+k]-inVerts[inVertB*3+k])*s
				outVerts1[poly1Count*3+k] = v
				outVerts2[poly2Count*3+k] = v
			}
			poly1Count++
			poly2Count++
			// add the inVertA point to the right polygon. Do NOT add points that are on the dividing line
			// since these were already added above
			if inVertAxisDelta[inVertA] > 0 {
				copy(outVerts1[poly1Count*3:poly1Count*3+3], inVerts[inVertA*3:inVertA*3+3])
				poly1Count++
			} else if inVertAxisDelta[inVertA] < 0 {
				copy(outVerts2[poly2Count*3:poly2Count*3+3], inVerts[inVertA*3:inVertA*3+3])
				poly2Count++
			}
		} else {
			// add the inVertA point to the right polygon. Addition is done even for points on the dividing line
			if inVertAxisDelta[inVertA] >= 0 {
				copy(outVerts1[poly1Count*3:poly1Count*3+3], inVerts[inVertA*3:inVertA*3+3])
				poly1Count++
				if inVertAxisDelta[inVertA] != 0 {
					continue
				}
			}
			copy(outVerts2[poly2Count*3:poly2Count*3+3], inVerts[inVertA*3:inVertA*3+3])
			poly2Count++
		}
	}
	return poly1Count, poly2Count
}

// / Rasterize a single triangle to the heightfield.
func rasterizeTri(v0, v1, v2 []float32, areaID uint8, hf *RcHeightfield, hfBBMin, hfBBMax []float32,
	cellSize, inverseCellSize, inverseCellHeight float32, flagMergeThreshold int) bool {
	// Calculate the bounding box of the triangle.
	var triBBMin, triBBMax [3]float32
	copy(triBBMin[:], v0)
	common.Vmin(triBBMin[:], v1)
	common.Vmin(triBBMin[:], v2)
	copy(triBBMax[:], v0)
	common.Vmax(triBBMax[:], v1)
	common.Vmax(triBBMax[:], v2)

	// If the triangle does not touch the bounding box of the heightfield, skip the triangle.
	if !overlapBounds(triBBMin[:], triBBMax[:], hfBBMin, hfBBMax) {
		return true
	}

	w := hf.Width
	h := hf.Height
	by := hfBBMax[1] - hfBBMin[1]

	// Calculate the footprint of the triangle on the grid's z-axis
	z0 := int((triBBMin[2] - hfBBMin[2]) * inverseCellSize)
	z1 := int((triBBMax[2] - hfBBMin[2]) * inverseCellSize)

	// use -1 rather than 0 to cut the polygon properly at the start of the tile
	z0 = common.Clamp(z0, -1, h-1)
	z1 = common.Clamp(z1, 0, h-1)

	// Clip the triangle into all grid cells it touches.
	var buf [7 * 3 * 4]float32
	in := buf[0:]
	inRow := buf[7*3:]
	p1 := buf[7*3*2:]
	p2 := buf[7*3*3:]

	copy(in[0:3], v0)
	copy(in[3:6], v1)
	copy(in[6:9], v2)
	nvRow := 0
	nvIn := 3

	for z := z0; z <= z1; z++ {
		// Clip polygon to row. Store the remaining polygon as well
		cellZ := hfBBMin[2] + float32(z)*cellSize
		nvRow, nvIn = dividePoly(in, nvIn, inRow, p1, cellZ+cellSize, 2)
		in, p1 = p1, in

		if nvRow < 3 {
			continue
		}
		if z < 0 {
			continue
		}

		// find X-axis bounds of the row
		minX := inRow[0]
		maxX := inRow[0]
		for vert := 1; vert < nvRow; vert++ {
			minX = min(minX, inRow[vert*3])
			maxX = max(maxX, inRow[vert*3])
		}
		x0 := int((minX - hfBBMin[0]) * inverseCellSize)
		x1 := int((maxX - hfBBMin[0]) * inverseCellSize)
		if x1 < 0 || x0 >= w {
			continue
		}
		x0 = common.Clamp(x0, -1, w-1)
		x1 = common.Clamp(x1, 0, w-1)

		nv := 0
		nv2 := nvRow

		for x := x0; x <= x1; x++ {
			// Clip polygon to column. store the remaining polygon as well
			cx := hfBBMin[0] + float32(x)*cellSize
			nv, nv2 = dividePoly(inRow, nv2, p1, p2, cx+cellSize, 0)
			inRow, p2 = p2, inRow

			if nv < 3 {
				continue
			}
			if x < 0 {
				continue
			}

			// Calculate min and max of the span.
			spanMin := p1[1]
			spanMax := p1[1]
			for vert := 1; vert < nv; vert++ {
				spanMin = min(spanMin, p1[vert*3+1])
				spanMax = max(spanMax, p1[vert*3+1])
			}
			spanMin -= hfBBMin[1]
			spanMax -= hfBBMin[1]

			// Skip the span if it's completely outside the heightfield bounding box
			if spanMax < 0.0 {
				continue
			}
			if spanMin > by {
				continue
			}

			// Clamp the span to the heightfield bounding box.
			if spanMin < 0.0 {
				spanMin = 0
			}
			if spanMax > by {
				spanMax = by
			}

			// Snap the span to the heightfield height grid.
			spanMinCellIndex := uint32(common.Clamp(int(spanMin*inverseCellHeight), 0, RC_SPAN_MAX_HEIGHT))
			spanMaxCellIndex := uint32(common.Clamp(int(spanMax*inverseCellHeight+1), int(spanMinCellIndex)+1, RC_SPAN_MAX_HEIGHT))
			addSpan(hf, x, z, spanMinCellIndex, spanMaxCellIndex, areaID, flagMergeThreshold)
		}
	}
	return true
}

// / Rasterizes a triangle into the specified heightfield.
func RcRasterizeTriangle(ctx RcContext, v0, v1, v2 []float32, areaID uint8, hf *RcHeightfield, flagMergeThreshold int) bool {
	defer rcScopedTimer(ctx, RC_TIMER_RASTERIZE_TRIANGLES)()
	ics := 1.0 / hf.Cs
	ich := 1.0 / hf.Ch
	if !rasterizeTri(v0, v1, v2, areaID, hf, hf.Bmin[:], hf.Bmax[:], hf.Cs, ics, ich, flagMergeThreshold) {
		ctxLog(ctx, RC_LOG_ERROR, "rcRasterizeTriangle: Out of memory.")
		return false
	}
	return true
}

// / Rasterizes an indexed triangle mesh into the specified heightfield.
func RcRasterizeTriangles(ctx RcContext, verts []float32, tris []int32, triAreaIDs []uint8, numTris int,
	hf *RcHeightfield, flagMergeThreshold int) bool {
	defer rcScopedTimer(ctx, RC_TIMER_RASTERIZE_TRIANGLES)()
	ics := 1.0 / hf.Cs
	ich := 1.0 / hf.Ch
	for triIndex := 0; triIndex < numTris; triIndex++ {
		if triAreaIDs[triIndex] == RC_NULL_AREA {
			continue
		}
		v0 := common.GetVert3(verts, int(tris[triIndex*3+0]))
		v1 := common.GetVert3(verts, int(tris[triIndex*3+1]))
		v2 := common.GetVert3(verts, int(tris[triIndex*3+2]))
		if !rasterizeTri(v0, v1, v2, triAreaIDs[triIndex], hf, hf.Bmin[:], hf.Bmax[:], hf.Cs, ics, ich, flagMergeThreshold) {
			ctxLog(ctx, RC_LOG_ERROR, "rcRasterizeTriangles: Out of memory.")
			return false
		}
	}
	return true
}
