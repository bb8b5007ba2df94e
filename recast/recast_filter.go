package recast

import (
	"github.com/gorustyt/navcore/common"
)

const maxHeightfieldHeight = 0xffff

// / Marks non-walkable spans as walkable if their maximum is within @p walkableClimb of a walkable neighbor.
func RcFilterLowHangingWalkableObstacles(ctx RcContext, walkableClimb int, hf *RcHeightfield) {
	defer rcScopedTimer(ctx, RC_TIMER_FILTER_LOW_OBSTACLES)()
	for z := 0; z < hf.Height; z++ {
		for x := 0; x < hf.Width; x++ {
			var previousSpan *RcSpan
			previousWasWalkable := false
			var previousArea uint8 = RC_NULL_AREA
			for span := hf.Spans[x+z*hf.Width]; span != nil; span = span.next {
				walkable := span.area != RC_NULL_AREA
				// If current span is not walkable, but there is walkable
				// span just below it, mark the span above it walkable too.
				if !walkable && previousWasWalkable {
					if common.Abs(int(span.smax)-int(previousSpan.smax)) <= walkableClimb {
						span.area = previousArea
					}
				}
				// Copy walkable flag so that it cannot propagate
				// past multiple non-walkable objects.
				previousWasWalkable = walkable
				previousArea = span.area
				previousSpan = span
			}
		}
	}
}

// / Marks spans that are ledges as not-walkable.
func RcFilterLedgeSpans(ctx RcContext, walkableHeight, walkableClimb int, hf *RcHeightfield) {
	defer rcScopedTimer(ctx, RC_TIMER_FILTER_BORDER)()
	xSize := hf.Width
	zSize := hf.Height

	// Mark border spans.
	for z := 0; z < zSize; z++ {
		for x := 0; x < xSize; x++ {
			for span := hf.Spans[x+z*xSize]; span != nil; span = span.next {
				// Skip non walkable spans.
				if span.area == RC_NULL_AREA {
					continue
				}
				floor := int(span.smax)
				ceiling := maxHeightfieldHeight
				if span.next != nil {
					ceiling = int(span.next.smin)
				}

				// The difference between this walkable area and the lowest neighbor walkable area.
				// This is the difference between the current span and all neighbor spans that have
				// enough space for an agent to move between, but not accounting at all for surface slope.
				lowestNeighborFloorDifference := maxHeightfieldHeight

				// Min and max height of accessible neighbours.
				lowestTraversableNeighborFloor := int(span.smax)
				highestTraversableNeighborFloor := int(span.smax)

				for direction := 0; direction < 4; direction++ {
					neighborX := x + common.GetDirOffsetX(direction)
					neighborZ := z + common.GetDirOffsetY(direction)

					// Skip neighbours which are out of bounds.
					if neighborX < 0 || neighborZ < 0 || neighborX >= xSize || neighborZ >= zSize {
						lowestNeighborFloorDifference = -walkableClimb - 1
						break
					}
					neighborSpan := hf.Spans[neighborX+neighborZ*xSize]

					// The most we can step down to the neighbor is the walkableClimb distance.
					neighborCeiling := maxHeightfieldHeight
					if neighborSpan != nil {
						neighborCeiling = int(neighborSpan.smin)
					}

					// Skip neighbour if the gap between the spans is too small.
					if min(ceiling, neighborCeiling)-floor >= walkableHeight {
						lowestNeighborFloorDifference = -walkableClimb - 1
						break
					}

					// For each span in the neighboring column...
					for ; neighborSpan != nil; neighborSpan = neighborSpan.next {
						neighborFloor := int(neighborSpan.smax)
						neighborCeiling = maxHeightfieldHeight
						if neighborSpan.next != nil {
							neighborCeiling = int(neighborSpan.next.smin)
						}

						// Only consider neighboring areas that have enough overlap to be potentially traversable.
						if min(ceiling, neighborCeiling)-max(floor, neighborFloor) < walkableHeight {
							// No space to traverse between them.
							continue
						}

						neighborFloorDifference := neighborFloor - floor
						lowestNeighborFloorDifference = min(lowestNeighborFloorDifference, neighborFloorDifference)

						// Find min/max accessible neighbor height.
						// Only consider neighbors that are at most walkableClimb away.
						if common.Abs(neighborFloorDifference) <= walkableClimb {
							// There is space to move to the neighbor cell and the slope isn't too much.
							lowestTraversableNeighborFloor = min(lowestTraversableNeighborFloor, neighborFloor)
							highestTraversableNeighborFloor = max(highestTraversableNeighborFloor, neighborFloor)
						} else if neighborFloorDifference < -walkableClimb {
							// We already know this will be considered a ledge span so we can early-out
							break
						}
					}
				}

				// The current span is close to a ledge if the magnitude of the drop to any neighbour span is greater than the walkableClimb distance.
				// That is, there is a gap that is large enough to let an agent move between them, but the drop (surface slope) is too large to allow it.
				if lowestNeighborFloorDifference < -walkableClimb {
					span.area = RC_NULL_AREA
				} else if highestTraversableNeighborFloor-lowestTraversableNeighborFloor > walkableClimb {
					// If the difference between all neighbor floors is too large, this is a steep slope, so mark the span as an unwalkable ledge.
					span.area = RC_NULL_AREA
				}
			}
		}
	}
}

// / Marks walkable spans as not walkable if the clearance above the span is less than the specified walkableHeight.
func RcFilterWalkableLowHeightSpans(ctx RcContext, walkableHeight int, hf *RcHeightfield) {
	defer rcScopedTimer(ctx, RC_TIMER_FILTER_WALKABLE)()
	// Remove walkable flag from spans which do not have enough
	// space above them for the agent to stand there.
	for _, span := range hf.Spans {
		for ; span != nil; span = span.next {
			floor := int(span.smax)
			ceiling := maxHeightfieldHeight
			if span.next != nil {
				ceiling = int(span.next.smin)
			}
			if ceiling-floor < walkableHeight {
				span.area = RC_NULL_AREA
			}
		}
	}
}
