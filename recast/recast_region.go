package recast

import (
	"slices"

	"github.com/gorustyt/navcore/common"
)

func calculateDistanceField(chf *RcCompactHeightfield, src []uint16) (maxDist uint16) {
	w := chf.Width
	h := chf.Height
	for i := range src {
		src[i] = 0xffff
	}

	// Mark boundary cells.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := &chf.Cells[x+y*w]
			for i := int(c.Index); i < int(c.Index)+int(c.Count); i++ {
				s := &chf.Spans[i]
				area := chf.Areas[i]
				nc := 0
				for dir := 0; dir < 4; dir++ {
					if RcGetCon(s, dir) != RC_NOT_CONNECTED {
						ax := x + common.GetDirOffsetX(dir)
						ay := y + common.GetDirOffsetY(dir)
						ai := int(chf.Cells[ax+ay*w].Index) + RcGetCon(s, dir)
						if area == chf.Areas[ai] {
							nc++
						}
					}
				}
				if nc != 4 {
					src[i] = 0
				}
			}
		}
	}

	relax := func(i, ai int, cost uint16) {
		if int(src[ai])+int(cost) < int(src[i]) {
			src[i] = src[ai] + cost
		}
	}

	// Pass 1
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := &chf.Cells[x+y*w]
			for i := int(c.Index); i < int(c.Index)+int(c.Count); i++ {
				s := &chf.Spans[i]
				if RcGetCon(s, 0) != RC_NOT_CONNECTED {
					// (-1,0)
					ax := x + common.GetDirOffsetX(0)
					ay := y + common.GetDirOffsetY(0)
					ai := int(chf.Cells[ax+ay*w].Index) + RcGetCon(s, 0)
					as := &chf.Spans[ai]
					relax(i, ai, 2)
					// (-1,-1)
					if RcGetCon(as, 3) != RC_NOT_CONNECTED {
						aax := ax + common.GetDirOffsetX(3)
						aay := ay + common.GetDirOffsetY(3)
						aai := int(chf.Cells[aax+aay*w].Index) + RcGetCon(as, 3)
						relax(i, aai, 3)
					}
				}
				if RcGetCon(s, 3) != RC_NOT_CONNECTED {
					// (0,-1)
					ax := x + common.GetDirOffsetX(3)
					ay := y + common.GetDirOffsetY(3)
					ai := int(chf.Cells[ax+ay*w].Index) + RcGetCon(s, 3)
					as := &chf.Spans[ai]
					relax(i, ai, 2)
					// (1,-1)
					if RcGetCon(as, 2) != RC_NOT_CONNECTED {
						aax := ax + common.GetDirOffsetX(2)
						aay := ay + common.GetDirOffsetY(2)
						aai := int(chf.Cells[aax+aay*w].Index) + RcGetCon(as, 2)
						relax(i, aai, 3)
					}
				}
			}
		}
	}

	// Pass 2
	for y := h - 1; y >= 0; y-- {
		for x := w - 1; x >= 0; x-- {
			c := &chf.Cells[x+y*w]
			for i := int(c.Index); i < int(c.Index)+int(c.Count); i++ {
				s := &chf.Spans[i]
				if RcGetCon(s, 2) != RC_NOT_CONNECTED {
					// (1,0)
					ax := x + common.GetDirOffsetX(2)
					ay := y + common.GetDirOffsetY(2)
					ai := int(chf.Cells[ax+ay*w].Index) + RcGetCon(s, 2)
					as := &chf.Spans[ai]
					relax(i, ai, 2)
					// (1,1)
					if RcGetCon(as, 1) != RC_NOT_CONNECTED {
						aax := ax + common.GetDirOffsetX(1)
						aay := ay + common.GetDirOffsetY(1)
						aai := int(chf.Cells[aax+aay*w].Index) + RcGetCon(as, 1)
						relax(i, aai, 3)
					}
				}
				if RcGetCon(s, 1) != RC_NOT_CONNECTED {
					// (0,1)
					ax := x + common.GetDirOffsetX(1)
					ay := y + common.GetDirOffsetY(1)
					ai := int(chf.Cells[ax+ay*w].Index) + RcGetCon(s, 1)
					as := &chf.Spans[ai]
					relax(i, ai, 2)
					// (-1,1)
					if RcGetCon(as, 0) != RC_NOT_CONNECTED {
						aax := ax + common.GetDirOffsetX(0)
						aay := ay + common.GetDirOffsetY(0)
						aai := int(chf.Cells[aax+aay*w].Index) + RcGetCon(as, 0)
						relax(i, aai, 3)
					}
				}
			}
		}
	}

	for i := 0; i < chf.SpanCount; i++ {
		maxDist = max(src[i], maxDist)
	}
	return maxDist
}

func boxBlur(chf *RcCompactHeightfield, thr int, src, dst []uint16) []uint16 {
	w := chf.Width
	h := chf.Height
	thr *= 2
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := &chf.Cells[x+y*w]
			for i := int(c.Index); i < int(c.Index)+int(c.Count); i++ {
				s := &chf.Spans[i]
				cd := int(src[i])
				if cd <= thr {
					dst[i] = uint16(cd)
					continue
				}
				d := cd
				for dir := 0; dir < 4; dir++ {
					if RcGetCon(s, dir) != RC_NOT_CONNECTED {
						ax := x + common.GetDirOffsetX(dir)
						ay := y + common.GetDirOffsetY(dir)
						ai := int(chf.Cells[ax+ay*w].Index) + RcGetCon(s, dir)
						d += int(src[ai])
						as := &chf.Spans[ai]
						dir2 := (dir + 1) & 0x3
						if RcGetCon(as, dir2) != RC_NOT_CONNECTED {
							ax2 := ax + common.GetDirOffsetX(dir2)
							ay2 := ay + common.GetDirOffsetY(dir2)
							ai2 := int(chf.Cells[ax2+ay2*w].Index) + RcGetCon(as, dir2)
							d += int(src[ai2])
						} else {
							d += cd
						}
					} else {
						d += cd * 2
					}
				}
				dst[i] = uint16((d + 5) / 9)
			}
		}
	}
	return dst
}

// / Builds the distance field for the specified compact heightfield.
func RcBuildDistanceField(ctx RcContext, chf *RcCompactHeightfield) bool {
	defer rcScopedTimer(ctx, RC_TIMER_BUILD_DISTANCEFIELD)()
	src := make([]uint16, chf.SpanCount)
	dst := make([]uint16, chf.SpanCount)

	stopDist := rcScopedTimer(ctx, RC_TIMER_BUILD_DISTANCEFIELD_DIST)
	chf.MaxDistance = calculateDistanceField(chf, src)
	stopDist()

	stopBlur := rcScopedTimer(ctx, RC_TIMER_BUILD_DISTANCEFIELD_BLUR)
	chf.Dist = boxBlur(chf, 1, src, dst)
	stopBlur()
	return true
}

func paintRectRegion(minx, maxx, miny, maxy int, regID uint16, chf *RcCompactHeightfield, srcReg []uint16) {
	w := chf.Width
	for y := miny; y < maxy; y++ {
		for x := minx; x < maxx; x++ {
			c := &chf.Cells[x+y*w]
			for i := int(c.Index); i < int(c.Index)+int(c.Count); i++ {
				if chf.Areas[i] != RC_NULL_AREA {
					srcReg[i] = regID
				}
			}
		}
	}
}

type levelStackEntry struct {
	x, y  int
	index int
}

type dirtyEntry struct {
	index    int
	region   uint16
	distance uint16
}

func floodRegion(x, y, i int, level, r uint16, chf *RcCompactHeightfield, srcReg, srcDist []uint16, stack []levelStackEntry) ([]levelStackEntry, bool) {
	w := chf.Width
	area := chf.Areas[i]

	// Flood fill mark region.
	stack = stack[:0]
	stack = append(stack, levelStackEntry{x, y, i})
	srcReg[i] = r
	srcDist[i] = 0

	var lev uint16
	if level >= 2 {
		lev = level - 2
	}
	count := 0

	for len(stack) > 0 {
		back := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		cx, cy, ci := back.x, back.y, back.index
		cs := &chf.Spans[ci]

		// Check if any of the neighbours already have a valid region set.
		var ar uint16
		for dir := 0; dir < 4; dir++ {
			// 8 connected
			if RcGetCon(cs, dir) == RC_NOT_CONNECTED {
				continue
			}
			ax := cx + common.GetDirOffsetX(dir)
			ay := cy + common.GetDirOffsetY(dir)
			ai := int(chf.Cells[ax+ay*w].Index) + RcGetCon(cs, dir)
			if chf.Areas[ai] != area {
				continue
			}
			nr := srcReg[ai]
			if nr&RC_BORDER_REG != 0 { // Do not take borders into account.
				continue
			}
			if nr != 0 && nr != r {
				ar = nr
				break
			}
			as := &chf.Spans[ai]
			dir2 := (dir + 1) & 0x3
			if RcGetCon(as, dir2) != RC_NOT_CONNECTED {
				ax2 := ax + common.GetDirOffsetX(dir2)
				ay2 := ay + common.GetDirOffsetY(dir2)
				ai2 := int(chf.Cells[ax2+ay2*w].Index) + RcGetCon(as, dir2)
				if chf.Areas[ai2] != area {
					continue
				}
				nr2 := srcReg[ai2]
				if nr2 != 0 && nr2 != r {
					ar = nr2
					break
				}
			}
		}
		if ar != 0 {
			srcReg[ci] = 0
			continue
		}
		count++

		// Expand neighbours.
		for dir := 0; dir < 4; dir++ {
			if RcGetCon(cs, dir) == RC_NOT_CONNECTED {
				continue
			}
			ax := cx + common.GetDirOffsetX(dir)
			ay := cy + common.GetDirOffsetY(dir)
			ai := int(chf.Cells[ax+ay*w].Index) + RcGetCon(cs, dir)
			if chf.Areas[ai] != area {
				continue
			}
			if chf.Dist[ai] >= lev && srcReg[ai] == 0 {
				srcReg[ai] = r
				srcDist[ai] = 0
				stack = append(stack, levelStackEntry{ax, ay, ai})
			}
		}
	}
	return stack, count > 0
}

func expandRegions(maxIter int, level uint16, chf *RcCompactHeightfield, srcReg, srcDist []uint16,
	stack []levelStackEntry, fillStack bool) []levelStackEntry {
	w := chf.Width
	h := chf.Height

	if fillStack {
		// Find cells revealed by the raised level.
		stack = stack[:0]
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				c := &chf.Cells[x+y*w]
				for i := int(c.Index); i < int(c.Index)+int(c.Count); i++ {
					if chf.Dist[i] >= level && srcReg[i] == 0 && chf.Areas[i] != RC_NULL_AREA {
						stack = append(stack, levelStackEntry{x, y, i})
					}
				}
			}
		}
	} else {
		// use cells in the input stack
		// mark all cells which already have a region
		for j := range stack {
			i := stack[j].index
			if srcReg[i] != 0 {
				stack[j].index = -1
			}
		}
	}

	var dirtyEntries []dirtyEntry
	iter := 0
	for len(stack) > 0 {
		failed := 0
		dirtyEntries = dirtyEntries[:0]
		for j := range stack {
			x, y, i := stack[j].x, stack[j].y, stack[j].index
			if i < 0 {
				failed++
				continue
			}
			r := srcReg[i]
			d2 := uint16(0xffff)
			area := chf.Areas[i]
			s := &chf.Spans[i]
			for dir := 0; dir < 4; dir++ {
				if RcGetCon(s, dir) == RC_NOT_CONNECTED {
					continue
				}
				ax := x + common.GetDirOffsetX(dir)
				ay := y + common.GetDirOffsetY(dir)
				ai := int(chf.Cells[ax+ay*w].Index) + RcGetCon(s, dir)
				if chf.Areas[ai] != area {
					continue
				}
				if srcReg[ai] > 0 && (srcReg[ai]&RC_BORDER_REG) == 0 {
					if int(srcDist[ai])+2 < int(d2) {
						r = srcReg[ai]
						d2 = srcDist[ai] + 2
					}
				}
			}
			if r != 0 {
				stack[j].index = -1 // mark as used
				dirtyEntries = append(dirtyEntries, dirtyEntry{i, r, d2})
			} else {
				failed++
			}
		}
		// Copy entries that differ between src and dst to keep them in sync.
		for _, e := range dirtyEntries {
			srcReg[e.index] = e.region
			srcDist[e.index] = e.distance
		}
		if failed == len(stack) {
			break
		}
		if level > 0 {
			iter++
			if iter >= maxIter {
				break
			}
		}
	}
	return stack
}

func sortCellsByLevel(startLevel uint16, chf *RcCompactHeightfield, srcReg []uint16, stacks [][]levelStackEntry, loglevelsPerStack uint) {
	w := chf.Width
	h := chf.Height
	start := int(startLevel >> loglevelsPerStack)
	for j := range stacks {
		stacks[j] = stacks[j][:0]
	}
	// put all cells in the level range into the appropriate stacks
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := &chf.Cells[x+y*w]
			for i := int(c.Index); i < int(c.Index)+int(c.Count); i++ {
				if chf.Areas[i] == RC_NULL_AREA || srcReg[i] != 0 {
					continue
				}
				level := int(chf.Dist[i] >> loglevelsPerStack)
				sID := start - level
				if sID >= len(stacks) {
					continue
				}
				if sID < 0 {
					sID = 0
				}
				stacks[sID] = append(stacks[sID], levelStackEntry{x, y, i})
			}
		}
	}
}

func appendStacks(src, dst []levelStackEntry, srcReg []uint16) []levelStackEntry {
	for _, e := range src {
		if e.index < 0 || srcReg[e.index] != 0 {
			continue
		}
		dst = append(dst, e)
	}
	return dst
}

type rcRegion struct {
	spanCount        int    // Number of spans belonging to this region
	id               uint16 // ID of the region
	areaType         uint8  // Are type.
	remap            bool
	visited          bool
	overlap          bool
	connectsToBorder bool
	connections      []uint16
	floors           []uint16
}

func addUnique(s []uint16, v uint16) []uint16 {
	if slices.Contains(s, v) {
		return s
	}
	return append(s, v)
}

func (reg *rcRegion) replaceNeighbour(oldID, newID uint16) {
	neiChanged := false
	for i := range reg.connections {
		if reg.connections[i] == oldID {
			reg.connections[i] = newID
			neiChanged = true
		}
	}
	for i := range reg.floors {
		if reg.floors[i] == oldID {
			reg.floors[i] = newID
		}
	}
	if neiChanged {
		uniq := reg.connections[:0]
		for _, c := range reg.connections {
			if !slices.Contains(uniq, c) {
				uniq = append(uniq, c)
			}
		}
		reg.connections = uniq
	}
}

func (reg *rcRegion) isConnectedToBorder() bool {
	// Region is connected to border if
	// one of the neighbours is null id.
	return slices.Contains(reg.connections, 0)
}

func canMergeWithRegion(rega, regb *rcRegion) bool {
	if rega.areaType != regb.areaType {
		return false
	}
	if slices.Contains(rega.floors, regb.id) {
		return false
	}
	return true
}

func mergeRegions(rega, regb *rcRegion) {
	aid := rega.id
	bid := regb.id
	for _, c := range regb.connections {
		if c != aid && c != bid {
			rega.connections = addUnique(rega.connections, c)
		}
	}
	filtered := rega.connections[:0]
	for _, c := range rega.connections {
		if c != aid && c != bid {
			filtered = append(filtered, c)
		}
	}
	rega.connections = filtered
	for _, f := range regb.floors {
		rega.floors = addUnique(rega.floors, f)
	}
	rega.spanCount += regb.spanCount
	regb.spanCount = 0
	regb.connections = nil
}

// mergeAndFilterRegions drops isolated islands smaller than minRegionArea and folds
// regions of at most mergeRegionSize spans into their smallest compatible neighbour.
// Returns the new max region id.
func mergeAndFilterRegions(ctx RcContext, minRegionArea, mergeRegionSize int, maxRegionID uint16,
	chf *RcCompactHeightfield, srcReg []uint16) uint16 {
	w := chf.Width
	h := chf.Height
	nreg := int(maxRegionID) + 1
	regions := make([]rcRegion, nreg)
	for i := range regions {
		regions[i].id = uint16(i)
	}

	// Find edge of a region and find connections around the contour.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := &chf.Cells[x+y*w]
			for i := int(c.Index); i < int(c.Index)+int(c.Count); i++ {
				r := srcReg[i]
				if r == 0 || int(r) >= nreg {
					continue
				}
				reg := &regions[r]
				reg.spanCount++

				// Update floors.
				for j := int(c.Index); j < int(c.Index)+int(c.Count); j++ {
					if i == j {
						continue
					}
					floorID := srcReg[j]
					if floorID == 0 || int(floorID) >= nreg {
						continue
					}
					if floorID == r {
						reg.overlap = true
					}
					reg.floors = addUnique(reg.floors, floorID)
				}
				reg.areaType = chf.Areas[i]

				s := &chf.Spans[i]
				for dir := 0; dir < 4; dir++ {
					var nr uint16
					if RcGetCon(s, dir) != RC_NOT_CONNECTED {
						ax := x + common.GetDirOffsetX(dir)
						ay := y + common.GetDirOffsetY(dir)
						ai := int(chf.Cells[ax+ay*w].Index) + RcGetCon(s, dir)
						nr = srcReg[ai]
					}
					if nr != r {
						reg.connections = addUnique(reg.connections, nr)
					}
				}
			}
		}
	}

	// Remove too small regions.
	var stack []uint16
	var trace []uint16
	for i := 0; i < nreg; i++ {
		reg := &regions[i]
		if reg.id == 0 || reg.id&RC_BORDER_REG != 0 {
			continue
		}
		if reg.spanCount == 0 || reg.visited {
			continue
		}
		// Count the total size of all the connected regions.
		// Also keep track of the regions connects to a tile border.
		connectsToBorder := false
		spanCount := 0
		stack = stack[:0]
		trace = trace[:0]
		reg.visited = true
		stack = append(stack, uint16(i))
		for len(stack) > 0 {
			ri := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			creg := &regions[ri]
			spanCount += creg.spanCount
			trace = append(trace, ri)
			for _, nid := range creg.connections {
				if nid&RC_BORDER_REG != 0 {
					connectsToBorder = true
					continue
				}
				if nid == 0 || int(nid) >= nreg {
					continue
				}
				neireg := &regions[nid]
				if neireg.visited || neireg.id == 0 || neireg.id&RC_BORDER_REG != 0 {
					continue
				}
				if neireg.areaType != creg.areaType {
					continue
				}
				stack = append(stack, neireg.id)
				neireg.visited = true
			}
		}

		// If the accumulated regions size is too small, remove it.
		// Do not remove areas which connect to tile borders
		// as their size cannot be estimated correctly and removing them
		// can potentially remove necessary areas.
		if spanCount < minRegionArea && !connectsToBorder {
			// Kill all visited regions.
			for _, t := range trace {
				regions[t].spanCount = 0
				regions[t].id = 0
			}
		}
	}

	// Merge too small regions to neighbour regions.
	for {
		mergeCount := 0
		for i := 0; i < nreg; i++ {
			reg := &regions[i]
			if reg.id == 0 || reg.id&RC_BORDER_REG != 0 {
				continue
			}
			if reg.overlap || reg.spanCount == 0 {
				continue
			}
			// Check to see if the region should be merged.
			if reg.spanCount > mergeRegionSize && reg.isConnectedToBorder() {
				continue
			}
			// Small region with more than 1 connection.
			// Or region which is not connected to a border at all.
			// Find smallest neighbour region that connects to this one.
			smallest := int(^uint(0) >> 1)
			mergeID := reg.id
			for _, c := range reg.connections {
				if c&RC_BORDER_REG != 0 || c == 0 || int(c) >= nreg {
					continue
				}
				mreg := &regions[c]
				if mreg.id == 0 || mreg.id&RC_BORDER_REG != 0 || mreg.overlap {
					continue
				}
				if mreg.spanCount < smallest && canMergeWithRegion(reg, mreg) && canMergeWithRegion(mreg, reg) {
					smallest = mreg.spanCount
					mergeID = mreg.id
				}
			}
			// Found new id.
			if mergeID != reg.id {
				oldID := reg.id
				target := &regions[mergeID]
				mergeRegions(target, reg)
				// Fixup regions pointing to current region.
				for j := 0; j < nreg; j++ {
					if regions[j].id == 0 || regions[j].id&RC_BORDER_REG != 0 {
						continue
					}
					// If another region was already merged into current region
					// change the nid of the previous region too.
					if regions[j].id == oldID {
						regions[j].id = mergeID
					}
					// Replace the current region with the new one if the
					// current regions is neighbour.
					regions[j].replaceNeighbour(oldID, mergeID)
				}
				mergeCount++
			}
		}
		if mergeCount == 0 {
			break
		}
	}

	// Compress region Ids.
	for i := 0; i < nreg; i++ {
		regions[i].remap = false
		if regions[i].id == 0 || regions[i].id&RC_BORDER_REG != 0 {
			continue
		}
		regions[i].remap = true
	}
	var regIDGen uint16
	for i := 0; i < nreg; i++ {
		if !regions[i].remap {
			continue
		}
		oldID := regions[i].id
		regIDGen++
		newID := regIDGen
		for j := i; j < nreg; j++ {
			if regions[j].id == oldID {
				regions[j].id = newID
				regions[j].remap = false
			}
		}
	}

	// Remap regions.
	for i := 0; i < chf.SpanCount; i++ {
		if srcReg[i]&RC_BORDER_REG == 0 && int(srcReg[i]) < nreg {
			srcReg[i] = regions[srcReg[i]].id
		}
	}
	return regIDGen
}

// / Builds region data for the heightfield using watershed partitioning.
// / The distance field must be built first with RcBuildDistanceField.
func RcBuildRegions(ctx RcContext, chf *RcCompactHeightfield, borderSize, minRegionArea, mergeRegionArea int) bool {
	defer rcScopedTimer(ctx, RC_TIMER_BUILD_REGIONS)()
	if len(chf.Dist) != chf.SpanCount {
		ctxLog(ctx, RC_LOG_ERROR, "rcBuildRegions: distance field missing.")
		return false
	}
	w := chf.Width
	h := chf.Height

	stopWatershed := rcScopedTimer(ctx, RC_TIMER_BUILD_REGIONS_WATERSHED)
	const logNbStacks = 3
	const nbStacks = 1 << logNbStacks
	lvlStacks := make([][]levelStackEntry, nbStacks)
	stack := make([]levelStackEntry, 0, 256)

	srcReg := make([]uint16, chf.SpanCount)
	srcDist := make([]uint16, chf.SpanCount)

	var regionID uint16 = 1
	level := (chf.MaxDistance + 1) &^ 1

	// Bounds how far each watershed level overflows into its neighbours.
	const expandIters = 8

	if borderSize > 0 {
		// Make sure border will not overflow.
		bw := min(w, borderSize)
		bh := min(h, borderSize)
		// Paint regions
		paintRectRegion(0, bw, 0, h, regionID|RC_BORDER_REG, chf, srcReg)
		regionID++
		paintRectRegion(w-bw, w, 0, h, regionID|RC_BORDER_REG, chf, srcReg)
		regionID++
		paintRectRegion(0, w, 0, bh, regionID|RC_BORDER_REG, chf, srcReg)
		regionID++
		paintRectRegion(0, w, h-bh, h, regionID|RC_BORDER_REG, chf, srcReg)
		regionID++
	}
	chf.BorderSize = borderSize

	sID := -1
	for level > 0 {
		if level >= 2 {
			level -= 2
		} else {
			level = 0
		}
		sID = (sID + 1) & (nbStacks - 1)

		if sID == 0 {
			sortCellsByLevel(level, chf, srcReg, lvlStacks, 1)
		} else {
			lvlStacks[sID] = appendStacks(lvlStacks[sID-1], lvlStacks[sID], srcReg) // copy left overs from last level
		}

		stopExpand := rcScopedTimer(ctx, RC_TIMER_BUILD_REGIONS_EXPAND)
		// Expand current regions until no empty connected cells found.
		lvlStacks[sID] = expandRegions(expandIters, level, chf, srcReg, srcDist, lvlStacks[sID], false)
		stopExpand()

		stopFlood := rcScopedTimer(ctx, RC_TIMER_BUILD_REGIONS_FLOOD)
		// Mark new regions with IDs.
		for j := range lvlStacks[sID] {
			current := lvlStacks[sID][j]
			x, y, i := current.x, current.y, current.index
			if i >= 0 && srcReg[i] == 0 {
				var ok bool
				stack, ok = floodRegion(x, y, i, level, regionID, chf, srcReg, srcDist, stack)
				if ok {
					if regionID == 0xFFFF {
						stopFlood()
						stopWatershed()
						ctxLog(ctx, RC_LOG_ERROR, "rcBuildRegions: Region ID overflow")
						return false
					}
					regionID++
				}
			}
		}
		stopFlood()
	}

	// Expand current regions until no empty connected cells found.
	expandRegions(expandIters*8, 0, chf, srcReg, srcDist, stack, true)
	stopWatershed()

	stopFilter := rcScopedTimer(ctx, RC_TIMER_BUILD_REGIONS_FILTER)
	// Merge regions and filter out small regions.
	chf.MaxRegions = mergeAndFilterRegions(ctx, minRegionArea, mergeRegionArea, regionID, chf, srcReg)
	stopFilter()

	// Write the result out.
	for i := 0; i < chf.SpanCount; i++ {
		chf.Spans[i].Reg = srcReg[i]
	}
	return true
}

type rcSweepSpan struct {
	rid uint16 // row id
	id  uint16 // region id
	ns  uint16 // number samples
	nei uint16 // neighbour id
}

const rcNullNei = 0xffff

// / Builds region data for the heightfield using simple monotone partitioning.
func RcBuildRegionsMonotone(ctx RcContext, chf *RcCompactHeightfield, borderSize, minRegionArea, mergeRegionArea int) bool {
	defer rcScopedTimer(ctx, RC_TIMER_BUILD_REGIONS)()
	w := chf.Width
	h := chf.Height
	var id uint16 = 1

	srcReg := make([]uint16, chf.SpanCount)
	nsweeps := max(w, h)
	sweeps := make([]rcSweepSpan, nsweeps+1)

	// Mark border regions.
	if borderSize > 0 {
		// Make sure border will not overflow.
		bw := min(w, borderSize)
		bh := min(h, borderSize)
		// Paint regions
		paintRectRegion(0, bw, 0, h, id|RC_BORDER_REG, chf, srcReg)
		id++
		paintRectRegion(w-bw, w, 0, h, id|RC_BORDER_REG, chf, srcReg)
		id++
		paintRectRegion(0, w, 0, bh, id|RC_BORDER_REG, chf, srcReg)
		id++
		paintRectRegion(0, w, h-bh, h, id|RC_BORDER_REG, chf, srcReg)
		id++
	}
	chf.BorderSize = borderSize

	var prev []uint16
	// Sweep one line at a time.
	for y := borderSize; y < h-borderSize; y++ {
		// Collect spans from this row.
		if cap(prev) < int(id)+1 {
			prev = make([]uint16, int(id)*2+1)
		}
		prev = prev[:int(id)+1]
		clear(prev)
		var rid uint16 = 1

		for x := borderSize; x < w-borderSize; x++ {
			c := &chf.Cells[x+y*w]
			for i := int(c.Index); i < int(c.Index)+int(c.Count); i++ {
				s := &chf.Spans[i]
				if chf.Areas[i] == RC_NULL_AREA {
					continue
				}
				// -x
				var previd uint16
				if RcGetCon(s, 0) != RC_NOT_CONNECTED {
					ax := x + common.GetDirOffsetX(0)
					ay := y + common.GetDirOffsetY(0)
					ai := int(chf.Cells[ax+ay*w].Index) + RcGetCon(s, 0)
					if srcReg[ai]&RC_BORDER_REG == 0 && chf.Areas[i] == chf.Areas[ai] {
						previd = srcReg[ai]
					}
				}
				if previd == 0 {
					previd = rid
					rid++
					if int(previd) >= len(sweeps) {
						sweeps = append(sweeps, make([]rcSweepSpan, len(sweeps))...)
					}
					sweeps[previd].rid = previd
					sweeps[previd].ns = 0
					sweeps[previd].nei = 0
				}
				// -y
				if RcGetCon(s, 3) != RC_NOT_CONNECTED {
					ax := x + common.GetDirOffsetX(3)
					ay := y + common.GetDirOffsetY(3)
					ai := int(chf.Cells[ax+ay*w].Index) + RcGetCon(s, 3)
					if srcReg[ai] != 0 && srcReg[ai]&RC_BORDER_REG == 0 && chf.Areas[i] == chf.Areas[ai] {
						nr := srcReg[ai]
						if sweeps[previd].nei == 0 || sweeps[previd].nei == nr {
							sweeps[previd].nei = nr
							sweeps[previd].ns++
							if int(nr) < len(prev) {
								prev[nr]++
							}
						} else {
							sweeps[previd].nei = rcNullNei
						}
					}
				}
				srcReg[i] = previd
			}
		}

		// Create unique ID.
		for i := 1; i < int(rid); i++ {
			nei := sweeps[i].nei
			if nei != rcNullNei && nei != 0 && int(nei) < len(prev) && prev[nei] == sweeps[i].ns {
				sweeps[i].id = nei
			} else {
				sweeps[i].id = id
				id++
			}
		}

		// Remap IDs
		for x := borderSize; x < w-borderSize; x++ {
			c := &chf.Cells[x+y*w]
			for i := int(c.Index); i < int(c.Index)+int(c.Count); i++ {
				if srcReg[i] > 0 && srcReg[i] < rid {
					srcReg[i] = sweeps[srcReg[i]].id
				}
			}
		}
	}

	stopFilter := rcScopedTimer(ctx, RC_TIMER_BUILD_REGIONS_FILTER)
	// Merge regions and filter out small regions.
	chf.MaxRegions = mergeAndFilterRegions(ctx, minRegionArea, mergeRegionArea, id, chf, srcReg)
	stopFilter()

	// Store the result out.
	for i := 0; i < chf.SpanCount; i++ {
		chf.Spans[i].Reg = srcReg[i]
	}
	return true
}
