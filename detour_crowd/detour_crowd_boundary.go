package detour_crowd

import (
	"math"

	"github.com/gorustyt/navcore/common"
	"github.com/gorustyt/navcore/detour"
)

const (
	MAX_LOCAL_SEGS  = 8
	MAX_LOCAL_POLYS = 16
)

type segment struct {
	s [6]float32 ///< Segment start/end
	d float32    ///< Distance for pruning.
}

// DtLocalBoundary caches the wall segments near an agent.
type DtLocalBoundary struct {
	m_center [3]float32
	m_segs   []segment
	m_polys  []detour.DtPolyRef
}

func NewDtLocalBoundary() *DtLocalBoundary {
	d := &DtLocalBoundary{}
	d.Reset()
	return d
}

func (d *DtLocalBoundary) Reset() {
	common.Vset(d.m_center[:], math.MaxFloat32, math.MaxFloat32, math.MaxFloat32)
	d.m_polys = d.m_polys[:0]
	d.m_segs = d.m_segs[:0]
}

func (d *DtLocalBoundary) GetCenter() []float32        { return d.m_center[:] }
func (d *DtLocalBoundary) GetSegmentCount() int        { return len(d.m_segs) }
func (d *DtLocalBoundary) GetSegment(i int) [6]float32 { return d.m_segs[i].s }

func (d *DtLocalBoundary) addSegment(dist float32, s []float32) {
	// Insert neighbour based on the distance.
	i := len(d.m_segs)
	for j := range d.m_segs {
		if dist <= d.m_segs[j].d {
			i = j
			break
		}
	}
	if i >= MAX_LOCAL_SEGS {
		// Further than the last segment, skip.
		return
	}
	var seg segment
	seg.d = dist
	copy(seg.s[:], s[:6])
	d.m_segs = append(d.m_segs, segment{})
	copy(d.m_segs[i+1:], d.m_segs[i:])
	d.m_segs[i] = seg
	if len(d.m_segs) > MAX_LOCAL_SEGS {
		d.m_segs = d.m_segs[:MAX_LOCAL_SEGS]
	}
}

// Update collects the walls of the non-overlapping polygons around pos.
func (d *DtLocalBoundary) Update(ref detour.DtPolyRef, pos []float32, collisionQueryRange float32,
	navquery *detour.DtNavMeshQuery, filter *detour.DtQueryFilter) {
	const MAX_SEGS_PER_POLY = detour.DT_VERTS_PER_POLYGON * 3

	if ref == 0 {
		d.Reset()
		return
	}

	common.Vcopy(d.m_center[:], pos)
	d.m_segs = d.m_segs[:0]

	// First query non-overlapping polygons.
	d.m_polys, _, _ = navquery.FindLocalNeighbourhood(ref, pos, collisionQueryRange, filter, MAX_LOCAL_POLYS)

	// Secondly, store all polygon edges.
	rangeSqr := common.Sqr(collisionQueryRange)
	for _, poly := range d.m_polys {
		segs, _, _ := navquery.GetPolyWallSegments(poly, filter, MAX_SEGS_PER_POLY, false)
		for k := 0; k+6 <= len(segs); k += 6 {
			s := segs[k : k+6]
			// Skip too distant segments.
			distSqr, _ := common.DistancePtSegSqr2D(pos, s, s[3:])
			if distSqr > rangeSqr {
				continue
			}
			d.addSegment(distSqr, s)
		}
	}
}

// IsValid reports whether every cached polygon still passes the filter.
func (d *DtLocalBoundary) IsValid(navquery *detour.DtNavMeshQuery, filter *detour.DtQueryFilter) bool {
	if len(d.m_polys) == 0 {
		return false
	}
	for _, ref := range d.m_polys {
		if !navquery.IsValidPolyRef(ref, filter) {
			return false
		}
	}
	return true
}
