package detour

import (
	"github.com/gorustyt/navcore/common"
)

func dtOppositeTile(side int) int { return (side + 4) & 0x7 }

// / Get flags for edge in detail triangle.
// / @param[in]	triFlags		The flags for the triangle (last component of detail vertices above).
// / @param[in]	edgeIndex		The index of the first vertex of the edge. For instance, if 0,
// /								returns flags for edge AB.
func DtGetDetailTriEdgeFlags(triFlags uint8, edgeIndex int) int {
	return int(triFlags>>(edgeIndex*2)) & 0x3
}

// / @par
// /
// / All vertices are projected onto the xz-plane, so the y-values are ignored.
func dtOverlapPolyPoly2D(polya []float32, npolya int, polyb []float32, npolyb int) bool {
	const eps = float32(1e-4)
	for i, j := 0, npolya-1; i < npolya; j, i = i, i+1 {
		va := polya[j*3:]
		vb := polya[i*3:]
		n := [3]float32{vb[2] - va[2], 0, -(vb[0] - va[0])}
		amin, amax := projectPoly(n[:], polya, npolya)
		bmin, bmax := projectPoly(n[:], polyb, npolyb)
		if !overlapRange(amin, amax, bmin, bmax, eps) {
			// Found separating axis
			return false
		}
	}
	for i, j := 0, npolyb-1; i < npolyb; j, i = i, i+1 {
		va := polyb[j*3:]
		vb := polyb[i*3:]
		n := [3]float32{vb[2] - va[2], 0, -(vb[0] - va[0])}
		amin, amax := projectPoly(n[:], polya, npolya)
		bmin, bmax := projectPoly(n[:], polyb, npolyb)
		if !overlapRange(amin, amax, bmin, bmax, eps) {
			// Found separating axis
			return false
		}
	}
	return true
}

func projectPoly(axis, poly []float32, npoly int) (rmin, rmax float32) {
	rmax = common.Vdot2D(axis, poly[0:3])
	rmin = rmax
	for i := 1; i < npoly; i++ {
		d := common.Vdot2D(axis, poly[i*3:])
		rmin = min(rmin, d)
		rmax = max(rmax, d)
	}
	return rmin, rmax
}

func overlapRange(amin, amax, bmin, bmax, eps float32) bool {
	return !((amin+eps) > bmax || (amax-eps) < bmin)
}

// closestPtPointTriangle returns the point on triangle abc closest to p.
func closestPtPointTriangle(closest, p, a, b, c []float32) {
	var ab, ac, ap [3]float32
	// Check if P in vertex region outside A
	common.Vsub(ab[:], b, a)
	common.Vsub(ac[:], c, a)
	common.Vsub(ap[:], p, a)
	d1 := common.Vdot(ab[:], ap[:])
	d2 := common.Vdot(ac[:], ap[:])
	if d1 <= 0 && d2 <= 0 {
		// barycentric coordinates (1,0,0)
		common.Vcopy(closest, a)
		return
	}
	// Check if P in vertex region outside B
	var bp [3]float32
	common.Vsub(bp[:], p, b)
	d3 := common.Vdot(ab[:], bp[:])
	d4 := common.Vdot(ac[:], bp[:])
	if d3 >= 0 && d4 <= d3 {
		common.Vcopy(closest, b)
		return
	}
	// Check if P in edge region of AB, if so return projection of P onto AB
	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		closest[0] = a[0] + v*ab[0]
		closest[1] = a[1] + v*ab[1]
		closest[2] = a[2] + v*ab[2]
		return
	}
	// Check if P in vertex region outside C
	var cp [3]float32
	common.Vsub(cp[:], p, c)
	d5 := common.Vdot(ab[:], cp[:])
	d6 := common.Vdot(ac[:], cp[:])
	if d6 >= 0 && d5 <= d6 {
		common.Vcopy(closest, c)
		return
	}
	// Check if P in edge region of AC, if so return projection of P onto AC
	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		closest[0] = a[0] + w*ac[0]
		closest[1] = a[1] + w*ac[1]
		closest[2] = a[2] + w*ac[2]
		return
	}
	// Check if P in edge region of BC, if so return projection of P onto BC
	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		closest[0] = b[0] + w*(c[0]-b[0])
		closest[1] = b[1] + w*(c[1]-b[1])
		closest[2] = b[2] + w*(c[2]-b[2])
		return
	}
	// P inside face region. Compute Q through its barycentric coordinates (u,v,w)
	denom := 1.0 / (va + vb + vc)
	v := vb * denom
	w := vc * denom
	closest[0] = a[0] + ab[0]*v + ac[0]*w
	closest[1] = a[1] + ab[1]*v + ac[1]*w
	closest[2] = a[2] + ab[2]*v + ac[2]*w
}
