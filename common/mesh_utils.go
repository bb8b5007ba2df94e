package common

import "math"

func Prev(i, n int) int {
	if i-1 >= 0 {
		return i - 1
	}
	return n - 1
}

func Next(i, n int) int {
	if i+1 < n {
		return i + 1
	}
	return 0
}

// / Determines whether the point lies inside the polygon on the xz-plane.
// / All points are projected onto the xz-plane, so the y-values are ignored.
func PointInPolygon(pt []float32, verts []float32, nverts int) bool {
	c := false
	for i, j := 0, nverts-1; i < nverts; j, i = i, i+1 {
		vi := verts[i*3:]
		vj := verts[j*3:]
		if ((vi[2] > pt[2]) != (vj[2] > pt[2])) &&
			(pt[0] < (vj[0]-vi[0])*(pt[2]-vi[2])/(vj[2]-vi[2])+vi[0]) {
			c = !c
		}
	}
	return c
}

// DistancePtSegSqr2D returns the squared xz distance from pt to segment pq and the
// segment parameter of the closest point.
func DistancePtSegSqr2D(pt, p, q []float32) (dist, t float32) {
	pqx := q[0] - p[0]
	pqz := q[2] - p[2]
	dx := pt[0] - p[0]
	dz := pt[2] - p[2]
	d := pqx*pqx + pqz*pqz
	t = pqx*dx + pqz*dz
	if d > 0 {
		t /= d
	}
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	dx = p[0] + t*pqx - pt[0]
	dz = p[2] + t*pqz - pt[2]
	return dx*dx + dz*dz, t
}

// / Returns true and the point inside the polygon if it was inside; ed receives the
// / squared distance to every edge and et the parameter along every edge.
func DistancePtPolyEdgesSqr(pt, verts []float32, nverts int, ed, et []float32) bool {
	c := false
	for i, j := 0, nverts-1; i < nverts; j, i = i, i+1 {
		vi := verts[i*3:]
		vj := verts[j*3:]
		if ((vi[2] > pt[2]) != (vj[2] > pt[2])) &&
			(pt[0] < (vj[0]-vi[0])*(pt[2]-vi[2])/(vj[2]-vi[2])+vi[0]) {
			c = !c
		}
		ed[j], et[j] = DistancePtSegSqr2D(pt, vj, vi)
	}
	return c
}

// ClosestHeightPointTriangle returns the height of the triangle abc at the xz position of p.
func ClosestHeightPointTriangle(p, a, b, c []float32) (float32, bool) {
	const eps = 1e-6
	var v0, v1, v2 [3]float32
	Vsub(v0[:], c, a)
	Vsub(v1[:], b, a)
	Vsub(v2[:], p, a)

	// Compute scaled barycentric coordinates
	denom := v0[0]*v1[2] - v0[2]*v1[0]
	if Abs(denom) < eps {
		return 0, false
	}
	u := v1[2]*v2[0] - v1[0]*v2[2]
	v := v0[0]*v2[2] - v0[2]*v2[0]
	if denom < 0 {
		denom = -denom
		u = -u
		v = -v
	}
	// If point lies inside the triangle, return interpolated ycoord.
	if u >= 0.0 && v >= 0.0 && (u+v) <= denom {
		return a[1] + (v0[1]*u+v1[1]*v)/denom, true
	}
	return 0, false
}

// IntersectSegmentPoly2D clips segment p0-p1 against a convex polygon on the xz-plane.
// segMin and segMax are the indices of the polygon edges the segment enters and leaves by,
// -1 when the segment starts or ends inside.
func IntersectSegmentPoly2D(p0, p1, verts []float32, nverts int) (tmin, tmax float32, segMin, segMax int, ok bool) {
	const eps = 0.000001
	tmin = 0
	tmax = 1
	segMin = -1
	segMax = -1
	var dir [3]float32
	Vsub(dir[:], p1, p0)
	for i, j := 0, nverts-1; i < nverts; j, i = i, i+1 {
		var edge, diff [3]float32
		Vsub(edge[:], verts[i*3:], verts[j*3:])
		Vsub(diff[:], p0, verts[j*3:])
		n := Vperp2D(edge[:], diff[:])
		d := Vperp2D(dir[:], edge[:])
		if Abs(d) < eps {
			// S is nearly parallel to this edge
			if n < 0 {
				return 0, 0, -1, -1, false
			}
			continue
		}
		t := n / d
		if d < 0 {
			// segment S is entering across this edge
			if t > tmin {
				tmin = t
				segMin = j
				// S enters after leaving polygon
				if tmin > tmax {
					return 0, 0, -1, -1, false
				}
			}
		} else {
			// segment S is leaving across this edge
			if t < tmax {
				tmax = t
				segMax = j
				// S leaves before entering polygon
				if tmax < tmin {
					return 0, 0, -1, -1, false
				}
			}
		}
	}
	return tmin, tmax, segMin, segMax, true
}

// IntersectSegSeg2D intersects segments ap-aq and bp-bq on the xz-plane.
func IntersectSegSeg2D(ap, aq, bp, bq []float32) (s, t float32, ok bool) {
	var u, v, w [3]float32
	Vsub(u[:], aq, ap)
	Vsub(v[:], bq, bp)
	Vsub(w[:], ap, bp)
	d := Vperp2D(u[:], v[:])
	if Abs(d) < 1e-6 {
		return 0, 0, false
	}
	s = Vperp2D(v[:], w[:]) / d
	t = Vperp2D(u[:], w[:]) / d
	return s, t, true
}

// IntersectSegAABB returns the entry and exit parameters of segment sp-sq through the box.
func IntersectSegAABB(sp, sq, amin, amax []float32) (tmin, tmax float32, ok bool) {
	const eps = 1e-6
	var d [3]float32
	Vsub(d[:], sq, sp)
	tmin = 0
	tmax = math.MaxFloat32
	for i := 0; i < 3; i++ {
		if Abs(d[i]) < eps {
			if sp[i] < amin[i] || sp[i] > amax[i] {
				return 0, 0, false
			}
			continue
		}
		ood := 1.0 / d[i]
		t1 := (amin[i] - sp[i]) * ood
		t2 := (amax[i] - sp[i]) * ood
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = max(tmin, t1)
		tmax = min(tmax, t2)
		if tmin > tmax {
			return 0, 0, false
		}
	}
	return tmin, tmax, true
}

// CalcPolyCenter averages the referenced vertices.
func CalcPolyCenter(dest []float32, idx []uint16, verts []float32) {
	dest[0], dest[1], dest[2] = 0, 0, 0
	for _, i := range idx {
		v := verts[int(i)*3:]
		dest[0] += v[0]
		dest[1] += v[1]
		dest[2] += v[2]
	}
	s := 1.0 / float32(len(idx))
	dest[0] *= s
	dest[1] *= s
	dest[2] *= s
}

// ComputeTileHash hashes integer tile coordinates into a bucket index.
func ComputeTileHash(x, y, mask int) int {
	const h1 = 0x8da6b343 // Large multiplicative constants;
	const h2 = 0xd8163841 // here arbitrarily chosen primes
	n := uint32(h1*uint64(uint32(x)) + h2*uint64(uint32(y)))
	return int(n & uint32(mask))
}
