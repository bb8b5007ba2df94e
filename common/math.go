package common

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Number covers every numeric type the build and query code works with.
type Number interface {
	constraints.Integer | constraints.Float
}

// / Returns the square of the value.
// / @param[in]		a	The value.
// / @return The square of the value.
func Sqr[T Number](a T) T {
	return a * a
}

// / Returns the absolute value.
// / @param[in]		a	The value.
// / @return The absolute value of the specified value.
func Abs[T Number](a T) T {
	if a < 0 {
		return -a
	}
	return a
}

// / Clamps the value to the specified range.
// / @param[in]		value			The value to clamp.
// / @param[in]		minInclusive	The minimum permitted return value.
// / @param[in]		maxInclusive	The maximum permitted return value.
// / @return The value, clamped to the specified range.
func Clamp[T constraints.Ordered](value, minInclusive, maxInclusive T) T {
	if value < minInclusive {
		return minInclusive
	}
	if value > maxInclusive {
		return maxInclusive
	}
	return value
}

func Sqrtf(x float32) float32 {
	return float32(math.Sqrt(float64(x)))
}

// / Performs a vector addition. (@p v1 + @p v2)
// / @param[out]		dest	The result vector. [(x, y, z)]
// / @param[in]		v1		The base vector. [(x, y, z)]
// / @param[in]		v2		The vector to add to @p v1. [(x, y, z)]
func Vadd[T constraints.Float](dest, v1, v2 []T) {
	dest[0] = v1[0] + v2[0]
	dest[1] = v1[1] + v2[1]
	dest[2] = v1[2] + v2[2]
}

// / Performs a vector subtraction. (@p v1 - @p v2)
func Vsub[T constraints.Float](dest, v1, v2 []T) {
	dest[0] = v1[0] - v2[0]
	dest[1] = v1[1] - v2[1]
	dest[2] = v1[2] - v2[2]
}

// / Performs a scaled vector addition. (@p v1 + (@p v2 * @p s))
func Vmad[T constraints.Float](dest, v1, v2 []T, s T) {
	dest[0] = v1[0] + v2[0]*s
	dest[1] = v1[1] + v2[1]*s
	dest[2] = v1[2] + v2[2]*s
}

// / Scales the vector by the specified value. (@p v * @p t)
func Vscale[T constraints.Float](dest, v []T, t T) {
	dest[0] = v[0] * t
	dest[1] = v[1] * t
	dest[2] = v[2] * t
}

// / Selects the minimum value of each element from the specified vectors.
// / @param[in,out]	mn	A vector.  (Will be updated with the result.) [(x, y, z)]
// / @param[in]		v	A vector. [(x, y, z)]
func Vmin[T constraints.Float](mn, v []T) {
	mn[0] = min(mn[0], v[0])
	mn[1] = min(mn[1], v[1])
	mn[2] = min(mn[2], v[2])
}

// / Selects the maximum value of each element from the specified vectors.
func Vmax[T constraints.Float](mx, v []T) {
	mx[0] = max(mx[0], v[0])
	mx[1] = max(mx[1], v[1])
	mx[2] = max(mx[2], v[2])
}

// / Sets the vector elements to the specified values.
func Vset[T constraints.Float](dest []T, x, y, z T) {
	dest[0] = x
	dest[1] = y
	dest[2] = z
}

func Vcopy[T constraints.Float](dest, a []T) {
	dest[0] = a[0]
	dest[1] = a[1]
	dest[2] = a[2]
}

// / Derives the cross product of two vectors. (@p v1 x @p v2)
func Vcross[T constraints.Float](dest, v1, v2 []T) {
	dest[0] = v1[1]*v2[2] - v1[2]*v2[1]
	dest[1] = v1[2]*v2[0] - v1[0]*v2[2]
	dest[2] = v1[0]*v2[1] - v1[1]*v2[0]
}

// / Derives the dot product of two vectors. (@p v1 . @p v2)
func Vdot[T constraints.Float](v1, v2 []T) T {
	return v1[0]*v2[0] + v1[1]*v2[1] + v1[2]*v2[2]
}

// / Derives the scalar length of the vector.
func Vlen(v []float32) float32 {
	return Sqrtf(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// / Derives the square of the scalar length of the vector. (len * len)
func VlenSqr(v []float32) float32 {
	return v[0]*v[0] + v[1]*v[1] + v[2]*v[2]
}

// / Returns the distance between two points.
func Vdist(v1, v2 []float32) float32 {
	return Sqrtf(VdistSqr(v1, v2))
}

// / Returns the square of the distance between two points.
func VdistSqr(v1, v2 []float32) float32 {
	dx := v2[0] - v1[0]
	dy := v2[1] - v1[1]
	dz := v2[2] - v1[2]
	return dx*dx + dy*dy + dz*dz
}

// / Derives the distance between the specified points on the xz-plane.
// /
// / The vectors are projected onto the xz-plane, so the y-values are ignored.
func Vdist2D(v1, v2 []float32) float32 {
	return Sqrtf(Vdist2DSqr(v1, v2))
}

// / Derives the square of the distance between the specified points on the xz-plane.
func Vdist2DSqr(v1, v2 []float32) float32 {
	dx := v2[0] - v1[0]
	dz := v2[2] - v1[2]
	return dx*dx + dz*dz
}

// / Normalizes the vector.
func Vnormalize(v []float32) {
	l := Vlen(v)
	if l <= 0 {
		return
	}
	d := 1.0 / l
	v[0] *= d
	v[1] *= d
	v[2] *= d
}

// / Performs a 'sloppy' colocation check of the specified points.
// / @return True if the points are considered to be at the same location.
func Vequal(p0, p1 []float32) bool {
	thr := Sqr(float32(1.0 / 16384.0))
	return VdistSqr(p0, p1) < thr
}

// / Performs a linear interpolation between two vectors. (@p v1 toward @p v2)
func Vlerp(dest, v1, v2 []float32, t float32) {
	dest[0] = v1[0] + (v2[0]-v1[0])*t
	dest[1] = v1[1] + (v2[1]-v1[1])*t
	dest[2] = v1[2] + (v2[2]-v1[2])*t
}

// / Derives the xz-plane 2D perp product of the two vectors. (uz*vx - ux*vz)
func Vperp2D(u, v []float32) float32 {
	return u[2]*v[0] - u[0]*v[2]
}

// / Derives the dot product of two vectors on the xz-plane. (@p u . @p v)
func Vdot2D(u, v []float32) float32 {
	return u[0]*v[0] + u[2]*v[2]
}

// / Derives the signed xz-plane area of the triangle ABC, or the relationship of line AB to point C.
func TriArea2D(a, b, c []float32) float32 {
	abx := b[0] - a[0]
	abz := b[2] - a[2]
	acx := c[0] - a[0]
	acz := c[2] - a[2]
	return acx*abz - abx*acz
}

func IsFinite(v float32) bool {
	return !math.IsInf(float64(v), 0) && !math.IsNaN(float64(v))
}

// / Checks that the specified vector's components are all finite.
func Visfinite(v []float32) bool {
	return IsFinite(v[0]) && IsFinite(v[1]) && IsFinite(v[2])
}

// / Checks that the specified vector's 2D components are finite.
func Visfinite2D(v []float32) bool {
	return IsFinite(v[0]) && IsFinite(v[2])
}

// / Gets the direction for the specified offset. One of x and y should be 0.
func GetDirForOffset(offsetX, offsetZ int) int {
	dirs := [5]int{3, 0, -1, 2, 1}
	return dirs[((offsetZ+1)<<1)+offsetX]
}

// / Gets the standard width (x-axis) offset for the specified direction.
func GetDirOffsetX(direction int) int {
	offset := [4]int{-1, 0, 1, 0}
	return offset[direction&0x03]
}

// / Gets the standard height (z-axis) offset for the specified direction.
func GetDirOffsetY(direction int) int {
	offset := [4]int{0, 1, 0, -1}
	return offset[direction&0x03]
}

func NextPow2(v uint32) uint32 {
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v++
	return v
}

func Ilog2(v uint32) uint32 {
	b := func(c bool) uint32 {
		if c {
			return 1
		}
		return 0
	}
	r := b(v > 0xffff) << 4
	v >>= r
	shift := b(v > 0xff) << 3
	v >>= shift
	r |= shift
	shift = b(v > 0xf) << 2
	v >>= shift
	r |= shift
	shift = b(v > 0x3) << 1
	v >>= shift
	r |= shift
	r |= v >> 1
	return r
}

// / Determines if two axis-aligned bounding boxes overlap.
func OverlapBounds(amin, amax, bmin, bmax []float32) bool {
	if amin[0] > bmax[0] || amax[0] < bmin[0] {
		return false
	}
	if amin[1] > bmax[1] || amax[1] < bmin[1] {
		return false
	}
	if amin[2] > bmax[2] || amax[2] < bmin[2] {
		return false
	}
	return true
}

// / Determines if two axis-aligned quantized bounding boxes overlap.
func OverlapQuantBounds(amin, amax, bmin, bmax []uint16) bool {
	if amin[0] > bmax[0] || amax[0] < bmin[0] {
		return false
	}
	if amin[1] > bmax[1] || amax[1] < bmin[1] {
		return false
	}
	if amin[2] > bmax[2] || amax[2] < bmin[2] {
		return false
	}
	return true
}
