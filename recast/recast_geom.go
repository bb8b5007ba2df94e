package recast

// Integer xz-plane predicates shared by contour hole merging and polygon triangulation.
// Vertices are addressed as x at [0] and z at [2].

type intVert interface {
	~int | ~int32 | ~uint16
}

func area2[T intVert](a, b, c []T) int {
	return (int(b[0])-int(a[0]))*(int(c[2])-int(a[2])) - (int(c[0])-int(a[0]))*(int(b[2])-int(a[2]))
}

// Returns true iff c is strictly to the left of the directed
// line through a to b.
func left[T intVert](a, b, c []T) bool {
	return area2(a, b, c) < 0
}

func leftOn[T intVert](a, b, c []T) bool {
	return area2(a, b, c) <= 0
}

func collinear[T intVert](a, b, c []T) bool {
	return area2(a, b, c) == 0
}

// Returns true iff ab properly intersects cd: they share
// a point interior to both segments.  The properness of the
// intersection is ensured by using strict leftness.
func intersectProp[T intVert](a, b, c, d []T) bool {
	// Eliminate improper cases.
	if collinear(a, b, c) || collinear(a, b, d) || collinear(c, d, a) || collinear(c, d, b) {
		return false
	}
	return (left(a, b, c) != left(a, b, d)) && (left(c, d, a) != left(c, d, b))
}

// Returns T iff (a,b,c) are collinear and point c lies
// on the closed segement ab.
func between[T intVert](a, b, c []T) bool {
	if !collinear(a, b, c) {
		return false
	}
	// If ab not vertical, check betweenness on x; else on y.
	if a[0] != b[0] {
		return (a[0] <= c[0] && c[0] <= b[0]) || (a[0] >= c[0] && c[0] >= b[0])
	}
	return (a[2] <= c[2] && c[2] <= b[2]) || (a[2] >= c[2] && c[2] >= b[2])
}

// Returns true iff segments ab and cd intersect, properly or improperly.
func intersect[T intVert](a, b, c, d []T) bool {
	if intersectProp(a, b, c, d) {
		return true
	}
	return between(a, b, c) || between(a, b, d) || between(c, d, a) || between(c, d, b)
}

func vequal[T intVert](a, b []T) bool {
	return a[0] == b[0] && a[2] == b[2]
}

func prev(i, n int) int {
	if i-1 >= 0 {
		return i - 1
	}
	return n - 1
}

func next(i, n int) int {
	if i+1 < n {
		return i + 1
	}
	return 0
}
