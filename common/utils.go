package common

import "github.com/go-gl/mathgl/mgl32"

type Vec3 = mgl32.Vec3
type Vec2 = mgl32.Vec2

func GetVert3[T any](verts []T, index int) []T {
	return verts[index*3 : index*3+3]
}

func GetVert2[T any](verts []T, index int) []T {
	return verts[index*2 : index*2+2]
}

func GetVert4[T any](verts []T, index int) []T {
	return verts[index*4 : index*4+4]
}

// V3 copies the first three components of a slice into a Vec3.
func V3(v []float32) Vec3 {
	return Vec3{v[0], v[1], v[2]}
}

// SetV3 stores a Vec3 into the first three components of dest.
func SetV3(dest []float32, v Vec3) {
	dest[0] = v[0]
	dest[1] = v[1]
	dest[2] = v[2]
}

func BoolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
