package navigation

import (
	"fmt"
	"math"

	"github.com/gorustyt/navcore/common"
)

const (
	MAX_OFFMESH_CONNECTIONS = 1024
	TRIS_PER_CHUNK          = 256
)

// InputGeometryData is the triangle soup and off-mesh links a navmesh is built from.
// Every triangle carries its own area id and walkable slope limit.
type InputGeometryData struct {
	m_verts  []float32
	m_tris   []int32
	m_areas  []uint8
	m_slopes []float32

	m_bmin, m_bmax [3]float32

	m_offMeshConVerts []float32
	m_offMeshConRads  []float32
	m_offMeshConDirs  []uint8
	m_offMeshConAreas []uint8
	m_offMeshConFlags []uint16
	m_offMeshConId    []uint32

	m_chunkyMesh *ChunkyTriMesh
}

func NewInputGeometryData() *InputGeometryData {
	return &InputGeometryData{}
}

// AddVertex appends a vertex and returns its index.
func (g *InputGeometryData) AddVertex(x, y, z float32) int {
	if len(g.m_verts) == 0 {
		g.m_bmin = [3]float32{x, y, z}
		g.m_bmax = g.m_bmin
	} else {
		g.m_bmin = [3]float32{min(g.m_bmin[0], x), min(g.m_bmin[1], y), min(g.m_bmin[2], z)}
		g.m_bmax = [3]float32{max(g.m_bmax[0], x), max(g.m_bmax[1], y), max(g.m_bmax[2], z)}
	}
	g.m_verts = append(g.m_verts, x, y, z)
	return len(g.m_verts)/3 - 1
}

// AddTriangle appends the triangle (a,b,c). Triangles steeper than
// maxSlopeDegrees are not walkable.
func (g *InputGeometryData) AddTriangle(a, b, c int, areaID uint8, maxSlopeDegrees float32) {
	g.m_tris = append(g.m_tris, int32(a), int32(b), int32(c))
	g.m_areas = append(g.m_areas, areaID)
	g.m_slopes = append(g.m_slopes, maxSlopeDegrees)
	g.m_chunkyMesh = nil
}

// AddOffMeshConnection registers a link between start and end. Nothing is
// stored once MAX_OFFMESH_CONNECTIONS links exist.
func (g *InputGeometryData) AddOffMeshConnection(start, end common.Vec3, radius float32, bidir bool, area uint8, flags uint16) error {
	if g.GetOffMeshConnectionCount() >= MAX_OFFMESH_CONNECTIONS {
		return fmt.Errorf("%w: off-mesh connections (max %d)", ErrCapacityExceeded, MAX_OFFMESH_CONNECTIONS)
	}
	g.m_offMeshConVerts = append(g.m_offMeshConVerts, start[0], start[1], start[2], end[0], end[1], end[2])
	g.m_offMeshConRads = append(g.m_offMeshConRads, radius)
	g.m_offMeshConDirs = append(g.m_offMeshConDirs, uint8(common.BoolToInt(bidir)))
	g.m_offMeshConAreas = append(g.m_offMeshConAreas, area)
	g.m_offMeshConFlags = append(g.m_offMeshConFlags, flags)
	g.m_offMeshConId = append(g.m_offMeshConId, uint32(1000+len(g.m_offMeshConId)))
	return nil
}

func (g *InputGeometryData) DeleteOffMeshConnection(i int) {
	n := g.GetOffMeshConnectionCount()
	if i < 0 || i >= n {
		return
	}
	last := n - 1
	copy(g.m_offMeshConVerts[i*6:i*6+6], g.m_offMeshConVerts[last*6:last*6+6])
	g.m_offMeshConRads[i] = g.m_offMeshConRads[last]
	g.m_offMeshConDirs[i] = g.m_offMeshConDirs[last]
	g.m_offMeshConAreas[i] = g.m_offMeshConAreas[last]
	g.m_offMeshConFlags[i] = g.m_offMeshConFlags[last]
	g.m_offMeshConId[i] = g.m_offMeshConId[last]
	g.m_offMeshConVerts = g.m_offMeshConVerts[:last*6]
	g.m_offMeshConRads = g.m_offMeshConRads[:last]
	g.m_offMeshConDirs = g.m_offMeshConDirs[:last]
	g.m_offMeshConAreas = g.m_offMeshConAreas[:last]
	g.m_offMeshConFlags = g.m_offMeshConFlags[:last]
	g.m_offMeshConId = g.m_offMeshConId[:last]
}

func (g *InputGeometryData) GetVerts() []float32      { return g.m_verts }
func (g *InputGeometryData) GetVertCount() int        { return len(g.m_verts) / 3 }
func (g *InputGeometryData) GetTris() []int32         { return g.m_tris }
func (g *InputGeometryData) GetTriCount() int         { return len(g.m_tris) / 3 }
func (g *InputGeometryData) GetTriAreas() []uint8     { return g.m_areas }
func (g *InputGeometryData) GetTriSlopes() []float32  { return g.m_slopes }
func (g *InputGeometryData) GetBoundsMin() [3]float32 { return g.m_bmin }
func (g *InputGeometryData) GetBoundsMax() [3]float32 { return g.m_bmax }

func (g *InputGeometryData) GetOffMeshConnectionCount() int       { return len(g.m_offMeshConRads) }
func (g *InputGeometryData) GetOffMeshConnectionVerts() []float32 { return g.m_offMeshConVerts }
func (g *InputGeometryData) GetOffMeshConnectionRads() []float32  { return g.m_offMeshConRads }
func (g *InputGeometryData) GetOffMeshConnectionDirs() []uint8    { return g.m_offMeshConDirs }
func (g *InputGeometryData) GetOffMeshConnectionAreas() []uint8   { return g.m_offMeshConAreas }
func (g *InputGeometryData) GetOffMeshConnectionFlags() []uint16  { return g.m_offMeshConFlags }
func (g *InputGeometryData) GetOffMeshConnectionId() []uint32     { return g.m_offMeshConId }

// GetChunkyMesh returns the kd-tree over the triangles, building it on first use.
func (g *InputGeometryData) GetChunkyMesh() *ChunkyTriMesh {
	if g.m_chunkyMesh == nil {
		g.m_chunkyMesh, _ = NewChunkyTriMesh(g.m_verts, g.m_tris, g.GetTriCount(), TRIS_PER_CHUNK)
	}
	return g.m_chunkyMesh
}

// Validate reports empty geometry, out of range indices and non finite vertices.
func (g *InputGeometryData) Validate() error {
	if g.GetVertCount() == 0 || g.GetTriCount() == 0 {
		return ErrNoGeometry
	}
	for i, v := range g.m_verts {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return fmt.Errorf("navigation: vertex %d is not finite", i/3)
		}
	}
	nv := int32(g.GetVertCount())
	for i, idx := range g.m_tris {
		if idx < 0 || idx >= nv {
			return fmt.Errorf("navigation: triangle %d references vertex %d of %d", i/3, idx, nv)
		}
	}
	for i, s := range g.m_slopes {
		if s < 0 || s >= 90 {
			return fmt.Errorf("navigation: triangle %d slope %.1f out of [0,90)", i, s)
		}
	}
	return nil
}
