package navigation

import (
	"math"
	"strings"
	"testing"

	"github.com/gorustyt/navcore/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOffMeshConnectionCapacity(t *testing.T) {
	g := flatGeometry(4)
	for i := 0; i < MAX_OFFMESH_CONNECTIONS; i++ {
		require.NoError(t, g.AddOffMeshConnection(common.Vec3{1, 0, 1}, common.Vec3{3, 0, 3}, 0.5, true, POLYAREA_JUMP, POLYFLAGS_JUMP))
	}
	err := g.AddOffMeshConnection(common.Vec3{1, 0, 1}, common.Vec3{3, 0, 3}, 0.5, true, POLYAREA_JUMP, POLYFLAGS_JUMP)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, MAX_OFFMESH_CONNECTIONS, g.GetOffMeshConnectionCount())
	assert.Len(t, g.GetOffMeshConnectionVerts(), 6*MAX_OFFMESH_CONNECTIONS)
	assert.Equal(t, uint32(1000), g.GetOffMeshConnectionId()[0])
	assert.Equal(t, uint8(1), g.GetOffMeshConnectionDirs()[0])
}

func TestDeleteOffMeshConnection(t *testing.T) {
	g := flatGeometry(4)
	require.NoError(t, g.AddOffMeshConnection(common.Vec3{0, 0, 0}, common.Vec3{1, 0, 1}, 0.5, false, POLYAREA_JUMP, POLYFLAGS_JUMP))
	require.NoError(t, g.AddOffMeshConnection(common.Vec3{2, 0, 2}, common.Vec3{3, 0, 3}, 0.7, true, POLYAREA_JUMP, POLYFLAGS_JUMP))

	g.DeleteOffMeshConnection(0)
	require.Equal(t, 1, g.GetOffMeshConnectionCount())
	assert.Equal(t, float32(0.7), g.GetOffMeshConnectionRads()[0])
	assert.Equal(t, []float32{2, 0, 2, 3, 0, 3}, g.GetOffMeshConnectionVerts())
	assert.Equal(t, uint32(1001), g.GetOffMeshConnectionId()[0])

	g.DeleteOffMeshConnection(5)
	assert.Equal(t, 1, g.GetOffMeshConnectionCount())
}

func TestGeometryBounds(t *testing.T) {
	g := NewInputGeometryData()
	g.AddVertex(1, 2, 3)
	g.AddVertex(-1, 5, 0)
	assert.Equal(t, [3]float32{-1, 2, 0}, g.GetBoundsMin())
	assert.Equal(t, [3]float32{1, 5, 3}, g.GetBoundsMax())
}

func TestGeometryValidate(t *testing.T) {
	assert.ErrorIs(t, NewInputGeometryData().Validate(), ErrNoGeometry)
	assert.NoError(t, flatGeometry(2).Validate())

	g := flatGeometry(2)
	g.AddTriangle(0, 1, 99, POLYAREA_GROUND, 45)
	assert.Error(t, g.Validate())

	g = flatGeometry(2)
	g.AddVertex(float32(math.NaN()), 0, 0)
	assert.Error(t, g.Validate())

	g = flatGeometry(2)
	g.AddTriangle(0, 1, 2, POLYAREA_GROUND, 90)
	assert.Error(t, g.Validate())
}

func TestLoadObj(t *testing.T) {
	src := `# quad and a triangle
v 0 0 0
v 0 0 1
v 1 0 1
v 1 0 0
f 1/1/1 2/2/2 3/3/3 4/4/4
f -4 -2 -1
o ignored
`
	g, err := LoadObj(strings.NewReader(src), POLYAREA_GRASS, 30)
	require.NoError(t, err)
	assert.Equal(t, 4, g.GetVertCount())
	require.Equal(t, 3, g.GetTriCount())
	assert.Equal(t, []int32{0, 1, 2, 0, 2, 3, 0, 2, 3}, g.GetTris())
	assert.Equal(t, []uint8{POLYAREA_GRASS, POLYAREA_GRASS, POLYAREA_GRASS}, g.GetTriAreas())
	assert.Equal(t, float32(30), g.GetTriSlopes()[0])
	assert.NoError(t, g.Validate())
}

func TestLoadObjBadVertex(t *testing.T) {
	_, err := LoadObj(strings.NewReader("v 0 zero 0\n"), POLYAREA_GROUND, 45)
	assert.Error(t, err)
	_, err = LoadObj(strings.NewReader("v 0 0\n"), POLYAREA_GROUND, 45)
	assert.Error(t, err)
}

func TestChunkyTriMesh(t *testing.T) {
	g := flatGeometry(40)
	cm, ok := NewChunkyTriMesh(g.GetVerts(), g.GetTris(), g.GetTriCount(), TRIS_PER_CHUNK)
	require.True(t, ok)
	assert.LessOrEqual(t, cm.MaxTrisPerChunk, TRIS_PER_CHUNK)

	seen := make(map[int32]int)
	all := cm.GetChunksOverlappingRect([2]float32{-1, -1}, [2]float32{41, 41})
	require.NotEmpty(t, all)
	for _, id := range all {
		tris, ids := cm.ChunkTris(id)
		assert.Len(t, tris, 3*len(ids))
		for i, tid := range ids {
			seen[tid]++
			orig := g.GetTris()[tid*3 : tid*3+3]
			assert.Equal(t, orig, tris[i*3:i*3+3])
		}
	}
	assert.Len(t, seen, g.GetTriCount())
	for _, c := range seen {
		assert.Equal(t, 1, c)
	}

	corner := cm.GetChunksOverlappingRect([2]float32{0, 0}, [2]float32{1, 1})
	assert.NotEmpty(t, corner)
	assert.Less(t, len(corner), len(all))

	seg := cm.GetChunksOverlappingSegment([2]float32{0.5, 0.5}, [2]float32{1.5, 0.5})
	assert.NotEmpty(t, seg)
	assert.Empty(t, cm.GetChunksOverlappingRect([2]float32{100, 100}, [2]float32{101, 101}))
}
