package navigation

import (
	"math"
	"sort"
)

type ChunkyTriMeshNode struct {
	Bmin [2]float32
	Bmax [2]float32
	I    int ///< First triangle of a leaf, or the negated escape offset of an inner node.
	N    int
}

// ChunkyTriMesh is an xz kd-tree over the input triangles, used to fetch
// the triangles overlapping a tile without scanning the whole mesh.
type ChunkyTriMesh struct {
	Nodes           []ChunkyTriMeshNode
	Tris            []int32 ///< Vertex indices, reordered leaf by leaf.
	TriIds          []int32 ///< Source triangle index of every reordered triangle.
	MaxTrisPerChunk int
}

type boundsItem struct {
	bmin [2]float32
	bmax [2]float32
	i    int
}

func calcExtends(items []boundsItem, bmin, bmax *[2]float32) {
	*bmin = items[0].bmin
	*bmax = items[0].bmax
	for _, it := range items[1:] {
		bmin[0] = min(bmin[0], it.bmin[0])
		bmin[1] = min(bmin[1], it.bmin[1])
		bmax[0] = max(bmax[0], it.bmax[0])
		bmax[1] = max(bmax[1], it.bmax[1])
	}
}

func longestAxis(x, y float32) int {
	if y > x {
		return 1
	}
	return 0
}

func (cm *ChunkyTriMesh) subdivide(items []boundsItem, imin, imax, trisPerChunk int, inTris []int32) {
	inum := imax - imin
	cur := len(cm.Nodes)
	cm.Nodes = append(cm.Nodes, ChunkyTriMeshNode{})
	node := &cm.Nodes[cur]
	calcExtends(items[imin:imax], &node.Bmin, &node.Bmax)

	if inum <= trisPerChunk {
		// Leaf
		node.I = len(cm.TriIds)
		node.N = inum
		for _, it := range items[imin:imax] {
			cm.Tris = append(cm.Tris, inTris[it.i*3:it.i*3+3]...)
			cm.TriIds = append(cm.TriIds, int32(it.i))
		}
		return
	}

	// Split
	axis := longestAxis(node.Bmax[0]-node.Bmin[0], node.Bmax[1]-node.Bmin[1])
	part := items[imin:imax]
	sort.Slice(part, func(i, j int) bool {
		return part[i].bmin[axis] < part[j].bmin[axis]
	})

	isplit := imin + inum/2
	cm.subdivide(items, imin, isplit, trisPerChunk, inTris)
	cm.subdivide(items, isplit, imax, trisPerChunk, inTris)

	// Negative index means escape.
	cm.Nodes[cur].I = -(len(cm.Nodes) - cur)
}

// NewChunkyTriMesh splits ntris triangles into leaves of at most trisPerChunk.
func NewChunkyTriMesh(verts []float32, tris []int32, ntris, trisPerChunk int) (*ChunkyTriMesh, bool) {
	if ntris <= 0 || trisPerChunk <= 0 {
		return nil, false
	}
	nchunks := (ntris + trisPerChunk - 1) / trisPerChunk
	cm := &ChunkyTriMesh{
		Nodes:  make([]ChunkyTriMeshNode, 0, nchunks*4),
		Tris:   make([]int32, 0, ntris*3),
		TriIds: make([]int32, 0, ntris),
	}

	// Build tree
	items := make([]boundsItem, ntris)
	for i := range items {
		t := tris[i*3 : i*3+3]
		it := &items[i]
		it.i = i
		// Calc triangle XZ bounds.
		it.bmin[0], it.bmax[0] = verts[t[0]*3], verts[t[0]*3]
		it.bmin[1], it.bmax[1] = verts[t[0]*3+2], verts[t[0]*3+2]
		for j := 1; j < 3; j++ {
			v := verts[t[j]*3 : t[j]*3+3]
			it.bmin[0] = min(it.bmin[0], v[0])
			it.bmin[1] = min(it.bmin[1], v[2])
			it.bmax[0] = max(it.bmax[0], v[0])
			it.bmax[1] = max(it.bmax[1], v[2])
		}
	}
	cm.subdivide(items, 0, ntris, trisPerChunk, tris)

	// Calc max tris per node.
	for _, node := range cm.Nodes {
		if node.I >= 0 && node.N > cm.MaxTrisPerChunk {
			cm.MaxTrisPerChunk = node.N
		}
	}
	return cm, true
}

// ChunkTris returns the vertex indices and source triangle ids of leaf id.
func (cm *ChunkyTriMesh) ChunkTris(id int) (tris []int32, triIds []int32) {
	node := cm.Nodes[id]
	return cm.Tris[node.I*3 : (node.I+node.N)*3], cm.TriIds[node.I : node.I+node.N]
}

func checkOverlapRect(amin, amax, bmin, bmax [2]float32) bool {
	overlap := true
	if amin[0] > bmax[0] || amax[0] < bmin[0] {
		overlap = false
	}
	if amin[1] > bmax[1] || amax[1] < bmin[1] {
		overlap = false
	}
	return overlap
}

func checkOverlapSegment(p, q, bmin, bmax [2]float32) bool {
	const EPSILON = 1e-6

	var tmin, tmax float32 = 0, 1
	d := [2]float32{q[0] - p[0], q[1] - p[1]}
	for i := 0; i < 2; i++ {
		if math.Abs(float64(d[i])) < EPSILON {
			// Ray is parallel to slab. No hit if origin not within slab
			if p[i] < bmin[i] || p[i] > bmax[i] {
				return false
			}
			continue
		}
		// Compute intersection t value of ray with near and far plane of slab
		ood := 1.0 / d[i]
		t1 := (bmin[i] - p[i]) * ood
		t2 := (bmax[i] - p[i]) * ood
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = max(tmin, t1)
		tmax = min(tmax, t2)
		if tmin > tmax {
			return false
		}
	}
	return true
}

func (cm *ChunkyTriMesh) collect(overlap func(node *ChunkyTriMeshNode) bool) (ids []int) {
	// Traverse tree
	i := 0
	for i < len(cm.Nodes) {
		node := &cm.Nodes[i]
		hit := overlap(node)
		isLeafNode := node.I >= 0
		if isLeafNode && hit {
			ids = append(ids, i)
		}
		if hit || isLeafNode {
			i++
		} else {
			i += -node.I
		}
	}
	return ids
}

func (cm *ChunkyTriMesh) GetChunksOverlappingRect(bmin, bmax [2]float32) []int {
	return cm.collect(func(node *ChunkyTriMeshNode) bool {
		return checkOverlapRect(bmin, bmax, node.Bmin, node.Bmax)
	})
}

func (cm *ChunkyTriMesh) GetChunksOverlappingSegment(p, q [2]float32) []int {
	return cm.collect(func(node *ChunkyTriMeshNode) bool {
		return checkOverlapSegment(p, q, node.Bmin, node.Bmax)
	})
}
