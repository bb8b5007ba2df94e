package detour_tile_cache

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorustyt/navcore/common"
	"github.com/gorustyt/navcore/detour"
)

const (
	DT_OBSTACLE_EMPTY = iota
	DT_OBSTACLE_PROCESSING
	DT_OBSTACLE_PROCESSED
	DT_OBSTACLE_REMOVING
)

const (
	DT_OBSTACLE_CYLINDER     = iota
	DT_OBSTACLE_BOX          // AABB
	DT_OBSTACLE_ORIENTED_BOX // OBB
)

const DT_MAX_TOUCHED_TILES = 8

type DtObstacleCylinder struct {
	Pos    [3]float32
	Radius float32
	Height float32
}

type DtObstacleBox struct {
	Bmin [3]float32
	Bmax [3]float32
}

type DtObstacleOrientedBox struct {
	Center      [3]float32
	HalfExtents [3]float32
	YRadians    float32
}

// corners returns the xz footprint of the box, counter clockwise.
func (b *DtObstacleOrientedBox) corners(expand float32) []float32 {
	rot := mgl32.Rotate2D(b.YRadians)
	ex := b.HalfExtents[0] + expand
	ez := b.HalfExtents[2] + expand
	local := [4]mgl32.Vec2{{-ex, -ez}, {-ex, ez}, {ex, ez}, {ex, -ez}}
	verts := make([]float32, 0, 12)
	for _, l := range local {
		p := rot.Mul2x1(l)
		verts = append(verts, b.Center[0]+p[0], b.Center[1], b.Center[2]+p[1])
	}
	return verts
}

type DtTileCacheObstacle struct {
	Cylinder    DtObstacleCylinder
	Box         DtObstacleBox
	OrientedBox DtObstacleOrientedBox
	touched     []DtCompressedTileRef
	pending     []DtCompressedTileRef
	salt        uint16
	index       int
	Type        uint8
	State       uint8
	next        *DtTileCacheObstacle
}

// Touched returns the tiles the obstacle was stamped into.
func (ob *DtTileCacheObstacle) Touched() []DtCompressedTileRef { return ob.touched }

func (d *DtTileCache) GetObstacleRef(ob *DtTileCacheObstacle) DtObstacleRef {
	if ob == nil {
		return 0
	}
	return encodeObstacleId(ob.salt, ob.index)
}

// GetObstacleByRef returns the live obstacle of ref, nil when ref is stale.
func (d *DtTileCache) GetObstacleByRef(ref DtObstacleRef) *DtTileCacheObstacle {
	if ref == 0 {
		return nil
	}
	idx := decodeObstacleIdObstacle(ref)
	if idx >= len(d.m_obstacles) {
		return nil
	}
	ob := &d.m_obstacles[idx]
	if ob.salt != decodeObstacleIdSalt(ref) || ob.State == DT_OBSTACLE_EMPTY {
		return nil
	}
	return ob
}

func (d *DtTileCache) allocObstacle() (*DtTileCacheObstacle, detour.DtStatus) {
	if len(d.m_reqs) >= MAX_REQUESTS {
		return nil, detour.DT_FAILURE | detour.DT_BUFFER_TOO_SMALL
	}
	ob := d.m_nextFreeObstacle
	if ob == nil {
		return nil, detour.DT_FAILURE | detour.DT_OUT_OF_MEMORY
	}
	d.m_nextFreeObstacle = ob.next

	salt, index := ob.salt, ob.index
	*ob = DtTileCacheObstacle{salt: salt, index: index}
	ob.State = DT_OBSTACLE_PROCESSING
	return ob, detour.DT_SUCCESS
}

func (d *DtTileCache) freeObstacle(ob *DtTileCacheObstacle) {
	ob.State = DT_OBSTACLE_EMPTY
	ob.touched = nil
	ob.pending = nil
	// Update salt, salt should never be zero.
	ob.salt++
	if ob.salt == 0 {
		ob.salt++
	}
	// Return obstacle to free list.
	ob.next = d.m_nextFreeObstacle
	d.m_nextFreeObstacle = ob
}

func (d *DtTileCache) requestAdd(ob *DtTileCacheObstacle) DtObstacleRef {
	ref := d.GetObstacleRef(ob)
	d.m_reqs = append(d.m_reqs, obstacleRequest{action: REQUEST_ADD, ref: ref})
	return ref
}

// AddObstacle queues a cylinder standing on pos.
func (d *DtTileCache) AddObstacle(pos []float32, radius, height float32) (DtObstacleRef, detour.DtStatus) {
	ob, status := d.allocObstacle()
	if status.Failed() {
		return 0, status
	}
	ob.Type = DT_OBSTACLE_CYLINDER
	common.Vcopy(ob.Cylinder.Pos[:], pos)
	ob.Cylinder.Radius = radius
	ob.Cylinder.Height = height
	return d.requestAdd(ob), detour.DT_SUCCESS
}

// AddBoxObstacle queues an axis aligned box.
func (d *DtTileCache) AddBoxObstacle(bmin, bmax []float32) (DtObstacleRef, detour.DtStatus) {
	ob, status := d.allocObstacle()
	if status.Failed() {
		return 0, status
	}
	ob.Type = DT_OBSTACLE_BOX
	common.Vcopy(ob.Box.Bmin[:], bmin)
	common.Vcopy(ob.Box.Bmax[:], bmax)
	return d.requestAdd(ob), detour.DT_SUCCESS
}

// AddOrientedBoxObstacle queues a box rotated by yRadians around the y axis.
func (d *DtTileCache) AddOrientedBoxObstacle(center, halfExtents []float32, yRadians float32) (DtObstacleRef, detour.DtStatus) {
	ob, status := d.allocObstacle()
	if status.Failed() {
		return 0, status
	}
	ob.Type = DT_OBSTACLE_ORIENTED_BOX
	common.Vcopy(ob.OrientedBox.Center[:], center)
	common.Vcopy(ob.OrientedBox.HalfExtents[:], halfExtents)
	ob.OrientedBox.YRadians = yRadians
	return d.requestAdd(ob), detour.DT_SUCCESS
}

// RemoveObstacle queues the removal of ref. Stale refs are rejected.
func (d *DtTileCache) RemoveObstacle(ref DtObstacleRef) detour.DtStatus {
	if ref == 0 {
		return detour.DT_SUCCESS
	}
	ob := d.GetObstacleByRef(ref)
	if ob == nil || ob.State == DT_OBSTACLE_REMOVING {
		return detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}
	if len(d.m_reqs) >= MAX_REQUESTS {
		return detour.DT_FAILURE | detour.DT_BUFFER_TOO_SMALL
	}
	d.m_reqs = append(d.m_reqs, obstacleRequest{action: REQUEST_REMOVE, ref: ref})
	return detour.DT_SUCCESS
}

// GetObstacleBounds returns the world bounds of the obstacle shape.
func (d *DtTileCache) GetObstacleBounds(ob *DtTileCacheObstacle) (bmin, bmax [3]float32) {
	switch ob.Type {
	case DT_OBSTACLE_CYLINDER:
		cl := &ob.Cylinder
		bmin = [3]float32{cl.Pos[0] - cl.Radius, cl.Pos[1], cl.Pos[2] - cl.Radius}
		bmax = [3]float32{cl.Pos[0] + cl.Radius, cl.Pos[1] + cl.Height, cl.Pos[2] + cl.Radius}
	case DT_OBSTACLE_BOX:
		bmin = ob.Box.Bmin
		bmax = ob.Box.Bmax
	case DT_OBSTACLE_ORIENTED_BOX:
		orientedBox := &ob.OrientedBox
		maxr := 1.41 * max(orientedBox.HalfExtents[0], orientedBox.HalfExtents[2])
		bmin[0] = orientedBox.Center[0] - maxr
		bmax[0] = orientedBox.Center[0] + maxr
		bmin[1] = orientedBox.Center[1] - orientedBox.HalfExtents[1]
		bmax[1] = orientedBox.Center[1] + orientedBox.HalfExtents[1]
		bmin[2] = orientedBox.Center[2] - maxr
		bmax[2] = orientedBox.Center[2] + maxr
	}
	return bmin, bmax
}

// obstacleQueryBounds grows the obstacle bounds by the agent radius used when stamping.
func (d *DtTileCache) obstacleQueryBounds(ob *DtTileCacheObstacle) (bmin, bmax [3]float32) {
	bmin, bmax = d.GetObstacleBounds(ob)
	r := d.m_params.WalkableRadius
	bmin[0] -= r
	bmin[2] -= r
	bmax[0] += r
	bmax[2] += r
	return bmin, bmax
}

// ObstacleRayHit returns the entry parameter of segment sp-sq into the obstacle bounds.
func (d *DtTileCache) ObstacleRayHit(ob *DtTileCacheObstacle, sp, sq []float32) (float32, bool) {
	bmin, bmax := d.GetObstacleBounds(ob)
	tmin, _, ok := common.IntersectSegAABB(sp, sq, bmin[:], bmax[:])
	if !ok {
		return float32(math.MaxFloat32), false
	}
	return tmin, true
}
