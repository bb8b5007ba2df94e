package detour_tile_cache

import (
	"math"

	"github.com/gorustyt/navcore/detour"
	"github.com/gorustyt/navcore/recast"
)

// navMeshTileBuildContext holds the intermediate results of one tile rebuild.
type navMeshTileBuildContext struct {
	layer *DtTileCacheLayer
	chf   *recast.RcCompactHeightfield
	cset  *recast.RcContourSet
	pmesh *recast.RcPolyMesh
	dmesh *recast.RcPolyMeshDetail
}

func (bc *navMeshTileBuildContext) purge() {
	bc.layer = nil
	bc.chf = nil
	bc.cset = nil
	bc.pmesh = nil
	bc.dmesh = nil
}

// markObstacle stamps ob into chf as unwalkable, grown by the agent radius.
func (d *DtTileCache) markObstacle(ob *DtTileCacheObstacle, chf *recast.RcCompactHeightfield) {
	r := d.m_params.WalkableRadius
	switch ob.Type {
	case DT_OBSTACLE_CYLINDER:
		cl := &ob.Cylinder
		recast.RcMarkCylinderArea(d.m_ctx, cl.Pos[:], cl.Radius+r, cl.Height, recast.RC_NULL_AREA, chf)
	case DT_OBSTACLE_BOX:
		bmin, bmax := ob.Box.Bmin, ob.Box.Bmax
		bmin[0] -= r
		bmin[2] -= r
		bmax[0] += r
		bmax[2] += r
		recast.RcMarkBoxArea(d.m_ctx, bmin[:], bmax[:], recast.RC_NULL_AREA, chf)
	case DT_OBSTACLE_ORIENTED_BOX:
		obb := &ob.OrientedBox
		verts := obb.corners(r)
		recast.RcMarkConvexPolyArea(d.m_ctx, verts, 4,
			obb.Center[1]-obb.HalfExtents[1], obb.Center[1]+obb.HalfExtents[1], recast.RC_NULL_AREA, chf)
	}
}

// BuildNavMeshTile rebuilds the navmesh tile of one compressed layer, applying every
// live obstacle that touches it, and swaps it into navmesh.
func (d *DtTileCache) BuildNavMeshTile(ref DtCompressedTileRef, navmesh *detour.DtNavMesh) detour.DtStatus {
	tile := d.GetTileByRef(ref)
	if tile == nil {
		return detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}

	d.m_talloc.Reset()

	var bc navMeshTileBuildContext
	defer bc.purge()

	walkableClimbVx := int(math.Floor(float64(d.m_params.WalkableClimb / d.m_params.Ch)))
	walkableHeightVx := int(math.Ceil(float64(d.m_params.WalkableHeight / d.m_params.Ch)))

	// Decompress tile layer data.
	var status detour.DtStatus
	bc.layer, status = DtDecompressTileCacheLayer(d.m_tcomp, d.m_talloc, tile.Data)
	if status.Failed() {
		return status
	}

	bc.chf = recast.RcCompactHeightfieldFromLayer(d.m_ctx, bc.layer.ToHeightfieldLayer(d.m_params.Cs, d.m_params.Ch),
		walkableHeightVx, walkableClimbVx)
	if bc.chf == nil {
		return detour.DT_FAILURE | detour.DT_OUT_OF_MEMORY
	}

	// Rasterize obstacles.
	for i := range d.m_obstacles {
		ob := &d.m_obstacles[i]
		if ob.State == DT_OBSTACLE_EMPTY || ob.State == DT_OBSTACLE_REMOVING {
			continue
		}
		if contains(ob.touched, ref) {
			d.markObstacle(ob, bc.chf)
		}
	}

	// Build navmesh
	borderSize := int(tile.Header.BorderSize)
	if d.m_params.Partition == DT_PARTITION_MONOTONE {
		if !recast.RcBuildRegionsMonotone(d.m_ctx, bc.chf, borderSize, d.m_params.MinRegionArea, d.m_params.MergeRegionArea) {
			return detour.DT_FAILURE
		}
	} else {
		if !recast.RcBuildDistanceField(d.m_ctx, bc.chf) {
			return detour.DT_FAILURE
		}
		if !recast.RcBuildRegions(d.m_ctx, bc.chf, borderSize, d.m_params.MinRegionArea, d.m_params.MergeRegionArea) {
			return detour.DT_FAILURE
		}
	}

	bc.cset = recast.RcBuildContours(d.m_ctx, bc.chf, d.m_params.MaxSimplificationError, d.m_params.MaxEdgeLen,
		recast.RC_CONTOUR_TESS_WALL_EDGES)
	if bc.cset == nil {
		return detour.DT_FAILURE | detour.DT_OUT_OF_MEMORY
	}

	tx, ty, tlayer := int(tile.Header.Tx), int(tile.Header.Ty), int(tile.Header.Tlayer)

	bc.pmesh = recast.RcBuildPolyMesh(d.m_ctx, bc.cset, d.m_params.MaxVertsPerPoly)
	if bc.pmesh == nil {
		return detour.DT_FAILURE | detour.DT_OUT_OF_MEMORY
	}

	// Early out if the mesh tile is empty.
	if bc.pmesh.NPolys == 0 {
		// Remove existing tile.
		if old := navmesh.GetTileRefAt(tx, ty, tlayer); old != 0 {
			navmesh.RemoveTile(old)
		}
		return detour.DT_SUCCESS
	}

	bc.dmesh = recast.RcBuildPolyMeshDetail(d.m_ctx, bc.pmesh, bc.chf, d.m_params.DetailSampleDist, d.m_params.DetailSampleMaxError)
	if bc.dmesh == nil {
		return detour.DT_FAILURE | detour.DT_OUT_OF_MEMORY
	}

	params := &detour.DtNavMeshCreateParams{
		Verts:            bc.pmesh.Verts,
		VertCount:        bc.pmesh.NVerts,
		Polys:            bc.pmesh.Polys,
		PolyAreas:        bc.pmesh.Areas,
		PolyFlags:        bc.pmesh.Flags,
		PolyCount:        bc.pmesh.NPolys,
		Nvp:              bc.pmesh.Nvp,
		DetailMeshes:     bc.dmesh.Meshes,
		DetailVerts:      bc.dmesh.Verts,
		DetailVertsCount: bc.dmesh.NVerts,
		DetailTris:       bc.dmesh.Tris,
		DetailTriCount:   bc.dmesh.NTris,
		WalkableHeight:   d.m_params.WalkableHeight,
		WalkableRadius:   d.m_params.WalkableRadius,
		WalkableClimb:    d.m_params.WalkableClimb,
		TileX:            tx,
		TileY:            ty,
		TileLayer:        tlayer,
		Cs:               d.m_params.Cs,
		Ch:               d.m_params.Ch,
		BuildBvTree:      false,
		Bmin:             bc.pmesh.Bmin,
		Bmax:             bc.pmesh.Bmax,
	}
	if d.m_tmproc != nil {
		d.m_tmproc.Process(params, bc.pmesh.Areas, bc.pmesh.Flags)
	}

	navData, ok := detour.DtCreateNavMeshData(params)
	if !ok {
		return detour.DT_FAILURE
	}

	// Remove existing tile.
	if old := navmesh.GetTileRefAt(tx, ty, tlayer); old != 0 {
		navmesh.RemoveTile(old)
	}

	// Add new tile, or leave the location empty.
	if _, status := navmesh.AddTile(navData, 0); status.Failed() {
		return status
	}
	return detour.DT_SUCCESS
}
