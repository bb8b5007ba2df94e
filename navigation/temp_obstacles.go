package navigation

import (
	"fmt"
	"math"
	"time"

	"github.com/gorustyt/navcore/common"
	"github.com/gorustyt/navcore/common/logger"
	"github.com/gorustyt/navcore/detour"
	"github.com/gorustyt/navcore/detour_tile_cache"
	"github.com/gorustyt/navcore/recast"
)

const (
	MAX_LAYERS        = 32
	MAX_TILE_BITS     = 14
	TOTAL_ID_BITS     = 22
	TILE_CACHE_ALLOC  = 32000
	MAX_UPDATE_ROUNDS = 4096
)

// ObstacleHandle names a temporary obstacle. The generation is the salt of
// the tile cache slot, so a handle of a removed obstacle stops resolving.
type ObstacleHandle struct {
	Index      uint16
	Generation uint16
}

func obstacleHandle(ref detour_tile_cache.DtObstacleRef) ObstacleHandle {
	return ObstacleHandle{Index: uint16(ref & 0xffff), Generation: uint16(ref >> 16)}
}

func (h ObstacleHandle) ref() detour_tile_cache.DtObstacleRef {
	return detour_tile_cache.DtObstacleRef(uint32(h.Generation)<<16 | uint32(h.Index))
}

// meshProcess finalizes every tile built from the cache: generic walkable
// area becomes ground, flags follow the area and the off-mesh connections of
// the geometry are attached.
type meshProcess struct {
	geom *InputGeometryData
}

func (m *meshProcess) Process(params *detour.DtNavMeshCreateParams, polyAreas []uint8, polyFlags []uint16) {
	// Update poly flags from areas.
	remapPolyAreas(polyAreas, polyFlags, params.PolyCount)

	// Pass in off-mesh connections.
	if m.geom != nil {
		params.OffMeshConVerts = m.geom.GetOffMeshConnectionVerts()
		params.OffMeshConRad = m.geom.GetOffMeshConnectionRads()
		params.OffMeshConAreas = m.geom.GetOffMeshConnectionAreas()
		params.OffMeshConFlags = m.geom.GetOffMeshConnectionFlags()
		params.OffMeshConUserID = m.geom.GetOffMeshConnectionId()
		params.OffMeshConDir = m.geom.GetOffMeshConnectionDirs()
		params.OffMeshConCount = m.geom.GetOffMeshConnectionCount()
	}
}

var _ Navigation = (*NavigationTempObstacles)(nil)

// NavigationTempObstacles builds a tiled navmesh backed by a tile cache, so
// obstacles can be stamped into single tiles at runtime.
type NavigationTempObstacles struct {
	navigationBase

	m_state     BuildState
	m_tileCache *detour_tile_cache.DtTileCache
	m_tmproc    *meshProcess

	m_tileCols, m_tileRows int
	m_cacheLayerCount      int
	m_cacheCompressedSize  int
	m_cacheRawSize         int
	m_buildTime            time.Duration
}

func NewNavigationTempObstacles(settings Settings) *NavigationTempObstacles {
	return &NavigationTempObstacles{
		navigationBase: newNavigationBase(settings),
		m_tmproc:       &meshProcess{},
	}
}

func (n *NavigationTempObstacles) State() BuildState { return n.m_state }
func (n *NavigationTempObstacles) GetTileCache() *detour_tile_cache.DtTileCache {
	return n.m_tileCache
}
func (n *NavigationTempObstacles) GetTileGrid() (cols, rows int) { return n.m_tileCols, n.m_tileRows }
func (n *NavigationTempObstacles) GetBuildTime() time.Duration   { return n.m_buildTime }

// GetCacheStats reports the number of stored layers and their compressed and
// uncompressed sizes in bytes.
func (n *NavigationTempObstacles) GetCacheStats() (layers, compressed, raw int) {
	return n.m_cacheLayerCount, n.m_cacheCompressedSize, n.m_cacheRawSize
}

func (n *NavigationTempObstacles) SetGeometry(geom *InputGeometryData) {
	n.m_geom = geom
	n.m_tmproc.geom = geom
}

func (n *NavigationTempObstacles) Cleanup() {
	n.cleanupBase()
	n.m_tileCache = nil
	n.m_state = StateEmpty
	n.m_cacheLayerCount = 0
	n.m_cacheCompressedSize = 0
	n.m_cacheRawSize = 0
}

// Update advances the crowd and applies pending obstacle changes to at most
// one tile.
func (n *NavigationTempObstacles) Update(dt float32) {
	n.CrowdUpdateAllAgents(dt)
	if n.m_tileCache == nil || n.m_navMesh == nil {
		return
	}
	if _, status := n.m_tileCache.Update(dt, n.m_navMesh); status.Failed() {
		logger.LogWarn("tile cache update: %v", status)
	}
}

// FlushObstacles runs tile cache updates until every obstacle request has
// reached the navmesh.
func (n *NavigationTempObstacles) FlushObstacles() bool {
	if n.m_tileCache == nil || n.m_navMesh == nil {
		return false
	}
	for i := 0; i < MAX_UPDATE_ROUNDS; i++ {
		upToDate, status := n.m_tileCache.Update(0, n.m_navMesh)
		if status.Failed() {
			logger.LogWarn("tile cache update: %v", status)
		}
		if upToDate {
			return true
		}
	}
	return false
}

// fillCacheBuildParams sets the tile rebuild parameters derived from the
// settings. Legacy files do not store them.
func fillCacheBuildParams(p *detour_tile_cache.DtTileCacheParams, st *Settings) {
	cfg := newRcConfig(st)
	p.MinRegionArea = cfg.MinRegionArea
	p.MergeRegionArea = cfg.MergeRegionArea
	p.MaxEdgeLen = cfg.MaxEdgeLen
	p.MaxVertsPerPoly = cfg.MaxVertsPerPoly
	p.DetailSampleDist = cfg.DetailSampleDist
	p.DetailSampleMaxError = cfg.DetailSampleMaxError
	p.Partition = detour_tile_cache.DT_PARTITION_WATERSHED
	if st.Partition == PARTITION_MONOTONE {
		p.Partition = detour_tile_cache.DT_PARTITION_MONOTONE
	}
}

// tileIdBits splits the 22 id bits between tiles and polygons.
func tileIdBits(tileCount int) (tileBits, polyBits int) {
	tileBits = min(int(common.Ilog2(common.NextPow2(uint32(tileCount)))), MAX_TILE_BITS)
	return tileBits, TOTAL_ID_BITS - tileBits
}

func (n *NavigationTempObstacles) Build(agentRadius, agentHeight, stepHeight float32) bool {
	n.Cleanup()
	n.m_buildErr = nil
	if n.m_geom == nil {
		return n.buildFailed("buildTiledNavigation", ErrNoGeometry)
	}
	if err := n.m_geom.Validate(); err != nil {
		return n.buildFailed("buildTiledNavigation", err)
	}
	n.m_settings.AgentRadius = agentRadius
	n.m_settings.AgentHeight = agentHeight
	n.m_settings.AgentMaxClimb = stepHeight
	n.m_tmproc.geom = n.m_geom

	n.m_state = StateBuilding
	n.m_ctx = NewBuildContext()
	n.m_ctx.StartTimer(recast.RC_TIMER_TOTAL)
	nav, tc, err := n.buildTiles()
	n.m_ctx.StopTimer(recast.RC_TIMER_TOTAL)
	if err == nil {
		err = n.attach(nav)
	}
	if err != nil {
		n.m_ctx.DumpLog("Build log")
		n.Cleanup()
		return n.buildFailed("buildTiledNavigation", err)
	}

	n.m_tileCache = tc
	n.m_state = StateBuilt
	n.m_buildTime = n.m_ctx.GetAccumulatedTime(recast.RC_TIMER_TOTAL)
	logger.LogInfo("tiled navmesh %s built: %dx%d tiles, %d layers (%.1f kB compressed of %.1f kB) in %v",
		n.m_ctx.BuildID(), n.m_tileCols, n.m_tileRows, n.m_cacheLayerCount,
		float32(n.m_cacheCompressedSize)/1024.0, float32(n.m_cacheRawSize)/1024.0, n.m_buildTime)
	return true
}

func (n *NavigationTempObstacles) buildTiles() (*detour.DtNavMesh, *detour_tile_cache.DtTileCache, error) {
	st := &n.m_settings
	bmin := n.m_geom.GetBoundsMin()
	bmax := n.m_geom.GetBoundsMax()

	// Init cache
	gw, gh := recast.RcCalcGridSize(bmin[:], bmax[:], st.CellSize)
	ts := st.TileSize
	tw := (gw + ts - 1) / ts
	th := (gh + ts - 1) / ts
	n.m_tileCols, n.m_tileRows = tw, th

	// Generation params.
	cfg := newRcConfig(st)
	cfg.TileSize = ts
	cfg.BorderSize = cfg.WalkableRadius + 3 // Reserve enough padding.
	cfg.Width = cfg.TileSize + cfg.BorderSize*2
	cfg.Height = cfg.TileSize + cfg.BorderSize*2
	cfg.Bmin = bmin
	cfg.Bmax = bmax

	// Tile cache params.
	tcparams := &detour_tile_cache.DtTileCacheParams{
		Orig:                   bmin,
		Cs:                     st.CellSize,
		Ch:                     st.CellHeight,
		Width:                  ts,
		Height:                 ts,
		WalkableHeight:         st.AgentHeight,
		WalkableRadius:         st.AgentRadius,
		WalkableClimb:          st.AgentMaxClimb,
		MaxSimplificationError: st.EdgeMaxError,
		MaxTiles:               tw * th * st.ExpectedLayersPerTile,
		MaxObstacles:           st.MaxObstacles,
	}
	fillCacheBuildParams(tcparams, st)

	tc := detour_tile_cache.NewDtTileCache()
	tc.SetContext(n.m_ctx)
	if status := tc.Init(tcparams, detour_tile_cache.NewLinearAllocator(TILE_CACHE_ALLOC),
		detour_tile_cache.NewLZ4Compressor(), n.m_tmproc); status.Failed() {
		return nil, nil, fmt.Errorf("%w: init tile cache: %v", ErrBuildFailed, status)
	}

	tileBits, polyBits := tileIdBits(tw * th * st.ExpectedLayersPerTile)
	params := &detour.NavMeshParams{
		Orig:       bmin,
		TileWidth:  float32(ts) * st.CellSize,
		TileHeight: float32(ts) * st.CellSize,
		MaxTiles:   1 << tileBits,
		MaxPolys:   1 << polyBits,
	}
	nav := detour.NewDtNavMesh()
	if status := nav.Init(params); status.Failed() {
		return nil, nil, fmt.Errorf("%w: init navmesh: %v", ErrBuildFailed, status)
	}

	n.m_ctx.Log(recast.RC_LOG_PROGRESS, "Building tiled navigation: %d x %d tiles, %d tile bits, %d poly bits", tw, th, tileBits, polyBits)

	// Preprocess tiles.
	for y := 0; y < th; y++ {
		for x := 0; x < tw; x++ {
			tiles, err := n.rasterizeTileLayers(x, y, &cfg, tc.GetCompressor())
			if err != nil {
				return nil, nil, err
			}
			for _, data := range tiles {
				if _, status := tc.AddTile(data, detour_tile_cache.DT_COMPRESSEDTILE_FREE_DATA); status.Failed() {
					return nil, nil, fmt.Errorf("%w: add cache tile %d,%d: %v", ErrBuildFailed, x, y, status)
				}
				n.m_cacheLayerCount++
				n.m_cacheCompressedSize += len(data)
			}
		}
	}

	// Build initial meshes
	for y := 0; y < th; y++ {
		for x := 0; x < tw; x++ {
			if status := tc.BuildNavMeshTilesAt(x, y, nav); status.Failed() {
				return nil, nil, fmt.Errorf("%w: build tile %d,%d: %v", ErrBuildFailed, x, y, status)
			}
		}
	}
	return nav, tc, nil
}

// tileBuildScratch holds the per tile intermediates of rasterizeTileLayers.
type tileBuildScratch struct {
	triareas []uint8
	solid    *recast.RcHeightfield
	chf      *recast.RcCompactHeightfield
	lset     *recast.RcHeightfieldLayerSet
}

func (b *tileBuildScratch) purge() {
	*b = tileBuildScratch{}
}

func (n *NavigationTempObstacles) tileStageError(tx, ty int, stage string) error {
	n.m_ctx.Log(recast.RC_LOG_ERROR, "buildTile %d,%d: Could not build %s.", tx, ty, stage)
	return fmt.Errorf("%w: tile %d,%d: %s", ErrBuildFailed, tx, ty, stage)
}

// rasterizeTileLayers voxelizes the geometry under tile (tx, ty) plus border
// and returns one compressed cache layer per walkable layer found.
func (n *NavigationTempObstacles) rasterizeTileLayers(tx, ty int, cfg *recast.RcConfig,
	comp detour_tile_cache.DtTileCacheCompressor) ([][]byte, error) {
	geom := n.m_geom
	chunkyMesh := geom.GetChunkyMesh()
	if chunkyMesh == nil {
		return nil, n.tileStageError(tx, ty, "chunky mesh")
	}
	verts := geom.GetVerts()
	areas := geom.GetTriAreas()
	slopes := geom.GetTriSlopes()

	// Tile bounds.
	tcs := float32(cfg.TileSize) * cfg.Cs
	tcfg := *cfg
	tcfg.Bmin[0] = cfg.Bmin[0] + float32(tx)*tcs
	tcfg.Bmin[1] = cfg.Bmin[1]
	tcfg.Bmin[2] = cfg.Bmin[2] + float32(ty)*tcs
	tcfg.Bmax[0] = cfg.Bmin[0] + float32(tx+1)*tcs
	tcfg.Bmax[1] = cfg.Bmax[1]
	tcfg.Bmax[2] = cfg.Bmin[2] + float32(ty+1)*tcs
	tcfg.Bmin[0] -= float32(tcfg.BorderSize) * tcfg.Cs
	tcfg.Bmin[2] -= float32(tcfg.BorderSize) * tcfg.Cs
	tcfg.Bmax[0] += float32(tcfg.BorderSize) * tcfg.Cs
	tcfg.Bmax[2] += float32(tcfg.BorderSize) * tcfg.Cs

	var bs tileBuildScratch
	defer bs.purge()

	bs.solid = recast.RcCreateHeightfield(n.m_ctx, tcfg.Width, tcfg.Height, tcfg.Bmin[:], tcfg.Bmax[:], tcfg.Cs, tcfg.Ch)
	if bs.solid == nil {
		return nil, n.tileStageError(tx, ty, "heightfield")
	}

	// Allocate array that can hold triangle flags.
	// If you have multiple meshes you need to process, allocate
	// an array which can hold the max number of triangles you need to process.
	bs.triareas = make([]uint8, chunkyMesh.MaxTrisPerChunk)
	chunkAreas := make([]uint8, chunkyMesh.MaxTrisPerChunk)
	chunkSlopes := make([]float32, chunkyMesh.MaxTrisPerChunk)

	tbmin := [2]float32{tcfg.Bmin[0], tcfg.Bmin[2]}
	tbmax := [2]float32{tcfg.Bmax[0], tcfg.Bmax[2]}
	for _, id := range chunkyMesh.GetChunksOverlappingRect(tbmin, tbmax) {
		ctris, triIds := chunkyMesh.ChunkTris(id)
		nctris := len(triIds)
		for i, t := range triIds {
			chunkAreas[i] = areas[t]
			chunkSlopes[i] = slopes[t]
		}
		recast.RcMarkWalkableTrianglesBySlope(n.m_ctx, verts, ctris, nctris, chunkAreas, chunkSlopes, bs.triareas)
		if !recast.RcRasterizeTriangles(n.m_ctx, verts, ctris, bs.triareas, nctris, bs.solid, tcfg.WalkableClimb) {
			return nil, n.tileStageError(tx, ty, "rasterize triangles")
		}
	}

	// Once all geometry is rasterized, we do initial pass of filtering to
	// remove unwanted overhangs caused by the conservative rasterization
	// as well as filter spans where the character cannot possibly stand.
	if n.m_settings.FilterLowHangingObstacles {
		recast.RcFilterLowHangingWalkableObstacles(n.m_ctx, tcfg.WalkableClimb, bs.solid)
	}
	if n.m_settings.FilterLedgeSpans {
		recast.RcFilterLedgeSpans(n.m_ctx, tcfg.WalkableHeight, tcfg.WalkableClimb, bs.solid)
	}
	if n.m_settings.FilterWalkableLowHeightSpans {
		recast.RcFilterWalkableLowHeightSpans(n.m_ctx, tcfg.WalkableHeight, bs.solid)
	}

	bs.chf = recast.RcBuildCompactHeightfield(n.m_ctx, tcfg.WalkableHeight, tcfg.WalkableClimb, bs.solid)
	if bs.chf == nil {
		return nil, n.tileStageError(tx, ty, "compact heightfield")
	}
	bs.solid = nil

	// Erode the walkable area by agent radius.
	if !recast.RcErodeWalkableArea(n.m_ctx, tcfg.WalkableRadius, bs.chf) {
		return nil, n.tileStageError(tx, ty, "erode")
	}

	bs.lset = recast.RcBuildHeightfieldLayers(n.m_ctx, bs.chf, tcfg.BorderSize, tcfg.WalkableHeight)
	if bs.lset == nil {
		return nil, n.tileStageError(tx, ty, "heightfield layers")
	}
	bs.chf = nil

	var tiles [][]byte
	for i, layer := range bs.lset.Layers {
		if i >= MAX_LAYERS {
			break
		}
		// Store data.
		data, err := detour_tile_cache.DtBuildTileCacheLayerFromHeightfield(comp, layer, tx, ty, i)
		if err != nil {
			return nil, fmt.Errorf("%w: tile %d,%d layer %d: %v", ErrBuildFailed, tx, ty, i, err)
		}
		tiles = append(tiles, data)
		n.m_cacheRawSize += layer.Width * layer.Height * 4
	}
	return tiles, nil
}

func (n *NavigationTempObstacles) obstacleAdded(ref detour_tile_cache.DtObstacleRef, status detour.DtStatus) (ObstacleHandle, error) {
	if status.Failed() {
		if status.Detail(detour.DT_OUT_OF_MEMORY) {
			return ObstacleHandle{}, fmt.Errorf("%w: obstacles (max %d)", ErrCapacityExceeded, n.m_settings.MaxObstacles)
		}
		return ObstacleHandle{}, fmt.Errorf("navigation: add obstacle: %v", status)
	}
	return obstacleHandle(ref), nil
}

// AddTempObstacleCylinder stands a cylinder on pos. It reaches the navmesh
// through the following Update calls.
func (n *NavigationTempObstacles) AddTempObstacleCylinder(pos common.Vec3, radius, height float32) (ObstacleHandle, error) {
	if n.m_tileCache == nil {
		return ObstacleHandle{}, ErrNotLoaded
	}
	p := pos
	p[1] -= 0.5
	return n.obstacleAdded(n.m_tileCache.AddObstacle(p[:], radius, height))
}

func (n *NavigationTempObstacles) AddTempObstacleBox(bmin, bmax common.Vec3) (ObstacleHandle, error) {
	if n.m_tileCache == nil {
		return ObstacleHandle{}, ErrNotLoaded
	}
	return n.obstacleAdded(n.m_tileCache.AddBoxObstacle(bmin[:], bmax[:]))
}

// AddTempObstacleObb adds a box centred on center, rotated by yRadians around
// the y axis.
func (n *NavigationTempObstacles) AddTempObstacleObb(center, halfExtents common.Vec3, yRadians float32) (ObstacleHandle, error) {
	if n.m_tileCache == nil {
		return ObstacleHandle{}, ErrNotLoaded
	}
	return n.obstacleAdded(n.m_tileCache.AddOrientedBoxObstacle(center[:], halfExtents[:], yRadians))
}

func (n *NavigationTempObstacles) removeObstacle(ref detour_tile_cache.DtObstacleRef) error {
	if status := n.m_tileCache.RemoveObstacle(ref); status.Failed() {
		if status.Detail(detour.DT_INVALID_PARAM) {
			return fmt.Errorf("%w: obstacle %v", ErrStaleHandle, obstacleHandle(ref))
		}
		return fmt.Errorf("navigation: remove obstacle: %v", status)
	}
	return nil
}

func (n *NavigationTempObstacles) RemoveTempObstacleByHandle(h ObstacleHandle) error {
	if n.m_tileCache == nil {
		return ErrNotLoaded
	}
	if h.Generation == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidHandle, h)
	}
	return n.removeObstacle(h.ref())
}

// hitTestObstacle returns the live obstacle whose bounds the segment sp-sq
// enters first. Obstacles already queued for removal are skipped.
func (n *NavigationTempObstacles) hitTestObstacle(sp, sq common.Vec3) (detour_tile_cache.DtObstacleRef, bool) {
	tmin := float32(math.MaxFloat32)
	var obmin *detour_tile_cache.DtTileCacheObstacle
	for i := 0; i < n.m_tileCache.GetObstacleCount(); i++ {
		ob := n.m_tileCache.GetObstacle(i)
		if ob.State == detour_tile_cache.DT_OBSTACLE_EMPTY || ob.State == detour_tile_cache.DT_OBSTACLE_REMOVING {
			continue
		}
		if t0, ok := n.m_tileCache.ObstacleRayHit(ob, sp[:], sq[:]); ok && t0 < tmin {
			tmin = t0
			obmin = ob
		}
	}
	if obmin == nil {
		return 0, false
	}
	return n.m_tileCache.GetObstacleRef(obmin), true
}

// RemoveTempObstacle removes the obstacle closest to sp along the segment
// sp-sq. It reports false when the segment touches no obstacle.
func (n *NavigationTempObstacles) RemoveTempObstacle(sp, sq common.Vec3) bool {
	if n.m_tileCache == nil {
		return false
	}
	ref, ok := n.hitTestObstacle(sp, sq)
	if !ok {
		return false
	}
	if err := n.removeObstacle(ref); err != nil {
		logger.LogWarn("remove obstacle: %v", err)
		return false
	}
	return true
}

// ClearAllTempObstacles queues the removal of every live obstacle.
func (n *NavigationTempObstacles) ClearAllTempObstacles() {
	if n.m_tileCache == nil {
		return
	}
	for i := 0; i < n.m_tileCache.GetObstacleCount(); i++ {
		ob := n.m_tileCache.GetObstacle(i)
		if ob.State == detour_tile_cache.DT_OBSTACLE_EMPTY || ob.State == detour_tile_cache.DT_OBSTACLE_REMOVING {
			continue
		}
		n.m_tileCache.RemoveObstacle(n.m_tileCache.GetObstacleRef(ob))
	}
}

// GetObstacleCount returns the number of obstacles not yet freed.
func (n *NavigationTempObstacles) GetObstacleCount() int {
	if n.m_tileCache == nil {
		return 0
	}
	count := 0
	for i := 0; i < n.m_tileCache.GetObstacleCount(); i++ {
		if n.m_tileCache.GetObstacle(i).State != detour_tile_cache.DT_OBSTACLE_EMPTY {
			count++
		}
	}
	return count
}

func (n *NavigationTempObstacles) navFile() *navFile {
	f := &navFile{
		Kind:    NavFileTiled,
		BuildID: n.m_ctx.BuildID().String(),
	}
	params := *n.m_navMesh.GetParams()
	f.Params = &params
	for i := 0; i < n.m_navMesh.GetMaxTiles(); i++ {
		tile := n.m_navMesh.GetTile(i)
		if tile == nil || tile.Header == nil || tile.Data == nil {
			continue
		}
		f.Tiles = append(f.Tiles, tile.Data.ToBin())
	}
	if n.m_tileCache != nil {
		f.CacheParams = n.m_tileCache.GetParams()
		for i := 0; i < n.m_tileCache.GetTileCount(); i++ {
			tile := n.m_tileCache.GetTile(i)
			if tile.Header == nil || len(tile.Data) == 0 {
				continue
			}
			f.CacheTiles = append(f.CacheTiles, tile.Data)
		}
	}
	return f
}

// Save writes the navmesh tiles together with the compressed cache layers.
// Without a navmesh any previous file at path is removed and ErrNotLoaded returned.
func (n *NavigationTempObstacles) Save(path string) error {
	if n.m_navMesh == nil {
		if err := removeStale(path); err != nil {
			return err
		}
		return ErrNotLoaded
	}
	f := n.navFile()
	if n.m_settings.LegacyFormat && f.CacheParams != nil {
		return writeNavFile(path, encodeLegacyTiled(f))
	}
	return writeNavFile(path, encodeNavFile(f))
}

// Load replaces the navmesh with the one stored at path. A single tile file
// loads without a tile cache, so obstacles are unavailable.
func (n *NavigationTempObstacles) Load(path string) error {
	f, err := readNavFile(path)
	if err != nil {
		return err
	}
	nav := detour.NewDtNavMesh()
	var tc *detour_tile_cache.DtTileCache
	if f.Kind == NavFileSolo {
		data := &detour.NavMeshData{}
		if err := data.FromBin(f.Tiles[0]); err != nil {
			return fmt.Errorf("%s: %w: %v", path, ErrBadFormat, err)
		}
		if status := nav.InitSingle(data); status.Failed() {
			return fmt.Errorf("%s: %w: init navmesh: %v", path, ErrBadFormat, status)
		}
	} else {
		if status := nav.Init(f.Params); status.Failed() {
			return fmt.Errorf("%s: %w: init navmesh: %v", path, ErrBadFormat, status)
		}
		for i, blob := range f.Tiles {
			data := &detour.NavMeshData{}
			if err := data.FromBin(blob); err != nil {
				return fmt.Errorf("%s: %w: tile %d: %v", path, ErrBadFormat, i, err)
			}
			if _, status := nav.AddTile(data, 0); status.Failed() {
				return fmt.Errorf("%s: %w: add tile %d: %v", path, ErrBadFormat, i, status)
			}
		}
		if f.CacheParams != nil {
			if f.Legacy {
				fillCacheBuildParams(f.CacheParams, &n.m_settings)
			}
			tc = detour_tile_cache.NewDtTileCache()
			tc.SetContext(n.m_ctx)
			if status := tc.Init(f.CacheParams, detour_tile_cache.NewLinearAllocator(TILE_CACHE_ALLOC),
				detour_tile_cache.NewLZ4Compressor(), n.m_tmproc); status.Failed() {
				return fmt.Errorf("%s: %w: init tile cache: %v", path, ErrBadFormat, status)
			}
			for i, blob := range f.CacheTiles {
				if _, status := tc.AddTile(blob, detour_tile_cache.DT_COMPRESSEDTILE_FREE_DATA); status.Failed() {
					return fmt.Errorf("%s: %w: add cache tile %d: %v", path, ErrBadFormat, i, status)
				}
			}
		}
	}

	n.Cleanup()
	if err := n.attach(nav); err != nil {
		return err
	}
	n.m_tileCache = tc
	if tc != nil {
		n.m_cacheLayerCount = len(f.CacheTiles)
		for _, blob := range f.CacheTiles {
			n.m_cacheCompressedSize += len(blob)
		}
	}
	n.m_state = StateBuilt
	logger.LogInfo("tiled navmesh loaded from %s (build %q, legacy %v, %d tiles, %d cache layers)",
		path, f.BuildID, f.Legacy, len(f.Tiles), len(f.CacheTiles))
	return nil
}
