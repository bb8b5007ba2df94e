package navigation

import (
	"fmt"
	"math"
	"time"

	"github.com/gorustyt/navcore/common/logger"
	"github.com/gorustyt/navcore/detour"
	"github.com/gorustyt/navcore/recast"
)

type BuildState int

const (
	StateEmpty BuildState = iota
	StateBuilding
	StateBuilt
)

func (s BuildState) String() string {
	switch s {
	case StateBuilding:
		return "building"
	case StateBuilt:
		return "built"
	}
	return "empty"
}

var _ Navigation = (*NavigationSolo)(nil)

// NavigationSolo builds the whole geometry into one navmesh tile.
type NavigationSolo struct {
	navigationBase

	m_state     BuildState
	m_navData   *detour.NavMeshData
	m_buildTime time.Duration
}

func NewNavigationSolo(settings Settings) *NavigationSolo {
	return &NavigationSolo{navigationBase: newNavigationBase(settings)}
}

func (s *NavigationSolo) State() BuildState           { return s.m_state }
func (s *NavigationSolo) GetBuildTime() time.Duration { return s.m_buildTime }

// GetNavMeshData returns the tile kept for Save.
func (s *NavigationSolo) GetNavMeshData() *detour.NavMeshData { return s.m_navData }

func (s *NavigationSolo) Cleanup() {
	s.cleanupBase()
	s.m_navData = nil
	s.m_state = StateEmpty
}

func (s *NavigationSolo) Update(dt float32) {
	s.CrowdUpdateAllAgents(dt)
}

// soloBuildScratch holds the intermediate results of one build. Each stage
// drops its input once the output exists.
type soloBuildScratch struct {
	triareas []uint8
	solid    *recast.RcHeightfield
	chf      *recast.RcCompactHeightfield
	cset     *recast.RcContourSet
	pmesh    *recast.RcPolyMesh
	dmesh    *recast.RcPolyMeshDetail
}

func (b *soloBuildScratch) purge() {
	*b = soloBuildScratch{}
}

// newRcConfig converts the settings to voxel units.
func newRcConfig(st *Settings) recast.RcConfig {
	cfg := recast.RcConfig{
		Cs:                     st.CellSize,
		Ch:                     st.CellHeight,
		WalkableSlopeAngle:     st.AgentMaxSlope,
		WalkableHeight:         int(math.Ceil(float64(st.AgentHeight / st.CellHeight))),
		WalkableClimb:          int(math.Floor(float64(st.AgentMaxClimb / st.CellHeight))),
		WalkableRadius:         int(math.Ceil(float64(st.AgentRadius / st.CellSize))),
		MaxEdgeLen:             int(st.EdgeMaxLen / st.CellSize),
		MaxSimplificationError: st.EdgeMaxError,
		MinRegionArea:          int(st.RegionMinSize * st.RegionMinSize),     // Note: area = size*size
		MergeRegionArea:        int(st.RegionMergeSize * st.RegionMergeSize), // Note: area = size*size
		MaxVertsPerPoly:        st.VertsPerPoly,
		DetailSampleMaxError:   st.CellHeight * st.DetailSampleMaxError,
	}
	if st.DetailSampleDist >= 0.9 {
		cfg.DetailSampleDist = st.CellSize * st.DetailSampleDist
	}
	return cfg
}

// remapPolyAreas turns the generic walkable area into ground and assigns
// the flags of every area.
func remapPolyAreas(areas []uint8, flags []uint16, npolys int) {
	for i := 0; i < npolys; i++ {
		if areas[i] == recast.RC_WALKABLE_AREA {
			areas[i] = POLYAREA_GROUND
		}
		flags[i] = AreaFlags(areas[i])
	}
}

func (s *NavigationSolo) stageError(stage string) error {
	s.m_ctx.Log(recast.RC_LOG_ERROR, "buildNavigation: Could not build %s.", stage)
	return fmt.Errorf("%w: %s", ErrBuildFailed, stage)
}

// Build voxelizes the geometry and replaces the current navmesh. On failure
// the instance is left empty.
func (s *NavigationSolo) Build(agentRadius, agentHeight, stepHeight float32) bool {
	s.Cleanup()
	s.m_buildErr = nil
	if s.m_geom == nil {
		return s.buildFailed("buildNavigation", ErrNoGeometry)
	}
	if err := s.m_geom.Validate(); err != nil {
		return s.buildFailed("buildNavigation", err)
	}
	s.m_settings.AgentRadius = agentRadius
	s.m_settings.AgentHeight = agentHeight
	s.m_settings.AgentMaxClimb = stepHeight

	s.m_state = StateBuilding
	s.m_ctx = NewBuildContext()
	s.m_ctx.StartTimer(recast.RC_TIMER_TOTAL)
	navData, err := s.buildNavMeshData()
	s.m_ctx.StopTimer(recast.RC_TIMER_TOTAL)
	if err == nil {
		nav := detour.NewDtNavMesh()
		if status := nav.InitSingle(navData); status.Failed() {
			err = fmt.Errorf("%w: init navmesh: %v", ErrBuildFailed, status)
		} else {
			err = s.attach(nav)
		}
	}
	if err != nil {
		s.m_ctx.DumpLog("Build log")
		s.Cleanup()
		return s.buildFailed("buildNavigation", err)
	}

	s.m_navData = navData
	s.m_state = StateBuilt
	s.m_buildTime = s.m_ctx.GetAccumulatedTime(recast.RC_TIMER_TOTAL)
	logger.LogInfo("navmesh %s built: %d polys in %v", s.m_ctx.BuildID(), navData.Header.PolyCount, s.m_buildTime)
	return true
}

func (s *NavigationSolo) buildNavMeshData() (*detour.NavMeshData, error) {
	geom := s.m_geom
	bmin := geom.GetBoundsMin()
	bmax := geom.GetBoundsMax()
	verts := geom.GetVerts()
	nverts := geom.GetVertCount()
	tris := geom.GetTris()
	ntris := geom.GetTriCount()

	//
	// Step 1. Initialize build config.
	//
	cfg := newRcConfig(&s.m_settings)
	cfg.Bmin = bmin
	cfg.Bmax = bmax
	cfg.Width, cfg.Height = recast.RcCalcGridSize(cfg.Bmin[:], cfg.Bmax[:], cfg.Cs)

	s.m_ctx.Log(recast.RC_LOG_PROGRESS, "Building navigation:")
	s.m_ctx.Log(recast.RC_LOG_PROGRESS, " - %d x %d cells", cfg.Width, cfg.Height)
	s.m_ctx.Log(recast.RC_LOG_PROGRESS, " - %.1fK verts, %.1fK tris", float64(nverts)/1000.0, float64(ntris)/1000.0)

	var bs soloBuildScratch
	defer bs.purge()

	//
	// Step 2. Rasterize input polygon soup.
	//
	bs.solid = recast.RcCreateHeightfield(s.m_ctx, cfg.Width, cfg.Height, cfg.Bmin[:], cfg.Bmax[:], cfg.Cs, cfg.Ch)
	if bs.solid == nil {
		return nil, s.stageError("heightfield")
	}
	// Every triangle is classified against its own slope limit.
	bs.triareas = make([]uint8, ntris)
	recast.RcMarkWalkableTrianglesBySlope(s.m_ctx, verts, tris, ntris, geom.GetTriAreas(), geom.GetTriSlopes(), bs.triareas)
	if !recast.RcRasterizeTriangles(s.m_ctx, verts, tris, bs.triareas, ntris, bs.solid, cfg.WalkableClimb) {
		return nil, s.stageError("rasterize triangles")
	}
	bs.triareas = nil

	//
	// Step 3. Filter walkable surfaces.
	//
	if s.m_settings.FilterLowHangingObstacles {
		recast.RcFilterLowHangingWalkableObstacles(s.m_ctx, cfg.WalkableClimb, bs.solid)
	}
	if s.m_settings.FilterLedgeSpans {
		recast.RcFilterLedgeSpans(s.m_ctx, cfg.WalkableHeight, cfg.WalkableClimb, bs.solid)
	}
	if s.m_settings.FilterWalkableLowHeightSpans {
		recast.RcFilterWalkableLowHeightSpans(s.m_ctx, cfg.WalkableHeight, bs.solid)
	}

	//
	// Step 4. Partition walkable surface to simple regions.
	//
	bs.chf = recast.RcBuildCompactHeightfield(s.m_ctx, cfg.WalkableHeight, cfg.WalkableClimb, bs.solid)
	if bs.chf == nil {
		return nil, s.stageError("compact heightfield")
	}
	bs.solid = nil

	// Erode the walkable area by agent radius.
	if !recast.RcErodeWalkableArea(s.m_ctx, cfg.WalkableRadius, bs.chf) {
		return nil, s.stageError("erode")
	}

	if s.m_settings.Partition == PARTITION_MONOTONE {
		// Partition the walkable surface into simple regions without holes.
		if !recast.RcBuildRegionsMonotone(s.m_ctx, bs.chf, 0, cfg.MinRegionArea, cfg.MergeRegionArea) {
			return nil, s.stageError("monotone regions")
		}
	} else {
		// Prepare for region partitioning, by calculating distance field along the walkable surface.
		if !recast.RcBuildDistanceField(s.m_ctx, bs.chf) {
			return nil, s.stageError("distance field")
		}
		// Partition the walkable surface into simple regions without holes.
		if !recast.RcBuildRegions(s.m_ctx, bs.chf, 0, cfg.MinRegionArea, cfg.MergeRegionArea) {
			return nil, s.stageError("watershed regions")
		}
	}

	//
	// Step 5. Trace and simplify region contours.
	//
	bs.cset = recast.RcBuildContours(s.m_ctx, bs.chf, cfg.MaxSimplificationError, cfg.MaxEdgeLen, recast.RC_CONTOUR_TESS_WALL_EDGES)
	if bs.cset == nil || len(bs.cset.Conts) == 0 {
		return nil, s.stageError("contours")
	}

	//
	// Step 6. Build polygons mesh from contours.
	//
	bs.pmesh = recast.RcBuildPolyMesh(s.m_ctx, bs.cset, cfg.MaxVertsPerPoly)
	if bs.pmesh == nil || bs.pmesh.NPolys == 0 {
		return nil, s.stageError("polymesh")
	}
	bs.cset = nil

	//
	// Step 7. Create detail mesh which allows to access approximate height on each polygon.
	//
	bs.dmesh = recast.RcBuildPolyMeshDetail(s.m_ctx, bs.pmesh, bs.chf, cfg.DetailSampleDist, cfg.DetailSampleMaxError)
	if bs.dmesh == nil {
		return nil, s.stageError("polymesh detail")
	}
	bs.chf = nil

	//
	// Step 8. Create Detour data from Recast poly mesh.
	//
	if cfg.MaxVertsPerPoly > detour.DT_VERTS_PER_POLYGON {
		return nil, s.stageError("detour data: too many vertices per polygon")
	}
	remapPolyAreas(bs.pmesh.Areas, bs.pmesh.Flags, bs.pmesh.NPolys)

	params := &detour.DtNavMeshCreateParams{
		Verts:            bs.pmesh.Verts,
		VertCount:        bs.pmesh.NVerts,
		Polys:            bs.pmesh.Polys,
		PolyAreas:        bs.pmesh.Areas,
		PolyFlags:        bs.pmesh.Flags,
		PolyCount:        bs.pmesh.NPolys,
		Nvp:              bs.pmesh.Nvp,
		DetailMeshes:     bs.dmesh.Meshes,
		DetailVerts:      bs.dmesh.Verts,
		DetailVertsCount: bs.dmesh.NVerts,
		DetailTris:       bs.dmesh.Tris,
		DetailTriCount:   bs.dmesh.NTris,
		OffMeshConVerts:  geom.GetOffMeshConnectionVerts(),
		OffMeshConRad:    geom.GetOffMeshConnectionRads(),
		OffMeshConDir:    geom.GetOffMeshConnectionDirs(),
		OffMeshConAreas:  geom.GetOffMeshConnectionAreas(),
		OffMeshConFlags:  geom.GetOffMeshConnectionFlags(),
		OffMeshConUserID: geom.GetOffMeshConnectionId(),
		OffMeshConCount:  geom.GetOffMeshConnectionCount(),
		WalkableHeight:   s.m_settings.AgentHeight,
		WalkableRadius:   s.m_settings.AgentRadius,
		WalkableClimb:    s.m_settings.AgentMaxClimb,
		Bmin:             bs.pmesh.Bmin,
		Bmax:             bs.pmesh.Bmax,
		Cs:               cfg.Cs,
		Ch:               cfg.Ch,
		BuildBvTree:      true,
	}
	navData, ok := detour.DtCreateNavMeshData(params)
	if !ok {
		return nil, s.stageError("detour navmesh data")
	}
	s.m_ctx.Log(recast.RC_LOG_PROGRESS, ">> Polymesh: %d vertices  %d polygons", bs.pmesh.NVerts, bs.pmesh.NPolys)
	return navData, nil
}

// Save writes the navmesh tile. Without a navmesh any previous file at path is
// removed and ErrNotLoaded returned.
func (s *NavigationSolo) Save(path string) error {
	if s.m_navData == nil {
		if err := removeStale(path); err != nil {
			return err
		}
		return ErrNotLoaded
	}
	tile := s.m_navData.ToBin()
	if s.m_settings.LegacyFormat {
		return writeNavFile(path, encodeLegacySolo(tile))
	}
	return writeNavFile(path, encodeNavFile(&navFile{
		Kind:    NavFileSolo,
		BuildID: s.m_ctx.BuildID().String(),
		Tiles:   [][]byte{tile},
	}))
}

// Load replaces the navmesh with the one stored at path. A file that cannot
// be read leaves the current navmesh in place.
func (s *NavigationSolo) Load(path string) error {
	f, err := readNavFile(path)
	if err != nil {
		return err
	}
	if f.Kind != NavFileSolo {
		return fmt.Errorf("%s: %w: tiled navmesh", path, ErrBadFormat)
	}
	navData := &detour.NavMeshData{}
	if err := navData.FromBin(f.Tiles[0]); err != nil {
		return fmt.Errorf("%s: %w: %v", path, ErrBadFormat, err)
	}
	nav := detour.NewDtNavMesh()
	if status := nav.InitSingle(navData); status.Failed() {
		return fmt.Errorf("%s: %w: init navmesh: %v", path, ErrBadFormat, status)
	}

	s.Cleanup()
	if err := s.attach(nav); err != nil {
		return err
	}
	s.m_navData = navData
	s.m_state = StateBuilt
	logger.LogInfo("navmesh loaded from %s (build %q, legacy %v)", path, f.BuildID, f.Legacy)
	return nil
}
