package detour_tile_cache

import "github.com/gorustyt/navcore/detour"

// DtTileCacheMeshProcess adjusts a rebuilt tile before it is packed: it assigns
// polygon flags from areas and may add off-mesh connections to params.
type DtTileCacheMeshProcess interface {
	Process(params *detour.DtNavMeshCreateParams, polyAreas []uint8, polyFlags []uint16)
}

type DtTileCacheMeshProcessFunc func(params *detour.DtNavMeshCreateParams, polyAreas []uint8, polyFlags []uint16)

func (f DtTileCacheMeshProcessFunc) Process(params *detour.DtNavMeshCreateParams, polyAreas []uint8, polyFlags []uint16) {
	f(params, polyAreas, polyFlags)
}
