package navigation

import (
	"bufio"
	"fmt"
	"io"

	"github.com/gorustyt/navcore/detour"
)

// MeshStats summarizes the tiles of a navmesh.
type MeshStats struct {
	Tiles       int
	Polys       int
	OffMeshCons int
	Verts       int
	DetailTris  int
	Bmin, Bmax  [3]float32
}

func GetMeshStats(nav *detour.DtNavMesh) MeshStats {
	var st MeshStats
	first := true
	for i := 0; i < nav.GetMaxTiles(); i++ {
		tile := nav.GetTile(i)
		if tile == nil || tile.Header == nil {
			continue
		}
		h := tile.Header
		st.Tiles++
		st.Polys += int(h.PolyCount) - int(h.OffMeshConCount)
		st.OffMeshCons += int(h.OffMeshConCount)
		st.Verts += int(h.VertCount)
		st.DetailTris += int(h.DetailTriCount)
		if first {
			st.Bmin, st.Bmax = h.Bmin, h.Bmax
			first = false
			continue
		}
		for k := 0; k < 3; k++ {
			st.Bmin[k] = min(st.Bmin[k], h.Bmin[k])
			st.Bmax[k] = max(st.Bmax[k], h.Bmax[k])
		}
	}
	return st
}

// ExportObj writes the detail surface of every ground polygon as a Wavefront
// OBJ mesh. Off-mesh connections are skipped.
func ExportObj(nav *detour.DtNavMesh, w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# Recast Navmesh\n")
	fmt.Fprintf(bw, "o NavMesh\n\n")

	base := 1
	for i := 0; i < nav.GetMaxTiles(); i++ {
		tile := nav.GetTile(i)
		if tile == nil || tile.Header == nil {
			continue
		}
		for k := 0; k < len(tile.Verts); k += 3 {
			fmt.Fprintf(bw, "v %f %f %f\n", tile.Verts[k], tile.Verts[k+1], tile.Verts[k+2])
		}
		nverts := len(tile.Verts) / 3
		for k := 0; k < len(tile.DetailVerts); k += 3 {
			fmt.Fprintf(bw, "v %f %f %f\n", tile.DetailVerts[k], tile.DetailVerts[k+1], tile.DetailVerts[k+2])
		}

		for ip := range tile.Polys {
			p := &tile.Polys[ip]
			if p.GetType() == detour.DT_POLYTYPE_OFFMESH_CONNECTION {
				continue
			}
			pd := &tile.DetailMeshes[ip]
			for j := 0; j < int(pd.TriCount); j++ {
				t := tile.DetailTris[(int(pd.TriBase)+j)*4:]
				var idx [3]int
				for k := 0; k < 3; k++ {
					if int(t[k]) < int(p.VertCount) {
						idx[k] = base + int(p.Verts[t[k]])
					} else {
						idx[k] = base + nverts + int(pd.VertBase) + int(t[k]) - int(p.VertCount)
					}
				}
				fmt.Fprintf(bw, "f %d %d %d\n", idx[0], idx[1], idx[2])
			}
		}
		base += nverts + len(tile.DetailVerts)/3
	}
	return bw.Flush()
}
