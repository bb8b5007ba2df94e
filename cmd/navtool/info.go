package main

import (
	"fmt"
	"os"

	"github.com/gorustyt/navcore/navigation"
	"github.com/spf13/cobra"
)

func InfoCmd() *cobra.Command {
	var navFile string
	c := &cobra.Command{
		Use:   "info",
		Short: "print a summary of a saved navmesh",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(""); err != nil {
				return err
			}
			nav, err := loadNavigation(navFile, navigation.DefaultSettings())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			st := navigation.GetMeshStats(nav.GetNavMesh())
			fmt.Fprintf(out, "tiles:        %d\n", st.Tiles)
			fmt.Fprintf(out, "polygons:     %d\n", st.Polys)
			fmt.Fprintf(out, "off-mesh:     %d\n", st.OffMeshCons)
			fmt.Fprintf(out, "vertices:     %d\n", st.Verts)
			fmt.Fprintf(out, "detail tris:  %d\n", st.DetailTris)
			fmt.Fprintf(out, "bounds:       %v - %v\n", st.Bmin, st.Bmax)
			if tc := nav.GetTileCache(); tc != nil {
				layers, compressed, _ := nav.GetCacheStats()
				p := tc.GetParams()
				fmt.Fprintf(out, "cache layers: %d (%.1f kB)\n", layers, float32(compressed)/1024)
				fmt.Fprintf(out, "obstacles:    max %d\n", p.MaxObstacles)
			}
			return nil
		},
	}
	c.Flags().StringVar(&navFile, "nav", "scene.nav", "navmesh file")
	return c
}

func ExportCmd() *cobra.Command {
	var navFile, outFile string
	c := &cobra.Command{
		Use:   "export",
		Short: "write the navmesh surface as an OBJ mesh",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(""); err != nil {
				return err
			}
			nav, err := loadNavigation(navFile, navigation.DefaultSettings())
			if err != nil {
				return err
			}
			f, err := os.Create(outFile)
			if err != nil {
				return err
			}
			if err := navigation.ExportObj(nav.GetNavMesh(), f); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	c.Flags().StringVar(&navFile, "nav", "scene.nav", "navmesh file")
	c.Flags().StringVar(&outFile, "out", "navmesh.obj", "output OBJ file")
	return c
}
