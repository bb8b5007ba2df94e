package main

import (
	"fmt"

	"github.com/gorustyt/navcore/navigation"
	"github.com/spf13/cobra"
)

func PathCmd() *cobra.Command {
	var navFile, configFile, from, to string
	var straight bool
	var filterType int
	c := &cobra.Command{
		Use:   "path",
		Short: "find a path on a saved navmesh",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFile)
			if err != nil {
				return err
			}
			start, err := parseVec3(from)
			if err != nil {
				return err
			}
			end, err := parseVec3(to)
			if err != nil {
				return err
			}
			nav, err := loadNavigation(navFile, cfg.Settings())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if straight {
				pts, ok := nav.FindStraightPath(start, end)
				if !ok {
					return fmt.Errorf("no path from %v to %v", start, end)
				}
				for _, p := range pts {
					fmt.Fprintf(out, "%.3f %.3f %.3f\n", p[0], p[1], p[2])
				}
				return nil
			}
			path, ok := nav.FindPath(start, end, filterType)
			if !ok {
				return fmt.Errorf("no path from %v to %v", start, end)
			}
			for _, seg := range path.Segments {
				fmt.Fprintf(out, "# %s\n", seg.Kind)
				for _, p := range seg.Points {
					fmt.Fprintf(out, "%.3f %.3f %.3f\n", p[0], p[1], p[2])
				}
			}
			return nil
		},
	}
	c.Flags().StringVar(&navFile, "nav", "scene.nav", "navmesh file")
	c.Flags().StringVar(&configFile, "config", "", "TOML settings")
	c.Flags().StringVar(&from, "from", "", "start position x,y,z")
	c.Flags().StringVar(&to, "to", "", "end position x,y,z")
	c.Flags().BoolVar(&straight, "straight", false, "print the funnel corners only")
	c.Flags().IntVar(&filterType, "filter", 0, fmt.Sprintf("query filter type, 0..%d", navigation.MAX_QUERY_FILTER_TYPE-1))
	_ = c.MarkFlagRequired("from")
	_ = c.MarkFlagRequired("to")
	return c
}
