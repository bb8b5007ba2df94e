package main

import (
	"github.com/spf13/cobra"
)

func BuildCmd() *cobra.Command {
	var objFile, configFile, outFile string
	var tiled bool
	c := &cobra.Command{
		Use:   "build",
		Short: "build a navmesh from an OBJ scene",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFile)
			if err != nil {
				return err
			}
			return buildAndSave(objFile, outFile, cfg, tiled)
		},
	}
	c.Flags().StringVar(&objFile, "obj", "", "input OBJ scene")
	c.Flags().StringVar(&configFile, "config", "", "TOML build settings")
	c.Flags().StringVar(&outFile, "out", "scene.nav", "output navmesh file")
	c.Flags().BoolVar(&tiled, "tiled", false, "build a tiled navmesh with a tile cache")
	_ = c.MarkFlagRequired("obj")
	return c
}
