package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gorustyt/navcore/common"
	"github.com/gorustyt/navcore/common/logger"
	"github.com/gorustyt/navcore/config"
	"github.com/gorustyt/navcore/navigation"
)

// loadConfig reads path, or returns the defaults when path is empty, and
// installs the configured logger.
func loadConfig(path string) (*config.Config, error) {
	c := config.Default()
	if path != "" {
		var err error
		if c, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if err := logger.Init(c.Log); err != nil {
		return nil, err
	}
	return c, nil
}

func parseVec3(s string) (common.Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return common.Vec3{}, fmt.Errorf("position %q: want x,y,z", s)
	}
	var v common.Vec3
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return common.Vec3{}, fmt.Errorf("position %q: %w", s, err)
		}
		v[i] = float32(f)
	}
	return v, nil
}

// newNavigation returns the tiled variant when tiled is set. Both variants
// load solo files; only the tiled one loads tiled files.
func newNavigation(st navigation.Settings, tiled bool) navigation.Navigation {
	if tiled {
		return navigation.NewNavigationTempObstacles(st)
	}
	return navigation.NewNavigationSolo(st)
}

// loadNavigation opens a saved navmesh of either kind.
func loadNavigation(path string, st navigation.Settings) (*navigation.NavigationTempObstacles, error) {
	nav := navigation.NewNavigationTempObstacles(st)
	if err := nav.Load(path); err != nil {
		return nil, err
	}
	return nav, nil
}

func buildAndSave(objPath, outPath string, c *config.Config, tiled bool) error {
	geom, err := navigation.LoadObjFile(objPath)
	if err != nil {
		return err
	}
	st := c.Settings()
	nav := newNavigation(st, tiled)
	nav.SetGeometry(geom)
	if !nav.Build(st.AgentRadius, st.AgentHeight, st.AgentMaxClimb) {
		if b, ok := nav.(interface{ LastBuildError() error }); ok && b.LastBuildError() != nil {
			return fmt.Errorf("build %s: %w", objPath, b.LastBuildError())
		}
		return fmt.Errorf("build %s: %w", objPath, navigation.ErrBuildFailed)
	}
	if err := nav.Save(outPath); err != nil {
		return err
	}
	logger.LogInfo("wrote %s", outPath)
	return nil
}
