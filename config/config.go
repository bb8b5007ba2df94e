// Package config loads the navmesh build settings from TOML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/gorustyt/navcore/common/logger"
	"github.com/gorustyt/navcore/navigation"
	"github.com/pelletier/go-toml/v2"
)

const (
	PartitionWatershed = "watershed"
	PartitionMonotone  = "monotone"

	FormatEnvelope = "envelope"
	FormatLegacy   = "legacy"
)

var ErrInvalid = errors.New("config: invalid value")

type Build struct {
	CellSize             float32 `toml:"cell_size"`
	CellHeight           float32 `toml:"cell_height"`
	RegionMinSize        float32 `toml:"region_min_size"`
	RegionMergeSize      float32 `toml:"region_merge_size"`
	EdgeMaxLen           float32 `toml:"edge_max_len"`
	EdgeMaxError         float32 `toml:"edge_max_error"`
	VertsPerPoly         int     `toml:"verts_per_poly"`
	DetailSampleDist     float32 `toml:"detail_sample_dist"`
	DetailSampleMaxError float32 `toml:"detail_sample_max_error"`
	Partition            string  `toml:"partition"`

	FilterLowHangingObstacles    bool `toml:"filter_low_hanging_obstacles"`
	FilterLedgeSpans             bool `toml:"filter_ledge_spans"`
	FilterWalkableLowHeightSpans bool `toml:"filter_walkable_low_height_spans"`
}

type Agent struct {
	Radius    float32 `toml:"radius"`
	Height    float32 `toml:"height"`
	MaxClimb  float32 `toml:"max_climb"`
	MaxSlope  float32 `toml:"max_slope"`
	MinRadius float32 `toml:"min_radius"`
}

type Tiling struct {
	TileSize              int `toml:"tile_size"`
	ExpectedLayersPerTile int `toml:"expected_layers_per_tile"`
	MaxObstacles          int `toml:"max_obstacles"`
}

type Crowd struct {
	MaxAgents      int     `toml:"max_agents"`
	MaxAgentRadius float32 `toml:"max_agent_radius"`
}

type Persist struct {
	Format string `toml:"format"`
}

type Config struct {
	Build   Build         `toml:"build"`
	Agent   Agent         `toml:"agent"`
	Tiling  Tiling        `toml:"tiling"`
	Crowd   Crowd         `toml:"crowd"`
	Log     logger.Config `toml:"log"`
	Persist Persist       `toml:"persist"`
}

// Default returns the configuration matching navigation.DefaultSettings.
func Default() *Config {
	st := navigation.DefaultSettings()
	c := &Config{
		Build: Build{
			CellSize:                     st.CellSize,
			CellHeight:                   st.CellHeight,
			RegionMinSize:                st.RegionMinSize,
			RegionMergeSize:              st.RegionMergeSize,
			EdgeMaxLen:                   st.EdgeMaxLen,
			EdgeMaxError:                 st.EdgeMaxError,
			VertsPerPoly:                 st.VertsPerPoly,
			DetailSampleDist:             st.DetailSampleDist,
			DetailSampleMaxError:         st.DetailSampleMaxError,
			Partition:                    PartitionWatershed,
			FilterLowHangingObstacles:    st.FilterLowHangingObstacles,
			FilterLedgeSpans:             st.FilterLedgeSpans,
			FilterWalkableLowHeightSpans: st.FilterWalkableLowHeightSpans,
		},
		Agent: Agent{
			Radius:    st.AgentRadius,
			Height:    st.AgentHeight,
			MaxClimb:  st.AgentMaxClimb,
			MaxSlope:  st.AgentMaxSlope,
			MinRadius: st.AgentMinRadius,
		},
		Tiling: Tiling{
			TileSize:              st.TileSize,
			ExpectedLayersPerTile: st.ExpectedLayersPerTile,
			MaxObstacles:          st.MaxObstacles,
		},
		Crowd: Crowd{
			MaxAgents:      st.MaxAgents,
			MaxAgentRadius: st.MaxAgentRadius,
		},
		Log:     logger.Config{Level: "info", MaxSizeMB: 100, MaxBackups: 3, MaxAgeDays: 28},
		Persist: Persist{Format: FormatEnvelope},
	}
	if st.Partition == navigation.PARTITION_MONOTONE {
		c.Build.Partition = PartitionMonotone
	}
	return c
}

// Load reads path on top of Default. Keys missing from the file keep their
// default value; unknown keys are an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func Parse(data []byte) (*Config, error) {
	c := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, fmt.Errorf("toml %d:%d: %w", row, col, err)
		}
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *Config) Validate() error {
	switch {
	case c.Build.CellSize <= 0:
		return fmt.Errorf("%w: build.cell_size %v", ErrInvalid, c.Build.CellSize)
	case c.Build.CellHeight <= 0:
		return fmt.Errorf("%w: build.cell_height %v", ErrInvalid, c.Build.CellHeight)
	case c.Build.VertsPerPoly < 3 || c.Build.VertsPerPoly > 6:
		return fmt.Errorf("%w: build.verts_per_poly %d not in 3..6", ErrInvalid, c.Build.VertsPerPoly)
	case c.Build.Partition != PartitionWatershed && c.Build.Partition != PartitionMonotone:
		return fmt.Errorf("%w: build.partition %q", ErrInvalid, c.Build.Partition)
	case c.Agent.Radius < 0 || c.Agent.Height <= 0 || c.Agent.MaxClimb < 0:
		return fmt.Errorf("%w: agent size %v/%v/%v", ErrInvalid, c.Agent.Radius, c.Agent.Height, c.Agent.MaxClimb)
	case c.Agent.MaxSlope < 0 || c.Agent.MaxSlope >= 90:
		return fmt.Errorf("%w: agent.max_slope %v", ErrInvalid, c.Agent.MaxSlope)
	case c.Tiling.TileSize <= 0:
		return fmt.Errorf("%w: tiling.tile_size %d", ErrInvalid, c.Tiling.TileSize)
	case c.Tiling.ExpectedLayersPerTile <= 0 || c.Tiling.ExpectedLayersPerTile > navigation.MAX_LAYERS:
		return fmt.Errorf("%w: tiling.expected_layers_per_tile %d", ErrInvalid, c.Tiling.ExpectedLayersPerTile)
	case c.Tiling.MaxObstacles < 0 || c.Tiling.MaxObstacles > 0xffff:
		return fmt.Errorf("%w: tiling.max_obstacles %d", ErrInvalid, c.Tiling.MaxObstacles)
	case c.Crowd.MaxAgents <= 0 || c.Crowd.MaxAgentRadius <= 0:
		return fmt.Errorf("%w: crowd %d/%v", ErrInvalid, c.Crowd.MaxAgents, c.Crowd.MaxAgentRadius)
	case c.Persist.Format != FormatEnvelope && c.Persist.Format != FormatLegacy:
		return fmt.Errorf("%w: persist.format %q", ErrInvalid, c.Persist.Format)
	}
	return nil
}

// Settings converts the configuration to navigation build settings.
func (c *Config) Settings() navigation.Settings {
	st := navigation.DefaultSettings()
	st.CellSize = c.Build.CellSize
	st.CellHeight = c.Build.CellHeight
	st.RegionMinSize = c.Build.RegionMinSize
	st.RegionMergeSize = c.Build.RegionMergeSize
	st.EdgeMaxLen = c.Build.EdgeMaxLen
	st.EdgeMaxError = c.Build.EdgeMaxError
	st.VertsPerPoly = c.Build.VertsPerPoly
	st.DetailSampleDist = c.Build.DetailSampleDist
	st.DetailSampleMaxError = c.Build.DetailSampleMaxError
	st.Partition = navigation.PARTITION_WATERSHED
	if c.Build.Partition == PartitionMonotone {
		st.Partition = navigation.PARTITION_MONOTONE
	}
	st.FilterLowHangingObstacles = c.Build.FilterLowHangingObstacles
	st.FilterLedgeSpans = c.Build.FilterLedgeSpans
	st.FilterWalkableLowHeightSpans = c.Build.FilterWalkableLowHeightSpans

	st.AgentRadius = c.Agent.Radius
	st.AgentHeight = c.Agent.Height
	st.AgentMaxClimb = c.Agent.MaxClimb
	st.AgentMaxSlope = c.Agent.MaxSlope
	st.AgentMinRadius = c.Agent.MinRadius

	st.TileSize = c.Tiling.TileSize
	st.ExpectedLayersPerTile = c.Tiling.ExpectedLayersPerTile
	st.MaxObstacles = c.Tiling.MaxObstacles

	st.MaxAgents = c.Crowd.MaxAgents
	st.MaxAgentRadius = c.Crowd.MaxAgentRadius
	st.LegacyFormat = c.Persist.Format == FormatLegacy
	return st
}
