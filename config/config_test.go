package config

import (
	"path/filepath"
	"testing"

	"github.com/gorustyt/navcore/navigation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMatchesSettings(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, navigation.DefaultSettings(), c.Settings())
	assert.Equal(t, float32(0.3), c.Build.CellSize)
	assert.Equal(t, float32(0.2), c.Build.CellHeight)
	assert.Equal(t, 6, c.Build.VertsPerPoly)
	assert.Equal(t, 48, c.Tiling.TileSize)
}

func TestParseOverridesDefaults(t *testing.T) {
	c, err := Parse([]byte(`
[build]
cell_size = 0.25
partition = "monotone"

[agent]
radius = 0.4

[persist]
format = "legacy"

[log]
level = "debug"
`))
	require.NoError(t, err)
	assert.Equal(t, float32(0.25), c.Build.CellSize)
	assert.Equal(t, float32(0.2), c.Build.CellHeight)
	assert.Equal(t, "debug", c.Log.Level)

	st := c.Settings()
	assert.Equal(t, navigation.PARTITION_MONOTONE, st.Partition)
	assert.Equal(t, float32(0.4), st.AgentRadius)
	assert.Equal(t, float32(2.0), st.AgentHeight)
	assert.True(t, st.LegacyFormat)
}

func TestParseRejects(t *testing.T) {
	for name, src := range map[string]string{
		"unknown key":    "[build]\ncell_sise = 0.3\n",
		"syntax":         "[build\n",
		"zero cell size": "[build]\ncell_size = 0.0\n",
		"nvp":            "[build]\nverts_per_poly = 7\n",
		"partition":      "[build]\npartition = \"layers\"\n",
		"slope":          "[agent]\nmax_slope = 90.0\n",
		"tile size":      "[tiling]\ntile_size = 0\n",
		"layers":         "[tiling]\nexpected_layers_per_tile = 33\n",
		"agents":         "[crowd]\nmax_agents = 0\n",
		"format":         "[persist]\nformat = \"json\"\n",
	} {
		_, err := Parse([]byte(src))
		assert.Error(t, err, name)
	}

	_, err := Parse([]byte("[tiling]\nmax_obstacles = -1\n"))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestSaveLoad(t *testing.T) {
	c := Default()
	c.Agent.Radius = 0.5
	c.Build.Partition = PartitionMonotone
	path := filepath.Join(t.TempDir(), "nav.toml")
	require.NoError(t, c.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, got)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
