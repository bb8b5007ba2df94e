package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorustyt/navcore/common"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVec3(t *testing.T) {
	v, err := parseVec3("1.5, -2,3")
	require.NoError(t, err)
	assert.Equal(t, common.Vec3{1.5, -2, 3}, v)

	for _, bad := range []string{"", "1,2", "1,2,3,4", "a,b,c"} {
		_, err := parseVec3(bad)
		assert.Error(t, err, bad)
	}
}

const planeObj = `v 0 0 0
v 20 0 0
v 20 0 20
v 0 0 20
f 1 3 2
f 1 4 3
`

func writePlane(t *testing.T) string {
	dir := t.TempDir()
	p := filepath.Join(dir, "plane.obj")
	require.NoError(t, os.WriteFile(p, []byte(planeObj), 0o644))
	return p
}

func run(t *testing.T, args ...string) string {
	root := &cobra.Command{Use: "navtool", SilenceUsage: true}
	root.AddCommand(BuildCmd(), PathCmd(), InfoCmd(), ExportCmd())
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs(args)
	require.NoError(t, root.Execute())
	return out.String()
}

func TestBuildPathInfoExport(t *testing.T) {
	for _, tiled := range []bool{false, true} {
		obj := writePlane(t)
		nav := filepath.Join(filepath.Dir(obj), "plane.nav")
		args := []string{"build", "--obj", obj, "--out", nav}
		if tiled {
			args = append(args, "--tiled")
		}
		run(t, args...)
		require.FileExists(t, nav)

		out := run(t, "path", "--nav", nav, "--from", "2,0,2", "--to", "18,0,18", "--straight")
		lines := strings.Split(strings.TrimSpace(out), "\n")
		assert.GreaterOrEqual(t, len(lines), 2)

		out = run(t, "path", "--nav", nav, "--from", "2,0,2", "--to", "18,0,18")
		assert.True(t, strings.HasPrefix(out, "# walk\n"))

		out = run(t, "info", "--nav", nav)
		assert.Contains(t, out, "polygons:")
		assert.Equal(t, tiled, strings.Contains(out, "cache layers:"))

		mesh := filepath.Join(filepath.Dir(obj), "mesh.obj")
		run(t, "export", "--nav", nav, "--out", mesh)
		data, err := os.ReadFile(mesh)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(data), "# Recast Navmesh"))
	}
}
