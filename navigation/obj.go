package navigation

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// LoadObj reads the vertices and faces of a Wavefront OBJ stream. Polygonal
// faces are fanned into triangles tagged with area and maxSlope.
func LoadObj(r io.Reader, area uint8, maxSlope float32) (*InputGeometryData, error) {
	geom := NewInputGeometryData()
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		row := strings.Fields(scanner.Text())
		if len(row) == 0 || strings.HasPrefix(row[0], "#") {
			continue
		}
		var err error
		switch row[0] {
		case "v":
			err = parseVertex(geom, row[1:])
		case "f":
			err = parseFace(geom, row[1:], area, maxSlope)
		}
		if err != nil {
			return nil, fmt.Errorf("obj line %d: %w", line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return geom, nil
}

func LoadObjFile(path string) (*InputGeometryData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadObj(f, POLYAREA_GROUND, DefaultSettings().AgentMaxSlope)
}

func parseVertex(geom *InputGeometryData, ss []string) error {
	if len(ss) < 3 {
		return fmt.Errorf("vertex needs 3 components, got %d", len(ss))
	}
	var v [3]float32
	for i := range v {
		f, err := strconv.ParseFloat(ss[i], 32)
		if err != nil {
			return err
		}
		v[i] = float32(f)
	}
	geom.AddVertex(v[0], v[1], v[2])
	return nil
}

func parseFace(geom *InputGeometryData, ss []string, area uint8, maxSlope float32) error {
	nv := geom.GetVertCount()
	var face []int
	for _, s := range ss {
		vs := strings.Split(s, "/")
		vi, err := strconv.Atoi(vs[0])
		if err != nil {
			return err
		}
		if vi < 0 {
			vi += nv
		} else {
			vi--
		}
		face = append(face, vi)
		if len(face) >= 32 {
			break
		}
	}
	for i := 2; i < len(face); i++ {
		a, b, c := face[0], face[i-1], face[i]
		if a < 0 || a >= nv || b < 0 || b >= nv || c < 0 || c >= nv {
			continue
		}
		geom.AddTriangle(a, b, c, area, maxSlope)
	}
	return nil
}
