package geo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/imbuefx/enrichments/pkg/core"
)

// GEO POINTS
// Journal geometry is stored in plan view: world X/Z map to geometry X/Y
// and world height (Y) becomes the Z ordinate. Geometry is persisted as WKB,
// which keeps SQLite and PostGIS rows interchangeable.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// Point converts a world position to an XYZ point.
func Point(v core.Vec3) geom.Point {
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: v.X, Y: v.Z},
		Z:    v.Y,
		Type: geom.DimXYZ,
	})
}

// FromPoint converts a point back to a world position. Empty points report false.
func FromPoint(p geom.Point) (core.Vec3, bool) {
	c, ok := p.Coordinates()
	if !ok {
		return core.Vec3{}, false
	}
	return core.Vec3{X: c.X, Y: c.Z, Z: c.Y}, true
}

// Path builds the line a chain walk traced through its points.
func Path(points []core.Vec3) (geom.LineString, error) {
	if len(points) < 2 {
		return geom.LineString{}, fmt.Errorf("path must have at least 2 points, got %d", len(points))
	}
	flat := make([]float64, 0, len(points)*3)
	for _, p := range points {
		flat = append(flat, p.X, p.Z, p.Y)
	}
	return geom.NewLineString(geom.NewSequence(flat, geom.DimXYZ)), nil
}

// ParseVec3 parses "x,y,z" (or "x,z" on the ground plane) into a world position.
func ParseVec3(coords string) (core.Vec3, error) {
	parts := strings.Split(coords, ",")
	if len(parts) < 2 || len(parts) > 3 {
		return core.Vec3{}, ErrInvalidCoordinates
	}
	vals := make([]float64, len(parts))
	for i, s := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return core.Vec3{}, ErrInvalidCoordinates
		}
		vals[i] = v
	}
	if len(vals) == 2 {
		return core.Vec3{X: vals[0], Z: vals[1]}, nil
	}
	return core.Vec3{X: vals[0], Y: vals[1], Z: vals[2]}, nil
}
