// pkg/core/vector.go
package core

import (
	"fmt"
	"math"
)

// Vec3 is a world-space position or direction.
type Vec3 struct {
	X float64
	Y float64
	Z float64
}

// Up is the world up axis.
var Up = Vec3{Y: 1}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

// LenSq returns the squared magnitude.
func (v Vec3) LenSq() float64 {
	return v.Dot(v)
}

// Len returns the magnitude.
func (v Vec3) Len() float64 {
	return math.Sqrt(v.LenSq())
}

// Normalize returns the unit vector, or the zero vector when v has no length.
func (v Vec3) Normalize() Vec3 {
	l := v.Len()
	if l == 0 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// Dist returns the distance between two points.
func (v Vec3) Dist(o Vec3) float64 {
	return v.Sub(o).Len()
}

// Horizontal drops the vertical component.
func (v Vec3) Horizontal() Vec3 {
	return Vec3{X: v.X, Z: v.Z}
}

func (v Vec3) String() string {
	return fmt.Sprintf("%.3f,%.3f,%.3f", v.X, v.Y, v.Z)
}

// Clamp01 clamps f into [0,1].
func Clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}

// InverseLerp returns where v sits between a and b as a clamped 0..1 ratio.
func InverseLerp(a, b, v float64) float64 {
	if a == b {
		return 0
	}
	return Clamp01((v - a) / (b - a))
}
