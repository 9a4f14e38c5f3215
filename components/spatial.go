package components

import "math"

// Vec3 is a world-space vector. Motion happens in the XZ plane; Y stays 0
// and exists so positions round-trip cleanly to 3D frontends.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Scale returns v scaled by s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// LengthSq returns the squared magnitude (avoids sqrt in hot paths).
func (v Vec3) LengthSq() float64 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

// Length returns the magnitude.
func (v Vec3) Length() float64 {
	return math.Sqrt(v.LengthSq())
}

// Normalized returns the unit vector, or the zero vector unchanged.
func (v Vec3) Normalized() Vec3 {
	l := v.Length()
	if l == 0 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// DistSqTo returns the squared distance to o.
func (v Vec3) DistSqTo(o Vec3) float64 {
	return v.Sub(o).LengthSq()
}

// DistTo returns the distance to o.
func (v Vec3) DistTo(o Vec3) float64 {
	return math.Sqrt(v.DistSqTo(o))
}

// Position is an entity's world position.
type Position struct {
	Vec3
}

// Velocity is an entity's velocity.
type Velocity struct {
	Vec3
}
