package components

import (
	"math"
	"testing"
)

// ---------- vector arithmetic ----------

func TestVec3Arithmetic(t *testing.T) {
	a := Vec3{X: 1, Y: 2, Z: 3}
	b := Vec3{X: 4, Y: -2, Z: 0.5}

	sum := a.Add(b)
	if sum.X != 5 || sum.Y != 0 || sum.Z != 3.5 {
		t.Errorf("Add: got %+v, want {5 0 3.5}", sum)
	}

	diff := a.Sub(b)
	if diff.X != -3 || diff.Y != 4 || diff.Z != 2.5 {
		t.Errorf("Sub: got %+v, want {-3 4 2.5}", diff)
	}

	scaled := a.Scale(2)
	if scaled.X != 2 || scaled.Y != 4 || scaled.Z != 6 {
		t.Errorf("Scale: got %+v, want {2 4 6}", scaled)
	}
}

func TestVec3Length(t *testing.T) {
	v := Vec3{X: 3, Y: 0, Z: 4}
	if got := v.LengthSq(); got != 25 {
		t.Errorf("LengthSq: got %v, want 25", got)
	}
	if got := v.Length(); math.Abs(got-5) > 1e-12 {
		t.Errorf("Length: got %v, want 5", got)
	}
}

func TestVec3Normalized(t *testing.T) {
	v := Vec3{X: 0, Y: 0, Z: 10}
	n := v.Normalized()
	if math.Abs(n.Length()-1) > 1e-12 {
		t.Errorf("Normalized length: got %v, want 1", n.Length())
	}
	if n.Z != 1 {
		t.Errorf("Normalized direction: got %+v, want {0 0 1}", n)
	}
}

func TestVec3NormalizedZero(t *testing.T) {
	// Zero vector has no direction; normalizing must not divide by zero.
	n := Vec3{}.Normalized()
	if n.X != 0 || n.Y != 0 || n.Z != 0 {
		t.Errorf("Normalized zero vector: got %+v, want zero", n)
	}
}

func TestVec3Distance(t *testing.T) {
	a := Vec3{X: 1, Y: 0, Z: 1}
	b := Vec3{X: 4, Y: 0, Z: 5}
	if got := a.DistSqTo(b); got != 25 {
		t.Errorf("DistSqTo: got %v, want 25", got)
	}
	if got := a.DistTo(b); math.Abs(got-5) > 1e-12 {
		t.Errorf("DistTo: got %v, want 5", got)
	}
	if got := b.DistTo(a); math.Abs(got-5) > 1e-12 {
		t.Errorf("DistTo should be symmetric: got %v, want 5", got)
	}
}
