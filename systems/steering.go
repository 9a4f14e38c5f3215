package systems

import "github.com/pthm-cable/vivarium/components"

// Steer adds an acceleration along dir. Callers pass a direction with
// magnitude <= 1; sub-unit lengths (a hesitant wander, a weak pull) steer
// proportionally less. Damping in Integrate keeps the terminal speed near
// maxSpeed*intentSpeed.
func Steer(vel *components.Velocity, dir components.Vec3, maxSpeed, intentSpeed, accelFactor float64) {
	delta := dir.Scale(maxSpeed * intentSpeed * accelFactor)
	vel.Vec3 = vel.Vec3.Add(delta)
}

// Integrate dampens velocity, advances the position and reflects at the
// arena bound. Restitution is negative: the breached axis bounces inward
// at reduced speed.
func Integrate(pos *components.Position, vel *components.Velocity, damping, bound, restitution float64) {
	vel.Vec3 = vel.Vec3.Scale(damping)
	pos.Vec3 = pos.Vec3.Add(vel.Vec3)

	if pos.X > bound {
		pos.X = bound
		vel.X *= restitution
	} else if pos.X < -bound {
		pos.X = -bound
		vel.X *= restitution
	}
	if pos.Z > bound {
		pos.Z = bound
		vel.Z *= restitution
	} else if pos.Z < -bound {
		pos.Z = -bound
		vel.Z *= restitution
	}
}

// GlideToward steps pos straight at target with a fixed per-tick speed,
// ignoring velocity. Returns true once within arriveDist (or on arrival),
// meaning the target is spent.
func GlideToward(pos *components.Position, target components.Vec3, speed, arriveDist float64) bool {
	to := target.Sub(pos.Vec3)
	to.Y = 0
	dist := to.Length()
	if dist <= arriveDist {
		return true
	}
	if dist <= speed {
		pos.Vec3 = target
		pos.Y = 0
		return true
	}
	pos.Vec3 = pos.Vec3.Add(to.Scale(speed / dist))
	return false
}
