package world

// SurvivalThreshold is the energy level below which starvation mortality
// kicks in. It scales with population against carrying capacity and never
// drops below the configured minimum.
func SurvivalThreshold(pop int, base, min float64, carryingCapacity int) float64 {
	t := base * float64(pop) / float64(carryingCapacity)
	if t < min {
		return min
	}
	return t
}

// Pressure is the crowding factor scaling energy decay and damping
// reproduction, capped at maxPressure.
func Pressure(pop int, carryingCapacity int, maxPressure float64) float64 {
	p := float64(pop) / float64(carryingCapacity)
	if p > maxPressure {
		return maxPressure
	}
	return p
}
