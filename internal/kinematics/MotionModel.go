// Package kinematics holds the small motion laws shared by the driver and traffic
// controllers: braking envelopes, following distances, the decay-to-zero
// equalization law, and the scalar smoothing helpers (MoveTowards, Lerp,
// SmoothDamp) every pedal and steering actuator is rate-limited with.
package kinematics

// BrakingModel is the contract for reasoning about how much road a vehicle needs
// to slow down. Distances are in metres, velocities in m/s.
type BrakingModel interface {
	// BrakingDistance returns the minimum distance needed to stop from velocity v.
	BrakingDistance(v float64) float64

	// BrakingDistanceTo returns the distance needed to decelerate from v to targetV.
	// Returns 0 if v ≤ targetV.
	BrakingDistanceTo(v, targetV float64) float64

	// VelocityAfterBraking returns the velocity reached after braking from v0 over dist metres.
	VelocityAfterBraking(v0, dist float64) float64

	// SpeedAllowedAt returns the highest speed from which the vehicle can still
	// slow to targetV within dist metres. Used to approach turns and stop lines.
	SpeedAllowedAt(dist, targetV float64) float64
}

// EqualizationAcceleration is the decay-to-zero law: the acceleration that removes
// a velocity error over duration seconds when the acceleration itself falls
// linearly to zero (Δv = a·Δt/2).
func EqualizationAcceleration(velocityError, duration float64) float64 {
	if duration <= 0 {
		return 0
	}
	return velocityError / duration * 2
}

// EqualizationSpeed applies the same law one derivative down: the rate needed to
// remove a position error over duration seconds.
func EqualizationSpeed(positionError, duration float64) float64 {
	return EqualizationAcceleration(positionError, duration)
}

// SafeDistance is the following gap kept behind an obstacle: the distance covered
// in timeGap seconds at speed, never less than minDistance.
func SafeDistance(speed, timeGap, minDistance float64) float64 {
	if speed < 0 {
		speed = -speed
	}
	if d := timeGap * speed; d > minDistance {
		return d
	}
	return minDistance
}
