package kinematics

import (
	"math"

	"github.com/samber/lo"
)

// MoveTowards moves current toward target by at most maxDelta and never overshoots.
func MoveTowards(current, target, maxDelta float64) float64 {
	if math.Abs(target-current) <= maxDelta {
		return target
	}
	if target > current {
		return current + maxDelta
	}
	return current - maxDelta
}

// Clamp01 limits v to [0, 1].
func Clamp01(v float64) float64 { return lo.Clamp(v, 0, 1) }

// Lerp interpolates from a to b with t clamped to [0, 1].
func Lerp(a, b, t float64) float64 { return a + (b-a)*Clamp01(t) }

// LerpUnclamped interpolates (or extrapolates) from a to b.
func LerpUnclamped(a, b, t float64) float64 { return a + (b-a)*t }

// InverseLerp returns where v lies between a and b as a fraction clamped to [0, 1].
func InverseLerp(a, b, v float64) float64 {
	if a == b {
		return 0
	}
	return Clamp01((v - a) / (b - a))
}

// Damper is a critically damped spring follower. The zero value is at rest.
type Damper struct {
	Velocity float64
}

// Step moves current toward target so that it arrives in roughly smoothTime
// seconds without overshooting, updating the damper's velocity.
func (d *Damper) Step(current, target, smoothTime, dt float64) float64 {
	if dt <= 0 {
		return current
	}
	smoothTime = math.Max(0.0001, smoothTime)
	omega := 2 / smoothTime
	x := omega * dt
	exp := 1 / (1 + x + 0.48*x*x + 0.235*x*x*x)

	change := current - target
	temp := (d.Velocity + omega*change) * dt
	d.Velocity = (d.Velocity - omega*temp) * exp
	out := target + (change+temp)*exp

	// Prevent overshooting the target.
	if (target-current > 0) == (out > target) {
		out = target
		d.Velocity = (out - target) / dt
	}
	return out
}

// Reset stops the damper.
func (d *Damper) Reset() { d.Velocity = 0 }
