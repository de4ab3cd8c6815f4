package kinematics

import "math"

// ConstantDeceleration implements BrakingModel with a fixed comfortable
// deceleration rate.
type ConstantDeceleration struct {
	ADcc float64 `json:"a_dcc" yaml:"a_dcc"` // braking deceleration, m/s² (positive)
}

func (c ConstantDeceleration) BrakingDistance(v float64) float64 {
	if c.ADcc <= 0 {
		return math.Inf(1)
	}
	return (v * v) / (2 * c.ADcc)
}

func (c ConstantDeceleration) BrakingDistanceTo(v, targetV float64) float64 {
	if c.ADcc <= 0 {
		return math.Inf(1)
	}
	if v <= targetV {
		return 0
	}
	return (v*v - targetV*targetV) / (2 * c.ADcc)
}

func (c ConstantDeceleration) VelocityAfterBraking(v0, dist float64) float64 {
	if c.ADcc <= 0 {
		return v0
	}
	return math.Sqrt(math.Max(0, v0*v0-2*c.ADcc*dist))
}

func (c ConstantDeceleration) SpeedAllowedAt(dist, targetV float64) float64 {
	if c.ADcc <= 0 {
		return targetV
	}
	return math.Sqrt(targetV*targetV + 2*c.ADcc*math.Max(0, dist))
}
