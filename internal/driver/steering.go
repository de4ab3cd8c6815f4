package driver

import (
	"math"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/cxd309/esprit-sim/internal/kinematics"
	"github.com/cxd309/esprit-sim/internal/units"
)

// SteeringState is whether the driver is holding a lane or making a turn.
type SteeringState string

const (
	DrivingStraight SteeringState = "driving_straight"
	Turning         SteeringState = "turning"
)

// SteeringInput is what the steering controller needs each tick.
type SteeringInput struct {
	Heading r2.Vec  // unit forward vector of the car
	Speed   float64 // signed
	// TargetDirection is where the driver wants to travel.
	TargetDirection r2.Vec
	// LaneDirection is the street-aligned direction of travel; zero off-street.
	LaneDirection r2.Vec
	// LateralError is how far the lane target lies to the right of the car.
	// Only used when HoldLane is set.
	LateralError float64
	HoldLane     bool
}

// Steering turns a target direction and lane position into a steering-wheel
// position in [-1, 1], positive to the right.
type Steering struct {
	profile          Profile
	maxSteeringAngle float64 // degrees, from the car
	state            SteeringState
	wheel            float64
}

// NewSteering returns a steering controller for a car whose road wheels turn at
// most maxSteeringAngleDeg.
func NewSteering(p Profile, maxSteeringAngleDeg float64) *Steering {
	return &Steering{profile: p, maxSteeringAngle: maxSteeringAngleDeg, state: DrivingStraight}
}

// State returns the current steering state.
func (s *Steering) State() SteeringState { return s.state }

// SpeedScaled shrinks x geometrically with speed, halving it every halvingSpeed.
func SpeedScaled(x, speed, halvingSpeed float64) float64 {
	return x * math.Pow(0.5, math.Abs(speed)/halvingSpeed)
}

// ClockwiseAngle returns the signed angle in degrees that turns from onto to,
// positive clockwise seen from above.
func ClockwiseAngle(from, to r2.Vec) float64 {
	return -units.Deg(math.Atan2(from.X*to.Y-from.Y*to.X, r2.Dot(from, to)))
}

// Update runs one tick and returns the new steering-wheel position.
func (s *Steering) Update(in SteeringInput, dt float64) float64 {
	p := s.profile
	target := in.TargetDirection
	if r2.Norm(target) == 0 {
		target = in.Heading
	}
	onLane := r2.Norm(in.LaneDirection) > 0

	diverges := !onLane || math.Abs(ClockwiseAngle(in.LaneDirection, target)) > p.DirectionToleranceDeg
	tolerance := SpeedScaled(p.StraightHeadingToleranceDeg, in.Speed, p.SteeringLimitHalvingSpeed)
	switch s.state {
	case DrivingStraight:
		if diverges {
			s.state = Turning
		}
	case Turning:
		if !diverges && math.Abs(ClockwiseAngle(in.Heading, target)) < tolerance {
			s.state = DrivingStraight
		}
	}

	var angle float64
	if s.state == Turning {
		angle = ClockwiseAngle(in.Heading, target)
	} else {
		desired := in.LaneDirection
		if in.HoldLane {
			limit := SpeedScaled(p.MaxStraightSteeringAngleDeg, in.Speed, p.SteeringLimitHalvingSpeed)
			offset := s.laneOffset(in.LateralError, in.Speed, limit)
			desired = r2.Rotate(desired, -units.Rad(offset), r2.Vec{})
		}
		angle = lo.Clamp(ClockwiseAngle(in.Heading, desired), -s.maxSteeringAngle, s.maxSteeringAngle)
	}
	if in.Speed < 0 {
		// Reversing, the rear leads: steer the other way.
		angle = -angle
	}

	goal := lo.Clamp(angle/s.maxSteeringAngle, -1, 1)
	s.wheel = kinematics.MoveTowards(s.wheel, goal, p.SteeringSpeed*dt)
	return s.wheel
}

// laneOffset converts the lateral position error into a heading offset in
// degrees, positive to the right, bounded by limit.
func (s *Steering) laneOffset(lateralError, speed, limit float64) float64 {
	lateralSpeed := kinematics.EqualizationSpeed(lateralError, s.profile.LateralEqualizationDuration)
	v := math.Max(math.Abs(speed), 1)
	offset := units.Deg(math.Asin(lo.Clamp(lateralSpeed/v, -1, 1)))
	if speed < 0 {
		offset = -offset
	}
	return lo.Clamp(offset, -limit, limit)
}
