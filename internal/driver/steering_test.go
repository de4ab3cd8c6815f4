package driver

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/cxd309/esprit-sim/internal/chassis"
	"github.com/cxd309/esprit-sim/internal/powertrain"
)

var (
	north = r2.Vec{Y: 1}
	east  = r2.Vec{X: 1}
)

func TestSpeedScaled(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 20.0, SpeedScaled(20, 0, 10))
	assert.InDelta(t, 10, SpeedScaled(20, 10, 10), 1e-12)
	assert.InDelta(t, 5, SpeedScaled(20, -20, 10), 1e-12)
}

func TestClockwiseAngle(t *testing.T) {
	t.Parallel()
	assert.InDelta(t, 90, ClockwiseAngle(north, east), 1e-9)
	assert.InDelta(t, -90, ClockwiseAngle(east, north), 1e-9)
	assert.InDelta(t, 0, ClockwiseAngle(east, east), 1e-9)
}

func TestSteeringCorrectsTowardLane(t *testing.T) {
	t.Parallel()
	s := NewSteering(DefaultProfile(), 35)
	// Lane target is to the right of the car.
	w := s.Update(SteeringInput{Heading: north, Speed: 10, TargetDirection: north, LaneDirection: north, LateralError: 2, HoldLane: true}, dt)
	assert.Equal(t, DrivingStraight, s.State())
	assert.Greater(t, w, 0.0)

	s = NewSteering(DefaultProfile(), 35)
	w = s.Update(SteeringInput{Heading: north, Speed: 10, TargetDirection: north, LaneDirection: north, LateralError: -2, HoldLane: true}, dt)
	assert.Less(t, w, 0.0)
}

func TestSteeringStraightLimitShrinksWithSpeed(t *testing.T) {
	t.Parallel()
	p := DefaultProfile()
	slow := NewSteering(p, 35)
	fast := NewSteering(p, 35)
	for range 100 {
		slow.Update(SteeringInput{Heading: north, Speed: 2, LaneDirection: north, TargetDirection: north, LateralError: 50, HoldLane: true}, dt)
		fast.Update(SteeringInput{Heading: north, Speed: 30, LaneDirection: north, TargetDirection: north, LateralError: 50, HoldLane: true}, dt)
	}
	assert.InDelta(t, SpeedScaled(p.MaxStraightSteeringAngleDeg, 2, p.SteeringLimitHalvingSpeed)/35, slow.wheel, 1e-9)
	assert.InDelta(t, SpeedScaled(p.MaxStraightSteeringAngleDeg, 30, p.SteeringLimitHalvingSpeed)/35, fast.wheel, 1e-9)
}

func TestSteeringTurnsAndStraightens(t *testing.T) {
	t.Parallel()
	s := NewSteering(DefaultProfile(), 35)
	in := SteeringInput{Heading: north, Speed: 5, TargetDirection: east, LaneDirection: north}
	var w float64
	for range 100 {
		w = s.Update(in, dt)
	}
	assert.Equal(t, Turning, s.State())
	assert.Equal(t, 1.0, w, "full lock is allowed mid-turn")

	// Turned onto the new street.
	in = SteeringInput{Heading: r2.Vec{X: 1, Y: 0.01}, Speed: 5, TargetDirection: east, LaneDirection: east}
	s.Update(in, dt)
	assert.Equal(t, DrivingStraight, s.State())
}

func TestSteeringMirrorsInReverse(t *testing.T) {
	t.Parallel()
	fwd := NewSteering(DefaultProfile(), 35)
	back := NewSteering(DefaultProfile(), 35)
	in := SteeringInput{Heading: north, Speed: 3, TargetDirection: east, LaneDirection: north}
	a := fwd.Update(in, dt)
	in.Speed = -3
	b := back.Update(in, dt)
	assert.InDelta(t, -a, b, 1e-12)
}

func TestSteeringHoldsLaneOnTheRoad(t *testing.T) {
	t.Parallel()
	spec := powertrain.DefaultSpecification()
	s := NewSteering(DefaultProfile(), spec.MaxSteeringAngleDeg)
	// Driving east, 2 m north of the lane centre at y=0.
	body := chassis.Body{Position: r2.Vec{Y: 2}, Speed: 10}
	for range int(10 / dt) {
		// Sideways grows to the right, which is south when heading east.
		lateral := body.Position.Y
		w := s.Update(SteeringInput{
			Heading:         body.Forward(),
			Speed:           body.Speed,
			TargetDirection: east,
			LaneDirection:   east,
			LateralError:    lateral,
			HoldLane:        true,
		}, dt)
		body = chassis.Step(body, spec, powertrain.Actuation{SteerAngleDeg: w * spec.MaxSteeringAngleDeg}, dt)
		body.Speed = 10
	}
	assert.InDelta(t, 0, body.Position.Y, 0.2)
	assert.InDelta(t, 0, body.Heading, 0.05)
	assert.Equal(t, DrivingStraight, s.State())
	assert.False(t, math.IsNaN(body.Position.X))
}
