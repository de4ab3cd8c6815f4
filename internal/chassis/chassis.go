// Package chassis integrates the car body the powertrain pushes against.
//
// Longitudinally the body is a point mass rolling without wheel slip; laterally it
// follows a kinematic bicycle model. Headings are radians counter-clockwise from
// east, while steering angles are positive to the right.
package chassis

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/cxd309/esprit-sim/internal/powertrain"
	"github.com/cxd309/esprit-sim/internal/units"
)

// Body is the planar state of a car body.
type Body struct {
	Position r2.Vec  `json:"position"`
	Heading  float64 `json:"heading"` // rad, counter-clockwise from +X
	Speed    float64 `json:"speed"`   // m/s along the heading, negative when reversing
}

// Forward returns the unit heading vector.
func (b Body) Forward() r2.Vec {
	return r2.Vec{X: math.Cos(b.Heading), Y: math.Sin(b.Heading)}
}

// Velocity returns the body velocity in the plane.
func (b Body) Velocity() r2.Vec { return r2.Scale(b.Speed, b.Forward()) }

// Readings reports the wheel rates and body vectors the powertrain senses.
func (b Body) Readings(spec powertrain.CarSpecification) powertrain.Readings {
	rpm := b.Speed / spec.Chassis.WheelRadius * units.AngularSpeedToRPM
	v := b.Velocity()
	return powertrain.Readings{
		WheelRPM: [4]float64{rpm, rpm, rpm, rpm},
		Velocity: r3.Vec{X: v.X, Y: v.Y},
		Up:       r3.Vec{Z: 1},
	}
}

// Step advances the body by dt under the powertrain's actuation.
func Step(b Body, spec powertrain.CarSpecification, a powertrain.Actuation, dt float64) Body {
	c := spec.Chassis
	r := c.WheelRadius
	effectiveMass := c.Mass + 4*c.WheelAngularMass/(r*r)

	var drive, brake float64
	for i := range a.MotorTorque {
		drive += a.MotorTorque[i] / r
		brake += math.Abs(a.BrakeTorque[i]) / r
	}
	forward := b.Forward()
	aero := r2.Dot(r2.Vec{X: a.Drag.X, Y: a.Drag.Y}, forward)
	normal := c.Mass*units.Gravity - a.Downforce.Z
	resist := brake + c.RollingResistance*normal

	next := b
	if b.Speed == 0 {
		// Static friction holds the car until the drive overcomes brakes and rolling resistance.
		if math.Abs(drive) <= resist {
			next.Speed = 0
		} else {
			f := drive - math.Copysign(resist, drive)
			next.Speed = f / effectiveMass * dt
		}
	} else {
		f := drive + aero - math.Copysign(resist, b.Speed)
		next.Speed = b.Speed + f/effectiveMass*dt
		// Brakes and rolling resistance stop the car; they never reverse it.
		if next.Speed*b.Speed < 0 && math.Abs(drive) <= resist {
			next.Speed = 0
		}
	}

	steer := units.Rad(a.SteerAngleDeg)
	yawRate := -next.Speed * math.Tan(steer) / c.Wheelbase
	next.Heading = normalizeAngle(b.Heading + yawRate*dt)
	mid := r2.Vec{X: math.Cos(next.Heading) + forward.X, Y: math.Sin(next.Heading) + forward.Y}
	if n := r2.Norm(mid); n > 0 {
		mid = r2.Scale(1/n, mid)
	}
	next.Position = r2.Add(b.Position, r2.Scale(next.Speed*dt, mid))
	return next
}

func normalizeAngle(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}
