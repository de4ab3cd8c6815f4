package driver

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/cxd309/esprit-sim/internal/city"
	"github.com/cxd309/esprit-sim/internal/powertrain"
	"github.com/cxd309/esprit-sim/internal/sensing"
)

// Sensors is what a controller observes at the start of its tick.
type Sensors struct {
	VehicleID string
	Time      float64

	Speed       float64
	EngineRPM   float64
	Gear        powertrain.Gear
	EngineState powertrain.EngineState

	Position r2.Vec
	Heading  r2.Vec // unit
	Length   float64
	Width    float64

	Location city.Location
	Layout   *city.Layout
	World    sensing.Snapshot
}

// Front returns the centre of the car's front bumper.
func (s Sensors) Front() r2.Vec { return r2.Add(s.Position, r2.Scale(s.Length/2, s.Heading)) }

// Actuators are the targets a controller hands to the driver.
type Actuators struct {
	TargetSpeed     float64 // m/s, signed
	TargetDirection r2.Vec  // unit; zero keeps the current heading
	// TargetSideways is the lane position to hold, measured like
	// city.Location.Sideways. Only used when HoldLane is set.
	TargetSideways float64
	HoldLane       bool
	TurnSignal     powertrain.TurnSignal
	// Intent is the maneuver planned at the next intersection.
	Intent city.Turn
	// WaitingFor is the vehicle this one is yielding to.
	WaitingFor string
}

// Controller decides where the car should go. Implementations keep their own
// state between ticks; prev is what they returned last time.
type Controller interface {
	Act(s Sensors, prev Actuators, dt float64) Actuators
}

// Driver composes a Controller with the pedal and steering controllers that
// carry out its decisions on one car.
type Driver struct {
	profile    Profile
	controller Controller
	machine    *StateMachine
	steering   *Steering
	actuators  Actuators
}

// New returns a parked driver with the given profile and controller.
func New(p Profile, spec powertrain.CarSpecification, c Controller) *Driver {
	return &Driver{
		profile:    p,
		controller: c,
		machine:    NewStateMachine(p),
		steering:   NewSteering(p, spec.MaxSteeringAngleDeg),
		actuators:  Actuators{TurnSignal: powertrain.SignalOff},
	}
}

// Profile returns the driver's tuning.
func (d *Driver) Profile() Profile { return d.profile }

// Controller returns the decision-making controller.
func (d *Driver) Controller() Controller { return d.controller }

// StateMachine returns the pedal and gearbox controller.
func (d *Driver) StateMachine() *StateMachine { return d.machine }

// Steering returns the steering controller.
func (d *Driver) Steering() *Steering { return d.steering }

// Actuators returns the targets chosen on the last tick.
func (d *Driver) Actuators() Actuators { return d.actuators }

// Control runs one controller tick and writes the driver's inputs into car.
func (d *Driver) Control(s Sensors, car *powertrain.State, spec powertrain.CarSpecification, dt float64) {
	if d.controller != nil {
		d.actuators = d.controller.Act(s, d.actuators, dt)
	}
	a := d.actuators
	d.machine.Update(a.TargetSpeed, car, spec, dt)

	in := SteeringInput{
		Heading:         s.Heading,
		Speed:           s.Speed,
		TargetDirection: a.TargetDirection,
	}
	if s.Location.Resolved() {
		in.LaneDirection = s.Location.Direction.Vector()
		if a.HoldLane && s.Location.Street != nil {
			in.HoldLane = true
			in.LateralError = a.TargetSideways - s.Location.Sideways
		}
	}
	car.SteeringWheel = d.steering.Update(in, dt)

	signal := a.TurnSignal
	if signal == "" {
		signal = powertrain.SignalOff
	}
	car.SetTurnSignal(signal)
}
