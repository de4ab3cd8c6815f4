// Package vehicle defines the simulated car: its static definition, the live
// aggregate of powertrain, body, tracker and driver, and the snapshots the
// engine logs and other cars observe.
package vehicle

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cxd309/esprit-sim/internal/chassis"
	"github.com/cxd309/esprit-sim/internal/city"
	"github.com/cxd309/esprit-sim/internal/driver"
	"github.com/cxd309/esprit-sim/internal/logging"
	"github.com/cxd309/esprit-sim/internal/powertrain"
	"github.com/cxd309/esprit-sim/internal/sensing"
	"github.com/cxd309/esprit-sim/internal/traffic"
	"github.com/cxd309/esprit-sim/internal/units"
)

// Definition is the static description of a vehicle in a scenario.
type Definition struct {
	// ID identifies the vehicle in logs; a random UUID is assigned when empty.
	ID string `json:"id,omitempty"`
	// Car and Profile name entries in the scenario's car and driver tables.
	// Empty names use the built-in defaults.
	Car     string `json:"car,omitempty"`
	Profile string `json:"profile,omitempty"`

	Position     city.Coordinate `json:"position"`
	HeadingDeg   float64         `json:"heading_deg"` // counter-clockwise from east
	InitialSpeed float64         `json:"initial_speed,omitempty"`
	Controller   ControllerSpec  `json:"controller"`
}

// Vehicle is one car in the simulation.
type Vehicle struct {
	ID     string
	Model  *powertrain.Model
	Car    powertrain.State
	Body   chassis.Body
	Driver *driver.Driver

	layout  *city.Layout
	tracker *city.Tracker
	engine  powertrain.EngineState
}

// New builds a parked vehicle from its definition, then brings it up to its
// initial speed. dt is the physics tick the wheel-speed estimator is sized for.
func New(def Definition, m *powertrain.Model, p driver.Profile, tp traffic.Profile, layout *city.Layout, dt float64) (*Vehicle, error) {
	id := def.ID
	if id == "" {
		id = uuid.NewString()
	}
	ctrl, err := def.Controller.Build(tp)
	if err != nil {
		return nil, fmt.Errorf("vehicle %q: %w", id, err)
	}
	v := &Vehicle{
		ID:    id,
		Model: m,
		Car:   powertrain.NewStateWithEstimator(m.Spec.NewWheelSpeedEstimator(dt)),
		Body: chassis.Body{
			Position: def.Position.Vec(),
			Heading:  units.Rad(def.HeadingDeg),
		},
		Driver:  driver.New(p, m.Spec, ctrl),
		layout:  layout,
		tracker: city.NewTracker(layout),
	}
	if def.InitialSpeed != 0 {
		v.InitializeSpeed(def.InitialSpeed)
	}
	v.engine = v.Car.EngineState()
	v.Locate()
	return v, nil
}

// Spec returns the car's specification.
func (v *Vehicle) Spec() powertrain.CarSpecification { return v.Model.Spec }

// InitializeSpeed places the vehicle on the road already rolling at speed, in
// the highest gear that keeps the engine comfortably above the downshift point,
// with the driver resuming as if it had been driving all along.
func (v *Vehicle) InitializeSpeed(speed float64) {
	spec := v.Spec()
	gear := cruisingGear(spec, v.Driver.Profile(), speed)
	v.Body.Speed = speed
	v.Car.InitializeSpeed(spec, speed, gear)
	v.Driver.StateMachine().Resume(driver.Driving, gear, speed)
}

func cruisingGear(spec powertrain.CarSpecification, p driver.Profile, speed float64) powertrain.Gear {
	if speed < 0 {
		return powertrain.Reverse
	}
	axle := speed / spec.Chassis.WheelRadius * units.AngularSpeedToRPM
	floor := (p.DownshiftRPM + p.UpshiftRPMCloseToTarget) / 2
	for g := spec.TopGear(); g > powertrain.First; g-- {
		if axle*spec.TotalDriveRatio(g) >= floor {
			return g
		}
	}
	return powertrain.First
}

// Step advances the powertrain and body by one physics tick.
func (v *Vehicle) Step(dt float64) {
	spec := v.Spec()
	car, act := powertrain.Advance(v.Car, v.Model, v.Body.Readings(spec), dt)
	v.Car = car
	v.Body = chassis.Step(v.Body, spec, act, dt)

	state := car.EngineState()
	if v.engine == powertrain.EngineOn && state == powertrain.EngineOff && car.Ignition() == powertrain.IgnitionOn {
		logging.L().Warn("engine stalled",
			zap.String("vehicle", v.ID), zap.Stringer("gear", car.Gear), zap.Float64("speed", v.Body.Speed))
	}
	v.engine = state
}

// Locate updates and returns where the vehicle is on the street grid.
func (v *Vehicle) Locate() city.Location {
	return v.tracker.Update(v.ID, v.Body.Position, v.Body.Forward())
}

// Location returns the location found by the last Locate.
func (v *Vehicle) Location() city.Location { return v.tracker.Location() }

// Control runs one controller tick against the world as it stood at time t.
func (v *Vehicle) Control(t float64, world sensing.Snapshot, dt float64) {
	spec := v.Spec()
	s := driver.Sensors{
		VehicleID:   v.ID,
		Time:        t,
		Speed:       v.Car.Speed(spec),
		EngineRPM:   v.Car.EngineRPM(),
		Gear:        v.Car.Gear,
		EngineState: v.Car.EngineState(),
		Position:    v.Body.Position,
		Heading:     v.Body.Forward(),
		Length:      spec.Chassis.Length,
		Width:       spec.Chassis.Width,
		Location:    v.Locate(),
		Layout:      v.layout,
		World:       world,
	}
	v.Driver.Control(s, &v.Car, spec, dt)
}

// View returns what other vehicles can observe of this one.
func (v *Vehicle) View() sensing.VehicleView {
	a := v.Driver.Actuators()
	spec := v.Spec()
	return sensing.VehicleView{
		ID:         v.ID,
		Position:   v.Body.Position,
		Heading:    v.Body.Forward(),
		Speed:      v.Body.Speed,
		Length:     spec.Chassis.Length,
		Width:      spec.Chassis.Width,
		Intent:     a.Intent,
		WaitingFor: a.WaitingFor,
	}
}

// Dashboard is the read-only instrument panel of a car.
type Dashboard struct {
	Speed         float64                   `json:"speed"` // m/s
	SpeedMPH      float64                   `json:"speed_mph"`
	RPM           float64                   `json:"rpm"`
	Gear          string                    `json:"gear"`
	EngineState   powertrain.EngineState    `json:"engine_state"`
	Ignition      powertrain.IgnitionSwitch `json:"ignition"`
	TurnSignal    powertrain.TurnSignal     `json:"turn_signal"`
	SignalLampLit bool                      `json:"signal_lamp_lit"`
	SteeringWheel float64                   `json:"steering_wheel"`
	Accelerator   float64                   `json:"accelerator"`
	Brake         float64                   `json:"brake"`
	Clutch        float64                   `json:"clutch"`
}

// Dashboard returns the current instrument readings.
func (v *Vehicle) Dashboard() Dashboard {
	c := v.Car
	speed := c.Speed(v.Spec())
	return Dashboard{
		Speed:         speed,
		SpeedMPH:      units.ToMPH(math.Abs(speed)),
		RPM:           c.EngineRPM(),
		Gear:          c.Gear.String(),
		EngineState:   c.EngineState(),
		Ignition:      c.Ignition(),
		TurnSignal:    c.TurnSignal(),
		SignalLampLit: c.SignalLampLit(),
		SteeringWheel: c.SteeringWheel,
		Accelerator:   c.Accelerator,
		Brake:         c.Brake,
		Clutch:        c.Clutch,
	}
}

// Log is a snapshot of a vehicle for the run log.
type Log struct {
	ID          string          `json:"id"`
	Position    city.Coordinate `json:"position"`
	HeadingDeg  float64         `json:"heading_deg"`
	Dashboard   Dashboard       `json:"dashboard"`
	DriverState driver.State    `json:"driver_state"`
	TargetSpeed float64         `json:"target_speed"`
	Street      string          `json:"street,omitempty"`
	Crossing    string          `json:"intersection,omitempty"`
	Lane        int             `json:"lane"`
	Intent      city.Turn       `json:"intent,omitempty"`
	WaitingFor  string          `json:"waiting_for,omitempty"`
}

// GetLog returns a snapshot of the vehicle's current state.
func (v *Vehicle) GetLog() Log {
	a := v.Driver.Actuators()
	loc := v.Location()
	l := Log{
		ID:          v.ID,
		Position:    city.Coordinate{X: v.Body.Position.X, Y: v.Body.Position.Y},
		HeadingDeg:  units.Deg(v.Body.Heading),
		Dashboard:   v.Dashboard(),
		DriverState: v.Driver.StateMachine().State(),
		TargetSpeed: a.TargetSpeed,
		Lane:        loc.Lane,
		Intent:      a.Intent,
		WaitingFor:  a.WaitingFor,
	}
	if loc.Street != nil {
		l.Street = loc.Street.Name
	}
	if loc.Intersection != nil {
		l.Crossing = loc.Intersection.Location.String()
	}
	return l
}
