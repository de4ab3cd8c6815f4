package powertrain

import (
	"strconv"

	"github.com/cxd309/esprit-sim/internal/units"
	"github.com/cxd309/esprit-sim/internal/wheelspeed"
)

// Gear is a gearshift position: Reverse, Neutral or a forward gear 1..N.
type Gear int

const (
	Reverse Gear = -1
	Neutral Gear = 0
	First   Gear = 1
)

func (g Gear) String() string {
	switch {
	case g == Reverse:
		return "R"
	case g == Neutral:
		return "N"
	}
	return strconv.Itoa(int(g))
}

// IgnitionSwitch is the key position.
type IgnitionSwitch string

const (
	IgnitionLock      IgnitionSwitch = "lock"
	IgnitionAccessory IgnitionSwitch = "accessory"
	IgnitionOn        IgnitionSwitch = "on"
	IgnitionStart     IgnitionSwitch = "start"
)

// EngineState describes whether the engine is running.
type EngineState string

const (
	EngineOff      EngineState = "off"
	EngineStarting EngineState = "starting"
	EngineOn       EngineState = "on"
)

// TurnSignal is the indicator stalk position.
type TurnSignal string

const (
	SignalOff   TurnSignal = "off"
	SignalLeft  TurnSignal = "left"
	SignalRight TurnSignal = "right"
)

// SignalBlinkPeriod is the full on+off cycle of the indicator lamp in seconds.
const SignalBlinkPeriod = 0.8

// State is the mutable state of one car. The physics fields are written only by
// Advance; the pedal, gear, steering, signal and ignition fields are the driver's.
type State struct {
	EngineAngularSpeed    float64 // rad/s, never negative
	DriveAxleAngularSpeed float64 // rad/s, sign is direction of travel

	Gear          Gear
	Accelerator   float64 // [0,1]
	Brake         float64 // [0,1]
	Clutch        float64 // [0,1], 1 = fully pressed
	SteeringWheel float64 // [-1,1], positive steers right
	SteerAngleDeg float64 // road-wheel angle reached by the steering rack

	turnSignal  TurnSignal
	signalTime  float64
	ignition    IgnitionSwitch
	engineState EngineState
	wheels      wheelspeed.Estimator
}

// NewState returns a parked car whose wheel-speed estimator averages over one
// second of ticks of length dt.
func NewState(dt float64) State {
	return NewStateWithEstimator(wheelspeed.NewMovingAverage(wheelspeed.DefaultWindow, dt))
}

// NewStateWithEstimator returns a parked car using the given wheel-speed estimator.
func NewStateWithEstimator(est wheelspeed.Estimator) State {
	return State{
		turnSignal:  SignalOff,
		ignition:    IgnitionLock,
		engineState: EngineOff,
		wheels:      est,
	}
}

// Ignition returns the key position.
func (s State) Ignition() IgnitionSwitch { return s.ignition }

// EngineState returns whether the engine is off, cranking or running.
func (s State) EngineState() EngineState { return s.engineState }

// SetIgnition turns the key. Start cranks a stopped engine; Lock and Accessory
// cut it immediately. Writing the current position again changes nothing.
func (s *State) SetIgnition(pos IgnitionSwitch) {
	if s.ignition == pos {
		return
	}
	s.ignition = pos
	if pos == IgnitionStart && s.engineState == EngineOff {
		s.engineState = EngineStarting
	}
	if pos == IgnitionLock || pos == IgnitionAccessory {
		s.engineState = EngineOff
	}
}

// TurnSignal returns the indicator stalk position.
func (s State) TurnSignal() TurnSignal { return s.turnSignal }

// SetTurnSignal moves the indicator stalk. The lamp restarts its cycle lit.
func (s *State) SetTurnSignal(sig TurnSignal) {
	if s.turnSignal == sig {
		return
	}
	s.turnSignal = sig
	s.signalTime = 0
}

// SignalLampLit reports whether the active indicator lamp is lit this tick.
func (s State) SignalLampLit() bool {
	if s.turnSignal == SignalOff || s.turnSignal == "" {
		return false
	}
	return s.signalTime < SignalBlinkPeriod/2
}

// EngineRPM returns the engine speed in revolutions per minute.
func (s State) EngineRPM() float64 { return s.EngineAngularSpeed * units.AngularSpeedToRPM }

// Speed returns the signed road speed implied by the smoothed drive-axle speed.
func (s State) Speed(spec CarSpecification) float64 {
	return s.DriveAxleAngularSpeed * spec.Chassis.WheelRadius
}

// InitializeSpeed places the car already rolling at speed in gear with the
// engine running, as if it had been driving for a while.
func (s *State) InitializeSpeed(spec CarSpecification, speed float64, gear Gear) {
	s.Gear = gear
	s.DriveAxleAngularSpeed = speed / spec.Chassis.WheelRadius
	if s.wheels != nil {
		s.wheels.Fill(s.DriveAxleAngularSpeed * units.AngularSpeedToRPM)
	}
	idle := 0.7 * spec.IdleAirControlStopRPM * units.RPMToAngularSpeed
	s.EngineAngularSpeed = max(idle, s.DriveAxleAngularSpeed*spec.TotalDriveRatio(gear))
	s.Clutch = 0
	s.Brake = 0
	s.ignition = IgnitionOn
	s.engineState = EngineOn
}
