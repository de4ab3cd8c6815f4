package powertrain

import (
	"math"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/cxd309/esprit-sim/internal/kinematics"
	"github.com/cxd309/esprit-sim/internal/units"
)

// Wheel indexes the four wheels in Readings and Actuation.
type Wheel int

const (
	FrontLeft Wheel = iota
	FrontRight
	RearLeft
	RearRight
)

// Readings is what the chassis reports to the powertrain at the start of a tick.
type Readings struct {
	WheelRPM [4]float64 // raw signed rotation rate per wheel
	Velocity r3.Vec     // body velocity, m/s
	Up       r3.Vec     // body up vector
}

// Actuation is what the powertrain asks the chassis to apply this tick.
type Actuation struct {
	MotorTorque   [4]float64 // N·m per wheel, positive drives forward
	BrakeTorque   [4]float64 // N·m per wheel, always opposing rotation
	SteerAngleDeg float64    // front road-wheel angle, positive steers right
	Downforce     r3.Vec     // N
	Drag          r3.Vec     // N
}

// Advance integrates one physics tick of length dt and returns the next state
// together with the forces and torques for the chassis. The input state is not
// modified.
//
// The order is fixed: wheel sensing, steering, gearshift legality, engine and
// drivetrain, brakes, aerodynamics. Each step reads what the previous one wrote.
func Advance(s State, m *Model, in Readings, dt float64) (State, Actuation) {
	spec := m.Spec
	next := s
	if s.wheels != nil {
		next.wheels = s.wheels.Clone()
	}
	var out Actuation

	next.senseWheels(spec, in)
	out.SteerAngleDeg = next.steer(spec, dt)
	next.enforceGearLegality()
	wheelTorque := next.runEngine(m, dt)

	if spec.Drivetrain.DrivesFront() {
		out.MotorTorque[FrontLeft] = wheelTorque
		out.MotorTorque[FrontRight] = wheelTorque
	}
	if spec.Drivetrain.DrivesRear() {
		out.MotorTorque[RearLeft] = wheelTorque
		out.MotorTorque[RearRight] = wheelTorque
	}

	brake := spec.MaxBrakingTorque * kinematics.Clamp01(next.Brake)
	out.BrakeTorque = [4]float64{brake, brake, brake, brake}

	out.Downforce, out.Drag = aerodynamics(spec, in)

	if next.turnSignal != SignalOff && next.turnSignal != "" {
		next.signalTime = math.Mod(next.signalTime+dt, SignalBlinkPeriod)
	}
	return next, out
}

// senseWheels averages the driven wheels, smooths the result and stores the
// drive-axle angular speed.
func (s *State) senseWheels(spec CarSpecification, in Readings) {
	var sum float64
	if spec.Drivetrain.DrivesFront() {
		sum += in.WheelRPM[FrontLeft] + in.WheelRPM[FrontRight]
	}
	if spec.Drivetrain.DrivesRear() {
		sum += in.WheelRPM[RearLeft] + in.WheelRPM[RearRight]
	}
	rpm := sum / float64(spec.Drivetrain.DrivenWheels())
	if s.wheels != nil {
		rpm = s.wheels.Push(rpm)
	}
	s.DriveAxleAngularSpeed = rpm * units.RPMToAngularSpeed
}

// steer slews the road wheels toward the steering wheel's commanded angle.
func (s *State) steer(spec CarSpecification, dt float64) float64 {
	target := lo.Clamp(s.SteeringWheel, -1, 1) * spec.MaxSteeringAngleDeg
	s.SteerAngleDeg = kinematics.MoveTowards(s.SteerAngleDeg, target, spec.MaxSteeringRateDeg*dt)
	return s.SteerAngleDeg
}

// enforceGearLegality drops to neutral when the selected gear would reverse the
// direction of travel through the gearbox.
func (s *State) enforceGearLegality() {
	if s.Gear == Reverse && s.DriveAxleAngularSpeed > 0 {
		s.Gear = Neutral
	}
	if s.Gear > Neutral && s.DriveAxleAngularSpeed < 0 {
		s.Gear = Neutral
	}
}

// runEngine integrates the engine speed and returns the motor torque for each
// driven wheel.
func (s *State) runEngine(m *Model, dt float64) float64 {
	spec := m.Spec
	ratio := spec.TotalDriveRatio(s.Gear)
	coupling := 1 - kinematics.Clamp01(s.Clutch)
	if s.Gear == Neutral {
		coupling = 0
	}

	var torque float64
	if s.engineState == EngineStarting {
		torque += spec.StarterTorque
	}

	// Load from the wheels pulls the engine toward the speed the gear demands.
	if ratio != 0 {
		diff := s.DriveAxleAngularSpeed*ratio - s.EngineAngularSpeed
		torque += diff * spec.WheelsToEngineEqualization * coupling / math.Abs(ratio)
	}

	rpm := s.EngineRPM()
	var intake float64
	if s.engineState != EngineOff {
		intake = AirFuelIntake(spec, rpm, s.Accelerator)
		torque += m.MaxTorque(rpm) * intake
	}
	torque += -s.EngineAngularSpeed * spec.EngineBrakingCoefficient * (1 - intake)

	s.EngineAngularSpeed += torque / spec.EngineAngularMass * dt
	if s.EngineAngularSpeed < 0 {
		s.EngineAngularSpeed = 0
		s.engineState = EngineOff
	}
	if s.engineState == EngineStarting && s.EngineRPM() > spec.StarterStopRPM {
		s.engineState = EngineOn
	}

	if ratio == 0 {
		return 0
	}
	diff := s.EngineAngularSpeed/ratio - s.DriveAxleAngularSpeed
	total := diff * spec.EngineToWheelsEqualization * coupling * math.Abs(ratio)
	return total / float64(spec.Drivetrain.DrivenWheels())
}

// AirFuelIntake blends the idle air control floor and the rev limiter ceiling
// by accelerator position. Both ramps fall from 1 to 0 with rising rpm.
func AirFuelIntake(spec CarSpecification, rpm, accelerator float64) float64 {
	floor := kinematics.Lerp(1, 0, rpm/spec.IdleAirControlStopRPM)
	span := spec.RevLimiterStopRPM - spec.RevLimiterStartRPM
	ceiling := kinematics.Lerp(1, 0, (rpm-spec.RevLimiterStartRPM)/span)
	return kinematics.Lerp(floor, ceiling, accelerator)
}

func aerodynamics(spec CarSpecification, in Readings) (downforce, drag r3.Vec) {
	speedSq := r3.Dot(in.Velocity, in.Velocity)
	q := 0.5 * units.AirDensity * speedSq
	up := in.Up
	if r3.Norm(up) == 0 {
		up = r3.Vec{Z: 1}
	}
	downforce = r3.Scale(-spec.DownforceCoefficient*q, r3.Unit(up))
	if speedSq > 0 {
		drag = r3.Scale(-spec.DragCoefficient*spec.FrontalArea*q, r3.Unit(in.Velocity))
	}
	return downforce, drag
}
