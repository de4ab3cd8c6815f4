package driver

import (
	"math"

	"github.com/cxd309/esprit-sim/internal/kinematics"
	"github.com/cxd309/esprit-sim/internal/powertrain"
)

// State is what the driver is doing with the pedals and gearbox.
type State string

const (
	Parked    State = "parked"
	Starting  State = "starting"
	Idling    State = "idling"
	MovingOff State = "moving_off"
	Driving   State = "driving"
	Shifting  State = "shifting"
	Stopping  State = "stopping"
)

// StateMachine works the ignition, pedals and gearshift to track a signed target
// speed. Negative targets mean reverse; zero means come to rest.
type StateMachine struct {
	profile Profile

	state        State
	desiredGear  powertrain.Gear
	idlingTime   float64
	shiftingTime float64
	prevSpeed    float64
}

// NewStateMachine returns a parked driver.
func NewStateMachine(p Profile) *StateMachine {
	return &StateMachine{profile: p, state: Parked}
}

// State returns the current state.
func (m *StateMachine) State() State { return m.state }

// DesiredGear returns the gear the driver is working toward.
func (m *StateMachine) DesiredGear() powertrain.Gear { return m.desiredGear }

// Resume puts the driver into state with the car already in its current gear
// and moving at speed, as when a car is placed on the road mid-drive.
func (m *StateMachine) Resume(state State, gear powertrain.Gear, speed float64) {
	m.state = state
	m.desiredGear = gear
	m.prevSpeed = speed
	m.idlingTime = 0
	m.shiftingTime = 0
	if gear != powertrain.Neutral {
		m.shiftingTime = m.profile.ShiftingDuration
	}
}

// Update runs one controller tick. The order is fixed: desired gear, state,
// ignition, accelerator, clutch, brake, gearshift.
func (m *StateMachine) Update(target float64, car *powertrain.State, spec powertrain.CarSpecification, dt float64) {
	if dt <= 0 {
		return
	}
	speed := car.Speed(spec)
	m.updateDesiredGear(target, speed, car, spec)
	m.updateState(target, speed, car, dt)
	m.updateIgnition(car)
	m.updateAccelerator(target, speed, car, dt)
	m.updateClutch(car, dt)
	m.updateBrake(target, speed, car, dt)
	m.updateGearshift(car, dt)
}

// opposes reports whether the car is moving against the target direction.
func opposes(target, speed float64) bool { return target*speed < 0 }

func (m *StateMachine) updateDesiredGear(target, speed float64, car *powertrain.State, spec powertrain.CarSpecification) {
	p := m.profile
	switch {
	case target == 0:
		m.desiredGear = powertrain.Neutral
		return
	case target < 0:
		m.desiredGear = powertrain.Reverse
		return
	}

	if m.state == MovingOff || m.state == Shifting {
		// Frozen mid-shift, except that a forward target never aims for
		// reverse or neutral.
		if m.desiredGear <= powertrain.Neutral {
			m.desiredGear = powertrain.First
		}
		return
	}

	gear := car.Gear
	if gear <= powertrain.Neutral {
		m.desiredGear = powertrain.First
		return
	}
	m.desiredGear = gear

	rpm := car.EngineRPM()
	upshift := p.UpshiftRPM
	if math.Abs(target-speed) < p.CloseSpeedDifference {
		upshift = p.UpshiftRPMCloseToTarget
	}
	if target > speed && rpm > upshift && gear < spec.TopGear() {
		m.desiredGear = gear + 1
	}
	if rpm < p.DownshiftRPM && gear > powertrain.First {
		m.desiredGear = gear - 1
	}
}

func (m *StateMachine) updateState(target, speed float64, car *powertrain.State, dt float64) {
	switch m.state {
	case Parked:
		if target != 0 {
			m.state = Starting
		}

	case Starting:
		if car.EngineState() == powertrain.EngineOn {
			m.state = Idling
		}

	case Idling:
		if target != 0 {
			m.state = MovingOff
		}
		if speed == 0 && target == 0 {
			m.idlingTime += dt
			if m.idlingTime > m.profile.MaxIdlingDuration {
				m.state = Parked
			}
		}
		if m.state != Idling {
			m.idlingTime = 0
		}

	case MovingOff, Shifting:
		if car.Clutch == 0 && car.Gear == m.desiredGear {
			m.state = Driving
		}
		if target == 0 || opposes(target, speed) {
			m.state = Stopping
		}

	case Driving:
		if car.Gear != m.desiredGear {
			m.state = Shifting
		}
		if target == 0 || opposes(target, speed) {
			m.state = Stopping
		}

	case Stopping:
		if target != 0 && !opposes(target, speed) {
			m.state = Shifting
		}
		if speed == 0 {
			m.state = Idling
		}
	}
}

func (m *StateMachine) updateIgnition(car *powertrain.State) {
	switch m.state {
	case Starting:
		car.SetIgnition(powertrain.IgnitionStart)
	case Parked:
		car.SetIgnition(powertrain.IgnitionLock)
	default:
		car.SetIgnition(powertrain.IgnitionOn)
	}
}

func (m *StateMachine) updateAccelerator(target, speed float64, car *powertrain.State, dt float64) {
	p := m.profile
	switch m.state {
	case Parked, Idling, Starting, Stopping:
		car.Accelerator = kinematics.MoveTowards(car.Accelerator, 0, p.NormalPedalSpeed*dt)

	case MovingOff, Shifting:
		goal := 0.0
		if car.Gear == m.desiredGear {
			goal = 1
		}
		car.Accelerator = kinematics.MoveTowards(car.Accelerator, goal, p.ShiftingPedalSpeed*dt)

	case Driving:
		// Aim for an acceleration that falls linearly to zero as the speed
		// error closes, then nudge the pedal by how far off we are.
		absSpeed := math.Abs(speed)
		targetAcceleration := kinematics.EqualizationAcceleration(math.Abs(target)-absSpeed, p.SpeedEqualizationDuration)
		acceleration := (absSpeed - math.Abs(m.prevSpeed)) / dt
		change := (targetAcceleration - acceleration) * p.AcceleratorChangeRate * dt
		goal := kinematics.Clamp01(car.Accelerator + change)
		car.Accelerator = kinematics.MoveTowards(car.Accelerator, goal, p.NormalPedalSpeed*dt)
	}
	m.prevSpeed = speed
}

func (m *StateMachine) updateClutch(car *powertrain.State, dt float64) {
	p := m.profile
	switch m.state {
	case MovingOff, Shifting:
		if car.Gear == m.desiredGear {
			rate := p.ShiftingPedalSpeed
			if m.state == MovingOff {
				rate = p.MovingOffPedalSpeed
			}
			car.Clutch = kinematics.MoveTowards(car.Clutch, 0, rate*dt)
		} else {
			car.Clutch = kinematics.MoveTowards(car.Clutch, 1, p.ShiftingPedalSpeed*dt)
		}

	case Stopping:
		car.Clutch = kinematics.MoveTowards(car.Clutch, 1, p.ShiftingPedalSpeed*dt)
	}
}

func (m *StateMachine) updateBrake(target, speed float64, car *powertrain.State, dt float64) {
	p := m.profile
	goal := 1.0
	if target != 0 && !opposes(target, speed) {
		goal = kinematics.InverseLerp(p.MinBrakingSpeedDifference, p.MaxBrakingSpeedDifference, math.Abs(speed)-math.Abs(target))
	}
	rate := p.BrakeReleaseSpeed
	if goal > car.Brake {
		rate = p.BrakePressSpeed
	}
	car.Brake = kinematics.MoveTowards(car.Brake, goal, rate*dt)
}

func (m *StateMachine) updateGearshift(car *powertrain.State, dt float64) {
	switch m.state {
	case MovingOff, Shifting:
		if car.Clutch < 1 {
			return
		}
		switch {
		case car.Gear == powertrain.Neutral:
			m.shiftingTime += dt
			if m.shiftingTime > m.profile.ShiftingDuration {
				car.Gear = m.desiredGear
				m.shiftingTime = m.profile.ShiftingDuration
			}
		case car.Gear != m.desiredGear:
			m.shiftingTime -= dt
			if m.shiftingTime < 0 {
				car.Gear = powertrain.Neutral
				m.shiftingTime = 0
			}
		}

	case Parked, Idling, Stopping:
		if car.Gear != m.desiredGear {
			m.shiftingTime -= dt
			if m.shiftingTime < 0 {
				car.Gear = powertrain.Neutral
				m.shiftingTime = 0
			}
		}
	}
}
