package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cxd309/esprit-sim/internal/chassis"
	"github.com/cxd309/esprit-sim/internal/kinematics"
	"github.com/cxd309/esprit-sim/internal/powertrain"
	"github.com/cxd309/esprit-sim/internal/units"
)

const dt = 0.02

// rig couples a car's powertrain and body so the state machine can drive it.
type rig struct {
	spec  powertrain.CarSpecification
	model *powertrain.Model
	car   powertrain.State
	body  chassis.Body
}

func newRig(t *testing.T) *rig {
	t.Helper()
	spec := powertrain.DefaultSpecification()
	model, err := powertrain.NewModel(spec)
	require.NoError(t, err)
	return &rig{spec: spec, model: model, car: powertrain.NewState(dt)}
}

func (r *rig) physics() {
	next, act := powertrain.Advance(r.car, r.model, r.body.Readings(r.spec), dt)
	r.car = next
	r.body = chassis.Step(r.body, r.spec, act, dt)
}

func TestParkedStartsOnTarget(t *testing.T) {
	t.Parallel()
	r := newRig(t)
	m := NewStateMachine(DefaultProfile())
	m.Update(10, &r.car, r.spec, dt)

	assert.Equal(t, Starting, m.State())
	assert.Equal(t, powertrain.IgnitionStart, r.car.Ignition())
	assert.Equal(t, powertrain.EngineStarting, r.car.EngineState())
	assert.Equal(t, powertrain.First, m.DesiredGear())
}

func TestIdleTimeoutParks(t *testing.T) {
	t.Parallel()
	r := newRig(t)
	p := DefaultProfile()
	r.car.InitializeSpeed(r.spec, 0, powertrain.Neutral)
	m := NewStateMachine(p)
	m.Resume(Idling, powertrain.Neutral, 0)

	ticks := int((p.MaxIdlingDuration - 1) / dt)
	for range ticks {
		m.Update(0, &r.car, r.spec, dt)
	}
	assert.Equal(t, Idling, m.State())
	assert.Equal(t, powertrain.EngineOn, r.car.EngineState())

	for range int(2 / dt) {
		m.Update(0, &r.car, r.spec, dt)
	}
	assert.Equal(t, Parked, m.State())
	assert.Equal(t, powertrain.IgnitionLock, r.car.Ignition())
	assert.Equal(t, powertrain.EngineOff, r.car.EngineState())
}

func TestOpposingTargetStopsFirst(t *testing.T) {
	t.Parallel()
	r := newRig(t)
	r.car.InitializeSpeed(r.spec, 5, powertrain.First)
	m := NewStateMachine(DefaultProfile())
	m.Resume(Driving, powertrain.First, 5)

	m.Update(-3, &r.car, r.spec, dt)
	assert.Equal(t, Stopping, m.State())
	assert.Equal(t, powertrain.Reverse, m.DesiredGear())
	assert.Greater(t, r.car.Brake, 0.0)

	// Still rolling forward, so the driver keeps stopping and leaves the gear.
	for range 30 {
		m.Update(-3, &r.car, r.spec, dt)
	}
	assert.Equal(t, Stopping, m.State())
	assert.Equal(t, powertrain.Neutral, r.car.Gear)
}

func TestMovingOffAbortsWhenRollingBackward(t *testing.T) {
	t.Parallel()
	r := newRig(t)
	r.car.InitializeSpeed(r.spec, -2, powertrain.Neutral)
	m := NewStateMachine(DefaultProfile())
	m.Resume(MovingOff, powertrain.First, -2)

	m.Update(8, &r.car, r.spec, dt)
	assert.Equal(t, Stopping, m.State())
	assert.Greater(t, r.car.Brake, 0.0, "opposing motion brakes")
}

func TestDesiredGearPolicy(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		state   State
		prev    powertrain.Gear
		gear    powertrain.Gear
		rpm     float64
		target  float64
		speed   float64
		desired powertrain.Gear
	}{
		{"stop", Driving, 3, 3, 3000, 0, 10, powertrain.Neutral},
		{"reverse", Driving, 1, 1, 2000, -1, 0, powertrain.Reverse},
		{"neutral while rolling", Driving, 0, powertrain.Neutral, 900, 10, 5, powertrain.First},
		{"out of reverse", Driving, powertrain.Reverse, powertrain.Reverse, 900, 10, 0, powertrain.First},
		{"upshift", Driving, 2, 2, 6000, 20, 10, 3},
		{"upshift close to target", Driving, 2, 2, 3500, 12, 11, 3},
		{"no upshift far from target", Driving, 2, 2, 3500, 20, 11, 2},
		{"no upshift when slowing", Driving, 2, 2, 6000, 5, 10, 2},
		{"top gear", Driving, 5, 5, 6000, 60, 40, 5},
		{"downshift", Driving, 3, 3, 1200, 20, 5, 2},
		{"first gear floor", Driving, 1, 1, 800, 20, 1, 1},
		{"frozen while shifting", Shifting, 3, 2, 1000, 20, 5, 3},
		{"frozen never aims backward", MovingOff, powertrain.Reverse, powertrain.Neutral, 900, 5, 0, powertrain.First},
	}
	spec := powertrain.DefaultSpecification()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			m := NewStateMachine(DefaultProfile())
			m.state = tc.state
			m.desiredGear = tc.prev
			car := powertrain.NewState(dt)
			car.Gear = tc.gear
			car.EngineAngularSpeed = tc.rpm * units.RPMToAngularSpeed
			m.updateDesiredGear(tc.target, tc.speed, &car, spec)
			assert.Equal(t, tc.desired, m.DesiredGear())
		})
	}
}

func TestGearshiftAccumulates(t *testing.T) {
	t.Parallel()
	p := DefaultProfile()
	m := NewStateMachine(p)
	m.state = MovingOff
	m.desiredGear = powertrain.First
	car := powertrain.NewState(dt)

	car.Clutch = 0.5
	for range 50 {
		m.updateGearshift(&car, dt)
	}
	assert.Equal(t, powertrain.Neutral, car.Gear, "no shifting until the clutch is down")

	car.Clutch = 1
	for range 10 {
		m.updateGearshift(&car, dt)
	}
	assert.Equal(t, powertrain.Neutral, car.Gear, "shift still in progress")
	for range 10 {
		m.updateGearshift(&car, dt)
	}
	assert.Equal(t, powertrain.First, car.Gear)

	// Changing our mind drains the accumulator back out to neutral.
	m.state = Shifting
	m.desiredGear = 2
	for range 10 {
		m.updateGearshift(&car, dt)
	}
	assert.Equal(t, powertrain.First, car.Gear)
	for range 10 {
		m.updateGearshift(&car, dt)
	}
	assert.Equal(t, powertrain.Neutral, car.Gear)
}

func TestBrakePressesSlowlyAndReleasesQuickly(t *testing.T) {
	t.Parallel()
	p := DefaultProfile()
	m := NewStateMachine(p)
	car := powertrain.NewState(dt)

	m.updateBrake(0, 5, &car, dt)
	assert.InDelta(t, p.BrakePressSpeed*dt, car.Brake, 1e-12)

	car.Brake = 1
	m.updateBrake(10, 10, &car, dt)
	assert.InDelta(t, 1-p.BrakeReleaseSpeed*dt, car.Brake, 1e-12)

	car.Brake = 0
	for range 200 {
		m.updateBrake(10, 12.5, &car, dt)
	}
	want := kinematics.InverseLerp(p.MinBrakingSpeedDifference, p.MaxBrakingSpeedDifference, 2.5)
	assert.InDelta(t, want, car.Brake, 1e-9)
}

func TestColdStartConvergesToTarget(t *testing.T) {
	t.Parallel()
	r := newRig(t)
	m := NewStateMachine(DefaultProfile())
	const target = 15.0

	drivingAt := -1.0
	var tail []float64
	for i := range int(60 / dt) {
		now := float64(i) * dt
		m.Update(target, &r.car, r.spec, dt)
		r.physics()
		require.GreaterOrEqual(t, r.car.EngineAngularSpeed, 0.0)
		if drivingAt < 0 && m.State() == Driving {
			drivingAt = now
		}
		if now >= 55 {
			tail = append(tail, r.body.Speed)
		}
	}
	require.GreaterOrEqual(t, drivingAt, 0.0, "never reached Driving")
	assert.Less(t, drivingAt, 10.0)

	var mean float64
	for _, v := range tail {
		mean += v
	}
	mean /= float64(len(tail))
	assert.InDelta(t, target, mean, 2)
	assert.Equal(t, powertrain.EngineOn, r.car.EngineState())
}

func TestColdStartConvergesInReverse(t *testing.T) {
	t.Parallel()
	r := newRig(t)
	m := NewStateMachine(DefaultProfile())
	const target = -3.0

	drivingAt := -1.0
	var tail []float64
	for i := range int(60 / dt) {
		now := float64(i) * dt
		m.Update(target, &r.car, r.spec, dt)
		r.physics()
		require.GreaterOrEqual(t, r.car.EngineAngularSpeed, 0.0)
		require.LessOrEqual(t, r.body.Speed, 0.0, "never rolls forward at t=%.2f", now)
		if drivingAt < 0 && m.State() == Driving {
			drivingAt = now
		}
		if now >= 55 {
			tail = append(tail, r.body.Speed)
		}
	}
	require.GreaterOrEqual(t, drivingAt, 0.0, "never reached Driving")
	assert.Less(t, drivingAt, 10.0)
	assert.Equal(t, Driving, m.State())
	assert.Equal(t, powertrain.Reverse, r.car.Gear)
	assert.Equal(t, powertrain.Reverse, m.DesiredGear())
	assert.Less(t, r.body.Speed, 0.0)

	var mean float64
	for _, v := range tail {
		mean += v
	}
	mean /= float64(len(tail))
	assert.InDelta(t, target, mean, 1.5)
	assert.Equal(t, powertrain.EngineOn, r.car.EngineState())
}

func TestStopFromCruise(t *testing.T) {
	t.Parallel()
	r := newRig(t)
	r.car.InitializeSpeed(r.spec, 20, 3)
	r.body.Speed = 20
	m := NewStateMachine(DefaultProfile())
	m.Resume(Driving, 3, 20)

	seen := map[State]bool{}
	var maxBrake float64
	for range int(8 / dt) {
		m.Update(0, &r.car, r.spec, dt)
		r.physics()
		seen[m.State()] = true
		maxBrake = max(maxBrake, r.car.Brake)
	}
	assert.True(t, seen[Stopping])
	assert.Equal(t, Idling, m.State())
	assert.Greater(t, maxBrake, 0.5)
	assert.Equal(t, 0.0, r.body.Speed)
	assert.Equal(t, 0.0, r.car.Speed(r.spec))
	assert.Equal(t, powertrain.Neutral, r.car.Gear)
	assert.Equal(t, powertrain.EngineOn, r.car.EngineState(), "the engine idles, it does not stall")
}

func TestProfileValidate(t *testing.T) {
	t.Parallel()
	require.NoError(t, DefaultProfile().Validate())

	p := DefaultProfile()
	p.ShiftingDuration = 0
	p.MinBrakingSpeedDifference = p.MaxBrakingSpeedDifference + 1
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shifting_duration")
	assert.Contains(t, err.Error(), "min_braking_speed_difference")

	p = DefaultProfile()
	p.DownshiftRPM = 4000
	assert.Error(t, p.Validate())
}
