package kinematics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMoveTowards(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name                   string
		current, target, delta float64
		want                   float64
	}{
		{"up limited", 0, 1, 0.25, 0.25},
		{"down limited", 1, 0, 0.25, 0.75},
		{"snaps when close", 0.9, 1, 0.25, 1},
		{"already there", 0.5, 0.5, 0.1, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MoveTowards(tt.current, tt.target, tt.delta))
		})
	}
}

func TestLerpClamps(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 1.0, Lerp(1, 0, -3))
	assert.Equal(t, 0.0, Lerp(1, 0, 7))
	assert.Equal(t, 0.5, Lerp(0, 1, 0.5))
	assert.Equal(t, 3.0, LerpUnclamped(1, 2, 2))
}

func TestInverseLerp(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0.0, InverseLerp(1, 5, 0))
	assert.Equal(t, 0.5, InverseLerp(1, 5, 3))
	assert.Equal(t, 1.0, InverseLerp(1, 5, 9))
	assert.Equal(t, 0.0, InverseLerp(2, 2, 9))
}

func TestDamperConverges(t *testing.T) {
	t.Parallel()
	var d Damper
	v := 0.0
	for i := 0; i < 500; i++ {
		v = d.Step(v, 10, 0.5, 0.02)
		assert.LessOrEqual(t, v, 10.0)
	}
	assert.InDelta(t, 10, v, 1e-3)
}

func TestDamperHoldsAtTarget(t *testing.T) {
	t.Parallel()
	var d Damper
	assert.Equal(t, 5.0, d.Step(5, 5, 0.5, 0.02))
	assert.Equal(t, 0.0, d.Velocity)
}

func TestConstantDeceleration(t *testing.T) {
	t.Parallel()
	m := ConstantDeceleration{ADcc: 2}

	assert.Equal(t, 25.0, m.BrakingDistance(10))
	assert.Equal(t, 0.0, m.BrakingDistanceTo(5, 10))
	assert.Equal(t, 16.0, m.BrakingDistanceTo(10, 6))
	assert.Equal(t, 0.0, m.VelocityAfterBraking(10, 100))
	assert.InDelta(t, 6, m.SpeedAllowedAt(5, 4), 1e-12)
	assert.Equal(t, 4.0, m.SpeedAllowedAt(-1, 4))

	// Braking to a speed and back up the envelope agree.
	d := m.BrakingDistanceTo(12, 3)
	assert.InDelta(t, 12, m.SpeedAllowedAt(d, 3), 1e-9)

	assert.True(t, math.IsInf(ConstantDeceleration{}.BrakingDistance(1), 1))
}

func TestEqualizationAcceleration(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 5.0, EqualizationAcceleration(10, 4))
	assert.Equal(t, 0.0, EqualizationAcceleration(10, 0))
}

func TestSafeDistance(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 5.0, SafeDistance(0, 1.5, 5))
	assert.Equal(t, 30.0, SafeDistance(20, 1.5, 5))
	assert.Equal(t, 30.0, SafeDistance(-20, 1.5, 5))
}
