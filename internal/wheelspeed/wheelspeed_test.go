package wheelspeed

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMovingAverageLength(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 50, NewMovingAverage(1, 0.02).Len())
	assert.Equal(t, 34, NewMovingAverage(1, 0.03).Len())
	assert.Equal(t, 1, NewMovingAverage(1, 0).Len())
}

func TestMovingAverageSmooths(t *testing.T) {
	t.Parallel()
	m := NewMovingAverage(1, 0.25) // four readings
	assert.Equal(t, 100.0, m.Push(400))
	assert.Equal(t, 200.0, m.Push(400))
	assert.Equal(t, 300.0, m.Push(400))
	assert.Equal(t, 400.0, m.Push(400))
	assert.Equal(t, 300.0, m.Push(0))
	assert.Equal(t, 300.0, m.Value())
}

func TestMovingAverageThreshold(t *testing.T) {
	t.Parallel()
	m := NewMovingAverage(1, 0.25)
	assert.Equal(t, 0.0, m.Push(3.9)) // mean 0.975
	assert.Equal(t, 0.0, m.Push(-3.9))
}

func TestMovingAverageCloneIsIndependent(t *testing.T) {
	t.Parallel()
	m := NewMovingAverage(1, 0.5)
	m.Push(100)
	c := m.Clone()
	c.Push(100)
	assert.Equal(t, 50.0, m.Value())
	assert.Equal(t, 100.0, c.Value())
	assert.Equal(t, 50.0, m.Push(0))
}

func TestMovingAverageFill(t *testing.T) {
	t.Parallel()
	m := NewMovingAverage(1, 0.25)
	m.Fill(636)
	assert.Equal(t, 636.0, m.Value())
	assert.Equal(t, 636.0, m.Push(636))
}

func TestExponential(t *testing.T) {
	t.Parallel()
	e := NewExponential(1, 0.25)
	f := math.Exp(-0.25)
	assert.InDelta(t, f, e.Factor, 1e-12)
	assert.InDelta(t, 100*(1-f), e.Push(100), 1e-9)
	second := 100 * (1 - f*f)
	assert.InDelta(t, second, e.Push(100), 1e-9)

	var est Estimator = e
	c := est.Clone()
	require.IsType(t, &Exponential{}, c)
	c.Push(0)
	assert.InDelta(t, second, e.Value(), 1e-9)

	e.Fill(0.5)
	assert.Equal(t, 0.0, e.Value())
}

func TestExponentialIgnoresTickRate(t *testing.T) {
	t.Parallel()
	// One second of a constant reading lands in the same place whatever the tick.
	coarse, fine := NewExponential(0.5, 0.1), NewExponential(0.5, 0.01)
	for range 10 {
		coarse.Push(1000)
	}
	for range 100 {
		fine.Push(1000)
	}
	want := 1000 * (1 - math.Exp(-2))
	assert.InDelta(t, want, coarse.Value(), 1e-6)
	assert.InDelta(t, want, fine.Value(), 1e-6)

	assert.Equal(t, 42.0, NewExponential(0, 0.1).Push(42), "no time constant means no smoothing")
}
