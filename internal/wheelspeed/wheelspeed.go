// Package wheelspeed smooths raw driven-wheel RPM readings into the drive-axle
// speed the powertrain and driver reason about.
//
// Raw wheel rates jitter from tick to tick, and feeding that jitter straight back
// through the clutch coupling makes the engine hunt. Both estimators here zero
// their output below MinWheelRPM so a parked car reads exactly zero.
package wheelspeed

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// MinWheelRPM is the magnitude below which a smoothed reading is reported as zero.
const MinWheelRPM = 1

// DefaultWindow is the moving-average smoothing duration in seconds.
const DefaultWindow = 1.0

// Estimator turns a stream of averaged driven-wheel RPM into a smoothed value.
type Estimator interface {
	// Push records one raw reading and returns the new smoothed value.
	Push(rpm float64) float64
	// Value returns the last smoothed value.
	Value() float64
	// Fill resets the history as if rpm had been read for the whole window.
	Fill(rpm float64)
	// Clone returns an independent copy.
	Clone() Estimator
}

// MovingAverage averages the last N readings in a ring buffer.
type MovingAverage struct {
	history []float64
	next    int
	value   float64
}

// NewMovingAverage returns a moving average over window seconds sampled every dt
// seconds. The buffer holds ceil(window/dt) readings.
func NewMovingAverage(window, dt float64) *MovingAverage {
	n := 1
	if dt > 0 {
		n = max(1, int(math.Ceil(window/dt-1e-9)))
	}
	return &MovingAverage{history: make([]float64, n)}
}

// Len is the ring buffer length.
func (m *MovingAverage) Len() int { return len(m.history) }

func (m *MovingAverage) Push(rpm float64) float64 {
	m.history[m.next] = rpm
	m.next = (m.next + 1) % len(m.history)
	m.value = threshold(stat.Mean(m.history, nil))
	return m.value
}

func (m *MovingAverage) Value() float64 { return m.value }

func (m *MovingAverage) Fill(rpm float64) {
	for i := range m.history {
		m.history[i] = rpm
	}
	m.next = 0
	m.value = threshold(rpm)
}

func (m *MovingAverage) Clone() Estimator {
	c := *m
	c.history = append([]float64(nil), m.history...)
	return &c
}

// Exponential blends each reading into the running value: v = v·f + rpm·(1-f),
// with f = exp(-dt/tau) so the smoothing does not depend on the tick rate.
type Exponential struct {
	Factor float64
	value  float64
}

// NewExponential returns an exponential smoother with time constant tau seconds,
// sampled every dt seconds. A non-positive tau passes readings straight through.
func NewExponential(tau, dt float64) *Exponential {
	var f float64
	if tau > 0 && dt > 0 {
		f = math.Exp(-dt / tau)
	}
	return &Exponential{Factor: f}
}

func (e *Exponential) Push(rpm float64) float64 {
	e.value = threshold(e.value*e.Factor + rpm*(1-e.Factor))
	return e.value
}

func (e *Exponential) Value() float64 { return e.value }

func (e *Exponential) Fill(rpm float64) { e.value = threshold(rpm) }

func (e *Exponential) Clone() Estimator {
	c := *e
	return &c
}

func threshold(rpm float64) float64 {
	if math.Abs(rpm) < MinWheelRPM {
		return 0
	}
	return rpm
}
