package powertrain

import (
	"fmt"

	"gonum.org/v1/gonum/interp"
)

// TorquePoint is one breakpoint of an engine torque curve.
type TorquePoint struct {
	RPM    float64 `json:"rpm" yaml:"rpm"`
	Torque float64 `json:"torque" yaml:"torque"` // N·m at full throttle
}

// TorqueCurve maps engine RPM to available combustion torque. Between breakpoints
// it interpolates linearly; outside them it extends the outermost segment.
type TorqueCurve struct {
	points []TorquePoint
	fit    interp.PiecewiseLinear
}

// NewTorqueCurve builds a curve from breakpoints with strictly increasing RPM.
func NewTorqueCurve(points []TorquePoint) (*TorqueCurve, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("torque curve needs at least 2 points, got %d", len(points))
	}
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		if i > 0 && p.RPM <= points[i-1].RPM {
			return nil, fmt.Errorf("torque curve rpm must increase strictly: point %d (%g) after %g", i, p.RPM, points[i-1].RPM)
		}
		xs[i], ys[i] = p.RPM, p.Torque
	}
	c := &TorqueCurve{points: append([]TorquePoint(nil), points...)}
	if err := c.fit.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("fitting torque curve: %w", err)
	}
	return c, nil
}

// Torque returns the full-throttle torque at rpm.
func (c *TorqueCurve) Torque(rpm float64) float64 {
	first, last := c.points[0], c.points[len(c.points)-1]
	switch {
	case rpm < first.RPM:
		return extend(first, c.points[1], rpm)
	case rpm > last.RPM:
		return extend(c.points[len(c.points)-2], last, rpm)
	}
	return c.fit.Predict(rpm)
}

// Points returns a copy of the breakpoints.
func (c *TorqueCurve) Points() []TorquePoint {
	return append([]TorquePoint(nil), c.points...)
}

func extend(a, b TorquePoint, rpm float64) float64 {
	t := (rpm - a.RPM) / (b.RPM - a.RPM)
	return a.Torque + (b.Torque-a.Torque)*t
}
