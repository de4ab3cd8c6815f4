package traffic

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/cxd309/esprit-sim/internal/city"
)

func assertVec(t *testing.T, want, got r2.Vec, delta float64) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, delta, "x")
	assert.InDelta(t, want.Y, got.Y, delta, "y")
}

func TestStraightPath(t *testing.T) {
	p := NewPath(city.TurnStraight, r2.Vec{}, r2.Vec{X: 1}, r2.Vec{X: 14}, r2.Vec{X: 1})
	assert.InDelta(t, 14, p.Length(), 1e-12)
	assertVec(t, r2.Vec{X: 7}, p.PointAt(7), 1e-12)
	assert.InDelta(t, 3, p.Project(r2.Vec{X: 3, Y: 1}), 1e-12)
}

func TestQuarterTurnPath(t *testing.T) {
	start, end := r2.Vec{}, r2.Vec{X: 5, Y: 5}
	p := NewPath(city.TurnLeft, start, r2.Vec{X: 1}, end, r2.Vec{Y: 1})

	assert.InDelta(t, 5*math.Pi/2, p.Length(), 0.01, "a quarter circle of radius 5")
	assertVec(t, start, p.PointAt(0), 1e-12)
	assertVec(t, end, p.PointAt(p.Length()), 1e-12)

	// Halfway round the arc sits on the circle about (0, 5).
	mid := p.PointAt(p.Length() / 2)
	assert.InDelta(t, 5, r2.Norm(r2.Sub(mid, r2.Vec{Y: 5})), 0.01)

	// Off either end the path carries on along the lanes.
	assertVec(t, r2.Vec{X: -1}, p.PointAt(-1), 1e-12)
	assertVec(t, r2.Vec{X: 5, Y: 7}, p.PointAt(p.Length()+2), 1e-9)
	assert.InDelta(t, p.Length()+3, p.Project(r2.Vec{X: 5, Y: 8}), 1e-9)
	assert.InDelta(t, 0, p.Project(start), 1e-12)
}

func TestQuarterTurnWithoutRoomIsStraight(t *testing.T) {
	p := NewPath(city.TurnRight, r2.Vec{}, r2.Vec{X: 1}, r2.Vec{X: -3, Y: 4}, r2.Vec{Y: 1})
	assert.InDelta(t, 5, p.Length(), 1e-12)
}

func TestUTurnPath(t *testing.T) {
	p := NewPath(city.TurnU, r2.Vec{}, r2.Vec{X: 1}, r2.Vec{Y: 4}, r2.Vec{X: -1})
	assert.InDelta(t, 2*math.Pi, p.Length(), 0.01, "a half circle of radius 2")
	assertVec(t, r2.Vec{X: 2, Y: 2}, p.PointAt(p.Length()/2), 0.01)
}

func TestPursue(t *testing.T) {
	p := NewPath(city.TurnLeft, r2.Vec{}, r2.Vec{X: 1}, r2.Vec{X: 5, Y: 5}, r2.Vec{Y: 1})

	dir, progress := p.Pursue(r2.Vec{}, 2)
	assert.InDelta(t, 0, progress, 1e-12)
	assert.InDelta(t, 1, r2.Norm(dir), 1e-12)
	assert.Greater(t, dir.X, 0.9, "early on the arc points mostly along the entry lane")
	assert.Greater(t, dir.Y, 0.0)

	dir, progress = p.Pursue(r2.Vec{X: 5, Y: 10}, 2)
	assert.InDelta(t, 1, progress, 1e-12)
	assertVec(t, r2.Vec{Y: 1}, dir, 1e-9)
}
