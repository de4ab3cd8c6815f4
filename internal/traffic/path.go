package traffic

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/cxd309/esprit-sim/internal/city"
)

// pathSegments is how finely curved paths are sampled.
const pathSegments = 24

// Path is a route through an intersection from an entry lane point to an exit
// lane point, stored as a sampled polyline.
type Path struct {
	Turn     city.Turn
	Start    r2.Vec
	End      r2.Vec
	EntryDir r2.Vec // unit travel direction at Start
	ExitDir  r2.Vec // unit travel direction at End

	points []r2.Vec
	cum    []float64 // distance along the path to each point
}

// NewPath builds the path for a maneuver. Quarter turns follow an elliptic arc
// tangent to both lanes, U-turns a half ellipse bulging forward, and anything
// else a straight segment.
func NewPath(turn city.Turn, start, entryDir, end, exitDir r2.Vec) *Path {
	entryDir, exitDir = r2.Unit(entryDir), r2.Unit(exitDir)
	p := &Path{Turn: turn, Start: start, End: end, EntryDir: entryDir, ExitDir: exitDir}
	delta := r2.Sub(end, start)

	switch turn {
	case city.TurnLeft, city.TurnRight:
		// start = c - b·exitDir and end = c + a·entryDir.
		a, b := r2.Dot(delta, entryDir), r2.Dot(delta, exitDir)
		if a <= 0 || b <= 0 {
			p.points = []r2.Vec{start, end}
			break
		}
		c := r2.Add(start, r2.Scale(b, exitDir))
		p.points = sampleEllipse(c, r2.Scale(-b, exitDir), r2.Scale(a, entryDir), math.Pi/2)
	case city.TurnU:
		half := r2.Scale(0.5, delta)
		c := r2.Add(start, half)
		depth := r2.Norm(half)
		p.points = sampleEllipse(c, r2.Scale(-1, half), r2.Scale(depth, entryDir), math.Pi)
	default:
		p.points = []r2.Vec{start, end}
	}
	// Pin the ends so rounding never leaves a gap to the lanes.
	p.points[0], p.points[len(p.points)-1] = start, end

	p.cum = make([]float64, len(p.points))
	for i := 1; i < len(p.points); i++ {
		p.cum[i] = p.cum[i-1] + r2.Norm(r2.Sub(p.points[i], p.points[i-1]))
	}
	return p
}

// sampleEllipse samples c + cos(θ)·u + sin(θ)·v for θ in [0, sweep].
func sampleEllipse(c, u, v r2.Vec, sweep float64) []r2.Vec {
	pts := make([]r2.Vec, pathSegments+1)
	for i := range pts {
		theta := sweep * float64(i) / pathSegments
		pts[i] = r2.Add(c, r2.Add(r2.Scale(math.Cos(theta), u), r2.Scale(math.Sin(theta), v)))
	}
	return pts
}

// Length returns the length of the path.
func (p *Path) Length() float64 { return p.cum[len(p.cum)-1] }

// PointAt returns the point s metres along the path. Beyond either end the
// path continues straight along the lane it joins.
func (p *Path) PointAt(s float64) r2.Vec {
	switch {
	case s <= 0:
		return r2.Add(p.Start, r2.Scale(s, p.EntryDir))
	case s >= p.Length():
		return r2.Add(p.End, r2.Scale(s-p.Length(), p.ExitDir))
	}
	i := 1
	for p.cum[i] < s {
		i++
	}
	seg := p.cum[i] - p.cum[i-1]
	t := (s - p.cum[i-1]) / seg
	return r2.Add(p.points[i-1], r2.Scale(t, r2.Sub(p.points[i], p.points[i-1])))
}

// Project returns how far along the path the point closest to pos lies.
func (p *Path) Project(pos r2.Vec) float64 {
	best, bestDist := 0.0, math.Inf(1)
	for i := 1; i < len(p.points); i++ {
		a, b := p.points[i-1], p.points[i]
		ab := r2.Sub(b, a)
		segLen := r2.Norm(ab)
		var t float64
		if segLen > 0 {
			t = min(max(r2.Dot(r2.Sub(pos, a), ab)/(segLen*segLen), 0), 1)
		}
		q := r2.Add(a, r2.Scale(t, ab))
		if d := r2.Norm(r2.Sub(pos, q)); d < bestDist {
			best, bestDist = p.cum[i-1]+t*segLen, d
		}
	}
	// Past the end, keep counting along the exit lane.
	if past := r2.Dot(r2.Sub(pos, p.End), p.ExitDir); past > 0 && best >= p.Length() {
		best = p.Length() + past
	}
	return best
}

// Pursue returns the direction from pos toward the point lookahead metres
// further along the path, and the fraction of the path already covered.
func (p *Path) Pursue(pos r2.Vec, lookahead float64) (r2.Vec, float64) {
	s := p.Project(pos)
	progress := 1.0
	if l := p.Length(); l > 0 {
		progress = min(max(s/l, 0), 1)
	}
	dir := r2.Sub(p.PointAt(s+lookahead), pos)
	if r2.Norm(dir) == 0 {
		return p.ExitDir, progress
	}
	return r2.Unit(dir), progress
}
