package city

import (
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/cxd309/esprit-sim/internal/logging"
)

// Location places a car on the grid. Exactly one of Street and Intersection is
// set when the location is resolved.
type Location struct {
	Street       *Street
	Intersection *Intersection
	// Direction is the cardinal direction closest to the car's heading.
	Direction Direction
	// Sideways is measured from the left edge of the representative street.
	Sideways float64
	Lane     int
	// FromEntry is the distance travelled past the centre of the entry
	// intersection. Only set on a street.
	FromEntry float64
	// DistanceToExit is the distance left to the edge of the exit
	// intersection. Only set on a street.
	DistanceToExit float64
}

// Resolved reports whether the car is on a street or in an intersection.
func (l Location) Resolved() bool { return l.Street != nil || l.Intersection != nil }

// RepresentativeStreet returns the street the car is on, or inside an
// intersection the street it faces (or, failing that, the one behind it).
func (l Location) RepresentativeStreet() *Street {
	if l.Street != nil {
		return l.Street
	}
	if l.Intersection == nil {
		return nil
	}
	if s := l.Intersection.Street(l.Direction); s != nil {
		return s
	}
	return l.Intersection.Street(l.Direction.Opposite())
}

// Locate places a position and heading on the grid by scanning every street and
// intersection.
func (l *Layout) Locate(pos, heading r2.Vec) Location {
	for _, s := range l.streets {
		if s.Bounds().Contains(pos) {
			return locateOnStreet(s, pos, heading)
		}
	}
	for _, p := range l.order {
		if i := l.intersections[p]; i.Bounds().Contains(pos) {
			return locateInIntersection(i, pos, heading)
		}
	}
	return Location{Direction: DirectionOf(heading)}
}

func locateOnStreet(s *Street, pos, heading r2.Vec) Location {
	loc := Location{Street: s, Direction: DirectionOf(heading)}
	loc.fillSideways(s, pos)
	d := loc.Direction
	if d != s.Axis() && d != s.Axis().Opposite() {
		// Crossing the street; measure along its axis.
		d = s.Axis()
	}
	entry, exit := s.Entry(d), s.Exit(d)
	loc.FromEntry = r2.Dot(r2.Sub(pos, entry.Position), d.Vector())
	edge := r2.Sub(exit.Position, r2.Scale(exit.HalfExtent(d), d.Vector()))
	loc.DistanceToExit = r2.Dot(r2.Sub(edge, pos), d.Vector())
	return loc
}

func locateInIntersection(i *Intersection, pos, heading r2.Vec) Location {
	loc := Location{Intersection: i, Direction: DirectionOf(heading)}
	if s := loc.RepresentativeStreet(); s != nil {
		loc.fillSideways(s, pos)
	}
	return loc
}

func (l *Location) fillSideways(s *Street, pos r2.Vec) {
	d := l.Direction
	if d != s.Axis() && d != s.Axis().Opposite() {
		d = s.Axis()
	}
	l.Sideways = s.Sideways(pos, d)
	l.Lane = s.LaneAt(l.Sideways)
}

// Tracker follows one car across the grid, checking the neighbours of the last
// known street or intersection before falling back to a full scan.
type Tracker struct {
	layout *Layout
	loc    Location
	lost   bool
}

// NewTracker returns an unresolved tracker on the layout.
func NewTracker(l *Layout) *Tracker { return &Tracker{layout: l} }

// Location returns the last resolved or unresolved location.
func (t *Tracker) Location() Location { return t.loc }

// Update relocates the car. A car that leaves the grid is logged once and stays
// unresolved until a later update finds it again.
func (t *Tracker) Update(id string, pos, heading r2.Vec) Location {
	loc, ok := t.nearby(pos, heading)
	if !ok {
		loc = t.layout.Locate(pos, heading)
	}
	if !loc.Resolved() {
		if !t.lost {
			logging.L().Warn("car is not on any street",
				zap.String("vehicle", id), zap.Float64("x", pos.X), zap.Float64("y", pos.Y))
		}
		t.lost = true
	} else {
		t.lost = false
	}
	t.loc = loc
	return loc
}

func (t *Tracker) nearby(pos, heading r2.Vec) (Location, bool) {
	switch {
	case t.loc.Street != nil:
		s := t.loc.Street
		if s.Bounds().Contains(pos) {
			return locateOnStreet(s, pos, heading), true
		}
		for _, i := range []*Intersection{s.Start, s.End} {
			if i.Bounds().Contains(pos) {
				return locateInIntersection(i, pos, heading), true
			}
		}
	case t.loc.Intersection != nil:
		i := t.loc.Intersection
		if i.Bounds().Contains(pos) {
			return locateInIntersection(i, pos, heading), true
		}
		for _, d := range Directions {
			if s := i.Street(d); s != nil && s.Bounds().Contains(pos) {
				return locateOnStreet(s, pos, heading), true
			}
		}
	}
	return Location{}, false
}
