// Package city models the street grid cars drive on: intersections joined by
// axis-aligned streets, the lane geometry across each street, a tracker that
// places a car on the grid, and shortest-route queries between intersections.
//
// Traffic keeps to the left. Lanes are numbered from the left edge of the road as
// seen by the driver: lane 0 is the left sidewalk, lane 1 the kerbside lane, and
// lane Lanes+1 the far sidewalk.
package city

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/cxd309/esprit-sim/internal/logging"
)

const (
	LaneWidth        = 4.0   // metres
	SidewalkWidth    = 3.0   // metres
	DefaultBlockSize = 100.0 // metres between neighbouring grid points
)

// Errors returned when a street is refused.
var (
	ErrInvalidLanes = errors.New("lane count must be 2, 4 or 6")
	ErrOneWayLanes  = errors.New("one-way streets must have 2 lanes")
	ErrZeroLength   = errors.New("street starts and ends at the same intersection")
	ErrDiagonal     = errors.New("street is not aligned with the grid")
	ErrOverlap      = errors.New("street overlaps an existing street")
)

// GridPoint addresses an intersection on the block grid.
type GridPoint struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p GridPoint) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

// Coordinate is a 2D position in metres.
type Coordinate struct {
	X float64 `json:"x"` // metres east
	Y float64 `json:"y"` // metres north
}

// Vec converts the coordinate for geometry.
func (c Coordinate) Vec() r2.Vec { return r2.Vec{X: c.X, Y: c.Y} }

// StreetData is the serialisable description of one street. A one-way street
// is driven from Start to End.
type StreetData struct {
	Name   string    `json:"name" yaml:"name"`
	Start  GridPoint `json:"start" yaml:"start"`
	End    GridPoint `json:"end" yaml:"end"`
	Lanes  int       `json:"lanes" yaml:"lanes"`
	OneWay bool      `json:"one_way,omitempty" yaml:"one_way"`
}

// LayoutData is the serialisable input representation of a street grid.
type LayoutData struct {
	BlockSize float64      `json:"block_size,omitempty" yaml:"block_size"` // metres; 0 means DefaultBlockSize
	Streets   []StreetData `json:"streets" yaml:"streets"`
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	Min, Max r2.Vec
}

// Contains reports whether p lies inside or on the edge of the rectangle.
func (r Rect) Contains(p r2.Vec) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

// Intersection is a node of the street grid with up to one street per direction.
type Intersection struct {
	Location GridPoint
	Position r2.Vec
	streets  [4]*Street
}

// Street returns the street leaving the intersection toward d, or nil.
func (i *Intersection) Street(d Direction) *Street { return i.streets[d] }

// Size returns the extent of the paved square where the streets meet. Its width
// matches the widest north-south street and its depth the widest east-west one.
// A side with no street takes the other side's extent.
func (i *Intersection) Size() r2.Vec {
	var size r2.Vec
	for _, d := range []Direction{North, South} {
		if s := i.streets[d]; s != nil {
			size.X = math.Max(size.X, s.Width())
		}
	}
	for _, d := range []Direction{East, West} {
		if s := i.streets[d]; s != nil {
			size.Y = math.Max(size.Y, s.Width())
		}
	}
	if size.X == 0 {
		size.X = size.Y
	}
	if size.Y == 0 {
		size.Y = size.X
	}
	return size
}

// HalfExtent returns half the intersection's extent along d.
func (i *Intersection) HalfExtent(d Direction) float64 {
	size := i.Size()
	if d == North || d == South {
		return size.Y / 2
	}
	return size.X / 2
}

// Bounds returns the paved square of the intersection.
func (i *Intersection) Bounds() Rect {
	half := r2.Scale(0.5, i.Size())
	return Rect{Min: r2.Sub(i.Position, half), Max: r2.Add(i.Position, half)}
}

// HasStopLineFor reports whether cars arriving from s must stop before entering.
// A street yields when a crossing street has more lanes.
func (i *Intersection) HasStopLineFor(s *Street) bool {
	for _, d := range Directions {
		other := i.streets[d]
		if other == nil || other.Orientation == s.Orientation {
			continue
		}
		if other.Lanes > s.Lanes {
			return true
		}
	}
	return false
}

// Exits returns the directions a car may leave the intersection in, clockwise
// from north.
func (i *Intersection) Exits() []Direction {
	var out []Direction
	for _, d := range Directions {
		if s := i.streets[d]; s != nil && s.Allows(d) {
			out = append(out, d)
		}
	}
	return out
}

// Orientation is the axis a street runs along.
type Orientation string

const (
	NorthSouth Orientation = "north_south"
	EastWest   Orientation = "east_west"
)

// Street is an edge of the grid. Start is always the south or west end.
type Street struct {
	Name        string
	Start, End  *Intersection
	Lanes       int
	OneWay      bool
	Orientation Orientation
	// OneWayTowardStart is set when a one-way street is driven from End to Start.
	OneWayTowardStart bool
}

// Axis returns the direction from Start to End.
func (s *Street) Axis() Direction {
	if s.Orientation == NorthSouth {
		return North
	}
	return East
}

// RoadWidth returns the width of the carriageway.
func (s *Street) RoadWidth() float64 { return float64(s.Lanes) * LaneWidth }

// Width returns the full width including both sidewalks.
func (s *Street) Width() float64 { return s.RoadWidth() + 2*SidewalkWidth }

// Span returns the distance between the centres of the end intersections.
func (s *Street) Span() float64 { return r2.Norm(r2.Sub(s.End.Position, s.Start.Position)) }

// Length returns the length of the street between the intersection squares.
func (s *Street) Length() float64 {
	return s.Span() - s.Start.HalfExtent(s.Axis()) - s.End.HalfExtent(s.Axis())
}

// Allows reports whether the street may be driven in direction d.
func (s *Street) Allows(d Direction) bool {
	axis := s.Axis()
	if d != axis && d != axis.Opposite() {
		return false
	}
	if !s.OneWay {
		return true
	}
	if s.OneWayTowardStart {
		return d == axis.Opposite()
	}
	return d == axis
}

// LanesToward returns how many lanes carry traffic in direction d.
func (s *Street) LanesToward(d Direction) int {
	if !s.Allows(d) {
		return 0
	}
	if s.OneWay {
		return s.Lanes
	}
	return s.Lanes / 2
}

// Entry returns the intersection a car travelling in d has left.
func (s *Street) Entry(d Direction) *Intersection {
	if d == s.Axis() {
		return s.Start
	}
	return s.End
}

// Exit returns the intersection a car travelling in d is heading for.
func (s *Street) Exit(d Direction) *Intersection {
	if d == s.Axis() {
		return s.End
	}
	return s.Start
}

// Bounds returns the rectangle covered by the street and its sidewalks.
func (s *Street) Bounds() Rect {
	axis := s.Axis().Vector()
	across := r2.Vec{X: axis.Y, Y: axis.X}
	from := r2.Add(s.Start.Position, r2.Scale(s.Start.HalfExtent(s.Axis()), axis))
	to := r2.Sub(s.End.Position, r2.Scale(s.End.HalfExtent(s.Axis()), axis))
	half := r2.Scale(s.Width()/2, across)
	a, b := r2.Sub(from, half), r2.Add(to, half)
	return Rect{
		Min: r2.Vec{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y)},
		Max: r2.Vec{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y)},
	}
}

// LaneSideways returns the sideways position of a lane's centre, measured from
// the left edge of the street as seen when travelling in the lane's direction.
// Lanes 0 and Lanes+1 are the sidewalks.
func (s *Street) LaneSideways(lane int) float64 {
	switch {
	case lane <= 0:
		return SidewalkWidth / 2
	case lane > s.Lanes:
		return s.Width() - SidewalkWidth/2
	}
	return SidewalkWidth + (float64(lane)-0.5)*LaneWidth
}

// LaneAt returns the lane containing a sideways position.
func (s *Street) LaneAt(sideways float64) int {
	switch {
	case sideways < SidewalkWidth:
		return 0
	case sideways > s.Width()-SidewalkWidth:
		return s.Lanes + 1
	}
	return max(1, int(math.Ceil((sideways-SidewalkWidth)/LaneWidth)))
}

// Sideways returns the sideways position of p for a car travelling in d.
func (s *Street) Sideways(p r2.Vec, d Direction) float64 {
	left := d.Left().Vector()
	return s.Width()/2 - r2.Dot(r2.Sub(p, s.Start.Position), left)
}

// PointAt returns the world position at a sideways position for travel in d,
// fromEntry metres past the centre of the entry intersection.
func (s *Street) PointAt(d Direction, sideways, fromEntry float64) r2.Vec {
	p := r2.Add(s.Entry(d).Position, r2.Scale(fromEntry, d.Vector()))
	return r2.Add(p, r2.Scale(s.Width()/2-sideways, d.Left().Vector()))
}

// Layout is the street grid. Streets and intersections are only ever added.
type Layout struct {
	blockSize     float64
	streets       []*Street
	intersections map[GridPoint]*Intersection
	order         []GridPoint // insertion order, for deterministic iteration
	// Floyd-Warshall tables; nil until first needed.
	dist     map[GridPoint]map[GridPoint]float64
	nextNode map[GridPoint]map[GridPoint]GridPoint
	// Route cache; cleared whenever the topology changes.
	routeCache map[routeKey]Route
}

// NewLayout builds a layout from LayoutData. Streets that fail validation are
// skipped; their errors are joined into the returned error alongside the layout.
func NewLayout(data LayoutData) (*Layout, error) {
	l := &Layout{
		blockSize:     data.BlockSize,
		intersections: make(map[GridPoint]*Intersection),
		routeCache:    make(map[routeKey]Route),
	}
	if l.blockSize <= 0 {
		l.blockSize = DefaultBlockSize
	}
	var errs []error
	for _, sd := range data.Streets {
		if _, err := l.AddStreet(sd); err != nil {
			errs = append(errs, err)
		}
	}
	return l, errors.Join(errs...)
}

// BlockSize returns the distance between neighbouring grid points in metres.
func (l *Layout) BlockSize() float64 { return l.blockSize }

// Streets returns the streets in the order they were added.
func (l *Layout) Streets() []*Street { return l.streets }

// Intersection returns the intersection at p, or nil.
func (l *Layout) Intersection(p GridPoint) *Intersection { return l.intersections[p] }

// Intersections returns the intersections in the order they were created.
func (l *Layout) Intersections() []*Intersection {
	out := make([]*Intersection, len(l.order))
	for i, p := range l.order {
		out[i] = l.intersections[p]
	}
	return out
}

// Position returns the world position of a grid point.
func (l *Layout) Position(p GridPoint) r2.Vec {
	return r2.Vec{X: float64(p.X) * l.blockSize, Y: float64(p.Y) * l.blockSize}
}

// Bounds returns the rectangle covering every street and intersection.
func (l *Layout) Bounds() Rect {
	if len(l.order) == 0 {
		return Rect{}
	}
	r := Rect{Min: r2.Vec{X: math.Inf(1), Y: math.Inf(1)}, Max: r2.Vec{X: math.Inf(-1), Y: math.Inf(-1)}}
	for _, p := range l.order {
		b := l.intersections[p].Bounds()
		r.Min = r2.Vec{X: math.Min(r.Min.X, b.Min.X), Y: math.Min(r.Min.Y, b.Min.Y)}
		r.Max = r2.Vec{X: math.Max(r.Max.X, b.Max.X), Y: math.Max(r.Max.Y, b.Max.Y)}
	}
	return r
}

// AddStreet validates and adds a street, creating its end intersections as
// needed. A refused street is logged and leaves the layout unchanged.
func (l *Layout) AddStreet(sd StreetData) (*Street, error) {
	s, err := l.addStreet(sd)
	if err != nil {
		err = fmt.Errorf("street %q %v-%v: %w", sd.Name, sd.Start, sd.End, err)
		logging.L().Error("refusing street", zap.String("street", sd.Name), zap.Error(err))
		return nil, err
	}
	return s, nil
}

func (l *Layout) addStreet(sd StreetData) (*Street, error) {
	if sd.Lanes != 2 && sd.Lanes != 4 && sd.Lanes != 6 {
		return nil, ErrInvalidLanes
	}
	if sd.OneWay && sd.Lanes != 2 {
		return nil, ErrOneWayLanes
	}
	start, end := sd.Start, sd.End
	if start == end {
		return nil, ErrZeroLength
	}
	var orientation Orientation
	switch {
	case start.X == end.X:
		orientation = NorthSouth
	case start.Y == end.Y:
		orientation = EastWest
	default:
		return nil, ErrDiagonal
	}
	flipped := start.X > end.X || start.Y > end.Y
	if flipped {
		start, end = end, start
	}
	if l.overlaps(start, end, orientation) {
		return nil, ErrOverlap
	}

	s := &Street{
		Name:              sd.Name,
		Lanes:             sd.Lanes,
		OneWay:            sd.OneWay,
		Orientation:       orientation,
		OneWayTowardStart: sd.OneWay && flipped,
	}
	s.Start = l.intersectionAt(start)
	s.End = l.intersectionAt(end)
	s.Start.streets[s.Axis()] = s
	s.End.streets[s.Axis().Opposite()] = s
	l.streets = append(l.streets, s)
	// New topology: recompute routes on the next query.
	l.dist, l.nextNode = nil, nil
	clear(l.routeCache)
	return s, nil
}

func (l *Layout) intersectionAt(p GridPoint) *Intersection {
	if i, ok := l.intersections[p]; ok {
		return i
	}
	i := &Intersection{Location: p, Position: l.Position(p)}
	l.intersections[p] = i
	l.order = append(l.order, p)
	return i
}

// overlaps reports whether a street from start to end would share pavement with
// an existing street or run through an existing intersection.
func (l *Layout) overlaps(start, end GridPoint, o Orientation) bool {
	axis := North
	if o == EastWest {
		axis = East
	}
	if i := l.intersections[start]; i != nil && i.streets[axis] != nil {
		return true
	}
	if i := l.intersections[end]; i != nil && i.streets[axis.Opposite()] != nil {
		return true
	}
	for p := range l.intersections {
		if strictlyBetween(p, start, end) {
			return true
		}
	}
	for _, s := range l.streets {
		if strictlyBetween(start, s.Start.Location, s.End.Location) ||
			strictlyBetween(end, s.Start.Location, s.End.Location) {
			return true
		}
		if s.Orientation == o && collinearOverlap(start, end, s.Start.Location, s.End.Location) {
			return true
		}
	}
	return false
}

// strictlyBetween reports whether p lies on the segment a-b (a before b on the
// grid) without being either end.
func strictlyBetween(p, a, b GridPoint) bool {
	if p == a || p == b {
		return false
	}
	if a.X == b.X {
		return p.X == a.X && p.Y > a.Y && p.Y < b.Y
	}
	return p.Y == a.Y && p.X > a.X && p.X < b.X
}

func collinearOverlap(a0, a1, b0, b1 GridPoint) bool {
	if a0.X == a1.X {
		return a0.X == b0.X && a0.Y < b1.Y && b0.Y < a1.Y
	}
	return a0.Y == b0.Y && a0.X < b1.X && b0.X < a1.X
}
