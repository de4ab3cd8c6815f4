package traffic

import (
	"math"
	"math/rand/v2"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/cxd309/esprit-sim/internal/city"
	"github.com/cxd309/esprit-sim/internal/driver"
	"github.com/cxd309/esprit-sim/internal/kinematics"
	"github.com/cxd309/esprit-sim/internal/logging"
	"github.com/cxd309/esprit-sim/internal/powertrain"
	"github.com/cxd309/esprit-sim/internal/sensing"
)

const (
	// stopLineMargin is how far short of the intersection edge cars stop.
	stopLineMargin = 1.5
	// stopLineReach is how far behind the stop point a halt still counts.
	stopLineReach = 3.0
	// yieldZone is how close to the intersection a right turner starts
	// checking the oncoming lanes.
	yieldZone = 8.0
	// standstill is the speed below which a car counts as stopped.
	standstill = 0.1
)

// Navigator is the Controller for traffic cars.
type Navigator struct {
	profile Profile
	rng     *rand.Rand
	braking kinematics.ConstantDeceleration

	destination *city.GridPoint

	// The street being driven and the plan for the intersection at its end.
	street    *city.Street
	direction city.Direction
	exit      city.Direction
	turn      city.Turn
	lane      int // lane held; 0 is the sidewalk a U-turn ends on

	stopped bool // done waiting at the stop line
	dwell   float64

	crossing *city.Intersection
	path     *Path

	follow follower
}

// NewNavigator returns a navigator whose exit choices are drawn from a
// generator seeded with seed.
func NewNavigator(p Profile, seed uint64) *Navigator {
	return &Navigator{
		profile: p,
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		braking: kinematics.ConstantDeceleration{ADcc: p.ComfortDeceleration},
	}
}

// SetDestination makes the navigator follow the shortest route to an
// intersection instead of turning at random. Once there it wanders again.
func (n *Navigator) SetDestination(p city.GridPoint) { n.destination = &p }

// Destination returns the intersection being driven to, if any.
func (n *Navigator) Destination() (city.GridPoint, bool) {
	if n.destination == nil {
		return city.GridPoint{}, false
	}
	return *n.destination, true
}

// Turn returns the maneuver planned at the next intersection.
func (n *Navigator) Turn() city.Turn { return n.turn }

// Exit returns the direction the car will leave the next intersection in.
func (n *Navigator) Exit() city.Direction { return n.exit }

// Lane returns the lane being held or changed into.
func (n *Navigator) Lane() int { return n.lane }

// Path returns the path through the current intersection, or nil on a street.
func (n *Navigator) Path() *Path { return n.path }

// LaneFor returns the lane to approach a maneuver from. Lanes are counted from
// the kerb, so left turns keep to lane 1 and right turns cross from the lane
// next to the centre line.
func LaneFor(turn city.Turn, s *city.Street, d city.Direction) int {
	lanes := max(s.LanesToward(d), 1)
	switch turn {
	case city.TurnLeft, city.TurnU:
		return 1
	case city.TurnRight:
		return lanes
	}
	return min(lanes/2+1, lanes)
}

// ExitLaneFor returns the lane a maneuver ends in on the exit street. A U-turn
// swings out onto the far sidewalk to make the radius.
func ExitLaneFor(turn city.Turn, s *city.Street, d city.Direction) int {
	if turn == city.TurnU {
		return 0
	}
	return LaneFor(turn, s, d)
}

// Act implements driver.Controller.
func (n *Navigator) Act(s driver.Sensors, _ driver.Actuators, dt float64) driver.Actuators {
	out := driver.Actuators{TurnSignal: powertrain.SignalOff, TargetDirection: s.Heading}
	var yield bool
	var yieldWidth float64
	switch loc := s.Location; {
	case loc.Street != nil:
		n.onStreet(s, &out, dt)
		yield = n.turn == city.TurnRight && loc.DistanceToExit < yieldZone
		yieldWidth = loc.Street.RoadWidth()
	case loc.Intersection != nil:
		progress := n.inIntersection(s, &out)
		yield = n.turn == city.TurnRight && progress < 0.5
		size := loc.Intersection.Size()
		yieldWidth = max(size.X, size.Y)
	default:
		// Off the grid: stop where we are.
		n.follow.reset()
		return out
	}

	hit, ok := s.World.Raycast(s.Front(), s.Heading, n.profile.MaxSensingDistance, s.VehicleID)
	out.TargetSpeed = min(out.TargetSpeed, n.follow.target(n.profile, hit, ok, s.Speed, out.TargetSpeed, dt))

	if yield {
		if other, ok := n.oncoming(s, yieldWidth); ok {
			out.WaitingFor = other.ID
			out.TargetSpeed = 0
		}
	}
	return out
}

func (n *Navigator) onStreet(s driver.Sensors, out *driver.Actuators, dt float64) {
	p := n.profile
	loc := s.Location
	st := loc.Street
	dir := travelDirection(st, loc.Direction, s.Heading)
	if st != n.street || dir != n.direction {
		n.enterStreet(s, st, dir)
	}

	sideways := st.Sideways(s.Position, dir)
	changing := math.Abs(st.LaneSideways(n.lane)-sideways) > p.LaneTolerance
	if want := LaneFor(n.turn, st, dir); !changing && n.lane != want && loc.DistanceToExit > p.LaneChangeMinDistance {
		next := n.lane + 1
		if want < n.lane {
			next = n.lane - 1
		}
		if n.laneFree(s, st, dir, next) {
			n.lane = next
			changing = true
		}
	}

	out.HoldLane = true
	out.TargetSideways = st.LaneSideways(n.lane)
	out.TargetDirection = dir.Vector()
	out.Intent = n.turn
	switch {
	case changing && out.TargetSideways < sideways:
		out.TurnSignal = powertrain.SignalLeft
	case changing:
		out.TurnSignal = powertrain.SignalRight
	case loc.DistanceToExit < p.SignalDistance:
		out.TurnSignal = signalFor(n.turn)
	}

	speed := p.LaneSpeed(loc.Lane)
	if n.turn != city.TurnStraight {
		speed = min(speed, n.braking.SpeedAllowedAt(loc.DistanceToExit, p.TurnSpeed))
	}
	if !n.stopped && st.Exit(dir).HasStopLineFor(st) {
		speed = min(speed, n.braking.SpeedAllowedAt(loc.DistanceToExit-stopLineMargin, 0))
		if math.Abs(s.Speed) < standstill && loc.DistanceToExit < stopLineMargin+stopLineReach {
			n.dwell += dt
			n.stopped = n.dwell >= p.StopLineDwell
		}
	}
	out.TargetSpeed = speed
}

// enterStreet plans the street just driven onto.
func (n *Navigator) enterStreet(s driver.Sensors, st *city.Street, dir city.Direction) {
	n.street, n.direction = st, dir
	n.stopped, n.dwell = false, 0
	n.crossing, n.path = nil, nil
	n.exit = n.chooseExit(s, st.Exit(dir), dir)
	n.turn = city.TurnBetween(dir, n.exit)
	n.lane = min(max(s.Location.Lane, 0), max(st.LanesToward(dir), 1))
}

// laneFree reports whether the stretch of lane beside the car is clear enough
// to move into.
func (n *Navigator) laneFree(s driver.Sensors, st *city.Street, dir city.Direction, lane int) bool {
	safe := n.profile.SafeDistance(s.Speed)
	here := r2.Dot(r2.Sub(s.Position, st.Entry(dir).Position), dir.Vector())
	origin := st.PointAt(dir, st.LaneSideways(lane), here)
	_, taken := s.World.Occupied(origin, dir.Vector(), n.profile.LaneChangeBehindFactor*safe, safe,
		city.LaneWidth/2, s.VehicleID)
	return !taken
}

// inIntersection steers along the path through the intersection and returns
// how much of it is done.
func (n *Navigator) inIntersection(s driver.Sensors, out *driver.Actuators) float64 {
	p := n.profile
	in := s.Location.Intersection
	if n.crossing != in {
		n.planCrossing(s, in)
	}
	dir, progress := n.path.Pursue(s.Position, p.PathLookahead)
	out.TargetDirection = dir
	out.Intent = n.turn
	out.TurnSignal = signalFor(n.turn)
	out.TargetSpeed = p.LaneSpeed(n.lane)
	if n.turn != city.TurnStraight {
		out.TargetSpeed = min(out.TargetSpeed, p.TurnSpeed)
	}
	return progress
}

// planCrossing builds the path through an intersection. A car that did not
// arrive from a planned street, such as one placed inside the intersection,
// picks its exit here.
func (n *Navigator) planCrossing(s driver.Sensors, in *city.Intersection) {
	n.crossing = in
	entry := s.Location.Direction
	if n.street != nil && n.street.Exit(n.direction) == in {
		entry = n.direction
	} else {
		n.street = nil
		n.exit = n.chooseExit(s, in, entry)
		n.turn = city.TurnBetween(entry, n.exit)
	}

	exitDir := n.exit.Vector()
	end := r2.Add(in.Position, r2.Scale(in.HalfExtent(n.exit), exitDir))
	if out := in.Street(n.exit); out != nil {
		lane := ExitLaneFor(n.turn, out, n.exit)
		end = out.PointAt(n.exit, out.LaneSideways(lane), in.HalfExtent(n.exit))
	}
	n.path = NewPath(n.turn, s.Position, entry.Vector(), end, exitDir)
}

// chooseExit picks the direction to leave at in, arriving in direction from.
// With a destination it follows the shortest route; otherwise it picks at random
// among the legal exits, turning back only at a dead end.
func (n *Navigator) chooseExit(s driver.Sensors, at *city.Intersection, from city.Direction) city.Direction {
	log := logging.L().With(zap.String("vehicle", s.VehicleID), zap.Stringer("at", at.Location))
	if n.destination != nil && s.Layout != nil {
		if at.Location == *n.destination {
			log.Debug("destination reached")
			n.destination = nil
		} else if d, err := s.Layout.NextDirection(at.Location, *n.destination); err != nil {
			log.Warn("no route to destination", zap.Error(err))
		} else {
			return d
		}
	}

	back := from.Opposite()
	options := lo.Filter(at.Exits(), func(d city.Direction, _ int) bool { return d != back })
	if len(options) == 0 {
		return back
	}
	return options[n.rng.IntN(len(options))]
}

// oncoming returns the nearest vehicle a right turn would cut across: moving
// toward us in the lanes to our right, not already yielding to us, and not
// turning right itself.
func (n *Navigator) oncoming(s driver.Sensors, width float64) (sensing.VehicleView, bool) {
	p := n.profile
	dir := n.direction
	if n.street == nil {
		dir = s.Location.Direction
	}
	fwd, right := dir.Vector(), dir.Right().Vector()

	var best sensing.VehicleView
	bestAlong := math.Inf(1)
	for _, v := range s.World.Vehicles {
		if v.ID == s.VehicleID || v.WaitingFor == s.VehicleID || v.Intent == city.TurnRight {
			continue
		}
		if math.Abs(v.Speed) < p.MinimumRecognizableObstacleSpeed || r2.Dot(v.Heading, fwd) > -0.5 {
			continue
		}
		rel := r2.Sub(v.Position, s.Position)
		along, across := r2.Dot(rel, fwd), r2.Dot(rel, right)
		if along <= 0 || along > p.YieldScanDistance || across <= 0 || across > width {
			continue
		}
		if along < bestAlong {
			best, bestAlong = v, along
		}
	}
	return best, !math.IsInf(bestAlong, 1)
}

// travelDirection returns the direction along the street closest to heading.
func travelDirection(st *city.Street, d city.Direction, heading r2.Vec) city.Direction {
	axis := st.Axis()
	if d == axis || d == axis.Opposite() {
		return d
	}
	if r2.Dot(heading, axis.Vector()) < 0 {
		return axis.Opposite()
	}
	return axis
}

func signalFor(t city.Turn) powertrain.TurnSignal {
	switch t {
	case city.TurnLeft:
		return powertrain.SignalLeft
	case city.TurnRight, city.TurnU:
		return powertrain.SignalRight
	}
	return powertrain.SignalOff
}
