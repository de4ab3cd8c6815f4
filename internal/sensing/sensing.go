// Package sensing is the read-only view one car has of the others: a snapshot of
// every vehicle and static obstacle, taken once per controller tick, and the
// forward ray cast the traffic controller uses to find what is ahead.
package sensing

import (
	"math"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/cxd309/esprit-sim/internal/city"
)

// HitKind classifies what a ray struck.
type HitKind string

const (
	HitVehicle HitKind = "vehicle"
	HitStatic  HitKind = "static"
)

// VehicleView is the part of a vehicle other vehicles may observe.
type VehicleView struct {
	ID       string
	Position r2.Vec
	Heading  r2.Vec // unit
	Speed    float64
	Length   float64
	Width    float64
	// Intent is the maneuver signalled for the next intersection.
	Intent city.Turn
	// WaitingFor is the ID of the vehicle this one is yielding to, if any.
	WaitingFor string
}

// Velocity returns the view's velocity vector.
func (v VehicleView) Velocity() r2.Vec { return r2.Scale(v.Speed, v.Heading) }

// Front returns the centre of the front bumper.
func (v VehicleView) Front() r2.Vec { return r2.Add(v.Position, r2.Scale(v.Length/2, v.Heading)) }

// Obstacle is a static axis-aligned box, such as a parked truck or roadworks.
type Obstacle struct {
	ID       string          `json:"id"`
	Center   city.Coordinate `json:"center"`
	HalfSize city.Coordinate `json:"half_size"`
}

// Snapshot is the world as seen at the start of a controller tick.
type Snapshot struct {
	Vehicles  []VehicleView
	Obstacles []Obstacle
}

// Vehicle returns the view with the given ID.
func (s Snapshot) Vehicle(id string) (VehicleView, bool) {
	return lo.Find(s.Vehicles, func(v VehicleView) bool { return v.ID == id })
}

// Hit is the nearest obstacle a ray struck.
type Hit struct {
	Distance float64
	Kind     HitKind
	ID       string
	// Speed is the struck vehicle's speed along the ray; 0 for static obstacles.
	Speed float64
}

// Raycast returns the nearest vehicle or obstacle the ray from origin along dir
// strikes within maxDistance, ignoring the vehicle ignoreID.
func (s Snapshot) Raycast(origin, dir r2.Vec, maxDistance float64, ignoreID string) (Hit, bool) {
	dir = r2.Unit(dir)
	best := Hit{Distance: math.Inf(1)}
	for _, v := range s.Vehicles {
		if v.ID == ignoreID {
			continue
		}
		d, ok := rayBox(origin, dir, v.Position, v.Heading, r2.Vec{X: v.Length / 2, Y: v.Width / 2})
		if ok && d <= maxDistance && d < best.Distance {
			best = Hit{Distance: d, Kind: HitVehicle, ID: v.ID, Speed: r2.Dot(v.Velocity(), dir)}
		}
	}
	for _, o := range s.Obstacles {
		d, ok := rayBox(origin, dir, o.Center.Vec(), r2.Vec{X: 1}, o.HalfSize.Vec())
		if ok && d <= maxDistance && d < best.Distance {
			best = Hit{Distance: d, Kind: HitStatic, ID: o.ID}
		}
	}
	if math.IsInf(best.Distance, 1) {
		return Hit{}, false
	}
	return best, true
}

// rayBox intersects a ray with an oriented box using the slab method in the
// box's frame. A ray starting inside the box hits at distance 0.
func rayBox(origin, dir, center, axis, half r2.Vec) (float64, bool) {
	if r2.Norm(axis) == 0 {
		axis = r2.Vec{X: 1}
	}
	axis = r2.Unit(axis)
	side := r2.Vec{X: -axis.Y, Y: axis.X}
	rel := r2.Sub(origin, center)
	o := [2]float64{r2.Dot(rel, axis), r2.Dot(rel, side)}
	d := [2]float64{r2.Dot(dir, axis), r2.Dot(dir, side)}
	h := [2]float64{half.X, half.Y}

	tMin, tMax := 0.0, math.Inf(1)
	for i := range 2 {
		if math.Abs(d[i]) < 1e-12 {
			if math.Abs(o[i]) > h[i] {
				return 0, false
			}
			continue
		}
		t1 := (-h[i] - o[i]) / d[i]
		t2 := (h[i] - o[i]) / d[i]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tMin = math.Max(tMin, t1)
		tMax = math.Min(tMax, t2)
		if tMin > tMax {
			return 0, false
		}
	}
	return tMin, true
}

// Occupied reports whether any vehicle other than ignoreID overlaps the
// rectangle spanned along dir from origin, between back and ahead metres and
// within halfWidth to either side. Vehicles count by their whole footprint, so
// a bumper poking into the rectangle is enough.
func (s Snapshot) Occupied(origin, dir r2.Vec, back, ahead, halfWidth float64, ignoreID string) (VehicleView, bool) {
	dir = r2.Unit(dir)
	side := r2.Vec{X: -dir.Y, Y: dir.X}
	return lo.Find(s.Vehicles, func(v VehicleView) bool {
		if v.ID == ignoreID {
			return false
		}
		rel := r2.Sub(v.Position, origin)
		along, across := r2.Dot(rel, dir), r2.Dot(rel, side)
		alongExt, acrossExt := v.extent(dir), v.extent(side)
		return along+alongExt >= -back && along-alongExt <= ahead &&
			math.Abs(across)-acrossExt <= halfWidth
	})
}

// extent is how far the vehicle's footprint reaches from its centre along axis.
func (v VehicleView) extent(axis r2.Vec) float64 {
	lateral := r2.Vec{X: -v.Heading.Y, Y: v.Heading.X}
	return math.Abs(r2.Dot(v.Heading, axis))*v.Length/2 + math.Abs(r2.Dot(lateral, axis))*v.Width/2
}
