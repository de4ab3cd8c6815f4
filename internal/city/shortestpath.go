package city

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Route is the result of a shortest-route query.
type Route struct {
	Intersections []GridPoint // from start to end inclusive
	Length        float64     // metres between intersection centres
}

type routeKey struct{ from, to GridPoint }

// computeShortestPaths runs Floyd-Warshall over the intersections, with one
// directed edge per legal direction of travel along each street.
func (l *Layout) computeShortestPaths() {
	dist := make(map[GridPoint]map[GridPoint]float64, len(l.order))
	next := make(map[GridPoint]map[GridPoint]GridPoint, len(l.order))
	for _, i := range l.order {
		dist[i] = make(map[GridPoint]float64, len(l.order))
		next[i] = make(map[GridPoint]GridPoint, len(l.order))
		for _, j := range l.order {
			dist[i][j] = math.Inf(1)
		}
		dist[i][i] = 0
	}
	for _, s := range l.streets {
		u, v := s.Start.Location, s.End.Location
		if s.Allows(s.Axis()) {
			dist[u][v] = s.Span()
			next[u][v] = v
		}
		if s.Allows(s.Axis().Opposite()) {
			dist[v][u] = s.Span()
			next[v][u] = u
		}
	}
	for _, k := range l.order {
		for _, i := range l.order {
			for _, j := range l.order {
				if d := dist[i][k] + dist[k][j]; d < dist[i][j] {
					dist[i][j] = d
					next[i][j] = next[i][k]
				}
			}
		}
	}

	l.dist = dist
	l.nextNode = next
	l.routeCache = make(map[routeKey]Route)
}

func (l *Layout) ensureShortestPaths() {
	if l.dist == nil {
		l.computeShortestPaths()
	}
}

func (l *Layout) reconstructRoute(u, v GridPoint) []GridPoint {
	route := []GridPoint{u}
	for u != v {
		n, ok := l.nextNode[u][v]
		if !ok {
			return nil
		}
		u = n
		route = append(route, u)
	}
	return route
}

// ShortestRoute returns the shortest legal route between two intersections.
func (l *Layout) ShortestRoute(from, to GridPoint) (Route, error) {
	if _, ok := l.intersections[from]; !ok {
		return Route{}, fmt.Errorf("no intersection at %v", from)
	}
	if _, ok := l.intersections[to]; !ok {
		return Route{}, fmt.Errorf("no intersection at %v", to)
	}
	if from == to {
		return Route{Intersections: []GridPoint{from}}, nil
	}
	key := routeKey{from, to}
	if r, ok := l.routeCache[key]; ok {
		return r, nil
	}
	l.ensureShortestPaths()
	d := l.dist[from][to]
	if math.IsInf(d, 1) {
		return Route{}, fmt.Errorf("no route from %v to %v", from, to)
	}
	r := Route{Intersections: l.reconstructRoute(from, to), Length: d}
	l.routeCache[key] = r
	return r, nil
}

// NextDirection returns the direction to leave intersection at on the shortest
// route toward dest.
func (l *Layout) NextDirection(at, dest GridPoint) (Direction, error) {
	r, err := l.ShortestRoute(at, dest)
	if err != nil {
		return 0, err
	}
	if len(r.Intersections) < 2 {
		return 0, fmt.Errorf("already at destination %v", dest)
	}
	from := l.intersections[r.Intersections[0]].Position
	to := l.intersections[r.Intersections[1]].Position
	return DirectionOf(r2.Sub(to, from)), nil
}
