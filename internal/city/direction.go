package city

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Direction is a cardinal direction of travel. The world frame has X pointing east
// and Y pointing north.
type Direction int

const (
	North Direction = iota
	East
	South
	West
)

// Directions lists the cardinal directions clockwise from north.
var Directions = [4]Direction{North, East, South, West}

var directionNames = [4]string{"north", "east", "south", "west"}

func (d Direction) String() string {
	if d < North || d > West {
		return fmt.Sprintf("direction(%d)", int(d))
	}
	return directionNames[d]
}

// MarshalText encodes the direction by name.
func (d Direction) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText decodes a direction name.
func (d *Direction) UnmarshalText(b []byte) error {
	for i, n := range directionNames {
		if n == string(b) {
			*d = Direction(i)
			return nil
		}
	}
	return fmt.Errorf("unknown direction %q", b)
}

// Vector returns the unit vector of the direction.
func (d Direction) Vector() r2.Vec {
	switch d {
	case North:
		return r2.Vec{Y: 1}
	case East:
		return r2.Vec{X: 1}
	case South:
		return r2.Vec{Y: -1}
	default:
		return r2.Vec{X: -1}
	}
}

// Opposite returns the reverse direction.
func (d Direction) Opposite() Direction { return (d + 2) % 4 }

// Left returns the direction after a left turn.
func (d Direction) Left() Direction { return (d + 3) % 4 }

// Right returns the direction after a right turn.
func (d Direction) Right() Direction { return (d + 1) % 4 }

// DirectionOf returns the cardinal direction closest to v.
func DirectionOf(v r2.Vec) Direction {
	deg := math.Atan2(v.Y, v.X) * 180 / math.Pi
	switch {
	case deg > 135 || deg < -135:
		return West
	case deg > 45:
		return North
	case deg < -45:
		return South
	}
	return East
}

// Turn is the maneuver that takes a car from one direction of travel to another.
type Turn string

const (
	TurnNone     Turn = ""
	TurnStraight Turn = "straight"
	TurnLeft     Turn = "left"
	TurnRight    Turn = "right"
	TurnU        Turn = "u_turn"
)

// TurnBetween classifies the maneuver from travelling in from to travelling in to.
func TurnBetween(from, to Direction) Turn {
	switch to {
	case from:
		return TurnStraight
	case from.Left():
		return TurnLeft
	case from.Right():
		return TurnRight
	}
	return TurnU
}
