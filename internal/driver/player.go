package driver

import (
	"math"
	"sort"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/cxd309/esprit-sim/internal/units"
)

// Input is one reading of the player's controls, each axis in [-1, 1].
type Input struct {
	SpeedChange float64 `json:"speed_change"`
	Turning     float64 `json:"turning"` // positive turns right
}

// InputSource supplies the player's controls. Reading devices is left to the
// embedding program.
type InputSource interface {
	Input(t float64) Input
}

// InputStep holds an input from time At until the next step.
type InputStep struct {
	At    float64 `json:"at"`
	Input Input   `json:"input"`
}

// InputScript is an InputSource that replays a timed list of inputs.
type InputScript []InputStep

// Input returns the step in force at time t, or no input before the first step.
func (s InputScript) Input(t float64) Input {
	i := sort.Search(len(s), func(i int) bool { return s[i].At > t })
	if i == 0 {
		return Input{}
	}
	return s[i-1].Input
}

// PlayerSettings tune how control inputs map to targets.
type PlayerSettings struct {
	SpeedChangeRate          float64 `json:"speed_change_rate"`           // m/s per second at full input
	MinSpeedChangeDifference float64 `json:"min_speed_change_difference"` // m/s
	RoundingSpeedStep        float64 `json:"rounding_speed_step"`         // m/s
	MaxAngleChangeDeg        float64 `json:"max_angle_change_deg"`
}

// DefaultPlayerSettings mirror the arcade feel of the original controls.
func DefaultPlayerSettings() PlayerSettings {
	return PlayerSettings{
		SpeedChangeRate:          units.MPH(20),
		MinSpeedChangeDifference: units.MPH(5),
		RoundingSpeedStep:        units.MPH(5),
		MaxAngleChangeDeg:        45,
	}
}

// PlayerController turns player inputs into a target speed and direction.
// Pressing the speed axis ramps the target away from the current speed; letting
// go holds the current speed rounded to a step. Letting go of the turning axis
// squares the direction to the nearest right angle.
type PlayerController struct {
	Settings PlayerSettings
	Source   InputSource

	speedSign   float64
	keepTarget  bool
	lastTurning float64
}

// NewPlayerController returns a controller reading from src.
func NewPlayerController(settings PlayerSettings, src InputSource) *PlayerController {
	return &PlayerController{Settings: settings, Source: src, keepTarget: true}
}

// Act implements Controller.
func (c *PlayerController) Act(s Sensors, prev Actuators, dt float64) Actuators {
	in := c.Source.Input(s.Time)
	out := prev
	out.HoldLane = false
	out.TargetSpeed = c.targetSpeed(in.SpeedChange, s.Speed, prev.TargetSpeed, dt)
	out.TargetDirection = c.targetDirection(in.Turning, s.Heading, prev.TargetDirection)
	return out
}

func (c *PlayerController) targetSpeed(input, speed, target, dt float64) float64 {
	st := c.Settings
	if speed == 0 && input == 0 {
		c.speedSign = 0
	}
	if c.keepTarget && input == 0 {
		return target
	}
	if input == 0 {
		c.keepTarget = true
		return math.Round(speed/st.RoundingSpeedStep) * st.RoundingSpeedStep
	}

	if c.speedSign == 0 && speed == 0 {
		c.speedSign = math.Copysign(1, input)
	}
	if c.speedSign == 0 {
		// Already rolling when the player first touched the controls.
		c.speedSign = math.Copysign(1, speed)
	}
	absInput := input * c.speedSign
	next := math.Abs(target) + absInput*st.SpeedChangeRate*dt
	absSpeed := math.Abs(speed)
	switch {
	case absInput < 0:
		next = lo.Clamp(next, 0, math.Max(0, absSpeed-st.MinSpeedChangeDifference))
	case absInput > 0 && next < absSpeed+st.MinSpeedChangeDifference:
		next = absSpeed + st.MinSpeedChangeDifference
	}
	c.keepTarget = false
	return next * c.speedSign
}

func (c *PlayerController) targetDirection(input float64, heading, target r2.Vec) r2.Vec {
	defer func() { c.lastTurning = input }()
	if input == 0 {
		if c.lastTurning != 0 {
			deg := math.Round(units.Deg(math.Atan2(heading.Y, heading.X))/90) * 90
			rad := units.Rad(deg)
			return r2.Vec{X: math.Cos(rad), Y: math.Sin(rad)}
		}
		if r2.Norm(target) == 0 {
			return heading
		}
		return target
	}
	// Positive input turns right, which is clockwise.
	return r2.Rotate(heading, -units.Rad(input*c.Settings.MaxAngleChangeDeg), r2.Vec{})
}
