package driver

import (
	"sort"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/cxd309/esprit-sim/internal/city"
)

// SpeedStep holds a target speed from time At until the next step.
type SpeedStep struct {
	At    float64 `json:"at" yaml:"at"`       // seconds
	Speed float64 `json:"speed" yaml:"speed"` // m/s, signed
}

// ScheduleController follows a timed program of target speeds while holding
// its lane. It is used for test drives.
type ScheduleController struct {
	steps []SpeedStep
}

// NewScheduleController returns a controller for steps, sorted by time.
func NewScheduleController(steps []SpeedStep) *ScheduleController {
	sorted := append([]SpeedStep(nil), steps...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].At < sorted[j].At })
	return &ScheduleController{steps: sorted}
}

// TargetAt returns the scheduled speed at time t; zero before the first step.
func (c *ScheduleController) TargetAt(t float64) float64 {
	i := sort.Search(len(c.steps), func(i int) bool { return c.steps[i].At > t })
	if i == 0 {
		return 0
	}
	return c.steps[i-1].Speed
}

// Act implements Controller.
func (c *ScheduleController) Act(s Sensors, prev Actuators, _ float64) Actuators {
	out := prev
	out.TargetSpeed = c.TargetAt(s.Time)
	out.Intent = city.TurnStraight
	out.HoldLane = false
	if st := s.Location.Street; st != nil {
		// Keep to the lane the car is in, or the kerbside one if it has strayed.
		lane := s.Location.Lane
		if lane < 1 || lane > st.LanesToward(s.Location.Direction) {
			lane = 1
		}
		out.HoldLane = true
		out.TargetSideways = st.LaneSideways(lane)
		out.TargetDirection = s.Location.Direction.Vector()
	} else if r2.Norm(out.TargetDirection) == 0 {
		out.TargetDirection = s.Heading
	}
	return out
}
