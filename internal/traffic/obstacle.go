package traffic

import (
	"github.com/cxd309/esprit-sim/internal/kinematics"
	"github.com/cxd309/esprit-sim/internal/sensing"
)

// follower throttles the target speed against the nearest obstacle ahead. The
// ray readings jump around, so both the distance and the obstacle's speed are
// smoothed.
type follower struct {
	tracking      bool
	distance      float64
	obstacleSpeed float64
	distanceDamp  kinematics.Damper
	speedDamp     kinematics.Damper
}

// reset forgets the tracked obstacle.
func (f *follower) reset() {
	*f = follower{}
}

// target returns the speed to drive at given the latest ray hit. The first
// reading of a new obstacle is taken as is.
func (f *follower) target(p Profile, hit sensing.Hit, ok bool, speed, laneSpeed, dt float64) float64 {
	if !ok {
		f.reset()
		return laneSpeed
	}
	if !f.tracking {
		f.tracking = true
		f.distance = hit.Distance
		f.obstacleSpeed = hit.Speed
	} else {
		f.distance = f.distanceDamp.Step(f.distance, hit.Distance, p.DistanceSmoothTime, dt)
		f.obstacleSpeed = f.speedDamp.Step(f.obstacleSpeed, hit.Speed, p.ObstacleSpeedSmoothTime, dt)
	}
	// Slow enough to count as standing still.
	if hit.Speed < p.MinimumRecognizableObstacleSpeed && f.obstacleSpeed < p.MinimumRecognizableObstacleSpeed {
		f.obstacleSpeed = 0
	}

	safe := p.SafeDistance(speed)
	if f.distance < safe {
		return 0
	}
	if hit.Speed-speed > p.MinimumMovingAwayRelativeSpeed {
		return laneSpeed
	}
	// Match the obstacle's speed at the matching distance, cruise at the edge
	// of sensing range.
	matching := safe * p.SpeedMatchingSafeDistanceFactor
	if matching >= p.MaxSensingDistance {
		return min(f.obstacleSpeed, laneSpeed)
	}
	fraction := (f.distance - matching) / (p.MaxSensingDistance - matching)
	return kinematics.Lerp(f.obstacleSpeed, laneSpeed, fraction)
}
